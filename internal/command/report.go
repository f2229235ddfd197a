package command

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"go.dw1.io/rhscache"
)

// ReportCommandAction merges the stats snapshots given as arguments and
// prints them.
func ReportCommandAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no snapshot file specified")
	}

	format, err := rhscache.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	snaps := make([]rhscache.Snapshot, 0, len(paths))
	for _, path := range paths {
		s, err := rhscache.LoadSnapshotFromFile(path)
		if err != nil {
			return fmt.Errorf("cannot load %q: %w", path, err)
		}
		snaps = append(snaps, s)
	}

	merged := rhscache.MergeSnapshots(snaps...)

	if out := cmd.String("output"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := merged.Export(f, format); err != nil {
			_ = f.Close()
			return err
		}
		return f.Close()
	}

	return merged.Export(cmd.Root().Writer, format)
}

// ReportCommandBuilder returns the "report" subcommand.
func ReportCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:      "report",
		Usage:     "merge and print per-worker stats snapshots",
		ArgsUsage: "SNAPSHOT...",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write the report to a file instead of stdout",
			},
		},
		Action: ReportCommandAction,
	}
}
