package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"go.dw1.io/rhscache"
)

// CheckCommandAction validates each options file given as an argument and
// prints the resolved options.
func CheckCommandAction(ctx context.Context, cmd *cli.Command) error {
	paths := cmd.Args().Slice()
	if len(paths) == 0 {
		return errors.New("no options file specified")
	}

	w := cmd.Root().Writer
	var errs []error
	for _, path := range paths {
		opts, err := rhscache.LoadOptionsFile(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		log.WithField("path", path).Debug("options valid")

		out, err := yaml.Marshal(opts)
		if err != nil {
			return fmt.Errorf("cannot encode options: %w", err)
		}
		fmt.Fprintf(w, "# %s\n%s", path, out)
	}

	return errors.Join(errs...)
}

// CheckCommandBuilder returns the "check" subcommand.
func CheckCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:      "check",
		Usage:     "validate rhs_checking options files",
		ArgsUsage: "FILE...",
		Action:    CheckCommandAction,
	}
}
