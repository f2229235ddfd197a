// Package command builds the rhscache command line application.
package command

import (
	"io"
	"os"
	"sort"

	"github.com/urfave/cli/v3"
)

// InitApp returns the root command. Output goes to w.
func InitApp(w io.Writer) *cli.Command {
	if w == nil {
		w = os.Stdout
	}

	app := &cli.Command{
		Name:   "rhscache",
		Usage:  "linear RHS solution cache tools",
		Writer: w,
		Commands: []*cli.Command{
			CheckCommandBuilder(),
			ReportCommandBuilder(),
			DemoCommandBuilder(),
		},
	}

	// Make sure flags are sorted for the --help text.
	for _, cmd := range app.Commands {
		sort.Slice(cmd.Flags, func(i, j int) bool {
			return cmd.Flags[i].Names()[0] < cmd.Flags[j].Names()[0]
		})
	}

	return app
}

// formatFlag is shared by the commands that print stats.
func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "output format: text, html, json or yaml",
		Value:   "text",
	}
}
