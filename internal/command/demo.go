package command

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/apex/log"
	"github.com/urfave/cli/v3"

	"go.dw1.io/rhscache"
	"go.dw1.io/rhscache/internal/demo"
)

// DemoCommandAction runs the block-Jacobi simulation and prints the merged
// stats of all workers.
func DemoCommandAction(ctx context.Context, cmd *cli.Command) error {
	cfg := demo.DefaultConfig()
	cfg.Workers = int(cmd.Int("workers"))
	cfg.BlockSize = int(cmd.Int("block-size"))
	cfg.Rounds = int(cmd.Int("rounds"))
	cfg.Seed = int64(cmd.Int("seed"))

	if path := cmd.String("options"); path != "" {
		opts, err := rhscache.LoadOptionsFile(path)
		if err != nil {
			return err
		}
		cfg.Options = opts
	}
	if cmd.IsSet("max-cache-entries") {
		cfg.Options.MaxCacheEntries = int(cmd.Int("max-cache-entries"))
	}
	if cmd.IsSet("check-zero") {
		cfg.Options.CheckZero = cmd.Bool("check-zero")
	}
	if cmd.IsSet("rtol") {
		cfg.Options.RTol = cmd.Float("rtol")
	}
	if cmd.IsSet("atol") {
		cfg.Options.ATol = cmd.Float("atol")
	}
	cfg.Options.CollectStats = true

	format, err := rhscache.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	log.WithFields(log.Fields{
		"workers":    cfg.Workers,
		"block_size": cfg.BlockSize,
		"rounds":     cfg.Rounds,
	}).Info("running demo")

	res, err := demo.Run(ctx, cfg)
	if err != nil {
		return err
	}

	if dir := cmd.String("save"); dir != "" {
		for rank, snap := range res.Snapshots {
			path := filepath.Join(dir, fmt.Sprintf("rank%d.rhsstats", rank))
			if err := snap.SaveToFile(path); err != nil {
				return err
			}
			log.WithField("path", path).Info("saved snapshot")
		}
	}

	w := cmd.Root().Writer
	total := 0
	for _, n := range res.Solves {
		total += n
	}
	fmt.Fprintf(w, "solves performed: %d\n", total)

	return res.Merged().Export(w, format)
}

// DemoCommandBuilder returns the "demo" subcommand.
func DemoCommandBuilder() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "simulate cached adjoint solves on in-process workers",
		Flags: []cli.Flag{
			formatFlag(),
			&cli.IntFlag{
				Name:    "workers",
				Aliases: []string{"n"},
				Usage:   "number of workers sharing the distributed vector",
				Value:   2,
			},
			&cli.IntFlag{
				Name:  "block-size",
				Usage: "rows of the operator owned by each worker",
				Value: 8,
			},
			&cli.IntFlag{
				Name:  "rounds",
				Usage: "times the solve plan is repeated",
				Value: 1,
			},
			&cli.IntFlag{
				Name:  "seed",
				Usage: "random seed",
				Value: 1,
			},
			&cli.StringFlag{
				Name:  "options",
				Usage: "rhs_checking options YAML file",
			},
			&cli.IntFlag{
				Name:  "max-cache-entries",
				Usage: "cache capacity; 0 disables caching",
			},
			&cli.BoolFlag{
				Name:  "check-zero",
				Usage: "short-circuit zero right-hand sides",
			},
			&cli.FloatFlag{
				Name:  "rtol",
				Usage: "relative tolerance",
			},
			&cli.FloatFlag{
				Name:  "atol",
				Usage: "absolute tolerance",
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "directory to save per-worker stats snapshots into",
			},
		},
		Action: DemoCommandAction,
	}
}
