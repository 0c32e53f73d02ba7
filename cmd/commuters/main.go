package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/simulation"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	overrides := cli.SimulationFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := overrides.Apply(cfg); err != nil {
		cli.Exit(err)
	}
	cli.Exit(run(cfg))
}

func run(cfg *config.Config) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	session, err := cli.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	runner, err := simulation.NewRunner(cfg, session.Metrics)
	if err != nil {
		return err
	}
	slog.Info("starting simulation",
		"trips", cfg.Simulation.TripCount,
		"locations", cfg.Simulation.LocationCount,
		"mode", cfg.Simulation.Mode,
		"exact", cfg.Sets.Exact,
		"runs", cfg.Simulation.RunCount,
	)
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	return session.Publish(ctx, res)
}
