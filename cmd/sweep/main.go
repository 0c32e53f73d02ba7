package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/simulation"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

var tripCounts = []int{100, 1000, 10000, 100000}

func main() {
	configPath := flag.String("config", "", "path to config file")
	divisor := flag.Int("bucket-divisor", 1, "expected detections per bucket is the trip count divided by this")
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
	if *divisor <= 0 {
		cli.Exit(apperrors.Newf(apperrors.ErrInvalidConfig, "bucket divisor %d must be positive", *divisor))
	}
	cli.Exit(run(cfg, *divisor))
}

// run executes one simulation per trip count. A failed configuration is
// logged and the sweep moves on; the first failure decides the exit code.
func run(cfg *config.Config, divisor int) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	session, err := cli.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	var firstErr error
	for _, trips := range tripCounts {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c := *cfg
		c.Simulation.TripCount = trips
		c.Sets.MaxDetectionsPerBucket = uint64(max(trips/divisor, 1))

		log := slog.With("trips", trips, "max_detections", c.Sets.MaxDetectionsPerBucket)
		err := sweepOne(ctx, session, &c)
		if err != nil {
			log.Error("sweep configuration failed", "error", err)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		log.Info("sweep configuration complete")
	}
	return firstErr
}

func sweepOne(ctx context.Context, session *cli.Session, cfg *config.Config) error {
	runner, err := simulation.NewRunner(cfg, session.Metrics)
	if err != nil {
		return err
	}
	res, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	return session.Publish(ctx, res)
}
