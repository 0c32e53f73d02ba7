package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/cli"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/smartcard"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	overrides := cli.SmartCardFlags(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := overrides.Apply(cfg); err != nil {
		cli.Exit(err)
	}
	if flag.NArg() > 0 && cfg.SmartCard.Path == "" {
		cfg.SmartCard.Path = flag.Arg(0)
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

	res, err := smartcard.Run(ctx, cfg, session.Metrics)
	if err != nil {
		return err
	}
	return session.Publish(ctx, res)
}
