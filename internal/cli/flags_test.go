package cli

import (
	"flag"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

func parse(t *testing.T, register func(*flag.FlagSet) *Overrides, args ...string) (*config.Config, error) {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	o := register(fs)
	require.NoError(t, fs.Parse(args))
	cfg := config.Default()
	return cfg, o.Apply(cfg)
}

func TestSimulationFlags(t *testing.T) {
	cfg, err := parse(t, SimulationFlags,
		"-trips", "250",
		"-runs", "5",
		"-mode", "single",
		"-exact",
		"-seed", "7",
		"-deadline", "2s",
		"-fp", "0.01",
		"-results", "out.txt",
	)
	require.NoError(t, err)
	require.Equal(t, 250, cfg.Simulation.TripCount)
	require.Equal(t, 5, cfg.Simulation.RunCount)
	require.Equal(t, config.ModeSingle, cfg.Simulation.Mode)
	require.True(t, cfg.Sets.Exact)
	require.Equal(t, uint64(7), cfg.Simulation.Seed)
	require.Equal(t, 2*time.Second, cfg.Simulation.Deadline)
	require.InDelta(t, 0.01, cfg.Sets.FalsePositiveRate, 1e-12)
	require.Equal(t, "out.txt", cfg.Output.ResultsPath)
}

func TestUnsetFlagsKeepConfig(t *testing.T) {
	cfg, err := parse(t, SimulationFlags, "-trips", "10")
	require.NoError(t, err)
	require.Equal(t, config.Default().Epoch, cfg.Epoch)
	require.Equal(t, config.Default().Sets, cfg.Sets)
}

func TestSmartCardFlags(t *testing.T) {
	cfg, err := parse(t, SmartCardFlags, "-csv", "gt.csv", "-window", "10", "-ground-truth", "1200", "-delimiter", ",")
	require.NoError(t, err)
	require.Equal(t, "gt.csv", cfg.SmartCard.Path)
	require.Equal(t, 10, cfg.SmartCard.WindowMinutes)
	require.Equal(t, uint64(1200), cfg.SmartCard.GroundTruth)
	require.Equal(t, ",", cfg.SmartCard.Delimiter)
}

func TestBadFlagValueIsConfigError(t *testing.T) {
	_, err := parse(t, SimulationFlags, "-trips", "many")
	require.ErrorIs(t, err, apperrors.ErrInvalidConfig)
	require.Contains(t, err.Error(), "-trips")
}
