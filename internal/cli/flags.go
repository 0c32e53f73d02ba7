package cli

import (
	"flag"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// Overrides are command-line settings applied over the loaded config. Only
// flags given on the command line take effect.
type Overrides struct {
	fs    *flag.FlagSet
	apply map[string]func(c *config.Config, v string) error
}

// SimulationFlags registers the simulation and set-backing flags on fs.
func SimulationFlags(fs *flag.FlagSet) *Overrides {
	o := newOverrides(fs)
	o.integer("trips", "number of travelers", func(c *config.Config, n int) { c.Simulation.TripCount = n })
	o.integer("runs", "matcher passes to average", func(c *config.Config, n int) { c.Simulation.RunCount = n })
	o.integer("locations", "number of locations", func(c *config.Config, n int) { c.Simulation.LocationCount = n })
	o.integer("epoch", "epoch length in minutes", func(c *config.Config, n int) { c.Epoch.LengthMinutes = n })
	o.integer("parallelism", "departure epochs matched concurrently", func(c *config.Config, n int) { c.Simulation.Parallelism = n })
	o.str("mode", "commuters or single", func(c *config.Config, v string) error {
		c.Simulation.Mode = config.Mode(v)
		return nil
	})
	o.str("seed", "random seed, 0 for time based", func(c *config.Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		c.Simulation.Seed = n
		return err
	})
	o.str("deadline", "run time limit, 0 for none", func(c *config.Config, v string) error {
		d, err := time.ParseDuration(v)
		c.Simulation.Deadline = d
		return err
	})
	SetsFlags(o)
	return o
}

// SmartCardFlags registers the smart-card pipeline flags on fs.
func SmartCardFlags(fs *flag.FlagSet) *Overrides {
	o := newOverrides(fs)
	o.str("csv", "smart-card export path", func(c *config.Config, v string) error {
		c.SmartCard.Path = v
		return nil
	})
	o.str("delimiter", "field delimiter", func(c *config.Config, v string) error {
		c.SmartCard.Delimiter = v
		return nil
	})
	o.integer("window", "time window in minutes", func(c *config.Config, n int) { c.SmartCard.WindowMinutes = n })
	o.integer("match-epochs", "check-out windows searched after each check-in", func(c *config.Config, n int) { c.SmartCard.MatchEpochs = n })
	o.str("ground-truth", "true number of travelers", func(c *config.Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		c.SmartCard.GroundTruth = n
		return err
	})
	SetsFlags(o)
	return o
}

// SetsFlags registers the set backing flags.
func SetsFlags(o *Overrides) {
	o.fs.Bool("exact", false, "use exact sets instead of bloom filters")
	o.apply["exact"] = func(c *config.Config, v string) error {
		b, err := strconv.ParseBool(v)
		c.Sets.Exact = b
		return err
	}
	o.str("max-detections", "expected detections per bucket", func(c *config.Config, v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		c.Sets.MaxDetectionsPerBucket = n
		return err
	})
	o.str("fp", "bloom filter false positive rate", func(c *config.Config, v string) error {
		p, err := strconv.ParseFloat(v, 64)
		c.Sets.FalsePositiveRate = p
		return err
	})
	o.str("results", "results file path", func(c *config.Config, v string) error {
		c.Output.ResultsPath = v
		return nil
	})
}

func newOverrides(fs *flag.FlagSet) *Overrides {
	return &Overrides{fs: fs, apply: make(map[string]func(*config.Config, string) error)}
}

func (o *Overrides) str(name, usage string, fn func(c *config.Config, v string) error) {
	o.fs.String(name, "", usage)
	o.apply[name] = fn
}

func (o *Overrides) integer(name, usage string, fn func(c *config.Config, n int)) {
	o.str(name, usage, func(c *config.Config, v string) error {
		n, err := strconv.Atoi(v)
		fn(c, n)
		return err
	})
}

// Apply copies the flags that were set onto cfg.
func (o *Overrides) Apply(cfg *config.Config) error {
	var err error
	o.fs.Visit(func(f *flag.Flag) {
		fn, ok := o.apply[f.Name]
		if !ok || err != nil {
			return
		}
		if e := fn(cfg, f.Value.String()); e != nil {
			err = apperrors.Newf(apperrors.ErrInvalidConfig, "flag -%s: %v", f.Name, e)
		}
	})
	return err
}
