// Package simulation runs the estimation engine end to end on synthetic
// data: a random network, a day of trips over it, the epoch index and one or
// more matcher passes scored against the generated ground truth.
package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/detection"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/index"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/network"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/report"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/tripset"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/resilience"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/tracing"
)

// Runner executes simulation runs for one configuration.
type Runner struct {
	cfg     *config.Config
	metrics *metrics.Metrics
	backing tripset.Backing
	clock   *detection.Clock
}

// NewRunner validates cfg and prepares the set backing and clock it
// describes. m may be nil.
func NewRunner(cfg *config.Config, m *metrics.Metrics) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backing, err := tripset.FromConfig(cfg.Sets)
	if err != nil {
		return nil, err
	}
	clock, err := detection.NewClock(cfg.Epoch)
	if err != nil {
		return nil, err
	}
	return &Runner{cfg: cfg, metrics: m, backing: backing, clock: clock}, nil
}

// Run generates one day of trips and estimates it. The matcher pass is
// repeated RunCount times and the counts and fill ratio are averaged.
// The whole run is bounded by the configured deadline, if any.
func (r *Runner) Run(ctx context.Context) (report.Result, error) {
	start := time.Now()
	sim := r.cfg.Simulation
	mode := string(sim.Mode)
	runID := tracing.NewTraceID()
	ctx = logger.WithRunID(ctx, runID)
	ctx, root := tracing.StartSpan(ctx, "simulation", runID)
	log := logger.FromContext(ctx).With("component", "simulation")

	seed := sim.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	root.SetAttr("seed", seed)
	rng := rand.New(rand.NewPCG(seed, seed>>32|1))

	var res report.Result
	err := resilience.WithDeadline(ctx, sim.Deadline, "simulation", func(ctx context.Context) error {
		var err error
		res, err = r.run(ctx, rng, log)
		return err
	})
	root.End()
	root.Log(log)
	if err != nil {
		r.metrics.ObserveRun(r.backing.Kind().String(), mode, "error", time.Since(start).Seconds())
		log.Error("simulation failed", "error", err)
		return report.Result{}, err
	}

	res.RunID = runID
	res.Elapsed = report.Seconds(time.Since(start))
	res.CreatedAt = time.Now().UTC()
	for _, p := range root.Phases() {
		res.Phases = append(res.Phases, report.Phase{Name: p.Name, Elapsed: report.Seconds(p.Duration)})
	}
	res.Score()

	r.metrics.ObserveRun(res.Backing, mode, "ok", res.Elapsed.Seconds())
	r.metrics.ObserveAccuracy("coarse", res.CoarseAccuracy)
	r.metrics.ObserveAccuracy("mid", res.MidAccuracy)
	r.metrics.ObserveAccuracy("fine", res.FineAccuracy)
	log.Info("simulation complete",
		"mode", mode,
		"backing", res.Backing,
		"ground_truth", res.GroundTruth,
		"coarse", res.Coarse,
		"mid", res.Mid,
		"fine", res.Fine,
		"saturated", res.Saturated,
		"elapsed", time.Duration(res.Elapsed),
	)
	return res, nil
}

func (r *Runner) run(ctx context.Context, rng *rand.Rand, log *slog.Logger) (report.Result, error) {
	sim := r.cfg.Simulation

	_, span := tracing.StartChildSpan(ctx, "generate-network")
	net, err := network.Generate(rng, sim.LocationCount, sim.LinkProbability, r.cfg.Timing)
	span.End()
	if err != nil {
		return report.Result{}, fmt.Errorf("generating network: %w", err)
	}
	log.Debug("network generated", "locations", net.LocationCount(), "links", net.LinkCount())

	_, span = tracing.StartChildSpan(ctx, "generate-trips")
	trips, err := detection.NewGenerator(rng, net, r.clock, sim.ReturnProbability).Generate(sim.TripCount)
	span.End()
	if err != nil {
		return report.Result{}, fmt.Errorf("generating trips: %w", err)
	}
	log.Info("trips generated",
		"travelers", trips.Travelers,
		"returners", trips.Returners,
		"detections", len(trips.Detections),
	)

	_, span = tracing.StartChildSpan(ctx, "build-index")
	idx, err := index.Build(trips.Detections, index.Options{
		EpochCount:    r.clock.EpochCount(),
		LocationCount: net.LocationCount(),
	}, r.backing)
	span.End()
	if err != nil {
		return report.Result{}, fmt.Errorf("building index: %w", err)
	}
	stats := idx.Stats()
	r.metrics.ObserveIndex(idx.DetectionCount(), stats.MeanFill, stats.Saturated)
	if stats.Saturated > 0 {
		log.Warn("saturated buckets", "count", stats.Saturated, "buckets", stats.Buckets)
	}

	truth := uint64(trips.Returners)
	if sim.Mode == config.ModeSingle {
		truth = uint64(trips.Travelers)
	}

	var sum totals
	windows := matcher.NewTimingWindows(r.clock, r.cfg.Timing)
	for run := 0; run < sim.RunCount; run++ {
		matchCtx, span := tracing.StartChildSpan(ctx, "match")
		m := matcher.New(idx, windows, matcher.Options{
			Parallelism: sim.Parallelism,
			Metrics:     r.metrics,
			Logger:      log,
		})
		var t matcher.Totals
		if sim.Mode == config.ModeSingle {
			t, err = m.AllSingleTrips(matchCtx)
		} else {
			t, err = m.AllCommuters(matchCtx)
		}
		span.End()
		if err != nil {
			return report.Result{}, fmt.Errorf("match run %d: %w", run+1, err)
		}
		sum.add(t)
		log.Debug("match run complete", "run", run+1, "coarse", t.Coarse, "elapsed", span.Duration)
	}
	avg := sum.average(sim.RunCount)

	return report.Result{
		Source:            "simulation",
		Backing:           r.backing.Kind().String(),
		Mode:              string(sim.Mode),
		TripCount:         sim.TripCount,
		EpochLength:       r.clock.Length(),
		MaxDetections:     r.cfg.Sets.MaxDetectionsPerBucket,
		FalsePositiveRate: r.cfg.Sets.FalsePositiveRate,
		GroundTruth:       truth,
		Coarse:            avg.coarse,
		Mid:               avg.mid,
		Fine:              avg.fine,
		FillRatio:         avg.fill,
		Saturated:         avg.saturated,
	}, nil
}

// totals accumulates matcher passes. Counts are averaged with integer
// division.
type totals struct {
	coarse, mid, fine uint64
	fill              float64
	saturated         bool
}

func (s *totals) add(t matcher.Totals) {
	s.coarse += t.Coarse
	s.mid += t.Mid
	s.fine += t.Fine
	s.fill += tripset.FillRatio(t.Set)
	s.saturated = s.saturated || t.Saturated
}

func (s totals) average(runs int) totals {
	n := uint64(runs)
	return totals{
		coarse:    s.coarse / n,
		mid:       s.mid / n,
		fine:      s.fine / n,
		fill:      s.fill / float64(runs),
		saturated: s.saturated,
	}
}
