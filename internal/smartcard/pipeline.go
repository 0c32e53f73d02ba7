package smartcard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/index"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/matcher"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/report"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/tripset"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/tracing"
)

// Estimate matches every check-in frame against the check-out frames in the
// MatchEpochs frames after it and returns the one-way trip totals. A
// check-out followed by a later check-in of the same card is not a trip.
func Estimate(ctx context.Context, ds Dataset, backing tripset.Backing, matchEpochs int, opts matcher.Options) (matcher.Totals, error) {
	idx, err := index.Build(ds.Detections, index.Options{
		EpochCount:    len(ds.Frames),
		LocationCount: len(ds.Stations),
		Directional:   true,
	}, backing)
	if err != nil {
		return matcher.Totals{}, fmt.Errorf("building frame index: %w", err)
	}
	stats := idx.Stats()
	opts.Metrics.ObserveIndex(idx.DetectionCount(), stats.MeanFill, stats.Saturated)

	m := matcher.New(idx, matcher.FixedWindows{Span: matchEpochs, Epochs: len(ds.Frames)}, opts)
	return m.AllSingleTrips(ctx)
}

// Run loads the export named by cfg.SmartCard, estimates its one-way trips
// and scores the coarse estimate against the configured ground truth.
func Run(ctx context.Context, cfg *config.Config, m *metrics.Metrics) (report.Result, error) {
	if err := cfg.ValidateSmartCard(); err != nil {
		return report.Result{}, err
	}
	backing, err := tripset.FromConfig(cfg.Sets)
	if err != nil {
		return report.Result{}, err
	}

	start := time.Now()
	runID := tracing.NewTraceID()
	ctx = logger.WithRunID(ctx, runID)
	ctx, root := tracing.StartSpan(ctx, "smartcard", runID)
	log := logger.FromContext(ctx).With("component", "smartcard")

	res, err := run(ctx, cfg, backing, m, log)
	root.End()
	root.Log(log)
	if err != nil {
		m.ObserveRun(backing.Kind().String(), "smartcard", "error", time.Since(start).Seconds())
		log.Error("smartcard estimate failed", "error", err)
		return report.Result{}, err
	}

	res.RunID = runID
	res.Elapsed = report.Seconds(time.Since(start))
	res.CreatedAt = time.Now().UTC()
	for _, p := range root.Phases() {
		res.Phases = append(res.Phases, report.Phase{Name: p.Name, Elapsed: report.Seconds(p.Duration)})
	}
	res.Score()
	m.ObserveRun(res.Backing, "smartcard", "ok", res.Elapsed.Seconds())
	m.ObserveAccuracy("coarse", res.CoarseAccuracy)
	log.Info("estimate complete",
		"estimate", res.Coarse,
		"ground_truth", res.GroundTruth,
		"accuracy", res.CoarseAccuracy,
		"saturated", res.Saturated,
	)
	return res, nil
}

func run(ctx context.Context, cfg *config.Config, backing tripset.Backing, m *metrics.Metrics, log *slog.Logger) (report.Result, error) {
	sc := cfg.SmartCard

	_, span := tracing.StartChildSpan(ctx, "load")
	records, err := Load(sc.Path, []rune(sc.Delimiter)[0])
	span.End()
	if err != nil {
		return report.Result{}, err
	}
	frames, err := TimeFrames(sc.WindowMinutes)
	if err != nil {
		return report.Result{}, err
	}
	ds := Bucket(records, frames)
	log.Info("export loaded",
		"records", len(records),
		"cards", ds.Cards,
		"stations", len(ds.Stations),
		"frames", len(frames),
		"skipped", ds.Skipped,
	)

	matchCtx, span := tracing.StartChildSpan(ctx, "match")
	totals, err := Estimate(matchCtx, ds, backing, sc.MatchEpochs, matcher.Options{
		Parallelism: cfg.Simulation.Parallelism,
		Metrics:     m,
		Logger:      log,
	})
	span.End()
	if err != nil {
		return report.Result{}, err
	}

	return report.Result{
		Source:            "smartcard",
		Backing:           backing.Kind().String(),
		Mode:              string(config.ModeSingle),
		TripCount:         len(records),
		EpochLength:       sc.WindowMinutes,
		MaxDetections:     cfg.Sets.MaxDetectionsPerBucket,
		FalsePositiveRate: cfg.Sets.FalsePositiveRate,
		GroundTruth:       sc.GroundTruth,
		Coarse:            totals.Coarse,
		Mid:               totals.Mid,
		Fine:              totals.Fine,
		FillRatio:         tripset.FillRatio(totals.Set),
		Saturated:         totals.Saturated,
	}, nil
}
