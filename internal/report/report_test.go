package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/resilience"
)

func TestAccuracy(t *testing.T) {
	cases := []struct {
		est, truth uint64
		want       float64
	}{
		{1000, 1000, 1},
		{900, 1000, 0.9},
		{1100, 1000, 0.9},
		{2500, 1000, 0},
		{0, 1000, 0},
		{0, 0, 1},
		{3, 0, 0},
	}
	for _, c := range cases {
		require.InDelta(t, c.want, Accuracy(c.est, c.truth), 1e-9, "est %d truth %d", c.est, c.truth)
	}
}

func sampleResult() Result {
	r := Result{
		RunID:             "run-1",
		Source:            "simulation",
		Backing:           "bloom",
		Mode:              "commuters",
		TripCount:         1000,
		EpochLength:       5,
		MaxDetections:     1000,
		FalsePositiveRate: 0.001,
		GroundTruth:       500,
		Coarse:            480,
		Mid:               510,
		Fine:              700,
		FillRatio:         0.0123,
		Elapsed:           Seconds(1500 * time.Millisecond),
		CreatedAt:         time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	r.Score()
	return r
}

func TestResultLine(t *testing.T) {
	r := sampleResult()
	require.InDelta(t, 0.96, r.CoarseAccuracy, 1e-9)
	require.InDelta(t, 0.98, r.MidAccuracy, 1e-9)
	require.InDelta(t, 0.6, r.FineAccuracy, 1e-9)

	want := "B" + "   1000" + "    5" + "    1000" + " 0.0010" + "    500" +
		"    480" + "   96.00" + "    510" + "   98.00" + "    700" + "   60.00" +
		"      0.0123" + "      1.50"
	require.Equal(t, want, r.Line())

	r.Backing = "exact"
	require.True(t, strings.HasPrefix(r.Line(), "S"))
}

func TestResultJSON(t *testing.T) {
	r := sampleResult()
	r.Phases = []Phase{{Name: "match", Elapsed: Seconds(250 * time.Millisecond)}}
	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Equal(t, "run-1", decoded["run_id"])
	require.InDelta(t, 1.5, decoded["elapsed_seconds"], 1e-9)
	require.InDelta(t, 480, decoded["coarse"], 1e-9)

	var back Result
	require.NoError(t, json.Unmarshal(data, &back))
	require.Equal(t, r.Elapsed, back.Elapsed)
	require.Equal(t, r.Phases, back.Phases)
}

func TestFileSinkAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results-bfs.txt")
	s, err := NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), sampleResult()))
	require.NoError(t, s.Close())

	s, err = NewFileSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Write(context.Background(), sampleResult()))
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, sampleResult().Line(), lines[1])
}

type fakeSink struct {
	name     string
	failures int
	err      error

	mu      sync.Mutex
	calls   int
	written []Result
	closed  bool
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Write(_ context.Context, r Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	f.written = append(f.written, r)
	return nil
}

func (f *fakeSink) Ping(context.Context) error {
	if f.failures > 0 {
		return f.err
	}
	return nil
}

func (f *fakeSink) Close() error {
	f.closed = true
	return nil
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond}
}

func TestMultiSinkRetriesAndIsolatesFailures(t *testing.T) {
	flaky := &fakeSink{name: "flaky", failures: 2, err: errors.New("timeout")}
	broken := &fakeSink{name: "broken", failures: 100, err: errors.New("refused")}
	good := &fakeSink{name: "good"}
	ms := NewMultiSink([]Sink{flaky, broken, good}, MultiSinkOptions{Retry: fastRetry()})

	err := ms.Write(context.Background(), sampleResult())
	require.ErrorIs(t, err, apperrors.ErrSinkUnavailable)
	require.Contains(t, err.Error(), "broken")
	require.NotContains(t, err.Error(), "flaky")

	require.Len(t, flaky.written, 1)
	require.Equal(t, 3, flaky.calls)
	require.Len(t, good.written, 1)
	require.Equal(t, 3, broken.calls)

	require.NoError(t, ms.Close())
	require.True(t, flaky.closed && broken.closed && good.closed)
}

func TestMultiSinkSkipsPermanentErrors(t *testing.T) {
	bad := &fakeSink{name: "bad", failures: 5, err: apperrors.New(apperrors.ErrInvalidInput, "cannot encode")}
	ms := NewMultiSink([]Sink{bad}, MultiSinkOptions{Retry: fastRetry()})

	err := ms.Write(context.Background(), sampleResult())
	require.ErrorIs(t, err, apperrors.ErrInvalidInput)
	require.Equal(t, 1, bad.calls)
}

func TestMultiSinkBreakerOpens(t *testing.T) {
	broken := &fakeSink{name: "broken", failures: 100, err: errors.New("refused")}
	ms := NewMultiSink([]Sink{broken}, MultiSinkOptions{
		Retry:   resilience.RetryConfig{MaxAttempts: 1},
		Breaker: resilience.CircuitBreakerConfig{FailureThreshold: 2, Cooldown: time.Hour},
	})

	for i := 0; i < 2; i++ {
		require.Error(t, ms.Write(context.Background(), sampleResult()))
	}
	err := ms.Write(context.Background(), sampleResult())
	require.ErrorIs(t, err, resilience.ErrCircuitOpen)
	require.Equal(t, 2, broken.calls)
}

func TestMultiSinkHealth(t *testing.T) {
	down := &fakeSink{name: "down", failures: 1, err: errors.New("refused")}
	up := &fakeSink{name: "up"}
	ms := NewMultiSink([]Sink{down, up}, MultiSinkOptions{Retry: fastRetry()})

	checker := health.NewChecker()
	ms.RegisterHealth(checker)
	report := checker.Run(context.Background())
	require.Equal(t, health.StatusDown, report.Status)
	require.Equal(t, health.StatusUp, report.Components["up"].Status)
	require.Equal(t, health.StatusDown, report.Components["down"].Status)
}
