// Package cli holds the process wiring shared by the commands: logging,
// the metrics server, result sinks and exit handling.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/internal/report"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/metrics"
)

const shutdownTimeout = 5 * time.Second

// Session is the environment of one command invocation.
type Session struct {
	Metrics *metrics.Metrics
	Sinks   *report.MultiSink
	Health  *health.Checker

	shutdown func(context.Context) error
}

// Open configures logging, starts the metrics server when enabled and
// opens the result sinks.
func Open(ctx context.Context, cfg *config.Config) (*Session, error) {
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	s := &Session{
		Metrics: metrics.New(reg),
		Health:  health.NewChecker(),
	}

	sinks, err := report.NewSinks(ctx, cfg.Output, s.Metrics)
	if err != nil {
		return nil, err
	}
	s.Sinks = sinks
	sinks.RegisterHealth(s.Health)

	if cfg.Metrics.Enabled {
		s.shutdown = metrics.StartServer(cfg.Metrics.Port, reg, s.Health)
	}
	return s, nil
}

// Publish prints the results line to stdout and writes r to every sink.
func (s *Session) Publish(ctx context.Context, r report.Result) error {
	fmt.Fprintln(os.Stdout, r.Line())
	return s.Sinks.Write(ctx, r)
}

// Close stops the metrics server and closes the sinks.
func (s *Session) Close() {
	if s.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.shutdown(ctx); err != nil {
			slog.Warn("metrics server shutdown", "error", err)
		}
	}
	if s.Sinks != nil {
		if err := s.Sinks.Close(); err != nil {
			slog.Warn("closing result sinks", "error", err)
		}
	}
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Exit logs err and terminates with the exit code for its kind.
func Exit(err error) {
	if err != nil {
		slog.Error("command failed", "error", err)
	}
	os.Exit(apperrors.ExitCode(err))
}
