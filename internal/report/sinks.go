package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/redis"
)

// NewSinks opens the results file and every enabled remote sink. An enabled
// sink that cannot be reached fails the call with ErrSinkUnavailable, after
// the sinks opened so far are closed.
func NewSinks(ctx context.Context, cfg config.OutputConfig, m *metrics.Metrics) (*MultiSink, error) {
	var sinks []Sink
	fail := func(err error) (*MultiSink, error) {
		for _, s := range sinks {
			s.Close()
		}
		return nil, err
	}

	if cfg.ResultsPath != "" {
		fs, err := NewFileSink(cfg.ResultsPath)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, fs)
	}

	if cfg.Postgres.Enabled {
		client, err := postgres.New(cfg.Postgres)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err))
		}
		ps, err := NewPostgresSink(ctx, client)
		if err != nil {
			client.Close()
			if !errors.Is(err, apperrors.ErrInvalidConfig) {
				err = fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err)
			}
			return fail(err)
		}
		sinks = append(sinks, ps)
	}

	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis)
		if err != nil {
			return fail(fmt.Errorf("%w: %w", apperrors.ErrSinkUnavailable, err))
		}
		sinks = append(sinks, NewRedisSink(client, cfg.Redis.Key, cfg.Redis.MaxItems))
	}

	if cfg.Kafka.Enabled {
		sinks = append(sinks, NewKafkaSink(kafka.NewProducer(cfg.Kafka)))
	}

	return NewMultiSink(sinks, MultiSinkOptions{Metrics: m}), nil
}
