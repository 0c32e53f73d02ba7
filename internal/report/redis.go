package report

import (
	"context"
	"encoding/json"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/redis"
)

// RedisSink appends JSON results to a capped Redis list, newest last.
type RedisSink struct {
	client   *redis.Client
	key      string
	maxItems int64
}

func NewRedisSink(client *redis.Client, key string, maxItems int64) *RedisSink {
	return &RedisSink{client: client, key: key, maxItems: maxItems}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Write(ctx context.Context, r Result) error {
	data, err := json.Marshal(r)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, "encoding run %s: %v", r.RunID, err)
	}
	return s.client.PushCapped(ctx, s.key, data, s.maxItems)
}

func (s *RedisSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *RedisSink) Close() error {
	return s.client.Close()
}
