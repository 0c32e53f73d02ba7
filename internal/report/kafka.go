package report

import (
	"context"

	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/kafka"
)

// KafkaSink publishes each result as a JSON event keyed by run id. Run
// labels are repeated in message headers.
type KafkaSink struct {
	producer *kafka.Producer
}

func NewKafkaSink(producer *kafka.Producer) *KafkaSink {
	return &KafkaSink{producer: producer}
}

func (s *KafkaSink) Name() string { return "kafka" }

func (s *KafkaSink) Write(ctx context.Context, r Result) error {
	return s.producer.Publish(ctx, kafka.Event{
		Key:   r.RunID,
		Value: r,
		Headers: map[string]string{
			"source":  r.Source,
			"backing": r.Backing,
			"mode":    r.Mode,
		},
	})
}

func (s *KafkaSink) Ping(ctx context.Context) error {
	return s.producer.Ping(ctx)
}

func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
