package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/postgres"
)

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// PostgresSink inserts one row per result.
type PostgresSink struct {
	client *postgres.Client
	insert string
}

// NewPostgresSink creates the results table if it does not exist.
func NewPostgresSink(ctx context.Context, client *postgres.Client) (*PostgresSink, error) {
	table := client.Table()
	if !tableName.MatchString(table) {
		return nil, apperrors.Newf(apperrors.ErrInvalidConfig, "invalid results table name %q", table)
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id                  BIGSERIAL PRIMARY KEY,
		run_id              TEXT NOT NULL,
		source              TEXT NOT NULL,
		backing             TEXT NOT NULL,
		mode                TEXT NOT NULL,
		trip_count          INTEGER NOT NULL,
		epoch_length        INTEGER NOT NULL,
		max_detections      BIGINT NOT NULL,
		false_positive_rate DOUBLE PRECISION NOT NULL,
		ground_truth        BIGINT NOT NULL,
		coarse              BIGINT NOT NULL,
		mid                 BIGINT NOT NULL,
		fine                BIGINT NOT NULL,
		coarse_accuracy     DOUBLE PRECISION NOT NULL,
		mid_accuracy        DOUBLE PRECISION NOT NULL,
		fine_accuracy       DOUBLE PRECISION NOT NULL,
		fill_ratio          DOUBLE PRECISION NOT NULL,
		saturated           BOOLEAN NOT NULL,
		elapsed_seconds     DOUBLE PRECISION NOT NULL,
		phases              JSONB,
		created_at          TIMESTAMPTZ NOT NULL
	)`, table)
	if _, err := client.DB.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating table %s: %w", table, err)
	}
	insert := fmt.Sprintf(`INSERT INTO %s (
		run_id, source, backing, mode, trip_count, epoch_length, max_detections,
		false_positive_rate, ground_truth, coarse, mid, fine, coarse_accuracy,
		mid_accuracy, fine_accuracy, fill_ratio, saturated, elapsed_seconds,
		phases, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`, table)
	return &PostgresSink{client: client, insert: insert}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Write(ctx context.Context, r Result) error {
	phases, err := json.Marshal(r.Phases)
	if err != nil {
		return apperrors.Newf(apperrors.ErrInvalidInput, "encoding phases of run %s: %v", r.RunID, err)
	}
	return s.client.InTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, s.insert,
			r.RunID, r.Source, r.Backing, r.Mode, r.TripCount, r.EpochLength, int64(r.MaxDetections),
			r.FalsePositiveRate, int64(r.GroundTruth), int64(r.Coarse), int64(r.Mid), int64(r.Fine),
			r.CoarseAccuracy, r.MidAccuracy, r.FineAccuracy, r.FillRatio, r.Saturated,
			r.Elapsed.Seconds(), string(phases), r.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting run %s: %w", r.RunID, err)
		}
		return nil
	})
}

func (s *PostgresSink) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *PostgresSink) Close() error {
	return s.client.Close()
}
