package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/commuter-estimation/pkg/errors"
)

// WithDeadline runs fn under a context that expires after limit. A zero
// limit runs fn with ctx unchanged. fn is expected to watch its context and
// return promptly once it ends. An error returned after the limit expired
// is reported as ErrDeadlineExceeded.
func WithDeadline(ctx context.Context, limit time.Duration, name string, fn func(ctx context.Context) error) error {
	if limit <= 0 {
		return fn(ctx)
	}
	limitCtx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	err := fn(limitCtx)
	if err == nil || ctx.Err() != nil {
		return err
	}
	if errors.Is(limitCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, apperrors.ErrDeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w (limit: %v)", name, apperrors.ErrDeadlineExceeded, err, limit)
	}
	return err
}
