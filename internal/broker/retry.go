package broker

import (
	"context"
	"time"

	"github.com/jpillora/backoff"
	"go.uber.org/zap"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/pkg/errors"
)

// RetryConfig controls the attempt-with-backoff policy. Attempt n sleeps
// Min * Base^n before the next try, capped at Max.
type RetryConfig struct {
	MaxAttempts int
	Base        float64
	Min         time.Duration
	Max         time.Duration
}

// DefaultRetryConfig returns the standard policy: three attempts with
// 1s, 2s, 4s spacing.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Base:        2,
		Min:         time.Second,
		Max:         5 * time.Minute,
	}
}

// Retry runs fn up to cfg.MaxAttempts times with exponential backoff between
// failures. On exhaustion it emits an api_call_failed event and returns the
// zero value with a retries-exhausted error; it never panics.
func Retry[T any](ctx context.Context, log *logger.Logger, cfg RetryConfig, op string, fn func() (T, error)) (T, error) {
	var zero T

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig().MaxAttempts
	}

	if cfg.Min <= 0 {
		cfg.Min = DefaultRetryConfig().Min
	}

	b := &backoff.Backoff{
		Min:    cfg.Min,
		Max:    cfg.Max,
		Factor: cfg.Base,
		Jitter: false,
	}

	var lastErr error

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}

		lastErr = err
		log.Warn("api call failed",
			zap.String("operation", op),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", cfg.MaxAttempts),
			zap.Error(err),
		)

		if attempt == cfg.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(b.Duration()):
		}
	}

	log.ErrorEvent(logger.EventAPICallFailed, map[string]any{
		"operation": op,
		"error":     lastErr.Error(),
		"retries":   cfg.MaxAttempts,
	})

	return zero, errors.Wrapf(errors.ErrCodeRetriesExhausted, lastErr, "%s failed after %d attempts", op, cfg.MaxAttempts)
}
