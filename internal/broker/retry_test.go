package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-trade/helios/internal/logger"
	"github.com/helios-trade/helios/pkg/errors"
)

func fastConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts: attempts,
		Base:        2,
		Min:         time.Millisecond,
		Max:         5 * time.Millisecond,
	}
}

func TestRetry_SucceedsFirstAttempt(t *testing.T) {
	calls := 0

	result, err := Retry(context.Background(), logger.NewNop(), fastConfig(3), "op", func() (int, error) {
		calls++

		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, result)
	assert.Equal(t, 1, calls)
}

func TestRetry_RecoversAfterTransientFailures(t *testing.T) {
	calls := 0

	result, err := Retry(context.Background(), logger.NewNop(), fastConfig(3), "op", func() (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New(errors.ErrCodeBrokerCallFailed, "transient")
		}

		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)
}

func TestRetry_ExhaustionWrapsLastError(t *testing.T) {
	calls := 0

	_, err := Retry(context.Background(), logger.NewNop(), fastConfig(3), "op", func() (int, error) {
		calls++

		return 0, errors.New(errors.ErrCodeBrokerCallFailed, "down")
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, errors.HasCode(err, errors.ErrCodeRetriesExhausted))
}

func TestRetry_HonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := RetryConfig{MaxAttempts: 5, Base: 2, Min: time.Minute, Max: time.Hour}

	_, err := Retry(ctx, logger.NewNop(), cfg, "op", func() (int, error) {
		return 0, errors.New(errors.ErrCodeBrokerCallFailed, "down")
	})

	require.ErrorIs(t, err, context.Canceled)
}
