package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/pkg/retry"
)

func countingRetrier(attempts int, retries *int) *retry.Retrier {
	return retry.New(retry.Backoff{MaxAttempts: attempts, InitialDelay: time.Millisecond, Multiplier: 1},
		nil, func(int, error, time.Duration) { *retries++ })
}

func TestNewCache_BadURLFailsWithoutRetry(t *testing.T) {
	retries := 0
	cfg := DefaultConfig()
	cfg.URL = "ftp://localhost:6379"

	_, err := NewCache(context.Background(), cfg, countingRetrier(3, &retries))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCacheConfig)
	assert.Zero(t, retries)
}

func TestNewCache_UnreachableRetriesThenFails(t *testing.T) {
	retries := 0
	cfg := DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 1
	cfg.MinIdleConns = 0
	cfg.MaxRetries = -1
	cfg.DialTimeout = 200 * time.Millisecond

	_, err := NewCache(context.Background(), cfg, countingRetrier(2, &retries))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCacheConnection)
	assert.Equal(t, 1, retries)
}
