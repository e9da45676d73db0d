package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	errTransient = errors.New("transient")
	errFatal     = errors.New("bad config")
)

func fast(attempts int) Backoff {
	return Backoff{MaxAttempts: attempts, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 2}
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := New(fast(3), nil, nil).Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errTransient
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_ReturnsLastErrorAfterFinalAttempt(t *testing.T) {
	var attempts []int
	calls := 0
	r := New(fast(3), nil, func(attempt int, err error, _ time.Duration) {
		assert.ErrorIs(t, err, errTransient)
		attempts = append(attempts, attempt)
	})

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})
	assert.Equal(t, errTransient, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, attempts)
}

func TestDo_RetryIfRejectsError(t *testing.T) {
	calls := 0
	r := New(fast(5), func(err error) bool { return !errors.Is(err, errFatal) }, nil)

	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errFatal
	})
	assert.Equal(t, errFatal, err)
	assert.Equal(t, 1, calls)
}

func TestDo_StopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := New(Backoff{MaxAttempts: 5, InitialDelay: time.Hour, Multiplier: 1}, nil, func(int, error, time.Duration) { cancel() })

	calls := 0
	err := r.Do(ctx, func(context.Context) error {
		calls++
		return errTransient
	})
	assert.Equal(t, errTransient, err)
	assert.Equal(t, 1, calls)
}

func TestWithAttempts(t *testing.T) {
	calls := 0
	r := StartupRetrier(nil, nil).WithAttempts(1)
	err := r.Do(context.Background(), func(context.Context) error {
		calls++
		return errTransient
	})
	assert.ErrorIs(t, err, errTransient)
	assert.Equal(t, 1, calls)
}

func TestDoWithDataRetrier(t *testing.T) {
	calls := 0
	v, err := DoWithDataRetrier(context.Background(), New(fast(2), nil, nil), func(context.Context) (int, error) {
		calls++
		if calls == 1 {
			return 0, errTransient
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{MaxAttempts: 5, InitialDelay: 100 * time.Millisecond, MaxDelay: 300 * time.Millisecond, Multiplier: 2}
	assert.Equal(t, 100*time.Millisecond, b.delay(1))
	assert.Equal(t, 200*time.Millisecond, b.delay(2))
	assert.Equal(t, 300*time.Millisecond, b.delay(3))

	b.Jitter = 0.5
	for i := 0; i < 20; i++ {
		d := b.delay(1)
		assert.GreaterOrEqual(t, d, 50*time.Millisecond)
		assert.LessOrEqual(t, d, 150*time.Millisecond)
	}
}

func TestStartupRetrier_Schedule(t *testing.T) {
	r := StartupRetrier(nil, nil)
	assert.Equal(t, 8, r.backoff.MaxAttempts)
	assert.Equal(t, 5*time.Second, r.backoff.MaxDelay)
	assert.True(t, r.retryIf(errTransient))
}
