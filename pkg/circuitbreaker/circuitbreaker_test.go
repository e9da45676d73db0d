package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func ok(context.Context) error      { return nil }

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := New("test", WithFailureThreshold(2))

	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errBoom)
	assert.ErrorIs(t, cb.Execute(context.Background(), failing), errBoom)
	assert.True(t, cb.IsOpen())

	assert.ErrorIs(t, cb.Execute(context.Background(), ok), ErrCircuitOpen)
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var transitions []State
	cb := New("test",
		WithFailureThreshold(1),
		WithSuccessThreshold(1),
		WithTimeout(time.Minute),
		WithClock(func() time.Time { return now }),
		WithOnStateChange(func(_ string, _, to State) { transitions = append(transitions, to) }),
	)

	_ = cb.Execute(context.Background(), failing)
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(time.Minute)
	assert.NoError(t, cb.Execute(context.Background(), ok))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	notFailure := errors.New("not found")
	cb := New("test",
		WithFailureThreshold(1),
		WithIsFailure(func(err error) bool { return !errors.Is(err, notFailure) }),
	)

	_ = cb.Execute(context.Background(), func(context.Context) error { return notFailure })
	assert.True(t, cb.IsClosed())
}

func TestLevelBStoreBreaker(t *testing.T) {
	cb := LevelBStoreBreaker(nil, nil)
	assert.Equal(t, "level-b-store", cb.Name())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), failing)
	}
	assert.True(t, cb.IsOpen())
}
