package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Description() string           { return "test job " + j.name }
func (j funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// immediate is always due.
type immediate struct{}

func (immediate) Next(t time.Time) time.Time { return t }
func (immediate) String() string             { return "immediate" }

func newTestScheduler() *Scheduler {
	return NewScheduler(SchedulerConfig{
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		MaxConcurrentJobs: 1,
		TickInterval:      10 * time.Millisecond,
	})
}

func TestScheduler_Register(t *testing.T) {
	s := newTestScheduler()
	job := funcJob{name: "a", run: func(context.Context) error { return nil }}

	require.NoError(t, s.Register(job, immediate{}))
	assert.ErrorIs(t, s.Register(job, immediate{}), ErrJobAlreadyExists)
	assert.ErrorIs(t, s.Register(nil, immediate{}), ErrNilJob)
	assert.ErrorIs(t, s.Register(funcJob{name: "b"}, nil), ErrNilSchedule)
	assert.ErrorIs(t, s.SetEnabled("missing", false), ErrJobNotFound)
}

func TestScheduler_RunNowRecordsResults(t *testing.T) {
	s := newTestScheduler()
	boom := errors.New("boom")

	var results []JobResult
	s.OnJobComplete(func(r JobResult) { results = append(results, r) })

	require.NoError(t, s.Register(funcJob{name: "ok", run: func(context.Context) error { return nil }}, immediate{}))
	require.NoError(t, s.Register(funcJob{name: "fail", run: func(context.Context) error { return boom }}, immediate{}))
	require.NoError(t, s.Register(funcJob{name: "panic", run: func(context.Context) error { panic("kaboom") }}, immediate{}))

	res, err := s.RunNow(context.Background(), "ok")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)

	_, err = s.RunNow(context.Background(), "fail")
	assert.ErrorIs(t, err, boom)

	_, err = s.RunNow(context.Background(), "panic")
	assert.ErrorIs(t, err, ErrJobPanicked)

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.Len(t, results, 3)
	infos := s.ListJobs()
	require.Len(t, infos, 3)
	assert.Equal(t, "fail", infos[0].Name)
	assert.Equal(t, int64(1), infos[0].FailCount)
	assert.Equal(t, "ok", infos[1].Name)
	assert.Equal(t, int64(0), infos[1].FailCount)
}

func TestScheduler_RunAllSkipsDisabled(t *testing.T) {
	s := newTestScheduler()
	var ran []string
	for _, name := range []string{"b", "a", "c"} {
		name := name
		require.NoError(t, s.Register(funcJob{name: name, run: func(context.Context) error {
			ran = append(ran, name)
			return nil
		}}, immediate{}))
	}
	require.NoError(t, s.SetEnabled("c", false))

	require.NoError(t, s.RunAll(context.Background()))
	assert.Equal(t, []string{"a", "b"}, ran)
}

func TestScheduler_StartRunsDueJobs(t *testing.T) {
	s := newTestScheduler()
	var runs atomic.Int64
	done := make(chan struct{}, 1)

	require.NoError(t, s.Register(funcJob{name: "tick", run: func(context.Context) error {
		if runs.Add(1) == 2 {
			done <- struct{}{}
		}
		return nil
	}}, immediate{}))

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run twice")
	}

	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestParseCron(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	sched, err := ParseCron("0 7 * * 1-5", est)
	require.NoError(t, err)
	assert.Equal(t, "0 7 * * 1-5", sched.String())

	// Friday 2025-01-10 15:00 EST -> Monday 2025-01-13 07:00 EST.
	next := sched.Next(time.Date(2025, 1, 10, 15, 0, 0, 0, est))
	assert.True(t, next.Equal(time.Date(2025, 1, 13, 7, 0, 0, 0, est)), next.String())

	every, err := ParseCron("@every 15m", nil)
	require.NoError(t, err)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, every.Next(base).Equal(base.Add(15*time.Minute)))

	_, err = ParseCron("not a cron", nil)
	assert.Error(t, err)
}
