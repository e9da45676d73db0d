// Package jobs contains the scheduled jobs run by cmd/worker.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/retry"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// REMINDER JOBS
// Both jobs read the case query contracts and publish one reminder event per
// case. Delivery and de-duplication happen in the reminder event handler.
// ══════════════════════════════════════════════════════════════════════════════

// Job names, as accepted by the worker's --job flag.
const (
	PendingReentriesJobName = "pending_reentries"
	DueReviewsJobName       = "due_reviews"
)

// CaseFinder is the read side consumed by the reminder jobs.
type CaseFinder interface {
	PendingReentries(ctx context.Context) ([]query.CaseView, error)
	DueReviews(ctx context.Context, date shared.Date) ([]query.CaseView, error)
	Today() shared.Date
}

// RunStats summarizes one job run.
type RunStats struct {
	CasesFound     int
	EventsRaised   int
	PublishFailure int
}

type reminderJob struct {
	cases     CaseFinder
	publisher shared.EventPublisher
	clock     timeutil.Clock
	retrier   *retry.Retrier
	logger    *slog.Logger
}

func newReminderJob(cases CaseFinder, publisher shared.EventPublisher, clock timeutil.Clock, logger *slog.Logger) reminderJob {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = timeutil.NewSystemClock(time.UTC)
	}
	return reminderJob{
		cases:     cases,
		publisher: publisher,
		clock:     clock,
		retrier:   retry.DatabaseRetrier(shared.IsUpstream),
		logger:    logger,
	}
}

// raise publishes one event per reminder. Publish failures are counted and
// joined into the returned error; remaining reminders are still raised.
func (j reminderJob) raise(name string, events []shared.ReminderEvent) (RunStats, error) {
	stats := RunStats{CasesFound: len(events)}
	var errs []error
	for _, e := range events {
		if err := j.publisher.Publish(e); err != nil {
			stats.PublishFailure++
			errs = append(errs, fmt.Errorf("case %s: %w", e.AggregateID(), err))
			continue
		}
		stats.EventsRaised++
	}

	j.logger.Info("reminder job finished",
		"job", name,
		"cases_found", stats.CasesFound,
		"events_raised", stats.EventsRaised,
		"publish_failures", stats.PublishFailure,
	)
	return stats, errors.Join(errs...)
}

// ─────────────────────────────────────────────────────────────────────────────
// Pending re-entries
// ─────────────────────────────────────────────────────────────────────────────

// PendingReentriesJob reminds case managers of re-entries that are due.
type PendingReentriesJob struct {
	reminderJob
}

// NewPendingReentriesJob creates the job.
func NewPendingReentriesJob(cases CaseFinder, publisher shared.EventPublisher, clock timeutil.Clock, logger *slog.Logger) *PendingReentriesJob {
	return &PendingReentriesJob{reminderJob: newReminderJob(cases, publisher, clock, logger)}
}

// Name returns the job name.
func (j *PendingReentriesJob) Name() string { return PendingReentriesJobName }

// Description returns a human-readable description.
func (j *PendingReentriesJob) Description() string {
	return "Raises reminders for pending_reentry cases whose re-entry date has arrived"
}

// Run executes the job.
func (j *PendingReentriesJob) Run(ctx context.Context) error {
	_, err := j.RunWithStats(ctx)
	return err
}

// RunWithStats executes the job and reports what it did.
func (j *PendingReentriesJob) RunWithStats(ctx context.Context) (RunStats, error) {
	views, err := retry.DoWithDataRetrier(ctx, j.retrier, func(ctx context.Context) ([]query.CaseView, error) {
		return j.cases.PendingReentries(ctx)
	})
	if err != nil {
		return RunStats{}, fmt.Errorf("pending_reentries: %w", err)
	}

	now := j.clock.Now()
	events := make([]shared.ReminderEvent, 0, len(views))
	for _, v := range views {
		events = append(events, shared.ReminderEvent{
			BaseEvent:     shared.NewBaseEvent(shared.EventReentryDue, v.ID, now),
			StudentID:     v.StudentID.String(),
			CaseManagerID: v.CaseManagerID.String(),
			Date:          *v.ReentryPlan.ReentryDate,
		})
	}
	return j.raise(j.Name(), events)
}

// ─────────────────────────────────────────────────────────────────────────────
// Due reviews
// ─────────────────────────────────────────────────────────────────────────────

// DueReviewsJob reminds case managers of monitoring reviews scheduled today.
type DueReviewsJob struct {
	reminderJob
}

// NewDueReviewsJob creates the job.
func NewDueReviewsJob(cases CaseFinder, publisher shared.EventPublisher, clock timeutil.Clock, logger *slog.Logger) *DueReviewsJob {
	return &DueReviewsJob{reminderJob: newReminderJob(cases, publisher, clock, logger)}
}

// Name returns the job name.
func (j *DueReviewsJob) Name() string { return DueReviewsJobName }

// Description returns a human-readable description.
func (j *DueReviewsJob) Description() string {
	return "Raises reminders for monitoring reviews scheduled for today"
}

// Run executes the job.
func (j *DueReviewsJob) Run(ctx context.Context) error {
	_, err := j.RunWithStats(ctx)
	return err
}

// RunWithStats executes the job and reports what it did.
func (j *DueReviewsJob) RunWithStats(ctx context.Context) (RunStats, error) {
	today := j.cases.Today()
	views, err := retry.DoWithDataRetrier(ctx, j.retrier, func(ctx context.Context) ([]query.CaseView, error) {
		return j.cases.DueReviews(ctx, today)
	})
	if err != nil {
		return RunStats{}, fmt.Errorf("due_reviews: %w", err)
	}

	now := j.clock.Now()
	events := make([]shared.ReminderEvent, 0, len(views))
	for _, v := range views {
		entry, _ := v.Monitoring.HasReviewOn(today)
		events = append(events, shared.ReminderEvent{
			BaseEvent:     shared.NewBaseEvent(shared.EventReviewDue, v.ID, now),
			StudentID:     v.StudentID.String(),
			CaseManagerID: v.CaseManagerID.String(),
			Date:          today,
			ReviewType:    string(entry.Type),
		})
	}
	return j.raise(j.Name(), events)
}
