// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/escalation"
	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// PATTERN DETECTOR
// Считает записи Level A студента в домене за скользящее окно.
// Каждый вызов читает хранилище: кэша нет.
// ══════════════════════════════════════════════════════════════════════════════

// PatternDetector определяет "студентов с паттерном".
type PatternDetector struct {
	repo   levela.Repository
	clock  timeutil.Clock
	policy escalation.Policy
}

// NewPatternDetector создаёт детектор паттернов.
func NewPatternDetector(repo levela.Repository, clock timeutil.Clock, policy escalation.Policy) *PatternDetector {
	return &PatternDetector{
		repo:   repo,
		clock:  clock,
		policy: policy.Normalize(),
	}
}

// Policy возвращает пороги, с которыми работает детектор.
func (d *PatternDetector) Policy() escalation.Policy {
	return d.policy
}

// HasPattern возвращает true, если за последние windowDays дней (нижняя граница
// включительно) у студента не меньше PatternThreshold записей в домене.
// windowDays <= 0 означает окно по умолчанию.
func (d *PatternDetector) HasPattern(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID, windowDays int) (bool, error) {
	count, err := d.CountInWindow(ctx, studentID, domainID, windowDays)
	if err != nil {
		return false, err
	}
	return count >= d.policy.PatternThreshold, nil
}

// CountInWindow считает записи в окне [now - windowDays, now].
func (d *PatternDetector) CountInWindow(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID, windowDays int) (int, error) {
	if err := validatePair(studentID, domainID); err != nil {
		return 0, err
	}
	if windowDays <= 0 {
		windowDays = d.policy.PatternWindowDays
	}

	now := d.clock.Now()
	window := levela.TimeRange{
		From: timeutil.TrailingWindowStart(now, windowDays),
		To:   now.Add(time.Nanosecond), // To исключается, now входит в окно
	}
	count, err := d.repo.Count(ctx, studentID, domainID, window)
	if err != nil {
		return 0, fmt.Errorf("pattern window count: %w", err)
	}
	return count, nil
}

// CountToday считает записи за текущий календарный день школы.
func (d *PatternDetector) CountToday(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID) (int, error) {
	if err := validatePair(studentID, domainID); err != nil {
		return 0, err
	}

	start, end := timeutil.DayBounds(d.clock.Now(), d.clock.Location())
	count, err := d.repo.Count(ctx, studentID, domainID, levela.TimeRange{From: start, To: end})
	if err != nil {
		return 0, fmt.Errorf("same-day count: %w", err)
	}
	return count, nil
}

// Now возвращает текущее время часов детектора.
func (d *PatternDetector) Now() time.Time {
	return d.clock.Now()
}

func validatePair(studentID shared.StudentID, domainID shared.DomainID) error {
	if !studentID.IsValid() {
		return shared.ErrEmptyStudentID
	}
	if !domainID.IsValid() {
		return shared.ErrEmptyDomainID
	}
	return nil
}
