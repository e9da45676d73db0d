package levela

import (
	"context"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища записей Level A.
// Записи никогда не удаляются.
type Repository interface {
	// Create сохраняет новую запись.
	Create(ctx context.Context, i *Intervention) error

	// GetByID возвращает запись по ID.
	// Возвращает shared.ErrInterventionNotFound, если записи нет.
	GetByID(ctx context.Context, id string) (*Intervention, error)

	// UpdateOutcome атомарно меняет outcome и escalated_to_b.
	// Возвращает shared.ErrInterventionNotFound, если записи нет.
	UpdateOutcome(ctx context.Context, id string, outcome Outcome, escalatedToB bool) error

	// Count считает записи студента в домене с event_timestamp в [From, To).
	// Нулевой To означает "без верхней границы".
	Count(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID, r TimeRange) (int, error)

	// List возвращает записи по фильтру, новые первыми.
	List(ctx context.Context, filter ListFilter) ([]*Intervention, error)
}

// TimeRange - полуинтервал [From, To).
type TimeRange struct {
	From time.Time
	To   time.Time
}

// Contains проверяет попадание момента в интервал.
func (r TimeRange) Contains(t time.Time) bool {
	if t.Before(r.From) {
		return false
	}
	return r.To.IsZero() || t.Before(r.To)
}

// ListFilter - фильтр истории Level A.
type ListFilter struct {
	StudentID shared.StudentID
	DomainID  shared.DomainID // пустой - все домены
	Since     time.Time       // нулевой - без ограничения
	Page      shared.Page
}

// Matches проверяет запись на соответствие фильтру.
func (f ListFilter) Matches(i *Intervention) bool {
	if f.StudentID != "" && i.StudentID != f.StudentID {
		return false
	}
	if f.DomainID != "" && i.DomainID != f.DomainID {
		return false
	}
	if !f.Since.IsZero() && i.EventTimestamp.Before(f.Since) {
		return false
	}
	return true
}
