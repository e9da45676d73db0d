package levelc

import (
	"context"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository определяет операции хранилища кейсов Level C.
type Repository interface {
	// Create сохраняет новый кейс с Version = 1.
	Create(ctx context.Context, c *Case) error

	// GetByID возвращает кейс по ID.
	// Возвращает shared.ErrCaseNotFound, если кейса нет.
	GetByID(ctx context.Context, id string) (*Case, error)

	// Update записывает кейс, только если сохранённая версия равна c.Version.
	// При успехе c.Version увеличивается на 1.
	// Возвращает shared.ErrCaseNotFound или shared.ErrCaseVersionConflict.
	Update(ctx context.Context, c *Case) error

	// List возвращает страницу кейсов по фильтру (новые первыми) и общее число совпадений.
	List(ctx context.Context, filter ListFilter) ([]*Case, int, error)

	// Caseload возвращает все незакрытые кейсы менеджера.
	Caseload(ctx context.Context, managerID shared.StaffID) ([]*Case, error)

	// PendingReentries возвращает кейсы pending_reentry с reentry_date <= today.
	PendingReentries(ctx context.Context, today shared.Date) ([]*Case, error)

	// DueReviews возвращает кейсы в monitoring, у которых в графике есть date.
	DueReviews(ctx context.Context, date shared.Date) ([]*Case, error)
}

// ListFilter - фильтр списка кейсов. Пустые поля не ограничивают выборку.
type ListFilter struct {
	StudentID     shared.StudentID
	CaseManagerID shared.StaffID
	Statuses      []Status
	Page          shared.Page
}

// Validate проверяет статусы фильтра.
func (f ListFilter) Validate() error {
	for _, s := range f.Statuses {
		if !s.IsValid() {
			return shared.NewDomainError("levelc", "List", shared.ErrInvalidInput, "unknown status: "+string(s))
		}
	}
	return nil
}

// Matches проверяет кейс на соответствие фильтру.
func (f ListFilter) Matches(c *Case) bool {
	if f.StudentID != "" && c.StudentID != f.StudentID {
		return false
	}
	if f.CaseManagerID != "" && c.CaseManagerID != f.CaseManagerID {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if c.Status == s {
			return true
		}
	}
	return false
}
