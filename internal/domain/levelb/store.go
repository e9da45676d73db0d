// Package levelb описывает контракт внешнего хранилища Level B.
// Сам процесс Level B вне ядра: ядро только считает завершённые попытки
// и помечает записи как эскалированные в C.
package levelb

import (
	"context"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// Status - статус записи Level B во внешней системе.
type Status string

const (
	StatusInProgress         Status = "in_progress"
	StatusCompletedSuccess   Status = "completed_success"
	StatusCompletedEscalated Status = "completed_escalated"
)

// CompletedStatuses - статусы, которые считаются завершённой попыткой.
func CompletedStatuses() []Status {
	return []Status{StatusCompletedSuccess, StatusCompletedEscalated}
}

// IsCompleted проверяет, что попытка завершена.
func (s Status) IsCompleted() bool {
	return s == StatusCompletedSuccess || s == StatusCompletedEscalated
}

// Store - внешнее хранилище Level B. Реализация непрозрачна для ядра.
type Store interface {
	// CountCompleted считает попытки со статусом completed_success или completed_escalated.
	CountCompleted(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID) (int, error)

	// MarkEscalated выставляет escalated_to_c = true для указанных записей.
	MarkEscalated(ctx context.Context, ids []string) error
}
