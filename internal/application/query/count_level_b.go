package query

import (
	"context"
	"fmt"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL B ATTEMPT COUNTER
// Хранилище Level B внешнее: считаем только завершённые попытки.
// ══════════════════════════════════════════════════════════════════════════════

// LevelBCounter считает завершённые попытки Level B для пары студент+домен.
type LevelBCounter struct {
	store levelb.Store
}

// NewLevelBCounter создаёт счётчик.
func NewLevelBCounter(store levelb.Store) *LevelBCounter {
	return &LevelBCounter{store: store}
}

// CountCompleted возвращает число попыток со статусом completed_success
// или completed_escalated. Ошибка чтения не превращается в ноль.
func (c *LevelBCounter) CountCompleted(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID) (int, error) {
	if err := validatePair(studentID, domainID); err != nil {
		return 0, err
	}

	count, err := c.store.CountCompleted(ctx, studentID, domainID)
	if err != nil {
		return 0, fmt.Errorf("count completed level B: %w", err)
	}
	if count < 0 {
		return 0, shared.Upstream("levelb", "CountCompleted", fmt.Errorf("store returned negative count %d", count))
	}
	return count, nil
}
