package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL A HISTORY QUERY
// История вмешательств студента для экрана сотрудника.
// ══════════════════════════════════════════════════════════════════════════════

// ListLevelAQuery - параметры истории.
type ListLevelAQuery struct {
	// StudentID - обязательный.
	StudentID shared.StudentID

	// DomainID - пустой означает все домены.
	DomainID shared.DomainID

	// Since - нулевое значение означает всю историю.
	Since time.Time

	Limit  int
	Offset int
}

// Validate проверяет параметры запроса.
func (q ListLevelAQuery) Validate() error {
	if !q.StudentID.IsValid() {
		return shared.ErrEmptyStudentID
	}
	return nil
}

// LevelAQueries обслуживает чтения записей Level A.
type LevelAQueries struct {
	repo levela.Repository
}

// NewLevelAQueries создаёт обработчик.
func NewLevelAQueries(repo levela.Repository) *LevelAQueries {
	return &LevelAQueries{repo: repo}
}

// List возвращает записи, новые первыми.
func (q *LevelAQueries) List(ctx context.Context, query ListLevelAQuery) ([]*levela.Intervention, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	items, err := q.repo.List(ctx, levela.ListFilter{
		StudentID: query.StudentID,
		DomainID:  query.DomainID,
		Since:     query.Since,
		Page:      shared.Page{Limit: query.Limit, Offset: query.Offset}.Normalize(),
	})
	if err != nil {
		return nil, fmt.Errorf("list level A: %w", err)
	}
	return items, nil
}

// Get возвращает запись по ID или shared.ErrInterventionNotFound.
func (q *LevelAQueries) Get(ctx context.Context, id string) (*levela.Intervention, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("levela", "GetByID", shared.ErrInvalidID, "intervention id is required")
	}
	return q.repo.GetByID(ctx, id)
}
