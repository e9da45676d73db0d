package query

import (
	"context"
	"fmt"
	"strings"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL C CASE QUERIES
// Списки кейсов, нагрузка менеджера и очереди для внешнего планировщика.
// ══════════════════════════════════════════════════════════════════════════════

// CaseView - кейс с вычисляемым этапом для отображения.
type CaseView struct {
	*levelc.Case

	// DisplayPhase - этап для UI, включая context_packet. Не сохраняется.
	DisplayPhase string `json:"display_phase"`
}

// NewCaseView оборачивает кейс.
func NewCaseView(c *levelc.Case) CaseView {
	return CaseView{Case: c, DisplayPhase: c.DisplayPhase()}
}

// CaseListDTO - страница кейсов.
type CaseListDTO struct {
	// Cases - кейсы страницы, новые первыми.
	Cases []CaseView `json:"cases"`

	// TotalCount - число совпадений без учёта пагинации.
	TotalCount int `json:"total_count"`

	// Limit и Offset - фактически применённая пагинация.
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListCasesQuery - фильтры списка. Пустые поля не ограничивают выборку.
type ListCasesQuery struct {
	StudentID     shared.StudentID
	CaseManagerID shared.StaffID
	Statuses      []levelc.Status
	Limit         int
	Offset        int
}

// CaseQueries обслуживает все чтения кейсов.
type CaseQueries struct {
	repo  levelc.Repository
	clock timeutil.Clock
}

// NewCaseQueries создаёт обработчик запросов кейсов.
func NewCaseQueries(repo levelc.Repository, clock timeutil.Clock) *CaseQueries {
	return &CaseQueries{repo: repo, clock: clock}
}

// ListCases возвращает страницу кейсов и общее число.
func (q *CaseQueries) ListCases(ctx context.Context, query ListCasesQuery) (*CaseListDTO, error) {
	filter := levelc.ListFilter{
		StudentID:     query.StudentID,
		CaseManagerID: query.CaseManagerID,
		Statuses:      query.Statuses,
		Page:          shared.Page{Limit: query.Limit, Offset: query.Offset}.Normalize(),
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	cases, total, err := q.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	return &CaseListDTO{
		Cases:      toViews(cases),
		TotalCount: total,
		Limit:      filter.Page.Limit,
		Offset:     filter.Page.Offset,
	}, nil
}

// GetCase возвращает кейс по ID или shared.ErrCaseNotFound.
func (q *CaseQueries) GetCase(ctx context.Context, id string) (*CaseView, error) {
	if strings.TrimSpace(id) == "" {
		return nil, shared.NewDomainError("levelc", "GetByID", shared.ErrInvalidID, "case id is required")
	}
	c, err := q.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	view := NewCaseView(c)
	return &view, nil
}

// Caseload возвращает все незакрытые кейсы менеджера.
func (q *CaseQueries) Caseload(ctx context.Context, managerID shared.StaffID) ([]CaseView, error) {
	if !managerID.IsValid() {
		return nil, shared.NewDomainError("levelc", "Caseload", shared.ErrEmptyValue, "case_manager_id is required")
	}
	cases, err := q.repo.Caseload(ctx, managerID)
	if err != nil {
		return nil, fmt.Errorf("caseload: %w", err)
	}
	return toViews(cases), nil
}

// PendingReentries возвращает кейсы pending_reentry с reentry_date <= сегодня.
func (q *CaseQueries) PendingReentries(ctx context.Context) ([]CaseView, error) {
	cases, err := q.repo.PendingReentries(ctx, q.Today())
	if err != nil {
		return nil, fmt.Errorf("pending reentries: %w", err)
	}
	return toViews(cases), nil
}

// DueReviews возвращает кейсы в monitoring со встречей на date.
// Нулевая дата означает сегодня.
func (q *CaseQueries) DueReviews(ctx context.Context, date shared.Date) ([]CaseView, error) {
	if date.IsZero() {
		date = q.Today()
	}
	cases, err := q.repo.DueReviews(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("due reviews: %w", err)
	}
	return toViews(cases), nil
}

// Today возвращает текущую дату в часовом поясе школы.
func (q *CaseQueries) Today() shared.Date {
	return shared.DateOf(q.clock.Now().In(q.clock.Location()))
}

func toViews(cases []*levelc.Case) []CaseView {
	views := make([]CaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, NewCaseView(c))
	}
	return views
}
