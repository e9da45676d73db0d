package memory

import (
	"context"
	"sort"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// CaseRepository implements levelc.Repository.
type CaseRepository struct {
	s *Store
}

// Create stores a new case with version 1.
func (r *CaseRepository) Create(ctx context.Context, c *levelc.Case) error {
	s := r.s
	defer s.lock(ctx)()

	if _, exists := s.state.cases[c.ID]; exists {
		return shared.NewDomainError("levelc", "Create", shared.ErrAlreadyExists, "case "+c.ID+" already exists")
	}
	c.Version = 1
	s.state.cases[c.ID] = cloneCase(*c)
	return nil
}

// GetByID returns a copy of the case or shared.ErrCaseNotFound.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*levelc.Case, error) {
	s := r.s
	defer s.lock(ctx)()

	c, ok := s.state.cases[id]
	if !ok {
		return nil, shared.ErrCaseNotFound
	}
	out := cloneCase(c)
	return &out, nil
}

// Update writes c when the stored version equals c.Version.
func (r *CaseRepository) Update(ctx context.Context, c *levelc.Case) error {
	s := r.s
	defer s.lock(ctx)()

	stored, ok := s.state.cases[c.ID]
	if !ok {
		return shared.ErrCaseNotFound
	}
	if stored.Version != c.Version {
		return shared.ErrCaseVersionConflict
	}
	c.Version++
	s.state.cases[c.ID] = cloneCase(*c)
	return nil
}

// List returns one page of matching cases, newest first, and the total count.
func (r *CaseRepository) List(ctx context.Context, filter levelc.ListFilter) ([]*levelc.Case, int, error) {
	matched := r.collect(ctx, filter.Matches)
	return paginate(matched, filter.Page), len(matched), nil
}

// Caseload returns every non-closed case of the manager.
func (r *CaseRepository) Caseload(ctx context.Context, managerID shared.StaffID) ([]*levelc.Case, error) {
	return r.collect(ctx, func(c *levelc.Case) bool {
		return c.CaseManagerID == managerID && !c.IsClosed()
	}), nil
}

// PendingReentries returns pending_reentry cases whose reentry date has arrived.
func (r *CaseRepository) PendingReentries(ctx context.Context, today shared.Date) ([]*levelc.Case, error) {
	cases := r.collect(ctx, func(c *levelc.Case) bool {
		return c.IsReentryDue(today)
	})
	sort.SliceStable(cases, func(a, b int) bool {
		return cases[a].ReentryPlan.ReentryDate.Before(*cases[b].ReentryPlan.ReentryDate)
	})
	return cases, nil
}

// DueReviews returns monitoring cases with a scheduled review on date.
func (r *CaseRepository) DueReviews(ctx context.Context, date shared.Date) ([]*levelc.Case, error) {
	return r.collect(ctx, func(c *levelc.Case) bool {
		if c.Status != levelc.StatusMonitoring {
			return false
		}
		_, ok := c.Monitoring.HasReviewOn(date)
		return ok
	}), nil
}

func (r *CaseRepository) collect(ctx context.Context, keep func(c *levelc.Case) bool) []*levelc.Case {
	s := r.s
	defer s.lock(ctx)()

	out := make([]*levelc.Case, 0)
	for _, stored := range s.state.cases {
		c := cloneCase(stored)
		if keep(&c) {
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].CreatedAt.Equal(out[b].CreatedAt) {
			return out[a].ID < out[b].ID
		}
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}
