package memory

import (
	"context"
	"sort"

	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// LevelARepository implements levela.Repository.
type LevelARepository struct {
	s *Store
}

// Create stores a new intervention.
func (r *LevelARepository) Create(ctx context.Context, i *levela.Intervention) error {
	s := r.s
	defer s.lock(ctx)()

	if _, exists := s.state.interventions[i.ID]; exists {
		return shared.NewDomainError("levela", "Create", shared.ErrAlreadyExists, "intervention "+i.ID+" already exists")
	}
	s.state.interventions[i.ID] = *i
	return nil
}

// GetByID returns the intervention or shared.ErrInterventionNotFound.
func (r *LevelARepository) GetByID(ctx context.Context, id string) (*levela.Intervention, error) {
	s := r.s
	defer s.lock(ctx)()

	i, ok := s.state.interventions[id]
	if !ok {
		return nil, shared.ErrInterventionNotFound
	}
	return &i, nil
}

// UpdateOutcome changes only the outcome fields.
func (r *LevelARepository) UpdateOutcome(ctx context.Context, id string, outcome levela.Outcome, escalatedToB bool) error {
	s := r.s
	defer s.lock(ctx)()

	i, ok := s.state.interventions[id]
	if !ok {
		return shared.ErrInterventionNotFound
	}
	i.Outcome = outcome
	i.EscalatedToB = escalatedToB
	s.state.interventions[id] = i
	return nil
}

// Count counts interventions for the pair inside r.
func (r *LevelARepository) Count(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID, window levela.TimeRange) (int, error) {
	s := r.s
	defer s.lock(ctx)()

	n := 0
	for _, i := range s.state.interventions {
		if i.StudentID == studentID && i.DomainID == domainID && window.Contains(i.EventTimestamp) {
			n++
		}
	}
	return n, nil
}

// List returns matching interventions, newest first.
func (r *LevelARepository) List(ctx context.Context, filter levela.ListFilter) ([]*levela.Intervention, error) {
	s := r.s
	defer s.lock(ctx)()

	matched := make([]*levela.Intervention, 0)
	for _, i := range s.state.interventions {
		if filter.Matches(&i) {
			item := i
			matched = append(matched, &item)
		}
	}
	sort.Slice(matched, func(a, b int) bool {
		if matched[a].EventTimestamp.Equal(matched[b].EventTimestamp) {
			return matched[a].ID < matched[b].ID
		}
		return matched[a].EventTimestamp.After(matched[b].EventTimestamp)
	})
	return paginate(matched, filter.Page), nil
}
