package memory

import (
	"context"
	"sort"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// CatalogRepository implements catalog.Catalog and catalog.Seeder.
type CatalogRepository struct {
	s *Store
}

// Upsert inserts or replaces domains by ID.
func (r *CatalogRepository) Upsert(ctx context.Context, domains []catalog.BehavioralDomain) error {
	for _, d := range domains {
		if err := d.Validate(); err != nil {
			return err
		}
	}

	s := r.s
	defer s.lock(ctx)()
	for _, d := range domains {
		s.state.domains[d.ID] = d
	}
	return nil
}

// ListActive returns active domains ordered by display name.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]catalog.BehavioralDomain, error) {
	s := r.s
	defer s.lock(ctx)()

	out := make([]catalog.BehavioralDomain, 0, len(s.state.domains))
	for _, d := range s.state.domains {
		if d.IsActive {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].DisplayName == out[b].DisplayName {
			return out[a].ID < out[b].ID
		}
		return out[a].DisplayName < out[b].DisplayName
	})
	return out, nil
}

// GetByID returns the domain or shared.ErrDomainNotFound.
func (r *CatalogRepository) GetByID(ctx context.Context, id shared.DomainID) (*catalog.BehavioralDomain, error) {
	s := r.s
	defer s.lock(ctx)()

	d, ok := s.state.domains[id]
	if !ok {
		return nil, shared.ErrDomainNotFound
	}
	return &d, nil
}
