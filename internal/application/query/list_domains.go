package query

import (
	"context"
	"fmt"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// DomainQueries читает справочник поведенческих доменов.
type DomainQueries struct {
	catalog catalog.Catalog
}

// NewDomainQueries создаёт обработчик.
func NewDomainQueries(cat catalog.Catalog) *DomainQueries {
	return &DomainQueries{catalog: cat}
}

// ListActive возвращает активные домены.
func (q *DomainQueries) ListActive(ctx context.Context) ([]catalog.BehavioralDomain, error) {
	domains, err := q.catalog.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list domains: %w", err)
	}
	return domains, nil
}

// Get возвращает домен или shared.ErrDomainNotFound.
func (q *DomainQueries) Get(ctx context.Context, id shared.DomainID) (*catalog.BehavioralDomain, error) {
	if !id.IsValid() {
		return nil, shared.ErrEmptyDomainID
	}
	return q.catalog.GetByID(ctx, id)
}
