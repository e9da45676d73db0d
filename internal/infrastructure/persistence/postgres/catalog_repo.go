package postgres

import (
	"context"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// CatalogRepository implements catalog.Catalog and catalog.Seeder for PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// ListActive returns active domains ordered by display name.
func (r *CatalogRepository) ListActive(ctx context.Context) ([]catalog.BehavioralDomain, error) {
	rows, err := r.conn.querier(ctx).Query(ctx, `
		SELECT id, domain_key, display_name, is_active
		FROM behavioral_domains
		WHERE is_active
		ORDER BY display_name, id`)
	if err != nil {
		return nil, upstream("catalog", "ListActive", err)
	}
	defer rows.Close()

	out := make([]catalog.BehavioralDomain, 0)
	for rows.Next() {
		var (
			d  catalog.BehavioralDomain
			id string
		)
		if err := rows.Scan(&id, &d.Key, &d.DisplayName, &d.IsActive); err != nil {
			return nil, upstream("catalog", "ListActive", err)
		}
		d.ID = shared.DomainID(id)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("catalog", "ListActive", err)
	}
	return out, nil
}

// GetByID returns a domain by ID, active or not.
func (r *CatalogRepository) GetByID(ctx context.Context, id shared.DomainID) (*catalog.BehavioralDomain, error) {
	d := catalog.BehavioralDomain{ID: id}
	err := r.conn.querier(ctx).QueryRow(ctx, `
		SELECT domain_key, display_name, is_active
		FROM behavioral_domains WHERE id = $1`, string(id),
	).Scan(&d.Key, &d.DisplayName, &d.IsActive)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrDomainNotFound
		}
		return nil, upstream("catalog", "GetByID", err)
	}
	return &d, nil
}

// Upsert inserts or updates every domain in one transaction.
func (r *CatalogRepository) Upsert(ctx context.Context, domains []catalog.BehavioralDomain) error {
	for _, d := range domains {
		if err := d.Validate(); err != nil {
			return err
		}
	}

	return r.conn.WithinTx(ctx, func(ctx context.Context) error {
		for _, d := range domains {
			_, err := r.conn.querier(ctx).Exec(ctx, `
				INSERT INTO behavioral_domains (id, domain_key, display_name, is_active)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (id) DO UPDATE SET
					domain_key = EXCLUDED.domain_key,
					display_name = EXCLUDED.display_name,
					is_active = EXCLUDED.is_active,
					updated_at = NOW()`,
				string(d.ID), d.Key, d.DisplayName, d.IsActive,
			)
			if err != nil {
				return upstream("catalog", "Upsert", err)
			}
		}
		return nil
	})
}
