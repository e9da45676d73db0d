// Package catalog содержит справочник поведенческих доменов.
// Данные неизменяемые и принадлежат конфигурации: ядро их только читает.
package catalog

import (
	"context"
	"strings"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// BehavioralDomain - поведенческий домен (например, "respect", "safety").
type BehavioralDomain struct {
	ID          shared.DomainID `json:"id" yaml:"id"`
	Key         string          `json:"domain_key" yaml:"key"`
	DisplayName string          `json:"display_name" yaml:"display_name"`
	IsActive    bool            `json:"is_active" yaml:"active"`
}

// Validate проверяет запись справочника перед загрузкой.
func (d BehavioralDomain) Validate() error {
	if !d.ID.IsValid() {
		return shared.ErrEmptyDomainID
	}
	if strings.TrimSpace(d.Key) == "" {
		return shared.NewDomainError("catalog", "Validate", shared.ErrEmptyValue, "domain_key is required")
	}
	if strings.TrimSpace(d.DisplayName) == "" {
		return shared.NewDomainError("catalog", "Validate", shared.ErrEmptyValue, "display_name is required")
	}
	return nil
}

// Catalog - контракт справочника доменов, потребляемый ядром.
type Catalog interface {
	// ListActive возвращает активные домены, упорядоченные по отображаемому имени.
	ListActive(ctx context.Context) ([]BehavioralDomain, error)

	// GetByID возвращает домен по ID.
	// Возвращает shared.ErrDomainNotFound, если домена нет.
	GetByID(ctx context.Context, id shared.DomainID) (*BehavioralDomain, error)
}

// Seeder загружает справочник из конфигурации (идемпотентный upsert).
type Seeder interface {
	Upsert(ctx context.Context, domains []BehavioralDomain) error
}
