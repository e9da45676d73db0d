// Package seed loads reference data from configuration files.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// CatalogFile is the on-disk shape of the behavioral domain catalog.
//
//	domains:
//	  - id: 5f0c...
//	    key: respect
//	    display_name: Respect
//	    active: true
type CatalogFile struct {
	Domains []catalog.BehavioralDomain `yaml:"domains"`
}

// ParseCatalog decodes and validates a catalog document.
// Unknown keys are rejected so that typos do not silently deactivate domains.
func ParseCatalog(r io.Reader) ([]catalog.BehavioralDomain, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f CatalogFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse catalog yaml: %w", err)
	}

	seen := make(map[string]struct{}, len(f.Domains))
	for i, d := range f.Domains {
		if err := d.Validate(); err != nil {
			return nil, fmt.Errorf("catalog entry %d: %w", i, err)
		}
		if _, dup := seen[d.ID.String()]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate id %s", i, d.ID)
		}
		seen[d.ID.String()] = struct{}{}
	}
	return f.Domains, nil
}

// LoadCatalogFile reads and parses the catalog at path.
func LoadCatalogFile(path string) ([]catalog.BehavioralDomain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(bytes.NewReader(data))
}

// SeedCatalog upserts the catalog at path into the store.
// An empty path is a no-op. Returns the number of domains written.
func SeedCatalog(ctx context.Context, store catalog.Seeder, path string, log *logger.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	if log == nil {
		log = logger.Default()
	}

	domains, err := LoadCatalogFile(path)
	if err != nil {
		return 0, err
	}
	if len(domains) == 0 {
		log.Warn("catalog seed file has no domains", logger.String("path", path))
		return 0, nil
	}
	if err := store.Upsert(ctx, domains); err != nil {
		return 0, fmt.Errorf("seed catalog: %w", err)
	}

	log.Info("catalog seeded",
		logger.String("path", path),
		logger.Int("domains", len(domains)),
	)
	return len(domains), nil
}
