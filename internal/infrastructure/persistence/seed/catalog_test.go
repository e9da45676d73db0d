package seed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/memory"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

const sampleCatalog = `
domains:
  - id: d-respect
    key: respect
    display_name: Respect
    active: true
  - id: d-safety
    key: safety
    display_name: Safety
    active: true
  - id: d-legacy
    key: legacy
    display_name: Legacy Domain
    active: false
`

func TestParseCatalog(t *testing.T) {
	domains, err := ParseCatalog(strings.NewReader(sampleCatalog))
	require.NoError(t, err)
	require.Len(t, domains, 3)

	assert.Equal(t, shared.DomainID("d-respect"), domains[0].ID)
	assert.Equal(t, "respect", domains[0].Key)
	assert.Equal(t, "Respect", domains[0].DisplayName)
	assert.True(t, domains[0].IsActive)
	assert.False(t, domains[2].IsActive)
}

func TestParseCatalog_Rejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown field", "domains:\n  - id: d1\n    key: k\n    display_name: K\n    enabled: true\n"},
		{"missing display name", "domains:\n  - id: d1\n    key: k\n"},
		{"missing id", "domains:\n  - key: k\n    display_name: K\n"},
		{"duplicate id", "domains:\n  - id: d1\n    key: a\n    display_name: A\n  - id: d1\n    key: b\n    display_name: B\n"},
		{"not yaml", "domains: [unterminated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestParseCatalog_Empty(t *testing.T) {
	domains, err := ParseCatalog(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, domains)
}

func TestSeedCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCatalog), 0o600))

	store := memory.NewStore()
	ctx := context.Background()

	n, err := SeedCatalog(ctx, store.Catalog(), path, logger.Discard())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Seeding twice is idempotent.
	_, err = SeedCatalog(ctx, store.Catalog(), path, logger.Discard())
	require.NoError(t, err)

	active, err := store.Catalog().ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "Respect", active[0].DisplayName)
	assert.Equal(t, "Safety", active[1].DisplayName)

	legacy, err := store.Catalog().GetByID(ctx, "d-legacy")
	require.NoError(t, err)
	assert.False(t, legacy.IsActive)
}

func TestSeedCatalog_NoPath(t *testing.T) {
	n, err := SeedCatalog(context.Background(), memory.NewStore().Catalog(), "", nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSeedCatalog_MissingFile(t *testing.T) {
	_, err := SeedCatalog(context.Background(), memory.NewStore().Catalog(), filepath.Join(t.TempDir(), "nope.yaml"), logger.Discard())
	assert.Error(t, err)
}
