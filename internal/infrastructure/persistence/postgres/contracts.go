package postgres

import (
	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// Compile-time contract assertions.
var (
	_ levela.Repository = (*LevelARepository)(nil)
	_ levelc.Repository = (*CaseRepository)(nil)
	_ levelb.Store      = (*LevelBStore)(nil)
	_ catalog.Catalog   = (*CatalogRepository)(nil)
	_ catalog.Seeder    = (*CatalogRepository)(nil)
	_ shared.Transactor = (*Connection)(nil)
)
