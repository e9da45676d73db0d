package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION SUPPORT
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator handles database migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

// EnsureMigrationTable creates the migration tracking table if it doesn't exist.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
		)
	`, m.tableName)

	if _, err := m.conn.Pool().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns all applied migrations.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]time.Time, error) {
	query := fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName)

	rows, err := m.conn.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var appliedAt time.Time
		if err := rows.Scan(&version, &appliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = appliedAt
	}

	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.migrations {
		if _, isApplied := applied[mig.Version]; isApplied {
			continue
		}
		if mig.UpSQL == "" {
			return fmt.Errorf("%w: missing up SQL for migration %d", ErrMigrationFailed, mig.Version)
		}

		err := m.conn.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return fmt.Errorf("failed to execute migration %d: %w", mig.Version, err)
			}
			insertQuery := fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName)
			_, err := tx.Exec(ctx, insertQuery, mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
	}

	return nil
}

// Rollback rolls back the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var lastVersion int
	for v := range applied {
		if v > lastVersion {
			lastVersion = v
		}
	}
	if lastVersion == 0 {
		return nil
	}

	var migration *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == lastVersion {
			migration = &m.migrations[i]
			break
		}
	}
	if migration == nil || migration.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, lastVersion)
	}

	return m.conn.withTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, migration.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", lastVersion, err)
		}
		deleteQuery := fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName)
		_, err := tx.Exec(ctx, deleteQuery, lastVersion)
		return err
	})
}

// GetMigrations returns all embedded migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_catalog", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_level_a", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_level_b", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_level_c", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: BEHAVIORAL DOMAIN CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS behavioral_domains (
    id VARCHAR(64) PRIMARY KEY,
    domain_key VARCHAR(64) NOT NULL UNIQUE,
    display_name VARCHAR(128) NOT NULL,
    is_active BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_behavioral_domains_active ON behavioral_domains(display_name) WHERE is_active;
`

const migration001Down = `
DROP TABLE IF EXISTS behavioral_domains;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: LEVEL A INTERVENTIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS level_a_interventions (
    id UUID PRIMARY KEY,
    student_id VARCHAR(64) NOT NULL,
    staff_id VARCHAR(64) NOT NULL DEFAULT '',
    staff_name VARCHAR(128) NOT NULL DEFAULT '',
    domain_id VARCHAR(64) NOT NULL REFERENCES behavioral_domains(id),
    intervention_type VARCHAR(32) NOT NULL,
    behavior_description TEXT NOT NULL DEFAULT '',
    location VARCHAR(128) NOT NULL DEFAULT '',
    outcome VARCHAR(16) NOT NULL,
    is_repeated_same_day BOOLEAN NOT NULL DEFAULT FALSE,
    affected_others BOOLEAN NOT NULL DEFAULT FALSE,
    is_pattern_student BOOLEAN NOT NULL DEFAULT FALSE,
    escalated_to_b BOOLEAN NOT NULL DEFAULT FALSE,
    event_timestamp TIMESTAMP WITH TIME ZONE NOT NULL,

    CONSTRAINT valid_intervention_type CHECK (intervention_type IN (
        'prompt', 'proximity', 'redirect', 'private_conversation',
        'offer_choice', 'reteach_expectation', 'positive_narration', 'brief_break'
    )),
    CONSTRAINT valid_outcome CHECK (outcome IN ('complied', 'escalated', 'partial'))
);

-- Pattern detection and same-day checks scan this index.
CREATE INDEX IF NOT EXISTS idx_level_a_pair_time
    ON level_a_interventions(student_id, domain_id, event_timestamp DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS level_a_interventions;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: LEVEL B RECORDS (external process, read and flagged only)
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS level_b_records (
    id VARCHAR(64) PRIMARY KEY,
    student_id VARCHAR(64) NOT NULL,
    domain_id VARCHAR(64) NOT NULL,
    status VARCHAR(32) NOT NULL,
    escalated_to_c BOOLEAN NOT NULL DEFAULT FALSE,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_level_b_pair_status ON level_b_records(student_id, domain_id, status);
`

const migration003Down = `
DROP TABLE IF EXISTS level_b_records;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: LEVEL C CASES
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS level_c_cases (
    id UUID PRIMARY KEY,
    student_id VARCHAR(64) NOT NULL,
    case_manager_id VARCHAR(64) NOT NULL DEFAULT '',
    case_manager_name VARCHAR(128) NOT NULL DEFAULT '',
    trigger_type VARCHAR(32) NOT NULL,
    case_type VARCHAR(16) NOT NULL,
    domain_focus_id VARCHAR(64) NOT NULL DEFAULT '',
    escalated_from_level_b_ids TEXT[] NOT NULL DEFAULT '{}',
    sis_demerit_points_at_creation INTEGER,
    monitoring_duration_days INTEGER NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'active',
    reentry_date DATE,
    version INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE NOT NULL,
    updated_at TIMESTAMP WITH TIME ZONE NOT NULL,

    -- Phase sections are written whole by the application.
    context_packet JSONB NOT NULL DEFAULT '{}'::jsonb,
    admin_response JSONB NOT NULL DEFAULT '{}'::jsonb,
    reentry_plan JSONB NOT NULL DEFAULT '{}'::jsonb,
    monitoring JSONB NOT NULL DEFAULT '{}'::jsonb,
    closure JSONB NOT NULL DEFAULT '{}'::jsonb,

    CONSTRAINT valid_case_status CHECK (status IN (
        'active', 'admin_response', 'pending_reentry', 'monitoring', 'closed'
    )),
    CONSTRAINT valid_case_type CHECK (case_type IN ('lite', 'standard', 'intensive')),
    CONSTRAINT valid_version CHECK (version >= 1)
);

CREATE INDEX IF NOT EXISTS idx_level_c_student ON level_c_cases(student_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_level_c_manager_open ON level_c_cases(case_manager_id) WHERE status <> 'closed';
CREATE INDEX IF NOT EXISTS idx_level_c_pending_reentry ON level_c_cases(reentry_date) WHERE status = 'pending_reentry';
CREATE INDEX IF NOT EXISTS idx_level_c_monitoring ON level_c_cases(status) WHERE status = 'monitoring';
`

const migration004Down = `
DROP TABLE IF EXISTS level_c_cases;
`
