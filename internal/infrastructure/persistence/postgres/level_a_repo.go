package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL A REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// LevelARepository implements levela.Repository for PostgreSQL.
type LevelARepository struct {
	conn *Connection
}

// NewLevelARepository creates a new LevelARepository.
func NewLevelARepository(conn *Connection) *LevelARepository {
	return &LevelARepository{conn: conn}
}

const levelAColumns = `
	id, student_id, staff_id, staff_name, domain_id, intervention_type,
	behavior_description, location, outcome, is_repeated_same_day,
	affected_others, is_pattern_student, escalated_to_b, event_timestamp`

// Create stores a new intervention.
func (r *LevelARepository) Create(ctx context.Context, i *levela.Intervention) error {
	query := `INSERT INTO level_a_interventions (` + levelAColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.conn.querier(ctx).Exec(ctx, query,
		i.ID,
		string(i.StudentID),
		string(i.StaffID),
		i.StaffName,
		string(i.DomainID),
		string(i.InterventionType),
		i.BehaviorDescription,
		i.Location,
		string(i.Outcome),
		i.IsRepeatedSameDay,
		i.AffectedOthers,
		i.IsPatternStudent,
		i.EscalatedToB,
		i.EventTimestamp,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("levela", "Create", shared.ErrAlreadyExists, "intervention "+i.ID+" already exists")
		}
		return upstream("levela", "Create", err)
	}
	return nil
}

// GetByID returns an intervention by ID.
func (r *LevelARepository) GetByID(ctx context.Context, id string) (*levela.Intervention, error) {
	query := `SELECT ` + levelAColumns + ` FROM level_a_interventions WHERE id = $1`

	i, err := scanIntervention(r.conn.querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrInterventionNotFound
		}
		return nil, upstream("levela", "GetByID", err)
	}
	return i, nil
}

// UpdateOutcome changes only the outcome and the escalation flag.
func (r *LevelARepository) UpdateOutcome(ctx context.Context, id string, outcome levela.Outcome, escalatedToB bool) error {
	query := `UPDATE level_a_interventions SET outcome = $1, escalated_to_b = $2 WHERE id = $3`

	tag, err := r.conn.querier(ctx).Exec(ctx, query, string(outcome), escalatedToB, id)
	if err != nil {
		return upstream("levela", "UpdateOutcome", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrInterventionNotFound
	}
	return nil
}

// Count counts the pair's interventions with event_timestamp in [From, To).
func (r *LevelARepository) Count(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID, tr levela.TimeRange) (int, error) {
	query := `
		SELECT count(*) FROM level_a_interventions
		WHERE student_id = $1 AND domain_id = $2 AND event_timestamp >= $3`
	args := []interface{}{string(studentID), string(domainID), tr.From}
	if !tr.To.IsZero() {
		query += ` AND event_timestamp < $4`
		args = append(args, tr.To)
	}

	var n int
	if err := r.conn.querier(ctx).QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, upstream("levela", "Count", err)
	}
	return n, nil
}

// List returns matching interventions, newest first.
func (r *LevelARepository) List(ctx context.Context, filter levela.ListFilter) ([]*levela.Intervention, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.StudentID != "" {
		add("student_id = $%d", string(filter.StudentID))
	}
	if filter.DomainID != "" {
		add("domain_id = $%d", string(filter.DomainID))
	}
	if !filter.Since.IsZero() {
		add("event_timestamp >= $%d", filter.Since)
	}

	query := `SELECT ` + levelAColumns + ` FROM level_a_interventions`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	page := filter.Page.Normalize()
	query += fmt.Sprintf(" ORDER BY event_timestamp DESC, id LIMIT %d OFFSET %d", page.Limit, page.Offset)

	rows, err := r.conn.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, upstream("levela", "List", err)
	}
	defer rows.Close()

	out := make([]*levela.Intervention, 0)
	for rows.Next() {
		i, err := scanIntervention(rows)
		if err != nil {
			return nil, upstream("levela", "List", err)
		}
		out = append(out, i)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("levela", "List", err)
	}
	return out, nil
}

func scanIntervention(row pgx.Row) (*levela.Intervention, error) {
	var (
		i                                          levela.Intervention
		studentID, staffID, domainID, kind, result string
	)
	err := row.Scan(
		&i.ID,
		&studentID,
		&staffID,
		&i.StaffName,
		&domainID,
		&kind,
		&i.BehaviorDescription,
		&i.Location,
		&result,
		&i.IsRepeatedSameDay,
		&i.AffectedOthers,
		&i.IsPatternStudent,
		&i.EscalatedToB,
		&i.EventTimestamp,
	)
	if err != nil {
		return nil, err
	}
	i.StudentID = shared.StudentID(studentID)
	i.StaffID = shared.StaffID(staffID)
	i.DomainID = shared.DomainID(domainID)
	i.InterventionType = levela.InterventionType(kind)
	i.Outcome = levela.Outcome(result)
	i.EventTimestamp = i.EventTimestamp.UTC()
	return &i, nil
}
