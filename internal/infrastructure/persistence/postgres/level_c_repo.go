package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL C CASE REPOSITORY IMPLEMENTATION
// ══════════════════════════════════════════════════════════════════════════════

// CaseRepository implements levelc.Repository for PostgreSQL.
// Phase sections are stored as JSONB and written whole on every update.
type CaseRepository struct {
	conn *Connection
}

// NewCaseRepository creates a new CaseRepository.
func NewCaseRepository(conn *Connection) *CaseRepository {
	return &CaseRepository{conn: conn}
}

const caseColumns = `
	id, student_id, case_manager_id, case_manager_name, trigger_type, case_type,
	domain_focus_id, escalated_from_level_b_ids, sis_demerit_points_at_creation,
	monitoring_duration_days, status, version, created_at, updated_at,
	context_packet, admin_response, reentry_plan, monitoring, closure`

// caseSections holds the JSONB-encoded phase sections of a case.
type caseSections struct {
	contextPacket []byte
	adminResponse []byte
	reentryPlan   []byte
	monitoring    []byte
	closure       []byte
}

func encodeSections(c *levelc.Case) (caseSections, error) {
	var (
		s   caseSections
		err error
	)
	if s.contextPacket, err = json.Marshal(c.ContextPacket); err != nil {
		return s, fmt.Errorf("failed to marshal context packet: %w", err)
	}
	if s.adminResponse, err = json.Marshal(c.AdminResponse); err != nil {
		return s, fmt.Errorf("failed to marshal admin response: %w", err)
	}
	if s.reentryPlan, err = json.Marshal(c.ReentryPlan); err != nil {
		return s, fmt.Errorf("failed to marshal re-entry plan: %w", err)
	}
	if s.monitoring, err = json.Marshal(c.Monitoring); err != nil {
		return s, fmt.Errorf("failed to marshal monitoring: %w", err)
	}
	if s.closure, err = json.Marshal(c.Closure); err != nil {
		return s, fmt.Errorf("failed to marshal closure: %w", err)
	}
	return s, nil
}

// reentryDateParam mirrors ReentryPlan.ReentryDate into the indexed column.
func reentryDateParam(c *levelc.Case) *time.Time {
	if c.ReentryPlan.ReentryDate == nil {
		return nil
	}
	t := c.ReentryPlan.ReentryDate.In(time.UTC)
	return &t
}

// Create stores a new case with version 1.
func (r *CaseRepository) Create(ctx context.Context, c *levelc.Case) error {
	sections, err := encodeSections(c)
	if err != nil {
		return err
	}

	query := `INSERT INTO level_c_cases (` + caseColumns + `, reentry_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err = r.conn.querier(ctx).Exec(ctx, query,
		c.ID,
		string(c.StudentID),
		string(c.CaseManagerID),
		c.CaseManagerName,
		string(c.TriggerType),
		string(c.CaseType),
		string(c.DomainFocusID),
		nonNilStrings(c.EscalatedFromLevelBIDs),
		c.SISDemeritPointsAtCreate,
		c.MonitoringDurationDays,
		string(c.Status),
		c.CreatedAt,
		c.UpdatedAt,
		sections.contextPacket,
		sections.adminResponse,
		sections.reentryPlan,
		sections.monitoring,
		sections.closure,
		reentryDateParam(c),
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return shared.NewDomainError("levelc", "Create", shared.ErrAlreadyExists, "case "+c.ID+" already exists")
		}
		return upstream("levelc", "Create", err)
	}

	c.Version = 1
	return nil
}

// GetByID returns a case by ID.
func (r *CaseRepository) GetByID(ctx context.Context, id string) (*levelc.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM level_c_cases WHERE id = $1`

	c, err := scanCase(r.conn.querier(ctx).QueryRow(ctx, query, id))
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCaseNotFound
		}
		return nil, upstream("levelc", "GetByID", err)
	}
	return c, nil
}

// Update writes c only when the stored version equals c.Version, then bumps c.Version.
func (r *CaseRepository) Update(ctx context.Context, c *levelc.Case) error {
	sections, err := encodeSections(c)
	if err != nil {
		return err
	}

	query := `
		UPDATE level_c_cases SET
			case_manager_id = $1,
			case_manager_name = $2,
			status = $3,
			updated_at = $4,
			context_packet = $5,
			admin_response = $6,
			reentry_plan = $7,
			monitoring = $8,
			closure = $9,
			reentry_date = $10,
			version = version + 1
		WHERE id = $11 AND version = $12
	`

	q := r.conn.querier(ctx)
	tag, err := q.Exec(ctx, query,
		string(c.CaseManagerID),
		c.CaseManagerName,
		string(c.Status),
		c.UpdatedAt,
		sections.contextPacket,
		sections.adminResponse,
		sections.reentryPlan,
		sections.monitoring,
		sections.closure,
		reentryDateParam(c),
		c.ID,
		c.Version,
	)
	if err != nil {
		return upstream("levelc", "Update", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM level_c_cases WHERE id = $1)`, c.ID).Scan(&exists); err != nil {
			return upstream("levelc", "Update", err)
		}
		if !exists {
			return shared.ErrCaseNotFound
		}
		return shared.ErrCaseVersionConflict
	}

	c.Version++
	return nil
}

// List returns one page of matching cases, newest first, and the total count.
func (r *CaseRepository) List(ctx context.Context, filter levelc.ListFilter) ([]*levelc.Case, int, error) {
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
	if filter.CaseManagerID != "" {
		add("case_manager_id = $%d", string(filter.CaseManagerID))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		add("status = ANY($%d)", statuses)
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	q := r.conn.querier(ctx)

	var total int
	if err := q.QueryRow(ctx, `SELECT count(*) FROM level_c_cases`+cond, args...).Scan(&total); err != nil {
		return nil, 0, upstream("levelc", "List", err)
	}

	page := filter.Page.Normalize()
	query := `SELECT ` + caseColumns + ` FROM level_c_cases` + cond +
		fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT %d OFFSET %d", page.Limit, page.Offset)

	cases, err := r.queryCases(ctx, "List", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

// Caseload returns every non-closed case of the manager.
func (r *CaseRepository) Caseload(ctx context.Context, managerID shared.StaffID) ([]*levelc.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM level_c_cases
		WHERE case_manager_id = $1 AND status <> 'closed'
		ORDER BY created_at DESC, id`
	return r.queryCases(ctx, "Caseload", query, string(managerID))
}

// PendingReentries returns pending_reentry cases whose reentry date has arrived.
func (r *CaseRepository) PendingReentries(ctx context.Context, today shared.Date) ([]*levelc.Case, error) {
	query := `SELECT ` + caseColumns + ` FROM level_c_cases
		WHERE status = 'pending_reentry' AND reentry_date IS NOT NULL AND reentry_date <= $1
		ORDER BY reentry_date, created_at DESC, id`
	return r.queryCases(ctx, "PendingReentries", query, today.In(time.UTC))
}

// DueReviews returns monitoring cases with a scheduled review on date.
func (r *CaseRepository) DueReviews(ctx context.Context, date shared.Date) ([]*levelc.Case, error) {
	probe, err := json.Marshal([]map[string]string{{"date": date.String()}})
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + caseColumns + ` FROM level_c_cases
		WHERE status = 'monitoring' AND monitoring->'monitoring_schedule' @> $1::jsonb
		ORDER BY created_at DESC, id`
	return r.queryCases(ctx, "DueReviews", query, string(probe))
}

func (r *CaseRepository) queryCases(ctx context.Context, op, query string, args ...interface{}) ([]*levelc.Case, error) {
	rows, err := r.conn.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, upstream("levelc", op, err)
	}
	defer rows.Close()

	out := make([]*levelc.Case, 0)
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, upstream("levelc", op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, upstream("levelc", op, err)
	}
	return out, nil
}

func scanCase(row pgx.Row) (*levelc.Case, error) {
	var (
		c                                     levelc.Case
		studentID, managerID, focusID         string
		triggerType, caseType, status         string
		contextPacket, adminResponse, reentry []byte
		monitoring, closure                   []byte
	)
	err := row.Scan(
		&c.ID,
		&studentID,
		&managerID,
		&c.CaseManagerName,
		&triggerType,
		&caseType,
		&focusID,
		&c.EscalatedFromLevelBIDs,
		&c.SISDemeritPointsAtCreate,
		&c.MonitoringDurationDays,
		&status,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
		&contextPacket,
		&adminResponse,
		&reentry,
		&monitoring,
		&closure,
	)
	if err != nil {
		return nil, err
	}

	c.StudentID = shared.StudentID(studentID)
	c.CaseManagerID = shared.StaffID(managerID)
	c.DomainFocusID = shared.DomainID(focusID)
	c.TriggerType = levelc.TriggerType(triggerType)
	c.CaseType = levelc.CaseType(caseType)
	c.Status = levelc.Status(status)
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()

	sections := []struct {
		raw  []byte
		into interface{}
	}{
		{contextPacket, &c.ContextPacket},
		{adminResponse, &c.AdminResponse},
		{reentry, &c.ReentryPlan},
		{monitoring, &c.Monitoring},
		{closure, &c.Closure},
	}
	for _, s := range sections {
		if err := json.Unmarshal(s.raw, s.into); err != nil {
			return nil, fmt.Errorf("failed to unmarshal case %s: %w", c.ID, err)
		}
	}
	if c.ContextPacket.EnvironmentalFactors == nil {
		c.ContextPacket.EnvironmentalFactors = levelc.EnvironmentalFactors{}
	}
	return &c, nil
}

func nonNilStrings(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
