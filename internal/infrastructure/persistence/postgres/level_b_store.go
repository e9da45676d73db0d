package postgres

import (
	"context"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// LevelBStore implements levelb.Store over the level_b_records table,
// which the external Level B process owns.
type LevelBStore struct {
	conn *Connection
}

// NewLevelBStore creates a new LevelBStore.
func NewLevelBStore(conn *Connection) *LevelBStore {
	return &LevelBStore{conn: conn}
}

// CountCompleted counts completed attempts for the pair.
func (s *LevelBStore) CountCompleted(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID) (int, error) {
	completed := levelb.CompletedStatuses()
	statuses := make([]string, len(completed))
	for i, st := range completed {
		statuses[i] = string(st)
	}

	query := `
		SELECT count(*) FROM level_b_records
		WHERE student_id = $1 AND domain_id = $2 AND status = ANY($3)`

	var n int
	if err := s.conn.querier(ctx).QueryRow(ctx, query, string(studentID), string(domainID), statuses).Scan(&n); err != nil {
		return 0, upstream("levelb", "CountCompleted", err)
	}
	return n, nil
}

// MarkEscalated sets escalated_to_c on every id. All ids must exist;
// otherwise nothing is changed.
func (s *LevelBStore) MarkEscalated(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.conn.WithinTx(ctx, func(ctx context.Context) error {
		tag, err := s.conn.querier(ctx).Exec(ctx,
			`UPDATE level_b_records SET escalated_to_c = TRUE, updated_at = NOW() WHERE id = ANY($1)`,
			dedupe(ids),
		)
		if err != nil {
			return upstream("levelb", "MarkEscalated", err)
		}
		if int(tag.RowsAffected()) != len(dedupe(ids)) {
			return shared.NotFound("levelb", "MarkEscalated", "level B record")
		}
		return nil
	})
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
