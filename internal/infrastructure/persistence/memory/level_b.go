package memory

import (
	"context"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// LevelBStore implements levelb.Store over seeded records.
type LevelBStore struct {
	s *Store
}

// Put inserts or replaces a Level B record.
func (l *LevelBStore) Put(ctx context.Context, rec LevelBRecord) {
	s := l.s
	defer s.lock(ctx)()
	s.state.levelB[rec.ID] = rec
}

// Get returns a record by ID.
func (l *LevelBStore) Get(ctx context.Context, id string) (LevelBRecord, bool) {
	s := l.s
	defer s.lock(ctx)()
	rec, ok := s.state.levelB[id]
	return rec, ok
}

// CountCompleted counts completed attempts for the pair.
func (l *LevelBStore) CountCompleted(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID) (int, error) {
	s := l.s
	defer s.lock(ctx)()

	n := 0
	for _, rec := range s.state.levelB {
		if rec.StudentID == studentID && rec.DomainID == domainID && rec.Status.IsCompleted() {
			n++
		}
	}
	return n, nil
}

// MarkEscalated sets EscalatedToC on every known id. All ids must exist.
func (l *LevelBStore) MarkEscalated(ctx context.Context, ids []string) error {
	s := l.s
	defer s.lock(ctx)()

	for _, id := range ids {
		if _, ok := s.state.levelB[id]; !ok {
			return shared.NotFound("levelb", "MarkEscalated", "level B record "+id)
		}
	}
	for _, id := range ids {
		rec := s.state.levelB[id]
		rec.EscalatedToC = true
		s.state.levelB[id] = rec
	}
	return nil
}
