package query

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/escalation"
	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/memory"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

var school = time.FixedZone("EST", -5*3600)

// now is 2025-01-10 15:00 school time.
var now = time.Date(2025, 1, 10, 15, 0, 0, 0, school)

type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.Event
}

func (p *recordingPublisher) Publish(e shared.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Events() []shared.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]shared.Event(nil), p.events...)
}

type stubLevelB struct {
	count int
	err   error
	calls int
}

func (s *stubLevelB) CountCompleted(context.Context, shared.StudentID, shared.DomainID) (int, error) {
	s.calls++
	return s.count, s.err
}

func (s *stubLevelB) MarkEscalated(context.Context, []string) error { return s.err }

type fixture struct {
	store     *memory.Store
	clock     *timeutil.FixedClock
	levelB    *stubLevelB
	publisher *recordingPublisher
	detector  *PatternDetector
	decide    *DecideEscalationHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Catalog().Upsert(context.Background(), []catalog.BehavioralDomain{
		{ID: "respect", Key: "respect", DisplayName: "Respect", IsActive: true},
		{ID: "safety", Key: "safety", DisplayName: "Safety", IsActive: true},
	}))

	clock := timeutil.NewFixedClock(now)
	lb := &stubLevelB{}
	pub := &recordingPublisher{}
	detector := NewPatternDetector(store.LevelA(), clock, escalation.DefaultPolicy())

	return &fixture{
		store:     store,
		clock:     clock,
		levelB:    lb,
		publisher: pub,
		detector:  detector,
		decide:    NewDecideEscalationHandler(store.Catalog(), detector, NewLevelBCounter(lb), pub, logger.Discard()),
	}
}

var seq int

func (f *fixture) addLevelA(t *testing.T, student shared.StudentID, domain shared.DomainID, ts time.Time) {
	t.Helper()
	seq++
	in, err := levela.NewIntervention(levela.NewInterventionParams{
		ID:               fmt.Sprintf("la-%d", seq),
		StudentID:        student,
		DomainID:         domain,
		Staff:            shared.StaffRef{ID: "t-1", Name: "Teacher"},
		InterventionType: levela.InterventionRedirect,
		Outcome:          levela.OutcomeComplied,
		EventTimestamp:   ts,
	})
	require.NoError(t, err)
	require.NoError(t, f.store.LevelA().Create(context.Background(), in))
}
