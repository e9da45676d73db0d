// Package memory provides an in-memory implementation of the Behavior Hub
// persistence contracts, used for tests and local development.
package memory

import (
	"context"
	"sync"

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
	_ shared.Transactor = (*Store)(nil)
)

// LevelBRecord is the slice of an external Level B record the core reads.
type LevelBRecord struct {
	ID           string
	StudentID    shared.StudentID
	DomainID     shared.DomainID
	Status       levelb.Status
	EscalatedToC bool
}

type memoryState struct {
	interventions map[string]levela.Intervention
	cases         map[string]levelc.Case
	levelB        map[string]LevelBRecord
	domains       map[shared.DomainID]catalog.BehavioralDomain
}

func newMemoryState() memoryState {
	return memoryState{
		interventions: make(map[string]levela.Intervention),
		cases:         make(map[string]levelc.Case),
		levelB:        make(map[string]LevelBRecord),
		domains:       make(map[shared.DomainID]catalog.BehavioralDomain),
	}
}

func (s memoryState) clone() memoryState {
	out := newMemoryState()
	for k, v := range s.interventions {
		out.interventions[k] = v
	}
	for k, v := range s.cases {
		out.cases[k] = cloneCase(v)
	}
	for k, v := range s.levelB {
		out.levelB[k] = v
	}
	for k, v := range s.domains {
		out.domains[k] = v
	}
	return out
}

// Store is a mutex-guarded, transactional in-memory store.
type Store struct {
	mu    sync.Mutex
	state memoryState
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{state: newMemoryState()}
}

// LevelA returns the Level A intervention repository.
func (s *Store) LevelA() *LevelARepository { return &LevelARepository{s: s} }

// Cases returns the Level C case repository.
func (s *Store) Cases() *CaseRepository { return &CaseRepository{s: s} }

// LevelB returns the Level B store.
func (s *Store) LevelB() *LevelBStore { return &LevelBStore{s: s} }

// Catalog returns the behavioral domain catalog.
func (s *Store) Catalog() *CatalogRepository { return &CatalogRepository{s: s} }

type txKey struct{}

// WithinTx runs fn with exclusive access. State is restored when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock acquires the store mutex unless ctx already holds it through WithinTx.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// ══════════════════════════════════════════════════════════════════════════════
// CLONING
// ══════════════════════════════════════════════════════════════════════════════

func cloneCase(c levelc.Case) levelc.Case {
	c.EscalatedFromLevelBIDs = append([]string(nil), c.EscalatedFromLevelBIDs...)
	c.SISDemeritPointsAtCreate = cloneInt(c.SISDemeritPointsAtCreate)

	c.ContextPacket.EnvironmentalFactors = append(levelc.EnvironmentalFactors(nil), c.ContextPacket.EnvironmentalFactors...)

	c.AdminResponse.ConsequenceStartDate = cloneDate(c.AdminResponse.ConsequenceStartDate)
	c.AdminResponse.ConsequenceEndDate = cloneDate(c.AdminResponse.ConsequenceEndDate)

	c.ReentryPlan.SupportPlanStrategies = append([]string(nil), c.ReentryPlan.SupportPlanStrategies...)
	c.ReentryPlan.RepairActions = append([]levelc.RepairAction(nil), c.ReentryPlan.RepairActions...)
	c.ReentryPlan.ReentryDate = cloneDate(c.ReentryPlan.ReentryDate)
	c.ReentryPlan.ReentryRestrictions = append([]string(nil), c.ReentryPlan.ReentryRestrictions...)
	c.ReentryPlan.ReentryChecklist = append([]levelc.ReadinessChecklistItem(nil), c.ReentryPlan.ReentryChecklist...)

	c.Monitoring.Schedule = append([]levelc.ScheduleEntry(nil), c.Monitoring.Schedule...)
	c.Monitoring.ReviewDates = append([]shared.Date(nil), c.Monitoring.ReviewDates...)
	c.Monitoring.DailyCheckIns = append([]levelc.DailyCheckIn(nil), c.Monitoring.DailyCheckIns...)

	c.Closure.ClosureDate = cloneDate(c.Closure.ClosureDate)
	return c
}

func cloneDate(d *shared.Date) *shared.Date {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func paginate[T any](items []T, page shared.Page) []T {
	page = page.Normalize()
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}
