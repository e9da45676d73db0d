package command

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/escalation"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/memory"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

var testNow = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

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

func (p *recordingPublisher) Types() []shared.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]shared.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

type fixture struct {
	store     *memory.Store
	clock     *timeutil.FixedClock
	publisher *recordingPublisher
	deps      Deps
	detector  *query.PatternDetector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	require.NoError(t, store.Catalog().Upsert(context.Background(), []catalog.BehavioralDomain{
		{ID: "respect", Key: "respect", DisplayName: "Respect", IsActive: true},
	}))

	clock := timeutil.NewFixedClock(testNow)
	pub := &recordingPublisher{}
	var n atomic.Int64

	return &fixture{
		store:     store,
		clock:     clock,
		publisher: pub,
		deps: Deps{
			Clock:     clock,
			Publisher: pub,
			Logger:    logger.Discard(),
			NewID:     func() string { return fmt.Sprintf("id-%d", n.Add(1)) },
		},
		detector: query.NewPatternDetector(store.LevelA(), clock, escalation.DefaultPolicy()),
	}
}

func (f *fixture) lifecycle(strict bool) *CaseLifecycleHandler {
	return NewCaseLifecycleHandler(f.store.Cases(), StaticPolicy(strict), f.deps, DefaultCaseLifecycleConfig())
}

func (f *fixture) createCase(t *testing.T, cmd CreateCaseCommand) string {
	t.Helper()
	h := NewCreateCaseHandler(f.store.Cases(), f.store.LevelB(), f.store.Catalog(), f.store, f.deps)
	c, err := h.Handle(context.Background(), cmd)
	require.NoError(t, err)
	return c.ID
}

func strPtr(s string) *string { return &s }
