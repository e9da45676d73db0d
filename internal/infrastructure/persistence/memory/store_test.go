package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

var t0 = time.Date(2025, 1, 10, 15, 0, 0, 0, time.UTC)

func newCase(t *testing.T, id string, manager shared.StaffID, created time.Time) *levelc.Case {
	t.Helper()
	c, err := levelc.NewCase(levelc.NewCaseParams{
		ID:          id,
		StudentID:   "stu-1",
		CaseManager: shared.StaffRef{ID: manager, Name: "Manager"},
		TriggerType: levelc.TriggerAdminReferral,
		Now:         created,
	})
	require.NoError(t, err)
	return c
}

func TestCaseRepository_CreateAndGetReturnCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cases()

	c := newCase(t, "case-1", "mgr-1", t0)
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, 1, c.Version)

	got, err := repo.GetByID(ctx, "case-1")
	require.NoError(t, err)
	got.ContextPacket.EnvironmentalFactors = append(got.ContextPacket.EnvironmentalFactors, "noise")

	again, err := repo.GetByID(ctx, "case-1")
	require.NoError(t, err)
	assert.Empty(t, again.ContextPacket.EnvironmentalFactors)

	_, err = repo.GetByID(ctx, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestCaseRepository_UpdateRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cases()
	require.NoError(t, repo.Create(ctx, newCase(t, "case-1", "mgr-1", t0)))

	first, err := repo.GetByID(ctx, "case-1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "case-1")
	require.NoError(t, err)

	require.NoError(t, repo.Update(ctx, first))
	assert.Equal(t, 2, first.Version)

	err = repo.Update(ctx, second)
	assert.ErrorIs(t, err, shared.ErrCaseVersionConflict)
	assert.True(t, shared.IsConflict(err))

	missing := newCase(t, "case-x", "mgr-1", t0)
	assert.ErrorIs(t, repo.Update(ctx, missing), shared.ErrCaseNotFound)
}

func TestCaseRepository_ListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	repo := store.Cases()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, newCase(t, id, "mgr-1", t0.Add(time.Duration(i)*time.Hour))))
	}
	other := newCase(t, "d", "mgr-2", t0)
	require.NoError(t, repo.Create(ctx, other))

	cases, total, err := repo.List(ctx, levelc.ListFilter{CaseManagerID: "mgr-1", Page: shared.Page{Limit: 2}})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, cases, 2)
	assert.Equal(t, "c", cases[0].ID)
	assert.Equal(t, "b", cases[1].ID)

	cases, total, err = repo.List(ctx, levelc.ListFilter{Statuses: []levelc.Status{levelc.StatusClosed}})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, cases)
}

func TestCaseRepository_CaseloadSkipsClosed(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cases()

	open := newCase(t, "open", "mgr-1", t0)
	closed := newCase(t, "closed", "mgr-1", t0)
	require.NoError(t, closed.Close(levelc.CloseInput{OutcomeStatus: levelc.OutcomeClosedSuccess}, shared.DateOf(t0), t0))
	require.NoError(t, repo.Create(ctx, open))
	require.NoError(t, repo.Create(ctx, closed))

	cases, err := repo.Caseload(ctx, "mgr-1")
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "open", cases[0].ID)
}

func TestCaseRepository_PendingReentriesAndDueReviews(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().Cases()
	today := shared.NewDate(2025, 1, 10)

	plan := func(c *levelc.Case, reentry shared.Date) {
		require.NoError(t, c.RecordAdminResponse(levelc.AdminResponseInput{Type: levelc.AdminResponseConference}, levelc.PermissivePolicy(), t0))
		require.NoError(t, c.CreateReentryPlan(levelc.ReentryPlanInput{SupportPlanGoal: "goal", ReentryDate: &reentry}, levelc.PermissivePolicy(), t0))
	}

	due := newCase(t, "due", "mgr-1", t0)
	plan(due, today.AddDays(-1))
	future := newCase(t, "future", "mgr-1", t0)
	plan(future, today.AddDays(2))
	monitoring := newCase(t, "monitoring", "mgr-1", t0)
	plan(monitoring, today)
	require.NoError(t, monitoring.StartMonitoring(today, 3, levelc.PermissivePolicy(), t0))

	for _, c := range []*levelc.Case{due, future, monitoring} {
		require.NoError(t, repo.Create(ctx, c))
	}

	pending, err := repo.PendingReentries(ctx, today)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "due", pending[0].ID)

	reviews, err := repo.DueReviews(ctx, today.AddDays(3))
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, "monitoring", reviews[0].ID)

	reviews, err = repo.DueReviews(ctx, today.AddDays(1))
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestLevelARepository_CountUsesHalfOpenRange(t *testing.T) {
	ctx := context.Background()
	repo := NewStore().LevelA()

	for i, ts := range []time.Time{t0.Add(-48 * time.Hour), t0.Add(-time.Hour), t0} {
		in, err := levela.NewIntervention(levela.NewInterventionParams{
			ID:               string(rune('a' + i)),
			StudentID:        "stu-1",
			DomainID:         "respect",
			Staff:            shared.StaffRef{ID: "t-1"},
			InterventionType: levela.InterventionPrompt,
			Outcome:          levela.OutcomeComplied,
			EventTimestamp:   ts,
		})
		require.NoError(t, err)
		require.NoError(t, repo.Create(ctx, in))
	}

	n, err := repo.Count(ctx, "stu-1", "respect", levela.TimeRange{From: t0.Add(-time.Hour), To: t0})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = repo.Count(ctx, "stu-1", "respect", levela.TimeRange{From: t0.Add(-48 * time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	items, err := repo.List(ctx, levela.ListFilter{StudentID: "stu-1", Since: t0.Add(-2 * time.Hour)})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].ID)

	require.NoError(t, repo.UpdateOutcome(ctx, "a", levela.OutcomeEscalated, true))
	got, err := repo.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, levela.OutcomeEscalated, got.Outcome)
	assert.True(t, got.EscalatedToB)

	assert.ErrorIs(t, repo.UpdateOutcome(ctx, "zzz", levela.OutcomePartial, false), shared.ErrInterventionNotFound)
}

func TestStore_WithinTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	lb := store.LevelB()
	lb.Put(ctx, LevelBRecord{ID: "b-1", StudentID: "stu-1", DomainID: "respect", Status: levelb.StatusCompletedSuccess})

	boom := errors.New("boom")
	err := store.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Cases().Create(ctx, newCase(t, "case-1", "mgr-1", t0)))
		require.NoError(t, lb.MarkEscalated(ctx, []string{"b-1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = store.Cases().GetByID(ctx, "case-1")
	assert.True(t, shared.IsNotFound(err))
	rec, ok := lb.Get(ctx, "b-1")
	require.True(t, ok)
	assert.False(t, rec.EscalatedToC)
}

func TestLevelBStore_CountAndMarkEscalated(t *testing.T) {
	ctx := context.Background()
	lb := NewStore().LevelB()
	lb.Put(ctx, LevelBRecord{ID: "b-1", StudentID: "stu-1", DomainID: "respect", Status: levelb.StatusCompletedSuccess})
	lb.Put(ctx, LevelBRecord{ID: "b-2", StudentID: "stu-1", DomainID: "respect", Status: levelb.StatusCompletedEscalated})
	lb.Put(ctx, LevelBRecord{ID: "b-3", StudentID: "stu-1", DomainID: "respect", Status: levelb.StatusInProgress})
	lb.Put(ctx, LevelBRecord{ID: "b-4", StudentID: "stu-1", DomainID: "safety", Status: levelb.StatusCompletedSuccess})

	n, err := lb.CountCompleted(ctx, "stu-1", "respect")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	err = lb.MarkEscalated(ctx, []string{"b-1", "missing"})
	assert.True(t, shared.IsNotFound(err))
	rec, _ := lb.Get(ctx, "b-1")
	assert.False(t, rec.EscalatedToC)
}

func TestCatalogRepository_ListActiveSorted(t *testing.T) {
	ctx := context.Background()
	cat := NewStore().Catalog()
	require.NoError(t, cat.Upsert(ctx, []catalog.BehavioralDomain{
		{ID: "safety", Key: "safety", DisplayName: "Safety", IsActive: true},
		{ID: "respect", Key: "respect", DisplayName: "Respect", IsActive: true},
		{ID: "legacy", Key: "legacy", DisplayName: "Legacy", IsActive: false},
	}))

	domains, err := cat.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, domains, 2)
	assert.Equal(t, shared.DomainID("respect"), domains[0].ID)

	_, err = cat.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, shared.ErrDomainNotFound)

	assert.Error(t, cat.Upsert(ctx, []catalog.BehavioralDomain{{ID: "x"}}))
}
