package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/application/command"
	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/escalation"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/metrics"
	"github.com/behavior-hub/behavior-hub/internal/infrastructure/persistence/memory"
	"github.com/behavior-hub/behavior-hub/internal/interface/http/handlers"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

// Monday.
var testNow = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *ResponseMeta   `json:"meta"`
}

type testServer struct {
	srv     *Server
	store   *memory.Store
	metrics *metrics.Metrics
}

func newTestServer(t *testing.T, levelB levelb.Store) *testServer {
	t.Helper()

	store := memory.NewStore()
	require.NoError(t, store.Catalog().Upsert(context.Background(), []catalog.BehavioralDomain{
		{ID: "respect", Key: "respect", DisplayName: "Respect", IsActive: true},
		{ID: "safety", Key: "safety", DisplayName: "Safety", IsActive: true},
		{ID: "retired", Key: "retired", DisplayName: "Retired", IsActive: false},
	}))
	if levelB == nil {
		levelB = store.LevelB()
	}

	clock := timeutil.NewFixedClock(testNow)
	m := metrics.New()
	var n atomic.Int64
	deps := command.Deps{
		Clock:     clock,
		Publisher: shared.NopPublisher{},
		Logger:    logger.Discard(),
		NewID:     func() string { return fmt.Sprintf("id-%d", n.Add(1)) },
	}

	policy := escalation.DefaultPolicy()
	detector := query.NewPatternDetector(store.LevelA(), clock, policy)
	counter := query.NewLevelBCounter(levelB)

	srv := NewServer(DefaultConfig(), Dependencies{
		Decisions:  query.NewDecideEscalationHandler(store.Catalog(), detector, counter, nil, logger.Discard()),
		Domains:    query.NewDomainQueries(store.Catalog()),
		LevelA:     query.NewLevelAQueries(store.LevelA()),
		Cases:      query.NewCaseQueries(store.Cases(), clock),
		LogLevelA:  command.NewLogLevelAHandler(store.LevelA(), store.Catalog(), detector, deps),
		SetOutcome: command.NewSetLevelAOutcomeHandler(store.LevelA(), deps),
		CreateCase: command.NewCreateCaseHandler(store.Cases(), levelB, store.Catalog(), store, deps),
		Lifecycle:  command.NewCaseLifecycleHandler(store.Cases(), command.StaticPolicy(false), deps, command.DefaultCaseLifecycleConfig()),
		Logger:     logger.Discard(),
		Metrics:    m,
	})
	return &testServer{srv: srv, store: store, metrics: m}
}

func (ts *testServer) do(t *testing.T, method, path string, body any, headers ...string) (int, envelope) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

var staffHeaders = []string{headerStaffID, "staff-1", headerStaffName, "J. Doe"}

// ══════════════════════════════════════════════════════════════════════════════
// Decision tree
// ══════════════════════════════════════════════════════════════════════════════

func TestDecide(t *testing.T) {
	ts := newTestServer(t, nil)

	t.Run("safety incident short-circuits", func(t *testing.T) {
		code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
			"student_id": "stu-1", "domain_id": "unknown-domain", "is_safety_incident": true,
		})
		require.Equal(t, http.StatusOK, code)
		res := decodeData[escalation.DecisionTreeResult](t, env)
		assert.Equal(t, escalation.LevelC, res.RecommendedLevel)
		assert.Equal(t, []string{escalation.ReasonSafetyIncident}, res.Reasons)
	})

	t.Run("no triggers is level A", func(t *testing.T) {
		code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
			"student_id": "stu-1", "domain_id": "respect",
		})
		require.Equal(t, http.StatusOK, code)
		res := decodeData[escalation.DecisionTreeResult](t, env)
		assert.Equal(t, escalation.LevelA, res.RecommendedLevel)
		assert.Equal(t, []string{escalation.ReasonNoTriggers}, res.Reasons)
	})

	t.Run("triggers in fixed order", func(t *testing.T) {
		code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
			"student_id": "stu-1", "domain_id": "respect",
			"is_safety_risk": true, "demerit_assigned": true, "ignored_prompts": 2,
		})
		require.Equal(t, http.StatusOK, code)
		res := decodeData[escalation.DecisionTreeResult](t, env)
		assert.Equal(t, escalation.LevelB, res.RecommendedLevel)
		assert.Equal(t, []string{escalation.ReasonDemerit, escalation.ReasonIgnoredPrompts, escalation.ReasonSafetyRisk}, res.Reasons)
	})

	t.Run("validation error is 422", func(t *testing.T) {
		code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
			"student_id": "stu-1", "domain_id": "respect", "ignored_prompts": -1,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		require.NotNil(t, env.Error)
		assert.Equal(t, shared.CategoryValidation, env.Error.Category)
	})

	t.Run("unknown domain is 404", func(t *testing.T) {
		code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
			"student_id": "stu-1", "domain_id": "nope", "demerit_assigned": true,
		})
		assert.Equal(t, http.StatusNotFound, code)
		assert.Equal(t, shared.CategoryNotFound, env.Error.Category)
	})

	t.Run("unknown field is 400", func(t *testing.T) {
		code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
			"student_id": "stu-1", "domain_id": "respect", "severity": 5,
		})
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Equal(t, "invalid_body", env.Error.Code)
	})
}

type failingLevelB struct{}

func (failingLevelB) CountCompleted(context.Context, shared.StudentID, shared.DomainID) (int, error) {
	return 0, shared.Upstream("levelb", "CountCompleted", errors.New("connection refused"))
}

func (failingLevelB) MarkEscalated(context.Context, []string) error { return nil }

func TestDecide_LevelBStoreFailureIsUpstream(t *testing.T) {
	ts := newTestServer(t, failingLevelB{})

	code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
		"student_id": "stu-1", "domain_id": "respect", "demerit_assigned": true,
	})
	assert.Equal(t, http.StatusBadGateway, code)
	require.NotNil(t, env.Error)
	assert.Equal(t, shared.CategoryUpstream, env.Error.Category)
	assert.False(t, env.Success)
}

func TestDecide_PriorLevelBEscalatesToC(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	for _, id := range []string{"b1", "b2"} {
		ts.store.LevelB().Put(ctx, memory.LevelBRecord{
			ID: id, StudentID: "stu-1", DomainID: "respect", Status: levelb.StatusCompletedSuccess,
		})
	}

	code, env := ts.do(t, http.MethodPost, "/api/v1/escalation/decide", map[string]any{
		"student_id": "stu-1", "domain_id": "respect", "affected_peers": true,
	})
	require.Equal(t, http.StatusOK, code)
	res := decodeData[escalation.DecisionTreeResult](t, env)
	assert.Equal(t, escalation.LevelC, res.RecommendedLevel)
	assert.Equal(t, 2, res.PriorLevelBCount)
	assert.Contains(t, res.Reasons, escalation.PriorLevelBReason(2))
}

// ══════════════════════════════════════════════════════════════════════════════
// Level A
// ══════════════════════════════════════════════════════════════════════════════

func TestLevelA(t *testing.T) {
	ts := newTestServer(t, nil)
	body := map[string]any{
		"student_id":        "stu-1",
		"domain_id":         "respect",
		"intervention_type": "redirect",
		"outcome":           "complied",
		"location":          "Room 12",
	}

	code, env := ts.do(t, http.MethodPost, "/api/v1/level-a", body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "missing_staff", env.Error.Code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/escalation/should-log-level-a",
		map[string]any{"student_id": "stu-1", "domain_id": "respect"})
	require.Equal(t, http.StatusOK, code)

	code, env = ts.do(t, http.MethodPost, "/api/v1/escalation/should-log-level-a",
		map[string]any{"student_id": "stu-1", "domain_id": "ghost"})
	require.Equal(t, http.StatusNotFound, code)
	require.NotNil(t, env.Error)

	future := map[string]any{}
	for k, v := range body {
		future[k] = v
	}
	future["event_timestamp"] = testNow.Add(72 * time.Hour).Format(time.RFC3339)
	code, env = ts.do(t, http.MethodPost, "/api/v1/level-a", future, staffHeaders...)
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "validation", env.Error.Code)

	code, env = ts.do(t, http.MethodPost, "/api/v1/level-a", body, staffHeaders...)
	require.Equal(t, http.StatusCreated, code)
	logged := decodeData[map[string]any](t, env)
	id := logged["id"].(string)
	assert.Equal(t, "staff-1", logged["staff_id"])
	assert.Equal(t, "J. Doe", logged["staff_name"])
	assert.Equal(t, false, logged["is_repeated_same_day"])

	// A second incident the same day is flagged.
	code, env = ts.do(t, http.MethodPost, "/api/v1/level-a", body, staffHeaders...)
	require.Equal(t, http.StatusCreated, code)
	assert.Equal(t, true, decodeData[map[string]any](t, env)["is_repeated_same_day"])

	code, env = ts.do(t, http.MethodPost, "/api/v1/escalation/should-log-level-a",
		map[string]any{"student_id": "stu-1", "domain_id": "respect"})
	require.Equal(t, http.StatusOK, code)
	should := decodeData[escalation.ShouldLogResult](t, env)
	assert.True(t, should.ShouldLog)
	assert.Equal(t, escalation.ReasonRepeatedSameDay, should.Reason)

	code, env = ts.do(t, http.MethodPut, "/api/v1/level-a/"+id+"/outcome",
		map[string]any{"outcome": "escalated", "escalated_to_b": true})
	require.Equal(t, http.StatusOK, code)
	updated := decodeData[map[string]any](t, env)
	assert.Equal(t, "escalated", updated["outcome"])
	assert.Equal(t, true, updated["escalated_to_b"])

	code, env = ts.do(t, http.MethodGet, "/api/v1/level-a/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "escalated", decodeData[map[string]any](t, env)["outcome"])

	code, env = ts.do(t, http.MethodGet, "/api/v1/level-a?student_id=stu-1&domain_id=respect", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[[]map[string]any](t, env), 2)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/level-a/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodPut, "/api/v1/level-a/missing/outcome", map[string]any{"outcome": "complied"})
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/level-a?student_id=stu-1&since=yesterday", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/level-a", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

// ══════════════════════════════════════════════════════════════════════════════
// Catalog
// ══════════════════════════════════════════════════════════════════════════════

func TestDomains(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/api/v1/domains", nil)
	require.Equal(t, http.StatusOK, code)
	domains := decodeData[[]catalog.BehavioralDomain](t, env)
	require.Len(t, domains, 2)
	assert.Equal(t, "Respect", domains[0].DisplayName)
	assert.Equal(t, "Safety", domains[1].DisplayName)

	code, env = ts.do(t, http.MethodGet, "/api/v1/domains/retired", nil)
	require.Equal(t, http.StatusOK, code)
	assert.False(t, decodeData[catalog.BehavioralDomain](t, env).IsActive)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/domains/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

// ══════════════════════════════════════════════════════════════════════════════
// Level C lifecycle
// ══════════════════════════════════════════════════════════════════════════════

type caseJSON struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	CaseType      string `json:"case_type"`
	DisplayPhase  string `json:"display_phase"`
	Version       int    `json:"version"`
	CaseManagerID string `json:"case_manager_id"`
	ReentryPlan   struct {
		ReentryDate      string `json:"reentry_date"`
		ReentryChecklist []any  `json:"reentry_checklist"`
	} `json:"reentry_plan"`
	Monitoring struct {
		ReviewDates   []string `json:"review_dates"`
		DailyCheckIns []any    `json:"daily_check_ins"`
	} `json:"monitoring"`
	Closure struct {
		OutcomeStatus string `json:"outcome_status"`
		ClosureDate   string `json:"closure_date"`
	} `json:"closure"`
}

func TestCaseLifecycle(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx := context.Background()
	ts.store.LevelB().Put(ctx, memory.LevelBRecord{ID: "b1", StudentID: "stu-9", DomainID: "respect", Status: levelb.StatusCompletedEscalated})

	// Create: manager defaults to the acting staff member.
	code, env := ts.do(t, http.MethodPost, "/api/v1/cases", map[string]any{
		"student_id":                 "stu-9",
		"trigger_type":               "threshold_35_points",
		"domain_focus_id":            "respect",
		"escalated_from_level_b_ids": []string{"b1"},
	}, staffHeaders...)
	require.Equal(t, http.StatusCreated, code, env.Error)
	c := decodeData[caseJSON](t, env)
	assert.Equal(t, "active", c.Status)
	assert.Equal(t, "intensive", c.CaseType)
	assert.Equal(t, "active", c.DisplayPhase)
	assert.Equal(t, "staff-1", c.CaseManagerID)
	rec, _ := ts.store.LevelB().Get(ctx, "b1")
	assert.True(t, rec.EscalatedToC)

	base := "/api/v1/cases/" + c.ID

	// Partial packet keeps the case active.
	code, env = ts.do(t, http.MethodPatch, base+"/context-packet", map[string]any{
		"incident_summary": "Fight in hallway",
	})
	require.Equal(t, http.StatusOK, code)
	c = decodeData[caseJSON](t, env)
	assert.Equal(t, "active", c.Status)
	assert.Equal(t, "context_packet", c.DisplayPhase)

	code, env = ts.do(t, http.MethodPatch, base+"/context-packet", map[string]any{
		"pattern_review":              "Third incident this month",
		"environmental_factors":       []string{"unstructured time", "peer conflict"},
		"prior_interventions_summary": "Two Level B resets",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "admin_response", decodeData[caseJSON](t, env).Status)

	code, env = ts.do(t, http.MethodPut, base+"/admin-response", map[string]any{
		"admin_response_type":    "out_of_school_suspension",
		"consequence_start_date": "2025-01-07",
		"consequence_end_date":   "2025-01-08",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "pending_reentry", decodeData[caseJSON](t, env).Status)

	code, _ = ts.do(t, http.MethodPut, base+"/admin-response", map[string]any{
		"admin_response_type":    "detention",
		"consequence_start_date": "2025-01-08",
		"consequence_end_date":   "2025-01-07",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = ts.do(t, http.MethodPut, base+"/reentry-plan", map[string]any{
		"support_plan_goal": "Return with daily check-ins",
		"reentry_date":      "2025-01-06",
	})
	require.Equal(t, http.StatusOK, code)
	c = decodeData[caseJSON](t, env)
	assert.Equal(t, "pending_reentry", c.Status)
	assert.Equal(t, "2025-01-06", c.ReentryPlan.ReentryDate)
	assert.Len(t, c.ReentryPlan.ReentryChecklist, 4)

	// Re-entry is due today.
	code, env = ts.do(t, http.MethodGet, "/api/v1/cases/pending-reentries", nil)
	require.Equal(t, http.StatusOK, code)
	pending := decodeData[[]caseJSON](t, env)
	require.Len(t, pending, 1)
	assert.Equal(t, c.ID, pending[0].ID)

	code, env = ts.do(t, http.MethodPost, base+"/monitoring", nil)
	require.Equal(t, http.StatusOK, code)
	c = decodeData[caseJSON](t, env)
	assert.Equal(t, "monitoring", c.Status)
	assert.Equal(t, []string{"2025-01-06", "2025-01-09", "2025-01-12", "2025-01-15", "2025-01-16"}, c.Monitoring.ReviewDates)

	code, env = ts.do(t, http.MethodGet, "/api/v1/cases/due-reviews?date=2025-01-09", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[[]caseJSON](t, env), 1)

	code, env = ts.do(t, http.MethodGet, "/api/v1/cases/due-reviews?date=2025-01-10", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decodeData[[]caseJSON](t, env))

	code, _ = ts.do(t, http.MethodGet, "/api/v1/cases/due-reviews?date=01/10/2025", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, _ = ts.do(t, http.MethodPost, base+"/check-ins", map[string]any{"notes": "Good day"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	code, env = ts.do(t, http.MethodPost, base+"/check-ins", map[string]any{"notes": "Good day"}, staffHeaders...)
	require.Equal(t, http.StatusOK, code)
	c = decodeData[caseJSON](t, env)
	assert.Len(t, c.Monitoring.DailyCheckIns, 1)
	assert.Equal(t, "monitoring", c.Status)

	code, env = ts.do(t, http.MethodGet, "/api/v1/staff/staff-1/caseload", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[[]caseJSON](t, env), 1)

	code, env = ts.do(t, http.MethodPost, base+"/close", map[string]any{
		"outcome_status": "closed_success",
		"outcome_notes":  "Met all goals",
	})
	require.Equal(t, http.StatusOK, code)
	c = decodeData[caseJSON](t, env)
	assert.Equal(t, "closed", c.Status)
	assert.Equal(t, "closed_success", c.Closure.OutcomeStatus)
	assert.Equal(t, "2025-01-06", c.Closure.ClosureDate)

	// Closed is terminal.
	code, env = ts.do(t, http.MethodPost, base+"/check-ins", map[string]any{"notes": "late"}, staffHeaders...)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "case_closed", env.Error.Code)

	code, env = ts.do(t, http.MethodGet, "/api/v1/staff/staff-1/caseload", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decodeData[[]caseJSON](t, env))

	code, env = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "closed", decodeData[caseJSON](t, env).DisplayPhase)
}

func TestCaseErrors(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodPost, "/api/v1/cases", map[string]any{
		"student_id": "stu-1", "trigger_type": "bad_trigger",
	}, staffHeaders...)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, shared.CategoryValidation, env.Error.Category)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/cases", map[string]any{
		"student_id": "stu-1", "trigger_type": "other", "escalated_from_level_b_ids": []string{"ghost"},
	}, staffHeaders...)
	assert.Equal(t, http.StatusNotFound, code)

	// The failed create left nothing behind.
	code, env = ts.do(t, http.MethodGet, "/api/v1/cases?student_id=stu-1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decodeData[[]caseJSON](t, env))

	code, _ = ts.do(t, http.MethodGet, "/api/v1/cases/missing", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodPost, "/api/v1/cases/missing/monitoring", nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = ts.do(t, http.MethodGet, "/api/v1/cases?status=bogus", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestListCases(t *testing.T) {
	ts := newTestServer(t, nil)
	for i := 0; i < 3; i++ {
		code, _ := ts.do(t, http.MethodPost, "/api/v1/cases", map[string]any{
			"student_id": fmt.Sprintf("stu-%d", i), "trigger_type": "admin_referral",
		}, staffHeaders...)
		require.Equal(t, http.StatusCreated, code)
	}

	code, env := ts.do(t, http.MethodGet, "/api/v1/cases?status=active,monitoring&limit=2", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, decodeData[[]caseJSON](t, env), 2)
	require.NotNil(t, env.Meta)
	assert.Equal(t, 3, env.Meta.TotalCount)
	assert.True(t, env.Meta.HasMore)

	code, env = ts.do(t, http.MethodGet, "/api/v1/cases?status=closed", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, decodeData[[]caseJSON](t, env))
}

// ══════════════════════════════════════════════════════════════════════════════
// Infrastructure endpoints
// ══════════════════════════════════════════════════════════════════════════════

type openBreaker struct{}

func (openBreaker) IsOpen() bool { return true }

func TestHealthAndMetrics(t *testing.T) {
	ts := newTestServer(t, nil)

	code, env := ts.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)

	code, env = ts.do(t, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "route_not_found", env.Error.Code)

	_, _ = ts.do(t, http.MethodGet, "/api/v1/domains", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "/api/v1/domains"), "route label recorded")

	checker := handlers.NewCompositeHealthChecker("test")
	checker.AddCheck("level_b_store", handlers.NewBreakerCheck("level_b_store", openBreaker{}))
	unhealthy := NewServer(DefaultConfig(), Dependencies{Logger: logger.Discard(), HealthChecker: checker})

	rec = httptest.NewRecorder()
	unhealthy.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/live", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"request_id":"req-123"`)
}

func TestStatusFor(t *testing.T) {
	cases := map[string]int{
		shared.CategoryNotFound:   http.StatusNotFound,
		shared.CategoryValidation: http.StatusUnprocessableEntity,
		shared.CategoryConflict:   http.StatusConflict,
		shared.CategoryUpstream:   http.StatusBadGateway,
		shared.CategoryInternal:   http.StatusInternalServerError,
	}
	for category, want := range cases {
		assert.Equal(t, want, statusFor(category), category)
	}
}
