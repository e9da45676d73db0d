package levelc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

var testNow = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func datePtr(y int, m time.Month, d int) *shared.Date {
	date := shared.NewDate(y, m, d)
	return &date
}

func newTestCase(t *testing.T, trigger TriggerType) *Case {
	t.Helper()
	c, err := NewCase(NewCaseParams{
		ID:          "c-1",
		StudentID:   "s-1",
		CaseManager: shared.StaffRef{ID: "m-1", Name: "Mr. Ortiz"},
		TriggerType: trigger,
		Now:         testNow,
	})
	require.NoError(t, err)
	return c
}

func fullContextPacket() ContextPacketUpdate {
	return ContextPacketUpdate{
		IncidentSummary:           strPtr("Pushed a peer in the hallway"),
		PatternReview:             strPtr("Third hallway incident this month"),
		EnvironmentalFactors:      []string{"transition", "crowding"},
		PriorInterventionsSummary: strPtr("Two Level B resets"),
	}
}

func TestNewCase_Classification(t *testing.T) {
	tests := []struct {
		trigger  TriggerType
		caseType CaseType
		days     int
	}{
		{TriggerThreshold20Points, CaseTypeLite, 14},
		{TriggerThreshold35Points, CaseTypeIntensive, 10},
		{TriggerThreshold40Points, CaseTypeIntensive, 10},
		{TriggerSafetyIncident, CaseTypeIntensive, 10},
		{TriggerLevelBEscalation, CaseTypeStandard, 10},
		{TriggerChronicPattern, CaseTypeStandard, 10},
		{TriggerAdminReferral, CaseTypeStandard, 10},
		{TriggerSuspensionReentry, CaseTypeStandard, 10},
		{TriggerOther, CaseTypeStandard, 10},
	}

	for _, tt := range tests {
		t.Run(string(tt.trigger), func(t *testing.T) {
			c := newTestCase(t, tt.trigger)
			assert.Equal(t, tt.caseType, c.CaseType)
			assert.Equal(t, tt.days, c.MonitoringDurationDays)
			assert.Equal(t, StatusActive, c.Status)
		})
	}
}

func TestNewCase_ExplicitCaseTypeWins(t *testing.T) {
	c, err := NewCase(NewCaseParams{
		ID:          "c-1",
		StudentID:   "s-1",
		TriggerType: TriggerThreshold20Points,
		CaseType:    CaseTypeIntensive,
		Now:         testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, CaseTypeIntensive, c.CaseType)
	assert.Equal(t, 10, c.MonitoringDurationDays)
}

func TestNewCase_Validation(t *testing.T) {
	_, err := NewCase(NewCaseParams{ID: "c-1", StudentID: "s-1", TriggerType: "bad", Now: testNow})
	assert.ErrorIs(t, err, shared.ErrInvalidTriggerType)

	_, err = NewCase(NewCaseParams{ID: "c-1", TriggerType: TriggerOther, Now: testNow})
	assert.True(t, shared.IsValidation(err))

	_, err = NewCase(NewCaseParams{ID: "c-1", StudentID: "s-1", TriggerType: TriggerOther, CaseType: "mega", Now: testNow})
	assert.ErrorIs(t, err, shared.ErrInvalidCaseType)
}

func TestNewCase_DedupesLevelBIDs(t *testing.T) {
	c, err := NewCase(NewCaseParams{
		ID:                     "c-1",
		StudentID:              "s-1",
		TriggerType:            TriggerLevelBEscalation,
		EscalatedFromLevelBIDs: []string{"b-1", "b-2", "b-1", " "},
		Now:                    testNow,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"b-1", "b-2"}, c.EscalatedFromLevelBIDs)
}

func TestUpdateContextPacket_PartialKeepsStatus(t *testing.T) {
	c := newTestCase(t, TriggerOther)

	done, err := c.UpdateContextPacket(ContextPacketUpdate{
		IncidentSummary:      strPtr("summary"),
		PatternReview:        strPtr("review"),
		EnvironmentalFactors: []string{"lunch"},
	}, testNow)

	require.NoError(t, err)
	assert.False(t, done)
	assert.False(t, c.ContextPacket.Completed)
	assert.Equal(t, StatusActive, c.Status)
	assert.Equal(t, "context_packet", c.DisplayPhase())
}

func TestUpdateContextPacket_MergeCompletesAndAdvances(t *testing.T) {
	c := newTestCase(t, TriggerOther)

	_, err := c.UpdateContextPacket(ContextPacketUpdate{
		IncidentSummary:      strPtr("summary"),
		PatternReview:        strPtr("review"),
		EnvironmentalFactors: []string{"lunch"},
	}, testNow)
	require.NoError(t, err)

	done, err := c.UpdateContextPacket(ContextPacketUpdate{
		PriorInterventionsSummary: strPtr("prior"),
	}, testNow)
	require.NoError(t, err)

	assert.True(t, done)
	assert.True(t, c.ContextPacket.Completed)
	assert.Equal(t, StatusAdminResponse, c.Status)
	assert.Equal(t, "summary", c.ContextPacket.IncidentSummary)
}

func TestUpdateContextPacket_EmptyFactorsAreIncomplete(t *testing.T) {
	c := newTestCase(t, TriggerOther)
	u := fullContextPacket()
	u.EnvironmentalFactors = []string{" ", ""}

	done, err := c.UpdateContextPacket(u, testNow)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, StatusActive, c.Status)
}

func TestUpdateContextPacket_CannotClearCompletedField(t *testing.T) {
	c := newTestCase(t, TriggerOther)
	_, err := c.UpdateContextPacket(fullContextPacket(), testNow)
	require.NoError(t, err)

	_, err = c.UpdateContextPacket(ContextPacketUpdate{PatternReview: strPtr("")}, testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Equal(t, "Third hallway incident this month", c.ContextPacket.PatternReview)
}

func TestUpdateContextPacket_AfterAdminResponseDoesNotRegress(t *testing.T) {
	c := newTestCase(t, TriggerOther)
	require.NoError(t, c.RecordAdminResponse(AdminResponseInput{Type: AdminResponseDetention}, PermissivePolicy(), testNow))

	done, err := c.UpdateContextPacket(fullContextPacket(), testNow)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, StatusPendingReentry, c.Status)
}

func TestRecordAdminResponse(t *testing.T) {
	c := newTestCase(t, TriggerOther)

	err := c.RecordAdminResponse(AdminResponseInput{}, PermissivePolicy(), testNow)
	assert.ErrorIs(t, err, shared.ErrMissingAdminResponse)

	err = c.RecordAdminResponse(AdminResponseInput{Type: "paddling"}, PermissivePolicy(), testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidAdminResponse)

	err = c.RecordAdminResponse(AdminResponseInput{
		Type:                 AdminResponseInSchoolSuspension,
		ConsequenceStartDate: datePtr(2025, 1, 5),
		ConsequenceEndDate:   datePtr(2025, 1, 3),
	}, PermissivePolicy(), testNow)
	assert.ErrorIs(t, err, shared.ErrConsequenceDateOrder)

	// permissive policy: no context packet needed
	err = c.RecordAdminResponse(AdminResponseInput{Type: AdminResponseParentConference, Details: " call home "}, PermissivePolicy(), testNow)
	require.NoError(t, err)
	assert.True(t, c.AdminResponse.Completed)
	assert.Equal(t, "call home", c.AdminResponse.Details)
	assert.Equal(t, StatusPendingReentry, c.Status)
}

func TestRecordAdminResponse_StrictPolicyRequiresContextPacket(t *testing.T) {
	c := newTestCase(t, TriggerOther)

	err := c.RecordAdminResponse(AdminResponseInput{Type: AdminResponseDetention}, StrictPolicy(), testNow)
	assert.ErrorIs(t, err, shared.ErrPhaseDependency)
	assert.True(t, shared.IsValidation(err))
	assert.Equal(t, StatusActive, c.Status)

	_, err = c.UpdateContextPacket(fullContextPacket(), testNow)
	require.NoError(t, err)
	assert.NoError(t, c.RecordAdminResponse(AdminResponseInput{Type: AdminResponseDetention}, StrictPolicy(), testNow))
}

func TestCreateReentryPlan(t *testing.T) {
	c := newTestCase(t, TriggerOther)
	require.NoError(t, c.RecordAdminResponse(AdminResponseInput{Type: AdminResponseDetention}, PermissivePolicy(), testNow))

	err := c.CreateReentryPlan(ReentryPlanInput{ReentryDate: datePtr(2025, 1, 2)}, PermissivePolicy(), testNow)
	assert.ErrorIs(t, err, shared.ErrMissingSupportGoal)

	err = c.CreateReentryPlan(ReentryPlanInput{SupportPlanGoal: "goal"}, PermissivePolicy(), testNow)
	assert.ErrorIs(t, err, shared.ErrMissingReentryDate)

	err = c.CreateReentryPlan(ReentryPlanInput{
		SupportPlanGoal: "Stay in class for full periods",
		ReentryDate:     datePtr(2025, 1, 2),
	}, PermissivePolicy(), testNow)
	require.NoError(t, err)

	assert.True(t, c.ReentryPlan.Completed)
	assert.Equal(t, ReentryStandard, c.ReentryPlan.ReentryType)
	require.Len(t, c.ReentryPlan.ReentryChecklist, 4)
	for _, item := range c.ReentryPlan.ReentryChecklist {
		assert.False(t, item.Completed)
	}
	assert.Equal(t, StatusPendingReentry, c.Status)
}

func TestCreateReentryPlan_KeepsSuppliedChecklist(t *testing.T) {
	c := newTestCase(t, TriggerOther)
	err := c.CreateReentryPlan(ReentryPlanInput{
		SupportPlanGoal:  "goal",
		ReentryDate:      datePtr(2025, 1, 2),
		ReentryType:      ReentryRestricted,
		ReentryChecklist: []ReadinessChecklistItem{{Item: "Apology letter", Completed: true}},
	}, PermissivePolicy(), testNow)
	require.NoError(t, err)

	assert.Equal(t, []ReadinessChecklistItem{{Item: "Apology letter", Completed: true}}, c.ReentryPlan.ReentryChecklist)
	assert.Equal(t, ReentryRestricted, c.ReentryPlan.ReentryType)
}

func TestStartMonitoring_Schedule(t *testing.T) {
	c := newTestCase(t, TriggerOther)
	require.Equal(t, 10, c.MonitoringDurationDays)
	require.NoError(t, c.CreateReentryPlan(ReentryPlanInput{
		SupportPlanGoal: "goal",
		ReentryDate:     datePtr(2025, 1, 1),
	}, PermissivePolicy(), testNow))

	require.NoError(t, c.StartMonitoring(shared.NewDate(2025, 2, 1), DefaultReviewStrideDays, PermissivePolicy(), testNow))

	assert.Equal(t, StatusMonitoring, c.Status)
	assert.Equal(t, []ScheduleEntry{
		{Date: shared.NewDate(2025, 1, 1), Type: ScheduleCheckIn},
		{Date: shared.NewDate(2025, 1, 4), Type: ScheduleCheckIn},
		{Date: shared.NewDate(2025, 1, 7), Type: ScheduleCheckIn},
		{Date: shared.NewDate(2025, 1, 10), Type: ScheduleCheckIn},
		{Date: shared.NewDate(2025, 1, 11), Type: ScheduleFinal},
	}, c.Monitoring.Schedule)
	assert.Equal(t, shared.NewDate(2025, 1, 11), c.Monitoring.ReviewDates[len(c.Monitoring.ReviewDates)-1])
}

func TestStartMonitoring_FallsBackToToday(t *testing.T) {
	c := newTestCase(t, TriggerThreshold20Points)

	require.NoError(t, c.StartMonitoring(shared.NewDate(2025, 3, 1), 3, PermissivePolicy(), testNow))

	last := c.Monitoring.Schedule[len(c.Monitoring.Schedule)-1]
	assert.Equal(t, shared.NewDate(2025, 3, 1), c.Monitoring.Schedule[0].Date)
	assert.Equal(t, shared.NewDate(2025, 3, 15), last.Date)
	assert.Equal(t, ScheduleFinal, last.Type)
}

func TestStartMonitoring_StrictPolicyRequiresPlan(t *testing.T) {
	c := newTestCase(t, TriggerOther)
	err := c.StartMonitoring(shared.NewDate(2025, 1, 1), 3, StrictPolicy(), testNow)
	assert.ErrorIs(t, err, shared.ErrStateTransition)
}

func TestLogCheckIn(t *testing.T) {
	c := newTestCase(t, TriggerOther)

	err := c.LogCheckIn(DailyCheckIn{Date: shared.NewDate(2025, 1, 2), Notes: "  "}, testNow)
	assert.ErrorIs(t, err, shared.ErrEmptyCheckInNotes)

	for i := 0; i < 3; i++ {
		require.NoError(t, c.LogCheckIn(DailyCheckIn{
			Date:     shared.NewDate(2025, 1, 2),
			Notes:    "Good morning check-in",
			LoggedBy: shared.StaffRef{ID: "m-1", Name: "Mr. Ortiz"},
		}, testNow))
	}
	assert.Len(t, c.Monitoring.DailyCheckIns, 3)
	assert.Equal(t, testNow, c.Monitoring.DailyCheckIns[0].LoggedAt)
	assert.Equal(t, StatusActive, c.Status)
}

func TestClose_IsTerminal(t *testing.T) {
	c := newTestCase(t, TriggerOther)

	err := c.Close(CloseInput{OutcomeStatus: "done"}, shared.NewDate(2025, 1, 20), testNow)
	assert.ErrorIs(t, err, shared.ErrInvalidOutcomeStatus)

	require.NoError(t, c.Close(CloseInput{OutcomeStatus: OutcomeClosedSuccess}, shared.NewDate(2025, 1, 20), testNow))
	assert.Equal(t, StatusClosed, c.Status)
	assert.Equal(t, shared.NewDate(2025, 1, 20), *c.Closure.ClosureDate)

	checks := []error{
		func() error { _, err := c.UpdateContextPacket(fullContextPacket(), testNow); return err }(),
		c.RecordAdminResponse(AdminResponseInput{Type: AdminResponseDetention}, PermissivePolicy(), testNow),
		c.CreateReentryPlan(ReentryPlanInput{SupportPlanGoal: "g", ReentryDate: datePtr(2025, 1, 1)}, PermissivePolicy(), testNow),
		c.StartMonitoring(shared.NewDate(2025, 1, 1), 3, PermissivePolicy(), testNow),
		c.LogCheckIn(DailyCheckIn{Date: shared.NewDate(2025, 1, 1), Notes: "n"}, testNow),
		c.Close(CloseInput{OutcomeStatus: OutcomeClosedEscalated}, shared.NewDate(2025, 1, 21), testNow),
	}
	for _, err := range checks {
		assert.ErrorIs(t, err, shared.ErrCaseClosed)
		assert.True(t, shared.IsValidation(err))
	}
	assert.Equal(t, StatusClosed, c.Status)
	assert.Equal(t, OutcomeClosedSuccess, c.Closure.OutcomeStatus)
}

func TestFullLifecycle(t *testing.T) {
	c := newTestCase(t, TriggerSafetyIncident)
	policy := StrictPolicy()

	_, err := c.UpdateContextPacket(fullContextPacket(), testNow)
	require.NoError(t, err)
	require.NoError(t, c.RecordAdminResponse(AdminResponseInput{Type: AdminResponseOutSchoolSuspension}, policy, testNow))
	require.NoError(t, c.CreateReentryPlan(ReentryPlanInput{SupportPlanGoal: "goal", ReentryDate: datePtr(2025, 1, 6)}, policy, testNow))
	assert.True(t, c.IsReentryDue(shared.NewDate(2025, 1, 6)))
	assert.False(t, c.IsReentryDue(shared.NewDate(2025, 1, 5)))
	require.NoError(t, c.StartMonitoring(shared.NewDate(2025, 1, 6), 3, policy, testNow))
	require.NoError(t, c.LogCheckIn(DailyCheckIn{Date: shared.NewDate(2025, 1, 6), Notes: "ok"}, testNow))
	require.NoError(t, c.Close(CloseInput{OutcomeStatus: OutcomeClosedSuccess}, shared.NewDate(2025, 1, 16), testNow))

	assert.True(t, c.ContextPacket.Completed)
	assert.True(t, c.AdminResponse.Completed)
	assert.True(t, c.ReentryPlan.Completed)
	assert.Equal(t, StatusClosed, c.Status)
	assert.Equal(t, "closed", c.DisplayPhase())
}
