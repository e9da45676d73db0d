package http

import (
	"net/http"

	"github.com/behavior-hub/behavior-hub/internal/application/command"
	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL C CASE HANDLERS
// Transitions return the updated case. A 409 means the case changed since it
// was read; clients reread and retry.
// ══════════════════════════════════════════════════════════════════════════════

// createCaseRequest is the body of POST /api/v1/cases.
// The case manager defaults to the acting staff member.
type createCaseRequest struct {
	StudentID              shared.StudentID   `json:"student_id"`
	CaseManagerID          shared.StaffID     `json:"case_manager_id"`
	CaseManagerName        string             `json:"case_manager_name"`
	TriggerType            levelc.TriggerType `json:"trigger_type"`
	CaseType               levelc.CaseType    `json:"case_type"`
	DomainFocusID          shared.DomainID    `json:"domain_focus_id"`
	EscalatedFromLevelBIDs []string           `json:"escalated_from_level_b_ids"`
	SISDemeritPoints       *int               `json:"sis_demerit_points_at_creation"`
}

// handleCreateCase handles POST /api/v1/cases
func (s *Server) handleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req createCaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	manager := shared.StaffRef{ID: req.CaseManagerID, Name: req.CaseManagerName}
	if manager.IsZero() {
		manager = staffFromHeaders(r)
	}

	c, err := s.deps.CreateCase.Handle(r.Context(), command.CreateCaseCommand{
		StudentID:              req.StudentID,
		CaseManager:            manager,
		TriggerType:            req.TriggerType,
		CaseType:               req.CaseType,
		DomainFocusID:          req.DomainFocusID,
		EscalatedFromLevelBIDs: req.EscalatedFromLevelBIDs,
		SISDemeritPoints:       req.SISDemeritPoints,
	})
	if err != nil {
		s.writeDomainError(w, r, "create_case", err)
		return
	}
	w.Header().Set("Location", "/api/v1/cases/"+c.ID)
	writeJSON(w, r, http.StatusCreated, query.NewCaseView(c))
}

// handleGetCase handles GET /api/v1/cases/{caseID}
func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	view, err := s.deps.Cases.GetCase(r.Context(), pathParam(r, "caseID"))
	if err != nil {
		s.writeDomainError(w, r, "get_case", err)
		return
	}
	writeJSON(w, r, http.StatusOK, view)
}

// handleListCases handles GET /api/v1/cases?student_id=&case_manager_id=&status=&limit=&offset=
// status accepts a comma-separated list.
func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	q := query.ListCasesQuery{
		StudentID:     shared.StudentID(r.URL.Query().Get("student_id")),
		CaseManagerID: shared.StaffID(r.URL.Query().Get("case_manager_id")),
		Limit:         getQueryParamInt(r, "limit", 0),
		Offset:        getQueryParamInt(r, "offset", 0),
	}
	for _, st := range getQueryParamList(r, "status") {
		q.Statuses = append(q.Statuses, levelc.Status(st))
	}

	result, err := s.deps.Cases.ListCases(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, "list_cases", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, result.Cases, &ResponseMeta{
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
		HasMore:    result.Offset+len(result.Cases) < result.TotalCount,
	})
}

// handleCaseload handles GET /api/v1/staff/{staffID}/caseload
func (s *Server) handleCaseload(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Cases.Caseload(r.Context(), shared.StaffID(pathParam(r, "staffID")))
	if err != nil {
		s.writeDomainError(w, r, "caseload", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, views, &ResponseMeta{TotalCount: len(views)})
}

// handlePendingReentries handles GET /api/v1/cases/pending-reentries
func (s *Server) handlePendingReentries(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Cases.PendingReentries(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "pending_reentries", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, views, &ResponseMeta{TotalCount: len(views)})
}

// handleDueReviews handles GET /api/v1/cases/due-reviews?date=YYYY-MM-DD
// date defaults to today in the school timezone.
func (s *Server) handleDueReviews(w http.ResponseWriter, r *http.Request) {
	date, err := getQueryParamDate(r, "date")
	if err != nil {
		s.writeDomainError(w, r, "due_reviews", err)
		return
	}
	views, err := s.deps.Cases.DueReviews(r.Context(), date)
	if err != nil {
		s.writeDomainError(w, r, "due_reviews", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, views, &ResponseMeta{TotalCount: len(views)})
}

// ─────────────────────────────────────────────────────────────────────────────
// Transitions
// ─────────────────────────────────────────────────────────────────────────────

// contextPacketRequest carries a partial update; absent fields are unchanged.
type contextPacketRequest struct {
	IncidentSummary           *string  `json:"incident_summary"`
	PatternReview             *string  `json:"pattern_review"`
	EnvironmentalFactors      []string `json:"environmental_factors"`
	PriorInterventionsSummary *string  `json:"prior_interventions_summary"`
}

// handleUpdateContextPacket handles PATCH /api/v1/cases/{caseID}/context-packet
func (s *Server) handleUpdateContextPacket(w http.ResponseWriter, r *http.Request) {
	var req contextPacketRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.deps.Lifecycle.UpdateContextPacket(r.Context(), command.UpdateContextPacketCommand{
		CaseID:                    pathParam(r, "caseID"),
		IncidentSummary:           req.IncidentSummary,
		PatternReview:             req.PatternReview,
		EnvironmentalFactors:      req.EnvironmentalFactors,
		PriorInterventionsSummary: req.PriorInterventionsSummary,
	})
	s.writeCase(w, r, "update_context_packet", c, err)
}

type adminResponseRequest struct {
	Type                 levelc.AdminResponseType `json:"admin_response_type"`
	Details              string                   `json:"admin_response_details"`
	ConsequenceStartDate *shared.Date             `json:"consequence_start_date"`
	ConsequenceEndDate   *shared.Date             `json:"consequence_end_date"`
}

// handleRecordAdminResponse handles PUT /api/v1/cases/{caseID}/admin-response
func (s *Server) handleRecordAdminResponse(w http.ResponseWriter, r *http.Request) {
	var req adminResponseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.deps.Lifecycle.RecordAdminResponse(r.Context(), command.RecordAdminResponseCommand{
		CaseID:               pathParam(r, "caseID"),
		Type:                 req.Type,
		Details:              req.Details,
		ConsequenceStartDate: req.ConsequenceStartDate,
		ConsequenceEndDate:   req.ConsequenceEndDate,
	})
	s.writeCase(w, r, "record_admin_response", c, err)
}

type reentryPlanRequest struct {
	SupportPlanGoal       string                          `json:"support_plan_goal"`
	SupportPlanStrategies []string                        `json:"support_plan_strategies"`
	AdultMentorID         shared.StaffID                  `json:"adult_mentor_id"`
	AdultMentorName       string                          `json:"adult_mentor_name"`
	RepairActions         []levelc.RepairAction           `json:"repair_actions"`
	ReentryDate           *shared.Date                    `json:"reentry_date"`
	ReentryType           levelc.ReentryType              `json:"reentry_type"`
	ReentryRestrictions   []string                        `json:"reentry_restrictions"`
	ReentryChecklist      []levelc.ReadinessChecklistItem `json:"reentry_checklist"`
}

// handleCreateReentryPlan handles PUT /api/v1/cases/{caseID}/reentry-plan
func (s *Server) handleCreateReentryPlan(w http.ResponseWriter, r *http.Request) {
	var req reentryPlanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.deps.Lifecycle.CreateReentryPlan(r.Context(), command.CreateReentryPlanCommand{
		CaseID:                pathParam(r, "caseID"),
		SupportPlanGoal:       req.SupportPlanGoal,
		SupportPlanStrategies: req.SupportPlanStrategies,
		AdultMentor:           shared.StaffRef{ID: req.AdultMentorID, Name: req.AdultMentorName},
		RepairActions:         req.RepairActions,
		ReentryDate:           req.ReentryDate,
		ReentryType:           req.ReentryType,
		ReentryRestrictions:   req.ReentryRestrictions,
		ReentryChecklist:      req.ReentryChecklist,
	})
	s.writeCase(w, r, "create_reentry_plan", c, err)
}

// handleStartMonitoring handles POST /api/v1/cases/{caseID}/monitoring
func (s *Server) handleStartMonitoring(w http.ResponseWriter, r *http.Request) {
	c, err := s.deps.Lifecycle.StartMonitoring(r.Context(), pathParam(r, "caseID"))
	s.writeCase(w, r, "start_monitoring", c, err)
}

type checkInRequest struct {
	Date  shared.Date `json:"date"`
	Notes string      `json:"notes"`
}

// handleLogCheckIn handles POST /api/v1/cases/{caseID}/check-ins
// The check-in is attributed to the acting staff member.
func (s *Server) handleLogCheckIn(w http.ResponseWriter, r *http.Request) {
	staff, ok := requireStaff(w, r)
	if !ok {
		return
	}
	var req checkInRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.deps.Lifecycle.LogCheckIn(r.Context(), command.LogCheckInCommand{
		CaseID:   pathParam(r, "caseID"),
		Date:     req.Date,
		Notes:    req.Notes,
		LoggedBy: staff,
	})
	s.writeCase(w, r, "log_check_in", c, err)
}

type closeCaseRequest struct {
	OutcomeStatus   levelc.OutcomeStatus `json:"outcome_status"`
	OutcomeNotes    string               `json:"outcome_notes"`
	ClosureCriteria string               `json:"closure_criteria"`
}

// handleCloseCase handles POST /api/v1/cases/{caseID}/close
func (s *Server) handleCloseCase(w http.ResponseWriter, r *http.Request) {
	var req closeCaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := s.deps.Lifecycle.Close(r.Context(), command.CloseCaseCommand{
		CaseID:          pathParam(r, "caseID"),
		OutcomeStatus:   req.OutcomeStatus,
		Notes:           req.OutcomeNotes,
		ClosureCriteria: req.ClosureCriteria,
	})
	s.writeCase(w, r, "close_case", c, err)
}

// writeCase writes the result of a transition.
func (s *Server) writeCase(w http.ResponseWriter, r *http.Request, op string, c *levelc.Case, err error) {
	if err != nil {
		s.writeDomainError(w, r, op, err)
		return
	}
	writeJSON(w, r, http.StatusOK, query.NewCaseView(c))
}
