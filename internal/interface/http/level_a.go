package http

import (
	"net/http"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/application/command"
	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL A HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// logLevelARequest is the body of POST /api/v1/level-a.
// The acting staff member comes from the X-Staff-* headers.
type logLevelARequest struct {
	StudentID           shared.StudentID        `json:"student_id"`
	DomainID            shared.DomainID         `json:"domain_id"`
	InterventionType    levela.InterventionType `json:"intervention_type"`
	BehaviorDescription string                  `json:"behavior_description"`
	Location            string                  `json:"location"`
	Outcome             levela.Outcome          `json:"outcome"`
	AffectedOthers      bool                    `json:"affected_others"`
	EventTimestamp      *time.Time              `json:"event_timestamp"`
}

// handleLogLevelA handles POST /api/v1/level-a
func (s *Server) handleLogLevelA(w http.ResponseWriter, r *http.Request) {
	staff, ok := requireStaff(w, r)
	if !ok {
		return
	}
	var req logLevelARequest
	if !decodeJSON(w, r, &req) {
		return
	}

	cmd := command.LogLevelACommand{
		StudentID:           req.StudentID,
		DomainID:            req.DomainID,
		Staff:               staff,
		InterventionType:    req.InterventionType,
		BehaviorDescription: req.BehaviorDescription,
		Location:            req.Location,
		Outcome:             req.Outcome,
		AffectedOthers:      req.AffectedOthers,
	}
	if req.EventTimestamp != nil {
		cmd.EventTimestamp = *req.EventTimestamp
	}

	intervention, err := s.deps.LogLevelA.Handle(r.Context(), cmd)
	if err != nil {
		s.writeDomainError(w, r, "log_level_a", err)
		return
	}
	w.Header().Set("Location", "/api/v1/level-a/"+intervention.ID)
	writeJSON(w, r, http.StatusCreated, intervention)
}

// setOutcomeRequest is the body of PUT /api/v1/level-a/{interventionID}/outcome.
type setOutcomeRequest struct {
	Outcome      levela.Outcome `json:"outcome"`
	EscalatedToB bool           `json:"escalated_to_b"`
}

// handleSetLevelAOutcome handles PUT /api/v1/level-a/{interventionID}/outcome
func (s *Server) handleSetLevelAOutcome(w http.ResponseWriter, r *http.Request) {
	var req setOutcomeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	intervention, err := s.deps.SetOutcome.Handle(r.Context(), command.SetLevelAOutcomeCommand{
		ID:           pathParam(r, "interventionID"),
		Outcome:      req.Outcome,
		EscalatedToB: req.EscalatedToB,
	})
	if err != nil {
		s.writeDomainError(w, r, "set_level_a_outcome", err)
		return
	}
	writeJSON(w, r, http.StatusOK, intervention)
}

// handleGetLevelA handles GET /api/v1/level-a/{interventionID}
func (s *Server) handleGetLevelA(w http.ResponseWriter, r *http.Request) {
	intervention, err := s.deps.LevelA.Get(r.Context(), pathParam(r, "interventionID"))
	if err != nil {
		s.writeDomainError(w, r, "get_level_a", err)
		return
	}
	writeJSON(w, r, http.StatusOK, intervention)
}

// handleListLevelA handles GET /api/v1/level-a?student_id=&domain_id=&since=&limit=&offset=
// since is RFC 3339.
func (s *Server) handleListLevelA(w http.ResponseWriter, r *http.Request) {
	q := query.ListLevelAQuery{
		StudentID: shared.StudentID(r.URL.Query().Get("student_id")),
		DomainID:  shared.DomainID(r.URL.Query().Get("domain_id")),
		Limit:     getQueryParamInt(r, "limit", 0),
		Offset:    getQueryParamInt(r, "offset", 0),
	}
	if raw := r.URL.Query().Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			s.writeDomainError(w, r, "list_level_a",
				shared.WrapError("levela", "List", shared.ErrInvalidFormat, "since must be RFC 3339", err))
			return
		}
		q.Since = since
	}

	items, err := s.deps.LevelA.List(r.Context(), q)
	if err != nil {
		s.writeDomainError(w, r, "list_level_a", err)
		return
	}
	page := shared.Page{Limit: q.Limit, Offset: q.Offset}.Normalize()
	writeJSONWithMeta(w, r, http.StatusOK, items, &ResponseMeta{
		Limit:   page.Limit,
		Offset:  page.Offset,
		HasMore: len(items) == page.Limit,
	})
}
