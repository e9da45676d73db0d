package http

import (
	"net/http"

	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/escalation"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Healthy {
		writeJSON(w, r, http.StatusServiceUnavailable, status)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// handleReady handles the readiness probe endpoint (for Kubernetes).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := s.deps.HealthChecker.Check(r.Context())
	if !status.Ready {
		writeJSONError(w, r, http.StatusServiceUnavailable, "not_ready", status.Message)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
}

// handleLive handles the liveness probe endpoint (for Kubernetes).
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN CATALOG HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleListDomains handles GET /api/v1/domains
func (s *Server) handleListDomains(w http.ResponseWriter, r *http.Request) {
	domains, err := s.deps.Domains.ListActive(r.Context())
	if err != nil {
		s.writeDomainError(w, r, "list_domains", err)
		return
	}
	writeJSONWithMeta(w, r, http.StatusOK, domains, &ResponseMeta{TotalCount: len(domains)})
}

// handleGetDomain handles GET /api/v1/domains/{domainID}
func (s *Server) handleGetDomain(w http.ResponseWriter, r *http.Request) {
	d, err := s.deps.Domains.Get(r.Context(), shared.DomainID(pathParam(r, "domainID")))
	if err != nil {
		s.writeDomainError(w, r, "get_domain", err)
		return
	}
	writeJSON(w, r, http.StatusOK, d)
}

// ══════════════════════════════════════════════════════════════════════════════
// DECISION TREE HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// handleDecide handles POST /api/v1/escalation/decide
// Body: escalation.IncidentAssessment.
func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	var a escalation.IncidentAssessment
	if !decodeJSON(w, r, &a) {
		return
	}

	result, err := s.deps.Decisions.Decide(r.Context(), a)
	if err != nil {
		s.writeDomainError(w, r, "decide", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}

// shouldLogRequest is the body of POST /api/v1/escalation/should-log-level-a.
type shouldLogRequest struct {
	StudentID      shared.StudentID `json:"student_id"`
	DomainID       shared.DomainID  `json:"domain_id"`
	AffectedOthers bool             `json:"affected_others"`
}

// handleShouldLogLevelA handles POST /api/v1/escalation/should-log-level-a
func (s *Server) handleShouldLogLevelA(w http.ResponseWriter, r *http.Request) {
	var req shouldLogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := s.deps.Decisions.ShouldLogLevelA(r.Context(), query.ShouldLogLevelAQuery{
		StudentID:      req.StudentID,
		DomainID:       req.DomainID,
		AffectedOthers: req.AffectedOthers,
	})
	if err != nil {
		s.writeDomainError(w, r, "should_log_level_a", err)
		return
	}
	writeJSON(w, r, http.StatusOK, result)
}
