package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVEL C LIFECYCLE COMMANDS
// Every transition is one read-modify-write: read the case, apply the domain
// method, write back only if the stored version is unchanged. A lost race
// surfaces as shared.ErrCaseVersionConflict; the caller rereads and retries.
// ══════════════════════════════════════════════════════════════════════════════

// CaseLifecycleConfig contains configuration for the lifecycle handler.
type CaseLifecycleConfig struct {
	// ReviewStrideDays is the step between generated check-in dates.
	ReviewStrideDays int
}

// DefaultCaseLifecycleConfig returns default configuration.
func DefaultCaseLifecycleConfig() CaseLifecycleConfig {
	return CaseLifecycleConfig{ReviewStrideDays: levelc.DefaultReviewStrideDays}
}

// CaseLifecycleHandler drives a case through its phases.
type CaseLifecycleHandler struct {
	repo   levelc.Repository
	policy PolicySource
	deps   Deps
	config CaseLifecycleConfig
}

// NewCaseLifecycleHandler creates a new CaseLifecycleHandler.
func NewCaseLifecycleHandler(repo levelc.Repository, policy PolicySource, deps Deps, config CaseLifecycleConfig) *CaseLifecycleHandler {
	if config.ReviewStrideDays <= 0 {
		config.ReviewStrideDays = levelc.DefaultReviewStrideDays
	}
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("level_c"))
	return &CaseLifecycleHandler{
		repo:   repo,
		policy: policy,
		deps:   deps,
		config: config,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Context packet
// ─────────────────────────────────────────────────────────────────────────────

// UpdateContextPacketCommand merges the non-nil fields into the packet.
type UpdateContextPacketCommand struct {
	CaseID                    string
	IncidentSummary           *string
	PatternReview             *string
	EnvironmentalFactors      []string
	PriorInterventionsSummary *string
}

// UpdateContextPacket merges fields; a complete packet advances the case to admin_response.
func (h *CaseLifecycleHandler) UpdateContextPacket(ctx context.Context, cmd UpdateContextPacketCommand) (*levelc.Case, error) {
	return h.mutate(ctx, "update_context_packet", cmd.CaseID, func(c *levelc.Case, now time.Time) ([]shared.Event, error) {
		completed, err := c.UpdateContextPacket(levelc.ContextPacketUpdate{
			IncidentSummary:           cmd.IncidentSummary,
			PatternReview:             cmd.PatternReview,
			EnvironmentalFactors:      cmd.EnvironmentalFactors,
			PriorInterventionsSummary: cmd.PriorInterventionsSummary,
		}, now)
		if err != nil || !completed {
			return nil, err
		}
		return []shared.Event{caseEvent(shared.EventCaseContextPacketComplete, c, "", now)}, nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Admin response
// ─────────────────────────────────────────────────────────────────────────────

// RecordAdminResponseCommand contains the administrative response.
type RecordAdminResponseCommand struct {
	CaseID               string
	Type                 levelc.AdminResponseType
	Details              string
	ConsequenceStartDate *shared.Date
	ConsequenceEndDate   *shared.Date
}

// RecordAdminResponse records the response and moves the case to pending_reentry.
func (h *CaseLifecycleHandler) RecordAdminResponse(ctx context.Context, cmd RecordAdminResponseCommand) (*levelc.Case, error) {
	policy := phasePolicy(h.policy)
	return h.mutate(ctx, "record_admin_response", cmd.CaseID, func(c *levelc.Case, now time.Time) ([]shared.Event, error) {
		err := c.RecordAdminResponse(levelc.AdminResponseInput{
			Type:                 cmd.Type,
			Details:              cmd.Details,
			ConsequenceStartDate: cmd.ConsequenceStartDate,
			ConsequenceEndDate:   cmd.ConsequenceEndDate,
		}, policy, now)
		if err != nil {
			return nil, err
		}
		return []shared.Event{caseEvent(shared.EventCaseAdminResponseRecorded, c, string(cmd.Type), now)}, nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Re-entry plan
// ─────────────────────────────────────────────────────────────────────────────

// CreateReentryPlanCommand contains the re-entry and support plan.
type CreateReentryPlanCommand struct {
	CaseID                string
	SupportPlanGoal       string
	SupportPlanStrategies []string
	AdultMentor           shared.StaffRef
	RepairActions         []levelc.RepairAction
	ReentryDate           *shared.Date
	ReentryType           levelc.ReentryType
	ReentryRestrictions   []string

	// ReentryChecklist gets the default four items when empty.
	ReentryChecklist []levelc.ReadinessChecklistItem
}

// CreateReentryPlan stores the plan. The status stays pending_reentry.
func (h *CaseLifecycleHandler) CreateReentryPlan(ctx context.Context, cmd CreateReentryPlanCommand) (*levelc.Case, error) {
	policy := phasePolicy(h.policy)
	return h.mutate(ctx, "create_reentry_plan", cmd.CaseID, func(c *levelc.Case, now time.Time) ([]shared.Event, error) {
		err := c.CreateReentryPlan(levelc.ReentryPlanInput{
			SupportPlanGoal:       cmd.SupportPlanGoal,
			SupportPlanStrategies: cmd.SupportPlanStrategies,
			AdultMentor:           cmd.AdultMentor,
			RepairActions:         cmd.RepairActions,
			ReentryDate:           cmd.ReentryDate,
			ReentryType:           cmd.ReentryType,
			ReentryRestrictions:   cmd.ReentryRestrictions,
			ReentryChecklist:      cmd.ReentryChecklist,
		}, policy, now)
		if err != nil {
			return nil, err
		}
		return []shared.Event{caseEvent(shared.EventCaseReentryPlanned, c, c.ReentryPlan.ReentryDate.String(), now)}, nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Monitoring
// ─────────────────────────────────────────────────────────────────────────────

// StartMonitoring generates the review schedule and moves the case to monitoring.
func (h *CaseLifecycleHandler) StartMonitoring(ctx context.Context, caseID string) (*levelc.Case, error) {
	policy := phasePolicy(h.policy)
	today := h.deps.today()
	return h.mutate(ctx, "start_monitoring", caseID, func(c *levelc.Case, now time.Time) ([]shared.Event, error) {
		if err := c.StartMonitoring(today, h.config.ReviewStrideDays, policy, now); err != nil {
			return nil, err
		}
		detail := ""
		if n := len(c.Monitoring.ReviewDates); n > 0 {
			detail = c.Monitoring.ReviewDates[n-1].String()
		}
		return []shared.Event{caseEvent(shared.EventCaseMonitoringStarted, c, detail, now)}, nil
	})
}

// LogCheckInCommand appends one daily check-in.
type LogCheckInCommand struct {
	CaseID   string
	Date     shared.Date // defaults to today
	Notes    string
	LoggedBy shared.StaffRef
}

// LogCheckIn appends a check-in without touching the status.
func (h *CaseLifecycleHandler) LogCheckIn(ctx context.Context, cmd LogCheckInCommand) (*levelc.Case, error) {
	date := cmd.Date
	if date.IsZero() {
		date = h.deps.today()
	}
	return h.mutate(ctx, "log_check_in", cmd.CaseID, func(c *levelc.Case, now time.Time) ([]shared.Event, error) {
		err := c.LogCheckIn(levelc.DailyCheckIn{
			Date:     date,
			Notes:    cmd.Notes,
			LoggedBy: cmd.LoggedBy,
			LoggedAt: now.UTC(),
		}, now)
		if err != nil {
			return nil, err
		}
		return []shared.Event{caseEvent(shared.EventCaseCheckInLogged, c, date.String(), now)}, nil
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Closure
// ─────────────────────────────────────────────────────────────────────────────

// CloseCaseCommand closes the case.
type CloseCaseCommand struct {
	CaseID          string
	OutcomeStatus   levelc.OutcomeStatus
	Notes           string
	ClosureCriteria string
}

// Close moves the case to the terminal status closed with closure_date = today.
func (h *CaseLifecycleHandler) Close(ctx context.Context, cmd CloseCaseCommand) (*levelc.Case, error) {
	today := h.deps.today()
	return h.mutate(ctx, "close_case", cmd.CaseID, func(c *levelc.Case, now time.Time) ([]shared.Event, error) {
		err := c.Close(levelc.CloseInput{
			OutcomeStatus:   cmd.OutcomeStatus,
			Notes:           cmd.Notes,
			ClosureCriteria: cmd.ClosureCriteria,
		}, today, now)
		if err != nil {
			return nil, err
		}
		return []shared.Event{caseEvent(shared.EventCaseClosed, c, string(cmd.OutcomeStatus), now)}, nil
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type transition func(c *levelc.Case, now time.Time) ([]shared.Event, error)

// mutate reads the case, applies fn and writes it back with a version check.
func (h *CaseLifecycleHandler) mutate(ctx context.Context, op, caseID string, fn transition) (*levelc.Case, error) {
	log := h.deps.Logger.With(logger.Operation(op), logger.CaseID(caseID))

	if strings.TrimSpace(caseID) == "" {
		return nil, shared.NewDomainError("levelc", op, shared.ErrInvalidID, "case id is required")
	}

	c, err := h.repo.GetByID(ctx, caseID)
	if err != nil {
		log.Warn("case lookup failed", logger.ErrorCategory(shared.Category(err)), logger.Err(err))
		return nil, err
	}

	from := c.Status
	now := h.deps.now()
	events, err := fn(c, now)
	if err != nil {
		log.Warn("transition rejected",
			logger.Status(string(from)),
			logger.ErrorCategory(shared.Category(err)),
			logger.Err(err),
		)
		return nil, err
	}

	if err := h.repo.Update(ctx, c); err != nil {
		log.Error("case update failed", logger.ErrorCategory(shared.Category(err)), logger.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("case updated",
		logger.String("from_status", string(from)),
		logger.Status(string(c.Status)),
		logger.Int("version", c.Version),
	)
	h.deps.publish(events...)

	return c, nil
}

func caseEvent(eventType shared.EventType, c *levelc.Case, detail string, now time.Time) shared.CaseEvent {
	return shared.CaseEvent{
		BaseEvent:     shared.NewBaseEvent(eventType, c.ID, now),
		StudentID:     c.StudentID.String(),
		CaseManagerID: c.CaseManagerID.String(),
		Status:        string(c.Status),
		CaseType:      string(c.CaseType),
		Detail:        detail,
	}
}
