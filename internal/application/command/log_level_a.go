package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/application/query"
	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/levela"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LOG LEVEL A COMMAND
// Records a brief coaching intervention. Pattern and same-day flags are
// computed at write time and snapshotted onto the record.
// ══════════════════════════════════════════════════════════════════════════════

// LogLevelACommand contains the data to log an intervention.
type LogLevelACommand struct {
	StudentID           shared.StudentID
	DomainID            shared.DomainID
	Staff               shared.StaffRef
	InterventionType    levela.InterventionType
	BehaviorDescription string
	Location            string
	Outcome             levela.Outcome
	AffectedOthers      bool

	// EventTimestamp defaults to now when zero and must not be after now.
	EventTimestamp time.Time
}

// Validate validates the command against the current time.
func (c LogLevelACommand) Validate(now time.Time) error {
	if !c.StudentID.IsValid() {
		return shared.ErrEmptyStudentID
	}
	if !c.DomainID.IsValid() {
		return shared.ErrEmptyDomainID
	}
	if !c.Staff.ID.IsValid() {
		return shared.NewDomainError("levela", "Log", shared.ErrEmptyValue, "staff_id is required")
	}
	if !c.InterventionType.IsValid() {
		return shared.ErrInvalidInterventionType
	}
	if !c.Outcome.IsValid() {
		return shared.ErrInvalidOutcome
	}
	if c.EventTimestamp.After(now) {
		return shared.ErrFutureEventTimestamp
	}
	return nil
}

// LogLevelAHandler handles LogLevelACommand.
type LogLevelAHandler struct {
	repo     levela.Repository
	catalog  catalog.Catalog
	detector *query.PatternDetector
	deps     Deps
}

// NewLogLevelAHandler creates a new LogLevelAHandler.
func NewLogLevelAHandler(repo levela.Repository, cat catalog.Catalog, detector *query.PatternDetector, deps Deps) *LogLevelAHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("level_a"))
	return &LogLevelAHandler{
		repo:     repo,
		catalog:  cat,
		detector: detector,
		deps:     deps,
	}
}

// Handle executes the command.
func (h *LogLevelAHandler) Handle(ctx context.Context, cmd LogLevelACommand) (*levela.Intervention, error) {
	if err := cmd.Validate(h.deps.now()); err != nil {
		return nil, err
	}

	if _, err := h.catalog.GetByID(ctx, cmd.DomainID); err != nil {
		return nil, err
	}

	isPattern, err := h.detector.HasPattern(ctx, cmd.StudentID, cmd.DomainID, 0)
	if err != nil {
		return nil, h.fail("pattern", cmd, err)
	}
	todayCount, err := h.detector.CountToday(ctx, cmd.StudentID, cmd.DomainID)
	if err != nil {
		return nil, h.fail("same_day", cmd, err)
	}

	ts := cmd.EventTimestamp
	if ts.IsZero() {
		ts = h.deps.now()
	}

	intervention, err := levela.NewIntervention(levela.NewInterventionParams{
		ID:                  h.deps.NewID(),
		StudentID:           cmd.StudentID,
		DomainID:            cmd.DomainID,
		Staff:               cmd.Staff,
		InterventionType:    cmd.InterventionType,
		BehaviorDescription: cmd.BehaviorDescription,
		Location:            cmd.Location,
		Outcome:             cmd.Outcome,
		AffectedOthers:      cmd.AffectedOthers,
		IsPatternStudent:    isPattern,
		IsRepeatedSameDay:   todayCount > 0,
		EventTimestamp:      ts,
	})
	if err != nil {
		return nil, err
	}

	if err := h.repo.Create(ctx, intervention); err != nil {
		return nil, h.fail("create", cmd, err)
	}

	h.deps.Logger.Info("level A intervention logged",
		logger.InterventionID(intervention.ID),
		logger.StudentID(cmd.StudentID.String()),
		logger.DomainID(cmd.DomainID.String()),
		logger.Bool("is_pattern_student", isPattern),
		logger.Bool("escalated_to_b", intervention.EscalatedToB),
	)

	h.deps.publish(shared.LevelALoggedEvent{
		BaseEvent:        shared.NewBaseEvent(shared.EventLevelALogged, intervention.ID, h.deps.now()),
		StudentID:        intervention.StudentID.String(),
		DomainID:         intervention.DomainID.String(),
		StaffID:          intervention.StaffID.String(),
		InterventionType: string(intervention.InterventionType),
		Outcome:          string(intervention.Outcome),
		IsPatternStudent: intervention.IsPatternStudent,
		EscalatedToB:     intervention.EscalatedToB,
	})

	return intervention, nil
}

func (h *LogLevelAHandler) fail(step string, cmd LogLevelACommand, err error) error {
	h.deps.Logger.Error("log level A failed",
		logger.String("step", step),
		logger.StudentID(cmd.StudentID.String()),
		logger.ErrorCategory(shared.Category(err)),
		logger.Err(err),
	)
	return fmt.Errorf("log level A: %w", err)
}

// ══════════════════════════════════════════════════════════════════════════════
// SET LEVEL A OUTCOME COMMAND
// ══════════════════════════════════════════════════════════════════════════════

// SetLevelAOutcomeCommand changes the outcome of an existing intervention.
type SetLevelAOutcomeCommand struct {
	ID           string
	Outcome      levela.Outcome
	EscalatedToB bool
}

// Validate validates the command.
func (c SetLevelAOutcomeCommand) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return shared.NewDomainError("levela", "SetOutcome", shared.ErrInvalidID, "intervention id is required")
	}
	if !c.Outcome.IsValid() {
		return shared.ErrInvalidOutcome
	}
	return nil
}

// SetLevelAOutcomeHandler handles SetLevelAOutcomeCommand.
type SetLevelAOutcomeHandler struct {
	repo levela.Repository
	deps Deps
}

// NewSetLevelAOutcomeHandler creates a new SetLevelAOutcomeHandler.
func NewSetLevelAOutcomeHandler(repo levela.Repository, deps Deps) *SetLevelAOutcomeHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("level_a"))
	return &SetLevelAOutcomeHandler{repo: repo, deps: deps}
}

// Handle updates only outcome and escalated_to_b and returns the updated record.
func (h *SetLevelAOutcomeHandler) Handle(ctx context.Context, cmd SetLevelAOutcomeCommand) (*levela.Intervention, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	intervention, err := h.repo.GetByID(ctx, cmd.ID)
	if err != nil {
		return nil, err
	}
	if err := intervention.SetOutcome(cmd.Outcome, cmd.EscalatedToB); err != nil {
		return nil, err
	}
	if err := h.repo.UpdateOutcome(ctx, cmd.ID, cmd.Outcome, cmd.EscalatedToB); err != nil {
		h.deps.Logger.Error("set outcome failed",
			logger.InterventionID(cmd.ID),
			logger.ErrorCategory(shared.Category(err)),
			logger.Err(err),
		)
		return nil, fmt.Errorf("set level A outcome: %w", err)
	}

	h.deps.Logger.Info("level A outcome updated",
		logger.InterventionID(cmd.ID),
		logger.String("outcome", string(cmd.Outcome)),
	)
	h.deps.publish(shared.LevelAOutcomeSetEvent{
		BaseEvent:    shared.NewBaseEvent(shared.EventLevelAOutcomeSet, cmd.ID, h.deps.now()),
		Outcome:      string(cmd.Outcome),
		EscalatedToB: cmd.EscalatedToB,
	})

	return intervention, nil
}
