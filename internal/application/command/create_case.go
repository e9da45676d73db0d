package command

import (
	"context"
	"fmt"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// CREATE LEVEL C CASE COMMAND
// Opens a case in status active. Case type and monitoring duration are derived
// from the trigger unless the case type is supplied. Level B records the case
// escalates from are marked escalated_to_c in the same transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CreateCaseCommand contains the data to open a case.
type CreateCaseCommand struct {
	StudentID              shared.StudentID
	CaseManager            shared.StaffRef
	TriggerType            levelc.TriggerType
	CaseType               levelc.CaseType
	DomainFocusID          shared.DomainID
	EscalatedFromLevelBIDs []string
	SISDemeritPoints       *int
}

// Validate validates the command.
func (c CreateCaseCommand) Validate() error {
	if !c.StudentID.IsValid() {
		return shared.ErrEmptyStudentID
	}
	if !c.TriggerType.IsValid() {
		return shared.ErrInvalidTriggerType
	}
	if c.CaseType != "" && !c.CaseType.IsValid() {
		return shared.ErrInvalidCaseType
	}
	return nil
}

// CreateCaseHandler handles CreateCaseCommand.
type CreateCaseHandler struct {
	repo    levelc.Repository
	levelB  levelb.Store
	catalog catalog.Catalog
	tx      shared.Transactor
	deps    Deps
}

// NewCreateCaseHandler creates a new CreateCaseHandler.
func NewCreateCaseHandler(
	repo levelc.Repository,
	levelB levelb.Store,
	cat catalog.Catalog,
	tx shared.Transactor,
	deps Deps,
) *CreateCaseHandler {
	deps = deps.withDefaults()
	deps.Logger = deps.Logger.With(logger.Component("level_c"))
	return &CreateCaseHandler{
		repo:    repo,
		levelB:  levelB,
		catalog: cat,
		tx:      tx,
		deps:    deps,
	}
}

// Handle executes the command.
func (h *CreateCaseHandler) Handle(ctx context.Context, cmd CreateCaseCommand) (*levelc.Case, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	if cmd.DomainFocusID != "" {
		if _, err := h.catalog.GetByID(ctx, cmd.DomainFocusID); err != nil {
			return nil, err
		}
	}

	c, err := levelc.NewCase(levelc.NewCaseParams{
		ID:                     h.deps.NewID(),
		StudentID:              cmd.StudentID,
		CaseManager:            cmd.CaseManager,
		TriggerType:            cmd.TriggerType,
		CaseType:               cmd.CaseType,
		DomainFocusID:          cmd.DomainFocusID,
		EscalatedFromLevelBIDs: cmd.EscalatedFromLevelBIDs,
		SISDemeritPoints:       cmd.SISDemeritPoints,
		Now:                    h.deps.now(),
	})
	if err != nil {
		return nil, err
	}

	err = h.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := h.repo.Create(ctx, c); err != nil {
			return err
		}
		if len(c.EscalatedFromLevelBIDs) > 0 {
			if err := h.levelB.MarkEscalated(ctx, c.EscalatedFromLevelBIDs); err != nil {
				return fmt.Errorf("mark level B escalated: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		h.deps.Logger.Error("create case failed",
			logger.StudentID(cmd.StudentID.String()),
			logger.ErrorCategory(shared.Category(err)),
			logger.Err(err),
		)
		return nil, fmt.Errorf("create case: %w", err)
	}

	h.deps.Logger.Info("level C case created",
		logger.CaseID(c.ID),
		logger.StudentID(c.StudentID.String()),
		logger.String("case_type", string(c.CaseType)),
		logger.Int("monitoring_duration_days", c.MonitoringDurationDays),
	)
	h.deps.publish(caseEvent(shared.EventCaseCreated, c, string(c.TriggerType), h.deps.now()))

	return c, nil
}
