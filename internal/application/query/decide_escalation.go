package query

import (
	"context"
	"fmt"

	"github.com/behavior-hub/behavior-hub/internal/domain/catalog"
	"github.com/behavior-hub/behavior-hub/internal/domain/escalation"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// DECIDE ESCALATION QUERY
// Дерево решений: по оценке инцидента рекомендует уровень A, B или C.
// Порядок шагов строгий и с коротким замыканием:
//  1. инцидент безопасности - сразу C, счётчики не читаются;
//  2. паттерн студента;
//  3. причины эскалации в фиксированном порядке;
//  4. есть причины - считаем Level B: >= порога - C, иначе B;
//  5. причин нет - A.
// Любая ошибка чтения прерывает оценку: уровень по умолчанию не выбирается.
// ══════════════════════════════════════════════════════════════════════════════

// DecideEscalationHandler обрабатывает оценку инцидента.
type DecideEscalationHandler struct {
	catalog   catalog.Catalog
	detector  *PatternDetector
	counter   *LevelBCounter
	publisher shared.EventPublisher
	log       *logger.Logger
}

// NewDecideEscalationHandler создаёт обработчик дерева решений.
func NewDecideEscalationHandler(
	cat catalog.Catalog,
	detector *PatternDetector,
	counter *LevelBCounter,
	publisher shared.EventPublisher,
	log *logger.Logger,
) *DecideEscalationHandler {
	if publisher == nil {
		publisher = shared.NopPublisher{}
	}
	if log == nil {
		log = logger.Default()
	}
	return &DecideEscalationHandler{
		catalog:   cat,
		detector:  detector,
		counter:   counter,
		publisher: publisher,
		log:       log.With(logger.Component("decision_tree")),
	}
}

// Decide оценивает инцидент.
func (h *DecideEscalationHandler) Decide(ctx context.Context, a escalation.IncidentAssessment) (*escalation.DecisionTreeResult, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}

	if a.IsSafetyIncident {
		result := escalation.SafetyResult()
		h.publishDecision(a, result)
		return &result, nil
	}

	if _, err := h.catalog.GetByID(ctx, a.DomainID); err != nil {
		return nil, err
	}

	policy := h.detector.Policy()
	isPattern, err := h.detector.HasPattern(ctx, a.StudentID, a.DomainID, policy.PatternWindowDays)
	if err != nil {
		return nil, h.fail("pattern", a, err)
	}

	reasons := a.TriggerReasons(isPattern, policy)
	if len(reasons) == 0 {
		result := escalation.NoEscalationResult(isPattern)
		h.publishDecision(a, result)
		return &result, nil
	}

	priorB, err := h.counter.CountCompleted(ctx, a.StudentID, a.DomainID)
	if err != nil {
		return nil, h.fail("level_b_count", a, err)
	}

	result := escalation.Classify(reasons, isPattern, priorB, policy)
	h.publishDecision(a, result)
	return &result, nil
}

// ShouldLogLevelAQuery - параметры фильтра журналирования.
type ShouldLogLevelAQuery struct {
	StudentID      shared.StudentID
	DomainID       shared.DomainID
	AffectedOthers bool
}

// ShouldLogLevelA решает, стоит ли записывать инцидент Level A.
// Пропускаются только изолированные первые за день инциденты без паттерна.
func (h *DecideEscalationHandler) ShouldLogLevelA(ctx context.Context, q ShouldLogLevelAQuery) (*escalation.ShouldLogResult, error) {
	if err := validatePair(q.StudentID, q.DomainID); err != nil {
		return nil, err
	}
	if _, err := h.catalog.GetByID(ctx, q.DomainID); err != nil {
		return nil, err
	}

	if q.AffectedOthers {
		return &escalation.ShouldLogResult{ShouldLog: true, Reason: escalation.ReasonAffectedOthers}, nil
	}

	isPattern, err := h.detector.HasPattern(ctx, q.StudentID, q.DomainID, 0)
	if err != nil {
		return nil, fmt.Errorf("should log level A: %w", err)
	}
	if isPattern {
		return &escalation.ShouldLogResult{ShouldLog: true, Reason: escalation.ReasonKnownPattern}, nil
	}

	today, err := h.detector.CountToday(ctx, q.StudentID, q.DomainID)
	if err != nil {
		return nil, fmt.Errorf("should log level A: %w", err)
	}
	if today > 0 {
		return &escalation.ShouldLogResult{ShouldLog: true, Reason: escalation.ReasonRepeatedSameDay}, nil
	}

	return &escalation.ShouldLogResult{ShouldLog: false, Reason: escalation.ReasonFirstMinor}, nil
}

func (h *DecideEscalationHandler) fail(step string, a escalation.IncidentAssessment, err error) error {
	h.log.Error("decision aborted",
		logger.String("step", step),
		logger.StudentID(a.StudentID.String()),
		logger.DomainID(a.DomainID.String()),
		logger.ErrorCategory(shared.Category(err)),
		logger.Err(err),
	)
	return fmt.Errorf("decide escalation: %w", err)
}

// publishDecision логирует и публикует результат. Ошибка публикации только логируется.
func (h *DecideEscalationHandler) publishDecision(a escalation.IncidentAssessment, r escalation.DecisionTreeResult) {
	h.log.Info("escalation decided",
		logger.StudentID(a.StudentID.String()),
		logger.DomainID(a.DomainID.String()),
		logger.EscalationLevel(r.RecommendedLevel.String()),
		logger.Int("reasons", len(r.Reasons)),
		logger.Bool("is_pattern_student", r.IsPatternStudent),
	)
	event := shared.EscalationDecidedEvent{
		BaseEvent:        shared.NewBaseEvent(shared.EventEscalationDecided, a.StudentID.String(), h.detector.Now()),
		StudentID:        a.StudentID.String(),
		DomainID:         a.DomainID.String(),
		Level:            r.RecommendedLevel.String(),
		Reasons:          r.Reasons,
		IsPatternStudent: r.IsPatternStudent,
		PriorLevelBCount: r.PriorLevelBCount,
	}
	if err := h.publisher.Publish(event); err != nil {
		h.log.Warn("failed to publish decision", logger.StudentID(a.StudentID.String()), logger.Err(err))
	}
}
