// Package escalation содержит модель дерева решений эскалации:
// входную оценку инцидента, рекомендуемый уровень и набор причин.
// Пакет чистый - чтение хранилища выполняет слой application.
package escalation

import (
	"fmt"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// Level - уровень реагирования.
type Level string

const (
	// LevelA - коучинг в моменте.
	LevelA Level = "A"
	// LevelB - структурированный reset (внешний процесс).
	LevelB Level = "B"
	// LevelC - интенсивное ведение кейса.
	LevelC Level = "C"
)

// IsValid проверяет, что уровень корректен.
func (l Level) IsValid() bool {
	switch l {
	case LevelA, LevelB, LevelC:
		return true
	default:
		return false
	}
}

// String возвращает строковое представление уровня.
func (l Level) String() string {
	return string(l)
}

// ══════════════════════════════════════════════════════════════════════════════
// REASONS
// Порядок причин значим для отображения и должен сохраняться.
// ══════════════════════════════════════════════════════════════════════════════

const (
	ReasonSafetyIncident  = "Safety incident detected"
	ReasonDemerit         = "Demerit assigned"
	ReasonIgnoredPrompts  = "Ignored 2+ prompts"
	ReasonAffectedPeers   = "Affected peers"
	ReasonDisruptedSpace  = "Disrupted shared space"
	ReasonSafetyRisk      = "Safety risk"
	ReasonNoTriggers      = "No escalation triggers present"
	ReasonAffectedOthers  = "Affected other students"
	ReasonKnownPattern    = "Known pattern student"
	ReasonRepeatedSameDay = "Repeated incident same day"
	ReasonFirstMinor      = "First minor incident of the day"
)

// PatternReason формирует причину для студента с паттерном.
func PatternReason(threshold, windowDays int) string {
	return fmt.Sprintf("Pattern student (%d+ incidents in %d days)", threshold, windowDays)
}

// PriorLevelBReason формирует причину эскалации в C по числу попыток Level B.
func PriorLevelBReason(count int) string {
	return fmt.Sprintf("Prior Level B attempts: %d", count)
}

// ══════════════════════════════════════════════════════════════════════════════
// POLICY
// ══════════════════════════════════════════════════════════════════════════════

// Policy - пороги дерева решений.
type Policy struct {
	// PatternWindowDays - длина скользящего окна в днях (включительно).
	PatternWindowDays int
	// PatternThreshold - минимум инцидентов Level A в окне.
	PatternThreshold int
	// IgnoredPromptsThreshold - сколько проигнорированных подсказок считается триггером.
	IgnoredPromptsThreshold int
	// PriorLevelBThreshold - столько завершённых Level B ведут сразу в C.
	PriorLevelBThreshold int
}

// DefaultPolicy возвращает пороги по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		PatternWindowDays:       10,
		PatternThreshold:        3,
		IgnoredPromptsThreshold: 2,
		PriorLevelBThreshold:    2,
	}
}

// Normalize подставляет значения по умолчанию вместо нулевых.
func (p Policy) Normalize() Policy {
	def := DefaultPolicy()
	if p.PatternWindowDays <= 0 {
		p.PatternWindowDays = def.PatternWindowDays
	}
	if p.PatternThreshold <= 0 {
		p.PatternThreshold = def.PatternThreshold
	}
	if p.IgnoredPromptsThreshold <= 0 {
		p.IgnoredPromptsThreshold = def.IgnoredPromptsThreshold
	}
	if p.PriorLevelBThreshold <= 0 {
		p.PriorLevelBThreshold = def.PriorLevelBThreshold
	}
	return p
}

// ══════════════════════════════════════════════════════════════════════════════
// INCIDENT ASSESSMENT
// ══════════════════════════════════════════════════════════════════════════════

// IncidentAssessment - входные данные одной оценки. Не сохраняется.
type IncidentAssessment struct {
	StudentID        shared.StudentID `json:"student_id"`
	DomainID         shared.DomainID  `json:"domain_id"`
	IsSafetyIncident bool             `json:"is_safety_incident"`
	DemeritAssigned  bool             `json:"demerit_assigned"`
	IgnoredPrompts   int              `json:"ignored_prompts"`
	AffectedPeers    bool             `json:"affected_peers"`
	DisruptedSpace   bool             `json:"disrupted_space"`
	IsSafetyRisk     bool             `json:"is_safety_risk"`
}

// Validate проверяет идентификаторы и счётчики.
func (a IncidentAssessment) Validate() error {
	if !a.StudentID.IsValid() {
		return shared.ErrEmptyStudentID
	}
	if !a.DomainID.IsValid() {
		return shared.ErrEmptyDomainID
	}
	if a.IgnoredPrompts < 0 {
		return shared.ErrNegativeIgnoredPrompt
	}
	return nil
}

// TriggerReasons собирает причины эскалации в фиксированном порядке:
// замечание, подсказки, паттерн, сверстники, пространство, риск.
func (a IncidentAssessment) TriggerReasons(isPattern bool, p Policy) []string {
	p = p.Normalize()
	reasons := make([]string, 0, 6)
	if a.DemeritAssigned {
		reasons = append(reasons, ReasonDemerit)
	}
	if a.IgnoredPrompts >= p.IgnoredPromptsThreshold {
		reasons = append(reasons, ReasonIgnoredPrompts)
	}
	if isPattern {
		reasons = append(reasons, PatternReason(p.PatternThreshold, p.PatternWindowDays))
	}
	if a.AffectedPeers {
		reasons = append(reasons, ReasonAffectedPeers)
	}
	if a.DisruptedSpace {
		reasons = append(reasons, ReasonDisruptedSpace)
	}
	if a.IsSafetyRisk {
		reasons = append(reasons, ReasonSafetyRisk)
	}
	return reasons
}

// ══════════════════════════════════════════════════════════════════════════════
// RESULTS
// ══════════════════════════════════════════════════════════════════════════════

// DecisionTreeResult - рекомендация дерева решений. Создаётся заново на каждый вызов.
type DecisionTreeResult struct {
	RecommendedLevel Level    `json:"recommended_level"`
	Reasons          []string `json:"reasons"`
	IsPatternStudent bool     `json:"is_pattern_student"`
	PriorLevelBCount int      `json:"prior_level_b_count"`
}

// SafetyResult - немедленный результат для инцидента безопасности.
func SafetyResult() DecisionTreeResult {
	return DecisionTreeResult{
		RecommendedLevel: LevelC,
		Reasons:          []string{ReasonSafetyIncident},
	}
}

// Classify выбирает уровень по собранным причинам и числу попыток Level B.
// Вызывать только с непустым списком причин.
func Classify(reasons []string, isPattern bool, priorLevelB int, p Policy) DecisionTreeResult {
	p = p.Normalize()
	result := DecisionTreeResult{
		RecommendedLevel: LevelB,
		Reasons:          append([]string(nil), reasons...),
		IsPatternStudent: isPattern,
		PriorLevelBCount: priorLevelB,
	}
	if priorLevelB >= p.PriorLevelBThreshold {
		result.RecommendedLevel = LevelC
		result.Reasons = append(result.Reasons, PriorLevelBReason(priorLevelB))
	}
	return result
}

// NoEscalationResult - результат без триггеров.
func NoEscalationResult(isPattern bool) DecisionTreeResult {
	return DecisionTreeResult{
		RecommendedLevel: LevelA,
		Reasons:          []string{ReasonNoTriggers},
		IsPatternStudent: isPattern,
	}
}

// ShouldLogResult - ответ фильтра журналирования Level A.
type ShouldLogResult struct {
	ShouldLog bool   `json:"should_log"`
	Reason    string `json:"reason"`
}
