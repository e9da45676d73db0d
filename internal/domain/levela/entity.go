// Package levela содержит доменную модель вмешательств Level A -
// коротких коучинговых приёмов учителя в моменте.
package levela

import (
	"strings"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// InterventionType - один из восьми коучинговых приёмов.
type InterventionType string

const (
	InterventionPrompt              InterventionType = "prompt"
	InterventionProximity           InterventionType = "proximity"
	InterventionRedirect            InterventionType = "redirect"
	InterventionPrivateConversation InterventionType = "private_conversation"
	InterventionOfferChoice         InterventionType = "offer_choice"
	InterventionReteachExpectation  InterventionType = "reteach_expectation"
	InterventionPositiveNarration   InterventionType = "positive_narration"
	InterventionBriefBreak          InterventionType = "brief_break"
)

// InterventionTypes возвращает все приёмы в порядке отображения.
func InterventionTypes() []InterventionType {
	return []InterventionType{
		InterventionPrompt,
		InterventionProximity,
		InterventionRedirect,
		InterventionPrivateConversation,
		InterventionOfferChoice,
		InterventionReteachExpectation,
		InterventionPositiveNarration,
		InterventionBriefBreak,
	}
}

// IsValid проверяет, что приём входит в перечисление.
func (t InterventionType) IsValid() bool {
	for _, v := range InterventionTypes() {
		if v == t {
			return true
		}
	}
	return false
}

// Outcome - результат вмешательства.
type Outcome string

const (
	// OutcomeComplied - ученик выполнил требование.
	OutcomeComplied Outcome = "complied"
	// OutcomeEscalated - поведение усилилось, нужен Level B.
	OutcomeEscalated Outcome = "escalated"
	// OutcomePartial - выполнил частично.
	OutcomePartial Outcome = "partial"
)

// IsValid проверяет, что результат корректен.
func (o Outcome) IsValid() bool {
	switch o {
	case OutcomeComplied, OutcomeEscalated, OutcomePartial:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: INTERVENTION
// ══════════════════════════════════════════════════════════════════════════════

// Intervention - запись Level A. Неизменяема, кроме Outcome и EscalatedToB.
// IsPatternStudent и IsRepeatedSameDay фиксируются в момент записи.
type Intervention struct {
	ID                  string           `json:"id"`
	StudentID           shared.StudentID `json:"student_id"`
	StaffID             shared.StaffID   `json:"staff_id"`
	StaffName           string           `json:"staff_name"`
	DomainID            shared.DomainID  `json:"domain_id"`
	InterventionType    InterventionType `json:"intervention_type"`
	BehaviorDescription string           `json:"behavior_description,omitempty"`
	Location            string           `json:"location,omitempty"`
	Outcome             Outcome          `json:"outcome"`
	IsRepeatedSameDay   bool             `json:"is_repeated_same_day"`
	AffectedOthers      bool             `json:"affected_others"`
	IsPatternStudent    bool             `json:"is_pattern_student"`
	EscalatedToB        bool             `json:"escalated_to_b"`
	EventTimestamp      time.Time        `json:"event_timestamp"`
}

// NewInterventionParams содержит параметры новой записи.
type NewInterventionParams struct {
	ID                  string
	StudentID           shared.StudentID
	DomainID            shared.DomainID
	Staff               shared.StaffRef
	InterventionType    InterventionType
	BehaviorDescription string
	Location            string
	Outcome             Outcome
	AffectedOthers      bool
	IsPatternStudent    bool
	IsRepeatedSameDay   bool
	EventTimestamp      time.Time
}

// NewIntervention создаёт запись Level A с валидацией.
// EscalatedToB выставляется, если результат - escalated.
func NewIntervention(p NewInterventionParams) (*Intervention, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, shared.NewDomainError("levela", "NewIntervention", shared.ErrInvalidID, "id is required")
	}
	if !p.StudentID.IsValid() {
		return nil, shared.ErrEmptyStudentID
	}
	if !p.DomainID.IsValid() {
		return nil, shared.ErrEmptyDomainID
	}
	if !p.InterventionType.IsValid() {
		return nil, shared.ErrInvalidInterventionType
	}
	if !p.Outcome.IsValid() {
		return nil, shared.ErrInvalidOutcome
	}
	if p.EventTimestamp.IsZero() {
		return nil, shared.NewDomainError("levela", "NewIntervention", shared.ErrEmptyValue, "event_timestamp is required")
	}

	return &Intervention{
		ID:                  p.ID,
		StudentID:           p.StudentID,
		StaffID:             p.Staff.ID,
		StaffName:           strings.TrimSpace(p.Staff.Name),
		DomainID:            p.DomainID,
		InterventionType:    p.InterventionType,
		BehaviorDescription: strings.TrimSpace(p.BehaviorDescription),
		Location:            strings.TrimSpace(p.Location),
		Outcome:             p.Outcome,
		IsRepeatedSameDay:   p.IsRepeatedSameDay,
		AffectedOthers:      p.AffectedOthers,
		IsPatternStudent:    p.IsPatternStudent,
		EscalatedToB:        p.Outcome == OutcomeEscalated,
		EventTimestamp:      p.EventTimestamp.UTC(),
	}, nil
}

// SetOutcome меняет только результат и флаг эскалации.
func (i *Intervention) SetOutcome(outcome Outcome, escalatedToB bool) error {
	if !outcome.IsValid() {
		return shared.ErrInvalidOutcome
	}
	i.Outcome = outcome
	i.EscalatedToB = escalatedToB
	return nil
}
