package levelc

import (
	"fmt"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// Phase - фаза жизненного цикла, которая может требовать завершения другой.
type Phase string

const (
	PhaseContextPacket Phase = "context_packet"
	PhaseAdminResponse Phase = "admin_response"
	PhaseReentryPlan   Phase = "reentry_plan"
	PhaseMonitoring    Phase = "monitoring"
)

// PhaseDependency - фаза Phase требует завершённой фазы Requires.
type PhaseDependency struct {
	Phase    Phase
	Requires Phase
}

// PhasePolicy - упорядоченный список зависимостей между фазами.
type PhasePolicy struct {
	Dependencies []PhaseDependency
}

// PermissivePolicy не проверяет порядок фаз: административная мера
// принимается без контекстного пакета, а мониторинг - без плана.
func PermissivePolicy() PhasePolicy {
	return PhasePolicy{}
}

// StrictPolicy требует прохождения фаз по порядку.
func StrictPolicy() PhasePolicy {
	return PhasePolicy{Dependencies: []PhaseDependency{
		{Phase: PhaseAdminResponse, Requires: PhaseContextPacket},
		{Phase: PhaseReentryPlan, Requires: PhaseAdminResponse},
		{Phase: PhaseMonitoring, Requires: PhaseReentryPlan},
	}}
}

// IsStrict сообщает, есть ли в политике хотя бы одна зависимость.
func (p PhasePolicy) IsStrict() bool {
	return len(p.Dependencies) > 0
}

// Check возвращает ошибку, если для перехода в phase не завершена обязательная фаза.
func (p PhasePolicy) Check(c *Case, phase Phase) error {
	for _, dep := range p.Dependencies {
		if dep.Phase != phase {
			continue
		}
		if !c.PhaseCompleted(dep.Requires) {
			return shared.WrapError("levelc", string(phase), shared.ErrStateTransition,
				fmt.Sprintf("%s requires %s to be completed", phase, dep.Requires), shared.ErrPhaseDependency)
		}
	}
	return nil
}
