package levelc

// ══════════════════════════════════════════════════════════════════════════════
// TRIGGER TYPE
// ══════════════════════════════════════════════════════════════════════════════

// TriggerType - причина открытия кейса Level C.
type TriggerType string

const (
	TriggerThreshold20Points TriggerType = "threshold_20_points"
	TriggerThreshold35Points TriggerType = "threshold_35_points"
	TriggerThreshold40Points TriggerType = "threshold_40_points"
	TriggerSafetyIncident    TriggerType = "safety_incident"
	TriggerLevelBEscalation  TriggerType = "level_b_escalation"
	TriggerChronicPattern    TriggerType = "chronic_pattern"
	TriggerAdminReferral     TriggerType = "admin_referral"
	TriggerSuspensionReentry TriggerType = "suspension_reentry"
	TriggerOther             TriggerType = "other"
)

// IsValid проверяет, что тип триггера входит в перечисление.
func (t TriggerType) IsValid() bool {
	switch t {
	case TriggerThreshold20Points, TriggerThreshold35Points, TriggerThreshold40Points,
		TriggerSafetyIncident, TriggerLevelBEscalation, TriggerChronicPattern,
		TriggerAdminReferral, TriggerSuspensionReentry, TriggerOther:
		return true
	default:
		return false
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CASE TYPE
// ══════════════════════════════════════════════════════════════════════════════

// CaseType - интенсивность сопровождения.
type CaseType string

const (
	CaseTypeLite      CaseType = "lite"
	CaseTypeStandard  CaseType = "standard"
	CaseTypeIntensive CaseType = "intensive"
)

// IsValid проверяет, что тип кейса корректен.
func (t CaseType) IsValid() bool {
	switch t {
	case CaseTypeLite, CaseTypeStandard, CaseTypeIntensive:
		return true
	default:
		return false
	}
}

// CaseTypeFor выводит тип кейса из триггера.
func CaseTypeFor(trigger TriggerType) CaseType {
	switch trigger {
	case TriggerThreshold20Points:
		return CaseTypeLite
	case TriggerThreshold35Points, TriggerThreshold40Points, TriggerSafetyIncident:
		return CaseTypeIntensive
	default:
		return CaseTypeStandard
	}
}

// MonitoringDurations - длительность мониторинга в днях по типу кейса.
// standard и intensive совпадают: intensive описан как более длинное
// сопровождение, но значение сохранено до подтверждения владельцем.
var MonitoringDurations = map[CaseType]int{
	CaseTypeLite:      14,
	CaseTypeStandard:  10,
	CaseTypeIntensive: 10,
}

// MonitoringDurationFor возвращает длительность мониторинга для типа кейса.
func MonitoringDurationFor(t CaseType) int {
	if d, ok := MonitoringDurations[t]; ok {
		return d
	}
	return MonitoringDurations[CaseTypeStandard]
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status - сохраняемый статус кейса.
type Status string

const (
	StatusActive         Status = "active"
	StatusAdminResponse  Status = "admin_response"
	StatusPendingReentry Status = "pending_reentry"
	StatusMonitoring     Status = "monitoring"
	StatusClosed         Status = "closed"
)

// statusRank задаёт порядок статусов. Статус только растёт.
var statusRank = map[Status]int{
	StatusActive:         0,
	StatusAdminResponse:  1,
	StatusPendingReentry: 2,
	StatusMonitoring:     3,
	StatusClosed:         4,
}

// IsValid проверяет, что статус корректен.
func (s Status) IsValid() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal возвращает true для закрытого кейса.
func (s Status) IsTerminal() bool {
	return s == StatusClosed
}

// AtLeast проверяет, что статус не раньше other.
func (s Status) AtLeast(other Status) bool {
	return statusRank[s] >= statusRank[other]
}

// OpenStatuses возвращает все незакрытые статусы.
func OpenStatuses() []Status {
	return []Status{StatusActive, StatusAdminResponse, StatusPendingReentry, StatusMonitoring}
}

// ══════════════════════════════════════════════════════════════════════════════
// ADMIN RESPONSE / RE-ENTRY / OUTCOME
// ══════════════════════════════════════════════════════════════════════════════

// AdminResponseType - административная мера.
type AdminResponseType string

const (
	AdminResponseConference          AdminResponseType = "conference"
	AdminResponseParentConference    AdminResponseType = "parent_conference"
	AdminResponseDetention           AdminResponseType = "detention"
	AdminResponseInSchoolSuspension  AdminResponseType = "in_school_suspension"
	AdminResponseOutSchoolSuspension AdminResponseType = "out_of_school_suspension"
	AdminResponseLossOfPrivilege     AdminResponseType = "loss_of_privilege"
	AdminResponseRestorative         AdminResponseType = "restorative_practice"
	AdminResponseReferral            AdminResponseType = "support_referral"
	AdminResponseOther               AdminResponseType = "other"
)

// IsValid проверяет, что мера входит в перечисление.
func (t AdminResponseType) IsValid() bool {
	switch t {
	case AdminResponseConference, AdminResponseParentConference, AdminResponseDetention,
		AdminResponseInSchoolSuspension, AdminResponseOutSchoolSuspension,
		AdminResponseLossOfPrivilege, AdminResponseRestorative, AdminResponseReferral,
		AdminResponseOther:
		return true
	default:
		return false
	}
}

// ReentryType - формат возвращения ученика.
type ReentryType string

const (
	ReentryStandard   ReentryType = "standard"
	ReentryRestricted ReentryType = "restricted"
)

// IsValid проверяет, что формат корректен.
func (t ReentryType) IsValid() bool {
	return t == ReentryStandard || t == ReentryRestricted
}

// OutcomeStatus - итог закрытия кейса.
type OutcomeStatus string

const (
	OutcomeClosedSuccess          OutcomeStatus = "closed_success"
	OutcomeClosedContinuedSupport OutcomeStatus = "closed_continued_support"
	OutcomeClosedEscalated        OutcomeStatus = "closed_escalated"
)

// IsValid проверяет, что итог корректен.
func (o OutcomeStatus) IsValid() bool {
	switch o {
	case OutcomeClosedSuccess, OutcomeClosedContinuedSupport, OutcomeClosedEscalated:
		return true
	default:
		return false
	}
}

// ScheduleType - тип даты в графике мониторинга.
type ScheduleType string

const (
	ScheduleCheckIn ScheduleType = "check_in"
	ScheduleFinal   ScheduleType = "final"
)
