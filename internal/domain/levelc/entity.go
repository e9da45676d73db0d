// Package levelc содержит доменную модель кейса Level C и его
// жизненный цикл: active → admin_response → pending_reentry → monitoring → closed.
//
// Все переходы - методы Case. Статус никогда не откатывается назад,
// закрытый кейс доступен только для чтения.
package levelc

import (
	"strings"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SECTIONS
// Поля кейса сгруппированы по фазе, которая их заполняет.
// ══════════════════════════════════════════════════════════════════════════════

// ContextPacket - описание инцидента и контекста.
type ContextPacket struct {
	IncidentSummary           string               `json:"incident_summary"`
	PatternReview             string               `json:"pattern_review"`
	EnvironmentalFactors      EnvironmentalFactors `json:"environmental_factors"`
	PriorInterventionsSummary string               `json:"prior_interventions_summary"`
	Completed                 bool                 `json:"context_packet_completed"`
}

// IsComplete проверяет, что все четыре обязательных поля заполнены.
func (p ContextPacket) IsComplete() bool {
	return strings.TrimSpace(p.IncidentSummary) != "" &&
		strings.TrimSpace(p.PatternReview) != "" &&
		len(p.EnvironmentalFactors) > 0 &&
		strings.TrimSpace(p.PriorInterventionsSummary) != ""
}

// IsEmpty проверяет, что ни одно поле не заполнено.
func (p ContextPacket) IsEmpty() bool {
	return p.IncidentSummary == "" && p.PatternReview == "" &&
		len(p.EnvironmentalFactors) == 0 && p.PriorInterventionsSummary == ""
}

// AdminResponse - административная мера.
type AdminResponse struct {
	Type                 AdminResponseType `json:"admin_response_type,omitempty"`
	Details              string            `json:"admin_response_details,omitempty"`
	ConsequenceStartDate *shared.Date      `json:"consequence_start_date,omitempty"`
	ConsequenceEndDate   *shared.Date      `json:"consequence_end_date,omitempty"`
	Completed            bool              `json:"admin_response_completed"`
}

// ReentryPlan - план возвращения и поддержки.
type ReentryPlan struct {
	SupportPlanGoal       string                   `json:"support_plan_goal"`
	SupportPlanStrategies []string                 `json:"support_plan_strategies"`
	AdultMentorID         shared.StaffID           `json:"adult_mentor_id,omitempty"`
	AdultMentorName       string                   `json:"adult_mentor_name,omitempty"`
	RepairActions         []RepairAction           `json:"repair_actions"`
	ReentryDate           *shared.Date             `json:"reentry_date,omitempty"`
	ReentryType           ReentryType              `json:"reentry_type,omitempty"`
	ReentryRestrictions   []string                 `json:"reentry_restrictions"`
	ReentryChecklist      []ReadinessChecklistItem `json:"reentry_checklist"`
	Completed             bool                     `json:"reentry_planning_completed"`
}

// Monitoring - график и ежедневные встречи.
type Monitoring struct {
	Schedule      []ScheduleEntry `json:"monitoring_schedule"`
	ReviewDates   []shared.Date   `json:"review_dates"`
	DailyCheckIns []DailyCheckIn  `json:"daily_check_ins"`
}

// HasReviewOn проверяет, назначена ли встреча на дату.
func (m Monitoring) HasReviewOn(d shared.Date) (ScheduleEntry, bool) {
	for _, e := range m.Schedule {
		if e.Date == d {
			return e, true
		}
	}
	return ScheduleEntry{}, false
}

// Closure - итог кейса.
type Closure struct {
	OutcomeStatus   OutcomeStatus `json:"outcome_status,omitempty"`
	OutcomeNotes    string        `json:"outcome_notes,omitempty"`
	ClosureCriteria string        `json:"closure_criteria,omitempty"`
	ClosureDate     *shared.Date  `json:"closure_date,omitempty"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MAIN ENTITY: CASE
// ══════════════════════════════════════════════════════════════════════════════

// Case - кейс интенсивного сопровождения Level C.
type Case struct {
	ID                       string           `json:"id"`
	StudentID                shared.StudentID `json:"student_id"`
	CaseManagerID            shared.StaffID   `json:"case_manager_id,omitempty"`
	CaseManagerName          string           `json:"case_manager_name,omitempty"`
	TriggerType              TriggerType      `json:"trigger_type"`
	CaseType                 CaseType         `json:"case_type"`
	DomainFocusID            shared.DomainID  `json:"domain_focus_id,omitempty"`
	EscalatedFromLevelBIDs   []string         `json:"escalated_from_level_b_ids"`
	SISDemeritPointsAtCreate *int             `json:"sis_demerit_points_at_creation,omitempty"`
	MonitoringDurationDays   int              `json:"monitoring_duration_days"`
	Status                   Status           `json:"status"`
	CreatedAt                time.Time        `json:"created_at"`
	UpdatedAt                time.Time        `json:"updated_at"`

	// Version растёт на каждой успешной записи. Хранилище обновляет кейс,
	// только если сохранённая версия совпадает с прочитанной.
	Version int `json:"version"`

	ContextPacket ContextPacket `json:"context_packet"`
	AdminResponse AdminResponse `json:"admin_response"`
	ReentryPlan   ReentryPlan   `json:"reentry_plan"`
	Monitoring    Monitoring    `json:"monitoring"`
	Closure       Closure       `json:"closure"`
}

// NewCaseParams содержит параметры открытия кейса.
type NewCaseParams struct {
	ID                     string
	StudentID              shared.StudentID
	CaseManager            shared.StaffRef
	TriggerType            TriggerType
	CaseType               CaseType // пустой - вывести из TriggerType
	DomainFocusID          shared.DomainID
	EscalatedFromLevelBIDs []string
	SISDemeritPoints       *int
	Now                    time.Time
}

// NewCase открывает кейс в статусе active.
func NewCase(p NewCaseParams) (*Case, error) {
	if strings.TrimSpace(p.ID) == "" {
		return nil, shared.NewDomainError("levelc", "Create", shared.ErrInvalidID, "id is required")
	}
	if !p.StudentID.IsValid() {
		return nil, shared.ErrEmptyStudentID
	}
	if !p.TriggerType.IsValid() {
		return nil, shared.ErrInvalidTriggerType
	}

	caseType := p.CaseType
	if caseType == "" {
		caseType = CaseTypeFor(p.TriggerType)
	}
	if !caseType.IsValid() {
		return nil, shared.ErrInvalidCaseType
	}
	if p.SISDemeritPoints != nil && *p.SISDemeritPoints < 0 {
		return nil, shared.NewDomainError("levelc", "Create", shared.ErrNegativeValue, "sis_demerit_points_at_creation cannot be negative")
	}

	now := p.Now.UTC()
	return &Case{
		ID:                       p.ID,
		StudentID:                p.StudentID,
		CaseManagerID:            p.CaseManager.ID,
		CaseManagerName:          strings.TrimSpace(p.CaseManager.Name),
		TriggerType:              p.TriggerType,
		CaseType:                 caseType,
		DomainFocusID:            p.DomainFocusID,
		EscalatedFromLevelBIDs:   dedupeIDs(p.EscalatedFromLevelBIDs),
		SISDemeritPointsAtCreate: p.SISDemeritPoints,
		MonitoringDurationDays:   MonitoringDurationFor(caseType),
		Status:                   StatusActive,
		CreatedAt:                now,
		UpdatedAt:                now,
		ContextPacket:            ContextPacket{EnvironmentalFactors: EnvironmentalFactors{}},
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// ContextPacketUpdate - частичное обновление. nil-поля не меняются.
type ContextPacketUpdate struct {
	IncidentSummary           *string
	PatternReview             *string
	EnvironmentalFactors      []string
	PriorInterventionsSummary *string
}

// UpdateContextPacket сливает поля с текущими. Когда после слияния все четыре
// поля заполнены, пакет помечается завершённым и статус переходит сразу в
// admin_response. Возвращает true, если пакет завершён этим вызовом.
func (c *Case) UpdateContextPacket(u ContextPacketUpdate, now time.Time) (bool, error) {
	if err := c.ensureOpen("UpdateContextPacket"); err != nil {
		return false, err
	}

	merged := c.ContextPacket
	if u.IncidentSummary != nil {
		merged.IncidentSummary = strings.TrimSpace(*u.IncidentSummary)
	}
	if u.PatternReview != nil {
		merged.PatternReview = strings.TrimSpace(*u.PatternReview)
	}
	if u.EnvironmentalFactors != nil {
		merged.EnvironmentalFactors = NewEnvironmentalFactors(u.EnvironmentalFactors)
	}
	if u.PriorInterventionsSummary != nil {
		merged.PriorInterventionsSummary = strings.TrimSpace(*u.PriorInterventionsSummary)
	}

	complete := merged.IsComplete()
	if c.ContextPacket.Completed && !complete {
		return false, shared.NewDomainError("levelc", "UpdateContextPacket", shared.ErrInvalidState,
			"required fields of a completed context packet cannot be cleared")
	}

	justCompleted := complete && !c.ContextPacket.Completed
	merged.Completed = complete
	c.ContextPacket = merged
	if justCompleted {
		c.advanceTo(StatusAdminResponse)
	}
	c.touch(now)
	return justCompleted, nil
}

// AdminResponseInput - данные административной меры.
type AdminResponseInput struct {
	Type                 AdminResponseType
	Details              string
	ConsequenceStartDate *shared.Date
	ConsequenceEndDate   *shared.Date
}

// RecordAdminResponse фиксирует меру и переводит кейс в pending_reentry.
func (c *Case) RecordAdminResponse(in AdminResponseInput, policy PhasePolicy, now time.Time) error {
	if err := c.ensureOpen("RecordAdminResponse"); err != nil {
		return err
	}
	if in.Type == "" {
		return shared.ErrMissingAdminResponse
	}
	if !in.Type.IsValid() {
		return shared.ErrInvalidAdminResponse
	}
	if in.ConsequenceStartDate != nil && in.ConsequenceEndDate != nil &&
		in.ConsequenceEndDate.Before(*in.ConsequenceStartDate) {
		return shared.ErrConsequenceDateOrder
	}
	if err := policy.Check(c, PhaseAdminResponse); err != nil {
		return err
	}

	c.AdminResponse = AdminResponse{
		Type:                 in.Type,
		Details:              strings.TrimSpace(in.Details),
		ConsequenceStartDate: in.ConsequenceStartDate,
		ConsequenceEndDate:   in.ConsequenceEndDate,
		Completed:            true,
	}
	c.advanceTo(StatusPendingReentry)
	c.touch(now)
	return nil
}

// ReentryPlanInput - данные плана возвращения.
type ReentryPlanInput struct {
	SupportPlanGoal       string
	SupportPlanStrategies []string
	AdultMentor           shared.StaffRef
	RepairActions         []RepairAction
	ReentryDate           *shared.Date
	ReentryType           ReentryType
	ReentryRestrictions   []string
	ReentryChecklist      []ReadinessChecklistItem
}

// CreateReentryPlan сохраняет план. Статус не меняется: кейс остаётся
// pending_reentry до явного запуска мониторинга.
func (c *Case) CreateReentryPlan(in ReentryPlanInput, policy PhasePolicy, now time.Time) error {
	if err := c.ensureOpen("CreateReentryPlan"); err != nil {
		return err
	}
	goal := strings.TrimSpace(in.SupportPlanGoal)
	if goal == "" {
		return shared.ErrMissingSupportGoal
	}
	if in.ReentryDate == nil || in.ReentryDate.IsZero() {
		return shared.ErrMissingReentryDate
	}
	reentryType := in.ReentryType
	if reentryType == "" {
		reentryType = ReentryStandard
	}
	if !reentryType.IsValid() {
		return shared.ErrInvalidReentryType
	}
	if err := policy.Check(c, PhaseReentryPlan); err != nil {
		return err
	}

	checklist := in.ReentryChecklist
	if len(checklist) == 0 {
		checklist = DefaultReentryChecklist()
	}

	date := *in.ReentryDate
	c.ReentryPlan = ReentryPlan{
		SupportPlanGoal:       goal,
		SupportPlanStrategies: cleanStrings(in.SupportPlanStrategies),
		AdultMentorID:         in.AdultMentor.ID,
		AdultMentorName:       strings.TrimSpace(in.AdultMentor.Name),
		RepairActions:         append([]RepairAction{}, in.RepairActions...),
		ReentryDate:           &date,
		ReentryType:           reentryType,
		ReentryRestrictions:   cleanStrings(in.ReentryRestrictions),
		ReentryChecklist:      append([]ReadinessChecklistItem{}, checklist...),
		Completed:             true,
	}
	c.touch(now)
	return nil
}

// StartMonitoring строит график от даты возвращения (или today, если её нет)
// и переводит кейс в monitoring. Даты только вычисляются, напоминания
// отправляет внешний планировщик.
func (c *Case) StartMonitoring(today shared.Date, stride int, policy PhasePolicy, now time.Time) error {
	if err := c.ensureOpen("StartMonitoring"); err != nil {
		return err
	}
	if err := policy.Check(c, PhaseMonitoring); err != nil {
		return err
	}

	start := today
	if c.ReentryPlan.ReentryDate != nil && !c.ReentryPlan.ReentryDate.IsZero() {
		start = *c.ReentryPlan.ReentryDate
	}

	schedule := GenerateSchedule(start, c.MonitoringDurationDays, stride)
	c.Monitoring.Schedule = schedule
	c.Monitoring.ReviewDates = ReviewDates(schedule)
	c.advanceTo(StatusMonitoring)
	c.touch(now)
	return nil
}

// LogCheckIn добавляет встречу. Дата не сверяется с графиком, статус не меняется.
func (c *Case) LogCheckIn(in DailyCheckIn, now time.Time) error {
	if err := c.ensureOpen("LogCheckIn"); err != nil {
		return err
	}
	in.Notes = strings.TrimSpace(in.Notes)
	if in.Notes == "" {
		return shared.ErrEmptyCheckInNotes
	}
	if in.Date.IsZero() {
		return shared.NewDomainError("levelc", "LogCheckIn", shared.ErrEmptyValue, "check-in date is required")
	}
	if in.LoggedAt.IsZero() {
		in.LoggedAt = now.UTC()
	}
	c.Monitoring.DailyCheckIns = append(c.Monitoring.DailyCheckIns, in)
	c.touch(now)
	return nil
}

// CloseInput - данные закрытия.
type CloseInput struct {
	OutcomeStatus   OutcomeStatus
	Notes           string
	ClosureCriteria string
}

// Close переводит кейс в терминальный статус closed.
func (c *Case) Close(in CloseInput, today shared.Date, now time.Time) error {
	if err := c.ensureOpen("Close"); err != nil {
		return err
	}
	if !in.OutcomeStatus.IsValid() {
		return shared.ErrInvalidOutcomeStatus
	}

	closed := today
	c.Closure = Closure{
		OutcomeStatus:   in.OutcomeStatus,
		OutcomeNotes:    strings.TrimSpace(in.Notes),
		ClosureCriteria: strings.TrimSpace(in.ClosureCriteria),
		ClosureDate:     &closed,
	}
	c.Status = StatusClosed
	c.touch(now)
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DERIVED STATE
// ══════════════════════════════════════════════════════════════════════════════

// PhaseCompleted проверяет завершённость фазы по флагам.
func (c *Case) PhaseCompleted(p Phase) bool {
	switch p {
	case PhaseContextPacket:
		return c.ContextPacket.Completed
	case PhaseAdminResponse:
		return c.AdminResponse.Completed
	case PhaseReentryPlan:
		return c.ReentryPlan.Completed
	case PhaseMonitoring:
		return c.Status.AtLeast(StatusMonitoring)
	default:
		return false
	}
}

// DisplayPhase - этап для отображения. В отличие от Status включает
// context_packet: кейс active с частично заполненным пакетом.
// Значение вычисляется из флагов и никогда не сохраняется.
func (c *Case) DisplayPhase() string {
	if c.Status == StatusActive && !c.ContextPacket.IsEmpty() {
		return string(PhaseContextPacket)
	}
	return string(c.Status)
}

// IsClosed возвращает true для закрытого кейса.
func (c *Case) IsClosed() bool {
	return c.Status.IsTerminal()
}

// IsReentryDue проверяет, что кейс ждёт возвращения и дата наступила.
func (c *Case) IsReentryDue(today shared.Date) bool {
	if c.Status != StatusPendingReentry || c.ReentryPlan.ReentryDate == nil {
		return false
	}
	return !c.ReentryPlan.ReentryDate.After(today)
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func (c *Case) ensureOpen(op string) error {
	if c.IsClosed() {
		return shared.WrapError("levelc", op, shared.ErrInvalidState, "case is closed", shared.ErrCaseClosed)
	}
	return nil
}

// advanceTo переводит статус вперёд; более ранний статус игнорируется.
func (c *Case) advanceTo(s Status) {
	if statusRank[s] > statusRank[c.Status] {
		c.Status = s
	}
}

func (c *Case) touch(now time.Time) {
	c.UpdatedAt = now.UTC()
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupeIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
