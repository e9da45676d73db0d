package levelc

import (
	"strings"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// Встроены в кейс и хранятся вместе с ним.
// ══════════════════════════════════════════════════════════════════════════════

// EnvironmentalFactors - множество факторов среды в порядке добавления.
type EnvironmentalFactors []string

// NewEnvironmentalFactors нормализует список: обрезает пробелы, убирает пустые и дубли.
func NewEnvironmentalFactors(items []string) EnvironmentalFactors {
	seen := make(map[string]struct{}, len(items))
	out := make(EnvironmentalFactors, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	return out
}

// Contains проверяет наличие фактора.
func (f EnvironmentalFactors) Contains(item string) bool {
	for _, v := range f {
		if v == item {
			return true
		}
	}
	return false
}

// RepairAction - действие по восстановлению отношений.
type RepairAction struct {
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// ReadinessChecklistItem - пункт чек-листа готовности к возвращению.
type ReadinessChecklistItem struct {
	Item      string `json:"item"`
	Completed bool   `json:"completed"`
}

// DefaultReentryChecklist - чек-лист, устанавливаемый, если план его не содержит.
func DefaultReentryChecklist() []ReadinessChecklistItem {
	return []ReadinessChecklistItem{
		{Item: "Re-entry meeting held with student and family"},
		{Item: "Support plan reviewed with student"},
		{Item: "Teachers notified of re-entry plan"},
		{Item: "Adult mentor check-in scheduled"},
	}
}

// DailyCheckIn - запись ежедневной встречи. Список только пополняется.
type DailyCheckIn struct {
	Date     shared.Date     `json:"date"`
	Notes    string          `json:"notes"`
	LoggedBy shared.StaffRef `json:"logged_by"`
	LoggedAt time.Time       `json:"logged_at"`
}

// ScheduleEntry - дата графика мониторинга.
type ScheduleEntry struct {
	Date shared.Date  `json:"date"`
	Type ScheduleType `json:"type"`
}

// ══════════════════════════════════════════════════════════════════════════════
// SCHEDULE
// ══════════════════════════════════════════════════════════════════════════════

// DefaultReviewStrideDays - шаг между плановыми встречами.
const DefaultReviewStrideDays = 3

// GenerateSchedule строит график от start с шагом stride до start+durationDays.
// Все даты строго до конца получают тип check_in, конечная дата всегда
// добавляется последней с типом final.
func GenerateSchedule(start shared.Date, durationDays, stride int) []ScheduleEntry {
	if stride <= 0 {
		stride = DefaultReviewStrideDays
	}
	if durationDays < 0 {
		durationDays = 0
	}
	end := start.AddDays(durationDays)

	schedule := make([]ScheduleEntry, 0, durationDays/stride+2)
	for current := start; current.Before(end); current = current.AddDays(stride) {
		schedule = append(schedule, ScheduleEntry{Date: current, Type: ScheduleCheckIn})
	}
	return append(schedule, ScheduleEntry{Date: end, Type: ScheduleFinal})
}

// ReviewDates извлекает даты графика.
func ReviewDates(schedule []ScheduleEntry) []shared.Date {
	dates := make([]shared.Date, len(schedule))
	for i, e := range schedule {
		dates[i] = e.Date
	}
	return dates
}
