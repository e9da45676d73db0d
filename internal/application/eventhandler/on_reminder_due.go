package eventhandler

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON REMINDER DUE HANDLER
// Обрабатывает напоминания планировщика: возвращение ученика или встреча
// по графику мониторинга. Одно напоминание на кейс и дату в пределах
// Cooldown - воркер может пройти очередь несколько раз за день.
// ═══════════════════════════════════════════════════════════════════════════

// ReminderSink доставляет напоминание менеджеру кейса.
type ReminderSink interface {
	Remind(r Reminder) error
}

// Reminder - напоминание для менеджера кейса.
type Reminder struct {
	Kind          shared.EventType
	CaseID        string
	StudentID     string
	CaseManagerID string
	Date          string
	ReviewType    string
}

// LogSink пишет напоминания в журнал. Используется, пока нет канала доставки.
type LogSink struct {
	Logger *slog.Logger
}

// Remind реализует ReminderSink.
func (s LogSink) Remind(r Reminder) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("case reminder",
		"kind", string(r.Kind),
		"case_id", r.CaseID,
		"student_id", r.StudentID,
		"case_manager_id", r.CaseManagerID,
		"date", r.Date,
		"review_type", r.ReviewType,
	)
	return nil
}

// OnReminderDueHandler обрабатывает события reminder.*.
type OnReminderDueHandler struct {
	sink     ReminderSink
	logger   *slog.Logger
	cooldown time.Duration
	now      func() time.Time

	mu   sync.Mutex
	sent map[string]time.Time
}

// NewOnReminderDueHandler создаёт обработчик. cooldown <= 0 означает 12 часов.
func NewOnReminderDueHandler(sink ReminderSink, logger *slog.Logger, cooldown time.Duration) *OnReminderDueHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if cooldown <= 0 {
		cooldown = 12 * time.Hour
	}
	return &OnReminderDueHandler{
		sink:     sink,
		logger:   logger,
		cooldown: cooldown,
		now:      time.Now,
		sent:     make(map[string]time.Time),
	}
}

// Handle реализует shared.EventHandler.
func (h *OnReminderDueHandler) Handle(event shared.Event) error {
	switch event.EventType() {
	case shared.EventReentryDue, shared.EventReviewDue:
	default:
		return nil
	}

	p := event.Payload()
	r := Reminder{
		Kind:          event.EventType(),
		CaseID:        event.AggregateID(),
		StudentID:     payloadString(p, "student_id"),
		CaseManagerID: payloadString(p, "case_manager_id"),
		Date:          payloadString(p, "date"),
		ReviewType:    payloadString(p, "review_type"),
	}

	key := fmt.Sprintf("%s|%s|%s", r.Kind, r.CaseID, r.Date)
	if !h.claim(key) {
		h.logger.Debug("reminder suppressed", "key", key)
		return nil
	}

	if err := h.sink.Remind(r); err != nil {
		h.release(key)
		return fmt.Errorf("deliver reminder for case %s: %w", r.CaseID, err)
	}
	return nil
}

func (h *OnReminderDueHandler) claim(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.now()
	for k, at := range h.sent {
		if now.Sub(at) >= h.cooldown {
			delete(h.sent, k)
		}
	}
	if _, dup := h.sent[key]; dup {
		return false
	}
	h.sent[key] = now
	return true
}

func (h *OnReminderDueHandler) release(key string) {
	h.mu.Lock()
	delete(h.sent, key)
	h.mu.Unlock()
}

func payloadString(p map[string]interface{}, key string) string {
	s, _ := p[key].(string)
	return s
}
