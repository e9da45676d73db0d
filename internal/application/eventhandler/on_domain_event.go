// Package eventhandler содержит обработчики доменных событий.
// Обработчики - реактивная часть системы: метрики, журнал аудита и
// напоминания менеджерам кейсов. Ошибка обработчика не влияет на команду,
// которая опубликовала событие.
package eventhandler

import (
	"log/slog"

	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// METRICS HANDLER
// Переводит доменные события в счётчики Prometheus.
// ═══════════════════════════════════════════════════════════════════════════

// EventRecorder принимает события для метрик. Реализуется metrics.Metrics.
type EventRecorder interface {
	ObserveEvent(e shared.Event)
}

// MetricsHandler обновляет счётчики по каждому событию.
type MetricsHandler struct {
	recorder EventRecorder
}

// NewMetricsHandler создаёт обработчик метрик.
func NewMetricsHandler(recorder EventRecorder) *MetricsHandler {
	return &MetricsHandler{recorder: recorder}
}

// Handle реализует shared.EventHandler.
func (h *MetricsHandler) Handle(event shared.Event) error {
	h.recorder.ObserveEvent(event)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// AUDIT HANDLER
// Пишет каждое событие в структурированный журнал.
// ═══════════════════════════════════════════════════════════════════════════

// AuditHandler журналирует события.
type AuditHandler struct {
	logger *slog.Logger
}

// NewAuditHandler создаёт обработчик аудита.
func NewAuditHandler(logger *slog.Logger) *AuditHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditHandler{logger: logger.With("component", "audit")}
}

// Handle реализует shared.EventHandler.
func (h *AuditHandler) Handle(event shared.Event) error {
	attrs := []any{
		"event_type", string(event.EventType()),
		"aggregate_id", event.AggregateID(),
		"occurred_at", event.OccurredAt(),
	}
	for k, v := range event.Payload() {
		attrs = append(attrs, k, v)
	}
	h.logger.Info("domain event", attrs...)
	return nil
}

// ═══════════════════════════════════════════════════════════════════════════
// REGISTRATION
// ═══════════════════════════════════════════════════════════════════════════

// Register подписывает обработчики на шину. nil-обработчики пропускаются.
func Register(bus shared.EventSubscriber, metrics *MetricsHandler, audit *AuditHandler, reminders *OnReminderDueHandler) error {
	if metrics != nil {
		if err := bus.SubscribeAll(metrics.Handle); err != nil {
			return err
		}
	}
	if audit != nil {
		if err := bus.SubscribeAll(audit.Handle); err != nil {
			return err
		}
	}
	if reminders != nil {
		if err := bus.Subscribe(shared.EventReentryDue, reminders.Handle); err != nil {
			return err
		}
		if err := bus.Subscribe(shared.EventReviewDue, reminders.Handle); err != nil {
			return err
		}
	}
	return nil
}
