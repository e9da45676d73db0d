package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/behavior-hub/behavior-hub/internal/application/eventhandler"
)

var _ eventhandler.ReminderSink = (*ReminderOutbox)(nil)

// DefaultReminderQueue is the Redis list consumed by the notification sender.
const DefaultReminderQueue = "behavior-hub:reminders"

// ListPusher is the slice of the go-redis client used by ReminderOutbox.
type ListPusher interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
}

// ReminderOutbox queues case reminders on a Redis list for delivery by an
// external notification sender.
type ReminderOutbox struct {
	client  ListPusher
	queue   string
	timeout time.Duration
}

// NewReminderOutbox creates an outbox. An empty queue uses DefaultReminderQueue.
func NewReminderOutbox(client ListPusher, queue string) *ReminderOutbox {
	if queue == "" {
		queue = DefaultReminderQueue
	}
	return &ReminderOutbox{client: client, queue: queue, timeout: 3 * time.Second}
}

type reminderMessage struct {
	Kind          string `json:"kind"`
	CaseID        string `json:"case_id"`
	StudentID     string `json:"student_id"`
	CaseManagerID string `json:"case_manager_id,omitempty"`
	Date          string `json:"date"`
	ReviewType    string `json:"review_type,omitempty"`
}

// Remind implements eventhandler.ReminderSink.
func (o *ReminderOutbox) Remind(r eventhandler.Reminder) error {
	data, err := json.Marshal(reminderMessage{
		Kind:          string(r.Kind),
		CaseID:        r.CaseID,
		StudentID:     r.StudentID,
		CaseManagerID: r.CaseManagerID,
		Date:          r.Date,
		ReviewType:    r.ReviewType,
	})
	if err != nil {
		return fmt.Errorf("marshal reminder: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	if err := o.client.RPush(ctx, o.queue, string(data)).Err(); err != nil {
		return fmt.Errorf("queue reminder for case %s: %w", r.CaseID, err)
	}
	return nil
}
