package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/behavior-hub/behavior-hub/internal/application/eventhandler"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
)

type fakePusher struct {
	key    string
	values []interface{}
	err    error
}

func (f *fakePusher) RPush(_ context.Context, key string, values ...interface{}) *redis.IntCmd {
	f.key = key
	f.values = append(f.values, values...)
	return redis.NewIntResult(int64(len(f.values)), f.err)
}

func TestReminderOutbox_Remind(t *testing.T) {
	p := &fakePusher{}
	o := NewReminderOutbox(p, "")

	require.NoError(t, o.Remind(eventhandler.Reminder{
		Kind:          shared.EventReviewDue,
		CaseID:        "case-1",
		StudentID:     "stu-1",
		CaseManagerID: "mgr-1",
		Date:          "2025-01-04",
		ReviewType:    "check_in",
	}))

	assert.Equal(t, DefaultReminderQueue, p.key)
	require.Len(t, p.values, 1)

	var msg map[string]string
	require.NoError(t, json.Unmarshal([]byte(p.values[0].(string)), &msg))
	assert.Equal(t, "reminder.review_due", msg["kind"])
	assert.Equal(t, "case-1", msg["case_id"])
	assert.Equal(t, "2025-01-04", msg["date"])
}

func TestReminderOutbox_PushFailure(t *testing.T) {
	o := NewReminderOutbox(&fakePusher{err: errors.New("READONLY")}, "q")
	err := o.Remind(eventhandler.Reminder{CaseID: "case-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "case-1")
}
