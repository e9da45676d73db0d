package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser accepts standard 5-field expressions and descriptors such as
// "@daily" or "@every 15m".
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronSchedule is a Schedule backed by a parsed cron expression.
// Examples:
//   - "0 7 * * 1-5"  - weekdays at 07:00
//   - "*/30 * * * *" - every 30 minutes
//   - "@every 1h"    - every hour from start
type CronSchedule struct {
	raw      string
	schedule cron.Schedule
	location *time.Location
}

// ParseCron parses spec. Times are evaluated in loc (UTC when nil).
func ParseCron(spec string, loc *time.Location) (*CronSchedule, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &CronSchedule{raw: spec, schedule: sched, location: loc}, nil
}

// Next returns the next activation strictly after t.
func (c *CronSchedule) Next(t time.Time) time.Time {
	return c.schedule.Next(t.In(c.location))
}

// String returns the original expression.
func (c *CronSchedule) String() string {
	return c.raw
}
