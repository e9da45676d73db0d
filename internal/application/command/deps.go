// Package command contains write operations (CQRS - Commands).
package command

import (
	"time"

	"github.com/google/uuid"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelc"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
	"github.com/behavior-hub/behavior-hub/pkg/timeutil"
)

// IDGenerator produces identifiers for new records.
type IDGenerator func() string

// UUIDGenerator returns random UUIDv4 strings.
func UUIDGenerator() IDGenerator {
	return uuid.NewString
}

// PolicySource tells the lifecycle handler which phase ordering applies.
// *config.FeatureFlags satisfies it.
type PolicySource interface {
	StrictPhaseOrdering() bool
}

// StaticPolicy is a PolicySource with a fixed answer.
type StaticPolicy bool

// StrictPhaseOrdering implements PolicySource.
func (p StaticPolicy) StrictPhaseOrdering() bool { return bool(p) }

func phasePolicy(src PolicySource) levelc.PhasePolicy {
	if src != nil && src.StrictPhaseOrdering() {
		return levelc.StrictPolicy()
	}
	return levelc.PermissivePolicy()
}

// Deps bundles collaborators shared by the command handlers.
type Deps struct {
	Clock     timeutil.Clock
	Publisher shared.EventPublisher
	Logger    *logger.Logger
	NewID     IDGenerator
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = timeutil.NewSystemClock(nil)
	}
	if d.Publisher == nil {
		d.Publisher = shared.NopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.Default()
	}
	if d.NewID == nil {
		d.NewID = UUIDGenerator()
	}
	return d
}

func (d Deps) now() time.Time {
	return d.Clock.Now()
}

func (d Deps) today() shared.Date {
	return shared.DateOf(d.Clock.Now().In(d.Clock.Location()))
}

// publish sends events after commit. Failures are logged and never fail the command.
func (d Deps) publish(events ...shared.Event) {
	for _, e := range events {
		if err := d.Publisher.Publish(e); err != nil {
			d.Logger.Warn("failed to publish event",
				logger.String("event_type", string(e.EventType())),
				logger.String("aggregate_id", e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}
