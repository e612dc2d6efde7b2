package timeline

import (
	"time"

	"github.com/google/uuid"

	"github.com/yapay-ai/token-timeline/pkg/model"
)

// EventType identifies an observable buffer or config event.
type EventType string

const (
	EventPointAdded       EventType = "point-added"
	EventBufferOverflow   EventType = "buffer-overflow"
	EventRetentionCleanup EventType = "retention-cleanup"
	EventConfigUpdated    EventType = "config-updated"
)

// Event is published to registered listeners. Point is a deep copy of the
// affected point, never the live slot.
type Event struct {
	ID        string                 `json:"id"`
	Type      EventType              `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Point     *model.TimeBucketPoint `json:"point,omitempty"`

	// retention-cleanup metadata
	RemovedCount int `json:"removed_count,omitempty"`

	// config-updated metadata
	OldCapacity   int           `json:"old_capacity,omitempty"`
	NewCapacity   int           `json:"new_capacity,omitempty"`
	SweepInterval time.Duration `json:"sweep_interval,omitempty"`
}

// Listener receives events published by the aggregator. Dispatch is
// synchronous on the aggregator's single-writer path, so handlers must be
// fast and must not call back into the aggregator.
type Listener interface {
	// Name returns the listener identifier.
	Name() string

	// HandleEvent processes a single event.
	HandleEvent(event Event)
}

func newEvent(typ EventType, now time.Time) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      typ,
		Timestamp: now,
	}
}
