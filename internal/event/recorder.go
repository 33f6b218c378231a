// Package event provides domain event recording for the tree service.
// Events are written to the activity.Store as per-form entries, then
// published to the in-process event bus for downstream consumers.
package event

import (
	"context"

	"github.com/matthewbaird/formbuilder/internal/activity"
)

// Recorder writes domain events to the activity store.
type Recorder interface {
	Record(ctx context.Context, evt DomainEvent) error
}

// Publisher sends domain events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, evt DomainEvent)
}

// ActivityRecorder implements Recorder by converting a DomainEvent into an
// activity.Entry and writing it via activity.Store. If a Publisher is set,
// the event is also published to the event bus after the store write
// succeeds.
type ActivityRecorder struct {
	store activity.Store
	bus   Publisher
}

// NewActivityRecorder creates a new ActivityRecorder backed by the given store.
func NewActivityRecorder(store activity.Store) *ActivityRecorder {
	return &ActivityRecorder{store: store}
}

// SetPublisher attaches an event bus. Events are published after store writes.
func (r *ActivityRecorder) SetPublisher(p Publisher) {
	r.bus = p
}

// Record writes the event's activity entry and publishes the event.
func (r *ActivityRecorder) Record(ctx context.Context, evt DomainEvent) error {
	entry := activity.Entry{
		EventID:    evt.ID,
		EventType:  evt.EventType,
		OccurredAt: evt.OccurredAt,
		FormID:     evt.FormID,
		EntityKind: evt.Subject.Kind,
		EntityID:   evt.Subject.ID,
		Summary:    evt.Summary,
		Payload:    evt.Payload,
	}
	if err := r.store.WriteEntries(ctx, []activity.Entry{entry}); err != nil {
		return err
	}

	if r.bus != nil {
		r.bus.Publish(ctx, evt)
	}
	return nil
}
