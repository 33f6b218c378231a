// Package activity provides the per-form change log that backs the
// activity endpoint. Entries are written by the event recorder after each
// committed tree mutation.
package activity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// Entry is one recorded change to a form's tree.
type Entry struct {
	EventID    string           `json:"eventId"`
	EventType  string           `json:"eventType"`
	OccurredAt time.Time        `json:"occurredAt"`
	FormID     uuid.UUID        `json:"formId"`
	EntityKind types.EntityKind `json:"entityKind"`
	EntityID   uuid.UUID        `json:"entityId"`
	Summary    string           `json:"summary"`
	Payload    json.RawMessage  `json:"payload,omitempty"`
}

// QueryOptions controls filtering for form activity queries.
type QueryOptions struct {
	Since      *time.Time       // only entries at or after this time
	EntityKind types.EntityKind // filter to one record kind
	Limit      int              // max results (default: 50, max: 500)
}

// DefaultQueryOptions returns QueryOptions with sensible defaults.
func DefaultQueryOptions() QueryOptions {
	return QueryOptions{Limit: 50}
}

// PageSize is Limit clamped to 1..500, with 0 meaning the default of 50.
func (o QueryOptions) PageSize() int {
	if o.Limit <= 0 {
		return 50
	}
	if o.Limit > 500 {
		return 500
	}
	return o.Limit
}
