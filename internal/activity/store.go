package activity

import (
	"context"

	"github.com/google/uuid"
)

// Store is the interface for reading and writing activity entries.
type Store interface {
	// WriteEntries appends one or more entries.
	WriteEntries(ctx context.Context, entries []Entry) error

	// QueryByForm returns a form's entries, newest first, and the total
	// number of entries matching the filters before the limit applies.
	QueryByForm(ctx context.Context, formID uuid.UUID, opts QueryOptions) (entries []Entry, totalCount int, err error)
}
