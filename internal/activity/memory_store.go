package activity

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// DefaultMaxPerForm is how many entries a MemoryStore keeps per form
// before it evicts the oldest.
const DefaultMaxPerForm = 10000

// MemoryStore implements Store using in-memory slices, one per form.
type MemoryStore struct {
	mu         sync.RWMutex
	byForm     map[uuid.UUID][]Entry
	maxPerForm int
}

// NewMemoryStore creates a new empty MemoryStore that keeps the newest
// DefaultMaxPerForm entries of each form.
func NewMemoryStore() *MemoryStore {
	return NewBoundedMemoryStore(DefaultMaxPerForm)
}

// NewBoundedMemoryStore creates a MemoryStore keeping at most maxPerForm
// entries per form, in write order. maxPerForm <= 0 means the default.
func NewBoundedMemoryStore(maxPerForm int) *MemoryStore {
	if maxPerForm <= 0 {
		maxPerForm = DefaultMaxPerForm
	}
	return &MemoryStore{byForm: map[uuid.UUID][]Entry{}, maxPerForm: maxPerForm}
}

func (s *MemoryStore) WriteEntries(_ context.Context, entries []Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		list := append(s.byForm[e.FormID], e)
		if len(list) > s.maxPerForm {
			// The dropped prefix is released when append next reallocates.
			list = list[len(list)-s.maxPerForm:]
		}
		s.byForm[e.FormID] = list
	}
	return nil
}

func (s *MemoryStore) QueryByForm(_ context.Context, formID uuid.UUID, opts QueryOptions) ([]Entry, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []Entry
	for _, e := range s.byForm[formID] {
		if opts.Since != nil && e.OccurredAt.Before(*opts.Since) {
			continue
		}
		if opts.EntityKind != "" && e.EntityKind != opts.EntityKind {
			continue
		}
		matched = append(matched, e)
	}

	// Newest first; entries written in the same instant keep reverse write order.
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].OccurredAt.After(matched[j].OccurredAt)
	})

	total := len(matched)
	if limit := opts.PageSize(); len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}
