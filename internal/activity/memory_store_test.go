package activity

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

func entryAt(formID uuid.UUID, summary string, at time.Time) Entry {
	return Entry{
		EventID:    uuid.NewString(),
		EventType:  "test_event",
		OccurredAt: at,
		FormID:     formID,
		EntityKind: types.KindComponent,
		EntityID:   uuid.New(),
		Summary:    summary,
	}
}

func TestMemoryStore_EvictsOldestPerForm(t *testing.T) {
	ctx := context.Background()
	store := NewBoundedMemoryStore(3)
	formA, formB := uuid.New(), uuid.New()
	start := time.Now()

	for i := 0; i < 5; i++ {
		e := entryAt(formA, fmt.Sprintf("a%d", i), start.Add(time.Duration(i)*time.Second))
		if err := store.WriteEntries(ctx, []Entry{e}); err != nil {
			t.Fatalf("WriteEntries: %v", err)
		}
	}
	store.WriteEntries(ctx, []Entry{entryAt(formB, "b0", start)})

	results, total, err := store.QueryByForm(ctx, formA, DefaultQueryOptions())
	if err != nil {
		t.Fatalf("QueryByForm: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	var got []string
	for _, r := range results {
		got = append(got, r.Summary)
	}
	if fmt.Sprint(got) != "[a4 a3 a2]" {
		t.Errorf("kept %v, want [a4 a3 a2]", got)
	}

	// Another form's entries do not count against formA.
	_, total, _ = store.QueryByForm(ctx, formB, DefaultQueryOptions())
	if total != 1 {
		t.Errorf("formB total = %d, want 1", total)
	}
}

func TestMemoryStore_EvictsWithinOneWrite(t *testing.T) {
	ctx := context.Background()
	store := NewBoundedMemoryStore(2)
	formID := uuid.New()
	at := time.Now()

	store.WriteEntries(ctx, []Entry{
		entryAt(formID, "first", at),
		entryAt(formID, "second", at),
		entryAt(formID, "third", at),
	})

	results, total, _ := store.QueryByForm(ctx, formID, DefaultQueryOptions())
	if total != 2 || results[0].Summary != "third" || results[1].Summary != "second" {
		t.Errorf("expected [third second], got %+v", results)
	}
}

func TestNewBoundedMemoryStore_DefaultCap(t *testing.T) {
	if got := NewBoundedMemoryStore(0).maxPerForm; got != DefaultMaxPerForm {
		t.Errorf("maxPerForm = %d, want %d", got, DefaultMaxPerForm)
	}
	if got := NewMemoryStore().maxPerForm; got != DefaultMaxPerForm {
		t.Errorf("maxPerForm = %d, want %d", got, DefaultMaxPerForm)
	}
}
