package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/types"
)

type publishLog []DomainEvent

func (p *publishLog) Publish(_ context.Context, evt DomainEvent) { *p = append(*p, evt) }

type failingStore struct{ activity.Store }

func (failingStore) WriteEntries(context.Context, []activity.Entry) error {
	return errors.New("disk full")
}

func TestActivityRecorder_WritesThenPublishes(t *testing.T) {
	ctx := context.Background()
	store := activity.NewMemoryStore()
	var pub publishLog
	rec := NewActivityRecorder(store)
	rec.SetPublisher(&pub)

	formID := uuid.New()
	comp := types.Component{ID: uuid.New(), PageID: uuid.New(), ComponentType: "TEXT_INPUT", Label: "Name", OrderIndex: 2}
	evt := NewComponentCreated(formID, comp)
	require.NoError(t, rec.Record(ctx, evt))

	entries, total, err := store.QueryByForm(ctx, formID, activity.DefaultQueryOptions())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, evt.ID, entries[0].EventID)
	assert.Equal(t, types.KindComponent, entries[0].EntityKind)
	assert.Equal(t, comp.ID, entries[0].EntityID)
	assert.Equal(t, `TEXT_INPUT "Name" added at position 2`, entries[0].Summary)

	require.Len(t, pub, 1)
	assert.Equal(t, evt.ID, pub[0].ID)
}

func TestActivityRecorder_StoreErrorSkipsPublish(t *testing.T) {
	var pub publishLog
	rec := NewActivityRecorder(failingStore{})
	rec.SetPublisher(&pub)

	err := rec.Record(context.Background(), NewFormCreated(types.Form{ID: uuid.New(), Name: "x"}))
	require.Error(t, err)
	assert.Empty(t, pub)
}

func TestComponentMoved_Payload(t *testing.T) {
	parent := uuid.New()
	p := ComponentMovedPayload{ComponentID: uuid.New(), ToPageID: uuid.New(), ToParentID: &parent, ToOrderIndex: 1}
	evt := NewComponentMoved(uuid.New(), p)
	assert.Contains(t, evt.Summary, "moved to component "+parent.String()[:8])

	var got ComponentMovedPayload
	require.NoError(t, json.Unmarshal(evt.Payload, &got))
	assert.Equal(t, p, got)
}
