package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	s, err := Open(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func seedPage(t *testing.T, s *Store) (types.Form, types.Page) {
	t.Helper()
	f := types.Form{ID: uuid.New(), Name: "F", Description: "d"}
	p := types.Page{ID: uuid.New(), FormID: f.ID, Name: "P"}
	err := s.InTx(context.Background(), func(ctx context.Context, tx tree.Tx) error {
		if err := tx.CreateForm(ctx, f); err != nil {
			return err
		}
		return tx.CreatePage(ctx, p)
	})
	require.NoError(t, err)
	return f, p
}

func TestMigrate_Idempotent(t *testing.T) {
	s := openTest(t)
	require.NoError(t, Migrate(context.Background(), s.drv))
}

func TestRoundTripRecords(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	f, p := seedPage(t, s)
	parent := types.Component{ID: uuid.New(), PageID: p.ID, ComponentType: "PANEL", Label: "Panel", Attributes: "{}"}
	child := types.Component{ID: uuid.New(), PageID: p.ID, ParentID: &parent.ID, ComponentType: "EMAIL_INPUT", Label: "Email", Attributes: `{"required": true}`}

	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		// Child first: the parent reference is checked at commit.
		if err := tx.CreateComponent(ctx, child); err != nil {
			return err
		}
		return tx.CreateComponent(ctx, parent)
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		gotForm, err := tx.Form(ctx, f.ID)
		require.NoError(t, err)
		assert.Equal(t, f, gotForm)

		gotChild, err := tx.Component(ctx, child.ID)
		require.NoError(t, err)
		assert.Equal(t, child, gotChild)

		roots, err := tx.RootComponents(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Nil(t, roots[0].ParentID)

		all, err := tx.PageComponents(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, all, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	_, p := seedPage(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		if err := tx.UpdatePage(ctx, types.Page{ID: p.ID, FormID: p.FormID, Name: "changed", OrderIndex: 9}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		got, err := tx.Page(ctx, p.ID)
		assert.Equal(t, p, got)
		return err
	})
	require.NoError(t, err)
}

func TestInTx_DeferredForeignKeys(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	f, p := seedPage(t, s)

	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		return tx.DeleteForms(ctx, []uuid.UUID{f.ID})
	})
	require.Error(t, err, "commit must fail while a page references the form")

	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		if err := tx.DeleteForms(ctx, []uuid.UUID{f.ID}); err != nil {
			return err
		}
		return tx.DeletePages(ctx, []uuid.UUID{p.ID})
	})
	require.NoError(t, err)
}

func TestTx_NotFound(t *testing.T) {
	s := openTest(t)
	_, p := seedPage(t, s)
	err := s.InTx(context.Background(), func(ctx context.Context, tx tree.Tx) error {
		_, err := tx.Component(ctx, uuid.New())
		assert.True(t, tree.IsNotFound(err))
		err = tx.UpdateForm(ctx, types.Form{ID: uuid.New(), Name: "x"})
		assert.True(t, tree.IsNotFound(err))

		missing := uuid.New()
		err = tx.DeletePages(ctx, []uuid.UUID{p.ID, missing})
		var nf *tree.NotFoundError
		if assert.ErrorAs(t, err, &nf) {
			assert.Equal(t, missing, nf.ID)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestDeletePage_MoreComponentsThanOneBatch(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	f, p := seedPage(t, s)

	n := 2*maxBatch + 17
	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		var parent *uuid.UUID
		for i := 0; i < n; i++ {
			c := types.Component{ID: uuid.New(), PageID: p.ID, ParentID: parent, ComponentType: "TEXT_INPUT", OrderIndex: 0}
			if err := tx.CreateComponent(ctx, c); err != nil {
				return err
			}
			// Every tenth component starts a deeper chain.
			if i%10 == 0 {
				id := c.ID
				parent = &id
			}
		}
		return nil
	})
	require.NoError(t, err)

	rm, err := tree.NewService(s).DeletePage(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, tree.Removal{Pages: 1, Components: n}, rm)

	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		pages, err := tx.Pages(ctx, f.ID)
		require.NoError(t, err)
		assert.Empty(t, pages)
		left, err := tx.PageComponents(ctx, p.ID)
		require.NoError(t, err)
		assert.Empty(t, left)
		return nil
	})
	require.NoError(t, err)
}

func TestDeleteComponents_MissingIDInLaterBatch(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	_, p := seedPage(t, s)

	var ids []uuid.UUID
	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		for i := 0; i < maxBatch+5; i++ {
			c := types.Component{ID: uuid.New(), PageID: p.ID, ComponentType: "TEXT_INPUT", OrderIndex: i}
			if err := tx.CreateComponent(ctx, c); err != nil {
				return err
			}
			ids = append(ids, c.ID)
		}
		return nil
	})
	require.NoError(t, err)

	missing := uuid.New()
	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		return tx.DeleteComponents(ctx, append(append([]uuid.UUID{}, ids...), missing))
	})
	var nf *tree.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, missing, nf.ID)

	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		left, err := tx.PageComponents(ctx, p.ID)
		require.NoError(t, err)
		assert.Len(t, left, len(ids))
		return nil
	})
	require.NoError(t, err)
}

func TestActivity_SkipsDuplicateEventsAcrossBatches(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)
	log := s.Activity()
	formID := uuid.New()
	at := time.Now()

	var entries []activity.Entry
	for i := 0; i < 2*activityBatch+3; i++ {
		entries = append(entries, activity.Entry{
			EventID:    uuid.NewString(),
			EventType:  "component_created",
			OccurredAt: at.Add(time.Duration(i) * time.Millisecond),
			FormID:     formID,
			EntityKind: types.KindComponent,
			EntityID:   uuid.New(),
			Summary:    fmt.Sprintf("c%d", i),
		})
	}
	require.NoError(t, log.WriteEntries(ctx, entries))
	// Writing the same events again is a no-op.
	require.NoError(t, log.WriteEntries(ctx, entries[:activityBatch+1]))

	got, total, err := log.QueryByForm(ctx, formID, activity.QueryOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, len(entries), total)
	require.Len(t, got, 1)
	assert.Equal(t, entries[len(entries)-1].EventID, got[0].EventID)
}
