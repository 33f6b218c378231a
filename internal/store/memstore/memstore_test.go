package memstore

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedPage(t *testing.T, s *Store) (types.Form, types.Page) {
	t.Helper()
	f := types.Form{ID: uuid.New(), Name: "F"}
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

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, p := seedPage(t, s)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		c := types.Component{ID: uuid.New(), PageID: p.ID, ComponentType: "TEXT_INPUT"}
		if err := tx.CreateComponent(ctx, c); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		comps, err := tx.PageComponents(ctx, p.ID)
		assert.Empty(t, comps)
		return err
	})
	require.NoError(t, err)
}

func TestInTx_RejectsDanglingReferences(t *testing.T) {
	ctx := context.Background()
	s := New()
	f, p := seedPage(t, s)

	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		return tx.DeleteForms(ctx, []uuid.UUID{f.ID})
	})
	require.Error(t, err, "a page still references the form")

	// The same delete succeeds when the page goes in the same transaction.
	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		if err := tx.DeleteForms(ctx, []uuid.UUID{f.ID}); err != nil {
			return err
		}
		return tx.DeletePages(ctx, []uuid.UUID{p.ID})
	})
	require.NoError(t, err)
}

func TestTx_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, p := seedPage(t, s)
	parent := types.Component{ID: uuid.New(), PageID: p.ID, ComponentType: "PANEL"}
	child := types.Component{ID: uuid.New(), PageID: p.ID, ParentID: &parent.ID, ComponentType: "TEXT_INPUT"}

	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		if err := tx.CreateComponent(ctx, parent); err != nil {
			return err
		}
		if err := tx.CreateComponent(ctx, child); err != nil {
			return err
		}
		got, err := tx.Component(ctx, child.ID)
		if err != nil {
			return err
		}
		*got.ParentID = uuid.New()
		return nil
	})
	require.NoError(t, err)

	err = s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		kids, err := tx.ChildComponents(ctx, parent.ID)
		require.Len(t, kids, 1)
		return err
	})
	require.NoError(t, err)
}

func TestTx_ListOrdering(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, p := seedPage(t, s)

	err := s.InTx(ctx, func(ctx context.Context, tx tree.Tx) error {
		for _, idx := range []int{2, 0, 1} {
			c := types.Component{ID: uuid.New(), PageID: p.ID, ComponentType: "TEXT_INPUT", OrderIndex: idx}
			if err := tx.CreateComponent(ctx, c); err != nil {
				return err
			}
		}
		roots, err := tx.RootComponents(ctx, p.ID)
		if err != nil {
			return err
		}
		for i, c := range roots {
			assert.Equal(t, i, c.OrderIndex)
		}
		return nil
	})
	require.NoError(t, err)
}

func TestTx_NotFound(t *testing.T) {
	s := New()
	err := s.InTx(context.Background(), func(ctx context.Context, tx tree.Tx) error {
		_, err := tx.Page(ctx, uuid.New())
		assert.True(t, tree.IsNotFound(err))
		err = tx.CreatePage(ctx, types.Page{ID: uuid.New(), FormID: uuid.New(), Name: "x"})
		assert.True(t, tree.IsNotFound(err))
		err = tx.UpdateComponent(ctx, types.Component{ID: uuid.New()})
		assert.True(t, tree.IsNotFound(err))
		return nil
	})
	require.NoError(t, err)
}
