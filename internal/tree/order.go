package tree

import (
	"context"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// nextIndex implements the append rule: max sibling index + 1, or 0 for an
// empty group. The record being placed is excluded so re-appending a
// member of the group moves it to the end.
func nextIndex(group []member, exclude uuid.UUID) int {
	next := 0
	for _, m := range group {
		if m.ID == exclude {
			continue
		}
		if m.OrderIndex+1 > next {
			next = m.OrderIndex + 1
		}
	}
	return next
}

func pageMembers(pages []types.Page) []member {
	out := make([]member, len(pages))
	for i, p := range pages {
		out[i] = member{ID: p.ID, OrderIndex: p.OrderIndex}
	}
	return out
}

func componentMembers(comps []types.Component) []member {
	out := make([]member, len(comps))
	for i, c := range comps {
		out[i] = member{ID: c.ID, OrderIndex: c.OrderIndex}
	}
	return out
}

// planOrder maps each id whose index must change to its position in
// requested. Members already at their position are left out, which makes
// reordering a dense group to its current order a no-op.
func planOrder(current []member, requested []uuid.UUID) map[uuid.UUID]int {
	have := make(map[uuid.UUID]int, len(current))
	for _, m := range current {
		have[m.ID] = m.OrderIndex
	}
	changes := make(map[uuid.UUID]int)
	for pos, id := range requested {
		if have[id] != pos {
			changes[id] = pos
		}
	}
	return changes
}

// reorderPages rewrites the order of a form's pages to match ids. changed
// is false when every page already held its requested position.
func reorderPages(ctx context.Context, tx Tx, formID uuid.UUID, ids []uuid.UUID) (_ []types.Page, changed bool, _ error) {
	if _, err := tx.Form(ctx, formID); err != nil {
		return nil, false, err
	}
	pages, err := tx.Pages(ctx, formID)
	if err != nil {
		return nil, false, err
	}
	scope := types.SiblingScope{Kind: types.KindForm, ID: formID}
	exists := func(id uuid.UUID) error {
		_, err := tx.Page(ctx, id)
		return err
	}
	if err := checkReorderList(scope, pageMembers(pages), ids, exists); err != nil {
		return nil, false, err
	}

	changes := planOrder(pageMembers(pages), ids)
	for _, p := range pages {
		idx, ok := changes[p.ID]
		if !ok {
			continue
		}
		p.OrderIndex = idx
		if err := tx.UpdatePage(ctx, p); err != nil {
			return nil, false, err
		}
	}
	pages, err = tx.Pages(ctx, formID)
	return pages, len(changes) > 0, err
}

// reorderComponents rewrites the order of a page's root components
// (scope kind page) or of a component's children (scope kind component).
func reorderComponents(ctx context.Context, tx Tx, scope types.SiblingScope, ids []uuid.UUID) (_ []types.Component, changed bool, _ error) {
	list, err := siblingLister(ctx, tx, scope)
	if err != nil {
		return nil, false, err
	}
	comps, err := list()
	if err != nil {
		return nil, false, err
	}
	exists := func(id uuid.UUID) error {
		_, err := tx.Component(ctx, id)
		return err
	}
	if err := checkReorderList(scope, componentMembers(comps), ids, exists); err != nil {
		return nil, false, err
	}

	changes := planOrder(componentMembers(comps), ids)
	for _, c := range comps {
		idx, ok := changes[c.ID]
		if !ok {
			continue
		}
		c.OrderIndex = idx
		if err := tx.UpdateComponent(ctx, c); err != nil {
			return nil, false, err
		}
	}
	comps, err = list()
	return comps, len(changes) > 0, err
}

// siblingLister validates that the container named by scope exists and
// returns a function listing its component children.
func siblingLister(ctx context.Context, tx Tx, scope types.SiblingScope) (func() ([]types.Component, error), error) {
	switch scope.Kind {
	case types.KindPage:
		if _, err := tx.Page(ctx, scope.ID); err != nil {
			return nil, err
		}
		return func() ([]types.Component, error) { return tx.RootComponents(ctx, scope.ID) }, nil
	case types.KindComponent:
		if _, err := tx.Component(ctx, scope.ID); err != nil {
			return nil, err
		}
		return func() ([]types.Component, error) { return tx.ChildComponents(ctx, scope.ID) }, nil
	default:
		return nil, invalid("components cannot be ordered within a %q", scope.Kind)
	}
}

// componentGroup lists the siblings a component at (pageID, parentID) has.
func componentGroup(ctx context.Context, tx Tx, pageID uuid.UUID, parentID *uuid.UUID) ([]types.Component, error) {
	if parentID == nil {
		return tx.RootComponents(ctx, pageID)
	}
	return tx.ChildComponents(ctx, *parentID)
}
