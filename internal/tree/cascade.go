package tree

import (
	"context"

	"github.com/google/uuid"
)

// Removal counts the records a cascading delete removed.
type Removal struct {
	Forms      int `json:"forms"`
	Pages      int `json:"pages"`
	Components int `json:"components"`
}

// collectSubtree returns rootID and every component it transitively owns,
// deepest first. Traversal follows the child index, so nesting depth is
// unbounded; a visited set stops it on corrupted parent loops.
func collectSubtree(ctx context.Context, tx Tx, rootID uuid.UUID) ([]uuid.UUID, error) {
	var order []uuid.UUID
	seen := map[uuid.UUID]bool{rootID: true}
	stack := []uuid.UUID{rootID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		order = append(order, id)

		children, err := tx.ChildComponents(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			stack = append(stack, c.ID)
		}
	}
	// Pre-order reversed puts every child ahead of its parent.
	for i, j := 0, len(order)-1; i < j; i, j = i+1, j-1 {
		order[i], order[j] = order[j], order[i]
	}
	return order, nil
}

// deleteComponentTree removes a component and its descendants.
func deleteComponentTree(ctx context.Context, tx Tx, id uuid.UUID) (Removal, error) {
	if _, err := tx.Component(ctx, id); err != nil {
		return Removal{}, err
	}
	ids, err := collectSubtree(ctx, tx, id)
	if err != nil {
		return Removal{}, err
	}
	if err := tx.DeleteComponents(ctx, ids); err != nil {
		return Removal{}, err
	}
	return Removal{Components: len(ids)}, nil
}

// deletePageTree removes a page and every component placed on it.
func deletePageTree(ctx context.Context, tx Tx, pageID uuid.UUID) (Removal, error) {
	if _, err := tx.Page(ctx, pageID); err != nil {
		return Removal{}, err
	}
	ids, err := pageComponentIDs(ctx, tx, pageID)
	if err != nil {
		return Removal{}, err
	}
	if len(ids) > 0 {
		if err := tx.DeleteComponents(ctx, ids); err != nil {
			return Removal{}, err
		}
	}
	if err := tx.DeletePages(ctx, []uuid.UUID{pageID}); err != nil {
		return Removal{}, err
	}
	return Removal{Pages: 1, Components: len(ids)}, nil
}

// deleteFormTree removes a form, its pages and all their components.
func deleteFormTree(ctx context.Context, tx Tx, formID uuid.UUID) (Removal, error) {
	if _, err := tx.Form(ctx, formID); err != nil {
		return Removal{}, err
	}
	pages, err := tx.Pages(ctx, formID)
	if err != nil {
		return Removal{}, err
	}

	var compIDs, pageIDs []uuid.UUID
	for _, p := range pages {
		ids, err := pageComponentIDs(ctx, tx, p.ID)
		if err != nil {
			return Removal{}, err
		}
		compIDs = append(compIDs, ids...)
		pageIDs = append(pageIDs, p.ID)
	}
	if len(compIDs) > 0 {
		if err := tx.DeleteComponents(ctx, compIDs); err != nil {
			return Removal{}, err
		}
	}
	if len(pageIDs) > 0 {
		if err := tx.DeletePages(ctx, pageIDs); err != nil {
			return Removal{}, err
		}
	}
	if err := tx.DeleteForms(ctx, []uuid.UUID{formID}); err != nil {
		return Removal{}, err
	}
	return Removal{Forms: 1, Pages: len(pageIDs), Components: len(compIDs)}, nil
}

// pageComponentIDs collects every component on a page, children before
// parents. Subtrees are walked from the roots; components that are on the
// page but unreachable from a root (dangling parent) are appended last.
func pageComponentIDs(ctx context.Context, tx Tx, pageID uuid.UUID) ([]uuid.UUID, error) {
	roots, err := tx.RootComponents(ctx, pageID)
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, r := range roots {
		sub, err := collectSubtree(ctx, tx, r.ID)
		if err != nil {
			return nil, err
		}
		for _, id := range sub {
			seen[id] = true
		}
		ids = append(ids, sub...)
	}

	all, err := tx.PageComponents(ctx, pageID)
	if err != nil {
		return nil, err
	}
	for _, c := range all {
		if !seen[c.ID] {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}
