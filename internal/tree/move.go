package tree

import (
	"context"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// MoveInput describes where a component should go.
//
// ParentSet distinguishes "no parent target given" from "parent explicitly
// cleared": with ParentSet and a nil TargetParentID the component is
// detached to the root level of its page (or of TargetPageID, if given).
type MoveInput struct {
	TargetPageID   *uuid.UUID
	ParentSet      bool
	TargetParentID *uuid.UUID
}

// IsNoop reports whether the input names no destination at all.
func (in MoveInput) IsNoop() bool {
	return !in.ParentSet && in.TargetPageID == nil
}

// Move is the outcome of a component move.
type Move struct {
	Component  types.Component `json:"component"`
	FromPageID uuid.UUID       `json:"fromPageId"`
	FromParent *uuid.UUID      `json:"fromParentComponentId"`
	FromIndex  int             `json:"fromOrderIndex"`
	// Descendants is the number of nested components whose page changed
	// along with the moved component.
	Descendants int  `json:"descendants"`
	Changed     bool `json:"changed"`
}

// destination resolves the page and parent a move targets. Every id named
// by the input must exist, even when the parent's page overrides the page.
func destination(ctx context.Context, tx Tx, comp types.Component, in MoveInput) (uuid.UUID, *uuid.UUID, error) {
	if in.TargetPageID != nil {
		if _, err := tx.Page(ctx, *in.TargetPageID); err != nil {
			return uuid.Nil, nil, err
		}
	}

	switch {
	case in.ParentSet && in.TargetParentID != nil:
		parent, err := tx.Component(ctx, *in.TargetParentID)
		if err != nil {
			return uuid.Nil, nil, err
		}
		if err := checkNoCycle(ctx, tx, comp.ID, parent); err != nil {
			return uuid.Nil, nil, err
		}
		// Parent-page consistency wins over an independently supplied page.
		id := parent.ID
		return parent.PageID, &id, nil
	case in.ParentSet:
		if in.TargetPageID != nil {
			return *in.TargetPageID, nil, nil
		}
		return comp.PageID, nil, nil
	default:
		return *in.TargetPageID, nil, nil
	}
}

// moveComponent relocates a component and its subtree. The component is
// appended to its new sibling group; the old group keeps its gap.
func moveComponent(ctx context.Context, tx Tx, id uuid.UUID, in MoveInput) (Move, error) {
	comp, err := tx.Component(ctx, id)
	if err != nil {
		return Move{}, err
	}
	res := Move{
		Component:  comp,
		FromPageID: comp.PageID,
		FromParent: comp.ParentID,
		FromIndex:  comp.OrderIndex,
	}
	if in.IsNoop() {
		return res, nil
	}

	pageID, parentID, err := destination(ctx, tx, comp, in)
	if err != nil {
		return Move{}, err
	}

	group, err := componentGroup(ctx, tx, pageID, parentID)
	if err != nil {
		return Move{}, err
	}
	comp.PageID = pageID
	comp.ParentID = parentID
	comp.OrderIndex = nextIndex(componentMembers(group), comp.ID)
	if err := tx.UpdateComponent(ctx, comp); err != nil {
		return Move{}, err
	}

	if pageID != res.FromPageID {
		n, err := repageDescendants(ctx, tx, comp.ID, pageID)
		if err != nil {
			return Move{}, err
		}
		res.Descendants = n
	}

	res.Component = comp
	res.Changed = true
	return res, nil
}

// repageDescendants points every descendant of rootID at pageID.
func repageDescendants(ctx context.Context, tx Tx, rootID, pageID uuid.UUID) (int, error) {
	ids, err := collectSubtree(ctx, tx, rootID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if id == rootID {
			continue
		}
		c, err := tx.Component(ctx, id)
		if err != nil {
			return 0, err
		}
		if c.PageID == pageID {
			continue
		}
		c.PageID = pageID
		if err := tx.UpdateComponent(ctx, c); err != nil {
			return 0, err
		}
		n++
	}
	return n, nil
}
