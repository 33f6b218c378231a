package tree

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// requireText fails with a ValidationError when v is blank.
func requireText(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return invalid("%s is required", field)
	}
	return nil
}

// checkSamePage enforces that a child component lives on its parent's page.
func checkSamePage(childPage uuid.UUID, parent types.Component) error {
	if childPage != parent.PageID {
		return &ConsistencyError{
			Rule:   RuleCrossPage,
			ID:     parent.ID,
			Reason: "component must be on the same page as its parent " + parent.PageID.String(),
		}
	}
	return nil
}

// checkNoCycle verifies that making componentID a child of target would not
// put componentID on its own parent chain. It walks up from target, so it
// catches target == componentID and target being any descendant.
func checkNoCycle(ctx context.Context, tx Tx, componentID uuid.UUID, target types.Component) error {
	seen := map[uuid.UUID]bool{}
	cur := target
	for {
		if cur.ID == componentID {
			return &ConsistencyError{
				Rule:   RuleCycle,
				ID:     componentID,
				Reason: "target parent " + target.ID.String() + " is the component itself or one of its descendants",
			}
		}
		if seen[cur.ID] {
			return &ConsistencyError{
				Rule:   RuleCycle,
				ID:     cur.ID,
				Reason: "existing parent chain of " + target.ID.String() + " loops",
			}
		}
		seen[cur.ID] = true
		if cur.IsRoot() {
			return nil
		}
		next, err := tx.Component(ctx, *cur.ParentID)
		if err != nil {
			return err
		}
		cur = next
	}
}

// member is the part of a sibling that the ordering engine reads.
type member struct {
	ID         uuid.UUID
	OrderIndex int
}

// checkReorderList verifies that requested is exactly the current sibling
// set: non-empty, no duplicates, no foreign ids and no missing members.
// exists resolves ids outside the group so unknown ids surface as NotFound.
func checkReorderList(scope types.SiblingScope, current []member, requested []uuid.UUID, exists func(uuid.UUID) error) error {
	if len(requested) == 0 {
		return invalid("ordered id list for %s %s must not be empty", scope.Kind, scope.ID)
	}

	inGroup := make(map[uuid.UUID]bool, len(current))
	for _, m := range current {
		inGroup[m.ID] = true
	}

	seen := make(map[uuid.UUID]bool, len(requested))
	for _, id := range requested {
		if seen[id] {
			return invalid("id %s appears more than once", id)
		}
		seen[id] = true
		if inGroup[id] {
			continue
		}
		if err := exists(id); err != nil {
			return err
		}
		return invalid("id %s is not a child of %s %s", id, scope.Kind, scope.ID)
	}

	if len(requested) != len(current) {
		var missing []string
		for _, m := range current {
			if !seen[m.ID] {
				missing = append(missing, m.ID.String())
			}
		}
		return invalid("ordered id list for %s %s is missing: %s", scope.Kind, scope.ID, strings.Join(missing, ", "))
	}
	return nil
}
