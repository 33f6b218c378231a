package tree

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// Violation is one broken tree invariant found by Verify.
type Violation struct {
	Rule   string           `json:"rule"`
	Kind   types.EntityKind `json:"kind"`
	ID     uuid.UUID        `json:"id"`
	Detail string           `json:"detail"`
}

// Rules reported by Verify in addition to RuleCycle and RuleCrossPage.
const (
	RuleDenseOrder = "dense_order"
	RuleOrphan     = "orphan"
)

// verifyForm checks every invariant of one form's tree. Gaps left by
// deletes and moves are reported as dense_order violations.
func verifyForm(ctx context.Context, tx Tx, formID uuid.UUID) ([]Violation, error) {
	if _, err := tx.Form(ctx, formID); err != nil {
		return nil, err
	}
	pages, err := tx.Pages(ctx, formID)
	if err != nil {
		return nil, err
	}

	var out []Violation
	out = append(out, checkDense(types.KindForm, formID, pageMembers(pages))...)

	for _, p := range pages {
		all, err := tx.PageComponents(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		byID := make(map[uuid.UUID]types.Component, len(all))
		groups := map[uuid.UUID][]member{}
		var roots []member
		for _, c := range all {
			byID[c.ID] = c
			if c.IsRoot() {
				roots = append(roots, member{ID: c.ID, OrderIndex: c.OrderIndex})
			} else {
				groups[*c.ParentID] = append(groups[*c.ParentID], member{ID: c.ID, OrderIndex: c.OrderIndex})
			}
		}
		out = append(out, checkDense(types.KindPage, p.ID, roots)...)

		parents := make([]uuid.UUID, 0, len(groups))
		for id := range groups {
			parents = append(parents, id)
		}
		sort.Slice(parents, func(i, j int) bool { return parents[i].String() < parents[j].String() })
		for _, id := range parents {
			out = append(out, checkDense(types.KindComponent, id, groups[id])...)
		}

		for _, c := range all {
			if c.IsRoot() {
				continue
			}
			v, err := checkChain(ctx, tx, c, byID)
			if err != nil {
				return nil, err
			}
			if v != nil {
				out = append(out, *v)
			}
		}
	}
	return out, nil
}

// checkDense reports a violation when a group's indices are not 0..n-1.
func checkDense(kind types.EntityKind, id uuid.UUID, group []member) []Violation {
	idx := make([]int, len(group))
	for i, m := range group {
		idx[i] = m.OrderIndex
	}
	sort.Ints(idx)
	for i, v := range idx {
		if v != i {
			return []Violation{{
				Rule:   RuleDenseOrder,
				Kind:   kind,
				ID:     id,
				Detail: fmt.Sprintf("order indices %v are not a permutation of 0..%d", idx, len(idx)-1),
			}}
		}
	}
	return nil
}

// checkChain validates one nested component: its parent must exist, share
// its page, and its parent chain must terminate.
func checkChain(ctx context.Context, tx Tx, c types.Component, samePage map[uuid.UUID]types.Component) (*Violation, error) {
	parent, ok := samePage[*c.ParentID]
	if !ok {
		p, err := tx.Component(ctx, *c.ParentID)
		if IsNotFound(err) {
			return &Violation{Rule: RuleOrphan, Kind: types.KindComponent, ID: c.ID,
				Detail: "parent " + c.ParentID.String() + " does not exist"}, nil
		}
		if err != nil {
			return nil, err
		}
		return &Violation{Rule: RuleCrossPage, Kind: types.KindComponent, ID: c.ID,
			Detail: fmt.Sprintf("on page %s but parent %s is on page %s", c.PageID, p.ID, p.PageID)}, nil
	}

	seen := map[uuid.UUID]bool{c.ID: true}
	for cur := parent; ; {
		if seen[cur.ID] {
			return &Violation{Rule: RuleCycle, Kind: types.KindComponent, ID: c.ID,
				Detail: "parent chain revisits " + cur.ID.String()}, nil
		}
		seen[cur.ID] = true
		if cur.IsRoot() {
			return nil, nil
		}
		next, ok := samePage[*cur.ParentID]
		if !ok {
			// Reported against the component that owns the broken link.
			return nil, nil
		}
		cur = next
	}
}
