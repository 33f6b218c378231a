package tree

import (
	"context"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// buildForm assembles the nested read model of a form.
func buildForm(ctx context.Context, tx Tx, formID uuid.UUID) (types.FormTree, error) {
	f, err := tx.Form(ctx, formID)
	if err != nil {
		return types.FormTree{}, err
	}
	pages, err := tx.Pages(ctx, formID)
	if err != nil {
		return types.FormTree{}, err
	}
	out := types.FormTree{Form: f, Pages: make([]types.PageNode, 0, len(pages))}
	for _, p := range pages {
		node, err := buildPage(ctx, tx, p)
		if err != nil {
			return types.FormTree{}, err
		}
		out.Pages = append(out.Pages, node)
	}
	return out, nil
}

func buildPage(ctx context.Context, tx Tx, p types.Page) (types.PageNode, error) {
	roots, err := tx.RootComponents(ctx, p.ID)
	if err != nil {
		return types.PageNode{}, err
	}
	nodes, err := buildNodes(ctx, tx, roots, map[uuid.UUID]bool{})
	if err != nil {
		return types.PageNode{}, err
	}
	return types.PageNode{Page: p, Components: nodes}, nil
}

// buildNodes expands each component into a node with its children.
// A component already on the current path is rendered without children.
func buildNodes(ctx context.Context, tx Tx, comps []types.Component, path map[uuid.UUID]bool) ([]types.ComponentNode, error) {
	nodes := make([]types.ComponentNode, 0, len(comps))
	for _, c := range comps {
		node := types.ComponentNode{Component: c, Children: []types.ComponentNode{}}
		if !path[c.ID] {
			children, err := tx.ChildComponents(ctx, c.ID)
			if err != nil {
				return nil, err
			}
			path[c.ID] = true
			node.Children, err = buildNodes(ctx, tx, children, path)
			delete(path, c.ID)
			if err != nil {
				return nil, err
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// buildComponent returns a single component with its nested children.
func buildComponent(ctx context.Context, tx Tx, id uuid.UUID) (types.ComponentNode, error) {
	c, err := tx.Component(ctx, id)
	if err != nil {
		return types.ComponentNode{}, err
	}
	nodes, err := buildNodes(ctx, tx, []types.Component{c}, map[uuid.UUID]bool{})
	if err != nil {
		return types.ComponentNode{}, err
	}
	return nodes[0], nil
}
