// Package tools exposes the form tree service as MCP tools so an agent can
// inspect and rearrange forms with the same guarantees as the HTTP API.
package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// FormService is the part of the tree service the tools call.
type FormService interface {
	ListForms(ctx context.Context) ([]types.Form, error)
	GetTree(ctx context.Context, id uuid.UUID) (types.FormTree, error)
	CreateComponent(ctx context.Context, in tree.ComponentInput) (types.Component, error)
	MoveComponent(ctx context.Context, id uuid.UUID, in tree.MoveInput) (tree.Move, error)
	ReorderSiblings(ctx context.Context, scope types.SiblingScope, ids []uuid.UUID) ([]uuid.UUID, error)
	DeleteComponent(ctx context.Context, id uuid.UUID) (tree.Removal, error)
	Verify(ctx context.Context, formID uuid.UUID) ([]tree.Violation, error)
}

// Forms implements the form MCP tools.
type Forms struct {
	svc FormService
}

func NewForms(svc FormService) *Forms {
	return &Forms{svc: svc}
}

// ListForms returns every form's id, name and description.
func (f *Forms) ListForms(ctx context.Context, req *mcp.CallToolRequest, input ListFormsInput) (*mcp.CallToolResult, any, error) {
	forms, err := f.svc.ListForms(ctx)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list forms: %v", err)), nil, nil
	}
	res, err := jsonTextResult(map[string]any{
		"count": len(forms),
		"forms": forms,
	})
	return res, nil, err
}

func (f *Forms) GetFormTree(ctx context.Context, req *mcp.CallToolRequest, input GetFormTreeInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("formId", input.FormID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	ft, err := f.svc.GetTree(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to get form %s: %v", input.FormID, err)), nil, nil
	}
	res, err := jsonTextResult(ft)
	return res, nil, err
}

// CreateComponent appends a component to a page root or under a parent.
func (f *Forms) CreateComponent(ctx context.Context, req *mcp.CallToolRequest, input CreateComponentInput) (*mcp.CallToolResult, any, error) {
	pageID, err := parseOptionalID("pageId", input.PageID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	parentID, err := parseOptionalID("parentComponentId", input.ParentID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	c, err := f.svc.CreateComponent(ctx, tree.ComponentInput{
		PageID:        pageID,
		ParentID:      parentID,
		ComponentType: input.ComponentType,
		Label:         input.Label,
		Attributes:    input.Attributes,
	})
	if err != nil {
		return errorResult(fmt.Sprintf("failed to create component: %v", err)), nil, nil
	}
	res, err := jsonTextResult(c)
	return res, nil, err
}

// MoveComponent moves a component, with its subtree, to another page or
// parent. toRoot detaches it from its parent; combining it with a target
// parent is rejected.
func (f *Forms) MoveComponent(ctx context.Context, req *mcp.CallToolRequest, input MoveComponentInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("componentId", input.ComponentID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	if input.ToRoot && input.TargetParentID != "" {
		return errorResult("toRoot and targetParentComponentId are mutually exclusive"), nil, nil
	}

	var in tree.MoveInput
	if in.TargetPageID, err = parseOptionalID("targetPageId", input.TargetPageID); err != nil {
		return errorResult(err.Error()), nil, nil
	}
	if input.TargetParentID != "" {
		if in.TargetParentID, err = parseOptionalID("targetParentComponentId", input.TargetParentID); err != nil {
			return errorResult(err.Error()), nil, nil
		}
		in.ParentSet = true
	}
	if input.ToRoot {
		in.ParentSet = true
	}

	mv, err := f.svc.MoveComponent(ctx, id, in)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to move component %s: %v", input.ComponentID, err)), nil, nil
	}
	res, err := jsonTextResult(mv)
	return res, nil, err
}

func (f *Forms) ReorderSiblings(ctx context.Context, req *mcp.CallToolRequest, input ReorderSiblingsInput) (*mcp.CallToolResult, any, error) {
	scopeID, err := parseID("scopeId", input.ScopeID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	kind := types.EntityKind(input.ScopeKind)
	switch kind {
	case types.KindForm, types.KindPage, types.KindComponent:
	default:
		return errorResult(fmt.Sprintf("scopeKind %q must be form, page or component", input.ScopeKind)), nil, nil
	}
	ids := make([]uuid.UUID, 0, len(input.Order))
	for _, raw := range input.Order {
		id, err := parseID("order entry", raw)
		if err != nil {
			return errorResult(err.Error()), nil, nil
		}
		ids = append(ids, id)
	}

	order, err := f.svc.ReorderSiblings(ctx, types.SiblingScope{Kind: kind, ID: scopeID}, ids)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to reorder %s %s: %v", kind, input.ScopeID, err)), nil, nil
	}
	res, err := jsonTextResult(map[string]any{
		"scope": types.SiblingScope{Kind: kind, ID: scopeID},
		"order": order,
	})
	return res, nil, err
}

func (f *Forms) DeleteComponent(ctx context.Context, req *mcp.CallToolRequest, input DeleteComponentInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("componentId", input.ComponentID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	rm, err := f.svc.DeleteComponent(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to delete component %s: %v", input.ComponentID, err)), nil, nil
	}
	res, err := jsonTextResult(map[string]any{
		"deleted":    true,
		"components": rm.Components,
	})
	return res, nil, err
}

// VerifyForm reports every broken ordering or ownership rule in a form. An
// empty violations list means the tree is consistent.
func (f *Forms) VerifyForm(ctx context.Context, req *mcp.CallToolRequest, input VerifyFormInput) (*mcp.CallToolResult, any, error) {
	id, err := parseID("formId", input.FormID)
	if err != nil {
		return errorResult(err.Error()), nil, nil
	}
	violations, err := f.svc.Verify(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to verify form %s: %v", input.FormID, err)), nil, nil
	}
	res, err := jsonTextResult(map[string]any{
		"healthy":    len(violations) == 0,
		"violations": violations,
	})
	return res, nil, err
}
