package tools

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// NewServer creates an MCP server with every form tool registered.
func NewServer(svc FormService, version string) *mcp.Server {
	srv := mcp.NewServer(
		&mcp.Implementation{
			Name:    "formbuilder",
			Version: version,
		},
		nil,
	)

	forms := NewForms(svc)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_forms",
		Description: "List every form with its id, name and description, sorted by name.",
	}, forms.ListForms)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_form_tree",
		Description: "Get a form with its ordered pages and each page's ordered component tree. Child components appear under childComponents.",
	}, forms.GetFormTree)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_component",
		Description: "Append a component to the end of a page's root components, or to the end of a parent component's children when parentComponentId is given.",
	}, forms.CreateComponent)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "move_component",
		Description: "Move a component and its whole subtree to another parent or page. It is appended at the end of the destination group. Moving under a component on another page moves it to that page. Cycles are rejected.",
	}, forms.MoveComponent)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "reorder_siblings",
		Description: "Set the order of a sibling group. The order list must contain every current member exactly once; positions become 0..n-1.",
	}, forms.ReorderSiblings)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_component",
		Description: "Delete a component together with all of its descendants. Remaining siblings keep their positions.",
	}, forms.DeleteComponent)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "verify_form",
		Description: "Check a form for ordering gaps, parent/page mismatches, cycles and dangling references.",
	}, forms.VerifyForm)

	return srv
}
