package tools

type ListFormsInput struct{}

type GetFormTreeInput struct {
	FormID string `json:"formId" jsonschema:"Form UUID"`
}

type CreateComponentInput struct {
	PageID        string `json:"pageId,omitempty" jsonschema:"Page UUID for a root component. Optional when parentComponentId is given"`
	ParentID      string `json:"parentComponentId,omitempty" jsonschema:"Parent component UUID for a nested component"`
	ComponentType string `json:"componentType" jsonschema:"Component type, e.g. TEXT_INPUT or PANEL"`
	Label         string `json:"label,omitempty" jsonschema:"Display label"`
	Attributes    string `json:"attributes,omitempty" jsonschema:"Opaque attribute blob, usually a JSON object encoded as a string"`
}

type MoveComponentInput struct {
	ComponentID    string `json:"componentId" jsonschema:"Component UUID to move"`
	TargetPageID   string `json:"targetPageId,omitempty" jsonschema:"Destination page UUID"`
	TargetParentID string `json:"targetParentComponentId,omitempty" jsonschema:"Destination parent component UUID"`
	ToRoot         bool   `json:"toRoot,omitempty" jsonschema:"Detach from the current parent and place at page root. Default: false"`
}

type ReorderSiblingsInput struct {
	ScopeKind string   `json:"scopeKind" jsonschema:"Sibling group kind: form (its pages) or page (its root components) or component (its children)"`
	ScopeID   string   `json:"scopeId" jsonschema:"UUID of the form, page or component that owns the group"`
	Order     []string `json:"order" jsonschema:"Complete list of sibling UUIDs in the desired order"`
}

type DeleteComponentInput struct {
	ComponentID string `json:"componentId" jsonschema:"Component UUID to delete together with its descendants"`
}

type VerifyFormInput struct {
	FormID string `json:"formId" jsonschema:"Form UUID to check"`
}
