// Package types provides the Go structs for the form document model.
// Records are flat and keyed by id: ownership is expressed by the foreign-key
// style references FormID, PageID and ParentID, never by back-pointers.
// The nested shapes (FormTree, PageNode, ComponentNode) are read models built
// from those records and hold children only, one direction.
package types

import (
	"github.com/google/uuid"
)

// EntityKind names one of the three record kinds.
type EntityKind string

const (
	KindForm      EntityKind = "form"
	KindPage      EntityKind = "page"
	KindComponent EntityKind = "component"
)

// Form is the root of a document. Forms are not ordered among themselves.
type Form struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
}

// Page belongs to exactly one Form and is ordered among that form's pages.
type Page struct {
	ID         uuid.UUID `json:"id"`
	FormID     uuid.UUID `json:"formId"`
	Name       string    `json:"name"`
	OrderIndex int       `json:"orderIndex"`
}

// Component belongs to exactly one Page and optionally to a parent Component
// on the same page. Attributes is an opaque blob stored and returned verbatim.
type Component struct {
	ID            uuid.UUID  `json:"id"`
	PageID        uuid.UUID  `json:"pageId"`
	ParentID      *uuid.UUID `json:"parentComponentId"`
	ComponentType string     `json:"componentType"` // e.g. "TEXT_INPUT", "PANEL"
	Label         string     `json:"label"`
	OrderIndex    int        `json:"orderIndex"`
	Attributes    string     `json:"attributes"`
}

// IsRoot reports whether the component sits directly on its page.
func (c Component) IsRoot() bool { return c.ParentID == nil }

// SameParent reports whether two optional parent references point at the
// same component (both unset counts as equal).
func SameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// FormTree is a Form with its ordered pages, each carrying its ordered
// root components and their nested children.
type FormTree struct {
	Form
	Pages []PageNode `json:"pages"`
}

// PageNode is a Page with its ordered root-level components.
type PageNode struct {
	Page
	Components []ComponentNode `json:"components"`
}

// ComponentNode is a Component with its ordered children.
type ComponentNode struct {
	Component
	Children []ComponentNode `json:"childComponents"`
}

// SiblingScope identifies the container whose direct children form a
// sibling group: a Form (its pages), a Page (its root components) or a
// Component (its child components).
type SiblingScope struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}

// Ref is a typed reference to a single record.
type Ref struct {
	Kind EntityKind `json:"kind"`
	ID   uuid.UUID  `json:"id"`
}
