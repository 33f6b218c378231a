package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// DomainEvent carries the canonical shape of every tree change. FormID is
// the document the change belongs to and is what subscribers route on.
type DomainEvent struct {
	ID         string          `json:"id"`
	EventType  string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	FormID     uuid.UUID       `json:"formId"`
	Subject    types.Ref       `json:"subject"`
	Summary    string          `json:"summary"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// Event types.
const (
	FormCreated       = "form_created"
	FormUpdated       = "form_updated"
	FormDeleted       = "form_deleted"
	PageCreated       = "page_created"
	PageUpdated       = "page_updated"
	PageDeleted       = "page_deleted"
	ComponentCreated  = "component_created"
	ComponentUpdated  = "component_updated"
	ComponentDeleted  = "component_deleted"
	ComponentMoved    = "component_moved"
	SiblingsReordered = "siblings_reordered"
)

func newID() string { return uuid.New().String() }

func mustJSON(v any) json.RawMessage {
	b, _ := json.Marshal(v)
	return b
}

func short(id uuid.UUID) string { return id.String()[:8] }

func newEvent(typ string, formID uuid.UUID, subject types.Ref, summary string, payload any) DomainEvent {
	return DomainEvent{
		ID:         newID(),
		EventType:  typ,
		OccurredAt: time.Now(),
		FormID:     formID,
		Subject:    subject,
		Summary:    summary,
		Payload:    mustJSON(payload),
	}
}

// ── Form events ──────────────────────────────────────────────────────────────

func NewFormCreated(f types.Form) DomainEvent {
	return newEvent(FormCreated, f.ID, types.Ref{Kind: types.KindForm, ID: f.ID},
		fmt.Sprintf("Form %q created", f.Name), f)
}

func NewFormUpdated(f types.Form) DomainEvent {
	return newEvent(FormUpdated, f.ID, types.Ref{Kind: types.KindForm, ID: f.ID},
		fmt.Sprintf("Form %q updated", f.Name), f)
}

// DeletedPayload carries the size of a cascading delete.
type DeletedPayload struct {
	Forms      int `json:"forms"`
	Pages      int `json:"pages"`
	Components int `json:"components"`
}

func NewFormDeleted(formID uuid.UUID, p DeletedPayload) DomainEvent {
	return newEvent(FormDeleted, formID, types.Ref{Kind: types.KindForm, ID: formID},
		fmt.Sprintf("Form %s deleted with %d pages and %d components", short(formID), p.Pages, p.Components), p)
}

// ── Page events ──────────────────────────────────────────────────────────────

func NewPageCreated(p types.Page) DomainEvent {
	return newEvent(PageCreated, p.FormID, types.Ref{Kind: types.KindPage, ID: p.ID},
		fmt.Sprintf("Page %q added at position %d", p.Name, p.OrderIndex), p)
}

func NewPageUpdated(p types.Page) DomainEvent {
	return newEvent(PageUpdated, p.FormID, types.Ref{Kind: types.KindPage, ID: p.ID},
		fmt.Sprintf("Page %q updated", p.Name), p)
}

func NewPageDeleted(formID, pageID uuid.UUID, p DeletedPayload) DomainEvent {
	return newEvent(PageDeleted, formID, types.Ref{Kind: types.KindPage, ID: pageID},
		fmt.Sprintf("Page %s deleted with %d components", short(pageID), p.Components), p)
}

// ── Component events ─────────────────────────────────────────────────────────

func NewComponentCreated(formID uuid.UUID, c types.Component) DomainEvent {
	return newEvent(ComponentCreated, formID, types.Ref{Kind: types.KindComponent, ID: c.ID},
		fmt.Sprintf("%s %q added at position %d", c.ComponentType, c.Label, c.OrderIndex), c)
}

func NewComponentUpdated(formID uuid.UUID, c types.Component) DomainEvent {
	return newEvent(ComponentUpdated, formID, types.Ref{Kind: types.KindComponent, ID: c.ID},
		fmt.Sprintf("%s %q updated", c.ComponentType, c.Label), c)
}

func NewComponentDeleted(formID, componentID uuid.UUID, p DeletedPayload) DomainEvent {
	return newEvent(ComponentDeleted, formID, types.Ref{Kind: types.KindComponent, ID: componentID},
		fmt.Sprintf("Component %s deleted with %d descendants", short(componentID), p.Components-1), p)
}

// ComponentMovedPayload carries event-specific data for ComponentMoved.
type ComponentMovedPayload struct {
	ComponentID  uuid.UUID  `json:"componentId"`
	FromFormID   uuid.UUID  `json:"fromFormId"`
	FromPageID   uuid.UUID  `json:"fromPageId"`
	FromParentID *uuid.UUID `json:"fromParentComponentId"`
	ToPageID     uuid.UUID  `json:"toPageId"`
	ToParentID   *uuid.UUID `json:"toParentComponentId"`
	ToOrderIndex int        `json:"toOrderIndex"`
	RepagedNodes int        `json:"repagedDescendants"`
}

func NewComponentMoved(formID uuid.UUID, p ComponentMovedPayload) DomainEvent {
	dest := "root of page " + short(p.ToPageID)
	if p.ToParentID != nil {
		dest = "component " + short(*p.ToParentID)
	}
	return newEvent(ComponentMoved, formID, types.Ref{Kind: types.KindComponent, ID: p.ComponentID},
		fmt.Sprintf("Component %s moved to %s", short(p.ComponentID), dest), p)
}

// SiblingsReorderedPayload carries the new order of a sibling group.
type SiblingsReorderedPayload struct {
	Scope types.SiblingScope `json:"scope"`
	Order []uuid.UUID        `json:"order"`
}

func NewSiblingsReordered(formID uuid.UUID, p SiblingsReorderedPayload) DomainEvent {
	return newEvent(SiblingsReordered, formID, types.Ref{Kind: p.Scope.Kind, ID: p.Scope.ID},
		fmt.Sprintf("Reordered %d children of %s %s", len(p.Order), p.Scope.Kind, short(p.Scope.ID)), p)
}
