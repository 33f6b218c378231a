package tree

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/event"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// Service exposes the logical tree operations. Each method runs in exactly
// one repository transaction and re-reads the state it mutates; events are
// recorded only after that transaction commits.
type Service struct {
	repo     Repository
	recorder event.Recorder
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRecorder sets the recorder that receives one event per successful
// mutation.
func WithRecorder(r event.Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger used to report recording failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// NewService creates a Service over repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// record is best-effort: the mutation already committed, so a failing
// activity write is logged and otherwise ignored.
func (s *Service) record(ctx context.Context, evts ...event.DomainEvent) {
	if s.recorder == nil {
		return
	}
	for _, evt := range evts {
		if err := s.recorder.Record(ctx, evt); err != nil {
			s.logger.WarnContext(ctx, "failed to record event",
				"type", evt.EventType, "form_id", evt.FormID, "error", err)
		}
	}
}

// formOf returns the form that owns pageID.
func formOf(ctx context.Context, tx Tx, pageID uuid.UUID) (uuid.UUID, error) {
	p, err := tx.Page(ctx, pageID)
	if err != nil {
		return uuid.Nil, err
	}
	return p.FormID, nil
}

// ── Forms ────────────────────────────────────────────────────────────────────

// FormInput holds the fields of a new form.
type FormInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// FormPatch holds the form fields to replace; nil fields are left unchanged.
type FormPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (s *Service) CreateForm(ctx context.Context, in FormInput) (types.Form, error) {
	if err := requireText("form name", in.Name); err != nil {
		return types.Form{}, err
	}
	f := types.Form{ID: uuid.New(), Name: in.Name, Description: in.Description}
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.CreateForm(ctx, f)
	})
	if err != nil {
		return types.Form{}, err
	}
	s.record(ctx, event.NewFormCreated(f))
	return f, nil
}

// ListForms returns every form ordered by name.
func (s *Service) ListForms(ctx context.Context) ([]types.Form, error) {
	var out []types.Form
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Forms(ctx)
		return err
	})
	return out, err
}

// GetForm returns the form record without its pages.
func (s *Service) GetForm(ctx context.Context, id uuid.UUID) (types.Form, error) {
	var out types.Form
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Form(ctx, id)
		return err
	})
	return out, err
}

// GetTree returns a form with its ordered pages and nested components.
func (s *Service) GetTree(ctx context.Context, id uuid.UUID) (types.FormTree, error) {
	var out types.FormTree
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = buildForm(ctx, tx, id)
		return err
	})
	return out, err
}

func (s *Service) UpdateForm(ctx context.Context, id uuid.UUID, patch FormPatch) (types.Form, error) {
	if patch.Name != nil {
		if err := requireText("form name", *patch.Name); err != nil {
			return types.Form{}, err
		}
	}
	var out types.Form
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		f, err := tx.Form(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			f.Name = *patch.Name
		}
		if patch.Description != nil {
			f.Description = *patch.Description
		}
		out = f
		return tx.UpdateForm(ctx, f)
	})
	if err != nil {
		return types.Form{}, err
	}
	s.record(ctx, event.NewFormUpdated(out))
	return out, nil
}

// DeleteForm removes a form with all of its pages and components.
func (s *Service) DeleteForm(ctx context.Context, id uuid.UUID) (Removal, error) {
	var rm Removal
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		rm, err = deleteFormTree(ctx, tx, id)
		return err
	})
	if err != nil {
		return Removal{}, err
	}
	s.record(ctx, event.NewFormDeleted(id, event.DeletedPayload(rm)))
	return rm, nil
}

// ── Pages ────────────────────────────────────────────────────────────────────

// PageInput holds the fields of a new page.
type PageInput struct {
	Name string `json:"name"`
}

// PagePatch holds the page fields to replace; nil fields are left unchanged.
type PagePatch struct {
	Name *string `json:"name"`
}

// CreatePage appends a page to a form.
func (s *Service) CreatePage(ctx context.Context, formID uuid.UUID, in PageInput) (types.Page, error) {
	if err := requireText("page name", in.Name); err != nil {
		return types.Page{}, err
	}
	var out types.Page
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Form(ctx, formID); err != nil {
			return err
		}
		pages, err := tx.Pages(ctx, formID)
		if err != nil {
			return err
		}
		out = types.Page{
			ID:         uuid.New(),
			FormID:     formID,
			Name:       in.Name,
			OrderIndex: nextIndex(pageMembers(pages), uuid.Nil),
		}
		return tx.CreatePage(ctx, out)
	})
	if err != nil {
		return types.Page{}, err
	}
	s.record(ctx, event.NewPageCreated(out))
	return out, nil
}

func (s *Service) GetPage(ctx context.Context, id uuid.UUID) (types.Page, error) {
	var out types.Page
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = tx.Page(ctx, id)
		return err
	})
	return out, err
}

// ListPages returns a form's pages in order.
func (s *Service) ListPages(ctx context.Context, formID uuid.UUID) ([]types.Page, error) {
	var out []types.Page
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Form(ctx, formID); err != nil {
			return err
		}
		var err error
		out, err = tx.Pages(ctx, formID)
		return err
	})
	return out, err
}

// UpdatePage replaces the patched fields. Ownership and order are untouched.
func (s *Service) UpdatePage(ctx context.Context, id uuid.UUID, patch PagePatch) (types.Page, error) {
	if patch.Name != nil {
		if err := requireText("page name", *patch.Name); err != nil {
			return types.Page{}, err
		}
	}
	var out types.Page
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.Page(ctx, id)
		if err != nil {
			return err
		}
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		out = p
		return tx.UpdatePage(ctx, p)
	})
	if err != nil {
		return types.Page{}, err
	}
	s.record(ctx, event.NewPageUpdated(out))
	return out, nil
}

// DeletePage removes a page and every component on it. The remaining
// pages keep their indices.
func (s *Service) DeletePage(ctx context.Context, id uuid.UUID) (Removal, error) {
	var (
		rm     Removal
		formID uuid.UUID
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if formID, err = formOf(ctx, tx, id); err != nil {
			return err
		}
		rm, err = deletePageTree(ctx, tx, id)
		return err
	})
	if err != nil {
		return Removal{}, err
	}
	s.record(ctx, event.NewPageDeleted(formID, id, event.DeletedPayload(rm)))
	return rm, nil
}

// ReorderPages assigns each page of a form its position in ids. Reordering
// to the current order writes nothing and records no event.
func (s *Service) ReorderPages(ctx context.Context, formID uuid.UUID, ids []uuid.UUID) ([]types.Page, error) {
	var (
		out     []types.Page
		changed bool
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, changed, err = reorderPages(ctx, tx, formID, ids)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return out, nil
	}
	s.record(ctx, event.NewSiblingsReordered(formID, event.SiblingsReorderedPayload{
		Scope: types.SiblingScope{Kind: types.KindForm, ID: formID},
		Order: ids,
	}))
	return out, nil
}

// ── Components ───────────────────────────────────────────────────────────────

// ComponentInput holds the fields of a new component. Exactly one of
// PageID and ParentID places it; when both are given they must agree.
type ComponentInput struct {
	PageID        *uuid.UUID `json:"pageId"`
	ParentID      *uuid.UUID `json:"parentComponentId"`
	ComponentType string     `json:"componentType"`
	Label         string     `json:"label"`
	Attributes    string     `json:"attributes"`
}

// ComponentPatch holds the component fields to replace; nil fields are
// left unchanged. Page and parent are changed only by MoveComponent.
type ComponentPatch struct {
	ComponentType *string `json:"componentType"`
	Label         *string `json:"label"`
	Attributes    *string `json:"attributes"`
}

// CreateComponent appends a component to a page's root level or to a
// parent component's children.
func (s *Service) CreateComponent(ctx context.Context, in ComponentInput) (types.Component, error) {
	if err := requireText("componentType", in.ComponentType); err != nil {
		return types.Component{}, err
	}
	if in.PageID == nil && in.ParentID == nil {
		return types.Component{}, invalid("a page or parent component is required")
	}

	var (
		out    types.Component
		formID uuid.UUID
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var pageID uuid.UUID
		if in.PageID != nil {
			if _, err := tx.Page(ctx, *in.PageID); err != nil {
				return err
			}
			pageID = *in.PageID
		}
		if in.ParentID != nil {
			parent, err := tx.Component(ctx, *in.ParentID)
			if err != nil {
				return err
			}
			if in.PageID != nil {
				if err := checkSamePage(pageID, parent); err != nil {
					return err
				}
			}
			pageID = parent.PageID
		}

		var err error
		if formID, err = formOf(ctx, tx, pageID); err != nil {
			return err
		}
		group, err := componentGroup(ctx, tx, pageID, in.ParentID)
		if err != nil {
			return err
		}
		out = types.Component{
			ID:            uuid.New(),
			PageID:        pageID,
			ParentID:      in.ParentID,
			ComponentType: in.ComponentType,
			Label:         in.Label,
			OrderIndex:    nextIndex(componentMembers(group), uuid.Nil),
			Attributes:    in.Attributes,
		}
		return tx.CreateComponent(ctx, out)
	})
	if err != nil {
		return types.Component{}, err
	}
	s.record(ctx, event.NewComponentCreated(formID, out))
	return out, nil
}

// GetComponent returns a component with its nested children.
func (s *Service) GetComponent(ctx context.Context, id uuid.UUID) (types.ComponentNode, error) {
	var out types.ComponentNode
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		out, err = buildComponent(ctx, tx, id)
		return err
	})
	return out, err
}

// ListRootComponents returns a page's root components in order.
func (s *Service) ListRootComponents(ctx context.Context, pageID uuid.UUID) ([]types.Component, error) {
	var out []types.Component
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Page(ctx, pageID); err != nil {
			return err
		}
		var err error
		out, err = tx.RootComponents(ctx, pageID)
		return err
	})
	return out, err
}

// ListChildComponents returns a component's direct children in order.
func (s *Service) ListChildComponents(ctx context.Context, parentID uuid.UUID) ([]types.Component, error) {
	var out []types.Component
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := tx.Component(ctx, parentID); err != nil {
			return err
		}
		var err error
		out, err = tx.ChildComponents(ctx, parentID)
		return err
	})
	return out, err
}

func (s *Service) UpdateComponent(ctx context.Context, id uuid.UUID, patch ComponentPatch) (types.Component, error) {
	if patch.ComponentType != nil {
		if err := requireText("componentType", *patch.ComponentType); err != nil {
			return types.Component{}, err
		}
	}
	var (
		out    types.Component
		formID uuid.UUID
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.Component(ctx, id)
		if err != nil {
			return err
		}
		if formID, err = formOf(ctx, tx, c.PageID); err != nil {
			return err
		}
		if patch.ComponentType != nil {
			c.ComponentType = *patch.ComponentType
		}
		if patch.Label != nil {
			c.Label = *patch.Label
		}
		if patch.Attributes != nil {
			c.Attributes = *patch.Attributes
		}
		out = c
		return tx.UpdateComponent(ctx, c)
	})
	if err != nil {
		return types.Component{}, err
	}
	s.record(ctx, event.NewComponentUpdated(formID, out))
	return out, nil
}

// DeleteComponent removes a component and all of its descendants.
func (s *Service) DeleteComponent(ctx context.Context, id uuid.UUID) (Removal, error) {
	var (
		rm     Removal
		formID uuid.UUID
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		c, err := tx.Component(ctx, id)
		if err != nil {
			return err
		}
		if formID, err = formOf(ctx, tx, c.PageID); err != nil {
			return err
		}
		rm, err = deleteComponentTree(ctx, tx, id)
		return err
	})
	if err != nil {
		return Removal{}, err
	}
	s.record(ctx, event.NewComponentDeleted(formID, id, event.DeletedPayload(rm)))
	return rm, nil
}

// MoveComponent relocates a component, with its subtree, to the
// destination described by in.
func (s *Service) MoveComponent(ctx context.Context, id uuid.UUID, in MoveInput) (Move, error) {
	var (
		res          Move
		fromForm, to uuid.UUID
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if res, err = moveComponent(ctx, tx, id, in); err != nil {
			return err
		}
		if !res.Changed {
			return nil
		}
		if fromForm, err = formOf(ctx, tx, res.FromPageID); err != nil {
			return err
		}
		to, err = formOf(ctx, tx, res.Component.PageID)
		return err
	})
	if err != nil {
		return Move{}, err
	}
	if !res.Changed {
		return res, nil
	}

	p := event.ComponentMovedPayload{
		ComponentID:  id,
		FromFormID:   fromForm,
		FromPageID:   res.FromPageID,
		FromParentID: res.FromParent,
		ToPageID:     res.Component.PageID,
		ToParentID:   res.Component.ParentID,
		ToOrderIndex: res.Component.OrderIndex,
		RepagedNodes: res.Descendants,
	}
	evts := []event.DomainEvent{event.NewComponentMoved(to, p)}
	if fromForm != to {
		evts = append(evts, event.NewComponentMoved(fromForm, p))
	}
	s.record(ctx, evts...)
	return res, nil
}

// ReorderComponents assigns each member of a component sibling group its
// position in ids. scope names a page (its root components) or a parent
// component (its children).
func (s *Service) ReorderComponents(ctx context.Context, scope types.SiblingScope, ids []uuid.UUID) ([]types.Component, error) {
	var (
		out     []types.Component
		changed bool
		formID  uuid.UUID
	)
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if out, changed, err = reorderComponents(ctx, tx, scope, ids); err != nil {
			return err
		}
		pageID := scope.ID
		if scope.Kind == types.KindComponent {
			c, err := tx.Component(ctx, scope.ID)
			if err != nil {
				return err
			}
			pageID = c.PageID
		}
		formID, err = formOf(ctx, tx, pageID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return out, nil
	}
	s.record(ctx, event.NewSiblingsReordered(formID, event.SiblingsReorderedPayload{Scope: scope, Order: ids}))
	return out, nil
}

// ReorderSiblings reorders any sibling group and returns the resulting
// member order.
func (s *Service) ReorderSiblings(ctx context.Context, scope types.SiblingScope, ids []uuid.UUID) ([]uuid.UUID, error) {
	if scope.Kind == types.KindForm {
		pages, err := s.ReorderPages(ctx, scope.ID, ids)
		if err != nil {
			return nil, err
		}
		order := make([]uuid.UUID, len(pages))
		for i, p := range pages {
			order[i] = p.ID
		}
		return order, nil
	}
	comps, err := s.ReorderComponents(ctx, scope, ids)
	if err != nil {
		return nil, err
	}
	order := make([]uuid.UUID, len(comps))
	for i, c := range comps {
		order[i] = c.ID
	}
	return order, nil
}

// Verify reports every broken tree invariant of a form. A healthy tree
// yields an empty list.
func (s *Service) Verify(ctx context.Context, formID uuid.UUID) ([]Violation, error) {
	out := []Violation{}
	err := s.repo.InTx(ctx, func(ctx context.Context, tx Tx) error {
		v, err := verifyForm(ctx, tx, formID)
		out = append(out, v...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
