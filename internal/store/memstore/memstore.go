// Package memstore is an in-memory tree.Repository. Each transaction works
// on a private clone of the state which replaces the live state only when
// the transaction function succeeds and the references still resolve.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"
)

type state struct {
	forms      map[uuid.UUID]types.Form
	pages      map[uuid.UUID]types.Page
	components map[uuid.UUID]types.Component
}

func newState() state {
	return state{
		forms:      map[uuid.UUID]types.Form{},
		pages:      map[uuid.UUID]types.Page{},
		components: map[uuid.UUID]types.Component{},
	}
}

func (s state) clone() state {
	out := state{
		forms:      make(map[uuid.UUID]types.Form, len(s.forms)),
		pages:      make(map[uuid.UUID]types.Page, len(s.pages)),
		components: make(map[uuid.UUID]types.Component, len(s.components)),
	}
	for k, v := range s.forms {
		out.forms[k] = v
	}
	for k, v := range s.pages {
		out.pages[k] = v
	}
	for k, v := range s.components {
		out.components[k] = cloneComponent(v)
	}
	return out
}

func cloneComponent(c types.Component) types.Component {
	if c.ParentID != nil {
		id := *c.ParentID
		c.ParentID = &id
	}
	return c
}

// checkRefs is the commit-time counterpart of deferred foreign keys.
func (s state) checkRefs() error {
	for _, p := range s.pages {
		if _, ok := s.forms[p.FormID]; !ok {
			return fmt.Errorf("memstore: page %s references missing form %s", p.ID, p.FormID)
		}
	}
	for _, c := range s.components {
		if _, ok := s.pages[c.PageID]; !ok {
			return fmt.Errorf("memstore: component %s references missing page %s", c.ID, c.PageID)
		}
		if c.ParentID != nil {
			if _, ok := s.components[*c.ParentID]; !ok {
				return fmt.Errorf("memstore: component %s references missing parent %s", c.ID, *c.ParentID)
			}
		}
	}
	return nil
}

// Store is a tree.Repository held entirely in memory. Transactions are
// serialised.
type Store struct {
	mu    sync.Mutex
	state state
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: newState()}
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx tree.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &transaction{state: s.state.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := tx.state.checkRefs(); err != nil {
		return err
	}
	s.state = tx.state
	return nil
}

type transaction struct {
	state state
}

var _ tree.Tx = (*transaction)(nil)

func sortByOrder[T any](items []T, key func(T) (int, uuid.UUID)) {
	sort.Slice(items, func(i, j int) bool {
		oi, ii := key(items[i])
		oj, ij := key(items[j])
		if oi != oj {
			return oi < oj
		}
		return ii.String() < ij.String()
	})
}

func pageKey(p types.Page) (int, uuid.UUID)           { return p.OrderIndex, p.ID }
func componentKey(c types.Component) (int, uuid.UUID) { return c.OrderIndex, c.ID }

// ── Forms ────────────────────────────────────────────────────────────────────

func (tx *transaction) Form(_ context.Context, id uuid.UUID) (types.Form, error) {
	f, ok := tx.state.forms[id]
	if !ok {
		return types.Form{}, tree.NewNotFound(types.KindForm, id)
	}
	return f, nil
}

func (tx *transaction) Forms(_ context.Context) ([]types.Form, error) {
	out := make([]types.Form, 0, len(tx.state.forms))
	for _, f := range tx.state.forms {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (tx *transaction) CreateForm(_ context.Context, f types.Form) error {
	if _, exists := tx.state.forms[f.ID]; exists {
		return fmt.Errorf("memstore: form %s already exists", f.ID)
	}
	tx.state.forms[f.ID] = f
	return nil
}

func (tx *transaction) UpdateForm(_ context.Context, f types.Form) error {
	if _, ok := tx.state.forms[f.ID]; !ok {
		return tree.NewNotFound(types.KindForm, f.ID)
	}
	tx.state.forms[f.ID] = f
	return nil
}

func (tx *transaction) DeleteForms(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := tx.state.forms[id]; !ok {
			return tree.NewNotFound(types.KindForm, id)
		}
		delete(tx.state.forms, id)
	}
	return nil
}

// ── Pages ────────────────────────────────────────────────────────────────────

func (tx *transaction) Page(_ context.Context, id uuid.UUID) (types.Page, error) {
	p, ok := tx.state.pages[id]
	if !ok {
		return types.Page{}, tree.NewNotFound(types.KindPage, id)
	}
	return p, nil
}

func (tx *transaction) Pages(_ context.Context, formID uuid.UUID) ([]types.Page, error) {
	var out []types.Page
	for _, p := range tx.state.pages {
		if p.FormID == formID {
			out = append(out, p)
		}
	}
	sortByOrder(out, pageKey)
	return out, nil
}

func (tx *transaction) CreatePage(_ context.Context, p types.Page) error {
	if _, exists := tx.state.pages[p.ID]; exists {
		return fmt.Errorf("memstore: page %s already exists", p.ID)
	}
	if _, ok := tx.state.forms[p.FormID]; !ok {
		return tree.NewNotFound(types.KindForm, p.FormID)
	}
	tx.state.pages[p.ID] = p
	return nil
}

func (tx *transaction) UpdatePage(_ context.Context, p types.Page) error {
	if _, ok := tx.state.pages[p.ID]; !ok {
		return tree.NewNotFound(types.KindPage, p.ID)
	}
	tx.state.pages[p.ID] = p
	return nil
}

func (tx *transaction) DeletePages(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := tx.state.pages[id]; !ok {
			return tree.NewNotFound(types.KindPage, id)
		}
		delete(tx.state.pages, id)
	}
	return nil
}

// ── Components ───────────────────────────────────────────────────────────────

func (tx *transaction) Component(_ context.Context, id uuid.UUID) (types.Component, error) {
	c, ok := tx.state.components[id]
	if !ok {
		return types.Component{}, tree.NewNotFound(types.KindComponent, id)
	}
	return cloneComponent(c), nil
}

func (tx *transaction) filterComponents(keep func(types.Component) bool) []types.Component {
	var out []types.Component
	for _, c := range tx.state.components {
		if keep(c) {
			out = append(out, cloneComponent(c))
		}
	}
	sortByOrder(out, componentKey)
	return out
}

func (tx *transaction) RootComponents(_ context.Context, pageID uuid.UUID) ([]types.Component, error) {
	return tx.filterComponents(func(c types.Component) bool {
		return c.PageID == pageID && c.IsRoot()
	}), nil
}

func (tx *transaction) ChildComponents(_ context.Context, parentID uuid.UUID) ([]types.Component, error) {
	return tx.filterComponents(func(c types.Component) bool {
		return types.SameParent(c.ParentID, &parentID)
	}), nil
}

func (tx *transaction) PageComponents(_ context.Context, pageID uuid.UUID) ([]types.Component, error) {
	return tx.filterComponents(func(c types.Component) bool {
		return c.PageID == pageID
	}), nil
}

func (tx *transaction) CreateComponent(_ context.Context, c types.Component) error {
	if _, exists := tx.state.components[c.ID]; exists {
		return fmt.Errorf("memstore: component %s already exists", c.ID)
	}
	if _, ok := tx.state.pages[c.PageID]; !ok {
		return tree.NewNotFound(types.KindPage, c.PageID)
	}
	if c.ParentID != nil {
		if _, ok := tx.state.components[*c.ParentID]; !ok {
			return tree.NewNotFound(types.KindComponent, *c.ParentID)
		}
	}
	tx.state.components[c.ID] = cloneComponent(c)
	return nil
}

func (tx *transaction) UpdateComponent(_ context.Context, c types.Component) error {
	if _, ok := tx.state.components[c.ID]; !ok {
		return tree.NewNotFound(types.KindComponent, c.ID)
	}
	tx.state.components[c.ID] = cloneComponent(c)
	return nil
}

func (tx *transaction) DeleteComponents(_ context.Context, ids []uuid.UUID) error {
	for _, id := range ids {
		if _, ok := tx.state.components[id]; !ok {
			return tree.NewNotFound(types.KindComponent, id)
		}
		delete(tx.state.components, id)
	}
	return nil
}
