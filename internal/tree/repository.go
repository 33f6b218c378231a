package tree

import (
	"context"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// Repository is the persistence boundary consumed by the engines.
// Every logical operation runs inside a single InTx call, so readers never
// observe a half-applied reorder, move or cascade.
type Repository interface {
	// InTx runs fn in one transaction. If fn returns an error every write
	// made through tx is discarded and the error is returned unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of reads and writes available inside a transaction.
// Lookups by id return a *NotFoundError for missing records. List methods
// return records ordered by OrderIndex (ties broken by id).
type Tx interface {
	Form(ctx context.Context, id uuid.UUID) (types.Form, error)
	Forms(ctx context.Context) ([]types.Form, error)
	CreateForm(ctx context.Context, f types.Form) error
	UpdateForm(ctx context.Context, f types.Form) error
	DeleteForms(ctx context.Context, ids []uuid.UUID) error

	Page(ctx context.Context, id uuid.UUID) (types.Page, error)
	Pages(ctx context.Context, formID uuid.UUID) ([]types.Page, error)
	CreatePage(ctx context.Context, p types.Page) error
	UpdatePage(ctx context.Context, p types.Page) error
	DeletePages(ctx context.Context, ids []uuid.UUID) error

	Component(ctx context.Context, id uuid.UUID) (types.Component, error)
	// RootComponents lists the components of a page that have no parent.
	RootComponents(ctx context.Context, pageID uuid.UUID) ([]types.Component, error)
	// ChildComponents lists the direct children of a component.
	ChildComponents(ctx context.Context, parentID uuid.UUID) ([]types.Component, error)
	// PageComponents lists every component whose page is pageID, at any depth.
	PageComponents(ctx context.Context, pageID uuid.UUID) ([]types.Component, error)
	CreateComponent(ctx context.Context, c types.Component) error
	UpdateComponent(ctx context.Context, c types.Component) error
	DeleteComponents(ctx context.Context, ids []uuid.UUID) error
}
