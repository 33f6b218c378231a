// Package sqlstore is a SQLite tree.Repository and activity log. Statements are built with
// the ent SQL builder and every logical operation runs in one dialect.Tx.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"

	_ "modernc.org/sqlite"
)

const (
	formsTable      = "forms"
	pagesTable      = "pages"
	componentsTable = "components"
)

var (
	formColumns      = []string{"id", "name", "description"}
	pageColumns      = []string{"id", "form_id", "name", "order_index"}
	componentColumns = []string{"id", "page_id", "parent_component_id", "component_type", "label", "order_index", "attributes"}
)

// Store is a tree.Repository backed by SQLite.
type Store struct {
	drv *entsql.Driver
}

// Open connects to the SQLite database at dsn and applies the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the lifetime of the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	drv := entsql.OpenDB(dialect.SQLite, db)
	if err := Migrate(ctx, drv); err != nil {
		drv.Close()
		return nil, err
	}
	return &Store{drv: drv}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.drv.Close()
}

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx tree.Tx) error) error {
	dtx, err := s.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	err = fn(ctx, &transaction{tx: dtx})
	if err == nil {
		err = checkForeignKeys(ctx, dtx)
	}
	if err != nil {
		if rerr := dtx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	if err := dtx.Commit(); err != nil {
		return fmt.Errorf("sqlstore: commit: %w", err)
	}
	return nil
}

// checkForeignKeys reports a dangling reference before COMMIT. A commit
// rejected by a deferred constraint would leave the SQLite transaction
// open on the pooled connection.
func checkForeignKeys(ctx context.Context, tx dialect.Tx) error {
	var rows entsql.Rows
	if err := tx.Query(ctx, "PRAGMA foreign_key_check", []any{}, &rows); err != nil {
		return fmt.Errorf("sqlstore: foreign key check: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		var (
			table, parent string
			rowid         sql.NullInt64
			fkid          int
		)
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("sqlstore: foreign key check: %w", err)
		}
		return fmt.Errorf("sqlstore: row %d of %s references a missing %s row", rowid.Int64, table, parent)
	}
	return rows.Err()
}

type transaction struct {
	tx dialect.Tx
}

var _ tree.Tx = (*transaction)(nil)

func builder() *entsql.DialectBuilder { return entsql.Dialect(dialect.SQLite) }

func (t *transaction) exec(ctx context.Context, op string, q entsql.Querier) (int64, error) {
	query, args := q.Query()
	var res sql.Result
	if err := t.tx.Exec(ctx, query, args, &res); err != nil {
		return 0, fmt.Errorf("sqlstore: %s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlstore: %s: %w", op, err)
	}
	return n, nil
}

// query runs sel and calls scan once per row.
func (t *transaction) query(ctx context.Context, op string, sel *entsql.Selector, scan func(*entsql.Rows) error) error {
	return queryRows(ctx, t.tx, op, sel, scan)
}

// queryRows runs sel on q and calls scan once per row.
func queryRows(ctx context.Context, q dialect.ExecQuerier, op string, sel *entsql.Selector, scan func(*entsql.Rows) error) error {
	query, args := sel.Query()
	var rows entsql.Rows
	if err := q.Query(ctx, query, args, &rows); err != nil {
		return fmt.Errorf("sqlstore: %s: %w", op, err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := scan(&rows); err != nil {
			return fmt.Errorf("sqlstore: %s: %w", op, err)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("sqlstore: %s: %w", op, err)
	}
	return nil
}

func idArgs(ids []uuid.UUID) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func nullableID(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return id.String()
}

// maxBatch bounds how many ids are bound into one IN list. SQLite rejects
// statements with more than 32766 bound variables.
const maxBatch = 500

// inBatches calls fn with consecutive slices of ids of at most maxBatch.
func inBatches(ids []uuid.UUID, fn func([]uuid.UUID) error) error {
	for len(ids) > 0 {
		n := min(len(ids), maxBatch)
		if err := fn(ids[:n]); err != nil {
			return err
		}
		ids = ids[n:]
	}
	return nil
}

// deleteByID removes ids from table. Nothing is deleted when any id is
// missing.
func (t *transaction) deleteByID(ctx context.Context, table string, kind types.EntityKind, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := t.requireIDs(ctx, table, kind, ids); err != nil {
		return err
	}
	return inBatches(ids, func(batch []uuid.UUID) error {
		_, err := t.exec(ctx, "delete "+table, builder().Delete(table).Where(entsql.In("id", idArgs(batch)...)))
		return err
	})
}

// requireIDs fails NotFound naming the first id that has no row in table.
func (t *transaction) requireIDs(ctx context.Context, table string, kind types.EntityKind, ids []uuid.UUID) error {
	found := make(map[string]bool, len(ids))
	err := inBatches(ids, func(batch []uuid.UUID) error {
		sel := builder().Select("id").From(entsql.Table(table)).Where(entsql.In("id", idArgs(batch)...))
		return t.query(ctx, "lookup "+table, sel, func(rows *entsql.Rows) error {
			var id string
			if err := rows.Scan(&id); err != nil {
				return err
			}
			found[id] = true
			return nil
		})
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		if !found[id.String()] {
			return tree.NewNotFound(kind, id)
		}
	}
	return nil
}

// ── Forms ────────────────────────────────────────────────────────────────────

func scanForm(rows *entsql.Rows) (types.Form, error) {
	var f types.Form
	var id string
	if err := rows.Scan(&id, &f.Name, &f.Description); err != nil {
		return f, err
	}
	var err error
	f.ID, err = uuid.Parse(id)
	return f, err
}

func (t *transaction) Form(ctx context.Context, id uuid.UUID) (types.Form, error) {
	var (
		out   types.Form
		found bool
	)
	sel := builder().Select(formColumns...).From(entsql.Table(formsTable)).Where(entsql.EQ("id", id.String()))
	err := t.query(ctx, "select form", sel, func(rows *entsql.Rows) error {
		var err error
		out, err = scanForm(rows)
		found = true
		return err
	})
	if err != nil {
		return types.Form{}, err
	}
	if !found {
		return types.Form{}, tree.NewNotFound(types.KindForm, id)
	}
	return out, nil
}

func (t *transaction) Forms(ctx context.Context) ([]types.Form, error) {
	var out []types.Form
	sel := builder().Select(formColumns...).From(entsql.Table(formsTable)).OrderBy("name", "id")
	err := t.query(ctx, "select forms", sel, func(rows *entsql.Rows) error {
		f, err := scanForm(rows)
		out = append(out, f)
		return err
	})
	return out, err
}

func (t *transaction) CreateForm(ctx context.Context, f types.Form) error {
	_, err := t.exec(ctx, "insert form", builder().Insert(formsTable).
		Columns(formColumns...).
		Values(f.ID.String(), f.Name, f.Description))
	return err
}

func (t *transaction) UpdateForm(ctx context.Context, f types.Form) error {
	n, err := t.exec(ctx, "update form", builder().Update(formsTable).
		Set("name", f.Name).
		Set("description", f.Description).
		Where(entsql.EQ("id", f.ID.String())))
	if err != nil {
		return err
	}
	if n == 0 {
		return tree.NewNotFound(types.KindForm, f.ID)
	}
	return nil
}

func (t *transaction) DeleteForms(ctx context.Context, ids []uuid.UUID) error {
	return t.deleteByID(ctx, formsTable, types.KindForm, ids)
}

// ── Pages ────────────────────────────────────────────────────────────────────

func scanPage(rows *entsql.Rows) (types.Page, error) {
	var p types.Page
	var id, formID string
	if err := rows.Scan(&id, &formID, &p.Name, &p.OrderIndex); err != nil {
		return p, err
	}
	var err error
	if p.ID, err = uuid.Parse(id); err != nil {
		return p, err
	}
	p.FormID, err = uuid.Parse(formID)
	return p, err
}

func (t *transaction) selectPages(ctx context.Context, op string, pred *entsql.Predicate) ([]types.Page, error) {
	var out []types.Page
	sel := builder().Select(pageColumns...).From(entsql.Table(pagesTable)).Where(pred).OrderBy("order_index", "id")
	err := t.query(ctx, op, sel, func(rows *entsql.Rows) error {
		p, err := scanPage(rows)
		out = append(out, p)
		return err
	})
	return out, err
}

func (t *transaction) Page(ctx context.Context, id uuid.UUID) (types.Page, error) {
	pages, err := t.selectPages(ctx, "select page", entsql.EQ("id", id.String()))
	if err != nil {
		return types.Page{}, err
	}
	if len(pages) == 0 {
		return types.Page{}, tree.NewNotFound(types.KindPage, id)
	}
	return pages[0], nil
}

func (t *transaction) Pages(ctx context.Context, formID uuid.UUID) ([]types.Page, error) {
	return t.selectPages(ctx, "select pages", entsql.EQ("form_id", formID.String()))
}

func (t *transaction) CreatePage(ctx context.Context, p types.Page) error {
	_, err := t.exec(ctx, "insert page", builder().Insert(pagesTable).
		Columns(pageColumns...).
		Values(p.ID.String(), p.FormID.String(), p.Name, p.OrderIndex))
	return err
}

func (t *transaction) UpdatePage(ctx context.Context, p types.Page) error {
	n, err := t.exec(ctx, "update page", builder().Update(pagesTable).
		Set("form_id", p.FormID.String()).
		Set("name", p.Name).
		Set("order_index", p.OrderIndex).
		Where(entsql.EQ("id", p.ID.String())))
	if err != nil {
		return err
	}
	if n == 0 {
		return tree.NewNotFound(types.KindPage, p.ID)
	}
	return nil
}

func (t *transaction) DeletePages(ctx context.Context, ids []uuid.UUID) error {
	return t.deleteByID(ctx, pagesTable, types.KindPage, ids)
}

// ── Components ───────────────────────────────────────────────────────────────

func scanComponent(rows *entsql.Rows) (types.Component, error) {
	var (
		c          types.Component
		id, pageID string
		parentID   sql.NullString
	)
	if err := rows.Scan(&id, &pageID, &parentID, &c.ComponentType, &c.Label, &c.OrderIndex, &c.Attributes); err != nil {
		return c, err
	}
	var err error
	if c.ID, err = uuid.Parse(id); err != nil {
		return c, err
	}
	if c.PageID, err = uuid.Parse(pageID); err != nil {
		return c, err
	}
	if parentID.Valid {
		pid, err := uuid.Parse(parentID.String)
		if err != nil {
			return c, err
		}
		c.ParentID = &pid
	}
	return c, nil
}

func (t *transaction) selectComponents(ctx context.Context, op string, pred *entsql.Predicate) ([]types.Component, error) {
	var out []types.Component
	sel := builder().Select(componentColumns...).From(entsql.Table(componentsTable)).Where(pred).OrderBy("order_index", "id")
	err := t.query(ctx, op, sel, func(rows *entsql.Rows) error {
		c, err := scanComponent(rows)
		out = append(out, c)
		return err
	})
	return out, err
}

func (t *transaction) Component(ctx context.Context, id uuid.UUID) (types.Component, error) {
	comps, err := t.selectComponents(ctx, "select component", entsql.EQ("id", id.String()))
	if err != nil {
		return types.Component{}, err
	}
	if len(comps) == 0 {
		return types.Component{}, tree.NewNotFound(types.KindComponent, id)
	}
	return comps[0], nil
}

func (t *transaction) RootComponents(ctx context.Context, pageID uuid.UUID) ([]types.Component, error) {
	return t.selectComponents(ctx, "select root components", entsql.And(
		entsql.EQ("page_id", pageID.String()),
		entsql.IsNull("parent_component_id"),
	))
}

func (t *transaction) ChildComponents(ctx context.Context, parentID uuid.UUID) ([]types.Component, error) {
	return t.selectComponents(ctx, "select child components", entsql.EQ("parent_component_id", parentID.String()))
}

func (t *transaction) PageComponents(ctx context.Context, pageID uuid.UUID) ([]types.Component, error) {
	return t.selectComponents(ctx, "select page components", entsql.EQ("page_id", pageID.String()))
}

func (t *transaction) CreateComponent(ctx context.Context, c types.Component) error {
	_, err := t.exec(ctx, "insert component", builder().Insert(componentsTable).
		Columns(componentColumns...).
		Values(c.ID.String(), c.PageID.String(), nullableID(c.ParentID), c.ComponentType, c.Label, c.OrderIndex, c.Attributes))
	return err
}

func (t *transaction) UpdateComponent(ctx context.Context, c types.Component) error {
	upd := builder().Update(componentsTable).
		Set("page_id", c.PageID.String()).
		Set("component_type", c.ComponentType).
		Set("label", c.Label).
		Set("order_index", c.OrderIndex).
		Set("attributes", c.Attributes)
	if c.IsRoot() {
		upd.SetNull("parent_component_id")
	} else {
		upd.Set("parent_component_id", c.ParentID.String())
	}
	n, err := t.exec(ctx, "update component", upd.Where(entsql.EQ("id", c.ID.String())))
	if err != nil {
		return err
	}
	if n == 0 {
		return tree.NewNotFound(types.KindComponent, c.ID)
	}
	return nil
}

func (t *transaction) DeleteComponents(ctx context.Context, ids []uuid.UUID) error {
	return t.deleteByID(ctx, componentsTable, types.KindComponent, ids)
}
