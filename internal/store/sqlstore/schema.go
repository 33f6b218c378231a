package sqlstore

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
)

// Foreign keys are deferred to commit so a cascade may delete parents and
// children in any order inside one transaction. There is no ON DELETE
// CASCADE: subtree removal is done by the tree engine.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS forms (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS pages (
		id          TEXT PRIMARY KEY,
		form_id     TEXT NOT NULL REFERENCES forms(id) DEFERRABLE INITIALLY DEFERRED,
		name        TEXT NOT NULL,
		order_index INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS pages_form_order ON pages(form_id, order_index)`,
	`CREATE TABLE IF NOT EXISTS components (
		id                  TEXT PRIMARY KEY,
		page_id             TEXT NOT NULL REFERENCES pages(id) DEFERRABLE INITIALLY DEFERRED,
		parent_component_id TEXT REFERENCES components(id) DEFERRABLE INITIALLY DEFERRED,
		component_type      TEXT NOT NULL,
		label               TEXT NOT NULL DEFAULT '',
		order_index         INTEGER NOT NULL,
		attributes          TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS components_page_order ON components(page_id, parent_component_id, order_index)`,
	`CREATE INDEX IF NOT EXISTS components_parent_order ON components(parent_component_id, order_index)`,
	// The change log outlives the records it describes, so it has no
	// foreign keys. seq breaks ties between entries of the same instant.
	`CREATE TABLE IF NOT EXISTS activity_entries (
		seq         INTEGER PRIMARY KEY AUTOINCREMENT,
		event_id    TEXT NOT NULL UNIQUE,
		event_type  TEXT NOT NULL,
		occurred_at INTEGER NOT NULL,
		form_id     TEXT NOT NULL,
		entity_kind TEXT NOT NULL,
		entity_id   TEXT NOT NULL,
		summary     TEXT NOT NULL,
		payload     TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS activity_form_time ON activity_entries(form_id, occurred_at DESC, seq DESC)`,
}

// Migrate creates the tables and indexes if they do not exist.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	for _, stmt := range schema {
		if err := drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			return fmt.Errorf("sqlstore: migrate: %w", err)
		}
	}
	return nil
}
