package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/types"
)

const activityTable = "activity_entries"

var activityColumns = []string{"event_id", "event_type", "occurred_at", "form_id", "entity_kind", "entity_id", "summary", "payload"}

// entries per INSERT; keeps bound variables well under SQLite's limit.
const activityBatch = 100

// ActivityStore implements activity.Store in the activity_entries table.
// It writes outside the tree transactions, after they commit.
type ActivityStore struct {
	drv *entsql.Driver
}

// Activity returns the change log stored alongside the tree.
func (s *Store) Activity() *ActivityStore {
	return &ActivityStore{drv: s.drv}
}

// WriteEntries inserts entries. An entry whose event id is already stored
// is skipped.
func (s *ActivityStore) WriteEntries(ctx context.Context, entries []activity.Entry) error {
	for len(entries) > 0 {
		n := min(len(entries), activityBatch)
		ins := builder().Insert(activityTable).Columns(activityColumns...)
		for _, e := range entries[:n] {
			var payload any
			if len(e.Payload) > 0 {
				payload = string(e.Payload)
			}
			ins.Values(e.EventID, e.EventType, e.OccurredAt.UnixNano(), e.FormID.String(),
				string(e.EntityKind), e.EntityID.String(), e.Summary, payload)
		}
		ins.OnConflict(entsql.ConflictColumns("event_id"), entsql.DoNothing())
		query, args := ins.Query()
		if err := s.drv.Exec(ctx, query, args, nil); err != nil {
			return fmt.Errorf("sqlstore: write activity: %w", err)
		}
		entries = entries[n:]
	}
	return nil
}

// QueryByForm returns the form's entries newest first, with the number
// of entries matching the filters before the limit.
func (s *ActivityStore) QueryByForm(ctx context.Context, formID uuid.UUID, opts activity.QueryOptions) ([]activity.Entry, int, error) {
	where := func() *entsql.Predicate {
		preds := []*entsql.Predicate{entsql.EQ("form_id", formID.String())}
		if opts.Since != nil {
			preds = append(preds, entsql.GTE("occurred_at", opts.Since.UnixNano()))
		}
		if opts.EntityKind != "" {
			preds = append(preds, entsql.EQ("entity_kind", string(opts.EntityKind)))
		}
		return entsql.And(preds...)
	}

	var total int
	count := builder().Select(entsql.Count("*")).From(entsql.Table(activityTable)).Where(where())
	err := queryRows(ctx, s.drv, "count activity", count, func(rows *entsql.Rows) error {
		return rows.Scan(&total)
	})
	if err != nil {
		return nil, 0, err
	}

	sel := builder().Select(activityColumns...).From(entsql.Table(activityTable)).
		Where(where()).
		OrderBy(entsql.Desc("occurred_at"), entsql.Desc("seq")).
		Limit(opts.PageSize())
	var out []activity.Entry
	err = queryRows(ctx, s.drv, "query activity", sel, func(rows *entsql.Rows) error {
		e, err := scanEntry(rows)
		if err != nil {
			return err
		}
		out = append(out, e)
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func scanEntry(rows *entsql.Rows) (activity.Entry, error) {
	var (
		e                      activity.Entry
		occurred               int64
		formID, kind, entityID string
		payload                sql.NullString
	)
	if err := rows.Scan(&e.EventID, &e.EventType, &occurred, &formID, &kind, &entityID, &e.Summary, &payload); err != nil {
		return e, err
	}
	var err error
	if e.FormID, err = uuid.Parse(formID); err != nil {
		return e, err
	}
	if e.EntityID, err = uuid.Parse(entityID); err != nil {
		return e, err
	}
	e.OccurredAt = time.Unix(0, occurred)
	e.EntityKind = types.EntityKind(kind)
	if payload.Valid {
		e.Payload = json.RawMessage(payload.String)
	}
	return e, nil
}

var _ activity.Store = (*ActivityStore)(nil)
