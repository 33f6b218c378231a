package handler

import (
	"net/http"
	"time"

	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// ActivityHandler serves the per-form change log. It reads the activity
// store directly, so the log of a deleted form stays readable.
type ActivityHandler struct {
	store activity.Store
}

// NewActivityHandler creates a new ActivityHandler.
func NewActivityHandler(store activity.Store) *ActivityHandler {
	return &ActivityHandler{store: store}
}

// HandleGetFormActivity returns a form's change log, newest first.
// GET /api/forms/{id}/activity
func (h *ActivityHandler) HandleGetFormActivity(w http.ResponseWriter, r *http.Request) {
	formID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}

	opts := activity.DefaultQueryOptions()
	opts.Limit = parseLimit(r, opts.Limit)
	if s := r.URL.Query().Get("since"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_PARAM", "since must be an RFC 3339 timestamp")
			return
		}
		opts.Since = &t
	}
	if k := r.URL.Query().Get("kind"); k != "" {
		opts.EntityKind = types.EntityKind(k)
	}

	entries, total, err := h.store.QueryByForm(r.Context(), formID, opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "QUERY_FAILED", err.Error())
		return
	}
	if entries == nil {
		entries = []activity.Entry{}
	}

	writeJSON(w, http.StatusOK, struct {
		Activities []activity.Entry `json:"activities"`
		TotalCount int              `json:"totalCount"`
	}{entries, total})
}
