package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/event"
	"github.com/matthewbaird/formbuilder/internal/store/memstore"
	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"
)

type api struct {
	t      *testing.T
	router http.Handler
}

func newAPI(t *testing.T) *api {
	store := activity.NewMemoryStore()
	svc := tree.NewService(memstore.New(), tree.WithRecorder(event.NewActivityRecorder(store)))
	r := chi.NewRouter()
	RegisterRoutes(r, Deps{Service: svc, Activity: store})
	return &api{t: t, router: r}
}

// do sends body (marshalled unless it is already a string) and decodes the
// response into out when out is non-nil.
func (a *api) do(method, path string, body any, out any) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(a.t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	if out != nil {
		require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

func (a *api) errorCode(rec *httptest.ResponseRecorder) string {
	a.t.Helper()
	var body map[string]string
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["code"]
}

type fixture struct {
	form    types.Form
	page    types.Page
	text    types.Component
	panel   types.Component
	email   types.Component
	another types.Page
}

func (a *api) seed() fixture {
	a.t.Helper()
	var fx fixture
	require.Equal(a.t, http.StatusCreated, a.do("POST", "/api/forms/", map[string]string{"name": "F1", "description": "d"}, &fx.form).Code)
	require.Equal(a.t, http.StatusCreated, a.do("POST", "/api/forms/"+fx.form.ID.String()+"/pages", map[string]string{"name": "P1"}, &fx.page).Code)
	require.Equal(a.t, http.StatusCreated, a.do("POST", "/api/forms/"+fx.form.ID.String()+"/pages", map[string]string{"name": "P2"}, &fx.another).Code)
	pagePath := "/api/pages/" + fx.page.ID.String() + "/components"
	require.Equal(a.t, http.StatusCreated, a.do("POST", pagePath, map[string]any{"componentType": "TEXT_INPUT", "label": "Name", "attributes": `{"placeholder":"Enter"}`}, &fx.text).Code)
	require.Equal(a.t, http.StatusCreated, a.do("POST", pagePath, map[string]any{"componentType": "PANEL", "label": "Contact"}, &fx.panel).Code)
	require.Equal(a.t, http.StatusCreated, a.do("POST", "/api/components/"+fx.panel.ID.String()+"/components",
		map[string]any{"componentType": "EMAIL_INPUT", "label": "Email", "attributes": map[string]bool{"required": true}}, &fx.email).Code)
	return fx
}

func TestCreateAndGetTree(t *testing.T) {
	a := newAPI(t)
	fx := a.seed()

	assert.Equal(t, `{"placeholder":"Enter"}`, fx.text.Attributes)
	assert.Equal(t, `{"required":true}`, fx.email.Attributes, "non-string attributes are stored as raw JSON")
	assert.Equal(t, fx.page.ID, fx.email.PageID)

	var raw map[string]any
	rec := a.do("GET", "/api/forms/"+fx.form.ID.String(), nil, &raw)
	require.Equal(t, http.StatusOK, rec.Code)
	pages := raw["pages"].([]any)
	require.Len(t, pages, 2)
	comps := pages[0].(map[string]any)["components"].([]any)
	require.Len(t, comps, 2)
	panel := comps[1].(map[string]any)
	assert.Equal(t, "Contact", panel["label"])
	children := panel["childComponents"].([]any)
	require.Len(t, children, 1)
	assert.Equal(t, "Email", children[0].(map[string]any)["label"])
	assert.Equal(t, panel["id"], children[0].(map[string]any)["parentComponentId"])

	var forms []types.Form
	a.do("GET", "/api/forms", nil, &forms)
	require.Len(t, forms, 1)
	assert.Equal(t, "F1", forms[0].Name)
}

func TestErrors(t *testing.T) {
	a := newAPI(t)
	fx := a.seed()

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		status int
		code   string
	}{
		{"bad id", "GET", "/api/forms/nope", nil, 400, "INVALID_ID"},
		{"missing form", "GET", "/api/forms/" + uuid.NewString(), nil, 404, "NOT_FOUND"},
		{"bad json", "POST", "/api/forms", `{"name":`, 400, "INVALID_JSON"},
		{"blank name", "POST", "/api/forms", map[string]string{"name": ""}, 400, "VALIDATION_ERROR"},
		{"missing type", "POST", "/api/pages/" + fx.page.ID.String() + "/components", map[string]string{"label": "x"}, 400, "VALIDATION_ERROR"},
		{"empty reorder", "PUT", "/api/pages/" + fx.page.ID.String() + "/components/reorder", map[string]any{}, 400, "VALIDATION_ERROR"},
		{"partial reorder", "PUT", "/api/pages/" + fx.page.ID.String() + "/components/reorder",
			map[string]any{"componentIds": []uuid.UUID{fx.panel.ID}}, 400, "VALIDATION_ERROR"},
		{"cycle", "PUT", "/api/components/" + fx.panel.ID.String() + "/move",
			map[string]any{"targetParentComponentId": fx.email.ID}, 409, "CONSISTENCY_ERROR"},
		{"missing move target", "PUT", "/api/components/" + fx.text.ID.String() + "/move",
			map[string]any{"targetPageId": uuid.New()}, 404, "NOT_FOUND"},
		{"bad move target", "PUT", "/api/components/" + fx.text.ID.String() + "/move",
			map[string]any{"targetPageId": 7}, 400, "INVALID_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(tt.method, tt.path, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, a.errorCode(rec))
		})
	}
}

func TestReorderEndpoints(t *testing.T) {
	a := newAPI(t)
	fx := a.seed()

	var roots []types.Component
	rec := a.do("PUT", "/api/pages/"+fx.page.ID.String()+"/components/reorder",
		map[string]any{"componentIds": []uuid.UUID{fx.panel.ID, fx.text.ID}}, &roots)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, roots, 2)
	assert.Equal(t, fx.panel.ID, roots[0].ID)
	assert.Equal(t, 1, roots[1].OrderIndex)

	a.do("GET", "/api/pages/"+fx.page.ID.String()+"/components", nil, &roots)
	assert.Equal(t, []uuid.UUID{fx.panel.ID, fx.text.ID}, []uuid.UUID{roots[0].ID, roots[1].ID})

	var pages []types.Page
	rec = a.do("PUT", "/api/forms/"+fx.form.ID.String()+"/pages/reorder",
		map[string]any{"pageIds": []uuid.UUID{fx.another.ID, fx.page.ID}}, &pages)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fx.another.ID, pages[0].ID)
}

func TestMoveEndpoint_NullParent(t *testing.T) {
	a := newAPI(t)
	fx := a.seed()
	movePath := "/api/components/" + fx.email.ID.String() + "/move"

	// Page only, parent absent: root of the other page.
	var moved types.Component
	rec := a.do("PUT", movePath, `{"targetPageId":"`+fx.another.ID.String()+`"}`, &moved)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fx.another.ID, moved.PageID)
	assert.Nil(t, moved.ParentID)

	// Back under the panel: the parent's page wins.
	rec = a.do("PUT", movePath, `{"targetPageId":"`+fx.another.ID.String()+`","targetParentComponentId":"`+fx.panel.ID.String()+`"}`, &moved)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fx.page.ID, moved.PageID)
	require.NotNil(t, moved.ParentID)

	// Explicit null: detach, keep current page.
	rec = a.do("PUT", movePath, `{"targetParentComponentId":null}`, &moved)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, fx.page.ID, moved.PageID)
	assert.Nil(t, moved.ParentID)
	assert.Equal(t, 2, moved.OrderIndex)

	// Empty body: no-op.
	var same types.Component
	rec = a.do("PUT", movePath, `{}`, &same)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, moved, same)
}

func TestUpdateAndDelete(t *testing.T) {
	a := newAPI(t)
	fx := a.seed()

	var c types.Component
	rec := a.do("PUT", "/api/components/"+fx.text.ID.String(),
		map[string]any{"label": "Full name", "parentComponentId": fx.panel.ID}, &c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Full name", c.Label)
	assert.Nil(t, c.ParentID, "updates never change linkage")
	assert.Equal(t, `{"placeholder":"Enter"}`, c.Attributes)

	var p types.Page
	rec = a.do("PUT", "/api/pages/"+fx.page.ID.String(), map[string]string{"name": "Intro"}, &p)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Intro", p.Name)

	assert.Equal(t, http.StatusNoContent, a.do("DELETE", "/api/components/"+fx.panel.ID.String(), nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do("GET", "/api/components/"+fx.email.ID.String(), nil, nil).Code)

	assert.Equal(t, http.StatusNoContent, a.do("DELETE", "/api/pages/"+fx.page.ID.String(), nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do("GET", "/api/components/"+fx.text.ID.String(), nil, nil).Code)

	assert.Equal(t, http.StatusNoContent, a.do("DELETE", "/api/forms/"+fx.form.ID.String(), nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, a.do("GET", "/api/pages/"+fx.another.ID.String(), nil, nil).Code)
}

func TestVerifyEndpoint(t *testing.T) {
	a := newAPI(t)
	fx := a.seed()

	var res struct {
		Healthy    bool             `json:"healthy"`
		Violations []tree.Violation `json:"violations"`
	}
	a.do("GET", "/api/forms/"+fx.form.ID.String()+"/verify", nil, &res)
	assert.True(t, res.Healthy)
	assert.Empty(t, res.Violations)

	a.do("DELETE", "/api/components/"+fx.text.ID.String(), nil, nil)
	a.do("GET", "/api/forms/"+fx.form.ID.String()+"/verify", nil, &res)
	assert.False(t, res.Healthy)
	require.Len(t, res.Violations, 1)
	assert.Equal(t, tree.RuleDenseOrder, res.Violations[0].Rule)
	assert.Equal(t, fx.page.ID, res.Violations[0].ID)
}

func TestActivityEndpoint(t *testing.T) {
	a := newAPI(t)
	fx := a.seed()

	var res struct {
		Activities []activity.Entry `json:"activities"`
		TotalCount int              `json:"totalCount"`
	}
	rec := a.do("GET", "/api/forms/"+fx.form.ID.String()+"/activity?limit=2", nil, &res)
	require.Equal(t, http.StatusOK, rec.Code)
	// form + 2 pages + 3 components
	assert.Equal(t, 6, res.TotalCount)
	require.Len(t, res.Activities, 2)
	assert.Equal(t, event.ComponentCreated, res.Activities[0].EventType)
	assert.Equal(t, fx.email.ID, res.Activities[0].EntityID)

	a.do("GET", "/api/forms/"+fx.form.ID.String()+"/activity?kind=page", nil, &res)
	assert.Equal(t, 2, res.TotalCount)

	rec = a.do("GET", "/api/forms/"+fx.form.ID.String()+"/activity?since=yesterday", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseMoveInput(t *testing.T) {
	id := uuid.New()
	tests := []struct {
		name string
		body string
		want tree.MoveInput
	}{
		{"empty", `{}`, tree.MoveInput{}},
		{"page only", `{"targetPageId":"` + id.String() + `"}`, tree.MoveInput{TargetPageID: &id}},
		{"null page", `{"targetPageId":null}`, tree.MoveInput{}},
		{"null parent", `{"targetParentComponentId":null}`, tree.MoveInput{ParentSet: true}},
		{"parent", `{"targetParentComponentId":"` + id.String() + `"}`, tree.MoveInput{ParentSet: true, TargetParentID: &id}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body map[string]json.RawMessage
			require.NoError(t, json.Unmarshal([]byte(tt.body), &body))
			got, err := parseMoveInput(body)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
