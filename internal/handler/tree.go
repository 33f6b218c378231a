package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/tree"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// TreeHandler implements HTTP handlers for Form, Page, and Component.
type TreeHandler struct {
	svc    *tree.Service
	logger *slog.Logger
}

// NewTreeHandler creates a new TreeHandler.
func NewTreeHandler(svc *tree.Service, logger *slog.Logger) *TreeHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TreeHandler{svc: svc, logger: logger}
}

func (h *TreeHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	treeErrorToHTTP(w, r, h.logger, err)
}

// ---------------------------------------------------------------------------
// Form
// ---------------------------------------------------------------------------

func (h *TreeHandler) CreateForm(w http.ResponseWriter, r *http.Request) {
	var req tree.FormInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	f, err := h.svc.CreateForm(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

func (h *TreeHandler) ListForms(w http.ResponseWriter, r *http.Request) {
	forms, err := h.svc.ListForms(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if forms == nil {
		forms = []types.Form{}
	}
	writeJSON(w, http.StatusOK, forms)
}

// GetForm returns the full nested tree of a form.
func (h *TreeHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	t, err := h.svc.GetTree(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (h *TreeHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req tree.FormPatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	f, err := h.svc.UpdateForm(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *TreeHandler) DeleteForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteForm(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TreeHandler) VerifyForm(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	v, err := h.svc.Verify(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"formId":     id,
		"healthy":    len(v) == 0,
		"violations": v,
	})
}

// ---------------------------------------------------------------------------
// Page
// ---------------------------------------------------------------------------

func (h *TreeHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	formID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req tree.PageInput
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	p, err := h.svc.CreatePage(r.Context(), formID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *TreeHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	formID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	pages, err := h.svc.ListPages(r.Context(), formID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if pages == nil {
		pages = []types.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

func (h *TreeHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	p, err := h.svc.GetPage(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *TreeHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req tree.PagePatch
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	p, err := h.svc.UpdatePage(r.Context(), id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *TreeHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeletePage(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderPagesRequest struct {
	PageIDs []uuid.UUID `json:"pageIds"`
}

func (h *TreeHandler) ReorderPages(w http.ResponseWriter, r *http.Request) {
	formID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req reorderPagesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	pages, err := h.svc.ReorderPages(r.Context(), formID, req.PageIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

// ---------------------------------------------------------------------------
// Component
// ---------------------------------------------------------------------------

type componentRequest struct {
	ComponentType string          `json:"componentType"`
	Label         string          `json:"label"`
	Attributes    json.RawMessage `json:"attributes"`
}

// attributeText returns the stored form of an attributes value. A JSON
// string is unquoted; any other JSON value is kept as its raw text.
func attributeText(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	return string(raw), nil
}

func (h *TreeHandler) createComponent(w http.ResponseWriter, r *http.Request, in tree.ComponentInput) {
	var req componentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	attrs, err := attributeText(req.Attributes)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	in.ComponentType = req.ComponentType
	in.Label = req.Label
	in.Attributes = attrs

	c, err := h.svc.CreateComponent(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// CreatePageComponent appends a root component to a page.
func (h *TreeHandler) CreatePageComponent(w http.ResponseWriter, r *http.Request) {
	pageID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	h.createComponent(w, r, tree.ComponentInput{PageID: &pageID})
}

// CreateChildComponent appends a child to a component.
func (h *TreeHandler) CreateChildComponent(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	h.createComponent(w, r, tree.ComponentInput{ParentID: &parentID})
}

func (h *TreeHandler) ListPageComponents(w http.ResponseWriter, r *http.Request) {
	pageID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	comps, err := h.svc.ListRootComponents(r.Context(), pageID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if comps == nil {
		comps = []types.Component{}
	}
	writeJSON(w, http.StatusOK, comps)
}

func (h *TreeHandler) ListChildComponents(w http.ResponseWriter, r *http.Request) {
	parentID, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	comps, err := h.svc.ListChildComponents(r.Context(), parentID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if comps == nil {
		comps = []types.Component{}
	}
	writeJSON(w, http.StatusOK, comps)
}

func (h *TreeHandler) GetComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	c, err := h.svc.GetComponent(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

type updateComponentRequest struct {
	ComponentType *string         `json:"componentType"`
	Label         *string         `json:"label"`
	Attributes    json.RawMessage `json:"attributes"`
}

// UpdateComponent patches type, label and attributes. Linkage fields in
// the body are ignored; use the move endpoint to relocate a component.
func (h *TreeHandler) UpdateComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req updateComponentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	patch := tree.ComponentPatch{ComponentType: req.ComponentType, Label: req.Label}
	if req.Attributes != nil {
		attrs, err := attributeText(req.Attributes)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
			return
		}
		patch.Attributes = &attrs
	}
	c, err := h.svc.UpdateComponent(r.Context(), id, patch)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *TreeHandler) DeleteComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	if _, err := h.svc.DeleteComponent(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reorderComponentsRequest struct {
	ComponentIDs []uuid.UUID `json:"componentIds"`
}

func (h *TreeHandler) reorderComponents(w http.ResponseWriter, r *http.Request, kind types.EntityKind) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var req reorderComponentsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	comps, err := h.svc.ReorderComponents(r.Context(), types.SiblingScope{Kind: kind, ID: id}, req.ComponentIDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, comps)
}

// ReorderPageComponents reorders the root components of a page.
func (h *TreeHandler) ReorderPageComponents(w http.ResponseWriter, r *http.Request) {
	h.reorderComponents(w, r, types.KindPage)
}

// ReorderChildComponents reorders the children of a component.
func (h *TreeHandler) ReorderChildComponents(w http.ResponseWriter, r *http.Request) {
	h.reorderComponents(w, r, types.KindComponent)
}

var errBadMoveTarget = errors.New("move target ids must be UUID strings or null")

// parseMoveInput keeps the difference between an absent
// targetParentComponentId and an explicit null.
func parseMoveInput(body map[string]json.RawMessage) (tree.MoveInput, error) {
	var in tree.MoveInput
	optionalID := func(raw json.RawMessage) (*uuid.UUID, error) {
		if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
			return nil, nil
		}
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, errBadMoveTarget
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, errBadMoveTarget
		}
		return &id, nil
	}

	if raw, ok := body["targetPageId"]; ok {
		id, err := optionalID(raw)
		if err != nil {
			return in, err
		}
		in.TargetPageID = id
	}
	if raw, ok := body["targetParentComponentId"]; ok {
		id, err := optionalID(raw)
		if err != nil {
			return in, err
		}
		in.ParentSet = true
		in.TargetParentID = id
	}
	return in, nil
}

func (h *TreeHandler) MoveComponent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseUUID(w, r, "id")
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", err.Error())
		return
	}
	in, err := parseMoveInput(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", err.Error())
		return
	}
	res, err := h.svc.MoveComponent(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Component)
}
