package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/store/memstore"
	"github.com/matthewbaird/formbuilder/internal/tree"
)

func TestNewRouter_Health(t *testing.T) {
	h := NewRouter(Config{Service: tree.NewService(memstore.New()), Activity: activity.NewMemoryStore()})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestNewRouter_RecoversFromPanics(t *testing.T) {
	// A nil service panics inside the handler.
	h := NewRouter(Config{Activity: activity.NewMemoryStore()})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/forms", strings.NewReader(`{"name":"x"}`))
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Run(ctx, Config{Port: 0, Service: tree.NewService(memstore.New()), Activity: activity.NewMemoryStore()})
	}()
	cancel()
	require.NoError(t, <-done)
}
