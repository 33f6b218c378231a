// Package server assembles all HTTP handlers and runs the API server.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/handler"
	"github.com/matthewbaird/formbuilder/internal/tree"
)

// Config holds server configuration.
type Config struct {
	Port     int
	Service  *tree.Service
	Activity activity.Store
	// Events serves the live change feed; nil disables it.
	Events http.Handler
	Logger *slog.Logger
}

// NewRouter builds the API router with its middleware stack.
func NewRouter(cfg Config) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(handler.Logging(logger))
	r.Use(handler.Recovery(logger))

	handler.RegisterRoutes(r, handler.Deps{
		Service:  cfg.Service,
		Activity: cfg.Activity,
		Events:   cfg.Events,
		Logger:   logger,
	})
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// the server down gracefully.
func Run(ctx context.Context, cfg Config) error {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
		// Request contexts derive from ctx so live feeds end on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("server stopped")
	return nil
}
