package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/matthewbaird/formbuilder/internal/activity"
	"github.com/matthewbaird/formbuilder/internal/tree"
)

// Deps are the collaborators the HTTP API is built from. Events may be
// nil, in which case the live feed route is not registered.
type Deps struct {
	Service  *tree.Service
	Activity activity.Store
	Events   http.Handler
	Logger   *slog.Logger
}

// RegisterRoutes registers all API routes on the given router.
func RegisterRoutes(r chi.Router, d Deps) {
	th := NewTreeHandler(d.Service, d.Logger)
	ah := NewActivityHandler(d.Activity)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/forms", func(r chi.Router) {
			r.Post("/", th.CreateForm)
			r.Get("/", th.ListForms)
			r.Get("/{id}", th.GetForm)
			r.Put("/{id}", th.UpdateForm)
			r.Delete("/{id}", th.DeleteForm)
			r.Get("/{id}/verify", th.VerifyForm)
			r.Post("/{id}/pages", th.CreatePage)
			r.Get("/{id}/pages", th.ListPages)
			r.Put("/{id}/pages/reorder", th.ReorderPages)
			r.Get("/{id}/activity", ah.HandleGetFormActivity)
			if d.Events != nil {
				r.Get("/{id}/events", d.Events.ServeHTTP)
			}
		})

		r.Route("/pages/{id}", func(r chi.Router) {
			r.Get("/", th.GetPage)
			r.Put("/", th.UpdatePage)
			r.Delete("/", th.DeletePage)
			r.Post("/components", th.CreatePageComponent)
			r.Get("/components", th.ListPageComponents)
			r.Put("/components/reorder", th.ReorderPageComponents)
		})

		r.Route("/components/{id}", func(r chi.Router) {
			r.Get("/", th.GetComponent)
			r.Put("/", th.UpdateComponent)
			r.Delete("/", th.DeleteComponent)
			r.Post("/components", th.CreateChildComponent)
			r.Get("/components", th.ListChildComponents)
			r.Put("/components/reorder", th.ReorderChildComponents)
			r.Put("/move", th.MoveComponent)
		})
	})
}
