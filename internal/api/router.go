package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/halvard/skriva/internal/journal"
	"github.com/halvard/skriva/internal/sse"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// broker, if non-nil, backs the SSE endpoint at GET /events and entry
// change broadcasts.
func NewRouter(svc *journal.Service, authEnabled bool, token string, broker *sse.Broker) chi.Router {
	h := NewHandler(svc, broker)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Entries: one per date, addressed by ISO date.
	r.Get("/entries", h.ListDates)
	r.Get("/entries/{date}", h.GetEntry)
	r.Put("/entries/{date}", h.PutEntry)
	r.Delete("/entries/{date}", h.DeleteEntry)
	r.Post("/entries/{date}/draft", h.QueueDraft)
	r.Post("/entries/{date}/flush", h.FlushEntry)
	r.Post("/entries/{date}/rename", h.RenameEntry)
	r.Post("/entries/{date}/reflection", h.AttachReflection)

	// Search.
	r.Get("/search", h.Search)

	// Calendar and stats.
	r.Get("/calendar/{year}/{month}", h.Calendar)
	r.Get("/stats", h.Stats)

	// Vault maintenance.
	r.Post("/reconcile", h.Reconcile)

	// SSE endpoint (protected by same auth middleware).
	if broker != nil {
		r.Get("/events", http.HandlerFunc(broker.ServeHTTP))
	}

	return r
}
