// Package api exposes the auction over HTTP: the live auction controls,
// catalog management and the read-only history and notice journal.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Options tune the router.
type Options struct {
	// AllowedOrigins lists the dashboard origins allowed by CORS.
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.logRequests)
	r.Use(middleware.Recoverer)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))
	}

	r.Route("/api", func(r chi.Router) {
		// The journal lives in the shared store, so any replica can read it.
		r.Get("/journal", h.ListJournal)

		// Auction state lives in the leader's engine only.
		r.Group(func(r chi.Router) {
			r.Use(h.requireLeader)

			r.Get("/auction", h.GetAuction)
			r.Get("/history", h.ListHistory)
			r.Get("/standings", h.ListStandings)
			r.Get("/lots", h.ListLots)
			r.Get("/bidders", h.ListBidders)

			r.Post("/auction/{action}", h.PostAction)

			r.Post("/lots", h.CreateLot)
			r.Put("/lots/{id}", h.UpdateLot)
			r.Delete("/lots/{id}", h.DeleteLot)

			r.Post("/bidders", h.CreateBidder)
			r.Put("/bidders/{id}", h.UpdateBidder)
			r.Delete("/bidders/{id}", h.DeleteBidder)
		})
	})

	return r
}

func (h *Handler) requireLeader(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.isLeader != nil && !h.isLeader() {
			writeError(w, http.StatusServiceUnavailable, "this replica is not the auction leader", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
