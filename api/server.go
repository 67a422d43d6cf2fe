/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend
  5. Identity:   Trusted-header caller extraction (API routes)

ROUTE GROUPS:
  /api/leaves, /api/balance   Employee self-service
  /api/admin/*                Admin operations (RequireAdmin)
  /api/cron/*                 Scheduled triggers (RequireCronSecret,
                              no identity headers needed)

SECURITY NOTE:
  Authentication itself lives in the fronting proxy; this service
  trusts the identity headers it injects. Cron routes bypass identity
  and authenticate with a shared bearer secret instead.

SEE ALSO:
  - identity.go: Caller extraction and gating
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, cronSecret string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Employee-Id", "X-Employee-Name", "X-Employee-Email", "X-Employee-Admin"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Cron routes authenticate with the shared secret, not identity
		// headers.
		r.Route("/cron", func(r chi.Router) {
			r.Use(RequireCronSecret(cronSecret))
			r.Post("/accrual", h.RunAccrual)
			r.Post("/status", h.SweepStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(Identity)

			r.Get("/balance", h.GetBalance)
			r.Route("/leaves", func(r chi.Router) {
				r.Get("/", h.ListLeaves)
				r.Post("/", h.CreateLeave)
				r.Delete("/{id}", h.CancelLeave)
			})

			r.Route("/admin", func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/users", h.ListUsers)
				r.Patch("/users", h.SetJoinDate)
				r.Post("/grants", h.ManualGrant)
				r.Get("/leaves", h.ListAllLeaves)
				r.Delete("/leaves/{id}", h.AdminCancelLeave)
			})
		})
	})

	return r
}
