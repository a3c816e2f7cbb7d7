/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RequestLogger: Structured request logging (zerolog)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/workers/*       Worker directory + deduction history
  /api/rates/*         Rate card with BOM definitions
  /api/inventory/*     Items, journal, compensations
  /api/production/*    Worker logs and the deduction batch
  /api/payroll/*       Deductions, preview, finalize, runs
  /api/admin/*         Reconciliation and demo seeding

SECURITY NOTE:
  No authentication middleware currently. The X-Actor header is an audit
  stamp, not an identity proof. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Request logging
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Actor"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Worker directory
		r.Route("/workers", func(r chi.Router) {
			r.Get("/", h.ListWorkers)
			r.Post("/", h.SaveWorker)
			r.Get("/{id}", h.GetWorker)
			r.Get("/{id}/deductions", h.GetWorkerDeductions)
		})

		// Rate card
		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRates)
			r.Post("/", h.SaveRate)
		})

		// Inventory journal and stock store
		r.Route("/inventory", func(r chi.Router) {
			r.Route("/items", func(r chi.Router) {
				r.Get("/", h.ListItems)
				r.Post("/", h.SaveItem)
				r.Get("/{id}", h.GetItem)
				r.Get("/{id}/transactions", h.GetItemTransactions)
			})
			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.ListTransactions)
				r.Post("/", h.CreateTransaction)
				r.Post("/{id}/compensate", h.CompensateTransaction)
			})
		})

		// Production logs
		r.Route("/production/logs", func(r chi.Router) {
			r.Get("/", h.ListLogs)
			r.Post("/", h.CreateLog)
			r.Patch("/{id}", h.UpdateLog)
			r.Post("/{id}/approve", h.ApproveLog)
			r.Delete("/{id}", h.DeleteLog)
		})

		// Payroll settlement
		r.Route("/payroll", func(r chi.Router) {
			r.Post("/deductions", h.CreateDeduction)
			r.Delete("/deductions/{id}", h.DeleteDeduction)
			r.Get("/preview", h.PreviewPayroll)
			r.Post("/finalize", h.FinalizePayroll)
			r.Get("/runs", h.ListRuns)
			r.Get("/runs/{id}", h.GetRun)
		})

		// Admin
		r.Route("/admin", func(r chi.Router) {
			r.Post("/reconcile", h.Reconcile)
			r.Post("/seed", h.SeedDemo)
		})

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
