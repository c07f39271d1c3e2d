/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route
	definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. Logger:     Request logging
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. RequestID:  Unique ID per request for tracing
 4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:

	/api/salesmen/*   Salesman provisioning, hours, slots, blocks
	/api/slots/*      Bulk slot computation
	/api/bookings/*   Booking lifecycle
	/api/payroll/*    Period computation, finalize, adjustments
	/api/rates/*      Commission rate history
	/api/holidays/*   Company holidays

SECURITY NOTE:

	Authentication is an upstream collaborator; the engine trusts the
	X-Actor-ID / X-Actor-Role headers it forwards.

SEE ALSO:
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
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Actor-ID", "X-Actor-Role"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Salesman routes
		r.Route("/salesmen", func(r chi.Router) {
			r.Get("/", h.ListSalesmen)
			r.Post("/", h.CreateSalesman)
			r.Get("/{id}", h.GetSalesman)
			r.Post("/{id}/deactivate", h.DeactivateSalesman)
			r.Put("/{id}/hours", h.ReplaceHours)
			r.Get("/{id}/slots", h.GetSlots)
			r.Get("/{id}/blocks", h.ListBlocks)
			r.Post("/{id}/blocks", h.CreateBlock)
		})

		r.Delete("/blocks/{id}", h.DeleteBlock)

		// Bulk slot computation
		r.Post("/slots/bulk", h.BulkSlots)

		// Booking routes
		r.Route("/bookings", func(r chi.Router) {
			r.Get("/", h.ListBookings)
			r.Post("/", h.CreateBooking)
			r.Get("/{id}", h.GetBooking)
			r.Post("/{id}/confirm", h.ConfirmBooking)
			r.Post("/{id}/cancel", h.CancelBooking)
			r.Post("/{id}/complete", h.CompleteBooking)
		})

		// Payroll routes
		r.Route("/payroll", func(r chi.Router) {
			r.Get("/", h.GetPayroll)
			r.Post("/finalize", h.FinalizePayroll)
			r.Post("/adjustments", h.CreateAdjustment)
		})

		// Rate routes
		r.Route("/rates", func(r chi.Router) {
			r.Get("/", h.ListRates)
			r.Post("/", h.AppendRate)
		})

		// Holiday routes
		r.Route("/holidays", func(r chi.Router) {
			r.Get("/", h.ListHolidays)
			r.Post("/", h.CreateHoliday)
			r.Delete("/{id}", h.DeleteHoliday)
		})
	})

	return r
}
