// Package api exposes the operator-facing HTTP surface of the settlement
// backend.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buildmandi/backend/internal/auth"
	"github.com/buildmandi/backend/internal/middleware"
	"github.com/buildmandi/backend/internal/service"
)

// NewRouter creates the Chi router with all API routes mounted. Only the
// login endpoint and /metrics are reachable without a bearer token.
func NewRouter(
	settlements *service.SettlementService,
	auths *service.AuthService,
	jwtManager *auth.JWTManager,
) http.Handler {
	h := NewHandlers(settlements, auths)

	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestLogger)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(jwtManager))
			r.Use(chimiddleware.SetHeader("Content-Type", "application/json"))

			r.Get("/vendors/{vendorID}/eligible-orders", h.ListEligibleOrders)

			r.Post("/settlements", h.CreateSettlement)
			r.Get("/settlements", h.ListSettlements)
			r.Get("/settlements/statistics", h.GetStatistics)
			r.Get("/settlements/{id}", h.GetSettlement)
			r.Get("/settlements/{id}/history", h.GetHistory)
			r.Post("/settlements/{id}/transition", h.TransitionSettlement)

			r.Post("/operators", h.RegisterOperator)
		})
	})

	return r
}
