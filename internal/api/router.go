/**
 * @description
 * HTTP router setup for the wallet gateway using go-chi/chi. The gateway is
 * what the browser UI talks to; every route maps onto one ledger store
 * operation.
 */
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new Chi router and registers the gateway routes.
func NewRouter(h *Handler, allowedOrigins []string, gatewayKey string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Gateway-Key"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Wallet gateway is healthy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(GatewayKeyMiddleware(gatewayKey))

		r.Get("/session", h.handleGetSession)
		r.Post("/session/login", h.handleLogin)
		r.Post("/session/logout", h.handleLogout)
		r.Post("/register", h.handleRegister)

		r.Get("/account", h.handleGetAccount)
		r.Post("/account", h.handleUpdateAccount)

		r.Get("/transactions", h.handleListTransactions)
		r.Post("/transactions", h.handleCreateTransaction)
		r.Post("/transactions/refresh", h.handleRefresh)
		r.Post("/transfers/verify", h.handleVerifyRecipient)

		r.Post("/security/pin/validate", h.handleValidatePIN)
		r.Put("/security/pin", h.handleChangePIN)

		r.Post("/top-ups", h.handleStartTopUp)
		r.Post("/top-ups/{reference}/complete", h.handleCompleteTopUp)

		r.Get("/rewards", h.handleGetRewards)
		r.Post("/rewards/redeem", h.handleRedeemPoints)

		r.Get("/notifications", h.handleListNotifications)
		r.Post("/notifications/read", h.handleMarkNotificationsRead)
		r.Delete("/notifications", h.handleClearNotifications)
	})

	return r
}
