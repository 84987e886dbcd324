// internal/api/router.go
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"krako-ledger/internal/api/handler"
)

// NewRouter sets up and returns a new HTTP router. A non-positive requestTimeout
// falls back to handler.DefaultTimeout.
func NewRouter(ledgerHandler *handler.LedgerHandler, jwtSecret string, requestTimeout time.Duration, logger *slog.Logger) http.Handler {
	if requestTimeout <= 0 {
		requestTimeout = handler.DefaultTimeout
	}
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Everything under /me acts on the user named by the bearer token.
	r.Route("/me", func(r chi.Router) {
		r.Use(handler.RequireIdentity(jwtSecret, logger))
		r.Get("/profile", ledgerHandler.GetProfile)
		r.Get("/claim", ledgerHandler.GetClaimStatus)
		r.Post("/claim", ledgerHandler.Claim)
		r.Get("/transactions", ledgerHandler.GetTransactionHistory)
	})

	return r
}
