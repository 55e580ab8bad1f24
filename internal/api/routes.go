package api

import (
	"github.com/gorilla/mux"

	"github.com/nepsetrack/portfolio-service/internal/auth"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler, verifier auth.Verifier) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()

	// Market snapshot is public, same as the scraper feed itself
	api.HandleFunc("/market", handler.GetMarket).Methods("GET")

	// Everything under /portfolio is scoped to the authenticated user
	protected := api.PathPrefix("/portfolio").Subrouter()
	protected.Use(auth.Middleware(verifier))
	protected.HandleFunc("", handler.GetPortfolio).Methods("GET")
	protected.HandleFunc("/transactions", handler.ApplyTransaction).Methods("POST")
	protected.HandleFunc("/transactions", handler.ListTransactions).Methods("GET")

	return r
}
