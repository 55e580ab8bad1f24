package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/nepsetrack/portfolio-service/internal/auth"
	"github.com/nepsetrack/portfolio-service/internal/models"
	"github.com/nepsetrack/portfolio-service/internal/portfolio"
)

// TransactionApplier executes one BUY/SELL for a user. *portfolio.Ledger
// satisfies it.
type TransactionApplier interface {
	Apply(ctx context.Context, userID string, req portfolio.Request) (*portfolio.Receipt, error)
}

// PortfolioReader serves the read side of a user's portfolio. *database.DB
// satisfies it.
type PortfolioReader interface {
	ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error)
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)
}

// MarketReader serves the latest known market snapshot.
type MarketReader interface {
	Snapshot(ctx context.Context) (models.Snapshot, error)
}

// EventPublisher publishes events for accepted transactions. May be nil.
type EventPublisher interface {
	PublishTransactionApplied(ctx context.Context, userID string, tx *models.Transaction) error
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	ledger   TransactionApplier
	store    PortfolioReader
	market   MarketReader
	producer EventPublisher
}

// NewHandler creates a new Handler
func NewHandler(ledger TransactionApplier, store PortfolioReader, market MarketReader, producer EventPublisher) *Handler {
	return &Handler{
		ledger:   ledger,
		store:    store,
		market:   market,
		producer: producer,
	}
}

// ApplyTransaction handles POST /portfolio/transactions
func (h *Handler) ApplyTransaction(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	var req portfolio.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.ledger.Apply(r.Context(), identity.UserID, req)
	if err != nil {
		var validation *portfolio.ValidationError
		switch {
		case errors.As(err, &validation):
			respondError(w, http.StatusBadRequest, validation.Error())
		case errors.Is(err, portfolio.ErrInsufficientHoldings):
			respondError(w, http.StatusBadRequest, "insufficient units held for this sale")
		case errors.Is(err, models.ErrDuplicateTransaction):
			respondError(w, http.StatusConflict, "transaction already submitted")
		default:
			log.Printf("Failed to apply transaction for user %s: %v", identity.UserID, err)
			respondError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please try again")
		}
		return
	}

	if h.producer != nil {
		if err := h.producer.PublishTransactionApplied(r.Context(), identity.UserID, receipt.Transaction); err != nil {
			log.Printf("Failed to publish transaction event: %v", err)
		}
	}

	respondJSON(w, http.StatusCreated, receipt)
}

// GetPortfolio handles GET /portfolio
func (h *Handler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	holdings, err := h.store.ListHoldings(r.Context(), identity.UserID)
	if err != nil {
		log.Printf("Failed to list holdings for user %s: %v", identity.UserID, err)
		respondError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please try again")
		return
	}

	snapshot, err := h.market.Snapshot(r.Context())
	if err != nil {
		// Valuation degrades to cost basis when the feed is unavailable.
		log.Printf("Failed to read market snapshot: %v", err)
		snapshot = models.Snapshot{}
	}

	respondJSON(w, http.StatusOK, portfolio.Valuate(holdings, snapshot, time.Now()))
}

// ListTransactions handles GET /portfolio/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	txs, err := h.store.ListTransactions(r.Context(), identity.UserID)
	if err != nil {
		log.Printf("Failed to list transactions for user %s: %v", identity.UserID, err)
		respondError(w, http.StatusServiceUnavailable, "service temporarily unavailable, please try again")
		return
	}
	if txs == nil {
		txs = []*models.Transaction{}
	}

	respondJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

// GetMarket handles GET /market
func (h *Handler) GetMarket(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.market.Snapshot(r.Context())
	if err != nil {
		log.Printf("Failed to read market snapshot: %v", err)
		respondError(w, http.StatusServiceUnavailable, "market data temporarily unavailable")
		return
	}

	respondJSON(w, http.StatusOK, snapshot)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
