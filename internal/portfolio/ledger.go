package portfolio

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// Store is the persistence surface the ledger needs. *database.DB satisfies it.
type Store interface {
	GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error)
	ApplyPortfolioMutation(ctx context.Context, userID string, m *models.PortfolioMutation) error
	ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error)
	DeleteTransactions(ctx context.Context, userID string, ids []string) error
}

// MarketSource supplies the latest known quote for a symbol, used only to
// backfill company names. A nil quote means the feed has no entry.
type MarketSource interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
}

// Request is a transaction as submitted by the client. Units and price
// arrive as strings (form input) and are validated here rather than
// trusted upstream.
type Request struct {
	Symbol      string `json:"symbol"`
	CompanyName string `json:"company_name"`
	Type        string `json:"type"`
	Units       string `json:"units"`
	Price       string `json:"price"`
	ClientRef   string `json:"client_ref"`
}

// Receipt describes the effects of an accepted transaction.
type Receipt struct {
	Holding     *models.Holding     `json:"holding,omitempty"`
	Removed     bool                `json:"removed,omitempty"`
	Transaction *models.Transaction `json:"transaction"`
}

// Concurrent mutations for one user are rare (one form, one submit), so a
// handful of compare-and-swap retries is plenty.
const maxApplyAttempts = 3

// Ledger owns all writes to a user's holdings. Each accepted transaction
// commits the new holding state, the history record, and the profile stamp
// as one atomic batch, then prunes history as a follow-up step.
type Ledger struct {
	store  Store
	market MarketSource
	pruner *Pruner

	now   func() time.Time
	newID func() string
}

// NewLedger creates a Ledger backed by the given store and market source
func NewLedger(store Store, market MarketSource) *Ledger {
	return &Ledger{
		store:  store,
		market: market,
		pruner: NewPruner(store),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Apply validates and executes one BUY or SELL for the user. On success the
// holding has been upserted (or removed when sold out), exactly one history
// record exists for the order, and history has been pruned. Pruning failures
// are logged and swallowed; they never affect the committed mutation.
func (l *Ledger) Apply(ctx context.Context, userID string, req Request) (*Receipt, error) {
	symbol := NormalizeSymbol(req.Symbol)
	if symbol == "" {
		return nil, validationf("symbol is required")
	}

	txType := strings.ToUpper(strings.TrimSpace(req.Type))
	if txType != models.TransactionTypeBuy && txType != models.TransactionTypeSell {
		return nil, validationf("type must be BUY or SELL")
	}

	units, err := strconv.ParseInt(strings.TrimSpace(req.Units), 10, 64)
	if err != nil || units <= 0 {
		return nil, validationf("units must be a positive whole number")
	}

	price, err := decimal.NewFromString(strings.TrimSpace(req.Price))
	if err != nil || !price.IsPositive() {
		return nil, validationf("price must be a positive number")
	}

	var receipt *Receipt
	for attempt := 0; attempt < maxApplyAttempts; attempt++ {
		receipt, err = l.apply(ctx, userID, symbol, txType, units, price, req)
		if errors.Is(err, models.ErrVersionConflict) {
			continue
		}
		break
	}
	if errors.Is(err, models.ErrVersionConflict) {
		return nil, &StoreUnavailableError{Op: "apply transaction", Err: err}
	}
	if err != nil {
		return nil, err
	}

	if err := l.pruner.Prune(ctx, userID); err != nil {
		log.Printf("Failed to prune history for user %s: %v", userID, err)
	}
	return receipt, nil
}

func (l *Ledger) apply(ctx context.Context, userID, symbol, txType string, units int64, price decimal.Decimal, req Request) (*Receipt, error) {
	current, err := l.store.GetHolding(ctx, userID, symbol)
	if err != nil {
		return nil, &StoreUnavailableError{Op: "read holding", Err: err}
	}

	companyName := l.resolveCompanyName(ctx, symbol, req.CompanyName, current)

	var newUnits int64
	var newWACC decimal.Decimal
	var expectedVersion int64
	currentUnits := int64(0)
	currentWACC := decimal.Zero
	if current != nil {
		currentUnits = current.Units
		currentWACC = current.WACC
		expectedVersion = current.Version
	}

	switch txType {
	case models.TransactionTypeBuy:
		newUnits = currentUnits + units
		totalCost := decimal.NewFromInt(currentUnits).Mul(currentWACC).
			Add(decimal.NewFromInt(units).Mul(price))
		newWACC = totalCost.Div(decimal.NewFromInt(newUnits)).Round(2)
	case models.TransactionTypeSell:
		if currentUnits < units {
			return nil, ErrInsufficientHoldings
		}
		newUnits = currentUnits - units
		// Cost basis of the remaining units does not move on disposal.
		newWACC = currentWACC
	}

	now := l.now()
	tx := &models.Transaction{
		ID:          l.newID(),
		ClientRef:   req.ClientRef,
		Symbol:      symbol,
		CompanyName: companyName,
		Type:        txType,
		Units:       units,
		Price:       price.Round(2),
		CreatedAt:   now,
	}

	mutation := &models.PortfolioMutation{
		Symbol:          symbol,
		ExpectedVersion: expectedVersion,
		Transaction:     tx,
		ProfileStamp: map[string]any{
			models.UserInfoLastTransactionAt: now.Format(time.RFC3339),
			models.UserInfoLastActive:        now.Format(time.RFC3339),
		},
	}

	receipt := &Receipt{Transaction: tx}
	if newUnits > 0 {
		mutation.Holding = &models.Holding{
			Symbol:      symbol,
			CompanyName: companyName,
			Units:       newUnits,
			WACC:        newWACC,
			LastUpdated: now,
		}
		receipt.Holding = mutation.Holding
	} else {
		receipt.Removed = true
	}

	if err := l.store.ApplyPortfolioMutation(ctx, userID, mutation); err != nil {
		if errors.Is(err, models.ErrVersionConflict) || errors.Is(err, models.ErrDuplicateTransaction) {
			return nil, err
		}
		return nil, &StoreUnavailableError{Op: "commit mutation", Err: err}
	}
	return receipt, nil
}

// resolveCompanyName picks a display name by priority: the request, the
// market feed, the existing holding, then the symbol itself.
func (l *Ledger) resolveCompanyName(ctx context.Context, symbol, requested string, current *models.Holding) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	if l.market != nil {
		// Feed lookups are best-effort; a miss or error falls through.
		if quote, err := l.market.GetQuote(ctx, symbol); err == nil && quote != nil && quote.Name != "" {
			return quote.Name
		}
	}
	if current != nil && current.CompanyName != "" {
		return current.CompanyName
	}
	return symbol
}

// NormalizeSymbol strips non-alphanumeric characters and upper-cases the
// rest, producing the canonical ticker used as the holdings key.
func NormalizeSymbol(symbol string) string {
	var b strings.Builder
	for _, r := range symbol {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 'a' + 'A')
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		}
	}
	return b.String()
}
