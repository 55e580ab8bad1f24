package portfolio

import (
	"context"
	"sort"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// MockStore implements the Store interface for testing
type MockStore struct {
	holdings map[string]map[string]*models.Holding
	txs      map[string][]*models.Transaction

	// Fail the next N mutation commits with a version conflict
	ConflictsRemaining int
	// Forced errors
	GetHoldingErr error
	ApplyErr      error
	ListErr       error
	DeleteErr     error

	// Call counters for verification
	ApplyCalls  int
	DeleteCalls int
}

func NewMockStore() *MockStore {
	return &MockStore{
		holdings: make(map[string]map[string]*models.Holding),
		txs:      make(map[string][]*models.Transaction),
	}
}

func (m *MockStore) SeedHolding(userID string, h *models.Holding) {
	if m.holdings[userID] == nil {
		m.holdings[userID] = make(map[string]*models.Holding)
	}
	if h.Version == 0 {
		h.Version = 1
	}
	m.holdings[userID][h.Symbol] = h
}

func (m *MockStore) SeedTransaction(userID string, tx *models.Transaction) {
	m.txs[userID] = append(m.txs[userID], tx)
}

func (m *MockStore) Holding(userID, symbol string) *models.Holding {
	return m.holdings[userID][symbol]
}

func (m *MockStore) Transactions(userID string) []*models.Transaction {
	return m.txs[userID]
}

func (m *MockStore) GetHolding(_ context.Context, userID, symbol string) (*models.Holding, error) {
	if m.GetHoldingErr != nil {
		return nil, m.GetHoldingErr
	}
	return m.holdings[userID][symbol], nil
}

func (m *MockStore) ApplyPortfolioMutation(_ context.Context, userID string, mut *models.PortfolioMutation) error {
	m.ApplyCalls++
	if m.ApplyErr != nil {
		return m.ApplyErr
	}
	if m.ConflictsRemaining > 0 {
		m.ConflictsRemaining--
		return models.ErrVersionConflict
	}

	for _, tx := range m.txs[userID] {
		if tx.ClientRef != "" && tx.ClientRef == mut.Transaction.ClientRef {
			return models.ErrDuplicateTransaction
		}
	}

	if m.holdings[userID] == nil {
		m.holdings[userID] = make(map[string]*models.Holding)
	}
	if mut.Holding == nil {
		delete(m.holdings[userID], mut.Symbol)
	} else {
		h := *mut.Holding
		h.Version = mut.ExpectedVersion + 1
		m.holdings[userID][h.Symbol] = &h
	}
	m.txs[userID] = append(m.txs[userID], mut.Transaction)
	return nil
}

func (m *MockStore) ListTransactions(_ context.Context, userID string) ([]*models.Transaction, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := make([]*models.Transaction, len(m.txs[userID]))
	copy(out, m.txs[userID])
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockStore) DeleteTransactions(_ context.Context, userID string, ids []string) error {
	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	var kept []*models.Transaction
	for _, tx := range m.txs[userID] {
		if !drop[tx.ID] {
			kept = append(kept, tx)
		}
	}
	m.txs[userID] = kept
	return nil
}

// MockMarket implements the MarketSource interface for testing
type MockMarket struct {
	quotes map[string]*models.Quote
	Err    error
}

func NewMockMarket() *MockMarket {
	return &MockMarket{quotes: make(map[string]*models.Quote)}
}

func (m *MockMarket) SeedQuote(q *models.Quote) {
	m.quotes[q.Symbol] = q
}

func (m *MockMarket) GetQuote(_ context.Context, symbol string) (*models.Quote, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.quotes[symbol], nil
}
