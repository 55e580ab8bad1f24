package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nepsetrack/portfolio-service/internal/auth"
	"github.com/nepsetrack/portfolio-service/internal/models"
	"github.com/nepsetrack/portfolio-service/internal/portfolio"
)

type fakeLedger struct {
	receipt *portfolio.Receipt
	err     error

	gotUserID string
	gotReq    portfolio.Request
}

func (f *fakeLedger) Apply(ctx context.Context, userID string, req portfolio.Request) (*portfolio.Receipt, error) {
	f.gotUserID = userID
	f.gotReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.receipt, nil
}

type fakeReader struct {
	holdings    []*models.Holding
	txs         []*models.Transaction
	holdingsErr error
	txsErr      error
}

func (f *fakeReader) ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error) {
	return f.holdings, f.holdingsErr
}

func (f *fakeReader) ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	return f.txs, f.txsErr
}

type fakeMarket struct {
	snapshot models.Snapshot
	err      error
}

func (f *fakeMarket) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return f.snapshot, f.err
}

type fakePublisher struct {
	published []*models.Transaction
	err       error
}

func (f *fakePublisher) PublishTransactionApplied(ctx context.Context, userID string, tx *models.Transaction) error {
	f.published = append(f.published, tx)
	return f.err
}

type allowVerifier struct{}

func (allowVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	return &auth.Identity{UserID: "user-1", Email: "sita@example.com", EmailVerified: true}, nil
}

func doRequest(handler *Handler, method, path string, body []byte, authenticated bool) *httptest.ResponseRecorder {
	router := SetupRoutes(handler, allowVerifier{})
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if authenticated {
		req.Header.Set("Authorization", "Bearer token")
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestApplyTransaction(t *testing.T) {
	buyBody := []byte(`{"symbol":"NABIL","type":"BUY","units":"10","price":"500"}`)

	t.Run("accepted transaction returns the receipt", func(t *testing.T) {
		receipt := &portfolio.Receipt{
			Holding: &models.Holding{
				Symbol:      "NABIL",
				CompanyName: "Nabil Bank",
				Units:       10,
				WACC:        decimal.RequireFromString("500.00"),
			},
			Transaction: &models.Transaction{
				ID:     "tx-1",
				Symbol: "NABIL",
				Type:   models.TransactionTypeBuy,
				Units:  10,
				Price:  decimal.RequireFromString("500"),
			},
		}
		ledger := &fakeLedger{receipt: receipt}
		publisher := &fakePublisher{}
		handler := NewHandler(ledger, &fakeReader{}, &fakeMarket{}, publisher)

		rec := doRequest(handler, http.MethodPost, "/api/v1/portfolio/transactions", buyBody, true)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "user-1", ledger.gotUserID)
		assert.Equal(t, "NABIL", ledger.gotReq.Symbol)

		var got portfolio.Receipt
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "NABIL", got.Holding.Symbol)
		assert.Equal(t, int64(10), got.Holding.Units)

		require.Len(t, publisher.published, 1)
		assert.Equal(t, "tx-1", publisher.published[0].ID)
	})

	t.Run("publish failure does not fail the request", func(t *testing.T) {
		ledger := &fakeLedger{receipt: &portfolio.Receipt{Transaction: &models.Transaction{ID: "tx-1"}}}
		publisher := &fakePublisher{err: errors.New("broker down")}
		handler := NewHandler(ledger, &fakeReader{}, &fakeMarket{}, publisher)

		rec := doRequest(handler, http.MethodPost, "/api/v1/portfolio/transactions", buyBody, true)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("works without a publisher", func(t *testing.T) {
		ledger := &fakeLedger{receipt: &portfolio.Receipt{Transaction: &models.Transaction{ID: "tx-1"}}}
		handler := NewHandler(ledger, &fakeReader{}, &fakeMarket{}, nil)

		rec := doRequest(handler, http.MethodPost, "/api/v1/portfolio/transactions", buyBody, true)
		assert.Equal(t, http.StatusCreated, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		handler := NewHandler(&fakeLedger{}, &fakeReader{}, &fakeMarket{}, nil)

		rec := doRequest(handler, http.MethodPost, "/api/v1/portfolio/transactions", []byte(`{not json`), true)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			name       string
			err        error
			wantStatus int
			wantError  string
		}{
			{
				name:       "validation failure",
				err:        &portfolio.ValidationError{Reason: "units must be a positive whole number"},
				wantStatus: http.StatusBadRequest,
				wantError:  "units must be a positive whole number",
			},
			{
				name:       "oversell",
				err:        portfolio.ErrInsufficientHoldings,
				wantStatus: http.StatusBadRequest,
				wantError:  "insufficient units held for this sale",
			},
			{
				name:       "duplicate submission",
				err:        models.ErrDuplicateTransaction,
				wantStatus: http.StatusConflict,
				wantError:  "transaction already submitted",
			},
			{
				name:       "store outage hides internals",
				err:        &portfolio.StoreUnavailableError{Op: "apply", Err: errors.New("pq: connection refused")},
				wantStatus: http.StatusServiceUnavailable,
				wantError:  "service temporarily unavailable, please try again",
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				handler := NewHandler(&fakeLedger{err: tt.err}, &fakeReader{}, &fakeMarket{}, nil)

				rec := doRequest(handler, http.MethodPost, "/api/v1/portfolio/transactions", buyBody, true)

				assert.Equal(t, tt.wantStatus, rec.Code)
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.wantError, body["error"])
				assert.NotContains(t, body["error"], "pq:")
			})
		}
	})

	t.Run("requires authentication", func(t *testing.T) {
		handler := NewHandler(&fakeLedger{}, &fakeReader{}, &fakeMarket{}, nil)

		rec := doRequest(handler, http.MethodPost, "/api/v1/portfolio/transactions", buyBody, false)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetPortfolio(t *testing.T) {
	holdings := []*models.Holding{
		{
			Symbol:      "NABIL",
			CompanyName: "Nabil Bank",
			Units:       10,
			WACC:        decimal.RequireFromString("500.00"),
		},
	}

	t.Run("values holdings against the live snapshot", func(t *testing.T) {
		snapshot := models.Snapshot{
			"NABIL": {Symbol: "NABIL", LTP: decimal.RequireFromString("550"), AsOf: time.Now()},
		}
		handler := NewHandler(&fakeLedger{}, &fakeReader{holdings: holdings}, &fakeMarket{snapshot: snapshot}, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/portfolio", nil, true)

		require.Equal(t, http.StatusOK, rec.Code)
		var got portfolio.Valuation
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Holdings, 1)
		assert.True(t, got.Holdings[0].LivePrice)
		assert.True(t, got.TotalValue.Equal(decimal.RequireFromString("5500")))
	})

	t.Run("feed outage degrades to cost basis", func(t *testing.T) {
		handler := NewHandler(&fakeLedger{}, &fakeReader{holdings: holdings}, &fakeMarket{err: errors.New("redis down")}, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/portfolio", nil, true)

		require.Equal(t, http.StatusOK, rec.Code)
		var got portfolio.Valuation
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Holdings, 1)
		assert.False(t, got.Holdings[0].LivePrice)
		assert.True(t, got.TotalValue.Equal(decimal.RequireFromString("5000")))
	})

	t.Run("holdings outage is a 503", func(t *testing.T) {
		handler := NewHandler(&fakeLedger{}, &fakeReader{holdingsErr: errors.New("pq: down")}, &fakeMarket{}, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/portfolio", nil, true)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestListTransactions(t *testing.T) {
	t.Run("returns the user's history", func(t *testing.T) {
		txs := []*models.Transaction{
			{ID: "tx-2", Symbol: "NABIL", Type: models.TransactionTypeSell, Units: 5, Price: decimal.RequireFromString("550")},
			{ID: "tx-1", Symbol: "NABIL", Type: models.TransactionTypeBuy, Units: 10, Price: decimal.RequireFromString("500")},
		}
		handler := NewHandler(&fakeLedger{}, &fakeReader{txs: txs}, &fakeMarket{}, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/portfolio/transactions", nil, true)

		require.Equal(t, http.StatusOK, rec.Code)
		var got struct {
			Transactions []*models.Transaction `json:"transactions"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		require.Len(t, got.Transactions, 2)
		assert.Equal(t, "tx-2", got.Transactions[0].ID)
	})

	t.Run("empty history is a list, not null", func(t *testing.T) {
		handler := NewHandler(&fakeLedger{}, &fakeReader{}, &fakeMarket{}, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/portfolio/transactions", nil, true)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"transactions":[]`)
	})
}

func TestGetMarket(t *testing.T) {
	t.Run("is public", func(t *testing.T) {
		snapshot := models.Snapshot{
			"NABIL": {Symbol: "NABIL", Name: "Nabil Bank", LTP: decimal.RequireFromString("550")},
		}
		handler := NewHandler(&fakeLedger{}, &fakeReader{}, &fakeMarket{snapshot: snapshot}, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/market", nil, false)

		require.Equal(t, http.StatusOK, rec.Code)
		var got models.Snapshot
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Contains(t, got, "NABIL")
	})

	t.Run("feed outage is a 503", func(t *testing.T) {
		handler := NewHandler(&fakeLedger{}, &fakeReader{}, &fakeMarket{err: errors.New("redis down")}, nil)

		rec := doRequest(handler, http.MethodGet, "/api/v1/market", nil, false)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestHealthCheck(t *testing.T) {
	handler := NewHandler(&fakeLedger{}, &fakeReader{}, &fakeMarket{}, nil)

	rec := doRequest(handler, http.MethodGet, "/health", nil, false)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
