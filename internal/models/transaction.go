package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction type constants
const (
	TransactionTypeBuy  = "BUY"
	TransactionTypeSell = "SELL"
)

// Transaction is an immutable record of one executed order. Records are
// created exactly once, never updated, and removed only by history pruning.
type Transaction struct {
	ID          string          `json:"id"`
	ClientRef   string          `json:"client_ref,omitempty"`
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Type        string          `json:"type"`
	Units       int64           `json:"units"`
	Price       decimal.Decimal `json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
}

// TransactionEvent is published to Kafka after a transaction is accepted
type TransactionEvent struct {
	EventType   string       `json:"event_type"`
	UserID      string       `json:"user_id"`
	Transaction *Transaction `json:"transaction"`
	Timestamp   time.Time    `json:"timestamp"`
}
