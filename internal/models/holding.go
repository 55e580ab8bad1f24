package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding represents a user's current position in one symbol.
// A holding with zero units is never stored; selling a position down
// to nothing deletes the row instead.
type Holding struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"company_name"`
	Units       int64           `json:"units"`
	WACC        decimal.Decimal `json:"wacc"`
	Version     int64           `json:"-"`
	LastUpdated time.Time       `json:"last_updated"`
}
