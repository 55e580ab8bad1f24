package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one symbol's entry in the market snapshot. The feed is
// best-effort: any field other than the symbol may be missing.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Name          string          `json:"name,omitempty"`
	LTP           decimal.Decimal `json:"ltp"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	PointChange   decimal.Decimal `json:"point_change"`
	PercentChange decimal.Decimal `json:"percent_change"`
	Sector        string          `json:"sector,omitempty"`
	AsOf          time.Time       `json:"as_of"`
}

// Snapshot is the latest known market state, keyed by symbol.
type Snapshot map[string]Quote

// QuoteEvent is the wire format the scraper publishes to the feed topic.
type QuoteEvent struct {
	EventType string    `json:"event_type"`
	Quote     *Quote    `json:"quote"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`
}
