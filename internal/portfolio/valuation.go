package portfolio

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// HoldingValue is one holding merged with its live quote for display.
// When the feed has no price for the symbol, the WACC stands in and
// LivePrice is false; the fallback never feeds back into stored cost basis.
type HoldingValue struct {
	Symbol        string          `json:"symbol"`
	CompanyName   string          `json:"company_name"`
	Units         int64           `json:"units"`
	WACC          decimal.Decimal `json:"wacc"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	LivePrice     bool            `json:"live_price"`
	Investment    decimal.Decimal `json:"investment"`
	MarketValue   decimal.Decimal `json:"market_value"`
	ProfitLoss    decimal.Decimal `json:"profit_loss"`
	ProfitLossPct decimal.Decimal `json:"profit_loss_pct"`
	DailyChange   decimal.Decimal `json:"daily_change"`
	Sector        string          `json:"sector,omitempty"`
}

// Valuation is the whole portfolio priced against the latest snapshot.
type Valuation struct {
	Holdings        []HoldingValue  `json:"holdings"`
	TotalInvestment decimal.Decimal `json:"total_investment"`
	TotalValue      decimal.Decimal `json:"total_value"`
	TotalProfitLoss decimal.Decimal `json:"total_profit_loss"`
	AsOf            time.Time       `json:"as_of"`
}

// Valuate prices holdings against the market snapshot. Purely derived,
// display-only data; it writes nothing.
func Valuate(holdings []*models.Holding, snapshot models.Snapshot, asOf time.Time) *Valuation {
	v := &Valuation{
		Holdings:        make([]HoldingValue, 0, len(holdings)),
		TotalInvestment: decimal.Zero,
		TotalValue:      decimal.Zero,
		TotalProfitLoss: decimal.Zero,
		AsOf:            asOf,
	}

	for _, h := range holdings {
		hv := HoldingValue{
			Symbol:      h.Symbol,
			CompanyName: h.CompanyName,
			Units:       h.Units,
			WACC:        h.WACC,
		}

		quote, ok := snapshot[h.Symbol]
		if ok && quote.LTP.IsPositive() {
			hv.CurrentPrice = quote.LTP
			hv.LivePrice = true
			hv.Sector = quote.Sector
			if quote.PreviousClose.IsPositive() {
				hv.DailyChange = quote.LTP.Sub(quote.PreviousClose).
					Mul(decimal.NewFromInt(h.Units)).Round(2)
			}
		} else {
			hv.CurrentPrice = h.WACC
		}

		units := decimal.NewFromInt(h.Units)
		hv.Investment = units.Mul(h.WACC).Round(2)
		hv.MarketValue = units.Mul(hv.CurrentPrice).Round(2)
		hv.ProfitLoss = hv.MarketValue.Sub(hv.Investment)
		if hv.Investment.IsPositive() {
			hv.ProfitLossPct = hv.ProfitLoss.
				Div(hv.Investment).Mul(decimal.NewFromInt(100)).Round(2)
		}

		v.Holdings = append(v.Holdings, hv)
		v.TotalInvestment = v.TotalInvestment.Add(hv.Investment)
		v.TotalValue = v.TotalValue.Add(hv.MarketValue)
	}

	v.TotalProfitLoss = v.TotalValue.Sub(v.TotalInvestment)
	return v
}
