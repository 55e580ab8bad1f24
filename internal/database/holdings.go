package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// GetHolding retrieves one holding for a user, or nil when the user holds
// no units of the symbol.
func (db *DB) GetHolding(ctx context.Context, userID, symbol string) (*models.Holding, error) {
	query := `
		SELECT symbol, company_name, units, wacc, version, last_updated
		FROM holdings
		WHERE user_id = $1 AND symbol = $2
	`
	var h models.Holding
	err := db.conn.QueryRowContext(ctx, query, userID, symbol).Scan(
		&h.Symbol, &h.CompanyName, &h.Units, &h.WACC, &h.Version, &h.LastUpdated,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding: %w", err)
	}
	return &h, nil
}

// ListHoldings retrieves all holdings for a user, ordered by symbol
func (db *DB) ListHoldings(ctx context.Context, userID string) ([]*models.Holding, error) {
	query := `
		SELECT symbol, company_name, units, wacc, version, last_updated
		FROM holdings
		WHERE user_id = $1
		ORDER BY symbol
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []*models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(&h.Symbol, &h.CompanyName, &h.Units, &h.WACC, &h.Version, &h.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate holdings: %w", err)
	}
	return holdings, nil
}
