package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// UpsertQuote stores one market quote, keeping the stored row when the
// incoming quote is older than what we already have.
func (db *DB) UpsertQuote(ctx context.Context, q *models.Quote) error {
	query := `
		INSERT INTO market_quotes (symbol, name, ltp, previous_close, point_change, percent_change, sector, as_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			ltp = EXCLUDED.ltp,
			previous_close = EXCLUDED.previous_close,
			point_change = EXCLUDED.point_change,
			percent_change = EXCLUDED.percent_change,
			sector = EXCLUDED.sector,
			as_of = EXCLUDED.as_of
		WHERE market_quotes.as_of <= EXCLUDED.as_of
	`
	_, err := db.conn.ExecContext(ctx, query,
		q.Symbol, q.Name, q.LTP, q.PreviousClose, q.PointChange, q.PercentChange, q.Sector, q.AsOf,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert quote: %w", err)
	}
	return nil
}

// UpsertQuotes stores a full snapshot in one transaction
func (db *DB) UpsertQuotes(ctx context.Context, snapshot models.Snapshot) error {
	if len(snapshot) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO market_quotes (symbol, name, ltp, previous_close, point_change, percent_change, sector, as_of)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (symbol) DO UPDATE SET
			name = EXCLUDED.name,
			ltp = EXCLUDED.ltp,
			previous_close = EXCLUDED.previous_close,
			point_change = EXCLUDED.point_change,
			percent_change = EXCLUDED.percent_change,
			sector = EXCLUDED.sector,
			as_of = EXCLUDED.as_of
		WHERE market_quotes.as_of <= EXCLUDED.as_of
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, q := range snapshot {
		if _, err := stmt.ExecContext(ctx,
			q.Symbol, q.Name, q.LTP, q.PreviousClose, q.PointChange, q.PercentChange, q.Sector, q.AsOf,
		); err != nil {
			return fmt.Errorf("failed to upsert quote %s: %w", q.Symbol, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit quotes: %w", err)
	}
	return nil
}

// GetQuote retrieves the stored quote for a symbol, or nil when unknown
func (db *DB) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	query := `
		SELECT symbol, name, ltp, previous_close, point_change, percent_change, sector, as_of
		FROM market_quotes
		WHERE symbol = $1
	`
	var q models.Quote
	err := db.conn.QueryRowContext(ctx, query, symbol).Scan(
		&q.Symbol, &q.Name, &q.LTP, &q.PreviousClose, &q.PointChange, &q.PercentChange, &q.Sector, &q.AsOf,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quote: %w", err)
	}
	return &q, nil
}

// ListQuotes retrieves the full stored snapshot
func (db *DB) ListQuotes(ctx context.Context) (models.Snapshot, error) {
	query := `
		SELECT symbol, name, ltp, previous_close, point_change, percent_change, sector, as_of
		FROM market_quotes
	`
	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotes: %w", err)
	}
	defer rows.Close()

	snapshot := make(models.Snapshot)
	for rows.Next() {
		var q models.Quote
		if err := rows.Scan(&q.Symbol, &q.Name, &q.LTP, &q.PreviousClose, &q.PointChange, &q.PercentChange, &q.Sector, &q.AsOf); err != nil {
			return nil, fmt.Errorf("failed to scan quote: %w", err)
		}
		snapshot[q.Symbol] = q
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotes: %w", err)
	}
	return snapshot, nil
}
