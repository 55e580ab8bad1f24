package database

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"github.com/nepsetrack/portfolio-service/internal/models"
)

// ListTransactions retrieves a user's full transaction history, newest first.
// History is bounded by the pruner, so the unpaginated scan stays small.
func (db *DB) ListTransactions(ctx context.Context, userID string) ([]*models.Transaction, error) {
	query := `
		SELECT id, COALESCE(client_ref, ''), symbol, company_name, type, units, price, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := db.conn.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []*models.Transaction
	for rows.Next() {
		var t models.Transaction
		if err := rows.Scan(&t.ID, &t.ClientRef, &t.Symbol, &t.CompanyName, &t.Type, &t.Units, &t.Price, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// DeleteTransactions removes the given transaction records for a user in a
// single statement. IDs belonging to other users are never touched.
func (db *DB) DeleteTransactions(ctx context.Context, userID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query := `DELETE FROM transactions WHERE user_id = $1 AND id = ANY($2)`
	if _, err := db.conn.ExecContext(ctx, query, userID, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete transactions: %w", err)
	}
	return nil
}
