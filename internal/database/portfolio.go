package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/nepsetrack/portfolio-service/internal/models"
)

const pqUniqueViolation = "23505"

// ApplyPortfolioMutation commits one transaction's effects atomically: the
// holding upsert or delete, the history insert, and the profile stamp. The
// holding write is conditioned on m.ExpectedVersion; models.ErrVersionConflict is
// returned when a concurrent mutation got there first, in which case nothing
// is written and the caller should re-read and retry.
func (db *DB) ApplyPortfolioMutation(ctx context.Context, userID string, m *models.PortfolioMutation) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := applyHoldingWrite(ctx, tx, userID, m); err != nil {
		return err
	}

	if err := insertTransaction(ctx, tx, userID, m.Transaction); err != nil {
		return err
	}

	if len(m.ProfileStamp) > 0 {
		if err := mergeProfileStamp(ctx, tx, userID, m.ProfileStamp); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit portfolio mutation: %w", err)
	}
	return nil
}

func applyHoldingWrite(ctx context.Context, tx *sql.Tx, userID string, m *models.PortfolioMutation) error {
	if m.Holding == nil {
		// Position exhausted: remove the row rather than keep it at zero.
		res, err := tx.ExecContext(ctx,
			`DELETE FROM holdings WHERE user_id = $1 AND symbol = $2 AND version = $3`,
			userID, m.Symbol, m.ExpectedVersion,
		)
		if err != nil {
			return fmt.Errorf("failed to delete holding: %w", err)
		}
		return checkConflict(res)
	}

	h := m.Holding
	if m.ExpectedVersion == 0 {
		// Fresh position. A concurrent insert shows up as a conflict on the
		// primary key, not as a lost update.
		res, err := tx.ExecContext(ctx, `
			INSERT INTO holdings (user_id, symbol, company_name, units, wacc, version, last_updated)
			VALUES ($1, $2, $3, $4, $5, 1, $6)
			ON CONFLICT (user_id, symbol) DO NOTHING
		`, userID, h.Symbol, h.CompanyName, h.Units, h.WACC, h.LastUpdated)
		if err != nil {
			return fmt.Errorf("failed to insert holding: %w", err)
		}
		return checkConflict(res)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE holdings SET
			company_name = $4,
			units = $5,
			wacc = $6,
			version = version + 1,
			last_updated = $7
		WHERE user_id = $1 AND symbol = $2 AND version = $3
	`, userID, h.Symbol, m.ExpectedVersion, h.CompanyName, h.Units, h.WACC, h.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to update holding: %w", err)
	}
	return checkConflict(res)
}

func checkConflict(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return models.ErrVersionConflict
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, userID string, t *models.Transaction) error {
	var clientRef any
	if t.ClientRef != "" {
		clientRef = t.ClientRef
	}

	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, client_ref, symbol, company_name, type, units, price, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, userID, clientRef, t.Symbol, t.CompanyName, t.Type, t.Units, t.Price, t.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return models.ErrDuplicateTransaction
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func mergeProfileStamp(ctx context.Context, tx *sql.Tx, userID string, stamp map[string]any) error {
	raw, err := json.Marshal(stamp)
	if err != nil {
		return fmt.Errorf("failed to encode profile stamp: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO user_info (user_id, info, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			info = user_info.info || EXCLUDED.info,
			updated_at = EXCLUDED.updated_at
	`, userID, raw, time.Now())
	if err != nil {
		return fmt.Errorf("failed to stamp user info: %w", err)
	}
	return nil
}
