package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// GetUserInfo retrieves a user's profile bag, or nil when none exists yet
func (db *DB) GetUserInfo(ctx context.Context, userID string) (*models.UserInfo, error) {
	query := `SELECT user_id, info, updated_at FROM user_info WHERE user_id = $1`

	var u models.UserInfo
	var raw []byte
	err := db.conn.QueryRowContext(ctx, query, userID).Scan(&u.UserID, &raw, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	if err := json.Unmarshal(raw, &u.Info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &u, nil
}

// MergeUserInfo merges the given fields into a user's profile bag, creating
// the row when absent. Existing fields not named in the update are kept.
func (db *DB) MergeUserInfo(ctx context.Context, userID string, fields map[string]any) error {
	raw, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("failed to encode user info: %w", err)
	}

	query := `
		INSERT INTO user_info (user_id, info, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			info = user_info.info || EXCLUDED.info,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := db.conn.ExecContext(ctx, query, userID, raw, time.Now()); err != nil {
		return fmt.Errorf("failed to merge user info: %w", err)
	}
	return nil
}
