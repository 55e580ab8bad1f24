package models

import "time"

// UserInfo is the free-form profile bag stored per user. Fields are merged
// into the existing record on write, never replaced wholesale.
type UserInfo struct {
	UserID    string         `json:"user_id"`
	Info      map[string]any `json:"info"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Profile keys the ledger stamps on every accepted transaction.
const (
	UserInfoLastTransactionAt = "lastTransactionAt"
	UserInfoLastActive        = "lastActive"
)
