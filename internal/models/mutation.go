package models

import "errors"

// Store-contract errors shared by the ledger and its backing store.
var (
	// ErrVersionConflict means the holding's stored version no longer
	// matches the version the mutation was computed against.
	ErrVersionConflict = errors.New("holding version conflict")

	// ErrDuplicateTransaction means the transaction's client_ref was
	// already accepted for this user.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// PortfolioMutation is the atomic effect set of one accepted transaction:
// a holding upsert or removal, the immutable history record, and the
// profile activity stamp. The store commits all three or none.
type PortfolioMutation struct {
	// Holding is the post-transaction position. Nil means the position was
	// sold down to zero units and the row must be removed.
	Holding *Holding

	// Symbol identifies the holding row when Holding is nil.
	Symbol string

	// ExpectedVersion is the version of the holding observed by the caller
	// before computing the mutation. Zero means the holding did not exist.
	// The commit fails with a version conflict when the stored row no
	// longer matches.
	ExpectedVersion int64

	// Transaction is the history record to append.
	Transaction *Transaction

	// ProfileStamp holds the user_info fields merged on commit.
	ProfileStamp map[string]any
}
