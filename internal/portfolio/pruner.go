package portfolio

import (
	"context"
	"fmt"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// Retention policy: at most 20 records overall, and at most the 2 most
// recent records for any one symbol.
const (
	maxRetainedTransactions = 20
	maxPerSymbol            = 2
)

// Pruner bounds a user's transaction history while keeping every actively
// traded symbol's most recent records. It owns all deletions from the
// history; records are never updated in place.
type Pruner struct {
	store Store
}

// NewPruner creates a Pruner backed by the given store
func NewPruner(store Store) *Pruner {
	return &Pruner{store: store}
}

// Prune loads the user's history and deletes everything the retention
// policy drops. Running it again with no intervening transaction is a no-op.
func (p *Pruner) Prune(ctx context.Context, userID string) error {
	txs, err := p.store.ListTransactions(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}
	if len(txs) == 0 {
		return nil
	}

	pruned := selectForPruning(txs)
	if len(pruned) == 0 {
		return nil
	}

	if err := p.store.DeleteTransactions(ctx, userID, pruned); err != nil {
		return fmt.Errorf("failed to delete pruned history: %w", err)
	}
	return nil
}

// selectForPruning walks the history newest to oldest and returns the IDs
// to delete. A record survives only while the total kept is under the cap
// and it is within the newest maxPerSymbol occurrences of its symbol. The
// decision is single-pass: once dropped, a record is never reconsidered.
func selectForPruning(newestFirst []*models.Transaction) []string {
	var pruned []string
	kept := 0
	perSymbol := make(map[string]int)

	for _, tx := range newestFirst {
		perSymbol[tx.Symbol]++
		if kept < maxRetainedTransactions && perSymbol[tx.Symbol] <= maxPerSymbol {
			kept++
			continue
		}
		pruned = append(pruned, tx.ID)
	}
	return pruned
}
