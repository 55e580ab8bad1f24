package market

import (
	"context"
	"log"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// QuoteReader reads the durable market snapshot. *database.DB satisfies it.
type QuoteReader interface {
	GetQuote(ctx context.Context, symbol string) (*models.Quote, error)
	ListQuotes(ctx context.Context) (models.Snapshot, error)
}

// Source serves quote reads from the cache, falling back to the durable
// copy when the cache is cold or unreachable.
type Source struct {
	cache *Cache
	store QuoteReader
}

// NewSource creates a Source. Either layer may be nil.
func NewSource(cache *Cache, store QuoteReader) *Source {
	return &Source{cache: cache, store: store}
}

// GetQuote returns the latest known quote for a symbol, or nil when the
// feed has never seen it.
func (s *Source) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	if s.cache != nil {
		quote, err := s.cache.GetQuote(ctx, symbol)
		if err == nil && quote != nil {
			return quote, nil
		}
		if err != nil {
			log.Printf("Quote cache read failed for %s: %v", symbol, err)
		}
	}
	if s.store == nil {
		return nil, nil
	}
	return s.store.GetQuote(ctx, symbol)
}

// Snapshot returns the latest known full snapshot
func (s *Source) Snapshot(ctx context.Context) (models.Snapshot, error) {
	if s.cache != nil {
		snapshot, err := s.cache.Snapshot(ctx)
		if err == nil && len(snapshot) > 0 {
			return snapshot, nil
		}
		if err != nil {
			log.Printf("Snapshot cache read failed: %v", err)
		}
	}
	if s.store == nil {
		return models.Snapshot{}, nil
	}
	return s.store.ListQuotes(ctx)
}
