package market

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

const snapshotKey = "market:quotes"

// Cache holds the latest known market snapshot in a Redis hash, one field
// per symbol. It is the hot read path; the market_quotes table is the
// durable copy behind it.
type Cache struct {
	rdb *redis.Client
}

// NewCache creates a Cache backed by the given Redis client
func NewCache(rdb *redis.Client) *Cache {
	return &Cache{rdb: rdb}
}

// SetSnapshot stores the whole snapshot in one pipeline
func (c *Cache) SetSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	if len(snapshot) == 0 {
		return nil
	}

	pipe := c.rdb.Pipeline()
	for symbol, quote := range snapshot {
		raw, err := json.Marshal(quote)
		if err != nil {
			return fmt.Errorf("failed to encode quote %s: %w", symbol, err)
		}
		pipe.HSet(ctx, snapshotKey, symbol, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to cache snapshot: %w", err)
	}
	return nil
}

// SetQuote stores one quote, keeping the cached one when it is newer
func (c *Cache) SetQuote(ctx context.Context, quote *models.Quote) error {
	existing, err := c.GetQuote(ctx, quote.Symbol)
	if err != nil {
		return err
	}
	if existing != nil && existing.AsOf.After(quote.AsOf) {
		return nil
	}

	raw, err := json.Marshal(quote)
	if err != nil {
		return fmt.Errorf("failed to encode quote %s: %w", quote.Symbol, err)
	}
	if err := c.rdb.HSet(ctx, snapshotKey, quote.Symbol, raw).Err(); err != nil {
		return fmt.Errorf("failed to cache quote %s: %w", quote.Symbol, err)
	}
	return nil
}

// GetQuote retrieves one cached quote, or nil when the symbol is unknown
func (c *Cache) GetQuote(ctx context.Context, symbol string) (*models.Quote, error) {
	raw, err := c.rdb.HGet(ctx, snapshotKey, symbol).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached quote %s: %w", symbol, err)
	}

	var q models.Quote
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, fmt.Errorf("failed to decode cached quote %s: %w", symbol, err)
	}
	return &q, nil
}

// Snapshot retrieves the full cached snapshot
func (c *Cache) Snapshot(ctx context.Context) (models.Snapshot, error) {
	raw, err := c.rdb.HGetAll(ctx, snapshotKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read cached snapshot: %w", err)
	}

	snapshot := make(models.Snapshot, len(raw))
	for symbol, value := range raw {
		var q models.Quote
		if err := json.Unmarshal([]byte(value), &q); err != nil {
			return nil, fmt.Errorf("failed to decode cached quote %s: %w", symbol, err)
		}
		snapshot[symbol] = q
	}
	return snapshot, nil
}
