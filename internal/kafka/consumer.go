package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nepsetrack/portfolio-service/internal/models"
	"github.com/nepsetrack/portfolio-service/internal/portfolio"
)

// QuoteSink receives quotes ingested from the feed topic. Both the Redis
// cache and the market_quotes table sit behind it; each layer drops stale
// quotes on its own, so replayed messages are harmless.
type QuoteSink interface {
	SetQuote(ctx context.Context, quote *models.Quote) error
}

// QuoteStore is the durable sink for ingested quotes.
type QuoteStore interface {
	UpsertQuote(ctx context.Context, quote *models.Quote) error
}

// Consumer ingests quote events published by the NEPSE scraper. It is the
// push-style alternative to the HTTP poller; deployments enable one or both.
type Consumer struct {
	reader *kafka.Reader
	cache  QuoteSink
	store  QuoteStore
}

// NewConsumer creates a new Kafka consumer for scraper quote events
func NewConsumer(brokers []string, topic, groupID string, cache QuoteSink, store QuoteStore) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		cache:  cache,
		store:  store,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single quote event
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.QuoteEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal quote event: %w", err)
	}

	if event.EventType != "QUOTE_UPDATED" {
		return nil
	}
	if event.Quote == nil {
		return fmt.Errorf("quote event for %s has no payload", string(msg.Key))
	}

	quote := *event.Quote
	quote.Symbol = portfolio.NormalizeSymbol(quote.Symbol)
	if quote.Symbol == "" {
		quote.Symbol = portfolio.NormalizeSymbol(event.Symbol)
	}
	if quote.Symbol == "" {
		return fmt.Errorf("quote event has no symbol")
	}
	if quote.AsOf.IsZero() {
		quote.AsOf = event.Timestamp
	}

	if c.cache != nil {
		if err := c.cache.SetQuote(ctx, &quote); err != nil {
			log.Printf("Failed to cache quote %s: %v", quote.Symbol, err)
		}
	}
	if c.store != nil {
		if err := c.store.UpsertQuote(ctx, &quote); err != nil {
			return fmt.Errorf("failed to store quote %s: %w", quote.Symbol, err)
		}
	}
	return nil
}
