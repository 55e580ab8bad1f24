package market

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nepsetrack/portfolio-service/internal/models"
)

// SnapshotFetcher pulls the current market snapshot from the feed.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context) (models.Snapshot, error)
}

// SnapshotStore persists a snapshot durably behind the cache.
type SnapshotStore interface {
	UpsertQuotes(ctx context.Context, snapshot models.Snapshot) error
}

// Poller refreshes the market snapshot on a fixed cadence, mirroring the
// original client's 60-second poll of the scraper proxy. Each successful
// refresh updates the cache, the durable copy, and any in-process
// subscribers. Fetch failures keep the last known snapshot in place.
type Poller struct {
	fetcher  SnapshotFetcher
	cache    *Cache
	store    SnapshotStore
	interval time.Duration

	mu     sync.Mutex
	subs   map[int]chan models.Snapshot
	nextID int
}

// NewPoller creates a Poller. Cache and store may be nil in tests.
func NewPoller(fetcher SnapshotFetcher, cache *Cache, store SnapshotStore, interval time.Duration) *Poller {
	return &Poller{
		fetcher:  fetcher,
		cache:    cache,
		store:    store,
		interval: interval,
		subs:     make(map[int]chan models.Snapshot),
	}
}

// Run polls until the context is cancelled, starting with an immediate fetch
func (p *Poller) Run(ctx context.Context) {
	log.Printf("Starting market poller, interval %s", p.interval)

	p.refresh(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Market poller shutting down...")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *Poller) refresh(ctx context.Context) {
	snapshot, err := p.fetcher.FetchSnapshot(ctx)
	if err != nil {
		// Stale data is tolerated; the next tick retries.
		log.Printf("Market refresh failed: %v", err)
		return
	}
	if len(snapshot) == 0 {
		return
	}

	if p.cache != nil {
		if err := p.cache.SetSnapshot(ctx, snapshot); err != nil {
			log.Printf("Failed to cache market snapshot: %v", err)
		}
	}
	if p.store != nil {
		if err := p.store.UpsertQuotes(ctx, snapshot); err != nil {
			log.Printf("Failed to store market snapshot: %v", err)
		}
	}

	p.notify(snapshot)
}

// Subscribe returns a channel receiving each refreshed snapshot and a
// cancel function that must be called to release it. Slow subscribers miss
// updates rather than block the poller.
func (p *Poller) Subscribe() (<-chan models.Snapshot, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := p.nextID
	p.nextID++
	ch := make(chan models.Snapshot, 1)
	p.subs[id] = ch

	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if _, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

func (p *Poller) notify(snapshot models.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ch := range p.subs {
		select {
		case ch <- snapshot:
		default:
		}
	}
}
