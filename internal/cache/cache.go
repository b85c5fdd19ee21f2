// Package cache maintains the time-bounded forecast cache. It trades a
// small staleness risk for availability: when the provider is down, the
// last good snapshot is served flagged as stale.
package cache

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"sandwach/internal/metrics"
	"sandwach/internal/models"
)

var ErrNoData = errors.New("no forecast data available")

// Provider fetches a fresh forecast snapshot from the upstream weather API.
type Provider interface {
	FetchSnapshot() (*models.ForecastSnapshot, error)
}

// Persistence stores the cache entry so it survives process restarts.
type Persistence interface {
	SaveCacheEntry(models.CacheEntry) error
	LoadCacheEntry() (*models.CacheEntry, error)
}

type Cache struct {
	mu       sync.Mutex
	provider Provider
	store    Persistence
	ttl      time.Duration
	entry    *models.CacheEntry
	now      func() time.Time
}

func New(provider Provider, store Persistence, ttl time.Duration) *Cache {
	return &Cache{
		provider: provider,
		store:    store,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Restore loads the persisted entry from a previous run, if any.
func (c *Cache) Restore() error {
	entry, err := c.store.LoadCacheEntry()
	if err != nil {
		return fmt.Errorf("load cache entry: %w", err)
	}
	c.mu.Lock()
	c.entry = entry
	c.mu.Unlock()
	if entry != nil {
		log.Printf("cache: restored snapshot fetched at %s", entry.Snapshot.FetchedAt.Format(time.RFC3339))
	}
	return nil
}

// Snapshot returns the current forecast, refreshing it when the entry has
// expired or force is set. On a fetch failure any previous snapshot, fresh
// or not, is returned with isStale=true; ErrNoData only when there has
// never been a successful fetch. Refreshes are serialized.
func (c *Cache) Snapshot(force bool) (*models.ForecastSnapshot, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !force && c.entry.Fresh(c.now()) {
		return c.entry.Snapshot, false, nil
	}

	snap, err := c.provider.FetchSnapshot()
	if err == nil && !snap.Valid() {
		err = errors.New("provider returned invalid snapshot")
	}
	if err == nil {
		entry := &models.CacheEntry{Snapshot: snap, ExpiresAt: snap.FetchedAt.Add(c.ttl)}
		c.entry = entry
		if perr := c.store.SaveCacheEntry(*entry); perr != nil {
			log.Printf("cache: persist entry: %v", perr)
		}
		return snap, false, nil
	}

	if c.entry != nil && c.entry.Snapshot != nil {
		log.Printf("cache: fetch failed, serving stale snapshot from %s: %v",
			c.entry.Snapshot.FetchedAt.Format(time.RFC3339), err)
		metrics.StaleServes.Inc()
		return c.entry.Snapshot, true, nil
	}

	return nil, false, fmt.Errorf("%w: %v", ErrNoData, err)
}
