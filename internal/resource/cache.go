// Package resource implements the cached listing pattern shared by every
// resource view: paint instantly from the persisted cache, refresh in the
// background, and never regress to an empty or error state while a previous
// good fetch exists.
package resource

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/visionhq/vision-desktop/internal/kv"
	"github.com/visionhq/vision-desktop/internal/settings"
	"github.com/visionhq/vision-desktop/internal/transport"
)

// DefaultAutoRefreshInterval is the period between background refreshes
// when the auto-refresh setting is enabled.
const DefaultAutoRefreshInterval = 60 * time.Second

// ListFunc fetches the authoritative item list.
type ListFunc[T any] func(ctx context.Context) ([]T, error)

// EnrichFunc resolves secondary fields for one item. A failure only affects
// that item, which keeps its pre-enrichment value.
type EnrichFunc[T any] func(ctx context.Context, item T) (T, error)

// entry is the persisted shape of a cached listing.
type entry[T any] struct {
	Items   []T       `json:"items"`
	SavedAt time.Time `json:"saved_at"`
}

// Cache owns the listing state for one resource kind.
type Cache[T any] struct {
	key      string
	store    *kv.Store
	settings *settings.Manager
	list     ListFunc[T]

	enrich    EnrichFunc[T]
	enrichKey func(T) string
	memo      *lru.Cache[string, T]

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	items    []T
	hydrated bool
}

// Option configures a Cache.
type Option[T any] func(*Cache[T])

// WithEnrichment adds a per-item enrichment pass. Results are memoized by
// keyFn in an LRU so repeated refreshes do not refetch unchanged items.
func WithEnrichment[T any](fn EnrichFunc[T], keyFn func(T) string, memoSize int) Option[T] {
	return func(c *Cache[T]) {
		c.enrich = fn
		c.enrichKey = keyFn
		if memo, err := lru.New[string, T](memoSize); err == nil {
			c.memo = memo
		}
	}
}

// NewCache creates a cache persisted under key.
func NewCache[T any](store *kv.Store, sm *settings.Manager, key string, list ListFunc[T], opts ...Option[T]) *Cache[T] {
	c := &Cache[T]{
		key:      key,
		store:    store,
		settings: sm,
		list:     list,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hydrate loads the persisted listing for instant paint. When the local
// cache setting is disabled the persisted entry is evicted instead. Corrupt
// cache entries read as empty; hydration never fails.
func (c *Cache[T]) Hydrate() []T {
	if !c.settings.Current().LocalCacheEnabled {
		if err := c.store.Delete(c.key); err != nil {
			log.Warn().Err(err).Str("key", c.key).Msg("failed to evict disabled cache")
		}
		return nil
	}

	var e entry[T]
	if !c.store.Get(c.key, &e) {
		return nil
	}

	c.mu.Lock()
	c.items = e.Items
	c.hydrated = true
	items := c.items
	c.mu.Unlock()

	log.Debug().Str("key", c.key).Int("count", len(items)).Msg("hydrated from cache")

	return items
}

// Items returns the current listing.
func (c *Cache[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items
}

// Refresh fetches a fresh listing. A newer Refresh supersedes an older
// in-flight one: the old request is cancelled and its late result, if any,
// is discarded. On failure the hydrated listing stands in silently; the
// error only surfaces when there is nothing to fall back to.
func (c *Cache[T]) Refresh(ctx context.Context) ([]T, error) {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	if c.cancel != nil {
		c.cancel()
	}
	rctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	items, err := c.list(rctx)
	if err != nil {
		if transport.IsAborted(err) {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if gen != c.gen {
			return nil, transport.ErrAborted
		}
		if c.hydrated {
			log.Debug().Err(err).Str("key", c.key).Msg("refresh failed, keeping cached listing")
			return c.items, nil
		}
		return nil, err
	}

	if c.enrich != nil {
		items = c.enrichAll(rctx, items)
	}

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		log.Debug().Str("key", c.key).Msg("discarding superseded refresh result")
		return nil, transport.ErrAborted
	}
	c.items = items
	c.hydrated = true
	c.mu.Unlock()

	if c.settings.Current().LocalCacheEnabled {
		if err := c.store.Put(c.key, entry[T]{Items: items, SavedAt: time.Now()}); err != nil {
			log.Warn().Err(err).Str("key", c.key).Msg("failed to persist listing")
		}
	}

	return items, nil
}

// StartAutoRefresh refreshes on a fixed interval until ctx is cancelled.
// Cancelling ctx tears down both the interval and any in-flight request.
// The auto-refresh setting is consulted on every tick so toggling it takes
// effect without a remount.
func (c *Cache[T]) StartAutoRefresh(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultAutoRefreshInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if !c.settings.Current().AutoRefreshEnabled {
					continue
				}
				if _, err := c.Refresh(ctx); err != nil && !transport.IsAborted(err) {
					log.Debug().Err(err).Str("key", c.key).Msg("auto-refresh failed")
				}
			}
		}
	}()
}

func (c *Cache[T]) enrichAll(ctx context.Context, items []T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = c.enrichOne(ctx, item)
	}
	return out
}

func (c *Cache[T]) enrichOne(ctx context.Context, item T) T {
	key := c.enrichKey(item)
	if c.memo != nil {
		if cached, ok := c.memo.Get(key); ok {
			return cached
		}
	}

	enriched, err := c.enrich(ctx, item)
	if err != nil {
		// Per-item fallback: the batch succeeds with this item unenriched.
		log.Debug().Err(err).Str("key", c.key).Str("item", key).Msg("enrichment failed for item")
		return item
	}

	if c.memo != nil {
		c.memo.Add(key, enriched)
	}

	return enriched
}
