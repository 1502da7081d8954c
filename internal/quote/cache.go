// Package quote implements the request-serving price cache: a per-key TTL
// memo over the upstream price feed, with request coalescing and a
// stale-fallback policy for upstream rate limiting.
package quote

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

// DefaultTTL bounds how long a fetched entry serves requests without a new
// upstream call. It is deliberately much shorter than the tracker's poll
// interval so a burst of concurrent requests costs at most one upstream call.
const DefaultTTL = 10 * time.Second

// Result sources, reported to the caller so the boundary can expose where the
// data came from.
const (
	SourceCache         = "cache"
	SourceFetched       = "fetched"
	SourceStaleFallback = "stale-fallback"
)

// WarningRateLimited flags a stale-fallback result.
const WarningRateLimited = "rate_limited"

// Source is the upstream price feed consulted on a cache miss.
type Source interface {
	SimplePrice(ctx context.Context, ids []string) (map[string]float64, error)
}

// Result is the outcome of a cache lookup.
type Result struct {
	Source  string
	Prices  map[string]float64
	Warning string
}

// entry is an immutable cache record; it is replaced whole on refresh, never
// mutated in place.
type entry struct {
	fetchedAt time.Time
	prices    map[string]float64
}

// Cache memoizes upstream price fetches per canonical identifier set. One
// instance is constructed per process and injected into every caller; there
// is no package-level state.
type Cache struct {
	source Source
	ttl    time.Duration
	logger *slog.Logger

	mu      sync.RWMutex
	entries map[string]entry

	// group coalesces concurrent fetches for the same key so a stale or
	// empty key issues at most one upstream call at a time.
	group singleflight.Group
}

// New creates a Cache over the given source. A non-positive ttl selects
// DefaultTTL.
func New(source Source, ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		source:  source,
		ttl:     ttl,
		logger:  logger.With(slog.String("component", "quote_cache")),
		entries: make(map[string]entry),
	}
}

// CanonicalIDs normalises a raw identifier list: trimmed, lowercased,
// de-duplicated, sorted. It fails with ErrBadRequest when nothing survives
// filtering.
func CanonicalIDs(raw []string) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, id := range raw {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("quote: no valid asset identifiers: %w", domain.ErrBadRequest)
	}
	sort.Strings(ids)
	return ids, nil
}

// Get returns prices for the given identifiers, serving from the cache while
// the entry is fresh. On a stale or empty key it fetches upstream; concurrent
// callers for the same key share a single in-flight fetch. If the upstream is
// rate limiting and a prior entry exists (however old), that entry's prices
// are returned tagged SourceStaleFallback instead of failing; the entry is
// left untouched so the next call retries the upstream.
func (c *Cache) Get(ctx context.Context, rawIDs []string) (Result, error) {
	ids, err := CanonicalIDs(rawIDs)
	if err != nil {
		return Result{}, err
	}
	key := strings.Join(ids, ",")

	if e, ok := c.lookup(key); ok && time.Since(e.fetchedAt) < c.ttl {
		return Result{Source: SourceCache, Prices: e.prices}, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// A fetch that completed while this caller queued makes the entry
		// fresh again; serve it rather than fetching twice.
		if e, ok := c.lookup(key); ok && time.Since(e.fetchedAt) < c.ttl {
			return Result{Source: SourceCache, Prices: e.prices}, nil
		}
		return c.refresh(ctx, key, ids)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

func (c *Cache) lookup(key string) (entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *Cache) refresh(ctx context.Context, key string, ids []string) (Result, error) {
	prices, err := c.source.SimplePrice(ctx, ids)
	if err != nil {
		prior, hadPrior := c.lookup(key)
		if errors.Is(err, domain.ErrRateLimited) && hadPrior {
			c.logger.WarnContext(ctx, "upstream rate limited, serving stale entry",
				slog.String("key", key),
				slog.Duration("age", time.Since(prior.fetchedAt)),
			)
			return Result{
				Source:  SourceStaleFallback,
				Prices:  prior.prices,
				Warning: WarningRateLimited,
			}, nil
		}
		return Result{}, fmt.Errorf("quote: fetch %s: %w", key, err)
	}

	c.mu.Lock()
	c.entries[key] = entry{fetchedAt: time.Now(), prices: prices}
	c.mu.Unlock()

	return Result{Source: SourceFetched, Prices: prices}, nil
}
