package domain

import (
	"context"
	"time"
)

// PriceCache provides fast access to the latest polled prices. The tracker
// writes into it every cycle; readers (handlers, other processes) get the
// most recent observation without touching the upstream feed.
type PriceCache interface {
	SetPrice(ctx context.Context, assetID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, assetID string) (float64, time.Time, error)
	GetPrices(ctx context.Context, assetIDs []string) (map[string]float64, error)
}

// LockManager provides mutual exclusion around the tracker's poll cycle so a
// refresh in progress is never overlapped by a second one.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter bounds request rates per key. The HTTP layer uses it to cap
// price endpoint traffic per client.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Wait(ctx context.Context, key string) error
}
