package quote

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

// fakeSource counts upstream calls and serves scripted responses.
type fakeSource struct {
	mu     sync.Mutex
	calls  atomic.Int64
	prices map[string]float64
	err    error
	delay  time.Duration
}

func (f *fakeSource) SimplePrice(ctx context.Context, ids []string) (map[string]float64, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]float64, len(f.prices))
	for k, v := range f.prices {
		out[k] = v
	}
	return out, nil
}

func (f *fakeSource) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestCanonicalIDs(t *testing.T) {
	ids, err := CanonicalIDs([]string{" Solana", "ethereum", "", "SOLANA ", "bitcoin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"bitcoin", "ethereum", "solana"}, ids)

	_, err = CanonicalIDs([]string{"", "  "})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrBadRequest)
}

func TestGetServesFromCacheWithinTTL(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"ethereum": 2500}}
	c := New(src, time.Minute, discardLogger())
	ctx := context.Background()

	res, err := c.Get(ctx, []string{"ethereum"})
	require.NoError(t, err)
	assert.Equal(t, SourceFetched, res.Source)
	assert.Equal(t, 2500.0, res.Prices["ethereum"])

	// Second call inside the TTL: no upstream traffic.
	res, err = c.Get(ctx, []string{"ETHEREUM "})
	require.NoError(t, err)
	assert.Equal(t, SourceCache, res.Source)
	assert.EqualValues(t, 1, src.calls.Load())
}

func TestGetRefetchesAfterTTL(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"ethereum": 2500}}
	c := New(src, 30*time.Millisecond, discardLogger())
	ctx := context.Background()

	_, err := c.Get(ctx, []string{"ethereum"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)

	res, err := c.Get(ctx, []string{"ethereum"})
	require.NoError(t, err)
	assert.Equal(t, SourceFetched, res.Source)
	assert.EqualValues(t, 2, src.calls.Load())
}

func TestGetStaleFallbackOnRateLimit(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"ethereum": 2500}}
	c := New(src, 30*time.Millisecond, discardLogger())
	ctx := context.Background()

	_, err := c.Get(ctx, []string{"ethereum"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	src.setErr(&domain.UpstreamError{Status: 429, Body: "throttled"})

	res, err := c.Get(ctx, []string{"ethereum"})
	require.NoError(t, err)
	assert.Equal(t, SourceStaleFallback, res.Source)
	assert.Equal(t, WarningRateLimited, res.Warning)
	assert.Equal(t, 2500.0, res.Prices["ethereum"])

	// The stale entry was not refreshed: the next call hits upstream again.
	res, err = c.Get(ctx, []string{"ethereum"})
	require.NoError(t, err)
	assert.Equal(t, SourceStaleFallback, res.Source)
	assert.EqualValues(t, 3, src.calls.Load())
}

func TestGetPropagatesFailureWithoutFallback(t *testing.T) {
	src := &fakeSource{err: &domain.UpstreamError{Status: 429, Body: "throttled"}}
	c := New(src, time.Minute, discardLogger())

	// Rate limited but no prior entry: the failure surfaces.
	_, err := c.Get(context.Background(), []string{"ethereum"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestGetPropagatesNonRateLimitFailure(t *testing.T) {
	src := &fakeSource{prices: map[string]float64{"ethereum": 2500}}
	c := New(src, 30*time.Millisecond, discardLogger())
	ctx := context.Background()

	_, err := c.Get(ctx, []string{"ethereum"})
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	src.setErr(&domain.UpstreamError{Status: 502, Body: "bad gateway"})

	// A non-429 failure is not recovered from the stale entry.
	_, err = c.Get(ctx, []string{"ethereum"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}

func TestConcurrentCallersShareOneFetch(t *testing.T) {
	src := &fakeSource{
		prices: map[string]float64{"ethereum": 2500},
		delay:  20 * time.Millisecond,
	}
	c := New(src, time.Minute, discardLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := c.Get(ctx, []string{"ethereum"})
			assert.NoError(t, err)
			assert.Equal(t, 2500.0, res.Prices["ethereum"])
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, src.calls.Load())
}
