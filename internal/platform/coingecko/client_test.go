package coingecko

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

func TestSimplePrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum,solana", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"Ethereum":{"usd":2500.5},"solana":{"usd":145.2},"weird":{"eur":1}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	prices, err := c.SimplePrice(context.Background(), []string{"ethereum", "solana"})
	require.NoError(t, err)

	// Keys are normalised to lowercase; entries without a USD quote are dropped.
	assert.Equal(t, map[string]float64{"ethereum": 2500.5, "solana": 145.2}, prices)
}

func TestSimplePriceRateLimited(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "throttled", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.SimplePrice(context.Background(), []string{"ethereum"})
	require.Error(t, err)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusTooManyRequests, upstream.Status)
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestSimplePriceUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second)
	_, err := c.SimplePrice(context.Background(), []string{"ethereum"})
	require.Error(t, err)

	var upstream *domain.UpstreamError
	require.True(t, errors.As(err, &upstream))
	assert.Equal(t, http.StatusBadGateway, upstream.Status)
	assert.NotErrorIs(t, err, domain.ErrRateLimited)
}
