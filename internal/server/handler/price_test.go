package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xphantasia/equilibrium/internal/domain"
	"github.com/0xphantasia/equilibrium/internal/quote"
)

type stubQuotes struct {
	result  quote.Result
	err     error
	lastIDs []string
}

func (s *stubQuotes) Get(_ context.Context, ids []string) (quote.Result, error) {
	s.lastIDs = ids
	if s.err != nil {
		return quote.Result{}, s.err
	}
	return s.result, nil
}

func newPriceServer(quotes QuoteService) *httptest.Server {
	h := NewPriceHandler(quotes, slog.New(slog.DiscardHandler))
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/prices", h.GetPrices)
	return httptest.NewServer(mux)
}

func TestGetPrices(t *testing.T) {
	stub := &stubQuotes{result: quote.Result{
		Source: quote.SourceFetched,
		Prices: map[string]float64{"bitcoin": 60000, "ethereum": 2500},
	}}
	srv := newPriceServer(stub)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prices?ids=ethereum,bitcoin")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"ethereum", "bitcoin"}, stub.lastIDs)

	var got priceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "fetched", got.Source)
	assert.Equal(t, 2500.0, got.Data["ethereum"])
	assert.Empty(t, got.Warning)
}

func TestGetPricesStaleFallbackCarriesWarning(t *testing.T) {
	stub := &stubQuotes{result: quote.Result{
		Source:  quote.SourceStaleFallback,
		Prices:  map[string]float64{"ethereum": 2450},
		Warning: quote.WarningRateLimited,
	}}
	srv := newPriceServer(stub)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prices?ids=ethereum")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got priceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "stale-fallback", got.Source)
	assert.Equal(t, "rate_limited", got.Warning)
}

func TestGetPricesMissingIDs(t *testing.T) {
	srv := newPriceServer(&stubQuotes{})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prices")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPricesBadRequestFromCache(t *testing.T) {
	srv := newPriceServer(&stubQuotes{err: domain.ErrBadRequest})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prices?ids=%20,%20")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetPricesUpstreamStatusPassthrough(t *testing.T) {
	srv := newPriceServer(&stubQuotes{err: &domain.UpstreamError{Status: http.StatusTooManyRequests}})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prices?ids=ethereum")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
}

func TestGetPricesInternalError(t *testing.T) {
	srv := newPriceServer(&stubQuotes{err: context.DeadlineExceeded})
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/prices?ids=ethereum")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
