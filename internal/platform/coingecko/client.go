// Package coingecko is the REST client for the CoinGecko simple-price API,
// the upstream source of spot prices for tracked assets.
package coingecko

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/0xphantasia/equilibrium/internal/domain"
)

// DefaultBaseURL is the public CoinGecko API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

// Client fetches USD spot prices from CoinGecko.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a CoinGecko client. An empty baseURL selects the public
// API. The upstream call carries a hard timeout; a request that outlives it
// surfaces as a fetch failure like any other.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// SimplePrice returns the USD price for each of the given asset identifiers.
// Identifiers are joined into one upstream call; the response is normalised
// to lowercase id -> USD value. Non-2xx responses become *domain.UpstreamError
// so the caller can distinguish rate limiting (429) from other failures.
func (c *Client) SimplePrice(ctx context.Context, ids []string) (map[string]float64, error) {
	params := url.Values{}
	params.Set("ids", strings.Join(ids, ","))
	params.Set("vs_currencies", "usd")

	reqURL := c.baseURL + "/simple/price?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("coingecko: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coingecko: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("coingecko: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &domain.UpstreamError{
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(body)),
		}
	}

	// The upstream shape is {"<id>": {"usd": <price>}, ...}.
	var raw map[string]map[string]float64
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("coingecko: decode response: %w", err)
	}

	prices := make(map[string]float64, len(raw))
	for id, quote := range raw {
		usd, ok := quote["usd"]
		if !ok {
			continue
		}
		prices[strings.ToLower(id)] = usd
	}

	return prices, nil
}
