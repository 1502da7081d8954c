package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/0xphantasia/equilibrium/internal/quote"
)

// QuoteService defines the slice of the quote cache the price handler needs.
type QuoteService interface {
	Get(ctx context.Context, ids []string) (quote.Result, error)
}

// PriceHandler serves cached upstream prices.
type PriceHandler struct {
	quotes QuoteService
	logger *slog.Logger
}

// NewPriceHandler creates a PriceHandler with the given quote service and logger.
func NewPriceHandler(quotes QuoteService, logger *slog.Logger) *PriceHandler {
	return &PriceHandler{
		quotes: quotes,
		logger: logger,
	}
}

// priceResponse is the wire shape of a quote lookup.
type priceResponse struct {
	Source  string             `json:"source"`
	Data    map[string]float64 `json:"data"`
	Warning string             `json:"warning,omitempty"`
}

// GetPrices returns USD prices for the requested asset identifiers.
// GET /api/prices?ids=ethereum,bitcoin
func (h *PriceHandler) GetPrices(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("ids")
	if strings.TrimSpace(raw) == "" {
		writeError(w, http.StatusBadRequest, "ids query parameter required")
		return
	}

	res, err := h.quotes.Get(r.Context(), strings.Split(raw, ","))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: price lookup failed",
			slog.String("ids", raw),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to fetch prices")
		return
	}

	writeJSON(w, http.StatusOK, priceResponse{
		Source:  res.Source,
		Data:    res.Prices,
		Warning: res.Warning,
	})
}
