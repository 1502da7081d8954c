package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/0xphantasia/equilibrium/internal/domain"
	"github.com/0xphantasia/equilibrium/internal/service"
)

// PositionService defines the methods that the position handler requires.
type PositionService interface {
	Create(ctx context.Context, params service.CreateParams) (domain.Position, error)
	ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Position, error)
	Delete(ctx context.Context, id string) error
	LiveSnapshot(ctx context.Context, id string) (domain.Snapshot, error)
	Simulate(ctx context.Context, params service.SimulateParams) (domain.Snapshot, error)
}

// PositionHandler serves position-related HTTP endpoints.
type PositionHandler struct {
	positions PositionService
	logger    *slog.Logger
}

// NewPositionHandler creates a PositionHandler with the given service and logger.
func NewPositionHandler(positions PositionService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{
		positions: positions,
		logger:    logger,
	}
}

// positionJSON is the wire shape of a position.
type positionJSON struct {
	ID            string    `json:"id"`
	Owner         string    `json:"owner"`
	AssetID       string    `json:"asset_id"`
	EntryPrice    float64   `json:"entry_price"`
	RangeLow      float64   `json:"range_low"`
	RangeHigh     float64   `json:"range_high"`
	Capital       float64   `json:"capital"`
	EstimatedAPR  float64   `json:"estimated_apr"`
	ShortLeverage float64   `json:"short_leverage"`
	StartTime     time.Time `json:"start_time"`
}

func toPositionJSON(p domain.Position) positionJSON {
	return positionJSON(p)
}

// snapshotJSON is the wire shape of a valuation snapshot.
type snapshotJSON struct {
	PositionID   string    `json:"position_id,omitempty"`
	AssetID      string    `json:"asset_id"`
	CurrentPrice float64   `json:"current_price"`
	ComputedAt   time.Time `json:"computed_at"`

	LiquidityConstant float64 `json:"liquidity_constant"`
	TokenAmount       float64 `json:"token_amount"`
	StableAmount      float64 `json:"stable_amount"`

	LPValue     float64 `json:"lp_value"`
	ShortSize   float64 `json:"short_size"`
	ShortValue  float64 `json:"short_value"`
	ShortPnL    float64 `json:"short_pnl"`
	AccruedFees float64 `json:"accrued_fees"`
	TotalPnL    float64 `json:"total_pnl"`
	EquityValue float64 `json:"equity_value"`

	LiquidationPrice         float64 `json:"liquidation_price"`
	DistanceToLiquidationPct float64 `json:"distance_to_liquidation_pct"`
	MaxLossAtLow             float64 `json:"max_loss_at_low"`
	MaxLossAtHigh            float64 `json:"max_loss_at_high"`
	FeesToBreakEven          float64 `json:"fees_to_break_even"`
	IsOutOfRange             bool    `json:"is_out_of_range"`
}

func toSnapshotJSON(s domain.Snapshot) snapshotJSON {
	return snapshotJSON(s)
}

// listPositionsResponse wraps the list positions response.
type listPositionsResponse struct {
	Positions []positionJSON `json:"positions"`
}

// ListPositions returns saved positions for a given owner.
// GET /api/positions?owner=alice
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("owner")
	if owner == "" {
		writeError(w, http.StatusBadRequest, "owner query parameter required")
		return
	}

	positions, err := h.positions.ListByOwner(r.Context(), owner, parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list positions failed",
			slog.String("owner", owner),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to list positions")
		return
	}

	out := make([]positionJSON, 0, len(positions))
	for _, p := range positions {
		out = append(out, toPositionJSON(p))
	}
	writeJSON(w, http.StatusOK, listPositionsResponse{Positions: out})
}

// createPositionRequest is the POST body for creating a position.
type createPositionRequest struct {
	Owner         string  `json:"owner"`
	AssetID       string  `json:"asset_id"`
	EntryPrice    float64 `json:"entry_price"`
	RangeLow      float64 `json:"range_low"`
	RangeHigh     float64 `json:"range_high"`
	Capital       float64 `json:"capital"`
	EstimatedAPR  float64 `json:"estimated_apr"`
	ShortLeverage float64 `json:"short_leverage"`
}

// CreatePosition validates and persists a new position.
// POST /api/positions
func (h *PositionHandler) CreatePosition(w http.ResponseWriter, r *http.Request) {
	var req createPositionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	pos, err := h.positions.Create(r.Context(), service.CreateParams{
		Owner:         req.Owner,
		AssetID:       req.AssetID,
		EntryPrice:    req.EntryPrice,
		RangeLow:      req.RangeLow,
		RangeHigh:     req.RangeHigh,
		Capital:       req.Capital,
		EstimatedAPR:  req.EstimatedAPR,
		ShortLeverage: req.ShortLeverage,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: create position failed",
			slog.String("asset_id", req.AssetID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to create position")
		return
	}

	writeJSON(w, http.StatusCreated, toPositionJSON(pos))
}

// DeletePosition removes a position by ID.
// DELETE /api/positions/{id}
func (h *PositionHandler) DeletePosition(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	if err := h.positions.Delete(r.Context(), id); err != nil {
		h.logger.WarnContext(r.Context(), "handler: delete position failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to delete position")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSnapshot values a saved position at the current market price.
// GET /api/positions/{id}/snapshot
func (h *PositionHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")

	snap, err := h.positions.LiveSnapshot(r.Context(), id)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: snapshot failed",
			slog.String("position_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to compute snapshot")
		return
	}

	writeJSON(w, http.StatusOK, toSnapshotJSON(snap))
}

// simulateRequest is the POST body for a what-if valuation.
type simulateRequest struct {
	createPositionRequest
	TargetPrice    float64 `json:"target_price"`
	SimulatedHours float64 `json:"simulated_hours"`
}

// Simulate values a hypothetical position at a target price and holding
// period without persisting anything.
// POST /api/simulate
func (h *PositionHandler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	snap, err := h.positions.Simulate(r.Context(), service.SimulateParams{
		CreateParams: service.CreateParams{
			Owner:         req.Owner,
			AssetID:       req.AssetID,
			EntryPrice:    req.EntryPrice,
			RangeLow:      req.RangeLow,
			RangeHigh:     req.RangeHigh,
			Capital:       req.Capital,
			EstimatedAPR:  req.EstimatedAPR,
			ShortLeverage: req.ShortLeverage,
		},
		TargetPrice:    req.TargetPrice,
		SimulatedHours: req.SimulatedHours,
	})
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: simulate failed",
			slog.String("asset_id", req.AssetID),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err, "failed to simulate position")
		return
	}

	writeJSON(w, http.StatusOK, toSnapshotJSON(snap))
}
