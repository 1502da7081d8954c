// Package service contains the application services that sit between the HTTP
// handlers and the stores, cache, and valuation model.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/0xphantasia/equilibrium/internal/domain"
	"github.com/0xphantasia/equilibrium/internal/quote"
	"github.com/0xphantasia/equilibrium/internal/valuation"
)

// QuoteGetter is the slice of the quote cache the position service needs.
type QuoteGetter interface {
	Get(ctx context.Context, ids []string) (quote.Result, error)
}

// PositionService manages hedged LP positions: creation with validation,
// listing, deletion, and live valuation snapshots.
type PositionService struct {
	positions domain.PositionStore
	quotes    QuoteGetter
	logger    *slog.Logger
}

// NewPositionService creates a PositionService with the given store and quote
// source.
func NewPositionService(positions domain.PositionStore, quotes QuoteGetter, logger *slog.Logger) *PositionService {
	return &PositionService{
		positions: positions,
		quotes:    quotes,
		logger:    logger,
	}
}

// CreateParams carries the user-supplied fields of a new position.
type CreateParams struct {
	Owner         string
	AssetID       string
	EntryPrice    float64
	RangeLow      float64
	RangeHigh     float64
	Capital       float64
	EstimatedAPR  float64
	ShortLeverage float64
}

// Create validates the parameters, assigns an ID and start time, and persists
// the position. Invalid range parameters return domain.ErrInvalidRange.
func (s *PositionService) Create(ctx context.Context, params CreateParams) (domain.Position, error) {
	assetID := strings.ToLower(strings.TrimSpace(params.AssetID))
	if assetID == "" {
		return domain.Position{}, fmt.Errorf("position_service: asset id required: %w", domain.ErrBadRequest)
	}
	if strings.TrimSpace(params.Owner) == "" {
		return domain.Position{}, fmt.Errorf("position_service: owner required: %w", domain.ErrBadRequest)
	}

	if err := valuation.ValidateRange(params.EntryPrice, params.RangeLow, params.RangeHigh, params.Capital); err != nil {
		return domain.Position{}, err
	}
	if params.EstimatedAPR < 0 {
		return domain.Position{}, fmt.Errorf("position_service: estimated apr %g must not be negative: %w",
			params.EstimatedAPR, domain.ErrBadRequest)
	}

	leverage := params.ShortLeverage
	if leverage == 0 {
		leverage = valuation.DefaultLeverage
	}
	if leverage < 0 {
		return domain.Position{}, fmt.Errorf("position_service: leverage %g must be positive: %w",
			leverage, domain.ErrBadRequest)
	}

	pos := domain.Position{
		ID:            uuid.New().String(),
		Owner:         strings.TrimSpace(params.Owner),
		AssetID:       assetID,
		EntryPrice:    params.EntryPrice,
		RangeLow:      params.RangeLow,
		RangeHigh:     params.RangeHigh,
		Capital:       params.Capital,
		EstimatedAPR:  params.EstimatedAPR,
		ShortLeverage: leverage,
		StartTime:     time.Now().UTC(),
	}

	if err := s.positions.Create(ctx, pos); err != nil {
		return domain.Position{}, fmt.Errorf("position_service: create position: %w", err)
	}

	s.logger.InfoContext(ctx, "position_service: position created",
		slog.String("position_id", pos.ID),
		slog.String("asset_id", pos.AssetID),
		slog.Float64("capital", pos.Capital),
	)

	return pos, nil
}

// Get returns a single position by ID.
func (s *PositionService) Get(ctx context.Context, id string) (domain.Position, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return domain.Position{}, fmt.Errorf("position_service: get position %q: %w", id, err)
	}
	return pos, nil
}

// ListByOwner returns the owner's positions, newest first.
func (s *PositionService) ListByOwner(ctx context.Context, owner string, opts domain.ListOpts) ([]domain.Position, error) {
	positions, err := s.positions.ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, fmt.Errorf("position_service: list for %q: %w", owner, err)
	}
	return positions, nil
}

// Delete removes a position by ID.
func (s *PositionService) Delete(ctx context.Context, id string) error {
	if err := s.positions.Delete(ctx, id); err != nil {
		return fmt.Errorf("position_service: delete position %q: %w", id, err)
	}
	s.logger.InfoContext(ctx, "position_service: position deleted",
		slog.String("position_id", id),
	)
	return nil
}

// LiveSnapshot values the position at the current market price. Fees are
// skipped: a live view carries no elapsed-time assumption, only observed
// price action.
func (s *PositionService) LiveSnapshot(ctx context.Context, id string) (domain.Snapshot, error) {
	pos, err := s.positions.GetByID(ctx, id)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("position_service: get position %q: %w", id, err)
	}

	res, err := s.quotes.Get(ctx, []string{pos.AssetID})
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("position_service: quote %q: %w", pos.AssetID, err)
	}
	price, ok := res.Prices[pos.AssetID]
	if !ok {
		return domain.Snapshot{}, fmt.Errorf("position_service: no price for %q: %w", pos.AssetID, domain.ErrNotFound)
	}

	snap, err := valuation.Compute(pos, price, 0, true)
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("position_service: snapshot %q: %w", id, err)
	}
	snap.ComputedAt = time.Now().UTC()
	return snap, nil
}

// SimulateParams carries a hypothetical position plus the scenario to value
// it under.
type SimulateParams struct {
	CreateParams
	TargetPrice    float64
	SimulatedHours float64
}

// Simulate values a hypothetical position at a target price with fees accrued
// over the simulated holding period. Nothing is persisted.
func (s *PositionService) Simulate(ctx context.Context, params SimulateParams) (domain.Snapshot, error) {
	if params.TargetPrice <= 0 {
		return domain.Snapshot{}, fmt.Errorf("position_service: target price %g must be positive: %w",
			params.TargetPrice, domain.ErrBadRequest)
	}
	if params.SimulatedHours < 0 {
		return domain.Snapshot{}, fmt.Errorf("position_service: simulated hours %g must not be negative: %w",
			params.SimulatedHours, domain.ErrBadRequest)
	}

	leverage := params.ShortLeverage
	if leverage == 0 {
		leverage = valuation.DefaultLeverage
	}

	pos := domain.Position{
		AssetID:       strings.ToLower(strings.TrimSpace(params.AssetID)),
		EntryPrice:    params.EntryPrice,
		RangeLow:      params.RangeLow,
		RangeHigh:     params.RangeHigh,
		Capital:       params.Capital,
		EstimatedAPR:  params.EstimatedAPR,
		ShortLeverage: leverage,
	}

	snap, err := valuation.Compute(pos, params.TargetPrice, params.SimulatedHours, false)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap.ComputedAt = time.Now().UTC()
	return snap, nil
}
