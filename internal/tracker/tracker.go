// Package tracker implements the background poll loop that keeps live
// valuations flowing: it fetches prices for every saved position, computes
// snapshots, publishes them to the cache, WebSocket hub, and archiver, and
// raises risk alerts.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/0xphantasia/equilibrium/internal/domain"
	"github.com/0xphantasia/equilibrium/internal/quote"
	"github.com/0xphantasia/equilibrium/internal/valuation"
)

// pollLockKey guards the poll cycle across processes sharing a Redis.
const pollLockKey = "tracker:poll"

// Events raised by the tracker. Operators filter on these in the notifier
// configuration.
const (
	EventLiquidationRisk = "liquidation_risk"
	EventOutOfRange      = "out_of_range"
)

// QuoteGetter is the slice of the quote cache the tracker needs.
type QuoteGetter interface {
	Get(ctx context.Context, ids []string) (quote.Result, error)
}

// Broadcaster receives each cycle's output for fan-out to live clients.
type Broadcaster interface {
	BroadcastSnapshot(snap domain.Snapshot)
	BroadcastPrices(prices map[string]float64, ts time.Time)
}

// AlertNotifier raises operator-facing alerts.
type AlertNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds tracker tuning parameters.
type Config struct {
	Interval time.Duration
	// LiquidationAlertPct triggers an alert when distance to liquidation
	// drops below this percentage.
	LiquidationAlertPct float64
}

// Tracker polls prices for all saved positions on a fixed interval and
// publishes fresh valuation snapshots. Everything except the store and the
// quote source is optional; nil collaborators are skipped.
type Tracker struct {
	cfg       Config
	positions domain.PositionStore
	quotes    QuoteGetter
	prices    domain.PriceCache
	locks     domain.LockManager
	hub       Broadcaster
	archiver  domain.SnapshotArchiver
	notifier  AlertNotifier
	logger    *slog.Logger

	// alerted de-duplicates risk alerts per position so a position sitting
	// near its liquidation price does not page every cycle.
	alerted map[string]string
}

// New creates a Tracker. positions and quotes are required; prices, locks,
// hub, archiver, and notifier may each be nil to disable that output.
func New(
	cfg Config,
	positions domain.PositionStore,
	quotes QuoteGetter,
	prices domain.PriceCache,
	locks domain.LockManager,
	hub Broadcaster,
	archiver domain.SnapshotArchiver,
	notifier AlertNotifier,
	logger *slog.Logger,
) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.LiquidationAlertPct <= 0 {
		cfg.LiquidationAlertPct = 10
	}
	return &Tracker{
		cfg:       cfg,
		positions: positions,
		quotes:    quotes,
		prices:    prices,
		locks:     locks,
		hub:       hub,
		archiver:  archiver,
		notifier:  notifier,
		logger:    logger.With(slog.String("component", "tracker")),
		alerted:   make(map[string]string),
	}
}

// Run executes poll cycles on the configured interval until the context is
// cancelled. A failed cycle is logged and the loop continues.
func (t *Tracker) Run(ctx context.Context) error {
	t.logger.Info("tracker starting",
		slog.Duration("interval", t.cfg.Interval),
		slog.Float64("liquidation_alert_pct", t.cfg.LiquidationAlertPct),
	)

	// Run immediately on start so clients are not blind for a full interval.
	if err := t.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
		t.logger.Error("poll cycle failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("tracker stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := t.Poll(ctx); err != nil && !errors.Is(err, context.Canceled) {
				t.logger.Error("poll cycle failed", slog.String("error", err.Error()))
			}
		}
	}
}

// Poll executes a single cycle: list positions, fetch prices, compute and
// publish snapshots. One position failing valuation does not abort the rest.
func (t *Tracker) Poll(ctx context.Context) error {
	if t.locks != nil {
		unlock, err := t.locks.Acquire(ctx, pollLockKey, t.cfg.Interval)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				t.logger.Debug("poll lock held elsewhere, skipping cycle")
				return nil
			}
			return fmt.Errorf("tracker: acquire poll lock: %w", err)
		}
		defer unlock()
	}

	positions, err := t.positions.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("tracker: list positions: %w", err)
	}
	if len(positions) == 0 {
		return nil
	}

	assetIDs := make([]string, 0, len(positions))
	for _, p := range positions {
		assetIDs = append(assetIDs, p.AssetID)
	}

	res, err := t.quotes.Get(ctx, assetIDs)
	if err != nil {
		return fmt.Errorf("tracker: fetch prices: %w", err)
	}
	now := time.Now().UTC()

	t.publishPrices(ctx, res.Prices, now)

	var snapshots []domain.Snapshot
	for _, pos := range positions {
		price, ok := res.Prices[pos.AssetID]
		if !ok {
			t.logger.Warn("no price for asset, skipping position",
				slog.String("position_id", pos.ID),
				slog.String("asset_id", pos.AssetID),
			)
			continue
		}

		snap, err := valuation.Compute(pos, price, 0, true)
		if err != nil {
			t.logger.Warn("valuation failed, skipping position",
				slog.String("position_id", pos.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		snap.ComputedAt = now
		snapshots = append(snapshots, snap)

		if t.hub != nil {
			t.hub.BroadcastSnapshot(snap)
		}
		t.checkAlerts(ctx, pos, snap)
	}

	if t.archiver != nil && len(snapshots) > 0 {
		t.archiver.Append(snapshots)
	}

	t.logger.Info("poll cycle complete",
		slog.Int("positions", len(positions)),
		slog.Int("snapshots", len(snapshots)),
		slog.String("price_source", res.Source),
	)
	return nil
}

func (t *Tracker) publishPrices(ctx context.Context, prices map[string]float64, now time.Time) {
	if t.hub != nil {
		t.hub.BroadcastPrices(prices, now)
	}
	if t.prices == nil {
		return
	}
	for id, price := range prices {
		if err := t.prices.SetPrice(ctx, id, price, now); err != nil {
			t.logger.Warn("price cache write failed",
				slog.String("asset_id", id),
				slog.String("error", err.Error()),
			)
		}
	}
}

// checkAlerts raises at most one alert per position per condition until the
// condition clears.
func (t *Tracker) checkAlerts(ctx context.Context, pos domain.Position, snap domain.Snapshot) {
	if t.notifier == nil {
		return
	}

	var event string
	switch {
	case snap.DistanceToLiquidationPct < t.cfg.LiquidationAlertPct:
		event = EventLiquidationRisk
	case snap.IsOutOfRange:
		event = EventOutOfRange
	}

	if event == "" {
		delete(t.alerted, pos.ID)
		return
	}
	if t.alerted[pos.ID] == event {
		return
	}
	t.alerted[pos.ID] = event

	var title, message string
	switch event {
	case EventLiquidationRisk:
		title = "Liquidation risk"
		message = fmt.Sprintf(
			"Position %s (%s): price %.2f is %.1f%% from the hedge liquidation price %.2f.",
			pos.ID, pos.AssetID, snap.CurrentPrice, snap.DistanceToLiquidationPct, snap.LiquidationPrice,
		)
	case EventOutOfRange:
		title = "Position out of range"
		message = fmt.Sprintf(
			"Position %s (%s): price %.2f has left the range [%.2f, %.2f]; fees stop accruing.",
			pos.ID, pos.AssetID, snap.CurrentPrice, pos.RangeLow, pos.RangeHigh,
		)
	}

	if err := t.notifier.Notify(ctx, event, title, message); err != nil {
		t.logger.Warn("alert delivery failed",
			slog.String("position_id", pos.ID),
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}
