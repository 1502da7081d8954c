package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/0xphantasia/equilibrium/internal/server"
	"github.com/0xphantasia/equilibrium/internal/server/handler"
	"github.com/0xphantasia/equilibrium/internal/server/ws"
	"github.com/0xphantasia/equilibrium/internal/service"
	"github.com/0xphantasia/equilibrium/internal/tracker"
)

// archiveFlushInterval bounds how long buffered snapshots wait before being
// written to object storage.
const archiveFlushInterval = 5 * time.Minute

// ServeMode runs the HTTP API and WebSocket hub. No background polling; live
// snapshots are computed on request through the quote cache.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startHTTPServer(ctx, g, deps)
	return g.Wait()
}

// TrackMode runs the background tracker without the HTTP API: poll prices,
// compute snapshots, publish to the Redis price cache, raise alerts, and
// archive. Useful for a headless worker deployment.
func (a *App) TrackMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting track mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startTracker(ctx, g, deps, nil)
	return g.Wait()
}

// FullMode runs the HTTP API and the tracker in one process. The tracker
// pushes every cycle's snapshots straight into the WebSocket hub.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)
	hub := a.startHTTPServer(ctx, g, deps)
	a.startTracker(ctx, g, deps, hub)
	return g.Wait()
}

// startHTTPServer adds the HTTP server and WebSocket hub goroutines to the
// given errgroup and returns the hub for the tracker to publish into. The
// server is shut down gracefully when the context is cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) *ws.Hub {
	positionSvc := service.NewPositionService(deps.PositionStore, deps.Quotes, a.logger)

	handlers := server.Handlers{
		Health:    handler.NewHealthHandler(deps.Pingers, a.logger),
		Prices:    handler.NewPriceHandler(deps.Quotes, a.logger),
		Positions: handler.NewPositionHandler(positionSvc, a.logger),
	}

	hub := ws.NewHub(a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	g.Go(func() error {
		return hub.Run(ctx)
	})

	srv := server.NewServer(server.Config{
		Port:           a.cfg.Server.Port,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		APIKey:         a.cfg.Server.APIKey,
		PriceRateLimit: a.cfg.Server.PriceRateLimit,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(func() error {
		a.logger.InfoContext(ctx, "HTTP server listening",
			slog.Int("port", a.cfg.Server.Port),
		)
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		a.logger.InfoContext(ctx, "HTTP server shutting down")
		return srv.Shutdown(shutCtx)
	})

	return hub
}

// startTracker adds the tracker goroutine to the given errgroup, plus the
// archive flush loop when object storage is wired. hub may be nil in
// headless deployments.
func (a *App) startTracker(ctx context.Context, g *errgroup.Group, deps *Dependencies, hub *ws.Hub) {
	var broadcaster tracker.Broadcaster
	if hub != nil {
		broadcaster = hub
	}

	trk := tracker.New(
		tracker.Config{
			Interval:            a.cfg.Tracker.Interval.Duration,
			LiquidationAlertPct: a.cfg.Tracker.LiquidationAlertPct,
		},
		deps.PositionStore,
		deps.Quotes,
		deps.PriceCache,
		deps.LockManager,
		broadcaster,
		deps.Archiver,
		deps.Notifier,
		a.logger,
	)
	g.Go(func() error {
		return trk.Run(ctx)
	})

	if deps.Archiver != nil {
		g.Go(func() error {
			ticker := time.NewTicker(archiveFlushInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					// Final flush so buffered snapshots survive shutdown.
					flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer cancel()
					if n, err := deps.Archiver.Flush(flushCtx); err != nil {
						a.logger.Error("final archive flush failed",
							slog.Int("snapshots", n),
							slog.String("error", err.Error()),
						)
					}
					return ctx.Err()
				case <-ticker.C:
					n, err := deps.Archiver.Flush(ctx)
					if err != nil {
						a.logger.ErrorContext(ctx, "archive flush failed",
							slog.String("error", err.Error()),
						)
						continue
					}
					if n > 0 {
						a.logger.InfoContext(ctx, "archived snapshots", slog.Int("count", n))
					}
				}
			}
		})
	}
}
