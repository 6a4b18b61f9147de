package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quantfeed/costsim/internal/cache/redis"
	"github.com/quantfeed/costsim/internal/domain"
	"github.com/quantfeed/costsim/internal/server"
	"github.com/quantfeed/costsim/internal/server/handler"
)

// ServeMode runs the feed and the HTTP API with no external persistence. This
// is the default operating mode.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Stream.Run(ctx)
	})

	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// MonitorMode runs the feed and logs a book summary plus latency statistics
// on a fixed interval. The HTTP server is started too when enabled, so the
// API stays reachable while watching the logs.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Duration("interval", a.cfg.Monitor.Interval.Duration),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Stream.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(a.cfg.Monitor.Interval.Duration)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				a.logBookSummary(ctx, deps)
			}
		}
	})

	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// FullMode runs everything serve mode does plus the persistence side:
// estimates are inserted into Postgres and published on the estimate bus,
// snapshots are mirrored into the Redis cache, and aged estimates are
// archived to object storage on an interval.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	// Estimate sinks: persistence and publication. Sink failures are logged
	// and absorbed so they never fail the estimate itself.
	deps.Pipeline.AddSink(func(ctx context.Context, est domain.TradeEstimate) {
		if err := deps.EstimateStore.Insert(ctx, est); err != nil {
			a.logger.ErrorContext(ctx, "estimate insert failed",
				slog.String("estimate_id", est.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	})
	deps.Pipeline.AddSink(func(ctx context.Context, est domain.TradeEstimate) {
		payload, err := json.Marshal(est)
		if err != nil {
			return
		}
		if err := deps.EstimateBus.Publish(ctx, redis.EstimateChannel, payload); err != nil {
			a.logger.WarnContext(ctx, "estimate publish failed",
				slog.String("estimate_id", est.ID.String()),
				slog.String("error", err.Error()),
			)
		}
	})

	// Mirror each published snapshot into the Redis cache.
	asset := a.cfg.Feed.Asset
	deps.Stream.OnSnapshot(func(ctx context.Context, snap *domain.Snapshot) {
		if err := deps.SnapshotCache.SetLatest(ctx, asset, *snap); err != nil {
			a.logger.WarnContext(ctx, "snapshot cache update failed",
				slog.String("asset", asset),
				slog.String("error", err.Error()),
			)
		}
	})

	g.Go(func() error {
		return deps.Stream.Run(ctx)
	})

	// Archive loop.
	if a.cfg.Archive.Enabled && deps.Archiver != nil {
		g.Go(func() error {
			return a.runArchiveLoop(ctx, deps.Archiver)
		})
	}

	a.startHTTPServer(ctx, g, deps)

	return g.Wait()
}

// startHTTPServer adds the HTTP server goroutines to the given errgroup when
// the server is enabled. The estimates history route is registered only when
// a store is wired. The server is shut down gracefully when the context is
// cancelled.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if !a.cfg.Server.Enabled {
		a.logger.InfoContext(ctx, "HTTP server disabled")
		return
	}

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Stream, a.logger),
		Book:     handler.NewBookHandler(deps.Pipeline, a.logger),
		Estimate: handler.NewEstimateHandler(deps.Pipeline, a.cfg.Feed.Asset, a.logger),
		Latency:  handler.NewLatencyHandler(deps.Pipeline, a.logger),
	}
	if deps.EstimateStore != nil {
		handlers.Estimates = handler.NewEstimatesHandler(deps.EstimateStore, a.logger)
	}

	srv := server.NewServer(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("app: server shutdown: %w", err)
		}
		return ctx.Err()
	})
}

// runArchiveLoop periodically moves estimates older than the retention window
// into object storage. Failures are logged and the loop keeps going; a broken
// archive backend must not take down the service.
func (a *App) runArchiveLoop(ctx context.Context, archiver domain.Archiver) error {
	retention := time.Duration(a.cfg.Archive.RetentionDays) * 24 * time.Hour

	ticker := time.NewTicker(a.cfg.Archive.Interval.Duration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			before := time.Now().Add(-retention)
			count, err := archiver.Archive(ctx, before)
			if err != nil {
				a.logger.ErrorContext(ctx, "estimate archive run failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if count > 0 {
				a.logger.InfoContext(ctx, "estimate archive run complete",
					slog.Int64("archived", count),
				)
			}
		}
	}
}

// logBookSummary emits one monitor-mode log line with the current book state
// and the trade estimate latency profile.
func (a *App) logBookSummary(ctx context.Context, deps *Dependencies) {
	sum := deps.Pipeline.Summary()
	if sum.Status != "active" {
		a.logger.InfoContext(ctx, "book summary", slog.String("status", sum.Status))
		return
	}

	attrs := []any{
		slog.String("asset", a.cfg.Feed.Asset),
		slog.Float64("best_bid", sum.BestBid),
		slog.Float64("best_ask", sum.BestAsk),
		slog.Float64("mid_price", sum.MidPrice),
		slog.Float64("spread", sum.Spread),
		slog.Float64("spread_pct", sum.SpreadPct),
		slog.Float64("bid_depth", sum.BidDepth),
		slog.Float64("ask_depth", sum.AskDepth),
		slog.Float64("imbalance", sum.BookImbalance),
		slog.Float64("last_latency_ms", sum.LastLatencyMs),
	}
	if stats, ok := deps.Pipeline.LatencyStats()["trade_estimate"]; ok {
		attrs = append(attrs,
			slog.Float64("estimate_mean_ms", stats.Mean),
			slog.Float64("estimate_p95_ms", stats.P95),
		)
	}
	a.logger.InfoContext(ctx, "book summary", attrs...)
}
