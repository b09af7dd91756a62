package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"primeflip/internal/auth"
	"primeflip/internal/domain"
	"primeflip/internal/scheduler"
	"primeflip/internal/server"
	"primeflip/internal/server/handler"
	"primeflip/internal/server/ws"
)

// FullMode runs the refresh scheduler, the WebSocket hub, and the HTTP
// server in one process.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	g, ctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(nil, deps.Bus, a.logger)
	sched := a.buildScheduler(deps, hub)
	hub.SetSource(sched)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("full mode: %w", err)
	}
	g.Go(func() error {
		<-ctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	a.startArchiveLoop(ctx, g, deps)

	if a.cfg.Server.Enabled {
		if err := a.startHTTPServer(ctx, g, deps, sched, hub); err != nil {
			return fmt.Errorf("full mode: %w", err)
		}
	}

	return g.Wait()
}

// PollMode runs the refresh scheduler with no HTTP surface. Cycle results
// still reach the shared cache, the snapshot store, the signal bus, and
// the alert notifier, so server-mode replicas stay current.
func (a *App) PollMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting poll mode")

	g, ctx := errgroup.WithContext(ctx)

	// The hub still runs so updates and alerts are mirrored onto the bus
	// even without local WebSocket clients.
	hub := ws.NewHub(nil, deps.Bus, a.logger)
	sched := a.buildScheduler(deps, hub)
	hub.SetSource(sched)

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("poll mode: %w", err)
	}
	g.Go(func() error {
		<-ctx.Done()
		sched.Stop()
		return nil
	})
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	a.startArchiveLoop(ctx, g, deps)

	return g.Wait()
}

// ServerMode runs the HTTP and WebSocket API only. Opportunities come
// from the shared Redis cache, refreshed whenever a poll-mode instance
// announces a new cycle on the signal bus.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	source := &cachedOpportunities{cache: deps.Cache, logger: a.logger}

	// The hub does not mirror in server mode: this instance consumes the
	// bus, it does not produce onto it.
	hub := ws.NewHub(source, nil, a.logger)
	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		return a.relayBus(ctx, deps.Bus, source, hub)
	})

	if err := a.startHTTPServer(ctx, g, deps, nil, hub); err != nil {
		return fmt.Errorf("server mode: %w", err)
	}

	return g.Wait()
}

// buildScheduler assembles the refresh loop from config and wired deps.
func (a *App) buildScheduler(deps *Dependencies, hub *ws.Hub) *scheduler.Scheduler {
	return scheduler.New(
		scheduler.Config{
			RefreshInterval: a.cfg.Scheduler.RefreshInterval.Duration,
			Strategy:        a.cfg.Pricing.Strategy,
			Platform:        a.cfg.Market.Platform,
			PlatformFeePct:  a.cfg.Pricing.PlatformFeePct,
			AlertMinProfit:  a.cfg.Scheduler.AlertMinProfit,
		},
		deps.Catalog,
		deps.Market,
		deps.Snapshots,
		deps.Cache,
		hub,
		deps.Notifier,
		a.logger,
	)
}

// startHTTPServer adds the HTTP server goroutines to the errgroup. sched
// is nil in server mode; the opportunity and status endpoints then read
// from the cache-backed source instead.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, sched *scheduler.Scheduler, hub *ws.Hub) error {
	tokens, err := auth.NewTokenIssuer(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenTTL.Duration)
	if err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	var opps handler.OpportunityReader
	var schedStatus handler.SchedulerStatus
	var schedHandler *handler.SchedulerHandler
	if sched != nil {
		opps = sched
		schedStatus = sched
		schedHandler = handler.NewSchedulerHandler(sched, a.logger)
	} else {
		opps = &cachedOpportunities{cache: deps.Cache, logger: a.logger}
	}

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(schedStatus, a.logger),
		Config: handler.NewConfigHandler(
			a.cfg.Market.Platform,
			a.cfg.Pricing.Strategy,
			a.cfg.Scheduler.RefreshInterval.Duration,
			a.cfg.Pricing.PlatformFeePct,
			a.logger,
		),
		Items:         handler.NewItemHandler(deps.Catalog, deps.Snapshots, opps, a.logger),
		Opportunities: handler.NewOpportunityHandler(opps, a.logger),
		Scheduler:     schedHandler,
		History:       handler.NewHistoryHandler(deps.Snapshots, a.logger),
		Auth:          handler.NewAuthHandler(deps.Users, tokens, a.logger),
		Trades:        handler.NewTradeHandler(deps.Trades, deps.Catalog, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:           a.cfg.Server.Port,
		CORSOrigins:    a.cfg.Server.CORSOrigins,
		RateLimitRPS:   a.cfg.Server.RateLimitRPS,
		RateLimitBurst: a.cfg.Server.RateLimitBurst,
	}, handlers, tokens, hub, a.logger)

	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
	return nil
}

// startArchiveLoop adds a daily snapshot archival goroutine when S3 is
// enabled: upload rows older than the retention window, then delete them
// from the primary store. Deletion only happens after a successful upload.
func (a *App) startArchiveLoop(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	if deps.Archiver == nil {
		return
	}
	retention := time.Duration(a.cfg.S3.RetentionDays) * 24 * time.Hour

	g.Go(func() error {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		runOnce := func() {
			cutoff := time.Now().UTC().Add(-retention)
			archived, err := deps.Archiver.ArchiveSnapshots(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "snapshot archive failed", slog.String("error", err.Error()))
				return
			}
			if archived == 0 {
				return
			}
			deleted, err := deps.Snapshots.DeleteBefore(ctx, cutoff)
			if err != nil {
				a.logger.ErrorContext(ctx, "snapshot prune failed", slog.String("error", err.Error()))
				return
			}
			a.logger.InfoContext(ctx, "snapshots archived",
				slog.Int64("archived", archived),
				slog.Int64("deleted", deleted),
				slog.Time("cutoff", cutoff),
			)
		}

		runOnce()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				runOnce()
			}
		}
	})
}

// relayBus refreshes the hub from the shared cache whenever a poll-mode
// instance announces a new cycle or alert on the signal bus.
func (a *App) relayBus(ctx context.Context, bus domain.SignalBus, source *cachedOpportunities, hub *ws.Hub) error {
	updates, err := bus.Subscribe(ctx, ws.ChannelMarketUpdate)
	if err != nil {
		return fmt.Errorf("relay: subscribe %s: %w", ws.ChannelMarketUpdate, err)
	}
	alerts, err := bus.Subscribe(ctx, ws.ChannelAlert)
	if err != nil {
		return fmt.Errorf("relay: subscribe %s: %w", ws.ChannelAlert, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case _, ok := <-updates:
			if !ok {
				return nil
			}
			// The bus message is just the trigger; the cache holds the
			// authoritative set.
			if set := source.Current(); set != nil {
				hub.BroadcastUpdate(set)
			}

		case payload, ok := <-alerts:
			if !ok {
				return nil
			}
			var msg struct {
				Opportunity domain.Opportunity `json:"opportunity"`
				Reason      string             `json:"reason"`
				Timestamp   time.Time          `json:"timestamp"`
			}
			if err := json.Unmarshal(payload, &msg); err != nil {
				a.logger.WarnContext(ctx, "relay: bad alert payload", slog.String("error", err.Error()))
				continue
			}
			hub.BroadcastAlert(msg.Opportunity, msg.Reason, msg.Timestamp)
		}
	}
}

// cachedOpportunities adapts the shared Redis cache to the hub's and
// handlers' read interfaces for instances that do not run the scheduler.
type cachedOpportunities struct {
	cache  domain.OpportunityCache
	logger *slog.Logger
}

// Current returns the latest cached opportunity set, or nil when no cycle
// has been published yet.
func (c *cachedOpportunities) Current() *domain.OpportunitySet {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	set, err := c.cache.GetCurrent(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("opportunity cache read failed", slog.String("error", err.Error()))
		}
		return nil
	}
	return set
}

// Opportunities filters the cached set by the caller's thresholds.
func (c *cachedOpportunities) Opportunities(minProfit, minMargin float64) []domain.Opportunity {
	return c.Current().Filtered(minProfit, minMargin)
}
