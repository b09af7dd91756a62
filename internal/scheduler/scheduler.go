// Package scheduler owns the periodic fetch-compute-broadcast loop. It is
// the sole writer of the shared opportunity state; everything else reads
// through Opportunities or the subscriber hub.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"primeflip/internal/domain"
	"primeflip/internal/platform/wfmarket"
	"primeflip/internal/pricing"
)

// AlertReasonProfit tags alerts fired when an opportunity's profit crosses
// the configured threshold.
const AlertReasonProfit = "profit_threshold"

// OrderFetcher retrieves the raw order list for one marketplace item key.
// Implementations absorb upstream failure and return an empty list.
type OrderFetcher interface {
	FetchOrders(ctx context.Context, itemKey string) []domain.Order
}

// Broadcaster fans out cycle results to live subscribers.
type Broadcaster interface {
	BroadcastUpdate(set *domain.OpportunitySet)
	BroadcastAlert(opp domain.Opportunity, reason string, ts time.Time)
}

// AlertNotifier pushes threshold alerts to external channels (Telegram,
// Discord). Satisfied by *notify.Notifier.
type AlertNotifier interface {
	Notify(ctx context.Context, event, title, message string) error
}

// Config holds the scheduler's cycle parameters.
type Config struct {
	RefreshInterval time.Duration
	Strategy        string
	Platform        string
	PlatformFeePct  float64
	AlertMinProfit  float64
}

// Scheduler runs one serialized cycle per interval: fetch orders for
// every enabled item, compute opportunities, swap the shared state,
// persist snapshots, broadcast, and alert. Cycles never overlap; if one
// overruns the interval the next starts immediately after it finishes.
type Scheduler struct {
	cfg      Config
	catalog  domain.CatalogStore
	fetcher  OrderFetcher
	snaps    domain.SnapshotStore // nil disables persistence
	cache    domain.OpportunityCache
	hub      Broadcaster
	notifier AlertNotifier
	logger   *slog.Logger

	current atomic.Pointer[domain.OpportunitySet]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
	trigger chan struct{}

	// alerted tracks which items fired an alert in the previous cycle so
	// alerts are edge-triggered: one per transition into qualifying, not
	// one per cycle above the threshold. Only the cycle goroutine touches
	// it.
	alerted map[string]bool
}

// New creates a Scheduler. snaps, cache, hub and notifier may be nil;
// the corresponding step is skipped.
func New(
	cfg Config,
	catalog domain.CatalogStore,
	fetcher OrderFetcher,
	snaps domain.SnapshotStore,
	cache domain.OpportunityCache,
	hub Broadcaster,
	notifier AlertNotifier,
	logger *slog.Logger,
) *Scheduler {
	if cfg.Strategy == "" {
		cfg.Strategy = pricing.DefaultStrategy
	}
	if cfg.Platform == "" {
		cfg.Platform = domain.PlatformPC
	}
	return &Scheduler{
		cfg:      cfg,
		catalog:  catalog,
		fetcher:  fetcher,
		snaps:    snaps,
		cache:    cache,
		hub:      hub,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "scheduler")),
		alerted:  make(map[string]bool),
	}
}

// Start transitions the scheduler from idle to running: the first cycle
// begins immediately, then one per refresh interval. Calling Start while
// running is an error.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler: already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.running = true
	s.cancel = cancel
	s.done = make(chan struct{})
	s.trigger = make(chan struct{}, 1)

	s.logger.Info("scheduler starting",
		slog.Duration("refresh_interval", s.cfg.RefreshInterval),
		slog.String("strategy", s.cfg.Strategy),
		slog.String("platform", s.cfg.Platform),
	)

	go s.loop(runCtx, s.done, s.trigger)
	return nil
}

// Stop transitions running to idle. It cancels the idle wait promptly and
// blocks until the in-flight cycle reaches its end, so no fetch, persist
// or broadcast work survives the call. Stopping an idle scheduler is a
// no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.running = false
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("scheduler stopped")
}

// TriggerNow requests an immediate cycle, cutting short the idle wait. If
// a cycle is already in flight the request coalesces into one extra run.
// Returns ErrSchedulerBusy when the scheduler is not running.
func (s *Scheduler) TriggerNow() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return domain.ErrSchedulerBusy
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
	return nil
}

// Running reports whether the periodic loop is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Opportunities filters the latest completed cycle's state by the given
// thresholds. It never triggers a fetch and is safe to call concurrently
// with an in-progress cycle: readers see the prior or the new state,
// never a mix.
func (s *Scheduler) Opportunities(minProfit, minMargin float64) []domain.Opportunity {
	return s.current.Load().Filtered(minProfit, minMargin)
}

// Current returns the latest opportunity set, or nil before the first
// completed cycle.
func (s *Scheduler) Current() *domain.OpportunitySet {
	return s.current.Load()
}

// loop drives the cycle cadence. The next cycle is scheduled relative to
// the previous cycle's start; an overrunning cycle makes the wait
// non-positive and the next cycle starts at once rather than being
// skipped or queued.
func (s *Scheduler) loop(ctx context.Context, done chan struct{}, trigger <-chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		started := time.Now()
		s.safeCycle(ctx)
		if ctx.Err() != nil {
			return
		}

		wait := s.cfg.RefreshInterval - time.Since(started)
		if wait <= 0 {
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(wait)

		select {
		case <-ctx.Done():
			return
		case <-trigger:
		case <-timer.C:
		}
	}
}

// safeCycle absorbs any panic escaping the cycle body so a single bad
// cycle never kills the loop.
func (s *Scheduler) safeCycle(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("cycle panicked", slog.Any("panic", r))
		}
	}()
	s.runCycle(ctx)
}

// runCycle is one full pass over the catalog: serialized fetches, pricing,
// atomic state swap, best-effort persistence, broadcast, alerting.
func (s *Scheduler) runCycle(ctx context.Context) {
	started := time.Now()

	items, err := s.catalog.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("list catalog failed, skipping cycle", slog.String("error", err.Error()))
		return
	}
	if len(items) == 0 {
		s.logger.Warn("catalog is empty, nothing to price")
		return
	}

	opportunities := make([]domain.Opportunity, 0, len(items))
	now := time.Now().UTC()

	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		opp := s.processItem(ctx, item, now)
		if opp != nil {
			opportunities = append(opportunities, *opp)
		}
	}

	set := &domain.OpportunitySet{
		Opportunities: opportunities,
		UpdatedAt:     now,
	}
	s.current.Store(set)

	// Persistence is best effort: a failed write leaves the history
	// incomplete but never rolls back the live state.
	s.persistSnapshots(ctx, set)

	if s.cache != nil {
		if err := s.cache.SetCurrent(ctx, set); err != nil {
			s.logger.Warn("cache update failed", slog.String("error", err.Error()))
		}
	}

	if s.hub != nil {
		s.hub.BroadcastUpdate(set)
	}

	s.evaluateAlerts(ctx, set)

	s.logger.Info("cycle complete",
		slog.Int("items", len(items)),
		slog.Int("opportunities", len(opportunities)),
		slog.Duration("took", time.Since(started)),
	)
}

// processItem fetches and prices one item. Any fault is contained here:
// a failing item is simply absent from the cycle's output.
func (s *Scheduler) processItem(ctx context.Context, item domain.TrackedItem, now time.Time) (opp *domain.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("item processing panicked",
				slog.String("item", item.ID),
				slog.Any("panic", r),
			)
			opp = nil
		}
	}()

	ordersByKey := make(map[string][]domain.Order, len(item.Parts)+1)
	for _, part := range item.Parts {
		key := item.PartKey(part)
		raw := s.fetcher.FetchOrders(ctx, key)
		ordersByKey[key] = wfmarket.FilterOrders(raw, domain.OrderSideSell, s.cfg.Platform)
	}
	setKey := item.SetKey()
	raw := s.fetcher.FetchOrders(ctx, setKey)
	ordersByKey[setKey] = wfmarket.FilterOrders(raw, domain.OrderSideSell, s.cfg.Platform)

	return pricing.ComputeOpportunity(item, ordersByKey, s.cfg.Strategy, s.cfg.Platform, s.cfg.PlatformFeePct, now)
}

// persistSnapshots writes one part snapshot per priced part and one set
// snapshot per opportunity.
func (s *Scheduler) persistSnapshots(ctx context.Context, set *domain.OpportunitySet) {
	if s.snaps == nil {
		return
	}

	var parts []domain.PartSnapshot
	var sets []domain.SetSnapshot
	for _, opp := range set.Opportunities {
		for _, p := range opp.Parts {
			parts = append(parts, domain.PartSnapshot{
				ItemID:   opp.ItemID,
				PartName: p.Name,
				Strategy: opp.Strategy,
				Metric:   p.Source,
				Price:    p.Price,
				Platform: opp.Platform,
				TS:       set.UpdatedAt,
			})
		}
		sets = append(sets, domain.SetSnapshot{
			ItemID:   opp.ItemID,
			Strategy: opp.Strategy,
			SetPrice: opp.SetPrice,
			Platform: opp.Platform,
			TS:       set.UpdatedAt,
		})
	}
	if len(parts) == 0 && len(sets) == 0 {
		return
	}

	if err := s.snaps.InsertBatch(ctx, parts, sets); err != nil {
		s.logger.Error("snapshot persistence failed, history incomplete for this cycle",
			slog.String("error", err.Error()),
		)
	}
}

// evaluateAlerts fires one alert per transition of an item's profit above
// the threshold. Items that stay above it do not re-alert every cycle;
// dropping below, or out of the cycle entirely, re-arms the alert.
func (s *Scheduler) evaluateAlerts(ctx context.Context, set *domain.OpportunitySet) {
	next := make(map[string]bool, len(set.Opportunities))
	for _, opp := range set.Opportunities {
		qualifies := opp.Profit >= s.cfg.AlertMinProfit
		if qualifies && !s.alerted[opp.ItemID] {
			s.fireAlert(ctx, opp, set.UpdatedAt)
		}
		if qualifies {
			next[opp.ItemID] = true
		}
	}
	s.alerted = next
}

func (s *Scheduler) fireAlert(ctx context.Context, opp domain.Opportunity, ts time.Time) {
	s.logger.Info("opportunity alert",
		slog.String("item", opp.ItemID),
		slog.Float64("profit", opp.Profit),
		slog.Float64("margin", opp.Margin),
	)

	if s.hub != nil {
		s.hub.BroadcastAlert(opp, AlertReasonProfit, ts)
	}

	if s.notifier != nil {
		title := "Arbitrage opportunity: " + opp.ItemName
		msg := formatAlert(opp)
		if err := s.notifier.Notify(ctx, AlertReasonProfit, title, msg); err != nil {
			s.logger.Warn("alert notification failed", slog.String("error", err.Error()))
		}
	}
}
