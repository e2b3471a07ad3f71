package auction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Manager owns the set of in-memory Coordinators, one per auction with an
// open run loop, and is the single place that spawns, looks up, and stops
// them. Every command to a running auction is routed through here rather
// than by holding a Coordinator reference directly, so recovery and
// shutdown have one place to reason about liveness.
type Manager struct {
	mu         sync.RWMutex
	coordinators map[string]*Coordinator

	store     store.AuctionStore
	events    event.Store
	broadcast Broadcaster
	clock     clock.Clock
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewManager constructs a Manager. broadcast may be nil, in which case
// spawned coordinators get a no-op broadcaster.
func NewManager(repo store.AuctionStore, events event.Store, broadcast Broadcaster, clk clock.Clock, logger *slog.Logger) *Manager {
	return &Manager{
		coordinators: make(map[string]*Coordinator),
		store:        repo,
		events:       events,
		broadcast:    broadcast,
		clock:        clk,
		logger:       logger,
		tracer:       tracer,
	}
}

// Spawn constructs a Coordinator for auctionID, starts its run loop, and
// registers it. Returns the existing Coordinator if one is already running
// for that ID rather than starting a second loop over the same aggregate.
func (m *Manager) Spawn(ctx context.Context, auctionID string) (*Coordinator, error) {
	ctx, span := m.tracer.Start(ctx, "Manager.Spawn", trace.WithAttributes(attribute.String("auction.id", auctionID)))
	defer span.End()

	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coordinators[auctionID]; ok {
		return c, nil
	}
	c, err := NewCoordinator(ctx, auctionID, m.store, m.events, m.broadcast, m.clock, m.logger)
	if err != nil {
		return nil, fmt.Errorf("spawning coordinator for auction %s: %w", auctionID, err)
	}
	go c.Run()
	m.coordinators[auctionID] = c
	m.logger.InfoContext(ctx, "auction coordinator spawned", slog.String("auction_id", auctionID))
	return c, nil
}

// Get returns the running Coordinator for auctionID, or autxerr.NotFound if
// no run loop is currently registered for it.
func (m *Manager) Get(auctionID string) (*Coordinator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.coordinators[auctionID]
	if !ok {
		return nil, autxerr.NotFound("auction_not_running")
	}
	return c, nil
}

// Retire stops and unregisters auctionID's Coordinator, if one is running.
// Called once an auction has reached a terminal status (finalized) and no
// further commands are expected against it.
func (m *Manager) Retire(auctionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.coordinators[auctionID]; ok {
		c.Stop()
		delete(m.coordinators, auctionID)
	}
}

// RecoverOpenAuctions spawns a Coordinator for every auction left in a live
// or paused status by a prior process exit. Before spawning, it replays
// each auction's event journal with event.Replay to rebuild an
// AuctionSnapshot and cross-checks it against the materialized store row:
// the store remains the source of truth a Coordinator reloads from (a
// divergence here means the journal and the store disagree, which is worth
// knowing about even though recovery proceeds from the store either way).
func (m *Manager) RecoverOpenAuctions(ctx context.Context) error {
	ctx, span := m.tracer.Start(ctx, "Manager.RecoverOpenAuctions")
	defer span.End()

	open, err := m.store.ListLiveAuctions(ctx)
	if err != nil {
		return fmt.Errorf("listing live auctions for recovery: %w", err)
	}
	for _, a := range open {
		m.auditAgainstJournal(ctx, a)
		if _, err := m.Spawn(ctx, a.ID); err != nil {
			m.logger.ErrorContext(ctx, "failed to recover auction", slog.String("auction_id", a.ID), slog.Any("error", err))
			continue
		}
		m.logger.InfoContext(ctx, "recovered open auction", slog.String("auction_id", a.ID), slog.String("status", string(a.Status)))
	}
	return nil
}

// auditAgainstJournal replays a's event history and logs a warning if the
// folded status disagrees with the store's status. It never blocks or
// fails recovery: the store is still what the Coordinator reloads from.
func (m *Manager) auditAgainstJournal(ctx context.Context, a store.Auction) {
	snap, err := event.Replay(ctx, m.events, a.ID)
	if err != nil {
		m.logger.WarnContext(ctx, "event journal replay failed during recovery audit",
			slog.String("auction_id", a.ID), slog.Any("error", err))
		return
	}
	if snap.Status != "" && snap.Status != string(a.Status) {
		m.logger.WarnContext(ctx, "journal replay disagrees with store status",
			slog.String("auction_id", a.ID),
			slog.String("store_status", string(a.Status)),
			slog.String("replayed_status", snap.Status),
			slog.Int("last_sequence_number", snap.LastSequenceNumber))
	}
}

// Shutdown stops every registered Coordinator. Queued commands are
// abandoned; callers already waiting on a response observe their own ctx
// cancellation.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.coordinators {
		c.Stop()
		delete(m.coordinators, id)
	}
}
