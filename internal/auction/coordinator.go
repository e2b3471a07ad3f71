// Package auction implements the per-auction coordinator that owns the
// Auction aggregate: bidding, timer phases, lifecycle transitions, and the
// bilateral trade protocol all run serialized behind one inbox per auction
// (§5 of the engine design).
package auction

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/abhinavece/auctionhub/internal/autxerr"
	"github.com/abhinavece/auctionhub/internal/clock"
	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/abhinavece/auctionhub/internal/auction")

// command is one unit of work submitted to a Coordinator's inbox. fn runs
// with exclusive access to the coordinator's cached state; resp carries the
// result back to the submitter (if anyone is waiting).
type command struct {
	fn   func(ctx context.Context) (any, error)
	resp chan result
}

type result struct {
	val any
	err error
}

// Coordinator owns one auction's aggregate and processes every
// state-mutating operation in strict FIFO order (§5). It is the sole writer
// of its cached Auction/Teams/Players/Trades and the sole mutator of its
// phase timer.
type Coordinator struct {
	id string

	store store.AuctionStore
	events event.Store
	broadcast Broadcaster
	clock  clock.Clock
	logger *slog.Logger

	inbox chan command
	done  chan struct{}
	once  sync.Once

	timer phaseTimer

	// healthy flips false on an invariant_violation and never recovers;
	// the coordinator keeps draining its inbox with that single error so
	// callers observe a consistent failure instead of a closed channel.
	healthy bool
	haltErr error

	// cached aggregate, exclusively owned by the run loop goroutine.
	auction *store.Auction
	teams   map[string]*store.AuctionTeam
	players map[string]*store.AuctionPlayer
	trades  map[string]*store.AuctionTrade
	// locked maps a playerID to the trade that currently holds an
	// exclusive claim on it (§4.6 asymmetric locking).
	locked map[string]string
}

// NewCoordinator constructs a Coordinator for an already-persisted auction
// and loads its current aggregate snapshot from repo. Call Run in its own
// goroutine to start processing commands.
func NewCoordinator(ctx context.Context, id string, repo store.AuctionStore, events event.Store, broadcast Broadcaster, clk clock.Clock, logger *slog.Logger) (*Coordinator, error) {
	c := &Coordinator{
		id:        id,
		store:     repo,
		events:    events,
		broadcast: broadcast,
		clock:     clk,
		logger:    logger,
		inbox:     make(chan command, 32),
		done:      make(chan struct{}),
		healthy:   true,
		teams:     map[string]*store.AuctionTeam{},
		players:   map[string]*store.AuctionPlayer{},
		trades:    map[string]*store.AuctionTrade{},
		locked:    map[string]string{},
	}
	if broadcast == nil {
		c.broadcast = noopBroadcaster{}
	}
	if err := c.reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// reload re-fetches the auction and its teams/players/trades from the
// state store, replacing the cache wholesale. Used at startup/recovery and
// after a stale-version conflict.
func (c *Coordinator) reload(ctx context.Context) error {
	a, err := c.store.GetAuction(ctx, c.id)
	if err != nil {
		return fmt.Errorf("loading auction %s: %w", c.id, err)
	}
	teams, err := c.store.FindTeamsByAuction(ctx, c.id)
	if err != nil {
		return fmt.Errorf("loading teams: %w", err)
	}
	var players []store.AuctionPlayer
	for _, st := range []store.PlayerStatus{store.PlayerPool, store.PlayerLive, store.PlayerSold, store.PlayerUnsold, store.PlayerDisqualified} {
		p, err := c.store.FindPlayersByAuctionAndStatus(ctx, c.id, st)
		if err != nil {
			return fmt.Errorf("loading players (%s): %w", st, err)
		}
		players = append(players, p...)
	}
	trades, err := c.store.FindTradesByAuctionAndStatus(ctx, c.id)
	if err != nil {
		return fmt.Errorf("loading trades: %w", err)
	}

	c.auction = a
	c.teams = make(map[string]*store.AuctionTeam, len(teams))
	for i := range teams {
		c.teams[teams[i].ID] = &teams[i]
	}
	c.players = make(map[string]*store.AuctionPlayer, len(players))
	for i := range players {
		c.players[players[i].ID] = &players[i]
	}
	c.trades = make(map[string]*store.AuctionTrade, len(trades))
	c.locked = map[string]string{}
	for i := range trades {
		t := &trades[i]
		c.trades[t.ID] = t
		if t.Status == store.TradePendingCounterparty || t.Status == store.TradeBothAgreed {
			for _, p := range t.InitiatorPlayers {
				c.locked[p.PlayerID] = t.ID
			}
		}
		if t.Status == store.TradeBothAgreed {
			for _, p := range t.CounterpartyPlayers {
				c.locked[p.PlayerID] = t.ID
			}
		}
	}
	return nil
}

// Run drains the inbox until Stop is called. Intended to run in its own
// goroutine, one per live auction.
func (c *Coordinator) Run() {
	for {
		select {
		case cmd := <-c.inbox:
			val, err := c.dispatch(cmd.fn)
			if cmd.resp != nil {
				cmd.resp <- result{val: val, err: err}
			}
		case <-c.done:
			return
		}
	}
}

func (c *Coordinator) dispatch(fn func(ctx context.Context) (any, error)) (any, error) {
	if !c.healthy {
		return nil, c.haltErr
	}
	return fn(context.Background())
}

// Stop halts the run loop. Queued commands are abandoned; submitters
// waiting on them observe ctx cancellation or a timeout of their own
// choosing.
func (c *Coordinator) Stop() {
	c.once.Do(func() { close(c.done) })
	c.timer.disarm()
}

// submit enqueues fn and blocks until it has run (or ctx is done). This is
// the "synchronously enqueue and await a result future" pattern called for
// by the engine's concurrency design.
func (c *Coordinator) submit(ctx context.Context, fn func(ctx context.Context) (any, error)) (any, error) {
	cmd := command{fn: fn, resp: make(chan result, 1)}
	select {
	case c.inbox <- cmd:
	case <-c.done:
		return nil, autxerr.InvariantViolation("coordinator_stopped")
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-cmd.resp:
		return r.val, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// enqueueFireAndForget posts fn without waiting for a result. Used by the
// phase timer's fire callback, which runs on its own goroutine and must not
// block the timer runtime waiting on the coordinator.
func (c *Coordinator) enqueueFireAndForget(fn func(ctx context.Context) (any, error)) {
	cmd := command{fn: fn}
	select {
	case c.inbox <- cmd:
	case <-c.done:
	}
}

// halt marks the coordinator permanently unhealthy after an
// invariant_violation, broadcasts a final unhealthy notice, and keeps err
// as the answer to every subsequent command (§7).
func (c *Coordinator) halt(ctx context.Context, err error) {
	c.healthy = false
	c.haltErr = err
	c.logger.ErrorContext(ctx, "auction coordinator halted", slog.String("auction_id", c.id), slog.Any("error", err))
	c.broadcast.PublishEvent(c.id, event.Event{
		AuctionID:     c.id,
		Type:          event.ManualOverride,
		IsPublic:      true,
		PublicMessage: "auction engine halted: manual intervention required",
		CreatedAt:     c.clock.Now().UTC(),
	})
}

// commit runs compute to obtain a store.Mutation against the current cache,
// applies it, and on success adopts the mutation's rows as the new cache.
// On a stale-version conflict it reloads the aggregate once and retries
// compute exactly once before treating the conflict as fatal (§4.4, §5).
func (c *Coordinator) commit(ctx context.Context, compute func() (store.Mutation, error)) (int, error) {
	m, err := compute()
	if err != nil {
		return 0, err
	}
	seq, err := c.store.Apply(ctx, m)
	if err == nil {
		c.adopt(m)
		return seq, nil
	}
	if autxerr.KindOf(err) != autxerr.KindStateConflict {
		return 0, err
	}
	if reloadErr := c.reload(ctx); reloadErr != nil {
		c.halt(ctx, reloadErr)
		return 0, autxerr.InvariantViolation("reload_after_stale_version_failed")
	}
	m, err = compute()
	if err != nil {
		return 0, err
	}
	seq, err = c.store.Apply(ctx, m)
	if err != nil {
		c.halt(ctx, err)
		return 0, autxerr.InvariantViolation("stale_version_after_retry")
	}
	c.adopt(m)
	return seq, nil
}

func (c *Coordinator) adopt(m store.Mutation) {
	if m.Auction != nil {
		c.auction = m.Auction
	}
	for i := range m.Teams {
		t := m.Teams[i]
		c.teams[t.ID] = &t
	}
	for i := range m.Players {
		p := m.Players[i]
		c.players[p.ID] = &p
	}
	for i := range m.Trades {
		t := m.Trades[i]
		c.trades[t.ID] = &t
	}
	c.broadcast.PublishEvent(c.id, m.Event)
}

func (c *Coordinator) team(id string) (*store.AuctionTeam, error) {
	t, ok := c.teams[id]
	if !ok {
		return nil, autxerr.NotFound("team_not_found")
	}
	return t, nil
}

func (c *Coordinator) player(id string) (*store.AuctionPlayer, error) {
	p, ok := c.players[id]
	if !ok {
		return nil, autxerr.NotFound("player_not_found")
	}
	return p, nil
}

func (c *Coordinator) trade(id string) (*store.AuctionTrade, error) {
	t, ok := c.trades[id]
	if !ok {
		return nil, autxerr.NotFound("trade_not_found")
	}
	return t, nil
}

func (c *Coordinator) span(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attribute.String("auction.id", c.id)))
}

// armPhase (re)arms the phase timer to fire at deadline, tagging the fired
// callback with the phase it is exiting so onPhaseExpiry can compute the
// next phase. deadline is absolute so the timer tolerates wall-clock jumps
// (§5): remaining duration is derived from it, never stored as a bare
// countdown.
func (c *Coordinator) armPhase(ctx context.Context, phase store.TimerPhase, deadline time.Time) {
	d := deadline.Sub(c.clock.Now())
	if d < 0 {
		d = 0
	}
	c.timer.arm(d, func(gen int) {
		c.enqueueFireAndForget(func(ctx context.Context) (any, error) {
			return nil, c.onPhaseExpiry(ctx, gen, phase)
		})
	})
	c.broadcast.PublishTimerTick(c.id, phase, deadline)
}
