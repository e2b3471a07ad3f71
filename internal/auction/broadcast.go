package auction

import (
	"time"

	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

// Broadcaster publishes auction state to the real-time fabric (§4.7). It
// must not block the coordinator: implementations enqueue and return.
type Broadcaster interface {
	// PublishEvent fans e out to room auction:{auctionID} (and admin:{auctionID})
	// when e.IsPublic, or, for events carrying a private audience (e.g. a
	// rejected bid), routes it only to the narrower team:{auctionID}:{teamID}
	// room keyed by e.PerformedBy.
	PublishEvent(auctionID string, e event.Event)
	// PublishPrivate sends e only to team:{auctionID}:{teamID}.
	PublishPrivate(auctionID, teamID string, e event.Event)
	// PublishTimerTick announces the current phase and its absolute
	// deadline so clients can render a countdown without polling.
	PublishTimerTick(auctionID string, phase store.TimerPhase, deadline time.Time)
}

// noopBroadcaster discards everything. Used where no fabric is wired, e.g.
// unit tests of the coordinator in isolation.
type noopBroadcaster struct{}

func (noopBroadcaster) PublishEvent(string, event.Event)                          {}
func (noopBroadcaster) PublishPrivate(string, string, event.Event)                {}
func (noopBroadcaster) PublishTimerTick(string, store.TimerPhase, time.Time) {}
