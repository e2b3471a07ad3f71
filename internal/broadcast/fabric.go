package broadcast

import (
	"encoding/json"
	"time"

	"github.com/abhinavece/auctionhub/internal/event"
	"github.com/abhinavece/auctionhub/internal/store"
)

// Fabric adapts a Hub to the auction.Broadcaster contract so a Coordinator
// can fan out commits without knowing anything about websockets.
type Fabric struct {
	hub *Hub
}

func NewFabric(hub *Hub) *Fabric {
	return &Fabric{hub: hub}
}

// PublishEvent routes e to auction:{auctionID} and admin:{auctionID} when
// public, or to team:{auctionID}:{e.PerformedBy} alone when it carries a
// private audience (e.g. a rejected bid, §4.4).
func (f *Fabric) PublishEvent(auctionID string, e event.Event) {
	msg := eventMessage(e)
	if !e.IsPublic {
		if e.PerformedBy != "" {
			f.hub.Publish(TeamRoom(auctionID, e.PerformedBy), msg)
		}
		return
	}
	f.hub.Publish(AuctionRoom(auctionID), msg)
	f.hub.Publish(AdminRoom(auctionID), msg)
}

func (f *Fabric) PublishPrivate(auctionID, teamID string, e event.Event) {
	f.hub.Publish(TeamRoom(auctionID, teamID), eventMessage(e))
}

// PublishTimerTick announces the current phase and absolute deadline to
// every auction-room subscriber so clients can render a countdown without
// polling (§4.4).
func (f *Fabric) PublishTimerTick(auctionID string, phase store.TimerPhase, deadline time.Time) {
	payload, _ := json.Marshal(timerTickPayload{Phase: string(phase), Deadline: deadline})
	f.hub.Publish(AuctionRoom(auctionID), Message{Type: "timer_tick", Payload: payload})
}

type timerTickPayload struct {
	Phase    string    `json:"phase"`
	Deadline time.Time `json:"deadline"`
}

func eventMessage(e event.Event) Message {
	return Message{Type: string(e.Type), Payload: e.Payload}
}
