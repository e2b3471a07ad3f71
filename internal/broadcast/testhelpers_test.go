package broadcast

import "github.com/abhinavece/auctionhub/internal/event"

func publicEvent(t event.Type) event.Event {
	return event.Event{Type: t, IsPublic: true}
}

func privateEvent(t event.Type, performedBy string) event.Event {
	return event.Event{Type: t, IsPublic: false, PerformedBy: performedBy}
}
