package event

import "context"

// Store persists and retrieves ActionEvents.
type Store interface {
	// Append persists one or more events atomically, in SequenceNumber order.
	Append(ctx context.Context, events ...Event) error
	// Load returns all events for an auction, ordered by sequence number.
	Load(ctx context.Context, auctionID string) ([]Event, error)
	// Tail returns the most recent n events for an auction, ordered oldest
	// first, for bounded undo-stack reconstruction.
	Tail(ctx context.Context, auctionID string, n int) ([]Event, error)
	// LoadByType returns events across all auctions filtered by type, for
	// ad-hoc administrative queries (e.g. "every disqualification this
	// season"). Recovery does not use this: RecoverOpenAuctions folds a
	// single auction's full history with Replay instead.
	LoadByType(ctx context.Context, eventType Type) ([]Event, error)
}
