package events

import (
	"context"
	"time"

	model "deals-portal/internal/models"
	"deals-portal/utils"
)

// Kind distinguishes lifecycle events
type Kind string

const (
	KindStatusChanged Kind = "status_changed"
	KindCancelled     Kind = "cancelled"
)

// Event is emitted by the bid lifecycle after a transition is stored.
// Bid is the snapshot after the transition, or the final snapshot for cancellations.
type Event struct {
	ID         string          `json:"id"`
	Kind       Kind            `json:"kind"`
	Bid        model.Bid       `json:"bid"`
	Previous   model.BidStatus `json:"previous,omitempty"`
	Next       model.BidStatus `json:"next,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// StatusChanged builds the event for a decided bid
func StatusChanged(bid model.Bid, previous, next model.BidStatus) Event {
	return Event{
		ID:         utils.GenerateID(),
		Kind:       KindStatusChanged,
		Bid:        bid,
		Previous:   previous,
		Next:       next,
		OccurredAt: time.Now().UTC(),
	}
}

// Cancelled builds the event for a removed bid
func Cancelled(bid model.Bid) Event {
	return Event{
		ID:         utils.GenerateID(),
		Kind:       KindCancelled,
		Bid:        bid,
		Previous:   bid.Status,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher accepts events for delivery
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Handler consumes events. Handlers own their failures; nothing is returned to the publisher.
type Handler interface {
	Handle(ctx context.Context, ev Event)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, ev Event)

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, ev Event) { f(ctx, ev) }
