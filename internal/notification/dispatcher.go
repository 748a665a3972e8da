package notification

import (
	"context"
	"fmt"
	"time"

	"deals-portal/internal/biddingerrors"
	"deals-portal/internal/events"
	model "deals-portal/internal/models"
	"deals-portal/utils"
)

// Config holds the fixed envelope and branding of outgoing emails
type Config struct {
	From    Address
	Brand   string
	Portal  string
	Timeout time.Duration
}

// Dispatcher turns lifecycle events into bid status emails.
// Each event gets at most one delivery attempt; failures are logged and dropped.
type Dispatcher struct {
	sender EmailSender
	cfg    Config
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher delivering through sender
func NewDispatcher(sender EmailSender, cfg Config) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Dispatcher{sender: sender, cfg: cfg, now: time.Now}
}

// Handle routes a lifecycle event to its notification
func (d *Dispatcher) Handle(ctx context.Context, ev events.Event) {
	switch ev.Kind {
	case events.KindStatusChanged:
		d.OnStatusChanged(ctx, ev.Bid, ev.Previous, ev.Next)
	case events.KindCancelled:
		d.OnCancelled(ctx, ev.Bid)
	default:
		utils.Warn("dispatcher: ignoring unknown event kind", map[string]any{"event_id": ev.ID, "kind": string(ev.Kind)})
	}
}

// OnStatusChanged emails the bidder about an approval or rejection.
// Nothing is sent when the status did not change or the new status has no email.
func (d *Dispatcher) OnStatusChanged(ctx context.Context, bid model.Bid, previous, next model.BidStatus) {
	if previous == next {
		return
	}

	var v Variant
	switch next {
	case model.StatusApproved:
		v = VariantApproved
	case model.StatusRejected:
		v = VariantRejected
	default:
		return
	}
	d.deliver(ctx, v, bid)
}

// OnCancelled emails the bidder that their bid was removed
func (d *Dispatcher) OnCancelled(ctx context.Context, bid model.Bid) {
	d.deliver(ctx, VariantCancelled, bid)
}

// Compose renders the email for variant v about bid
func (d *Dispatcher) Compose(v Variant, bid model.Bid) (Message, error) {
	c, ok := copyFor(v, d.cfg.Brand, d.cfg.Portal)
	if !ok {
		return Message{}, fmt.Errorf("compose: unknown variant %q", v)
	}
	html, err := renderBidEmail(c, bid, d.cfg.Brand, d.now().Year())
	if err != nil {
		return Message{}, fmt.Errorf("compose %s: %w", v, err)
	}
	return Message{
		From:    d.cfg.From,
		To:      bid.UserEmail,
		Subject: c.subject,
		HTML:    html,
	}, nil
}

func (d *Dispatcher) deliver(ctx context.Context, v Variant, bid model.Bid) {
	fields := map[string]any{
		"bid_id":  bid.ID,
		"variant": string(v),
		"to":      bid.UserEmail,
	}

	if err := d.send(ctx, v, bid); err != nil {
		fields["error"] = err.Error()
		utils.Error("dispatcher: bid email not delivered", fields)
		return
	}
	utils.Info("dispatcher: bid email delivered", fields)
}

func (d *Dispatcher) send(ctx context.Context, v Variant, bid model.Bid) error {
	if bid.UserEmail == "" {
		return fmt.Errorf("%w: bid %s has no recipient", biddingerrors.ErrDelivery, bid.ID)
	}
	msg, err := d.Compose(v, bid)
	if err != nil {
		return fmt.Errorf("%w: %v", biddingerrors.ErrDelivery, err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	if _, err := d.sender.SendEmail(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", biddingerrors.ErrDelivery, err)
	}
	return nil
}
