package bidding

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deals-portal/internal/access"
	"deals-portal/internal/biddingerrors"
	"deals-portal/internal/events"
	"deals-portal/internal/models"
	"deals-portal/internal/repository"
	"deals-portal/utils"

	"github.com/shopspring/decimal"
)

// Policy holds the optional submission rules
type Policy struct {
	// EnforceCloseDate rejects bids on lots whose close date has passed
	EnforceCloseDate bool
}

// BiddingService owns the bid lifecycle: pending -> approved | rejected,
// or pending -> removed. Every transition is announced through the publisher
// after it has been stored.
type BiddingService struct {
	lots      repository.LotStore
	bids      repository.BidStore
	publisher events.Publisher
	policy    Policy
	now       func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(lots repository.LotStore, bids repository.BidStore, publisher events.Publisher, policy Policy) *BiddingService {
	return &BiddingService{
		lots:      lots,
		bids:      bids,
		publisher: publisher,
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceBid loads the lot, validates the offer and creates a pending bid
func (s *BiddingService) PlaceBid(ctx context.Context, owner access.Identity, lotID string, quantity int, unitPrice decimal.Decimal) (models.Bid, error) {
	if err := access.RequireAuthenticated(owner); err != nil {
		return models.Bid{}, fmt.Errorf("service: place bid: %w", err)
	}

	lot, err := s.lots.GetLot(ctx, lotID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: place bid on lot %s: %w", lotID, err)
	}
	if s.policy.EnforceCloseDate && !lot.BiddingOpen(s.now()) {
		return models.Bid{}, fmt.Errorf("service: place bid on lot %s: %w (closed %s)",
			lotID, biddingerrors.ErrBiddingClosed, lot.CloseBidDate.Format("2006-01-02"))
	}

	terms, err := Validate(lot, quantity, unitPrice)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: place bid on lot %s: %w", lotID, err)
	}
	return s.Create(ctx, owner, lot, terms)
}

// Create stores a pending bid from validated terms, snapshotting the lot
func (s *BiddingService) Create(ctx context.Context, owner access.Identity, lot models.Lot, terms models.BidTerms) (models.Bid, error) {
	if err := access.RequireAuthenticated(owner); err != nil {
		return models.Bid{}, fmt.Errorf("service: create bid: %w", err)
	}

	bid := models.Bid{
		ID:              utils.GenerateID(),
		UserID:          owner.UserID,
		UserEmail:       owner.Email,
		ProductID:       lot.ID,
		ProductName:     lot.Description,
		BidPrice:        terms.UnitPrice,
		Quantity:        terms.Quantity,
		DiscountPercent: terms.DiscountPercent,
		TotalValue:      terms.TotalValue,
		RegularPrice:    lot.RegularPrice,
		ImageURL:        lot.ImageURL,
		Status:          models.StatusPending,
		CreatedAt:       s.now(),
	}

	if err := s.bids.CreateBid(ctx, bid); err != nil {
		return models.Bid{}, fmt.Errorf("service: failed to record bid for lot %s by user %s: %w", lot.ID, owner.UserID, err)
	}

	utils.Info("bid created", map[string]any{
		"bid_id":  bid.ID,
		"lot_id":  lot.ID,
		"user_id": owner.UserID,
		"total":   bid.TotalValue.StringFixed(2),
	})
	return bid, nil
}

// Decide approves or rejects a pending bid. Only admins may decide.
func (s *BiddingService) Decide(ctx context.Context, actor access.Identity, bidID string, next models.BidStatus) (models.Bid, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return models.Bid{}, fmt.Errorf("service: decide bid %s: %w", bidID, err)
	}
	if !next.IsTerminal() {
		return models.Bid{}, fmt.Errorf("service: decide bid %s: target status %q: %w", bidID, next, biddingerrors.ErrInvalidTransition)
	}

	current, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: decide bid %s: %w", bidID, err)
	}
	if current.Status != models.StatusPending {
		return models.Bid{}, fmt.Errorf("service: decide bid %s: %s -> %s: %w", bidID, current.Status, next, biddingerrors.ErrInvalidTransition)
	}

	updated, err := s.bids.UpdateBidStatus(ctx, bidID, models.StatusPending, next)
	if errors.Is(err, biddingerrors.ErrStatusConflict) {
		return models.Bid{}, fmt.Errorf("service: decide bid %s: %w: %w", bidID, biddingerrors.ErrInvalidTransition, err)
	}
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: decide bid %s: %w", bidID, err)
	}

	utils.Info("bid decided", map[string]any{"bid_id": bidID, "status": string(next), "admin_id": actor.UserID})
	s.publish(ctx, events.StatusChanged(updated, models.StatusPending, next))
	return updated, nil
}

// Cancel removes the caller's own pending bid
func (s *BiddingService) Cancel(ctx context.Context, actor access.Identity, bidID string) error {
	if err := access.RequireAuthenticated(actor); err != nil {
		return fmt.Errorf("service: cancel bid %s: %w", bidID, err)
	}

	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return fmt.Errorf("service: cancel bid %s: %w", bidID, err)
	}
	if err := access.RequireOwner(actor, bid.UserID); err != nil {
		return fmt.Errorf("service: cancel bid %s: %w", bidID, err)
	}
	return s.removePending(ctx, bid, "cancelled", actor.UserID)
}

// Remove is the administrative deletion of a pending bid
func (s *BiddingService) Remove(ctx context.Context, actor access.Identity, bidID string) error {
	if err := access.RequireAdmin(actor); err != nil {
		return fmt.Errorf("service: remove bid %s: %w", bidID, err)
	}

	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return fmt.Errorf("service: remove bid %s: %w", bidID, err)
	}
	return s.removePending(ctx, bid, "removed", actor.UserID)
}

func (s *BiddingService) removePending(ctx context.Context, bid models.Bid, action, actorID string) error {
	if bid.Status != models.StatusPending {
		return fmt.Errorf("service: %s bid %s: status %s: %w", action, bid.ID, bid.Status, biddingerrors.ErrInvalidTransition)
	}

	snapshot, err := s.bids.DeleteBidIfStatus(ctx, bid.ID, models.StatusPending)
	if errors.Is(err, biddingerrors.ErrStatusConflict) {
		return fmt.Errorf("service: %s bid %s: %w: %w", action, bid.ID, biddingerrors.ErrInvalidTransition, err)
	}
	if err != nil {
		return fmt.Errorf("service: %s bid %s: %w", action, bid.ID, err)
	}

	utils.Info("bid "+action, map[string]any{"bid_id": bid.ID, "actor_id": actorID})
	s.publish(ctx, events.Cancelled(snapshot))
	return nil
}

// GetBid returns a bid visible to the caller
func (s *BiddingService) GetBid(ctx context.Context, actor access.Identity, bidID string) (models.Bid, error) {
	if err := access.RequireAuthenticated(actor); err != nil {
		return models.Bid{}, fmt.Errorf("service: get bid %s: %w", bidID, err)
	}
	bid, err := s.bids.GetBid(ctx, bidID)
	if err != nil {
		return models.Bid{}, fmt.Errorf("service: get bid %s: %w", bidID, err)
	}
	if err := access.RequireOwnerOrAdmin(actor, bid.UserID); err != nil {
		return models.Bid{}, fmt.Errorf("service: get bid %s: %w", bidID, err)
	}
	return bid, nil
}

// ListMyBids returns the caller's bids, newest first
func (s *BiddingService) ListMyBids(ctx context.Context, actor access.Identity) ([]models.Bid, error) {
	if err := access.RequireAuthenticated(actor); err != nil {
		return nil, fmt.Errorf("service: list my bids: %w", err)
	}
	bids, err := s.bids.ListBids(ctx, models.BidFilter{UserID: actor.UserID})
	if err != nil {
		return nil, fmt.Errorf("service: list bids for user %s: %w", actor.UserID, err)
	}
	return bids, nil
}

// ListBids returns all bids, optionally filtered by status. Admin only.
func (s *BiddingService) ListBids(ctx context.Context, actor access.Identity, status models.BidStatus) ([]models.Bid, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return nil, fmt.Errorf("service: list bids: %w", err)
	}
	if status != "" && !status.Valid() {
		return nil, fmt.Errorf("service: list bids: status %q: %w", status, biddingerrors.ErrInvalidStatus)
	}
	bids, err := s.bids.ListBids(ctx, models.BidFilter{Status: status})
	if err != nil {
		return nil, fmt.Errorf("service: list bids: %w", err)
	}
	return bids, nil
}

// publish hands ev to the publisher. The transition is already stored, so a
// failure here is logged and does not undo it.
func (s *BiddingService) publish(ctx context.Context, ev events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		utils.Error("failed to publish bid event", map[string]any{
			"event_id": ev.ID,
			"kind":     string(ev.Kind),
			"bid_id":   ev.Bid.ID,
			"error":    err.Error(),
		})
	}
}
