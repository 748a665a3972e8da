package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"deals-portal/internal/biddingerrors"
	model "deals-portal/internal/models"
)

// LotStore holds the product catalog ("products" collection)
type LotStore interface {
	ReplaceLots(ctx context.Context, lots []model.Lot) error
	GetLot(ctx context.Context, lotID string) (model.Lot, error)
	ListLots(ctx context.Context) ([]model.Lot, error)
	SetLotImage(ctx context.Context, lotID, imageURL string) (model.Lot, error)
}

// BidStore holds bid records ("bids" collection).
// UpdateBidStatus and DeleteBidIfStatus only succeed while the stored status
// still equals expected; otherwise they return ErrStatusConflict.
type BidStore interface {
	CreateBid(ctx context.Context, bid model.Bid) error
	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	ListBids(ctx context.Context, filter model.BidFilter) ([]model.Bid, error)
	UpdateBidStatus(ctx context.Context, bidID string, expected, next model.BidStatus) (model.Bid, error)
	DeleteBidIfStatus(ctx context.Context, bidID string, expected model.BidStatus) (model.Bid, error)
}

// UserStore holds user profiles ("users" collection)
type UserStore interface {
	GetUser(ctx context.Context, uid string) (model.UserProfile, error)
	UpsertUser(ctx context.Context, profile model.UserProfile) error
	CreateAdminIfNone(ctx context.Context, profile model.UserProfile) error
}

// DealsDB is the full persistence surface of the portal
type DealsDB interface {
	LotStore
	BidStore
	UserStore
}

// MemoryRepo is a concurrency-safe in-memory implementation of DealsDB
type MemoryRepo struct {
	mu    sync.RWMutex
	lots  map[string]model.Lot         // key: lotID
	bids  map[string]model.Bid         // key: bidID
	users map[string]model.UserProfile // key: uid
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		lots:  make(map[string]model.Lot),
		bids:  make(map[string]model.Bid),
		users: make(map[string]model.UserProfile),
	}
}

// ReplaceLots deletes the whole catalog and stores lots in its place
func (r *MemoryRepo) ReplaceLots(_ context.Context, lots []model.Lot) error {
	next := make(map[string]model.Lot, len(lots))
	for _, lot := range lots {
		if err := model.ValidateRecord(lot); err != nil {
			return fmt.Errorf("replace lots: %w", err)
		}
		next[lot.ID] = lot
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.lots = next
	return nil
}

// GetLot returns a single lot
func (r *MemoryRepo) GetLot(_ context.Context, lotID string) (model.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lot, ok := r.lots[lotID]
	if !ok {
		return model.Lot{}, fmt.Errorf("get lot %s: %w", lotID, biddingerrors.ErrLotNotFound)
	}
	return lot, nil
}

// ListLots returns all lots ordered by category, then description
func (r *MemoryRepo) ListLots(_ context.Context) ([]model.Lot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lots := make([]model.Lot, 0, len(r.lots))
	for _, lot := range r.lots {
		lots = append(lots, lot)
	}
	SortLots(lots)
	return lots, nil
}

// SetLotImage records the image URL of a lot
func (r *MemoryRepo) SetLotImage(_ context.Context, lotID, imageURL string) (model.Lot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	lot, ok := r.lots[lotID]
	if !ok {
		return model.Lot{}, fmt.Errorf("set image for lot %s: %w", lotID, biddingerrors.ErrLotNotFound)
	}
	lot.ImageURL = imageURL
	r.lots[lotID] = lot
	return lot, nil
}

// CreateBid stores a new bid against an existing lot
func (r *MemoryRepo) CreateBid(_ context.Context, bid model.Bid) error {
	if err := model.ValidateRecord(bid); err != nil {
		return fmt.Errorf("create bid: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.lots[bid.ProductID]; !ok {
		return fmt.Errorf("create bid for lot %s: %w", bid.ProductID, biddingerrors.ErrLotNotFound)
	}
	r.bids[bid.ID] = bid
	return nil
}

// GetBid returns a single bid
func (r *MemoryRepo) GetBid(_ context.Context, bidID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	return bid, nil
}

// ListBids returns matching bids, newest first
func (r *MemoryRepo) ListBids(_ context.Context, filter model.BidFilter) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := make([]model.Bid, 0)
	for _, bid := range r.bids {
		if filter.Matches(bid) {
			bids = append(bids, bid)
		}
	}
	SortBids(bids)
	return bids, nil
}

// UpdateBidStatus moves a bid from expected to next under the write lock
func (r *MemoryRepo) UpdateBidStatus(_ context.Context, bidID string, expected, next model.BidStatus) (model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("update bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	if bid.Status != expected {
		return model.Bid{}, fmt.Errorf("update bid %s from %s: status is %s: %w",
			bidID, expected, bid.Status, biddingerrors.ErrStatusConflict)
	}
	bid.Status = next
	r.bids[bidID] = bid
	return bid, nil
}

// DeleteBidIfStatus removes a bid whose status is still expected and returns its final snapshot
func (r *MemoryRepo) DeleteBidIfStatus(_ context.Context, bidID string, expected model.BidStatus) (model.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("delete bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	if bid.Status != expected {
		return model.Bid{}, fmt.Errorf("delete bid %s: status is %s: %w", bidID, bid.Status, biddingerrors.ErrStatusConflict)
	}
	delete(r.bids, bidID)
	return bid, nil
}

// GetUser returns a user profile
func (r *MemoryRepo) GetUser(_ context.Context, uid string) (model.UserProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[uid]
	if !ok {
		return model.UserProfile{}, fmt.Errorf("get user %s: %w", uid, biddingerrors.ErrUserNotFound)
	}
	return user, nil
}

// UpsertUser creates or replaces a user profile
func (r *MemoryRepo) UpsertUser(_ context.Context, profile model.UserProfile) error {
	if err := model.ValidateRecord(profile); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[profile.UID] = profile
	return nil
}

// CreateAdminIfNone stores profile as an admin unless an admin already exists
func (r *MemoryRepo) CreateAdminIfNone(_ context.Context, profile model.UserProfile) error {
	profile.IsAdmin = true
	if err := model.ValidateRecord(profile); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.IsAdmin {
			return fmt.Errorf("create admin %s: %w", profile.UID, biddingerrors.ErrAdminExists)
		}
	}
	r.users[profile.UID] = profile
	return nil
}

// SortLots orders lots by category, then description, then id
func SortLots(lots []model.Lot) {
	sort.Slice(lots, func(i, j int) bool {
		if lots[i].Category != lots[j].Category {
			return lots[i].Category < lots[j].Category
		}
		if lots[i].Description != lots[j].Description {
			return lots[i].Description < lots[j].Description
		}
		return lots[i].ID < lots[j].ID
	})
}

// SortBids orders bids newest first, ties broken by id
func SortBids(bids []model.Bid) {
	sort.Slice(bids, func(i, j int) bool {
		if !bids[i].CreatedAt.Equal(bids[j].CreatedAt) {
			return bids[i].CreatedAt.After(bids[j].CreatedAt)
		}
		return bids[i].ID < bids[j].ID
	})
}
