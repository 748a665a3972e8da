package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidStatus is the lifecycle state of a bid
type BidStatus string

const (
	StatusPending  BidStatus = "pending"
	StatusApproved BidStatus = "approved"
	StatusRejected BidStatus = "rejected"
)

// Valid reports whether s is a known bid status
func (s BidStatus) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no administrative transition leaves s
func (s BidStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// UserProfile is the stored profile of a portal user
type UserProfile struct {
	UID     string `json:"uid" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	IsAdmin bool   `json:"is_admin"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Phone   string `json:"phone"`
}

// Lot represents a discounted product lot open for bidding
type Lot struct {
	ID                 string          `json:"id" validate:"required"`
	Category           string          `json:"category" validate:"required"`
	Brand              string          `json:"brand"`
	UPC                string          `json:"upc"`
	Description        string          `json:"description" validate:"required"`
	LotNumber          string          `json:"lot_number"`
	RegularPrice       decimal.Decimal `json:"regular_price" validate:"gt=0"`
	CaseQuantity       int             `json:"case_quantity" validate:"gt=0"`
	QuantityAvailable  int             `json:"quantity_available" validate:"gte=0"`
	MaxDiscountPercent decimal.Decimal `json:"max_discount_percent" validate:"gte=0,lte=100"`
	ExpiryDate         time.Time       `json:"expiry_date"`
	CloseBidDate       time.Time       `json:"close_bid_date"`
	ImageURL           string          `json:"image_url,omitempty"`
}

// BiddingOpen reports whether bids may still be submitted at now.
// The close date is inclusive to the end of its UTC day; a zero date never closes.
func (l Lot) BiddingOpen(now time.Time) bool {
	if l.CloseBidDate.IsZero() {
		return true
	}
	y, m, d := l.CloseBidDate.UTC().Date()
	closesAt := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
	return now.UTC().Before(closesAt)
}

// BidTerms are the admissible terms of a bid, as computed by validation
type BidTerms struct {
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TotalValue      decimal.Decimal `json:"total_value"`
}

// Bid represents a buyer's offer against a lot.
// Product fields are a snapshot of the lot at submission time.
type Bid struct {
	ID              string          `json:"id" validate:"required"`
	UserID          string          `json:"user_id" validate:"required"`
	UserEmail       string          `json:"user_email" validate:"required,email"`
	ProductID       string          `json:"product_id" validate:"required"`
	ProductName     string          `json:"product_name"`
	BidPrice        decimal.Decimal `json:"bid_price" validate:"gt=0"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	TotalValue      decimal.Decimal `json:"total_value" validate:"gt=0"`
	RegularPrice    decimal.Decimal `json:"regular_price" validate:"gt=0"`
	ImageURL        string          `json:"image_url,omitempty"`
	Status          BidStatus       `json:"status" validate:"required,oneof=pending approved rejected"`
	CreatedAt       time.Time       `json:"created_at" validate:"required"`
}

// BidFilter narrows bid listings. Empty fields match everything.
type BidFilter struct {
	UserID string
	Status BidStatus
}

// Matches reports whether b satisfies the filter
func (f BidFilter) Matches(b Bid) bool {
	if f.UserID != "" && b.UserID != f.UserID {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	return true
}
