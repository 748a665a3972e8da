package helpers

import (
	"fmt"
	"strings"
	"time"

	"deals-portal/internal/biddingerrors"
	model "deals-portal/internal/models"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar date format used by lot dates on the wire
const DateLayout = "2006-01-02"

// Request/Response DTOs
type PlaceBidRequest struct {
	LotID    string          `json:"lot_id" binding:"required"`
	Quantity int             `json:"quantity"`
	BidPrice decimal.Decimal `json:"bid_price"`
}

type DecisionRequest struct {
	Status string `json:"status" binding:"required,oneof=approved rejected"`
}

type ProfileRequest struct {
	Name    string `json:"name" binding:"required"`
	Company string `json:"company" binding:"required"`
	Phone   string `json:"phone" binding:"required"`
}

type SetupAdminRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Email  string `json:"email" binding:"required,email"`
}

// LotRequest is one row of a catalog import
type LotRequest struct {
	ID                string          `json:"id"`
	Category          string          `json:"category"`
	Brand             string          `json:"brand"`
	UPC               string          `json:"upc"`
	Description       string          `json:"description"`
	LotNumber         string          `json:"lot_number"`
	RegularPrice      decimal.Decimal `json:"regular_price"`
	CaseQuantity      int             `json:"case_quantity"`
	QuantityAvailable int             `json:"quantity_available"`
	MaxDiscount       decimal.Decimal `json:"max_discount"`
	ExpiryDate        string          `json:"expiry_date"`
	CloseBidDate      string          `json:"close_bid_date"`
}

type ReplaceLotsRequest struct {
	Lots []LotRequest `json:"lots" binding:"required"`
}

// ToLot converts an import row into a Lot
func (r LotRequest) ToLot() (model.Lot, error) {
	expiry, err := parseDate(r.ExpiryDate)
	if err != nil {
		return model.Lot{}, fmt.Errorf("expiry_date: %w", err)
	}
	closes, err := parseDate(r.CloseBidDate)
	if err != nil {
		return model.Lot{}, fmt.Errorf("close_bid_date: %w", err)
	}
	return model.Lot{
		ID:                 strings.TrimSpace(r.ID),
		Category:           strings.TrimSpace(r.Category),
		Brand:              strings.TrimSpace(r.Brand),
		UPC:                strings.TrimSpace(r.UPC),
		Description:        strings.TrimSpace(r.Description),
		LotNumber:          strings.TrimSpace(r.LotNumber),
		RegularPrice:       r.RegularPrice,
		CaseQuantity:       r.CaseQuantity,
		QuantityAvailable:  r.QuantityAvailable,
		MaxDiscountPercent: r.MaxDiscount,
		ExpiryDate:         expiry,
		CloseBidDate:       closes,
	}, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q is not a %s date", biddingerrors.ErrMalformedRecord, s, DateLayout)
	}
	return t, nil
}

type BidResponse struct {
	BidID           string `json:"bid_id"`
	LotID           string `json:"lot_id"`
	UserID          string `json:"user_id"`
	UserEmail       string `json:"user_email"`
	ProductName     string `json:"product_name"`
	Quantity        int    `json:"quantity"`
	BidPrice        string `json:"bid_price"`
	RegularPrice    string `json:"regular_price"`
	DiscountPercent string `json:"discount_percent"`
	TotalValue      string `json:"total_value"`
	ImageURL        string `json:"image_url,omitempty"`
	Status          string `json:"status"`
	CreatedAt       string `json:"created_at"`
}

// NewBidResponse renders money with two decimals and the discount with one
func NewBidResponse(bid model.Bid) BidResponse {
	return BidResponse{
		BidID:           bid.ID,
		LotID:           bid.ProductID,
		UserID:          bid.UserID,
		UserEmail:       bid.UserEmail,
		ProductName:     bid.ProductName,
		Quantity:        bid.Quantity,
		BidPrice:        bid.BidPrice.StringFixed(2),
		RegularPrice:    bid.RegularPrice.StringFixed(2),
		DiscountPercent: bid.DiscountPercent.StringFixed(1),
		TotalValue:      bid.TotalValue.StringFixed(2),
		ImageURL:        bid.ImageURL,
		Status:          string(bid.Status),
		CreatedAt:       bid.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewBidResponses maps a slice of bids, never returning nil
func NewBidResponses(bids []model.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}

type LotResponse struct {
	LotID             string `json:"lot_id"`
	Category          string `json:"category"`
	Brand             string `json:"brand"`
	UPC               string `json:"upc"`
	Description       string `json:"description"`
	LotNumber         string `json:"lot_number"`
	RegularPrice      string `json:"regular_price"`
	CaseQuantity      int    `json:"case_quantity"`
	QuantityAvailable int    `json:"quantity_available"`
	MaxDiscount       string `json:"max_discount"`
	ExpiryDate        string `json:"expiry_date,omitempty"`
	CloseBidDate      string `json:"close_bid_date,omitempty"`
	ImageURL          string `json:"image_url,omitempty"`
}

// NewLotResponse renders a lot for the catalog endpoints
func NewLotResponse(lot model.Lot) LotResponse {
	return LotResponse{
		LotID:             lot.ID,
		Category:          lot.Category,
		Brand:             lot.Brand,
		UPC:               lot.UPC,
		Description:       lot.Description,
		LotNumber:         lot.LotNumber,
		RegularPrice:      lot.RegularPrice.StringFixed(2),
		CaseQuantity:      lot.CaseQuantity,
		QuantityAvailable: lot.QuantityAvailable,
		MaxDiscount:       lot.MaxDiscountPercent.String(),
		ExpiryDate:        formatDate(lot.ExpiryDate),
		CloseBidDate:      formatDate(lot.CloseBidDate),
		ImageURL:          lot.ImageURL,
	}
}

// NewLotResponses maps a slice of lots, never returning nil
func NewLotResponses(lots []model.Lot) []LotResponse {
	out := make([]LotResponse, 0, len(lots))
	for _, l := range lots {
		out = append(out, NewLotResponse(l))
	}
	return out
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(DateLayout)
}
