package models

import (
	"testing"
	"time"

	"deals-portal/internal/biddingerrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func validLot() Lot {
	return Lot{
		ID:                 "lot-1",
		Category:           "Snacks",
		Description:        "Chips",
		RegularPrice:       decimal.RequireFromString("9.99"),
		CaseQuantity:       24,
		QuantityAvailable:  0,
		MaxDiscountPercent: decimal.NewFromInt(100),
	}
}

func undatedBid() Bid {
	return Bid{
		ID:           "b",
		UserID:       "u",
		UserEmail:    "u@example.com",
		ProductID:    "p",
		BidPrice:     decimal.NewFromInt(1),
		Quantity:     1,
		TotalValue:   decimal.NewFromInt(1),
		RegularPrice: decimal.NewFromInt(2),
		Status:       StatusPending,
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name        string
		record      func() any
		expectError bool
		field       string
	}{
		{name: "valid_lot", record: func() any { return validLot() }},
		{
			name:        "lot_negative_price",
			record:      func() any { l := validLot(); l.RegularPrice = decimal.NewFromInt(-1); return l },
			expectError: true,
			field:       "RegularPrice(gt)",
		},
		{
			name:        "lot_discount_above_hundred",
			record:      func() any { l := validLot(); l.MaxDiscountPercent = decimal.RequireFromString("100.5"); return l },
			expectError: true,
			field:       "MaxDiscountPercent(lte)",
		},
		{
			name:        "lot_negative_inventory",
			record:      func() any { l := validLot(); l.QuantityAvailable = -1; return l },
			expectError: true,
			field:       "QuantityAvailable(gte)",
		},
		{
			name:        "lot_missing_category",
			record:      func() any { l := validLot(); l.Category = ""; return l },
			expectError: true,
			field:       "Category(required)",
		},
		{name: "valid_profile", record: func() any { return UserProfile{UID: "u1", Email: "u1@example.com"} }},
		{
			name:        "profile_bad_email",
			record:      func() any { return UserProfile{UID: "u1", Email: "u1"} },
			expectError: true,
			field:       "Email(email)",
		},
		{
			name:        "bid_missing_created_at",
			record:      func() any { return undatedBid() },
			expectError: true,
			field:       "CreatedAt(required)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record())
			if !tt.expectError {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, biddingerrors.ErrMalformedRecord)
			require.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestBidStatus(t *testing.T) {
	require.True(t, StatusPending.Valid())
	require.False(t, StatusPending.IsTerminal())
	require.True(t, StatusApproved.IsTerminal())
	require.True(t, StatusRejected.IsTerminal())
	require.False(t, BidStatus("removed").Valid())
	require.False(t, BidStatus("").IsTerminal())
}

func TestLot_BiddingOpen(t *testing.T) {
	lot := validLot()
	require.True(t, lot.BiddingOpen(time.Now()), "lots without a close date stay open")

	lot.CloseBidDate = time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	require.True(t, lot.BiddingOpen(time.Date(2026, 4, 30, 23, 59, 59, 0, time.UTC)))
	require.False(t, lot.BiddingOpen(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, lot.BiddingOpen(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
}

func TestBidFilter_Matches(t *testing.T) {
	bid := Bid{UserID: "u1", Status: StatusApproved}
	require.True(t, BidFilter{}.Matches(bid))
	require.True(t, BidFilter{UserID: "u1", Status: StatusApproved}.Matches(bid))
	require.False(t, BidFilter{UserID: "u2"}.Matches(bid))
	require.False(t, BidFilter{Status: StatusPending}.Matches(bid))
}
