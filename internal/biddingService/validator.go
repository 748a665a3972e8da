package bidding

import (
	"fmt"

	"deals-portal/internal/biddingerrors"
	"deals-portal/internal/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// DiscountPercent returns (regular - unit) / regular * 100.
// A non-positive regular price has no meaningful discount and fails with ErrInvalidLotPricing.
func DiscountPercent(regular, unit decimal.Decimal) (decimal.Decimal, error) {
	if !regular.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: regular price %s", biddingerrors.ErrInvalidLotPricing, regular)
	}
	return regular.Sub(unit).Div(regular).Mul(hundred), nil
}

// Validate decides whether a bid of quantity units at unitPrice is admissible
// against the lot snapshot. It never mutates state.
func Validate(lot models.Lot, quantity int, unitPrice decimal.Decimal) (models.BidTerms, error) {
	if quantity <= 0 {
		return models.BidTerms{}, fmt.Errorf("validate: %w (got %d)", biddingerrors.ErrInvalidQuantity, quantity)
	}
	if !unitPrice.IsPositive() {
		return models.BidTerms{}, fmt.Errorf("validate: %w (got %s)", biddingerrors.ErrInvalidPrice, unitPrice)
	}
	if quantity > lot.QuantityAvailable {
		return models.BidTerms{}, fmt.Errorf("validate: %w (requested %d, available %d)",
			biddingerrors.ErrInsufficientInventory, quantity, lot.QuantityAvailable)
	}

	discount, err := DiscountPercent(lot.RegularPrice, unitPrice)
	if err != nil {
		return models.BidTerms{}, fmt.Errorf("validate: %w", err)
	}
	if discount.GreaterThan(lot.MaxDiscountPercent) {
		return models.BidTerms{}, fmt.Errorf("validate: %w of %s%% (bid discount %s%%)",
			biddingerrors.ErrDiscountExceedsMaximum, lot.MaxDiscountPercent, discount.StringFixed(1))
	}

	return models.BidTerms{
		Quantity:        quantity,
		UnitPrice:       unitPrice,
		DiscountPercent: discount,
		TotalValue:      unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}
