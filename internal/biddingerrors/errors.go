package biddingerrors

import "errors"

// Validation errors: surfaced to the submitting buyer, never retried
var (
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrInvalidPrice           = errors.New("bid price must be greater than zero")
	ErrInsufficientInventory  = errors.New("bid quantity exceeds available quantity")
	ErrDiscountExceedsMaximum = errors.New("bid exceeds maximum available discount")
	ErrInvalidLotPricing      = errors.New("lot has no valid regular price")
	ErrBiddingClosed          = errors.New("bidding on this lot has closed")
)

// Authorization errors
var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("operation not permitted")
)

// Transition errors
var (
	ErrInvalidTransition = errors.New("invalid bid status transition")
	ErrInvalidStatus     = errors.New("unknown bid status")
)

// Repository-level errors
var (
	ErrLotNotFound     = errors.New("lot not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrUserNotFound    = errors.New("user not found")
	ErrStatusConflict  = errors.New("bid status changed concurrently")
	ErrMalformedRecord = errors.New("malformed record")
	ErrAdminExists     = errors.New("an admin account already exists")
)

// Delivery errors are logged by the notification dispatcher and never returned to callers
var (
	ErrDelivery = errors.New("notification delivery failed")
)

var validationErrs = []error{
	ErrInvalidQuantity,
	ErrInvalidPrice,
	ErrInsufficientInventory,
	ErrDiscountExceedsMaximum,
	ErrInvalidLotPricing,
	ErrBiddingClosed,
	ErrMalformedRecord,
}

// IsValidation reports whether err is a bid admissibility failure
func IsValidation(err error) bool {
	for _, target := range validationErrs {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// IsAuthorization reports whether err denies the acting identity
func IsAuthorization(err error) bool {
	return errors.Is(err, ErrUnauthenticated) || errors.Is(err, ErrForbidden)
}

// IsTransition reports whether err rejects a lifecycle transition
func IsTransition(err error) bool {
	return errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrStatusConflict)
}
