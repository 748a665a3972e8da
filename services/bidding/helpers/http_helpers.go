package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"deals-portal/internal/access"
	"deals-portal/internal/biddingerrors"
	"deals-portal/utils"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the caller's access.Identity
const IdentityKey = "identity"

// IdentityFrom returns the identity set by the auth middleware, or Anonymous
func IdentityFrom(c *gin.Context) access.Identity {
	if v, ok := c.Get(IdentityKey); ok {
		if id, ok := v.(access.Identity); ok {
			return id
		}
	}
	return access.Anonymous
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// HandleServiceError maps err to a response and logs it at a level matching its class
func HandleServiceError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["status"] = status
	fields["error"] = err.Error()
	fields["error_class"] = ErrorClass(err)
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, biddingerrors.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, biddingerrors.ErrForbidden):
		return http.StatusForbidden, "operation not permitted"
	case errors.Is(err, biddingerrors.ErrLotNotFound):
		return http.StatusNotFound, "lot not found"
	case errors.Is(err, biddingerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, biddingerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, biddingerrors.ErrInvalidQuantity):
		return http.StatusBadRequest, "please enter a valid quantity"
	case errors.Is(err, biddingerrors.ErrInvalidPrice):
		return http.StatusBadRequest, "please enter a valid price"
	case errors.Is(err, biddingerrors.ErrInvalidLotPricing):
		return http.StatusUnprocessableEntity, "lot pricing is invalid"
	case errors.Is(err, biddingerrors.ErrInsufficientInventory):
		return http.StatusUnprocessableEntity, "bid quantity exceeds available quantity"
	case errors.Is(err, biddingerrors.ErrDiscountExceedsMaximum):
		return http.StatusUnprocessableEntity, "bid exceeds maximum available discount"
	case errors.Is(err, biddingerrors.ErrBiddingClosed):
		return http.StatusUnprocessableEntity, "bidding has closed for this lot"
	case errors.Is(err, biddingerrors.ErrInvalidStatus), errors.Is(err, biddingerrors.ErrMalformedRecord):
		return http.StatusBadRequest, "invalid request data"
	case errors.Is(err, biddingerrors.ErrInvalidTransition), errors.Is(err, biddingerrors.ErrStatusConflict):
		return http.StatusConflict, "bid is no longer pending"
	case errors.Is(err, biddingerrors.ErrAdminExists):
		return http.StatusConflict, "an admin account already exists"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// ErrorClass names the taxonomy bucket of err for logs
func ErrorClass(err error) string {
	switch {
	case biddingerrors.IsValidation(err):
		return "validation"
	case biddingerrors.IsAuthorization(err):
		return "authorization"
	case biddingerrors.IsTransition(err):
		return "transition"
	default:
		return "other"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
