package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"deals-portal/internal/access"
	"deals-portal/services/bidding/helpers"
	"deals-portal/utils"

	"github.com/gin-gonic/gin"
)

// Authenticator resolves an Authorization header value into an identity
type Authenticator interface {
	Authenticate(ctx context.Context, bearer string) (access.Identity, error)
}

// RequestLoggerMiddleware logs incoming requests with timing
func RequestLoggerMiddleware(c *gin.Context) {
	start := time.Now()

	c.Next() // process request

	fields := map[string]any{
		"method":  c.Request.Method,
		"path":    c.Request.URL.Path,
		"status":  c.Writer.Status(),
		"latency": time.Since(start).String(),
	}
	if id := helpers.IdentityFrom(c); id.Authenticated() {
		fields["user_id"] = id.UserID
	}
	utils.Info("HTTP Request", fields)
}

// AuthMiddleware rejects requests without a valid bearer token and stores the
// caller's identity under helpers.IdentityKey. Failures other than bad
// credentials, such as a store outage, answer 500.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := auth.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			status, message := helpers.MapErrorToHTTP(err)
			utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)
			fields := map[string]any{
				"path":   c.Request.URL.Path,
				"status": status,
				"error":  err.Error(),
			}
			if status >= http.StatusInternalServerError {
				utils.Error("AuthMiddleware: identity lookup failed", fields)
			} else {
				utils.Warn("AuthMiddleware: request rejected", fields)
			}
			return
		}
		c.Set(helpers.IdentityKey, identity)
		c.Next()
	}
}

// AdminOnly stops non-admin callers before the handler runs. Services check
// the capability again.
func AdminOnly(c *gin.Context) {
	if err := access.RequireAdmin(helpers.IdentityFrom(c)); err != nil {
		status, message := helpers.MapErrorToHTTP(err)
		utils.JSONError(c, status, err, message)
		return
	}
	c.Next()
}
