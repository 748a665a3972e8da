package access

import (
	"fmt"

	"deals-portal/internal/biddingerrors"
)

// Identity is the acting user of a single request.
// It is passed explicitly into every guarded operation.
type Identity struct {
	UserID  string
	Email   string
	IsAdmin bool
}

// Anonymous is the identity of an unauthenticated caller
var Anonymous = Identity{}

// Authenticated reports whether the identity carries a user id
func (id Identity) Authenticated() bool {
	return id.UserID != ""
}

// RequireAuthenticated fails with ErrUnauthenticated for anonymous callers
func RequireAuthenticated(id Identity) error {
	if !id.Authenticated() {
		return biddingerrors.ErrUnauthenticated
	}
	return nil
}

// RequireAdmin fails unless the identity holds the admin capability
func RequireAdmin(id Identity) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if !id.IsAdmin {
		return fmt.Errorf("user %s is not an admin: %w", id.UserID, biddingerrors.ErrForbidden)
	}
	return nil
}

// RequireOwner fails unless the identity owns the resource
func RequireOwner(id Identity, ownerID string) error {
	if err := RequireAuthenticated(id); err != nil {
		return err
	}
	if id.UserID != ownerID {
		return fmt.Errorf("user %s does not own this resource: %w", id.UserID, biddingerrors.ErrForbidden)
	}
	return nil
}

// RequireOwnerOrAdmin lets admins read any resource and owners their own
func RequireOwnerOrAdmin(id Identity, ownerID string) error {
	if id.Authenticated() && id.IsAdmin {
		return nil
	}
	return RequireOwner(id, ownerID)
}
