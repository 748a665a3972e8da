package access

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"deals-portal/internal/biddingerrors"
	model "deals-portal/internal/models"
	"deals-portal/internal/repository"
	"deals-portal/utils"
)

// Directory resolves bearer tokens into identities and manages user profiles
type Directory struct {
	users  repository.UserStore
	secret []byte
}

// NewDirectory creates a Directory over the users store
func NewDirectory(users repository.UserStore, secret []byte) *Directory {
	return &Directory{users: users, secret: secret}
}

// Authenticate turns a bearer token into an Identity.
// A first-time user gets a non-admin profile from the token's email claim.
func (d *Directory) Authenticate(ctx context.Context, bearer string) (Identity, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(bearer, "Bearer "))
	if raw == "" {
		return Anonymous, fmt.Errorf("authenticate: missing token: %w", biddingerrors.ErrUnauthenticated)
	}

	claims, err := ParseToken(d.secret, raw)
	if err != nil {
		return Anonymous, fmt.Errorf("authenticate: %w", err)
	}

	profile, err := d.users.GetUser(ctx, claims.Subject)
	if errors.Is(err, biddingerrors.ErrUserNotFound) {
		profile = model.UserProfile{UID: claims.Subject, Email: claims.Email}
		if err := d.users.UpsertUser(ctx, profile); err != nil {
			return Anonymous, fmt.Errorf("authenticate: provision %s: %v: %w", claims.Subject, err, biddingerrors.ErrUnauthenticated)
		}
		utils.Info("provisioned user profile", map[string]any{"user_id": profile.UID})
	} else if err != nil {
		return Anonymous, fmt.Errorf("authenticate: %w", err)
	}

	return Identity{UserID: profile.UID, Email: profile.Email, IsAdmin: profile.IsAdmin}, nil
}

// GetProfile returns the caller's own profile
func (d *Directory) GetProfile(ctx context.Context, actor Identity) (model.UserProfile, error) {
	if err := RequireAuthenticated(actor); err != nil {
		return model.UserProfile{}, err
	}
	profile, err := d.users.GetUser(ctx, actor.UserID)
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("directory: get profile: %w", err)
	}
	return profile, nil
}

// UpdateProfile changes the caller's contact details. Email and admin flag are not editable here.
func (d *Directory) UpdateProfile(ctx context.Context, actor Identity, name, company, phone string) (model.UserProfile, error) {
	profile, err := d.GetProfile(ctx, actor)
	if err != nil {
		return model.UserProfile{}, err
	}
	profile.Name = strings.TrimSpace(name)
	profile.Company = strings.TrimSpace(company)
	profile.Phone = strings.TrimSpace(phone)

	if err := d.users.UpsertUser(ctx, profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("directory: update profile: %w", err)
	}
	return profile, nil
}

// BootstrapAdmin creates the first admin account. It fails with ErrAdminExists afterwards.
func (d *Directory) BootstrapAdmin(ctx context.Context, uid, email string) (model.UserProfile, error) {
	profile := model.UserProfile{UID: strings.TrimSpace(uid), Email: strings.TrimSpace(email), IsAdmin: true}
	if err := d.users.CreateAdminIfNone(ctx, profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("directory: bootstrap admin: %w", err)
	}
	utils.Info("initial admin created", map[string]any{"user_id": profile.UID})
	return profile, nil
}
