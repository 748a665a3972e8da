package handler

import (
	"context"
	"net/http"

	"deals-portal/internal/access"
	model "deals-portal/internal/models"
	"deals-portal/services/bidding/helpers"
	"deals-portal/utils"

	"github.com/gin-gonic/gin"
)

type DirectoryInterface interface {
	GetProfile(ctx context.Context, actor access.Identity) (model.UserProfile, error)
	UpdateProfile(ctx context.Context, actor access.Identity, name, company, phone string) (model.UserProfile, error)
	BootstrapAdmin(ctx context.Context, uid, email string) (model.UserProfile, error)
}

type ProfileHandler struct {
	directory DirectoryInterface
}

func NewProfileHandler(directory DirectoryInterface) *ProfileHandler {
	return &ProfileHandler{directory: directory}
}

// GetProfileHandler handles GET /profile
func (h *ProfileHandler) GetProfileHandler(c *gin.Context) {
	profile, err := h.directory.GetProfile(c.Request.Context(), helpers.IdentityFrom(c))
	if err != nil {
		helpers.HandleServiceError(c, "GetProfileHandler", err, nil)
		return
	}

	utils.JSONResponse(c, http.StatusOK, profile, "profile retrieved successfully")
}

// UpdateProfileHandler handles PUT /profile
func (h *ProfileHandler) UpdateProfileHandler(c *gin.Context) {
	var req helpers.ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "UpdateProfileHandler", err)
		return
	}

	identity := helpers.IdentityFrom(c)
	profile, err := h.directory.UpdateProfile(c.Request.Context(), identity, req.Name, req.Company, req.Phone)
	if err != nil {
		helpers.HandleServiceError(c, "UpdateProfileHandler", err, map[string]any{"user_id": identity.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, profile, "profile updated successfully")
	helpers.LogSuccess("UpdateProfileHandler", "profile updated successfully", map[string]any{"user_id": identity.UserID})
}

// SetupAdminHandler handles POST /setup/admin. It only succeeds while no admin exists.
func (h *ProfileHandler) SetupAdminHandler(c *gin.Context) {
	var req helpers.SetupAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SetupAdminHandler", err)
		return
	}

	profile, err := h.directory.BootstrapAdmin(c.Request.Context(), req.UserID, req.Email)
	if err != nil {
		helpers.HandleServiceError(c, "SetupAdminHandler", err, map[string]any{"user_id": req.UserID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, profile, "admin account created")
	helpers.LogSuccess("SetupAdminHandler", "admin account created", map[string]any{"user_id": profile.UID})
}
