package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"deals-portal/internal/access"
	model "deals-portal/internal/models"
	"deals-portal/services/bidding/helpers"
	"deals-portal/utils"

	"github.com/gin-gonic/gin"
)

// maxImageBytes caps lot image uploads
const maxImageBytes = 5 << 20

type CatalogServiceInterface interface {
	ReplaceLots(ctx context.Context, actor access.Identity, lots []model.Lot) ([]model.Lot, error)
	AttachImage(ctx context.Context, actor access.Identity, lotID, filename, contentType string, body io.Reader) (model.Lot, error)
	ListLots(ctx context.Context, actor access.Identity) ([]model.Lot, error)
	Categories(ctx context.Context, actor access.Identity) ([]string, error)
	GetLot(ctx context.Context, actor access.Identity, lotID string) (model.Lot, error)
}

type CatalogHandler struct {
	service CatalogServiceInterface
}

func NewCatalogHandler(service CatalogServiceInterface) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// ListLotsHandler handles GET /lots
func (h *CatalogHandler) ListLotsHandler(c *gin.Context) {
	lots, err := h.service.ListLots(c.Request.Context(), helpers.IdentityFrom(c))
	if err != nil {
		helpers.HandleServiceError(c, "ListLotsHandler", err, nil)
		return
	}

	utils.JSONList(c, helpers.NewLotResponses(lots), len(lots), "lots retrieved successfully")
}

// CategoriesHandler handles GET /lots/categories
func (h *CatalogHandler) CategoriesHandler(c *gin.Context) {
	categories, err := h.service.Categories(c.Request.Context(), helpers.IdentityFrom(c))
	if err != nil {
		helpers.HandleServiceError(c, "CategoriesHandler", err, nil)
		return
	}

	utils.JSONList(c, categories, len(categories), "categories retrieved successfully")
}

// GetLotHandler handles GET /lots/:lot_id
func (h *CatalogHandler) GetLotHandler(c *gin.Context) {
	lotID := c.Param("lot_id")
	lot, err := h.service.GetLot(c.Request.Context(), helpers.IdentityFrom(c), lotID)
	if err != nil {
		helpers.HandleServiceError(c, "GetLotHandler", err, map[string]any{"lot_id": lotID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewLotResponse(lot), "lot retrieved successfully")
}

// ReplaceLotsHandler handles PUT /admin/lots
func (h *CatalogHandler) ReplaceLotsHandler(c *gin.Context) {
	var req helpers.ReplaceLotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "ReplaceLotsHandler", err)
		return
	}

	lots := make([]model.Lot, 0, len(req.Lots))
	for i, row := range req.Lots {
		lot, err := row.ToLot()
		if err != nil {
			helpers.HandleServiceError(c, "ReplaceLotsHandler", fmt.Errorf("row %d: %w", i+1, err), nil)
			return
		}
		lots = append(lots, lot)
	}

	identity := helpers.IdentityFrom(c)
	stored, err := h.service.ReplaceLots(c.Request.Context(), identity, lots)
	if err != nil {
		helpers.HandleServiceError(c, "ReplaceLotsHandler", err, map[string]any{"rows": len(lots)})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewLotResponses(stored), "catalog replaced successfully")
	helpers.LogSuccess("ReplaceLotsHandler", "catalog replaced successfully", map[string]any{
		"admin_id": identity.UserID,
		"count":    len(stored),
	})
}

// UploadImageHandler handles POST /admin/lots/:lot_id/image (multipart field "image")
func (h *CatalogHandler) UploadImageHandler(c *gin.Context) {
	lotID := c.Param("lot_id")

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxImageBytes)
	header, err := c.FormFile("image")
	if err != nil {
		helpers.HandleBindError(c, "UploadImageHandler", err)
		return
	}
	file, err := header.Open()
	if err != nil {
		helpers.HandleBindError(c, "UploadImageHandler", err)
		return
	}
	defer file.Close()

	identity := helpers.IdentityFrom(c)
	lot, err := h.service.AttachImage(c.Request.Context(), identity, lotID, header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		helpers.HandleServiceError(c, "UploadImageHandler", err, map[string]any{"lot_id": lotID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewLotResponse(lot), "image uploaded successfully")
	helpers.LogSuccess("UploadImageHandler", "image uploaded successfully", map[string]any{
		"lot_id":    lotID,
		"image_url": lot.ImageURL,
	})
}
