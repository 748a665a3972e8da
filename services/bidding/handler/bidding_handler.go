package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"deals-portal/internal/access"
	model "deals-portal/internal/models"
	"deals-portal/services/bidding/helpers"
	"deals-portal/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

var errInvalidBidID = errors.New("bid id is not a valid identifier")

type BiddingServiceInterface interface {
	PlaceBid(ctx context.Context, owner access.Identity, lotID string, quantity int, unitPrice decimal.Decimal) (model.Bid, error)
	Decide(ctx context.Context, actor access.Identity, bidID string, next model.BidStatus) (model.Bid, error)
	Cancel(ctx context.Context, actor access.Identity, bidID string) error
	Remove(ctx context.Context, actor access.Identity, bidID string) error
	GetBid(ctx context.Context, actor access.Identity, bidID string) (model.Bid, error)
	ListMyBids(ctx context.Context, actor access.Identity) ([]model.Bid, error)
	ListBids(ctx context.Context, actor access.Identity, status model.BidStatus) ([]model.Bid, error)
}

type BiddingHandler struct {
	service BiddingServiceInterface
}

func NewBiddingHandler(service BiddingServiceInterface) *BiddingHandler {
	return &BiddingHandler{service: service}
}

// bidIDParam reads :bid_id and rejects anything that is not a generated id
func bidIDParam(c *gin.Context, handlerName string) (string, bool) {
	bidID := c.Param("bid_id")
	if !utils.IsID(bidID) {
		utils.JSONError(c, http.StatusBadRequest, fmt.Errorf("%w: %q", errInvalidBidID, bidID), "invalid bid id")
		utils.Warn(handlerName+": invalid bid id", map[string]any{"bid_id": bidID})
		return "", false
	}
	return bidID, true
}

// PlaceBidHandler handles POST /bids
func (h *BiddingHandler) PlaceBidHandler(c *gin.Context) {
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "PlaceBidHandler", err)
		return
	}

	identity := helpers.IdentityFrom(c)
	bid, err := h.service.PlaceBid(c.Request.Context(), identity, req.LotID, req.Quantity, req.BidPrice)
	if err != nil {
		helpers.HandleServiceError(c, "PlaceBidHandler", err, map[string]any{
			"lot_id":  req.LotID,
			"user_id": identity.UserID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid submitted successfully")
	helpers.LogSuccess("PlaceBidHandler", "bid submitted successfully", map[string]any{
		"bid_id":  bid.ID,
		"lot_id":  bid.ProductID,
		"user_id": bid.UserID,
		"total":   bid.TotalValue.StringFixed(2),
	})
}

// ListMyBidsHandler handles GET /bids/mine
func (h *BiddingHandler) ListMyBidsHandler(c *gin.Context) {
	identity := helpers.IdentityFrom(c)
	bids, err := h.service.ListMyBids(c.Request.Context(), identity)
	if err != nil {
		helpers.HandleServiceError(c, "ListMyBidsHandler", err, map[string]any{"user_id": identity.UserID})
		return
	}

	utils.JSONList(c, helpers.NewBidResponses(bids), len(bids), "bids retrieved successfully")
	helpers.LogSuccess("ListMyBidsHandler", "bids retrieved successfully", map[string]any{
		"user_id": identity.UserID,
		"count":   len(bids),
	})
}

// GetBidHandler handles GET /bids/:bid_id
func (h *BiddingHandler) GetBidHandler(c *gin.Context) {
	bidID, ok := bidIDParam(c, "GetBidHandler")
	if !ok {
		return
	}

	bid, err := h.service.GetBid(c.Request.Context(), helpers.IdentityFrom(c), bidID)
	if err != nil {
		helpers.HandleServiceError(c, "GetBidHandler", err, map[string]any{"bid_id": bidID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "bid retrieved successfully")
}

// CancelBidHandler handles DELETE /bids/:bid_id
func (h *BiddingHandler) CancelBidHandler(c *gin.Context) {
	bidID, ok := bidIDParam(c, "CancelBidHandler")
	if !ok {
		return
	}

	identity := helpers.IdentityFrom(c)
	if err := h.service.Cancel(c.Request.Context(), identity, bidID); err != nil {
		helpers.HandleServiceError(c, "CancelBidHandler", err, map[string]any{
			"bid_id":  bidID,
			"user_id": identity.UserID,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"bid_id": bidID}, "bid cancelled successfully")
	helpers.LogSuccess("CancelBidHandler", "bid cancelled successfully", map[string]any{
		"bid_id":  bidID,
		"user_id": identity.UserID,
	})
}

// ListBidsHandler handles GET /admin/bids?status=
func (h *BiddingHandler) ListBidsHandler(c *gin.Context) {
	status := model.BidStatus(c.Query("status"))
	bids, err := h.service.ListBids(c.Request.Context(), helpers.IdentityFrom(c), status)
	if err != nil {
		helpers.HandleServiceError(c, "ListBidsHandler", err, map[string]any{"status": string(status)})
		return
	}

	utils.JSONList(c, helpers.NewBidResponses(bids), len(bids), "bids retrieved successfully")
	helpers.LogSuccess("ListBidsHandler", "bids retrieved successfully", map[string]any{
		"status": string(status),
		"count":  len(bids),
	})
}

// DecideBidHandler handles POST /admin/bids/:bid_id/decision
func (h *BiddingHandler) DecideBidHandler(c *gin.Context) {
	bidID, ok := bidIDParam(c, "DecideBidHandler")
	if !ok {
		return
	}

	var req helpers.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "DecideBidHandler", err)
		return
	}

	identity := helpers.IdentityFrom(c)
	bid, err := h.service.Decide(c.Request.Context(), identity, bidID, model.BidStatus(req.Status))
	if err != nil {
		helpers.HandleServiceError(c, "DecideBidHandler", err, map[string]any{
			"bid_id": bidID,
			"status": req.Status,
		})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "bid "+req.Status)
	helpers.LogSuccess("DecideBidHandler", "bid "+req.Status, map[string]any{
		"bid_id":   bidID,
		"admin_id": identity.UserID,
	})
}

// RemoveBidHandler handles DELETE /admin/bids/:bid_id
func (h *BiddingHandler) RemoveBidHandler(c *gin.Context) {
	bidID, ok := bidIDParam(c, "RemoveBidHandler")
	if !ok {
		return
	}

	identity := helpers.IdentityFrom(c)
	if err := h.service.Remove(c.Request.Context(), identity, bidID); err != nil {
		helpers.HandleServiceError(c, "RemoveBidHandler", err, map[string]any{"bid_id": bidID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, gin.H{"bid_id": bidID}, "bid removed successfully")
	helpers.LogSuccess("RemoveBidHandler", "bid removed successfully", map[string]any{
		"bid_id":   bidID,
		"admin_id": identity.UserID,
	})
}
