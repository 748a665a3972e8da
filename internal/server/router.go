package server

import (
	"net/http"
	"strings"

	"deals-portal/internal/objectstore"
	handler "deals-portal/services/bidding/handler"

	"github.com/gin-gonic/gin"
)

// Services groups what the router needs to serve the portal
type Services struct {
	Bidding   handler.BiddingServiceInterface
	Catalog   handler.CatalogServiceInterface
	Directory handler.DirectoryInterface
	Auth      Authenticator
	// LocalImages is served under /images when lot images are kept in memory
	LocalImages *objectstore.MemoryStore
}

// SetupRouter configures all Gin routes for the application
func SetupRouter(svc Services) *gin.Engine {
	router := gin.New() // New router without default middleware for full control over middleware and logging

	router.Use(gin.Recovery())          // recover from panics
	router.Use(RequestLoggerMiddleware) // custom request logging

	biddingHandler := handler.NewBiddingHandler(svc.Bidding)
	catalogHandler := handler.NewCatalogHandler(svc.Catalog)
	profileHandler := handler.NewProfileHandler(svc.Directory)

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.POST("/setup/admin", profileHandler.SetupAdminHandler)
	if svc.LocalImages != nil {
		router.GET("/images/*key", serveLocalImage(svc.LocalImages))
	}

	authed := router.Group("", AuthMiddleware(svc.Auth))

	profile := authed.Group("/profile")
	{
		profile.GET("", profileHandler.GetProfileHandler)
		profile.PUT("", profileHandler.UpdateProfileHandler)
	}

	lots := authed.Group("/lots")
	{
		lots.GET("", catalogHandler.ListLotsHandler)
		lots.GET("/categories", catalogHandler.CategoriesHandler)
		lots.GET("/:lot_id", catalogHandler.GetLotHandler)
	}

	bids := authed.Group("/bids")
	{
		bids.POST("", biddingHandler.PlaceBidHandler)
		bids.GET("/mine", biddingHandler.ListMyBidsHandler)
		bids.GET("/:bid_id", biddingHandler.GetBidHandler)
		bids.DELETE("/:bid_id", biddingHandler.CancelBidHandler)
	}

	admin := authed.Group("/admin", AdminOnly)
	{
		admin.PUT("/lots", catalogHandler.ReplaceLotsHandler)
		admin.POST("/lots/:lot_id/image", catalogHandler.UploadImageHandler)
		admin.GET("/bids", biddingHandler.ListBidsHandler)
		admin.POST("/bids/:bid_id/decision", biddingHandler.DecideBidHandler)
		admin.DELETE("/bids/:bid_id", biddingHandler.RemoveBidHandler)
	}

	return router
}

func serveLocalImage(store *objectstore.MemoryStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		obj, ok := store.Get(strings.TrimPrefix(c.Param("key"), "/"))
		if !ok || !objectstore.IsRasterImage(obj.ContentType) {
			c.Status(http.StatusNotFound)
			return
		}
		c.Header("X-Content-Type-Options", "nosniff")
		c.Data(http.StatusOK, obj.ContentType, obj.Data)
	}
}
