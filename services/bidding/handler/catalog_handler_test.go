package handler

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"deals-portal/internal/biddingerrors"
	model "deals-portal/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func sampleLot(id string) model.Lot {
	return model.Lot{
		ID:                 id,
		Category:           "Snacks",
		Brand:              "Crunchy",
		UPC:                "012345678905",
		Description:        "Sea Salt Chips 24ct",
		LotNumber:          "L-100",
		RegularPrice:       decimal.NewFromInt(100),
		CaseQuantity:       24,
		QuantityAvailable:  50,
		MaxDiscountPercent: decimal.NewFromInt(20),
		CloseBidDate:       time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC),
	}
}

// Test the catalog read endpoints
func TestCatalogReadHandlers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockCatalogServiceInterface(ctrl)
	handler := NewCatalogHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(withIdentity(buyer))
	router.GET("/lots", handler.ListLotsHandler)
	router.GET("/lots/categories", handler.CategoriesHandler)
	router.GET("/lots/:lot_id", handler.GetLotHandler)

	t.Run("list_lots", func(t *testing.T) {
		mockService.EXPECT().ListLots(gomock.Any(), buyer).Return([]model.Lot{sampleLot("lot-1")}, nil)

		w, resp := doRequest(t, router, http.MethodGet, "/lots", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, 1.0, resp["count"])
		lots := resp["data"].([]any)
		require.Len(t, lots, 1)
		first := lots[0].(map[string]any)
		require.Equal(t, "lot-1", first["lot_id"])
		require.Equal(t, "100.00", first["regular_price"])
		require.Equal(t, "20", first["max_discount"])
		require.Equal(t, "2026-04-30", first["close_bid_date"])
		_, hasExpiry := first["expiry_date"]
		require.False(t, hasExpiry)
	})

	t.Run("categories", func(t *testing.T) {
		mockService.EXPECT().Categories(gomock.Any(), buyer).Return([]string{"Beverages", "Snacks"}, nil)

		w, resp := doRequest(t, router, http.MethodGet, "/lots/categories", nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []any{"Beverages", "Snacks"}, resp["data"])
	})

	t.Run("unknown_lot", func(t *testing.T) {
		mockService.EXPECT().GetLot(gomock.Any(), buyer, "lot-9").Return(model.Lot{}, biddingerrors.ErrLotNotFound)

		w, resp := doRequest(t, router, http.MethodGet, "/lots/lot-9", nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Equal(t, "lot not found", resp["message"])
	})
}

// Test ReplaceLotsHandler
func TestReplaceLotsHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockCatalogServiceInterface(ctrl)
	handler := NewCatalogHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.PUT("/admin/lots", withIdentity(admin), handler.ReplaceLotsHandler)

	tests := []struct {
		name           string
		body           string
		mockSetup      func()
		expectedStatus int
		expectedMsg    string
	}{
		{
			name: "valid_import",
			body: `{"lots":[{"id":"lot-1","category":"Snacks","description":"Chips","regular_price":"24.99",
				"case_quantity":12,"quantity_available":40,"max_discount":25,"close_bid_date":"2026-04-30"}]}`,
			mockSetup: func() {
				mockService.EXPECT().ReplaceLots(gomock.Any(), admin, gomock.Any()).
					DoAndReturn(func(_ any, _ any, lots []model.Lot) ([]model.Lot, error) {
						require.Len(t, lots, 1)
						require.Equal(t, "24.99", lots[0].RegularPrice.StringFixed(2))
						require.Equal(t, time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC), lots[0].CloseBidDate)
						require.True(t, lots[0].ExpiryDate.IsZero())
						return lots, nil
					})
			},
			expectedStatus: http.StatusOK,
			expectedMsg:    "catalog replaced successfully",
		},
		{
			name:           "bad_date",
			body:           `{"lots":[{"id":"lot-1","category":"Snacks","description":"Chips","regular_price":1,"case_quantity":1,"expiry_date":"04/30/2026"}]}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request data",
		},
		{
			name:           "missing_lots",
			body:           `{}`,
			mockSetup:      func() {},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request payload",
		},
		{
			name: "invalid_row",
			body: `{"lots":[{"id":"lot-1","category":"Snacks","description":"Chips","regular_price":0,"case_quantity":1}]}`,
			mockSetup: func() {
				mockService.EXPECT().ReplaceLots(gomock.Any(), admin, gomock.Any()).Return(nil, biddingerrors.ErrMalformedRecord)
			},
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "invalid request data",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.mockSetup()
			w, resp := doRequest(t, router, http.MethodPut, "/admin/lots", tc.body)
			require.Equal(t, tc.expectedStatus, w.Code)
			require.Contains(t, resp["message"], tc.expectedMsg)
		})
	}
}

// Test UploadImageHandler
func TestUploadImageHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := NewMockCatalogServiceInterface(ctrl)
	handler := NewCatalogHandler(mockService)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/admin/lots/:lot_id/image", withIdentity(admin), handler.UploadImageHandler)

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="front.png"`)
	header.Set("Content-Type", "image/png")
	part, err := form.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write([]byte("PNGDATA"))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	withImage := sampleLot("lot-1")
	withImage.ImageURL = "http://img/products/lot-1/front.png"
	mockService.EXPECT().AttachImage(gomock.Any(), admin, "lot-1", "front.png", "image/png", gomock.Any()).Return(withImage, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/lots/lot-1/image", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, withImage.ImageURL, resp["data"].(map[string]any)["image_url"])

	// no file part
	w2, resp2 := doRequest(t, router, http.MethodPost, "/admin/lots/lot-1/image", `{}`)
	require.Equal(t, http.StatusBadRequest, w2.Code)
	require.Equal(t, "invalid request payload", resp2["message"])
}
