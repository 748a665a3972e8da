package integrationtests

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	model "deals-portal/internal/models"

	"github.com/stretchr/testify/require"
)

func placeBid(t *testing.T, env *TestEnv, token, lotID string, quantity int, price string) (map[string]any, int) {
	t.Helper()
	resp, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/bids", token, map[string]any{
		"lot_id":    lotID,
		"quantity":  quantity,
		"bid_price": price,
	})
	return resp, w.Code
}

// Submission Tests
func TestPlaceBidFlow(t *testing.T) {
	env := SetupTestEnv(t)
	adminToken := env.SeedAdmin(t)
	env.SeedCatalog(t, adminToken)
	buyerToken := Token(t, "user-1", "buyer@deals.test")

	tests := []struct {
		name        string
		lotID       string
		quantity    int
		price       string
		wantStatus  int
		wantMessage string
	}{
		{"Within_Discount", "lot-1", 10, "85", http.StatusCreated, "bid submitted successfully"},
		{"Discount_Too_Deep", "lot-1", 10, "70", http.StatusUnprocessableEntity, "bid exceeds maximum available discount"},
		{"Quantity_Over_Available", "lot-1", 60, "90", http.StatusUnprocessableEntity, "bid quantity exceeds available quantity"},
		{"Zero_Quantity", "lot-1", 0, "90", http.StatusBadRequest, "please enter a valid quantity"},
		{"Zero_Price", "lot-1", 5, "0", http.StatusBadRequest, "please enter a valid price"},
		{"Closed_Lot", "lot-closed", 5, "9", http.StatusUnprocessableEntity, "bidding has closed for this lot"},
		{"Unknown_Lot", "lot-404", 5, "90", http.StatusNotFound, "lot not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, code := placeBid(t, env, buyerToken, tt.lotID, tt.quantity, tt.price)
			require.Equal(t, tt.wantStatus, code)
			require.Equal(t, tt.wantMessage, resp["message"])
		})
	}

	t.Run("Stored_Snapshot", func(t *testing.T) {
		resp, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/bids/mine", buyerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		bids := resp["data"].([]any)
		require.Len(t, bids, 1)
		bid := bids[0].(map[string]any)
		require.Equal(t, "lot-1", bid["lot_id"])
		require.Equal(t, "user-1", bid["user_id"])
		require.Equal(t, "buyer@deals.test", bid["user_email"])
		require.Equal(t, "Sea Salt Chips 24ct", bid["product_name"])
		require.Equal(t, "pending", bid["status"])
		require.Equal(t, "85.00", bid["bid_price"])
		require.Equal(t, "15.0", bid["discount_percent"])
		require.Equal(t, "850.00", bid["total_value"])

		_, err := time.Parse(time.RFC3339, bid["created_at"].(string))
		require.NoError(t, err)
	})

	t.Run("Unauthenticated", func(t *testing.T) {
		_, code := placeBid(t, env, "", "lot-1", 10, "85")
		require.Equal(t, http.StatusUnauthorized, code)
	})

	require.Empty(t, env.Outbox.Messages())
}

// Decision Tests
func TestDecisionFlow(t *testing.T) {
	env := SetupTestEnv(t)
	adminToken := env.SeedAdmin(t)
	env.SeedCatalog(t, adminToken)
	buyerToken := Token(t, "user-1", "buyer@deals.test")

	resp, code := placeBid(t, env, buyerToken, "lot-1", 10, "85")
	require.Equal(t, http.StatusCreated, code)
	bidID := resp["data"].(map[string]any)["bid_id"].(string)
	decisionURL := "/admin/bids/" + bidID + "/decision"

	t.Run("Buyer_Cannot_Decide", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodPost, decisionURL, buyerToken, map[string]string{"status": "approved"})
		require.Equal(t, http.StatusForbidden, w.Code)

		stored, err := env.Repo.GetBid(context.Background(), bidID)
		require.NoError(t, err)
		require.Equal(t, model.StatusPending, stored.Status)
		require.Empty(t, env.Outbox.Messages())
	})

	t.Run("Pending_Is_Not_A_Decision", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodPost, decisionURL, adminToken, map[string]string{"status": "pending"})
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Admin_Approves", func(t *testing.T) {
		resp, w := env.ExecuteRequestAndParse(t, http.MethodPost, decisionURL, adminToken, map[string]string{"status": "approved"})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "approved", resp["data"].(map[string]any)["status"])

		msgs := env.Outbox.Messages()
		require.Len(t, msgs, 1)
		require.Equal(t, "buyer@deals.test", msgs[0].To)
		require.Equal(t, "Your Deals Portal Bid Has Been Approved!", msgs[0].Subject)
		require.Contains(t, msgs[0].HTML, "Total Value: $850.00")
	})

	t.Run("Second_Decision_Conflicts", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodPost, decisionURL, adminToken, map[string]string{"status": "rejected"})
		require.Equal(t, http.StatusConflict, w.Code)
		require.Len(t, env.Outbox.Messages(), 1)
	})

	t.Run("Owner_Cannot_Cancel_Decided_Bid", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodDelete, "/bids/"+bidID, buyerToken, nil)
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Admin_Lists_By_Status", func(t *testing.T) {
		resp, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/admin/bids?status=approved", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, resp["data"].([]any), 1)

		resp, w = env.ExecuteRequestAndParse(t, http.MethodGet, "/admin/bids?status=pending", adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Empty(t, resp["data"].([]any))
	})
}

// Concurrent decisions on one bid produce a single winner and a single email
func TestConcurrentDecisions(t *testing.T) {
	env := SetupTestEnv(t)
	adminToken := env.SeedAdmin(t)
	env.SeedCatalog(t, adminToken)

	resp, code := placeBid(t, env, Token(t, "user-1", "buyer@deals.test"), "lot-1", 10, "90")
	require.Equal(t, http.StatusCreated, code)
	bidID := resp["data"].(map[string]any)["bid_id"].(string)

	const deciders = 8
	codes := make(chan int, deciders)
	var wg sync.WaitGroup
	for i := 0; i < deciders; i++ {
		status := "approved"
		if i%2 == 1 {
			status = "rejected"
		}
		wg.Add(1)
		go func(status string) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/admin/bids/"+bidID+"/decision", strings.NewReader(`{"status":"`+status+`"}`))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+adminToken)
			w := httptest.NewRecorder()
			env.Router.ServeHTTP(w, req)
			codes <- w.Code
		}(status)
	}
	wg.Wait()
	close(codes)

	var ok, conflicts int
	for c := range codes {
		switch c {
		case http.StatusOK:
			ok++
		case http.StatusConflict:
			conflicts++
		}
	}
	require.Equal(t, 1, ok)
	require.Equal(t, deciders-1, conflicts)
	require.Len(t, env.Outbox.Messages(), 1)
}

// Cancellation Tests
func TestCancelFlow(t *testing.T) {
	env := SetupTestEnv(t)
	adminToken := env.SeedAdmin(t)
	env.SeedCatalog(t, adminToken)
	buyerToken := Token(t, "user-1", "buyer@deals.test")
	otherToken := Token(t, "user-2", "other@deals.test")

	resp, code := placeBid(t, env, buyerToken, "lot-1", 10, "85")
	require.Equal(t, http.StatusCreated, code)
	bidID := resp["data"].(map[string]any)["bid_id"].(string)

	t.Run("Other_User_Cannot_See_Or_Cancel", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/bids/"+bidID, otherToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)

		_, w = env.ExecuteRequestAndParse(t, http.MethodDelete, "/bids/"+bidID, otherToken, nil)
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Owner_Cancels", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodDelete, "/bids/"+bidID, buyerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		msgs := env.Outbox.Messages()
		require.Len(t, msgs, 1)
		require.Equal(t, "Your Deals Portal Bid Has Been Cancelled", msgs[0].Subject)
		require.Contains(t, msgs[0].HTML, "Product: Sea Salt Chips 24ct")
	})

	t.Run("Record_Is_Gone", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/bids/"+bidID, buyerToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)

		_, w = env.ExecuteRequestAndParse(t, http.MethodDelete, "/bids/"+bidID, buyerToken, nil)
		require.Equal(t, http.StatusNotFound, w.Code)
		require.Len(t, env.Outbox.Messages(), 1)
	})

	t.Run("Admin_Removes_Pending_Bid", func(t *testing.T) {
		resp, code := placeBid(t, env, otherToken, "lot-1", 5, "95")
		require.Equal(t, http.StatusCreated, code)
		otherBid := resp["data"].(map[string]any)["bid_id"].(string)

		_, w := env.ExecuteRequestAndParse(t, http.MethodDelete, "/admin/bids/"+otherBid, adminToken, nil)
		require.Equal(t, http.StatusOK, w.Code)

		msgs := env.Outbox.Messages()
		require.Len(t, msgs, 2)
		require.Equal(t, "other@deals.test", msgs[1].To)
	})
}

// Profile and catalog Tests
func TestProfileAndCatalog(t *testing.T) {
	env := SetupTestEnv(t)
	adminToken := env.SeedAdmin(t)
	env.SeedCatalog(t, adminToken)
	buyerToken := Token(t, "user-1", "buyer@deals.test")

	t.Run("Second_Admin_Setup_Rejected", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodPost, "/setup/admin", "", map[string]string{
			"user_id": "user-1",
			"email":   "buyer@deals.test",
		})
		require.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("First_Login_Provisions_Buyer", func(t *testing.T) {
		resp, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/profile", buyerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		profile := resp["data"].(map[string]any)
		require.Equal(t, "user-1", profile["uid"])
		require.Equal(t, false, profile["is_admin"])
	})

	t.Run("Update_Profile", func(t *testing.T) {
		resp, w := env.ExecuteRequestAndParse(t, http.MethodPut, "/profile", buyerToken, map[string]string{
			"name":    "Ana",
			"company": "Corner Market",
			"phone":   "555-0100",
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "Corner Market", resp["data"].(map[string]any)["company"])
	})

	t.Run("Buyer_Cannot_Import", func(t *testing.T) {
		_, w := env.ExecuteRequestAndParse(t, http.MethodPut, "/admin/lots", buyerToken, map[string]any{"lots": []any{}})
		require.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("Catalog_Reads", func(t *testing.T) {
		resp, w := env.ExecuteRequestAndParse(t, http.MethodGet, "/lots", buyerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Len(t, resp["data"].([]any), 2)

		resp, w = env.ExecuteRequestAndParse(t, http.MethodGet, "/lots/categories", buyerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, []any{"Beverages", "Snacks"}, resp["data"])

		resp, w = env.ExecuteRequestAndParse(t, http.MethodGet, "/lots/lot-1", buyerToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "100.00", resp["data"].(map[string]any)["regular_price"])
	})
}
