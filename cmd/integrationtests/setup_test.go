package integrationtests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"deals-portal/internal/access"
	bidding "deals-portal/internal/biddingService"
	"deals-portal/internal/catalog"
	"deals-portal/internal/events"
	"deals-portal/internal/notification"
	"deals-portal/internal/objectstore"
	"deals-portal/internal/repository"
	"deals-portal/internal/server"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("integration-secret")

// outbox records every email the dispatcher hands over
type outbox struct {
	mu   sync.Mutex
	sent []notification.Message
}

func (o *outbox) SendEmail(_ context.Context, msg notification.Message) (notification.SendResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, msg)
	return notification.SendResult{MessageID: "test", SentAt: time.Now()}, nil
}

func (o *outbox) Messages() []notification.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]notification.Message(nil), o.sent...)
}

// TestEnv is a fully wired portal over in-memory storage. Events are
// delivered synchronously so emails are observable when a request returns.
type TestEnv struct {
	Router *gin.Engine
	Repo   *repository.MemoryRepo
	Outbox *outbox
	Images *objectstore.MemoryStore
}

// SetupTestEnv initializes the router with in-memory storage for integration testing.
func SetupTestEnv(t *testing.T) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepo()
	box := &outbox{}
	images := objectstore.NewMemoryStore("http://portal.test/images")

	dispatcher := notification.NewDispatcher(box, notification.Config{
		From:   notification.Address{Name: "Deals Portal", Email: "no-reply@deals.test"},
		Brand:  "Deals Portal",
		Portal: "http://portal.test",
	})

	directory := access.NewDirectory(repo, testSecret)
	router := server.SetupRouter(server.Services{
		Bidding:     bidding.NewBiddingService(repo, repo, events.Direct{Handler: dispatcher}, bidding.Policy{EnforceCloseDate: true}),
		Catalog:     catalog.NewCatalogService(repo, images),
		Directory:   directory,
		Auth:        directory,
		LocalImages: images,
	})

	return &TestEnv{Router: router, Repo: repo, Outbox: box, Images: images}
}

// Token issues a bearer token for uid
func Token(t *testing.T, uid, email string) string {
	t.Helper()
	token, err := access.IssueToken(testSecret, uid, email, time.Hour)
	require.NoError(t, err)
	return token
}

// ExecuteRequestAndParse executes an HTTP request on the env router and parses the response envelope
func (e *TestEnv) ExecuteRequestAndParse(t *testing.T, method, url, token string, body any) (map[string]any, *httptest.ResponseRecorder) {
	t.Helper()

	var reqBody []byte
	switch v := body.(type) {
	case nil:
	case []byte:
		reqBody = v
	default:
		var err error
		reqBody, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal body")
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, url, bytes.NewReader(reqBody))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	e.Router.ServeHTTP(w, req)

	var resp map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "failed to unmarshal response")
	}
	return resp, w
}

// SeedAdmin creates the first admin through the public setup route and returns its token
func (e *TestEnv) SeedAdmin(t *testing.T) string {
	t.Helper()
	_, w := e.ExecuteRequestAndParse(t, "POST", "/setup/admin", "", map[string]string{
		"user_id": "admin-1",
		"email":   "admin@deals.test",
	})
	require.Equal(t, 201, w.Code)
	return Token(t, "admin-1", "admin@deals.test")
}

// SeedCatalog imports the standard test lot through the admin route
func (e *TestEnv) SeedCatalog(t *testing.T, adminToken string) {
	t.Helper()
	closes := time.Now().UTC().AddDate(0, 0, 30).Format("2006-01-02")
	_, w := e.ExecuteRequestAndParse(t, "PUT", "/admin/lots", adminToken, map[string]any{
		"lots": []map[string]any{
			{
				"id":                 "lot-1",
				"category":           "Snacks",
				"brand":              "Crunchy",
				"description":        "Sea Salt Chips 24ct",
				"regular_price":      "100",
				"case_quantity":      10,
				"quantity_available": 50,
				"max_discount":       "20",
				"close_bid_date":     closes,
			},
			{
				"id":                 "lot-closed",
				"category":           "Beverages",
				"description":        "Sparkling Water 12pk",
				"regular_price":      "10",
				"case_quantity":      12,
				"quantity_available": 100,
				"max_discount":       "50",
				"close_bid_date":     "2020-01-01",
			},
		},
	})
	require.Equal(t, 200, w.Code)
}
