package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"deals-portal/internal/biddingerrors"
	model "deals-portal/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Tests that money survives the Decimal128 encoding exactly
func TestBidDocument_PreservesDecimals(t *testing.T) {
	bid := newBid("b1", "lot-1", "u1", time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC))
	bid.BidPrice = decimal.RequireFromString("8.66")
	bid.RegularPrice = decimal.RequireFromString("12.99")
	bid.DiscountPercent = decimal.RequireFromString("33.33333333333333")
	bid.TotalValue = decimal.RequireFromString("1250000.10")

	doc, err := bidToDocument(bid)
	require.NoError(t, err)

	raw, err := bson.Marshal(doc)
	require.NoError(t, err)
	var decoded bidDocument
	require.NoError(t, bson.Unmarshal(raw, &decoded))

	got, err := decoded.toModel()
	require.NoError(t, err)
	require.True(t, bid.BidPrice.Equal(got.BidPrice))
	require.True(t, bid.RegularPrice.Equal(got.RegularPrice))
	require.True(t, bid.DiscountPercent.Equal(got.DiscountPercent))
	require.Equal(t, "1250000.10", got.TotalValue.StringFixed(2))
	require.Equal(t, bid.Status, got.Status)
	require.True(t, bid.CreatedAt.Equal(got.CreatedAt))
}

// Tests that records with missing or invalid fields never leave the store
func TestDocuments_RejectMalformed(t *testing.T) {
	tests := []struct {
		name    string
		convert func() error
	}{
		{
			name: "bid_without_prices",
			convert: func() error {
				_, err := bidDocument{ID: "b1", UserID: "u1", UserEmail: "u1@example.com", ProductID: "lot-1",
					Quantity: 1, Status: "pending", CreatedAt: time.Now()}.toModel()
				return err
			},
		},
		{
			name: "bid_with_unknown_status",
			convert: func() error {
				doc, err := bidToDocument(newBid("b1", "lot-1", "u1", time.Now()))
				require.NoError(t, err)
				doc.Status = "archived"
				_, err = doc.toModel()
				return err
			},
		},
		{
			name: "lot_without_category",
			convert: func() error {
				doc, err := lotToDocument(newLot("lot-1", "Snacks", "Chips"))
				require.NoError(t, err)
				doc.Category = ""
				_, err = doc.toModel()
				return err
			},
		},
		{
			name: "lot_written_with_zero_case_quantity",
			convert: func() error {
				lot := newLot("lot-1", "Snacks", "Chips")
				lot.CaseQuantity = 0
				_, err := lotToDocument(lot)
				return err
			},
		},
		{
			name: "user_without_email",
			convert: func() error {
				_, err := userDocument{UID: "u1"}.toModel()
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.ErrorIs(t, tt.convert(), biddingerrors.ErrMalformedRecord)
		})
	}
}

func TestLotDocument_RoundTrip(t *testing.T) {
	lot := newLot("lot-1", "Snacks", "Chips")
	lot.CloseBidDate = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	lot.MaxDiscountPercent = decimal.RequireFromString("12.5")

	doc, err := lotToDocument(lot)
	require.NoError(t, err)
	got, err := doc.toModel()
	require.NoError(t, err)

	require.Equal(t, lot.ID, got.ID)
	require.True(t, lot.MaxDiscountPercent.Equal(got.MaxDiscountPercent))
	require.True(t, lot.CloseBidDate.Equal(got.CloseBidDate))
	require.Equal(t, model.Lot{}.ImageURL, got.ImageURL)
}

// fakeMarkers enforces a unique _id the way a collection does
type fakeMarkers struct {
	mu  sync.Mutex
	ids map[string]bool
}

func (f *fakeMarkers) InsertOne(_ context.Context, document any, _ ...*options.InsertOneOptions) (*mongo.InsertOneResult, error) {
	id := document.(bson.M)["_id"].(string)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ids[id] {
		return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key error"}}}
	}
	f.ids[id] = true
	return &mongo.InsertOneResult{InsertedID: id}, nil
}

func (f *fakeMarkers) DeleteOne(_ context.Context, filter any, _ ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	id := filter.(bson.M)["_id"].(string)
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ids, id)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

// Tests that concurrent admin bootstraps produce exactly one claim
func TestClaimMarker_SingleWinner(t *testing.T) {
	markers := &fakeMarkers{ids: map[string]bool{}}

	const callers = 16
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- claimMarker(context.Background(), markers, adminMarkerID, fmt.Sprintf("admin-%d", i))
		}(i)
	}
	wg.Wait()
	close(errs)

	var won, exists int
	for err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, biddingerrors.ErrAdminExists):
			exists++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, won)
	require.Equal(t, callers-1, exists)

	// a released claim can be taken again
	releaseMarker(context.Background(), markers, adminMarkerID)
	require.NoError(t, claimMarker(context.Background(), markers, adminMarkerID, "admin-retry"))
}

type failingProducts struct {
	deleted  bool
	inserted []any
	err      error
}

func (f *failingProducts) DeleteMany(context.Context, any, ...*options.DeleteOptions) (*mongo.DeleteResult, error) {
	f.deleted = true
	return &mongo.DeleteResult{}, nil
}

func (f *failingProducts) InsertMany(_ context.Context, docs []any, _ ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.inserted = docs
	return &mongo.InsertManyResult{}, nil
}

// Tests that a failed insert surfaces from the swap so its transaction aborts,
// and that malformed rows are rejected before any write
func TestReplaceLots_Swap(t *testing.T) {
	docs, err := lotDocuments([]model.Lot{newLot("lot-1", "Snacks", "Chips"), newLot("lot-2", "Snacks", "Pretzels")})
	require.NoError(t, err)
	require.Len(t, docs, 2)

	ok := &failingProducts{}
	require.NoError(t, swapProducts(context.Background(), ok, docs))
	require.True(t, ok.deleted)
	require.Len(t, ok.inserted, 2)

	broken := &failingProducts{err: errors.New("connection reset")}
	err = swapProducts(context.Background(), broken, docs)
	require.ErrorContains(t, err, "insert products")

	bad := newLot("lot-3", "Snacks", "Chips")
	bad.RegularPrice = decimal.Zero
	_, err = lotDocuments([]model.Lot{newLot("lot-1", "Snacks", "Chips"), bad})
	require.ErrorIs(t, err, biddingerrors.ErrMalformedRecord)
}
