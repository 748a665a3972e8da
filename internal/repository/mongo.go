package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"deals-portal/internal/biddingerrors"
	model "deals-portal/internal/models"
	"deals-portal/utils"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	productsCollection = "products"
	bidsCollection     = "bids"
	usersCollection    = "users"
	markersCollection  = "markers"

	// adminMarkerID is the one document whose insert claims the first admin
	adminMarkerID = "admin-bootstrap"
)

// MongoRepo implements DealsDB on MongoDB
type MongoRepo struct {
	client   *mongo.Client
	products *mongo.Collection
	bids     *mongo.Collection
	users    *mongo.Collection
	markers  markerStore
}

// markerStore is the part of a collection used to claim one-time markers.
// *mongo.Collection satisfies it.
type markerStore interface {
	InsertOne(ctx context.Context, document any, opts ...*options.InsertOneOptions) (*mongo.InsertOneResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
}

// ConnectMongo dials and pings MongoDB, then prepares the portal collections
func ConnectMongo(ctx context.Context, uri, database string) (*MongoRepo, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	repo := &MongoRepo{
		client:   client,
		products: db.Collection(productsCollection),
		bids:     db.Collection(bidsCollection),
		users:    db.Collection(usersCollection),
		markers:  db.Collection(markersCollection),
	}

	_, err = repo.bids.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}}},
	})
	if err != nil {
		return nil, fmt.Errorf("create bid indexes: %w", err)
	}

	utils.Info("connected to mongodb", map[string]any{"database": database})
	return repo, nil
}

// Close disconnects the underlying client
func (r *MongoRepo) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

type lotDocument struct {
	ID                string               `bson:"_id"`
	Category          string               `bson:"category"`
	Brand             string               `bson:"brand"`
	UPC               string               `bson:"upc"`
	Description       string               `bson:"description"`
	LotNumber         string               `bson:"lotNumber"`
	RegularPrice      primitive.Decimal128 `bson:"regularPrice"`
	CaseQuantity      int                  `bson:"caseQuantity"`
	QuantityAvailable int                  `bson:"quantityAvailable"`
	MaxDiscount       primitive.Decimal128 `bson:"maxDiscount"`
	ExpiryDate        time.Time            `bson:"expiryDate"`
	CloseBidDate      time.Time            `bson:"closeBidDate"`
	ImageURL          string               `bson:"imageUrl,omitempty"`
}

type bidDocument struct {
	ID              string               `bson:"_id"`
	UserID          string               `bson:"userId"`
	UserEmail       string               `bson:"userEmail"`
	ProductID       string               `bson:"productId"`
	ProductName     string               `bson:"productName"`
	BidPrice        primitive.Decimal128 `bson:"bidPrice"`
	Quantity        int                  `bson:"quantity"`
	DiscountPercent primitive.Decimal128 `bson:"discountPercent"`
	TotalValue      primitive.Decimal128 `bson:"totalValue"`
	RegularPrice    primitive.Decimal128 `bson:"regularPrice"`
	ImageURL        string               `bson:"imageUrl,omitempty"`
	Status          string               `bson:"status"`
	CreatedAt       time.Time            `bson:"createdAt"`
}

type userDocument struct {
	UID     string `bson:"_id"`
	Email   string `bson:"email"`
	IsAdmin bool   `bson:"isAdmin"`
	Name    string `bson:"name"`
	Company string `bson:"company"`
	Phone   string `bson:"phone"`
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	return primitive.ParseDecimal128(d.String())
}

func fromDecimal128(p primitive.Decimal128) (decimal.Decimal, error) {
	return decimal.NewFromString(p.String())
}

func lotToDocument(lot model.Lot) (lotDocument, error) {
	if err := model.ValidateRecord(lot); err != nil {
		return lotDocument{}, err
	}
	price, err := toDecimal128(lot.RegularPrice)
	if err != nil {
		return lotDocument{}, fmt.Errorf("%w: regular price: %v", biddingerrors.ErrMalformedRecord, err)
	}
	maxDiscount, err := toDecimal128(lot.MaxDiscountPercent)
	if err != nil {
		return lotDocument{}, fmt.Errorf("%w: max discount: %v", biddingerrors.ErrMalformedRecord, err)
	}
	return lotDocument{
		ID:                lot.ID,
		Category:          lot.Category,
		Brand:             lot.Brand,
		UPC:               lot.UPC,
		Description:       lot.Description,
		LotNumber:         lot.LotNumber,
		RegularPrice:      price,
		CaseQuantity:      lot.CaseQuantity,
		QuantityAvailable: lot.QuantityAvailable,
		MaxDiscount:       maxDiscount,
		ExpiryDate:        lot.ExpiryDate,
		CloseBidDate:      lot.CloseBidDate,
		ImageURL:          lot.ImageURL,
	}, nil
}

func (d lotDocument) toModel() (model.Lot, error) {
	price, err := fromDecimal128(d.RegularPrice)
	if err != nil {
		return model.Lot{}, fmt.Errorf("%w: lot %s regular price: %v", biddingerrors.ErrMalformedRecord, d.ID, err)
	}
	maxDiscount, err := fromDecimal128(d.MaxDiscount)
	if err != nil {
		return model.Lot{}, fmt.Errorf("%w: lot %s max discount: %v", biddingerrors.ErrMalformedRecord, d.ID, err)
	}
	lot := model.Lot{
		ID:                 d.ID,
		Category:           d.Category,
		Brand:              d.Brand,
		UPC:                d.UPC,
		Description:        d.Description,
		LotNumber:          d.LotNumber,
		RegularPrice:       price,
		CaseQuantity:       d.CaseQuantity,
		QuantityAvailable:  d.QuantityAvailable,
		MaxDiscountPercent: maxDiscount,
		ExpiryDate:         d.ExpiryDate,
		CloseBidDate:       d.CloseBidDate,
		ImageURL:           d.ImageURL,
	}
	if err := model.ValidateRecord(lot); err != nil {
		return model.Lot{}, err
	}
	return lot, nil
}

func bidToDocument(bid model.Bid) (bidDocument, error) {
	if err := model.ValidateRecord(bid); err != nil {
		return bidDocument{}, err
	}
	doc := bidDocument{
		ID:          bid.ID,
		UserID:      bid.UserID,
		UserEmail:   bid.UserEmail,
		ProductID:   bid.ProductID,
		ProductName: bid.ProductName,
		Quantity:    bid.Quantity,
		ImageURL:    bid.ImageURL,
		Status:      string(bid.Status),
		CreatedAt:   bid.CreatedAt,
	}
	var err error
	for _, f := range []struct {
		dst *primitive.Decimal128
		src decimal.Decimal
	}{
		{&doc.BidPrice, bid.BidPrice},
		{&doc.DiscountPercent, bid.DiscountPercent},
		{&doc.TotalValue, bid.TotalValue},
		{&doc.RegularPrice, bid.RegularPrice},
	} {
		if *f.dst, err = toDecimal128(f.src); err != nil {
			return bidDocument{}, fmt.Errorf("%w: bid %s: %v", biddingerrors.ErrMalformedRecord, bid.ID, err)
		}
	}
	return doc, nil
}

func (d bidDocument) toModel() (model.Bid, error) {
	bid := model.Bid{
		ID:          d.ID,
		UserID:      d.UserID,
		UserEmail:   d.UserEmail,
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		Quantity:    d.Quantity,
		ImageURL:    d.ImageURL,
		Status:      model.BidStatus(d.Status),
		CreatedAt:   d.CreatedAt,
	}
	var err error
	for _, f := range []struct {
		dst *decimal.Decimal
		src primitive.Decimal128
	}{
		{&bid.BidPrice, d.BidPrice},
		{&bid.DiscountPercent, d.DiscountPercent},
		{&bid.TotalValue, d.TotalValue},
		{&bid.RegularPrice, d.RegularPrice},
	} {
		if *f.dst, err = fromDecimal128(f.src); err != nil {
			return model.Bid{}, fmt.Errorf("%w: bid %s: %v", biddingerrors.ErrMalformedRecord, d.ID, err)
		}
	}
	if err := model.ValidateRecord(bid); err != nil {
		return model.Bid{}, err
	}
	return bid, nil
}

func userToDocument(u model.UserProfile) userDocument {
	return userDocument{UID: u.UID, Email: u.Email, IsAdmin: u.IsAdmin, Name: u.Name, Company: u.Company, Phone: u.Phone}
}

func (d userDocument) toModel() (model.UserProfile, error) {
	u := model.UserProfile{UID: d.UID, Email: d.Email, IsAdmin: d.IsAdmin, Name: d.Name, Company: d.Company, Phone: d.Phone}
	if err := model.ValidateRecord(u); err != nil {
		return model.UserProfile{}, err
	}
	return u, nil
}

// ReplaceLots deletes every product and inserts lots in one transaction, so a
// failed insert leaves the previous catalog in place. Transactions need a
// replica set or sharded cluster.
func (r *MongoRepo) ReplaceLots(ctx context.Context, lots []model.Lot) error {
	docs, err := lotDocuments(lots)
	if err != nil {
		return fmt.Errorf("replace lots: %w", err)
	}

	session, err := r.client.StartSession()
	if err != nil {
		return fmt.Errorf("replace lots: start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, swapProducts(sc, r.products, docs)
	})
	if err != nil {
		return fmt.Errorf("replace lots: %w", err)
	}
	return nil
}

// lotDocuments converts every lot before anything is written
func lotDocuments(lots []model.Lot) ([]any, error) {
	docs := make([]any, 0, len(lots))
	for _, lot := range lots {
		doc, err := lotToDocument(lot)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// productWriter is the part of the products collection a catalog swap uses
type productWriter interface {
	DeleteMany(ctx context.Context, filter any, opts ...*options.DeleteOptions) (*mongo.DeleteResult, error)
	InsertMany(ctx context.Context, documents []any, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error)
}

func swapProducts(ctx context.Context, products productWriter, docs []any) error {
	if _, err := products.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("clear products: %w", err)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := products.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("insert products: %w", err)
	}
	return nil
}

// GetLot returns a single lot
func (r *MongoRepo) GetLot(ctx context.Context, lotID string) (model.Lot, error) {
	var doc lotDocument
	err := r.products.FindOne(ctx, bson.M{"_id": lotID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Lot{}, fmt.Errorf("get lot %s: %w", lotID, biddingerrors.ErrLotNotFound)
	}
	if err != nil {
		return model.Lot{}, fmt.Errorf("get lot %s: %w", lotID, err)
	}
	return doc.toModel()
}

// ListLots returns all lots ordered by category, then description
func (r *MongoRepo) ListLots(ctx context.Context) ([]model.Lot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "category", Value: 1}, {Key: "description", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.products.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list lots: %w", err)
	}
	var docs []lotDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list lots: decode: %w", err)
	}

	lots := make([]model.Lot, 0, len(docs))
	for _, doc := range docs {
		lot, err := doc.toModel()
		if err != nil {
			utils.Warn("skipping malformed lot record", map[string]any{"lot_id": doc.ID, "error": err.Error()})
			continue
		}
		lots = append(lots, lot)
	}
	return lots, nil
}

// SetLotImage records the image URL of a lot
func (r *MongoRepo) SetLotImage(ctx context.Context, lotID, imageURL string) (model.Lot, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc lotDocument
	err := r.products.FindOneAndUpdate(ctx, bson.M{"_id": lotID}, bson.M{"$set": bson.M{"imageUrl": imageURL}}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Lot{}, fmt.Errorf("set image for lot %s: %w", lotID, biddingerrors.ErrLotNotFound)
	}
	if err != nil {
		return model.Lot{}, fmt.Errorf("set image for lot %s: %w", lotID, err)
	}
	return doc.toModel()
}

// CreateBid inserts a new bid
func (r *MongoRepo) CreateBid(ctx context.Context, bid model.Bid) error {
	doc, err := bidToDocument(bid)
	if err != nil {
		return fmt.Errorf("create bid: %w", err)
	}
	if _, err := r.bids.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create bid %s: %w", bid.ID, err)
	}
	return nil
}

// GetBid returns a single bid
func (r *MongoRepo) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	var doc bidDocument
	err := r.bids.FindOne(ctx, bson.M{"_id": bidID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, err)
	}
	return doc.toModel()
}

// ListBids returns matching bids, newest first
func (r *MongoRepo) ListBids(ctx context.Context, filter model.BidFilter) ([]model.Bid, error) {
	query := bson.M{}
	if filter.UserID != "" {
		query["userId"] = filter.UserID
	}
	if filter.Status != "" {
		query["status"] = string(filter.Status)
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.bids.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("list bids: %w", err)
	}
	var docs []bidDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list bids: decode: %w", err)
	}

	bids := make([]model.Bid, 0, len(docs))
	for _, doc := range docs {
		bid, err := doc.toModel()
		if err != nil {
			utils.Warn("skipping malformed bid record", map[string]any{"bid_id": doc.ID, "error": err.Error()})
			continue
		}
		bids = append(bids, bid)
	}
	return bids, nil
}

// UpdateBidStatus sets next only if the stored status is still expected
func (r *MongoRepo) UpdateBidStatus(ctx context.Context, bidID string, expected, next model.BidStatus) (model.Bid, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc bidDocument
	err := r.bids.FindOneAndUpdate(ctx,
		bson.M{"_id": bidID, "status": string(expected)},
		bson.M{"$set": bson.M{"status": string(next)}},
		opts,
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Bid{}, r.conditionFailed(ctx, "update bid", bidID, expected)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("update bid %s: %w", bidID, err)
	}
	return doc.toModel()
}

// DeleteBidIfStatus deletes the bid only if the stored status is still expected
func (r *MongoRepo) DeleteBidIfStatus(ctx context.Context, bidID string, expected model.BidStatus) (model.Bid, error) {
	var doc bidDocument
	err := r.bids.FindOneAndDelete(ctx, bson.M{"_id": bidID, "status": string(expected)}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.Bid{}, r.conditionFailed(ctx, "delete bid", bidID, expected)
	}
	if err != nil {
		return model.Bid{}, fmt.Errorf("delete bid %s: %w", bidID, err)
	}
	return doc.toModel()
}

// conditionFailed tells a missing bid apart from one whose status moved on
func (r *MongoRepo) conditionFailed(ctx context.Context, op, bidID string, expected model.BidStatus) error {
	n, err := r.bids.CountDocuments(ctx, bson.M{"_id": bidID})
	if err != nil {
		return fmt.Errorf("%s %s: %w", op, bidID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", op, bidID, biddingerrors.ErrBidNotFound)
	}
	return fmt.Errorf("%s %s: status is no longer %s: %w", op, bidID, expected, biddingerrors.ErrStatusConflict)
}

// GetUser returns a user profile
func (r *MongoRepo) GetUser(ctx context.Context, uid string) (model.UserProfile, error) {
	var doc userDocument
	err := r.users.FindOne(ctx, bson.M{"_id": uid}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return model.UserProfile{}, fmt.Errorf("get user %s: %w", uid, biddingerrors.ErrUserNotFound)
	}
	if err != nil {
		return model.UserProfile{}, fmt.Errorf("get user %s: %w", uid, err)
	}
	return doc.toModel()
}

// UpsertUser creates or replaces a user profile
func (r *MongoRepo) UpsertUser(ctx context.Context, profile model.UserProfile) error {
	if err := model.ValidateRecord(profile); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	_, err := r.users.ReplaceOne(ctx, bson.M{"_id": profile.UID}, userToDocument(profile), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert user %s: %w", profile.UID, err)
	}
	return nil
}

// CreateAdminIfNone stores profile as an admin unless an admin already exists.
// The marker insert is the atomic step: concurrent callers race on its _id.
func (r *MongoRepo) CreateAdminIfNone(ctx context.Context, profile model.UserProfile) error {
	profile.IsAdmin = true
	if err := model.ValidateRecord(profile); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	n, err := r.users.CountDocuments(ctx, bson.M{"isAdmin": true})
	if err != nil {
		return fmt.Errorf("create admin: count admins: %w", err)
	}
	if n > 0 {
		return fmt.Errorf("create admin %s: %w", profile.UID, biddingerrors.ErrAdminExists)
	}

	if err := claimMarker(ctx, r.markers, adminMarkerID, profile.UID); err != nil {
		return fmt.Errorf("create admin %s: %w", profile.UID, err)
	}
	if err := r.UpsertUser(ctx, profile); err != nil {
		releaseMarker(ctx, r.markers, adminMarkerID)
		return fmt.Errorf("create admin: %w", err)
	}
	return nil
}

// claimMarker inserts the marker id once; a second claim fails with ErrAdminExists
func claimMarker(ctx context.Context, markers markerStore, id, owner string) error {
	_, err := markers.InsertOne(ctx, bson.M{"_id": id, "owner": owner, "claimedAt": time.Now().UTC()})
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("marker %s already claimed: %w", id, biddingerrors.ErrAdminExists)
	}
	if err != nil {
		return fmt.Errorf("claim marker %s: %w", id, err)
	}
	return nil
}

// releaseMarker undoes a claim whose follow-up write failed
func releaseMarker(ctx context.Context, markers markerStore, id string) {
	if _, err := markers.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		utils.Error("failed to release marker", map[string]any{"marker": id, "error": err.Error()})
	}
}
