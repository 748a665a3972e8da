package catalog

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"deals-portal/internal/access"
	"deals-portal/internal/biddingerrors"
	model "deals-portal/internal/models"
	"deals-portal/internal/objectstore"
	"deals-portal/internal/repository"
	"deals-portal/utils"
)

// CatalogService manages product lots. Reads are open to any authenticated
// user; mutations require the admin capability.
type CatalogService struct {
	lots   repository.LotStore
	images objectstore.ImageStore
}

// NewCatalogService creates a CatalogService
func NewCatalogService(lots repository.LotStore, images objectstore.ImageStore) *CatalogService {
	return &CatalogService{lots: lots, images: images}
}

// ReplaceLots swaps the whole catalog for lots. Rows without an id get one.
// Every row is checked before anything is deleted.
func (s *CatalogService) ReplaceLots(ctx context.Context, actor access.Identity, lots []model.Lot) ([]model.Lot, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return nil, fmt.Errorf("catalog: replace lots: %w", err)
	}

	seen := make(map[string]bool, len(lots))
	prepared := make([]model.Lot, 0, len(lots))
	for i, lot := range lots {
		if lot.ID == "" {
			lot.ID = utils.GenerateID()
		}
		if seen[lot.ID] {
			return nil, fmt.Errorf("catalog: row %d: duplicate lot id %s: %w", i+1, lot.ID, biddingerrors.ErrMalformedRecord)
		}
		seen[lot.ID] = true
		if err := model.ValidateRecord(lot); err != nil {
			return nil, fmt.Errorf("catalog: row %d: %w", i+1, err)
		}
		prepared = append(prepared, lot)
	}

	if err := s.lots.ReplaceLots(ctx, prepared); err != nil {
		return nil, fmt.Errorf("catalog: replace lots: %w", err)
	}
	repository.SortLots(prepared)
	return prepared, nil
}

// AttachImage uploads an image for a lot and records its URL on the lot.
// The stored type is sniffed from the bytes; the declared type only has to agree
// that the upload is an image.
func (s *CatalogService) AttachImage(ctx context.Context, actor access.Identity, lotID, filename, contentType string, body io.Reader) (model.Lot, error) {
	if err := access.RequireAdmin(actor); err != nil {
		return model.Lot{}, fmt.Errorf("catalog: attach image: %w", err)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return model.Lot{}, fmt.Errorf("catalog: attach image: content type %q: %w", contentType, biddingerrors.ErrMalformedRecord)
	}
	if _, err := s.lots.GetLot(ctx, lotID); err != nil {
		return model.Lot{}, fmt.Errorf("catalog: attach image: %w", err)
	}
	contentType, body, err := objectstore.SniffImage(body)
	if err != nil {
		return model.Lot{}, fmt.Errorf("catalog: attach image: %v: %w", err, biddingerrors.ErrMalformedRecord)
	}

	key := path.Join("products", lotID, path.Base("/"+filename))
	url, err := s.images.Put(ctx, key, contentType, body)
	if err != nil {
		return model.Lot{}, fmt.Errorf("catalog: attach image: %w", err)
	}

	lot, err := s.lots.SetLotImage(ctx, lotID, url)
	if err != nil {
		return model.Lot{}, fmt.Errorf("catalog: attach image: %w", err)
	}
	return lot, nil
}

// ListLots returns the catalog ordered by category
func (s *CatalogService) ListLots(ctx context.Context, actor access.Identity) ([]model.Lot, error) {
	if err := access.RequireAuthenticated(actor); err != nil {
		return nil, fmt.Errorf("catalog: list lots: %w", err)
	}
	lots, err := s.lots.ListLots(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: list lots: %w", err)
	}
	return lots, nil
}

// Categories returns the distinct lot categories in order
func (s *CatalogService) Categories(ctx context.Context, actor access.Identity) ([]string, error) {
	lots, err := s.ListLots(ctx, actor)
	if err != nil {
		return nil, err
	}
	categories := make([]string, 0)
	for _, lot := range lots {
		if n := len(categories); n == 0 || categories[n-1] != lot.Category {
			categories = append(categories, lot.Category)
		}
	}
	return categories, nil
}

// GetLot returns a single lot
func (s *CatalogService) GetLot(ctx context.Context, actor access.Identity, lotID string) (model.Lot, error) {
	if err := access.RequireAuthenticated(actor); err != nil {
		return model.Lot{}, fmt.Errorf("catalog: get lot: %w", err)
	}
	lot, err := s.lots.GetLot(ctx, lotID)
	if err != nil {
		return model.Lot{}, fmt.Errorf("catalog: get lot: %w", err)
	}
	return lot, nil
}
