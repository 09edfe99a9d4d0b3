package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PricedItem snapshots the canonical price of one catalog product.
// Checkout copies these onto the order; client-supplied prices are
// never trusted.
type PricedItem struct {
	ProductID      uuid.UUID
	Kind           enums.ProductKind
	Title          string
	UnitPriceCents int64
}

// Service exposes the catalog reads checkout depends on.
type Service interface {
	PriceItems(ctx context.Context, productIDs []uuid.UUID) ([]PricedItem, int64, error)
	CurrentPrice(ctx context.Context, productID uuid.UUID) (int64, error)
	Exists(ctx context.Context, productID uuid.UUID) (bool, error)
}

type service struct {
	repo Repository
}

// NewService builds a catalog service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// PriceItems resolves every requested product to its active catalog
// entry. Any unknown, inactive or duplicated id fails the whole batch.
func (s *service) PriceItems(ctx context.Context, productIDs []uuid.UUID) ([]PricedItem, int64, error) {
	if len(productIDs) == 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	seen := make(map[uuid.UUID]bool, len(productIDs))
	for _, id := range productIDs {
		if id == uuid.Nil {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if seen[id] {
			return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in cart").
				WithDetails(map[string]any{"product_id": id.String()})
		}
		seen[id] = true
	}

	products, err := s.repo.FindActiveByIDs(ctx, productIDs)
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load catalog products")
	}
	byID := make(map[uuid.UUID]int, len(products))
	for i, p := range products {
		byID[p.ID] = i
	}

	items := make([]PricedItem, 0, len(productIDs))
	var total int64
	var missing []string
	for _, id := range productIDs {
		idx, ok := byID[id]
		if !ok {
			missing = append(missing, id.String())
			continue
		}
		p := products[idx]
		items = append(items, PricedItem{
			ProductID:      p.ID,
			Kind:           p.Kind,
			Title:          p.Title,
			UnitPriceCents: p.PriceCents,
		})
		total += p.PriceCents
	}
	if len(missing) > 0 {
		return nil, 0, pkgerrors.New(pkgerrors.CodeValidation, "unknown or inactive products").
			WithDetails(map[string]any{"product_ids": missing})
	}
	return items, total, nil
}

func (s *service) CurrentPrice(ctx context.Context, productID uuid.UUID) (int64, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return 0, pkgerrors.New(pkgerrors.CodeNotFound, "product not available")
	}
	return product.PriceCents, nil
}

func (s *service) Exists(ctx context.Context, productID uuid.UUID) (bool, error) {
	_, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return true, nil
}
