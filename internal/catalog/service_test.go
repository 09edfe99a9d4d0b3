package catalog

import (
	"context"
	"testing"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	products := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  kind TEXT NOT NULL,
  title TEXT NOT NULL,
  slug TEXT NOT NULL UNIQUE,
  author_name TEXT NOT NULL,
  price_cents INTEGER NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(products).Error)
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, kind enums.ProductKind, title, slug string, priceCents int64, active bool) *models.Product {
	t.Helper()

	now := time.Now().UTC()
	product := &models.Product{
		ID:         uuid.New(),
		Kind:       kind,
		Title:      title,
		Slug:       slug,
		AuthorName: "Autor Teste",
		PriceCents: priceCents,
		IsActive:   active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

func newCatalogService(t *testing.T, db *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(NewRepository(db))
	require.NoError(t, err)
	return svc
}

func TestPriceItemsSnapshotsCanonicalPrices(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	course := seedProduct(t, db, enums.ProductKindCourse, "Curso de Go", "curso-go", 19900, true)
	ebook := seedProduct(t, db, enums.ProductKindEbook, "Go em 30 Dias", "go-30-dias", 4990, true)

	items, total, err := svc.PriceItems(ctx, []uuid.UUID{course.ID, ebook.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(24890), total)
	assert.Equal(t, course.ID, items[0].ProductID)
	assert.Equal(t, int64(19900), items[0].UnitPriceCents)
	assert.Equal(t, enums.ProductKindEbook, items[1].Kind)
}

func TestPriceItemsRejectsInactiveAndUnknown(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	retired := seedProduct(t, db, enums.ProductKindPaper, "Artigo Retirado", "artigo-retirado", 1500, false)

	_, _, err := svc.PriceItems(ctx, []uuid.UUID{retired.ID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())

	_, _, err = svc.PriceItems(ctx, []uuid.UUID{uuid.New()})
	require.Error(t, err)

	_, _, err = svc.PriceItems(ctx, nil)
	require.Error(t, err)
}

func TestPriceItemsRejectsDuplicates(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	course := seedProduct(t, db, enums.ProductKindCourse, "Curso Duplicado", "curso-duplicado", 9900, true)

	_, _, err := svc.PriceItems(ctx, []uuid.UUID{course.ID, course.ID})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestCurrentPrice(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	ebook := seedProduct(t, db, enums.ProductKindEbook, "Precificado", "precificado", 2990, true)

	price, err := svc.CurrentPrice(ctx, ebook.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2990), price)

	_, err = svc.CurrentPrice(ctx, uuid.New())
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestExists(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := newCatalogService(t, db)
	ctx := context.Background()

	paper := seedProduct(t, db, enums.ProductKindPaper, "Existente", "existente", 1200, true)

	ok, err := svc.Exists(ctx, paper.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
