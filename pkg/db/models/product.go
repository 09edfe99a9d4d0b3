package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
)

// Product represents a sellable catalog listing.
type Product struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Kind       enums.ProductKind `gorm:"column:kind;type:product_kind;not null"`
	Title      string            `gorm:"column:title;not null"`
	Slug       string            `gorm:"column:slug;not null;uniqueIndex"`
	AuthorName string            `gorm:"column:author_name;not null"`
	PriceCents int64             `gorm:"column:price_cents;not null"`
	IsActive   bool              `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
