package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
)

// OrderItem snapshots a purchased product at checkout time.
type OrderItem struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_order_items_order_product"`
	ProductID      uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_order_items_order_product"`
	Kind           enums.ProductKind `gorm:"column:kind;type:product_kind;not null"`
	Title          string            `gorm:"column:title;not null"`
	UnitPriceCents int64             `gorm:"column:unit_price_cents;not null"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime"`
}
