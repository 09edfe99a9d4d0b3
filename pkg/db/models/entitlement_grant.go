package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
)

// EntitlementGrant records that a paid order item was delivered to a user.
// The (order_id, product_id) unique index is the exactly-once anchor: a
// second grant attempt for the same pair hits the constraint instead of
// handing out the product twice.
type EntitlementGrant struct {
	ID        uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID   uuid.UUID         `gorm:"column:order_id;type:uuid;not null;uniqueIndex:idx_entitlement_grants_order_product"`
	ProductID uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_entitlement_grants_order_product"`
	UserID    uuid.UUID         `gorm:"column:user_id;type:uuid;not null;index"`
	Kind      enums.ProductKind `gorm:"column:kind;type:product_kind;not null"`
	GrantedAt time.Time         `gorm:"column:granted_at;autoCreateTime"`
}
