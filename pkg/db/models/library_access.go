package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
)

// LibraryAccess unlocks a paper or e-book in a user's library.
type LibraryAccess struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_library_access_user_product"`
	ProductID  uuid.UUID         `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_library_access_user_product"`
	Kind       enums.ProductKind `gorm:"column:kind;type:product_kind;not null"`
	UnlockedAt time.Time         `gorm:"column:unlocked_at;autoCreateTime"`
}

// TableName matches the singular table created by the init_schema migration.
func (LibraryAccess) TableName() string { return "library_access" }
