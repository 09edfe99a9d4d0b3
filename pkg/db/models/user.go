package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents the canonical identity entity. Accounts created on the
// fly during guest checkout start with CreatedFromCheckout set.
type User struct {
	ID                  uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email               string     `gorm:"type:text;not null;uniqueIndex"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	Name                string     `gorm:"column:name;not null"`
	Document            *string    `gorm:"column:document"`
	IsActive            bool       `gorm:"column:is_active;not null;default:true"`
	CreatedFromCheckout bool       `gorm:"column:created_from_checkout;not null;default:false"`
	LastLoginAt         *time.Time `gorm:"column:last_login_at"`
	CreatedAt           time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
