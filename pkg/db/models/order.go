package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
)

// Order represents a checkout purchase moving through the payment lifecycle.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID              *uuid.UUID          `gorm:"column:user_id;type:uuid;index"`
	BuyerEmail          string              `gorm:"column:buyer_email;type:text;not null"`
	BuyerName           string              `gorm:"column:buyer_name;type:text;not null"`
	BuyerDocument       string              `gorm:"column:buyer_document;type:text;not null"`
	Status              enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:payment_method;not null"`
	ChargeID            *string             `gorm:"column:charge_id;uniqueIndex:idx_orders_charge_id"`
	AmountCents         int64               `gorm:"column:amount_cents;not null"`
	Currency            string              `gorm:"column:currency;type:text;not null;default:'BRL'"`
	EntitlementsPending bool                `gorm:"column:entitlements_pending;not null;default:false"`
	PixPayload          *string             `gorm:"column:pix_payload"`
	PixExpiresAt        *time.Time          `gorm:"column:pix_expires_at"`
	BoletoLine          *string             `gorm:"column:boleto_line"`
	BoletoURL           *string             `gorm:"column:boleto_url"`
	BoletoDueDate       *time.Time          `gorm:"column:boleto_due_date"`
	CompletedAt         *time.Time          `gorm:"column:completed_at"`
	CanceledAt          *time.Time          `gorm:"column:canceled_at"`
	CancelReason        *string             `gorm:"column:cancel_reason"`
	Items               []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusEvents        []StatusEvent       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
