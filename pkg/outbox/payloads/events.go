package payloads

import (
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderCreatedEvent signals a fresh checkout with its charge reference.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	UserID        *uuid.UUID          `json:"user_id,omitempty"`
	BuyerEmail    string              `json:"buyer_email"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	AmountCents   int64               `json:"amount_cents"`
	ChargeID      string              `json:"charge_id,omitempty"`
}

// OrderStatusChangedEvent is emitted for every applied transition.
type OrderStatusChangedEvent struct {
	OrderID    uuid.UUID               `json:"order_id"`
	FromStatus enums.OrderStatus       `json:"from_status"`
	ToStatus   enums.OrderStatus       `json:"to_status"`
	Source     enums.StatusEventSource `json:"source"`
	ChargeID   string                  `json:"charge_id,omitempty"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// TransitionRejectedEvent surfaces a reported status change the
// lifecycle refused, for operator alerting.
type TransitionRejectedEvent struct {
	OrderID    uuid.UUID               `json:"order_id"`
	FromStatus enums.OrderStatus       `json:"from_status"`
	ToStatus   enums.OrderStatus       `json:"to_status"`
	Source     enums.StatusEventSource `json:"source"`
	Reason     string                  `json:"reason,omitempty"`
	OccurredAt time.Time               `json:"occurred_at"`
}

// PaymentDeclinedEvent reports a synchronous card decline.
type PaymentDeclinedEvent struct {
	OrderID       uuid.UUID `json:"order_id"`
	ChargeID      string    `json:"charge_id,omitempty"`
	GatewayStatus string    `json:"gateway_status"`
	Reason        string    `json:"reason,omitempty"`
}

// EntitlementGrantedEvent surfaces one delivered order item.
type EntitlementGrantedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	UserID    uuid.UUID         `json:"user_id"`
	ProductID uuid.UUID         `json:"product_id"`
	Kind      enums.ProductKind `json:"kind"`
	GrantedAt time.Time         `json:"granted_at"`
}

// GuestAccountLinkedEvent reports that a checkout-created account was
// attached to its order after the charge went through.
type GuestAccountLinkedEvent struct {
	OrderID uuid.UUID `json:"order_id"`
	UserID  uuid.UUID `json:"user_id"`
	Email   string    `json:"email"`
}
