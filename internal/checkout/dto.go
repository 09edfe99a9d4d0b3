package checkout

import (
	"time"

	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	"github.com/google/uuid"
)

// CreateInput is the validated checkout request. UserID is set for
// authenticated buyers; guests supply email, name and document instead.
type CreateInput struct {
	UserID        *uuid.UUID
	Email         string
	Name          string
	Document      string
	PaymentMethod enums.PaymentMethod
	ProductIDs    []uuid.UUID
	Card          *gateway.CardDetails
}

// CardResult reports the synchronous card verdict.
type CardResult struct {
	Outcome       enums.PaymentOutcome `json:"outcome"`
	GatewayStatus string               `json:"gateway_status"`
}

// PixResult carries the QR code the buyer pays with.
type PixResult struct {
	Payload      string     `json:"payload"`
	EncodedImage string     `json:"encoded_image"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
}

// BoletoResult carries the bank-slip data.
type BoletoResult struct {
	DigitableLine string    `json:"digitable_line"`
	SlipURL       string    `json:"slip_url"`
	DueDate       time.Time `json:"due_date"`
}

// CheckoutResult is discriminated by payment method: exactly one of
// Card, Pix or Boleto is set.
type CheckoutResult struct {
	OrderID       uuid.UUID            `json:"order_id"`
	Status        enums.OrderStatus    `json:"status"`
	PaymentMethod enums.PaymentMethod  `json:"payment_method"`
	AmountCents   int64                `json:"amount_cents"`
	Currency      string               `json:"currency"`
	Card          *CardResult          `json:"card,omitempty"`
	Pix           *PixResult           `json:"pix,omitempty"`
	Boleto        *BoletoResult        `json:"boleto,omitempty"`
	SessionToken  string               `json:"session_token,omitempty"`
	IdentityError string               `json:"identity_error,omitempty"`
}
