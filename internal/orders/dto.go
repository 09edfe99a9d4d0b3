package orders

import (
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	"github.com/google/uuid"
)

// OrderItemView is the item snapshot returned with an order.
type OrderItemView struct {
	ProductID      uuid.UUID         `json:"product_id"`
	Kind           enums.ProductKind `json:"kind"`
	Title          string            `json:"title"`
	UnitPriceCents int64             `json:"unit_price_cents"`
}

// StatusEventView is one audit trail entry in API form.
type StatusEventView struct {
	FromStatus    enums.OrderStatus       `json:"from_status"`
	ToStatus      enums.OrderStatus       `json:"to_status"`
	Source        enums.StatusEventSource `json:"source"`
	Result        enums.StatusEventResult `json:"result"`
	GatewayStatus *string                 `json:"gateway_status,omitempty"`
	Reason        *string                 `json:"reason,omitempty"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// PaymentInstructions carries the rail-specific data a buyer needs to
// finish an async payment.
type PaymentInstructions struct {
	PixPayload    *string    `json:"pix_payload,omitempty"`
	PixExpiresAt  *time.Time `json:"pix_expires_at,omitempty"`
	BoletoLine    *string    `json:"boleto_line,omitempty"`
	BoletoURL     *string    `json:"boleto_url,omitempty"`
	BoletoDueDate *time.Time `json:"boleto_due_date,omitempty"`
}

// OrderDetail is the full order view returned by the status endpoint.
type OrderDetail struct {
	ID            uuid.UUID            `json:"id"`
	UserID        *uuid.UUID           `json:"user_id,omitempty"`
	BuyerEmail    string               `json:"buyer_email"`
	Status        enums.OrderStatus    `json:"status"`
	PaymentMethod enums.PaymentMethod  `json:"payment_method"`
	AmountCents   int64                `json:"amount_cents"`
	Currency      string               `json:"currency"`
	ChargeID      *string              `json:"charge_id,omitempty"`
	Items         []OrderItemView      `json:"items"`
	History       []StatusEventView    `json:"history"`
	Instructions  *PaymentInstructions `json:"payment_instructions,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	CompletedAt   *time.Time           `json:"completed_at,omitempty"`
	CanceledAt    *time.Time           `json:"canceled_at,omitempty"`
}

func buildOrderDetail(order *models.Order) *OrderDetail {
	detail := &OrderDetail{
		ID:            order.ID,
		UserID:        order.UserID,
		BuyerEmail:    order.BuyerEmail,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		AmountCents:   order.AmountCents,
		Currency:      order.Currency,
		ChargeID:      order.ChargeID,
		CreatedAt:     order.CreatedAt,
		CompletedAt:   order.CompletedAt,
		CanceledAt:    order.CanceledAt,
	}

	for _, item := range order.Items {
		detail.Items = append(detail.Items, OrderItemView{
			ProductID:      item.ProductID,
			Kind:           item.Kind,
			Title:          item.Title,
			UnitPriceCents: item.UnitPriceCents,
		})
	}

	for _, event := range order.StatusEvents {
		detail.History = append(detail.History, StatusEventView{
			FromStatus:    event.FromStatus,
			ToStatus:      event.ToStatus,
			Source:        event.Source,
			Result:        event.Result,
			GatewayStatus: event.GatewayStatus,
			Reason:        event.Reason,
			OccurredAt:    event.CreatedAt,
		})
	}

	// Instructions only matter while the rail can still settle.
	if order.PaymentMethod.IsAsync() && !order.Status.IsTerminal() {
		detail.Instructions = &PaymentInstructions{
			PixPayload:    order.PixPayload,
			PixExpiresAt:  order.PixExpiresAt,
			BoletoLine:    order.BoletoLine,
			BoletoURL:     order.BoletoURL,
			BoletoDueDate: order.BoletoDueDate,
		}
	}

	return detail
}
