package checkout

import (
	"context"
	"fmt"
	"strings"

	"github.com/danielmoraes/lecto-backend/internal/catalog"
	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/internal/identity"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/danielmoraes/lecto-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service executes checkout orchestration: price, persist, charge,
// settle what can be settled synchronously.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*CheckoutResult, error)
	RetryCharge(ctx context.Context, orderID uuid.UUID) (*CheckoutResult, error)
}

type service struct {
	tx         txRunner
	ordersRepo orders.Repository
	ordersSvc  orders.Service
	catalogSvc catalog.Service
	gateway    gateway.Adapter
	identity   identity.Service
	outbox     outboxPublisher
	logg       *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	tx txRunner,
	ordersRepo orders.Repository,
	ordersSvc orders.Service,
	catalogSvc catalog.Service,
	gatewayAdapter gateway.Adapter,
	identitySvc identity.Service,
	publisher outboxPublisher,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if catalogSvc == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if gatewayAdapter == nil {
		return nil, fmt.Errorf("gateway adapter required")
	}
	if identitySvc == nil {
		return nil, fmt.Errorf("identity service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		tx:         tx,
		ordersRepo: ordersRepo,
		ordersSvc:  ordersSvc,
		catalogSvc: catalogSvc,
		gateway:    gatewayAdapter,
		identity:   identitySvc,
		outbox:     publisher,
		logg:       logg,
	}, nil
}

// Create prices the cart, persists the order before any gateway call,
// then charges through the buyer's rail. A gateway outage leaves the
// order PENDING with no charge reference; RetryCharge picks those up.
func (s *service) Create(ctx context.Context, input CreateInput) (*CheckoutResult, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	items, total, err := s.catalogSvc.PriceItems(ctx, input.ProductIDs)
	if err != nil {
		return nil, err
	}

	order, err := s.persistOrder(ctx, input, items, total)
	if err != nil {
		return nil, err
	}

	result, err := s.chargeOrder(ctx, order, input.Card)
	if err != nil {
		return nil, err
	}

	if order.UserID == nil {
		s.elevateGuest(ctx, order, input, result)
	}
	return result, nil
}

// RetryCharge re-issues the gateway charge for an order that never got
// one. Orders that already carry a charge reference are reconciled by
// webhooks and the poller instead.
func (s *service) RetryCharge(ctx context.Context, orderID uuid.UUID) (*CheckoutResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.ordersRepo.FindOrderWithItems(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "order not found")
	}
	if order.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already settled")
	}
	if order.ChargeID != nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order already has a charge")
	}
	if order.PaymentMethod == enums.PaymentMethodCreditCard {
		// Card data is never stored, so a card order cannot be
		// re-charged server side.
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "card orders require a new checkout")
	}
	return s.chargeOrder(ctx, order, nil)
}

func validateCreateInput(input CreateInput) error {
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if len(input.ProductIDs) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item required")
	}
	if input.PaymentMethod == enums.PaymentMethodCreditCard && input.Card == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "card details required")
	}
	if input.UserID == nil {
		if strings.TrimSpace(input.Email) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "email required for guest checkout")
		}
		if strings.TrimSpace(input.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "name required for guest checkout")
		}
	}
	if strings.TrimSpace(input.Document) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "document required")
	}
	return nil
}

func (s *service) persistOrder(ctx context.Context, input CreateInput, items []catalog.PricedItem, total int64) (*models.Order, error) {
	order := &models.Order{
		ID:            uuid.New(),
		UserID:        input.UserID,
		BuyerEmail:    strings.ToLower(strings.TrimSpace(input.Email)),
		BuyerName:     strings.TrimSpace(input.Name),
		BuyerDocument: strings.TrimSpace(input.Document),
		Status:        enums.OrderStatusPending,
		PaymentMethod: input.PaymentMethod,
		AmountCents:   total,
		Currency:      "BRL",
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)
		if _, err := repo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, item := range items {
			orderItems = append(orderItems, models.OrderItem{
				ID:             uuid.New(),
				OrderID:        order.ID,
				ProductID:      item.ProductID,
				Kind:           item.Kind,
				Title:          item.Title,
				UnitPriceCents: item.UnitPriceCents,
			})
		}
		if err := repo.CreateOrderItems(ctx, orderItems); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Email: order.BuyerEmail},
			Data: payloads.OrderCreatedEvent{
				OrderID:       order.ID,
				UserID:        order.UserID,
				BuyerEmail:    order.BuyerEmail,
				PaymentMethod: order.PaymentMethod,
				AmountCents:   order.AmountCents,
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) chargeOrder(ctx context.Context, order *models.Order, card *gateway.CardDetails) (*CheckoutResult, error) {
	charge, err := s.gateway.Charge(ctx, gateway.ChargeRequest{Order: order, Card: card})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodePaymentDeclined {
			if declineErr := s.recordDecline(ctx, order, typed); declineErr != nil {
				return nil, declineErr
			}
		}
		return nil, err
	}

	if err := s.storeChargeDetails(ctx, order, charge); err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		OrderID:       order.ID,
		Status:        order.Status,
		PaymentMethod: order.PaymentMethod,
		AmountCents:   order.AmountCents,
		Currency:      order.Currency,
	}

	switch order.PaymentMethod {
	case enums.PaymentMethodCreditCard:
		transition, err := s.ordersSvc.Transition(ctx, orders.TransitionInput{
			OrderID:       order.ID,
			Target:        charge.Outcome.OrderStatus(),
			Source:        enums.StatusEventSourceSync,
			ChargeID:      charge.ChargeID,
			GatewayStatus: charge.GatewayStatus,
		})
		if err != nil {
			return nil, err
		}
		if transition.Applied {
			*order = *transition.Order
		}
		result.Status = order.Status
		result.Card = &CardResult{Outcome: charge.Outcome, GatewayStatus: charge.GatewayStatus}
	case enums.PaymentMethodPix:
		if charge.Pix != nil {
			result.Pix = &PixResult{
				Payload:      charge.Pix.Payload,
				EncodedImage: charge.Pix.EncodedImage,
				ExpiresAt:    charge.Pix.ExpiresAt,
			}
		}
	case enums.PaymentMethodBoleto:
		if charge.Boleto != nil {
			result.Boleto = &BoletoResult{
				DigitableLine: charge.Boleto.DigitableLine,
				SlipURL:       charge.Boleto.SlipURL,
				DueDate:       charge.Boleto.DueDate,
			}
		}
	}
	return result, nil
}

// storeChargeDetails pins the charge reference and, for async rails,
// the payment instructions onto the order row.
func (s *service) storeChargeDetails(ctx context.Context, order *models.Order, charge *gateway.ChargeResponse) error {
	updates := map[string]any{"charge_id": charge.ChargeID}
	if charge.Pix != nil {
		updates["pix_payload"] = charge.Pix.Payload
		if charge.Pix.ExpiresAt != nil {
			updates["pix_expires_at"] = *charge.Pix.ExpiresAt
		}
	}
	if charge.Boleto != nil {
		updates["boleto_line"] = charge.Boleto.DigitableLine
		updates["boleto_url"] = charge.Boleto.SlipURL
		updates["boleto_due_date"] = charge.Boleto.DueDate
	}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.ordersRepo.WithTx(tx).UpdateOrder(ctx, order.ID, updates)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store charge details")
	}
	chargeID := charge.ChargeID
	order.ChargeID = &chargeID
	return nil
}

// recordDecline cancels the order off a synchronous card refusal and
// leaves the decline reason in the audit trail.
func (s *service) recordDecline(ctx context.Context, order *models.Order, declineErr *pkgerrors.Error) error {
	transition, err := s.ordersSvc.Transition(ctx, orders.TransitionInput{
		OrderID: order.ID,
		Target:  enums.OrderStatusCanceled,
		Source:  enums.StatusEventSourceSync,
		Reason:  declineErr.Message(),
	})
	if err != nil {
		return err
	}
	if transition.Applied {
		*order = *transition.Order
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		event := outbox.DomainEvent{
			EventType:     enums.EventPaymentDeclined,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Email: order.BuyerEmail},
			Data: payloads.PaymentDeclinedEvent{
				OrderID: order.ID,
				Reason:  declineErr.Message(),
			},
		}
		return s.outbox.Emit(ctx, tx, event)
	})
	if err != nil && s.logg != nil {
		s.logg.Error(ctx, "decline event emit failed", err)
	}
	return nil
}

// elevateGuest attaches an account after the charge. Failures land in
// the result instead of an error: the order and its charge reference
// already exist and must reach the buyer.
func (s *service) elevateGuest(ctx context.Context, order *models.Order, input CreateInput, result *CheckoutResult) {
	elevation, err := s.identity.ElevateGuest(ctx, identity.ElevateInput{
		OrderID:  order.ID,
		Email:    input.Email,
		Name:     input.Name,
		Document: input.Document,
	})
	if err != nil {
		result.IdentityError = "account creation failed; your order and payment are safe"
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String()})
			s.logg.Error(logCtx, "guest elevation failed", err)
		}
		return
	}
	result.SessionToken = elevation.SessionToken
	userID := elevation.UserID
	order.UserID = &userID
}
