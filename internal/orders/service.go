package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/db"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/outbox"
	"github.com/danielmoraes/lecto-backend/pkg/outbox/payloads"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const grantSavepoint = "entitlement_grant"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// EntitlementGranter delivers purchased items once an order completes.
type EntitlementGranter interface {
	GrantForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

// TransitionInput describes one reported status change for an order.
type TransitionInput struct {
	OrderID        uuid.UUID
	Target         enums.OrderStatus
	Source         enums.StatusEventSource
	ChargeID       string
	GatewayStatus  string
	GatewayEventID string
	Reason         string
	RawPayload     json.RawMessage
}

// TransitionResult reports how a transition attempt was recorded.
type TransitionResult struct {
	Applied bool
	Order   *models.Order
	Event   models.StatusEvent
}

// Service defines order-level operations beyond repository reads.
type Service interface {
	Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error)
	ApplyTransition(ctx context.Context, tx *gorm.DB, input TransitionInput) (*TransitionResult, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	grants EntitlementGranter
	logg   *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, grants EntitlementGranter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if grants == nil {
		return nil, fmt.Errorf("entitlement granter required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outboxSvc,
		grants: grants,
		logg:   logg,
	}, nil
}

// Transition runs ApplyTransition in its own transaction.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*TransitionResult, error) {
	var result *TransitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		applied, err := s.ApplyTransition(ctx, tx, input)
		if err != nil {
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyTransition records the reported status change inside the caller's
// transaction. The order row is locked first, so concurrent reports of
// the same settlement serialize and the loser sees the already-applied
// status. Illegal and duplicate reports are recorded as rejected audit
// entries and do not error: the caller acknowledged a fact, the
// lifecycle just refuses to move backwards.
func (s *service) ApplyTransition(ctx context.Context, tx *gorm.DB, input TransitionInput) (*TransitionResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if !input.Target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid target status")
	}
	if !input.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid transition source")
	}

	repo := s.repo.WithTx(tx)
	order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	event := models.StatusEvent{
		OrderID:    order.ID,
		FromStatus: order.Status,
		ToStatus:   input.Target,
		Source:     input.Source,
	}
	if input.GatewayStatus != "" {
		event.GatewayStatus = &input.GatewayStatus
	}
	if input.GatewayEventID != "" {
		event.GatewayEventID = &input.GatewayEventID
	}
	if input.ChargeID != "" {
		event.ChargeID = &input.ChargeID
	}
	if input.Reason != "" {
		event.Reason = &input.Reason
	}
	if len(input.RawPayload) > 0 {
		event.RawPayload = input.RawPayload
	}

	if !order.Status.CanTransitionTo(input.Target) {
		event.Result = enums.StatusEventResultRejected
		if event.Reason == nil {
			reason := rejectionReason(order.Status, input.Target)
			event.Reason = &reason
		}
		if err := repo.AppendStatusEvent(ctx, &event); err != nil {
			if db.IsUniqueViolation(err, "idx_status_events_order_gateway_event") {
				return &TransitionResult{Applied: false, Order: order, Event: event}, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rejected transition")
		}
		rejectedEvent := outbox.DomainEvent{
			EventType:     enums.EventTransitionRejected,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         actorForOrder(order),
			Data: payloads.TransitionRejectedEvent{
				OrderID:    order.ID,
				FromStatus: order.Status,
				ToStatus:   input.Target,
				Source:     input.Source,
				Reason:     *event.Reason,
				OccurredAt: time.Now().UTC(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, rejectedEvent); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit rejected transition event")
		}
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"order_id":    order.ID.String(),
				"from_status": order.Status,
				"to_status":   input.Target,
				"source":      input.Source,
			})
			s.logg.Warn(logCtx, "order transition rejected")
		}
		return &TransitionResult{Applied: false, Order: order, Event: event}, nil
	}

	event.Result = enums.StatusEventResultApplied
	if err := repo.AppendStatusEvent(ctx, &event); err != nil {
		// The (order_id, gateway_event_id) index catches a replayed
		// delivery that slipped past the idempotency guard.
		if db.IsUniqueViolation(err, "idx_status_events_order_gateway_event") {
			event.Result = enums.StatusEventResultRejected
			return &TransitionResult{Applied: false, Order: order, Event: event}, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transition")
	}

	updates := map[string]any{"status": input.Target}
	now := time.Now().UTC()
	switch input.Target {
	case enums.OrderStatusCompleted:
		updates["completed_at"] = now
	case enums.OrderStatusCanceled:
		updates["canceled_at"] = now
		if input.Reason != "" {
			updates["cancel_reason"] = input.Reason
		}
	}
	if input.ChargeID != "" && order.ChargeID == nil {
		updates["charge_id"] = input.ChargeID
	}

	if input.Target == enums.OrderStatusCompleted {
		if order.UserID == nil {
			// No account attached yet (guest checkout with a failed or
			// still-running identity step). The retry job delivers once
			// a user exists.
			updates["entitlements_pending"] = true
		}
	}

	if err := repo.UpdateOrder(ctx, order.ID, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}

	prior := order.Status
	order.Status = input.Target
	switch input.Target {
	case enums.OrderStatusCompleted:
		order.CompletedAt = &now
		if order.UserID == nil {
			order.EntitlementsPending = true
		}
	case enums.OrderStatusCanceled:
		order.CanceledAt = &now
	}

	if err := s.emitLifecycleEvents(ctx, tx, order, prior, input); err != nil {
		return nil, err
	}

	if input.Target == enums.OrderStatusCompleted && order.UserID != nil {
		// The completion stands either way. Postgres aborts the whole
		// transaction after any SQL error, so the grant runs inside a
		// savepoint: a failed grant rolls back to it, gets flagged and
		// is delivered by the retry sweep.
		if err := tx.SavePoint(grantSavepoint).Error; err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create grant savepoint")
		}
		if err := s.grants.GrantForOrder(ctx, tx, order); err != nil {
			if rbErr := tx.RollbackTo(grantSavepoint).Error; rbErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, rbErr, "roll back grant savepoint")
			}
			if s.logg != nil {
				logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String()})
				s.logg.Error(logCtx, "entitlement grant failed", err)
			}
			if flagErr := repo.UpdateOrder(ctx, order.ID, map[string]any{"entitlements_pending": true}); flagErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, flagErr, "flag entitlements pending")
			}
			order.EntitlementsPending = true
		}
	}

	return &TransitionResult{Applied: true, Order: order, Event: event}, nil
}

func (s *service) emitLifecycleEvents(ctx context.Context, tx *gorm.DB, order *models.Order, from enums.OrderStatus, input TransitionInput) error {
	statusEvent := outbox.DomainEvent{
		EventType:     lifecycleEventType(input.Target),
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Version:       1,
		Actor:         actorForOrder(order),
		Data: payloads.OrderStatusChangedEvent{
			OrderID:    order.ID,
			FromStatus: from,
			ToStatus:   input.Target,
			Source:     input.Source,
			ChargeID:   input.ChargeID,
			OccurredAt: time.Now().UTC(),
		},
	}
	// Lifecycle events are single-shot per order even when the same
	// settlement is reported by more than one channel.
	return s.outbox.EmitIfNotExists(ctx, tx, statusEvent)
}

func lifecycleEventType(target enums.OrderStatus) enums.OutboxEventType {
	switch target {
	case enums.OrderStatusProcessing:
		return enums.EventOrderProcessing
	case enums.OrderStatusCompleted:
		return enums.EventOrderCompleted
	default:
		return enums.EventOrderCanceled
	}
}

func actorForOrder(order *models.Order) *outbox.ActorRef {
	if order == nil {
		return nil
	}
	return &outbox.ActorRef{UserID: order.UserID, Email: order.BuyerEmail}
}

func rejectionReason(from, to enums.OrderStatus) string {
	if from == to {
		return "duplicate report of current status"
	}
	if from.IsTerminal() {
		return fmt.Sprintf("order already %s", from)
	}
	return fmt.Sprintf("backward transition %s -> %s", from, to)
}

// GetOrder returns the order with its items and full audit trail.
func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindOrderWithItems(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return buildOrderDetail(order), nil
}
