package paymentswebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/asaas"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	pkgerrors "github.com/danielmoraes/lecto-backend/pkg/errors"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/danielmoraes/lecto-backend/pkg/metrics"
	"github.com/danielmoraes/lecto-backend/pkg/redis"
	"gorm.io/gorm"
)

const idempotencyScope = "payment_webhook"

type ordersLookup interface {
	FindOrderByChargeID(ctx context.Context, chargeID string) (*models.Order, error)
}

type transitioner interface {
	Transition(ctx context.Context, input orders.TransitionInput) (*orders.TransitionResult, error)
}

type classifier interface {
	Classify(event *asaas.WebhookEvent) (*gateway.Classification, error)
	VerifyWebhookToken(token string) bool
}

// Disposition reports how a delivery was handled. The endpoint returns
// 200 for everything except authentication and malformed payloads, so
// the gateway stops retrying deliveries we can never use.
type Disposition string

const (
	DispositionApplied       Disposition = "applied"
	DispositionRejected      Disposition = "rejected"
	DispositionDuplicate     Disposition = "duplicate"
	DispositionUnknownCharge Disposition = "unknown_charge"
)

// Service consumes gateway payment webhooks.
type Service struct {
	ordersRepo  ordersLookup
	ordersSvc   transitioner
	gateway     classifier
	idempotency redis.IdempotencyStore
	eventTTL    time.Duration
	metrics     *metrics.WebhookMetrics
	logg        *logger.Logger
}

// ServiceParams wires the webhook service dependencies.
type ServiceParams struct {
	OrdersRepo  ordersLookup
	OrdersSvc   transitioner
	Gateway     classifier
	Idempotency redis.IdempotencyStore
	EventTTL    time.Duration
	Metrics     *metrics.WebhookMetrics
	Logger      *logger.Logger
}

// NewService builds the payment webhook service.
func NewService(params ServiceParams) (*Service, error) {
	if params.OrdersRepo == nil {
		return nil, fmt.Errorf("orders lookup required")
	}
	if params.OrdersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if params.Gateway == nil {
		return nil, fmt.Errorf("gateway classifier required")
	}
	ttl := params.EventTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{
		ordersRepo:  params.OrdersRepo,
		ordersSvc:   params.OrdersSvc,
		gateway:     params.Gateway,
		idempotency: params.Idempotency,
		eventTTL:    ttl,
		metrics:     params.Metrics,
		logg:        params.Logger,
	}, nil
}

// VerifyToken checks the access token the gateway sends with each
// delivery.
func (s *Service) VerifyToken(token string) bool {
	return s.gateway.VerifyWebhookToken(token)
}

// HandleEvent applies one gateway delivery to its order. Redeliveries
// of the same event id short-circuit on the idempotency guard; below
// that, the order row lock and the transition table make a replayed
// status report a recorded no-op anyway.
func (s *Service) HandleEvent(ctx context.Context, event *asaas.WebhookEvent) (Disposition, error) {
	if event == nil || event.ID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}
	s.metrics.IncReceived(event.Event)

	if s.idempotency != nil {
		key := s.idempotency.IdempotencyKey(idempotencyScope, event.ID)
		fresh, err := s.idempotency.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), s.eventTTL)
		if err != nil {
			// Redis being down must not drop settlements; fall through
			// to the database-level guard.
			if s.logg != nil {
				s.logg.Warn(ctx, "webhook idempotency guard unavailable")
			}
		} else if !fresh {
			s.metrics.IncDuplicate()
			return DispositionDuplicate, nil
		}
	}

	classification, err := s.gateway.Classify(event)
	if err != nil {
		return "", err
	}

	order, err := s.ordersRepo.FindOrderByChargeID(ctx, classification.ChargeID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up charge")
		}
		s.metrics.IncUnknownCharge()
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"charge_id": classification.ChargeID,
				"event":     event.Event,
			})
			s.logg.Warn(logCtx, "webhook for unknown charge")
		}
		return DispositionUnknownCharge, nil
	}

	result, err := s.ordersSvc.Transition(ctx, orders.TransitionInput{
		OrderID:        order.ID,
		Target:         classification.Outcome.OrderStatus(),
		Source:         enums.StatusEventSourceWebhook,
		ChargeID:       classification.ChargeID,
		GatewayStatus:  classification.GatewayStatus,
		GatewayEventID: event.ID,
		RawPayload:     classification.Raw,
	})
	if err != nil {
		return "", err
	}
	if !result.Applied {
		s.metrics.IncRejectedTransition()
		return DispositionRejected, nil
	}
	return DispositionApplied, nil
}
