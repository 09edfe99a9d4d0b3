package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/danielmoraes/lecto-backend/internal/checkout"
	"github.com/danielmoraes/lecto-backend/internal/gateway"
	"github.com/danielmoraes/lecto-backend/internal/orders"
	"github.com/danielmoraes/lecto-backend/pkg/config"
	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

type unsettledFinder interface {
	FindUnsettledBefore(ctx context.Context, method enums.PaymentMethod, cutoff time.Time, limit int) ([]models.Order, error)
}

type statusPoller interface {
	PollStatus(ctx context.Context, chargeID string) (*gateway.Classification, error)
}

type transitioner interface {
	Transition(ctx context.Context, input orders.TransitionInput) (*orders.TransitionResult, error)
}

type chargeRetrier interface {
	RetryCharge(ctx context.Context, orderID uuid.UUID) (*checkout.CheckoutResult, error)
}

// PaymentReconcileJob polls the gateway for orders whose webhook never
// arrived and feeds the results through the same transition path.
type PaymentReconcileJob struct {
	repo    unsettledFinder
	poller  statusPoller
	orders  transitioner
	retrier chargeRetrier
	cfg     config.ReconcileConfig
	logg    *logger.Logger
}

// NewPaymentReconcileJob wires the reconciliation sweep.
func NewPaymentReconcileJob(
	repo unsettledFinder,
	poller statusPoller,
	ordersSvc transitioner,
	retrier chargeRetrier,
	cfg config.ReconcileConfig,
	logg *logger.Logger,
) (*PaymentReconcileJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if poller == nil {
		return nil, fmt.Errorf("gateway poller required")
	}
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if retrier == nil {
		return nil, fmt.Errorf("charge retrier required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &PaymentReconcileJob{
		repo:    repo,
		poller:  poller,
		orders:  ordersSvc,
		retrier: retrier,
		cfg:     cfg,
		logg:    logg,
	}, nil
}

// Name implements Job.
func (j *PaymentReconcileJob) Name() string { return "payment-reconcile" }

// Run sweeps each rail with its own pending-age threshold. The rails
// settle on very different clocks: a card charge answers in seconds,
// a boleto can sit unpaid for days.
func (j *PaymentReconcileJob) Run(ctx context.Context) error {
	now := time.Now().UTC()
	rails := []struct {
		method enums.PaymentMethod
		age    time.Duration
	}{
		{enums.PaymentMethodCreditCard, j.cfg.CardAge},
		{enums.PaymentMethodPix, j.cfg.PixAge},
		{enums.PaymentMethodBoleto, j.cfg.BoletoAge},
	}

	var errs error
	for _, rail := range rails {
		if err := j.sweepRail(ctx, rail.method, now.Add(-rail.age)); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("sweep %s: %w", rail.method, err))
		}
	}
	return errs
}

func (j *PaymentReconcileJob) sweepRail(ctx context.Context, method enums.PaymentMethod, cutoff time.Time) error {
	stale, err := j.repo.FindUnsettledBefore(ctx, method, cutoff, j.cfg.BatchSize)
	if err != nil {
		return fmt.Errorf("list unsettled orders: %w", err)
	}

	var errs error
	for _, order := range stale {
		if err := j.reconcileOrder(ctx, order); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
		}
	}
	return errs
}

func (j *PaymentReconcileJob) reconcileOrder(ctx context.Context, order models.Order) error {
	logCtx := ctx
	if j.logg != nil {
		logCtx = j.logg.WithOrderID(ctx, order.ID.String())
	}

	if order.ChargeID == nil || *order.ChargeID == "" {
		// Charge creation failed during checkout. Card orders are
		// skipped: the card data was never stored, so only a fresh
		// checkout can retry them.
		if order.PaymentMethod == enums.PaymentMethodCreditCard {
			if j.logg != nil {
				j.logg.Warn(logCtx, "stale card order without charge, manual follow-up required")
			}
			return nil
		}
		if _, err := j.retrier.RetryCharge(logCtx, order.ID); err != nil {
			return fmt.Errorf("retry charge: %w", err)
		}
		return nil
	}

	classification, err := j.poller.PollStatus(logCtx, *order.ChargeID)
	if err != nil {
		return fmt.Errorf("poll gateway: %w", err)
	}
	if classification.Outcome == enums.PaymentOutcomePending {
		// Nothing settled yet; the next sweep retries.
		return nil
	}

	result, err := j.orders.Transition(logCtx, orders.TransitionInput{
		OrderID:       order.ID,
		Target:        classification.Outcome.OrderStatus(),
		Source:        enums.StatusEventSourcePoll,
		ChargeID:      classification.ChargeID,
		GatewayStatus: classification.GatewayStatus,
		Reason:        fmt.Sprintf("reconciled from gateway status %s", classification.GatewayStatus),
		RawPayload:    classification.Raw,
	})
	if err != nil {
		return fmt.Errorf("apply transition: %w", err)
	}
	if j.logg != nil && result.Applied {
		j.logg.Info(j.logg.WithField(logCtx, "target", result.Order.Status.String()), "order reconciled from poll")
	}
	return nil
}
