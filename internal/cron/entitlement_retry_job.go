package cron

import (
	"context"
	"fmt"

	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/logger"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

type pendingGrantsFinder interface {
	FindEntitlementsPending(ctx context.Context, limit int) ([]models.Order, error)
}

type granter interface {
	GrantForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// EntitlementRetryJob re-delivers grants for completed orders flagged
// entitlements_pending: guest purchases waiting for an account and
// completions whose grant write failed.
type EntitlementRetryJob struct {
	repo      pendingGrantsFinder
	grants    granter
	tx        txRunner
	batchSize int
	logg      *logger.Logger
}

// NewEntitlementRetryJob wires the grant retry sweep.
func NewEntitlementRetryJob(repo pendingGrantsFinder, grants granter, tx txRunner, batchSize int, logg *logger.Logger) (*EntitlementRetryJob, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if grants == nil {
		return nil, fmt.Errorf("entitlements service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &EntitlementRetryJob{
		repo:      repo,
		grants:    grants,
		tx:        tx,
		batchSize: batchSize,
		logg:      logg,
	}, nil
}

// Name implements Job.
func (j *EntitlementRetryJob) Name() string { return "entitlement-retry" }

// Run grants pending entitlements order by order, each in its own
// transaction so one bad order cannot block the rest of the batch.
func (j *EntitlementRetryJob) Run(ctx context.Context) error {
	pending, err := j.repo.FindEntitlementsPending(ctx, j.batchSize)
	if err != nil {
		return fmt.Errorf("list pending grants: %w", err)
	}

	var errs error
	for i := range pending {
		order := pending[i]
		logCtx := ctx
		if j.logg != nil {
			logCtx = j.logg.WithOrderID(ctx, order.ID.String())
		}

		if order.UserID == nil {
			// Guest order still waiting for an account. The flag
			// stays set until identity elevation attaches a user.
			continue
		}

		err := j.tx.WithTx(logCtx, func(tx *gorm.DB) error {
			return j.grants.GrantForOrder(logCtx, tx, &order)
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("order %s: %w", order.ID, err))
			continue
		}
		if j.logg != nil {
			j.logg.Info(logCtx, "pending entitlements delivered")
		}
	}
	return errs
}
