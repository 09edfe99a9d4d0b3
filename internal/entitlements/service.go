package entitlements

import (
	"context"
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

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service delivers purchased products to the buyer's account exactly
// once per (order, product) pair.
type Service interface {
	GrantForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error
}

type service struct {
	repo   Repository
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService builds an entitlement service.
func NewService(repo Repository, outboxSvc outboxPublisher, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("entitlements repository required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, outbox: outboxSvc, logg: logg}, nil
}

// GrantForOrder inserts one grant per order item inside the caller's
// transaction and applies the per-kind side effect. Every step checks
// for an existing row first and tolerates the unique index as a race
// backstop, so replays and partial retries converge on the same state.
func (s *service) GrantForOrder(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if order == nil || order.ID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order required")
	}
	if order.UserID == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no attached user")
	}
	userID := *order.UserID

	repo := s.repo.WithTx(tx)
	items, err := repo.FindOrderItems(ctx, order.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
	}
	if len(items) == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "order has no items to deliver")
	}

	for _, item := range items {
		granted, err := s.grantItem(ctx, repo, order, userID, item)
		if err != nil {
			return err
		}
		if !granted {
			continue
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventEntitlementGranted,
			AggregateType: enums.AggregateEntitlement,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         &outbox.ActorRef{UserID: order.UserID, Email: order.BuyerEmail},
			Data: payloads.EntitlementGrantedEvent{
				OrderID:   order.ID,
				UserID:    userID,
				ProductID: item.ProductID,
				Kind:      item.Kind,
				GrantedAt: time.Now().UTC(),
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit entitlement event")
		}
	}

	if order.EntitlementsPending {
		if err := repo.ClearEntitlementsPending(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear pending flag")
		}
	}
	return nil
}

// grantItem returns true when this call created the grant, false when a
// previous delivery already had.
func (s *service) grantItem(ctx context.Context, repo Repository, order *models.Order, userID uuid.UUID, item models.OrderItem) (bool, error) {
	exists, err := repo.GrantExists(ctx, order.ID, item.ProductID)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing grant")
	}
	granted := false
	if !exists {
		grant := &models.EntitlementGrant{
			OrderID:   order.ID,
			ProductID: item.ProductID,
			UserID:    userID,
			Kind:      item.Kind,
		}
		if err := repo.InsertGrant(ctx, grant); err != nil {
			if !db.IsUniqueViolation(err, "idx_entitlement_grants_order_product") {
				return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert grant")
			}
		} else {
			granted = true
		}
	}

	switch item.Kind {
	case enums.ProductKindCourse:
		if err := s.ensureEnrolled(ctx, repo, userID, item.ProductID); err != nil {
			return false, err
		}
	default:
		if err := s.ensureUnlocked(ctx, repo, userID, item.ProductID, item.Kind); err != nil {
			return false, err
		}
	}

	if granted && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":   order.ID.String(),
			"product_id": item.ProductID.String(),
			"kind":       item.Kind,
		})
		s.logg.Info(logCtx, "entitlement granted")
	}
	return granted, nil
}

func (s *service) ensureEnrolled(ctx context.Context, repo Repository, userID, courseID uuid.UUID) error {
	exists, err := repo.EnrollmentExists(ctx, userID, courseID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check enrollment")
	}
	if exists {
		return nil
	}
	enrollment := &models.Enrollment{UserID: userID, CourseID: courseID}
	if err := repo.InsertEnrollment(ctx, enrollment); err != nil {
		if db.IsUniqueViolation(err, "idx_enrollments_user_course") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert enrollment")
	}
	return nil
}

func (s *service) ensureUnlocked(ctx context.Context, repo Repository, userID, productID uuid.UUID, kind enums.ProductKind) error {
	exists, err := repo.LibraryAccessExists(ctx, userID, productID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check library access")
	}
	if exists {
		return nil
	}
	access := &models.LibraryAccess{UserID: userID, ProductID: productID, Kind: kind}
	if err := repo.InsertLibraryAccess(ctx, access); err != nil {
		if db.IsUniqueViolation(err, "idx_library_access_user_product") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert library access")
	}
	return nil
}
