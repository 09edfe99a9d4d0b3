package orders

import (
	"context"
	"time"

	"github.com/danielmoraes/lecto-backend/pkg/db/models"
	"github.com/danielmoraes/lecto-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository defines persistence operations for order tables.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderItems(ctx context.Context, items []models.OrderItem) error
	FindOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderWithItems(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindOrderByChargeID(ctx context.Context, chargeID string) (*models.Order, error)
	FindOrderItems(ctx context.Context, orderID uuid.UUID) ([]models.OrderItem, error)
	ListStatusEvents(ctx context.Context, orderID uuid.UUID) ([]models.StatusEvent, error)
	AppendStatusEvent(ctx context.Context, event *models.StatusEvent) error
	UpdateOrder(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
	FindUnsettledBefore(ctx context.Context, method enums.PaymentMethod, cutoff time.Time, limit int) ([]models.Order, error)
	FindEntitlementsPending(ctx context.Context, limit int) ([]models.Order, error)
}
