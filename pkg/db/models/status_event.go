package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/danielmoraes/lecto-backend/pkg/enums"
)

// StatusEvent is one append-only entry in an order's audit trail. Every
// reported transition lands here, including the ones rejected by the
// lifecycle rules.
type StatusEvent struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	FromStatus     enums.OrderStatus       `gorm:"column:from_status;type:order_status;not null"`
	ToStatus       enums.OrderStatus       `gorm:"column:to_status;type:order_status;not null"`
	Source         enums.StatusEventSource `gorm:"column:source;type:status_event_source;not null"`
	Result         enums.StatusEventResult `gorm:"column:result;type:status_event_result;not null"`
	GatewayStatus  *string                 `gorm:"column:gateway_status"`
	GatewayEventID *string                 `gorm:"column:gateway_event_id"`
	ChargeID       *string                 `gorm:"column:charge_id"`
	Reason         *string                 `gorm:"column:reason"`
	RawPayload     json.RawMessage         `gorm:"column:raw_payload;type:jsonb"`
	CreatedAt      time.Time               `gorm:"column:created_at;autoCreateTime"`
}
