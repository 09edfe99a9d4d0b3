package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateEntitlement OutboxAggregateType = "entitlement"
	AggregateUser        OutboxAggregateType = "user"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateEntitlement,
	AggregateUser,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderProcessing    OutboxEventType = "order_processing"
	EventOrderCompleted     OutboxEventType = "order_completed"
	EventOrderCanceled      OutboxEventType = "order_canceled"
	EventPaymentDeclined    OutboxEventType = "payment_declined"
	EventEntitlementGranted OutboxEventType = "entitlement_granted"
	EventGuestAccountLinked OutboxEventType = "guest_account_linked"
	EventTransitionRejected OutboxEventType = "transition_rejected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderProcessing,
	EventOrderCompleted,
	EventOrderCanceled,
	EventPaymentDeclined,
	EventEntitlementGranted,
	EventGuestAccountLinked,
	EventTransitionRejected,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// OutboxDLQErrorReason categorizes why an event landed in the DLQ.
type OutboxDLQErrorReason string

const (
	DLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts_exceeded"
	DLQReasonBadPayload   OutboxDLQErrorReason = "bad_payload"
	DLQReasonPublishError OutboxDLQErrorReason = "publish_error"
)

var validDLQErrorReasons = []OutboxDLQErrorReason{
	DLQReasonMaxAttempts,
	DLQReasonBadPayload,
	DLQReasonPublishError,
}

// IsValid reports whether the value is a known OutboxDLQErrorReason.
func (r OutboxDLQErrorReason) IsValid() bool {
	for _, candidate := range validDLQErrorReasons {
		if candidate == r {
			return true
		}
	}
	return false
}
