package enums

import "fmt"

// PaymentOutcome is the normalized verdict extracted from a gateway
// status, regardless of whether it arrived via webhook, poll, or a
// synchronous charge response.
type PaymentOutcome string

const (
	PaymentOutcomePaid     PaymentOutcome = "paid"
	PaymentOutcomePending  PaymentOutcome = "pending"
	PaymentOutcomeDeclined PaymentOutcome = "declined"
	PaymentOutcomeExpired  PaymentOutcome = "expired"
	PaymentOutcomeRefunded PaymentOutcome = "refunded"
	PaymentOutcomeCanceled PaymentOutcome = "canceled"
)

var validPaymentOutcomes = []PaymentOutcome{
	PaymentOutcomePaid,
	PaymentOutcomePending,
	PaymentOutcomeDeclined,
	PaymentOutcomeExpired,
	PaymentOutcomeRefunded,
	PaymentOutcomeCanceled,
}

// String implements fmt.Stringer.
func (p PaymentOutcome) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentOutcome.
func (p PaymentOutcome) IsValid() bool {
	for _, candidate := range validPaymentOutcomes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsFinal reports whether the outcome resolves the charge. Pending is
// the only non-final outcome.
func (p PaymentOutcome) IsFinal() bool {
	return p != PaymentOutcomePending
}

// OrderStatus maps the outcome to the order status it drives toward.
// Pending maps to processing: the charge is accepted but unsettled.
func (p PaymentOutcome) OrderStatus() OrderStatus {
	switch p {
	case PaymentOutcomePaid:
		return OrderStatusCompleted
	case PaymentOutcomePending:
		return OrderStatusProcessing
	default:
		return OrderStatusCanceled
	}
}

// ParsePaymentOutcome converts raw input into a PaymentOutcome.
func ParsePaymentOutcome(value string) (PaymentOutcome, error) {
	for _, candidate := range validPaymentOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment outcome %q", value)
}
