package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics tracks payment webhook deliveries by disposition.
type WebhookMetrics struct {
	received  *prometheus.CounterVec
	duplicate prometheus.Counter
	unknown   prometheus.Counter
	rejected  prometheus.Counter
}

// NewWebhookMetrics registers the webhook counters on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	received := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhook_received",
		Help: "Payment webhook deliveries by gateway event type.",
	}, []string{"event"})
	duplicate := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_duplicate",
		Help: "Webhook deliveries skipped by the idempotency guard.",
	})
	unknown := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_unknown_charge",
		Help: "Webhook deliveries referencing no known charge.",
	})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payment_webhook_rejected_transition",
		Help: "Webhook deliveries whose status change was rejected by the order lifecycle.",
	})
	reg.MustRegister(received, duplicate, unknown, rejected)
	return &WebhookMetrics{
		received:  received,
		duplicate: duplicate,
		unknown:   unknown,
		rejected:  rejected,
	}
}

// IncReceived counts a delivery for the given gateway event type.
func (w *WebhookMetrics) IncReceived(event string) {
	if w == nil || w.received == nil {
		return
	}
	w.received.WithLabelValues(normalizeLabel(event)).Inc()
}

// IncDuplicate counts a delivery short-circuited by the idempotency guard.
func (w *WebhookMetrics) IncDuplicate() {
	if w == nil || w.duplicate == nil {
		return
	}
	w.duplicate.Inc()
}

// IncUnknownCharge counts a delivery for a charge we have no order for.
func (w *WebhookMetrics) IncUnknownCharge() {
	if w == nil || w.unknown == nil {
		return
	}
	w.unknown.Inc()
}

// IncRejectedTransition counts a delivery recorded as audit-only.
func (w *WebhookMetrics) IncRejectedTransition() {
	if w == nil || w.rejected == nil {
		return
	}
	w.rejected.Inc()
}
