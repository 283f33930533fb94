package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics counts delivery outcomes per event type.
type WebhookMetrics struct {
	delivered *prometheus.CounterVec
	retried   *prometheus.CounterVec
	failed    *prometheus.CounterVec
}

// NewWebhookMetrics registers webhook delivery metrics on the registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	delivered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_delivered",
		Help: "Webhook deliveries acknowledged by the subscriber.",
	}, []string{"event_type"})
	retried := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_retried",
		Help: "Webhook delivery attempts that were rescheduled.",
	}, []string{"event_type"})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_failed",
		Help: "Webhook deliveries that exhausted their attempts.",
	}, []string{"event_type"})
	reg.MustRegister(delivered, retried, failed)
	return &WebhookMetrics{delivered: delivered, retried: retried, failed: failed}
}

func (m *WebhookMetrics) IncDelivered(eventType string) {
	if m == nil || m.delivered == nil {
		return
	}
	m.delivered.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *WebhookMetrics) IncRetried(eventType string) {
	if m == nil || m.retried == nil {
		return
	}
	m.retried.WithLabelValues(normalizeLabel(eventType)).Inc()
}

func (m *WebhookMetrics) IncFailed(eventType string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(eventType)).Inc()
}
