package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// GatewayFlowTotal counts orchestrated payment flow outcomes.
	GatewayFlowTotal *prometheus.CounterVec
	// GatewayCallDuration records latency of individual gateway API calls in milliseconds.
	GatewayCallDuration *prometheus.HistogramVec
	// WebhookIngestTotal counts inbound gateway webhook ingest outcomes.
	WebhookIngestTotal *prometheus.CounterVec
	// TokenLifecycleTotal counts token capture, list and delete outcomes.
	TokenLifecycleTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		GatewayFlowTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_flow_total",
			Help:      "Count of payment flow outcomes by flow and result.",
		}, []string{"flow", "result"})
		GatewayCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_ms",
			Help:      "Latency of gateway API calls in milliseconds.",
			Buckets:   []float64{25, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 60000},
		}, []string{"operation"})
		WebhookIngestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_ingest_total",
			Help:      "Count of gateway webhook ingest outcomes.",
		}, []string{"result"})
		TokenLifecycleTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_lifecycle_total",
			Help:      "Count of token lifecycle operation outcomes.",
		}, []string{"operation", "result"})

		registerOrGet(reg, GatewayFlowTotal)
		registerOrGet(reg, GatewayCallDuration)
		registerOrGet(reg, WebhookIngestTotal)
		registerOrGet(reg, TokenLifecycleTotal)
	})
}
