package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the application.
type Metrics struct {
	ApplicationsSubmitted prometheus.Counter
	ContractsCreated      prometheus.Counter
	PaymentsConfirmed     *prometheus.CounterVec
	NotificationsEmitted  prometheus.Counter
	CallbackFailures      *prometheus.CounterVec
	RequestDuration       *prometheus.HistogramVec
}

// New creates and registers all collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ApplicationsSubmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "covergate_applications_submitted_total",
			Help: "Total number of insurance applications submitted",
		}),
		ContractsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "covergate_contracts_created_total",
			Help: "Total number of contracts minted from approved applications",
		}),
		PaymentsConfirmed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "covergate_payments_confirmed_total",
			Help: "Total number of contract activations by payment path",
		}, []string{"method"}),
		NotificationsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "covergate_notifications_emitted_total",
			Help: "Total number of lifecycle notifications emitted",
		}),
		CallbackFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "covergate_payment_callback_failures_total",
			Help: "Payment callback rejections by reason",
		}, []string{"reason"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "covergate_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
}

// ObserveRequest records one HTTP request observation.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(method, path, statusClass(status)).Observe(d.Seconds())
}

// statusClass collapses statuses into classes to keep label cardinality low.
func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
