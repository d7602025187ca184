package keeper

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the market engine.
type Metrics struct {
	ListingsRegistered prometheus.Counter
	ListingsActive     prometheus.Gauge

	RequestsCreated   prometheus.Counter
	RequestsSettled   *prometheus.CounterVec // path: confirmed | timeout
	RequestsCancelled prometheus.Counter
	RequestsOpen      prometheus.Gauge

	ValueHeld     prometheus.Gauge
	ValueReleased prometheus.Counter
	ValueRefunded prometheus.Counter

	RejectedOperations *prometheus.CounterVec // reason label
}

var (
	metricsOnce sync.Once
	metrics     *Metrics
)

// NewMetrics creates and registers the engine metrics (singleton: the default
// registry rejects duplicate registration across keepers in tests).
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			ListingsRegistered: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "listings_registered_total",
				Help:      "Total listings registered",
			}),
			ListingsActive: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "listings_active",
				Help:      "Listings currently purchasable",
			}),
			RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "requests_created_total",
				Help:      "Total escrow requests created",
			}),
			RequestsSettled: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "requests_settled_total",
				Help:      "Total requests settled to the provider",
			}, []string{"path"}),
			RequestsCancelled: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "requests_cancelled_total",
				Help:      "Total requests cancelled and refunded",
			}),
			RequestsOpen: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "requests_open",
				Help:      "Requests currently holding escrow",
			}),
			ValueHeld: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "value_held",
				Help:      "Value currently held in escrow custody",
			}),
			ValueReleased: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "value_released_total",
				Help:      "Total value released to providers",
			}),
			ValueRefunded: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "value_refunded_total",
				Help:      "Total value refunded to buyers",
			}),
			RejectedOperations: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "agora",
				Subsystem: "market",
				Name:      "rejected_operations_total",
				Help:      "Operations rejected with no state change",
			}, []string{"reason"}),
		}
	})
	return metrics
}
