// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace prefixes every metric when no namespace is configured.
const DefaultNamespace = "growth_wallet"

// Metrics holds all Prometheus metrics for the application.
// All Record/Set methods are safe on a nil *Metrics.
type Metrics struct {
	// Simulation metrics
	StepsTotal        *prometheus.CounterVec
	InvalidStrategies prometheus.Counter
	Resets            prometheus.Counter
	ProductSwitches   *prometheus.CounterVec
	StepDemand        prometheus.Histogram

	// State gauges
	CurrentPrice        prometheus.Gauge
	CurrentMarketDemand prometheus.Gauge
	TotalProfit         prometheus.Gauge
	WeeksRunning        prometheus.Gauge

	// Autopilot metrics
	AutopilotRunning prometheus.Gauge

	// Persistence metrics
	DBQueryDuration *prometheus.HistogramVec
	PersistErrors   *prometheus.CounterVec

	// Stream metrics
	StreamClients prometheus.Gauge
	StreamDropped prometheus.Counter
}

// NewMetrics creates a new Metrics instance registered on reg.
// A nil reg registers on the global default registry.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Simulation metrics
		StepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "steps_total",
			Help:      "Total number of committed strategy applications",
		}, []string{"strategy", "source"}),
		InvalidStrategies: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "invalid_strategies_total",
			Help:      "Total number of rejected unknown strategy names",
		}),
		Resets: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "resets_total",
			Help:      "Total number of simulation resets",
		}),
		ProductSwitches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "product_selections_total",
			Help:      "Total number of product selections by product",
		}, []string{"product"}),
		StepDemand: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "simulation",
			Name:      "step_demand",
			Help:      "Demand multiplier computed per step",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.75, 1, 1.25, 1.5, 1.75, 2},
		}),

		// State gauges
		CurrentPrice: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "price",
			Help:      "Current unit price of the active product",
		}),
		CurrentMarketDemand: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "market_demand",
			Help:      "Current market sentiment multiplier",
		}),
		TotalProfit: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "total_profit",
			Help:      "Saturating cumulative profit of the active session",
		}),
		WeeksRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "state",
			Name:      "weeks_running",
			Help:      "Number of simulated weeks in the active session",
		}),

		// Autopilot metrics
		AutopilotRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "autopilot",
			Name:      "running",
			Help:      "1 while the autopilot is enabled",
		}),

		// Persistence metrics
		DBQueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"store", "operation"}),
		PersistErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "persist_errors_total",
			Help:      "Total number of failed writes after a committed step",
		}, []string{"store"}),

		// Stream metrics
		StreamClients: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "clients",
			Help:      "Number of connected websocket clients",
		}),
		StreamDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "dropped_messages_total",
			Help:      "Messages dropped for slow websocket clients",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint on the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// HandlerFor returns an HTTP handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordStep records a committed step and refreshes the state gauges.
func (m *Metrics) RecordStep(strategy, source string, demand, price, marketDemand, totalProfit float64, weeks int) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(strategy, source).Inc()
	m.StepDemand.Observe(demand)
	m.SetState(price, marketDemand, totalProfit, weeks)
}

// SetState updates the state gauges.
func (m *Metrics) SetState(price, marketDemand, totalProfit float64, weeks int) {
	if m == nil {
		return
	}
	m.CurrentPrice.Set(price)
	m.CurrentMarketDemand.Set(marketDemand)
	m.TotalProfit.Set(totalProfit)
	m.WeeksRunning.Set(float64(weeks))
}

// RecordInvalidStrategy increments the rejected strategy counter.
func (m *Metrics) RecordInvalidStrategy() {
	if m == nil {
		return
	}
	m.InvalidStrategies.Inc()
}

// RecordReset increments the reset counter.
func (m *Metrics) RecordReset() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}

// RecordProductSelected increments the product selection counter.
func (m *Metrics) RecordProductSelected(productID string) {
	if m == nil {
		return
	}
	m.ProductSwitches.WithLabelValues(productID).Inc()
}

// SetAutopilotRunning sets the autopilot gauge.
func (m *Metrics) SetAutopilotRunning(running bool) {
	if m == nil {
		return
	}
	if running {
		m.AutopilotRunning.Set(1)
	} else {
		m.AutopilotRunning.Set(0)
	}
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(store, operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.DBQueryDuration.WithLabelValues(store, operation).Observe(seconds)
	if err != nil {
		m.PersistErrors.WithLabelValues(store).Inc()
	}
}

// SetStreamClients sets the connected websocket client gauge.
func (m *Metrics) SetStreamClients(n int) {
	if m == nil {
		return
	}
	m.StreamClients.Set(float64(n))
}

// RecordStreamDropped increments the dropped message counter.
func (m *Metrics) RecordStreamDropped() {
	if m == nil {
		return
	}
	m.StreamDropped.Inc()
}
