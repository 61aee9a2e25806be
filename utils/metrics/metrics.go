package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Simulation outcomes
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// SweepMetrics tracks simulator and optimizer activity. A nil *SweepMetrics is valid
// and records nothing.
type SweepMetrics struct {
	Simulations        *prometheus.CounterVec
	SimulationDuration prometheus.Histogram
	GasFallbacks       prometheus.Counter
	GasPriceFallbacks  prometheus.Counter
	OracleLookups      *prometheus.CounterVec
	BestProfitUSD      *prometheus.GaugeVec
}

// NewSweepMetrics registers the sweep metrics with reg
func NewSweepMetrics(reg prometheus.Registerer, namespace string) *SweepMetrics {
	factory := promauto.With(reg)

	return &SweepMetrics{
		Simulations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "simulations_total",
			Help:      "Total number of trade simulations by outcome",
		}, []string{"outcome"}),
		SimulationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "simulation_duration_seconds",
			Help:      "Wall time of one trade simulation",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		GasFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_fallbacks_total",
			Help:      "Swap legs whose gas estimate fell back to the fixed unit count",
		}),
		GasPriceFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gas_price_fallbacks_total",
			Help:      "Simulations that used the fixed fallback gas price",
		}),
		OracleLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_lookups_total",
			Help:      "USD price lookups by the tier that answered",
		}, []string{"tier"}),
		BestProfitUSD: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "best_profit_usd",
			Help:      "Best USD profit found per scenario",
		}, []string{"scenario"}),
	}
}

// ObserveSimulation records one simulation outcome and its duration
func (m *SweepMetrics) ObserveSimulation(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.Simulations.WithLabelValues(outcome).Inc()
	m.SimulationDuration.Observe(took.Seconds())
}

// GasFallback records a leg that used the fallback gas units
func (m *SweepMetrics) GasFallback() {
	if m == nil {
		return
	}
	m.GasFallbacks.Inc()
}

// GasPriceFallback records a simulation that used the fallback gas price
func (m *SweepMetrics) GasPriceFallback() {
	if m == nil {
		return
	}
	m.GasPriceFallbacks.Inc()
}

// OracleLookup records which tier answered; "none" when no tier did
func (m *SweepMetrics) OracleLookup(tier string) {
	if m == nil {
		return
	}
	m.OracleLookups.WithLabelValues(tier).Inc()
}

// SetBestProfit records a scenario's best USD profit
func (m *SweepMetrics) SetBestProfit(scenario string, usd float64) {
	if m == nil {
		return
	}
	m.BestProfitUSD.WithLabelValues(scenario).Set(usd)
}

// Handler serves the metrics gathered by g
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
