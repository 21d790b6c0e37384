package observability

import (
	"fmt"
	"math"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type moduleMetrics struct {
	requests  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	throttles *prometheus.CounterVec
}

var (
	moduleMetricsOnce sync.Once
	moduleRegistry    *moduleMetrics

	chainMetricsOnce sync.Once
	chainRegistry    *ChainMetrics
)

// ModuleMetrics returns the lazily-initialised registry used to record
// JSON-RPC method activity.
func ModuleMetrics() *moduleMetrics {
	moduleMetricsOnce.Do(func() {
		moduleRegistry = &moduleMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "rpc",
				Name:      "requests_total",
				Help:      "Total JSON-RPC requests segmented by module, method and outcome.",
			}, []string{"module", "method", "outcome"}),
			errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "rpc",
				Name:      "errors_total",
				Help:      "Total JSON-RPC errors segmented by module, method and error code.",
			}, []string{"module", "method", "code"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "sellerchain",
				Subsystem: "rpc",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for JSON-RPC handlers.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"module", "method"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "rpc",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by rate limits or authentication.",
			}, []string{"module", "reason"}),
		}
		prometheus.MustRegister(
			moduleRegistry.requests,
			moduleRegistry.errors,
			moduleRegistry.latency,
			moduleRegistry.throttles,
		)
	})
	return moduleRegistry
}

// Observe records the outcome of a request. A zero code means success;
// anything else is the JSON-RPC error code written to the client.
func (m *moduleMetrics) Observe(module, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	outcome := "success"
	if code != 0 {
		outcome = "error"
		m.errors.WithLabelValues(module, method, fmt.Sprintf("%d", code)).Inc()
	}
	m.requests.WithLabelValues(module, method, outcome).Inc()
	m.latency.WithLabelValues(module, method).Observe(duration.Seconds())
}

// RecordThrottle increments the throttle counter for the supplied module and
// reason. Reasons should be stable strings such as "rate_limit" or
// "unauthorized" so dashboards and alerts remain consistent.
func (m *moduleMetrics) RecordThrottle(module, reason string) {
	if m == nil {
		return
	}
	if module == "" {
		module = "unknown"
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(module, reason).Inc()
}

// ChainMetrics tracks the sequential transaction log.
type ChainMetrics struct {
	height    prometheus.Gauge
	applied   *prometheus.CounterVec
	rejected  *prometheus.CounterVec
	applyTime prometheus.Histogram
	burned    prometheus.Counter
}

// Chain exposes the metrics registry for node level instrumentation.
func Chain() *ChainMetrics {
	chainMetricsOnce.Do(func() {
		chainRegistry = &ChainMetrics{
			height: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "sellerchain",
				Subsystem: "chain",
				Name:      "height",
				Help:      "Height of the last committed transaction.",
			}),
			applied: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "chain",
				Name:      "transactions_total",
				Help:      "Executed transactions segmented by receipt status.",
			}, []string{"status"}),
			rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "chain",
				Name:      "rejected_total",
				Help:      "Transactions rejected before execution segmented by reason.",
			}, []string{"reason"}),
			applyTime: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "sellerchain",
				Subsystem: "chain",
				Name:      "apply_duration_seconds",
				Help:      "Time spent applying and committing a transaction.",
				Buckets:   prometheus.DefBuckets,
			}),
			burned: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "chain",
				Name:      "fees_burned_total",
				Help:      "Native units burned as transaction fees.",
			}),
		}
		prometheus.MustRegister(
			chainRegistry.height,
			chainRegistry.applied,
			chainRegistry.rejected,
			chainRegistry.applyTime,
			chainRegistry.burned,
		)
	})
	return chainRegistry
}

// RecordApplied records an executed transaction committed at height.
func (m *ChainMetrics) RecordApplied(height uint64, success bool, fee *big.Int, took time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "failed"
	}
	m.height.Set(float64(height))
	m.applied.WithLabelValues(status).Inc()
	m.applyTime.Observe(took.Seconds())
	m.burned.Add(BigToFloat(fee))
}

// RecordRejected counts a transaction refused before execution.
func (m *ChainMetrics) RecordRejected(reason string) {
	if m == nil {
		return
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	m.rejected.WithLabelValues(reason).Inc()
}

// BigToFloat converts value for use as a metric sample, returning 0 where
// the conversion is not representable.
func BigToFloat(value *big.Int) float64 {
	if value == nil {
		return 0
	}
	floatVal, acc := new(big.Float).SetInt(value).Float64()
	if acc != big.Exact {
		if math.IsNaN(floatVal) || math.IsInf(floatVal, 0) {
			return 0
		}
	}
	return floatVal
}
