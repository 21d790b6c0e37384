package observability

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"sellerchain/core/types"
)

type eventMetrics struct {
	emitted   *prometheus.CounterVec
	transfers *prometheus.CounterVec
}

var (
	eventMetricsOnce sync.Once
	eventRegistry    *eventMetrics
)

// Events returns the metrics registry tracking events surfaced in receipts.
func Events() *eventMetrics {
	eventMetricsOnce.Do(func() {
		eventRegistry = &eventMetrics{
			emitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "events",
				Name:      "emitted_total",
				Help:      "Count of committed events segmented by type.",
			}, []string{"type"}),
			transfers: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "sellerchain",
				Subsystem: "events",
				Name:      "transfers_total",
				Help:      "Count of native and token transfers segmented by asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(eventRegistry.emitted, eventRegistry.transfers)
	})
	return eventRegistry
}

// Observe counts every event of a committed receipt.
func (m *eventMetrics) Observe(evts []types.Event) {
	if m == nil {
		return
	}
	for _, evt := range evts {
		m.emitted.WithLabelValues(evt.Type).Inc()
		switch evt.Type {
		case "transfer.native":
			m.RecordTransfer(evt.Attributes["asset"])
		case "token.transfer":
			m.RecordTransfer("token")
		}
	}
}

// RecordTransfer increments the transfer counter for the supplied asset ticker.
func (m *eventMetrics) RecordTransfer(asset string) {
	if m == nil {
		return
	}
	normalized := strings.TrimSpace(strings.ToUpper(asset))
	if normalized == "" {
		normalized = "UNKNOWN"
	}
	m.transfers.WithLabelValues(normalized).Inc()
}
