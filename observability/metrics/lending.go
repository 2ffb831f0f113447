package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"lendledger/core/events"
)

// LendingMetrics exposes the prometheus instruments for the lending ledger.
type LendingMetrics struct {
	operations    *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	eventsEmitted *prometheus.CounterVec
	flashCredits  prometheus.Counter
	liquidations  prometheus.Counter
}

var (
	lendingOnce     sync.Once
	lendingRegistry *LendingMetrics
)

// Lending returns the process-wide lending metrics, registering them on first
// use.
func Lending() *LendingMetrics {
	lendingOnce.Do(func() {
		lendingRegistry = &LendingMetrics{
			operations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_operations_total",
				Help: "Count of completed ledger operations by kind.",
			}, []string{"op"}),
			rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_rejections_total",
				Help: "Count of rejected ledger operations by kind.",
			}, []string{"op"}),
			eventsEmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lending_events_total",
				Help: "Count of audit events emitted by type.",
			}, []string{"type"}),
			flashCredits: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lending_flash_credits_total",
				Help: "Count of settled flash credits.",
			}),
			liquidations: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lending_liquidations_total",
				Help: "Count of completed liquidations.",
			}),
		}
		prometheus.MustRegister(
			lendingRegistry.operations,
			lendingRegistry.rejections,
			lendingRegistry.eventsEmitted,
			lendingRegistry.flashCredits,
			lendingRegistry.liquidations,
		)
	})
	return lendingRegistry
}

// ObserveOperation records a completed or rejected ledger operation.
func (m *LendingMetrics) ObserveOperation(op string, err error) {
	if m == nil {
		return
	}
	if err != nil {
		m.rejections.WithLabelValues(op).Inc()
		return
	}
	m.operations.WithLabelValues(op).Inc()
}

// Emit implements the events.Emitter interface so the metrics surface doubles
// as an event sink.
func (m *LendingMetrics) Emit(evt events.Event) {
	if m == nil || evt == nil {
		return
	}
	kind := evt.EventType()
	m.eventsEmitted.WithLabelValues(kind).Inc()
	switch kind {
	case events.TypeFlashCredit:
		m.flashCredits.Inc()
	case events.TypePositionLiquidated:
		m.liquidations.Inc()
	}
}
