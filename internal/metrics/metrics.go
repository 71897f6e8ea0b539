package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type EscrowMetrics struct {
	requests      *prometheus.CounterVec
	durations     *prometheus.HistogramVec
	confirmations *prometheus.CounterVec
	settlements   *prometheus.CounterVec
	settledCents  *prometheus.CounterVec
	bonuses       *prometheus.CounterVec
	txRetries     prometheus.Counter
	relayEvents   *prometheus.CounterVec
	conservation  prometheus.Gauge
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

// Escrow returns the process wide metric set, registering it on first use.
func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_http_requests_total",
				Help: "Total HTTP requests by route, method and status.",
			}, []string{"route", "method", "status"}),
			durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "escrow_http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds.",
				Buckets: prometheus.DefBuckets,
			}, []string{"route", "method"}),
			confirmations: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_confirmations_total",
				Help: "Presence confirmations by outcome.",
			}, []string{"outcome"}),
			settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_settlements_total",
				Help: "Settled or refunded reservations by type.",
			}, []string{"type", "result"}),
			settledCents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_settled_cents_total",
				Help: "Cents released from escrow by recipient class.",
			}, []string{"recipient"}),
			bonuses: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_bonuses_awarded_total",
				Help: "One-shot bonuses awarded by kind.",
			}, []string{"kind"}),
			txRetries: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "escrow_tx_retries_total",
				Help: "Transactions rerun after a write conflict.",
			}),
			relayEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "escrow_relay_events_total",
				Help: "Outbox deliveries by sink and result.",
			}, []string{"sink", "result"}),
			conservation: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "escrow_conservation_difference_cents",
				Help: "Held balances minus net external inflow at the last reconciliation.",
			}),
		}
		prometheus.MustRegister(
			escrowRegistry.requests,
			escrowRegistry.durations,
			escrowRegistry.confirmations,
			escrowRegistry.settlements,
			escrowRegistry.settledCents,
			escrowRegistry.bonuses,
			escrowRegistry.txRetries,
			escrowRegistry.relayEvents,
			escrowRegistry.conservation,
		)
	})
	return escrowRegistry
}

func (m *EscrowMetrics) ObserveRequest(route, method string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.durations.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

func (m *EscrowMetrics) ObserveConfirmation(outcome string) {
	if m == nil {
		return
	}
	m.confirmations.WithLabelValues(outcome).Inc()
}

func (m *EscrowMetrics) ObserveSettlement(reservationType, result string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(reservationType, result).Inc()
}

func (m *EscrowMetrics) AddSettledCents(recipient string, cents int64) {
	if m == nil || cents <= 0 {
		return
	}
	m.settledCents.WithLabelValues(recipient).Add(float64(cents))
}

func (m *EscrowMetrics) ObserveBonus(kind string) {
	if m == nil {
		return
	}
	m.bonuses.WithLabelValues(kind).Inc()
}

func (m *EscrowMetrics) ObserveTxRetry() {
	if m == nil {
		return
	}
	m.txRetries.Inc()
}

func (m *EscrowMetrics) ObserveRelay(sink, result string) {
	if m == nil {
		return
	}
	m.relayEvents.WithLabelValues(sink, result).Inc()
}

func (m *EscrowMetrics) SetConservationDifference(cents int64) {
	if m == nil {
		return
	}
	m.conservation.Set(float64(cents))
}
