package metrics

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/finpay/ledger/internal/apperr"
)

const (
	KindInternalTransfer = "internal_transfer"
	KindPayment          = "payment"

	outcomeSuccess = "success"
)

// Metrics holds the transfer engine's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry  *prometheus.Registry
	transfers *prometheus.CounterVec
	duration  *prometheus.HistogramVec
}

// New registers the collectors on reg.
func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		transfers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ledger_transfers_total",
				Help: "Transfers attempted, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ledger_transfer_duration_seconds",
				Help:    "Duration of transfer operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"kind"},
		),
	}
}

// ObserveTransfer records one transfer attempt that began at start.
func (m *Metrics) ObserveTransfer(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(kind, Outcome(err)).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// Outcome labels an error by its taxonomy kind.
func Outcome(err error) string {
	if err == nil {
		return outcomeSuccess
	}
	return strings.ToLower(string(apperr.KindOf(err)))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
