// Package metrics exposes loan portfolio counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/segyhp/sacco-loans/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

type Collector struct {
	registry          *prometheus.Registry
	loansIssued       prometheus.Counter
	paymentsRecorded  prometheus.Counter
	paymentsRejected  *prometheus.CounterVec
	amountCollected   prometheus.Counter
	portfolio         *prometheus.GaugeVec
	statusesRefreshed prometheus.Counter
	requestDuration   *prometheus.HistogramVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		loansIssued: factory.NewCounter(prometheus.CounterOpts{
			Name: "loans_issued_total",
			Help: "Total number of loans issued",
		}),
		paymentsRecorded: factory.NewCounter(prometheus.CounterOpts{
			Name: "payments_recorded_total",
			Help: "Total number of payments recorded",
		}),
		paymentsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_rejected_total",
			Help: "Payments refused at the store boundary, by reason code",
		}, []string{"code"}),
		amountCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_amount_collected_total",
			Help: "Sum of recorded payment amounts",
		}),
		portfolio: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "loans_by_status",
			Help: "Loans per derived status at the last dashboard evaluation",
		}, []string{"status"}),
		statusesRefreshed: factory.NewCounter(prometheus.CounterOpts{
			Name: "loan_status_reconciled_total",
			Help: "Stored loan statuses rewritten by reconciliation",
		}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

func (c *Collector) LoanIssued() {
	c.loansIssued.Inc()
}

func (c *Collector) PaymentRecorded(amount decimal.Decimal) {
	c.paymentsRecorded.Inc()
	c.amountCollected.Add(amount.InexactFloat64())
}

func (c *Collector) PaymentRejected(code string) {
	c.paymentsRejected.WithLabelValues(code).Inc()
}

func (c *Collector) StatusesReconciled(n int) {
	c.statusesRefreshed.Add(float64(n))
}

func (c *Collector) ObservePortfolio(stats domain.DashboardStats) {
	c.portfolio.WithLabelValues(domain.LoanStatusActive).Set(float64(stats.Active))
	c.portfolio.WithLabelValues(domain.LoanStatusPaid).Set(float64(stats.Paid))
	c.portfolio.WithLabelValues(domain.LoanStatusDefaulted).Set(float64(stats.Defaulted))
}

func (c *Collector) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	c.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
