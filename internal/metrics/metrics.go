// Package metrics exposes booking outcomes and HTTP latency to
// Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cimillas/ticket-booking/internal/app"
)

const namespace = "ticket_booking"

// Registry owns every collector the service reports. It satisfies the
// outcome observer interfaces of the app services.
type Registry struct {
	reg *prometheus.Registry

	purchases    *prometheus.CounterVec
	ticketsSold  prometheus.Counter
	creates      *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

func New() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		reg: reg,
		purchases: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purchases_total",
			Help:      "Purchase attempts by outcome.",
		}, []string{"outcome"}),
		ticketsSold: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_sold_total",
			Help:      "Tickets taken from inventory by successful purchases.",
		}),
		creates: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_creates_total",
			Help:      "Event create attempts by outcome.",
		}, []string{"outcome"}),
		httpDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.3, 0.6, 1, 3, 10},
		}, []string{"method", "route", "status"}),
	}
}

func (r *Registry) PurchaseOutcome(outcome string, quantity int) {
	r.purchases.WithLabelValues(outcome).Inc()
	if outcome == app.OutcomePurchased {
		r.ticketsSold.Add(float64(quantity))
	}
}

func (r *Registry) CreateOutcome(outcome string) {
	r.creates.WithLabelValues(outcome).Inc()
}

// ObserveHTTP records one served request. route is the matched mux
// pattern, never the raw path, to keep label cardinality bounded.
func (r *Registry) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	r.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer exposes the underlying registry for tests.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}
