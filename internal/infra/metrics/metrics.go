package metrics

import (
	"net/http"

	"storefront/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics はusecaseのOrderMetrics/ShippingMetricsを満たす。
type Metrics struct {
	registry *prometheus.Registry

	ordersCreated     prometheus.Counter
	ordersCancelled   prometheus.Counter
	statusTransitions *prometheus.CounterVec
	stockRejections   prometheus.Counter
	paymentsRecorded  *prometheus.CounterVec
	shippingFailures  *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_created_total",
			Help:      "Orders created by checkout.",
		}),
		ordersCancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Orders cancelled with stock restored.",
		}),
		statusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_status_transitions_total",
			Help:      "Order status transitions.",
		}, []string{"from", "to"}),
		stockRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Checkouts rejected for insufficient stock.",
		}),
		paymentsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_recorded_total",
			Help:      "Payment status updates.",
		}, []string{"status"}),
		shippingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shipping_upstream_failures_total",
			Help:      "Failed courier rate lookups.",
		}, []string{"courier"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersCreated,
		m.ordersCancelled,
		m.statusTransitions,
		m.stockRejections,
		m.paymentsRecorded,
		m.shippingFailures,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// GET /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OrderCreated()   { m.ordersCreated.Inc() }
func (m *Metrics) OrderCancelled() { m.ordersCancelled.Inc() }
func (m *Metrics) StockRejected()  { m.stockRejections.Inc() }

func (m *Metrics) StatusTransition(from, to model.OrderStatus) {
	m.statusTransitions.WithLabelValues(string(from), string(to)).Inc()
}

func (m *Metrics) PaymentRecorded(status model.PaymentStatus) {
	m.paymentsRecorded.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) ShippingUpstreamFailure(courier string) {
	m.shippingFailures.WithLabelValues(courier).Inc()
}
