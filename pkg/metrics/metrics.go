package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the marketplace collectors and the registry they live in.
type Metrics struct {
	Registry *prometheus.Registry

	OrdersRegistered *prometheus.CounterVec   // by side
	OrdersCancelled  *prometheus.CounterVec   // by side
	OrdersRejected   *prometheus.CounterVec   // by reason
	CancelMisses     prometheus.Counter       // cancel of an order that was not live
	LiveOrders       *prometheus.GaugeVec     // by side, refreshed on every mutation
	SummaryDuration  *prometheus.HistogramVec // by side
	EventsDropped    prometheus.Counter       // publisher buffer overflow
}

func New(logger *zap.SugaredLogger) *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry:         reg,
		OrdersRegistered: prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orders_registered_total", Help: "Orders registered by side"}, []string{"side"}),
		OrdersCancelled:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orders_cancelled_total", Help: "Live orders cancelled by side"}, []string{"side"}),
		OrdersRejected:   prometheus.NewCounterVec(prometheus.CounterOpts{Name: "orders_rejected_total", Help: "Orders rejected at validation by reason"}, []string{"reason"}),
		CancelMisses:     prometheus.NewCounter(prometheus.CounterOpts{Name: "cancel_misses_total", Help: "Cancels for orders that were not live"}),
		LiveOrders:       prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "live_orders", Help: "Live orders by side"}, []string{"side"}),
		SummaryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "summary_duration_seconds",
			Help:    "Time to build a market-depth summary",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"side"}),
		EventsDropped: prometheus.NewCounter(prometheus.CounterOpts{Name: "order_events_dropped_total", Help: "Order events dropped because the publish buffer was full"}),
	}

	toRegister := []prometheus.Collector{
		m.OrdersRegistered, m.OrdersCancelled, m.OrdersRejected, m.CancelMisses,
		m.LiveOrders, m.SummaryDuration, m.EventsDropped,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	}
	for _, c := range toRegister {
		reg.MustRegister(c)
	}
	if logger != nil {
		logger.Info("prometheus_metrics_initialized")
	}
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
