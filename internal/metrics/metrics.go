// Package metrics exposes Prometheus counters and gauges for the
// simulation core: orders submitted, fills executed, risk rejections,
// active news events, and per-symbol reference price. Registered in
// init() and served at /metrics (Prometheus text exposition format).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	OrdersSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sim_orders_submitted_total",
			Help: "Orders submitted to the book, by symbol, side, and kind.",
		},
		[]string{"symbol", "side", "kind"},
	)

	OrderRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sim_order_rejections_total",
			Help: "Orders rejected by the risk gate, by reason.",
		},
		[]string{"reason"},
	)

	FillsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sim_fills_total",
			Help: "Matched fills, by symbol.",
		},
		[]string{"symbol"},
	)

	ActiveNewsEvents = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sim_active_news_events",
			Help: "Count of currently active news events.",
		},
	)

	ReferencePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sim_reference_price",
			Help: "Latest broadcast reference price, by symbol.",
		},
		[]string{"symbol"},
	)

	WSClientsConnected = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sim_ws_clients_connected",
			Help: "Currently connected /ws/market clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(OrdersSubmitted, OrderRejections, FillsExecuted)
	prometheus.MustRegister(ActiveNewsEvents, ReferencePrice, WSClientsConnected)
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
