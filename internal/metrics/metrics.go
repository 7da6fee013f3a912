package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_rest_refresh_total",
		Help: "REST snapshot refreshes by result (ok, error); a failed refresh with a cached snapshot also counts as fallback",
	}, []string{"result"})

	RefreshDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ratehub_rest_refresh_duration_seconds",
		Help:    "Duration of a full REST snapshot refresh",
		Buckets: prometheus.DefBuckets,
	})

	RequestAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_rest_request_attempts_total",
		Help: "Vendor REST request attempts by outcome (ok, retry, error)",
	}, []string{"outcome"})

	TicksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_push_ticks_total",
		Help: "Normalized push ticks received per service",
	}, []string{"service"})

	ParseErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_push_parse_errors_total",
		Help: "Push frames dropped because they could not be parsed",
	}, []string{"service"})

	ListenerPanics = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_listener_panics_total",
		Help: "Listener callbacks that panicked during dispatch",
	}, []string{"listeners"})

	Reconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_push_reconnects_total",
		Help: "Scheduled push connection reconnect attempts",
	}, []string{"service"})

	ConnectionState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ratehub_push_connection_state",
		Help: "Push connection state (0 disconnected, 1 connecting, 2 connected)",
	}, []string{"service"})

	StreamSymbols = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratehub_stream_symbols",
		Help: "Symbols with at least one multiplexer listener",
	})

	StreamListeners = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ratehub_stream_listeners",
		Help: "Registered multiplexer listeners across all symbols",
	})

	StoreFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ratehub_store_flushes_total",
		Help: "Snapshot store writes by result (ok, error)",
	}, []string{"result"})
)
