// Package httpapi exposes the rate services over HTTP.
//
// Routes:
//
//	GET /health                 liveness plus service summaries
//	GET /api/rates              EnsureSnapshot then View, as JSON
//	GET /api/rates/stream       server-sent events: current view, then every update
//	GET /api/stream/{symbol}    server-sent events: raw ticks for one symbol
//	GET /metrics                Prometheus exposition
//
// Streams send a keep-alive comment on an interval and end after a maximum
// duration; clients are expected to reconnect.
package httpapi
