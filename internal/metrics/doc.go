// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - REST refresh outcomes and per-request attempts
//   - Push connection state, reconnects and tick rates per service
//   - Tick parse failures and listener panics
//   - Multiplexer registry size (symbols, listeners)
//   - Snapshot store flushes
package metrics
