// Package router turns raw push-feed frames into normalized ticks and dispatches
// values to registered listeners.
//
// The vendor's tick messages use heterogeneous field names. ParseTicks reads them
// with an ordered list of candidate fields per value:
//   - symbol: symbol, s, ticker
//   - price: price, p, last, ask, bid
//   - timestamp: timestamp, t (seconds are promoted to milliseconds)
//
// Listeners delivers each value synchronously to every registered callback. A
// panicking callback is recovered and logged; the remaining callbacks still run.
package router
