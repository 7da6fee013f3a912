// Package stream multiplexes caller-driven per-symbol subscriptions over one
// push connection.
//
// The first listener for a symbol triggers an upstream subscribe, the last one
// leaving triggers an unsubscribe. Symbols added while the connection is down
// are sent on the next open, together with every symbol still tracked. Ticks
// are delivered raw; no derived values are computed here.
package stream
