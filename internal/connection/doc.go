// Package connection implements the push-feed connection lifecycle shared by the
// snapshot service and the stream multiplexer.
//
// A Feed owns exactly one WebSocket connection:
//   - disconnected → connecting → connected
//   - every successful open resets the backoff and calls Handler.OnOpen, where the
//     owner re-sends its subscriptions
//   - losing the connection calls Handler.OnClose, then schedules a single reconnect timer with exponential
//     backoff (750ms base, ×1.5, capped at 25s); it retries forever until Stop
//
// The vendor authenticates the socket through the apikey query parameter.
package connection
