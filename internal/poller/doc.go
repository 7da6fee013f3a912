// Package poller keeps the rate snapshot warm.
//
// Every interval it asks the snapshot service for a payload without forcing a
// refresh, so a REST round-trip happens only once the snapshot has aged past
// its TTL. Consumers then rarely pay refresh latency on their own requests.
package poller
