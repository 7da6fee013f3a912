// Package rates maintains the canonical rate snapshot: FX pairs plus the gold ladder.
//
// The snapshot is refreshed over REST when older than the TTL (one shared flight
// for any number of concurrent callers) and patched in place by push ticks for a
// fixed symbol set. Every replacement is a copy followed by an atomic pointer
// swap, so View never observes a half-updated payload.
//
// # Usage
//
//	svc := rates.New(cfg, restClient, logger)
//	if err := svc.Start(ctx); err != nil { ... }
//	defer svc.Stop(shutdownCtx)
//
//	payload, err := svc.EnsureSnapshot(ctx, false)
//	view := svc.View()
//	remove := svc.OnUpdate(func(v model.RatesView) { ... })
package rates
