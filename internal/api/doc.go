// Package api provides the vendor REST client.
//
// Endpoints (relative to the configured base URL, API key as the apikey parameter):
//   - GET /exchange_rate?symbol=BASE/QUOTE  direct FX rate
//   - GET /quote?symbol=XAU/USD             gold spot quote (object or list)
//
// Responses carry the price under one of a family of field names; the client reads
// the first present of price, rate, bid, ask. Requests are retried on 429, 5xx and
// transport failures, three attempts in total with exponential backoff.
package api
