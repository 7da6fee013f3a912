package api

import "encoding/json"

// Endpoint paths.
const (
	PathExchangeRate = "/exchange_rate"
	PathQuote        = "/quote"
)

// priceFields is the REST price field family, in priority order.
var priceFields = []string{"price", "rate", "bid", "ask"}

// quoteObject is a single vendor quote with loosely named fields.
type quoteObject map[string]json.RawMessage

// vendorStatus is the in-band error envelope some endpoints return with HTTP 200.
type vendorStatus struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}
