package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/rickgao/ratehub/internal/router"
)

// ErrNoPrice is returned when a response carries none of the price fields.
var ErrNoPrice = errors.New("response has no usable price field")

// PairRate fetches the direct rate for base/quote.
func (c *Client) PairRate(ctx context.Context, base, quote string) (float64, error) {
	symbol := base + "/" + quote
	body, err := c.get(ctx, PathExchangeRate, url.Values{"symbol": {symbol}})
	if err != nil {
		return 0, fmt.Errorf("exchange rate %s: %w", symbol, err)
	}

	price, err := parsePrice(body)
	if err != nil {
		return 0, fmt.Errorf("exchange rate %s: %w", symbol, err)
	}
	return price, nil
}

// Quote fetches a spot quote for symbol (e.g. "XAU/USD").
func (c *Client) Quote(ctx context.Context, symbol string) (float64, error) {
	body, err := c.get(ctx, PathQuote, url.Values{"symbol": {symbol}})
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}

	price, err := parsePrice(body)
	if err != nil {
		return 0, fmt.Errorf("quote %s: %w", symbol, err)
	}
	return price, nil
}

// parsePrice reads the first usable price from a single object or a list of objects.
func parsePrice(body []byte) (float64, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return 0, ErrNoPrice
	}

	var objects []quoteObject
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return 0, fmt.Errorf("unmarshal response: %w", err)
		}
	} else {
		var obj quoteObject
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return 0, fmt.Errorf("unmarshal response: %w", err)
		}
		objects = []quoteObject{obj}
	}

	for _, obj := range objects {
		if price, ok := router.FirstNumber(obj, priceFields); ok && price > 0 {
			return price, nil
		}
	}
	return 0, ErrNoPrice
}

// inBandError converts a {"status":"error"} envelope into an *APIError.
// Anything else, lists included, yields nil.
func inBandError(body []byte) error {
	var st vendorStatus
	if err := json.Unmarshal(body, &st); err != nil || st.Status != "error" {
		return nil
	}
	code := st.Code
	if code == 0 {
		code = http.StatusBadGateway
	}
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return &APIError{StatusCode: code, Message: st.Message, Body: body}
}
