package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/ratehub/internal/model"
)

// Candidate field names, in priority order.
var (
	symbolFields    = []string{"symbol", "s", "ticker"}
	priceFields     = []string{"price", "p", "last", "ask", "bid"}
	timestampFields = []string{"timestamp", "t"}
	volumeFields    = []string{"volume", "v"}
)

// millisThreshold separates second-scale from millisecond-scale timestamps.
const millisThreshold = 1e12

// ParseError reports a frame that could not be turned into a tick.
type ParseError struct {
	Reason string
	Data   []byte
}

func (e *ParseError) Error() string {
	return "parse tick: " + e.Reason
}

// ParseTicks decodes a push frame (a JSON object or an array of objects) into ticks.
// Entries that are not valid ticks are skipped; if no entry is valid a *ParseError is
// returned. now is used when a tick carries no timestamp.
func ParseTicks(data []byte, now time.Time) ([]model.Tick, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &ParseError{Reason: "empty frame", Data: data}
	}

	var objects []map[string]json.RawMessage
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &objects); err != nil {
			return nil, &ParseError{Reason: "invalid json array: " + err.Error(), Data: data}
		}
	case '{':
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, &ParseError{Reason: "invalid json object: " + err.Error(), Data: data}
		}
		objects = append(objects, obj)
	default:
		return nil, &ParseError{Reason: "not a json object", Data: data}
	}

	ticks := make([]model.Tick, 0, len(objects))
	var firstErr string
	for _, obj := range objects {
		tick, reason := parseTick(obj, now)
		if reason != "" {
			if firstErr == "" {
				firstErr = reason
			}
			continue
		}
		ticks = append(ticks, tick)
	}

	if len(ticks) == 0 {
		if firstErr == "" {
			firstErr = "no entries"
		}
		return nil, &ParseError{Reason: firstErr, Data: data}
	}
	return ticks, nil
}

// parseTick builds a tick from one object, or returns a non-empty reason.
func parseTick(obj map[string]json.RawMessage, now time.Time) (model.Tick, string) {
	symbol, ok := firstString(obj, symbolFields)
	if !ok {
		return model.Tick{}, "missing symbol"
	}
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return model.Tick{}, "empty symbol"
	}

	price, ok := FirstNumber(obj, priceFields)
	if !ok || price <= 0 {
		return model.Tick{}, fmt.Sprintf("missing price for %s", symbol)
	}

	tick := model.Tick{
		Symbol:      symbol,
		Price:       price,
		TimestampMs: now.UnixMilli(),
	}
	if ts, ok := FirstNumber(obj, timestampFields); ok && ts > 0 {
		tick.TimestampMs = NormalizeTimestamp(ts)
	}
	if vol, ok := FirstNumber(obj, volumeFields); ok {
		tick.Volume = &vol
	}
	return tick, ""
}

// NormalizeTimestamp converts a vendor timestamp to milliseconds. Values below the
// millisecond threshold are taken to be seconds.
func NormalizeTimestamp(ts float64) int64 {
	if math.Abs(ts) < millisThreshold {
		return int64(math.Round(ts * 1000))
	}
	return int64(ts)
}

// NormalizeSymbol upper-cases a symbol and strips characters outside [A-Z0-9/._:-].
func NormalizeSymbol(symbol string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '/', r == '.', r == '_', r == ':', r == '-':
			return r
		}
		return -1
	}, symbol)
}

func firstString(obj map[string]json.RawMessage, fields []string) (string, bool) {
	for _, f := range fields {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s, true
		}
	}
	return "", false
}

// FirstNumber returns the first candidate field holding a number or a numeric string.
func FirstNumber(obj map[string]json.RawMessage, fields []string) (float64, bool) {
	for _, f := range fields {
		raw, ok := obj[f]
		if !ok {
			continue
		}
		if v, ok := decodeNumber(raw); ok {
			return v, true
		}
	}
	return 0, false
}

func decodeNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
