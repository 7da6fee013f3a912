package router

import (
	"errors"
	"testing"
	"time"
)

var testNow = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func TestParseTicks_FieldVariants(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		symbol string
		price  float64
		tsMs   int64
	}{
		{
			name:   "canonical fields",
			data:   `{"symbol":"USD/TRY","price":32.15,"timestamp":1700000000000}`,
			symbol: "USD/TRY",
			price:  32.15,
			tsMs:   1700000000000,
		},
		{
			name:   "short aliases",
			data:   `{"s":"eur/try","p":"35.2","t":1700000000}`,
			symbol: "EUR/TRY",
			price:  35.2,
			tsMs:   1700000000000,
		},
		{
			name:   "ticker and last",
			data:   `{"ticker":"XAU/USD","last":2031.5,"t":1700000000123}`,
			symbol: "XAU/USD",
			price:  2031.5,
			tsMs:   1700000000123,
		},
		{
			name:   "ask preferred over bid",
			data:   `{"symbol":"GBP/TRY","bid":40.1,"ask":40.3,"timestamp":1700000000}`,
			symbol: "GBP/TRY",
			price:  40.3,
			tsMs:   1700000000000,
		},
		{
			name:   "price preferred over last",
			data:   `{"symbol":"USD/TRY","last":1,"price":2,"timestamp":1700000000}`,
			symbol: "USD/TRY",
			price:  2,
			tsMs:   1700000000000,
		},
		{
			name:   "missing timestamp uses now",
			data:   `{"symbol":"USD/TRY","price":32}`,
			symbol: "USD/TRY",
			price:  32,
			tsMs:   testNow.UnixMilli(),
		},
		{
			name:   "fractional seconds",
			data:   `{"symbol":"USD/TRY","price":32,"timestamp":1700000000.25}`,
			symbol: "USD/TRY",
			price:  32,
			tsMs:   1700000000250,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks, err := ParseTicks([]byte(tt.data), testNow)
			if err != nil {
				t.Fatalf("ParseTicks failed: %v", err)
			}
			if len(ticks) != 1 {
				t.Fatalf("len(ticks) = %d, want 1", len(ticks))
			}
			got := ticks[0]
			if got.Symbol != tt.symbol {
				t.Errorf("Symbol = %q, want %q", got.Symbol, tt.symbol)
			}
			if got.Price != tt.price {
				t.Errorf("Price = %v, want %v", got.Price, tt.price)
			}
			if got.TimestampMs != tt.tsMs {
				t.Errorf("TimestampMs = %d, want %d", got.TimestampMs, tt.tsMs)
			}
		})
	}
}

func TestParseTicks_SecondsTimestamp(t *testing.T) {
	ticks, err := ParseTicks([]byte(`{"symbol":"USD/TRY","price":32,"timestamp":1700000000}`), testNow)
	if err != nil {
		t.Fatalf("ParseTicks failed: %v", err)
	}
	if ticks[0].TimestampMs != 1700000000000 {
		t.Errorf("TimestampMs = %d, want %d", ticks[0].TimestampMs, int64(1700000000000))
	}
}

func TestParseTicks_Array(t *testing.T) {
	data := `[
		{"symbol":"USD/TRY","price":32.1,"volume":10},
		{"event":"heartbeat"},
		{"symbol":"EUR/TRY","price":35.3}
	]`

	ticks, err := ParseTicks([]byte(data), testNow)
	if err != nil {
		t.Fatalf("ParseTicks failed: %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("len(ticks) = %d, want 2", len(ticks))
	}
	if ticks[0].Volume == nil || *ticks[0].Volume != 10 {
		t.Errorf("Volume = %v, want 10", ticks[0].Volume)
	}
	if ticks[1].Volume != nil {
		t.Errorf("Volume = %v, want nil", *ticks[1].Volume)
	}
}

func TestParseTicks_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ``},
		{"not json", `hello`},
		{"broken json", `{"symbol":`},
		{"missing symbol", `{"price":32}`},
		{"missing price", `{"symbol":"USD/TRY"}`},
		{"unparsable price", `{"symbol":"USD/TRY","price":"abc"}`},
		{"zero price", `{"symbol":"USD/TRY","price":0}`},
		{"control message", `{"event":"subscribe-status","status":"ok"}`},
		{"empty array", `[]`},
		{"scalar", `42`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ticks, err := ParseTicks([]byte(tt.data), testNow)
			if err == nil {
				t.Fatalf("expected error, got ticks %+v", ticks)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Errorf("error type = %T, want *ParseError", err)
			}
		})
	}
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"usd/try", "USD/TRY"},
		{"  eur/usd \n", "EUR/USD"},
		{"xau$usd", "XAUUSD"},
		{"BTC-USD", "BTC-USD"},
		{"brk.b", "BRK.B"},
		{"<script>", "SCRIPT"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeSymbol(tt.in); got != tt.want {
			t.Errorf("NormalizeSymbol(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		in   float64
		want int64
	}{
		{1700000000, 1700000000000},
		{1700000000000, 1700000000000},
		{999999999999, 999999999999000},
		{1e12, 1000000000000},
	}

	for _, tt := range tests {
		if got := NormalizeTimestamp(tt.in); got != tt.want {
			t.Errorf("NormalizeTimestamp(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
