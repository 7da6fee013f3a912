package model

import (
	"time"
)

// Source identifies how the current snapshot was produced.
type Source string

const (
	SourceREST  Source = "REST"
	SourcePush  Source = "PUSH"
	SourceCache Source = "CACHE" // view-only: snapshot older than the TTL
)

// -----------------------------------------------------------------------------
// Push Feed Types
// -----------------------------------------------------------------------------

// Tick is the normalized form of any upstream push message.
type Tick struct {
	Symbol      string   `json:"symbol"`
	Price       float64  `json:"price"`
	TimestampMs int64    `json:"timestampMs"`
	Volume      *float64 `json:"volume,omitempty"`
}

// -----------------------------------------------------------------------------
// Snapshot Types
// -----------------------------------------------------------------------------

// GoldLadder holds gold prices per gram by purity, plus the spot ounce price in USD.
type GoldLadder struct {
	K14      *int64 `json:"k14"`
	K18      *int64 `json:"k18"`
	K21      *int64 `json:"k21"`
	K22      *int64 `json:"k22"`
	K24      *int64 `json:"k24"`
	TamAltin *int64 `json:"tamAltin"` // full coin
	OunceUSD *int64 `json:"ounceUSD"`
}

// LegacyUSD is the single-entry object older consumers read USD/TRY from.
type LegacyUSD struct {
	TRY *float64 `json:"try"`
}

// RatesPayload is the fully-shaped rate document served to consumers.
type RatesPayload struct {
	Gold GoldLadder          `json:"gold"`
	FX   map[string]*float64 `json:"fx"` // pair key (e.g. "USD_TRY") → price
	USD  LegacyUSD           `json:"usd"`
}

// Clone returns a deep copy so a new snapshot can be built without touching the old one.
func (p RatesPayload) Clone() RatesPayload {
	out := RatesPayload{
		Gold: GoldLadder{
			K14:      cloneInt(p.Gold.K14),
			K18:      cloneInt(p.Gold.K18),
			K21:      cloneInt(p.Gold.K21),
			K22:      cloneInt(p.Gold.K22),
			K24:      cloneInt(p.Gold.K24),
			TamAltin: cloneInt(p.Gold.TamAltin),
			OunceUSD: cloneInt(p.Gold.OunceUSD),
		},
		FX:  make(map[string]*float64, len(p.FX)),
		USD: LegacyUSD{TRY: cloneFloat(p.USD.TRY)},
	}
	for k, v := range p.FX {
		out.FX[k] = cloneFloat(v)
	}
	return out
}

// EmptyPayload returns a payload with every key present and every value null.
func EmptyPayload(pairKeys []string) RatesPayload {
	p := RatesPayload{FX: make(map[string]*float64, len(pairKeys))}
	for _, k := range pairKeys {
		p.FX[k] = nil
	}
	return p
}

// GoldInputs are the unrounded values the gold ladder is derived from.
type GoldInputs struct {
	OunceUSD *float64 `json:"ounceUSD"`
	USDTRY   *float64 `json:"usdTry"`
}

// Snapshot is an immutable payload plus metadata describing when and how it was produced.
// A Snapshot is never modified after it becomes current; updates build a new one.
type Snapshot struct {
	Payload    RatesPayload `json:"payload"`
	FetchedAt  time.Time    `json:"fetchedAt"`
	Source     Source       `json:"source"`
	LastPushAt *time.Time   `json:"lastPushAt,omitempty"`
	Inputs     GoldInputs   `json:"inputs"`
}

// -----------------------------------------------------------------------------
// View Types
// -----------------------------------------------------------------------------

// ViewMeta annotates a payload with freshness information.
type ViewMeta struct {
	Stale      bool       `json:"stale"`
	StaleForMs int64      `json:"staleForMs"`
	FetchedAt  *time.Time `json:"fetchedAt"`
	Source     Source     `json:"source"`
	LastPushAt *time.Time `json:"lastPushAt,omitempty"`
	Live       bool       `json:"live"`
}

// RatesView is the serializable read of the current snapshot.
type RatesView struct {
	RatesPayload
	Meta ViewMeta `json:"meta"`
}

func cloneInt(v *int64) *int64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
