package rates

// FxPairSpec describes one FX pair carried in the payload.
type FxPairSpec struct {
	Base      string
	Quote     string
	Optional  bool // missing → null instead of failing the refresh
	Decimals  int  // rounding applied to REST and push values
	Derivable bool // may fall back to cross or inverse rates
}

// Key is the payload key, e.g. "USD_TRY".
func (p FxPairSpec) Key() string {
	return p.Base + "_" + p.Quote
}

// Symbol is the vendor symbol, e.g. "USD/TRY".
func (p FxPairSpec) Symbol() string {
	return p.Base + "/" + p.Quote
}

// KeyUSDTRY is the pair feeding the gold ladder and the legacy usd.try field.
const KeyUSDTRY = "USD_TRY"

// DefaultPairs returns the standard pair table.
func DefaultPairs() []FxPairSpec {
	return []FxPairSpec{
		{Base: "USD", Quote: "TRY", Decimals: 4},
		{Base: "EUR", Quote: "TRY", Decimals: 4},
		{Base: "GBP", Quote: "TRY", Optional: true, Decimals: 4, Derivable: true},
		{Base: "EUR", Quote: "USD", Optional: true, Decimals: 5, Derivable: true},
		{Base: "GBP", Quote: "USD", Optional: true, Decimals: 5},
		{Base: "EUR", Quote: "GBP", Optional: true, Decimals: 5, Derivable: true},
	}
}

// pairKeys returns the payload keys in table order.
func pairKeys(pairs []FxPairSpec) []string {
	keys := make([]string, len(pairs))
	for i, p := range pairs {
		keys[i] = p.Key()
	}
	return keys
}
