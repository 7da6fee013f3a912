package rates

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/rickgao/ratehub/internal/model"
)

const gramsPerTroyOunce = 31.1035

// Purity multipliers relative to the 24k gram price.
const (
	mult22k      = 0.916
	mult21k      = 0.875
	mult18k      = 0.75
	mult14k      = 0.583
	multTamAltin = 7.016
)

// ComputeGold derives the karat ladder from the spot ounce price and USD/TRY.
//
// The 24k gram price is taken in whole units and every other step is rounded
// from it. When either input is missing the ladder is null; the ounce price is
// still reported when known.
func ComputeGold(in model.GoldInputs) model.GoldLadder {
	var ladder model.GoldLadder
	// ounceUSD needs no FX leg, so it survives a missing USD/TRY.
	if in.OunceUSD != nil {
		ladder.OunceUSD = intPtr(math.Round(*in.OunceUSD))
	}
	if in.OunceUSD == nil || in.USDTRY == nil {
		return ladder
	}

	gram24 := math.Trunc(*in.OunceUSD * *in.USDTRY / gramsPerTroyOunce)
	ladder.K24 = intPtr(gram24)
	ladder.K22 = intPtr(math.Round(gram24 * mult22k))
	ladder.K21 = intPtr(math.Round(gram24 * mult21k))
	ladder.K18 = intPtr(math.Round(gram24 * mult18k))
	ladder.K14 = intPtr(math.Round(gram24 * mult14k))
	ladder.TamAltin = intPtr(math.Round(gram24 * multTamAltin))
	return ladder
}

// roundPrice rounds v half away from zero to the given number of decimals.
func roundPrice(v float64, decimals int) float64 {
	return decimal.NewFromFloat(v).Round(int32(decimals)).InexactFloat64()
}

func intPtr(v float64) *int64 {
	n := int64(v)
	return &n
}

func floatPtr(v float64) *float64 {
	return &v
}
