package strategy

import (
	"fmt"

	"BreakoutScanner/internal/model"
)

// SMAWeights maps each SMA window to its share of the trend score. Sum = 1.0.
var SMAWeights = []struct {
	Period int
	Weight float64
}{
	{20, 0.4},
	{50, 0.1},
	{100, 0.2},
	{200, 0.3},
}

// proximityScore awards the weight when price is above the SMA, 0.8 of it on an
// exact tie, and a tiered fraction when price is below.
//
// The tier metric ((price-sma)*price)/100 is kept exactly as the ranking has always
// computed it. It is negative whenever price < sma, so in practice the first tier
// always matches. The < 0.04 tier after < 0.05 can never match; it is kept so the
// table reads the same as the published tiers.
func proximityScore(price, sma, weight float64) (fraction float64, commentary string) {
	switch {
	case price > sma:
		return 1.0, "above"
	case price == sma:
		return 0.8, "at"
	}

	distance := ((price - sma) * price) / 100
	switch {
	case distance < 0.01:
		fraction = 0.5
	case distance < 0.02:
		fraction = 0.4
	case distance < 0.05:
		fraction = 0.3
	case distance < 0.08:
		fraction = 0.2
	case distance < 0.04: // never reached, see above
		fraction = 0.2
	default:
		fraction = 0.1
	}
	return fraction, fmt.Sprintf("below (distance %.4f)", distance)
}

func scoreSMA(price, sma float64, period int, weight float64) model.FactorScore {
	fraction, commentary := proximityScore(price, sma, weight)
	return model.FactorScore{
		Name:       fmt.Sprintf("SMA%d", period),
		SMA:        sma,
		RawScore:   fraction,
		Weight:     weight,
		Weighted:   fraction * weight,
		Commentary: commentary,
	}
}
