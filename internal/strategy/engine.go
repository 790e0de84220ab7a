package strategy

import (
	"fmt"

	"BreakoutScanner/internal/calculator"
	"BreakoutScanner/internal/model"
)

// ScoreScale turns the weighted sum (0 ~ 1) into the reported score (0 ~ 100).
const ScoreScale = 100.0

// TrendScore computes the weighted SMA proximity score, scaled to 0 ~ 100.
func TrendScore(series *model.PriceSeries) (float64, error) {
	s, err := Evaluate(series)
	if err != nil {
		return 0, err
	}
	return s.Value, nil
}

// Evaluate computes the full score breakdown for a series. It needs 200 bars.
func Evaluate(series *model.PriceSeries) (*model.Score, error) {
	price, err := series.LastClose()
	if err != nil {
		return nil, fmt.Errorf("current price: %w", err)
	}
	smas := make(map[int]float64, len(SMAWeights))
	for _, w := range SMAWeights {
		v, err := calculator.SMA(series, w.Period)
		if err != nil {
			return nil, fmt.Errorf("sma %d: %w", w.Period, err)
		}
		smas[w.Period] = v
	}
	return EvaluateSMAs(series.Symbol, price, smas), nil
}

// EvaluateSMAs scores price against precomputed SMAs. Missing windows score zero.
func EvaluateSMAs(symbol string, price float64, smas map[int]float64) *model.Score {
	score := &model.Score{Symbol: symbol, CurrentPrice: price}
	total := 0.0
	for _, w := range SMAWeights {
		sma, ok := smas[w.Period]
		if !ok {
			continue
		}
		f := scoreSMA(price, sma, w.Period, w.Weight)
		score.Factors = append(score.Factors, f)
		total += f.Weighted
	}
	score.Value = total * ScoreScale
	return score
}
