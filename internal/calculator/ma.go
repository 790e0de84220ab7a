package calculator

import (
	"fmt"

	"BreakoutScanner/internal/model"
)

// SMAPeriods are the windows the trend score is built on.
var SMAPeriods = []int{20, 50, 100, 200}

// CalculateSMA computes the simple moving average of the last period prices.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, fmt.Errorf("%w: period must be positive, got %d", model.ErrInvalidInput, period)
	}
	if len(prices) < period {
		return 0, &model.InsufficientHistoryError{Need: period, Have: len(prices)}
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// SMA returns the mean of exactly the last n closes of the series.
func SMA(series *model.PriceSeries, n int) (float64, error) {
	return CalculateSMA(series.Closes(), n)
}

// SMAs computes every period in periods, keyed by period.
func SMAs(series *model.PriceSeries, periods []int) (map[int]float64, error) {
	out := make(map[int]float64, len(periods))
	for _, p := range periods {
		v, err := SMA(series, p)
		if err != nil {
			return nil, fmt.Errorf("sma %d: %w", p, err)
		}
		out[p] = v
	}
	return out, nil
}
