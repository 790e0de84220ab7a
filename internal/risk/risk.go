// Package risk sizes a position from a dollar risk and a risk candle.
package risk

import (
	"fmt"
	"math"

	"BreakoutScanner/internal/model"
)

// ProfitMultiples are the risk-candle multiples of the three sell targets.
var ProfitMultiples = [3]float64{1, 2, 3}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// Dict builds the risk result. currentPrice may be nil when the price lookup
// failed, in which case only the direction and share count are filled in.
func Dict(riskDollars, riskCandle float64, currentPrice *float64) (*model.RiskResult, error) {
	if riskCandle == 0 {
		return nil, fmt.Errorf("%w: risk candle is zero", model.ErrDivisionByZero)
	}
	if !finite(riskCandle) {
		return nil, fmt.Errorf("%w: risk candle %v", model.ErrInvalidInput, riskCandle)
	}
	if !finite(riskDollars) || riskDollars <= 0 {
		return nil, fmt.Errorf("%w: risk dollars %v", model.ErrInvalidInput, riskDollars)
	}

	res := &model.RiskResult{
		RiskCandle:  riskCandle,
		RiskDollars: riskDollars,
		ShareCount:  math.Abs(riskDollars / riskCandle),
		Direction:   model.Long,
	}
	if riskCandle < 0 {
		res.Direction = model.Short
	}

	if currentPrice == nil {
		return res, nil
	}
	price := *currentPrice
	if !finite(price) || price <= 0 {
		return nil, fmt.Errorf("%w: current price %v", model.ErrInvalidInput, price)
	}

	size := res.ShareCount * price
	stop := price - math.Abs(riskCandle)
	var targets [3]float64
	for i, m := range ProfitMultiples {
		targets[i] = price + riskCandle*m
	}
	res.CurrentPrice = &price
	res.TransactionSize = &size
	res.StopLoss = &stop
	res.ProfitTargets = &targets
	return res, nil
}
