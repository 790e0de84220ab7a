package calculator

import (
	"fmt"
	"time"

	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/session"
)

// Gap is the newest bar's open minus the previous bar's close.
func Gap(series *model.PriceSeries) (float64, error) {
	today, err := series.Bar(0)
	if err != nil {
		return 0, fmt.Errorf("gap: %w", err)
	}
	prev, err := series.Bar(1)
	if err != nil {
		return 0, fmt.Errorf("gap: %w", err)
	}
	return today.Open - prev.Close, nil
}

// FirstCandle returns close minus open of the earliest intraday bar that falls on
// the same calendar day (in the cutover's zone) as the newest intraday bar.
func FirstCandle(intraday *model.PriceSeries, cut session.Cutover) (float64, error) {
	bars := intraday.Bars()
	if len(bars) == 0 {
		return 0, fmt.Errorf("first candle: %w", &model.InsufficientHistoryError{Need: 1, Have: 0})
	}
	newest := bars[len(bars)-1].Time
	for _, b := range bars {
		if cut.SameDay(b.Time, newest) {
			return b.Close - b.Open, nil
		}
	}
	// unreachable: the newest bar always matches itself
	return 0, fmt.Errorf("first candle: %w", model.ErrDataUnavailable)
}

// LastDayChangePercent is the signed percent change of the most recently completed
// session. At or after the cutover the newest bar is final and is compared with the
// bar before it; earlier in the day the newest bar is still forming, so the previous
// two bars are compared instead.
func LastDayChangePercent(series *model.PriceSeries, cut session.Cutover, now time.Time) (float64, error) {
	endOffset := 1
	if cut.Passed(now) {
		endOffset = 0
	}
	end, err := series.CloseAt(endOffset)
	if err != nil {
		return 0, fmt.Errorf("last day change: %w", err)
	}
	start, err := series.CloseAt(endOffset + 1)
	if err != nil {
		return 0, fmt.Errorf("last day change: %w", err)
	}
	if start == 0 {
		return 0, fmt.Errorf("last day change: %w: previous close is zero", model.ErrDivisionByZero)
	}
	return (end/start - 1) * 100, nil
}
