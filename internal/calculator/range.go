package calculator

import (
	"fmt"
	"math"

	"BreakoutScanner/internal/model"
)

// closeRange scans every bar and returns the highest and lowest close.
func closeRange(series *model.PriceSeries) (high, low float64, err error) {
	if series.Len() == 0 {
		return 0, 0, &model.InsufficientHistoryError{Need: 1, Have: 0}
	}
	high = math.Inf(-1)
	low = math.Inf(1)
	for _, c := range series.Closes() {
		if c > high {
			high = c
		}
		if c < low {
			low = c
		}
	}
	return high, low, nil
}

func validateBand(percentage float64, lookback int) error {
	if math.IsNaN(percentage) || math.IsInf(percentage, 0) || percentage < 0 {
		return fmt.Errorf("%w: percentage %v", model.ErrInvalidInput, percentage)
	}
	if lookback < 1 {
		return fmt.Errorf("%w: lookback %d", model.ErrInvalidInput, lookback)
	}
	return nil
}

// IsConsolidating reports whether the last lookback closes sit inside a band of
// percentage below their high: min > max * (1 - percentage/100).
// A zero-width range (all closes equal) counts as consolidating at any percentage.
func IsConsolidating(series *model.PriceSeries, percentage float64, lookback int) (bool, error) {
	if err := validateBand(percentage, lookback); err != nil {
		return false, err
	}
	window, err := series.Slice(lookback)
	if err != nil {
		return false, err
	}
	high, low, err := closeRange(window)
	if err != nil {
		return false, err
	}
	if high == low {
		return true, nil
	}
	return low > high*(1-percentage/100), nil
}

// IsBreakingConsolidation reports whether everything before the newest bar was
// consolidating and the newest close is above the highest of the lookback closes
// preceding it. Needs lookback+1 bars.
func IsBreakingConsolidation(series *model.PriceSeries, percentage float64, lookback int) (bool, error) {
	if err := validateBand(percentage, lookback); err != nil {
		return false, err
	}
	if series.Len() < lookback+1 {
		return false, &model.InsufficientHistoryError{Need: lookback + 1, Have: series.Len()}
	}
	prior, err := series.DropLast()
	if err != nil {
		return false, err
	}
	consolidating, err := IsConsolidating(prior, percentage, lookback)
	if err != nil || !consolidating {
		return false, err
	}
	window, err := prior.Slice(lookback)
	if err != nil {
		return false, err
	}
	high, _, err := closeRange(window)
	if err != nil {
		return false, err
	}
	last, err := series.LastClose()
	if err != nil {
		return false, err
	}
	return last > high, nil
}
