package collector

import (
	"context"

	"BreakoutScanner/internal/model"
)

// Fetcher defines the market data collaborator.
// Every failure is wrapped with model.ErrDataUnavailable.
type Fetcher interface {
	// FetchDailyBars returns daily series for all tickers in one logical request.
	// Either every ticker is returned or an error is; never a partial map.
	FetchDailyBars(ctx context.Context, tickers []string, periodDays int) (map[string]*model.PriceSeries, error)
	// FetchIntraday returns today's (or the latest session's) bars at the given minute interval.
	FetchIntraday(ctx context.Context, ticker string, intervalMinutes int) (*model.PriceSeries, error)
	FetchCurrentPrice(ctx context.Context, ticker string) (float64, error)
	Name() string
}
