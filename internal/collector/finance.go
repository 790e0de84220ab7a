package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"BreakoutScanner/internal/model"
)

// FinanceFetcher implements Fetcher on top of piquette/finance-go.
// The library has no batch or context support, so tickers are fetched in order
// and ctx is checked between calls; any failure discards the batch.
type FinanceFetcher struct {
	logger *zap.Logger
	now    func() time.Time
}

func NewFinanceFetcher(logger *zap.Logger) *FinanceFetcher {
	return &FinanceFetcher{logger: logger, now: time.Now}
}

func (f *FinanceFetcher) Name() string { return "finance-go" }

func decimalFloat(d decimal.Decimal) float64 {
	v, _ := d.Float64()
	return v
}

func (f *FinanceFetcher) chartBars(ctx context.Context, symbol string, start, end time.Time, interval datetime.Interval) ([]model.OHLCV, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	iter := chart.Get(&chart.Params{
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: interval,
	})
	var bars []model.OHLCV
	for iter.Next() {
		bar := iter.Bar()
		bars = append(bars, model.OHLCV{
			Time:   time.Unix(int64(bar.Timestamp), 0),
			Open:   decimalFloat(bar.Open),
			High:   decimalFloat(bar.High),
			Low:    decimalFloat(bar.Low),
			Close:  decimalFloat(bar.Close),
			Volume: float64(bar.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("chart %s: no data returned", symbol)
	}
	return bars, nil
}

func (f *FinanceFetcher) FetchDailyBars(ctx context.Context, tickers []string, periodDays int) (map[string]*model.PriceSeries, error) {
	end := f.now()
	start := end.AddDate(0, 0, -periodDays)
	out := make(map[string]*model.PriceSeries, len(tickers))
	for _, ticker := range tickers {
		bars, err := f.chartBars(ctx, ticker, start, end, datetime.OneDay)
		if err != nil {
			f.logger.Warn("daily batch fetch failed", zap.String("ticker", ticker), zap.Error(err))
			return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
		}
		out[ticker] = model.NewPriceSeries(ticker, bars)
	}
	return out, nil
}

func (f *FinanceFetcher) FetchIntraday(ctx context.Context, ticker string, intervalMinutes int) (*model.PriceSeries, error) {
	if intervalMinutes <= 0 {
		return nil, fmt.Errorf("%w: interval %d minutes", model.ErrInvalidInput, intervalMinutes)
	}
	end := f.now()
	start := end.AddDate(0, 0, -1)
	bars, err := f.chartBars(ctx, ticker, start, end, datetime.Interval(fmt.Sprintf("%dm", intervalMinutes)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, err)
	}
	return model.NewPriceSeries(ticker, bars), nil
}

func (f *FinanceFetcher) FetchCurrentPrice(ctx context.Context, ticker string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	q, err := quote.Get(ticker)
	if err != nil {
		return 0, fmt.Errorf("%w: quote %s: %w", model.ErrDataUnavailable, ticker, err)
	}
	if q == nil {
		return 0, fmt.Errorf("%w: quote %s: not found", model.ErrDataUnavailable, ticker)
	}
	return q.RegularMarketPrice, nil
}
