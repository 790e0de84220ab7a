package collector

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"BreakoutScanner/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Price    float64
	Daily    map[string][]model.OHLCV
	Intraday map[string][]model.OHLCV
	Prices   map[string]float64

	// Err fails every call; FailTickers fails a batch containing any of them.
	Err         error
	FailTickers map[string]bool
	PriceErr    error

	DailyCalls atomic.Int32
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchDailyBars(ctx context.Context, tickers []string, days int) (map[string]*model.PriceSeries, error) {
	m.DailyCalls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, m.Err)
	}
	out := make(map[string]*model.PriceSeries, len(tickers))
	for _, t := range tickers {
		if m.FailTickers[t] {
			return nil, fmt.Errorf("%w: mock failure for %s", model.ErrDataUnavailable, t)
		}
		bars, ok := m.Daily[t]
		if !ok {
			bars = generateMockBars(m.Price, days)
		}
		out[t] = model.NewPriceSeries(t, bars)
	}
	return out, nil
}

func (m *MockFetcher) FetchIntraday(_ context.Context, ticker string, _ int) (*model.PriceSeries, error) {
	if m.Err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrDataUnavailable, m.Err)
	}
	bars, ok := m.Intraday[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: no intraday data for %s", model.ErrDataUnavailable, ticker)
	}
	return model.NewPriceSeries(ticker, bars), nil
}

func (m *MockFetcher) FetchCurrentPrice(_ context.Context, ticker string) (float64, error) {
	if m.PriceErr != nil {
		return 0, fmt.Errorf("%w: %w", model.ErrDataUnavailable, m.PriceErr)
	}
	if p, ok := m.Prices[ticker]; ok {
		return p, nil
	}
	return m.Price, nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   time.Now().AddDate(0, 0, -(count - i)),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}
