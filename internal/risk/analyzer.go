package risk

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"BreakoutScanner/internal/calculator"
	"BreakoutScanner/internal/collector"
	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/session"
)

// DefaultIntradayMinutes is the first-candle interval.
const DefaultIntradayMinutes = 2

// DailySource supplies daily series, normally the cache.
type DailySource interface {
	Load(ctx context.Context, tickers []string) (map[string]*model.PriceSeries, error)
}

// Analyzer picks the risk candle for a ticker and sizes the position.
type Analyzer struct {
	daily           DailySource
	fetcher         collector.Fetcher
	cutover         session.Cutover
	clock           session.Clock
	intradayMinutes int
	logger          *zap.Logger
}

func NewAnalyzer(daily DailySource, fetcher collector.Fetcher, cutover session.Cutover, clock session.Clock, intradayMinutes int, logger *zap.Logger) *Analyzer {
	if intradayMinutes <= 0 {
		intradayMinutes = DefaultIntradayMinutes
	}
	if clock == nil {
		clock = session.SystemClock
	}
	return &Analyzer{
		daily:           daily,
		fetcher:         fetcher,
		cutover:         cutover,
		clock:           clock,
		intradayMinutes: intradayMinutes,
		logger:          logger,
	}
}

// RiskCandle returns the gap before the cutover, and the session's first
// intraday candle once the session has started.
func (a *Analyzer) RiskCandle(ctx context.Context, ticker string) (float64, model.RiskCandleSource, error) {
	if a.cutover.Passed(a.clock()) {
		intraday, err := a.fetcher.FetchIntraday(ctx, ticker, a.intradayMinutes)
		if err != nil {
			return 0, model.SourceFirstCandle, err
		}
		fc, err := calculator.FirstCandle(intraday, a.cutover)
		return fc, model.SourceFirstCandle, err
	}

	series, err := a.daily.Load(ctx, []string{ticker})
	if err != nil {
		return 0, model.SourceGap, err
	}
	ps, ok := series[ticker]
	if !ok {
		return 0, model.SourceGap, fmt.Errorf("%w: no daily bars for %s", model.ErrDataUnavailable, ticker)
	}
	gap, err := calculator.Gap(ps)
	return gap, model.SourceGap, err
}

// Analyze sizes a position in ticker for riskDollars. A failed price lookup is
// not an error: the result simply carries no price-derived fields.
func (a *Analyzer) Analyze(ctx context.Context, ticker string, riskDollars float64) (*model.RiskResult, error) {
	candle, source, err := a.RiskCandle(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("risk candle for %s: %w", ticker, err)
	}
	res, err := a.withPrice(ctx, ticker, riskDollars, candle)
	if err != nil {
		return nil, err
	}
	res.Source = source
	return res, nil
}

// AnalyzeWithCandle sizes a position using a caller-supplied risk candle.
func (a *Analyzer) AnalyzeWithCandle(ctx context.Context, ticker string, riskDollars, candle float64) (*model.RiskResult, error) {
	res, err := a.withPrice(ctx, ticker, riskDollars, candle)
	if err != nil {
		return nil, err
	}
	res.Source = model.SourceManual
	return res, nil
}

func (a *Analyzer) withPrice(ctx context.Context, ticker string, riskDollars, candle float64) (*model.RiskResult, error) {
	var price *float64
	p, err := a.fetcher.FetchCurrentPrice(ctx, ticker)
	if err != nil {
		a.logger.Warn("current price unavailable", zap.String("ticker", ticker), zap.Error(err))
	} else {
		price = &p
	}
	res, err := Dict(riskDollars, candle, price)
	if err != nil {
		return nil, fmt.Errorf("risk for %s: %w", ticker, err)
	}
	res.Ticker = ticker
	return res, nil
}
