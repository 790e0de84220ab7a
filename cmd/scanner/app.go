package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"BreakoutScanner/internal/cache"
	"BreakoutScanner/internal/collector"
	"BreakoutScanner/internal/config"
	"BreakoutScanner/internal/logger"
	"BreakoutScanner/internal/model"
	"BreakoutScanner/internal/risk"
	"BreakoutScanner/internal/scanner"
	"BreakoutScanner/internal/session"
	"BreakoutScanner/internal/store"
)

// app holds the wired components shared by every command.
type app struct {
	cfg      *config.Config
	log      *zap.Logger
	fetcher  collector.Fetcher
	store    store.Store
	cache    *cache.Cache
	cutover  session.Cutover
	tickers  []string
	scanner  *scanner.Scanner
	analyzer *risk.Analyzer
}

type appOptions struct {
	configPath string
	allowStale bool
	progress   cache.ProgressFunc
}

func newApp(ctx context.Context, o appOptions) (*app, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, err
	}

	cut, err := session.Parse(cfg.Session.Cutover, cfg.Session.Timezone)
	if err != nil {
		return nil, fmt.Errorf("session cutover: %w", err)
	}

	fetcher := newFetcher(cfg, log)
	log.Info("data source", zap.String("provider", fetcher.Name()))

	st, err := store.Open(ctx, store.Options{
		Backend:       cfg.Storage.Backend,
		SQLitePath:    cfg.Storage.SQLitePath,
		CSVDir:        cfg.Storage.CSVDir,
		RedisAddr:     cfg.Storage.RedisAddr,
		RedisPassword: cfg.Storage.RedisPassword,
		RedisDB:       cfg.Storage.RedisDB,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Storage.Backend, err)
	}

	opts := []cache.Option{
		cache.WithPeriodDays(cfg.DataSource.PeriodDays),
		cache.WithLogger(log),
	}
	if o.progress != nil {
		opts = append(opts, cache.WithProgress(o.progress))
	}
	c := cache.New(fetcher, st, cut, opts...)

	var daily scanner.DailySource = c
	if o.allowStale {
		daily = staleSource{cache: c, log: log}
	}

	a := &app{
		cfg:     cfg,
		log:     log,
		fetcher: fetcher,
		store:   st,
		cache:   c,
		cutover: cut,
		tickers: config.LoadTickerList(cfg),
		scanner: scanner.New(daily, cut, session.SystemClock, scanner.Options{
			ConsolidationPct: cfg.Analysis.ConsolidationPct,
			Lookback:         cfg.Analysis.LookbackDays,
		}, log),
	}
	a.analyzer = risk.NewAnalyzer(daily, fetcher, cut, session.SystemClock, cfg.Analysis.IntradayMinutes, log)
	return a, nil
}

func newFetcher(cfg *config.Config, log *zap.Logger) collector.Fetcher {
	switch cfg.DataSource.Provider {
	case "finance-go":
		return collector.NewFinanceFetcher(log)
	case "mock":
		return &collector.MockFetcher{Price: 100}
	default:
		return collector.NewYahooFetcher(collector.YahooOptions{
			ProxyURL:          cfg.DataSource.Proxy,
			Timeout:           cfg.DataSource.Timeout,
			RequestsPerSecond: cfg.DataSource.RequestsPerSecond,
		}, log)
	}
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.log.Warn("close store", zap.Error(err))
	}
	_ = a.log.Sync()
}

// checkConnection warns when the Yahoo host is unreachable. Other providers are
// not checked.
func (a *app) checkConnection(ctx context.Context) {
	y, ok := a.fetcher.(*collector.YahooFetcher)
	if !ok {
		return
	}
	if err := y.Ping(ctx); err != nil {
		a.log.Warn("no connection to the market data provider", zap.Error(err))
	}
}

// staleSource falls back to whatever is stored when a refresh cannot fetch data.
type staleSource struct {
	cache *cache.Cache
	log   *zap.Logger
}

func (s staleSource) Load(ctx context.Context, tickers []string) (map[string]*model.PriceSeries, error) {
	series, err := s.cache.Load(ctx, tickers)
	if err == nil || !errors.Is(err, model.ErrDataUnavailable) {
		return series, err
	}
	s.log.Warn("refresh failed, using stored bars", zap.Error(err))
	return s.cache.LoadStored(ctx, tickers)
}
