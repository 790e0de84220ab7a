// Package store persists daily bars per ticker and the date of the last refresh.
package store

import (
	"context"
	"fmt"
	"time"

	"BreakoutScanner/internal/model"
)

// DateLayout is how refresh dates are persisted: calendar day only.
const DateLayout = "2006-01-02"

// BarStore holds one series per ticker.
type BarStore interface {
	// ReadSeries returns model.ErrNotFound when nothing is stored for ticker.
	ReadSeries(ctx context.Context, ticker string) (*model.PriceSeries, error)
	// ReplaceAll overwrites every given ticker's series and stamps each of them
	// with refreshed as one unit: on error neither bars nor dates change.
	ReplaceAll(ctx context.Context, series map[string]*model.PriceSeries, refreshed time.Time) error
}

// RefreshRecord holds the calendar date each ticker was last refreshed.
type RefreshRecord interface {
	// RefreshDate returns ok=false when ticker was never refreshed.
	RefreshDate(ctx context.Context, ticker string) (date time.Time, ok bool, err error)
}

// Store is a complete cache backend.
type Store interface {
	BarStore
	RefreshRecord
	Name() string
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend       string // sqlite | csv | redis | memory
	SQLitePath    string
	CSVDir        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// Open builds the configured backend.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Backend {
	case "", "sqlite":
		return NewSQLiteStore(opts.SQLitePath)
	case "csv":
		return NewCSVStore(opts.CSVDir)
	case "redis":
		return NewRedisStore(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", model.ErrInvalidInput, opts.Backend)
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
