package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"BreakoutScanner/internal/model"
)

func sampleSeries(ticker string, closes ...float64) *model.PriceSeries {
	start := time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)
	bars := make([]model.OHLCV, len(closes))
	for i, c := range closes {
		bars[i] = model.OHLCV{Time: start.AddDate(0, 0, i), Open: c - 0.5, High: c + 1, Low: c - 1, Close: c, Volume: 1000 * float64(i+1)}
	}
	return model.NewPriceSeries(ticker, bars)
}

// backends returns every store that runs without external services.
func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	sq, err := NewSQLiteStore(filepath.Join(dir, "db", "bars.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sq.Close() })
	cs, err := NewCSVStore(filepath.Join(dir, "csv"))
	require.NoError(t, err)
	return map[string]Store{
		"sqlite": sq,
		"csv":    cs,
		"memory": NewMemoryStore(),
	}
}

var (
	day1 = time.Date(2024, 3, 4, 18, 45, 0, 0, time.Local)
	day2 = day1.AddDate(0, 0, 1)
)

func TestStore_RoundTripAndOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.ReadSeries(ctx, "AAPL")
			assert.ErrorIs(t, err, model.ErrNotFound)

			require.NoError(t, s.ReplaceAll(ctx, map[string]*model.PriceSeries{
				"AAPL": sampleSeries("AAPL", 1, 2, 3),
				"MSFT": sampleSeries("MSFT", 10, 11),
			}, day1))

			got, err := s.ReadSeries(ctx, "AAPL")
			require.NoError(t, err)
			assert.Equal(t, []float64{1, 2, 3}, got.Closes())
			assert.Equal(t, "AAPL", got.Symbol)
			bars := got.Bars()
			assert.True(t, bars[0].Time.Equal(time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC)))
			assert.Equal(t, 2000.0, bars[1].Volume)

			// overwrite replaces, never appends
			require.NoError(t, s.ReplaceAll(ctx, map[string]*model.PriceSeries{
				"AAPL": sampleSeries("AAPL", 7),
			}, day2))
			got, err = s.ReadSeries(ctx, "AAPL")
			require.NoError(t, err)
			assert.Equal(t, []float64{7}, got.Closes())

			other, err := s.ReadSeries(ctx, "MSFT")
			require.NoError(t, err)
			assert.Equal(t, 2, other.Len())
		})
	}
}

func TestStore_RefreshDatePerTicker(t *testing.T) {
	ctx := context.Background()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.RefreshDate(ctx, "AAPL")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.ReplaceAll(ctx, map[string]*model.PriceSeries{
				"AAPL": sampleSeries("AAPL", 1),
				"MSFT": sampleSeries("MSFT", 2),
			}, day1))
			require.NoError(t, s.ReplaceAll(ctx, map[string]*model.PriceSeries{
				"AAPL": sampleSeries("AAPL", 3),
			}, day2))

			got, ok, err := s.RefreshDate(ctx, "AAPL")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "2024-03-05", got.Format(DateLayout))

			got, ok, err = s.RefreshDate(ctx, "MSFT")
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, "2024-03-04", got.Format(DateLayout), "untouched ticker keeps its date")

			_, ok, err = s.RefreshDate(ctx, "NFLX")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestMemoryStore_FailedWriteKeepsPreviousData(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.ReplaceAll(ctx, map[string]*model.PriceSeries{"A": sampleSeries("A", 1)}, day1))

	m.FailWrites = os.ErrPermission
	err := m.ReplaceAll(ctx, map[string]*model.PriceSeries{"A": sampleSeries("A", 2)}, day2)
	assert.ErrorIs(t, err, os.ErrPermission)

	got, err := m.ReadSeries(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, got.Closes())
	d, _, _ := m.RefreshDate(ctx, "A")
	assert.Equal(t, "2024-03-04", d.Format(DateLayout))
}

func TestCSVStore_EmptyFileIsNotFound(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "EMPTY.csv"), []byte("Date,Open,High,Low,Close,Volume\n"), 0o644))

	_, err = s.ReadSeries(context.Background(), "EMPTY")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestCSVStore_NoTempFilesLeft(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAll(context.Background(), map[string]*model.PriceSeries{
		"A": sampleSeries("A", 1),
		"B": sampleSeries("B", 2),
	}, day1))
	require.NoError(t, s.ReplaceAll(context.Background(), map[string]*model.PriceSeries{
		"A": sampleSeries("A", 3),
	}, day2))
	for _, pattern := range []string{"*.tmp", "*.bak"} {
		left, err := filepath.Glob(filepath.Join(dir, pattern))
		require.NoError(t, err)
		assert.Empty(t, left, pattern)
	}
}

func TestCSVStore_FailedCommitRestoresPreviousFiles(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.ReplaceAll(ctx, map[string]*model.PriceSeries{
		"A": sampleSeries("A", 1),
		"B": sampleSeries("B", 2),
	}, day1))

	// A is committed before B's rename fails
	diskFull := errors.New("no space left on device")
	s.rename = func(oldpath, newpath string) error {
		if newpath == filepath.Join(dir, "B.csv") {
			return diskFull
		}
		return os.Rename(oldpath, newpath)
	}
	err = s.ReplaceAll(ctx, map[string]*model.PriceSeries{
		"A": sampleSeries("A", 5, 6),
		"B": sampleSeries("B", 7, 8),
	}, day2)
	require.ErrorIs(t, err, diskFull)

	a, err := s.ReadSeries(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []float64{1}, a.Closes())
	b, err := s.ReadSeries(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, b.Closes())
	for _, ticker := range []string{"A", "B"} {
		d, ok, err := s.RefreshDate(ctx, ticker)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "2024-03-04", d.Format(DateLayout), ticker)
	}
	for _, pattern := range []string{"*.tmp", "*.bak"} {
		left, err := filepath.Glob(filepath.Join(dir, pattern))
		require.NoError(t, err)
		assert.Empty(t, left, pattern)
	}
}

func TestCSVStore_FailedCommitOfNewTickerLeavesNoFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s, err := NewCSVStore(dir)
	require.NoError(t, err)
	s.rename = func(oldpath, newpath string) error {
		if filepath.Base(newpath) == refreshFile {
			return os.ErrPermission
		}
		return os.Rename(oldpath, newpath)
	}

	err = s.ReplaceAll(ctx, map[string]*model.PriceSeries{"NEW": sampleSeries("NEW", 1)}, day1)
	require.ErrorIs(t, err, os.ErrPermission)

	_, err = s.ReadSeries(ctx, "NEW")
	assert.ErrorIs(t, err, model.ErrNotFound)
	_, ok, err := s.RefreshDate(ctx, "NEW")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_UnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), Options{Backend: "postgres"})
	assert.ErrorIs(t, err, model.ErrInvalidInput)

	s, err := Open(context.Background(), Options{Backend: "memory"})
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())
}
