package model

import (
	"fmt"
	"time"
)

// OHLCV represents a single candlestick bar.
type OHLCV struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// PriceSeries is a read-only view over one ticker's bars, ordered oldest to newest.
// Construct it with NewPriceSeries; the bar slice is copied and never mutated afterwards.
type PriceSeries struct {
	Symbol string
	bars   []OHLCV
}

// NewPriceSeries copies bars into a new series for symbol.
func NewPriceSeries(symbol string, bars []OHLCV) *PriceSeries {
	cp := make([]OHLCV, len(bars))
	copy(cp, bars)
	return &PriceSeries{Symbol: symbol, bars: cp}
}

// Len returns the number of bars.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.bars)
}

// Bars returns a copy of all bars.
func (s *PriceSeries) Bars() []OHLCV {
	cp := make([]OHLCV, s.Len())
	if s != nil {
		copy(cp, s.bars)
	}
	return cp
}

// Bar returns the bar at offset from the end: 0 is the newest bar.
func (s *PriceSeries) Bar(offsetFromEnd int) (OHLCV, error) {
	if offsetFromEnd < 0 {
		return OHLCV{}, fmt.Errorf("%w: negative offset %d", ErrInvalidInput, offsetFromEnd)
	}
	n := s.Len()
	if offsetFromEnd >= n {
		return OHLCV{}, &InsufficientHistoryError{Need: offsetFromEnd + 1, Have: n}
	}
	return s.bars[n-1-offsetFromEnd], nil
}

// LastClose returns the close of the newest bar.
func (s *PriceSeries) LastClose() (float64, error) {
	return s.CloseAt(0)
}

// CloseAt returns the close offsetFromEnd bars before the newest one.
func (s *PriceSeries) CloseAt(offsetFromEnd int) (float64, error) {
	b, err := s.Bar(offsetFromEnd)
	if err != nil {
		return 0, err
	}
	return b.Close, nil
}

// Slice returns a series holding exactly the last n bars.
// It never truncates silently: fewer than n bars is an InsufficientHistory error.
func (s *PriceSeries) Slice(lastN int) (*PriceSeries, error) {
	if lastN < 1 {
		return nil, fmt.Errorf("%w: slice length %d", ErrInvalidInput, lastN)
	}
	n := s.Len()
	if n < lastN {
		return nil, &InsufficientHistoryError{Need: lastN, Have: n}
	}
	return &PriceSeries{Symbol: s.Symbol, bars: s.bars[n-lastN:]}, nil
}

// DropLast returns the series without its newest bar.
func (s *PriceSeries) DropLast() (*PriceSeries, error) {
	n := s.Len()
	if n < 1 {
		return nil, &InsufficientHistoryError{Need: 1, Have: 0}
	}
	return &PriceSeries{Symbol: s.Symbol, bars: s.bars[:n-1]}, nil
}

// Closes returns the close prices in order.
func (s *PriceSeries) Closes() []float64 {
	closes := make([]float64, s.Len())
	for i := range closes {
		closes[i] = s.bars[i].Close
	}
	return closes
}
