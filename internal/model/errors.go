package model

import (
	"errors"
	"fmt"
)

var (
	// ErrInsufficientHistory means a lookback asked for more bars than exist.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrDataUnavailable means the upstream market data source failed.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrCacheWriteFailed means persisting a refreshed batch failed; the previous cache is intact.
	ErrCacheWriteFailed = errors.New("cache write failed")
	// ErrDivisionByZero is returned for a zero risk candle.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrInvalidInput flags out-of-range or non-numeric user values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned by stores that hold nothing for a ticker.
	ErrNotFound = errors.New("not found")
)

// InsufficientHistoryError reports how many bars were needed and how many existed.
type InsufficientHistoryError struct {
	Need int
	Have int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("insufficient history: need %d bars, have %d", e.Need, e.Have)
}

func (e *InsufficientHistoryError) Is(target error) bool {
	return target == ErrInsufficientHistory
}
