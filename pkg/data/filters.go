package data

import (
	"fmt"
	"sort"
	"time"

	"github.com/ducminhle1904/ou-reversion-bot/pkg/types"
)

// DefaultDataFilter implements DataFilter for common filtering operations
type DefaultDataFilter struct{}

// NewDefaultDataFilter creates a new default data filter
func NewDefaultDataFilter() *DefaultDataFilter {
	return &DefaultDataFilter{}
}

// FilterByPeriod keeps candles no older than period before the last one.
// A non-positive period returns data unchanged.
func (f *DefaultDataFilter) FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV {
	if period <= 0 || len(data) == 0 {
		return data
	}

	cutoff := data[len(data)-1].Timestamp.Add(-period)
	start := sort.Search(len(data), func(i int) bool {
		return !data[i].Timestamp.Before(cutoff)
	})
	return data[start:]
}

// FilterByDateRange keeps candles with start <= timestamp <= end
func (f *DefaultDataFilter) FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV {
	var filtered []types.OHLCV
	for _, candle := range data {
		if !candle.Timestamp.Before(start) && !candle.Timestamp.After(end) {
			filtered = append(filtered, candle)
		}
	}
	return filtered
}

// ValidateTimeSequence rejects out-of-order and duplicate timestamps
func (f *DefaultDataFilter) ValidateTimeSequence(data []types.OHLCV) error {
	for i := 1; i < len(data); i++ {
		if data[i].Timestamp.Before(data[i-1].Timestamp) {
			return fmt.Errorf("data not in chronological order at index %d: %s comes after %s",
				i, data[i].Timestamp.Format(time.RFC3339), data[i-1].Timestamp.Format(time.RFC3339))
		}
		if data[i].Timestamp.Equal(data[i-1].Timestamp) {
			return fmt.Errorf("duplicate timestamp at index %d: %s",
				i, data[i].Timestamp.Format(time.RFC3339))
		}
	}
	return nil
}

// SortByTimestamp returns a chronologically sorted copy
func (f *DefaultDataFilter) SortByTimestamp(data []types.OHLCV) []types.OHLCV {
	sorted := append([]types.OHLCV(nil), data...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}

// RemoveDuplicates drops repeated timestamps, keeping the first occurrence
func (f *DefaultDataFilter) RemoveDuplicates(data []types.OHLCV) []types.OHLCV {
	if len(data) <= 1 {
		return data
	}

	var filtered []types.OHLCV
	seen := make(map[int64]bool)
	for _, candle := range data {
		ts := candle.Timestamp.UnixNano()
		if !seen[ts] {
			seen[ts] = true
			filtered = append(filtered, candle)
		}
	}
	return filtered
}
