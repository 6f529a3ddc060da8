package data

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ducminhle1904/ou-reversion-bot/pkg/types"
)

// DataManager combines loading, validation and trailing-period filtering
type DataManager struct {
	provider DataProvider
	filter   DataFilter
	locator  FileLocator
}

// NewDataManager creates a new data manager with default components
func NewDataManager() *DataManager {
	return NewDataManagerWithProvider(NewCachedProvider(NewCSVProvider()))
}

// NewDataManagerWithProvider creates a data manager with a custom provider
func NewDataManagerWithProvider(provider DataProvider) *DataManager {
	return &DataManager{
		provider: provider,
		filter:   NewDefaultDataFilter(),
		locator:  NewDefaultFileLocator(),
	}
}

// Window selects the part of a series to keep. Period is a trailing window
// ending at the last candle ("30d", "720h"); From and To bound timestamps
// inclusively. Zero values leave that side open.
type Window struct {
	Period string
	From   time.Time
	To     time.Time
}

// LoadSeries loads candles from source, sorts them, drops repeated
// timestamps, applies the window and returns the candles with their close
// series.
func (dm *DataManager) LoadSeries(source string, window Window) ([]types.OHLCV, []float64, error) {
	candles, err := dm.provider.LoadData(source)
	if err != nil {
		return nil, nil, err
	}
	if err := dm.provider.ValidateData(candles); err != nil {
		return nil, nil, err
	}

	candles = dm.filter.RemoveDuplicates(dm.filter.SortByTimestamp(candles))
	if err := dm.filter.ValidateTimeSequence(candles); err != nil {
		return nil, nil, err
	}

	if !window.From.IsZero() || !window.To.IsZero() {
		if !window.To.IsZero() && window.To.Before(window.From) {
			return nil, nil, fmt.Errorf("invalid date range: %s is before %s",
				window.To.Format(time.RFC3339), window.From.Format(time.RFC3339))
		}
		end := window.To
		if end.IsZero() && len(candles) > 0 {
			end = candles[len(candles)-1].Timestamp
		}
		candles = dm.filter.FilterByDateRange(candles, window.From, end)
	}

	if window.Period != "" {
		d, ok := ParseTrailingPeriod(window.Period)
		if !ok {
			return nil, nil, fmt.Errorf("invalid period %q (use e.g. 30d or 720h)", window.Period)
		}
		candles = dm.filter.FilterByPeriod(candles, d)
	}

	return candles, types.ClosePrices(candles), nil
}

// ParseDate accepts "2006-01-02", "2006-01-02 15:04:05" or RFC 3339, in UTC
// unless the value carries an offset
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
}

// FindDataFile locates a candle file under the exchange data tree
func (dm *DataManager) FindDataFile(dataRoot, exchange, symbol, interval string) (string, error) {
	return dm.locator.FindDataFile(dataRoot, exchange, symbol, interval)
}

// ParseTrailingPeriod parses period strings like "7d", "30days" or raw
// durations such as "168h"
func ParseTrailingPeriod(s string) (time.Duration, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if strings.HasSuffix(s, "days") {
		s = strings.TrimSuffix(s, "days") + "d"
	}
	if strings.HasSuffix(s, "d") {
		n, err := strconv.Atoi(strings.TrimSuffix(s, "d"))
		if err != nil || n <= 0 {
			return 0, false
		}
		return time.Duration(n) * 24 * time.Hour, true
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d, true
	}
	return 0, false
}

// DefaultFileLocator implements FileLocator for the
// {root}/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv layout
type DefaultFileLocator struct{}

// NewDefaultFileLocator creates a new default file locator
func NewDefaultFileLocator() *DefaultFileLocator {
	return &DefaultFileLocator{}
}

// FindDataFile tries each market category of the exchange in turn
func (f *DefaultFileLocator) FindDataFile(dataRoot, exchange, symbol, interval string) (string, error) {
	symbol = strings.ToUpper(symbol)
	minutes := ConvertIntervalToMinutes(interval)

	var categories []string
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = []string{"spot", "linear", "inverse"}
	case "binance":
		categories = []string{"spot", "futures"}
	default:
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	attempted := make([]string, 0, len(categories))
	for _, category := range categories {
		path := filepath.Join(dataRoot, exchange, category, symbol, minutes, "candles.csv")
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
		attempted = append(attempted, path)
	}
	return "", fmt.Errorf("no data file for %s %s %s, tried: %s",
		exchange, symbol, interval, strings.Join(attempted, ", "))
}

// ConvertIntervalToMinutes converts "5m", "1h", "4h", "1d" to minute counts.
// Unparseable input is returned unchanged.
func ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}
	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}
	switch interval[len(interval)-1] {
	case 'm':
		return strconv.Itoa(num)
	case 'h':
		return strconv.Itoa(num * 60)
	case 'd':
		return strconv.Itoa(num * 24 * 60)
	case 'w':
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}
