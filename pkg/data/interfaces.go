package data

import (
	"time"

	"github.com/ducminhle1904/ou-reversion-bot/pkg/types"
)

// DataProvider interface for loading historical price data from various sources
type DataProvider interface {
	// LoadData loads historical data from the specified source
	LoadData(source string) ([]types.OHLCV, error)

	// ValidateData validates the integrity of the loaded data
	ValidateData(data []types.OHLCV) error

	// GetName returns the name of the data provider
	GetName() string
}

// DataCache interface for caching loaded data
type DataCache interface {
	Get(key string) ([]types.OHLCV, bool)
	Set(key string, data []types.OHLCV)
	Clear()
	Size() int
}

// DataFilter interface for filtering and transforming data
type DataFilter interface {
	// FilterByPeriod keeps the trailing period ending at the last candle
	FilterByPeriod(data []types.OHLCV, period time.Duration) []types.OHLCV

	// FilterByDateRange keeps candles in [start, end]
	FilterByDateRange(data []types.OHLCV, start, end time.Time) []types.OHLCV

	// ValidateTimeSequence ensures data is in strictly chronological order
	ValidateTimeSequence(data []types.OHLCV) error

	// SortByTimestamp returns a chronologically sorted copy
	SortByTimestamp(data []types.OHLCV) []types.OHLCV

	// RemoveDuplicates drops repeated timestamps, keeping the first occurrence
	RemoveDuplicates(data []types.OHLCV) []types.OHLCV
}

// NoColumn marks a field absent from a CSV layout
const NoColumn = -1

// CSVColumnMapping defines the column positions for different CSV formats.
// Open, high and low default to the close when their column is NoColumn;
// volume defaults to zero.
type CSVColumnMapping struct {
	TimestampCol int
	OpenCol      int
	HighCol      int
	LowCol       int
	CloseCol     int
	VolumeCol    int
	MinColumns   int
	DateFormat   string
}

// Predefined CSV formats
var (
	// DefaultCSVFormat is the exchange candle export: timestamp,open,high,low,close,volume
	DefaultCSVFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      1,
		HighCol:      2,
		LowCol:       3,
		CloseCol:     4,
		VolumeCol:    5,
		MinColumns:   6,
		DateFormat:   "2006-01-02 15:04:05",
	}

	// PriceSeriesFormat is a bare timestamp,price series
	PriceSeriesFormat = CSVColumnMapping{
		TimestampCol: 0,
		OpenCol:      NoColumn,
		HighCol:      NoColumn,
		LowCol:       NoColumn,
		CloseCol:     1,
		VolumeCol:    NoColumn,
		MinColumns:   2,
		DateFormat:   "2006-01-02 15:04:05",
	}
)

// FileLocator interface for finding data files
type FileLocator interface {
	// FindDataFile locates the candle file for an exchange, symbol and interval
	FindDataFile(dataRoot, exchange, symbol, interval string) (string, error)
}
