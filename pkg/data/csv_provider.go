package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/pkg/types"
)

// CSVProvider implements DataProvider for CSV files
type CSVProvider struct {
	format CSVColumnMapping
	quiet  bool
}

// NewCSVProvider creates a new CSV data provider with default format
func NewCSVProvider() *CSVProvider {
	return &CSVProvider{
		format: DefaultCSVFormat,
	}
}

// NewCSVProviderWithFormat creates a new CSV data provider with custom format
func NewCSVProviderWithFormat(format CSVColumnMapping) *CSVProvider {
	return &CSVProvider{
		format: format,
	}
}

// SetQuiet disables the per-row skip warnings
func (p *CSVProvider) SetQuiet(quiet bool) {
	p.quiet = quiet
}

// GetName returns the name of the data provider
func (p *CSVProvider) GetName() string {
	return "CSV Provider"
}

// LoadData loads historical data from a CSV file
func (p *CSVProvider) LoadData(source string) ([]types.OHLCV, error) {
	file, err := os.Open(source)
	if err != nil {
		return nil, boterrors.NewDataError("csv", "open", err).WithContext("source", source)
	}
	defer file.Close()

	return p.Parse(file)
}

// Parse reads candles from r. The first row is a header. Malformed rows are
// skipped with a warning; I/O errors abort.
func (p *CSVProvider) Parse(r io.Reader) ([]types.OHLCV, error) {
	format := p.format
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, boterrors.NewDataError("csv", "parse", errors.New("empty file"))
		}
		return nil, boterrors.NewDataError("csv", "parse", err)
	}

	var data []types.OHLCV
	lineNum := 1
	for {
		record, err := reader.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, boterrors.NewDataError("csv", "parse", fmt.Errorf("line %d: %w", lineNum+1, err))
		}
		lineNum++

		candle, err := parseRecord(record, format)
		if err != nil {
			p.warn("⚠️ Skipping line %d: %v", lineNum, err)
			continue
		}
		data = append(data, candle)
	}

	return data, nil
}

func (p *CSVProvider) warn(format string, args ...interface{}) {
	if !p.quiet {
		log.Printf(format, args...)
	}
}

func parseRecord(record []string, format CSVColumnMapping) (types.OHLCV, error) {
	if len(record) < format.MinColumns {
		return types.OHLCV{}, fmt.Errorf("insufficient columns (expected %d, got %d)", format.MinColumns, len(record))
	}

	timestamp, err := time.Parse(format.DateFormat, strings.TrimSpace(record[format.TimestampCol]))
	if err != nil {
		return types.OHLCV{}, fmt.Errorf("invalid timestamp %q: %w", record[format.TimestampCol], err)
	}

	closePrice, err := parseColumn(record, format.CloseCol, "close")
	if err != nil {
		return types.OHLCV{}, err
	}

	candle := types.OHLCV{
		Timestamp: timestamp,
		Open:      closePrice,
		High:      closePrice,
		Low:       closePrice,
		Close:     closePrice,
	}

	optional := []struct {
		col    int
		name   string
		target *float64
	}{
		{format.OpenCol, "open", &candle.Open},
		{format.HighCol, "high", &candle.High},
		{format.LowCol, "low", &candle.Low},
		{format.VolumeCol, "volume", &candle.Volume},
	}
	for _, o := range optional {
		if o.col == NoColumn {
			continue
		}
		v, err := parseColumn(record, o.col, o.name)
		if err != nil {
			return types.OHLCV{}, err
		}
		*o.target = v
	}

	if err := validateCandle(candle); err != nil {
		return types.OHLCV{}, err
	}
	return candle, nil
}

func parseColumn(record []string, col int, name string) (float64, error) {
	if col < 0 || col >= len(record) {
		return 0, fmt.Errorf("missing %s column %d", name, col)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(record[col]), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, record[col], err)
	}
	return v, nil
}

func validateCandle(candle types.OHLCV) error {
	if candle.Open <= 0 || candle.High <= 0 || candle.Low <= 0 || candle.Close <= 0 {
		return fmt.Errorf("prices must be positive")
	}
	if candle.High < candle.Low {
		return fmt.Errorf("high (%.4f) cannot be less than low (%.4f)", candle.High, candle.Low)
	}
	if candle.High < candle.Open || candle.High < candle.Close {
		return fmt.Errorf("high (%.4f) must be >= open (%.4f) and close (%.4f)", candle.High, candle.Open, candle.Close)
	}
	if candle.Low > candle.Open || candle.Low > candle.Close {
		return fmt.Errorf("low (%.4f) must be <= open (%.4f) and close (%.4f)", candle.Low, candle.Open, candle.Close)
	}
	return nil
}

// ValidateData validates the integrity of loaded data
func (p *CSVProvider) ValidateData(data []types.OHLCV) error {
	if len(data) == 0 {
		return boterrors.NewDataError("csv", "validate", errors.New("no data provided"))
	}

	for i, candle := range data {
		if err := validateCandle(candle); err != nil {
			return boterrors.NewDataError("csv", "validate", fmt.Errorf("index %d: %w", i, err))
		}
		if i > 0 && candle.Timestamp.Before(data[i-1].Timestamp) {
			return boterrors.NewDataError("csv", "validate",
				fmt.Errorf("index %d: timestamps must be in chronological order", i))
		}
	}

	return nil
}
