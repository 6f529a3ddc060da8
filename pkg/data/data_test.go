package data

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/pkg/types"
)

const candleCSV = `timestamp,open,high,low,close,volume
2024-01-01 00:00:00,100,101,99,100.5,10
2024-01-02 00:00:00,100.5,102,100,101,12
2024-01-03 00:00:00,bad,102,100,101,12
2024-01-04 00:00:00,101,103,100,102,15
2024-01-05 00:00:00,102,102,90,95,20
`

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func quietProvider(format CSVColumnMapping) *CSVProvider {
	p := NewCSVProviderWithFormat(format)
	p.SetQuiet(true)
	return p
}

func TestCSVProvider_LoadData(t *testing.T) {
	data, err := quietProvider(DefaultCSVFormat).LoadData(writeCSV(t, candleCSV))
	require.NoError(t, err)

	require.Len(t, data, 4, "malformed row is skipped")
	assert.Equal(t, 100.5, data[0].Close)
	assert.Equal(t, 95.0, data[3].Close)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), data[2].Timestamp)
	assert.Equal(t, []float64{100.5, 101, 102, 95}, types.ClosePrices(data))
}

func TestCSVProvider_PriceSeriesFormat(t *testing.T) {
	input := "time,price\n2024-01-01 00:00:00,10\n2024-01-01 01:00:00,11.5\n2024-01-01 02:00:00,-1\n"

	data, err := quietProvider(PriceSeriesFormat).Parse(strings.NewReader(input))
	require.NoError(t, err)

	require.Len(t, data, 2, "non-positive price is skipped")
	assert.Equal(t, 11.5, data[1].Close)
	assert.Equal(t, 11.5, data[1].High)
	assert.Equal(t, 0.0, data[1].Volume)
}

func TestCSVProvider_Errors(t *testing.T) {
	p := quietProvider(DefaultCSVFormat)

	_, err := p.LoadData(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Equal(t, boterrors.ErrorCategoryData, boterrors.CategoryOf(err))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = p.Parse(strings.NewReader(""))
	assert.Error(t, err)
}

func TestCSVProvider_ValidateData(t *testing.T) {
	p := NewCSVProvider()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Error(t, p.ValidateData(nil))

	good := []types.OHLCV{
		{Timestamp: t0, Open: 10, High: 11, Low: 9, Close: 10},
		{Timestamp: t0.Add(time.Hour), Open: 10, High: 12, Low: 10, Close: 11},
	}
	assert.NoError(t, p.ValidateData(good))

	outOfOrder := []types.OHLCV{good[1], good[0]}
	assert.Error(t, p.ValidateData(outOfOrder))

	badHigh := []types.OHLCV{{Timestamp: t0, Open: 10, High: 9, Low: 8, Close: 10}}
	assert.Error(t, p.ValidateData(badHigh))
}

type countingProvider struct {
	*CSVProvider
	loads int
}

func (c *countingProvider) LoadData(source string) ([]types.OHLCV, error) {
	c.loads++
	return c.CSVProvider.LoadData(source)
}

func TestCachedProvider(t *testing.T) {
	path := writeCSV(t, candleCSV)
	inner := &countingProvider{CSVProvider: quietProvider(DefaultCSVFormat)}
	cached := NewCachedProvider(inner)

	first, err := cached.LoadData(path)
	require.NoError(t, err)
	first[0].Close = -1

	second, err := cached.LoadData(path)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.loads)
	assert.Equal(t, 100.5, second[0].Close, "cache hands out copies")
	assert.Equal(t, 1, cached.GetCacheSize())
	assert.Equal(t, "Cached CSV Provider", cached.GetName())

	_, err = cached.LoadData(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
	assert.Equal(t, 1, cached.GetCacheSize(), "failed loads are not cached")

	cached.ClearCache()
	assert.Equal(t, 0, cached.GetCacheSize())
}

func TestDefaultDataFilter(t *testing.T) {
	f := NewDefaultDataFilter()
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	var data []types.OHLCV
	for i := 0; i < 10; i++ {
		data = append(data, types.OHLCV{Timestamp: t0.Add(time.Duration(i) * 24 * time.Hour), Close: float64(i)})
	}

	trailing := f.FilterByPeriod(data, 3*24*time.Hour)
	require.Len(t, trailing, 4)
	assert.Equal(t, 6.0, trailing[0].Close)
	assert.Len(t, f.FilterByPeriod(data, 0), 10)

	ranged := f.FilterByDateRange(data, t0.Add(24*time.Hour), t0.Add(3*24*time.Hour))
	assert.Len(t, ranged, 3)

	assert.NoError(t, f.ValidateTimeSequence(data))
	dup := append([]types.OHLCV{}, data[0], data[0])
	assert.Error(t, f.ValidateTimeSequence(dup))
	assert.Len(t, f.RemoveDuplicates(dup), 1)

	shuffled := []types.OHLCV{data[2], data[0], data[1]}
	sorted := f.SortByTimestamp(shuffled)
	assert.Equal(t, []float64{0, 1, 2}, types.ClosePrices(sorted))
	assert.Equal(t, 2.0, shuffled[0].Close, "input is not modified")
}

func TestDataManager_LoadSeries(t *testing.T) {
	dm := NewDataManagerWithProvider(quietProvider(DefaultCSVFormat))
	path := writeCSV(t, candleCSV)

	candles, closes, err := dm.LoadSeries(path, Window{})
	require.NoError(t, err)
	assert.Len(t, candles, 4)
	assert.Equal(t, []float64{100.5, 101, 102, 95}, closes)

	_, closes, err = dm.LoadSeries(path, Window{Period: "2d"})
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 95}, closes)

	_, _, err = dm.LoadSeries(path, Window{Period: "soon"})
	assert.Error(t, err)
}

func TestDataManager_LoadSeriesSortsAndDedups(t *testing.T) {
	dm := NewDataManagerWithProvider(quietProvider(PriceSeriesFormat))
	path := writeCSV(t, `timestamp,price
2024-01-03 00:00:00,3
2024-01-01 00:00:00,1
2024-01-02 00:00:00,2
2024-01-02 00:00:00,20
2024-01-04 00:00:00,4
`)

	candles, closes, err := dm.LoadSeries(path, Window{})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, closes)
	assert.NoError(t, NewDefaultDataFilter().ValidateTimeSequence(candles))
}

func TestDataManager_LoadSeriesDateRange(t *testing.T) {
	dm := NewDataManagerWithProvider(quietProvider(DefaultCSVFormat))
	path := writeCSV(t, candleCSV)

	from, err := ParseDate("2024-01-02")
	require.NoError(t, err)
	to, err := ParseDate("2024-01-04 00:00:00")
	require.NoError(t, err)

	_, closes, err := dm.LoadSeries(path, Window{From: from, To: to})
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102}, closes)

	_, closes, err = dm.LoadSeries(path, Window{From: from})
	require.NoError(t, err)
	assert.Equal(t, []float64{101, 102, 95}, closes, "open end keeps the tail")

	_, closes, err = dm.LoadSeries(path, Window{To: to})
	require.NoError(t, err)
	assert.Equal(t, []float64{100.5, 101, 102}, closes, "open start keeps the head")

	_, _, err = dm.LoadSeries(path, Window{From: to, To: from})
	assert.Error(t, err)
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2024-03-01", "2024-03-01 00:00:00", "2024-03-01T00:00:00Z"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := ParseDate("03/01/2024")
	assert.Error(t, err)
}

func TestParseTrailingPeriod(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
		ok   bool
	}{
		{"7d", 7 * 24 * time.Hour, true},
		{"30days", 30 * 24 * time.Hour, true},
		{"168h", 168 * time.Hour, true},
		{"0d", 0, false},
		{"d", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		got, ok := ParseTrailingPeriod(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestFileLocator(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "bybit", "linear", "BTCUSDT", "60")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "candles.csv"), []byte(candleCSV), 0644))

	path, err := NewDataManager().FindDataFile(root, "bybit", "btcusdt", "1h")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "candles.csv"), path)

	_, err = NewDataManager().FindDataFile(root, "bybit", "ETHUSDT", "1h")
	assert.Error(t, err)

	assert.Equal(t, "240", ConvertIntervalToMinutes("4h"))
	assert.Equal(t, "1440", ConvertIntervalToMinutes("1d"))
	assert.Equal(t, "15", ConvertIntervalToMinutes("15"))
}
