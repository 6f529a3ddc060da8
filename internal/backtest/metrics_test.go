package backtest

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
)

// TestStepReturns tests simple returns between consecutive values
func TestStepReturns(t *testing.T) {
	assert.Nil(t, StepReturns([]float64{100}))
	assert.InDeltaSlice(t, []float64{0.1, -0.5}, StepReturns([]float64{100, 110, 55}), 1e-12)

	// a non-positive starting value contributes a zero return
	assert.Equal(t, []float64{0, 0}, StepReturns([]float64{0, 10, 10}))
}

// TestCalculateSharpeRatio_Flat tests that a flat curve yields zero
func TestCalculateSharpeRatio_Flat(t *testing.T) {
	assert.Equal(t, 0.0, CalculateSharpeRatio([]float64{100, 100, 100}))
	assert.Equal(t, 0.0, CalculateSharpeRatio([]float64{100}))

	_, err := sharpeRatio([]float64{0, 0, 0})
	assert.ErrorIs(t, err, boterrors.ErrDegenerateVariance)
}

// TestCalculateSharpeRatio_Known tests annualization with population std
func TestCalculateSharpeRatio_Known(t *testing.T) {
	// returns 0.1 and -0.05: mean 0.025, population std 0.075
	values := []float64{100, 110, 104.5}
	expected := 0.025 / 0.075 * math.Sqrt(252)
	assert.InDelta(t, expected, CalculateSharpeRatio(values), 1e-9)
}

// TestCalculateMaxDrawdown tests peak-to-trough measurement
func TestCalculateMaxDrawdown(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{"empty", nil, 0},
		{"rising", []float64{100, 110, 120}, 0},
		{"single dip", []float64{100, 80, 120}, 0.2},
		{"later deeper dip", []float64{100, 90, 200, 100, 150}, 0.5},
		{"wipeout clamps", []float64{100, -50}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CalculateMaxDrawdown(tt.values), 1e-12)
		})
	}
}

// TestUpdateMetrics tests the summary derived from curve and trades
func TestUpdateMetrics(t *testing.T) {
	results := &BacktestResults{
		InitialCapital:  1000,
		PortfolioValues: []float64{1000, 1100, 990, 1200},
		Trades: []Trade{
			{PnL: 100},
			{PnL: -110},
			{PnL: 210},
		},
	}
	results.UpdateMetrics()

	assert.Equal(t, 1200.0, results.FinalValue)
	assert.InDelta(t, 0.2, results.TotalReturn, 1e-12)
	assert.InDelta(t, 0.1, results.MaxDrawdown, 1e-12)
	assert.Equal(t, 2, results.WinningTrades)
	assert.Equal(t, 1, results.LosingTrades)
	assert.Greater(t, results.SharpeRatio, 0.0)
}
