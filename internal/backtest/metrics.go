package backtest

import (
	"math"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
)

const (
	// TradingDaysPerYear annualizes the per-bar Sharpe ratio
	TradingDaysPerYear = 252

	// MinReturnStd is the return standard deviation below which the Sharpe
	// ratio is reported as 0
	MinReturnStd = 1e-10
)

// UpdateMetrics derives the summary statistics from the portfolio curve and
// the trade log
func (b *BacktestResults) UpdateMetrics() {
	if len(b.PortfolioValues) == 0 {
		return
	}
	b.FinalValue = b.PortfolioValues[len(b.PortfolioValues)-1]
	if b.InitialCapital != 0 {
		b.TotalReturn = (b.FinalValue - b.InitialCapital) / b.InitialCapital
	}
	b.SharpeRatio = CalculateSharpeRatio(b.PortfolioValues)
	b.MaxDrawdown = CalculateMaxDrawdown(b.PortfolioValues)

	b.WinningTrades = 0
	b.LosingTrades = 0
	for _, trade := range b.Trades {
		if trade.PnL > 0 {
			b.WinningTrades++
		} else {
			b.LosingTrades++
		}
	}
}

// StepReturns returns the simple return between consecutive values. A step
// starting from a non-positive value contributes 0.
func StepReturns(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	returns := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			returns[i-1] = (values[i] - values[i-1]) / values[i-1]
		}
	}
	return returns
}

// CalculateSharpeRatio annualizes mean/std of the step returns with
// sqrt(252). A flat curve has no variance and yields 0.
func CalculateSharpeRatio(values []float64) float64 {
	sharpe, err := sharpeRatio(StepReturns(values))
	if err != nil {
		return 0
	}
	return sharpe
}

func sharpeRatio(returns []float64) (float64, error) {
	if len(returns) == 0 {
		return 0, boterrors.NewDegenerateVarianceError("backtest", "sharpe", "no returns")
	}

	avgReturn := 0.0
	for _, r := range returns {
		avgReturn += r
	}
	avgReturn /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += math.Pow(r-avgReturn, 2)
	}
	variance /= float64(len(returns))
	stdDev := math.Sqrt(variance)

	if stdDev < MinReturnStd {
		return 0, boterrors.NewDegenerateVarianceError("backtest", "sharpe", "return std is zero")
	}
	return avgReturn / stdDev * math.Sqrt(TradingDaysPerYear), nil
}

// CalculateMaxDrawdown returns the largest peak-to-trough decline of the
// curve as a fraction of the running peak, clamped to [0, 1].
func CalculateMaxDrawdown(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	peak := values[0]
	maxDD := 0.0
	for _, v := range values {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		if dd := (peak - v) / peak; dd > maxDD {
			maxDD = dd
		}
	}
	return math.Min(maxDD, 1)
}
