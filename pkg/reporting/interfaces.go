// Package reporting renders fits, signals and backtests for humans and machines
package reporting

import (
	"github.com/ducminhle1904/ou-reversion-bot/internal/backtest"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
	"github.com/ducminhle1904/ou-reversion-bot/internal/strategy"
)

// Reporter defines the outputs of every CLI command
type Reporter interface {
	OutputParameters(symbol string, method ou.Method, report strategy.ParametersReport) error
	OutputAnalysis(symbol string, report *ou.AnalysisReport) error
	OutputComparison(symbol string, rows []ou.MethodComparison) error
	OutputSignal(symbol string, report strategy.SignalReport) error
	OutputBacktest(symbol string, results *backtest.BacktestResults) error
	OutputSimulation(params ou.ProcessParameters, path []float64) error
}

// SimulationSummary describes a simulated path
type SimulationSummary struct {
	Params ou.ProcessParameters `json:"params"`
	Steps  int                  `json:"steps"`
	Mean   float64              `json:"mean"`
	Min    float64              `json:"min"`
	Max    float64              `json:"max"`
	Path   []float64            `json:"path"`
}

// Summarize computes the descriptive statistics of a simulated path
func Summarize(params ou.ProcessParameters, path []float64) SimulationSummary {
	summary := SimulationSummary{Params: params, Steps: len(path), Path: path}
	if len(path) == 0 {
		return summary
	}
	summary.Min, summary.Max = path[0], path[0]
	sum := 0.0
	for _, v := range path {
		sum += v
		if v < summary.Min {
			summary.Min = v
		}
		if v > summary.Max {
			summary.Max = v
		}
	}
	summary.Mean = sum / float64(len(path))
	return summary
}
