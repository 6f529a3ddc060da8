package reporting

import (
	"encoding/json"
	"io"

	"github.com/ducminhle1904/ou-reversion-bot/internal/backtest"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
	"github.com/ducminhle1904/ou-reversion-bot/internal/strategy"
)

// JSONReporter writes every output as one indented JSON document
type JSONReporter struct {
	out   io.Writer
	runID string
}

// NewJSONReporter creates a JSON reporter; runID is attached to each document
func NewJSONReporter(out io.Writer, runID string) *JSONReporter {
	return &JSONReporter{out: out, runID: runID}
}

type envelope struct {
	RunID  string      `json:"run_id,omitempty"`
	Symbol string      `json:"symbol,omitempty"`
	Kind   string      `json:"kind"`
	Data   interface{} `json:"data"`
}

func (r *JSONReporter) write(kind, symbol string, data interface{}) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(envelope{RunID: r.runID, Symbol: symbol, Kind: kind, Data: data})
}

func (r *JSONReporter) OutputParameters(symbol string, method ou.Method, report strategy.ParametersReport) error {
	return r.write("parameters", symbol, struct {
		Method string `json:"method"`
		strategy.ParametersReport
	}{method.String(), report})
}

func (r *JSONReporter) OutputAnalysis(symbol string, report *ou.AnalysisReport) error {
	return r.write("analysis", symbol, report)
}

func (r *JSONReporter) OutputComparison(symbol string, rows []ou.MethodComparison) error {
	return r.write("comparison", symbol, rows)
}

func (r *JSONReporter) OutputSignal(symbol string, report strategy.SignalReport) error {
	return r.write("signal", symbol, report)
}

func (r *JSONReporter) OutputBacktest(symbol string, results *backtest.BacktestResults) error {
	return r.write("backtest", symbol, results)
}

func (r *JSONReporter) OutputSimulation(params ou.ProcessParameters, path []float64) error {
	return r.write("simulation", "", Summarize(params, path))
}
