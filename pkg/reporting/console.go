package reporting

import (
	"fmt"
	"io"
	"math"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ducminhle1904/ou-reversion-bot/internal/backtest"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
	"github.com/ducminhle1904/ou-reversion-bot/internal/strategy"
)

// MaxTradeRows caps the trade log printed under a backtest summary
const MaxTradeRows = 50

// ConsoleReporter renders tables to an output stream
type ConsoleReporter struct {
	out io.Writer
}

// NewConsoleReporter creates a console reporter writing to out
func NewConsoleReporter(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

func (r *ConsoleReporter) newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(r.out)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	return t
}

func keyValueColumns(t table.Writer) {
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, WidthMin: 22, Align: text.AlignLeft},
		{Number: 2, WidthMin: 18, Align: text.AlignRight},
	})
}

// OutputParameters prints the fitted parameter record
func (r *ConsoleReporter) OutputParameters(symbol string, method ou.Method, report strategy.ParametersReport) error {
	t := r.newTable(fmt.Sprintf("OU PARAMETERS %s (%s)", symbol, method))
	t.AppendRows([]table.Row{
		{"Theta (reversion speed)", formatFloat(report.Theta, 6)},
		{"Mu (long-run mean)", formatFloat(report.Mu, 4)},
		{"Sigma (volatility)", formatFloat(report.Sigma, 6)},
		{"dt", formatFloat(report.DT, 4)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Half-life", formatFloat(report.HalfLife, 4)},
		{"Stationary variance", formatFloat(report.StationaryVariance, 6)},
		{"Stationary std", formatFloat(math.Sqrt(report.StationaryVariance), 6)},
	})
	keyValueColumns(t)
	t.Render()
	return nil
}

// OutputAnalysis prints the estimation breakdown step by step
func (r *ConsoleReporter) OutputAnalysis(symbol string, report *ou.AnalysisReport) error {
	if report == nil {
		return fmt.Errorf("no analysis to report")
	}

	t := r.newTable(fmt.Sprintf("OU ANALYSIS %s", symbol))
	t.AppendRows([]table.Row{
		{"Sample size", report.SampleSize},
		{"dt", formatFloat(report.DT, 4)},
		{"Lag-1 autocorrelation", formatFloat(report.Rho, 6)},
		{"Mean-reverting", yesNo(report.MeanReverting)},
	})
	if report.MeanReverting {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Theta = -ln(rho)/dt", formatFloat(report.Theta, 6)},
			{"Half-life = ln2/theta", formatFloat(report.HalfLife, 4)},
			{"Mu = sample mean", formatFloat(report.Mu, 4)},
			{"exp(-theta*dt)", formatFloat(report.ExpNegThetaDT, 6)},
			{"exp(-2*theta*dt)", formatFloat(report.ExpNegTwoThetaDT, 6)},
			{"Sum of squared residuals", formatFloat(report.SumSquared, 6)},
			{"Denominator", formatFloat(report.Denominator, 6)},
			{"Sigma^2", formatFloat(report.SigmaSquared, 6)},
			{"Sigma", formatFloat(report.Sigma, 6)},
		})
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Stationary variance", formatFloat(report.StationaryVariance, 6)},
			{"Stationary std", formatFloat(report.StationaryStd, 6)},
		})
	} else {
		t.AppendRow(table.Row{"Mu = sample mean", formatFloat(report.Mu, 4)})
	}
	if report.Errors != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Theta error", formatPct(report.Errors.Theta)},
			{"Mu error", formatPct(report.Errors.Mu)},
			{"Sigma error", formatPct(report.Errors.Sigma)},
		})
	}
	keyValueColumns(t)
	t.Render()
	return nil
}

// OutputComparison prints one row per estimator method
func (r *ConsoleReporter) OutputComparison(symbol string, rows []ou.MethodComparison) error {
	t := r.newTable(fmt.Sprintf("ESTIMATOR COMPARISON %s", symbol))
	t.AppendHeader(table.Row{"Method", "Theta", "Mu", "Sigma", "Half-life", "Stat. var", "Errors (th/mu/sig)"})

	for _, row := range rows {
		if row.Err != nil {
			t.AppendRow(table.Row{row.MethodName, "-", "-", "-", "-", "-", row.Err.Error()})
			continue
		}
		errs := "-"
		if row.Errors != nil {
			errs = fmt.Sprintf("%s / %s / %s", formatPct(row.Errors.Theta), formatPct(row.Errors.Mu), formatPct(row.Errors.Sigma))
		}
		t.AppendRow(table.Row{
			row.MethodName,
			formatFloat(row.Params.Theta, 6),
			formatFloat(row.Params.Mu, 4),
			formatFloat(row.Params.Sigma, 6),
			formatFloat(row.HalfLife, 4),
			formatFloat(row.StationaryVariance, 6),
			errs,
		})
	}
	t.Render()
	return nil
}

// OutputSignal prints the evaluation of the latest observation
func (r *ConsoleReporter) OutputSignal(symbol string, report strategy.SignalReport) error {
	t := r.newTable(fmt.Sprintf("CURRENT SIGNAL %s", symbol))
	t.AppendRows([]table.Row{
		{"Price", formatFloat(report.Price, 4)},
		{"Long-run mean", formatFloat(report.Mu, 4)},
		{"Deviation", formatFloat(report.Deviation, 4)},
		{"Z-score", formatFloat(report.ZScore, 4)},
		{"Strength", formatFloat(report.Strength, 4)},
		{"Action", report.Action.String()},
	})
	keyValueColumns(t)
	t.Render()
	return nil
}

// OutputBacktest prints the performance summary and the trade log
func (r *ConsoleReporter) OutputBacktest(symbol string, results *backtest.BacktestResults) error {
	if results == nil {
		return fmt.Errorf("no backtest results to report")
	}

	winRate := 0.0
	if closed := results.WinningTrades + results.LosingTrades; closed > 0 {
		winRate = float64(results.WinningTrades) / float64(closed)
	}

	t := r.newTable(fmt.Sprintf("BACKTEST RESULTS %s", symbol))
	t.AppendRows([]table.Row{
		{"Theta / Mu / Sigma", fmt.Sprintf("%.4f / %.4f / %.4f", results.Params.Theta, results.Params.Mu, results.Params.Sigma)},
		{"Bars", len(results.Signals)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Initial capital", formatMoney(results.InitialCapital)},
		{"Final value", formatMoney(results.FinalValue)},
		{"Total return", formatPct(results.TotalReturn * 100)},
		{"Sharpe ratio", formatFloat(results.SharpeRatio, 4)},
		{"Max drawdown", formatPct(results.MaxDrawdown * 100)},
	})
	t.AppendSeparator()
	t.AppendRows([]table.Row{
		{"Trade events", results.NumTrades},
		{"Round trips", len(results.Trades)},
		{"Winning / losing", fmt.Sprintf("%d / %d", results.WinningTrades, results.LosingTrades)},
		{"Win rate", formatPct(winRate * 100)},
	})
	keyValueColumns(t)
	t.Render()

	if len(results.Trades) == 0 {
		return nil
	}

	trades := r.newTable("TRADES")
	trades.AppendHeader(table.Row{"#", "Side", "Entry bar", "Entry", "Exit bar", "Exit", "Shares", "PnL", "Reason"})
	for i, trade := range results.Trades {
		if i == MaxTradeRows {
			trades.AppendFooter(table.Row{"", fmt.Sprintf("%d more", len(results.Trades)-MaxTradeRows)})
			break
		}
		trades.AppendRow(table.Row{
			i + 1,
			trade.Side.String(),
			trade.EntryIndex,
			formatFloat(trade.EntryPrice, 4),
			trade.ExitIndex,
			formatFloat(trade.ExitPrice, 4),
			trade.Shares,
			formatMoney(trade.PnL),
			string(trade.ExitReason),
		})
	}
	trades.Render()
	return nil
}

// OutputSimulation prints descriptive statistics of a simulated path
func (r *ConsoleReporter) OutputSimulation(params ou.ProcessParameters, path []float64) error {
	summary := Summarize(params, path)

	t := r.newTable("SIMULATED PATH")
	t.AppendRows([]table.Row{
		{"Parameters", params.String()},
		{"Steps", summary.Steps},
		{"Mean", formatFloat(summary.Mean, 4)},
		{"Min", formatFloat(summary.Min, 4)},
		{"Max", formatFloat(summary.Max, 4)},
	})
	keyValueColumns(t)
	t.Render()
	return nil
}

func formatFloat(v float64, decimals int) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return fmt.Sprintf("%v", v)
	}
	return fmt.Sprintf("%.*f", decimals, v)
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func formatMoney(v float64) string {
	if v < 0 {
		return fmt.Sprintf("-$%.2f", -v)
	}
	return fmt.Sprintf("$%.2f", v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
