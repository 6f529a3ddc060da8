package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ducminhle1904/ou-reversion-bot/cmd/common"
	"github.com/ducminhle1904/ou-reversion-bot/internal/backtest"
	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/internal/monitoring"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
	"github.com/ducminhle1904/ou-reversion-bot/internal/strategy"
	"github.com/ducminhle1904/ou-reversion-bot/pkg/config"
	"github.com/ducminhle1904/ou-reversion-bot/pkg/data"
)

const (
	// defaultLabel names output when neither a symbol nor a config provides one
	defaultLabel = "SERIES"

	defaultConfigPath = "ou.yaml"
)

func (a *app) label() string {
	if a.cfg.Symbol != "" {
		return a.cfg.Symbol
	}
	return defaultLabel
}

// loadSeries resolves the data source and returns its close prices
func (a *app) loadSeries() ([]float64, error) {
	source := a.cfg.DataFile
	interval := a.cfg.Interval
	if interval == "" {
		interval = a.flags.Interval
	}

	format := data.DefaultCSVFormat
	if a.flags.Format == common.FormatSeries {
		format = data.PriceSeriesFormat
	}
	provider := data.NewCSVProviderWithFormat(format)
	provider.SetQuiet(!a.flags.Verbose)
	dm := data.NewDataManagerWithProvider(data.NewCachedProvider(provider))

	if source == "" {
		if a.cfg.Symbol == "" {
			return nil, fmt.Errorf("no data source: pass --data or --symbol")
		}
		found, err := dm.FindDataFile(a.flags.DataRoot, a.flags.Exchange, a.cfg.Symbol, interval)
		if err != nil {
			return nil, a.fail("data", err)
		}
		source = found
	}

	window, err := a.flags.Window(a.cfg.Period)
	if err != nil {
		return nil, err
	}

	a.console.Progress("Loading %s", source)
	_, series, err := dm.LoadSeries(source, window)
	if err != nil {
		return nil, a.fail("data", err)
	}
	a.console.Info("Loaded %d observations", len(series))
	return series, nil
}

// recordFit publishes a fit attempt. Errors raised before estimation (short
// series, bad dt, config) are not fit outcomes and are left to fail.
func (a *app) recordFit(method ou.Method, params ou.ProcessParameters, err error) {
	if err != nil && !boterrors.IsInvalidFit(err) {
		return
	}
	monitoring.RecordFit(a.label(), method, params, err)
}

// fitModel fits the configured strategy and records the outcome
func (a *app) fitModel(strat *strategy.MeanReversionStrategy, series []float64) (*ou.Process, error) {
	model, err := strat.Fit(series, a.cfg.DT)
	if err != nil {
		a.recordFit(strat.Method(), ou.ProcessParameters{}, err)
		return nil, a.fail("fit", err)
	}

	params := model.Parameters()
	a.recordFit(strat.Method(), params, nil)
	a.health.RecordSuccess(a.label())
	if a.session != nil {
		halfLife, _ := model.HalfLife()
		a.session.LogFit(params.Theta, params.Mu, params.Sigma, halfLife)
	}
	a.console.Success("Fitted %s", params)
	return model, nil
}

func (a *app) fitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fit",
		Short: "Estimate OU parameters and print the derived statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.loadSeries()
			if err != nil {
				return err
			}
			strat := a.cfg.NewStrategy()
			model, err := a.fitModel(strat, series)
			if err != nil {
				return err
			}
			report, err := strat.GetParameters(model)
			if err != nil {
				return a.fail("fit", err)
			}
			if err := a.reporter.OutputParameters(a.label(), strat.Method(), report); err != nil {
				return err
			}
			return a.serveMetrics(cmd.Context())
		},
	}
}

// truthFlags are the optional known parameters used to score estimates
type truthFlags struct {
	theta, mu, sigma float64
}

func (t *truthFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&t.theta, "true-theta", 0, "Known theta for error reporting")
	cmd.Flags().Float64Var(&t.mu, "true-mu", 0, "Known mu for error reporting")
	cmd.Flags().Float64Var(&t.sigma, "true-sigma", 0, "Known sigma for error reporting")
}

// params returns nil unless all three truth flags were set
func (t *truthFlags) params(cmd *cobra.Command, dt float64) *ou.ProcessParameters {
	fs := cmd.Flags()
	if !fs.Changed("true-theta") || !fs.Changed("true-mu") || !fs.Changed("true-sigma") {
		return nil
	}
	return &ou.ProcessParameters{Theta: t.theta, Mu: t.mu, Sigma: t.sigma, DT: dt}
}

func (a *app) analyzeCmd() *cobra.Command {
	var truth truthFlags
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Show the autocorrelation estimate step by step",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.loadSeries()
			if err != nil {
				return err
			}
			report, err := ou.Analyze(series, a.cfg.DT, truth.params(cmd, a.cfg.DT))
			if err != nil {
				if !boterrors.IsInvalidFit(err) || report == nil {
					return a.fail("analyze", err)
				}
				// partial breakdown: sample size, rho and mu are still meaningful
				a.console.Warn("Lag-1 autocorrelation %.4f is outside (0, 1): series is not mean-reverting", report.Rho)
				if outErr := a.reporter.OutputAnalysis(a.label(), report); outErr != nil {
					return outErr
				}
				return a.fail("analyze", err)
			}
			return a.reporter.OutputAnalysis(a.label(), report)
		},
	}
	truth.register(cmd)
	return cmd
}

func (a *app) compareCmd() *cobra.Command {
	var truth truthFlags
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Fit the series with every estimator and compare the results",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.loadSeries()
			if err != nil {
				return err
			}
			rows := ou.CompareMethods(series, a.cfg.DT, truth.params(cmd, a.cfg.DT))
			for _, row := range rows {
				a.recordFit(row.Method, row.Params, row.Err)
			}
			return a.reporter.OutputComparison(a.label(), rows)
		},
	}
	truth.register(cmd)
	return cmd
}

func (a *app) signalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "signal",
		Short: "Fit the series and evaluate the signal at the latest price",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.loadSeries()
			if err != nil {
				return err
			}
			strat := a.cfg.NewStrategy()
			model, err := a.fitModel(strat, series)
			if err != nil {
				return err
			}

			report := strat.CurrentSignal(model, series[len(series)-1])
			if lower, upper, err := strat.GetStopLoss(model, strategy.DefaultStopLossK); err == nil {
				a.console.Info("Stop-loss band (%.0f sigma): %.4f - %.4f", strategy.DefaultStopLossK, lower, upper)
			}
			if a.session != nil {
				a.session.Status("signal %s at %.4f (z=%.4f)", report.Action, report.Price, report.ZScore)
			}
			return a.reporter.OutputSignal(a.label(), report)
		},
	}
}

func (a *app) backtestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backtest",
		Short: "Replay the strategy over the series",
		RunE: func(cmd *cobra.Command, args []string) error {
			series, err := a.loadSeries()
			if err != nil {
				return err
			}

			strat := a.cfg.NewStrategy()
			engine := backtest.NewBacktestEngine(a.cfg.BacktestConfig(), strat)
			if a.session != nil {
				engine.SetLogger(a.session)
			}

			a.console.Progress("Backtesting %s over %d bars", strat.GetName(), len(series))
			start := time.Now()
			results, err := engine.Run(series)
			if err != nil {
				a.recordFit(strat.Method(), ou.ProcessParameters{}, err)
				return a.fail("backtest", err)
			}
			elapsed := time.Since(start)

			a.recordFit(strat.Method(), results.Params, nil)
			monitoring.RecordBacktest(a.label(), results, elapsed)
			a.health.RecordSuccess(a.label())
			a.console.Success("Backtest finished in %s", elapsed.Round(time.Millisecond))

			if err := a.reporter.OutputBacktest(a.label(), results); err != nil {
				return err
			}
			return a.serveMetrics(cmd.Context())
		},
	}
}

func (a *app) simulateCmd() *cobra.Command {
	var (
		params  ou.ProcessParameters
		steps   int
		x0      float64
		seed    uint64
		euler   bool
		compare bool
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Generate a synthetic OU path and optionally re-estimate it",
		RunE: func(cmd *cobra.Command, args []string) error {
			params.DT = a.cfg.DT
			if err := params.Validate(); err != nil {
				return a.fail("simulate", err)
			}
			if steps < 2 {
				return fmt.Errorf("steps must be at least 2, got %d", steps)
			}
			if !cmd.Flags().Changed("x0") {
				x0 = params.Mu
			}

			process := ou.NewProcess(params)
			var path []float64
			if euler {
				path = process.Simulate(steps, x0, seed)
			} else {
				path = process.SimulateExact(steps, x0, seed)
			}

			if err := a.reporter.OutputSimulation(params, path); err != nil {
				return err
			}
			if !compare {
				return nil
			}
			return a.reporter.OutputComparison(a.label(), ou.CompareMethods(path, params.DT, &params))
		},
	}

	fs := cmd.Flags()
	fs.Float64Var(&params.Theta, "theta", 0.5, "Mean-reversion speed")
	fs.Float64Var(&params.Mu, "mu", 100, "Long-run mean")
	fs.Float64Var(&params.Sigma, "sigma", 2, "Volatility")
	fs.IntVar(&steps, "steps", 1000, "Number of points in the path")
	fs.Float64Var(&x0, "x0", 0, "Starting value (defaults to mu)")
	fs.Uint64Var(&seed, "seed", 42, "Random seed")
	fs.BoolVar(&euler, "euler", false, "Use the Euler-Maruyama scheme instead of the exact transition")
	fs.BoolVar(&compare, "compare", false, "Re-estimate the path with every method and score against the inputs")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration files",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write the effective configuration to a JSON or YAML file",
		Long: `Writes the configuration this invocation would run with (defaults, --config,
OU_* environment and explicit flags) so it can be edited and passed back with
--config. The format follows the extension; the default path is ou.yaml.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := defaultConfigPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := config.NewManager(a.flags.EnvFile).SaveConfig(a.cfg, path); err != nil {
				return a.fail("config", err)
			}
			a.console.Success("Configuration written to %s", path)
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
