// Command ou-bot fits Ornstein-Uhlenbeck models to price series, reports
// mean-reversion signals and backtests the resulting strategy.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ducminhle1904/ou-reversion-bot/cmd/common"
	"github.com/ducminhle1904/ou-reversion-bot/internal/logger"
	"github.com/ducminhle1904/ou-reversion-bot/internal/monitoring"
	"github.com/ducminhle1904/ou-reversion-bot/pkg/config"
	"github.com/ducminhle1904/ou-reversion-bot/pkg/reporting"
)

const appName = "ou-bot"

// app carries the state shared by every subcommand for one invocation
type app struct {
	flags    *common.CommonFlags
	console  *common.Logger
	cfg      *config.StrategyConfig
	reporter reporting.Reporter
	health   *monitoring.HealthChecker
	runID    string
	session  *logger.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{health: monitoring.NewHealthChecker()}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Ornstein-Uhlenbeck mean-reversion estimator and backtester",
		Long: `ou-bot estimates the parameters of an Ornstein-Uhlenbeck process from a
price series (MLE, regression or OLS), turns the fitted model into BUY/SELL/HOLD
signals and replays them through a long/short backtest with stop-losses.

Configuration is layered: defaults, then --config, then OU_* environment
variables (optionally from --env), then explicitly set flags.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) { a.teardown() },
	}

	a.flags = common.RegisterCommonFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		a.fitCmd(),
		a.analyzeCmd(),
		a.compareCmd(),
		a.signalCmd(),
		a.backtestCmd(),
		a.simulateCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return rootCmd
}

// setup resolves configuration and output for the invoked subcommand
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	if err := a.flags.Validate(); err != nil {
		return err
	}
	a.console = a.flags.NewLogger()
	a.runID = uuid.New().String()

	cfg, err := config.NewManager(a.flags.EnvFile).LoadConfig(a.flags.ConfigFile)
	if err != nil {
		return err
	}
	a.flags.ApplyOverrides(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	a.cfg = cfg
	if !cfg.KnownMethod() {
		a.console.Warn("Unknown estimator method %q, falling back to %s", cfg.EstimatorMethod, cfg.Method())
	}

	if a.flags.JSON {
		a.reporter = reporting.NewJSONReporter(cmd.OutOrStdout(), a.runID)
	} else {
		a.reporter = reporting.NewConsoleReporter(cmd.OutOrStdout())
	}

	if a.flags.LogDir != "" {
		session, err := logger.NewLoggerInDir(a.flags.LogDir, cfg.Symbol, cfg.EstimatorMethod, a.runID)
		if err != nil {
			return fmt.Errorf("failed to open session log: %w", err)
		}
		a.session = session
		a.console.Debug("session log: %s", session.GetLogPath())
	}

	a.console.Debug("run %s, method=%s threshold=%.2f dt=%g", a.runID, cfg.EstimatorMethod, cfg.ThresholdSigma, cfg.DT)
	return nil
}

func (a *app) teardown() {
	if a.session != nil {
		a.session.Close()
	}
}

// fail records err against health, metrics and the session log
func (a *app) fail(stage string, err error) error {
	a.health.RecordFailure(err)
	monitoring.RecordError(stage)
	if a.session != nil {
		a.session.LogError(stage, err)
	}
	return err
}

// serveMetrics exposes /metrics and /health until ctx is cancelled. It is a
// no-op unless --metrics-addr is set.
func (a *app) serveMetrics(ctx context.Context) error {
	if a.flags.MetricsAddr == "" {
		return nil
	}

	server := &http.Server{
		Addr:              a.flags.MetricsAddr,
		Handler:           monitoring.NewHandler(a.health),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	a.console.Info("Serving metrics on http://%s/metrics (Ctrl+C to stop)", a.flags.MetricsAddr)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			common.PrintVersion(cmd.OutOrStdout(), appName)
		},
	}
}
