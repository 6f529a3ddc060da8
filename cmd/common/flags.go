package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"github.com/ducminhle1904/ou-reversion-bot/pkg/config"
	"github.com/ducminhle1904/ou-reversion-bot/pkg/data"
)

// Data file formats accepted by --format
const (
	FormatCandles = "candles"
	FormatSeries  = "series"
)

// CommonFlags contains flags that are shared across every subcommand
type CommonFlags struct {
	// Environment and configuration
	ConfigFile string
	EnvFile    string
	DataRoot   string

	// Data selection
	DataFile string
	Format   string
	Symbol   string
	Interval string
	Exchange string
	Period   string
	From     string
	To       string

	// Strategy overrides
	Method     string
	Threshold  float64
	Capital    float64
	StopLoss   float64
	DT         float64
	AllowShort bool
	ExitAtMean bool

	// Logging and output
	JSON        bool
	MetricsAddr string
	LogDir      string
	Verbose     bool
	Silent      bool
	NoEmojis    bool
}

// RegisterCommonFlags binds the shared flags to fs
func RegisterCommonFlags(fs *pflag.FlagSet) *CommonFlags {
	f := &CommonFlags{}

	fs.StringVarP(&f.ConfigFile, "config", "c", "", "Configuration file (.json, .yaml)")
	fs.StringVar(&f.EnvFile, "env", config.DefaultEnvFile, "Environment file path")
	fs.StringVar(&f.DataRoot, "data-root", config.DefaultDataRoot, "Data root directory")

	fs.StringVarP(&f.DataFile, "data", "d", "", "CSV data file (overrides symbol lookup)")
	fs.StringVar(&f.Format, "format", FormatCandles, "CSV layout: candles or series")
	fs.StringVarP(&f.Symbol, "symbol", "s", "", "Symbol used to locate data and label output")
	fs.StringVarP(&f.Interval, "interval", "i", "1h", "Candle interval used for data lookup")
	fs.StringVar(&f.Exchange, "exchange", "bybit", "Exchange directory under the data root")
	fs.StringVar(&f.Period, "period", "", "Trailing window to keep, e.g. 30d or 720h")
	fs.StringVar(&f.From, "from", "", "Drop observations before this date (YYYY-MM-DD)")
	fs.StringVar(&f.To, "to", "", "Drop observations after this date (YYYY-MM-DD)")

	fs.StringVarP(&f.Method, "method", "m", config.DefaultEstimatorMethod, "Estimator: mle, regression or ols")
	fs.Float64Var(&f.Threshold, "threshold", config.DefaultThresholdSigma, "Entry threshold in stationary standard deviations")
	fs.Float64Var(&f.Capital, "capital", config.DefaultInitialCapital, "Initial capital")
	fs.Float64Var(&f.StopLoss, "stop-loss", config.DefaultStopLossPct, "Stop-loss fraction of entry price")
	fs.Float64Var(&f.DT, "dt", config.DefaultDT, "Sampling step between observations")
	fs.BoolVar(&f.AllowShort, "allow-short", true, "Open short positions on SELL signals")
	fs.BoolVar(&f.ExitAtMean, "exit-at-mean", true, "Close positions when price crosses the mean")

	fs.BoolVar(&f.JSON, "json", false, "Write reports as JSON")
	fs.StringVar(&f.MetricsAddr, "metrics-addr", "", "Serve /metrics and /health on this address")
	fs.StringVar(&f.LogDir, "log-dir", "", "Write a session log file into this directory")
	fs.BoolVarP(&f.Verbose, "verbose", "v", false, "Enable verbose output")
	fs.BoolVar(&f.Silent, "silent", false, "Enable silent mode (minimal output)")
	fs.BoolVar(&f.NoEmojis, "no-emojis", false, "Disable emoji output")

	return f
}

// ApplyOverrides copies every flag the user set explicitly onto cfg.
// Flags left at their defaults keep the file and environment values.
func (f *CommonFlags) ApplyOverrides(fs *pflag.FlagSet, cfg *config.StrategyConfig) {
	if fs.Changed("symbol") {
		cfg.Symbol = strings.ToUpper(f.Symbol)
	}
	if fs.Changed("data") {
		cfg.DataFile = f.DataFile
	}
	if fs.Changed("interval") {
		cfg.Interval = f.Interval
	}
	if fs.Changed("period") {
		cfg.Period = f.Period
	}
	if fs.Changed("method") {
		cfg.EstimatorMethod = f.Method
	}
	if fs.Changed("threshold") {
		cfg.ThresholdSigma = f.Threshold
	}
	if fs.Changed("capital") {
		cfg.InitialCapital = f.Capital
	}
	if fs.Changed("stop-loss") {
		cfg.StopLossPct = f.StopLoss
	}
	if fs.Changed("dt") {
		cfg.DT = f.DT
	}
	if fs.Changed("allow-short") {
		cfg.AllowShort = f.AllowShort
	}
	if fs.Changed("exit-at-mean") {
		cfg.ExitAtMean = f.ExitAtMean
	}
}

// Validate checks values that the strategy config does not own
func (f *CommonFlags) Validate() error {
	switch f.Format {
	case FormatCandles, FormatSeries:
	default:
		return fmt.Errorf("invalid format %q (use %s or %s)", f.Format, FormatCandles, FormatSeries)
	}
	if f.Verbose && f.Silent {
		return fmt.Errorf("--verbose and --silent are mutually exclusive")
	}
	if _, _, err := f.DateRange(); err != nil {
		return err
	}
	return nil
}

// DateRange parses --from and --to. An unset side stays zero (open).
func (f *CommonFlags) DateRange() (from, to time.Time, err error) {
	if f.From != "" {
		if from, err = data.ParseDate(f.From); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
	}
	if f.To != "" {
		if to, err = data.ParseDate(f.To); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
	}
	return from, to, nil
}

// Window combines the date range with the configured trailing period
func (f *CommonFlags) Window(period string) (data.Window, error) {
	from, to, err := f.DateRange()
	if err != nil {
		return data.Window{}, err
	}
	return data.Window{Period: period, From: from, To: to}, nil
}

// NewLogger builds the console logger the flags describe
func (f *CommonFlags) NewLogger() *Logger {
	l := NewLogger()
	l.ShowEmojis = !f.NoEmojis
	l.SetSilentMode(f.Silent)
	if f.Verbose {
		l.Level = LogLevelDebug
	}
	return l
}
