// Package config provides configuration management for the OU mean-reversion bot
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/ducminhle1904/ou-reversion-bot/internal/backtest"
	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
	"github.com/ducminhle1904/ou-reversion-bot/internal/strategy"
)

// Common configuration constants
const (
	DefaultEstimatorMethod = "mle"
	DefaultThresholdSigma  = strategy.DefaultThresholdSigma
	DefaultInitialCapital  = backtest.DefaultInitialCapital
	DefaultStopLossPct     = backtest.DefaultStopLossPct
	DefaultDT              = ou.DefaultDT

	DefaultDataRoot = "data"
	DefaultEnvFile  = ".env"

	// MaxStopLossPct caps the stop-loss fraction; a long cannot lose more than 100%
	MaxStopLossPct = 1.0
)

// StrategyConfig holds every knob of a fit/backtest session
type StrategyConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	DataFile string `json:"data_file" yaml:"data_file"`
	Interval string `json:"interval,omitempty" yaml:"interval,omitempty"`
	Period   string `json:"period,omitempty" yaml:"period,omitempty"`

	EstimatorMethod string  `json:"estimator_method" yaml:"estimator_method"`
	ThresholdSigma  float64 `json:"threshold_sigma" yaml:"threshold_sigma"`
	InitialCapital  float64 `json:"initial_capital" yaml:"initial_capital"`
	StopLossPct     float64 `json:"stop_loss_pct" yaml:"stop_loss_pct"`
	ExitAtMean      bool    `json:"exit_at_mean" yaml:"exit_at_mean"`
	AllowShort      bool    `json:"allow_short" yaml:"allow_short"`
	DT              float64 `json:"dt" yaml:"dt"`
}

// NewDefaultStrategyConfig returns the documented defaults
func NewDefaultStrategyConfig() *StrategyConfig {
	return &StrategyConfig{
		EstimatorMethod: DefaultEstimatorMethod,
		ThresholdSigma:  DefaultThresholdSigma,
		InitialCapital:  DefaultInitialCapital,
		StopLossPct:     DefaultStopLossPct,
		ExitAtMean:      true,
		AllowShort:      true,
		DT:              DefaultDT,
	}
}

// Method returns the parsed estimator method. Unknown names fall back to MLE.
func (c *StrategyConfig) Method() ou.Method {
	return ou.ParseMethod(c.EstimatorMethod)
}

// KnownMethod reports whether EstimatorMethod names an estimator rather than
// relying on the MLE fallback
func (c *StrategyConfig) KnownMethod() bool {
	switch strings.ToLower(strings.TrimSpace(c.EstimatorMethod)) {
	case "mle", "regression", "ols":
		return true
	}
	return false
}

// NewStrategy builds the signal generator described by the config
func (c *StrategyConfig) NewStrategy() *strategy.MeanReversionStrategy {
	return strategy.NewMeanReversionStrategy(c.Method(), c.ThresholdSigma)
}

// BacktestConfig converts to the engine's options
func (c *StrategyConfig) BacktestConfig() backtest.BacktestConfig {
	return backtest.BacktestConfig{
		InitialCapital: c.InitialCapital,
		StopLossPct:    c.StopLossPct,
		ExitAtMean:     c.ExitAtMean,
		AllowShort:     c.AllowShort,
		DT:             c.DT,
	}
}

// Validate performs validation on configuration parameters
func (c *StrategyConfig) Validate() error {
	if !(c.ThresholdSigma > 0) || math.IsInf(c.ThresholdSigma, 0) {
		return invalid("threshold sigma must be positive, got: %v", c.ThresholdSigma)
	}

	if !(c.InitialCapital > 0) || math.IsInf(c.InitialCapital, 0) {
		return invalid("initial capital must be positive, got: %.2f", c.InitialCapital)
	}

	if !(c.StopLossPct > 0) || c.StopLossPct > MaxStopLossPct {
		return invalid("stop loss pct must be in (0, %.2f], got: %.4f", MaxStopLossPct, c.StopLossPct)
	}

	if !(c.DT > 0) || math.IsInf(c.DT, 0) {
		return invalid("dt must be positive, got: %v", c.DT)
	}

	return nil
}

func invalid(format string, args ...interface{}) error {
	return boterrors.NewConfigurationError("config", "validate", fmt.Sprintf(format, args...))
}
