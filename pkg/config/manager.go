package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file values
const (
	EnvSymbol          = "OU_SYMBOL"
	EnvDataFile        = "OU_DATA_FILE"
	EnvEstimatorMethod = "OU_ESTIMATOR_METHOD"
	EnvThresholdSigma  = "OU_THRESHOLD_SIGMA"
	EnvInitialCapital  = "OU_INITIAL_CAPITAL"
	EnvStopLossPct     = "OU_STOP_LOSS_PCT"
	EnvExitAtMean      = "OU_EXIT_AT_MEAN"
	EnvAllowShort      = "OU_ALLOW_SHORT"
	EnvDT              = "OU_DT"
)

// Manager loads, validates and saves strategy configurations
type Manager struct {
	envFile string
}

// NewManager creates a manager that reads overrides from envFile if it exists.
// An empty envFile disables .env loading; process variables still apply.
func NewManager(envFile string) *Manager {
	return &Manager{envFile: envFile}
}

// LoadConfig builds a config from defaults, then the file at path (JSON or
// YAML by extension, skipped when path is empty), then OU_* variables.
// The result is not validated; callers apply their own overrides first and
// then call Validate.
func (m *Manager) LoadConfig(path string) (*StrategyConfig, error) {
	cfg := NewDefaultStrategyConfig()

	if path != "" {
		if err := m.loadFromFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := m.loadEnvFile(); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg, os.LookupEnv); err != nil {
		return nil, err
	}

	if cfg.Interval == "" {
		cfg.Interval = extractIntervalFromPath(cfg.DataFile)
	}
	return cfg, nil
}

func (m *Manager) loadFromFile(path string, cfg *StrategyConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %w", err)
	}

	if isYAML(path) {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("could not parse YAML config: %w", err)
		}
		return nil
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("could not parse JSON config: %w", err)
	}
	return nil
}

// loadEnvFile exports the .env entries without overriding variables already set
func (m *Manager) loadEnvFile() error {
	if m.envFile == "" {
		return nil
	}
	if err := godotenv.Load(m.envFile); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", m.envFile, err)
	}
	return nil
}

func applyEnvOverrides(cfg *StrategyConfig, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvSymbol); ok && v != "" {
		cfg.Symbol = v
	}
	if v, ok := lookup(EnvDataFile); ok && v != "" {
		cfg.DataFile = v
	}
	if v, ok := lookup(EnvEstimatorMethod); ok && v != "" {
		cfg.EstimatorMethod = v
	}

	floats := []struct {
		key    string
		target *float64
	}{
		{EnvThresholdSigma, &cfg.ThresholdSigma},
		{EnvInitialCapital, &cfg.InitialCapital},
		{EnvStopLossPct, &cfg.StopLossPct},
		{EnvDT, &cfg.DT},
	}
	for _, f := range floats {
		v, ok := lookup(f.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", f.key, v, err)
		}
		*f.target = parsed
	}

	bools := []struct {
		key    string
		target *bool
	}{
		{EnvExitAtMean, &cfg.ExitAtMean},
		{EnvAllowShort, &cfg.AllowShort},
	}
	for _, b := range bools {
		v, ok := lookup(b.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", b.key, v, err)
		}
		*b.target = parsed
	}
	return nil
}

// SaveConfig writes the config as JSON or YAML depending on the extension
func (m *Manager) SaveConfig(cfg *StrategyConfig, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// extractIntervalFromPath extracts interval from data file path
// Example: "data/bybit/linear/BTCUSDT/5m/candles.csv" -> "5m"
func extractIntervalFromPath(dataPath string) string {
	if dataPath == "" {
		return ""
	}

	parts := strings.Split(filepath.ToSlash(dataPath), "/")
	for i := len(parts) - 1; i >= 0; i-- {
		part := parts[i]
		if len(part) < 2 {
			continue
		}
		switch part[len(part)-1] {
		case 'm', 'h', 'd':
			if _, err := strconv.Atoi(part[:len(part)-1]); err == nil {
				return part
			}
		}
	}
	return ""
}
