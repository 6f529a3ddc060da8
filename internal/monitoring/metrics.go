package monitoring

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ducminhle1904/ou-reversion-bot/internal/backtest"
	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
)

var (
	// Estimation metrics
	fitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ou_fits_total",
			Help: "Total number of parameter fits by method and outcome",
		},
		[]string{"method", "outcome"},
	)

	fittedTheta = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ou_fitted_theta",
			Help: "Mean-reversion speed of the last successful fit",
		},
		[]string{"symbol", "method"},
	)

	fittedHalfLife = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ou_fitted_half_life",
			Help: "Half-life in time units of the last successful fit",
		},
		[]string{"symbol", "method"},
	)

	fittedMu = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ou_fitted_mu",
			Help: "Long-run mean of the last successful fit",
		},
		[]string{"symbol", "method"},
	)

	// Backtest metrics
	backtestTrades = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ou_backtest_trades_total",
			Help: "Total number of backtest trade events",
		},
		[]string{"symbol"},
	)

	backtestReturn = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ou_backtest_total_return",
			Help: "Total return of the last backtest",
		},
		[]string{"symbol"},
	)

	backtestSharpe = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ou_backtest_sharpe_ratio",
			Help: "Annualized Sharpe ratio of the last backtest",
		},
		[]string{"symbol"},
	)

	backtestDrawdown = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ou_backtest_max_drawdown",
			Help: "Maximum drawdown of the last backtest",
		},
		[]string{"symbol"},
	)

	backtestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ou_backtest_duration_seconds",
			Help:    "Wall time of backtest runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"symbol"},
	)

	// Error metrics
	errorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ou_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(fitsTotal)
	prometheus.MustRegister(fittedTheta)
	prometheus.MustRegister(fittedHalfLife)
	prometheus.MustRegister(fittedMu)
	prometheus.MustRegister(backtestTrades)
	prometheus.MustRegister(backtestReturn)
	prometheus.MustRegister(backtestSharpe)
	prometheus.MustRegister(backtestDrawdown)
	prometheus.MustRegister(backtestDuration)
	prometheus.MustRegister(errorsTotal)
}

// MetricsHandler handles Prometheus metrics endpoint
type MetricsHandler struct{}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler() *MetricsHandler {
	return &MetricsHandler{}
}

// ServeHTTP serves the Prometheus metrics endpoint
func (m *MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// NewHandler routes /metrics and /health
func NewHandler(health *HealthChecker) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", NewMetricsHandler())
	mux.Handle("/health", health)
	return mux
}

// RecordFit counts a fit attempt by outcome and, on success, publishes its
// parameters. Errors are counted separately through RecordError.
func RecordFit(symbol string, method ou.Method, params ou.ProcessParameters, err error) {
	fitsTotal.WithLabelValues(method.String(), fitOutcome(err)).Inc()
	if err != nil {
		return
	}

	fittedTheta.WithLabelValues(symbol, method.String()).Set(params.Theta)
	fittedMu.WithLabelValues(symbol, method.String()).Set(params.Mu)
	if halfLife, hlErr := params.HalfLife(); hlErr == nil {
		fittedHalfLife.WithLabelValues(symbol, method.String()).Set(halfLife)
	}
}

// RecordBacktest publishes the summary of a finished backtest
func RecordBacktest(symbol string, results *backtest.BacktestResults, elapsed time.Duration) {
	backtestDuration.WithLabelValues(symbol).Observe(elapsed.Seconds())
	if results == nil {
		return
	}
	backtestTrades.WithLabelValues(symbol).Add(float64(results.NumTrades))
	backtestReturn.WithLabelValues(symbol).Set(results.TotalReturn)
	backtestSharpe.WithLabelValues(symbol).Set(results.SharpeRatio)
	backtestDrawdown.WithLabelValues(symbol).Set(results.MaxDrawdown)
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}

func fitOutcome(err error) string {
	if err == nil {
		return "ok"
	}
	if category := boterrors.CategoryOf(err); category != "" {
		return strings.ToLower(string(category))
	}
	return "error"
}
