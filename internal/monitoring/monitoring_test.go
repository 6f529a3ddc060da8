package monitoring

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/ou-reversion-bot/internal/backtest"
	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
)

func TestRecordFit_Success(t *testing.T) {
	before := testutil.ToFloat64(fitsTotal.WithLabelValues("ols", "ok"))

	params := ou.ProcessParameters{Theta: 0.5, Mu: 100, Sigma: 2, DT: 1}
	RecordFit("BTCUSDT", ou.MethodOLS, params, nil)

	assert.Equal(t, before+1, testutil.ToFloat64(fitsTotal.WithLabelValues("ols", "ok")))
	assert.Equal(t, 0.5, testutil.ToFloat64(fittedTheta.WithLabelValues("BTCUSDT", "ols")))
	assert.Equal(t, 100.0, testutil.ToFloat64(fittedMu.WithLabelValues("BTCUSDT", "ols")))
	assert.InDelta(t, math.Ln2/0.5, testutil.ToFloat64(fittedHalfLife.WithLabelValues("BTCUSDT", "ols")), 1e-12)
}

func TestRecordFit_Failure(t *testing.T) {
	before := testutil.ToFloat64(fitsTotal.WithLabelValues("mle", "invalid_fit"))
	errBefore := testutil.ToFloat64(errorsTotal.WithLabelValues("fit"))

	err := boterrors.NewInvalidFitError("estimator", "mle", "slope outside (0,1)")
	RecordFit("ETHUSDT", ou.MethodMLE, ou.ProcessParameters{}, err)

	assert.Equal(t, before+1, testutil.ToFloat64(fitsTotal.WithLabelValues("mle", "invalid_fit")))
	assert.Equal(t, errBefore, testutil.ToFloat64(errorsTotal.WithLabelValues("fit")), "errors are counted by the caller")

	RecordError("fit")
	assert.Equal(t, errBefore+1, testutil.ToFloat64(errorsTotal.WithLabelValues("fit")))
	assert.Equal(t, "error", fitOutcome(errors.New("plain")))
}

func TestRecordBacktest(t *testing.T) {
	before := testutil.ToFloat64(backtestTrades.WithLabelValues("SOLUSDT"))

	RecordBacktest("SOLUSDT", &backtest.BacktestResults{
		NumTrades:   4,
		TotalReturn: 0.212,
		SharpeRatio: 3.1,
		MaxDrawdown: 0.05,
	}, 20*time.Millisecond)

	assert.Equal(t, before+4, testutil.ToFloat64(backtestTrades.WithLabelValues("SOLUSDT")))
	assert.Equal(t, 0.212, testutil.ToFloat64(backtestReturn.WithLabelValues("SOLUSDT")))
	assert.Equal(t, 3.1, testutil.ToFloat64(backtestSharpe.WithLabelValues("SOLUSDT")))
	assert.Equal(t, 0.05, testutil.ToFloat64(backtestDrawdown.WithLabelValues("SOLUSDT")))

	assert.NotPanics(t, func() { RecordBacktest("SOLUSDT", nil, time.Millisecond) })
}

func TestHealthChecker(t *testing.T) {
	h := NewHealthChecker()

	status, code := h.Status()
	assert.Equal(t, "starting", status.Status)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	h.RecordSuccess("BTCUSDT")
	status, code = h.Status()
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, status.Fits)

	h.RecordFailure(errors.New("fit failed"))
	h.RecordFailure(nil)
	status, code = h.Status()
	assert.Equal(t, "unhealthy", status.Status)
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, []string{"fit failed"}, status.Errors)

	h.RecordSuccess("BTCUSDT")
	status, _ = h.Status()
	assert.Empty(t, status.Errors)
}

func TestHandler_Routes(t *testing.T) {
	health := NewHealthChecker()
	health.RecordSuccess("BTCUSDT")
	RecordFit("BTCUSDT", ou.MethodMLE, ou.ProcessParameters{Theta: 1, Mu: 10, Sigma: 1, DT: 1}, nil)
	server := httptest.NewServer(NewHandler(health))
	defer server.Close()

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "BTCUSDT", status.LastSymbol)

	rec := httptest.NewRecorder()
	NewHandler(health).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ou_fits_total"))
}
