package ou

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
)

var scenarioSeries = []float64{100, 95, 90, 95, 100, 105, 110, 105, 100}

func TestEstimator_RoundTripRecovery(t *testing.T) {
	truth := ProcessParameters{Theta: 1.0, Mu: 10, Sigma: 0.5, DT: 1}
	proc := NewProcess(truth)

	for _, seed := range []uint64{1, 2, 3} {
		path := proc.SimulateExact(20000, truth.Mu, seed)

		for _, m := range Methods {
			got, err := NewEstimator().Estimate(path, truth.DT, m)
			require.NoError(t, err, "seed=%d method=%s", seed, m)

			assert.InEpsilon(t, truth.Theta, got.Theta, 0.10, "theta seed=%d method=%s", seed, m)
			assert.InEpsilon(t, truth.Mu, got.Mu, 0.10, "mu seed=%d method=%s", seed, m)
			assert.InEpsilon(t, truth.Sigma, got.Sigma, 0.10, "sigma seed=%d method=%s", seed, m)
		}
	}
}

func TestEstimator_ScenarioMLE(t *testing.T) {
	e := NewEstimator()
	params, err := e.EstimateMLE(scenarioSeries, 1)
	require.NoError(t, err)

	assert.InDelta(t, 100.0, params.Mu, 1e-6)
	assert.InDelta(t, math.Log(1.5), params.Theta, 1e-9) // slope is exactly 2/3
	assert.Equal(t, 1.0, params.DT)
	assert.Equal(t, 100.0, EstimateMu(scenarioSeries))

	hl, err := e.HalfLife()
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2/params.Theta, hl, 1e-12)

	sv, err := e.StationaryVariance()
	require.NoError(t, err)
	assert.InDelta(t, params.Sigma*params.Sigma/(2*params.Theta), sv, 1e-12)
}

func TestEstimator_MLEAndOLSShareSlope(t *testing.T) {
	path := NewProcess(ProcessParameters{Theta: 0.3, Mu: 50, Sigma: 1, DT: 1}).SimulateExact(500, 55, 11)
	e := NewEstimator()

	mle, err := e.EstimateMLE(path, 1)
	require.NoError(t, err)
	ols, err := e.EstimateOLS(path, 1)
	require.NoError(t, err)

	n := float64(len(path) - 1)
	assert.InDelta(t, mle.Theta, ols.Theta, 1e-9)
	assert.InDelta(t, mle.Mu, ols.Mu, 1e-6)
	assert.InDelta(t, math.Sqrt(n/(n-2)), ols.Sigma/mle.Sigma, 1e-9)
}

func TestEstimator_RegressionBiasCorrection(t *testing.T) {
	path := NewProcess(ProcessParameters{Theta: 0.3, Mu: 50, Sigma: 1, DT: 1}).SimulateExact(500, 55, 11)
	e := NewEstimator()

	mle, err := e.EstimateMLE(path, 1)
	require.NoError(t, err)
	reg, err := e.EstimateRegression(path, 1)
	require.NoError(t, err)

	// the correction raises b, which lowers theta
	assert.Less(t, reg.Theta, mle.Theta)

	last, ok := e.LastParameters()
	require.True(t, ok)
	assert.Equal(t, reg, last)
}

func TestEstimator_ConstantSeriesIsInvalidFit(t *testing.T) {
	series := []float64{50, 50, 50, 50, 50, 50, 50, 50}

	rho, err := Autocorrelation(series, 1)
	require.NoError(t, err)
	assert.Equal(t, 1.0, rho)

	e := NewEstimator()
	_, err = EstimateThetaFromAutocorr(series, 1)
	assert.True(t, boterrors.IsInvalidFit(err))

	_, err = e.EstimateAutocorrelation(series, 1)
	assert.True(t, boterrors.IsInvalidFit(err))

	for _, m := range Methods {
		_, err := e.Estimate(series, 1, m)
		assert.True(t, boterrors.IsInvalidFit(err), "method=%s", m)
	}

	_, ok := e.LastParameters()
	assert.False(t, ok)
	_, err = e.HalfLife()
	assert.Error(t, err)
}

func TestEstimator_NonRevertingSeries(t *testing.T) {
	explosive := []float64{1, 2, 4, 8, 16, 32, 64}
	_, err := NewEstimator().EstimateMLE(explosive, 1)
	assert.True(t, boterrors.IsInvalidFit(err))

	alternating := []float64{1, -1, 1, -1, 1, -1, 1, -1}
	rho, err := Autocorrelation(alternating, 1)
	require.NoError(t, err)
	assert.Less(t, rho, 0.0)

	_, err = EstimateThetaFromAutocorr(alternating, 1)
	require.Error(t, err)
	assert.True(t, boterrors.IsInvalidFit(err))

	var botErr *boterrors.BotError
	require.ErrorAs(t, err, &botErr)
	assert.Equal(t, rho, botErr.Context["rho"])
}

func TestEstimator_InsufficientData(t *testing.T) {
	e := NewEstimator()
	for _, series := range [][]float64{nil, {42}} {
		for _, m := range Methods {
			_, err := e.Estimate(series, 1, m)
			assert.True(t, boterrors.IsInsufficientData(err), "method=%s len=%d", m, len(series))
		}
		_, err := e.EstimateAutocorrelation(series, 1)
		assert.True(t, boterrors.IsInsufficientData(err))
	}
}

func TestEstimator_InvalidDT(t *testing.T) {
	_, err := NewEstimator().EstimateMLE(scenarioSeries, 0)
	require.Error(t, err)
	assert.Equal(t, boterrors.ErrorCategoryConfiguration, boterrors.CategoryOf(err))
}

func TestEstimator_AutocorrelationScenario(t *testing.T) {
	rho, err := Autocorrelation(scenarioSeries, 1)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, rho, 1e-12)

	params, err := NewEstimator().EstimateAutocorrelation(scenarioSeries, 1)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(1.5), params.Theta, 1e-12)
	assert.Equal(t, 100.0, params.Mu)
	assert.Greater(t, params.Sigma, 0.0)
}

func TestParseMethod(t *testing.T) {
	tests := map[string]Method{
		"mle":        MethodMLE,
		"MLE":        MethodMLE,
		"regression": MethodRegression,
		" ols ":      MethodOLS,
		"kalman":     MethodMLE,
		"":           MethodMLE,
	}
	for name, want := range tests {
		assert.Equal(t, want, ParseMethod(name), "name=%q", name)
	}
	assert.Equal(t, "regression", MethodRegression.String())
}
