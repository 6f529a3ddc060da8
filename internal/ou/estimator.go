package ou

import (
	"fmt"
	"math"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
)

// Estimator recovers OU parameters from a single observed path. It remembers
// the last successful fit so HalfLife and StationaryVariance can be read
// afterwards. An Estimator is not safe for concurrent use.
type Estimator struct {
	last *ProcessParameters
}

// NewEstimator creates an estimator with no fitted state
func NewEstimator() *Estimator {
	return &Estimator{}
}

// Estimate fits the series with the given linear-fit method.
func (e *Estimator) Estimate(series []float64, dt float64, method Method) (ProcessParameters, error) {
	params, err := fitAR1(series, dt, method)
	if err != nil {
		return ProcessParameters{}, err
	}
	e.remember(params)
	return params, nil
}

// EstimateMLE fits the exact AR(1) transition by maximum likelihood.
func (e *Estimator) EstimateMLE(series []float64, dt float64) (ProcessParameters, error) {
	return e.Estimate(series, dt, MethodMLE)
}

// EstimateRegression fits the differenced regression with bias correction.
func (e *Estimator) EstimateRegression(series []float64, dt float64) (ProcessParameters, error) {
	return e.Estimate(series, dt, MethodRegression)
}

// EstimateOLS fits plain least squares of x[t+1] on x[t].
func (e *Estimator) EstimateOLS(series []float64, dt float64) (ProcessParameters, error) {
	return e.Estimate(series, dt, MethodOLS)
}

// EstimateAutocorrelation recovers theta from the lag-1 autocorrelation, mu
// as the sample mean and sigma from the discretized residuals.
func (e *Estimator) EstimateAutocorrelation(series []float64, dt float64) (ProcessParameters, error) {
	theta, err := EstimateThetaFromAutocorr(series, dt)
	if err != nil {
		return ProcessParameters{}, err
	}
	mu := EstimateMu(series)
	sigma, err := EstimateSigmaFromTheta(series, theta, mu, dt)
	if err != nil {
		return ProcessParameters{}, err
	}

	params := ProcessParameters{Theta: theta, Mu: mu, Sigma: sigma, DT: dt}
	if err := params.Validate(); err != nil {
		return ProcessParameters{}, err
	}
	e.remember(params)
	return params, nil
}

// LastParameters returns the most recent successful fit.
func (e *Estimator) LastParameters() (ProcessParameters, bool) {
	if e.last == nil {
		return ProcessParameters{}, false
	}
	return *e.last, true
}

// HalfLife of the most recent fit.
func (e *Estimator) HalfLife() (float64, error) {
	if e.last == nil {
		return 0, boterrors.NewInvalidFitError("estimator", "half_life", "no parameters estimated yet")
	}
	return e.last.HalfLife()
}

// StationaryVariance of the most recent fit.
func (e *Estimator) StationaryVariance() (float64, error) {
	if e.last == nil {
		return 0, boterrors.NewInvalidFitError("estimator", "stationary_variance", "no parameters estimated yet")
	}
	return e.last.StationaryVariance()
}

func (e *Estimator) remember(params ProcessParameters) {
	p := params
	e.last = &p
}

// Autocorrelation returns the sample autocorrelation at the given lag around
// the sample mean. A series with zero variance is perfectly persistent and
// yields 1.
func Autocorrelation(series []float64, lag int) (float64, error) {
	if lag <= 0 || len(series) <= lag {
		return 0, boterrors.NewInsufficientDataError("estimator", "autocorrelation", len(series)).
			WithContext("lag", lag)
	}

	m := mean(series)
	var num, den float64
	for i, v := range series {
		d := v - m
		den += d * d
		if i+lag < len(series) {
			num += d * (series[i+lag] - m)
		}
	}
	if den == 0 {
		return 1, nil
	}
	return num / den, nil
}

// EstimateMu returns the sample mean of the series
func EstimateMu(series []float64) float64 {
	return mean(series)
}

// EstimateThetaFromAutocorr returns -ln(rho)/dt for the lag-1 autocorrelation
// rho. rho outside (0,1) is reported as ErrInvalidFit, with the raw values in
// the error context.
func EstimateThetaFromAutocorr(series []float64, dt float64) (float64, error) {
	if len(series) < 2 {
		return 0, boterrors.NewInsufficientDataError("estimator", "autocorrelation", len(series))
	}
	if err := checkDT(dt, "autocorrelation"); err != nil {
		return 0, err
	}
	rho, err := Autocorrelation(series, 1)
	if err != nil {
		return 0, err
	}
	if rho <= 0 || rho >= 1 || !isFinite(rho) {
		return 0, boterrors.NewInvalidFitError("estimator", "autocorrelation",
			fmt.Sprintf("lag-1 autocorrelation %.6f outside (0,1)", rho)).
			WithContext("rho", rho).
			WithContext("theta", -math.Log(rho)/dt)
	}
	return -math.Log(rho) / dt, nil
}

// EstimateSigmaFromTheta derives sigma from the residuals of the discretized
// transition given theta and mu:
// sigma^2 = 2*theta*sum(r^2) / (n*(1-exp(-2*theta*dt))).
func EstimateSigmaFromTheta(series []float64, theta, mu, dt float64) (float64, error) {
	if len(series) < 2 {
		return 0, boterrors.NewInsufficientDataError("estimator", "sigma", len(series))
	}
	if theta <= 0 || !isFinite(theta) {
		return 0, boterrors.NewInvalidFitError("estimator", "sigma",
			fmt.Sprintf("theta must be positive, got %v", theta))
	}
	sumSquared, denominator := sigmaTerms(series, theta, mu, dt)
	return math.Sqrt(2 * theta * sumSquared / denominator), nil
}

// sigmaTerms returns the sum of squared discretized residuals and the
// n*(1-exp(-2*theta*dt)) denominator.
func sigmaTerms(series []float64, theta, mu, dt float64) (sumSquared, denominator float64) {
	n := len(series) - 1
	shift := mu * (1 - math.Exp(-theta*dt))
	for i := 0; i < n; i++ {
		r := series[i+1] - series[i] - shift
		sumSquared += r * r
	}
	denominator = float64(n) * (1 - math.Exp(-2*theta*dt))
	return sumSquared, denominator
}
