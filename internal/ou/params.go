// Package ou models the Ornstein-Uhlenbeck process dX = theta*(mu - X)*dt + sigma*dW
// and recovers its parameters from a discretely sampled series.
package ou

import (
	"fmt"
	"math"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
)

const (
	// DefaultDT is the sampling step used when callers do not specify one.
	DefaultDT = 1.0

	// DeviationTolerance treats |x - mu| below it as "at the mean".
	DeviationTolerance = 1e-10

	// MeanGuardEpsilon is added to mu in ExpectedTimeToMean to avoid a division
	// by zero. It changes the value of the heuristic when mu is close to 0.
	MeanGuardEpsilon = 1e-10

	// MinTransitionVariance floors the one-step variance of the exact
	// simulator so a large theta*dt never yields a zero-width draw.
	MinTransitionVariance = 0.001
)

// ProcessParameters is a fitted or assumed OU model. Values are never mutated
// after estimation; a re-fit produces a new value.
type ProcessParameters struct {
	Theta float64 `json:"theta"`
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	DT    float64 `json:"dt"`
}

// Validate checks that the parameters describe a usable mean-reverting model.
func (p ProcessParameters) Validate() error {
	if !isFinite(p.Theta) || !isFinite(p.Mu) || !isFinite(p.Sigma) {
		return boterrors.NewInvalidFitError("ou", "validate",
			fmt.Sprintf("non-finite parameters theta=%v mu=%v sigma=%v", p.Theta, p.Mu, p.Sigma))
	}
	if p.Theta <= 0 {
		return boterrors.NewInvalidFitError("ou", "validate",
			fmt.Sprintf("theta must be positive, got %v", p.Theta)).WithContext("theta", p.Theta)
	}
	if p.Sigma < 0 {
		return boterrors.NewInvalidFitError("ou", "validate",
			fmt.Sprintf("sigma must be non-negative, got %v", p.Sigma))
	}
	return nil
}

// HalfLife returns ln(2)/theta.
func (p ProcessParameters) HalfLife() (float64, error) {
	if err := p.requireReverting("half_life"); err != nil {
		return 0, err
	}
	return math.Ln2 / p.Theta, nil
}

// StationaryVariance returns sigma^2 / (2*theta).
func (p ProcessParameters) StationaryVariance() (float64, error) {
	if err := p.requireReverting("stationary_variance"); err != nil {
		return 0, err
	}
	return p.Sigma * p.Sigma / (2 * p.Theta), nil
}

// StationaryStd returns the standard deviation of the stationary distribution.
func (p ProcessParameters) StationaryStd() (float64, error) {
	v, err := p.StationaryVariance()
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

func (p ProcessParameters) requireReverting(operation string) error {
	if p.Theta > 0 && isFinite(p.Theta) {
		return nil
	}
	return boterrors.NewInvalidFitError("ou", operation,
		fmt.Sprintf("undefined for theta=%v", p.Theta)).WithContext("theta", p.Theta)
}

func (p ProcessParameters) String() string {
	return fmt.Sprintf("theta=%.6f mu=%.6f sigma=%.6f dt=%g", p.Theta, p.Mu, p.Sigma, p.DT)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
