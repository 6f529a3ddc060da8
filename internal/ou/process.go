package ou

import (
	"math"
	"math/rand/v2"
)

// Process wraps a parameter set with the analytic and simulation operations
// of the OU dynamics.
type Process struct {
	params ProcessParameters
}

// NewProcess creates a process model for the given parameters. A zero DT is
// replaced by DefaultDT.
func NewProcess(params ProcessParameters) *Process {
	if params.DT == 0 {
		params.DT = DefaultDT
	}
	return &Process{params: params}
}

// Parameters returns the parameter set of the model
func (p *Process) Parameters() ProcessParameters {
	return p.params
}

// ExpectedValue returns the exact conditional mean at time t starting from x0.
func (p *Process) ExpectedValue(t, x0 float64) float64 {
	return p.params.Mu + (x0-p.params.Mu)*math.Exp(-p.params.Theta*t)
}

// Variance returns the exact conditional variance at time t starting from a
// deterministic point.
func (p *Process) Variance(t float64) (float64, error) {
	if err := p.params.requireReverting("variance"); err != nil {
		return 0, err
	}
	theta := p.params.Theta
	return p.params.Sigma * p.params.Sigma * (1 - math.Exp(-2*theta*t)) / (2 * theta), nil
}

// StationaryVariance returns sigma^2/(2*theta).
func (p *Process) StationaryVariance() (float64, error) {
	return p.params.StationaryVariance()
}

// HalfLife returns ln(2)/theta.
func (p *Process) HalfLife() (float64, error) {
	return p.params.HalfLife()
}

// Simulate generates an Euler-Maruyama path of n points starting at x0.
// The scheme is biased for large dt; prefer SimulateExact for coarse steps.
func (p *Process) Simulate(n int, x0 float64, seed uint64) []float64 {
	return p.SimulateWithRand(n, x0, newRand(seed))
}

// SimulateWithRand is Simulate with an injected generator.
func (p *Process) SimulateWithRand(n int, x0 float64, rng *rand.Rand) []float64 {
	if n <= 0 {
		return []float64{}
	}
	path := make([]float64, n)
	path[0] = x0

	theta, mu, sigma, dt := p.params.Theta, p.params.Mu, p.params.Sigma, p.params.DT
	sqrtDt := math.Sqrt(dt)
	for i := 1; i < n; i++ {
		drift := theta * (mu - path[i-1]) * dt
		diffusion := sigma * rng.NormFloat64() * sqrtDt
		path[i] = path[i-1] + drift + diffusion
	}
	return path
}

// SimulateExact generates a path of n points from the closed-form transition
// density, exact for any dt.
func (p *Process) SimulateExact(n int, x0 float64, seed uint64) []float64 {
	return p.SimulateExactWithRand(n, x0, newRand(seed))
}

// SimulateExactWithRand is SimulateExact with an injected generator.
func (p *Process) SimulateExactWithRand(n int, x0 float64, rng *rand.Rand) []float64 {
	if n <= 0 {
		return []float64{}
	}
	path := make([]float64, n)
	path[0] = x0

	std := math.Sqrt(p.transitionVariance())
	decay := math.Exp(-p.params.Theta * p.params.DT)
	mu := p.params.Mu
	for i := 1; i < n; i++ {
		path[i] = mu + (path[i-1]-mu)*decay + rng.NormFloat64()*std
	}
	return path
}

// transitionVariance is the one-step variance floored at MinTransitionVariance.
func (p *Process) transitionVariance() float64 {
	theta, sigma, dt := p.params.Theta, p.params.Sigma, p.params.DT
	v := sigma * sigma * (1 - math.Exp(-2*theta*dt)) / (2 * theta)
	if math.IsNaN(v) || v < MinTransitionVariance {
		return MinTransitionVariance
	}
	return v
}

// ProbabilityReversion is a heuristic symmetry score around mu:
// 1 - 2*|Phi(z) - 0.5| with z measured in stationary standard deviations.
// It is not a hitting-time probability. Returns 0.5 at the mean and for
// non-reverting models.
func (p *Process) ProbabilityReversion(x float64) float64 {
	deviation := x - p.params.Mu
	if math.Abs(deviation) < DeviationTolerance {
		return 0.5
	}
	std, err := p.params.StationaryStd()
	if err != nil || std == 0 {
		return 0.5
	}
	z := deviation / std
	return 1 - math.Abs(normalCDF(z)-0.5)*2
}

// ExpectedTimeToMean is a heuristic estimate -ln(|x-mu| / (mu+eps)) / theta.
// It is not an OU first-passage time and is ill-conditioned when mu is near 0.
func (p *Process) ExpectedTimeToMean(x float64) (float64, error) {
	if err := p.params.requireReverting("expected_time_to_mean"); err != nil {
		return 0, err
	}
	deviation := math.Abs(x - p.params.Mu)
	if deviation < DeviationTolerance {
		return 0, nil
	}
	return -math.Log(deviation/(p.params.Mu+MeanGuardEpsilon)) / p.params.Theta, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func normalCDF(z float64) float64 {
	return 0.5 * (1 + math.Erf(z/math.Sqrt2))
}
