package ou

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
)

func testProcess() *Process {
	return NewProcess(ProcessParameters{Theta: 0.5, Mu: 100, Sigma: 2, DT: 1})
}

func TestProcess_VarianceLimits(t *testing.T) {
	p := testProcess()

	v0, err := p.Variance(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v0)

	stationary, err := p.StationaryVariance()
	require.NoError(t, err)
	assert.InDelta(t, 4.0, stationary, 1e-12) // 2^2 / (2*0.5)

	prev := 0.0
	for _, tt := range []float64{0.5, 1, 5, 20, 100} {
		v, err := p.Variance(tt)
		require.NoError(t, err)
		assert.Greater(t, v, prev)
		assert.LessOrEqual(t, v, stationary)
		prev = v
	}
	vInf, err := p.Variance(200)
	require.NoError(t, err)
	assert.InDelta(t, stationary, vInf, 1e-9)
}

func TestProcess_HalfLifeIdentity(t *testing.T) {
	p := testProcess()
	hl, err := p.HalfLife()
	require.NoError(t, err)
	assert.InDelta(t, math.Ln2/0.5, hl, 1e-12)

	for _, x0 := range []float64{50, 90, 99.5, 100.01, 130} {
		got := p.ExpectedValue(hl, x0) - 100
		assert.InDelta(t, (x0-100)/2, got, 1e-9, "x0=%v", x0)
	}
}

func TestProcess_ExpectedValue(t *testing.T) {
	p := testProcess()
	assert.Equal(t, 80.0, p.ExpectedValue(0, 80))
	assert.InDelta(t, 100.0, p.ExpectedValue(1000, 80), 1e-9)
}

func TestProcess_NonRevertingGuards(t *testing.T) {
	for _, theta := range []float64{0, -0.3} {
		p := NewProcess(ProcessParameters{Theta: theta, Mu: 10, Sigma: 1, DT: 1})

		_, err := p.Variance(1)
		assert.True(t, boterrors.IsInvalidFit(err))
		_, err = p.StationaryVariance()
		assert.True(t, boterrors.IsInvalidFit(err))
		_, err = p.HalfLife()
		assert.True(t, boterrors.IsInvalidFit(err))
		_, err = p.ExpectedTimeToMean(12)
		assert.True(t, boterrors.IsInvalidFit(err))
		assert.Equal(t, 0.5, p.ProbabilityReversion(12))
	}
}

func TestProcess_DefaultDT(t *testing.T) {
	p := NewProcess(ProcessParameters{Theta: 1, Mu: 0, Sigma: 1})
	assert.Equal(t, DefaultDT, p.Parameters().DT)
}

func TestProcess_SimulateReproducible(t *testing.T) {
	p := testProcess()

	a := p.SimulateExact(200, 95, 42)
	b := p.SimulateExact(200, 95, 42)
	c := p.SimulateExact(200, 95, 43)
	require.Len(t, a, 200)
	assert.Equal(t, 95.0, a[0])
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	e1 := p.Simulate(200, 95, 7)
	e2 := p.Simulate(200, 95, 7)
	assert.Equal(t, e1, e2)
	assert.Equal(t, 95.0, e1[0])

	assert.Empty(t, p.Simulate(0, 95, 1))
	assert.Empty(t, p.SimulateExact(-3, 95, 1))
	assert.Equal(t, []float64{95}, p.SimulateExact(1, 95, 1))
}

func TestProcess_SimulateWithInjectedRand(t *testing.T) {
	p := testProcess()
	r1 := rand.New(rand.NewPCG(1, 2))
	r2 := rand.New(rand.NewPCG(1, 2))

	assert.Equal(t, p.SimulateExactWithRand(50, 100, r1), p.SimulateExactWithRand(50, 100, r2))
}

func TestProcess_SimulateExactVarianceFloor(t *testing.T) {
	// theta*dt is so large that the analytic one-step variance is ~1e-6;
	// the floor keeps draws at std sqrt(0.001)
	p := NewProcess(ProcessParameters{Theta: 50, Mu: 10, Sigma: 0.01, DT: 1})
	path := p.SimulateExact(5001, 10, 3)

	steps := path[1:]
	m := mean(steps)
	var ss float64
	for _, v := range steps {
		ss += (v - m) * (v - m)
	}
	std := math.Sqrt(ss / float64(len(steps)))
	assert.InEpsilon(t, math.Sqrt(MinTransitionVariance), std, 0.1)
	assert.InDelta(t, 10.0, m, 0.01)
}

func TestProcess_ProbabilityReversion(t *testing.T) {
	p := testProcess()

	assert.Equal(t, 0.5, p.ProbabilityReversion(100))
	near := p.ProbabilityReversion(100.5)
	far := p.ProbabilityReversion(110)
	assert.Greater(t, near, far)
	assert.Less(t, far, 0.01)
	assert.InDelta(t, p.ProbabilityReversion(104), p.ProbabilityReversion(96), 1e-12)
}

func TestProcess_ExpectedTimeToMean(t *testing.T) {
	p := testProcess()

	at, err := p.ExpectedTimeToMean(100)
	require.NoError(t, err)
	assert.Equal(t, 0.0, at)

	got, err := p.ExpectedTimeToMean(90)
	require.NoError(t, err)
	assert.InDelta(t, -math.Log(10/(100+MeanGuardEpsilon))/0.5, got, 1e-12)
}
