package ou

import (
	"fmt"
	"math"
	"strings"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
)

// Method selects the AR(1) fitting procedure used to recover the parameters.
type Method int

const (
	// MethodMLE is the exact-transition maximum-likelihood fit: least-squares
	// slope and intercept, residual variance over n.
	MethodMLE Method = iota
	// MethodRegression fits the differenced form dx = a + (b-1)*x, applies
	// Kendall's small-sample bias correction to b and uses n-2 residual dof.
	MethodRegression
	// MethodOLS is plain least squares of x[t+1] on x[t] with the residual
	// standard error over n-2 and no bias correction.
	MethodOLS
)

// Methods lists every linear-fit method in display order.
var Methods = []Method{MethodMLE, MethodRegression, MethodOLS}

func (m Method) String() string {
	switch m {
	case MethodMLE:
		return "mle"
	case MethodRegression:
		return "regression"
	case MethodOLS:
		return "ols"
	default:
		return "unknown"
	}
}

// ParseMethod maps a configuration name to a Method. Unknown names fall back
// to MethodMLE.
func ParseMethod(name string) Method {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "regression":
		return MethodRegression
	case "ols":
		return MethodOLS
	default:
		return MethodMLE
	}
}

// fitProcedure captures what differs between the linear-fit methods.
type fitProcedure struct {
	differenced bool
	biasCorrect bool
	residualDOF int
}

func (m Method) procedure() fitProcedure {
	switch m {
	case MethodRegression:
		return fitProcedure{differenced: true, biasCorrect: true, residualDOF: 2}
	case MethodOLS:
		return fitProcedure{residualDOF: 2}
	default:
		return fitProcedure{}
	}
}

// fitAR1 fits x[t+1] = a + b*x[t] + eps and maps (a, b, residual variance)
// onto the OU parameters through b = exp(-theta*dt).
func fitAR1(series []float64, dt float64, method Method) (ProcessParameters, error) {
	op := method.String()
	if len(series) < 2 {
		return ProcessParameters{}, boterrors.NewInsufficientDataError("estimator", op, len(series))
	}
	if err := checkDT(dt, op); err != nil {
		return ProcessParameters{}, err
	}

	proc := method.procedure()
	n := len(series) - 1
	if n-proc.residualDOF <= 0 {
		return ProcessParameters{}, boterrors.NewInsufficientDataError("estimator", op, len(series)).
			WithContext("residual_dof", proc.residualDOF)
	}

	xs := series[:n]
	ys := series[1:]
	mx := mean(xs)
	my := mean(ys)

	var sxx, sxy float64
	for i := 0; i < n; i++ {
		dx := xs[i] - mx
		sxx += dx * dx
		if proc.differenced {
			// regress the increment on the level; slope estimates b-1
			sxy += dx * ((ys[i] - xs[i]) - (my - mx))
		} else {
			sxy += dx * (ys[i] - my)
		}
	}
	if sxx == 0 {
		return ProcessParameters{}, boterrors.NewInvalidFitError("estimator", op,
			"regressor has zero variance").WithContext("slope", math.NaN())
	}

	b := sxy / sxx
	if proc.differenced {
		b += 1
	}
	if proc.biasCorrect {
		b += (1 + 3*b) / float64(n)
	}
	a := my - b*mx

	if !isFinite(b) || b <= 0 || b >= 1 {
		return ProcessParameters{}, boterrors.NewInvalidFitError("estimator", op,
			fmt.Sprintf("AR(1) slope %.6f outside (0,1)", b)).WithContext("slope", b)
	}

	var ss float64
	for i := 0; i < n; i++ {
		r := ys[i] - a - b*xs[i]
		ss += r * r
	}
	residualVar := ss / float64(n-proc.residualDOF)

	theta := -math.Log(b) / dt
	params := ProcessParameters{
		Theta: theta,
		Mu:    a / (1 - b),
		Sigma: math.Sqrt(residualVar * 2 * theta / (1 - b*b)),
		DT:    dt,
	}
	if err := params.Validate(); err != nil {
		return ProcessParameters{}, err
	}
	return params, nil
}

func checkDT(dt float64, op string) error {
	if dt > 0 && isFinite(dt) {
		return nil
	}
	return boterrors.NewConfigurationError("estimator", op, fmt.Sprintf("dt must be positive, got %v", dt))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
