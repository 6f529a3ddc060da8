package ou

import (
	"math"
)

// ParameterErrors holds absolute relative errors in percent against known
// true parameters.
type ParameterErrors struct {
	Theta float64 `json:"theta_pct"`
	Mu    float64 `json:"mu_pct"`
	Sigma float64 `json:"sigma_pct"`
}

// CompareParameters computes the relative errors of est against truth.
func CompareParameters(est, truth ProcessParameters) ParameterErrors {
	return ParameterErrors{
		Theta: relativeErrorPct(est.Theta, truth.Theta),
		Mu:    relativeErrorPct(est.Mu, truth.Mu),
		Sigma: relativeErrorPct(est.Sigma, truth.Sigma),
	}
}

func relativeErrorPct(est, truth float64) float64 {
	return math.Abs(est-truth) / math.Abs(truth) * 100
}

// AnalysisReport is the step-by-step breakdown of the autocorrelation
// estimator, with every intermediate quantity exposed for presentation.
type AnalysisReport struct {
	SampleSize    int     `json:"sample_size"`
	DT            float64 `json:"dt"`
	Rho           float64 `json:"rho"`
	MeanReverting bool    `json:"mean_reverting"`

	Theta    float64 `json:"theta"`
	HalfLife float64 `json:"half_life"`
	Mu       float64 `json:"mu"`

	ExpNegThetaDT    float64 `json:"exp_neg_theta_dt"`
	ExpNegTwoThetaDT float64 `json:"exp_neg_two_theta_dt"`
	SumSquared       float64 `json:"sum_squared"`
	Denominator      float64 `json:"denominator"`
	SigmaSquared     float64 `json:"sigma_squared"`
	Sigma            float64 `json:"sigma"`

	StationaryVariance float64 `json:"stationary_variance"`
	StationaryStd      float64 `json:"stationary_std"`

	Errors *ParameterErrors `json:"errors,omitempty"`
}

// Parameters returns the fitted parameters contained in the report
func (r *AnalysisReport) Parameters() ProcessParameters {
	return ProcessParameters{Theta: r.Theta, Mu: r.Mu, Sigma: r.Sigma, DT: r.DT}
}

// Analyze runs the autocorrelation estimator and records its intermediates.
// When the series is not mean-reverting the partially filled report (sample
// size, rho, mu) is returned together with the ErrInvalidFit error.
func Analyze(series []float64, dt float64, truth *ProcessParameters) (*AnalysisReport, error) {
	report := &AnalysisReport{SampleSize: len(series), DT: dt}

	rho, err := Autocorrelation(series, 1)
	if err != nil {
		return report, err
	}
	report.Rho = rho
	report.MeanReverting = rho > 0 && rho < 1
	report.Mu = EstimateMu(series)

	theta, err := EstimateThetaFromAutocorr(series, dt)
	if err != nil {
		return report, err
	}
	report.Theta = theta
	report.HalfLife = math.Ln2 / theta

	report.ExpNegThetaDT = math.Exp(-theta * dt)
	report.ExpNegTwoThetaDT = math.Exp(-2 * theta * dt)
	report.SumSquared, report.Denominator = sigmaTerms(series, theta, report.Mu, dt)
	report.SigmaSquared = 2 * theta * report.SumSquared / report.Denominator
	report.Sigma = math.Sqrt(report.SigmaSquared)

	report.StationaryVariance = report.SigmaSquared / (2 * theta)
	report.StationaryStd = math.Sqrt(report.StationaryVariance)

	if truth != nil {
		errs := CompareParameters(report.Parameters(), *truth)
		report.Errors = &errs
	}
	return report, nil
}

// MethodComparison is one row of a side-by-side estimator comparison.
type MethodComparison struct {
	Method             Method            `json:"-"`
	MethodName         string            `json:"method"`
	Params             ProcessParameters `json:"params"`
	HalfLife           float64           `json:"half_life"`
	StationaryVariance float64           `json:"stationary_variance"`
	Errors             *ParameterErrors  `json:"errors,omitempty"`
	Err                error             `json:"-"`
	Error              string            `json:"error,omitempty"`
}

// CompareMethods fits the series with every linear-fit method. A failing
// method keeps its error in the row instead of aborting the comparison.
func CompareMethods(series []float64, dt float64, truth *ProcessParameters) []MethodComparison {
	estimator := NewEstimator()
	rows := make([]MethodComparison, 0, len(Methods))

	for _, m := range Methods {
		row := MethodComparison{Method: m, MethodName: m.String()}
		params, err := estimator.Estimate(series, dt, m)
		if err != nil {
			row.Err = err
			row.Error = err.Error()
			rows = append(rows, row)
			continue
		}
		row.Params = params
		row.HalfLife, _ = params.HalfLife()
		row.StationaryVariance, _ = params.StationaryVariance()
		if truth != nil {
			errs := CompareParameters(params, *truth)
			row.Errors = &errs
		}
		rows = append(rows, row)
	}
	return rows
}
