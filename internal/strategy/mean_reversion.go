package strategy

import (
	"math"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
)

const (
	// DefaultThresholdSigma is the z-score magnitude that triggers BUY/SELL
	DefaultThresholdSigma = 2.0

	// DefaultStopLossK is the stationary-std multiple used for stop-loss bands
	DefaultStopLossK = 3.0

	// continuous signal shaping
	signalDeadZone = 0.5
	signalClip     = 3.0
)

// MeanReversionStrategy sells when price sits far above the fitted long-run
// mean and buys when it sits far below, measured in stationary standard
// deviations of the OU model.
type MeanReversionStrategy struct {
	method         ou.Method
	thresholdSigma float64
}

// NewMeanReversionStrategy creates the strategy. A non-positive threshold is
// replaced by DefaultThresholdSigma.
func NewMeanReversionStrategy(method ou.Method, thresholdSigma float64) *MeanReversionStrategy {
	if thresholdSigma <= 0 {
		thresholdSigma = DefaultThresholdSigma
	}
	return &MeanReversionStrategy{
		method:         method,
		thresholdSigma: thresholdSigma,
	}
}

// GetName returns the name of the strategy
func (s *MeanReversionStrategy) GetName() string {
	return "OU Mean Reversion (" + s.method.String() + ")"
}

// Method returns the estimator method used by Fit
func (s *MeanReversionStrategy) Method() ou.Method {
	return s.method
}

// ThresholdSigma returns the configured entry threshold
func (s *MeanReversionStrategy) ThresholdSigma() float64 {
	return s.thresholdSigma
}

// Fit estimates a fresh model from the series. Estimation errors are returned
// unchanged so callers can tell an invalid fit from missing data.
func (s *MeanReversionStrategy) Fit(series []float64, dt float64) (*ou.Process, error) {
	params, err := ou.NewEstimator().Estimate(series, dt, s.method)
	if err != nil {
		return nil, err
	}
	return ou.NewProcess(params), nil
}

// GenerateSignal returns SELL when z > threshold, BUY when z < -threshold and
// HOLD otherwise. The comparison is strict, so z == threshold holds.
func (s *MeanReversionStrategy) GenerateSignal(model *ou.Process, price float64) Signal {
	z, ok := zScore(model, price)
	if !ok {
		return Signal{Action: ActionNoSignal}
	}

	switch {
	case z > s.thresholdSigma:
		return Signal{Action: ActionSell, ZScore: z}
	case z < -s.thresholdSigma:
		return Signal{Action: ActionBuy, ZScore: z}
	default:
		return Signal{Action: ActionHold, ZScore: z}
	}
}

// GenerateSignalContinuous returns a strength in [-1, 1]. Positive deviations
// map to negative (short-leaning) values; |z| < 0.5 is a dead zone.
func (s *MeanReversionStrategy) GenerateSignalContinuous(model *ou.Process, price float64) float64 {
	z, ok := zScore(model, price)
	if !ok || math.Abs(z) < signalDeadZone {
		return 0
	}
	return -clip(z, -signalClip, signalClip) / signalClip
}

// GetPositionSize scales baseSize by |price-mu|/sigma relative to the
// threshold, capped at twice baseSize. Unlike the z-score this divides by the
// process sigma, not the stationary std.
func (s *MeanReversionStrategy) GetPositionSize(model *ou.Process, price, baseSize float64) float64 {
	if model == nil {
		return 0
	}
	params := model.Parameters()
	if params.Validate() != nil || params.Sigma == 0 {
		return 0
	}
	deviation := math.Abs(price-params.Mu) / params.Sigma
	return clip(baseSize*deviation/s.thresholdSigma, 0, 2*baseSize)
}

// GetStopLoss returns the symmetric band mu -/+ k*stationary_std.
func (s *MeanReversionStrategy) GetStopLoss(model *ou.Process, k float64) (lower, upper float64, err error) {
	if model == nil {
		return 0, 0, boterrors.NewInvalidFitError("strategy", "stop_loss", "model not fitted")
	}
	params := model.Parameters()
	std, err := params.StationaryStd()
	if err != nil {
		return 0, 0, err
	}
	return params.Mu - k*std, params.Mu + k*std, nil
}

// ParametersReport is the parameter record exposed to callers
type ParametersReport struct {
	Theta              float64 `json:"theta"`
	Mu                 float64 `json:"mu"`
	Sigma              float64 `json:"sigma"`
	DT                 float64 `json:"dt"`
	HalfLife           float64 `json:"half_life"`
	StationaryVariance float64 `json:"stationary_variance"`
}

// GetParameters builds the parameter record of a fitted model
func (s *MeanReversionStrategy) GetParameters(model *ou.Process) (ParametersReport, error) {
	if model == nil {
		return ParametersReport{}, boterrors.NewInvalidFitError("strategy", "parameters", "model not fitted")
	}
	params := model.Parameters()
	halfLife, err := params.HalfLife()
	if err != nil {
		return ParametersReport{}, err
	}
	variance, err := params.StationaryVariance()
	if err != nil {
		return ParametersReport{}, err
	}
	return ParametersReport{
		Theta:              params.Theta,
		Mu:                 params.Mu,
		Sigma:              params.Sigma,
		DT:                 params.DT,
		HalfLife:           halfLife,
		StationaryVariance: variance,
	}, nil
}

// SignalReport describes the signal for the latest observation
type SignalReport struct {
	Price     float64     `json:"price"`
	Mu        float64     `json:"mu"`
	Deviation float64     `json:"deviation"`
	ZScore    float64     `json:"z_score"`
	Action    TradeAction `json:"action"`
	Strength  float64     `json:"strength"`
}

// CurrentSignal evaluates the model at the given price
func (s *MeanReversionStrategy) CurrentSignal(model *ou.Process, price float64) SignalReport {
	signal := s.GenerateSignal(model, price)
	report := SignalReport{
		Price:    price,
		ZScore:   signal.ZScore,
		Action:   signal.Action,
		Strength: s.GenerateSignalContinuous(model, price),
	}
	if model != nil {
		report.Mu = model.Parameters().Mu
		report.Deviation = price - report.Mu
	}
	return report
}

// zScore measures the deviation from mu in stationary standard deviations.
// ok is false when the model is missing or not mean-reverting.
func zScore(model *ou.Process, price float64) (float64, bool) {
	if model == nil {
		return 0, false
	}
	params := model.Parameters()
	if params.Validate() != nil {
		return 0, false
	}
	std, err := params.StationaryStd()
	if err != nil || std == 0 {
		return 0, false
	}
	return (price - params.Mu) / std, true
}

func clip(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
