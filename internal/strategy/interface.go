package strategy

import (
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
)

// SignalGenerator defines the interface for model-driven signal strategies
type SignalGenerator interface {
	// Fit estimates a process model from the full price series
	Fit(series []float64, dt float64) (*ou.Process, error)

	// GenerateSignal turns a fitted model and the current price into an action.
	// A nil or unusable model yields ActionNoSignal.
	GenerateSignal(model *ou.Process, price float64) Signal

	// GetName returns the name of the strategy
	GetName() string
}

// Signal is the discrete decision for one bar
type Signal struct {
	Action TradeAction `json:"action"`
	ZScore float64     `json:"z_score"`
}

// TradeAction represents the type of trading action
type TradeAction int

const (
	ActionHold TradeAction = iota
	ActionBuy
	ActionSell
	ActionNoSignal
)

func (ta TradeAction) String() string {
	switch ta {
	case ActionHold:
		return "HOLD"
	case ActionBuy:
		return "BUY"
	case ActionSell:
		return "SELL"
	case ActionNoSignal:
		return "NO_SIGNAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the action by name in JSON output
func (ta TradeAction) MarshalText() ([]byte, error) {
	return []byte(ta.String()), nil
}
