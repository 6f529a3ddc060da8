package backtest

import (
	"fmt"
	"math"

	boterrors "github.com/ducminhle1904/ou-reversion-bot/internal/errors"
	"github.com/ducminhle1904/ou-reversion-bot/internal/logger"
	"github.com/ducminhle1904/ou-reversion-bot/internal/ou"
	"github.com/ducminhle1904/ou-reversion-bot/internal/strategy"
)

// Default backtest settings
const (
	DefaultInitialCapital = 10000.0
	DefaultStopLossPct    = 0.20
)

// PositionKind is the state of the single position slot
type PositionKind int

const (
	PositionFlat PositionKind = iota
	PositionLong
	PositionShort
)

func (k PositionKind) String() string {
	switch k {
	case PositionFlat:
		return "FLAT"
	case PositionLong:
		return "LONG"
	case PositionShort:
		return "SHORT"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the kind by name in JSON output
func (k PositionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Position is the open position, if any. Kind == PositionFlat implies Shares == 0.
type Position struct {
	Kind       PositionKind
	Shares     int
	EntryPrice float64
}

// ExitReason records why a position was closed
type ExitReason string

const (
	ExitStopLoss       ExitReason = "stop_loss"
	ExitMeanCross      ExitReason = "mean_cross"
	ExitOpposingSignal ExitReason = "opposing_signal"
	ExitEndOfData      ExitReason = "end_of_data"
)

// Trade is one completed round trip
type Trade struct {
	Side       PositionKind `json:"side"`
	EntryIndex int          `json:"entry_index"`
	ExitIndex  int          `json:"exit_index"`
	EntryPrice float64      `json:"entry_price"`
	ExitPrice  float64      `json:"exit_price"`
	Shares     int          `json:"shares"`
	PnL        float64      `json:"pnl"`
	ExitReason ExitReason   `json:"exit_reason"`
}

// BacktestConfig holds the simulation options
type BacktestConfig struct {
	InitialCapital float64
	StopLossPct    float64
	ExitAtMean     bool
	AllowShort     bool
	DT             float64
}

// DefaultBacktestConfig returns the documented defaults
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		InitialCapital: DefaultInitialCapital,
		StopLossPct:    DefaultStopLossPct,
		ExitAtMean:     true,
		AllowShort:     true,
		DT:             ou.DefaultDT,
	}
}

// BacktestResults is the snapshot exported from one run
type BacktestResults struct {
	Params          ou.ProcessParameters   `json:"params"`
	Signals         []strategy.TradeAction `json:"signals"`
	Positions       []int                  `json:"positions"`
	PositionKinds   []PositionKind         `json:"position_kinds"`
	PortfolioValues []float64              `json:"portfolio_values"`
	Trades          []Trade                `json:"trades"`

	InitialCapital float64 `json:"initial_capital"`
	FinalValue     float64 `json:"final_value"`
	TotalReturn    float64 `json:"total_return"`
	SharpeRatio    float64 `json:"sharpe_ratio"`
	MaxDrawdown    float64 `json:"max_drawdown"`
	NumTrades      int     `json:"num_trades"`
	WinningTrades  int     `json:"winning_trades"`
	LosingTrades   int     `json:"losing_trades"`
}

// BacktestEngine replays a price series through a signal generator
type BacktestEngine struct {
	config   BacktestConfig
	strategy strategy.SignalGenerator
	logger   *logger.Logger
}

func NewBacktestEngine(config BacktestConfig, strat strategy.SignalGenerator) *BacktestEngine {
	if config.DT == 0 {
		config.DT = ou.DefaultDT
	}
	return &BacktestEngine{
		config:   config,
		strategy: strat,
	}
}

// SetLogger attaches a session logger that receives every fill
func (b *BacktestEngine) SetLogger(l *logger.Logger) {
	b.logger = l
}

// portfolioState lives for exactly one Run
type portfolioState struct {
	cash     float64
	position Position
	trades   int
	closed   []Trade
	entryIdx int
}

// Run fits the strategy on the full series and replays it bar by bar.
// Estimation errors are returned; numerical edge cases in the metrics
// resolve to 0.
func (b *BacktestEngine) Run(series []float64) (*BacktestResults, error) {
	if len(series) < 2 {
		return nil, boterrors.NewInsufficientDataError("backtest", "run", len(series))
	}
	if b.config.InitialCapital <= 0 {
		return nil, boterrors.NewConfigurationError("backtest", "run",
			fmt.Sprintf("initial capital must be positive, got %.2f", b.config.InitialCapital))
	}

	model, err := b.strategy.Fit(series, b.config.DT)
	if err != nil {
		return nil, fmt.Errorf("backtest fit: %w", err)
	}
	mu := model.Parameters().Mu

	n := len(series)
	results := &BacktestResults{
		Params:          model.Parameters(),
		Signals:         make([]strategy.TradeAction, 0, n),
		Positions:       make([]int, 0, n),
		PositionKinds:   make([]PositionKind, 0, n),
		PortfolioValues: make([]float64, 0, n+1),
		InitialCapital:  b.config.InitialCapital,
	}
	results.PortfolioValues = append(results.PortfolioValues, b.config.InitialCapital)

	state := &portfolioState{cash: b.config.InitialCapital}

	for i, price := range series {
		signal := b.strategy.GenerateSignal(model, price)
		results.Signals = append(results.Signals, signal.Action)

		deviation := deviationFrom(price, mu)
		prevDeviation := deviation
		if i > 0 {
			prevDeviation = deviationFrom(series[i-1], mu)
		}

		if state.position.Kind == PositionFlat {
			switch {
			case signal.Action == strategy.ActionBuy:
				b.open(state, PositionLong, i, price)
			case signal.Action == strategy.ActionSell && b.config.AllowShort:
				b.open(state, PositionShort, i, price)
			}
		}

		switch state.position.Kind {
		case PositionLong:
			loss := (state.position.EntryPrice - price) / state.position.EntryPrice
			switch {
			case loss > b.config.StopLossPct:
				b.close(state, i, price, ExitStopLoss, true)
			case b.config.ExitAtMean && prevDeviation < 0 && deviation >= 0:
				b.close(state, i, price, ExitMeanCross, true)
			case signal.Action == strategy.ActionSell:
				b.close(state, i, price, ExitOpposingSignal, true)
			}
		case PositionShort:
			loss := (price - state.position.EntryPrice) / state.position.EntryPrice
			switch {
			case loss > b.config.StopLossPct:
				b.close(state, i, price, ExitStopLoss, true)
			case b.config.ExitAtMean && prevDeviation > 0 && deviation <= 0:
				b.close(state, i, price, ExitMeanCross, true)
			case signal.Action == strategy.ActionBuy:
				b.close(state, i, price, ExitOpposingSignal, true)
			}
		}

		results.PortfolioValues = append(results.PortfolioValues, markToMarket(state, price))
		results.Positions = append(results.Positions, state.position.Shares)
		results.PositionKinds = append(results.PositionKinds, state.position.Kind)
	}

	// forced exit at the last bar; not counted as a signal-driven trade
	if state.position.Kind != PositionFlat {
		last := n - 1
		b.close(state, last, series[last], ExitEndOfData, false)
		results.PortfolioValues[len(results.PortfolioValues)-1] = state.cash
		results.Positions[last] = 0
		results.PositionKinds[last] = PositionFlat
	}

	results.Trades = state.closed
	results.NumTrades = state.trades
	results.UpdateMetrics()

	if b.logger != nil {
		b.logger.Info("Backtest finished: %d bars, %d trades, return %.2f%%, sharpe %.4f, max drawdown %.2f%%",
			n, results.NumTrades, results.TotalReturn*100, results.SharpeRatio, results.MaxDrawdown*100)
	}
	return results, nil
}

// open enters a position sized to floor(cash/price). A long debits the cost.
// A short reserves shares*price of cash as collateral so that the
// shares*(2*entry - price) valuation equals the standard short P&L.
// Portfolio values while short therefore differ from a rendition that
// credits the sale proceeds to cash at entry; that rendition jumps equity by
// the proceeds on the entry bar and this one does not.
func (b *BacktestEngine) open(state *portfolioState, kind PositionKind, index int, price float64) {
	if price <= 0 {
		return
	}
	shares := int(math.Floor(state.cash / price))
	if shares <= 0 {
		return
	}

	state.cash -= float64(shares) * price
	state.position = Position{Kind: kind, Shares: shares, EntryPrice: price}
	state.entryIdx = index
	state.trades++

	if b.logger != nil {
		b.logger.LogTradeOpen(kind.String(), index, price, shares, state.cash)
	}
}

// close exits the open position at price and credits the proceeds
func (b *BacktestEngine) close(state *portfolioState, index int, price float64, reason ExitReason, counted bool) {
	pos := state.position
	trade := Trade{
		Side:       pos.Kind,
		EntryIndex: state.entryIdx,
		ExitIndex:  index,
		EntryPrice: pos.EntryPrice,
		ExitPrice:  price,
		Shares:     pos.Shares,
		ExitReason: reason,
	}

	shares := float64(pos.Shares)
	switch pos.Kind {
	case PositionLong:
		state.cash += shares * price
		trade.PnL = shares * (price - pos.EntryPrice)
	case PositionShort:
		state.cash += shares * (2*pos.EntryPrice - price)
		trade.PnL = shares * (pos.EntryPrice - price)
	}

	state.closed = append(state.closed, trade)
	state.position = Position{Kind: PositionFlat}
	if counted {
		state.trades++
	}

	if b.logger != nil {
		b.logger.LogTradeClose(trade.Side.String(), string(reason), index, price, trade.Shares, trade.PnL, state.cash)
	}
}

// deviationFrom snaps rounding noise around mu to exactly zero so a price
// sitting on the fitted mean counts as a crossing
func deviationFrom(price, mu float64) float64 {
	d := price - mu
	if math.Abs(d) < ou.DeviationTolerance {
		return 0
	}
	return d
}

func markToMarket(state *portfolioState, price float64) float64 {
	shares := float64(state.position.Shares)
	switch state.position.Kind {
	case PositionLong:
		return state.cash + shares*price
	case PositionShort:
		return state.cash + shares*(2*state.position.EntryPrice-price)
	default:
		return state.cash
	}
}
