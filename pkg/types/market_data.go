package types

import "time"

type OHLCV struct {
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
	Timestamp time.Time
}

// ClosePrices reduces candles to the close series the models operate on.
func ClosePrices(data []OHLCV) []float64 {
	closes := make([]float64, len(data))
	for i, candle := range data {
		closes[i] = candle.Close
	}
	return closes
}
