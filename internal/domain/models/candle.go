package models

import "time"

// Candle is one OHLCV bar for a single timeframe. Times are unix
// milliseconds, matching the exchange kline payloads.
type Candle struct {
	OpenTime  int64
	CloseTime int64
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Range returns high-low.
func (c Candle) Range() float64 { return c.High - c.Low }

// Body returns the absolute body size.
func (c Candle) Body() float64 {
	if c.Close >= c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Bullish reports whether the bar closed at or above its open.
func (c Candle) Bullish() bool { return c.Close >= c.Open }

// UpperWick returns the wick above the body.
func (c Candle) UpperWick() float64 {
	top := c.Open
	if c.Close > c.Open {
		top = c.Close
	}
	return c.High - top
}

// LowerWick returns the wick below the body.
func (c Candle) LowerWick() float64 {
	bot := c.Open
	if c.Close < c.Open {
		bot = c.Close
	}
	return bot - c.Low
}

// CandleUpdate is one incremental bar update for (symbol, timeframe).
// Re-delivery with an unchanged OpenTime refines the forming bar.
type CandleUpdate struct {
	Symbol    string
	Timeframe string
	Candle    Candle
}

// PriceTick is a last-trade-price update for a symbol.
type PriceTick struct {
	Symbol    string
	Price     float64
	Timestamp time.Time
}
