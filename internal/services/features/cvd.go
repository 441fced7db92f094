package features

import "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"

// CVD is the cumulative volume delta series over a candle window: a running
// signed-volume sum where the sign is close >= prevClose.
type CVD struct {
	Values   []float64
	Current  float64
	Momentum float64 // change over the last 5 bars
	Rising   bool
	Falling  bool
}

// ComputeCVD builds the cumulative volume delta for the given bars.
func ComputeCVD(candles []models.Candle) CVD {
	if len(candles) < 2 {
		return CVD{}
	}
	values := make([]float64, len(candles))
	run := 0.0
	for i := 1; i < len(candles); i++ {
		if candles[i].Close >= candles[i-1].Close {
			run += candles[i].Volume
		} else {
			run -= candles[i].Volume
		}
		values[i] = run
	}

	cvd := CVD{Values: values, Current: run}
	if len(values) > 5 {
		cvd.Momentum = run - values[len(values)-6]
	} else {
		cvd.Momentum = run - values[0]
	}
	cvd.Rising = cvd.Momentum > 0
	cvd.Falling = cvd.Momentum < 0
	return cvd
}

// RangePosition returns where the current CVD sits inside the min/max of
// the last `window` values, in [0,1]. Bottom 30% reads as exhausted selling.
func (c CVD) RangePosition(window int) float64 {
	if len(c.Values) == 0 {
		return 0.5
	}
	start := len(c.Values) - window
	if start < 0 {
		start = 0
	}
	lo, hi := c.Values[start], c.Values[start]
	for _, v := range c.Values[start:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		return 0.5
	}
	return (c.Current - lo) / (hi - lo)
}
