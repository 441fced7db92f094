package features

import (
	"math"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

// OrderFlow is the aggregate buy/sell pressure read over a candle window.
// Score is in [-100,100]: positive means buy pressure.
type OrderFlow struct {
	Score       float64
	Strong      bool // |score| > 50
	Directional bool // |score| > 30
	Direction   models.Direction

	ClosePosition float64 // volume-weighted close position in range, [-1,1]
	BodyBias      float64 // body-to-wick asymmetry, [-1,1]
	Velocity      float64 // volume-weighted close-to-close velocity, [-1,1]
	RunLength     int     // signed higher-high/higher-low run length
}

// ComputeOrderFlow scores buy/sell pressure over the last `lookback` bars.
func ComputeOrderFlow(candles []models.Candle, lookback int) OrderFlow {
	if lookback < 3 {
		lookback = 3
	}
	if len(candles) < lookback+1 {
		return OrderFlow{}
	}
	window := candles[len(candles)-lookback:]

	var (
		posSum, bodySum, velSum, volSum float64
	)
	for i, c := range window {
		vol := c.Volume
		if vol <= 0 {
			vol = 1
		}
		volSum += vol

		if r := c.Range(); r > 0 {
			// close at the high -> +1, at the low -> -1
			posSum += vol * ((c.Close-c.Low)/r*2 - 1)
			body := (c.Close - c.Open) / r
			wickSkew := (c.LowerWick() - c.UpperWick()) / r
			bodySum += vol * clamp(body+0.5*wickSkew, -1, 1)
		}

		prevClose := window[0].Open
		if i > 0 {
			prevClose = window[i-1].Close
		}
		if prevClose > 0 {
			velSum += vol * math.Tanh((c.Close-prevClose)/prevClose*400)
		}
	}

	run := structureRun(window)
	runScore := clamp(float64(run)/float64(lookback)*2, -1, 1)

	score := 0.0
	if volSum > 0 {
		score = 35*(posSum/volSum) + 25*(bodySum/volSum) + 25*(velSum/volSum) + 15*runScore
	}
	score = clamp(score, -100, 100)

	of := OrderFlow{
		Score:         score,
		Strong:        math.Abs(score) > 50,
		Directional:   math.Abs(score) > 30,
		ClosePosition: safeDiv(posSum, volSum),
		BodyBias:      safeDiv(bodySum, volSum),
		Velocity:      safeDiv(velSum, volSum),
		RunLength:     run,
	}
	if score >= 0 {
		of.Direction = models.Long
	} else {
		of.Direction = models.Short
	}
	return of
}

// structureRun counts consecutive bars from the end making higher highs and
// higher lows (positive) or lower highs and lower lows (negative).
func structureRun(cs []models.Candle) int {
	if len(cs) < 2 {
		return 0
	}
	up, down := 0, 0
	for i := len(cs) - 1; i > 0; i-- {
		if cs[i].High > cs[i-1].High && cs[i].Low > cs[i-1].Low {
			if down > 0 {
				break
			}
			up++
		} else if cs[i].High < cs[i-1].High && cs[i].Low < cs[i-1].Low {
			if up > 0 {
				break
			}
			down++
		} else {
			break
		}
	}
	if down > 0 {
		return -down
	}
	return up
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}
