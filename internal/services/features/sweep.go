package features

import "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"

// SweepOptions parameterizes liquidity-sweep candidate scanning.
type SweepOptions struct {
	Lookback     int     // bars scanned backwards from the end
	MinWickRatio float64 // rejection wick vs body, minimum 1.3
	MaxDepthATR  float64 // penetration beyond the level, bounded in ATRs
	VolumeWindow int     // bars for the local volume average
	MinQuality   float64 // candidates below are discarded
	ATR          float64
	HTFAgrees    bool // higher-timeframe level agreement, scored as a bonus
}

// SweepCandidate is a bar that penetrated beyond a reference level and was
// rejected back to the defended side. Direction is the expected reversal
// direction: Long for a swept support, Short for a swept resistance.
type SweepCandidate struct {
	Index       int
	Direction   models.Direction
	Level       float64
	Extreme     float64 // the sweep's furthest price
	WickRatio   float64
	DepthATR    float64
	VolumeRatio float64 // sweep-bar volume vs local average; low reads as a trap
	HoldRate    float64 // fraction of later bars closing on the defended side
	Quality     float64 // 0-100
}

// FindSweep scans for the most recent liquidity sweep of `level` in the
// given reversal direction. Returns nil when no bar qualifies or the best
// candidate scores below MinQuality.
func FindSweep(candles []models.Candle, dir models.Direction, level float64, opts SweepOptions) *SweepCandidate {
	if level <= 0 || len(candles) < 3 || opts.ATR <= 0 {
		return nil
	}
	if opts.MinWickRatio < 1.3 {
		opts.MinWickRatio = 1.3
	}
	if opts.MaxDepthATR <= 0 {
		opts.MaxDepthATR = 1.5
	}
	if opts.Lookback <= 0 {
		opts.Lookback = 20
	}
	if opts.VolumeWindow <= 0 {
		opts.VolumeWindow = 20
	}
	if opts.MinQuality <= 0 {
		opts.MinQuality = 60
	}

	start := len(candles) - opts.Lookback
	if start < 1 {
		start = 1
	}
	for i := len(candles) - 1; i >= start; i-- {
		c := candles[i]
		cand := classifySweep(c, i, dir, level, opts)
		if cand == nil {
			continue
		}
		cand.VolumeRatio = volumeRatio(candles, i, opts.VolumeWindow)
		cand.HoldRate = holdRate(candles[i+1:], dir, level)
		cand.Quality = sweepQuality(cand, opts)
		// the most recent sweep decides; an older qualifying sweep does
		// not rescue a low-quality recent one
		if cand.Quality < opts.MinQuality {
			return nil
		}
		return cand
	}
	return nil
}

func classifySweep(c models.Candle, idx int, dir models.Direction, level float64, opts SweepOptions) *SweepCandidate {
	maxDepth := opts.MaxDepthATR * opts.ATR
	body := c.Body()
	if body <= 0 {
		body = opts.ATR * 0.05
	}

	switch dir {
	case models.Long:
		depth := level - c.Low
		if depth <= 0 || depth > maxDepth || c.Close <= level {
			return nil
		}
		wick := c.LowerWick()
		ratio := wick / body
		if ratio < opts.MinWickRatio {
			return nil
		}
		return &SweepCandidate{Index: idx, Direction: dir, Level: level, Extreme: c.Low, WickRatio: ratio, DepthATR: depth / opts.ATR}
	case models.Short:
		depth := c.High - level
		if depth <= 0 || depth > maxDepth || c.Close >= level {
			return nil
		}
		wick := c.UpperWick()
		ratio := wick / body
		if ratio < opts.MinWickRatio {
			return nil
		}
		return &SweepCandidate{Index: idx, Direction: dir, Level: level, Extreme: c.High, WickRatio: ratio, DepthATR: depth / opts.ATR}
	}
	return nil
}

// sweepQuality combines wick size, penetration depth, relative volume,
// post-sweep hold and higher-timeframe agreement into a 0-100 score.
// Larger rejection wicks never reduce the score.
func sweepQuality(c *SweepCandidate, opts SweepOptions) float64 {
	wickScore := 30 * clamp(c.WickRatio/4, 0, 1)

	// shallow probes and near-breakout depths both score lower than a
	// decisive mid-depth sweep
	depthNorm := c.DepthATR / opts.MaxDepthATR
	depthScore := 20 * clamp(1-abs64(depthNorm-0.45)*2, 0, 1)

	// low volume on the sweep bar reads as a stop hunt, not a real break
	volScore := 20 * clamp((1.5-c.VolumeRatio)/1.2, 0, 1)

	holdScore := 20 * clamp(c.HoldRate, 0, 1)

	score := wickScore + depthScore + volScore + holdScore
	if opts.HTFAgrees {
		score += 10
	}
	return clamp(score, 0, 100)
}

func volumeRatio(candles []models.Candle, idx, window int) float64 {
	start := idx - window
	if start < 0 {
		start = 0
	}
	if idx <= start {
		return 1
	}
	sum := 0.0
	for _, c := range candles[start:idx] {
		sum += c.Volume
	}
	avg := sum / float64(idx-start)
	if avg <= 0 {
		return 1
	}
	return candles[idx].Volume / avg
}

func holdRate(after []models.Candle, dir models.Direction, level float64) float64 {
	if len(after) == 0 {
		return 1
	}
	held := 0
	for _, c := range after {
		if dir == models.Long && c.Close > level {
			held++
		}
		if dir == models.Short && c.Close < level {
			held++
		}
	}
	return float64(held) / float64(len(after))
}

func abs64(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
