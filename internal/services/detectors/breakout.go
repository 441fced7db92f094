package detectors

import (
	"fmt"
	"math"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/services/features"
)

// BreakoutConfig parameterizes the range breakout detector.
type BreakoutConfig struct {
	Enabled        bool
	BaseConfidence float64
	RangeLookback  int     // bars defining the consolidation range
	MinVolumeRatio float64 // break-bar volume vs local average
	VolExpansion   float64 // short/long realized vol ratio floor
	VolShortWindow int
	VolLongWindow  int
	MaxRangeATR    float64 // consolidation height cap, in ATR units
	ATRBuffer      float64
}

// Breakout fires when the close escapes a tight consolidation range on
// expanding volume and realized volatility. Tight ranges broken on thin
// volume are the sweep detector's territory, not ours.
type Breakout struct {
	cfg BreakoutConfig
}

// NewBreakout creates the detector.
func NewBreakout(cfg BreakoutConfig) *Breakout {
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = 40
	}
	if cfg.RangeLookback <= 0 {
		cfg.RangeLookback = 20
	}
	if cfg.MinVolumeRatio <= 0 {
		cfg.MinVolumeRatio = 1.5
	}
	if cfg.VolExpansion <= 0 {
		cfg.VolExpansion = 1.2
	}
	if cfg.VolShortWindow <= 0 {
		cfg.VolShortWindow = 12
	}
	if cfg.VolLongWindow <= 0 {
		cfg.VolLongWindow = 48
	}
	if cfg.MaxRangeATR <= 0 {
		cfg.MaxRangeATR = 4
	}
	return &Breakout{cfg: cfg}
}

func (d *Breakout) Type() models.SignalType { return models.SignalBreakout }
func (d *Breakout) Enabled() bool           { return d.cfg.Enabled }
func (d *Breakout) FastPath() bool          { return false }

func (d *Breakout) Detect(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate {
	n := len(fs.Primary)
	need := d.cfg.RangeLookback + 1
	if d.cfg.VolLongWindow+1 > need {
		need = d.cfg.VolLongWindow + 1
	}
	if n < need || fs.ATR <= 0 {
		return nil
	}

	bar := fs.Primary[n-1]
	rangeBars := fs.Primary[n-1-d.cfg.RangeLookback : n-1]
	hi, lo := rangeBars[0].High, rangeBars[0].Low
	vol := 0.0
	for _, c := range rangeBars {
		if c.High > hi {
			hi = c.High
		}
		if c.Low < lo {
			lo = c.Low
		}
		vol += c.Volume
	}
	if (hi-lo)/fs.ATR > d.cfg.MaxRangeATR {
		return nil
	}

	var dir models.Direction
	var level float64
	switch {
	case bar.Close > hi:
		dir, level = models.Long, hi
	case bar.Close < lo:
		dir, level = models.Short, lo
	default:
		return nil
	}

	avgVol := vol / float64(len(rangeBars))
	volRatio := 0.0
	if avgVol > 0 {
		volRatio = bar.Volume / avgVol
	}
	if volRatio < d.cfg.MinVolumeRatio {
		return nil
	}

	expansion := d.volExpansion(fs, string(snap.PrimaryTimeframe()))
	if expansion < d.cfg.VolExpansion {
		return nil
	}

	// order flow opposing the break means absorption, stand aside
	if fs.OrderFlow.Directional && fs.OrderFlow.Direction != dir {
		return nil
	}

	conf := d.cfg.BaseConfidence
	conf += math.Min((volRatio-d.cfg.MinVolumeRatio)*10, 15)
	conf += math.Min((expansion-d.cfg.VolExpansion)*20, 10)
	conf += orderFlowBonus(fs.OrderFlow, dir)
	// a break clearing the level by more than its own body tends to hold
	if math.Abs(bar.Close-level) > bar.Body() {
		conf += 5
	}
	if conf > 100 {
		conf = 100
	}

	stop := level - d.cfg.ATRBuffer*fs.ATR
	if dir == models.Short {
		stop = level + d.cfg.ATRBuffer*fs.ATR
	}

	return &models.SignalCandidate{
		Symbol:     snap.Symbol,
		Type:       models.SignalBreakout,
		Direction:  dir,
		Urgency:    models.UrgencyImmediate,
		Confidence: conf,
		EntryPrice: bar.Close,
		StopPrice:  stop,
		Rationale: fmt.Sprintf("%d-bar range broken at %.4f on %.1fx volume, vol expansion %.2f",
			d.cfg.RangeLookback, level, volRatio, expansion),
		Metrics: map[string]float64{
			"level":        level,
			"volume_ratio": volRatio,
			"expansion":    expansion,
			"range_atr":    (hi - lo) / fs.ATR,
		},
		CreatedAt: time.Now(),
	}
}

// volExpansion compares short-window realized volatility against the
// long-window baseline; >1 means volatility is picking up.
func (d *Breakout) volExpansion(fs *FeatureSet, tf string) float64 {
	returns := features.ComputeLogReturns(fs.Primary)
	if len(returns) < d.cfg.VolLongWindow {
		return 0
	}
	bpy := features.BarsPerYearForTF(tf)
	short := features.RealizedVolatility(returns, d.cfg.VolShortWindow, bpy)
	long := features.RealizedVolatility(returns, d.cfg.VolLongWindow, bpy)
	if long <= 0 || math.IsNaN(short) || math.IsNaN(long) {
		return 0
	}
	return short / long
}
