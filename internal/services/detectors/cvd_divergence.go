package detectors

import (
	"fmt"
	"math"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
)

// CVDDivergenceConfig parameterizes the CVD divergence detector.
type CVDDivergenceConfig struct {
	Enabled        bool
	BaseConfidence float64
	ExtremeBand    float64 // CVD range position band, e.g. 0.3 = bottom/top 30%
	RangeWindow    int     // bars for the CVD range position
	MinPivotGap    int
	MinDiffPct     float64 // failure margin as a fraction of the CVD range
	IdealGapLow    int
	IdealGapHigh   int
	RequireSweep   bool
	SweepQuality   float64
	ATRBuffer      float64
}

// CVDDivergence detects price/CVD disagreement when cumulative volume delta
// sits in the exhausted part of its recent range.
type CVDDivergence struct {
	cfg CVDDivergenceConfig
}

// NewCVDDivergence creates the detector.
func NewCVDDivergence(cfg CVDDivergenceConfig) *CVDDivergence {
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = 45
	}
	if cfg.ExtremeBand <= 0 {
		cfg.ExtremeBand = 0.3
	}
	if cfg.RangeWindow <= 0 {
		cfg.RangeWindow = 100
	}
	if cfg.MinDiffPct <= 0 {
		cfg.MinDiffPct = 0.05
	}
	if cfg.IdealGapLow <= 0 {
		cfg.IdealGapLow = 5
	}
	if cfg.IdealGapHigh <= 0 {
		cfg.IdealGapHigh = 12
	}
	return &CVDDivergence{cfg: cfg}
}

func (d *CVDDivergence) Type() models.SignalType { return models.SignalCVDDivergence }
func (d *CVDDivergence) Enabled() bool           { return d.cfg.Enabled }
func (d *CVDDivergence) FastPath() bool          { return false }

func (d *CVDDivergence) Detect(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate {
	if fs.ATR <= 0 || len(fs.CVD.Values) == 0 {
		return nil
	}

	pos := fs.CVD.RangePosition(d.cfg.RangeWindow)
	switch {
	case pos <= d.cfg.ExtremeBand:
		return d.try(snap, fs, models.Long, pos)
	case pos >= 1-d.cfg.ExtremeBand:
		return d.try(snap, fs, models.Short, pos)
	default:
		return nil
	}
}

func (d *CVDDivergence) try(snap *market.Snapshot, fs *FeatureSet, dir models.Direction, pos float64) *models.SignalCandidate {
	minDiff := d.cfg.MinDiffPct * cvdRange(fs.CVD.Values, d.cfg.RangeWindow)
	if minDiff <= 0 {
		return nil
	}
	div := findDivergence(fs.Pivots, fs.CVD.Values, dir, d.cfg.MinPivotGap, minDiff)
	if div == nil {
		return nil
	}

	// CVD must be turning back toward neutral
	if dir == models.Long && !fs.CVD.Rising {
		return nil
	}
	if dir == models.Short && !fs.CVD.Falling {
		return nil
	}

	sweep := coincidentSweep(fs, div, d.cfg.SweepQuality)
	if d.cfg.RequireSweep && sweep == nil {
		return nil
	}

	conf := d.cfg.BaseConfidence
	conf += math.Min(div.Magnitude/minDiff*2, 10)
	conf += spacingBonus(div.Gap, d.cfg.IdealGapLow, d.cfg.IdealGapHigh)
	conf += orderFlowBonus(fs.OrderFlow, dir)
	// deeper in the exhausted band scores higher
	if dir == models.Long {
		conf += (d.cfg.ExtremeBand - pos) / d.cfg.ExtremeBand * 10
	} else {
		conf += (pos - (1 - d.cfg.ExtremeBand)) / d.cfg.ExtremeBand * 10
	}
	if sweep != nil {
		conf += 10
	}
	if conf > 100 {
		conf = 100
	}

	entry := fs.Primary[len(fs.Primary)-1].Close
	stop := div.Newest.Value - d.cfg.ATRBuffer*fs.ATR
	if dir == models.Short {
		stop = div.Newest.Value + d.cfg.ATRBuffer*fs.ATR
	}

	return &models.SignalCandidate{
		Symbol:     snap.Symbol,
		Type:       models.SignalCVDDivergence,
		Direction:  dir,
		Urgency:    models.UrgencySoon,
		Confidence: conf,
		EntryPrice: entry,
		StopPrice:  stop,
		Rationale: fmt.Sprintf("price %s while CVD held (range position %.2f, momentum %.0f)",
			extremeWord(dir), pos, fs.CVD.Momentum),
		Metrics: map[string]float64{
			"cvd_position": pos,
			"magnitude":    div.Magnitude,
			"pivot_gap":    float64(div.Gap),
			"orderflow":    fs.OrderFlow.Score,
		},
		CreatedAt: time.Now(),
	}
}

func cvdRange(values []float64, window int) float64 {
	start := len(values) - window
	if start < 0 {
		start = 0
	}
	if start >= len(values) {
		return 0
	}
	lo, hi := values[start], values[start]
	for _, v := range values[start:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}
