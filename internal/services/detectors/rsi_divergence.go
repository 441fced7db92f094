package detectors

import (
	"fmt"
	"math"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
)

// RSIDivergenceConfig parameterizes the RSI divergence detector.
type RSIDivergenceConfig struct {
	Enabled        bool
	BaseConfidence float64
	Oversold       float64
	Overbought     float64
	MinPivotGap    int
	MinDiff        float64 // oscillator failure margin in RSI points
	IdealGapLow    int
	IdealGapHigh   int
	RequireSweep   bool // demand triple confirmation
	SweepQuality   float64
	ATRBuffer      float64
}

// RSIDivergence detects regular bullish/bearish RSI divergence at an
// oscillator extreme.
type RSIDivergence struct {
	cfg RSIDivergenceConfig
}

// NewRSIDivergence creates the detector.
func NewRSIDivergence(cfg RSIDivergenceConfig) *RSIDivergence {
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = 45
	}
	if cfg.Oversold <= 0 {
		cfg.Oversold = 30
	}
	if cfg.Overbought <= 0 {
		cfg.Overbought = 70
	}
	if cfg.IdealGapLow <= 0 {
		cfg.IdealGapLow = 5
	}
	if cfg.IdealGapHigh <= 0 {
		cfg.IdealGapHigh = 12
	}
	return &RSIDivergence{cfg: cfg}
}

func (d *RSIDivergence) Type() models.SignalType { return models.SignalRSIDivergence }
func (d *RSIDivergence) Enabled() bool           { return d.cfg.Enabled }
func (d *RSIDivergence) FastPath() bool          { return false }

func (d *RSIDivergence) Detect(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate {
	if fs.ATR <= 0 || len(fs.RSI) == 0 {
		return nil
	}
	if cand := d.try(snap, fs, models.Long); cand != nil {
		return cand
	}
	return d.try(snap, fs, models.Short)
}

func (d *RSIDivergence) try(snap *market.Snapshot, fs *FeatureSet, dir models.Direction) *models.SignalCandidate {
	div := findDivergence(fs.Pivots, fs.RSI, dir, d.cfg.MinPivotGap, d.cfg.MinDiff)
	if div == nil {
		return nil
	}

	// the divergence only matters from an extreme
	if dir == models.Long && div.OscNewest > d.cfg.Oversold {
		return nil
	}
	if dir == models.Short && div.OscNewest < d.cfg.Overbought {
		return nil
	}

	// oscillator must already be recovering toward neutral
	now := fs.RSI[len(fs.RSI)-1]
	if math.IsNaN(now) {
		return nil
	}
	if dir == models.Long && now <= div.OscNewest {
		return nil
	}
	if dir == models.Short && now >= div.OscNewest {
		return nil
	}

	sweep := coincidentSweep(fs, div, d.cfg.SweepQuality)
	if d.cfg.RequireSweep && sweep == nil {
		return nil
	}

	conf := d.cfg.BaseConfidence
	conf += math.Min(div.Magnitude, 10)
	conf += spacingBonus(div.Gap, d.cfg.IdealGapLow, d.cfg.IdealGapHigh)
	conf += orderFlowBonus(fs.OrderFlow, dir)
	conf += extremityBonus(div.OscNewest, dir, d.cfg.Oversold, d.cfg.Overbought)
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
		Type:       models.SignalRSIDivergence,
		Direction:  dir,
		Urgency:    models.UrgencySoon,
		Confidence: conf,
		EntryPrice: entry,
		StopPrice:  stop,
		Rationale: fmt.Sprintf("price %s %.4f->%.4f while RSI %.1f->%.1f, recovering at %.1f",
			extremeWord(dir), div.Prior.Value, div.Newest.Value, div.OscPrior, div.OscNewest, now),
		Metrics: map[string]float64{
			"magnitude": div.Magnitude,
			"pivot_gap": float64(div.Gap),
			"rsi_now":   now,
			"orderflow": fs.OrderFlow.Score,
		},
		CreatedAt: time.Now(),
	}
}

// extremityBonus rewards divergences anchored deeper in the extreme zone.
func extremityBonus(osc float64, dir models.Direction, oversold, overbought float64) float64 {
	depth := 0.0
	if dir == models.Long {
		depth = oversold - osc
	} else {
		depth = osc - overbought
	}
	return math.Min(math.Max(depth, 0), 10)
}

func extremeWord(dir models.Direction) string {
	if dir == models.Long {
		return "lower low"
	}
	return "higher high"
}
