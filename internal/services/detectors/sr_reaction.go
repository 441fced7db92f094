package detectors

import (
	"fmt"
	"math"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
)

// SRReactionConfig parameterizes the support/resistance reaction detector.
type SRReactionConfig struct {
	Enabled        bool
	BaseConfidence float64
	LevelTolATR    float64 // how close price must be to a level, in ATR
	MinWickRatio   float64 // rejection wick vs body on the reaction bar
	MinVolumeRatio float64
	VolumeWindow   int
	ATRBuffer      float64
}

// SRReaction fires on a rejection bar at a pivot-derived level with order
// flow agreeing with the bounce. Unlike the sweep detector it does not
// require penetration past the level, only a tested-and-held reaction.
type SRReaction struct {
	cfg SRReactionConfig
}

// NewSRReaction creates the detector.
func NewSRReaction(cfg SRReactionConfig) *SRReaction {
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = 40
	}
	if cfg.LevelTolATR <= 0 {
		cfg.LevelTolATR = 0.5
	}
	if cfg.MinWickRatio <= 0 {
		cfg.MinWickRatio = 1.0
	}
	if cfg.MinVolumeRatio <= 0 {
		cfg.MinVolumeRatio = 0.9
	}
	if cfg.VolumeWindow <= 0 {
		cfg.VolumeWindow = 20
	}
	return &SRReaction{cfg: cfg}
}

func (d *SRReaction) Type() models.SignalType { return models.SignalSRReaction }
func (d *SRReaction) Enabled() bool           { return d.cfg.Enabled }
func (d *SRReaction) FastPath() bool          { return true }

func (d *SRReaction) Detect(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate {
	if fs.ATR <= 0 || len(fs.Primary) < d.cfg.VolumeWindow+2 {
		return nil
	}
	bar := fs.Primary[len(fs.Primary)-1]
	tol := d.cfg.LevelTolATR * fs.ATR

	if fs.OrderFlow.Directional && fs.OrderFlow.Direction == models.Long {
		for _, level := range fs.Supports {
			if c := d.build(snap, fs, bar, models.Long, level, tol); c != nil {
				return c
			}
		}
	}
	if fs.OrderFlow.Directional && fs.OrderFlow.Direction == models.Short {
		for _, level := range fs.Resistances {
			if c := d.build(snap, fs, bar, models.Short, level, tol); c != nil {
				return c
			}
		}
	}
	return nil
}

func (d *SRReaction) build(snap *market.Snapshot, fs *FeatureSet, bar models.Candle, dir models.Direction, level, tol float64) *models.SignalCandidate {
	var touch, wick float64
	if dir == models.Long {
		touch = bar.Low
		wick = bar.LowerWick()
		// tested the level without breaking it, closed above
		if math.Abs(touch-level) > tol || touch < level-tol || bar.Close <= level {
			return nil
		}
	} else {
		touch = bar.High
		wick = bar.UpperWick()
		if math.Abs(touch-level) > tol || touch > level+tol || bar.Close >= level {
			return nil
		}
	}

	body := bar.Body()
	if body <= 0 || wick/body < d.cfg.MinWickRatio {
		return nil
	}

	volRatio := d.volumeRatio(fs, bar)
	if volRatio < d.cfg.MinVolumeRatio {
		return nil
	}

	htf := nearLevel(htfLevels(fs, dir), level, 0.5*fs.ATR)

	conf := d.cfg.BaseConfidence
	conf += math.Min(wick/body*5, 15)
	conf += orderFlowBonus(fs.OrderFlow, dir)
	if htf {
		conf += 10
	}
	if volRatio >= 1.5 {
		conf += 5
	}
	if conf > 100 {
		conf = 100
	}

	stop := touch - d.cfg.ATRBuffer*fs.ATR
	urgency := models.UrgencySoon
	if dir == models.Short {
		stop = touch + d.cfg.ATRBuffer*fs.ATR
	}
	if math.Abs(bar.Close-level) <= 0.5*fs.ATR {
		urgency = models.UrgencyImmediate
	}

	return &models.SignalCandidate{
		Symbol:     snap.Symbol,
		Type:       models.SignalSRReaction,
		Direction:  dir,
		Urgency:    urgency,
		Confidence: conf,
		EntryPrice: bar.Close,
		StopPrice:  stop,
		Rationale: fmt.Sprintf("rejection at %.4f with %.1fx wick and order flow %.0f",
			level, wick/body, fs.OrderFlow.Score),
		Metrics: map[string]float64{
			"level":        level,
			"wick_ratio":   wick / body,
			"volume_ratio": volRatio,
			"orderflow":    fs.OrderFlow.Score,
		},
		CreatedAt: time.Now(),
	}
}

func (d *SRReaction) volumeRatio(fs *FeatureSet, bar models.Candle) float64 {
	n := len(fs.Primary)
	window := fs.Primary[n-1-d.cfg.VolumeWindow : n-1]
	sum := 0.0
	for _, c := range window {
		sum += c.Volume
	}
	avg := sum / float64(len(window))
	if avg <= 0 {
		return 0
	}
	return bar.Volume / avg
}

func htfLevels(fs *FeatureSet, dir models.Direction) []float64 {
	if dir == models.Long {
		return fs.HTFSupports
	}
	return fs.HTFResistances
}
