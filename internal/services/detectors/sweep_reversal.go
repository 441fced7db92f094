package detectors

import (
	"fmt"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/services/features"
)

// SweepReversalConfig parameterizes the liquidity-sweep reversal detector.
type SweepReversalConfig struct {
	Enabled        bool
	BaseConfidence float64
	MinQuality     float64
	MinWickRatio   float64
	MaxDepthATR    float64
	SweepLookback  int
	VolumeWindow   int
	ATRBuffer      float64 // stop buffer beyond the sweep extreme, in ATRs

	// ATR-distance graduation for confidence as price extends away from
	// the sweep extreme; beyond the last breakpoint the setup is stale.
	ExtensionBreakpoints []float64
}

// SweepReversal detects a rejected liquidity grab past a pivot-derived
// level with order flow opposing the sweep's direction.
type SweepReversal struct {
	cfg SweepReversalConfig
}

// NewSweepReversal creates the detector.
func NewSweepReversal(cfg SweepReversalConfig) *SweepReversal {
	if cfg.BaseConfidence <= 0 {
		cfg.BaseConfidence = 50
	}
	if len(cfg.ExtensionBreakpoints) == 0 {
		cfg.ExtensionBreakpoints = []float64{1.0, 1.5, 2.0, 2.5}
	}
	return &SweepReversal{cfg: cfg}
}

func (d *SweepReversal) Type() models.SignalType { return models.SignalSweepReversal }
func (d *SweepReversal) Enabled() bool           { return d.cfg.Enabled }
func (d *SweepReversal) FastPath() bool          { return true }

// Detect scans supports for a bullish sweep and resistances for a bearish
// one, honoring order-flow direction.
func (d *SweepReversal) Detect(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate {
	if fs.ATR <= 0 || !fs.OrderFlow.Directional {
		return nil
	}

	// a sweep trade goes with the order flow, against the sweep itself
	dir := fs.OrderFlow.Direction
	levels := fs.Supports
	htf := fs.HTFSupports
	if dir == models.Short {
		levels = fs.Resistances
		htf = fs.HTFResistances
	}

	for _, level := range levels {
		opts := features.SweepOptions{
			Lookback:     d.cfg.SweepLookback,
			MinWickRatio: d.cfg.MinWickRatio,
			MaxDepthATR:  d.cfg.MaxDepthATR,
			VolumeWindow: d.cfg.VolumeWindow,
			MinQuality:   d.cfg.MinQuality,
			ATR:          fs.ATR,
			HTFAgrees:    nearLevel(htf, level, 0.5*fs.ATR),
		}
		sweep := features.FindSweep(fs.Primary, dir, level, opts)
		if sweep == nil {
			continue
		}
		if cand := d.build(snap, fs, sweep); cand != nil {
			return cand
		}
	}
	return nil
}

func (d *SweepReversal) build(snap *market.Snapshot, fs *FeatureSet, sweep *features.SweepCandidate) *models.SignalCandidate {
	entry := fs.Primary[len(fs.Primary)-1].Close

	distATR := abs(entry-sweep.Extreme) / fs.ATR
	bp := d.cfg.ExtensionBreakpoints
	if distATR >= bp[len(bp)-1] {
		// price already ran; chasing here is the failure mode
		return nil
	}

	strong, directional := recoveryCounts(fs.Primary, sweep.Direction)
	if strong < 2 || directional < 3 {
		return nil
	}

	conf := d.cfg.BaseConfidence
	switch {
	case sweep.Quality >= 80:
		conf += 15
	case sweep.Quality >= 70:
		conf += 10
	default:
		conf += 5
	}
	if fs.OrderFlow.Strong {
		conf += 10
	} else {
		conf += 5
	}
	if sweep.VolumeRatio < 0.8 {
		conf += 5
	}
	conf += extensionAdjustment(distATR, bp)
	if conf > 100 {
		conf = 100
	}

	urgency := models.UrgencyWatch
	switch {
	case distATR < bp[0]:
		urgency = models.UrgencyImmediate
	case distATR < bp[1]:
		urgency = models.UrgencySoon
	}

	stop := sweep.Extreme - d.cfg.ATRBuffer*fs.ATR
	if sweep.Direction == models.Short {
		stop = sweep.Extreme + d.cfg.ATRBuffer*fs.ATR
	}

	return &models.SignalCandidate{
		Symbol:     snap.Symbol,
		Type:       models.SignalSweepReversal,
		Direction:  sweep.Direction,
		Urgency:    urgency,
		Confidence: conf,
		EntryPrice: entry,
		StopPrice:  stop,
		Rationale: fmt.Sprintf("liquidity sweep of %.4f rejected (wick %.1fx body, quality %.0f), order flow %.0f",
			sweep.Level, sweep.WickRatio, sweep.Quality, fs.OrderFlow.Score),
		Metrics: map[string]float64{
			"sweep_quality": sweep.Quality,
			"wick_ratio":    sweep.WickRatio,
			"volume_ratio":  sweep.VolumeRatio,
			"extension_atr": distATR,
			"orderflow":     fs.OrderFlow.Score,
		},
		CreatedAt: time.Now(),
	}
}

// extensionAdjustment graduates confidence by how far price already moved
// from the sweep extreme.
func extensionAdjustment(distATR float64, bp []float64) float64 {
	switch {
	case distATR < bp[0]:
		return 5
	case len(bp) > 1 && distATR < bp[1]:
		return 0
	case len(bp) > 2 && distATR < bp[2]:
		return -5
	default:
		return -10
	}
}

// recoveryCounts inspects the last five bars for reversal participation:
// strong-bodied bars (body >= 60% of range) and directional closes.
func recoveryCounts(cs []models.Candle, dir models.Direction) (strong, directional int) {
	start := len(cs) - 5
	if start < 0 {
		start = 0
	}
	for _, c := range cs[start:] {
		up := c.Bullish()
		if (dir == models.Long && up) || (dir == models.Short && !up) {
			directional++
			if r := c.Range(); r > 0 && c.Body() >= 0.6*r {
				strong++
			}
		}
	}
	return strong, directional
}
