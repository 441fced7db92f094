package detectors

import (
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/services/features"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// FeatureSet is the shared, precomputed feature view consumed by every
// detector in one pass. Stateless: derived fresh from each snapshot.
type FeatureSet struct {
	Primary     []models.Candle
	OrderFlow   features.OrderFlow
	CVD         features.CVD
	Pivots      []features.Pivot
	RSI         []float64
	ATR         float64
	Supports    []float64
	Resistances []float64

	// confirm-timeframe pivot levels for HTF agreement checks
	HTFSupports    []float64
	HTFResistances []float64
}

// FeatureConfig parameterizes feature derivation.
type FeatureConfig struct {
	OrderFlowLookback int
	PivotLeft         int
	PivotRight        int
	RSIPeriod         int
	ATRPeriod         int
	LevelCount        int
	ConfirmTimeframe  repository.Timeframe
}

// BuildFeatureSet derives all shared features from a snapshot. Returns nil
// when the primary buffer has a gap or too little history for the longest
// lookback.
func BuildFeatureSet(snap *market.Snapshot, cfg FeatureConfig) *FeatureSet {
	primary := snap.Primary()
	need := cfg.OrderFlowLookback
	if cfg.RSIPeriod+1 > need {
		need = cfg.RSIPeriod + 1
	}
	if len(primary) < need || !snap.Contiguous(snap.PrimaryTimeframe(), need) {
		return nil
	}

	fs := &FeatureSet{
		Primary:   primary,
		OrderFlow: features.ComputeOrderFlow(primary, cfg.OrderFlowLookback),
		CVD:       features.ComputeCVD(primary),
		Pivots:    features.FindPivots(primary, cfg.PivotLeft, cfg.PivotRight),
		RSI:       features.RSI(features.Closes(primary), cfg.RSIPeriod),
		ATR:       features.ATR(primary, cfg.ATRPeriod),
	}
	fs.Supports, fs.Resistances = features.RecentLevels(fs.Pivots, cfg.LevelCount)

	if htf := snap.Candles(cfg.ConfirmTimeframe); len(htf) > cfg.PivotLeft+cfg.PivotRight {
		hp := features.FindPivots(htf, cfg.PivotLeft, cfg.PivotRight)
		fs.HTFSupports, fs.HTFResistances = features.RecentLevels(hp, cfg.LevelCount)
	}
	return fs
}

// Detector evaluates one snapshot and emits at most one candidate.
// Detectors never call each other.
type Detector interface {
	Type() models.SignalType
	Enabled() bool
	// FastPath marks detectors included in tick-triggered passes.
	FastPath() bool
	Detect(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate
}

// Bank runs detectors in priority order; the first surviving candidate
// short-circuits the rest of the pass.
type Bank struct {
	detectors []Detector
	log       *applogger.Logger
}

// NewBank creates a detector bank. Order of the slice is priority order.
func NewBank(log *applogger.Logger, dets ...Detector) *Bank {
	return &Bank{detectors: dets, log: log}
}

// Evaluate runs one full pass.
func (b *Bank) Evaluate(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate {
	return b.run(snap, fs, false)
}

// EvaluateFast runs the tick-triggered subset only.
func (b *Bank) EvaluateFast(snap *market.Snapshot, fs *FeatureSet) *models.SignalCandidate {
	return b.run(snap, fs, true)
}

func (b *Bank) run(snap *market.Snapshot, fs *FeatureSet, fastOnly bool) *models.SignalCandidate {
	if fs == nil {
		return nil
	}
	for _, d := range b.detectors {
		if !d.Enabled() || (fastOnly && !d.FastPath()) {
			continue
		}
		if cand := d.Detect(snap, fs); cand != nil {
			b.log.Debug("detector fired",
				applogger.String("symbol", snap.Symbol),
				applogger.String("type", string(cand.Type)),
				applogger.String("direction", string(cand.Direction)))
			return cand
		}
	}
	return nil
}

// nearLevel reports whether any of levels sits within tol of price.
func nearLevel(levels []float64, price, tol float64) bool {
	for _, l := range levels {
		if l > 0 && abs(l-price) <= tol {
			return true
		}
	}
	return false
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
