package detectors

import (
	"math"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/services/features"
)

// divergence is a confirmed price/oscillator disagreement between the two
// most recent pivots of one kind.
type divergence struct {
	Direction models.Direction
	Prior     features.Pivot
	Newest    features.Pivot
	OscPrior  float64
	OscNewest float64
	Magnitude float64 // oscillator failure margin
	Gap       int     // bars between the two pivots
}

// findDivergence locates a regular divergence: price sets a new extreme
// while the oscillator fails to confirm by at least minDiff. The two pivots
// must be at least minGap bars apart.
func findDivergence(pivots []features.Pivot, osc []float64, dir models.Direction, minGap int, minDiff float64) *divergence {
	kind := features.PivotLow
	if dir == models.Short {
		kind = features.PivotHigh
	}
	pair := features.LastTwo(pivots, kind, minGap)
	if pair == nil {
		return nil
	}
	prior, newest := pair[0], pair[1]
	if newest.Index >= len(osc) || prior.Index >= len(osc) {
		return nil
	}
	op, on := osc[prior.Index], osc[newest.Index]
	if math.IsNaN(op) || math.IsNaN(on) {
		return nil
	}

	if dir == models.Long {
		// lower low in price, higher low in the oscillator
		if newest.Value >= prior.Value || on < op+minDiff {
			return nil
		}
	} else {
		if newest.Value <= prior.Value || on > op-minDiff {
			return nil
		}
	}

	return &divergence{
		Direction: dir,
		Prior:     prior,
		Newest:    newest,
		OscPrior:  op,
		OscNewest: on,
		Magnitude: math.Abs(on - op),
		Gap:       newest.Index - prior.Index,
	}
}

// spacingBonus rewards pivot spacing in the ideal window; divergences built
// on pivots too close or too far apart are less reliable.
func spacingBonus(gap, lo, hi int) float64 {
	if gap >= lo && gap <= hi {
		return 10
	}
	if gap >= lo/2 && gap <= hi*2 {
		return 3
	}
	return 0
}

// orderFlowBonus rewards order flow agreeing with the reversal direction.
func orderFlowBonus(of features.OrderFlow, dir models.Direction) float64 {
	if of.Direction != dir || !of.Directional {
		return 0
	}
	if of.Strong {
		return 10
	}
	return 5
}

// coincidentSweep looks for a qualifying liquidity sweep of the prior
// pivot's level by the newest extreme, the triple-confirmation case.
func coincidentSweep(fs *FeatureSet, div *divergence, minQuality float64) *features.SweepCandidate {
	return features.FindSweep(fs.Primary, div.Direction, div.Prior.Value, features.SweepOptions{
		Lookback:   len(fs.Primary) - div.Newest.Index + 2,
		MinQuality: minQuality,
		ATR:        fs.ATR,
	})
}
