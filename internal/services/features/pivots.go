package features

import "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"

// PivotKind distinguishes swing highs from swing lows.
type PivotKind int

const (
	PivotHigh PivotKind = iota
	PivotLow
)

// Pivot is a confirmed local extremum: `left` bars strictly lower (for a
// high) on one side and `right` bars strictly lower on the other.
type Pivot struct {
	Index int
	Value float64
	Kind  PivotKind
}

// FindPivots scans the series for swing points confirmed by `left` bars on
// the left and `right` bars on the right, strictly opposing. Derived on
// demand, never persisted.
func FindPivots(candles []models.Candle, left, right int) []Pivot {
	if left < 1 {
		left = 1
	}
	if right < 1 {
		right = 1
	}
	var out []Pivot
	for i := left; i < len(candles)-right; i++ {
		if isPivotHigh(candles, i, left, right) {
			out = append(out, Pivot{Index: i, Value: candles[i].High, Kind: PivotHigh})
		}
		if isPivotLow(candles, i, left, right) {
			out = append(out, Pivot{Index: i, Value: candles[i].Low, Kind: PivotLow})
		}
	}
	return out
}

func isPivotHigh(cs []models.Candle, i, left, right int) bool {
	h := cs[i].High
	for j := i - left; j < i; j++ {
		if cs[j].High >= h {
			return false
		}
	}
	for j := i + 1; j <= i+right; j++ {
		if cs[j].High >= h {
			return false
		}
	}
	return true
}

func isPivotLow(cs []models.Candle, i, left, right int) bool {
	l := cs[i].Low
	for j := i - left; j < i; j++ {
		if cs[j].Low <= l {
			return false
		}
	}
	for j := i + 1; j <= i+right; j++ {
		if cs[j].Low <= l {
			return false
		}
	}
	return true
}

// LastTwo returns the two most recent pivots of a kind spaced at least
// minGap bars apart, newest last. Returns nil when fewer than two qualify.
func LastTwo(pivots []Pivot, kind PivotKind, minGap int) []Pivot {
	var newest, prior *Pivot
	for i := len(pivots) - 1; i >= 0; i-- {
		p := pivots[i]
		if p.Kind != kind {
			continue
		}
		if newest == nil {
			q := p
			newest = &q
			continue
		}
		if newest.Index-p.Index >= minGap {
			q := p
			prior = &q
			break
		}
	}
	if newest == nil || prior == nil {
		return nil
	}
	return []Pivot{*prior, *newest}
}

// RecentLevels returns the most recent pivot-derived support (lows) and
// resistance (highs) values, newest first, up to max entries each.
func RecentLevels(pivots []Pivot, max int) (supports, resistances []float64) {
	for i := len(pivots) - 1; i >= 0; i-- {
		switch pivots[i].Kind {
		case PivotLow:
			if len(supports) < max {
				supports = append(supports, pivots[i].Value)
			}
		case PivotHigh:
			if len(resistances) < max {
				resistances = append(resistances, pivots[i].Value)
			}
		}
		if len(supports) >= max && len(resistances) >= max {
			break
		}
	}
	return supports, resistances
}
