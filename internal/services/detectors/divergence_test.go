package detectors

import (
	"math"
	"testing"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/services/features"
)

func oscSeries(n int, at map[int]float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 50
	}
	for i, v := range at {
		out[i] = v
	}
	return out
}

func TestFindDivergenceBullish(t *testing.T) {
	pivots := []features.Pivot{
		{Index: 5, Value: 97.0, Kind: features.PivotLow},
		{Index: 15, Value: 96.2, Kind: features.PivotLow}, // lower low in price
	}
	osc := oscSeries(20, map[int]float64{5: 24, 15: 31}) // higher low in RSI

	div := findDivergence(pivots, osc, models.Long, 5, 3)
	if div == nil {
		t.Fatal("expected a bullish divergence")
	}
	if div.Prior.Index != 5 || div.Newest.Index != 15 {
		t.Fatalf("pivots = %+v", div)
	}
	if div.Magnitude != 7 || div.Gap != 10 {
		t.Fatalf("magnitude=%f gap=%d", div.Magnitude, div.Gap)
	}
}

func TestFindDivergenceBearish(t *testing.T) {
	pivots := []features.Pivot{
		{Index: 4, Value: 103.0, Kind: features.PivotHigh},
		{Index: 12, Value: 104.5, Kind: features.PivotHigh}, // higher high
	}
	osc := oscSeries(20, map[int]float64{4: 78, 12: 71}) // lower high in RSI

	div := findDivergence(pivots, osc, models.Short, 5, 3)
	if div == nil {
		t.Fatal("expected a bearish divergence")
	}
	if div.OscPrior != 78 || div.OscNewest != 71 {
		t.Fatalf("osc = %f/%f", div.OscPrior, div.OscNewest)
	}
}

func TestFindDivergenceRejections(t *testing.T) {
	osc := oscSeries(20, map[int]float64{5: 24, 15: 31})

	// price made a higher low: no divergence
	noLL := []features.Pivot{
		{Index: 5, Value: 96.0, Kind: features.PivotLow},
		{Index: 15, Value: 96.5, Kind: features.PivotLow},
	}
	if div := findDivergence(noLL, osc, models.Long, 5, 3); div != nil {
		t.Fatalf("higher low must not diverge: %+v", div)
	}

	// oscillator failure below the margin
	pivots := []features.Pivot{
		{Index: 5, Value: 97.0, Kind: features.PivotLow},
		{Index: 15, Value: 96.2, Kind: features.PivotLow},
	}
	weak := oscSeries(20, map[int]float64{5: 28, 15: 29})
	if div := findDivergence(pivots, weak, models.Long, 5, 3); div != nil {
		t.Fatalf("sub-margin oscillator gain must not diverge: %+v", div)
	}

	// NaN oscillator at a pivot
	nan := oscSeries(20, map[int]float64{5: math.NaN(), 15: 31})
	if div := findDivergence(pivots, nan, models.Long, 5, 3); div != nil {
		t.Fatal("NaN oscillator must not diverge")
	}

	// not enough qualifying pivots
	if div := findDivergence(pivots[1:], osc, models.Long, 5, 3); div != nil {
		t.Fatal("single pivot must not diverge")
	}
}

func TestSpacingBonus(t *testing.T) {
	if got := spacingBonus(8, 5, 12); got != 10 {
		t.Fatalf("ideal gap bonus = %f", got)
	}
	if got := spacingBonus(20, 5, 12); got != 3 {
		t.Fatalf("wide gap bonus = %f", got)
	}
	if got := spacingBonus(40, 5, 12); got != 0 {
		t.Fatalf("extreme gap bonus = %f", got)
	}
}

func TestOrderFlowBonus(t *testing.T) {
	agree := features.OrderFlow{Score: 60, Strong: true, Directional: true, Direction: models.Long}
	if got := orderFlowBonus(agree, models.Long); got != 10 {
		t.Fatalf("strong agreement = %f", got)
	}
	mild := features.OrderFlow{Score: 35, Directional: true, Direction: models.Long}
	if got := orderFlowBonus(mild, models.Long); got != 5 {
		t.Fatalf("mild agreement = %f", got)
	}
	if got := orderFlowBonus(agree, models.Short); got != 0 {
		t.Fatalf("opposing flow = %f", got)
	}
	neutral := features.OrderFlow{Score: 10, Direction: models.Long}
	if got := orderFlowBonus(neutral, models.Long); got != 0 {
		t.Fatalf("neutral flow = %f", got)
	}
}
