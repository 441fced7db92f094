package features

import (
	"testing"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

// sweepBar builds a long-direction sweep bar: probes below the level and
// closes back above it with a long lower wick.
func sweepBar(level, depth, close float64) models.Candle {
	return models.Candle{
		OpenTime: 1000, CloseTime: 1999,
		Open:  close - 0.1,
		High:  close + 0.1,
		Low:   level - depth,
		Close: close,
		Volume: 5,
	}
}

func flatBars(n int, price, volume float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{
			OpenTime: int64(1000 + i), CloseTime: int64(1000 + i),
			Open: price, High: price + 0.5, Low: price - 0.5, Close: price, Volume: volume,
		}
	}
	return out
}

func TestFindSweepLong(t *testing.T) {
	level := 97.0
	cs := append(flatBars(30, 100, 10), sweepBar(level, 0.9, 98.5))

	got := FindSweep(cs, models.Long, level, SweepOptions{ATR: 2, MinQuality: 40})
	if got == nil {
		t.Fatal("expected a sweep candidate")
	}
	if got.Direction != models.Long || got.Level != level {
		t.Fatalf("candidate = %+v", got)
	}
	if got.Extreme != level-0.9 {
		t.Fatalf("extreme = %f", got.Extreme)
	}
	if got.Quality <= 0 || got.Quality > 100 {
		t.Fatalf("quality out of range: %f", got.Quality)
	}
}

func TestFindSweepRejections(t *testing.T) {
	level := 97.0
	base := flatBars(30, 100, 10)

	// close back below the level: no rejection
	notHeld := sweepBar(level, 0.9, 96.5)
	notHeld.Open = 96.6
	notHeld.High = 96.8
	if got := FindSweep(append(base, notHeld), models.Long, level, SweepOptions{ATR: 2}); got != nil {
		t.Fatalf("close below level must not qualify: %+v", got)
	}

	// too deep: beyond MaxDepthATR
	if got := FindSweep(append(base, sweepBar(level, 5, 98.5)), models.Long, level, SweepOptions{ATR: 2, MaxDepthATR: 1.5}); got != nil {
		t.Fatalf("excessive depth must not qualify: %+v", got)
	}

	// tiny wick relative to body
	stubby := models.Candle{OpenTime: 2000, CloseTime: 2999, Open: 96.9, High: 99.5, Low: 96.8, Close: 99.4, Volume: 5}
	if got := FindSweep(append(base, stubby), models.Long, level, SweepOptions{ATR: 2}); got != nil {
		t.Fatalf("small wick must not qualify: %+v", got)
	}

	if got := FindSweep(append(base, sweepBar(level, 0.9, 98.5)), models.Long, level, SweepOptions{ATR: 0}); got != nil {
		t.Fatal("zero ATR must disable scanning")
	}
}

func TestSweepQualityWickMonotonic(t *testing.T) {
	// growing the rejection wick must never lower the score
	opts := SweepOptions{MaxDepthATR: 1.5, HTFAgrees: false}
	prev := -1.0
	for _, wick := range []float64{1.3, 2, 3, 4, 6} {
		c := &SweepCandidate{WickRatio: wick, DepthATR: 0.5, VolumeRatio: 1, HoldRate: 0.5}
		q := sweepQuality(c, opts)
		if q < prev {
			t.Fatalf("quality dropped when wick grew: wick=%f q=%f prev=%f", wick, q, prev)
		}
		prev = q
	}
}

func TestSweepQualityHTFBonus(t *testing.T) {
	c := &SweepCandidate{WickRatio: 2, DepthATR: 0.6, VolumeRatio: 1, HoldRate: 0.8}
	base := sweepQuality(c, SweepOptions{MaxDepthATR: 1.5})
	with := sweepQuality(c, SweepOptions{MaxDepthATR: 1.5, HTFAgrees: true})
	if with != base+10 {
		t.Fatalf("HTF agreement bonus: base=%f with=%f", base, with)
	}
}

func TestFindSweepShort(t *testing.T) {
	level := 103.0
	probe := models.Candle{
		OpenTime: 5000, CloseTime: 5999,
		Open: 101.6, High: level + 0.8, Low: 101.3, Close: 101.5, Volume: 5,
	}
	cs := append(flatBars(30, 100, 10), probe)
	got := FindSweep(cs, models.Short, level, SweepOptions{ATR: 2, MinQuality: 40})
	if got == nil {
		t.Fatal("expected a short-side sweep")
	}
	if got.Extreme != level+0.8 {
		t.Fatalf("extreme = %f", got.Extreme)
	}
}

func TestFindSweepMostRecentDecides(t *testing.T) {
	level := 97.0

	cs := append([]models.Candle{}, flatBars(30, 100, 10)...)
	cs = append(cs, sweepBar(level, 1.35, 98.5))
	cs = append(cs, flatBars(3, 100, 10)...)

	strong := FindSweep(cs, models.Long, level, SweepOptions{ATR: 2})
	if strong == nil {
		t.Fatal("expected the older sweep to qualify")
	}

	// deep probe on heavy volume with a stubby wick relative to its body:
	// classifies as a sweep but scores poorly
	weak := models.Candle{
		OpenTime: 3000, CloseTime: 3999,
		Open: 99.1, High: 99.2, Low: 94.1, Close: 97.1, Volume: 40,
	}
	cs = append(cs, weak)

	// the scan stops at the most recent sweep; the older qualifying one
	// does not rescue it
	if got := FindSweep(cs, models.Long, level, SweepOptions{ATR: 2}); got != nil {
		t.Fatalf("low-quality recent sweep should end the scan, got %+v", got)
	}
}
