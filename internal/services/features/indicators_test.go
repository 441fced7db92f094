package features

import (
	"math"
	"testing"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

func TestSMA(t *testing.T) {
	vals := []float64{1, 2, 3, 4, 5}
	if got := SMA(vals, 3); got != 4 {
		t.Fatalf("SMA = %f, want 4", got)
	}
	if got := SMA(vals, 6); got != 0 {
		t.Fatalf("insufficient data must yield 0, got %f", got)
	}
	if got := SMA(vals, 0); got != 0 {
		t.Fatalf("zero period must yield 0, got %f", got)
	}
}

func TestEMASeeding(t *testing.T) {
	vals := []float64{2, 4, 6, 8, 10}
	ema := EMA(vals, 3)
	if !math.IsNaN(ema[0]) || !math.IsNaN(ema[1]) {
		t.Fatalf("pre-seed entries must be NaN: %v", ema)
	}
	if ema[2] != 4 {
		t.Fatalf("seed = %f, want SMA 4", ema[2])
	}
	// k = 0.5: 8*0.5 + 4*0.5 = 6, then 10*0.5 + 6*0.5 = 8
	if ema[3] != 6 || ema[4] != 8 {
		t.Fatalf("ema tail = %v", ema[2:])
	}
}

func TestRSIExtremes(t *testing.T) {
	up := make([]float64, 20)
	for i := range up {
		up[i] = 100 + float64(i)
	}
	rsi := RSI(up, 14)
	last := rsi[len(rsi)-1]
	if last != 100 {
		t.Fatalf("all-gains RSI = %f, want 100", last)
	}

	down := make([]float64, 20)
	for i := range down {
		down[i] = 100 - float64(i)
	}
	rsi = RSI(down, 14)
	last = rsi[len(rsi)-1]
	if last != 0 {
		t.Fatalf("all-losses RSI = %f, want 0", last)
	}

	if !math.IsNaN(RSI(up, 14)[13]) {
		t.Fatal("entries before the first full period must be NaN")
	}
	for _, v := range RSI([]float64{1, 2, 3}, 14) {
		if !math.IsNaN(v) {
			t.Fatal("short series must be all NaN")
		}
	}
}

func TestATR(t *testing.T) {
	cs := []models.Candle{
		{OpenTime: 1, CloseTime: 1, Open: 100, High: 102, Low: 98, Close: 100, Volume: 1},
		{OpenTime: 2, CloseTime: 2, Open: 100, High: 103, Low: 99, Close: 101, Volume: 1},
		{OpenTime: 3, CloseTime: 3, Open: 101, High: 105, Low: 100, Close: 104, Volume: 1},
	}
	// TR2 = max(4, |103-100|, |99-100|) = 4, TR3 = max(5, 4, 1) = 5
	if got := ATR(cs, 2); got != 4.5 {
		t.Fatalf("ATR = %f, want 4.5", got)
	}
	if got := ATR(cs, 3); got != 0 {
		t.Fatalf("insufficient bars must yield 0, got %f", got)
	}
}

func TestRealizedVolatility(t *testing.T) {
	flat := []float64{0, 0, 0, 0, 0}
	if got := RealizedVolatility(flat, 4, 105120); got != 0 {
		t.Fatalf("flat returns vol = %f", got)
	}
	noisy := []float64{0.01, -0.01, 0.01, -0.01, 0.01, -0.01}
	if got := RealizedVolatility(noisy, 4, 105120); got <= 0 {
		t.Fatalf("noisy returns vol = %f", got)
	}
	if got := RealizedVolatility(noisy, 10, 105120); got != 0 {
		t.Fatalf("short window vol = %f", got)
	}
}

func TestComputeLogReturns(t *testing.T) {
	cs := closesToBars([]float64{100, 110, 99}, 1)
	rs := ComputeLogReturns(cs)
	if len(rs) != 2 {
		t.Fatalf("len = %d", len(rs))
	}
	if math.Abs(rs[0]-math.Log(1.1)) > 1e-12 {
		t.Fatalf("r0 = %f", rs[0])
	}
	if rs[1] >= 0 {
		t.Fatalf("down move must have negative return: %f", rs[1])
	}
	if ComputeLogReturns(cs[:1]) != nil {
		t.Fatal("single bar must yield nil")
	}
}
