package detectors

import (
	"math"
	"testing"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
)

const stepMs = int64(5 * 60 * 1000)

type ohlcv struct{ o, h, l, c, v float64 }

func buildSnapshot(t *testing.T, bars []ohlcv) *market.Snapshot {
	t.Helper()
	cache := market.NewCache([]string{"SOLUSDT"}, []repository.Timeframe{"5m", "1h"}, 500, 200, "5m")
	candles := make([]models.Candle, len(bars))
	for i, b := range bars {
		open := int64(1_700_000_000_000) + int64(i)*stepMs
		candles[i] = models.Candle{
			OpenTime: open, CloseTime: open + stepMs - 1,
			Open: b.o, High: b.h, Low: b.l, Close: b.c, Volume: b.v,
		}
	}
	if err := cache.Seed("SOLUSDT", "5m", candles); err != nil {
		t.Fatal(err)
	}
	snap, err := cache.Snapshot("SOLUSDT")
	if err != nil {
		t.Fatal(err)
	}
	return snap
}

// sweepScenario builds a long setup: a pivot low at 97, a sweep bar probing
// to 96.4 and rejecting, then five strong recovery bars into 100.
func sweepScenario() []ohlcv {
	var bars []ohlcv
	for i := 0; i < 30; i++ {
		bars = append(bars, ohlcv{100, 101, 99, 100, 10})
	}
	bars = append(bars, ohlcv{100, 100.5, 97, 99.5, 12})  // pivot low 97
	bars = append(bars, ohlcv{99.5, 100.5, 98, 100, 10})  // right shoulder
	bars = append(bars, ohlcv{100, 101, 99, 100.5, 10})
	bars = append(bars, ohlcv{100.5, 101.5, 99.5, 101, 10})
	for i := 0; i < 5; i++ {
		bars = append(bars, ohlcv{100, 101, 99, 100, 10})
	}
	bars = append(bars, ohlcv{98.3, 98.6, 96.4, 98.5, 5}) // the sweep
	x := 98.5
	for i := 0; i < 5; i++ {
		bars = append(bars, ohlcv{x, x + 0.35, x - 0.05, x + 0.3, 10})
		x += 0.3
	}
	return bars
}

func defaultFeatureConfig() FeatureConfig {
	return FeatureConfig{
		OrderFlowLookback: 10,
		PivotLeft:         3,
		PivotRight:        3,
		RSIPeriod:         14,
		ATRPeriod:         14,
		LevelCount:        5,
		ConfirmTimeframe:  "1h",
	}
}

func TestSweepReversalDetectsLong(t *testing.T) {
	snap := buildSnapshot(t, sweepScenario())
	fs := BuildFeatureSet(snap, defaultFeatureConfig())
	if fs == nil {
		t.Fatal("feature set should build")
	}

	d := NewSweepReversal(SweepReversalConfig{
		Enabled:        true,
		BaseConfidence: 50,
		MinQuality:     60,
		MinWickRatio:   1.3,
		MaxDepthATR:    1.5,
		VolumeWindow:   20,
		ATRBuffer:      0.5,
	})
	cand := d.Detect(snap, fs)
	if cand == nil {
		t.Fatal("expected a sweep reversal candidate")
	}
	if cand.Type != models.SignalSweepReversal || cand.Direction != models.Long {
		t.Fatalf("candidate = %+v", cand)
	}
	if math.Abs(cand.EntryPrice-100) > 1e-6 {
		t.Fatalf("entry = %f, want last close 100", cand.EntryPrice)
	}
	// stop sits below the sweep extreme by the ATR buffer
	if cand.StopPrice >= 96.4 {
		t.Fatalf("stop = %f, must be below the sweep extreme", cand.StopPrice)
	}
	if cand.Confidence < 60 || cand.Confidence > 100 {
		t.Fatalf("confidence = %f", cand.Confidence)
	}
	if q := cand.Metrics["sweep_quality"]; q < 60 {
		t.Fatalf("sweep quality = %f", q)
	}
	if cand.Rationale == "" {
		t.Fatal("rationale must explain the setup")
	}
}

func TestSweepReversalRejectsExtendedPrice(t *testing.T) {
	bars := sweepScenario()
	// run price far from the sweep extreme before the final bar
	x := 100.0
	for i := 0; i < 8; i++ {
		bars = append(bars, ohlcv{x, x + 1.1, x - 0.1, x + 1, 10})
		x += 1
	}
	snap := buildSnapshot(t, bars)
	fs := BuildFeatureSet(snap, defaultFeatureConfig())
	if fs == nil {
		t.Fatal("feature set should build")
	}

	d := NewSweepReversal(SweepReversalConfig{
		Enabled:      true,
		MinQuality:   60,
		MinWickRatio: 1.3,
		MaxDepthATR:  1.5,
		VolumeWindow: 20,
		ATRBuffer:    0.5,
	})
	if cand := d.Detect(snap, fs); cand != nil {
		t.Fatalf("extended price must not chase: %+v", cand)
	}
}

func TestSweepReversalNeedsDirectionalFlow(t *testing.T) {
	bars := sweepScenario()
	// replace the recovery with churn so order flow goes neutral
	bars = bars[:len(bars)-5]
	for i := 0; i < 5; i++ {
		bars = append(bars, ohlcv{98.5, 99.5, 97.5, 98.5, 10})
	}
	snap := buildSnapshot(t, bars)
	fs := BuildFeatureSet(snap, defaultFeatureConfig())
	if fs == nil {
		t.Fatal("feature set should build")
	}
	if fs.OrderFlow.Directional {
		t.Skip("churn unexpectedly directional; scenario needs retuning")
	}

	d := NewSweepReversal(SweepReversalConfig{Enabled: true, MinQuality: 60, MinWickRatio: 1.3, MaxDepthATR: 1.5, VolumeWindow: 20, ATRBuffer: 0.5})
	if cand := d.Detect(snap, fs); cand != nil {
		t.Fatalf("neutral flow must not fire: %+v", cand)
	}
}

func TestSweepReversalDisabled(t *testing.T) {
	snap := buildSnapshot(t, sweepScenario())
	d := NewSweepReversal(SweepReversalConfig{Enabled: false})
	if d.Enabled() {
		t.Fatal("detector should report disabled")
	}
	_ = snap
}
