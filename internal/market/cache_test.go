package market

import (
	"testing"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
)

func newTestCache() *Cache {
	return NewCache(
		[]string{"SOLUSDT"},
		[]repository.Timeframe{"5m", "1h"},
		500, 200, "5m",
	)
}

func TestCacheUnknownInstrument(t *testing.T) {
	c := newTestCache()
	if _, err := c.ApplyCandleUpdate("BTCUSDT", "5m", bar(1000, 1, 2, 1, 1, 1)); err == nil {
		t.Fatal("expected error for untracked symbol")
	}
	if _, err := c.Snapshot("BTCUSDT"); err == nil {
		t.Fatal("expected snapshot error for untracked symbol")
	}
	if c.Ready("BTCUSDT") {
		t.Fatal("untracked symbol can never be ready")
	}
}

func TestCacheReadiness(t *testing.T) {
	c := newTestCache()
	if c.Ready("SOLUSDT") {
		t.Fatal("fresh cache must not be ready")
	}
	if err := c.Seed("SOLUSDT", "5m", seqBars(barMs, 199, 100)); err != nil {
		t.Fatal(err)
	}
	if c.Ready("SOLUSDT") {
		t.Fatal("199 bars is below the readiness floor")
	}
	if _, err := c.ApplyCandleUpdate("SOLUSDT", "5m", bar(200*barMs, 100, 101, 99, 100, 1)); err != nil {
		t.Fatal(err)
	}
	if !c.Ready("SOLUSDT") {
		t.Fatal("200 primary bars should flip readiness")
	}

	// depth on a secondary timeframe alone never makes it ready
	c2 := newTestCache()
	if err := c2.Seed("SOLUSDT", "1h", seqBars(barMs, 300, 100)); err != nil {
		t.Fatal(err)
	}
	if c2.Ready("SOLUSDT") {
		t.Fatal("readiness is keyed to the primary timeframe")
	}
}

func TestCacheMarkExcluded(t *testing.T) {
	c := newTestCache()
	if err := c.Seed("SOLUSDT", "5m", seqBars(barMs, 200, 100)); err != nil {
		t.Fatal(err)
	}
	if !c.Ready("SOLUSDT") {
		t.Fatal("precondition: ready")
	}
	c.MarkExcluded("SOLUSDT")
	if c.Ready("SOLUSDT") {
		t.Fatal("excluded instrument must not be ready")
	}
	snap, err := c.Snapshot("SOLUSDT")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Ready {
		t.Fatal("snapshot must carry the exclusion")
	}
}

func TestSnapshotMergesLivePrice(t *testing.T) {
	c := newTestCache()
	if err := c.Seed("SOLUSDT", "5m", seqBars(barMs, 200, 100)); err != nil {
		t.Fatal(err)
	}

	c.ApplyPriceTick("SOLUSDT", 104.5)
	snap, err := c.Snapshot("SOLUSDT")
	if err != nil {
		t.Fatal(err)
	}
	cs := snap.Primary()
	last := cs[len(cs)-1]
	if last.Close != 104.5 || last.High != 104.5 {
		t.Fatalf("forming bar must reflect live price: %+v", last)
	}
	if snap.Price != 104.5 {
		t.Fatalf("snapshot price = %f", snap.Price)
	}

	// a tick below the bar low extends the low instead
	c.ApplyPriceTick("SOLUSDT", 98.25)
	snap2, _ := c.Snapshot("SOLUSDT")
	cs2 := snap2.Primary()
	last2 := cs2[len(cs2)-1]
	if last2.Low != 98.25 || last2.Close != 98.25 {
		t.Fatalf("forming bar must extend low: %+v", last2)
	}
	if last2.High != 101 {
		t.Fatalf("stored high must be preserved: %+v", last2)
	}

	// stored bar itself is untouched; a fresh snapshot after a neutral tick
	// shows the original range again
	c.ApplyPriceTick("SOLUSDT", 100)
	snap3, _ := c.Snapshot("SOLUSDT")
	cs3 := snap3.Primary()
	last3 := cs3[len(cs3)-1]
	if last3.High != 101 || last3.Low != 99 {
		t.Fatalf("persisted bar was mutated by snapshot merge: %+v", last3)
	}

	// zero and negative ticks are ignored
	c.ApplyPriceTick("SOLUSDT", -1)
	snap4, _ := c.Snapshot("SOLUSDT")
	if snap4.Price != 100 {
		t.Fatalf("invalid tick must be dropped, price = %f", snap4.Price)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := newTestCache()
	if err := c.Seed("SOLUSDT", "5m", seqBars(barMs, 200, 100)); err != nil {
		t.Fatal(err)
	}
	snap, _ := c.Snapshot("SOLUSDT")
	cs := snap.Primary()
	cs[0].High = 9999

	snap2, _ := c.Snapshot("SOLUSDT")
	if snap2.Primary()[0].High == 9999 {
		t.Fatal("snapshot must be isolated from callers")
	}
}
