package risk

import (
	"testing"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	pkgcache "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/cache"
)

func TestStateViewIsACopy(t *testing.T) {
	s := NewState(testLogger(t))
	s.RecordEmit("SOLUSDT", models.SignalBreakout, time.Now())

	v := s.View()
	v.SymbolDaily["SOLUSDT"] = 99

	if s.View().SymbolDaily["SOLUSDT"] != 1 {
		t.Fatal("mutating a view must not touch the state")
	}
}

func TestPositionLifecycle(t *testing.T) {
	s := NewState(testLogger(t))
	s.PositionOpened()
	s.PositionOpened()
	if v := s.View(); v.OpenPositions != 2 {
		t.Fatalf("open = %d", v.OpenPositions)
	}

	now := time.Now()
	s.PositionClosed(true, now)
	if v := s.View(); v.OpenPositions != 1 || !v.LastLoss.IsZero() {
		t.Fatalf("winning close: %+v", v)
	}

	s.PositionClosed(false, now)
	if v := s.View(); v.OpenPositions != 0 || v.LastLoss.IsZero() {
		t.Fatalf("losing close must arm cooldown: %+v", v)
	}

	// count never goes negative
	s.PositionClosed(true, now)
	if v := s.View(); v.OpenPositions != 0 {
		t.Fatalf("open = %d", v.OpenPositions)
	}

	s.ClearLossCooldown()
	if v := s.View(); !v.LastLoss.IsZero() {
		t.Fatal("clear must drop the cooldown")
	}
}

func TestStatePersistRestore(t *testing.T) {
	store := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(8))
	now := time.Now()

	first := NewState(testLogger(t), WithStore(store))
	first.RecordEmit("SOLUSDT", models.SignalSweepReversal, now)
	first.RecordEmit("SOLUSDT", models.SignalBreakout, now)
	first.PositionOpened()

	// a second state over the same store picks the snapshot up
	second := NewState(testLogger(t), WithStore(store))
	v := second.View()
	if v.DailyCount != 2 || v.SymbolDaily["SOLUSDT"] != 2 || v.OpenPositions != 1 {
		t.Fatalf("restored view = %+v", v)
	}
}

func TestStateRestoreSkipsStaleSnapshot(t *testing.T) {
	store := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(8))

	first := NewState(testLogger(t), WithStore(store))
	first.mu.Lock()
	first.dailyDate = "2020-01-01" // as if persisted on an old day
	first.dailyCount = 7
	first.persist()
	first.mu.Unlock()

	second := NewState(testLogger(t), WithStore(store))
	if v := second.View(); v.DailyCount != 0 {
		t.Fatalf("stale snapshot must not restore: %+v", v)
	}
}

func TestStateRestoreEmptyStore(t *testing.T) {
	store := pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(8))
	s := NewState(testLogger(t), WithStore(store))
	if v := s.View(); v.DailyCount != 0 || v.OpenPositions != 0 {
		t.Fatalf("empty store must start clean: %+v", v)
	}
}
