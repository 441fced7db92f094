package ratelimit

import (
	"testing"
	"time"
)

func TestAllowDrainsCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 3; i++ {
		if !l.Allow("SOLUSDT", 3, 0) {
			t.Fatalf("token %d denied", i)
		}
	}
	if l.Allow("SOLUSDT", 3, 0) {
		t.Fatal("drained bucket still allowed")
	}
}

func TestAllowKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("SOLUSDT", 1, 0) {
		t.Fatal("first key denied")
	}
	if l.Allow("SOLUSDT", 1, 0) {
		t.Fatal("drained key allowed")
	}
	if !l.Allow("ETHUSDT", 1, 0) {
		t.Fatal("fresh key denied")
	}
}

func TestAllowRefills(t *testing.T) {
	l := New()
	if !l.Allow("SOLUSDT", 1, 20) {
		t.Fatal("first token denied")
	}
	if l.Allow("SOLUSDT", 1, 20) {
		t.Fatal("allowed before refill")
	}
	time.Sleep(100 * time.Millisecond) // 20/s refills well past one token
	if !l.Allow("SOLUSDT", 1, 20) {
		t.Fatal("denied after refill window")
	}
}

func TestRefillNeverExceedsCapacity(t *testing.T) {
	l := New()
	l.Allow("SOLUSDT", 2, 10)
	time.Sleep(300 * time.Millisecond)
	// capacity 2, one spent above, refill caps the rest at 2
	if !l.Allow("SOLUSDT", 2, 10) || !l.Allow("SOLUSDT", 2, 10) {
		t.Fatal("capacity tokens denied")
	}
	if l.Allow("SOLUSDT", 2, 10) {
		t.Fatal("bucket overfilled past capacity")
	}
}

func TestReset(t *testing.T) {
	l := New()
	l.Allow("SOLUSDT", 1, 0)
	if l.Allow("SOLUSDT", 1, 0) {
		t.Fatal("drained bucket allowed")
	}
	l.Reset("SOLUSDT")
	if !l.Allow("SOLUSDT", 1, 0) {
		t.Fatal("reset did not restore capacity")
	}
}
