package util

import (
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	if _, ok := ParseTime(""); ok {
		t.Fatal("empty string should not parse")
	}
	if _, ok := ParseTime("not-a-time"); ok {
		t.Fatal("garbage should not parse")
	}
	got, ok := ParseTime("2026-08-30T12:00:00Z")
	if !ok || got.UTC().Hour() != 12 {
		t.Fatalf("RFC3339 parse failed: %v %v", got, ok)
	}
	got, ok = ParseTime("1756512000")
	if !ok || got.Unix() != 1756512000 {
		t.Fatalf("unix seconds parse failed: %v %v", got, ok)
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if got := ParseTimeDefault("", def); !got.Equal(def) {
		t.Fatalf("expected default, got %v", got)
	}
	if got := ParseTimeDefault("2026-08-30T00:00:00Z", def); got.Equal(def) {
		t.Fatal("valid input should not fall back to default")
	}
}

func TestAlignFromTo(t *testing.T) {
	from := time.Date(2026, 8, 30, 12, 37, 41, 0, time.UTC)
	to := time.Date(2026, 8, 30, 14, 3, 9, 0, time.UTC)

	cases := []struct {
		tf       string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{"1m", time.Date(2026, 8, 30, 12, 37, 0, 0, time.UTC), time.Date(2026, 8, 30, 14, 3, 0, 0, time.UTC)},
		{"5m", time.Date(2026, 8, 30, 12, 35, 0, 0, time.UTC), time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)},
		{"15m", time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC), time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)},
		{"1h", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)},
		{"4h", time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)},
		{"unknown", time.Date(2026, 8, 30, 12, 37, 0, 0, time.UTC), time.Date(2026, 8, 30, 14, 3, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		f, o := AlignFromTo(from, to, tc.tf)
		if !f.Equal(tc.wantFrom) || !o.Equal(tc.wantTo) {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tc.tf, f, o, tc.wantFrom, tc.wantTo)
		}
	}

	f, o := AlignFromTo(time.Time{}, time.Time{}, "5m")
	if !f.IsZero() || !o.IsZero() {
		t.Fatal("zero bounds must stay zero")
	}
}
