package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

type recordingSink struct {
	updates []*models.CandleUpdate
	ticks   []*models.PriceTick
}

func (s *recordingSink) OnCandleUpdate(_ context.Context, upd *models.CandleUpdate) {
	s.updates = append(s.updates, upd)
}

func (s *recordingSink) OnPriceTick(_ context.Context, tick *models.PriceTick) {
	s.ticks = append(s.ticks, tick)
}

type countingMetrics struct {
	errors map[string]int
}

func (m *countingMetrics) RecordSignal(string, string)      {}
func (m *countingMetrics) RecordGateRejection(string)       {}
func (m *countingMetrics) RecordLastPrice(string, float64)  {}
func (m *countingMetrics) RecordLatency(string, float64)    {}
func (m *countingMetrics) RecordError(kind string) {
	if m.errors == nil {
		m.errors = map[string]int{}
	}
	m.errors[kind]++
}

func goodUpdate() *models.CandleUpdate {
	return &models.CandleUpdate{
		Symbol:    "SOLUSDT",
		Timeframe: "5m",
		Candle: models.Candle{
			OpenTime:  1_700_000_000_000,
			CloseTime: 1_700_000_300_000,
			Open:      100, High: 101, Low: 99, Close: 100.5, Volume: 12,
		},
	}
}

func TestPipelineForwardsValidUpdates(t *testing.T) {
	sink := &recordingSink{}
	m := &countingMetrics{}
	p := NewIngestPipeline(sink, m)

	if err := p.CandleUpdate(context.Background(), goodUpdate()); err != nil {
		t.Fatalf("update: %v", err)
	}
	if len(sink.updates) != 1 {
		t.Fatalf("forwarded %d updates", len(sink.updates))
	}
	if m.errors["ingest_validate"] != 0 {
		t.Fatalf("errors: %+v", m.errors)
	}
}

func TestPipelineRejectsMalformedUpdates(t *testing.T) {
	sink := &recordingSink{}
	m := &countingMetrics{}
	p := NewIngestPipeline(sink, m)

	cases := []struct {
		name   string
		mutate func(u *models.CandleUpdate)
	}{
		{"empty symbol", func(u *models.CandleUpdate) { u.Symbol = "" }},
		{"empty timeframe", func(u *models.CandleUpdate) { u.Timeframe = "" }},
		{"zero open time", func(u *models.CandleUpdate) { u.Candle.OpenTime = 0 }},
		{"close before open", func(u *models.CandleUpdate) { u.Candle.CloseTime = u.Candle.OpenTime }},
		{"negative price", func(u *models.CandleUpdate) { u.Candle.Close = -1 }},
		{"high below low", func(u *models.CandleUpdate) { u.Candle.High = u.Candle.Low - 1 }},
		{"negative volume", func(u *models.CandleUpdate) { u.Candle.Volume = -1 }},
	}
	for _, tc := range cases {
		u := goodUpdate()
		tc.mutate(u)
		if err := p.CandleUpdate(context.Background(), u); err == nil {
			t.Errorf("%s: accepted", tc.name)
		}
	}
	if err := p.CandleUpdate(context.Background(), nil); err == nil {
		t.Error("nil update accepted")
	}

	if len(sink.updates) != 0 {
		t.Fatalf("rejected updates reached the sink: %d", len(sink.updates))
	}
	if m.errors["ingest_validate"] != len(cases)+1 {
		t.Fatalf("errors: %+v", m.errors)
	}
}

func TestPipelineThrottlesTicksPerSymbol(t *testing.T) {
	sink := &recordingSink{}
	m := &countingMetrics{}
	p := NewIngestPipeline(sink, m, WithMaxTicksPerSec(1))

	tick := func(sym string) *models.PriceTick {
		return &models.PriceTick{Symbol: sym, Price: 100, Timestamp: time.Now()}
	}

	if err := p.PriceTick(context.Background(), tick("SOLUSDT")); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	// a burst inside the same interval is dropped without error
	if err := p.PriceTick(context.Background(), tick("SOLUSDT")); err != nil {
		t.Fatalf("throttled tick must not error: %v", err)
	}
	// another symbol has its own budget
	if err := p.PriceTick(context.Background(), tick("ETHUSDT")); err != nil {
		t.Fatalf("other symbol: %v", err)
	}

	if len(sink.ticks) != 2 {
		t.Fatalf("forwarded %d ticks", len(sink.ticks))
	}
	if m.errors["ingest_throttle"] != 1 {
		t.Fatalf("errors: %+v", m.errors)
	}
}

func TestPipelineRejectsMalformedTicks(t *testing.T) {
	sink := &recordingSink{}
	m := &countingMetrics{}
	p := NewIngestPipeline(sink, m)

	bad := []*models.PriceTick{
		nil,
		{Symbol: "", Price: 100},
		{Symbol: "SOLUSDT", Price: 0},
		{Symbol: "SOLUSDT", Price: -3},
	}
	for i, tick := range bad {
		if err := p.PriceTick(context.Background(), tick); err == nil {
			t.Errorf("case %d accepted", i)
		}
	}
	if len(sink.ticks) != 0 {
		t.Fatal("rejected ticks reached the sink")
	}
}

func TestPipelineNeverThrottlesCandles(t *testing.T) {
	sink := &recordingSink{}
	p := NewIngestPipeline(sink, &countingMetrics{}, WithMaxTicksPerSec(1))

	for i := 0; i < 5; i++ {
		if err := p.CandleUpdate(context.Background(), goodUpdate()); err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
	}
	if len(sink.updates) != 5 {
		t.Fatalf("forwarded %d updates", len(sink.updates))
	}
}
