package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/risk"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

func testLogger(t *testing.T) *applogger.Logger {
	t.Helper()
	l, err := applogger.New(&applogger.Config{Level: "error", Format: "console", Output: "stdout"})
	if err != nil {
		t.Fatal(err)
	}
	return l
}

type fakeNotifier struct {
	err  error
	sent []*models.Alert
}

func (f *fakeNotifier) Send(_ context.Context, a *models.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, a)
	return nil
}

type fakeSignalLog struct {
	recs []*models.SignalRecord
	err  error
}

func (f *fakeSignalLog) Append(_ context.Context, rec *models.SignalRecord) error {
	if f.err != nil {
		return f.err
	}
	f.recs = append(f.recs, rec)
	return nil
}

func (f *fakeSignalLog) Close() error { return nil }

type fakeMetrics struct {
	signals    int
	errors     map[string]int
	rejections []string
}

func (f *fakeMetrics) RecordSignal(string, string) { f.signals++ }
func (f *fakeMetrics) RecordGateRejection(reason string) {
	f.rejections = append(f.rejections, reason)
}
func (f *fakeMetrics) RecordError(kind string) {
	if f.errors == nil {
		f.errors = map[string]int{}
	}
	f.errors[kind]++
}
func (f *fakeMetrics) RecordLastPrice(string, float64) {}
func (f *fakeMetrics) RecordLatency(string, float64)   {}

func testCandidate() *models.SignalCandidate {
	return &models.SignalCandidate{
		Symbol:     "SOLUSDT",
		Type:       models.SignalSweepReversal,
		Direction:  models.Long,
		Urgency:    models.UrgencyImmediate,
		Confidence: 72,
		EntryPrice: 100.123456,
		StopPrice:  98.5,
		Rationale:  "swept the prior low and reclaimed it",
		CreatedAt:  time.Now(),
	}
}

func testDispatcher(t *testing.T, n *fakeNotifier, sl *fakeSignalLog, m *fakeMetrics) (*Dispatcher, *risk.Gate, *risk.State) {
	t.Helper()
	log := testLogger(t)
	state := risk.NewState(log)
	gate := risk.NewGate(risk.GateConfig{
		MaxDailySignals: 10,
		SymbolCooldown:  time.Hour,
		TypeCooldown:    time.Hour,
	}, state, log)
	d := NewDispatcher(DispatcherConfig{
		TPMultiples: [2]float64{1.5, 3.0},
		Precision:   map[string]int32{"SOLUSDT": 2},
	}, n, sl, gate, m, log)
	return d, gate, state
}

func TestDispatchBooksTheSend(t *testing.T) {
	n := &fakeNotifier{}
	sl := &fakeSignalLog{}
	m := &fakeMetrics{}
	d, gate, state := testDispatcher(t, n, sl, m)

	stop := risk.StopResult{Stop: 98.504, RiskPct: 1.6, Valid: true}
	if err := d.Dispatch(context.Background(), testCandidate(), stop, 0.7, "fast"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}

	if len(n.sent) != 1 {
		t.Fatalf("sent %d alerts", len(n.sent))
	}
	a := n.sent[0]
	if a.Entry != 100.12 || a.Stop != 98.50 {
		t.Fatalf("rounding: entry=%v stop=%v", a.Entry, a.Stop)
	}
	// riskDist 1.62 at the symbol precision
	if a.TakeProfit[0] != 102.55 || a.TakeProfit[1] != 104.98 {
		t.Fatalf("take profits: %v", a.TakeProfit)
	}
	if a.SizeFactor != 0.7 || a.Source != "fast" {
		t.Fatalf("alert fields: %+v", a)
	}

	if v := state.View(); v.DailyCount != 1 || v.SymbolDaily["SOLUSDT"] != 1 {
		t.Fatalf("state not booked: %+v", v)
	}
	if active, reason := gate.CooldownActive("SOLUSDT", models.SignalSweepReversal, time.Now()); !active {
		t.Fatalf("cooldown not armed, reason=%q", reason)
	}
	if len(sl.recs) != 1 || sl.recs[0].TP1 != 102.55 {
		t.Fatalf("signal log: %+v", sl.recs)
	}
	if m.signals != 1 {
		t.Fatalf("signal metric = %d", m.signals)
	}
}

func TestDispatchShortDerivesTPsDownward(t *testing.T) {
	n := &fakeNotifier{}
	d, _, _ := testDispatcher(t, n, &fakeSignalLog{}, &fakeMetrics{})

	cand := testCandidate()
	cand.Direction = models.Short
	cand.EntryPrice = 100
	stop := risk.StopResult{Stop: 102, RiskPct: 2, Valid: true}
	if err := d.Dispatch(context.Background(), cand, stop, 1, "full"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	a := n.sent[0]
	if a.TakeProfit[0] != 97 || a.TakeProfit[1] != 94 {
		t.Fatalf("short take profits: %v", a.TakeProfit)
	}
}

func TestDispatchFailedSendConsumesNoBudget(t *testing.T) {
	n := &fakeNotifier{err: errors.New("telegram down")}
	sl := &fakeSignalLog{}
	m := &fakeMetrics{}
	d, gate, state := testDispatcher(t, n, sl, m)

	stop := risk.StopResult{Stop: 98.5, RiskPct: 1.6, Valid: true}
	err := d.Dispatch(context.Background(), testCandidate(), stop, 1, "full")
	if err == nil {
		t.Fatal("expected send error")
	}

	if v := state.View(); v.DailyCount != 0 {
		t.Fatalf("failed send booked budget: %+v", v)
	}
	if active, _ := gate.CooldownActive("SOLUSDT", models.SignalSweepReversal, time.Now()); active {
		t.Fatal("failed send armed a cooldown")
	}
	if len(sl.recs) != 0 {
		t.Fatal("failed send logged a record")
	}
	if m.errors["notify_send"] != 1 {
		t.Fatalf("error metric: %+v", m.errors)
	}
}

func TestDispatchSignalLogFailureDoesNotFailDispatch(t *testing.T) {
	n := &fakeNotifier{}
	sl := &fakeSignalLog{err: errors.New("clickhouse down")}
	m := &fakeMetrics{}
	d, _, state := testDispatcher(t, n, sl, m)

	stop := risk.StopResult{Stop: 98.5, RiskPct: 1.6, Valid: true}
	if err := d.Dispatch(context.Background(), testCandidate(), stop, 1, "full"); err != nil {
		t.Fatalf("dispatch must tolerate log failures: %v", err)
	}
	if v := state.View(); v.DailyCount != 1 {
		t.Fatalf("send not booked: %+v", v)
	}
	if m.errors["signal_log"] != 1 {
		t.Fatalf("error metric: %+v", m.errors)
	}
}

func TestDispatchUnknownSymbolRoundsToDefault(t *testing.T) {
	n := &fakeNotifier{}
	d, _, _ := testDispatcher(t, n, &fakeSignalLog{}, &fakeMetrics{})

	cand := testCandidate()
	cand.Symbol = "ETHUSDT"
	cand.EntryPrice = 100.123456789
	stop := risk.StopResult{Stop: 98.111111, RiskPct: 2, Valid: true}
	if err := d.Dispatch(context.Background(), cand, stop, 1, "full"); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if a := n.sent[0]; a.Entry != 100.1235 || a.Stop != 98.1111 {
		t.Fatalf("default precision: entry=%v stop=%v", a.Entry, a.Stop)
	}
}
