package binance

import (
	"context"
	"testing"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	drepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
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

func testStream(t *testing.T) *Stream {
	t.Helper()
	s := NewStream("wss://example", []string{"SOLUSDT"}, []drepo.Timeframe{"5m", "1h"}, 0, 0, testLogger(t))
	return s.(*Stream)
}

func TestStreamNames(t *testing.T) {
	names := testStream(t).streamNames()
	want := []string{"solusdt@kline_5m", "solusdt@kline_1h", "solusdt@aggTrade"}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}

func TestHandleFrameKline(t *testing.T) {
	s := testStream(t)
	updates := make(chan *models.CandleUpdate, 1)
	ticks := make(chan *models.PriceTick, 1)

	frame := []byte(`{"stream":"solusdt@kline_5m","data":{"e":"kline","s":"SOLUSDT",` +
		`"k":{"t":1700000000000,"T":1700000299999,"i":"5m",` +
		`"o":"100.10","h":"101.00","l":"99.50","c":"100.75","v":"1234.5","x":true}}}`)
	s.handleFrame(frame, updates, ticks)

	select {
	case upd := <-updates:
		if upd.Symbol != "SOLUSDT" || upd.Timeframe != "5m" {
			t.Fatalf("update header: %+v", upd)
		}
		c := upd.Candle
		if c.OpenTime != 1700000000000 || c.Open != 100.10 || c.Close != 100.75 || c.Volume != 1234.5 {
			t.Fatalf("candle: %+v", c)
		}
	default:
		t.Fatal("kline frame produced no update")
	}
}

func TestHandleFrameAggTrade(t *testing.T) {
	s := testStream(t)
	updates := make(chan *models.CandleUpdate, 1)
	ticks := make(chan *models.PriceTick, 1)

	frame := []byte(`{"stream":"solusdt@aggTrade","data":{"e":"aggTrade","s":"SOLUSDT","p":"100.42","T":1700000000500}}`)
	s.handleFrame(frame, updates, ticks)

	select {
	case tick := <-ticks:
		if tick.Symbol != "SOLUSDT" || tick.Price != 100.42 {
			t.Fatalf("tick: %+v", tick)
		}
		if !tick.Timestamp.Equal(time.UnixMilli(1700000000500)) {
			t.Fatalf("timestamp: %v", tick.Timestamp)
		}
	default:
		t.Fatal("aggTrade frame produced no tick")
	}
}

func TestHandleFrameDropsMalformed(t *testing.T) {
	s := testStream(t)
	updates := make(chan *models.CandleUpdate, 1)
	ticks := make(chan *models.PriceTick, 1)

	frames := [][]byte{
		[]byte(`not json`),
		[]byte(`{"stream":"solusdt@kline_5m"}`), // no data
		[]byte(`{"stream":"solusdt@kline_5m","data":{"e":"other"}}`),
		// unparseable price string drops the whole frame
		[]byte(`{"stream":"solusdt@kline_5m","data":{"e":"kline","s":"SOLUSDT",` +
			`"k":{"t":1,"T":2,"i":"5m","o":"abc","h":"1","l":"1","c":"1","v":"1"}}}`),
		[]byte(`{"stream":"solusdt@aggTrade","data":{"e":"aggTrade","s":"SOLUSDT","p":"-5","T":1}}`),
		[]byte(`{"stream":"solusdt@aggTrade","data":{"e":"aggTrade","s":"SOLUSDT","p":"zz","T":1}}`),
	}
	for i, f := range frames {
		s.handleFrame(f, updates, ticks)
		select {
		case <-updates:
			t.Fatalf("frame %d produced an update", i)
		case <-ticks:
			t.Fatalf("frame %d produced a tick", i)
		default:
		}
	}
}

func TestReadWithoutConnectionEndsSession(t *testing.T) {
	s := testStream(t)

	updCh, tickCh, errCh := s.Read(context.Background())

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected a session error")
		}
	case <-time.After(time.Second):
		t.Fatal("no error delivered")
	}

	// the session ends by closing every channel, which is what lets the
	// consumer swap in a fresh Read after redialing
	for name, closed := range map[string]bool{
		"updates": chanClosed(updCh),
		"ticks":   tickChanClosed(tickCh),
		"errors":  errChanClosed(errCh),
	} {
		if !closed {
			t.Fatalf("%s channel still open", name)
		}
	}
}

func chanClosed(ch <-chan *models.CandleUpdate) bool {
	select {
	case _, ok := <-ch:
		return !ok
	case <-time.After(time.Second):
		return false
	}
}

func tickChanClosed(ch <-chan *models.PriceTick) bool {
	select {
	case _, ok := <-ch:
		return !ok
	case <-time.After(time.Second):
		return false
	}
}

func errChanClosed(ch <-chan error) bool {
	select {
	case _, ok := <-ch:
		return !ok
	case <-time.After(time.Second):
		return false
	}
}

func TestCloseClearsConnectionState(t *testing.T) {
	s := testStream(t)

	if s.IsConnected() {
		t.Fatal("new stream reports connected")
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close without connection: %v", err)
	}
	if err := s.Subscribe(context.Background()); err == nil {
		t.Fatal("subscribe should fail with no connection")
	}
}
