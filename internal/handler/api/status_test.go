package api

import (
	"testing"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

func clipFixture() []models.Candle {
	bars := make([]models.Candle, 5)
	for i := range bars {
		open := int64(1_700_000_000_000 + i*300_000)
		bars[i] = models.Candle{OpenTime: open, CloseTime: open + 299_999, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1}
	}
	return bars
}

func TestClipRange(t *testing.T) {
	bars := clipFixture()
	at := func(i int) time.Time { return time.UnixMilli(bars[i].OpenTime) }

	if got := clipRange(bars, time.Time{}, time.Time{}); len(got) != 5 {
		t.Fatalf("open bounds clipped to %d", len(got))
	}
	if got := clipRange(bars, at(2), time.Time{}); len(got) != 3 || got[0].OpenTime != bars[2].OpenTime {
		t.Fatalf("from bound: %d bars", len(got))
	}
	if got := clipRange(bars, time.Time{}, at(1)); len(got) != 2 || got[len(got)-1].OpenTime != bars[1].OpenTime {
		t.Fatalf("to bound: %d bars", len(got))
	}
	if got := clipRange(bars, at(1), at(3)); len(got) != 3 {
		t.Fatalf("both bounds: %d bars", len(got))
	}
	// bounds outside the window clip to nothing
	if got := clipRange(bars, time.UnixMilli(bars[4].OpenTime+300_000), time.Time{}); len(got) != 0 {
		t.Fatalf("past window: %d bars", len(got))
	}
}
