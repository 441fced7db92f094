package features

import (
	"testing"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

// trendBars builds n bars stepping by `step` per bar, closing at the high
// for up moves and at the low for down moves.
func trendBars(n int, start, step float64) []models.Candle {
	out := make([]models.Candle, n)
	price := start
	for i := range out {
		next := price + step
		c := models.Candle{OpenTime: int64(1000 + i), CloseTime: int64(1000 + i), Open: price, Close: next, Volume: 10}
		if step >= 0 {
			c.High, c.Low = next, price
		} else {
			c.High, c.Low = price, next
		}
		out[i] = c
		price = next
	}
	return out
}

func TestOrderFlowDirection(t *testing.T) {
	up := ComputeOrderFlow(trendBars(20, 100, 0.5), 10)
	if up.Score <= 0 || up.Direction != models.Long {
		t.Fatalf("uptrend flow = %+v", up)
	}
	if !up.Directional {
		t.Fatalf("strong uptrend should be directional: %+v", up)
	}
	if up.RunLength <= 0 {
		t.Fatalf("uptrend run = %d", up.RunLength)
	}

	down := ComputeOrderFlow(trendBars(20, 100, -0.5), 10)
	if down.Score >= 0 || down.Direction != models.Short {
		t.Fatalf("downtrend flow = %+v", down)
	}
	if down.RunLength >= 0 {
		t.Fatalf("downtrend run = %d", down.RunLength)
	}
}

func TestOrderFlowInsufficientData(t *testing.T) {
	of := ComputeOrderFlow(trendBars(5, 100, 0.5), 10)
	if of.Score != 0 || of.Strong || of.Directional {
		t.Fatalf("short history must yield neutral flow: %+v", of)
	}
}

func TestOrderFlowBounds(t *testing.T) {
	for _, step := range []float64{5, -5, 0.01, -0.01} {
		of := ComputeOrderFlow(trendBars(30, 100, step), 10)
		if of.Score < -100 || of.Score > 100 {
			t.Fatalf("score out of bounds for step %f: %f", step, of.Score)
		}
	}
}

func TestStructureRun(t *testing.T) {
	if run := structureRun(trendBars(6, 100, 1)); run != 5 {
		t.Fatalf("up run = %d, want 5", run)
	}
	if run := structureRun(trendBars(6, 100, -1)); run != -5 {
		t.Fatalf("down run = %d, want -5", run)
	}
	// inside bar stops the count
	cs := trendBars(4, 100, 1)
	cs = append(cs, models.Candle{OpenTime: 2000, CloseTime: 2000, Open: 103, High: 103.5, Low: 103, Close: 103.2, Volume: 10})
	if run := structureRun(cs); run != 0 {
		t.Fatalf("inside bar run = %d, want 0", run)
	}
}
