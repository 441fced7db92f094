package features

import (
	"testing"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

func closesToBars(closes []float64, volume float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime: int64(1000 + i), CloseTime: int64(1000 + i),
			Open: c, High: c + 1, Low: c - 1, Close: c, Volume: volume,
		}
	}
	return out
}

func TestComputeCVDSigns(t *testing.T) {
	// up, up, down, up
	cs := closesToBars([]float64{100, 101, 102, 101, 103}, 10)
	cvd := ComputeCVD(cs)
	want := []float64{0, 10, 20, 10, 20}
	for i, v := range want {
		if cvd.Values[i] != v {
			t.Fatalf("values[%d] = %f, want %f (all: %v)", i, cvd.Values[i], v, cvd.Values)
		}
	}
	if cvd.Current != 20 {
		t.Fatalf("current = %f", cvd.Current)
	}
	if !cvd.Rising || cvd.Falling {
		t.Fatalf("momentum flags wrong: %+v", cvd)
	}
}

func TestComputeCVDTooShort(t *testing.T) {
	cvd := ComputeCVD(closesToBars([]float64{100}, 10))
	if len(cvd.Values) != 0 || cvd.Current != 0 {
		t.Fatalf("single bar must yield empty CVD: %+v", cvd)
	}
}

func TestCVDRangePosition(t *testing.T) {
	cs := closesToBars([]float64{100, 101, 102, 103, 102, 101, 100, 99}, 10)
	cvd := ComputeCVD(cs)
	// values: 0,10,20,30,20,10,0,-10 -> range [-10,30], current -10
	pos := cvd.RangePosition(100)
	if pos != 0 {
		t.Fatalf("position = %f, want bottom of range", pos)
	}

	flat := CVD{Values: []float64{5, 5, 5}, Current: 5}
	if got := flat.RangePosition(3); got != 0.5 {
		t.Fatalf("flat range position = %f, want 0.5", got)
	}
	var empty CVD
	if got := empty.RangePosition(10); got != 0.5 {
		t.Fatalf("empty position = %f, want 0.5", got)
	}
}
