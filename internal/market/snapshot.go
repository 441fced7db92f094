package market

import (
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
)

// Snapshot is a read-only, deep-copied view of one instrument's state.
// Detectors never mutate it.
type Snapshot struct {
	Symbol string
	Price  float64
	Ready  bool
	Taken  time.Time

	primary repository.Timeframe
	buffers map[repository.Timeframe][]models.Candle
}

// Candles returns the copied bars for a timeframe, oldest first.
func (s *Snapshot) Candles(tf repository.Timeframe) []models.Candle {
	return s.buffers[tf]
}

// Primary returns the decision-timeframe bars.
func (s *Snapshot) Primary() []models.Candle {
	return s.buffers[s.primary]
}

// PrimaryTimeframe returns the decision timeframe.
func (s *Snapshot) PrimaryTimeframe() repository.Timeframe { return s.primary }

// Contiguous reports whether the most recent n bars of a timeframe are
// exactly one bar apart. Calculations that span a gap are invalid for the
// current pass.
func (s *Snapshot) Contiguous(tf repository.Timeframe, n int) bool {
	cs := s.buffers[tf]
	if len(cs) < n {
		return false
	}
	if n <= 1 {
		return true
	}
	step := tf.Millis()
	for i := len(cs) - n + 1; i < len(cs); i++ {
		if cs[i].OpenTime-cs[i-1].OpenTime != step {
			return false
		}
	}
	return true
}
