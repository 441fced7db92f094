package market

import (
	"errors"
	"fmt"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
)

// ErrStaleUpdate is returned for an update older than the forming bar.
var ErrStaleUpdate = errors.New("candle update older than forming bar")

// TimeframeBuffer holds candles in strictly increasing openTime order with a
// fixed capacity; the oldest bar is evicted on overflow. The newest entry is
// the still-forming bar and is overwritten in place until a later openTime
// arrives, at which point it is frozen.
type TimeframeBuffer struct {
	tf       repository.Timeframe
	capacity int
	candles  []models.Candle
}

// NewTimeframeBuffer creates a buffer for one timeframe.
func NewTimeframeBuffer(tf repository.Timeframe, capacity int) *TimeframeBuffer {
	if capacity <= 0 {
		capacity = 500
	}
	return &TimeframeBuffer{
		tf:       tf,
		capacity: capacity,
		candles:  make([]models.Candle, 0, capacity),
	}
}

// Apply merges one update into the buffer. It returns true when the update
// closed the previous forming bar (a newer openTime arrived).
func (b *TimeframeBuffer) Apply(c models.Candle) (bool, error) {
	if err := validateCandle(c); err != nil {
		return false, err
	}

	n := len(b.candles)
	if n == 0 {
		b.candles = append(b.candles, c)
		return false, nil
	}

	last := b.candles[n-1].OpenTime
	switch {
	case c.OpenTime == last:
		b.candles[n-1] = c
		return false, nil
	case c.OpenTime < last:
		return false, ErrStaleUpdate
	default:
		if n == b.capacity {
			copy(b.candles, b.candles[1:])
			b.candles[n-1] = c
		} else {
			b.candles = append(b.candles, c)
		}
		return true, nil
	}
}

// Len returns the number of bars currently held.
func (b *TimeframeBuffer) Len() int { return len(b.candles) }

// Candles returns a copy of the buffer contents, oldest first.
func (b *TimeframeBuffer) Candles() []models.Candle {
	out := make([]models.Candle, len(b.candles))
	copy(out, b.candles)
	return out
}

// Contiguous reports whether the most recent n bars are exactly one bar
// duration apart. A gap invalidates dependent calculations for the pass.
func (b *TimeframeBuffer) Contiguous(n int) bool {
	if n <= 1 {
		return len(b.candles) >= n
	}
	if len(b.candles) < n {
		return false
	}
	step := b.tf.Millis()
	start := len(b.candles) - n
	for i := start + 1; i < len(b.candles); i++ {
		if b.candles[i].OpenTime-b.candles[i-1].OpenTime != step {
			return false
		}
	}
	return true
}

func validateCandle(c models.Candle) error {
	if c.OpenTime <= 0 {
		return fmt.Errorf("candle openTime invalid: %d", c.OpenTime)
	}
	if c.High < c.Low {
		return fmt.Errorf("candle high %f below low %f", c.High, c.Low)
	}
	if c.Open <= 0 || c.Close <= 0 || c.Volume < 0 {
		return fmt.Errorf("candle fields out of range")
	}
	return nil
}
