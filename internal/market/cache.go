package market

import (
	"fmt"
	"sync"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
)

// instrumentCache is the exclusively owned per-instrument state: one buffer
// per tracked timeframe plus the last trade price and readiness.
type instrumentCache struct {
	mu        sync.RWMutex
	symbol    string
	buffers   map[repository.Timeframe]*TimeframeBuffer
	lastPrice float64
	ready     bool
	excluded  bool
}

// Cache is the sole source of truth for all detectors. Writes for one
// instrument are serialized behind that instrument's lock; different
// instruments are fully independent.
type Cache struct {
	primary    repository.Timeframe
	minBars    int
	instrument map[string]*instrumentCache
}

// NewCache creates per-instrument caches for a fixed symbol set. The
// instrument map is immutable afterwards, so lookups need no lock.
func NewCache(symbols []string, tfs []repository.Timeframe, capacity, minBars int, primary repository.Timeframe) *Cache {
	if minBars < 200 {
		minBars = 200
	}
	m := make(map[string]*instrumentCache, len(symbols))
	for _, s := range symbols {
		bufs := make(map[repository.Timeframe]*TimeframeBuffer, len(tfs))
		for _, tf := range tfs {
			bufs[tf] = NewTimeframeBuffer(tf, capacity)
		}
		m[s] = &instrumentCache{symbol: s, buffers: bufs}
	}
	return &Cache{primary: primary, minBars: minBars, instrument: m}
}

func (c *Cache) get(symbol string) (*instrumentCache, error) {
	ic, ok := c.instrument[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown instrument %q", symbol)
	}
	return ic, nil
}

// ApplyCandleUpdate merges one bar update. The returned bool is true when
// the update closed a bar on the given timeframe, so the caller can trigger
// a bar-close evaluation for the primary timeframe.
func (c *Cache) ApplyCandleUpdate(symbol string, tf repository.Timeframe, candle models.Candle) (bool, error) {
	ic, err := c.get(symbol)
	if err != nil {
		return false, err
	}

	ic.mu.Lock()
	defer ic.mu.Unlock()

	buf, ok := ic.buffers[tf]
	if !ok {
		return false, fmt.Errorf("untracked timeframe %q for %s", tf, symbol)
	}
	closed, err := buf.Apply(candle)
	if err != nil {
		return false, err
	}
	if !ic.ready && ic.buffers[c.primary].Len() >= c.minBars {
		ic.ready = true
	}
	return closed, nil
}

// ApplyPriceTick updates only the scalar last-trade price.
func (c *Cache) ApplyPriceTick(symbol string, price float64) {
	ic, err := c.get(symbol)
	if err != nil || price <= 0 {
		return
	}
	ic.mu.Lock()
	ic.lastPrice = price
	ic.mu.Unlock()
}

// Seed bulk-loads historical bars into a timeframe buffer (bootstrap).
func (c *Cache) Seed(symbol string, tf repository.Timeframe, candles []models.Candle) error {
	ic, err := c.get(symbol)
	if err != nil {
		return err
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()

	buf, ok := ic.buffers[tf]
	if !ok {
		return fmt.Errorf("untracked timeframe %q for %s", tf, symbol)
	}
	for _, cd := range candles {
		if _, err := buf.Apply(cd); err != nil {
			return fmt.Errorf("seed %s %s: %w", symbol, tf, err)
		}
	}
	if !ic.ready && ic.buffers[c.primary].Len() >= c.minBars {
		ic.ready = true
	}
	return nil
}

// MarkExcluded takes an instrument out of evaluation after repeated
// bootstrap failures. The process keeps running for the rest.
func (c *Cache) MarkExcluded(symbol string) {
	if ic, err := c.get(symbol); err == nil {
		ic.mu.Lock()
		ic.excluded = true
		ic.mu.Unlock()
	}
}

// Ready reports whether the instrument has enough history and is not
// excluded.
func (c *Cache) Ready(symbol string) bool {
	ic, err := c.get(symbol)
	if err != nil {
		return false
	}
	ic.mu.RLock()
	defer ic.mu.RUnlock()
	return ic.ready && !ic.excluded
}

// Symbols returns the tracked instrument set.
func (c *Cache) Symbols() []string {
	out := make([]string, 0, len(c.instrument))
	for s := range c.instrument {
		out = append(out, s)
	}
	return out
}

// Snapshot returns a read-only copy of the instrument state. The forming
// bar on each timeframe reflects the live price as max/min/last of the
// stored bar and the last tick, without mutating the persisted bar.
func (c *Cache) Snapshot(symbol string) (*Snapshot, error) {
	ic, err := c.get(symbol)
	if err != nil {
		return nil, err
	}

	ic.mu.RLock()
	defer ic.mu.RUnlock()

	snap := &Snapshot{
		Symbol:  symbol,
		Price:   ic.lastPrice,
		Ready:   ic.ready && !ic.excluded,
		Taken:   time.Now(),
		primary: c.primary,
		buffers: make(map[repository.Timeframe][]models.Candle, len(ic.buffers)),
	}
	for tf, buf := range ic.buffers {
		cs := buf.Candles()
		if n := len(cs); n > 0 && ic.lastPrice > 0 {
			last := &cs[n-1]
			if ic.lastPrice > last.High {
				last.High = ic.lastPrice
			}
			if ic.lastPrice < last.Low {
				last.Low = ic.lastPrice
			}
			last.Close = ic.lastPrice
		}
		snap.buffers[tf] = cs
	}
	return snap, nil
}
