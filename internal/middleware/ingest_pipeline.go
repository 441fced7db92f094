package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	domrepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
)

// Sink is the downstream the pipeline feeds, normally the evaluation engine.
type Sink interface {
	OnCandleUpdate(ctx context.Context, upd *models.CandleUpdate)
	OnPriceTick(ctx context.Context, tick *models.PriceTick)
}

// IngestPipeline sits between the market stream and the engine. It parses
// nothing itself, but enforces the strict-candle boundary: malformed
// updates are rejected here so invalid numbers never reach the cache, and
// tick floods are throttled per symbol before they hit the fast path.
type IngestPipeline struct {
	sink    Sink
	metrics domrepo.Metrics
	maxTPS  int // accepted ticks per second per symbol

	mu       sync.Mutex
	lastTick map[string]time.Time
}

type PipelineOption func(*IngestPipeline)

// WithMaxTicksPerSec caps accepted price ticks per symbol.
func WithMaxTicksPerSec(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.maxTPS = n
		}
	}
}

// NewIngestPipeline creates the pipeline.
func NewIngestPipeline(sink Sink, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		sink:     sink,
		metrics:  metrics,
		maxTPS:   20,
		lastTick: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CandleUpdate validates and forwards one bar update. Candle updates are
// never throttled; every refinement and close must reach the cache.
func (p *IngestPipeline) CandleUpdate(ctx context.Context, upd *models.CandleUpdate) error {
	start := time.Now()
	if err := validateUpdate(upd); err != nil {
		p.metrics.RecordError("ingest_validate")
		return err
	}
	p.sink.OnCandleUpdate(ctx, upd)
	p.metrics.RecordLatency("ingest_candle", time.Since(start).Seconds())
	return nil
}

// PriceTick validates, throttles, and forwards one tick. Throttled ticks
// are dropped silently; they carry no state the next tick won't.
func (p *IngestPipeline) PriceTick(ctx context.Context, tick *models.PriceTick) error {
	if err := validateTick(tick); err != nil {
		p.metrics.RecordError("ingest_validate")
		return err
	}
	if !p.allow(tick.Symbol, time.Now()) {
		p.metrics.RecordError("ingest_throttle")
		return nil
	}
	p.sink.OnPriceTick(ctx, tick)
	return nil
}

func validateUpdate(upd *models.CandleUpdate) error {
	if upd == nil {
		return fmt.Errorf("update nil")
	}
	if upd.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if upd.Timeframe == "" {
		return fmt.Errorf("timeframe empty")
	}
	c := upd.Candle
	if c.OpenTime <= 0 || c.CloseTime <= c.OpenTime {
		return fmt.Errorf("bar times invalid")
	}
	if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
		return fmt.Errorf("non-positive price")
	}
	if c.High < c.Low || c.Volume < 0 {
		return fmt.Errorf("inconsistent bar")
	}
	return nil
}

func validateTick(t *models.PriceTick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.Symbol == "" {
		return fmt.Errorf("symbol empty")
	}
	if t.Price <= 0 {
		return fmt.Errorf("non-positive price")
	}
	return nil
}

func (p *IngestPipeline) allow(symbol string, now time.Time) bool {
	if p.maxTPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastTick[symbol]
	if !last.IsZero() && now.Sub(last) < time.Second/time.Duration(p.maxTPS) {
		return false
	}
	p.lastTick[symbol] = now
	return true
}
