package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/risk"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/service/ratelimit"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/services/detectors"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

type passKind int

const (
	passFull passKind = iota // bar close on the decision timeframe
	passFast                 // rate-limited tick trigger
)

// EngineConfig fixes evaluation scheduling.
type EngineConfig struct {
	QueueSize     int
	TickBurst     float64 // fast-path token bucket capacity
	TickPerSec    float64 // fast-path refill rate
	FeatureConfig detectors.FeatureConfig
	PrimaryTF     repository.Timeframe
}

// Engine drives one evaluation flow per instrument. Each instrument gets a
// bounded event queue consumed by a single worker, so bar-close and
// tick-triggered passes for the same instrument never overlap while
// different instruments run concurrently.
type Engine struct {
	cfg        EngineConfig
	cache      *market.Cache
	bank       *detectors.Bank
	gate       *risk.Gate
	dispatcher *Dispatcher
	limiter    *ratelimit.Limiter
	metrics    repository.Metrics
	log        *applogger.Logger

	mu      sync.Mutex
	workers map[string]chan passKind
	stopped bool
	wg      sync.WaitGroup
}

// NewEngine creates the engine. Workers start lazily on first event.
func NewEngine(cfg EngineConfig, cache *market.Cache, bank *detectors.Bank, gate *risk.Gate, dispatcher *Dispatcher, metrics repository.Metrics, log *applogger.Logger) *Engine {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.TickBurst <= 0 {
		cfg.TickBurst = 3
	}
	if cfg.TickPerSec <= 0 {
		cfg.TickPerSec = 0.2
	}
	return &Engine{
		cfg:        cfg,
		cache:      cache,
		bank:       bank,
		gate:       gate,
		dispatcher: dispatcher,
		limiter:    ratelimit.New(),
		metrics:    metrics,
		log:        log,
		workers:    make(map[string]chan passKind),
	}
}

// OnCandleUpdate applies one incremental update; a close on the decision
// timeframe schedules a full pass.
func (e *Engine) OnCandleUpdate(ctx context.Context, upd *models.CandleUpdate) {
	closed, err := e.cache.ApplyCandleUpdate(upd.Symbol, repository.Timeframe(upd.Timeframe), upd.Candle)
	if err != nil {
		e.metrics.RecordError("cache_apply")
		e.log.Debug("candle update rejected",
			applogger.String("symbol", upd.Symbol),
			applogger.String("timeframe", upd.Timeframe),
			applogger.Error(err))
		return
	}
	if closed && repository.Timeframe(upd.Timeframe) == e.cfg.PrimaryTF {
		e.schedule(ctx, upd.Symbol, passFull)
	}
}

// OnPriceTick updates the live price and, within the fast-path budget,
// schedules a tick pass.
func (e *Engine) OnPriceTick(ctx context.Context, tick *models.PriceTick) {
	e.cache.ApplyPriceTick(tick.Symbol, tick.Price)
	e.metrics.RecordLastPrice(tick.Symbol, tick.Price)
	if e.limiter.Allow(tick.Symbol, e.cfg.TickBurst, e.cfg.TickPerSec) {
		e.schedule(ctx, tick.Symbol, passFast)
	}
}

// schedule enqueues one pass. The send stays under the mutex so it cannot
// interleave with Stop closing the worker channels; it never blocks because
// the queue send has a drop default.
func (e *Engine) schedule(ctx context.Context, symbol string, kind passKind) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	ch, ok := e.workers[symbol]
	if !ok {
		ch = make(chan passKind, e.cfg.QueueSize)
		e.workers[symbol] = ch
		e.wg.Add(1)
		go e.worker(ctx, symbol, ch)
	}

	select {
	case ch <- kind:
	default:
		// queue full, drop rather than block the feed
		e.metrics.RecordError("eval_queue_full")
	}
}

func (e *Engine) worker(ctx context.Context, symbol string, ch <-chan passKind) {
	defer e.wg.Done()
	for kind := range ch {
		e.runPass(ctx, symbol, kind)
	}
}

// runPass executes one evaluation. A panic anywhere in the pass is caught
// and skips only that pass.
func (e *Engine) runPass(ctx context.Context, symbol string, kind passKind) {
	defer func() {
		if r := recover(); r != nil {
			e.metrics.RecordError("pass_panic")
			e.log.Error("evaluation pass panicked",
				applogger.String("symbol", symbol),
				applogger.Any("panic", r))
		}
	}()

	if !e.cache.Ready(symbol) {
		return
	}
	snap, err := e.cache.Snapshot(symbol)
	if err != nil {
		e.metrics.RecordError("snapshot")
		return
	}

	start := time.Now()
	fs := detectors.BuildFeatureSet(snap, e.cfg.FeatureConfig)
	if fs == nil {
		// gap or short history for this pass, not an error
		return
	}

	var cand *models.SignalCandidate
	if kind == passFast {
		cand = e.bank.EvaluateFast(snap, fs)
	} else {
		cand = e.bank.Evaluate(snap, fs)
	}
	e.metrics.RecordLatency("eval_pass", time.Since(start).Seconds())
	if cand == nil {
		return
	}

	now := time.Now()
	if dec := e.gate.CanEmit(symbol, now); !dec.Allowed {
		e.metrics.RecordGateRejection(dec.Reason)
		e.log.Debug("candidate gated",
			applogger.String("symbol", symbol),
			applogger.String("reason", dec.Reason))
		return
	}
	ok, sizeFactor := e.gate.CheckConfidence(cand.Confidence)
	if !ok {
		e.metrics.RecordGateRejection(risk.ReasonLowConfidence)
		return
	}
	if active, reason := e.gate.CooldownActive(symbol, cand.Type, now); active {
		e.metrics.RecordGateRejection(reason)
		return
	}

	stop := e.gate.FinalizeStop(cand.EntryPrice, cand.StopPrice, cand.Direction, cand.Type, fs.ATR)
	if !stop.Valid {
		e.metrics.RecordGateRejection("RISK_STOP")
		e.log.Debug("stop rejected",
			applogger.String("symbol", symbol),
			applogger.Any("risk_pct", stop.RiskPct))
		return
	}

	source := "bar_close"
	if kind == passFast {
		source = "tick"
	}
	if err := e.dispatcher.Dispatch(ctx, cand, stop, sizeFactor, source); err != nil {
		e.log.Error("dispatch failed",
			applogger.String("symbol", symbol),
			applogger.Error(err))
	}
}

// Stop closes all worker queues and waits for in-flight passes, letting
// pending sends finish.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	for _, ch := range e.workers {
		close(ch)
	}
	e.mu.Unlock()
	e.wg.Wait()
}
