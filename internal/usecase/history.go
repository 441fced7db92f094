package usecase

import (
	"context"
	"time"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	drepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// BootstrapConfig fixes the history load policy.
type BootstrapConfig struct {
	Limit      int // bars per timeframe
	MaxRetries int
	Backoff    time.Duration // initial, doubles per retry
	BackoffCap time.Duration
}

// Bootstrapper seeds the cache from the history source at startup. An
// instrument whose history cannot be loaded after the retry budget is
// marked excluded and skipped, never a startup failure.
type Bootstrapper struct {
	cfg     BootstrapConfig
	source  drepo.HistorySource
	cache   *market.Cache
	metrics drepo.Metrics
	log     *applogger.Logger
}

// NewBootstrapper creates the bootstrapper.
func NewBootstrapper(cfg BootstrapConfig, source drepo.HistorySource, cache *market.Cache, metrics drepo.Metrics, log *applogger.Logger) *Bootstrapper {
	if cfg.Limit <= 0 {
		cfg.Limit = 500
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 4
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = time.Second
	}
	if cfg.BackoffCap <= 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	return &Bootstrapper{cfg: cfg, source: source, cache: cache, metrics: metrics, log: log}
}

// Load seeds every tracked symbol across the given timeframes.
func (b *Bootstrapper) Load(ctx context.Context, tfs []drepo.Timeframe) {
	for _, symbol := range b.cache.Symbols() {
		if err := b.loadSymbol(ctx, symbol, tfs); err != nil {
			b.metrics.RecordError("bootstrap")
			b.cache.MarkExcluded(symbol)
			b.log.Error("history load failed, instrument excluded",
				applogger.String("symbol", symbol),
				applogger.Error(err))
		}
	}
}

func (b *Bootstrapper) loadSymbol(ctx context.Context, symbol string, tfs []drepo.Timeframe) error {
	for _, tf := range tfs {
		candles, err := b.fetchWithRetry(ctx, symbol, tf)
		if err != nil {
			return err
		}
		if err := b.cache.Seed(symbol, tf, candles); err != nil {
			return err
		}
	}
	b.log.Info("history loaded", applogger.String("symbol", symbol))
	return nil
}

func (b *Bootstrapper) fetchWithRetry(ctx context.Context, symbol string, tf drepo.Timeframe) ([]models.Candle, error) {
	backoff := b.cfg.Backoff
	var lastErr error
	for attempt := 0; attempt <= b.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			if backoff > b.cfg.BackoffCap {
				backoff = b.cfg.BackoffCap
			}
		}
		candles, err := b.source.FetchKlines(ctx, symbol, tf, b.cfg.Limit)
		if err == nil {
			return candles, nil
		}
		lastErr = err
		b.log.Warn("history fetch retry",
			applogger.String("symbol", symbol),
			applogger.String("timeframe", string(tf)),
			applogger.Int("attempt", attempt+1),
			applogger.Error(err))
	}
	return nil, lastErr
}
