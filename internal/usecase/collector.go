package usecase

import (
	"context"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	drepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	mid "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/middleware"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// Collector consumes the market stream and feeds the ingest pipeline.
type Collector struct {
	stream  drepo.MarketStream
	pipe    *mid.IngestPipeline
	metrics drepo.Metrics
	log     *applogger.Logger
}

// NewCollector creates a Collector.
func NewCollector(stream drepo.MarketStream, pipe *mid.IngestPipeline, metrics drepo.Metrics, log *applogger.Logger) *Collector {
	return &Collector{stream: stream, pipe: pipe, metrics: metrics, log: log}
}

// IsConnected reports stream transport state.
func (c *Collector) IsConnected() bool {
	return c.stream.IsConnected()
}

// Start connects, subscribes, and begins consuming in the background.
func (c *Collector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	updCh, tickCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, updCh, tickCh, errCh)
	return nil
}

// consume pumps one reader session and starts the next one after a stream
// failure. A session ends when the reader goroutine closes its channels, so
// every error is followed by a redial and a fresh Read.
func (c *Collector) consume(ctx context.Context, updCh <-chan *models.CandleUpdate, tickCh <-chan *models.PriceTick, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err != nil {
				c.metrics.RecordError("stream")
				c.log.Warn("stream error, reconnecting", applogger.Error(err))
			}
			updCh, tickCh, errCh = c.resume(ctx)
			if errCh == nil {
				return
			}
		case upd, ok := <-updCh:
			if !ok {
				// reader exited; a nil channel blocks until the errCh
				// branch swaps in the next session
				updCh = nil
				continue
			}
			if upd == nil {
				continue
			}
			_ = c.pipe.CandleUpdate(ctx, upd)
		case t, ok := <-tickCh:
			if !ok {
				tickCh = nil
				continue
			}
			if t == nil {
				continue
			}
			_ = c.pipe.PriceTick(ctx, t)
		}
	}
}

// resume redials until the stream is back, then starts a new reader.
// Returns nil channels once the context ends.
func (c *Collector) resume(ctx context.Context) (<-chan *models.CandleUpdate, <-chan *models.PriceTick, <-chan error) {
	for {
		if ctx.Err() != nil {
			return nil, nil, nil
		}
		if err := c.stream.Reconnect(ctx); err != nil {
			c.metrics.RecordError("stream_reconnect")
			c.log.Error("reconnect failed", applogger.Error(err))
			continue
		}
		return c.stream.Read(ctx)
	}
}

// Stop closes the stream.
func (c *Collector) Stop() error { return c.stream.Close() }
