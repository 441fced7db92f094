package repository

import (
	"context"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
)

// MarketStream delivers incremental candle updates and last-trade-price
// ticks for the subscribed symbols.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.CandleUpdate, <-chan *models.PriceTick, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// HistorySource fetches historical bars for cache bootstrap and recovery.
type HistorySource interface {
	FetchKlines(ctx context.Context, symbol string, tf Timeframe, limit int) ([]models.Candle, error)
}

// Notifier delivers one alert to the outbound notification channel.
// Delivery is fire-and-forget; the caller logs failures and moves on.
type Notifier interface {
	Send(ctx context.Context, a *models.Alert) error
}

// SignalLog appends one record per dispatched signal. Append failures are
// logged, never block dispatch.
type SignalLog interface {
	Append(ctx context.Context, rec *models.SignalRecord) error
	Close() error
}

// Metrics records operational metrics for the pipeline.
type Metrics interface {
	RecordSignal(symbol, sigType string)
	RecordGateRejection(reason string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
}
