package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	mid "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/middleware"
)

// KlinesHandler consumes candle updates from a Kafka topic as the alternate
// feed and pushes them through the same ingest pipeline as the websocket.
type KlinesHandler struct {
	topic string
	pipe  *mid.IngestPipeline
}

// NewKlinesHandler creates a handler for the given topic.
func NewKlinesHandler(topic string, pipe *mid.IngestPipeline) *KlinesHandler {
	return &KlinesHandler{topic: topic, pipe: pipe}
}

// Topic returns the subscribed topic.
func (h *KlinesHandler) Topic() string { return h.topic }

type klineMessage struct {
	Symbol    string  `json:"symbol"`
	Timeframe string  `json:"timeframe"`
	OpenTime  int64   `json:"open_time"`
	CloseTime int64   `json:"close_time"`
	Open      float64 `json:"o"`
	High      float64 `json:"h"`
	Low       float64 `json:"l"`
	Close     float64 `json:"c"`
	Volume    float64 `json:"v"`
}

// Handle decodes one message and forwards it. A malformed payload is an
// error so the consumer's retry/DLQ policy applies.
func (h *KlinesHandler) Handle(ctx context.Context, value []byte) error {
	var m klineMessage
	if err := json.Unmarshal(value, &m); err != nil {
		return fmt.Errorf("decode kline message: %w", err)
	}
	upd := &models.CandleUpdate{
		Symbol:    m.Symbol,
		Timeframe: m.Timeframe,
		Candle: models.Candle{
			OpenTime:  m.OpenTime,
			CloseTime: m.CloseTime,
			Open:      m.Open,
			High:      m.High,
			Low:       m.Low,
			Close:     m.Close,
			Volume:    m.Volume,
		},
	}
	return h.pipe.CandleUpdate(ctx, upd)
}
