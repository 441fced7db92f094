package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	drepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	apphttp "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/http"
)

// History implements HistorySource over the Binance REST klines endpoint.
type History struct {
	baseURL string
	client  *apphttp.Client
}

// NewHistory creates a History source.
func NewHistory(baseURL string, client *apphttp.Client) drepo.HistorySource {
	return &History{baseURL: baseURL, client: client}
}

// FetchKlines fetches up to limit most recent bars for (symbol, tf).
// Binance returns each bar as a positional array with string prices.
func (h *History) FetchKlines(ctx context.Context, symbol string, tf drepo.Timeframe, limit int) ([]models.Candle, error) {
	var rows [][]json.RawMessage
	opts := &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    h.baseURL + "/api/v3/klines",
		QueryParams: map[string][]string{
			"symbol":   {symbol},
			"interval": {string(tf)},
			"limit":    {strconv.Itoa(limit)},
		},
	}
	if err := h.client.SendAndParse(ctx, opts, &rows); err != nil {
		return nil, fmt.Errorf("fetch klines %s %s: %w", symbol, tf, err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		c, err := parseKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse kline %s %s: %w", symbol, tf, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func parseKlineRow(row []json.RawMessage) (models.Candle, error) {
	if len(row) < 7 {
		return models.Candle{}, fmt.Errorf("short row: %d fields", len(row))
	}
	var c models.Candle
	if err := json.Unmarshal(row[0], &c.OpenTime); err != nil {
		return models.Candle{}, err
	}
	if err := json.Unmarshal(row[6], &c.CloseTime); err != nil {
		return models.Candle{}, err
	}
	fields := []*float64{&c.Open, &c.High, &c.Low, &c.Close, &c.Volume}
	for i, dst := range fields {
		var s string
		if err := json.Unmarshal(row[i+1], &s); err != nil {
			return models.Candle{}, err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return models.Candle{}, err
		}
		*dst = v
	}
	return c, nil
}
