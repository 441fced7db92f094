package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	drepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// Stream implements a MarketStream over the Binance combined websocket:
// one kline stream per (symbol, timeframe) plus an aggTrade stream per
// symbol for the last-trade price.
type Stream struct {
	baseURL        string
	symbols        []string
	timeframes     []drepo.Timeframe
	reconnectDelay time.Duration
	pingInterval   time.Duration
	log            *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

// control-frame write deadline
const writeWait = 10 * time.Second

// NewStream creates a Binance MarketStream.
func NewStream(baseURL string, symbols []string, tfs []drepo.Timeframe, reconnectDelay, pingInterval time.Duration, log *applogger.Logger) drepo.MarketStream {
	if reconnectDelay <= 0 {
		reconnectDelay = 3 * time.Second
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Stream{
		baseURL:        baseURL,
		symbols:        symbols,
		timeframes:     tfs,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		log:            log,
	}
}

// streamNames builds the combined-stream path segment.
func (s *Stream) streamNames() []string {
	var names []string
	for _, sym := range s.symbols {
		lower := strings.ToLower(sym)
		for _, tf := range s.timeframes {
			names = append(names, fmt.Sprintf("%s@kline_%s", lower, tf))
		}
		names = append(names, lower+"@aggTrade")
	}
	return names
}

// Connect dials the combined stream endpoint. Binance takes the
// subscription list in the URL, so Subscribe is a no-op afterwards.
func (s *Stream) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s/stream?streams=%s", s.baseURL, strings.Join(s.streamNames(), "/"))
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()
	s.log.Info("binance stream connected",
		applogger.Strings("symbols", s.symbols))
	return nil
}

// current returns the live connection, nil after Close.
func (s *Stream) current() *websocket.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

// Subscribe verifies the connection; the stream list rode in on the URL.
func (s *Stream) Subscribe(ctx context.Context) error {
	if s.current() == nil {
		return fmt.Errorf("binance not connected")
	}
	return nil
}

// combined-stream envelope
type wsEnvelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// kline event; prices arrive as strings
type wsKline struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	K      struct {
		OpenTime  int64  `json:"t"`
		CloseTime int64  `json:"T"`
		Interval  string `json:"i"`
		Open      string `json:"o"`
		High      string `json:"h"`
		Low       string `json:"l"`
		Close     string `json:"c"`
		Volume    string `json:"v"`
		Closed    bool   `json:"x"`
	} `json:"k"`
}

type wsAggTrade struct {
	Event  string `json:"e"`
	Symbol string `json:"s"`
	Price  string `json:"p"`
	Time   int64  `json:"T"` // ms
}

// Read streams candle updates, price ticks, and errors. One call owns one
// reader session: both goroutines bind to the connection current at call
// time, and the liveness pinger stops with the reader, so a later redial
// never shares state with an old session. All three channels close when the
// session ends, after at most one error.
func (s *Stream) Read(ctx context.Context) (<-chan *models.CandleUpdate, <-chan *models.PriceTick, <-chan error) {
	updates := make(chan *models.CandleUpdate, 1024)
	ticks := make(chan *models.PriceTick, 1024)
	errs := make(chan error, 1)

	conn := s.current()
	if conn == nil {
		errs <- fmt.Errorf("binance conn nil")
		close(updates)
		close(ticks)
		close(errs)
		return updates, ticks, errs
	}
	done := make(chan struct{})

	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
			}
		}
	}()

	go func() {
		defer close(updates)
		defer close(ticks)
		defer close(errs)
		defer close(done)

		pongWait := 2*s.pingInterval + writeWait
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}
			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("binance read: %w", err)
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(pongWait))
			s.handleFrame(b, updates, ticks)
		}
	}()

	return updates, ticks, errs
}

func (s *Stream) handleFrame(b []byte, updates chan<- *models.CandleUpdate, ticks chan<- *models.PriceTick) {
	var env wsEnvelope
	if err := json.Unmarshal(b, &env); err != nil || len(env.Data) == 0 {
		return
	}
	switch {
	case strings.Contains(env.Stream, "@kline_"):
		var k wsKline
		if err := json.Unmarshal(env.Data, &k); err != nil || k.Event != "kline" {
			return
		}
		upd, ok := parseKline(&k)
		if !ok {
			return
		}
		select {
		case updates <- upd:
		default:
			// drop on backpressure
		}
	case strings.HasSuffix(env.Stream, "@aggTrade"):
		var t wsAggTrade
		if err := json.Unmarshal(env.Data, &t); err != nil || t.Event != "aggTrade" {
			return
		}
		price, err := strconv.ParseFloat(t.Price, 64)
		if err != nil || price <= 0 {
			return
		}
		tick := &models.PriceTick{
			Symbol:    t.Symbol,
			Price:     price,
			Timestamp: time.UnixMilli(t.Time),
		}
		select {
		case ticks <- tick:
		default:
		}
	}
}

// parseKline converts the loosely typed payload into a strict candle;
// malformed numbers drop the frame.
func parseKline(k *wsKline) (*models.CandleUpdate, bool) {
	fields := [5]string{k.K.Open, k.K.High, k.K.Low, k.K.Close, k.K.Volume}
	var vals [5]float64
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, false
		}
		vals[i] = v
	}
	return &models.CandleUpdate{
		Symbol:    k.Symbol,
		Timeframe: k.K.Interval,
		Candle: models.Candle{
			OpenTime:  k.K.OpenTime,
			CloseTime: k.K.CloseTime,
			Open:      vals[0],
			High:      vals[1],
			Low:       vals[2],
			Close:     vals[3],
			Volume:    vals[4],
		},
	}, true
}

// Reconnect closes and redials after the backoff delay.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	return s.Subscribe(ctx)
}

// Close drops the connection. Closing the socket unblocks any reader
// session still on it.
func (s *Stream) Close() error {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.connected = false
	s.mu.Unlock()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsConnected reports transport state.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
