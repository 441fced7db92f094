package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	domrepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/risk"
	icache "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/service/cache"
	apimetrics "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/service/metrics"
	pkgcache "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/cache"
	xhttp "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/http"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
	xutil "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/util"
)

// StreamStatus is the minimal view the handler needs from the collector.
type StreamStatus interface {
	IsConnected() bool
}

// StatusHandler serves the operational status and snapshot endpoints.
type StatusHandler struct {
	l      *applogger.Logger
	cache  *market.Cache
	state  *risk.State
	stream StreamStatus
	resp   icache.BytesCache // short-TTL cache for snapshot JSON
}

// NewStatusHandler creates the handler.
func NewStatusHandler(l *applogger.Logger, cache *market.Cache, state *risk.State, stream StreamStatus, resp icache.BytesCache) *StatusHandler {
	apimetrics.Register()
	return &StatusHandler{l: l, cache: cache, state: state, stream: stream, resp: resp}
}

// RegisterRoutes registers the API routes.
func (h *StatusHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.GET("/health", h.health)
	g.GET("/status", h.status)
	g.GET("/snapshot/:symbol", h.snapshot)
	g.POST("/position-closed", h.positionClosed)
}

type healthResponse struct {
	StreamConnected bool            `json:"stream_connected"`
	Instruments     map[string]bool `json:"instruments"` // readiness per symbol
}

func (h *StatusHandler) health(c echo.Context) error {
	start := time.Now()
	ready := make(map[string]bool)
	for _, sym := range h.cache.Symbols() {
		ready[sym] = h.cache.Ready(sym)
	}
	resp := healthResponse{
		StreamConnected: h.stream.IsConnected(),
		Instruments:     ready,
	}
	apimetrics.APILatency.WithLabelValues("health").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, resp)
}

func (h *StatusHandler) status(c echo.Context) error {
	start := time.Now()
	view := h.state.View()
	apimetrics.APILatency.WithLabelValues("status").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, view)
}

type snapshotRequest struct {
	Timeframe string `query:"timeframe" default:"5m" validate:"required"`
	Limit     int    `query:"limit" default:"100" validate:"gte=1,lte=500"`
}

type snapshotResponse struct {
	Symbol    string      `json:"symbol"`
	Price     float64     `json:"price"`
	Ready     bool        `json:"ready"`
	Timeframe string      `json:"timeframe"`
	Candles   interface{} `json:"candles"`
}

func (h *StatusHandler) snapshot(c echo.Context) error {
	start := time.Now()
	symbol := c.Param("symbol")

	var req snapshotRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		apimetrics.APIErrors.WithLabelValues("snapshot").Inc()
		return xhttp.BadRequestResponse(c, errs)
	}
	if !domrepo.IsValidTimeframe(domrepo.Timeframe(req.Timeframe)) {
		apimetrics.APIErrors.WithLabelValues("snapshot").Inc()
		return xhttp.BadRequestResponse(c, "unknown timeframe")
	}
	tf := domrepo.Timeframe(req.Timeframe)

	from := xhttp.ParseTimeDefault(c.QueryParam("from"), time.Time{})
	to := xhttp.ParseTimeDefault(c.QueryParam("to"), time.Time{})
	if !from.IsZero() || !to.IsZero() {
		from, to = xutil.AlignFromTo(from, to, string(tf))
	}

	key := pkgcache.GenerateKeyWithParams("snap", symbol, string(tf), req.Limit, from.Unix(), to.Unix())
	if h.resp != nil {
		if b, ok, _ := h.resp.GetBytes(key); ok {
			return c.JSONBlob(http.StatusOK, b)
		}
	}

	snap, err := h.cache.Snapshot(symbol)
	if err != nil {
		apimetrics.APIErrors.WithLabelValues("snapshot").Inc()
		return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()).WithError(err))
	}
	candles := clipRange(snap.Candles(tf), from, to)
	if len(candles) > req.Limit {
		candles = candles[len(candles)-req.Limit:]
	}
	resp := snapshotResponse{
		Symbol:    snap.Symbol,
		Price:     snap.Price,
		Ready:     snap.Ready,
		Timeframe: string(tf),
		Candles:   candles,
	}

	if h.resp != nil {
		if b, err := json.Marshal(xhttp.APIResponse{Status: http.StatusOK, Message: http.StatusText(http.StatusOK), Data: resp}); err == nil {
			_ = h.resp.SetBytes(key, b, 2*time.Second)
		}
	}
	apimetrics.APILatency.WithLabelValues("snapshot").Observe(time.Since(start).Seconds())
	return xhttp.SuccessResponse(c, resp)
}

// clipRange narrows candles to [from, to] by open time. Zero bounds are
// open-ended. Candles are already time-ordered.
func clipRange(candles []models.Candle, from, to time.Time) []models.Candle {
	lo, hi := 0, len(candles)
	if !from.IsZero() {
		fm := from.UnixMilli()
		for lo < hi && candles[lo].OpenTime < fm {
			lo++
		}
	}
	if !to.IsZero() {
		tm := to.UnixMilli()
		for hi > lo && candles[hi-1].OpenTime > tm {
			hi--
		}
	}
	return candles[lo:hi]
}

type positionClosedRequest struct {
	Won bool `json:"won"`
}

// positionClosed is the external close event: drops the open position
// count and arms the loss cooldown on a losing close.
func (h *StatusHandler) positionClosed(c echo.Context) error {
	var req positionClosedRequest
	if errs := xhttp.ReadAndValidateRequest(c, &req); errs != nil {
		apimetrics.APIErrors.WithLabelValues("position_closed").Inc()
		return xhttp.BadRequestResponse(c, errs)
	}
	h.state.PositionClosed(req.Won, time.Now())
	h.l.Info("position closed", applogger.Bool("won", req.Won))
	return xhttp.SuccessResponse(c, h.state.View())
}
