package usecase

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/risk"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// DispatcherConfig fixes TP derivation and rounding.
type DispatcherConfig struct {
	TPMultiples [2]float64       // risk multiples for the two take-profits
	Precision   map[string]int32 // decimal places per symbol
	SendTimeout time.Duration
}

// Dispatcher turns a gated candidate into an alert, sends it, and books the
// send. Cooldown timestamps and daily counters advance only after the
// notification channel confirms; a failed send consumes no budget.
type Dispatcher struct {
	cfg      DispatcherConfig
	notifier repository.Notifier
	sigLog   repository.SignalLog
	gate     *risk.Gate
	metrics  repository.Metrics
	log      *applogger.Logger
}

// NewDispatcher creates the dispatcher.
func NewDispatcher(cfg DispatcherConfig, notifier repository.Notifier, sigLog repository.SignalLog, gate *risk.Gate, metrics repository.Metrics, log *applogger.Logger) *Dispatcher {
	if cfg.TPMultiples[0] <= 0 {
		cfg.TPMultiples = [2]float64{1.5, 3.0}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:      cfg,
		notifier: notifier,
		sigLog:   sigLog,
		gate:     gate,
		metrics:  metrics,
		log:      log,
	}
}

// Dispatch sends the alert built from cand with the finalized stop, then
// records cooldowns and counters. Source tags which pass produced it.
func (d *Dispatcher) Dispatch(ctx context.Context, cand *models.SignalCandidate, stop risk.StopResult, sizeFactor float64, source string) error {
	alert := d.buildAlert(cand, stop, sizeFactor, source)

	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
	defer cancel()

	start := time.Now()
	if err := d.notifier.Send(sendCtx, alert); err != nil {
		d.metrics.RecordError("notify_send")
		return fmt.Errorf("send alert %s %s: %w", alert.Symbol, alert.Type, err)
	}
	d.metrics.RecordLatency("notify_send", time.Since(start).Seconds())

	now := time.Now()
	d.gate.Record(alert.Symbol, alert.Type, now)
	d.metrics.RecordSignal(alert.Symbol, string(alert.Type))
	d.log.Info("alert dispatched",
		applogger.String("symbol", alert.Symbol),
		applogger.String("type", string(alert.Type)),
		applogger.String("direction", string(alert.Direction)),
		applogger.Any("confidence", alert.Confidence),
		applogger.String("source", source))

	d.appendLog(ctx, alert, now)
	return nil
}

func (d *Dispatcher) buildAlert(cand *models.SignalCandidate, stop risk.StopResult, sizeFactor float64, source string) *models.Alert {
	entry := d.round(cand.Symbol, cand.EntryPrice)
	stopPx := d.round(cand.Symbol, stop.Stop)
	riskDist := math.Abs(entry - stopPx)

	var tps [2]float64
	for i, m := range d.cfg.TPMultiples {
		if cand.Direction == models.Long {
			tps[i] = d.round(cand.Symbol, entry+riskDist*m)
		} else {
			tps[i] = d.round(cand.Symbol, entry-riskDist*m)
		}
	}

	return &models.Alert{
		Symbol:     cand.Symbol,
		Type:       cand.Type,
		Direction:  cand.Direction,
		Urgency:    cand.Urgency,
		Entry:      entry,
		Stop:       stopPx,
		TakeProfit: tps,
		Confidence: cand.Confidence,
		SizeFactor: sizeFactor,
		RiskPct:    stop.RiskPct,
		Clamped:    stop.WasClamped,
		Rationale:  cand.Rationale,
		Source:     source,
		CreatedAt:  time.Now(),
	}
}

func (d *Dispatcher) appendLog(ctx context.Context, a *models.Alert, sentAt time.Time) {
	if d.sigLog == nil {
		return
	}
	rec := &models.SignalRecord{
		Symbol:     a.Symbol,
		Type:       string(a.Type),
		Direction:  string(a.Direction),
		Entry:      a.Entry,
		Stop:       a.Stop,
		TP1:        a.TakeProfit[0],
		TP2:        a.TakeProfit[1],
		Confidence: a.Confidence,
		Source:     a.Source,
		SentAt:     sentAt,
	}
	logCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.sigLog.Append(logCtx, rec); err != nil {
		d.metrics.RecordError("signal_log")
		d.log.Warn("signal log append failed", applogger.Error(err))
	}
}

func (d *Dispatcher) round(symbol string, v float64) float64 {
	places, ok := d.cfg.Precision[symbol]
	if !ok {
		places = 4
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
