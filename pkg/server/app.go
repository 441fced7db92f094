package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	drepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/usecase"
	pkgch "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/clickhouse"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/config"
	xhttp "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/http"
	pkgkafka "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/kafka"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	bootstrap *usecase.Bootstrapper
	engine    *usecase.Engine
	collector *usecase.Collector
	consumer  *pkgkafka.Consumer
	kh        pkgkafka.MessageHandler
	sigLog    drepo.SignalLog
	chClient  *pkgch.Client
	handler   xhttp.Handler

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	bootstrap *usecase.Bootstrapper,
	engine *usecase.Engine,
	collector *usecase.Collector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	sigLog drepo.SignalLog,
	chClient *pkgch.Client,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		bootstrap: bootstrap,
		engine:    engine,
		collector: collector,
		consumer:  consumer,
		kh:        kh,
		sigLog:    sigLog,
		chClient:  chClient,
		handler:   handler,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// seed history before any evaluation; failures exclude per instrument
	tfs := make([]drepo.Timeframe, 0, len(a.cfg.Timeframes.Tracked))
	for _, tf := range a.cfg.Timeframes.Tracked {
		tfs = append(tfs, drepo.Timeframe(tf))
	}
	a.bootstrap.Load(ctx, tfs)

	switch a.cfg.Feed.Source {
	case "kafka":
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka feed started", applogger.String("topic", a.kh.Topic()))
	default:
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.log.Error("collector error", applogger.Error(err))
			}
		}()
		a.log.Info("binance feed started")
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithServerLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops intake first, drains in-flight evaluation passes, then
// closes the outward-facing pieces.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Stop(); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	// lets in-flight sends finish before anything closes underneath them
	a.engine.Stop()

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	// flushes any aggregated error logs while the producer is still up
	a.log.RemoveCollector()

	if a.sigLog != nil {
		if err := a.sigLog.Close(); err != nil {
			a.log.Warn("signal log close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
