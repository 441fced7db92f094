package di

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/handler/api"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/market"
	mid "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/middleware"
	internalrepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/repository"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/risk"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/service/binance"
	icache "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/service/cache"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/service/telegram"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/services/detectors"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/usecase"
	pkgcache "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/cache"
	pkgch "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/clickhouse"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/config"
	xhttp "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/http"
	pkgkafka "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/kafka"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/metrics"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/server"
)

// ProvideLogger creates the structured application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: "stdout",
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client and initializes the
// signals schema. Returns nil when the sink is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, internalrepo.SignalsSchema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideKafkaProducer creates a Kafka producer, nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the consumer for the alternate candle feed,
// nil when the feed source is the websocket.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if cfg.Feed.Source != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRiskStore creates the risk state store. With Redis enabled the
// store is layered (memory in front of Redis) so state survives restarts;
// otherwise a process-local memory cache keeps the wiring uniform.
func ProvideRiskStore(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(pkgcache.WithMemoryMaxSize(64)), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc, pkgcache.WithLayeredMemorySize(64)), nil
}

// ProvideRiskState creates the risk state, optionally persisted.
func ProvideRiskState(store pkgcache.Service, log *applogger.Logger) *risk.State {
	var opts []risk.StateOption
	if store != nil {
		opts = append(opts, risk.WithStore(store))
	}
	return risk.NewState(log, opts...)
}

// ProvideGate creates the risk gate from config.
func ProvideGate(cfg *config.Config, state *risk.State, log *applogger.Logger) *risk.Gate {
	stopATR := make(map[models.SignalType]float64, len(cfg.Risk.StopATR))
	for k, v := range cfg.Risk.StopATR {
		stopATR[models.SignalType(k)] = v
	}
	return risk.NewGate(risk.GateConfig{
		MaxOpenPositions: cfg.Risk.MaxOpenPositions,
		MaxDailySignals:  cfg.Risk.MaxDailySignals,
		MaxSymbolDaily:   cfg.Risk.MaxSymbolDaily,
		MinConfidence:    cfg.Risk.MinConfidence,
		LossCooldown:     cfg.Risk.LossCooldown,
		SymbolCooldown:   cfg.Risk.SymbolCooldown,
		TypeCooldown:     cfg.Risk.TypeCooldown,
		SizeFloor:        cfg.Risk.SizeFloor,
		SizeCeiling:      cfg.Risk.SizeCeiling,
		MaxRiskPct:       cfg.Risk.MaxRiskPct,
		HardRiskPct:      cfg.Risk.HardRiskPct,
		StopATR:          stopATR,
		DefaultStopATR:   cfg.Risk.DefaultStopATR,
	}, state, log)
}

// ProvideMarketCache creates the per-instrument candle cache.
func ProvideMarketCache(cfg *config.Config) *market.Cache {
	symbols := make([]string, 0, len(cfg.Instruments))
	for _, ins := range cfg.Instruments {
		symbols = append(symbols, ins.Symbol)
	}
	tfs := make([]repository.Timeframe, 0, len(cfg.Timeframes.Tracked))
	for _, tf := range cfg.Timeframes.Tracked {
		tfs = append(tfs, repository.Timeframe(tf))
	}
	return market.NewCache(symbols, tfs, cfg.Cache.Capacity, cfg.Cache.MinBars, repository.Timeframe(cfg.Timeframes.Primary))
}

// ProvideBank builds the detector bank in priority order.
func ProvideBank(cfg *config.Config, log *applogger.Logger) *detectors.Bank {
	d := cfg.Detectors
	return detectors.NewBank(log,
		detectors.NewSweepReversal(detectors.SweepReversalConfig{
			Enabled:              d.SweepReversal.Enabled,
			BaseConfidence:       d.SweepReversal.BaseConfidence,
			MinQuality:           d.SweepReversal.MinQuality,
			MinWickRatio:         d.SweepReversal.MinWickRatio,
			MaxDepthATR:          d.SweepReversal.MaxDepthATR,
			VolumeWindow:         d.SweepReversal.VolumeWindow,
			ATRBuffer:            d.SweepReversal.ATRBuffer,
			ExtensionBreakpoints: d.SweepReversal.ExtensionBreakpoints,
		}),
		detectors.NewCVDDivergence(detectors.CVDDivergenceConfig{
			Enabled:        d.CVDDivergence.Enabled,
			BaseConfidence: d.CVDDivergence.BaseConfidence,
			ExtremeBand:    d.CVDDivergence.ExtremeBand,
			RangeWindow:    d.CVDDivergence.RangeWindow,
			MinPivotGap:    d.CVDDivergence.MinPivotGap,
			MinDiffPct:     d.CVDDivergence.MinDiffPct,
			RequireSweep:   d.CVDDivergence.RequireSweep,
			SweepQuality:   d.CVDDivergence.SweepQuality,
			ATRBuffer:      d.CVDDivergence.ATRBuffer,
		}),
		detectors.NewRSIDivergence(detectors.RSIDivergenceConfig{
			Enabled:        d.RSIDivergence.Enabled,
			BaseConfidence: d.RSIDivergence.BaseConfidence,
			Oversold:       d.RSIDivergence.Oversold,
			Overbought:     d.RSIDivergence.Overbought,
			MinPivotGap:    d.RSIDivergence.MinPivotGap,
			MinDiff:        d.RSIDivergence.MinDiff,
			RequireSweep:   d.RSIDivergence.RequireSweep,
			SweepQuality:   d.RSIDivergence.SweepQuality,
			ATRBuffer:      d.RSIDivergence.ATRBuffer,
		}),
		detectors.NewSRReaction(detectors.SRReactionConfig{
			Enabled:        d.SRReaction.Enabled,
			BaseConfidence: d.SRReaction.BaseConfidence,
			LevelTolATR:    d.SRReaction.LevelTolATR,
			MinWickRatio:   d.SRReaction.MinWickRatio,
			MinVolumeRatio: d.SRReaction.MinVolumeRatio,
			ATRBuffer:      d.SRReaction.ATRBuffer,
		}),
		detectors.NewBreakout(detectors.BreakoutConfig{
			Enabled:        d.Breakout.Enabled,
			BaseConfidence: d.Breakout.BaseConfidence,
			RangeLookback:  d.Breakout.RangeLookback,
			MinVolumeRatio: d.Breakout.MinVolumeRatio,
			VolExpansion:   d.Breakout.VolExpansion,
			ATRBuffer:      d.Breakout.ATRBuffer,
		}),
	)
}

// ProvideHTTPClient creates the shared outbound HTTP client.
func ProvideHTTPClient() *xhttp.Client {
	return xhttp.NewClient(xhttp.WithTimeout(30 * time.Second))
}

// ProvideStream creates the Binance websocket market stream.
func ProvideStream(cfg *config.Config, log *applogger.Logger) repository.MarketStream {
	symbols := make([]string, 0, len(cfg.Instruments))
	for _, ins := range cfg.Instruments {
		symbols = append(symbols, ins.Symbol)
	}
	tfs := make([]repository.Timeframe, 0, len(cfg.Timeframes.Tracked))
	for _, tf := range cfg.Timeframes.Tracked {
		tfs = append(tfs, repository.Timeframe(tf))
	}
	return binance.NewStream(
		cfg.Feed.Binance.WebSocketURL,
		symbols,
		tfs,
		cfg.Feed.Binance.ReconnectDelay,
		cfg.Feed.Binance.PingInterval,
		log,
	)
}

// ProvideHistory creates the REST history source.
func ProvideHistory(cfg *config.Config, client *xhttp.Client) repository.HistorySource {
	return binance.NewHistory(cfg.Feed.Binance.RestURL, client)
}

// ProvideSignalLog composes the enabled signal sinks. With none enabled
// the dispatcher simply skips the append.
func ProvideSignalLog(producer *pkgkafka.Producer, chClient *pkgch.Client, cfg *config.Config, log *applogger.Logger) repository.SignalLog {
	var sinks []repository.SignalLog
	if producer != nil {
		sinks = append(sinks, internalrepo.NewKafkaSignalLog(producer, cfg.Kafka.SignalsTopic))
	}
	if chClient != nil {
		sinks = append(sinks, internalrepo.NewClickHouseSignalLog(chClient, log))
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return internalrepo.NewMultiLog(sinks...)
	}
}

// logNotifier is the fallback sink when Telegram is disabled; alerts land
// in the structured log only.
type logNotifier struct {
	log *applogger.Logger
}

func (n *logNotifier) Send(_ context.Context, a *models.Alert) error {
	n.log.Info("alert",
		applogger.String("symbol", a.Symbol),
		applogger.String("type", string(a.Type)),
		applogger.String("direction", string(a.Direction)),
		applogger.Any("entry", a.Entry),
		applogger.Any("stop", a.Stop),
		applogger.Any("tp", a.TakeProfit))
	return nil
}

// ProvideNotifier creates the Telegram notifier or the log fallback.
func ProvideNotifier(cfg *config.Config, client *xhttp.Client, log *applogger.Logger) repository.Notifier {
	if !cfg.Telegram.Enabled {
		return &logNotifier{log: log}
	}
	return telegram.NewNotifier(cfg.Telegram.BaseURL, cfg.Telegram.Token, cfg.Telegram.ChatID, client)
}

// ProvideDispatcher creates the alert dispatcher.
func ProvideDispatcher(cfg *config.Config, notifier repository.Notifier, sigLog repository.SignalLog, gate *risk.Gate, m repository.Metrics, log *applogger.Logger) *usecase.Dispatcher {
	precision := make(map[string]int32, len(cfg.Instruments))
	for _, ins := range cfg.Instruments {
		precision[ins.Symbol] = ins.Precision
	}
	var tps [2]float64
	copy(tps[:], cfg.Dispatch.TPMultiples)
	return usecase.NewDispatcher(usecase.DispatcherConfig{
		TPMultiples: tps,
		Precision:   precision,
		SendTimeout: cfg.Dispatch.SendTimeout,
	}, notifier, sigLog, gate, m, log)
}

// ProvideEngine creates the evaluation engine.
func ProvideEngine(cfg *config.Config, cache *market.Cache, bank *detectors.Bank, gate *risk.Gate, dispatcher *usecase.Dispatcher, m repository.Metrics, log *applogger.Logger) *usecase.Engine {
	return usecase.NewEngine(usecase.EngineConfig{
		QueueSize:  cfg.Engine.QueueSize,
		TickBurst:  cfg.Engine.TickBurst,
		TickPerSec: cfg.Engine.TickPerSec,
		FeatureConfig: detectors.FeatureConfig{
			OrderFlowLookback: cfg.Features.OrderFlowLookback,
			PivotLeft:         cfg.Features.PivotLeft,
			PivotRight:        cfg.Features.PivotRight,
			RSIPeriod:         cfg.Features.RSIPeriod,
			ATRPeriod:         cfg.Features.ATRPeriod,
			LevelCount:        cfg.Features.LevelCount,
			ConfirmTimeframe:  repository.Timeframe(cfg.Timeframes.Confirm),
		},
		PrimaryTF: repository.Timeframe(cfg.Timeframes.Primary),
	}, cache, bank, gate, dispatcher, m, log)
}

// ProvideIngestPipeline creates the validation/throttle layer.
func ProvideIngestPipeline(engine *usecase.Engine, m repository.Metrics, cfg *config.Config) *mid.IngestPipeline {
	return mid.NewIngestPipeline(engine, m,
		mid.WithMaxTicksPerSec(cfg.Feed.MaxTicksPerSec),
	)
}

// ProvideCollector creates the stream collector.
func ProvideCollector(stream repository.MarketStream, pipe *mid.IngestPipeline, m repository.Metrics, log *applogger.Logger) *usecase.Collector {
	return usecase.NewCollector(stream, pipe, m, log)
}

// ProvideKlinesHandler creates the Kafka candle feed handler.
func ProvideKlinesHandler(cfg *config.Config, pipe *mid.IngestPipeline) pkgkafka.MessageHandler {
	return usecase.NewKlinesHandler(cfg.Feed.KlinesTopic, pipe)
}

// ProvideBootstrapper creates the history bootstrapper.
func ProvideBootstrapper(cfg *config.Config, source repository.HistorySource, cache *market.Cache, m repository.Metrics, log *applogger.Logger) *usecase.Bootstrapper {
	return usecase.NewBootstrapper(usecase.BootstrapConfig{
		Limit:      cfg.Bootstrap.Limit,
		MaxRetries: cfg.Bootstrap.MaxRetries,
		Backoff:    cfg.Bootstrap.Backoff,
		BackoffCap: cfg.Bootstrap.BackoffCap,
	}, source, cache, m, log)
}

// ProvideStatusHandler creates the HTTP API handler. Snapshot responses
// are cached in Redis when available so replicas share one cache.
func ProvideStatusHandler(cfg *config.Config, log *applogger.Logger, cache *market.Cache, state *risk.State, collector *usecase.Collector) xhttp.Handler {
	var resp icache.BytesCache = icache.NewTTLCache()
	if cfg.Redis.Enabled {
		resp = icache.NewRedisCache(icache.RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		})
	}
	return api.NewStatusHandler(log, cache, state, collector, resp)
}

// producerPublisher adapts the Kafka producer to the log collector's
// Publisher interface.
type producerPublisher struct {
	p *pkgkafka.Producer
}

func (pp *producerPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return pp.p.Publish(ctx, topic, nil, payload)
}

// consumerMetricsHook instruments the candle feed consumer with handle
// latency and error counters.
func consumerMetricsHook(m repository.Metrics) pkgkafka.ConsumerHook {
	return pkgkafka.HookFuncs{
		Before: func(ctx context.Context, _ string, km kafka.Message, data []byte) (context.Context, kafka.Message, []byte, error) {
			return pkgkafka.WithStartTime(ctx, time.Now()), km, data, nil
		},
		After: func(ctx context.Context, _ string, _ kafka.Message, _ []byte, err error) {
			if start, ok := ctx.Value(pkgkafka.CtxStartTime).(time.Time); ok {
				m.RecordLatency("kafka_handle", time.Since(start).Seconds())
			}
			if err != nil {
				m.RecordError("kafka_handle")
			}
		},
	}
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	bootstrap *usecase.Bootstrapper,
	engine *usecase.Engine,
	collector *usecase.Collector,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	producer *pkgkafka.Producer,
	sigLog repository.SignalLog,
	chClient *pkgch.Client,
	m repository.Metrics,
	handler xhttp.Handler,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(consumerMetricsHook(m))
	}
	if producer != nil {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.SignalsTopic + ".errors",
			Publisher:      &producerPublisher{p: producer},
		})
	}
	return server.New(cfg, log, bootstrap, engine, collector, consumer, kh, sigLog, chClient, handler)
}
