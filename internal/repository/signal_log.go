package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/models"
	domrepo "github.com/Harqheem/sol-usdt-trader-app-sub002/internal/domain/repository"
	pkgch "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/clickhouse"
	pkgkafka "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/kafka"
	applogger "github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/logger"
)

// SignalsSchema creates the analytics table; run through
// clickhouse.Client.InitSchema at startup.
var SignalsSchema = []string{
	`CREATE TABLE IF NOT EXISTS signals (
		sent_at    DateTime64(3),
		symbol     LowCardinality(String),
		type       LowCardinality(String),
		direction  LowCardinality(String),
		entry      Float64,
		stop       Float64,
		tp1        Float64,
		tp2        Float64,
		confidence Float64,
		source     LowCardinality(String)
	) ENGINE = MergeTree()
	ORDER BY (symbol, sent_at)`,
}

// KafkaSignalLog appends signal records to a Kafka topic, keyed by symbol
// so one instrument's signals stay ordered within a partition.
type KafkaSignalLog struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaSignalLog creates a Kafka-backed signal log.
func NewKafkaSignalLog(producer *pkgkafka.Producer, topic string) domrepo.SignalLog {
	return &KafkaSignalLog{producer: producer, topic: topic}
}

func (l *KafkaSignalLog) Append(ctx context.Context, rec *models.SignalRecord) error {
	return l.producer.Publish(ctx, l.topic, []byte(rec.Symbol), rec)
}

func (l *KafkaSignalLog) Close() error {
	if l.producer != nil {
		return l.producer.Close()
	}
	return nil
}

// ClickHouseSignalLog appends signal records to the signals table.
type ClickHouseSignalLog struct {
	db *sql.DB
	l  *applogger.Logger
}

// NewClickHouseSignalLog creates a ClickHouse-backed signal log.
func NewClickHouseSignalLog(ch *pkgch.Client, l *applogger.Logger) domrepo.SignalLog {
	return &ClickHouseSignalLog{db: ch.DB(), l: l}
}

func (s *ClickHouseSignalLog) Append(ctx context.Context, rec *models.SignalRecord) error {
	const q = `INSERT INTO signals
		(sent_at, symbol, type, direction, entry, stop, tp1, tp2, confidence, source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, q,
		rec.SentAt,
		rec.Symbol,
		rec.Type,
		rec.Direction,
		rec.Entry,
		rec.Stop,
		rec.TP1,
		rec.TP2,
		rec.Confidence,
		rec.Source,
	)
	if err != nil {
		s.l.Error("clickhouse signal insert error",
			applogger.String("symbol", rec.Symbol),
			applogger.Error(err))
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (s *ClickHouseSignalLog) Close() error {
	return nil // client owns the connection
}

// MultiLog fans one append out to several sinks; the first error wins but
// every sink still sees the record.
type MultiLog struct {
	logs []domrepo.SignalLog
}

// NewMultiLog composes signal logs.
func NewMultiLog(logs ...domrepo.SignalLog) domrepo.SignalLog {
	return &MultiLog{logs: logs}
}

func (m *MultiLog) Append(ctx context.Context, rec *models.SignalRecord) error {
	var firstErr error
	for _, l := range m.logs {
		if err := l.Append(ctx, rec); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *MultiLog) Close() error {
	var firstErr error
	for _, l := range m.logs {
		if err := l.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
