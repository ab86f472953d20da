// Package kafka publishes snapshots of the derived tables to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/us-heatmaps/internal/config"
	"github.com/couchcryptid/us-heatmaps/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Table names carried in message keys and the "table" header.
const (
	TableState  = "state"
	TableCounty = "county"
)

// Writer produces table rows to the snapshot topic.
// It implements pipeline.SnapshotLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
		BatchSize:    cfg.BatchSize,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadStateDaily publishes state rows in a single WriteMessages call.
func (w *Writer) LoadStateDaily(ctx context.Context, rows []domain.StateDaily) error {
	if len(rows) == 0 {
		return nil
	}
	publishedAt := domain.Now()
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeStateDaily(rows[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.write(ctx, TableState, msgs)
}

// LoadCountyDaily publishes county rows in a single WriteMessages call.
func (w *Writer) LoadCountyDaily(ctx context.Context, rows []domain.CountyDaily) error {
	if len(rows) == 0 {
		return nil
	}
	publishedAt := domain.Now()
	msgs := make([]kafkago.Message, len(rows))
	for i := range rows {
		msg, err := serializeCountyDaily(rows[i], publishedAt)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	return w.write(ctx, TableCounty, msgs)
}

func (w *Writer) write(ctx context.Context, table string, msgs []kafkago.Message) error {
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %s rows: %w", table, err)
	}
	w.logger.Debug("snapshot batch written", "table", table, "messages", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// StateKey is the message key of a state row.
func StateKey(r domain.StateDaily) string {
	return TableState + "|" + r.StateAbbrev + "|" + r.DateStr
}

// CountyKey is the message key of a county row.
func CountyKey(r domain.CountyDaily) string {
	return TableCounty + "|" + r.CountyCode + "|" + r.DateStr
}

func serializeStateDaily(r domain.StateDaily, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize state row: %w", err)
	}
	return newMessage(StateKey(r), data, TableState, publishedAt), nil
}

func serializeCountyDaily(r domain.CountyDaily, publishedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize county row: %w", err)
	}
	return newMessage(CountyKey(r), data, TableCounty, publishedAt), nil
}

func newMessage(key string, value []byte, table string, publishedAt time.Time) kafkago.Message {
	return kafkago.Message{
		Key:   []byte(key),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "table", Value: []byte(table)},
			{Key: "published_at", Value: []byte(publishedAt.Format(time.RFC3339))},
		},
	}
}
