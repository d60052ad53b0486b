// Package kafkahook publishes Tally lifecycle events to Kafka topics.
//
// It hangs off the plugin registry like any other extension: posted
// transactions and reversals become JSON messages on a configurable topic.
// The writer is the segmentio/kafka-go Writer, but the extension only
// depends on its WriteMessages method so tests can inject a fake.
package kafkahook

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin              = (*Extension)(nil)
	_ plugin.OnTransactionPosted = (*Extension)(nil)
	_ plugin.OnEntryReversed     = (*Extension)(nil)
	_ plugin.OnShutdown          = (*Extension)(nil)

	_ MessageWriter = (*kafka.Writer)(nil)
)

// MessageWriter is the subset of kafka.Writer the extension uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Event is the JSON envelope published for every ledger event.
type Event struct {
	Type          string                   `json:"type"`
	TransactionID string                   `json:"transaction_id"`
	EntryID       string                   `json:"entry_id,omitempty"`
	Transaction   *transaction.Transaction `json:"transaction,omitempty"`
	Entries       []*transaction.Entry     `json:"entries,omitempty"`
	OccurredAt    time.Time                `json:"occurred_at"`
}

// Event type values.
const (
	EventTransactionPosted = "transaction.posted"
	EventEntryReversed     = "entry.reversed"
)

// Extension publishes ledger events to Kafka.
type Extension struct {
	writer MessageWriter
	logger *slog.Logger
}

// New creates an Extension writing to the given brokers and topic.
func New(brokers []string, topic string, opts ...Option) *Extension {
	e := &Extension{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "kafka-hook" }

// OnTransactionPosted implements plugin.OnTransactionPosted.
func (e *Extension) OnTransactionPosted(ctx context.Context, tx interface{}, entries []interface{}) error {
	t, ok := tx.(*transaction.Transaction)
	if !ok {
		return nil
	}

	ents := make([]*transaction.Entry, 0, len(entries))
	for _, raw := range entries {
		if en, ok := raw.(*transaction.Entry); ok {
			ents = append(ents, en)
		}
	}

	return e.publish(ctx, t.ID.String(), &Event{
		Type:          EventTransactionPosted,
		TransactionID: t.ID.String(),
		Transaction:   t,
		Entries:       ents,
		OccurredAt:    time.Now().UTC(),
	})
}

// OnEntryReversed implements plugin.OnEntryReversed.
func (e *Extension) OnEntryReversed(ctx context.Context, entryID string, reversal interface{}) error {
	evt := &Event{
		Type:       EventEntryReversed,
		EntryID:    entryID,
		OccurredAt: time.Now().UTC(),
	}
	key := entryID
	if t, ok := reversal.(*transaction.Transaction); ok {
		evt.TransactionID = t.ID.String()
		evt.Transaction = t
		key = t.ID.String()
	}

	return e.publish(ctx, key, evt)
}

// OnShutdown implements plugin.OnShutdown.
func (e *Extension) OnShutdown(_ context.Context) error {
	return e.writer.Close()
}

func (e *Extension) publish(ctx context.Context, key string, evt *Event) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}

	if err := e.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: data,
	}); err != nil {
		e.logger.Warn("kafka_hook: failed to publish event",
			"type", evt.Type,
			"key", key,
			"error", err,
		)
		return err
	}

	return nil
}
