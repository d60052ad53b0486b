package kafkahook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func postedTransaction() (*transaction.Transaction, []interface{}) {
	now := time.Now().UTC()
	tx := &transaction.Transaction{
		ID:          id.NewTransactionID(),
		Description: "sale",
		EffectiveAt: now,
		RecordedAt:  now,
		PostedAt:    &now,
	}
	entry := &transaction.Entry{
		ID:            id.NewEntryID(),
		TransactionID: tx.ID,
		AccountID:     id.NewAccountID(),
		Amount:        types.MustAmount("10.00"),
		Side:          transaction.Debit,
		EffectiveAt:   now,
		RecordedAt:    now,
	}
	return tx, []interface{}{entry}
}

func TestOnTransactionPosted(t *testing.T) {
	w := &fakeWriter{}
	e := New([]string{"localhost:9092"}, "tally.events", WithWriter(w))

	tx, entries := postedTransaction()
	if err := e.OnTransactionPosted(context.Background(), tx, entries); err != nil {
		t.Fatalf("OnTransactionPosted() = %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.messages))
	}
	msg := w.messages[0]
	if string(msg.Key) != tx.ID.String() {
		t.Fatalf("key = %s, want %s", msg.Key, tx.ID)
	}

	var evt Event
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	if evt.Type != EventTransactionPosted {
		t.Fatalf("type = %s, want %s", evt.Type, EventTransactionPosted)
	}
	if evt.TransactionID != tx.ID.String() {
		t.Fatalf("transaction_id = %s, want %s", evt.TransactionID, tx.ID)
	}
	if len(evt.Entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(evt.Entries))
	}
}

func TestOnEntryReversed(t *testing.T) {
	w := &fakeWriter{}
	e := New([]string{"localhost:9092"}, "tally.events", WithWriter(w))

	rev, _ := postedTransaction()
	entryID := id.NewEntryID().String()
	if err := e.OnEntryReversed(context.Background(), entryID, rev); err != nil {
		t.Fatalf("OnEntryReversed() = %v", err)
	}

	if len(w.messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(w.messages))
	}

	var evt Event
	if err := json.Unmarshal(w.messages[0].Value, &evt); err != nil {
		t.Fatalf("Unmarshal() = %v", err)
	}
	if evt.Type != EventEntryReversed {
		t.Fatalf("type = %s, want %s", evt.Type, EventEntryReversed)
	}
	if evt.EntryID != entryID {
		t.Fatalf("entry_id = %s, want %s", evt.EntryID, entryID)
	}
	if evt.TransactionID != rev.ID.String() {
		t.Fatalf("transaction_id = %s, want %s", evt.TransactionID, rev.ID)
	}
}

func TestPublishError(t *testing.T) {
	wantErr := errors.New("broker down")
	e := New([]string{"localhost:9092"}, "tally.events", WithWriter(&fakeWriter{err: wantErr}))

	tx, entries := postedTransaction()
	if err := e.OnTransactionPosted(context.Background(), tx, entries); !errors.Is(err, wantErr) {
		t.Fatalf("OnTransactionPosted() = %v, want %v", err, wantErr)
	}
}

func TestShutdownClosesWriter(t *testing.T) {
	w := &fakeWriter{}
	e := New([]string{"localhost:9092"}, "tally.events", WithWriter(w))

	if err := e.OnShutdown(context.Background()); err != nil {
		t.Fatalf("OnShutdown() = %v", err)
	}
	if !w.closed {
		t.Fatal("expected writer closed")
	}
}
