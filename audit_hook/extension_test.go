package audithook

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transaction"
)

func collectEvents(events *[]*AuditEvent) Recorder {
	return RecorderFunc(func(_ context.Context, evt *AuditEvent) error {
		*events = append(*events, evt)
		return nil
	})
}

func TestAccountHooks(t *testing.T) {
	var events []*AuditEvent
	e := New(collectEvents(&events))
	ctx := context.Background()

	if err := e.OnAccountCreated(ctx, nil); err != nil {
		t.Fatalf("OnAccountCreated() = %v", err)
	}
	if err := e.OnAccountDeactivated(ctx, "acct_1"); err != nil {
		t.Fatalf("OnAccountDeactivated() = %v", err)
	}
	if err := e.OnAccountReactivated(ctx, "acct_1"); err != nil {
		t.Fatalf("OnAccountReactivated() = %v", err)
	}

	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	if events[0].Action != ActionAccountCreated {
		t.Fatalf("action = %s, want %s", events[0].Action, ActionAccountCreated)
	}
	if events[1].ResourceID != "acct_1" {
		t.Fatalf("resource_id = %s, want acct_1", events[1].ResourceID)
	}
}

func TestTransactionHooks(t *testing.T) {
	var events []*AuditEvent
	e := New(collectEvents(&events))
	ctx := context.Background()

	now := time.Now().UTC()
	tx := &transaction.Transaction{
		ID:         id.NewTransactionID(),
		RecordedAt: now,
		PostedAt:   &now,
	}

	if err := e.OnTransactionPosted(ctx, tx, []interface{}{nil, nil}); err != nil {
		t.Fatalf("OnTransactionPosted() = %v", err)
	}
	if err := e.OnTransactionRejected(ctx, "bad draft", errors.New("unbalanced")); err != nil {
		t.Fatalf("OnTransactionRejected() = %v", err)
	}

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}

	posted := events[0]
	if posted.Action != ActionTransactionPosted || posted.ResourceID != tx.ID.String() {
		t.Fatalf("posted event = %+v", posted)
	}
	if posted.Metadata["entry_count"] != 2 {
		t.Fatalf("entry_count = %v, want 2", posted.Metadata["entry_count"])
	}

	rejected := events[1]
	if rejected.Outcome != OutcomeFailure || rejected.Reason != "unbalanced" {
		t.Fatalf("rejected event = %+v", rejected)
	}
}

func TestReversalHook(t *testing.T) {
	var events []*AuditEvent
	e := New(collectEvents(&events))

	rev := &transaction.Transaction{ID: id.NewTransactionID()}
	if err := e.OnEntryReversed(context.Background(), "ent_1", rev); err != nil {
		t.Fatalf("OnEntryReversed() = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	evt := events[0]
	if evt.Action != ActionEntryReversed || evt.Severity != SeverityWarning {
		t.Fatalf("event = %+v", evt)
	}
	if evt.Metadata["reversal_transaction_id"] != rev.ID.String() {
		t.Fatalf("reversal_transaction_id = %v", evt.Metadata["reversal_transaction_id"])
	}
}

func TestEnabledActionFiltering(t *testing.T) {
	var events []*AuditEvent
	e := New(collectEvents(&events), WithEnabledActions(ActionEntryReversed))
	ctx := context.Background()

	if err := e.OnAccountCreated(ctx, nil); err != nil {
		t.Fatalf("OnAccountCreated() = %v", err)
	}
	if err := e.OnEntryReversed(ctx, "ent_1", nil); err != nil {
		t.Fatalf("OnEntryReversed() = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Action != ActionEntryReversed {
		t.Fatalf("action = %s", events[0].Action)
	}
}

func TestDisabledActionFiltering(t *testing.T) {
	var events []*AuditEvent
	e := New(collectEvents(&events), WithDisabledActions(ActionAccountCreated))
	ctx := context.Background()

	if err := e.OnAccountCreated(ctx, nil); err != nil {
		t.Fatalf("OnAccountCreated() = %v", err)
	}
	if err := e.OnDraftDiscarded(ctx, "txn_1"); err != nil {
		t.Fatalf("OnDraftDiscarded() = %v", err)
	}

	if len(events) != 1 {
		t.Fatalf("events = %d, want 1", len(events))
	}
	if events[0].Action != ActionDraftDiscarded {
		t.Fatalf("action = %s", events[0].Action)
	}
}

func TestRecorderErrorNotPropagated(t *testing.T) {
	e := New(RecorderFunc(func(context.Context, *AuditEvent) error {
		return errors.New("sink unavailable")
	}))

	// Audit failures are logged, never bubbled into the posting path.
	if err := e.OnAccountCreated(context.Background(), nil); err != nil {
		t.Fatalf("OnAccountCreated() = %v, want nil", err)
	}
}
