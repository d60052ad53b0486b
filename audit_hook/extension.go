// Package audithook bridges Tally lifecycle events to an audit trail backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/transaction"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnAccountCreated      = (*Extension)(nil)
	_ plugin.OnAccountDeactivated  = (*Extension)(nil)
	_ plugin.OnAccountReactivated  = (*Extension)(nil)
	_ plugin.OnTransactionPosted   = (*Extension)(nil)
	_ plugin.OnTransactionRejected = (*Extension)(nil)
	_ plugin.OnDraftDiscarded      = (*Extension)(nil)
	_ plugin.OnEntryReversed       = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly — callers inject
// the concrete *chronicle.Chronicle at wiring time.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
// It mirrors chronicle/audit.Event but avoids a module dependency.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges Tally lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (e *Extension) OnAccountCreated(ctx context.Context, _ interface{}) error {
	return e.record(ctx, ActionAccountCreated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, "", CategoryAccounting, nil,
		"event", "account_created",
	)
}

// OnAccountDeactivated implements plugin.OnAccountDeactivated.
func (e *Extension) OnAccountDeactivated(ctx context.Context, accountID string) error {
	return e.record(ctx, ActionAccountDeactivated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, accountID, CategoryAccounting, nil,
		"account_id", accountID,
	)
}

// OnAccountReactivated implements plugin.OnAccountReactivated.
func (e *Extension) OnAccountReactivated(ctx context.Context, accountID string) error {
	return e.record(ctx, ActionAccountReactivated, SeverityInfo, OutcomeSuccess,
		ResourceAccount, accountID, CategoryAccounting, nil,
		"account_id", accountID,
	)
}

// ──────────────────────────────────────────────────
// Transaction lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionPosted implements plugin.OnTransactionPosted.
func (e *Extension) OnTransactionPosted(ctx context.Context, tx interface{}, entries []interface{}) error {
	txID := ""
	if t, ok := tx.(*transaction.Transaction); ok {
		txID = t.ID.String()
	}

	return e.record(ctx, ActionTransactionPosted, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, txID, CategoryAccounting, nil,
		"transaction_id", txID,
		"entry_count", len(entries),
	)
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (e *Extension) OnTransactionRejected(ctx context.Context, description string, reason error) error {
	return e.record(ctx, ActionTransactionRejected, SeverityWarning, OutcomeFailure,
		ResourceTransaction, "", CategoryAccounting, reason,
		"description", description,
	)
}

// OnDraftDiscarded implements plugin.OnDraftDiscarded.
func (e *Extension) OnDraftDiscarded(ctx context.Context, transactionID string) error {
	return e.record(ctx, ActionDraftDiscarded, SeverityInfo, OutcomeSuccess,
		ResourceTransaction, transactionID, CategoryAccounting, nil,
		"transaction_id", transactionID,
	)
}

// ──────────────────────────────────────────────────
// Reversal hooks
// ──────────────────────────────────────────────────

// OnEntryReversed implements plugin.OnEntryReversed.
func (e *Extension) OnEntryReversed(ctx context.Context, entryID string, reversal interface{}) error {
	reversalID := ""
	if t, ok := reversal.(*transaction.Transaction); ok {
		reversalID = t.ID.String()
	}

	return e.record(ctx, ActionEntryReversed, SeverityWarning, OutcomeSuccess,
		ResourceEntry, entryID, CategoryCorrection, nil,
		"entry_id", entryID,
		"reversal_transaction_id", reversalID,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
