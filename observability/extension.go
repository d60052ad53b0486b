// Package observability provides a metrics extension for Tally that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"

	"github.com/xraph/tally/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnInit                = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated      = (*MetricsExtension)(nil)
	_ plugin.OnAccountDeactivated  = (*MetricsExtension)(nil)
	_ plugin.OnAccountReactivated  = (*MetricsExtension)(nil)
	_ plugin.OnTransactionPosted   = (*MetricsExtension)(nil)
	_ plugin.OnTransactionRejected = (*MetricsExtension)(nil)
	_ plugin.OnDraftDiscarded      = (*MetricsExtension)(nil)
	_ plugin.OnEntryReversed       = (*MetricsExtension)(nil)
	_ plugin.OnBalanceQueried      = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Tally plugin to automatically track ledger metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Account metrics
	AccountCreated     Counter
	AccountDeactivated Counter
	AccountReactivated Counter

	// Transaction metrics
	TransactionsPosted   Counter
	TransactionsRejected Counter
	DraftsDiscarded      Counter
	EntriesPosted        Histogram

	// Reversal metrics
	EntriesReversed Counter

	// Query metrics
	BalanceQueries Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Account metrics
		AccountCreated:     factory.Counter("tally.account.created"),
		AccountDeactivated: factory.Counter("tally.account.deactivated"),
		AccountReactivated: factory.Counter("tally.account.reactivated"),

		// Transaction metrics
		TransactionsPosted:   factory.Counter("tally.transaction.posted"),
		TransactionsRejected: factory.Counter("tally.transaction.rejected"),
		DraftsDiscarded:      factory.Counter("tally.draft.discarded"),
		EntriesPosted:        factory.Histogram("tally.transaction.entry_count"),

		// Reversal metrics
		EntriesReversed: factory.Counter("tally.entry.reversed"),

		// Query metrics
		BalanceQueries: factory.Counter("tally.balance.queries"),

		// Error metrics
		StoreErrors:  factory.Counter("tally.store.errors"),
		PluginErrors: factory.Counter("tally.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ interface{}) error {
	m.AccountCreated.Inc()
	return nil
}

// OnAccountDeactivated implements plugin.OnAccountDeactivated.
func (m *MetricsExtension) OnAccountDeactivated(_ context.Context, _ string) error {
	m.AccountDeactivated.Inc()
	return nil
}

// OnAccountReactivated implements plugin.OnAccountReactivated.
func (m *MetricsExtension) OnAccountReactivated(_ context.Context, _ string) error {
	m.AccountReactivated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Transaction lifecycle hooks
// ──────────────────────────────────────────────────

// OnTransactionPosted implements plugin.OnTransactionPosted.
func (m *MetricsExtension) OnTransactionPosted(_ context.Context, _ interface{}, entries []interface{}) error {
	m.TransactionsPosted.Inc()
	m.EntriesPosted.Observe(float64(len(entries)))
	return nil
}

// OnTransactionRejected implements plugin.OnTransactionRejected.
func (m *MetricsExtension) OnTransactionRejected(_ context.Context, _ string, _ error) error {
	m.TransactionsRejected.Inc()
	return nil
}

// OnDraftDiscarded implements plugin.OnDraftDiscarded.
func (m *MetricsExtension) OnDraftDiscarded(_ context.Context, _ string) error {
	m.DraftsDiscarded.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Reversal hooks
// ──────────────────────────────────────────────────

// OnEntryReversed implements plugin.OnEntryReversed.
func (m *MetricsExtension) OnEntryReversed(_ context.Context, _ string, _ interface{}) error {
	m.EntriesReversed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Query hooks
// ──────────────────────────────────────────────────

// OnBalanceQueried implements plugin.OnBalanceQueried.
func (m *MetricsExtension) OnBalanceQueried(_ context.Context, _ string, _ interface{}) error {
	m.BalanceQueries.Inc()
	return nil
}
