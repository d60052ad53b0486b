package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit                []OnInit
	onShutdown            []OnShutdown
	onAccountCreated      []OnAccountCreated
	onAccountDeactivated  []OnAccountDeactivated
	onAccountReactivated  []OnAccountReactivated
	onTransactionPosted   []OnTransactionPosted
	onTransactionRejected []OnTransactionRejected
	onDraftDiscarded      []OnDraftDiscarded
	onEntryReversed       []OnEntryReversed
	onBalanceQueried      []OnBalanceQueried
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnAccountDeactivated); ok {
		r.onAccountDeactivated = append(r.onAccountDeactivated, v)
	}
	if v, ok := p.(OnAccountReactivated); ok {
		r.onAccountReactivated = append(r.onAccountReactivated, v)
	}
	if v, ok := p.(OnTransactionPosted); ok {
		r.onTransactionPosted = append(r.onTransactionPosted, v)
	}
	if v, ok := p.(OnTransactionRejected); ok {
		r.onTransactionRejected = append(r.onTransactionRejected, v)
	}
	if v, ok := p.(OnDraftDiscarded); ok {
		r.onDraftDiscarded = append(r.onDraftDiscarded, v)
	}
	if v, ok := p.(OnEntryReversed); ok {
		r.onEntryReversed = append(r.onEntryReversed, v)
	}
	if v, ok := p.(OnBalanceQueried); ok {
		r.onBalanceQueried = append(r.onBalanceQueried, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnAccountCreated)(nil)).Elem(), "OnAccountCreated")
	checkInterface(reflect.TypeOf((*OnAccountDeactivated)(nil)).Elem(), "OnAccountDeactivated")
	checkInterface(reflect.TypeOf((*OnAccountReactivated)(nil)).Elem(), "OnAccountReactivated")
	checkInterface(reflect.TypeOf((*OnTransactionPosted)(nil)).Elem(), "OnTransactionPosted")
	checkInterface(reflect.TypeOf((*OnTransactionRejected)(nil)).Elem(), "OnTransactionRejected")
	checkInterface(reflect.TypeOf((*OnDraftDiscarded)(nil)).Elem(), "OnDraftDiscarded")
	checkInterface(reflect.TypeOf((*OnEntryReversed)(nil)).Elem(), "OnEntryReversed")
	checkInterface(reflect.TypeOf((*OnBalanceQueried)(nil)).Elem(), "OnBalanceQueried")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, ledger interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, ledger)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountCreated emits an account created event.
func (r *Registry) EmitAccountCreated(ctx context.Context, account interface{}) {
	r.mu.RLock()
	plugins := r.onAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountCreated(ctx, account)
		}); err != nil {
			r.logger.Warn("plugin OnAccountCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountDeactivated emits an account deactivated event.
func (r *Registry) EmitAccountDeactivated(ctx context.Context, accountID string) {
	r.mu.RLock()
	plugins := r.onAccountDeactivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountDeactivated(ctx, accountID)
		}); err != nil {
			r.logger.Warn("plugin OnAccountDeactivated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountReactivated emits an account reactivated event.
func (r *Registry) EmitAccountReactivated(ctx context.Context, accountID string) {
	r.mu.RLock()
	plugins := r.onAccountReactivated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountReactivated(ctx, accountID)
		}); err != nil {
			r.logger.Warn("plugin OnAccountReactivated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionPosted emits a transaction posted event.
func (r *Registry) EmitTransactionPosted(ctx context.Context, tx interface{}, entries []interface{}) {
	r.mu.RLock()
	plugins := r.onTransactionPosted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionPosted(ctx, tx, entries)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionPosted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitTransactionRejected emits a transaction rejected event.
func (r *Registry) EmitTransactionRejected(ctx context.Context, description string, reason error) {
	r.mu.RLock()
	plugins := r.onTransactionRejected
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnTransactionRejected(ctx, description, reason)
		}); err != nil {
			r.logger.Warn("plugin OnTransactionRejected failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDraftDiscarded emits a draft discarded event.
func (r *Registry) EmitDraftDiscarded(ctx context.Context, transactionID string) {
	r.mu.RLock()
	plugins := r.onDraftDiscarded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnDraftDiscarded(ctx, transactionID)
		}); err != nil {
			r.logger.Warn("plugin OnDraftDiscarded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitEntryReversed emits an entry reversed event.
func (r *Registry) EmitEntryReversed(ctx context.Context, entryID string, reversal interface{}) {
	r.mu.RLock()
	plugins := r.onEntryReversed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnEntryReversed(ctx, entryID, reversal)
		}); err != nil {
			r.logger.Warn("plugin OnEntryReversed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitBalanceQueried emits a balance queried event.
func (r *Registry) EmitBalanceQueried(ctx context.Context, accountID string, balance interface{}) {
	r.mu.RLock()
	plugins := r.onBalanceQueried
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnBalanceQueried(ctx, accountID, balance)
		}); err != nil {
			r.logger.Warn("plugin OnBalanceQueried failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the posting pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
