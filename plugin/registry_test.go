package plugin

import (
	"context"
	"errors"
	"testing"
)

type recordingPlugin struct {
	name   string
	events []string
	fail   bool
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnAccountCreated(_ context.Context, _ interface{}) error {
	p.events = append(p.events, "account_created")
	if p.fail {
		return errors.New("boom")
	}
	return nil
}

func (p *recordingPlugin) OnTransactionPosted(_ context.Context, _ interface{}, entries []interface{}) error {
	p.events = append(p.events, "transaction_posted")
	return nil
}

func (p *recordingPlugin) OnEntryReversed(_ context.Context, entryID string, _ interface{}) error {
	p.events = append(p.events, "entry_reversed:"+entryID)
	return nil
}

// namedOnly implements Plugin but no hook interfaces.
type namedOnly struct{ name string }

func (p *namedOnly) Name() string { return p.name }

func TestRegister(t *testing.T) {
	r := NewRegistry()

	p := &recordingPlugin{name: "recorder"}
	if err := r.Register(p); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "recorder"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}

	if r.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", r.Count())
	}
	if got := r.Get("recorder"); got != Plugin(p) {
		t.Fatalf("Get() = %v, want %v", got, p)
	}
	if got := r.Get("missing"); got != nil {
		t.Fatalf("Get(missing) = %v, want nil", got)
	}
}

func TestEmitDispatch(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	hooked := &recordingPlugin{name: "hooked"}
	if err := r.Register(hooked); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	if err := r.Register(&namedOnly{name: "plain"}); err != nil {
		t.Fatalf("Register() = %v", err)
	}

	r.EmitAccountCreated(ctx, nil)
	r.EmitTransactionPosted(ctx, nil, nil)
	r.EmitEntryReversed(ctx, "ent_1", nil)
	// No listener registered for this hook; must be a no-op.
	r.EmitDraftDiscarded(ctx, "txn_1")

	want := []string{"account_created", "transaction_posted", "entry_reversed:ent_1"}
	if len(hooked.events) != len(want) {
		t.Fatalf("events = %v, want %v", hooked.events, want)
	}
	for i, e := range want {
		if hooked.events[i] != e {
			t.Fatalf("events[%d] = %q, want %q", i, hooked.events[i], e)
		}
	}
}

func TestEmitFailureIsolation(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	failing := &recordingPlugin{name: "failing", fail: true}
	healthy := &recordingPlugin{name: "healthy"}
	if err := r.Register(failing); err != nil {
		t.Fatalf("Register() = %v", err)
	}
	if err := r.Register(healthy); err != nil {
		t.Fatalf("Register() = %v", err)
	}

	// A failing plugin must not keep others from running.
	r.EmitAccountCreated(ctx, nil)

	if len(failing.events) != 1 {
		t.Fatalf("failing events = %v", failing.events)
	}
	if len(healthy.events) != 1 {
		t.Fatalf("healthy events = %v", healthy.events)
	}
}

// everyHookPlugin implements every hook interface.
type everyHookPlugin struct{ name string }

func (p *everyHookPlugin) Name() string                                                     { return p.name }
func (p *everyHookPlugin) OnInit(_ context.Context, _ interface{}) error                    { return nil }
func (p *everyHookPlugin) OnShutdown(_ context.Context) error                               { return nil }
func (p *everyHookPlugin) OnAccountCreated(_ context.Context, _ interface{}) error          { return nil }
func (p *everyHookPlugin) OnAccountDeactivated(_ context.Context, _ string) error           { return nil }
func (p *everyHookPlugin) OnAccountReactivated(_ context.Context, _ string) error           { return nil }
func (p *everyHookPlugin) OnTransactionPosted(_ context.Context, _ interface{}, _ []interface{}) error {
	return nil
}
func (p *everyHookPlugin) OnTransactionRejected(_ context.Context, _ string, _ error) error { return nil }
func (p *everyHookPlugin) OnDraftDiscarded(_ context.Context, _ string) error               { return nil }
func (p *everyHookPlugin) OnEntryReversed(_ context.Context, _ string, _ interface{}) error { return nil }
func (p *everyHookPlugin) OnBalanceQueried(_ context.Context, _ string, _ interface{}) error {
	return nil
}

func TestImplementedInterfacesComplete(t *testing.T) {
	r := NewRegistry()

	got := r.getImplementedInterfaces(&everyHookPlugin{name: "everything"})
	want := []string{
		"OnInit", "OnShutdown",
		"OnAccountCreated", "OnAccountDeactivated", "OnAccountReactivated",
		"OnTransactionPosted", "OnTransactionRejected", "OnDraftDiscarded",
		"OnEntryReversed", "OnBalanceQueried",
	}
	if len(got) != len(want) {
		t.Fatalf("interfaces = %v, want %v", got, want)
	}
	seen := make(map[string]bool, len(got))
	for _, name := range got {
		seen[name] = true
	}
	for _, name := range want {
		if !seen[name] {
			t.Fatalf("interfaces = %v, missing %s", got, name)
		}
	}
}
