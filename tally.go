package tally

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/plugin"
	"github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// Ledger is the main double-entry engine.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	now func() time.Time
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:   s,
		plugins: plugin.NewRegistry(),
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// Plugins exposes the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry {
	return l.plugins
}

// Start migrates the store and initializes plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("tally started", "plugins", l.plugins.Count())

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	ctx := context.Background()
	l.plugins.EmitShutdown(ctx)

	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Account Management
// ──────────────────────────────────────────────────

// CreateAccount registers a new account. The owner reference, type, and
// currency are fixed for the account's lifetime; ID and timestamps are
// assigned here.
func (l *Ledger) CreateAccount(ctx context.Context, a *account.Account) error {
	if a.Owner.IsZero() {
		return ValidationError{Field: "owner", Message: "owner reference is required"}
	}
	if !a.Type.Valid() {
		return ValidationError{Field: "type", Message: "unknown account type " + string(a.Type)}
	}
	a.Currency = strings.ToUpper(a.Currency)
	if !validCurrency(a.Currency) {
		return ValidationError{Field: "currency", Message: "currency must be a 3-letter code"}
	}

	if a.ID.IsNil() {
		a.ID = id.NewAccountID()
	}
	a.Entity = types.NewEntity()
	a.Active = true

	if err := l.store.CreateAccount(ctx, a); err != nil {
		return err
	}

	l.plugins.EmitAccountCreated(ctx, a)
	return nil
}

// GetAccount retrieves an account by ID.
func (l *Ledger) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	return l.store.GetAccount(ctx, accountID)
}

// FindAccounts lists accounts matching the filter.
func (l *Ledger) FindAccounts(ctx context.Context, filter account.Filter) ([]*account.Account, error) {
	return l.store.FindAccounts(ctx, filter)
}

// DeactivateAccount closes an account for new postings. Its history and
// balance remain queryable, and existing entries are untouched.
func (l *Ledger) DeactivateAccount(ctx context.Context, accountID id.AccountID) error {
	if err := l.store.SetAccountActive(ctx, accountID, false); err != nil {
		return err
	}

	l.plugins.EmitAccountDeactivated(ctx, accountID.String())
	return nil
}

// ReactivateAccount reopens a deactivated account for postings.
func (l *Ledger) ReactivateAccount(ctx context.Context, accountID id.AccountID) error {
	if err := l.store.SetAccountActive(ctx, accountID, true); err != nil {
		return err
	}

	l.plugins.EmitAccountReactivated(ctx, accountID.String())
	return nil
}

// RenameAccount updates an account's display name and metadata. Owner,
// type, and currency cannot be changed.
func (l *Ledger) RenameAccount(ctx context.Context, accountID id.AccountID, name string, metadata map[string]string) error {
	a, err := l.store.GetAccount(ctx, accountID)
	if err != nil {
		return err
	}

	a.Name = name
	if metadata != nil {
		a.Metadata = metadata
	}

	return l.store.UpdateAccountDisplay(ctx, a)
}

// ──────────────────────────────────────────────────
// Posting
// ──────────────────────────────────────────────────

// RecordTransaction validates a draft and posts it atomically. Either the
// whole transaction with all its entries becomes visible, or nothing does.
func (l *Ledger) RecordTransaction(ctx context.Context, draft transaction.Draft) (*transaction.Transaction, error) {
	if err := l.validateDraft(ctx, draft.Lines); err != nil {
		l.plugins.EmitTransactionRejected(ctx, draft.Description, err)
		return nil, err
	}

	now := l.now()
	tx := l.buildTransaction(draft, now)
	tx.PostedAt = &now
	entries := l.buildEntries(tx, draft.Lines, now)

	if err := l.store.CreateTransaction(ctx, tx, entries); err != nil {
		return nil, err
	}

	l.emitPosted(ctx, tx, entries)
	return tx, nil
}

// CreateDraft persists a transaction without posting it. Draft entries are
// invisible to balances and history until PostDraft succeeds. Line-level
// checks run here; balance and count checks are deferred to PostDraft.
func (l *Ledger) CreateDraft(ctx context.Context, draft transaction.Draft) (*transaction.Transaction, error) {
	for i := range draft.Lines {
		if err := l.validateLine(ctx, &draft.Lines[i], nil); err != nil {
			return nil, err
		}
	}

	now := l.now()
	tx := l.buildTransaction(draft, now)
	entries := l.buildEntries(tx, draft.Lines, now)

	if err := l.store.CreateTransaction(ctx, tx, entries); err != nil {
		return nil, err
	}

	return tx, nil
}

// AddEntry appends a line to an unposted transaction.
func (l *Ledger) AddEntry(ctx context.Context, txID id.TransactionID, line transaction.Line) (*transaction.Entry, error) {
	tx, err := l.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.IsPosted() {
		return nil, ErrImmutableRecord
	}

	if err := l.validateLine(ctx, &line, nil); err != nil {
		return nil, err
	}

	now := l.now()
	entries := l.buildEntries(tx, []transaction.Line{line}, now)

	if err := l.store.AppendEntries(ctx, txID, entries); err != nil {
		return nil, err
	}

	return entries[0], nil
}

// PostDraft runs full validation on a draft and flips it to posted. From
// this point the transaction and its entries are immutable and visible to
// balance and history queries.
func (l *Ledger) PostDraft(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	tx, err := l.store.GetTransaction(ctx, txID)
	if err != nil {
		return nil, err
	}
	if tx.IsPosted() {
		return nil, ErrAlreadyPosted
	}

	entries, err := l.store.GetTransactionEntries(ctx, txID)
	if err != nil {
		return nil, err
	}

	lines := make([]transaction.Line, len(entries))
	for i, e := range entries {
		lines[i] = transaction.Line{
			AccountID:   e.AccountID,
			Amount:      e.Amount,
			Side:        e.Side,
			Description: e.Description,
		}
	}
	if err := l.validateDraft(ctx, lines); err != nil {
		l.plugins.EmitTransactionRejected(ctx, tx.Description, err)
		return nil, err
	}

	now := l.now()
	if err := l.store.PostTransaction(ctx, txID, now); err != nil {
		return nil, err
	}
	tx.PostedAt = &now

	l.emitPosted(ctx, tx, entries)
	return tx, nil
}

// DiscardDraft deletes an unposted transaction and its entries. Posted
// transactions can never be discarded.
func (l *Ledger) DiscardDraft(ctx context.Context, txID id.TransactionID) error {
	if err := l.store.DeleteTransaction(ctx, txID); err != nil {
		return err
	}

	l.plugins.EmitDraftDiscarded(ctx, txID.String())
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (l *Ledger) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	return l.store.GetTransaction(ctx, txID)
}

// GetTransactionEntries retrieves all entries of one transaction, posted
// or draft.
func (l *Ledger) GetTransactionEntries(ctx context.Context, txID id.TransactionID) ([]*transaction.Entry, error) {
	return l.store.GetTransactionEntries(ctx, txID)
}

// FindTransactionByIdempotencyKey looks up a transaction previously tagged
// with the given key via the "idempotency_key" metadata field. Callers run
// their own dedup loop with it; the ledger never deduplicates on its own.
func (l *Ledger) FindTransactionByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	if key == "" {
		return nil, ErrInvalidInput
	}

	return l.store.GetTransactionByIdempotencyKey(ctx, key)
}

// ──────────────────────────────────────────────────
// Balances & History
// ──────────────────────────────────────────────────

// Balance returns the account's current balance: the sum of all posted
// debit amounts minus all posted credit amounts. No balance is stored
// anywhere; this is always computed from entries.
func (l *Ledger) Balance(ctx context.Context, accountID id.AccountID) (types.Amount, error) {
	return l.BalanceAsOf(ctx, accountID, time.Time{})
}

// BalanceAsOf returns the account's balance considering only posted
// entries effective at or before asOf. A zero asOf means no upper bound.
func (l *Ledger) BalanceAsOf(ctx context.Context, accountID id.AccountID, asOf time.Time) (types.Amount, error) {
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return 0, err
	}

	debits, credits, err := l.store.SumEntries(ctx, accountID, asOf)
	if err != nil {
		return 0, err
	}

	balance := debits.Sub(credits)
	l.plugins.EmitBalanceQueried(ctx, accountID.String(), balance)

	return balance, nil
}

// Entries lists an account's posted entries within the given effective
// time range, ordered by effective time, then recorded time, then ID.
func (l *Ledger) Entries(ctx context.Context, accountID id.AccountID, rng transaction.EntryRange) ([]*transaction.Entry, error) {
	if _, err := l.store.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	return l.store.ListEntries(ctx, transaction.ListOpts{
		AccountID: accountID,
		Range:     rng,
	})
}

// GetEntry retrieves a single entry by ID.
func (l *Ledger) GetEntry(ctx context.Context, entryID id.EntryID) (*transaction.Entry, error) {
	return l.store.GetEntry(ctx, entryID)
}

// ──────────────────────────────────────────────────
// Reversal
// ──────────────────────────────────────────────────

// ReverseEntry corrects a posted transaction by posting a new transaction
// that mirrors every entry of the original on the opposite side. The
// original records are never modified; the reversal is linked back to them
// through each mirrored entry's Reverses field. Returns the reversal
// transaction.
func (l *Ledger) ReverseEntry(ctx context.Context, entryID id.EntryID, reason string, effectiveAt time.Time) (*transaction.Transaction, error) {
	target, err := l.store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}

	orig, err := l.store.GetTransaction(ctx, target.TransactionID)
	if err != nil {
		return nil, err
	}
	if !orig.IsPosted() {
		return nil, ErrCannotReverseUnposted
	}

	if _, err := l.store.FindReversal(ctx, entryID); err == nil {
		return nil, ErrAlreadyReversed
	} else if !IsNotFound(err) {
		return nil, err
	}

	origEntries, err := l.store.GetTransactionEntries(ctx, target.TransactionID)
	if err != nil {
		return nil, err
	}

	now := l.now()
	if effectiveAt.IsZero() {
		effectiveAt = now
	}

	rev := &transaction.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		Description: "Reversal of " + orig.Description,
		EffectiveAt: effectiveAt,
		RecordedAt:  now,
		PostedAt:    &now,
		Metadata: map[string]string{
			transaction.MetaReversalReason:      reason,
			transaction.MetaReversesTransaction: orig.ID.String(),
		},
	}

	entries := make([]*transaction.Entry, len(origEntries))
	for i, oe := range origEntries {
		entries[i] = &transaction.Entry{
			ID:            id.NewEntryID(),
			TransactionID: rev.ID,
			AccountID:     oe.AccountID,
			Amount:        oe.Amount,
			Side:          oe.Side.Opposite(),
			Description:   reason,
			EffectiveAt:   effectiveAt,
			RecordedAt:    now,
			Reverses:      oe.ID,
		}
	}

	// The reversal is written posted in one shot; a concurrent reversal of
	// the same transaction loses on the unique reverses index.
	if err := l.store.CreateTransaction(ctx, rev, entries); err != nil {
		return nil, err
	}

	l.plugins.EmitEntryReversed(ctx, entryID.String(), rev)
	l.logger.Info("entry reversed",
		"entry_id", entryID.String(),
		"transaction_id", orig.ID.String(),
		"reversal_id", rev.ID.String(),
	)

	return rev, nil
}

// ──────────────────────────────────────────────────
// Validation
// ──────────────────────────────────────────────────

// validateDraft applies the full posting rules: at least one debit and one
// credit, positive amounts, valid sides, existing active accounts, a
// single shared currency, and matching debit and credit totals.
func (l *Ledger) validateDraft(ctx context.Context, lines []transaction.Line) error {
	if len(lines) < 2 {
		return ErrInvalidEntryCount
	}

	accounts := make(map[id.AccountID]*account.Account, len(lines))
	currency := ""
	var debits, credits types.Amount

	hasDebit, hasCredit := false, false
	for i := range lines {
		line := &lines[i]
		if err := l.validateLine(ctx, line, accounts); err != nil {
			return err
		}

		acct := accounts[line.AccountID]
		if currency == "" {
			currency = acct.Currency
		} else if acct.Currency != currency {
			return ErrCurrencyMismatch
		}

		switch line.Side {
		case transaction.Debit:
			hasDebit = true
			debits = debits.Add(line.Amount)
		case transaction.Credit:
			hasCredit = true
			credits = credits.Add(line.Amount)
		}
	}

	if !hasDebit || !hasCredit {
		return ErrInvalidEntryCount
	}
	if debits != credits {
		return ErrUnbalanced
	}

	return nil
}

// validateLine checks one line in isolation: side, amount, and the
// referenced account. When cache is non-nil, fetched accounts are stored
// there so validateDraft resolves each account once.
func (l *Ledger) validateLine(ctx context.Context, line *transaction.Line, cache map[id.AccountID]*account.Account) error {
	if !line.Side.Valid() {
		return ErrInvalidSide
	}
	if !line.Amount.IsPositive() {
		return ErrInvalidAmount
	}

	acct, ok := cache[line.AccountID]
	if !ok {
		var err error
		acct, err = l.store.GetAccount(ctx, line.AccountID)
		if err != nil {
			if IsNotFound(err) {
				return ErrAccountNotFound
			}
			return err
		}
		if cache != nil {
			cache[line.AccountID] = acct
		}
	}

	if !acct.Active {
		return ErrInactiveAccount
	}

	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (l *Ledger) buildTransaction(draft transaction.Draft, now time.Time) *transaction.Transaction {
	effectiveAt := draft.EffectiveAt
	if effectiveAt.IsZero() {
		effectiveAt = now
	}

	return &transaction.Transaction{
		Entity:      types.NewEntity(),
		ID:          id.NewTransactionID(),
		Description: draft.Description,
		EffectiveAt: effectiveAt,
		RecordedAt:  now,
		Metadata:    draft.Metadata,
	}
}

func (l *Ledger) buildEntries(tx *transaction.Transaction, lines []transaction.Line, now time.Time) []*transaction.Entry {
	entries := make([]*transaction.Entry, len(lines))
	for i, line := range lines {
		entries[i] = &transaction.Entry{
			ID:            id.NewEntryID(),
			TransactionID: tx.ID,
			AccountID:     line.AccountID,
			Amount:        line.Amount,
			Side:          line.Side,
			Description:   line.Description,
			EffectiveAt:   tx.EffectiveAt,
			RecordedAt:    now,
			Metadata:      line.Metadata,
		}
	}

	return entries
}

func (l *Ledger) emitPosted(ctx context.Context, tx *transaction.Transaction, entries []*transaction.Entry) {
	anys := make([]interface{}, len(entries))
	for i, e := range entries {
		anys[i] = e
	}
	l.plugins.EmitTransactionPosted(ctx, tx, anys)
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}

	return true
}
