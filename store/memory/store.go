package memory

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

type Store struct {
	mu sync.RWMutex

	// Account storage
	accounts map[string]*account.Account

	// Transaction storage
	transactions map[string]*transaction.Transaction

	// Entry storage, grouped by owning transaction
	entries map[string][]*transaction.Entry
}

func New() *Store {
	return &Store{
		accounts:     make(map[string]*account.Account),
		transactions: make(map[string]*transaction.Transaction),
		entries:      make(map[string][]*transaction.Entry),
	}
}

// Account Store implementation
func (s *Store) CreateAccount(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.accounts[a.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}
	for _, existing := range s.accounts {
		if a.Number != "" && existing.Number == a.Number && existing.Owner == a.Owner {
			return tally.ErrDuplicateNumber
		}
	}
	s.accounts[a.ID.String()] = copyAccount(a)
	return nil
}

func (s *Store) GetAccount(_ context.Context, accountID id.AccountID) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		return copyAccount(a), nil
	}
	return nil, tally.ErrAccountNotFound
}

func (s *Store) FindAccounts(_ context.Context, filter account.Filter) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*account.Account, 0)
	for _, a := range s.accounts {
		if !filter.Owner.IsZero() && a.Owner != filter.Owner {
			continue
		}
		if filter.Type != "" && a.Type != filter.Type {
			continue
		}
		if filter.Currency != "" && a.Currency != filter.Currency {
			continue
		}
		if filter.ActiveOnly && !a.Active {
			continue
		}
		result = append(result, copyAccount(a))
	}

	// Stable order for pagination
	sort.Slice(result, func(i, j int) bool {
		if result[i].Number != result[j].Number {
			return result[i].Number < result[j].Number
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return paginate(result, filter.Offset, filter.Limit), nil
}

func (s *Store) UpdateAccountDisplay(_ context.Context, a *account.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.accounts[a.ID.String()]
	if !ok {
		return tally.ErrAccountNotFound
	}
	existing.Name = a.Name
	existing.Metadata = maps.Clone(a.Metadata)
	existing.Touch()
	return nil
}

func (s *Store) SetAccountActive(_ context.Context, accountID id.AccountID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.accounts[accountID.String()]; ok {
		a.Active = active
		a.Touch()
		return nil
	}
	return tally.ErrAccountNotFound
}

// Transaction Store implementation
func (s *Store) CreateTransaction(_ context.Context, tx *transaction.Transaction, entries []*transaction.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.transactions[tx.ID.String()]; exists {
		return tally.ErrAlreadyExists
	}

	if err := s.checkReverses(entries); err != nil {
		return err
	}

	stored := make([]*transaction.Entry, 0, len(entries))
	for _, e := range entries {
		stored = append(stored, copyEntry(e))
	}
	s.transactions[tx.ID.String()] = copyTransaction(tx)
	s.entries[tx.ID.String()] = stored
	return nil
}

func (s *Store) GetTransaction(_ context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if tx, ok := s.transactions[txID.String()]; ok {
		return copyTransaction(tx), nil
	}
	return nil, tally.ErrTransactionNotFound
}

func (s *Store) UpdateTransaction(_ context.Context, tx *transaction.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[tx.ID.String()]
	if !ok {
		return tally.ErrTransactionNotFound
	}
	if existing.IsPosted() {
		return tally.ErrImmutableRecord
	}
	existing.Description = tx.Description
	existing.EffectiveAt = tx.EffectiveAt
	existing.Metadata = maps.Clone(tx.Metadata)
	existing.Touch()
	return nil
}

func (s *Store) DeleteTransaction(_ context.Context, txID id.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[txID.String()]
	if !ok {
		return tally.ErrTransactionNotFound
	}
	if existing.IsPosted() {
		return tally.ErrImmutableRecord
	}
	delete(s.transactions, txID.String())
	delete(s.entries, txID.String())
	return nil
}

func (s *Store) PostTransaction(_ context.Context, txID id.TransactionID, postedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[txID.String()]
	if !ok {
		return tally.ErrTransactionNotFound
	}
	if existing.IsPosted() {
		return tally.ErrAlreadyPosted
	}

	// The flip is the commit point, so the balance check has to happen
	// here, under the same lock, not just at validation time.
	var debits, credits types.Amount
	for _, e := range s.entries[txID.String()] {
		if e.Side == transaction.Debit {
			debits = debits.Add(e.Amount)
		} else {
			credits = credits.Add(e.Amount)
		}
	}
	if debits != credits {
		return tally.ErrUnbalanced
	}

	existing.PostedAt = &postedAt
	existing.Touch()
	return nil
}

func (s *Store) GetTransactionByIdempotencyKey(_ context.Context, key string) (*transaction.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, tx := range s.transactions {
		if tx.Metadata[transaction.MetaIdempotencyKey] == key {
			return copyTransaction(tx), nil
		}
	}
	return nil, tally.ErrTransactionNotFound
}

// Entry Store implementation
func (s *Store) AppendEntries(_ context.Context, txID id.TransactionID, entries []*transaction.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[txID.String()]
	if !ok {
		return tally.ErrTransactionNotFound
	}
	if existing.IsPosted() {
		return tally.ErrImmutableRecord
	}
	if err := s.checkReverses(entries); err != nil {
		return err
	}
	for _, e := range entries {
		s.entries[txID.String()] = append(s.entries[txID.String()], copyEntry(e))
	}
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.EntryID) (*transaction.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e := s.findEntry(entryID); e != nil {
		return copyEntry(e), nil
	}
	return nil, tally.ErrEntryNotFound
}

func (s *Store) GetTransactionEntries(_ context.Context, txID id.TransactionID) ([]*transaction.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.transactions[txID.String()]; !ok {
		return nil, tally.ErrTransactionNotFound
	}
	stored := s.entries[txID.String()]
	result := make([]*transaction.Entry, 0, len(stored))
	for _, e := range stored {
		result = append(result, copyEntry(e))
	}
	sortEntries(result)
	return result, nil
}

func (s *Store) UpdateEntry(_ context.Context, e *transaction.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.findEntry(e.ID)
	if existing == nil {
		return tally.ErrEntryNotFound
	}
	tx := s.transactions[existing.TransactionID.String()]
	if tx != nil && tx.IsPosted() {
		return tally.ErrImmutableRecord
	}
	existing.AccountID = e.AccountID
	existing.Amount = e.Amount
	existing.Side = e.Side
	existing.Description = e.Description
	existing.EffectiveAt = e.EffectiveAt
	existing.Metadata = maps.Clone(e.Metadata)
	return nil
}

func (s *Store) DeleteEntry(_ context.Context, entryID id.EntryID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for txKey, list := range s.entries {
		for i, e := range list {
			if e.ID != entryID {
				continue
			}
			tx := s.transactions[txKey]
			if tx != nil && tx.IsPosted() {
				return tally.ErrImmutableRecord
			}
			s.entries[txKey] = append(list[:i], list[i+1:]...)
			return nil
		}
	}
	return tally.ErrEntryNotFound
}

func (s *Store) ListEntries(_ context.Context, opts transaction.ListOpts) ([]*transaction.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*transaction.Entry, 0)
	for txKey, list := range s.entries {
		tx := s.transactions[txKey]
		if tx == nil || !tx.IsPosted() {
			continue
		}
		for _, e := range list {
			if !opts.AccountID.IsNil() && e.AccountID != opts.AccountID {
				continue
			}
			if !opts.Range.Contains(e.EffectiveAt) {
				continue
			}
			result = append(result, copyEntry(e))
		}
	}
	sortEntries(result)
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) SumEntries(_ context.Context, accountID id.AccountID, asOf time.Time) (types.Amount, types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var debits, credits types.Amount
	for txKey, list := range s.entries {
		tx := s.transactions[txKey]
		if tx == nil || !tx.IsPosted() {
			continue
		}
		for _, e := range list {
			if e.AccountID != accountID {
				continue
			}
			if !asOf.IsZero() && e.EffectiveAt.After(asOf) {
				continue
			}
			if e.Side == transaction.Debit {
				debits = debits.Add(e.Amount)
			} else {
				credits = credits.Add(e.Amount)
			}
		}
	}
	return debits, credits, nil
}

func (s *Store) FindReversal(_ context.Context, entryID id.EntryID) (*transaction.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for txKey, list := range s.entries {
		tx := s.transactions[txKey]
		if tx == nil || !tx.IsPosted() {
			continue
		}
		for _, e := range list {
			if e.Reverses == entryID {
				return copyEntry(e), nil
			}
		}
	}
	return nil, tally.ErrNotFound
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	return nil // Always available
}

func (s *Store) Close() error {
	return nil // Nothing to close
}

// Helper functions

// checkReverses rejects a second reversal of the same entry, mirroring the
// unique index the persistent drivers put on the reverses column.
// Caller must hold the lock.
func (s *Store) checkReverses(incoming []*transaction.Entry) error {
	for _, in := range incoming {
		if !in.IsReversal() {
			continue
		}
		for _, list := range s.entries {
			for _, e := range list {
				if e.Reverses == in.Reverses {
					return tally.ErrAlreadyReversed
				}
			}
		}
	}
	return nil
}

// The copy helpers keep stored records private. A shared Metadata map would
// let callers edit posted records in place, past the immutability checks.
func copyAccount(a *account.Account) *account.Account {
	cp := *a
	cp.Metadata = maps.Clone(a.Metadata)
	return &cp
}

func copyTransaction(tx *transaction.Transaction) *transaction.Transaction {
	cp := *tx
	cp.Metadata = maps.Clone(tx.Metadata)
	if tx.PostedAt != nil {
		postedAt := *tx.PostedAt
		cp.PostedAt = &postedAt
	}
	return &cp
}

func copyEntry(e *transaction.Entry) *transaction.Entry {
	cp := *e
	cp.Metadata = maps.Clone(e.Metadata)
	return &cp
}

func (s *Store) findEntry(entryID id.EntryID) *transaction.Entry {
	for _, list := range s.entries {
		for _, e := range list {
			if e.ID == entryID {
				return e
			}
		}
	}
	return nil
}

func sortEntries(entries []*transaction.Entry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].EffectiveAt.Equal(entries[j].EffectiveAt) {
			return entries[i].EffectiveAt.Before(entries[j].EffectiveAt)
		}
		if !entries[i].RecordedAt.Equal(entries[j].RecordedAt) {
			return entries[i].RecordedAt.Before(entries[j].RecordedAt)
		}
		return entries[i].ID.String() < entries[j].ID.String()
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	start := offset
	if start < 0 {
		start = 0
	}
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
