package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	tally "github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// postedOnly limits entry reads to entries of posted transactions. Drafts
// and half-written reversals never leak into balances or listings.
const postedOnly = `transaction_id IN (SELECT id FROM tally_transactions WHERE posted_at IS NOT NULL)`

// balancedTx computes debit minus credit ticks for one transaction; zero
// means the entries balance.
const balancedTx = `(SELECT COALESCE(SUM(CASE WHEN side = 'debit' THEN amount_ticks ELSE -amount_ticks END), 0)
	FROM tally_entries WHERE transaction_id = ?)`

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("tally/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("tally/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Account Store ====================

func (s *Store) CreateAccount(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	_, err := s.sdb.NewInsert(m).Exec(ctx)
	return err
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	m := new(accountModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", accountID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrAccountNotFound
		}
		return nil, err
	}
	return fromAccountModel(m)
}

func (s *Store) FindAccounts(ctx context.Context, filter account.Filter) ([]*account.Account, error) {
	var models []accountModel
	q := s.sdb.NewSelect(&models)

	if !filter.Owner.IsZero() {
		q = q.Where("owner_kind = ?", filter.Owner.Kind).
			Where("owner_id = ?", filter.Owner.ID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", string(filter.Type))
	}
	if filter.Currency != "" {
		q = q.Where("currency = ?", filter.Currency)
	}
	if filter.ActiveOnly {
		q = q.Where("active = ?", true)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	q = q.OrderExpr("number ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	result := make([]*account.Account, len(models))
	for i := range models {
		a, err := fromAccountModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = a
	}
	return result, nil
}

func (s *Store) UpdateAccountDisplay(ctx context.Context, a *account.Account) error {
	m := toAccountModel(a)
	res, err := s.sdb.NewUpdate((*accountModel)(nil)).
		Set("name = ?", m.Name).
		Set("metadata = ?", m.Metadata).
		Set("updated_at = ?", now()).
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrAccountNotFound
	}
	return nil
}

func (s *Store) SetAccountActive(ctx context.Context, accountID id.AccountID, active bool) error {
	res, err := s.sdb.NewUpdate((*accountModel)(nil)).
		Set("active = ?", active).
		Set("updated_at = ?", now()).
		Where("id = ?", accountID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrAccountNotFound
	}
	return nil
}

// ==================== Transaction Store ====================

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction, entries []*transaction.Entry) error {
	m := toTransactionModel(tx)

	// The posted_at flip is the commit point: the transaction row goes in
	// unposted, entries follow, and posted_at is set last. Readers filter
	// on posted_at, so a failure mid-write leaves an invisible draft.
	postedAt := m.PostedAt
	m.PostedAt = nil
	if _, err := s.sdb.NewInsert(m).Exec(ctx); err != nil {
		return err
	}

	if len(entries) > 0 {
		models := make([]entryModel, len(entries))
		for i, e := range entries {
			models[i] = *toEntryModel(e)
		}
		if _, err := s.sdb.NewInsert(&models).Exec(ctx); err != nil {
			return err
		}
	}

	if postedAt != nil {
		_, err := s.sdb.NewUpdate((*transactionModel)(nil)).
			Set("posted_at = ?", *postedAt).
			Set("updated_at = ?", now()).
			Where("id = ?", m.ID).
			Exec(ctx)
		return err
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", txID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromTransactionModel(m)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	m := toTransactionModel(tx)
	res, err := s.sdb.NewUpdate((*transactionModel)(nil)).
		Set("description = ?", m.Description).
		Set("effective_at = ?", m.EffectiveAt).
		Set("metadata = ?", m.Metadata).
		Set("updated_at = ?", now()).
		Where("id = ?", m.ID).
		Where("posted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.draftMissReason(ctx, tx.ID)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, txID id.TransactionID) error {
	res, err := s.sdb.NewDelete((*transactionModel)(nil)).
		Where("id = ?", txID.String()).
		Where("posted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.draftMissReason(ctx, txID)
	}
	_, err = s.sdb.NewDelete((*entryModel)(nil)).
		Where("transaction_id = ?", txID.String()).
		Exec(ctx)
	return err
}

func (s *Store) PostTransaction(ctx context.Context, txID id.TransactionID, postedAt time.Time) error {
	// Balance is re-asserted inside the flip itself so entries appended
	// between validation and posting cannot slip into the books unbalanced.
	res, err := s.sdb.NewUpdate((*transactionModel)(nil)).
		Set("posted_at = ?", postedAt).
		Set("updated_at = ?", now()).
		Where("id = ?", txID.String()).
		Where("posted_at IS NULL").
		Where(balancedTx+" = 0", txID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		existing, err := s.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if existing.IsPosted() {
			return tally.ErrAlreadyPosted
		}
		net, err := s.txImbalance(ctx, txID)
		if err != nil {
			return err
		}
		if net != 0 {
			return tally.ErrUnbalanced
		}
		return tally.ErrWriteConflict
	}
	return nil
}

// txImbalance returns the net of debit minus credit ticks for a transaction.
func (s *Store) txImbalance(ctx context.Context, txID id.TransactionID) (int64, error) {
	var net int64
	err := s.sdb.NewRaw(`SELECT `+balancedTx+` AS net`, txID.String()).Scan(ctx, &net)
	return net, err
}

func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	m := new(transactionModel)
	err := s.sdb.NewSelect(m).
		Where("json_extract(metadata, '$.idempotency_key') = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrTransactionNotFound
		}
		return nil, err
	}
	return fromTransactionModel(m)
}

// ==================== Entry Store ====================

func (s *Store) AppendEntries(ctx context.Context, txID id.TransactionID, entries []*transaction.Entry) error {
	if err := s.requireDraft(ctx, txID); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	models := make([]entryModel, len(entries))
	for i, e := range entries {
		models[i] = *toEntryModel(e)
	}
	_, err := s.sdb.NewInsert(&models).Exec(ctx)
	return err
}

func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*transaction.Entry, error) {
	m := new(entryModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", entryID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

func (s *Store) GetTransactionEntries(ctx context.Context, txID id.TransactionID) ([]*transaction.Entry, error) {
	if _, err := s.GetTransaction(ctx, txID); err != nil {
		return nil, err
	}

	var models []entryModel
	err := s.sdb.NewSelect(&models).
		Where("transaction_id = ?", txID.String()).
		OrderExpr("effective_at ASC, recorded_at ASC, id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return fromEntryModels(models)
}

func (s *Store) UpdateEntry(ctx context.Context, e *transaction.Entry) error {
	if err := s.requireDraft(ctx, e.TransactionID); err != nil {
		return err
	}
	m := toEntryModel(e)
	res, err := s.sdb.NewUpdate((*entryModel)(nil)).
		Set("account_id = ?", m.AccountID).
		Set("amount_ticks = ?", m.AmountTicks).
		Set("side = ?", m.Side).
		Set("description = ?", m.Description).
		Set("effective_at = ?", m.EffectiveAt).
		Set("metadata = ?", m.Metadata).
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return tally.ErrEntryNotFound
	}
	return nil
}

func (s *Store) DeleteEntry(ctx context.Context, entryID id.EntryID) error {
	existing, err := s.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if err := s.requireDraft(ctx, existing.TransactionID); err != nil {
		return err
	}
	_, err = s.sdb.NewDelete((*entryModel)(nil)).
		Where("id = ?", entryID.String()).
		Exec(ctx)
	return err
}

func (s *Store) ListEntries(ctx context.Context, opts transaction.ListOpts) ([]*transaction.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).Where(postedOnly)

	if !opts.AccountID.IsNil() {
		q = q.Where("account_id = ?", opts.AccountID.String())
	}
	if !opts.Range.From.IsZero() {
		q = q.Where("effective_at >= ?", opts.Range.From)
	}
	if !opts.Range.To.IsZero() {
		q = q.Where("effective_at < ?", opts.Range.To)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("effective_at ASC, recorded_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromEntryModels(models)
}

func (s *Store) SumEntries(ctx context.Context, accountID id.AccountID, asOf time.Time) (types.Amount, types.Amount, error) {
	debitTicks, err := s.sumSide(ctx, accountID, transaction.Debit, asOf)
	if err != nil {
		return 0, 0, err
	}
	creditTicks, err := s.sumSide(ctx, accountID, transaction.Credit, asOf)
	if err != nil {
		return 0, 0, err
	}
	return types.AmountFromTicks(debitTicks), types.AmountFromTicks(creditTicks), nil
}

func (s *Store) sumSide(ctx context.Context, accountID id.AccountID, side transaction.Side, asOf time.Time) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_ticks), 0) FROM tally_entries
		WHERE account_id = ? AND side = ? AND ` + postedOnly
	args := []any{accountID.String(), string(side)}
	if !asOf.IsZero() {
		query += ` AND effective_at <= ?`
		args = append(args, asOf)
	}

	var ticks int64
	if err := s.sdb.NewRaw(query, args...).Scan(ctx, &ticks); err != nil {
		return 0, err
	}
	return ticks, nil
}

func (s *Store) FindReversal(ctx context.Context, entryID id.EntryID) (*transaction.Entry, error) {
	m := new(entryModel)
	err := s.sdb.NewSelect(m).
		Where("reverses = ?", entryID.String()).
		Where(postedOnly).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, tally.ErrNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

// ==================== Helpers ====================

// requireDraft rejects mutations against posted transactions.
func (s *Store) requireDraft(ctx context.Context, txID id.TransactionID) error {
	existing, err := s.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if existing.IsPosted() {
		return tally.ErrImmutableRecord
	}
	return nil
}

// draftMissReason explains a zero-row draft mutation: either the
// transaction is gone or it has been posted since.
func (s *Store) draftMissReason(ctx context.Context, txID id.TransactionID) error {
	existing, err := s.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}
	if existing.IsPosted() {
		return tally.ErrImmutableRecord
	}
	return tally.ErrWriteConflict
}

func fromEntryModels(models []entryModel) ([]*transaction.Entry, error) {
	result := make([]*transaction.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
