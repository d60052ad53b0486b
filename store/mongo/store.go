package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	tally "github.com/xraph/tally"
	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	tallystore "github.com/xraph/tally/store"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// Collection name constants.
const (
	colAccounts     = "tally_accounts"
	colTransactions = "tally_transactions"
	colEntries      = "tally_entries"
)

// compile-time interface check
var _ tallystore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
//
// Mongo has no cross-collection joins, so entry reads resolve posting
// state in two steps: fetch candidate entries, then keep only those whose
// transaction is posted. The second query is bounded by the distinct
// transaction IDs of the first.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all tally collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("tally/mongo: migrate %s indexes: %w", col, err)
		}
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
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrAlreadyExists
		}
		return fmt.Errorf("tally/mongo: create account: %w", err)
	}
	return nil
}

func (s *Store) GetAccount(ctx context.Context, accountID id.AccountID) (*account.Account, error) {
	var m accountModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": accountID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrAccountNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get account: %w", err)
	}
	return fromAccountModel(&m)
}

func (s *Store) FindAccounts(ctx context.Context, filter account.Filter) ([]*account.Account, error) {
	var models []accountModel

	f := bson.M{}
	if !filter.Owner.IsZero() {
		f["owner_kind"] = filter.Owner.Kind
		f["owner_id"] = filter.Owner.ID
	}
	if filter.Type != "" {
		f["type"] = string(filter.Type)
	}
	if filter.Currency != "" {
		f["currency"] = filter.Currency
	}
	if filter.ActiveOnly {
		f["active"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "number", Value: 1}, {Key: "_id", Value: 1}})

	if filter.Limit > 0 {
		q = q.Limit(int64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Skip(int64(filter.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("tally/mongo: find accounts: %w", err)
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
	res, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": m.ID}).
		Set("name", m.Name).
		Set("metadata", m.Metadata).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update account display: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrAccountNotFound
	}
	return nil
}

func (s *Store) SetAccountActive(ctx context.Context, accountID id.AccountID, active bool) error {
	res, err := s.mdb.NewUpdate((*accountModel)(nil)).
		Filter(bson.M{"_id": accountID.String()}).
		Set("active", active).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: set account active: %w", err)
	}
	if res.MatchedCount() == 0 {
		return tally.ErrAccountNotFound
	}
	return nil
}

// ==================== Transaction Store ====================

func (s *Store) CreateTransaction(ctx context.Context, tx *transaction.Transaction, entries []*transaction.Entry) error {
	m := toTransactionModel(tx)

	// The posted_at flip is the commit point: the transaction document
	// goes in unposted, entries follow, and posted_at is set last.
	// Readers resolve posting state through the transaction document, so
	// a failure mid-write leaves an invisible draft.
	postedAt := m.PostedAt
	m.PostedAt = nil
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return tally.ErrAlreadyExists
		}
		return fmt.Errorf("tally/mongo: create transaction: %w", err)
	}

	for _, e := range entries {
		em := toEntryModel(e)
		if _, err := s.mdb.NewInsert(em).Exec(ctx); err != nil {
			return fmt.Errorf("tally/mongo: create entry: %w", err)
		}
	}

	if postedAt != nil {
		_, err := s.mdb.NewUpdate((*transactionModel)(nil)).
			Filter(bson.M{"_id": m.ID}).
			Set("posted_at", *postedAt).
			Set("updated_at", now()).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("tally/mongo: post transaction: %w", err)
		}
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txID id.TransactionID) (*transaction.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": txID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get transaction: %w", err)
	}
	return fromTransactionModel(&m)
}

func (s *Store) UpdateTransaction(ctx context.Context, tx *transaction.Transaction) error {
	m := toTransactionModel(tx)
	res, err := s.mdb.NewUpdate((*transactionModel)(nil)).
		Filter(bson.M{"_id": m.ID, "posted_at": nil}).
		Set("description", m.Description).
		Set("effective_at", m.EffectiveAt).
		Set("metadata", m.Metadata).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update transaction: %w", err)
	}
	if res.MatchedCount() == 0 {
		return s.draftMissReason(ctx, tx.ID)
	}
	return nil
}

func (s *Store) DeleteTransaction(ctx context.Context, txID id.TransactionID) error {
	res, err := s.mdb.NewDelete((*transactionModel)(nil)).
		Filter(bson.M{"_id": txID.String(), "posted_at": nil}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: delete transaction: %w", err)
	}
	if res.DeletedCount() == 0 {
		return s.draftMissReason(ctx, txID)
	}
	_, err = s.mdb.NewDelete((*entryModel)(nil)).
		Filter(bson.M{"transaction_id": txID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: delete transaction entries: %w", err)
	}
	return nil
}

func (s *Store) PostTransaction(ctx context.Context, txID id.TransactionID, postedAt time.Time) error {
	// Balance is re-asserted at the flip itself so entries appended between
	// validation and posting cannot slip into the books unbalanced. Mongo
	// cannot express the check and the flip in one statement across
	// collections, so the check runs immediately before the conditional
	// update; an append racing past it still loses to the draft filter once
	// the flip lands.
	net, err := s.txImbalance(ctx, txID)
	if err != nil {
		return err
	}
	if net != 0 {
		return tally.ErrUnbalanced
	}

	res, err := s.mdb.NewUpdate((*transactionModel)(nil)).
		Filter(bson.M{"_id": txID.String(), "posted_at": nil}).
		Set("posted_at", postedAt).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: post transaction: %w", err)
	}
	if res.MatchedCount() == 0 {
		existing, err := s.GetTransaction(ctx, txID)
		if err != nil {
			return err
		}
		if existing.IsPosted() {
			return tally.ErrAlreadyPosted
		}
		return tally.ErrWriteConflict
	}
	return nil
}

// txImbalance returns the net of debit minus credit ticks for a transaction.
func (s *Store) txImbalance(ctx context.Context, txID id.TransactionID) (int64, error) {
	var models []entryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"transaction_id": txID.String()}).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("tally/mongo: sum transaction entries: %w", err)
	}
	var net int64
	for _, m := range models {
		if m.Side == string(transaction.Debit) {
			net += m.AmountTicks
		} else {
			net -= m.AmountTicks
		}
	}
	return net, nil
}

func (s *Store) GetTransactionByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	var m transactionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"metadata." + transaction.MetaIdempotencyKey: key}).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get transaction by idempotency key: %w", err)
	}
	return fromTransactionModel(&m)
}

// ==================== Entry Store ====================

func (s *Store) AppendEntries(ctx context.Context, txID id.TransactionID, entries []*transaction.Entry) error {
	if err := s.requireDraft(ctx, txID); err != nil {
		return err
	}
	for _, e := range entries {
		m := toEntryModel(e)
		if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
			return fmt.Errorf("tally/mongo: append entry: %w", err)
		}
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*transaction.Entry, error) {
	var m entryModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": entryID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, tally.ErrEntryNotFound
		}
		return nil, fmt.Errorf("tally/mongo: get entry: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) GetTransactionEntries(ctx context.Context, txID id.TransactionID) ([]*transaction.Entry, error) {
	if _, err := s.GetTransaction(ctx, txID); err != nil {
		return nil, err
	}

	var models []entryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"transaction_id": txID.String()}).
		Sort(bson.D{{Key: "effective_at", Value: 1}, {Key: "recorded_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: get transaction entries: %w", err)
	}
	return fromEntryModels(models)
}

func (s *Store) UpdateEntry(ctx context.Context, e *transaction.Entry) error {
	if err := s.requireDraft(ctx, e.TransactionID); err != nil {
		return err
	}
	m := toEntryModel(e)
	res, err := s.mdb.NewUpdate((*entryModel)(nil)).
		Filter(bson.M{"_id": m.ID}).
		Set("account_id", m.AccountID).
		Set("amount_ticks", m.AmountTicks).
		Set("side", m.Side).
		Set("description", m.Description).
		Set("effective_at", m.EffectiveAt).
		Set("metadata", m.Metadata).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: update entry: %w", err)
	}
	if res.MatchedCount() == 0 {
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
	_, err = s.mdb.NewDelete((*entryModel)(nil)).
		Filter(bson.M{"_id": entryID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("tally/mongo: delete entry: %w", err)
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, opts transaction.ListOpts) ([]*transaction.Entry, error) {
	f := bson.M{}
	if !opts.AccountID.IsNil() {
		f["account_id"] = opts.AccountID.String()
	}
	addRangeFilter(f, opts.Range)

	var models []entryModel
	err := s.mdb.NewFind(&models).
		Filter(f).
		Sort(bson.D{{Key: "effective_at", Value: 1}, {Key: "recorded_at", Value: 1}, {Key: "_id", Value: 1}}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: list entries: %w", err)
	}

	posted, err := s.postedEntries(ctx, models)
	if err != nil {
		return nil, err
	}

	// Pagination runs after the posted filter so offsets stay stable.
	start := opts.Offset
	if start > len(posted) {
		start = len(posted)
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(posted) {
		end = len(posted)
	}
	return fromEntryModels(posted[start:end])
}

func (s *Store) SumEntries(ctx context.Context, accountID id.AccountID, asOf time.Time) (types.Amount, types.Amount, error) {
	f := bson.M{"account_id": accountID.String()}
	if !asOf.IsZero() {
		f["effective_at"] = bson.M{"$lte": asOf}
	}

	var models []entryModel
	err := s.mdb.NewFind(&models).
		Filter(f).
		Scan(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("tally/mongo: sum entries: %w", err)
	}

	posted, err := s.postedEntries(ctx, models)
	if err != nil {
		return 0, 0, err
	}

	var debits, credits types.Amount
	for i := range posted {
		amt := types.AmountFromTicks(posted[i].AmountTicks)
		if transaction.Side(posted[i].Side) == transaction.Debit {
			debits = debits.Add(amt)
		} else {
			credits = credits.Add(amt)
		}
	}
	return debits, credits, nil
}

func (s *Store) FindReversal(ctx context.Context, entryID id.EntryID) (*transaction.Entry, error) {
	var models []entryModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{"reverses": entryID.String()}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: find reversal: %w", err)
	}

	posted, err := s.postedEntries(ctx, models)
	if err != nil {
		return nil, err
	}
	if len(posted) == 0 {
		return nil, tally.ErrNotFound
	}
	return fromEntryModel(&posted[0])
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

// draftMissReason explains a zero-match draft mutation: either the
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

// postedEntries keeps only entries whose owning transaction is posted.
// It queries the transactions collection once for the distinct IDs seen.
func (s *Store) postedEntries(ctx context.Context, models []entryModel) ([]entryModel, error) {
	if len(models) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(models))
	ids := make([]string, 0, len(models))
	for i := range models {
		if _, ok := seen[models[i].TransactionID]; ok {
			continue
		}
		seen[models[i].TransactionID] = struct{}{}
		ids = append(ids, models[i].TransactionID)
	}
	sort.Strings(ids)

	var txs []transactionModel
	err := s.mdb.NewFind(&txs).
		Filter(bson.M{
			"_id":       bson.M{"$in": ids},
			"posted_at": bson.M{"$ne": nil},
		}).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally/mongo: resolve posted transactions: %w", err)
	}

	postedSet := make(map[string]struct{}, len(txs))
	for i := range txs {
		postedSet[txs[i].ID] = struct{}{}
	}

	result := make([]entryModel, 0, len(models))
	for i := range models {
		if _, ok := postedSet[models[i].TransactionID]; ok {
			result = append(result, models[i])
		}
	}
	return result, nil
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

func addRangeFilter(f bson.M, r transaction.EntryRange) {
	if r.From.IsZero() && r.To.IsZero() {
		return
	}
	ts := bson.M{}
	if !r.From.IsZero() {
		ts["$gte"] = r.From
	}
	if !r.To.IsZero() {
		ts["$lt"] = r.To
	}
	f["effective_at"] = ts
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all tally collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colAccounts: {
			{Keys: bson.D{{Key: "owner_kind", Value: 1}, {Key: "owner_id", Value: 1}}},
			{
				Keys: bson.D{{Key: "owner_kind", Value: 1}, {Key: "owner_id", Value: 1}, {Key: "number", Value: 1}},
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"number": bson.M{"$gt": ""}}),
			},
			{Keys: bson.D{{Key: "type", Value: 1}}},
		},
		colTransactions: {
			{Keys: bson.D{{Key: "effective_at", Value: 1}}},
			{Keys: bson.D{{Key: "posted_at", Value: 1}}},
			{
				Keys:    bson.D{{Key: "metadata." + transaction.MetaIdempotencyKey, Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
		colEntries: {
			{Keys: bson.D{{Key: "transaction_id", Value: 1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "effective_at", Value: 1}, {Key: "recorded_at", Value: 1}}},
			{
				Keys:    bson.D{{Key: "reverses", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
	}
}
