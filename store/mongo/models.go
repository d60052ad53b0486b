package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/tally/account"
	"github.com/xraph/tally/id"
	"github.com/xraph/tally/transaction"
	"github.com/xraph/tally/types"
)

// ==================== Account models ====================

type accountModel struct {
	grove.BaseModel `grove:"table:tally_accounts"`

	ID        string            `grove:"id,pk"      bson:"_id"`
	OwnerKind string            `grove:"owner_kind" bson:"owner_kind"`
	OwnerID   string            `grove:"owner_id"   bson:"owner_id"`
	Number    string            `grove:"number"     bson:"number"`
	Name      string            `grove:"name"       bson:"name"`
	Type      string            `grove:"type"       bson:"type"`
	Currency  string            `grove:"currency"   bson:"currency"`
	Active    bool              `grove:"active"     bson:"active"`
	Metadata  map[string]string `grove:"metadata"   bson:"metadata,omitempty"`
	CreatedAt time.Time         `grove:"created_at" bson:"created_at"`
	UpdatedAt time.Time         `grove:"updated_at" bson:"updated_at"`
}

func toAccountModel(a *account.Account) *accountModel {
	return &accountModel{
		ID:        a.ID.String(),
		OwnerKind: a.Owner.Kind,
		OwnerID:   a.Owner.ID,
		Number:    a.Number,
		Name:      a.Name,
		Type:      string(a.Type),
		Currency:  a.Currency,
		Active:    a.Active,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromAccountModel(m *accountModel) (*account.Account, error) {
	accountID, err := id.ParseAccountID(m.ID)
	if err != nil {
		return nil, err
	}

	return &account.Account{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       accountID,
		Owner:    account.OwnerRef{Kind: m.OwnerKind, ID: m.OwnerID},
		Number:   m.Number,
		Name:     m.Name,
		Type:     account.Type(m.Type),
		Currency: m.Currency,
		Active:   m.Active,
		Metadata: m.Metadata,
	}, nil
}

// ==================== Transaction models ====================

type transactionModel struct {
	grove.BaseModel `grove:"table:tally_transactions"`

	ID          string            `grove:"id,pk"        bson:"_id"`
	Description string            `grove:"description"  bson:"description"`
	EffectiveAt time.Time         `grove:"effective_at" bson:"effective_at"`
	RecordedAt  time.Time         `grove:"recorded_at"  bson:"recorded_at"`
	PostedAt    *time.Time        `grove:"posted_at"    bson:"posted_at,omitempty"`
	Metadata    map[string]string `grove:"metadata"     bson:"metadata,omitempty"`
	CreatedAt   time.Time         `grove:"created_at"   bson:"created_at"`
	UpdatedAt   time.Time         `grove:"updated_at"   bson:"updated_at"`
}

func toTransactionModel(tx *transaction.Transaction) *transactionModel {
	return &transactionModel{
		ID:          tx.ID.String(),
		Description: tx.Description,
		EffectiveAt: tx.EffectiveAt,
		RecordedAt:  tx.RecordedAt,
		PostedAt:    tx.PostedAt,
		Metadata:    tx.Metadata,
		CreatedAt:   tx.CreatedAt,
		UpdatedAt:   tx.UpdatedAt,
	}
}

func fromTransactionModel(m *transactionModel) (*transaction.Transaction, error) {
	txID, err := id.ParseTransactionID(m.ID)
	if err != nil {
		return nil, err
	}

	return &transaction.Transaction{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          txID,
		Description: m.Description,
		EffectiveAt: m.EffectiveAt,
		RecordedAt:  m.RecordedAt,
		PostedAt:    m.PostedAt,
		Metadata:    m.Metadata,
	}, nil
}

// ==================== Entry models ====================

// entryModel stores amounts as integer ticks at scale 4. The reverses
// field is omitted for entries that do not offset another entry.
type entryModel struct {
	grove.BaseModel `grove:"table:tally_entries"`

	ID            string            `grove:"id,pk"          bson:"_id"`
	TransactionID string            `grove:"transaction_id" bson:"transaction_id"`
	AccountID     string            `grove:"account_id"     bson:"account_id"`
	AmountTicks   int64             `grove:"amount_ticks"   bson:"amount_ticks"`
	Side          string            `grove:"side"           bson:"side"`
	Description   string            `grove:"description"    bson:"description"`
	EffectiveAt   time.Time         `grove:"effective_at"   bson:"effective_at"`
	RecordedAt    time.Time         `grove:"recorded_at"    bson:"recorded_at"`
	Reverses      string            `grove:"reverses"       bson:"reverses,omitempty"`
	Metadata      map[string]string `grove:"metadata"       bson:"metadata,omitempty"`
	CreatedAt     time.Time         `grove:"created_at"     bson:"created_at"`
}

func toEntryModel(e *transaction.Entry) *entryModel {
	reverses := ""
	if !e.Reverses.IsNil() {
		reverses = e.Reverses.String()
	}

	return &entryModel{
		ID:            e.ID.String(),
		TransactionID: e.TransactionID.String(),
		AccountID:     e.AccountID.String(),
		AmountTicks:   e.Amount.Ticks(),
		Side:          string(e.Side),
		Description:   e.Description,
		EffectiveAt:   e.EffectiveAt,
		RecordedAt:    e.RecordedAt,
		Reverses:      reverses,
		Metadata:      e.Metadata,
		CreatedAt:     time.Now().UTC(),
	}
}

func fromEntryModel(m *entryModel) (*transaction.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	txID, err := id.ParseTransactionID(m.TransactionID)
	if err != nil {
		return nil, err
	}
	accountID, err := id.ParseAccountID(m.AccountID)
	if err != nil {
		return nil, err
	}

	reverses := id.Nil
	if m.Reverses != "" {
		reverses, err = id.ParseEntryID(m.Reverses)
		if err != nil {
			return nil, err
		}
	}

	return &transaction.Entry{
		ID:            entryID,
		TransactionID: txID,
		AccountID:     accountID,
		Amount:        types.AmountFromTicks(m.AmountTicks),
		Side:          transaction.Side(m.Side),
		Description:   m.Description,
		EffectiveAt:   m.EffectiveAt,
		RecordedAt:    m.RecordedAt,
		Reverses:      reverses,
		Metadata:      m.Metadata,
	}, nil
}
