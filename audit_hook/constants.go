package audithook

// Action constants for audit events.
const (
	// Account actions
	ActionAccountCreated     = "account.created"
	ActionAccountDeactivated = "account.deactivated"
	ActionAccountReactivated = "account.reactivated"

	// Transaction actions
	ActionTransactionPosted   = "transaction.posted"
	ActionTransactionRejected = "transaction.rejected"
	ActionDraftDiscarded      = "draft.discarded"

	// Reversal actions
	ActionEntryReversed = "entry.reversed"

	// Query actions
	ActionBalanceQueried = "balance.queried"
)

// Resource constants for audit events.
const (
	ResourceAccount     = "account"
	ResourceTransaction = "transaction"
	ResourceEntry       = "entry"
	ResourceBalance     = "balance"
)

// Category constants for audit events.
const (
	CategoryAccounting = "accounting"
	CategoryCorrection = "correction"
	CategoryQuery      = "query"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
