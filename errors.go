package tally

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound      = errors.New("tally: not found")
	ErrAlreadyExists = errors.New("tally: already exists")
	ErrInvalidInput  = errors.New("tally: invalid input")

	// Account errors
	ErrAccountNotFound = errors.New("tally: account not found")
	ErrInactiveAccount = errors.New("tally: account is inactive")
	ErrDuplicateNumber = errors.New("tally: account number already in use")

	// Transaction errors
	ErrTransactionNotFound = errors.New("tally: transaction not found")
	ErrEntryNotFound       = errors.New("tally: entry not found")
	ErrUnbalanced          = errors.New("tally: transaction debits and credits do not balance")
	ErrInvalidEntryCount   = errors.New("tally: transaction needs at least one debit and one credit entry")
	ErrInvalidAmount       = errors.New("tally: entry amount must be positive")
	ErrInvalidSide         = errors.New("tally: entry side must be debit or credit")
	ErrCurrencyMismatch    = errors.New("tally: entries span accounts with different currencies")

	// Immutability errors
	ErrImmutableRecord = errors.New("tally: posted records cannot be modified or deleted")
	ErrAlreadyPosted   = errors.New("tally: transaction already posted")

	// Reversal errors
	ErrCannotReverseUnposted = errors.New("tally: cannot reverse an entry of an unposted transaction")
	ErrAlreadyReversed       = errors.New("tally: entry already reversed")

	// Store errors
	ErrStoreNotReady   = errors.New("tally: store not ready")
	ErrStoreClosed     = errors.New("tally: store is closed")
	ErrWriteConflict   = errors.New("tally: concurrent write conflict")
	ErrMigrationFailed = errors.New("tally: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tally: validation failed for %s: %s", e.Field, e.Message)
}

// MultiError represents multiple errors that occurred.
type MultiError struct {
	Errors []error
}

func (e MultiError) Error() string {
	if len(e.Errors) == 0 {
		return "tally: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	return fmt.Sprintf("tally: %d errors occurred", len(e.Errors))
}

// Add adds an error to the multi-error.
func (e *MultiError) Add(err error) {
	if err != nil {
		e.Errors = append(e.Errors, err)
	}
}

// HasErrors returns true if there are any errors.
func (e MultiError) HasErrors() bool {
	return len(e.Errors) > 0
}

// First returns the first error or nil.
func (e MultiError) First() error {
	if len(e.Errors) > 0 {
		return e.Errors[0]
	}
	return nil
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrTransactionNotFound) ||
		errors.Is(err, ErrEntryNotFound)
}

// IsValidation returns true if the error is a rejection of caller input,
// as opposed to an infrastructure failure.
func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnbalanced) ||
		errors.Is(err, ErrInvalidEntryCount) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidSide) ||
		errors.Is(err, ErrCurrencyMismatch) ||
		errors.Is(err, ErrInactiveAccount)
}

// IsImmutable returns true if the error signals an attempt to change a
// posted record.
func IsImmutable(err error) bool {
	return errors.Is(err, ErrImmutableRecord) ||
		errors.Is(err, ErrAlreadyPosted)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrWriteConflict)
}
