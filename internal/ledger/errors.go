package ledger

import "errors"

// Account errors
var (
	ErrInvalidAccountCode   = errors.New("invalid account code")
	ErrInvalidAccountName   = errors.New("invalid account name")
	ErrInvalidAccountType   = errors.New("invalid account type")
	ErrInvalidCategory      = errors.New("invalid account category")
	ErrCategoryTypeMismatch = errors.New("category does not belong to account type")
	ErrDuplicateCode        = errors.New("account code already exists")
	ErrInvalidParentType    = errors.New("parent account type does not match child")
	ErrParentNotFound       = errors.New("parent account not found")
	ErrHierarchyCycle       = errors.New("parent assignment would create a cycle")
	ErrAccountNotFound      = errors.New("account not found")
	ErrAccountReferenced    = errors.New("account is referenced by journal lines")
	ErrAccountInactive      = errors.New("account is inactive")
	ErrAccountHeld          = errors.New("account is held for consistency review")
)

// Entry errors
var (
	ErrEntryNotFound       = errors.New("journal entry not found")
	ErrAlreadyPosted       = errors.New("journal entry is already posted")
	ErrUnbalanced          = errors.New("journal entry debits and credits do not balance")
	ErrTooFewLines         = errors.New("journal entry requires at least two lines")
	ErrLineTotalMismatch   = errors.New("declared entry totals do not match line totals")
	ErrMixedLine           = errors.New("line sets both debit and credit")
	ErrEmptyLine           = errors.New("line sets neither debit nor credit")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrLineAccountRequired = errors.New("line account is required")
)

// Balance errors
var (
	// ErrBalanceMismatch means a stored balance disagrees with the entry log.
	// This is never expected in correct operation; the account is held until
	// an operator resolves it.
	ErrBalanceMismatch = errors.New("stored balance does not match entry log")
)
