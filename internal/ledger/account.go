package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether the type's balance increases on debit.
// Asset and Expense accounts are debit-normal; Liability, Equity and
// Revenue accounts are credit-normal.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Delta applies the normal-balance rule to a debit/credit pair and returns
// the signed balance movement for an account of this type.
func (t AccountType) Delta(debit, credit decimal.Decimal) decimal.Decimal {
	if t.DebitNormal() {
		return debit.Sub(credit)
	}
	return credit.Sub(debit)
}

// AccountCategory sub-classifies accounts within a type for statement grouping.
type AccountCategory string

const (
	CategoryCash              AccountCategory = "CASH"
	CategoryCurrentAsset      AccountCategory = "CURRENT_ASSET"
	CategoryFixedAsset        AccountCategory = "FIXED_ASSET"
	CategoryCurrentLiability  AccountCategory = "CURRENT_LIABILITY"
	CategoryLongTermLiability AccountCategory = "LONG_TERM_LIABILITY"
	CategoryEquity            AccountCategory = "EQUITY"
	CategoryOperatingRevenue  AccountCategory = "OPERATING_REVENUE"
	CategoryOtherRevenue      AccountCategory = "OTHER_REVENUE"
	CategoryCOGS              AccountCategory = "COGS"
	CategoryOperatingExpense  AccountCategory = "OPERATING_EXPENSE"
	CategoryOtherExpense      AccountCategory = "OTHER_EXPENSE"
)

// categoryTypes maps each category to the account type it belongs to.
var categoryTypes = map[AccountCategory]AccountType{
	CategoryCash:              AccountTypeAsset,
	CategoryCurrentAsset:      AccountTypeAsset,
	CategoryFixedAsset:        AccountTypeAsset,
	CategoryCurrentLiability:  AccountTypeLiability,
	CategoryLongTermLiability: AccountTypeLiability,
	CategoryEquity:            AccountTypeEquity,
	CategoryOperatingRevenue:  AccountTypeRevenue,
	CategoryOtherRevenue:      AccountTypeRevenue,
	CategoryCOGS:              AccountTypeExpense,
	CategoryOperatingExpense:  AccountTypeExpense,
	CategoryOtherExpense:      AccountTypeExpense,
}

// Valid reports whether c is a known category.
func (c AccountCategory) Valid() bool {
	_, ok := categoryTypes[c]
	return ok
}

// AccountType returns the account type the category belongs to.
func (c AccountCategory) AccountType() AccountType {
	return categoryTypes[c]
}

// DefaultCategory returns the fallback category for an account type.
func DefaultCategory(t AccountType) AccountCategory {
	switch t {
	case AccountTypeAsset:
		return CategoryCurrentAsset
	case AccountTypeLiability:
		return CategoryCurrentLiability
	case AccountTypeEquity:
		return CategoryEquity
	case AccountTypeRevenue:
		return CategoryOperatingRevenue
	default:
		return CategoryOperatingExpense
	}
}

// Account represents an account in the chart of accounts.
// Accounts are never physically deleted; they are deactivated instead so
// historical balances stay auditable.
type Account struct {
	ID        uuid.UUID
	Code      string // unique, stable string key ("1000", "4000", ...)
	Name      string
	Type      AccountType
	Category  AccountCategory
	ParentID  *uuid.UUID // parent must share the account type
	IsActive  bool
	Balance   decimal.Decimal // normal-balance convention; written only by BalanceStore
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the account.
func (a *Account) Validate() error {
	if a.Code == "" {
		return ErrInvalidAccountCode
	}
	if a.Name == "" {
		return ErrInvalidAccountName
	}
	if !a.Type.Valid() {
		return ErrInvalidAccountType
	}
	if !a.Category.Valid() {
		return ErrInvalidCategory
	}
	if a.Category.AccountType() != a.Type {
		return ErrCategoryTypeMismatch
	}
	return nil
}

// IsCashAccount reports whether the account participates in cash-flow and
// bank-reconciliation calculations.
func (a *Account) IsCashAccount() bool {
	return a.Category == CategoryCash
}
