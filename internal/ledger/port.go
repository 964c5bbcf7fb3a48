package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineTotals aggregates the debit and credit sides of posted lines for one
// account.
type LineTotals struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

// EntryFilters defines filters for listing journal entries.
type EntryFilters struct {
	Posted    *bool
	AccountID *uuid.UUID
	From      *time.Time // entry date, inclusive
	To        *time.Time // entry date, inclusive
	Limit     int
	Offset    int
}

// Repository defines the interface for ledger persistence operations.
// The entry log is the ground truth; stored balances are a cache of it that
// must be reproducible from posted lines alone.
type Repository interface {
	// Account operations
	CreateAccount(ctx context.Context, account *Account) error
	UpdateAccount(ctx context.Context, account *Account) error
	GetAccount(ctx context.Context, id uuid.UUID) (*Account, error)
	GetAccountByCode(ctx context.Context, code string) (*Account, error)
	ListAccounts(ctx context.Context) ([]*Account, error)
	ListAccountsByType(ctx context.Context, t AccountType) ([]*Account, error)
	AccountHasLines(ctx context.Context, accountID uuid.UUID) (bool, error)

	// Entry operations (lines are immutable once the entry posts)
	CreateEntry(ctx context.Context, entry *JournalEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*JournalEntry, error)
	GetEntryForUpdate(ctx context.Context, id uuid.UUID) (*JournalEntry, error)
	ListEntries(ctx context.Context, filters EntryFilters) ([]*JournalEntry, error)
	MarkEntryPosted(ctx context.Context, id uuid.UUID, postedAt time.Time) error

	// NextEntryNumber allocates the next sequence value for a fiscal year.
	// Allocation must be safe under concurrent callers; gaps are acceptable,
	// duplicates are not.
	NextEntryNumber(ctx context.Context, year int) (int, error)

	// Balance operations
	GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	GetBalanceForUpdate(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error)
	UpsertBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error

	// SumPostedLines aggregates posted lines per account with entry dates in
	// [from, to]. A zero from or to leaves that bound open.
	SumPostedLines(ctx context.Context, from, to time.Time) (map[uuid.UUID]LineTotals, error)

	// Transaction management
	BeginTx(ctx context.Context) (context.Context, error)
	CommitTx(ctx context.Context) error
	RollbackTx(ctx context.Context) error
}

// ReportInvalidator invalidates derived report caches after a successful post.
type ReportInvalidator interface {
	Invalidate(ctx context.Context) error
}
