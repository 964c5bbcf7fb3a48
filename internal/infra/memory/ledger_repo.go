package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
)

// LedgerRepository is an in-memory implementation of ledger.Repository.
// It backs the unit tests and single-node deployments that do not need
// postgres. Repository transactions serialize on one mutex, which satisfies
// the per-account ordering guarantee trivially; rollback restores a snapshot
// of balances and entry posted-state.
type LedgerRepository struct {
	mu        sync.RWMutex
	accounts  map[uuid.UUID]*ledger.Account
	byCode    map[string]uuid.UUID
	entries   map[uuid.UUID]*ledger.JournalEntry
	balances  map[uuid.UUID]decimal.Decimal
	sequences map[int]int

	txMu sync.Mutex
}

// NewLedgerRepository creates an empty in-memory repository.
func NewLedgerRepository() *LedgerRepository {
	return &LedgerRepository{
		accounts:  make(map[uuid.UUID]*ledger.Account),
		byCode:    make(map[string]uuid.UUID),
		entries:   make(map[uuid.UUID]*ledger.JournalEntry),
		balances:  make(map[uuid.UUID]decimal.Decimal),
		sequences: make(map[int]int),
	}
}

// Account operations

func (r *LedgerRepository) CreateAccount(ctx context.Context, account *ledger.Account) error {
	if err := account.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[account.Code]; exists {
		return ledger.ErrDuplicateCode
	}

	stored := *account
	r.accounts[stored.ID] = &stored
	r.byCode[stored.Code] = stored.ID
	return nil
}

func (r *LedgerRepository) UpdateAccount(ctx context.Context, account *ledger.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.accounts[account.ID]
	if !ok {
		return ledger.ErrAccountNotFound
	}

	if existing.Code != account.Code {
		if _, taken := r.byCode[account.Code]; taken {
			return ledger.ErrDuplicateCode
		}
		delete(r.byCode, existing.Code)
		r.byCode[account.Code] = account.ID
	}

	stored := *account
	r.accounts[account.ID] = &stored
	return nil
}

func (r *LedgerRepository) GetAccount(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getAccountLocked(id)
}

func (r *LedgerRepository) GetAccountByCode(ctx context.Context, code string) (*ledger.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	return r.getAccountLocked(id)
}

func (r *LedgerRepository) getAccountLocked(id uuid.UUID) (*ledger.Account, error) {
	account, ok := r.accounts[id]
	if !ok {
		return nil, ledger.ErrAccountNotFound
	}
	out := *account
	out.Balance = r.balances[id]
	return &out, nil
}

func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]*ledger.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*ledger.Account, 0, len(r.accounts))
	for id := range r.accounts {
		account, _ := r.getAccountLocked(id)
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *LedgerRepository) ListAccountsByType(ctx context.Context, t ledger.AccountType) ([]*ledger.Account, error) {
	all, err := r.ListAccounts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*ledger.Account, 0, len(all))
	for _, a := range all {
		if a.Type == t {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *LedgerRepository) AccountHasLines(ctx context.Context, accountID uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, entry := range r.entries {
		for _, line := range entry.Lines {
			if line.AccountID == accountID {
				return true, nil
			}
		}
	}
	return false, nil
}

// Entry operations

func (r *LedgerRepository) CreateEntry(ctx context.Context, entry *ledger.JournalEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entry.ID]; exists {
		return fmt.Errorf("entry %s already exists", entry.ID)
	}
	r.entries[entry.ID] = copyEntry(entry)
	return nil
}

func (r *LedgerRepository) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, ledger.ErrEntryNotFound
	}
	return copyEntry(entry), nil
}

func (r *LedgerRepository) GetEntryForUpdate(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	return r.GetEntry(ctx, id)
}

func (r *LedgerRepository) ListEntries(ctx context.Context, filters ledger.EntryFilters) ([]*ledger.JournalEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*ledger.JournalEntry
	for _, entry := range r.entries {
		if filters.Posted != nil && entry.IsPosted != *filters.Posted {
			continue
		}
		if filters.From != nil && entry.Date.Before(*filters.From) {
			continue
		}
		if filters.To != nil && entry.Date.After(*filters.To) {
			continue
		}
		if filters.AccountID != nil {
			found := false
			for _, line := range entry.Lines {
				if line.AccountID == *filters.AccountID {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, copyEntry(entry))
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].EntryNumber < out[j].EntryNumber
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			return nil, nil
		}
		out = out[filters.Offset:]
	}
	if filters.Limit > 0 && filters.Limit < len(out) {
		out = out[:filters.Limit]
	}

	return out, nil
}

func (r *LedgerRepository) MarkEntryPosted(ctx context.Context, id uuid.UUID, postedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return ledger.ErrEntryNotFound
	}
	if entry.IsPosted {
		return ledger.ErrAlreadyPosted
	}
	entry.IsPosted = true
	at := postedAt
	entry.PostedAt = &at
	return nil
}

func (r *LedgerRepository) NextEntryNumber(ctx context.Context, year int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sequences[year]++
	return r.sequences[year], nil
}

// Balance operations

func (r *LedgerRepository) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.balances[accountID], nil
}

func (r *LedgerRepository) GetBalanceForUpdate(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return r.GetBalance(ctx, accountID)
}

func (r *LedgerRepository) UpsertBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balances[accountID] = balance
	return nil
}

func (r *LedgerRepository) SumPostedLines(ctx context.Context, from, to time.Time) (map[uuid.UUID]ledger.LineTotals, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	totals := make(map[uuid.UUID]ledger.LineTotals)
	for _, entry := range r.entries {
		if !entry.IsPosted {
			continue
		}
		if !from.IsZero() && entry.Date.Before(from) {
			continue
		}
		if !to.IsZero() && entry.Date.After(to) {
			continue
		}
		for _, line := range entry.Lines {
			t := totals[line.AccountID]
			t.Debits = t.Debits.Add(line.Debit)
			t.Credits = t.Credits.Add(line.Credit)
			totals[line.AccountID] = t
		}
	}
	return totals, nil
}

// Transaction management
//
// The snapshot covers balances and entry posted-state, which posting mutates
// inside a transaction. Entry creation runs in a transaction too, but its
// single map insert cannot fail partway, so it needs nothing from the snapshot.

type txState struct {
	balances map[uuid.UUID]decimal.Decimal
	posted   map[uuid.UUID]postedState
}

type postedState struct {
	isPosted bool
	postedAt *time.Time
}

type ctxKey string

const txContextKey ctxKey = "memory_tx"

func (r *LedgerRepository) BeginTx(ctx context.Context) (context.Context, error) {
	if ctx.Value(txContextKey) != nil {
		return ctx, fmt.Errorf("transaction already in progress")
	}

	r.txMu.Lock()

	r.mu.RLock()
	state := &txState{
		balances: make(map[uuid.UUID]decimal.Decimal, len(r.balances)),
		posted:   make(map[uuid.UUID]postedState, len(r.entries)),
	}
	for id, b := range r.balances {
		state.balances[id] = b
	}
	for id, e := range r.entries {
		state.posted[id] = postedState{isPosted: e.IsPosted, postedAt: e.PostedAt}
	}
	r.mu.RUnlock()

	return context.WithValue(ctx, txContextKey, state), nil
}

func (r *LedgerRepository) CommitTx(ctx context.Context) error {
	if ctx.Value(txContextKey) == nil {
		return fmt.Errorf("no transaction in context")
	}
	r.txMu.Unlock()
	return nil
}

func (r *LedgerRepository) RollbackTx(ctx context.Context) error {
	state, ok := ctx.Value(txContextKey).(*txState)
	if !ok {
		return fmt.Errorf("no transaction in context")
	}

	r.mu.Lock()
	r.balances = make(map[uuid.UUID]decimal.Decimal, len(state.balances))
	for id, b := range state.balances {
		r.balances[id] = b
	}
	for id, p := range state.posted {
		if e, exists := r.entries[id]; exists {
			e.IsPosted = p.isPosted
			e.PostedAt = p.postedAt
		}
	}
	r.mu.Unlock()

	r.txMu.Unlock()
	return nil
}

func copyEntry(entry *ledger.JournalEntry) *ledger.JournalEntry {
	out := *entry
	out.Lines = make([]*ledger.JournalEntryLine, len(entry.Lines))
	for i, l := range entry.Lines {
		line := *l
		out.Lines[i] = &line
	}
	if entry.PostedAt != nil {
		at := *entry.PostedAt
		out.PostedAt = &at
	}
	return &out
}
