package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
)

// Poster validates journal entries and posts them, mutating account balances
// under the normal-balance rules. Posting an entry is all-or-nothing: either
// every line delta applies and the entry flips to Posted, or none do and the
// entry stays Draft.
type Poster struct {
	repo        Repository
	balances    *BalanceStore
	invalidator ReportInvalidator // optional
	log         *logger.Logger

	mu    sync.Mutex
	holds map[uuid.UUID]string
}

// NewPoster creates a new ledger poster.
func NewPoster(repo Repository, balances *BalanceStore, log *logger.Logger) *Poster {
	return &Poster{
		repo:     repo,
		balances: balances,
		log:      log,
		holds:    make(map[uuid.UUID]string),
	}
}

// SetInvalidator wires a report-cache invalidator. May be left unset.
func (p *Poster) SetInvalidator(inv ReportInvalidator) {
	p.invalidator = inv
}

// CreateEntry persists a validated draft as an unposted journal entry and
// assigns it a fresh entry number from the per-fiscal-year sequence.
func (p *Poster) CreateEntry(ctx context.Context, draft *EntryDraft) (*JournalEntry, error) {
	header := draft.Header()

	// The header and its lines must land together. A single transaction also
	// covers the number allocation, so failed creates do not burn a sequence
	// value.
	txCtx, err := p.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = p.repo.RollbackTx(txCtx)
		}
	}()

	year := header.Date.Year()
	seq, err := p.repo.NextEntryNumber(txCtx, year)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate entry number: %w", err)
	}

	entry := &JournalEntry{
		ID:          uuid.New(),
		EntryNumber: FormatEntryNumber(year, seq),
		Date:        header.Date,
		Description: header.Description,
		Reference:   header.Reference,
		IsPosted:    false,
		CreatedBy:   header.CreatedBy,
		CreatedAt:   time.Now(),
	}
	for i, l := range draft.Lines() {
		entry.Lines = append(entry.Lines, &JournalEntryLine{
			EntryID:    entry.ID,
			AccountID:  l.AccountID,
			Debit:      l.Debit,
			Credit:     l.Credit,
			LineNumber: i + 1,
		})
	}

	if err := p.repo.CreateEntry(txCtx, entry); err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	if err := p.repo.CommitTx(txCtx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	p.log.WithContext(ctx).Info("journal entry created",
		"entry_id", entry.ID,
		"entry_number", entry.EntryNumber,
		"lines", len(entry.Lines),
	)

	return entry, nil
}

// GetEntry retrieves a journal entry by ID.
func (p *Poster) GetEntry(ctx context.Context, id uuid.UUID) (*JournalEntry, error) {
	return p.repo.GetEntry(ctx, id)
}

// ListEntries lists journal entries with filters.
func (p *Poster) ListEntries(ctx context.Context, filters EntryFilters) ([]*JournalEntry, error) {
	return p.repo.ListEntries(ctx, filters)
}

// PostEntry applies a draft entry to account balances and marks it posted.
// Re-validates the balance invariant before mutating anything, applies all
// line deltas inside one repository transaction, and is safe to retry: a
// second call returns ErrAlreadyPosted without double-applying.
func (p *Poster) PostEntry(ctx context.Context, id uuid.UUID) error {
	entry, err := p.repo.GetEntry(ctx, id)
	if err != nil {
		return err
	}
	if entry.IsPosted {
		return ErrAlreadyPosted
	}

	// Defense in depth: the draft constructor already enforced these.
	if err := entry.Validate(); err != nil {
		return err
	}

	deltas, err := p.resolveDeltas(ctx, entry)
	if err != nil {
		return err
	}

	txCtx, err := p.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = p.repo.RollbackTx(txCtx)
		}
	}()

	// Re-check posted state under the transaction so concurrent retries
	// cannot double-apply.
	locked, err := p.repo.GetEntryForUpdate(txCtx, id)
	if err != nil {
		return err
	}
	if locked.IsPosted {
		return ErrAlreadyPosted
	}

	// Balances lock in account-ID order to keep lock acquisition consistent
	// across concurrent posts.
	for _, d := range deltas {
		if _, err := p.balances.ApplyDelta(txCtx, d.accountID, d.delta); err != nil {
			return fmt.Errorf("failed to apply delta for account %s: %w", d.accountID, err)
		}
	}

	postedAt := time.Now()
	if err := p.repo.MarkEntryPosted(txCtx, id, postedAt); err != nil {
		return fmt.Errorf("failed to mark entry posted: %w", err)
	}

	if err := p.repo.CommitTx(txCtx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	committed = true

	if p.invalidator != nil {
		if err := p.invalidator.Invalidate(ctx); err != nil {
			p.log.WithContext(ctx).Warn("report cache invalidation failed", "error", err)
		}
	}

	p.log.WithContext(ctx).Info("journal entry posted",
		"entry_id", id,
		"entry_number", entry.EntryNumber,
		"accounts", len(deltas),
	)

	return nil
}

// accountDelta is one account's aggregated normal-balance movement.
type accountDelta struct {
	accountID uuid.UUID
	delta     decimal.Decimal
}

// resolveDeltas loads every referenced account, rejects inactive, missing or
// held accounts, and aggregates per-account deltas in account-ID order.
func (p *Poster) resolveDeltas(ctx context.Context, entry *JournalEntry) ([]accountDelta, error) {
	byAccount := make(map[uuid.UUID]decimal.Decimal)
	types := make(map[uuid.UUID]AccountType)

	for _, line := range entry.Lines {
		if _, ok := types[line.AccountID]; !ok {
			account, err := p.repo.GetAccount(ctx, line.AccountID)
			if err != nil {
				if errors.Is(err, ErrAccountNotFound) {
					return nil, fmt.Errorf("account %s: %w", line.AccountID, ErrAccountNotFound)
				}
				return nil, err
			}
			if !account.IsActive {
				return nil, fmt.Errorf("account %s: %w", account.Code, ErrAccountInactive)
			}
			if reason, held := p.heldReason(account.ID); held {
				return nil, fmt.Errorf("account %s (%s): %w", account.Code, reason, ErrAccountHeld)
			}
			types[line.AccountID] = account.Type
			byAccount[line.AccountID] = decimal.Zero
		}
		byAccount[line.AccountID] = byAccount[line.AccountID].Add(types[line.AccountID].Delta(line.Debit, line.Credit))
	}

	deltas := make([]accountDelta, 0, len(byAccount))
	for id, d := range byAccount {
		deltas = append(deltas, accountDelta{accountID: id, delta: d})
	}
	sort.Slice(deltas, func(i, j int) bool {
		return deltas[i].accountID.String() < deltas[j].accountID.String()
	})

	return deltas, nil
}

// HoldAccount halts further posting against an account until released.
// Used when a consistency fault is detected against it.
func (p *Poster) HoldAccount(accountID uuid.UUID, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.holds[accountID] = reason
	p.log.Error("account held for consistency review",
		"account_id", accountID,
		"reason", reason,
	)
}

// ReleaseAccount lifts a consistency hold.
func (p *Poster) ReleaseAccount(accountID uuid.UUID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.holds, accountID)
	p.log.Info("account hold released", "account_id", accountID)
}

// Holds returns a copy of the current consistency holds.
func (p *Poster) Holds() map[uuid.UUID]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[uuid.UUID]string, len(p.holds))
	for id, reason := range p.holds {
		out[id] = reason
	}
	return out
}

func (p *Poster) heldReason(accountID uuid.UUID) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	reason, ok := p.holds[accountID]
	return reason, ok
}

// VerifyAccount checks the stored balance of an account against the entry
// log and holds the account on mismatch.
func (p *Poster) VerifyAccount(ctx context.Context, accountID uuid.UUID) error {
	if err := p.balances.VerifyAccount(ctx, accountID); err != nil {
		if errors.Is(err, ErrBalanceMismatch) {
			p.HoldAccount(accountID, err.Error())
		}
		return err
	}
	return nil
}
