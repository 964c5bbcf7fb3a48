package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/money"
)

// BalanceStore is the single writer of account balances. Mutations are
// serialized per account by the repository (row lock in postgres, store
// mutex in memory); accounts are independent of each other.
type BalanceStore struct {
	repo Repository
	log  *logger.Logger
}

// NewBalanceStore creates a new balance store.
func NewBalanceStore(repo Repository, log *logger.Logger) *BalanceStore {
	return &BalanceStore{repo: repo, log: log}
}

// ApplyDelta applies a signed normal-balance movement to one account and
// returns the new balance. The caller must run it inside a repository
// transaction when applying an entry, so all line applications commit or
// none do.
func (s *BalanceStore) ApplyDelta(ctx context.Context, accountID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	current, err := s.repo.GetBalanceForUpdate(ctx, accountID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	newBalance := current.Add(delta)
	if err := s.repo.UpsertBalance(ctx, accountID, newBalance); err != nil {
		return decimal.Zero, fmt.Errorf("failed to upsert balance: %w", err)
	}

	return newBalance, nil
}

// Balance returns the live balance for one account.
func (s *BalanceStore) Balance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.GetBalance(ctx, accountID)
}

// SnapshotAsOf reconstructs all account balances by replaying entries posted
// with dates on or before asOf. The entry log is the ground truth; the live
// balances are a cache of it.
func (s *BalanceStore) SnapshotAsOf(ctx context.Context, asOf time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	totals, err := s.repo.SumPostedLines(ctx, time.Time{}, asOf)
	if err != nil {
		return nil, fmt.Errorf("failed to sum posted lines: %w", err)
	}

	snapshot := make(map[uuid.UUID]decimal.Decimal, len(accounts))
	for _, a := range accounts {
		t := totals[a.ID]
		snapshot[a.ID] = a.Type.Delta(t.Debits, t.Credits)
	}

	return snapshot, nil
}

// BalanceAsOf replays the balance of a single account as of a date.
func (s *BalanceStore) BalanceAsOf(ctx context.Context, accountID uuid.UUID, asOf time.Time) (decimal.Decimal, error) {
	account, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}

	totals, err := s.repo.SumPostedLines(ctx, time.Time{}, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum posted lines: %w", err)
	}

	t := totals[accountID]
	return account.Type.Delta(t.Debits, t.Credits), nil
}

// ActivityInRange aggregates posted line totals per account for entries
// dated within [from, to]. Used by period reports.
func (s *BalanceStore) ActivityInRange(ctx context.Context, from, to time.Time) (map[uuid.UUID]LineTotals, error) {
	return s.repo.SumPostedLines(ctx, from, to)
}

// VerifyAccount compares the stored balance of an account against a replay
// of its posted lines. A mismatch is a hard fault: it is logged and returned
// as ErrBalanceMismatch so the caller can hold the account.
func (s *BalanceStore) VerifyAccount(ctx context.Context, accountID uuid.UUID) error {
	stored, err := s.repo.GetBalance(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to get stored balance: %w", err)
	}

	replayed, err := s.BalanceAsOf(ctx, accountID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to replay balance: %w", err)
	}

	if !money.Equal(stored, replayed) {
		s.log.WithContext(ctx).Error("balance verification failed",
			"account_id", accountID,
			"stored", money.Format(stored),
			"replayed", money.Format(replayed),
		)
		return fmt.Errorf("account %s: stored=%s replayed=%s: %w",
			accountID, money.Format(stored), money.Format(replayed), ErrBalanceMismatch)
	}

	return nil
}
