package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/money"
)

// ErrNotCashAccount rejects reconciliation against non-cash accounts.
var ErrNotCashAccount = errors.New("account is not a cash account")

// Item is an uncleared transaction supplied by the caller: a deposit in
// transit, an outstanding check, or a bank adjustment. The engine never
// sources bank data itself.
type Item struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
}

// Statement is a reconciliation request for one cash account.
type Statement struct {
	AccountID           uuid.UUID
	StatementDate       time.Time
	StatementBalance    decimal.Decimal
	OutstandingDeposits []Item
	OutstandingChecks   []Item
	Adjustments         []Item
}

// Result compares the book balance to the adjusted statement balance.
type Result struct {
	AccountID           uuid.UUID       `json:"account_id"`
	StatementDate       time.Time       `json:"statement_date"`
	BookBalance         decimal.Decimal `json:"book_balance"`
	StatementBalance    decimal.Decimal `json:"statement_balance"`
	OutstandingDeposits decimal.Decimal `json:"outstanding_deposits"`
	OutstandingChecks   decimal.Decimal `json:"outstanding_checks"`
	Adjustments         decimal.Decimal `json:"adjustments"`
	ReconciledBalance   decimal.Decimal `json:"reconciled_balance"`
	IsReconciled        bool            `json:"is_reconciled"`
}

// Engine reconciles book cash balances against externally supplied bank
// statement balances. It performs only the arithmetic and tolerance check.
type Engine struct {
	registry *ledger.Registry
	balances *ledger.BalanceStore
	log      *logger.Logger
}

// NewEngine creates a reconciliation engine.
func NewEngine(registry *ledger.Registry, balances *ledger.BalanceStore, log *logger.Logger) *Engine {
	return &Engine{registry: registry, balances: balances, log: log}
}

// Reconcile computes the reconciled balance for a cash account:
// statement balance, plus deposits in transit, minus outstanding checks,
// plus adjustments. The account reconciles when the result matches the book
// balance within the monetary tolerance.
func (e *Engine) Reconcile(ctx context.Context, stmt Statement) (*Result, error) {
	account, err := e.registry.GetAccount(ctx, stmt.AccountID)
	if err != nil {
		return nil, err
	}
	if !account.IsCashAccount() {
		return nil, fmt.Errorf("account %s: %w", account.Code, ErrNotCashAccount)
	}

	book, err := e.balances.BalanceAsOf(ctx, stmt.AccountID, stmt.StatementDate)
	if err != nil {
		return nil, fmt.Errorf("failed to read book balance: %w", err)
	}

	result := &Result{
		AccountID:           stmt.AccountID,
		StatementDate:       stmt.StatementDate,
		BookBalance:         book,
		StatementBalance:    stmt.StatementBalance,
		OutstandingDeposits: sumItems(stmt.OutstandingDeposits),
		OutstandingChecks:   sumItems(stmt.OutstandingChecks),
		Adjustments:         sumItems(stmt.Adjustments),
	}

	result.ReconciledBalance = stmt.StatementBalance.
		Add(result.OutstandingDeposits).
		Sub(result.OutstandingChecks).
		Add(result.Adjustments)
	result.IsReconciled = money.Equal(result.ReconciledBalance, book)

	e.log.WithContext(ctx).Info("account reconciled",
		"account_id", stmt.AccountID,
		"book_balance", money.Format(book),
		"reconciled_balance", money.Format(result.ReconciledBalance),
		"is_reconciled", result.IsReconciled,
	)

	return result, nil
}

func sumItems(items []Item) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	return total
}
