package reconcile_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/infra/memory"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/reconcile"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/money"
)

func amt(s string) decimal.Decimal {
	return money.MustParse(s)
}

type fixture struct {
	engine  *reconcile.Engine
	cash    *ledger.Account
	revenue *ledger.Account
}

// newFixture builds a ledger whose cash account holds a 1000.00 book balance
// as of January 31.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	log := logger.New("test", io.Discard)

	repo := memory.NewLedgerRepository()
	registry := ledger.NewRegistry(repo, log)
	balances := ledger.NewBalanceStore(repo, log)
	poster := ledger.NewPoster(repo, balances, log)

	cash, err := registry.CreateAccount(ctx, ledger.AccountSpec{
		Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Category: ledger.CategoryCash,
	})
	require.NoError(t, err)
	revenue, err := registry.CreateAccount(ctx, ledger.AccountSpec{
		Code: "4000", Name: "Contract Revenue", Type: ledger.AccountTypeRevenue,
	})
	require.NoError(t, err)

	draft, err := ledger.NewEntryDraft(ledger.EntryHeader{
		Date:        time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC),
		Description: "contract billing",
	}, []ledger.DraftLine{
		{AccountID: cash.ID, Debit: amt("1000.00")},
		{AccountID: revenue.ID, Credit: amt("1000.00")},
	})
	require.NoError(t, err)
	entry, err := poster.CreateEntry(ctx, draft)
	require.NoError(t, err)
	require.NoError(t, poster.PostEntry(ctx, entry.ID))

	return &fixture{
		engine:  reconcile.NewEngine(registry, balances, log),
		cash:    cash,
		revenue: revenue,
	}
}

func statementDate() time.Time {
	return time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
}

func TestEngine_Reconcile(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name           string
		stmt           reconcile.Statement
		wantReconciled decimal.Decimal
		wantMatch      bool
	}{
		{
			name: "statement matches book after outstanding items",
			stmt: reconcile.Statement{
				StatementBalance: amt("950.00"),
				OutstandingDeposits: []reconcile.Item{
					{Description: "deposit in transit", Amount: amt("100.00"), Date: statementDate()},
				},
				OutstandingChecks: []reconcile.Item{
					{Description: "check 1042", Amount: amt("50.00"), Date: statementDate()},
				},
			},
			wantReconciled: amt("1000.00"),
			wantMatch:      true,
		},
		{
			name: "clean statement matches book exactly",
			stmt: reconcile.Statement{
				StatementBalance: amt("1000.00"),
			},
			wantReconciled: amt("1000.00"),
			wantMatch:      true,
		},
		{
			name: "bank fee adjustment closes the gap",
			stmt: reconcile.Statement{
				StatementBalance: amt("985.00"),
				Adjustments: []reconcile.Item{
					{Description: "bank fee reversal", Amount: amt("15.00"), Date: statementDate()},
				},
			},
			wantReconciled: amt("1000.00"),
			wantMatch:      true,
		},
		{
			name: "unexplained difference",
			stmt: reconcile.Statement{
				StatementBalance: amt("900.00"),
			},
			wantReconciled: amt("900.00"),
			wantMatch:      false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmt := tt.stmt
			stmt.AccountID = f.cash.ID
			stmt.StatementDate = statementDate()

			result, err := f.engine.Reconcile(context.Background(), stmt)
			require.NoError(t, err)

			assert.True(t, result.BookBalance.Equal(amt("1000.00")))
			assert.True(t, result.ReconciledBalance.Equal(tt.wantReconciled),
				"reconciled %s, want %s", result.ReconciledBalance, tt.wantReconciled)
			assert.Equal(t, tt.wantMatch, result.IsReconciled)
		})
	}
}

func TestEngine_Reconcile_BookBalanceAsOfStatementDate(t *testing.T) {
	f := newFixture(t)

	// A statement dated before the only entry sees a zero book balance.
	result, err := f.engine.Reconcile(context.Background(), reconcile.Statement{
		AccountID:        f.cash.ID,
		StatementDate:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		StatementBalance: amt("0.00"),
	})
	require.NoError(t, err)
	assert.True(t, result.BookBalance.IsZero())
	assert.True(t, result.IsReconciled)
}

func TestEngine_Reconcile_NonCashAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Reconcile(context.Background(), reconcile.Statement{
		AccountID:        f.revenue.ID,
		StatementDate:    statementDate(),
		StatementBalance: amt("1000.00"),
	})
	assert.ErrorIs(t, err, reconcile.ErrNotCashAccount)
}

func TestEngine_Reconcile_UnknownAccount(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Reconcile(context.Background(), reconcile.Statement{
		AccountID:        uuid.New(),
		StatementDate:    statementDate(),
		StatementBalance: amt("0.00"),
	})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}
