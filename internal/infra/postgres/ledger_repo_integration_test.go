//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/testutil/testdb"
)

var testDB *testdb.TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	testDB, err = testdb.NewTestDB(ctx)
	if err != nil {
		panic("failed to create test database: " + err.Error())
	}

	code := m.Run()

	testDB.Close(ctx)
	if code != 0 {
		panic("tests failed")
	}
}

func setupTest(t *testing.T) (*LedgerRepository, context.Context) {
	ctx := context.Background()
	require.NoError(t, testDB.Reset(ctx))

	repo := NewLedgerRepository(testDB.Pool)
	return repo, ctx
}

func createTestAccount(t *testing.T, ctx context.Context, repo *LedgerRepository, code string, typ ledger.AccountType) *ledger.Account {
	account := &ledger.Account{
		ID:        uuid.New(),
		Code:      code,
		Name:      "Account " + code,
		Type:      typ,
		Category:  ledger.DefaultCategory(typ),
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	require.NoError(t, repo.CreateAccount(ctx, account))
	return account
}

// Account tests

func TestLedgerRepository_CreateAccount_Success(t *testing.T) {
	repo, ctx := setupTest(t)

	account := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)

	retrieved, err := repo.GetAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, account.Code, retrieved.Code)
	assert.Equal(t, account.Type, retrieved.Type)
	assert.True(t, retrieved.Balance.IsZero())
}

func TestLedgerRepository_CreateAccount_DuplicateCode(t *testing.T) {
	repo, ctx := setupTest(t)

	createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)

	dup := &ledger.Account{
		ID:        uuid.New(),
		Code:      "1000",
		Name:      "Duplicate",
		Type:      ledger.AccountTypeAsset,
		Category:  ledger.CategoryCurrentAsset,
		IsActive:  true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	err := repo.CreateAccount(ctx, dup)
	assert.ErrorIs(t, err, ledger.ErrDuplicateCode)
}

func TestLedgerRepository_GetAccountByCode_NotFound(t *testing.T) {
	repo, ctx := setupTest(t)

	_, err := repo.GetAccountByCode(ctx, "9999")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestLedgerRepository_ListAccountsByType(t *testing.T) {
	repo, ctx := setupTest(t)

	createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)
	createTestAccount(t, ctx, repo, "1100", ledger.AccountTypeAsset)
	createTestAccount(t, ctx, repo, "2000", ledger.AccountTypeLiability)

	assets, err := repo.ListAccountsByType(ctx, ledger.AccountTypeAsset)
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, "1000", assets[0].Code)
	assert.Equal(t, "1100", assets[1].Code)
}

// Entry tests

func createTestEntry(t *testing.T, ctx context.Context, repo *LedgerRepository, debitAcct, creditAcct uuid.UUID, amount string) *ledger.JournalEntry {
	seq, err := repo.NextEntryNumber(ctx, 2025)
	require.NoError(t, err)

	amt := decimal.RequireFromString(amount)
	entry := &ledger.JournalEntry{
		ID:          uuid.New(),
		EntryNumber: ledger.FormatEntryNumber(2025, seq),
		Date:        time.Now(),
		Description: "test entry",
		CreatedBy:   "tester",
		CreatedAt:   time.Now(),
		Lines: []*ledger.JournalEntryLine{
			{AccountID: debitAcct, Debit: amt, LineNumber: 1},
			{AccountID: creditAcct, Credit: amt, LineNumber: 2},
		},
	}
	require.NoError(t, repo.CreateEntry(ctx, entry))
	return entry
}

func TestLedgerRepository_CreateAndGetEntry(t *testing.T) {
	repo, ctx := setupTest(t)

	cash := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)
	revenue := createTestAccount(t, ctx, repo, "4000", ledger.AccountTypeRevenue)

	entry := createTestEntry(t, ctx, repo, cash.ID, revenue.ID, "500")

	retrieved, err := repo.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry.EntryNumber, retrieved.EntryNumber)
	assert.False(t, retrieved.IsPosted)
	require.Len(t, retrieved.Lines, 2)
	assert.True(t, retrieved.Lines[0].Debit.Equal(decimal.NewFromInt(500)))
	assert.True(t, retrieved.Lines[1].Credit.Equal(decimal.NewFromInt(500)))
}

func TestLedgerRepository_MarkEntryPosted(t *testing.T) {
	repo, ctx := setupTest(t)

	cash := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)
	revenue := createTestAccount(t, ctx, repo, "4000", ledger.AccountTypeRevenue)
	entry := createTestEntry(t, ctx, repo, cash.ID, revenue.ID, "100")

	require.NoError(t, repo.MarkEntryPosted(ctx, entry.ID, time.Now()))

	retrieved, err := repo.GetEntry(ctx, entry.ID)
	require.NoError(t, err)
	assert.True(t, retrieved.IsPosted)
	require.NotNil(t, retrieved.PostedAt)

	has, err := repo.AccountHasLines(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLedgerRepository_ListEntries_Filters(t *testing.T) {
	repo, ctx := setupTest(t)

	cash := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)
	revenue := createTestAccount(t, ctx, repo, "4000", ledger.AccountTypeRevenue)
	expense := createTestAccount(t, ctx, repo, "6000", ledger.AccountTypeExpense)

	e1 := createTestEntry(t, ctx, repo, cash.ID, revenue.ID, "100")
	createTestEntry(t, ctx, repo, expense.ID, cash.ID, "40")
	require.NoError(t, repo.MarkEntryPosted(ctx, e1.ID, time.Now()))

	posted := true
	entries, err := repo.ListEntries(ctx, ledger.EntryFilters{Posted: &posted})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e1.ID, entries[0].ID)

	entries, err = repo.ListEntries(ctx, ledger.EntryFilters{AccountID: &revenue.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, e1.ID, entries[0].ID)
}

// Entry number allocation

func TestLedgerRepository_NextEntryNumber_Sequential(t *testing.T) {
	repo, ctx := setupTest(t)

	first, err := repo.NextEntryNumber(ctx, 2025)
	require.NoError(t, err)
	second, err := repo.NextEntryNumber(ctx, 2025)
	require.NoError(t, err)
	assert.Equal(t, first+1, second)

	// A different fiscal year starts its own sequence.
	other, err := repo.NextEntryNumber(ctx, 2026)
	require.NoError(t, err)
	assert.Equal(t, 1, other)
}

func TestLedgerRepository_NextEntryNumber_Concurrent(t *testing.T) {
	repo, ctx := setupTest(t)

	const workers = 10
	seen := make(chan int, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seq, err := repo.NextEntryNumber(ctx, 2025)
			assert.NoError(t, err)
			seen <- seq
		}()
	}
	wg.Wait()
	close(seen)

	unique := make(map[int]bool)
	for seq := range seen {
		assert.False(t, unique[seq], "duplicate sequence %d", seq)
		unique[seq] = true
	}
	assert.Len(t, unique, workers)
}

// Balance tests

func TestLedgerRepository_BalanceUpsertAndGet(t *testing.T) {
	repo, ctx := setupTest(t)

	cash := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)

	// Missing row reads as zero.
	balance, err := repo.GetBalance(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())

	require.NoError(t, repo.UpsertBalance(ctx, cash.ID, decimal.RequireFromString("123.45")))

	balance, err = repo.GetBalance(ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "123.45", balance.StringFixed(2))

	require.NoError(t, repo.UpsertBalance(ctx, cash.ID, decimal.RequireFromString("-10.00")))

	balance, err = repo.GetBalance(ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "-10.00", balance.StringFixed(2))
}

func TestLedgerRepository_SumPostedLines(t *testing.T) {
	repo, ctx := setupTest(t)

	cash := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)
	revenue := createTestAccount(t, ctx, repo, "4000", ledger.AccountTypeRevenue)

	posted := createTestEntry(t, ctx, repo, cash.ID, revenue.ID, "500")
	require.NoError(t, repo.MarkEntryPosted(ctx, posted.ID, time.Now()))

	// Draft entries must not contribute.
	createTestEntry(t, ctx, repo, cash.ID, revenue.ID, "999")

	totals, err := repo.SumPostedLines(ctx, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Contains(t, totals, cash.ID)
	assert.Equal(t, "500.00", totals[cash.ID].Debits.StringFixed(2))
	assert.Equal(t, "500.00", totals[revenue.ID].Credits.StringFixed(2))
}

// Transaction management

func TestLedgerRepository_TxRollback(t *testing.T) {
	repo, ctx := setupTest(t)

	cash := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)

	txCtx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertBalance(txCtx, cash.ID, decimal.NewFromInt(100)))
	require.NoError(t, repo.RollbackTx(txCtx))

	balance, err := repo.GetBalance(ctx, cash.ID)
	require.NoError(t, err)
	assert.True(t, balance.IsZero())
}

func TestLedgerRepository_TxCommit(t *testing.T) {
	repo, ctx := setupTest(t)

	cash := createTestAccount(t, ctx, repo, "1000", ledger.AccountTypeAsset)

	txCtx, err := repo.BeginTx(ctx)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertBalance(txCtx, cash.ID, decimal.NewFromInt(100)))
	require.NoError(t, repo.CommitTx(txCtx))

	balance, err := repo.GetBalance(ctx, cash.ID)
	require.NoError(t, err)
	assert.Equal(t, "100.00", balance.StringFixed(2))
}
