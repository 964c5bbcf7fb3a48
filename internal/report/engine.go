package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	sharederrors "github.com/NXConner/blacktop-blueprint-ai-sub001/internal/shared/errors"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/logger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/money"
)

// Cache caches serialized reports. Version is bumped on every successful
// post, so stale reports age out by key rather than explicit deletion.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration)
	Version(ctx context.Context) (int64, error)
}

const cacheTTL = 10 * time.Minute

// Engine derives financial statements from the chart of accounts, the
// balance store and the posted entry log. Reports are pure reads: always
// recomputed (or served from a version-keyed cache), never stored as the
// source of truth.
type Engine struct {
	repo     ledger.Repository
	registry *ledger.Registry
	balances *ledger.BalanceStore
	cache    Cache // optional
	rules    CashFlowRules
	log      *logger.Logger
}

// NewEngine creates a report engine.
func NewEngine(repo ledger.Repository, registry *ledger.Registry, balances *ledger.BalanceStore, rules CashFlowRules, log *logger.Logger) *Engine {
	return &Engine{
		repo:     repo,
		registry: registry,
		balances: balances,
		rules:    rules,
		log:      log,
	}
}

// SetCache wires a report cache. May be left unset.
func (e *Engine) SetCache(c Cache) {
	e.cache = c
}

// TrialBalance lists every account's balance as of a date, bucketed into
// debit and credit columns. Column totals must agree; a mismatch is a
// consistency fault, surfaced and never patched.
func (e *Engine) TrialBalance(ctx context.Context, asOf time.Time) (*TrialBalance, error) {
	var cached TrialBalance
	key := e.cacheKey(ctx, "trial-balance", asOf.Format(time.RFC3339))
	if e.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	accounts, snapshot, err := e.snapshot(ctx, asOf)
	if err != nil {
		return nil, err
	}

	tb := &TrialBalance{
		AsOf:         asOf,
		TotalDebits:  decimal.Zero,
		TotalCredits: decimal.Zero,
	}

	for _, a := range accounts {
		net := snapshot[a.ID]
		if net.IsZero() && !a.IsActive {
			continue
		}

		row := TrialBalanceRow{Account: accountRef(a), Net: net}
		// A positive normal balance lands in the account's normal column;
		// a negative one flips to the opposite column.
		debitSide := a.Type.DebitNormal()
		if net.IsNegative() {
			debitSide = !debitSide
			net = net.Neg()
		}
		if debitSide {
			row.Debit = net
		} else {
			row.Credit = net
		}

		tb.TotalDebits = tb.TotalDebits.Add(row.Debit)
		tb.TotalCredits = tb.TotalCredits.Add(row.Credit)
		tb.Rows = append(tb.Rows, row)
	}

	if !money.Equal(tb.TotalDebits, tb.TotalCredits) {
		e.log.WithContext(ctx).Error("trial balance out of balance",
			"as_of", asOf,
			"total_debits", money.Format(tb.TotalDebits),
			"total_credits", money.Format(tb.TotalCredits),
		)
		return nil, sharederrors.ConsistencyFault(
			fmt.Sprintf("trial balance debits %s != credits %s",
				money.Format(tb.TotalDebits), money.Format(tb.TotalCredits)),
			nil,
		)
	}

	e.toCache(ctx, key, tb)
	return tb, nil
}

// BalanceSheet reports assets, liabilities and equity grouped by category.
// Current-period earnings (revenue minus expenses through asOf) are folded
// into equity so the accounting equation closes without a formal year-end.
func (e *Engine) BalanceSheet(ctx context.Context, asOf time.Time) (*BalanceSheet, error) {
	var cached BalanceSheet
	key := e.cacheKey(ctx, "balance-sheet", asOf.Format(time.RFC3339))
	if e.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	accounts, snapshot, err := e.snapshot(ctx, asOf)
	if err != nil {
		return nil, err
	}

	bs := &BalanceSheet{AsOf: asOf}
	earnings := decimal.Zero
	sections := make(map[ledger.AccountCategory]*StatementSection)

	for _, a := range accounts {
		net := snapshot[a.ID]
		switch a.Type {
		case ledger.AccountTypeRevenue:
			earnings = earnings.Add(net)
		case ledger.AccountTypeExpense:
			earnings = earnings.Sub(net)
		default:
			if net.IsZero() && !a.IsActive {
				continue
			}
			sec, ok := sections[a.Category]
			if !ok {
				sec = &StatementSection{Category: a.Category}
				sections[a.Category] = sec
			}
			sec.Lines = append(sec.Lines, StatementLine{Account: accountRef(a), Amount: net})
			sec.Total = sec.Total.Add(net)
		}
	}

	for _, cat := range []ledger.AccountCategory{ledger.CategoryCash, ledger.CategoryCurrentAsset, ledger.CategoryFixedAsset} {
		if sec, ok := sections[cat]; ok {
			bs.Assets = append(bs.Assets, *sec)
			bs.TotalAssets = bs.TotalAssets.Add(sec.Total)
		}
	}
	for _, cat := range []ledger.AccountCategory{ledger.CategoryCurrentLiability, ledger.CategoryLongTermLiability} {
		if sec, ok := sections[cat]; ok {
			bs.Liabilities = append(bs.Liabilities, *sec)
			bs.TotalLiabilities = bs.TotalLiabilities.Add(sec.Total)
		}
	}
	if sec, ok := sections[ledger.CategoryEquity]; ok {
		bs.Equity = append(bs.Equity, *sec)
		bs.TotalEquity = bs.TotalEquity.Add(sec.Total)
	}
	if !earnings.IsZero() {
		bs.Equity = append(bs.Equity, StatementSection{
			Category: ledger.CategoryEquity,
			Lines: []StatementLine{{
				Account: AccountRef{Name: "Current Period Earnings", Type: ledger.AccountTypeEquity, Category: ledger.CategoryEquity},
				Amount:  earnings,
			}},
			Total: earnings,
		})
		bs.TotalEquity = bs.TotalEquity.Add(earnings)
	}

	if !money.Equal(bs.TotalAssets, bs.TotalLiabilities.Add(bs.TotalEquity)) {
		e.log.WithContext(ctx).Error("balance sheet does not balance",
			"as_of", asOf,
			"total_assets", money.Format(bs.TotalAssets),
			"total_liabilities", money.Format(bs.TotalLiabilities),
			"total_equity", money.Format(bs.TotalEquity),
		)
		return nil, sharederrors.ConsistencyFault(
			fmt.Sprintf("balance sheet assets %s != liabilities %s + equity %s",
				money.Format(bs.TotalAssets), money.Format(bs.TotalLiabilities), money.Format(bs.TotalEquity)),
			nil,
		)
	}

	e.toCache(ctx, key, bs)
	return bs, nil
}

// IncomeStatement reports revenue, cost of goods sold and expenses for
// entries dated within [start, end].
func (e *Engine) IncomeStatement(ctx context.Context, start, end time.Time) (*IncomeStatement, error) {
	var cached IncomeStatement
	key := e.cacheKey(ctx, "income-statement", start.Format(time.RFC3339)+":"+end.Format(time.RFC3339))
	if e.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	accounts, err := e.registry.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	activity, err := e.balances.ActivityInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to read period activity: %w", err)
	}

	is := &IncomeStatement{Start: start, End: end}
	for _, a := range accounts {
		t, ok := activity[a.ID]
		if !ok {
			continue
		}
		amount := a.Type.Delta(t.Debits, t.Credits)
		if amount.IsZero() {
			continue
		}

		line := StatementLine{Account: accountRef(a), Amount: amount}
		switch {
		case a.Type == ledger.AccountTypeRevenue:
			is.Revenue = append(is.Revenue, line)
			is.TotalRevenue = is.TotalRevenue.Add(amount)
		case a.Category == ledger.CategoryCOGS:
			is.COGS = append(is.COGS, line)
			is.TotalCOGS = is.TotalCOGS.Add(amount)
		case a.Type == ledger.AccountTypeExpense:
			is.Expenses = append(is.Expenses, line)
			is.TotalExpenses = is.TotalExpenses.Add(amount)
		}
	}

	is.GrossProfit = is.TotalRevenue.Sub(is.TotalCOGS)
	is.NetIncome = is.GrossProfit.Sub(is.TotalExpenses)

	e.toCache(ctx, key, is)
	return is, nil
}

// CashFlowStatement derives the change in cash balances over [start, end]
// and classifies each posted entry's cash effect by the categories of its
// non-cash counter-accounts, using the engine's configured rules.
func (e *Engine) CashFlowStatement(ctx context.Context, start, end time.Time) (*CashFlowStatement, error) {
	var cached CashFlowStatement
	key := e.cacheKey(ctx, "cash-flow", start.Format(time.RFC3339)+":"+end.Format(time.RFC3339))
	if e.fromCache(ctx, key, &cached) {
		return &cached, nil
	}

	accounts, err := e.registry.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}

	cashAccounts := make(map[uuid.UUID]bool)
	categories := make(map[uuid.UUID]ledger.AccountCategory)
	for _, a := range accounts {
		categories[a.ID] = a.Category
		if a.IsCashAccount() {
			cashAccounts[a.ID] = true
		}
	}

	posted := true
	entries, err := e.repo.ListEntries(ctx, ledger.EntryFilters{Posted: &posted, From: &start, To: &end})
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	cf := &CashFlowStatement{Start: start, End: end}
	for _, entry := range entries {
		cashDelta := decimal.Zero
		var counterCats []ledger.AccountCategory
		for _, line := range entry.Lines {
			if cashAccounts[line.AccountID] {
				cashDelta = cashDelta.Add(line.Debit.Sub(line.Credit))
			} else {
				counterCats = append(counterCats, categories[line.AccountID])
			}
		}
		if cashDelta.IsZero() {
			continue
		}

		switch e.rules.Classify(counterCats) {
		case BucketInvesting:
			cf.Investing = cf.Investing.Add(cashDelta)
		case BucketFinancing:
			cf.Financing = cf.Financing.Add(cashDelta)
		default:
			cf.Operating = cf.Operating.Add(cashDelta)
		}
	}

	cf.NetChange = cf.Operating.Add(cf.Investing).Add(cf.Financing)

	// Opening cash is the replayed cash position the instant before the
	// period starts.
	opening, err := e.cashPosition(ctx, cashAccounts, start.Add(-time.Nanosecond))
	if err != nil {
		return nil, err
	}
	cf.OpeningCash = opening
	cf.ClosingCash = opening.Add(cf.NetChange)

	e.toCache(ctx, key, cf)
	return cf, nil
}

func (e *Engine) cashPosition(ctx context.Context, cashAccounts map[uuid.UUID]bool, asOf time.Time) (decimal.Decimal, error) {
	snapshot, err := e.balances.SnapshotAsOf(ctx, asOf)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to snapshot cash position: %w", err)
	}
	total := decimal.Zero
	for id := range cashAccounts {
		total = total.Add(snapshot[id])
	}
	return total, nil
}

// snapshot loads the chart and replayed balances as of a date, sorted by code.
func (e *Engine) snapshot(ctx context.Context, asOf time.Time) ([]*ledger.Account, map[uuid.UUID]decimal.Decimal, error) {
	accounts, err := e.registry.ListAccounts(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })

	snapshot, err := e.balances.SnapshotAsOf(ctx, asOf)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to snapshot balances: %w", err)
	}
	return accounts, snapshot, nil
}

func accountRef(a *ledger.Account) AccountRef {
	return AccountRef{ID: a.ID, Code: a.Code, Name: a.Name, Type: a.Type, Category: a.Category}
}

func (e *Engine) cacheKey(ctx context.Context, kind, suffix string) string {
	if e.cache == nil {
		return ""
	}
	version, err := e.cache.Version(ctx)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("report:%s:%s:v%d", kind, suffix, version)
}

func (e *Engine) fromCache(ctx context.Context, key string, dest interface{}) bool {
	if e.cache == nil || key == "" {
		return false
	}
	data, ok := e.cache.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		e.log.WithContext(ctx).Warn("failed to decode cached report", "key", key, "error", err)
		return false
	}
	return true
}

func (e *Engine) toCache(ctx context.Context, key string, v interface{}) {
	if e.cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	e.cache.Set(ctx, key, data, cacheTTL)
}
