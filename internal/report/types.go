package report

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
)

// AccountRef identifies an account on a report row.
type AccountRef struct {
	ID       uuid.UUID              `json:"id"`
	Code     string                 `json:"code"`
	Name     string                 `json:"name"`
	Type     ledger.AccountType     `json:"type"`
	Category ledger.AccountCategory `json:"category"`
}

// TrialBalanceRow is one account's balance bucketed into the debit or credit
// column.
type TrialBalanceRow struct {
	Account AccountRef      `json:"account"`
	Debit   decimal.Decimal `json:"debit"`
	Credit  decimal.Decimal `json:"credit"`
	Net     decimal.Decimal `json:"net"`
}

// TrialBalance lists all account balances at a point in time. The debit and
// credit column totals must agree; a mismatch signals ledger corruption.
type TrialBalance struct {
	AsOf         time.Time         `json:"as_of"`
	Rows         []TrialBalanceRow `json:"rows"`
	TotalDebits  decimal.Decimal   `json:"total_debits"`
	TotalCredits decimal.Decimal   `json:"total_credits"`
}

// StatementLine is an account with its amount on a financial statement.
type StatementLine struct {
	Account AccountRef      `json:"account"`
	Amount  decimal.Decimal `json:"amount"`
}

// StatementSection groups statement lines by account category.
type StatementSection struct {
	Category ledger.AccountCategory `json:"category"`
	Lines    []StatementLine        `json:"lines"`
	Total    decimal.Decimal        `json:"total"`
}

// BalanceSheet reports financial position at a point in time.
// TotalAssets == TotalLiabilities + TotalEquity holds for any valid ledger.
type BalanceSheet struct {
	AsOf             time.Time          `json:"as_of"`
	Assets           []StatementSection `json:"assets"`
	Liabilities      []StatementSection `json:"liabilities"`
	Equity           []StatementSection `json:"equity"`
	TotalAssets      decimal.Decimal    `json:"total_assets"`
	TotalLiabilities decimal.Decimal    `json:"total_liabilities"`
	TotalEquity      decimal.Decimal    `json:"total_equity"`
}

// IncomeStatement reports operating results over a period.
type IncomeStatement struct {
	Start         time.Time       `json:"start"`
	End           time.Time       `json:"end"`
	Revenue       []StatementLine `json:"revenue"`
	COGS          []StatementLine `json:"cogs"`
	Expenses      []StatementLine `json:"expenses"`
	TotalRevenue  decimal.Decimal `json:"total_revenue"`
	TotalCOGS     decimal.Decimal `json:"total_cogs"`
	GrossProfit   decimal.Decimal `json:"gross_profit"`
	TotalExpenses decimal.Decimal `json:"total_expenses"`
	NetIncome     decimal.Decimal `json:"net_income"`
}

// CashFlowBucket classifies a cash movement.
type CashFlowBucket string

const (
	BucketOperating CashFlowBucket = "OPERATING"
	BucketInvesting CashFlowBucket = "INVESTING"
	BucketFinancing CashFlowBucket = "FINANCING"
)

// CashFlowStatement reports the change in cash balances over a period,
// classified into operating, investing and financing activity.
type CashFlowStatement struct {
	Start       time.Time       `json:"start"`
	End         time.Time       `json:"end"`
	Operating   decimal.Decimal `json:"operating"`
	Investing   decimal.Decimal `json:"investing"`
	Financing   decimal.Decimal `json:"financing"`
	NetChange   decimal.Decimal `json:"net_change"`
	OpeningCash decimal.Decimal `json:"opening_cash"`
	ClosingCash decimal.Decimal `json:"closing_cash"`
}
