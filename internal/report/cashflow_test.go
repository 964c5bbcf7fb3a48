package report_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/report"
)

func TestCashFlowRules_Classify(t *testing.T) {
	rules := report.DefaultCashFlowRules()

	tests := []struct {
		name       string
		categories []ledger.AccountCategory
		want       report.CashFlowBucket
	}{
		{name: "no counter accounts", categories: nil, want: report.BucketOperating},
		{name: "revenue", categories: []ledger.AccountCategory{ledger.CategoryOperatingRevenue}, want: report.BucketOperating},
		{name: "expense", categories: []ledger.AccountCategory{ledger.CategoryOperatingExpense}, want: report.BucketOperating},
		{name: "fixed asset", categories: []ledger.AccountCategory{ledger.CategoryFixedAsset}, want: report.BucketInvesting},
		{name: "long-term debt", categories: []ledger.AccountCategory{ledger.CategoryLongTermLiability}, want: report.BucketFinancing},
		{name: "equity", categories: []ledger.AccountCategory{ledger.CategoryEquity}, want: report.BucketFinancing},
		{
			name:       "financing outranks investing",
			categories: []ledger.AccountCategory{ledger.CategoryFixedAsset, ledger.CategoryLongTermLiability},
			want:       report.BucketFinancing,
		},
		{
			name:       "investing outranks operating",
			categories: []ledger.AccountCategory{ledger.CategoryCurrentLiability, ledger.CategoryFixedAsset},
			want:       report.BucketInvesting,
		},
		{
			name:       "unmapped category defaults to operating",
			categories: []ledger.AccountCategory{ledger.AccountCategory("CUSTOM")},
			want:       report.BucketOperating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Classify(tt.categories))
		})
	}
}

func TestCashFlowRules_CustomBuckets(t *testing.T) {
	// Callers can override the classification, for example treating cash
	// held in escrow-like current assets as investing activity.
	rules := report.CashFlowRules{
		Buckets: map[ledger.AccountCategory]report.CashFlowBucket{
			ledger.CategoryCurrentAsset: report.BucketInvesting,
		},
	}

	got := rules.Classify([]ledger.AccountCategory{ledger.CategoryCurrentAsset})
	assert.Equal(t, report.BucketInvesting, got)
}
