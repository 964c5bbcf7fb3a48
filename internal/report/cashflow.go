package report

import (
	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
)

// CashFlowRules map the category of an entry's non-cash counter-accounts to
// a cash-flow bucket. The engine consumes the rules; it does not own them,
// so callers can supply their own classification.
//
// When an entry touches counter-accounts in more than one bucket, the
// highest-priority bucket wins: financing over investing over operating.
// Purchases of fixed assets financed by long-term debt classify as
// financing, matching how the proceeds would have been classified.
type CashFlowRules struct {
	Buckets map[ledger.AccountCategory]CashFlowBucket
}

// DefaultCashFlowRules returns the standard classification: day-to-day
// trading categories are operating, fixed assets are investing, long-term
// debt and equity are financing.
func DefaultCashFlowRules() CashFlowRules {
	return CashFlowRules{
		Buckets: map[ledger.AccountCategory]CashFlowBucket{
			ledger.CategoryCurrentAsset:      BucketOperating,
			ledger.CategoryCurrentLiability:  BucketOperating,
			ledger.CategoryOperatingRevenue:  BucketOperating,
			ledger.CategoryOtherRevenue:      BucketOperating,
			ledger.CategoryCOGS:              BucketOperating,
			ledger.CategoryOperatingExpense:  BucketOperating,
			ledger.CategoryOtherExpense:      BucketOperating,
			ledger.CategoryFixedAsset:        BucketInvesting,
			ledger.CategoryLongTermLiability: BucketFinancing,
			ledger.CategoryEquity:            BucketFinancing,
		},
	}
}

// bucketPriority orders buckets for entries spanning several categories.
var bucketPriority = map[CashFlowBucket]int{
	BucketOperating: 0,
	BucketInvesting: 1,
	BucketFinancing: 2,
}

// Classify returns the bucket for an entry given the categories of its
// non-cash counter-accounts. Unmapped categories default to operating.
func (r CashFlowRules) Classify(categories []ledger.AccountCategory) CashFlowBucket {
	bucket := BucketOperating
	for _, c := range categories {
		b, ok := r.Buckets[c]
		if !ok {
			continue
		}
		if bucketPriority[b] > bucketPriority[bucket] {
			bucket = b
		}
	}
	return bucket
}
