package ledger_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/money"
)

func amt(s string) decimal.Decimal {
	return money.MustParse(s)
}

func TestJournalEntryLine_Validate(t *testing.T) {
	tests := []struct {
		name        string
		debit       string
		credit      string
		shouldError bool
		wantErr     error
	}{
		{name: "debit only", debit: "100.00", credit: "0"},
		{name: "credit only", debit: "0", credit: "100.00"},
		{name: "both sides set", debit: "100.00", credit: "100.00", shouldError: true, wantErr: ledger.ErrMixedLine},
		{name: "neither side set", debit: "0", credit: "0", shouldError: true, wantErr: ledger.ErrEmptyLine},
		{name: "negative debit", debit: "-50.00", credit: "0", shouldError: true, wantErr: ledger.ErrNegativeAmount},
		{name: "negative credit", debit: "0", credit: "-50.00", shouldError: true, wantErr: ledger.ErrNegativeAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line := &ledger.JournalEntryLine{
				AccountID: uuid.New(),
				Debit:     amt(tt.debit),
				Credit:    amt(tt.credit),
			}

			err := line.Validate()
			if tt.shouldError {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewEntryDraft(t *testing.T) {
	cash := uuid.New()
	revenue := uuid.New()

	tests := []struct {
		name        string
		header      ledger.EntryHeader
		lines       []ledger.DraftLine
		shouldError bool
		wantErr     error
	}{
		{
			name:   "balanced two-line entry",
			header: ledger.EntryHeader{Description: "contract billing"},
			lines: []ledger.DraftLine{
				{AccountID: cash, Debit: amt("500.00")},
				{AccountID: revenue, Credit: amt("500.00")},
			},
		},
		{
			name:   "balanced split entry",
			header: ledger.EntryHeader{Description: "billing with retainage"},
			lines: []ledger.DraftLine{
				{AccountID: cash, Debit: amt("450.00")},
				{AccountID: uuid.New(), Debit: amt("50.00")},
				{AccountID: revenue, Credit: amt("500.00")},
			},
		},
		{
			name:   "unbalanced entry",
			header: ledger.EntryHeader{Description: "bad entry"},
			lines: []ledger.DraftLine{
				{AccountID: cash, Debit: amt("300.00")},
				{AccountID: revenue, Credit: amt("250.00")},
			},
			shouldError: true,
			wantErr:     ledger.ErrUnbalanced,
		},
		{
			name:        "fewer than two lines",
			header:      ledger.EntryHeader{Description: "single line"},
			lines:       []ledger.DraftLine{{AccountID: cash, Debit: amt("100.00")}},
			shouldError: true,
			wantErr:     ledger.ErrTooFewLines,
		},
		{
			name:   "line with both sides",
			header: ledger.EntryHeader{Description: "mixed line"},
			lines: []ledger.DraftLine{
				{AccountID: cash, Debit: amt("100.00"), Credit: amt("100.00")},
				{AccountID: revenue, Credit: amt("100.00")},
			},
			shouldError: true,
			wantErr:     ledger.ErrMixedLine,
		},
		{
			name:   "line with neither side",
			header: ledger.EntryHeader{Description: "empty line"},
			lines: []ledger.DraftLine{
				{AccountID: cash},
				{AccountID: revenue, Credit: amt("100.00")},
			},
			shouldError: true,
			wantErr:     ledger.ErrEmptyLine,
		},
		{
			name:   "negative amount",
			header: ledger.EntryHeader{Description: "negative"},
			lines: []ledger.DraftLine{
				{AccountID: cash, Debit: amt("-100.00")},
				{AccountID: revenue, Credit: amt("-100.00")},
			},
			shouldError: true,
			wantErr:     ledger.ErrNegativeAmount,
		},
		{
			name:   "missing line account",
			header: ledger.EntryHeader{Description: "no account"},
			lines: []ledger.DraftLine{
				{Debit: amt("100.00")},
				{AccountID: revenue, Credit: amt("100.00")},
			},
			shouldError: true,
			wantErr:     ledger.ErrLineAccountRequired,
		},
		{
			name: "declared totals match lines",
			header: ledger.EntryHeader{
				Description: "declared totals",
				TotalDebit:  amt("500.00"),
				TotalCredit: amt("500.00"),
			},
			lines: []ledger.DraftLine{
				{AccountID: cash, Debit: amt("500.00")},
				{AccountID: revenue, Credit: amt("500.00")},
			},
		},
		{
			name: "declared totals disagree with lines",
			header: ledger.EntryHeader{
				Description: "stale totals",
				TotalDebit:  amt("600.00"),
				TotalCredit: amt("600.00"),
			},
			lines: []ledger.DraftLine{
				{AccountID: cash, Debit: amt("500.00")},
				{AccountID: revenue, Credit: amt("500.00")},
			},
			shouldError: true,
			wantErr:     ledger.ErrLineTotalMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft, err := ledger.NewEntryDraft(tt.header, tt.lines)
			if tt.shouldError {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, draft)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, draft)
			assert.Len(t, draft.Lines(), len(tt.lines))
			assert.False(t, draft.Header().Date.IsZero(), "draft date should default to now")
		})
	}
}

func TestJournalEntry_Totals(t *testing.T) {
	entry := &ledger.JournalEntry{
		Lines: []*ledger.JournalEntryLine{
			{AccountID: uuid.New(), Debit: amt("450.00")},
			{AccountID: uuid.New(), Debit: amt("50.00")},
			{AccountID: uuid.New(), Credit: amt("500.00")},
		},
	}

	assert.True(t, entry.TotalDebits().Equal(amt("500.00")))
	assert.True(t, entry.TotalCredits().Equal(amt("500.00")))
	assert.NoError(t, entry.Validate())
}

func TestFormatEntryNumber(t *testing.T) {
	assert.Equal(t, "JE20250001", ledger.FormatEntryNumber(2025, 1))
	assert.Equal(t, "JE20250042", ledger.FormatEntryNumber(2025, 42))
	assert.Equal(t, "JE20261234", ledger.FormatEntryNumber(2026, 1234))
}
