package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/pkg/money"
)

// JournalEntryLine is a single debit or credit against one account.
// Exactly one of Debit/Credit is non-zero. Lines are never updated after
// their entry posts.
type JournalEntryLine struct {
	EntryID    uuid.UUID
	AccountID  uuid.UUID
	Debit      decimal.Decimal
	Credit     decimal.Decimal
	LineNumber int
}

// Validate validates the line.
func (l *JournalEntryLine) Validate() error {
	if l.Debit.IsNegative() || l.Credit.IsNegative() {
		return ErrNegativeAmount
	}
	debitSet := l.Debit.IsPositive()
	creditSet := l.Credit.IsPositive()
	if debitSet && creditSet {
		return ErrMixedLine
	}
	if !debitSet && !creditSet {
		return ErrEmptyLine
	}
	return nil
}

// JournalEntry is a balanced set of lines. Lifecycle is Draft -> Posted;
// Posted is terminal and corrections are new offsetting entries.
type JournalEntry struct {
	ID          uuid.UUID
	EntryNumber string // "JE<year><seq>", unique and monotonic within a fiscal year
	Date        time.Time
	Description string
	Reference   string
	Lines       []*JournalEntryLine
	IsPosted    bool
	CreatedBy   string
	CreatedAt   time.Time
	PostedAt    *time.Time
}

// TotalDebits sums the debit side of all lines.
func (e *JournalEntry) TotalDebits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

// TotalCredits sums the credit side of all lines.
func (e *JournalEntry) TotalCredits() decimal.Decimal {
	total := decimal.Zero
	for _, l := range e.Lines {
		total = total.Add(l.Credit)
	}
	return total
}

// Validate re-checks the draft invariants. The EntryDraft constructor
// enforces them at construction time; posting re-validates as defense in
// depth before any balance mutation.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return ErrTooFewLines
	}
	for i, l := range e.Lines {
		if err := l.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	if !money.Equal(e.TotalDebits(), e.TotalCredits()) {
		return ErrUnbalanced
	}
	return nil
}

// FormatEntryNumber renders an entry number from a fiscal year and sequence.
func FormatEntryNumber(year, seq int) string {
	return fmt.Sprintf("JE%04d%04d", year, seq)
}

// EntryHeader carries the caller-declared metadata and totals for a draft.
type EntryHeader struct {
	Date        time.Time
	Description string
	Reference   string
	CreatedBy   string
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
}

// DraftLine is one line of an entry draft.
type DraftLine struct {
	AccountID uuid.UUID
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// EntryDraft is a validated, not-yet-persisted journal entry. Its fields are
// unexported so an unbalanced draft is unrepresentable: the only way to get
// one is through NewEntryDraft.
type EntryDraft struct {
	header EntryHeader
	lines  []DraftLine
}

// NewEntryDraft validates the header and lines and returns a draft.
// It rejects entries with fewer than two lines, lines that set both or
// neither side, negative amounts, debits that do not equal credits, and
// declared header totals that do not match the computed line totals.
func NewEntryDraft(header EntryHeader, lines []DraftLine) (*EntryDraft, error) {
	if len(lines) < 2 {
		return nil, ErrTooFewLines
	}

	debits := decimal.Zero
	credits := decimal.Zero
	for i, l := range lines {
		line := JournalEntryLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit}
		if err := line.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if l.AccountID == uuid.Nil {
			return nil, fmt.Errorf("line %d: %w", i+1, ErrLineAccountRequired)
		}
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}

	if !money.Equal(debits, credits) {
		return nil, fmt.Errorf("%w: debits=%s credits=%s", ErrUnbalanced, money.Format(debits), money.Format(credits))
	}

	// The header's declared totals must agree with the lines. A zero declared
	// total is treated as "not declared" so internal callers can omit it.
	if !money.IsZero(header.TotalDebit) && !money.Equal(header.TotalDebit, debits) {
		return nil, fmt.Errorf("%w: declared debit total %s, lines sum to %s",
			ErrLineTotalMismatch, money.Format(header.TotalDebit), money.Format(debits))
	}
	if !money.IsZero(header.TotalCredit) && !money.Equal(header.TotalCredit, credits) {
		return nil, fmt.Errorf("%w: declared credit total %s, lines sum to %s",
			ErrLineTotalMismatch, money.Format(header.TotalCredit), money.Format(credits))
	}

	if header.Date.IsZero() {
		header.Date = time.Now()
	}

	return &EntryDraft{header: header, lines: lines}, nil
}

// Header returns a copy of the draft header.
func (d *EntryDraft) Header() EntryHeader {
	return d.header
}

// Lines returns a copy of the draft lines.
func (d *EntryDraft) Lines() []DraftLine {
	out := make([]DraftLine, len(d.lines))
	copy(out, d.lines)
	return out
}
