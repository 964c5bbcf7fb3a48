package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/NXConner/blacktop-blueprint-ai-sub001/internal/ledger"
)

// LedgerRepository implements the ledger repository interface using PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new PostgreSQL ledger repository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Account operations

// CreateAccount inserts a new account.
func (r *LedgerRepository) CreateAccount(ctx context.Context, account *ledger.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}

	query := `
		INSERT INTO accounts (id, code, name, type, category, parent_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	q := r.getQueryer(ctx)
	_, err := q.Exec(ctx, query,
		account.ID,
		account.Code,
		account.Name,
		string(account.Type),
		string(account.Category),
		account.ParentID,
		account.IsActive,
		account.CreatedAt,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateCode
		}
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}

// UpdateAccount updates an existing account's mutable fields.
func (r *LedgerRepository) UpdateAccount(ctx context.Context, account *ledger.Account) error {
	if err := account.Validate(); err != nil {
		return fmt.Errorf("invalid account: %w", err)
	}

	query := `
		UPDATE accounts
		SET code = $2, name = $3, type = $4, category = $5, parent_id = $6, is_active = $7, updated_at = $8
		WHERE id = $1
	`

	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, query,
		account.ID,
		account.Code,
		account.Name,
		string(account.Type),
		string(account.Category),
		account.ParentID,
		account.IsActive,
		account.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ledger.ErrDuplicateCode
		}
		return fmt.Errorf("failed to update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrAccountNotFound
	}

	return nil
}

const accountColumns = `
	a.id, a.code, a.name, a.type, a.category, a.parent_id, a.is_active,
	COALESCE(b.balance::text, '0'), a.created_at, a.updated_at
`

// GetAccount retrieves an account by ID with its stored balance.
func (r *LedgerRepository) GetAccount(ctx context.Context, id uuid.UUID) (*ledger.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		LEFT JOIN account_balances b ON b.account_id = a.id
		WHERE a.id = $1
	`

	q := r.getQueryer(ctx)
	account, err := scanAccount(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// GetAccountByCode retrieves an account by its code.
func (r *LedgerRepository) GetAccountByCode(ctx context.Context, code string) (*ledger.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		LEFT JOIN account_balances b ON b.account_id = a.id
		WHERE a.code = $1
	`

	q := r.getQueryer(ctx)
	account, err := scanAccount(q.QueryRow(ctx, query, code))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return account, nil
}

// ListAccounts retrieves all accounts ordered by code.
func (r *LedgerRepository) ListAccounts(ctx context.Context) ([]*ledger.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		LEFT JOIN account_balances b ON b.account_id = a.id
		ORDER BY a.code ASC
	`

	return r.queryAccounts(ctx, query)
}

// ListAccountsByType retrieves all accounts of one type ordered by code.
func (r *LedgerRepository) ListAccountsByType(ctx context.Context, t ledger.AccountType) ([]*ledger.Account, error) {
	query := `
		SELECT ` + accountColumns + `
		FROM accounts a
		LEFT JOIN account_balances b ON b.account_id = a.id
		WHERE a.type = $1
		ORDER BY a.code ASC
	`

	return r.queryAccounts(ctx, query, string(t))
}

func (r *LedgerRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]*ledger.Account, error) {
	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*ledger.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating accounts: %w", err)
	}

	return accounts, nil
}

// scanAccount scans a single account from a row.
func scanAccount(row pgx.Row) (*ledger.Account, error) {
	var account ledger.Account
	var balanceStr string

	err := row.Scan(
		&account.ID,
		&account.Code,
		&account.Name,
		&account.Type,
		&account.Category,
		&account.ParentID,
		&account.IsActive,
		&balanceStr,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance: %w", err)
	}
	account.Balance = balance

	return &account, nil
}

// AccountHasLines reports whether any journal line references the account.
func (r *LedgerRepository) AccountHasLines(ctx context.Context, accountID uuid.UUID) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM journal_lines WHERE account_id = $1)`

	var has bool
	q := r.getQueryer(ctx)
	if err := q.QueryRow(ctx, query, accountID).Scan(&has); err != nil {
		return false, fmt.Errorf("failed to check account lines: %w", err)
	}

	return has, nil
}

// Entry operations

// CreateEntry inserts a journal entry with its lines.
func (r *LedgerRepository) CreateEntry(ctx context.Context, entry *ledger.JournalEntry) error {
	if err := entry.Validate(); err != nil {
		return fmt.Errorf("invalid entry: %w", err)
	}

	entryQuery := `
		INSERT INTO journal_entries (id, entry_number, entry_date, description, reference, is_posted, created_by, created_at, posted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	q := r.getQueryer(ctx)
	_, err := q.Exec(ctx, entryQuery,
		entry.ID,
		entry.EntryNumber,
		entry.Date,
		entry.Description,
		entry.Reference,
		entry.IsPosted,
		entry.CreatedBy,
		entry.CreatedAt,
		entry.PostedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create entry: %w", err)
	}

	lineQuery := `
		INSERT INTO journal_lines (entry_id, account_id, debit, credit, line_number)
		VALUES ($1, $2, $3, $4, $5)
	`

	for _, line := range entry.Lines {
		_, err := q.Exec(ctx, lineQuery,
			entry.ID,
			line.AccountID,
			line.Debit.String(),
			line.Credit.String(),
			line.LineNumber,
		)
		if err != nil {
			return fmt.Errorf("failed to insert line: %w", err)
		}
	}

	return nil
}

const entryColumns = `id, entry_number, entry_date, description, reference, is_posted, created_by, created_at, posted_at`

// GetEntry retrieves a journal entry by ID with its lines.
func (r *LedgerRepository) GetEntry(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	return r.getEntryWithLock(ctx, id, false)
}

// GetEntryForUpdate retrieves an entry with a row-level lock (SELECT FOR UPDATE).
// Used inside a transaction to serialize concurrent posting of the same entry.
func (r *LedgerRepository) GetEntryForUpdate(ctx context.Context, id uuid.UUID) (*ledger.JournalEntry, error) {
	return r.getEntryWithLock(ctx, id, true)
}

func (r *LedgerRepository) getEntryWithLock(ctx context.Context, id uuid.UUID, forUpdate bool) (*ledger.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	q := r.getQueryer(ctx)
	entry, err := scanEntry(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ledger.ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	lines, err := r.getLines(ctx, entry.ID)
	if err != nil {
		return nil, err
	}
	entry.Lines = lines

	return entry, nil
}

// ListEntries lists journal entries with filters and pagination.
func (r *LedgerRepository) ListEntries(ctx context.Context, filters ledger.EntryFilters) ([]*ledger.JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE 1=1`

	args := make([]any, 0)
	argPos := 1

	if filters.Posted != nil {
		query += fmt.Sprintf(" AND is_posted = $%d", argPos)
		args = append(args, *filters.Posted)
		argPos++
	}

	if filters.AccountID != nil {
		query += fmt.Sprintf(" AND id IN (SELECT entry_id FROM journal_lines WHERE account_id = $%d)", argPos)
		args = append(args, *filters.AccountID)
		argPos++
	}

	if filters.From != nil {
		query += fmt.Sprintf(" AND entry_date >= $%d", argPos)
		args = append(args, *filters.From)
		argPos++
	}

	if filters.To != nil {
		query += fmt.Sprintf(" AND entry_date <= $%d", argPos)
		args = append(args, *filters.To)
		argPos++
	}

	query += " ORDER BY entry_date ASC, entry_number ASC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filters.Limit)
		argPos++
	}

	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filters.Offset)
		argPos++
	}

	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*ledger.JournalEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}

	for _, entry := range entries {
		lines, err := r.getLines(ctx, entry.ID)
		if err != nil {
			return nil, err
		}
		entry.Lines = lines
	}

	return entries, nil
}

// scanEntry scans a single entry header from a row.
func scanEntry(row pgx.Row) (*ledger.JournalEntry, error) {
	var entry ledger.JournalEntry

	err := row.Scan(
		&entry.ID,
		&entry.EntryNumber,
		&entry.Date,
		&entry.Description,
		&entry.Reference,
		&entry.IsPosted,
		&entry.CreatedBy,
		&entry.CreatedAt,
		&entry.PostedAt,
	)
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// getLines retrieves all lines for an entry in line order.
func (r *LedgerRepository) getLines(ctx context.Context, entryID uuid.UUID) ([]*ledger.JournalEntryLine, error) {
	query := `
		SELECT entry_id, account_id, debit::text, credit::text, line_number
		FROM journal_lines
		WHERE entry_id = $1
		ORDER BY line_number ASC
	`

	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	var lines []*ledger.JournalEntryLine
	for rows.Next() {
		var line ledger.JournalEntryLine
		var debitStr, creditStr string

		err := rows.Scan(&line.EntryID, &line.AccountID, &debitStr, &creditStr, &line.LineNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}

		if line.Debit, err = decimal.NewFromString(debitStr); err != nil {
			return nil, fmt.Errorf("failed to parse debit: %w", err)
		}
		if line.Credit, err = decimal.NewFromString(creditStr); err != nil {
			return nil, fmt.Errorf("failed to parse credit: %w", err)
		}

		lines = append(lines, &line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lines: %w", err)
	}

	return lines, nil
}

// MarkEntryPosted flips an entry to posted.
func (r *LedgerRepository) MarkEntryPosted(ctx context.Context, id uuid.UUID, postedAt time.Time) error {
	query := `
		UPDATE journal_entries
		SET is_posted = TRUE, posted_at = $2
		WHERE id = $1
	`

	q := r.getQueryer(ctx)
	tag, err := q.Exec(ctx, query, id, postedAt)
	if err != nil {
		return fmt.Errorf("failed to mark entry posted: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ledger.ErrEntryNotFound
	}

	return nil
}

// NextEntryNumber atomically allocates the next sequence value for a fiscal
// year. The upsert takes a row lock on the year's counter, so concurrent
// callers serialize and never see the same value.
func (r *LedgerRepository) NextEntryNumber(ctx context.Context, year int) (int, error) {
	query := `
		INSERT INTO entry_sequences (fiscal_year, last_value)
		VALUES ($1, 1)
		ON CONFLICT (fiscal_year)
		DO UPDATE SET last_value = entry_sequences.last_value + 1
		RETURNING last_value
	`

	var seq int
	q := r.getQueryer(ctx)
	if err := q.QueryRow(ctx, query, year).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to allocate entry number: %w", err)
	}

	return seq, nil
}

// Balance operations

// GetBalance retrieves the stored balance for an account. A missing row reads
// as zero.
func (r *LedgerRepository) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return r.getBalanceWithLock(ctx, accountID, false)
}

// GetBalanceForUpdate retrieves the stored balance with a row-level lock
// (SELECT FOR UPDATE). Must be called within a transaction.
func (r *LedgerRepository) GetBalanceForUpdate(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	return r.getBalanceWithLock(ctx, accountID, true)
}

func (r *LedgerRepository) getBalanceWithLock(ctx context.Context, accountID uuid.UUID, forUpdate bool) (decimal.Decimal, error) {
	query := `SELECT balance::text FROM account_balances WHERE account_id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var balanceStr string
	q := r.getQueryer(ctx)
	err := q.QueryRow(ctx, query, accountID).Scan(&balanceStr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}

	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balance: %w", err)
	}

	return balance, nil
}

// UpsertBalance creates or replaces an account's stored balance.
func (r *LedgerRepository) UpsertBalance(ctx context.Context, accountID uuid.UUID, balance decimal.Decimal) error {
	query := `
		INSERT INTO account_balances (account_id, balance, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id)
		DO UPDATE SET
			balance = EXCLUDED.balance,
			updated_at = EXCLUDED.updated_at
	`

	q := r.getQueryer(ctx)
	if _, err := q.Exec(ctx, query, accountID, balance.String(), time.Now()); err != nil {
		return fmt.Errorf("failed to upsert balance: %w", err)
	}

	return nil
}

// SumPostedLines aggregates posted lines per account with entry dates in
// [from, to]. Zero bounds are open.
func (r *LedgerRepository) SumPostedLines(ctx context.Context, from, to time.Time) (map[uuid.UUID]ledger.LineTotals, error) {
	query := `
		SELECT l.account_id, COALESCE(SUM(l.debit), 0)::text, COALESCE(SUM(l.credit), 0)::text
		FROM journal_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.is_posted = TRUE
	`

	args := make([]any, 0)
	argPos := 1

	if !from.IsZero() {
		query += fmt.Sprintf(" AND e.entry_date >= $%d", argPos)
		args = append(args, from)
		argPos++
	}

	if !to.IsZero() {
		query += fmt.Sprintf(" AND e.entry_date <= $%d", argPos)
		args = append(args, to)
		argPos++
	}

	query += " GROUP BY l.account_id"

	q := r.getQueryer(ctx)
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to sum posted lines: %w", err)
	}
	defer rows.Close()

	totals := make(map[uuid.UUID]ledger.LineTotals)
	for rows.Next() {
		var accountID uuid.UUID
		var debitStr, creditStr string

		if err := rows.Scan(&accountID, &debitStr, &creditStr); err != nil {
			return nil, fmt.Errorf("failed to scan line totals: %w", err)
		}

		debits, err := decimal.NewFromString(debitStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse debit total: %w", err)
		}
		credits, err := decimal.NewFromString(creditStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse credit total: %w", err)
		}

		totals[accountID] = ledger.LineTotals{Debits: debits, Credits: credits}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line totals: %w", err)
	}

	return totals, nil
}

// Transaction management using pgx transactions stored in context.

type ctxKey string

const txContextKey ctxKey = "ledger_tx"

// BeginTx starts a new database transaction and stores it in the context.
func (r *LedgerRepository) BeginTx(ctx context.Context) (context.Context, error) {
	if tx := r.getTxFromContext(ctx); tx != nil {
		return ctx, fmt.Errorf("transaction already in progress")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return ctx, fmt.Errorf("failed to begin transaction: %w", err)
	}

	return context.WithValue(ctx, txContextKey, tx), nil
}

// CommitTx commits the database transaction from the context.
func (r *LedgerRepository) CommitTx(ctx context.Context) error {
	tx := r.getTxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction in context")
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// RollbackTx rolls back the database transaction from the context.
func (r *LedgerRepository) RollbackTx(ctx context.Context) error {
	tx := r.getTxFromContext(ctx)
	if tx == nil {
		return fmt.Errorf("no transaction in context")
	}

	if err := tx.Rollback(ctx); err != nil {
		// Ignore already rolled back or committed errors
		if errors.Is(err, pgx.ErrTxClosed) {
			return nil
		}
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}

	return nil
}

// getTxFromContext retrieves the transaction from context if one exists.
func (r *LedgerRepository) getTxFromContext(ctx context.Context) pgx.Tx {
	if tx, ok := ctx.Value(txContextKey).(pgx.Tx); ok {
		return tx
	}
	return nil
}

// getQueryer returns the transaction if one exists in context, otherwise the
// pool. This lets every repository method work both inside and outside
// transactions.
func (r *LedgerRepository) getQueryer(ctx context.Context) interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
} {
	if tx := r.getTxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
