// Package storage is the SQLite implementation of the authoritative store.
// Every mutation lands in a transaction together with a mutation_log row;
// the sync worker drains that log.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"finbook/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func logMutation(ctx context.Context, tx *sql.Tx, kind core.EntityKind, op string, id uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO mutation_log (entity_kind, op, entity_id) VALUES (?, ?, ?)`,
		string(kind), op, id.String())
	if err != nil {
		return fmt.Errorf("log mutation: %w", err)
	}
	return nil
}

// scanMoney is deliberately lenient: a malformed stored amount becomes zero
// so aggregation folds never abort on one bad row.
func scanMoney(s string) core.Money {
	return core.LenientMoney(s)
}

func scanDate(ns sql.NullString) core.CalendarDate {
	if !ns.Valid || ns.String == "" {
		return core.CalendarDate{}
	}
	d, err := core.ParseDate(ns.String)
	if err != nil {
		return core.CalendarDate{}
	}
	return d
}

func dateArg(d core.CalendarDate) any {
	if d.IsEmpty() {
		return nil
	}
	return d.String()
}

func scanID(s string) uuid.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil
	}
	return id
}

func notFound(kind core.EntityKind, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

// --- accounts ---

func (r *SQLiteRepository) Account(ctx context.Context, id uuid.UUID) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, kind, balance FROM accounts WHERE id = ?`, id.String())
	return scanAccount(row, id)
}

func scanAccount(row *sql.Row, id uuid.UUID) (core.Account, error) {
	var a core.Account
	var rid, balance string
	if err := row.Scan(&rid, &a.Name, &a.Kind, &balance); err != nil {
		if err == sql.ErrNoRows {
			return core.Account{}, notFound(core.KindAccount, id)
		}
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.ID = scanID(rid)
	a.Balance = scanMoney(balance)
	return a, nil
}

func (r *SQLiteRepository) Accounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, kind, balance FROM accounts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		var a core.Account
		var rid, balance string
		if err := rows.Scan(&rid, &a.Name, &a.Kind, &balance); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		a.ID = scanID(rid)
		a.Balance = scanMoney(balance)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveAccount(ctx context.Context, a core.Account) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO accounts (id, name, kind, balance) VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				kind = excluded.kind,
				balance = excluded.balance,
				updated_at = CURRENT_TIMESTAMP`,
			a.ID.String(), a.Name, string(a.Kind), a.Balance.String())
		if err != nil {
			return fmt.Errorf("save account: %w", err)
		}
		return logMutation(ctx, tx, core.KindAccount, "save", a.ID)
	})
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var refs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM loans WHERE account_id = ?`, id.String()).Scan(&refs); err != nil {
			return fmt.Errorf("count loan refs: %w", err)
		}
		if refs > 0 {
			return core.ErrAccountInUse
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindAccount, id)
		}
		return logMutation(ctx, tx, core.KindAccount, "delete", id)
	})
}

// --- loans ---

const loanColumns = `id, name, loan_type, original_amount, remaining_balance,
	interest_rate, next_payment_amount, next_payment_date, account_id, category_id, status`

func scanLoanRow(scan func(dest ...any) error) (core.Loan, error) {
	var l core.Loan
	var rid, accountID, categoryID, original, remaining, rate string
	var nextAmount, nextDate sql.NullString
	err := scan(&rid, &l.Name, &l.Type, &original, &remaining, &rate,
		&nextAmount, &nextDate, &accountID, &categoryID, &l.Status)
	if err != nil {
		return core.Loan{}, err
	}
	l.ID = scanID(rid)
	l.AccountID = scanID(accountID)
	l.CategoryID = scanID(categoryID)
	l.OriginalAmount = scanMoney(original)
	l.RemainingBalance = scanMoney(remaining)
	if d, err := decimal.NewFromString(rate); err == nil {
		l.InterestRate = d
	}
	if nextAmount.Valid {
		l.NextPaymentAmount = scanMoney(nextAmount.String)
	}
	l.NextPaymentDate = scanDate(nextDate)
	return l, nil
}

func (r *SQLiteRepository) Loan(ctx context.Context, id uuid.UUID) (core.Loan, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = ?`, id.String())
	l, err := scanLoanRow(row.Scan)
	if err == sql.ErrNoRows {
		return core.Loan{}, notFound(core.KindLoan, id)
	}
	if err != nil {
		return core.Loan{}, fmt.Errorf("scan loan: %w", err)
	}
	return l, nil
}

func (r *SQLiteRepository) Loans(ctx context.Context) ([]core.Loan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+loanColumns+` FROM loans ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []core.Loan
	for rows.Next() {
		l, err := scanLoanRow(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func loanArgs(l core.Loan) []any {
	var nextAmount any
	if !l.NextPaymentAmount.IsZero() {
		nextAmount = l.NextPaymentAmount.String()
	}
	return []any{
		l.ID.String(), l.Name, string(l.Type),
		l.OriginalAmount.String(), l.RemainingBalance.String(),
		l.InterestRate.String(), nextAmount, dateArg(l.NextPaymentDate),
		l.AccountID.String(), l.CategoryID.String(), string(l.Status),
	}
}

const upsertLoan = `
	INSERT INTO loans (` + loanColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		name = excluded.name,
		loan_type = excluded.loan_type,
		original_amount = excluded.original_amount,
		remaining_balance = excluded.remaining_balance,
		interest_rate = excluded.interest_rate,
		next_payment_amount = excluded.next_payment_amount,
		next_payment_date = excluded.next_payment_date,
		account_id = excluded.account_id,
		category_id = excluded.category_id,
		status = excluded.status,
		updated_at = CURRENT_TIMESTAMP`

func (r *SQLiteRepository) SaveLoan(ctx context.Context, l core.Loan) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, upsertLoan, loanArgs(l)...); err != nil {
			return fmt.Errorf("save loan: %w", err)
		}
		return logMutation(ctx, tx, core.KindLoan, "save", l.ID)
	})
}

func (r *SQLiteRepository) DeleteLoan(ctx context.Context, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM loans WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete loan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindLoan, id)
		}
		return logMutation(ctx, tx, core.KindLoan, "delete", id)
	})
}

// ApplyLoanPayment updates the loan and the debited account in one
// transaction: a failure on either row rolls back both.
func (r *SQLiteRepository) ApplyLoanPayment(ctx context.Context, l core.Loan, a core.Account) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE loans SET remaining_balance = ?, status = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			l.RemainingBalance.String(), string(l.Status), l.ID.String())
		if err != nil {
			return fmt.Errorf("update loan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindLoan, l.ID)
		}
		res, err = tx.ExecContext(ctx, `
			UPDATE accounts SET balance = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			a.Balance.String(), a.ID.String())
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindAccount, a.ID)
		}
		return logMutation(ctx, tx, core.KindLoan, "payment", l.ID)
	})
}

// --- budgets ---

func (r *SQLiteRepository) Budget(ctx context.Context, id uuid.UUID) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, budgeted_amount, period, start_date, spent_amount
		FROM budgets WHERE id = ?`, id.String())

	var b core.Budget
	var rid, amount, spent string
	var start sql.NullString
	if err := row.Scan(&rid, &b.Name, &amount, &b.Period, &start, &spent); err != nil {
		if err == sql.ErrNoRows {
			return core.Budget{}, notFound(core.KindBudget, id)
		}
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	b.ID = scanID(rid)
	b.Amount = scanMoney(amount)
	b.Spent = scanMoney(spent)
	b.StartDate = scanDate(start)

	pairs, err := r.budgetPairs(ctx, b.ID)
	if err != nil {
		return core.Budget{}, err
	}
	b.Categories = pairs
	return b, nil
}

func (r *SQLiteRepository) budgetPairs(ctx context.Context, id uuid.UUID) ([]core.CategoryPair, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id, subcategory_id FROM budget_categories WHERE budget_id = ?`,
		id.String())
	if err != nil {
		return nil, fmt.Errorf("list budget categories: %w", err)
	}
	defer rows.Close()

	var pairs []core.CategoryPair
	for rows.Next() {
		var cat, sub string
		if err := rows.Scan(&cat, &sub); err != nil {
			return nil, fmt.Errorf("scan budget category: %w", err)
		}
		p := core.CategoryPair{CategoryID: scanID(cat)}
		if sub != "" {
			p.SubcategoryID = scanID(sub)
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}

func (r *SQLiteRepository) Budgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, budgeted_amount, period, start_date, spent_amount
		FROM budgets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		var rid, amount, spent string
		var start sql.NullString
		if err := rows.Scan(&rid, &b.Name, &amount, &b.Period, &start, &spent); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		b.ID = scanID(rid)
		b.Amount = scanMoney(amount)
		b.Spent = scanMoney(spent)
		b.StartDate = scanDate(start)
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		pairs, err := r.budgetPairs(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Categories = pairs
	}
	return out, nil
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO budgets (id, name, budgeted_amount, period, start_date, spent_amount)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				budgeted_amount = excluded.budgeted_amount,
				period = excluded.period,
				start_date = excluded.start_date,
				spent_amount = excluded.spent_amount`,
			b.ID.String(), b.Name, b.Amount.String(), string(b.Period),
			dateArg(b.StartDate), b.Spent.String())
		if err != nil {
			return fmt.Errorf("save budget: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM budget_categories WHERE budget_id = ?`, b.ID.String()); err != nil {
			return fmt.Errorf("clear budget categories: %w", err)
		}
		for _, p := range b.Categories {
			sub := ""
			if p.SubcategoryID != uuid.Nil {
				sub = p.SubcategoryID.String()
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO budget_categories (budget_id, category_id, subcategory_id)
				VALUES (?, ?, ?)`,
				b.ID.String(), p.CategoryID.String(), sub); err != nil {
				return fmt.Errorf("save budget category: %w", err)
			}
		}
		return logMutation(ctx, tx, core.KindBudget, "save", b.ID)
	})
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete budget: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindBudget, id)
		}
		return logMutation(ctx, tx, core.KindBudget, "delete", id)
	})
}

// --- goals ---

func (r *SQLiteRepository) Goal(ctx context.Context, id uuid.UUID) (core.Goal, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, target_amount, current_amount, target_date, label
		FROM goals WHERE id = ?`, id.String())

	var g core.Goal
	var rid, target, current string
	var targetDate sql.NullString
	if err := row.Scan(&rid, &g.Name, &target, &current, &targetDate, &g.Label); err != nil {
		if err == sql.ErrNoRows {
			return core.Goal{}, notFound(core.KindGoal, id)
		}
		return core.Goal{}, fmt.Errorf("scan goal: %w", err)
	}
	g.ID = scanID(rid)
	g.Target = scanMoney(target)
	g.Current = scanMoney(current)
	g.TargetDate = scanDate(targetDate)
	return g, nil
}

func (r *SQLiteRepository) Goals(ctx context.Context) ([]core.Goal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, target_amount, current_amount, target_date, label
		FROM goals ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.Goal
	for rows.Next() {
		var g core.Goal
		var rid, target, current string
		var targetDate sql.NullString
		if err := rows.Scan(&rid, &g.Name, &target, &current, &targetDate, &g.Label); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.ID = scanID(rid)
		g.Target = scanMoney(target)
		g.Current = scanMoney(current)
		g.TargetDate = scanDate(targetDate)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveGoal(ctx context.Context, g core.Goal) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO goals (id, name, target_amount, current_amount, target_date, label)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				target_amount = excluded.target_amount,
				current_amount = excluded.current_amount,
				target_date = excluded.target_date,
				label = excluded.label`,
			g.ID.String(), g.Name, g.Target.String(), g.Current.String(),
			dateArg(g.TargetDate), g.Label)
		if err != nil {
			return fmt.Errorf("save goal: %w", err)
		}
		return logMutation(ctx, tx, core.KindGoal, "save", g.ID)
	})
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete goal: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindGoal, id)
		}
		return logMutation(ctx, tx, core.KindGoal, "delete", id)
	})
}

// --- bills ---

func (r *SQLiteRepository) Bill(ctx context.Context, id uuid.UUID) (core.Bill, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, vendor, amount, frequency, next_due_date, category_id, paid
		FROM bills WHERE id = ?`, id.String())

	var b core.Bill
	var rid, amount string
	var due, category sql.NullString
	if err := row.Scan(&rid, &b.Vendor, &amount, &b.Frequency, &due, &category, &b.Paid); err != nil {
		if err == sql.ErrNoRows {
			return core.Bill{}, notFound(core.KindBill, id)
		}
		return core.Bill{}, fmt.Errorf("scan bill: %w", err)
	}
	b.ID = scanID(rid)
	b.Amount = scanMoney(amount)
	b.NextDue = scanDate(due)
	if category.Valid {
		b.CategoryID = scanID(category.String)
	}
	return b, nil
}

func (r *SQLiteRepository) Bills(ctx context.Context) ([]core.Bill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, vendor, amount, frequency, next_due_date, category_id, paid
		FROM bills ORDER BY next_due_date`)
	if err != nil {
		return nil, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var out []core.Bill
	for rows.Next() {
		var b core.Bill
		var rid, amount string
		var due, category sql.NullString
		if err := rows.Scan(&rid, &b.Vendor, &amount, &b.Frequency, &due, &category, &b.Paid); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}
		b.ID = scanID(rid)
		b.Amount = scanMoney(amount)
		b.NextDue = scanDate(due)
		if category.Valid {
			b.CategoryID = scanID(category.String)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveBill(ctx context.Context, b core.Bill) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var category any
		if b.CategoryID != uuid.Nil {
			category = b.CategoryID.String()
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO bills (id, vendor, amount, frequency, next_due_date, category_id, paid)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				vendor = excluded.vendor,
				amount = excluded.amount,
				frequency = excluded.frequency,
				next_due_date = excluded.next_due_date,
				category_id = excluded.category_id,
				paid = excluded.paid`,
			b.ID.String(), b.Vendor, b.Amount.String(), string(b.Frequency),
			dateArg(b.NextDue), category, b.Paid)
		if err != nil {
			return fmt.Errorf("save bill: %w", err)
		}
		return logMutation(ctx, tx, core.KindBill, "save", b.ID)
	})
}

func (r *SQLiteRepository) DeleteBill(ctx context.Context, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM bills WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete bill: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindBill, id)
		}
		return logMutation(ctx, tx, core.KindBill, "delete", id)
	})
}

// --- categories ---

func (r *SQLiteRepository) Category(ctx context.Context, id uuid.UUID) (core.Category, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, type, color, icon, is_default FROM categories WHERE id = ?`,
		id.String())

	var c core.Category
	var rid string
	if err := row.Scan(&rid, &c.Name, &c.Type, &c.Color, &c.Icon, &c.IsDefault); err != nil {
		if err == sql.ErrNoRows {
			return core.Category{}, notFound(core.KindCategory, id)
		}
		return core.Category{}, fmt.Errorf("scan category: %w", err)
	}
	c.ID = scanID(rid)
	return c, nil
}

func (r *SQLiteRepository) Categories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, type, color, icon, is_default FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		var rid string
		if err := rows.Scan(&rid, &c.Name, &c.Type, &c.Color, &c.Icon, &c.IsDefault); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.ID = scanID(rid)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveCategory(ctx context.Context, c core.Category) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categories (id, name, type, color, icon, is_default)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				type = excluded.type,
				color = excluded.color,
				icon = excluded.icon`,
			c.ID.String(), c.Name, string(c.Type), c.Color, c.Icon, c.IsDefault)
		if err != nil {
			return fmt.Errorf("save category: %w", err)
		}
		return logMutation(ctx, tx, core.KindCategory, "save", c.ID)
	})
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindCategory, id)
		}
		return logMutation(ctx, tx, core.KindCategory, "delete", id)
	})
}

func (r *SQLiteRepository) Subcategory(ctx context.Context, id uuid.UUID) (core.Subcategory, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, category_id, name, is_default FROM subcategories WHERE id = ?`,
		id.String())

	var s core.Subcategory
	var rid, categoryID string
	if err := row.Scan(&rid, &categoryID, &s.Name, &s.IsDefault); err != nil {
		if err == sql.ErrNoRows {
			return core.Subcategory{}, notFound(core.KindSubcategory, id)
		}
		return core.Subcategory{}, fmt.Errorf("scan subcategory: %w", err)
	}
	s.ID = scanID(rid)
	s.CategoryID = scanID(categoryID)
	return s, nil
}

func (r *SQLiteRepository) Subcategories(ctx context.Context) ([]core.Subcategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category_id, name, is_default FROM subcategories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list subcategories: %w", err)
	}
	defer rows.Close()

	var out []core.Subcategory
	for rows.Next() {
		var s core.Subcategory
		var rid, categoryID string
		if err := rows.Scan(&rid, &categoryID, &s.Name, &s.IsDefault); err != nil {
			return nil, fmt.Errorf("scan subcategory: %w", err)
		}
		s.ID = scanID(rid)
		s.CategoryID = scanID(categoryID)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) SaveSubcategory(ctx context.Context, s core.Subcategory) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO subcategories (id, category_id, name, is_default)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				category_id = excluded.category_id,
				name = excluded.name`,
			s.ID.String(), s.CategoryID.String(), s.Name, s.IsDefault)
		if err != nil {
			return fmt.Errorf("save subcategory: %w", err)
		}
		return logMutation(ctx, tx, core.KindSubcategory, "save", s.ID)
	})
}

func (r *SQLiteRepository) DeleteSubcategory(ctx context.Context, id uuid.UUID) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM subcategories WHERE id = ?`, id.String())
		if err != nil {
			return fmt.Errorf("delete subcategory: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(core.KindSubcategory, id)
		}
		return logMutation(ctx, tx, core.KindSubcategory, "delete", id)
	})
}

// --- mutation log (sync worker) ---

// LoggedMutation is an accepted mutation awaiting mirror sync.
type LoggedMutation struct {
	ID         int64
	EntityKind core.EntityKind
	Op         string
	EntityID   uuid.UUID
	CreatedAt  time.Time
}

// UnsyncedMutations returns up to limit mutations not yet mirrored, oldest
// first.
func (r *SQLiteRepository) UnsyncedMutations(ctx context.Context, limit int) ([]LoggedMutation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, entity_kind, op, entity_id, created_at
		FROM mutation_log WHERE synced = 0 AND sync_error = 0
		ORDER BY id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unsynced mutations: %w", err)
	}
	defer rows.Close()

	var out []LoggedMutation
	for rows.Next() {
		var m LoggedMutation
		var entityID string
		if err := rows.Scan(&m.ID, &m.EntityKind, &m.Op, &entityID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan mutation: %w", err)
		}
		m.EntityID = scanID(entityID)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkSynced flags a mutation as mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE mutation_log SET synced = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	return nil
}

// MarkSyncError flags a mutation whose mirror append keeps failing so the
// sweep stops retrying it.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE mutation_log SET sync_error = 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("mark sync error: %w", err)
	}
	slog.WarnContext(ctx, "Mutation marked with sync error", "id", id)
	return nil
}
