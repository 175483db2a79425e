// Package storage persists groups, expenses, shares, settlements and
// budgets in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dividi/internal/core"
	"dividi/internal/log"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

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

// withTx runs fn inside a transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed",
				log.FieldError, rbErr,
				log.FieldComponent, log.ComponentStorage)
		}
		return err
	}
	return tx.Commit()
}

// CreateGroup inserts the group and its initial participants atomically.
func (r *SQLiteRepository) CreateGroup(ctx context.Context, g core.Group, participants []core.Participant) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO groups (id, name, currency, created_at) VALUES (?, ?, ?, ?)`,
			g.ID, g.Name, g.Currency, g.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert group: %w", err)
		}
		for _, p := range participants {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO participants (id, group_id, name, user_id) VALUES (?, ?, ?, ?)`,
				p.ID, p.GroupID, p.Name, p.UserID)
			if err != nil {
				return fmt.Errorf("insert participant %s: %w", p.Name, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetGroup(ctx context.Context, id string) (core.Group, error) {
	var g core.Group
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, currency, created_at FROM groups WHERE id = ?`, id).
		Scan(&g.ID, &g.Name, &g.Currency, &g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Group{}, ErrNotFound
	}
	if err != nil {
		return core.Group{}, fmt.Errorf("get group: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGroups(ctx context.Context) ([]core.Group, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, currency, created_at FROM groups ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []core.Group
	for rows.Next() {
		var g core.Group
		if err := rows.Scan(&g.ID, &g.Name, &g.Currency, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ListParticipants returns a group's participants in insertion order.
// The order is load-bearing: balances are reported in the same order.
func (r *SQLiteRepository) ListParticipants(ctx context.Context, groupID string) ([]core.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, name, user_id FROM participants WHERE group_id = ? ORDER BY rowid`,
		groupID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var participants []core.Participant
	for rows.Next() {
		var p core.Participant
		if err := rows.Scan(&p.ID, &p.GroupID, &p.Name, &p.UserID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// CreateExpense inserts the expense and all of its shares atomically.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.SplitExpense, shares []core.Share) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO split_expenses
			   (id, group_id, payer_participant_id, amount_cents, currency, date, split_type, title, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.GroupID, e.PayerParticipantID, e.Amount.Cents, e.Currency,
			e.Date, string(e.SplitType), e.Title, e.Notes)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
		for _, sh := range shares {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO shares (id, expense_id, participant_id, amount_cents, is_settled, settled_at)
				 VALUES (?, ?, ?, ?, ?, ?)`,
				sh.ID, sh.ExpenseID, sh.ParticipantID, sh.Amount.Cents, sh.IsSettled, sh.SettledAt)
			if err != nil {
				return fmt.Errorf("insert share: %w", err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.SplitExpense, error) {
	var (
		e         core.SplitExpense
		splitType string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_participant_id, amount_cents, currency, date, split_type, title, notes
		   FROM split_expenses WHERE id = ?`, id).
		Scan(&e.ID, &e.GroupID, &e.PayerParticipantID, &e.Amount.Cents, &e.Currency,
			&e.Date, &splitType, &e.Title, &e.Notes)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SplitExpense{}, ErrNotFound
	}
	if err != nil {
		return core.SplitExpense{}, fmt.Errorf("get expense: %w", err)
	}
	e.SplitType = core.SplitType(splitType)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, groupID string) ([]core.SplitExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, payer_participant_id, amount_cents, currency, date, split_type, title, notes
		   FROM split_expenses WHERE group_id = ? ORDER BY date DESC, rowid DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

// ListExpensesByMonthPrefix returns expenses whose ISO date starts with
// the YYYY-MM month key, mirroring the string-prefix month test used by
// the budget watcher.
func (r *SQLiteRepository) ListExpensesByMonthPrefix(ctx context.Context, month string) ([]core.SplitExpense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, group_id, payer_participant_id, amount_cents, currency, date, split_type, title, notes
		   FROM split_expenses WHERE date LIKE ? || '%' ORDER BY date DESC, rowid DESC`, month)
	if err != nil {
		return nil, fmt.Errorf("list expenses by month: %w", err)
	}
	defer rows.Close()
	return scanExpenses(rows)
}

func scanExpenses(rows *sql.Rows) ([]core.SplitExpense, error) {
	var expenses []core.SplitExpense
	for rows.Next() {
		var (
			e         core.SplitExpense
			splitType string
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.PayerParticipantID, &e.Amount.Cents,
			&e.Currency, &e.Date, &splitType, &e.Title, &e.Notes); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		e.SplitType = core.SplitType(splitType)
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ListShares returns every share belonging to a group's expenses.
func (r *SQLiteRepository) ListShares(ctx context.Context, groupID string) ([]core.Share, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT s.id, s.expense_id, s.participant_id, s.amount_cents, s.is_settled, s.settled_at
		   FROM shares s
		   JOIN split_expenses e ON e.id = s.expense_id
		  WHERE e.group_id = ?
		  ORDER BY s.rowid`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list shares: %w", err)
	}
	defer rows.Close()

	var shares []core.Share
	for rows.Next() {
		var sh core.Share
		if err := rows.Scan(&sh.ID, &sh.ExpenseID, &sh.ParticipantID,
			&sh.Amount.Cents, &sh.IsSettled, &sh.SettledAt); err != nil {
			return nil, fmt.Errorf("scan share: %w", err)
		}
		shares = append(shares, sh)
	}
	return shares, rows.Err()
}

func (r *SQLiteRepository) GetShare(ctx context.Context, id string) (core.Share, error) {
	var sh core.Share
	err := r.db.QueryRowContext(ctx,
		`SELECT id, expense_id, participant_id, amount_cents, is_settled, settled_at
		   FROM shares WHERE id = ?`, id).
		Scan(&sh.ID, &sh.ExpenseID, &sh.ParticipantID, &sh.Amount.Cents, &sh.IsSettled, &sh.SettledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Share{}, ErrNotFound
	}
	if err != nil {
		return core.Share{}, fmt.Errorf("get share: %w", err)
	}
	return sh, nil
}

// SettleShare flips the share to settled and writes the settlement audit
// row in the same transaction. Settling twice returns ErrAlreadySettled.
func (r *SQLiteRepository) SettleShare(ctx context.Context, s core.Settlement) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var isSettled bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_settled FROM shares WHERE id = ?`, s.ShareID).Scan(&isSettled)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("load share: %w", err)
		}
		if isSettled {
			return core.ErrAlreadySettled
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE shares SET is_settled = 1, settled_at = ? WHERE id = ?`,
			s.CreatedAt, s.ShareID)
		if err != nil {
			return fmt.Errorf("update share: %w", err)
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO settlements (id, share_id, amount_cents, method, note, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			s.ID, s.ShareID, s.Amount.Cents, s.Method, s.Note, s.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert settlement: %w", err)
		}
		return nil
	})
}

// GetSettlementForShare returns the settlement written when a share was
// settled. At most one exists per share.
func (r *SQLiteRepository) GetSettlementForShare(ctx context.Context, shareID string) (core.Settlement, error) {
	var st core.Settlement
	err := r.db.QueryRowContext(ctx,
		`SELECT id, share_id, amount_cents, method, note, created_at
		   FROM settlements WHERE share_id = ? ORDER BY created_at DESC LIMIT 1`, shareID).
		Scan(&st.ID, &st.ShareID, &st.Amount.Cents, &st.Method, &st.Note, &st.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Settlement{}, ErrNotFound
	}
	if err != nil {
		return core.Settlement{}, fmt.Errorf("get settlement: %w", err)
	}
	return st, nil
}

func (r *SQLiteRepository) ListSettlements(ctx context.Context, groupID string) ([]core.Settlement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT st.id, st.share_id, st.amount_cents, st.method, st.note, st.created_at
		   FROM settlements st
		   JOIN shares s ON s.id = st.share_id
		   JOIN split_expenses e ON e.id = s.expense_id
		  WHERE e.group_id = ?
		  ORDER BY st.created_at DESC`, groupID)
	if err != nil {
		return nil, fmt.Errorf("list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []core.Settlement
	for rows.Next() {
		var st core.Settlement
		if err := rows.Scan(&st.ID, &st.ShareID, &st.Amount.Cents,
			&st.Method, &st.Note, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		settlements = append(settlements, st)
	}
	return settlements, rows.Err()
}

// UpsertBudget writes the single budget row for a month. The month key
// is unique, so "the" budget for a month is well defined.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (month, total_cents) VALUES (?, ?)
		 ON CONFLICT (month) DO UPDATE SET total_cents = excluded.total_cents`,
		b.Month, b.Total.Cents)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, month string) (core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT month, total_cents FROM budgets WHERE month = ?`, month).
		Scan(&b.Month, &b.Total.Cents)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget: %w", err)
	}
	return b, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT month, total_cents FROM budgets ORDER BY month DESC`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.Month, &b.Total.Cents); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}
