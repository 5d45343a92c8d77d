package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

const debtColumns = `id, debtor_id, creditor_id, amount, status, created_at, settled_at`

func scanDebt(scan func(dest ...any) error) (*models.Debt, error) {
	debt := &models.Debt{}
	var amount string
	var settled sql.NullInt64
	if err := scan(&debt.ID, &debt.DebtorID, &debt.CreditorID, &amount,
		&debt.Status, &debt.CreatedAt, &settled); err != nil {
		return nil, err
	}
	var err error
	debt.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", amount, err)
	}
	debt.SettledAt = settled.Int64
	return debt, nil
}

func createDebt(ctx context.Context, q dbtx, debt *models.Debt) error {
	if debt.ID == "" {
		debt.ID = uuid.New().String()
	}
	if debt.CreatedAt == 0 {
		debt.CreatedAt = time.Now().Unix()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO debts (id, debtor_id, creditor_id, amount, status, created_at, settled_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		debt.ID, debt.DebtorID, debt.CreditorID, debt.Amount.String(),
		debt.Status, debt.CreatedAt, nullInt(debt.SettledAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create debt: %w", err)
	}
	return nil
}

func createExpense(ctx context.Context, q dbtx, expense *models.Expense) error {
	if expense.ID == "" {
		expense.ID = uuid.New().String()
	}
	if expense.CreatedAt == 0 {
		expense.CreatedAt = time.Now().Unix()
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO expenses (id, task_id, paid_by, amount, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		expense.ID, expense.TaskID, expense.PaidBy, expense.Amount.String(), expense.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// listActiveDebts returns active debts owed by debtorID to creditorID, oldest
// first. rowid breaks created_at ties, so settlement order is stable.
func listActiveDebts(ctx context.Context, q dbtx, debtorID, creditorID string) ([]*models.Debt, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+debtColumns+` FROM debts
		 WHERE debtor_id = ? AND creditor_id = ? AND status = ?
		 ORDER BY created_at ASC, rowid ASC`,
		debtorID, creditorID, models.DebtActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list active debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt, err := scanDebt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

func updateDebtAmount(ctx context.Context, q dbtx, debtID string, amount decimal.Decimal) error {
	res, err := q.ExecContext(ctx,
		`UPDATE debts SET amount = ? WHERE id = ? AND status = ?`,
		amount.String(), debtID, models.DebtActive,
	)
	if err != nil {
		return fmt.Errorf("failed to update debt amount: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func settleDebt(ctx context.Context, q dbtx, debtID string, settledAt int64) error {
	res, err := q.ExecContext(ctx,
		`UPDATE debts SET status = ?, settled_at = ? WHERE id = ? AND status = ?`,
		models.DebtSettled, settledAt, debtID, models.DebtActive,
	)
	if err != nil {
		return fmt.Errorf("failed to settle debt: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListDebts returns debts matching the filter, newest first.
func (s *SQLiteStore) ListDebts(ctx context.Context, f storage.DebtFilter) ([]*models.Debt, error) {
	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + debtColumns + ` FROM debts WHERE 1=1`
	var args []any
	if f.ParticipantID != "" {
		query += ` AND (debtor_id = ? OR creditor_id = ?)`
		args = append(args, f.ParticipantID, f.ParticipantID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list debts: %w", err)
	}
	defer rows.Close()

	var debts []*models.Debt
	for rows.Next() {
		debt, err := scanDebt(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate debts: %w", err)
	}
	return debts, nil
}

func sumDebts(ctx context.Context, q dbtx, where string, args ...any) (decimal.Decimal, error) {
	rows, err := q.QueryContext(ctx, `SELECT amount FROM debts WHERE status = ? AND `+where, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum debts: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("failed to scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("bad amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to iterate amounts: %w", err)
	}
	return total, nil
}

// SumActiveDebts totals the active debt owed by debtorID to creditorID.
// Summation happens in Go with decimals; SQL SUM over money is never used.
func (s *SQLiteStore) SumActiveDebts(ctx context.Context, debtorID, creditorID string) (decimal.Decimal, error) {
	return sumDebts(ctx, s.db, `debtor_id = ? AND creditor_id = ?`,
		models.DebtActive, debtorID, creditorID)
}

// SumActiveDebtsByUser totals all active debt owed by (owed=false) or owed to
// (owed=true) the user, against everyone.
func (s *SQLiteStore) SumActiveDebtsByUser(ctx context.Context, userID string, owed bool) (decimal.Decimal, error) {
	column := `debtor_id`
	if owed {
		column = `creditor_id`
	}
	return sumDebts(ctx, s.db, column+` = ?`, models.DebtActive, userID)
}
