package sqlite

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

// Ensure sqliteTx implements storage.Tx
var _ storage.Tx = (*sqliteTx)(nil)

// sqliteTx adapts *sql.Tx to storage.Tx. All methods delegate to the shared
// query helpers so the SQL is identical in and out of transactions.
type sqliteTx struct {
	tx *sql.Tx
}

func (t *sqliteTx) FindOpenTask(ctx context.Context, participantID, item string) (*models.Task, error) {
	return findOpenTask(ctx, t.tx, participantID, item)
}

func (t *sqliteTx) CreateTask(ctx context.Context, task *models.Task) error {
	return createTask(ctx, t.tx, task)
}

func (t *sqliteTx) UpdateTask(ctx context.Context, task *models.Task) error {
	return updateTask(ctx, t.tx, task)
}

func (t *sqliteTx) CreateExpense(ctx context.Context, expense *models.Expense) error {
	return createExpense(ctx, t.tx, expense)
}

func (t *sqliteTx) CreateDebt(ctx context.Context, debt *models.Debt) error {
	return createDebt(ctx, t.tx, debt)
}

func (t *sqliteTx) ListActiveDebts(ctx context.Context, debtorID, creditorID string) ([]*models.Debt, error) {
	return listActiveDebts(ctx, t.tx, debtorID, creditorID)
}

func (t *sqliteTx) UpdateDebtAmount(ctx context.Context, debtID string, amount decimal.Decimal) error {
	return updateDebtAmount(ctx, t.tx, debtID, amount)
}

func (t *sqliteTx) SettleDebt(ctx context.Context, debtID string, settledAt int64) error {
	return settleDebt(ctx, t.tx, debtID, settledAt)
}
