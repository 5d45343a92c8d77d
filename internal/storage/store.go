// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// TaskFilter narrows ListTasks. Zero values mean "no filter".
type TaskFilter struct {
	// ParticipantID restricts to tasks where the user is creator or assignee.
	ParticipantID string
	Status        models.TaskStatus
	AssignedTo    string
	CreatedBy     string
}

// DebtFilter narrows ListDebts. ParticipantID restricts to debts where the
// user is debtor or creditor; Status empty means both statuses.
type DebtFilter struct {
	ParticipantID string
	Status        models.DebtStatus
	Limit         int
	Offset        int
}

// Tx carries the row-level operations the ledger engine composes inside a
// single transaction. All writes performed through one Tx become visible
// atomically: either every write commits or none does.
type Tx interface {
	// FindOpenTask returns the oldest pending or in-progress task whose item
	// name contains item (case-insensitive) and where participantID is
	// creator or assignee. Returns nil, nil when there is no match.
	FindOpenTask(ctx context.Context, participantID, item string) (*models.Task, error)

	CreateTask(ctx context.Context, task *models.Task) error
	UpdateTask(ctx context.Context, task *models.Task) error
	CreateExpense(ctx context.Context, expense *models.Expense) error
	CreateDebt(ctx context.Context, debt *models.Debt) error

	// ListActiveDebts returns active debts owed by debtorID to creditorID,
	// oldest first. The ordering is the settlement order.
	ListActiveDebts(ctx context.Context, debtorID, creditorID string) ([]*models.Debt, error)

	// UpdateDebtAmount reduces a debt's outstanding amount in place.
	UpdateDebtAmount(ctx context.Context, debtID string, amount decimal.Decimal) error

	// SettleDebt flips a debt to settled at the given instant.
	SettleDebt(ctx context.Context, debtID string, settledAt int64) error
}

// Store defines the interface for ledger storage operations. This abstraction
// allows swapping storage backends (SQLite, PostgreSQL, etc.) without
// changing the engine or service layers.
type Store interface {
	// RunInTx runs fn inside a single write transaction. A non-nil error from
	// fn rolls back every write made through the Tx. The transaction holds
	// the write lock for its whole read-modify-write sequence, which is what
	// serializes concurrent settlements against the same debtor/creditor
	// pair.
	RunInTx(ctx context.Context, fn func(tx Tx) error) error

	// Users.
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)

	// Messages.
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessage(ctx context.Context, id string) (*models.Message, error)
	// AttachClassification stores a message's classification. It is a
	// one-time write: a message that already has a classification is left
	// untouched.
	AttachClassification(ctx context.Context, messageID string, c *models.Classification) error
	// ListMessages returns messages involving userID, newest first. When
	// otherID is non-empty only the conversation between the two is returned.
	ListMessages(ctx context.Context, userID, otherID string, limit, offset int) ([]*models.Message, error)

	// Tasks.
	CreateTask(ctx context.Context, task *models.Task) error
	GetTask(ctx context.Context, id string) (*models.Task, error)
	ListTasks(ctx context.Context, f TaskFilter) ([]*models.Task, error)
	UpdateTask(ctx context.Context, task *models.Task) error
	DeleteTask(ctx context.Context, id string) error

	// Debts. Reads outside RunInTx see the committed snapshot.
	ListDebts(ctx context.Context, f DebtFilter) ([]*models.Debt, error)
	// SumActiveDebts totals the active debt owed by debtorID to creditorID.
	SumActiveDebts(ctx context.Context, debtorID, creditorID string) (decimal.Decimal, error)
	// SumActiveDebtsByUser totals all active debt owed by (owed=false) or
	// owed to (owed=true) the user, against everyone.
	SumActiveDebtsByUser(ctx context.Context, userID string, owed bool) (decimal.Decimal, error)

	// Close releases any resources held by the store.
	Close() error
}
