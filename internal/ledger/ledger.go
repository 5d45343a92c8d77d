// Package ledger implements the classification-driven ledger engine: the
// logic that takes a classified message and updates task, expense and debt
// state with correct partial-payment and balance-netting semantics.
package ledger

import (
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/classifier"
	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

var (
	// ErrInvariant marks an operation that would corrupt the ledger, such as
	// a debt between a user and themself or a non-positive amount. The
	// transaction aborts with no partial mutation.
	ErrInvariant = errors.New("ledger invariant violation")

	// ErrNoActiveDebt is returned by manual settlement when nothing is owed.
	ErrNoActiveDebt = errors.New("no active debt with this creditor")

	// ErrAmountExceedsDebt is returned by manual settlement when the
	// requested amount is larger than the total outstanding debt. (The
	// payment-message path clamps instead.)
	ErrAmountExceedsDebt = errors.New("amount exceeds total debt")
)

// Event is a notification payload delivered to a user's live connections.
type Event map[string]any

// Notifier delivers events to connected clients. Delivery is fire-and-forget:
// the ledger transaction has already committed by the time Notify runs, and a
// failed delivery to one recipient must not affect others.
type Notifier interface {
	Notify(userID string, event Event)
}

// Engine is the composition root of the ledger core. It persists inbound
// messages, invokes the classifier, and dispatches to the task resolver,
// expense poster and payment settler.
type Engine struct {
	store      storage.Store
	classifier classifier.Classifier
	notifier   Notifier
	logger     *slog.Logger
}

// New creates an engine. notifier may be nil, in which case no events are
// emitted.
func New(store storage.Store, c classifier.Classifier, notifier Notifier, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{store: store, classifier: c, notifier: notifier, logger: logger}
}

// IntakeResult is the unified outcome of one message intake. Classification
// is always set; of the remaining fields only the ones the classification
// produced are non-nil.
type IntakeResult struct {
	Message        *models.Message
	Classification models.Classification
	Task           *models.Task
	Expense        *models.Expense
	Debt           *models.Debt
	Payment        *SettlementOutcome
}

// two is the split divisor: expenses are shared equally by the household.
var two = decimal.NewFromInt(2)

// splitAmount halves an expense, rounding half-up to the smallest currency
// unit so the debtor's share never accumulates sub-unit noise.
func splitAmount(amount decimal.Decimal) decimal.Decimal {
	return amount.DivRound(two, 2)
}

func (e *Engine) notify(userID string, event Event) {
	if e.notifier == nil {
		return
	}
	e.notifier.Notify(userID, event)
}
