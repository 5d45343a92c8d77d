package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// Balance is the signed net position between two users, or between one user
// and everyone else.
type Balance struct {
	// AOwes is what the first user owes the second (active debts only).
	AOwes decimal.Decimal `json:"a_owes"`
	// BOwes is what the second user owes the first.
	BOwes decimal.Decimal `json:"b_owes"`
	// Net is BOwes - AOwes: positive means the first user is owed money.
	Net decimal.Decimal `json:"net"`
}

// NetBalance aggregates active debts between two users into a signed net
// balance. Pure read over the committed snapshot; safe to call concurrently
// with any writer. NetBalance(a, b).Net == NetBalance(b, a).Net.Neg() always.
func (e *Engine) NetBalance(ctx context.Context, userA, userB string) (*Balance, error) {
	aOwes, err := e.store.SumActiveDebts(ctx, userA, userB)
	if err != nil {
		return nil, err
	}
	bOwes, err := e.store.SumActiveDebts(ctx, userB, userA)
	if err != nil {
		return nil, err
	}
	return &Balance{AOwes: aOwes, BOwes: bOwes, Net: bOwes.Sub(aOwes)}, nil
}

// TotalBalance aggregates the user's active debts against the rest of the
// world: what they owe anyone, what anyone owes them, and the signed net.
func (e *Engine) TotalBalance(ctx context.Context, userID string) (*Balance, error) {
	owes, err := e.store.SumActiveDebtsByUser(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	owed, err := e.store.SumActiveDebtsByUser(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	return &Balance{AOwes: owes, BOwes: owed, Net: owed.Sub(owes)}, nil
}
