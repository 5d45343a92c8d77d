package models

import "github.com/shopspring/decimal"

// DebtStatus is the settlement state of a debt.
type DebtStatus string

const (
	DebtActive  DebtStatus = "active"
	DebtSettled DebtStatus = "settled"
)

// Debt represents one user's share of an expense, owed to the payer.
//
// Invariants: Amount > 0 while Status is active — an active debt that reaches
// zero transitions to settled in the same transaction, never persisting as a
// zero-amount active row. DebtorID != CreditorID always.
type Debt struct {
	// ID is the unique identifier for the debt (UUID format).
	ID string

	// DebtorID owes the amount to CreditorID.
	DebtorID   string
	CreditorID string

	// Amount is the outstanding (or, once settled, final) amount.
	// Reduced in place by partial payments.
	Amount decimal.Decimal

	// Status is active until fully repaid.
	Status DebtStatus

	// CreatedAt is the Unix timestamp when the debt arose. Settlement is
	// strictly oldest-first on this field; a split row recording a partial
	// manual payment carries the original debt's CreatedAt forward.
	CreatedAt int64

	// SettledAt is the Unix timestamp of settlement, 0 while active.
	SettledAt int64
}
