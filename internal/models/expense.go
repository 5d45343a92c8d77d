package models

import "github.com/shopspring/decimal"

// Expense represents money spent on a completed task.
// Immutable after creation; always linked to exactly one task.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// TaskID is the task this expense paid for.
	TaskID string

	// PaidBy is the user who paid.
	PaidBy string

	// Amount is the full amount paid, always positive.
	Amount decimal.Decimal

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}
