package models

import "github.com/shopspring/decimal"

// Kind is the inferred intent of a message.
type Kind string

const (
	KindTask    Kind = "task"    // something to acquire or do
	KindExpense Kind = "expense" // something was bought, cost mentioned
	KindPayment Kind = "payment" // a debt repayment
	KindNormal  Kind = "normal"  // plain conversation
)

// Valid reports whether k is one of the four known kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindTask, KindExpense, KindPayment, KindNormal:
		return true
	}
	return false
}

// Classification is the classifier's verdict on a message. It is produced
// once by the classifier adapter, attached to the message, and never mutated.
type Classification struct {
	// Kind is the message intent.
	Kind Kind `json:"kind"`

	// Item is the thing to acquire or that was bought.
	// Required for task and expense kinds, empty otherwise.
	Item string `json:"item,omitempty"`

	// Amount is the money amount, when one was extracted.
	// Required for expense, optional for payment, absent otherwise.
	Amount *decimal.Decimal `json:"amount,omitempty"`

	// Confidence is the classifier's self-reported confidence in [0, 1].
	Confidence float64 `json:"confidence"`
}

// Fallback is the classification used when the classifier fails or returns
// output that cannot be parsed: the message is treated as plain chat.
func Fallback() Classification {
	return Classification{Kind: KindNormal, Confidence: 0}
}
