package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/metrics"
	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

// PartialPayment describes the single debt a settlement left partially paid.
type PartialPayment struct {
	DebtID          string          `json:"debt_id"`
	PaidPortion     decimal.Decimal `json:"paid_portion"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}

// SettlementOutcome is the result of one settlement call.
type SettlementOutcome struct {
	// Success is false only when there was no active debt to settle; that is
	// an outcome, not an error.
	Success            bool            `json:"success"`
	PaidAmount         decimal.Decimal `json:"paid_amount"`
	SettledCount       int             `json:"settled_count"`
	Partial            *PartialPayment `json:"partial_payment,omitempty"`
	RemainingTotalDebt decimal.Decimal `json:"remaining_total_debt"`
}

// Settle pays payerID's active debts to creditorID oldest-first. A nil amount
// means pay everything; an amount above the total is clamped, never rejected
// and never producing a credit. At most one debt ends partially paid, reduced
// in place. All mutations commit as a single transaction.
func (e *Engine) Settle(ctx context.Context, payerID, creditorID string, amount *decimal.Decimal) (*SettlementOutcome, error) {
	if payerID == creditorID {
		return nil, fmt.Errorf("%w: payer and creditor must differ", ErrInvariant)
	}
	if amount != nil && amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: payment amount must be positive", ErrInvariant)
	}

	outcome := &SettlementOutcome{}
	err := e.store.RunInTx(ctx, func(tx storage.Tx) error {
		debts, err := tx.ListActiveDebts(ctx, payerID, creditorID)
		if err != nil {
			return err
		}
		if len(debts) == 0 {
			*outcome = SettlementOutcome{Success: false}
			return nil
		}

		total := decimal.Zero
		for _, d := range debts {
			total = total.Add(d.Amount)
		}

		pay := total
		if amount != nil && amount.LessThan(total) {
			pay = *amount
		}

		now := time.Now().Unix()
		remaining := pay
		settled := 0
		var partial *PartialPayment

		for _, debt := range debts {
			if remaining.Sign() <= 0 {
				break
			}
			if remaining.GreaterThanOrEqual(debt.Amount) {
				// Fully settle: the row flips to settled the instant its
				// amount is covered, so a zero-amount active row never exists.
				if err := tx.SettleDebt(ctx, debt.ID, now); err != nil {
					return err
				}
				remaining = remaining.Sub(debt.Amount)
				settled++
			} else {
				left := debt.Amount.Sub(remaining)
				if err := tx.UpdateDebtAmount(ctx, debt.ID, left); err != nil {
					return err
				}
				partial = &PartialPayment{DebtID: debt.ID, PaidPortion: remaining, RemainingAmount: left}
				remaining = decimal.Zero
			}
		}

		*outcome = SettlementOutcome{
			Success:            true,
			PaidAmount:         pay,
			SettledCount:       settled,
			Partial:            partial,
			RemainingTotalDebt: total.Sub(pay),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.Success {
		metrics.SettlementsTotal.Inc()
		e.logger.Info("payment settled",
			"payer", payerID,
			"creditor", creditorID,
			"paid", outcome.PaidAmount.String(),
			"settled_count", outcome.SettledCount,
			"remaining", outcome.RemainingTotalDebt.String(),
		)
	} else {
		e.logger.Info("payment with no active debt", "payer", payerID, "creditor", creditorID)
	}
	return outcome, nil
}

// ManualSettlement is the result of an explicit settle request.
type ManualSettlement struct {
	SettledAmount  decimal.Decimal `json:"settled_amount"`
	SettledDebtIDs []string        `json:"settled_debt_ids"`
	RemainingDebt  decimal.Decimal `json:"remaining_debt"`
}

// SettleManual settles debts oldest-first like Settle, but with the explicit
// request semantics: overpayment is rejected with ErrAmountExceedsDebt, and a
// partial payment is recorded by splitting the debt — a new settled row for
// the paid portion carrying forward the original CreatedAt, while the
// original active row is reduced in place.
func (e *Engine) SettleManual(ctx context.Context, payerID, creditorID string, amount decimal.Decimal) (*ManualSettlement, error) {
	if payerID == creditorID {
		return nil, fmt.Errorf("%w: payer and creditor must differ", ErrInvariant)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: settlement amount must be positive", ErrInvariant)
	}

	result := &ManualSettlement{SettledAmount: amount}
	err := e.store.RunInTx(ctx, func(tx storage.Tx) error {
		debts, err := tx.ListActiveDebts(ctx, payerID, creditorID)
		if err != nil {
			return err
		}
		if len(debts) == 0 {
			return ErrNoActiveDebt
		}

		total := decimal.Zero
		for _, d := range debts {
			total = total.Add(d.Amount)
		}
		if amount.GreaterThan(total) {
			return fmt.Errorf("%w: total is %s", ErrAmountExceedsDebt, total)
		}

		now := time.Now().Unix()
		remaining := amount
		for _, debt := range debts {
			if remaining.Sign() <= 0 {
				break
			}
			if debt.Amount.LessThanOrEqual(remaining) {
				if err := tx.SettleDebt(ctx, debt.ID, now); err != nil {
					return err
				}
				remaining = remaining.Sub(debt.Amount)
				result.SettledDebtIDs = append(result.SettledDebtIDs, debt.ID)
				continue
			}

			// Split: record the paid portion as its own settled row so the
			// history keeps both halves, dated to the original debt.
			paid := &models.Debt{
				DebtorID:   debt.DebtorID,
				CreditorID: debt.CreditorID,
				Amount:     remaining,
				Status:     models.DebtSettled,
				CreatedAt:  debt.CreatedAt,
				SettledAt:  now,
			}
			if err := tx.CreateDebt(ctx, paid); err != nil {
				return err
			}
			if err := tx.UpdateDebtAmount(ctx, debt.ID, debt.Amount.Sub(remaining)); err != nil {
				return err
			}
			result.SettledDebtIDs = append(result.SettledDebtIDs, paid.ID)
			remaining = decimal.Zero
		}

		result.RemainingDebt = total.Sub(amount)
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.SettlementsTotal.Inc()
	e.logger.Info("manual settlement",
		"payer", payerID,
		"creditor", creditorID,
		"amount", amount.String(),
		"remaining", result.RemainingDebt.String(),
	)
	return result, nil
}
