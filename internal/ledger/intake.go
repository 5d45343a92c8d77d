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

// Intake is the sole entry point for inbound chat messages. It persists the
// message, classifies it (failing open to a normal message), attaches the
// classification exactly once, and dispatches on the classification kind.
//
// Each call creates a fresh message; there is no dedup key. Notifications are
// emitted only after the ledger writes have committed.
func (e *Engine) Intake(ctx context.Context, senderID, receiverID, content string) (*IntakeResult, error) {
	if senderID == receiverID {
		return nil, fmt.Errorf("%w: sender and receiver must differ", ErrInvariant)
	}

	sender, err := e.store.GetUserByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}
	receiver, err := e.store.GetUserByID(ctx, receiverID)
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}

	msg := &models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := e.store.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	// The classifier never returns an error; failures arrive as the
	// normal/zero-confidence fallback and the message stays plain chat.
	c := e.classifier.Classify(ctx, content, sender.Username, receiver.Username)
	if err := e.store.AttachClassification(ctx, msg.ID, &c); err != nil {
		return nil, err
	}
	msg.Classification = &c
	metrics.IntakeTotal.WithLabelValues(string(c.Kind)).Inc()

	result := &IntakeResult{Message: msg, Classification: c}

	switch {
	case c.Kind == models.KindTask && c.Item != "":
		task, err := e.createTask(ctx, msg, c.Item)
		if err != nil {
			return nil, err
		}
		result.Task = task

	case c.Kind == models.KindExpense && c.Item != "" && c.Amount != nil:
		task, expense, debt, err := e.processExpense(ctx, msg, c.Item, *c.Amount)
		if err != nil {
			return nil, err
		}
		result.Task, result.Expense, result.Debt = task, expense, debt

	case c.Kind == models.KindPayment:
		outcome, err := e.Settle(ctx, senderID, receiverID, c.Amount)
		if err != nil {
			return nil, err
		}
		result.Payment = outcome

	default:
		// Normal chat, or a task/expense missing required fields: no ledger
		// mutation.
	}

	e.notifyIntake(sender, receiver, result)
	return result, nil
}

// createTask handles an explicit task classification: a fresh pending task,
// assigned to the receiver, no find-or-create.
func (e *Engine) createTask(ctx context.Context, msg *models.Message, item string) (*models.Task, error) {
	task := &models.Task{
		CreatedBy:        msg.SenderID,
		AssignedTo:       msg.ReceiverID,
		ItemName:         item,
		Status:           models.TaskPending,
		RelatedMessageID: msg.ID,
	}
	if err := e.store.CreateTask(ctx, task); err != nil {
		return nil, err
	}
	e.logger.Info("task created", "task_id", task.ID, "item", item, "assigned_to", msg.ReceiverID)
	return task, nil
}

// processExpense resolves the task an expense completes, posts the expense,
// and derives the equal-split debt. All three writes commit atomically: if
// any fails, none is visible.
func (e *Engine) processExpense(ctx context.Context, msg *models.Message, item string, amount decimal.Decimal) (*models.Task, *models.Expense, *models.Debt, error) {
	if amount.Sign() <= 0 {
		return nil, nil, nil, fmt.Errorf("%w: expense amount must be positive", ErrInvariant)
	}

	var (
		task    *models.Task
		expense *models.Expense
		debt    *models.Debt
	)
	err := e.store.RunInTx(ctx, func(tx storage.Tx) error {
		var err error
		task, err = e.resolveTask(ctx, tx, msg, item)
		if err != nil {
			return err
		}

		expense = &models.Expense{TaskID: task.ID, PaidBy: msg.SenderID, Amount: amount}
		if err := tx.CreateExpense(ctx, expense); err != nil {
			return err
		}

		debt = &models.Debt{
			DebtorID:   msg.ReceiverID,
			CreditorID: msg.SenderID,
			Amount:     splitAmount(amount),
			Status:     models.DebtActive,
		}
		return tx.CreateDebt(ctx, debt)
	})
	if err != nil {
		return nil, nil, nil, err
	}

	e.logger.Info("expense posted",
		"task_id", task.ID,
		"expense_id", expense.ID,
		"amount", amount.String(),
		"debt_id", debt.ID,
		"split", debt.Amount.String(),
	)
	return task, expense, debt, nil
}

// resolveTask finds the open task the expense completes, or creates an
// already-completed one. Matching is a case-insensitive substring search on
// the item name among pending/in-progress tasks where the payer is creator or
// assignee; the oldest match wins. Exactly one task row is created or mutated.
func (e *Engine) resolveTask(ctx context.Context, tx storage.Tx, msg *models.Message, item string) (*models.Task, error) {
	now := time.Now().Unix()

	task, err := tx.FindOpenTask(ctx, msg.SenderID, item)
	if err != nil {
		return nil, err
	}
	if task == nil {
		task = &models.Task{
			CreatedBy:        msg.SenderID,
			AssignedTo:       msg.ReceiverID,
			ItemName:         item,
			Status:           models.TaskCompleted,
			RelatedMessageID: msg.ID,
			CompletedAt:      now,
		}
		if err := tx.CreateTask(ctx, task); err != nil {
			return nil, err
		}
		return task, nil
	}

	task.Status = models.TaskCompleted
	if task.CompletedAt == 0 {
		task.CompletedAt = now
	}
	if err := tx.UpdateTask(ctx, task); err != nil {
		return nil, err
	}
	return task, nil
}

// notifyIntake fans the committed intake out to both participants, mirroring
// what a chat client needs: the message itself, then a task or debt
// notification when one was produced.
func (e *Engine) notifyIntake(sender, receiver *models.User, result *IntakeResult) {
	chat := Event{
		"type":              "message",
		"id":                result.Message.ID,
		"sender_id":         sender.ID,
		"sender_username":   sender.Username,
		"receiver_id":       receiver.ID,
		"receiver_username": receiver.Username,
		"content":           result.Message.Content,
		"created_at":        result.Message.CreatedAt,
		"classification":    result.Classification,
	}
	e.notify(sender.ID, chat)
	e.notify(receiver.ID, chat)

	switch {
	case result.Task != nil && result.Classification.Kind == models.KindTask:
		n := Event{
			"type":    "notification",
			"message": "New task created: " + result.Task.ItemName,
			"task_id": result.Task.ID,
		}
		e.notify(sender.ID, n)
		e.notify(receiver.ID, n)

	case result.Debt != nil:
		e.notify(result.Debt.DebtorID, Event{
			"type":    "notification",
			"message": fmt.Sprintf("New debt: %s to %s", result.Debt.Amount, sender.Username),
			"debt_id": result.Debt.ID,
			"amount":  result.Debt.Amount.String(),
		})
		e.notify(result.Debt.CreditorID, Event{
			"type":    "notification",
			"message": fmt.Sprintf("New credit: %s from %s", result.Debt.Amount, receiver.Username),
			"debt_id": result.Debt.ID,
			"amount":  result.Debt.Amount.String(),
		})

	case result.Payment != nil && result.Payment.Success:
		n := Event{
			"type":        "notification",
			"message":     fmt.Sprintf("Payment of %s processed", result.Payment.PaidAmount),
			"paid_amount": result.Payment.PaidAmount.String(),
		}
		e.notify(sender.ID, n)
		e.notify(receiver.ID, n)
	}
}
