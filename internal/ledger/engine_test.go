package ledger

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
	"github.com/ckocyigit/duoledger/internal/storage/sqlite"
)

// script classifies by exact message content, falling back to normal for
// anything it does not know. Keeps the engine tests independent of any model.
type script map[string]models.Classification

func (s script) Classify(_ context.Context, text, _, _ string) models.Classification {
	if c, ok := s[text]; ok {
		return c
	}
	return models.Fallback()
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func amt(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d := dec(t, s)
	return &d
}

func newTestEngine(t *testing.T, s script) (*Engine, storage.Store, *models.User, *models.User) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "duoledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(tempDir) })

	store, err := sqlite.New(filepath.Join(tempDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	alice := models.NewUser("alice", "alice@example.com", "x")
	bob := models.NewUser("bob", "bob@example.com", "x")
	for _, u := range []*models.User{alice, bob} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
	}

	return New(store, s, nil, nil), store, alice, bob
}

// seedExpense runs one expense message through the engine and returns the
// debt it produced.
func seedExpense(t *testing.T, e *Engine, senderID, receiverID, content string) *models.Debt {
	t.Helper()
	result, err := e.Intake(context.Background(), senderID, receiverID, content)
	if err != nil {
		t.Fatalf("Intake(%q) failed: %v", content, err)
	}
	if result.Debt == nil {
		t.Fatalf("Intake(%q) produced no debt", content)
	}
	return result.Debt
}

func TestIntakeTask(t *testing.T) {
	engine, store, alice, bob := newTestEngine(t, script{
		"can you buy milk": {Kind: models.KindTask, Item: "milk", Confidence: 0.9},
	})
	ctx := context.Background()

	result, err := engine.Intake(ctx, alice.ID, bob.ID, "can you buy milk")
	if err != nil {
		t.Fatalf("Intake failed: %v", err)
	}

	task := result.Task
	if task == nil {
		t.Fatal("Expected a task to be created")
	}
	if task.Status != models.TaskPending {
		t.Errorf("Expected status pending, got %s", task.Status)
	}
	if task.CreatedBy != alice.ID || task.AssignedTo != bob.ID {
		t.Errorf("Expected task created by sender and assigned to receiver, got %s/%s", task.CreatedBy, task.AssignedTo)
	}
	if task.ItemName != "milk" {
		t.Errorf("Expected item milk, got %q", task.ItemName)
	}
	if task.RelatedMessageID != result.Message.ID {
		t.Error("Expected task to reference the triggering message")
	}

	// The classification must be persisted with the message.
	msg, err := store.GetMessage(ctx, result.Message.ID)
	if err != nil {
		t.Fatalf("GetMessage failed: %v", err)
	}
	if msg.Classification == nil || msg.Classification.Kind != models.KindTask {
		t.Errorf("Expected persisted task classification, got %+v", msg.Classification)
	}
}

func TestIntakeExpense(t *testing.T) {
	t.Run("completes the matching open task and splits the debt", func(t *testing.T) {
		engine, _, alice, bob := newTestEngine(t, script{
			"can you buy milk": {Kind: models.KindTask, Item: "milk", Confidence: 0.9},
			"bought Milk 300":  {Kind: models.KindExpense, Item: "Milk", Amount: amt(t, "300"), Confidence: 0.95},
		})
		ctx := context.Background()

		first, err := engine.Intake(ctx, alice.ID, bob.ID, "can you buy milk")
		if err != nil {
			t.Fatalf("Intake task failed: %v", err)
		}

		second, err := engine.Intake(ctx, bob.ID, alice.ID, "bought Milk 300")
		if err != nil {
			t.Fatalf("Intake expense failed: %v", err)
		}

		// Matching is case-insensitive, so the payer's expense closes the
		// task the other user created for them.
		if second.Task == nil || second.Task.ID != first.Task.ID {
			t.Fatalf("Expected the existing task to be completed, got %+v", second.Task)
		}
		if second.Task.Status != models.TaskCompleted {
			t.Errorf("Expected status completed, got %s", second.Task.Status)
		}
		if second.Task.CompletedAt == 0 {
			t.Error("Expected CompletedAt to be set")
		}

		if second.Expense == nil {
			t.Fatal("Expected an expense")
		}
		if second.Expense.PaidBy != bob.ID || !second.Expense.Amount.Equal(dec(t, "300")) {
			t.Errorf("Expected bob paid 300, got %s by %s", second.Expense.Amount, second.Expense.PaidBy)
		}
		if second.Expense.TaskID != first.Task.ID {
			t.Error("Expected expense to be linked to the completed task")
		}

		debt := second.Debt
		if debt == nil {
			t.Fatal("Expected a debt")
		}
		if debt.DebtorID != alice.ID || debt.CreditorID != bob.ID {
			t.Errorf("Expected alice owes bob, got %s owes %s", debt.DebtorID, debt.CreditorID)
		}
		if !debt.Amount.Equal(dec(t, "150")) {
			t.Errorf("Expected split of 150, got %s", debt.Amount)
		}

		balance, err := engine.NetBalance(ctx, alice.ID, bob.ID)
		if err != nil {
			t.Fatalf("NetBalance failed: %v", err)
		}
		if !balance.AOwes.Equal(dec(t, "150")) {
			t.Errorf("Expected alice to owe 150, got %s", balance.AOwes)
		}
	})

	t.Run("without an open task creates a completed one", func(t *testing.T) {
		engine, _, alice, bob := newTestEngine(t, script{
			"bought soap 45.50": {Kind: models.KindExpense, Item: "soap", Amount: amt(t, "45.50"), Confidence: 0.95},
		})

		result, err := engine.Intake(context.Background(), alice.ID, bob.ID, "bought soap 45.50")
		if err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if result.Task == nil || result.Task.Status != models.TaskCompleted {
			t.Fatalf("Expected an auto-completed task, got %+v", result.Task)
		}
		if result.Task.CompletedAt == 0 {
			t.Error("Expected CompletedAt to be set")
		}
		if !result.Debt.Amount.Equal(dec(t, "22.75")) {
			t.Errorf("Expected split of 22.75, got %s", result.Debt.Amount)
		}
	})

	t.Run("odd amount rounds the split half-up", func(t *testing.T) {
		engine, _, alice, bob := newTestEngine(t, script{
			"bought gum 0.05": {Kind: models.KindExpense, Item: "gum", Amount: amt(t, "0.05"), Confidence: 0.95},
		})

		result, err := engine.Intake(context.Background(), alice.ID, bob.ID, "bought gum 0.05")
		if err != nil {
			t.Fatalf("Intake failed: %v", err)
		}
		if !result.Debt.Amount.Equal(dec(t, "0.03")) {
			t.Errorf("Expected split of 0.03, got %s", result.Debt.Amount)
		}
	})
}

func TestIntakePayment(t *testing.T) {
	expenses := script{
		"bought mop 200":   {Kind: models.KindExpense, Item: "mop", Amount: amt(t, "200"), Confidence: 0.95},
		"bought broom 160": {Kind: models.KindExpense, Item: "broom", Amount: amt(t, "160"), Confidence: 0.95},
		"bought soap 100":  {Kind: models.KindExpense, Item: "soap", Amount: amt(t, "100"), Confidence: 0.95},
		"sent you 150":     {Kind: models.KindPayment, Amount: amt(t, "150"), Confidence: 0.9},
		"paid you back":    {Kind: models.KindPayment, Confidence: 0.9},
		"sent you 9999":    {Kind: models.KindPayment, Amount: amt(t, "9999"), Confidence: 0.9},
	}

	// seedDebts posts three expenses by alice so bob owes [100, 80, 50],
	// oldest first.
	seedDebts := func(t *testing.T, e *Engine, alice, bob *models.User) []*models.Debt {
		t.Helper()
		return []*models.Debt{
			seedExpense(t, e, alice.ID, bob.ID, "bought mop 200"),
			seedExpense(t, e, alice.ID, bob.ID, "bought broom 160"),
			seedExpense(t, e, alice.ID, bob.ID, "bought soap 100"),
		}
	}

	t.Run("settles oldest first with one in-place partial", func(t *testing.T) {
		engine, store, alice, bob := newTestEngine(t, expenses)
		ctx := context.Background()
		debts := seedDebts(t, engine, alice, bob)

		result, err := engine.Intake(ctx, bob.ID, alice.ID, "sent you 150")
		if err != nil {
			t.Fatalf("Intake payment failed: %v", err)
		}

		outcome := result.Payment
		if outcome == nil || !outcome.Success {
			t.Fatalf("Expected successful settlement, got %+v", outcome)
		}
		if !outcome.PaidAmount.Equal(dec(t, "150")) {
			t.Errorf("Expected paid amount 150, got %s", outcome.PaidAmount)
		}
		if outcome.SettledCount != 1 {
			t.Errorf("Expected 1 fully settled debt, got %d", outcome.SettledCount)
		}
		if outcome.Partial == nil {
			t.Fatal("Expected a partial payment")
		}
		if outcome.Partial.DebtID != debts[1].ID {
			t.Error("Expected the second-oldest debt to be the partial one")
		}
		if !outcome.Partial.PaidPortion.Equal(dec(t, "50")) || !outcome.Partial.RemainingAmount.Equal(dec(t, "30")) {
			t.Errorf("Expected partial 50 paid / 30 left, got %s / %s",
				outcome.Partial.PaidPortion, outcome.Partial.RemainingAmount)
		}
		if !outcome.RemainingTotalDebt.Equal(dec(t, "80")) {
			t.Errorf("Expected 80 remaining, got %s", outcome.RemainingTotalDebt)
		}

		remaining, err := store.SumActiveDebts(ctx, bob.ID, alice.ID)
		if err != nil {
			t.Fatalf("SumActiveDebts failed: %v", err)
		}
		if !remaining.Equal(dec(t, "80")) {
			t.Errorf("Expected 80 still owed, got %s", remaining)
		}
	})

	t.Run("without an amount pays everything", func(t *testing.T) {
		engine, store, alice, bob := newTestEngine(t, expenses)
		ctx := context.Background()
		seedDebts(t, engine, alice, bob)

		result, err := engine.Intake(ctx, bob.ID, alice.ID, "paid you back")
		if err != nil {
			t.Fatalf("Intake payment failed: %v", err)
		}

		outcome := result.Payment
		if !outcome.PaidAmount.Equal(dec(t, "230")) {
			t.Errorf("Expected paid amount 230, got %s", outcome.PaidAmount)
		}
		if outcome.SettledCount != 3 || outcome.Partial != nil {
			t.Errorf("Expected 3 settled and no partial, got %d settled, partial %+v",
				outcome.SettledCount, outcome.Partial)
		}

		remaining, err := store.SumActiveDebts(ctx, bob.ID, alice.ID)
		if err != nil {
			t.Fatalf("SumActiveDebts failed: %v", err)
		}
		if !remaining.IsZero() {
			t.Errorf("Expected no remaining debt, got %s", remaining)
		}
	})

	t.Run("overpayment is clamped, never a credit", func(t *testing.T) {
		engine, _, alice, bob := newTestEngine(t, expenses)
		seedDebts(t, engine, alice, bob)

		result, err := engine.Intake(context.Background(), bob.ID, alice.ID, "sent you 9999")
		if err != nil {
			t.Fatalf("Intake payment failed: %v", err)
		}
		if !result.Payment.PaidAmount.Equal(dec(t, "230")) {
			t.Errorf("Expected clamp to 230, got %s", result.Payment.PaidAmount)
		}
		if !result.Payment.RemainingTotalDebt.IsZero() {
			t.Errorf("Expected nothing remaining, got %s", result.Payment.RemainingTotalDebt)
		}
	})

	t.Run("with no active debt is an unsuccessful outcome, not an error", func(t *testing.T) {
		engine, _, alice, bob := newTestEngine(t, expenses)

		result, err := engine.Intake(context.Background(), bob.ID, alice.ID, "sent you 150")
		if err != nil {
			t.Fatalf("Intake payment failed: %v", err)
		}
		if result.Payment == nil || result.Payment.Success {
			t.Errorf("Expected unsuccessful outcome, got %+v", result.Payment)
		}
	})
}

func TestIntakeFallback(t *testing.T) {
	// Nothing in the script, so every message degrades to normal chat.
	engine, store, alice, bob := newTestEngine(t, script{})
	ctx := context.Background()

	result, err := engine.Intake(ctx, alice.ID, bob.ID, "asdf qwerty")
	if err != nil {
		t.Fatalf("Intake failed: %v", err)
	}
	if result.Classification.Kind != models.KindNormal {
		t.Errorf("Expected normal fallback, got %s", result.Classification.Kind)
	}
	if result.Task != nil || result.Expense != nil || result.Debt != nil || result.Payment != nil {
		t.Error("Expected no ledger mutation for a normal message")
	}

	tasks, err := store.ListTasks(ctx, storage.TaskFilter{})
	if err != nil {
		t.Fatalf("ListTasks failed: %v", err)
	}
	if len(tasks) != 0 {
		t.Errorf("Expected no tasks, got %d", len(tasks))
	}
}

func TestIntakeRejectsSelfPair(t *testing.T) {
	engine, _, alice, _ := newTestEngine(t, script{})

	_, err := engine.Intake(context.Background(), alice.ID, alice.ID, "hello me")
	if !errors.Is(err, ErrInvariant) {
		t.Fatalf("Expected ErrInvariant, got %v", err)
	}
}

func TestSettleManual(t *testing.T) {
	expenses := script{
		"bought mop 200":  {Kind: models.KindExpense, Item: "mop", Amount: amt(t, "200"), Confidence: 0.95},
		"bought soap 100": {Kind: models.KindExpense, Item: "soap", Amount: amt(t, "100"), Confidence: 0.95},
	}

	t.Run("full settle marks the debt settled", func(t *testing.T) {
		engine, store, alice, bob := newTestEngine(t, expenses)
		ctx := context.Background()
		debt := seedExpense(t, engine, alice.ID, bob.ID, "bought mop 200")

		result, err := engine.SettleManual(ctx, bob.ID, alice.ID, dec(t, "100"))
		if err != nil {
			t.Fatalf("SettleManual failed: %v", err)
		}
		if len(result.SettledDebtIDs) != 1 || result.SettledDebtIDs[0] != debt.ID {
			t.Errorf("Expected the seeded debt settled, got %v", result.SettledDebtIDs)
		}
		if !result.RemainingDebt.IsZero() {
			t.Errorf("Expected no remaining debt, got %s", result.RemainingDebt)
		}

		remaining, err := store.SumActiveDebts(ctx, bob.ID, alice.ID)
		if err != nil {
			t.Fatalf("SumActiveDebts failed: %v", err)
		}
		if !remaining.IsZero() {
			t.Errorf("Expected 0 active debt, got %s", remaining)
		}
	})

	t.Run("partial payment splits the debt", func(t *testing.T) {
		engine, store, alice, bob := newTestEngine(t, expenses)
		ctx := context.Background()
		debt := seedExpense(t, engine, alice.ID, bob.ID, "bought mop 200")

		result, err := engine.SettleManual(ctx, bob.ID, alice.ID, dec(t, "40"))
		if err != nil {
			t.Fatalf("SettleManual failed: %v", err)
		}
		if len(result.SettledDebtIDs) != 1 {
			t.Fatalf("Expected one settled split row, got %v", result.SettledDebtIDs)
		}
		if !result.RemainingDebt.Equal(dec(t, "60")) {
			t.Errorf("Expected 60 remaining, got %s", result.RemainingDebt)
		}

		// The original row stays active, reduced in place.
		active, err := store.ListDebts(ctx, storage.DebtFilter{ParticipantID: bob.ID, Status: models.DebtActive})
		if err != nil {
			t.Fatalf("ListDebts failed: %v", err)
		}
		if len(active) != 1 || active[0].ID != debt.ID || !active[0].Amount.Equal(dec(t, "60")) {
			t.Fatalf("Expected original debt reduced to 60, got %+v", active)
		}

		// The paid portion is its own settled row carrying the original date.
		settled, err := store.ListDebts(ctx, storage.DebtFilter{ParticipantID: bob.ID, Status: models.DebtSettled})
		if err != nil {
			t.Fatalf("ListDebts failed: %v", err)
		}
		if len(settled) != 1 || !settled[0].Amount.Equal(dec(t, "40")) {
			t.Fatalf("Expected one settled row of 40, got %+v", settled)
		}
		if settled[0].CreatedAt != debt.CreatedAt {
			t.Error("Expected the split row to carry the original CreatedAt")
		}
		if settled[0].SettledAt == 0 {
			t.Error("Expected SettledAt on the split row")
		}
	})

	t.Run("overpayment is rejected", func(t *testing.T) {
		engine, _, alice, bob := newTestEngine(t, expenses)
		seedExpense(t, engine, alice.ID, bob.ID, "bought mop 200")

		_, err := engine.SettleManual(context.Background(), bob.ID, alice.ID, dec(t, "150"))
		if !errors.Is(err, ErrAmountExceedsDebt) {
			t.Fatalf("Expected ErrAmountExceedsDebt, got %v", err)
		}
	})

	t.Run("no active debt is an error", func(t *testing.T) {
		engine, _, alice, bob := newTestEngine(t, expenses)

		_, err := engine.SettleManual(context.Background(), bob.ID, alice.ID, dec(t, "10"))
		if !errors.Is(err, ErrNoActiveDebt) {
			t.Fatalf("Expected ErrNoActiveDebt, got %v", err)
		}
	})
}

func TestBalances(t *testing.T) {
	engine, _, alice, bob := newTestEngine(t, script{
		"bought mop 100": {Kind: models.KindExpense, Item: "mop", Amount: amt(t, "100"), Confidence: 0.95},
		"bought soap 60": {Kind: models.KindExpense, Item: "soap", Amount: amt(t, "60"), Confidence: 0.95},
	})
	ctx := context.Background()

	// alice pays 100 (bob owes 50), bob pays 60 (alice owes 30).
	seedExpense(t, engine, alice.ID, bob.ID, "bought mop 100")
	seedExpense(t, engine, bob.ID, alice.ID, "bought soap 60")

	ab, err := engine.NetBalance(ctx, alice.ID, bob.ID)
	if err != nil {
		t.Fatalf("NetBalance failed: %v", err)
	}
	if !ab.AOwes.Equal(dec(t, "30")) || !ab.BOwes.Equal(dec(t, "50")) {
		t.Errorf("Expected alice owes 30 / bob owes 50, got %s / %s", ab.AOwes, ab.BOwes)
	}
	if !ab.Net.Equal(dec(t, "20")) {
		t.Errorf("Expected net +20 for alice, got %s", ab.Net)
	}

	ba, err := engine.NetBalance(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("NetBalance failed: %v", err)
	}
	if !ba.Net.Equal(ab.Net.Neg()) {
		t.Errorf("Expected antisymmetric nets, got %s and %s", ab.Net, ba.Net)
	}

	total, err := engine.TotalBalance(ctx, bob.ID)
	if err != nil {
		t.Fatalf("TotalBalance failed: %v", err)
	}
	if !total.AOwes.Equal(dec(t, "50")) || !total.BOwes.Equal(dec(t, "30")) {
		t.Errorf("Expected bob owes 50 / is owed 30, got %s / %s", total.AOwes, total.BOwes)
	}
}
