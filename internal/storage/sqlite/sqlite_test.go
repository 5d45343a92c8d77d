package sqlite

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

func TestSQLiteStore(t *testing.T) {
	// Create temp directory for test database
	tempDir, err := os.MkdirTemp("", "duoledger-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	dbPath := filepath.Join(tempDir, "test.db")
	store, err := New(dbPath)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	alice := &models.User{Username: "alice", Email: "alice@example.com", PasswordHash: "x"}
	bob := &models.User{Username: "bob", Email: "bob@example.com", PasswordHash: "x"}

	t.Run("CreateUser generates ID and timestamp", func(t *testing.T) {
		for _, u := range []*models.User{alice, bob} {
			if err := store.CreateUser(ctx, u); err != nil {
				t.Fatalf("CreateUser failed: %v", err)
			}
			if u.ID == "" {
				t.Error("Expected user ID to be generated")
			}
			if u.CreatedAt == 0 {
				t.Error("Expected CreatedAt to be set")
			}
		}
	})

	t.Run("GetUser by ID, username and email", func(t *testing.T) {
		byID, err := store.GetUserByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("GetUserByID failed: %v", err)
		}
		if byID.Username != "alice" {
			t.Errorf("Expected alice, got %s", byID.Username)
		}

		if _, err := store.GetUserByUsername(ctx, "bob"); err != nil {
			t.Errorf("GetUserByUsername failed: %v", err)
		}
		if _, err := store.GetUserByEmail(ctx, "bob@example.com"); err != nil {
			t.Errorf("GetUserByEmail failed: %v", err)
		}

		if _, err := store.GetUserByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("CreateUser enforces unique username and email", func(t *testing.T) {
		dup := &models.User{Username: "alice", Email: "other@example.com", PasswordHash: "x"}
		if err := store.CreateUser(ctx, dup); err == nil {
			t.Error("Expected duplicate username to fail")
		}
	})

	t.Run("AttachClassification writes once", func(t *testing.T) {
		msg := &models.Message{SenderID: alice.ID, ReceiverID: bob.ID, Content: "hello"}
		if err := store.CreateMessage(ctx, msg); err != nil {
			t.Fatalf("CreateMessage failed: %v", err)
		}

		first := &models.Classification{Kind: models.KindTask, Item: "milk", Confidence: 0.9}
		if err := store.AttachClassification(ctx, msg.ID, first); err != nil {
			t.Fatalf("AttachClassification failed: %v", err)
		}

		// A second attach must not overwrite the first.
		second := &models.Classification{Kind: models.KindNormal}
		if err := store.AttachClassification(ctx, msg.ID, second); err != nil {
			t.Fatalf("Second AttachClassification failed: %v", err)
		}

		got, err := store.GetMessage(ctx, msg.ID)
		if err != nil {
			t.Fatalf("GetMessage failed: %v", err)
		}
		if got.Classification == nil || got.Classification.Kind != models.KindTask {
			t.Errorf("Expected the first classification to stick, got %+v", got.Classification)
		}

		if err := store.AttachClassification(ctx, "nope", first); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound for missing message, got %v", err)
		}
	})

	t.Run("ListMessages filters the conversation newest first", func(t *testing.T) {
		carol := &models.User{Username: "carol", Email: "carol@example.com", PasswordHash: "x"}
		if err := store.CreateUser(ctx, carol); err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}

		for _, m := range []*models.Message{
			{SenderID: alice.ID, ReceiverID: bob.ID, Content: "first"},
			{SenderID: bob.ID, ReceiverID: alice.ID, Content: "second"},
			{SenderID: alice.ID, ReceiverID: carol.ID, Content: "aside"},
		} {
			if err := store.CreateMessage(ctx, m); err != nil {
				t.Fatalf("CreateMessage failed: %v", err)
			}
		}

		msgs, err := store.ListMessages(ctx, alice.ID, bob.ID, 10, 0)
		if err != nil {
			t.Fatalf("ListMessages failed: %v", err)
		}
		for _, m := range msgs {
			if m.Content == "aside" {
				t.Error("Expected the carol conversation to be excluded")
			}
		}
		if len(msgs) < 2 || msgs[0].Content != "second" {
			t.Errorf("Expected newest first, got %+v", msgs)
		}
	})

	t.Run("FindOpenTask matches substring case-insensitively, oldest first", func(t *testing.T) {
		older := &models.Task{CreatedBy: alice.ID, AssignedTo: bob.ID, ItemName: "Whole Milk", Status: models.TaskPending}
		newer := &models.Task{CreatedBy: alice.ID, AssignedTo: bob.ID, ItemName: "milk powder", Status: models.TaskInProgress}
		done := &models.Task{CreatedBy: alice.ID, AssignedTo: bob.ID, ItemName: "milkshake", Status: models.TaskCompleted}
		for _, task := range []*models.Task{older, newer, done} {
			if err := store.CreateTask(ctx, task); err != nil {
				t.Fatalf("CreateTask failed: %v", err)
			}
		}

		err := store.RunInTx(ctx, func(tx storage.Tx) error {
			found, err := tx.FindOpenTask(ctx, bob.ID, "MILK")
			if err != nil {
				return err
			}
			if found == nil {
				t.Fatal("Expected a match")
			}
			if found.ID != older.ID {
				t.Errorf("Expected the oldest open match, got %q", found.ItemName)
			}

			none, err := tx.FindOpenTask(ctx, bob.ID, "vacuum")
			if err != nil {
				return err
			}
			if none != nil {
				t.Errorf("Expected no match, got %+v", none)
			}

			// A stranger to the task gets no match either.
			stranger, err := tx.FindOpenTask(ctx, "nobody", "milk")
			if err != nil {
				return err
			}
			if stranger != nil {
				t.Errorf("Expected no match for a non-participant, got %+v", stranger)
			}
			return nil
		})
		if err != nil {
			t.Fatalf("RunInTx failed: %v", err)
		}
	})

	t.Run("UpdateTask and DeleteTask", func(t *testing.T) {
		task := &models.Task{CreatedBy: alice.ID, AssignedTo: bob.ID, ItemName: "bread", Status: models.TaskPending}
		if err := store.CreateTask(ctx, task); err != nil {
			t.Fatalf("CreateTask failed: %v", err)
		}

		task.Status = models.TaskCompleted
		task.CompletedAt = task.CreatedAt + 1
		if err := store.UpdateTask(ctx, task); err != nil {
			t.Fatalf("UpdateTask failed: %v", err)
		}
		got, err := store.GetTask(ctx, task.ID)
		if err != nil {
			t.Fatalf("GetTask failed: %v", err)
		}
		if got.Status != models.TaskCompleted || got.CompletedAt != task.CompletedAt {
			t.Errorf("Expected completed task, got %+v", got)
		}

		if err := store.DeleteTask(ctx, task.ID); err != nil {
			t.Fatalf("DeleteTask failed: %v", err)
		}
		if err := store.DeleteTask(ctx, task.ID); !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound on second delete, got %v", err)
		}
	})

	t.Run("Debt mutations only touch active rows", func(t *testing.T) {
		debt := &models.Debt{DebtorID: bob.ID, CreditorID: alice.ID, Amount: decimal.NewFromInt(100), Status: models.DebtActive}
		err := store.RunInTx(ctx, func(tx storage.Tx) error {
			return tx.CreateDebt(ctx, debt)
		})
		if err != nil {
			t.Fatalf("CreateDebt failed: %v", err)
		}

		err = store.RunInTx(ctx, func(tx storage.Tx) error {
			if err := tx.UpdateDebtAmount(ctx, debt.ID, decimal.NewFromInt(70)); err != nil {
				return err
			}
			return tx.SettleDebt(ctx, debt.ID, debt.CreatedAt+1)
		})
		if err != nil {
			t.Fatalf("RunInTx failed: %v", err)
		}

		// The row is settled now; further mutations must not find it.
		err = store.RunInTx(ctx, func(tx storage.Tx) error {
			return tx.UpdateDebtAmount(ctx, debt.ID, decimal.NewFromInt(10))
		})
		if !errors.Is(err, storage.ErrNotFound) {
			t.Errorf("Expected ErrNotFound updating a settled debt, got %v", err)
		}

		settled, err := store.ListDebts(ctx, storage.DebtFilter{ParticipantID: bob.ID, Status: models.DebtSettled})
		if err != nil {
			t.Fatalf("ListDebts failed: %v", err)
		}
		if len(settled) != 1 || !settled[0].Amount.Equal(decimal.NewFromInt(70)) {
			t.Errorf("Expected one settled debt of 70, got %+v", settled)
		}
	})

	t.Run("SumActiveDebts totals per pair and per user", func(t *testing.T) {
		err := store.RunInTx(ctx, func(tx storage.Tx) error {
			for _, d := range []*models.Debt{
				{DebtorID: bob.ID, CreditorID: alice.ID, Amount: decimal.RequireFromString("12.50"), Status: models.DebtActive},
				{DebtorID: bob.ID, CreditorID: alice.ID, Amount: decimal.RequireFromString("7.25"), Status: models.DebtActive},
				{DebtorID: alice.ID, CreditorID: bob.ID, Amount: decimal.RequireFromString("3.00"), Status: models.DebtActive},
			} {
				if err := tx.CreateDebt(ctx, d); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("RunInTx failed: %v", err)
		}

		pair, err := store.SumActiveDebts(ctx, bob.ID, alice.ID)
		if err != nil {
			t.Fatalf("SumActiveDebts failed: %v", err)
		}
		if !pair.Equal(decimal.RequireFromString("19.75")) {
			t.Errorf("Expected 19.75, got %s", pair)
		}

		owes, err := store.SumActiveDebtsByUser(ctx, alice.ID, false)
		if err != nil {
			t.Fatalf("SumActiveDebtsByUser failed: %v", err)
		}
		if !owes.Equal(decimal.RequireFromString("3.00")) {
			t.Errorf("Expected alice to owe 3.00, got %s", owes)
		}
	})

	t.Run("RunInTx rolls back on error", func(t *testing.T) {
		marker := &models.Debt{DebtorID: bob.ID, CreditorID: alice.ID, Amount: decimal.NewFromInt(999), Status: models.DebtActive}
		wantErr := errors.New("boom")
		err := store.RunInTx(ctx, func(tx storage.Tx) error {
			if err := tx.CreateDebt(ctx, marker); err != nil {
				return err
			}
			return wantErr
		})
		if !errors.Is(err, wantErr) {
			t.Fatalf("Expected the fn error to surface, got %v", err)
		}

		debts, err := store.ListDebts(ctx, storage.DebtFilter{ParticipantID: bob.ID})
		if err != nil {
			t.Fatalf("ListDebts failed: %v", err)
		}
		for _, d := range debts {
			if d.ID == marker.ID {
				t.Error("Expected the rolled-back debt to be absent")
			}
		}
	})
}
