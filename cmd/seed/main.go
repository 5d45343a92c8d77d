// Command seed populates a fresh database with two demo users and a small
// conversation so the API has data to explore.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ckocyigit/duoledger/internal/auth"
	"github.com/ckocyigit/duoledger/internal/classifier"
	"github.com/ckocyigit/duoledger/internal/ledger"
	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage/sqlite"
	"github.com/ckocyigit/duoledger/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// scripted classifies the canned seed messages without calling out to an LLM.
func scripted(_ context.Context, text, _, _ string) models.Classification {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "can you buy"):
		return models.Classification{Kind: models.KindTask, Item: "milk", Confidence: 0.9}
	case strings.Contains(lower, "bought"):
		amount := decimal.NewFromInt(300)
		return models.Classification{Kind: models.KindExpense, Item: "milk", Amount: &amount, Confidence: 0.9}
	case strings.Contains(lower, "sent you"):
		amount := decimal.NewFromInt(100)
		return models.Classification{Kind: models.KindPayment, Amount: &amount, Confidence: 0.9}
	default:
		return models.Fallback()
	}
}

func main() {
	logging.Setup()

	dbPath := getEnv("DB_PATH", "./data/duoledger.db")
	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	authenticator := auth.NewPasswordAuthenticator(store)

	users := make(map[string]*models.User, 2)
	for _, u := range []struct{ username, email, password string }{
		{"alice", "alice@example.com", "alice12345"},
		{"bob", "bob@example.com", "bob12345"},
	} {
		user, err := authenticator.Register(ctx, u.username, u.email, u.password)
		if err != nil {
			if errors.Is(err, auth.ErrUserExists) {
				slog.Info("User already seeded, skipping", "username", u.username)
				if user, err = store.GetUserByUsername(ctx, u.username); err != nil {
					slog.Error("Failed to load existing user", "error", err)
					os.Exit(1)
				}
			} else {
				slog.Error("Failed to register user", "error", err, "username", u.username)
				os.Exit(1)
			}
		}
		users[u.username] = user
		slog.Info("Seeded user", "username", u.username, "id", user.ID)
	}

	engine := ledger.New(store, classifier.Func(scripted), nil, slog.Default())

	alice, bob := users["alice"].ID, users["bob"].ID
	conversation := []struct {
		sender, receiver string
		content          string
	}{
		{alice, bob, "Can you buy milk on your way home?"},
		{bob, alice, "Sure, will do"},
		{bob, alice, "Bought the milk, 300 total"},
		{alice, bob, "Sent you 100 for now"},
	}
	for _, m := range conversation {
		result, err := engine.Intake(ctx, m.sender, m.receiver, m.content)
		if err != nil {
			slog.Error("Failed to seed message", "error", err, "content", m.content)
			os.Exit(1)
		}
		slog.Info("Seeded message", "kind", result.Classification.Kind, "content", m.content)
	}

	slog.Info("Seed complete", "database", dbPath,
		"logins", "alice@example.com/alice12345, bob@example.com/bob12345")
}
