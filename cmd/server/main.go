package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/ckocyigit/duoledger/internal/auth"
	"github.com/ckocyigit/duoledger/internal/classifier"
	"github.com/ckocyigit/duoledger/internal/config"
	"github.com/ckocyigit/duoledger/internal/hub"
	"github.com/ckocyigit/duoledger/internal/ledger"
	"github.com/ckocyigit/duoledger/internal/middleware"
	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/service"
	"github.com/ckocyigit/duoledger/internal/storage/sqlite"
	"github.com/ckocyigit/duoledger/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	var c classifier.Classifier
	if cfg.GeminiAPIKey != "" {
		c = classifier.NewGemini(cfg.GeminiAPIKey, cfg.GeminiModel,
			classifier.WithTimeout(cfg.GeminiTimeout))
		slog.Info("Classifier enabled", "model", cfg.GeminiModel)
	} else {
		// Without an API key every message is plain chat.
		c = classifier.Func(func(context.Context, string, string, string) models.Classification {
			return models.Fallback()
		})
		slog.Warn("GEMINI_API_KEY not set, classification disabled")
	}

	events := hub.New()
	engine := ledger.New(store, c, events, slog.Default())

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	mux := service.Routes(jwtManager, service.Services{
		Auth:     service.NewAuthService(authenticator, jwtManager, store, slog.Default()),
		Users:    service.NewUserService(store),
		Messages: service.NewMessageService(store, engine),
		Tasks:    service.NewTaskService(store),
		Debts:    service.NewDebtService(store, engine),
		Events:   service.NewEventService(events),
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := middleware.Logging(middleware.Metrics(mux))

	// h2c allows HTTP/2 without TLS so clients can multiplex the event
	// stream alongside regular API calls.
	h2cHandler := h2c.NewHandler(handler, &http2.Server{})

	slog.Info("Server starting", "address", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
