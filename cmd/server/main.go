package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tallyup/tallyup/internal/auth"
	"github.com/tallyup/tallyup/internal/service"
	"github.com/tallyup/tallyup/internal/storage/sqlite"
	"github.com/tallyup/tallyup/pkg/logging"
)

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	logging.Setup()

	// Fail fast on the one secret with no sane default.
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		slog.Error("JWT_SECRET is not set")
		os.Exit(1)
	}

	tokenTTL, err := time.ParseDuration(getEnv("TOKEN_TTL", "24h"))
	if err != nil {
		slog.Error("Invalid TOKEN_TTL", "error", err)
		os.Exit(1)
	}

	dbPath := getEnv("DB_PATH", "./data/bills.db")
	store, err := sqlite.New(dbPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", dbPath)

	jwtManager := auth.NewJWTManager(jwtSecret, tokenTTL)
	authenticator := auth.NewPasswordAuthenticator(store)

	router := service.NewRouter(
		service.NewAuthService(authenticator, jwtManager),
		service.NewBillService(store),
		service.NewContactService(store),
		jwtManager,
	)

	// h2c lets HTTP/2 clients connect without TLS behind a terminating
	// proxy.
	handler := h2c.NewHandler(router, &http2.Server{})

	addr := fmt.Sprintf(":%s", getEnv("PORT", "8080"))
	slog.Info("Server starting", "address", addr)
	if err := http.ListenAndServe(addr, handler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
