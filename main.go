package main

import (
	"context"
	"database/sql"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/username/finflow/backend/src/config"
	"github.com/username/finflow/backend/src/database"
	"github.com/username/finflow/backend/src/docstore"
	"github.com/username/finflow/backend/src/handlers"
	"github.com/username/finflow/backend/src/logger"
	"github.com/username/finflow/backend/src/security"
	"github.com/username/finflow/backend/src/security/validation"
	"github.com/username/finflow/backend/src/services"
	"golang.org/x/time/rate"
)

func newDocumentStore(kind string, db *sql.DB) docstore.Store {
	switch kind {
	case "memory":
		logger.L.Warn("Using in-memory document store; portfolios are lost on restart.")
		return docstore.NewMemoryStore()
	case "sqlite", "":
		return docstore.NewSQLiteStore(db)
	default:
		logger.L.Error("Unknown STORE_KIND", "storeKind", kind)
		os.Exit(1)
		return nil
	}
}

func main() {
	cfg := config.LoadConfig()
	logger.InitLogger(cfg.LogLevel)
	logger.L.Info("FinFlow backend server starting...")

	if len(cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid. Must be at least 32 bytes.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", cfg.DatabasePath)
	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		logger.L.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	logger.L.Info("Database initialized successfully.")

	logger.L.Info("Initializing services and handlers...")
	store := newDocumentStore(cfg.StoreKind, db)
	authService := security.NewAuthService(cfg.JWTSecret, cfg.AccessTokenExpiry)
	validator := validation.NewValidator()

	quotes := services.NewYahooQuoteGateway(services.YahooConfig{
		BaseURL:       cfg.YahooBaseURL,
		SessionURL:    cfg.YahooSessionURL,
		RatePerSecond: cfg.QuoteRatePerSecond,
	})
	ledger := services.NewPurchaseLedger(store)
	transactionService := services.NewTransactionService(db)
	portfolioService := services.NewPortfolioService(ledger, quotes, transactionService, services.PortfolioConfig{
		QuoteTimeout:     cfg.QuoteTimeout,
		QuoteConcurrency: cfg.QuoteConcurrency,
	})
	userService := services.NewUserService(db, store, authService, services.NewEmailService(cfg))

	router := &handlers.Router{
		Auth:           authService,
		Users:          handlers.NewUserHandler(userService, validator),
		Portfolio:      handlers.NewPortfolioHandler(portfolioService, validator),
		Stocks:         handlers.NewStockHandler(quotes, services.NewLogoService(cfg.LogoBaseURL)),
		Transactions:   handlers.NewTransactionHandler(transactionService),
		AllowedOrigins: cfg.AllowedOrigins,
		Limiter:        rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst),
	}
	if cfg.GoogleEnabled() {
		router.OAuth = handlers.NewOAuthHandler(handlers.NewGoogleOAuthConfig(cfg), userService)
	} else {
		logger.L.Info("Google sign-in disabled (GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set).")
	}

	serverAddr := ":" + cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
		<-stop
		logger.L.Info("Shutdown signal received, draining connections...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			logger.L.Error("Graceful shutdown failed", "error", err)
		}
	}()

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	}
	logger.L.Info("Server stopped gracefully.")
}
