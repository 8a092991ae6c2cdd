package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/providers"
	sqliteadapter "github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driven/sqlite"
	httphandler "github.com/pulsesparkai/SparkOrchestra-sub001/internal/adapter/driving/http"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/application"
	"github.com/pulsesparkai/SparkOrchestra-sub001/internal/config"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger()
	slog.SetDefault(logger)
	logger.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"probe_timeout", cfg.ProbeTimeout,
		"anthropic_model", cfg.AnthropicModel,
		"key_storage", cfg.HasSecretKey(),
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			logger.Error("error closing database", "error", closeErr)
		}
	}()

	// 4. Run migrations on writer connection.
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	logger.Info("migrations complete", "schema_version", version)

	// 5. Wire adapters.
	var secretKey []byte
	if cfg.HasSecretKey() {
		secretKey = cfg.SecretKey
	} else {
		logger.Warn("KEYGATE_SECRET_KEY not set, user keys cannot be stored")
	}
	keyStore := sqliteadapter.NewUserKeyRepo(db, secretKey)
	decisionStore := sqliteadapter.NewDecisionRepo(db)

	registry, err := providers.NewRegistry(cfg)
	if err != nil {
		return err
	}

	// 6. Create services.
	validator := application.NewCredentialValidationService(registry)
	keySvc := application.NewKeyService(validator, keyStore)
	attributionSvc := application.NewAttributionService(keyStore, decisionStore)

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(registry, validator, keySvc, attributionSvc)
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, apiHandler)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.ApplyMiddleware(mux, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Covers the probe timeout plus request handling.
		WriteTimeout: cfg.ProbeTimeout + 20*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// 8. Start HTTP server.
	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	// 10. Graceful shutdown; in-flight probes are bounded by the probe timeout.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ProbeTimeout+5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
