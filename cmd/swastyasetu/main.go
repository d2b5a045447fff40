package main

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/swastyasetu/internal/adapter/driven/gotrue"
	"github.com/ericfisherdev/swastyasetu/internal/adapter/driven/jwttoken"
	"github.com/ericfisherdev/swastyasetu/internal/adapter/driven/localauth"
	"github.com/ericfisherdev/swastyasetu/internal/adapter/driven/sqlconsole"
	sqliteadapter "github.com/ericfisherdev/swastyasetu/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/swastyasetu/internal/adapter/driving/http"
	webhandler "github.com/ericfisherdev/swastyasetu/internal/adapter/driving/web"
	"github.com/ericfisherdev/swastyasetu/internal/application"
	"github.com/ericfisherdev/swastyasetu/internal/config"
	"github.com/ericfisherdev/swastyasetu/internal/domain/port/driven"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"identity_provider", cfg.IdentityProvider,
		"identity_configured", cfg.HasIdentityProvider(),
		"database_configured", cfg.Database.Configured(),
		"execution_mode", cfg.ExecutionMode,
		"query_timeout", cfg.QueryTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open the app-local database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", db.Path())

	// 4. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 5. Session secret. A random secret invalidates sessions on restart.
	secret := cfg.SessionSecret
	if secret == nil {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return err
		}
		slog.Warn("SWASTYASETU_SESSION_SECRET not set, using a random per-process secret; sessions end on restart")
	}
	tokenKey := sha256.Sum256(secret)

	// 6. Wire adapters.
	sessionStore := sqliteadapter.NewSessionRepo(db, tokenKey[:])
	historyStore := sqliteadapter.NewHistoryRepo(db)
	tokenCodec := jwttoken.NewHS256(secret)

	var provider driven.IdentityProvider
	switch {
	case !cfg.HasIdentityProvider():
		slog.Warn("identity provider not configured, the auth page will report it")
	case cfg.IdentityProvider == config.ProviderLocal:
		provider = localauth.NewProvider(sqliteadapter.NewAccountRepo(db))
		slog.Info("using local identity provider")
	default:
		provider = gotrue.NewClient(cfg.SupabaseURL, cfg.SupabaseKey)
		slog.Info("using gotrue identity provider", "url", cfg.SupabaseURL)
	}

	var executor driven.QueryExecutor
	if cfg.Database.Configured() {
		executor = sqlconsole.NewExecutor(sqlconsole.DriverPostgres, cfg.Database.DSN(), cfg.ExecutionMode, slog.Default())
		slog.Info("query console database configured",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"name", cfg.Database.Name,
		)
	} else {
		slog.Warn("query console database not configured, the console page will report it")
	}

	// 7. Create services and start the session purge loop.
	authSvc := application.NewAuthService(provider, sessionStore, tokenCodec, cfg.SessionTTL)
	go authSvc.Start(ctx)

	consoleSvc := application.NewConsoleService(executor, historyStore, cfg.QueryTimeout, slog.Default())

	// 8. Register API and GUI routes.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(authSvc, consoleSvc, slog.Default()))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(authSvc, consoleSvc, cfg.ConsoleNotice, slog.Default()))

	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	// WriteTimeout leaves room for a query that runs to its full timeout.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.QueryTimeout + 15*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
			stop()
		}
	}()

	slog.Info("swastyasetu started", "listen_addr", cfg.ListenAddr)

	// 9. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}
