// Package main is the entry point for the credential console API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/auth"
	"github.com/pkordes/tagconsole/internal/config"
	"github.com/pkordes/tagconsole/internal/handler"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/internal/middleware"
	"github.com/pkordes/tagconsole/internal/receipt"
	"github.com/pkordes/tagconsole/internal/repo"
	"github.com/pkordes/tagconsole/internal/service"
	"github.com/pkordes/tagconsole/internal/storage"
	"github.com/pkordes/tagconsole/migrations"
	"github.com/pkordes/tagconsole/spec"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// The logger is not configured yet.
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	logger, err := logging.NewLogger(logging.Config{Component: "api", Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx := context.Background()

	// --- Database ---------------------------------------------------------
	// The pool is optional: a console deployed against a remote gateway
	// only needs QUERY_ENDPOINT.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("failed to create database pool", zap.Error(err))
		}
		defer pool.Close()

		if err := pool.Ping(ctx); err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		logger.Info("database connection established")

		// The deployment owns the production schema; only a local
		// database is bootstrapped here.
		if cfg.MigrateOnStart {
			if err := migrate(ctx, pool); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
	}

	// --- Query invoker ----------------------------------------------------
	var invoker repo.Invoker
	if cfg.QueryEndpoint != "" {
		// No client timeout: each call is bounded by its request context.
		invoker = repo.NewHTTPInvoker(cfg.QueryEndpoint, nil)
		logger.Info("using remote query gateway", zap.String("endpoint", cfg.QueryEndpoint))
	} else {
		invoker = repo.RequireSession(repo.NewPoolInvoker(pool))
	}

	// --- Storage ----------------------------------------------------------
	uploader, err := newUploader(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to configure storage", zap.Error(err))
	}

	// --- Receipts ---------------------------------------------------------
	rendererOpts := receipt.Options{
		Place:        cfg.ReceiptPlace,
		Organization: cfg.ReceiptOrganization,
		Location:     cfg.Location(),
	}
	if cfg.ReceiptLogoPath != "" {
		logo, err := receipt.LoadLogo(cfg.ReceiptLogoPath)
		if err != nil {
			logger.Fatal("failed to load receipt logo", zap.Error(err))
		}
		rendererOpts.Logo = logo
	}

	// --- Services ---------------------------------------------------------
	searchRepo := repo.NewSearchRepo(invoker)
	suspensionRepo := repo.NewSuspensionRepo(invoker)
	memberRepo := repo.NewAssociationRepo(invoker)
	credentialRepo := repo.NewCredentialRepo(invoker)
	receiptRepo := repo.NewReceiptRepo(invoker)

	cache := service.NewSuspensionCache(suspensionRepo, logger)
	reconciler := service.NewReconciler(memberRepo, logger, cfg.Location())
	searchSvc := service.NewSearchService(searchRepo, suspensionRepo, reconciler, cache, logger)
	documentSvc := service.NewDocumentService(receipt.NewRenderer(rendererOpts), uploader, receiptRepo, logger)

	deps := handler.Deps{
		Search:      searchSvc,
		Suspensions: service.NewSuspensionService(suspensionRepo, cache, searchSvc, logger, cfg.Location()),
		Credentials: service.NewCredentialService(credentialRepo, memberRepo, documentSvc, logger),
		Payments:    service.NewPaymentService(memberRepo, logger),
		Documents:   documentSvc,
		Status:      service.NewStatusService(memberRepo, cache),
		Log:         logger,
	}
	// The gateways are served only by the instance that owns the database.
	if pool != nil {
		deps.Queries = repo.NewPoolInvoker(pool)
		deps.Uploads = uploader
	}

	// --- Auth -------------------------------------------------------------
	verify := auth.HMACTokenVerifier([]byte(cfg.JWTSecret))
	if cfg.AuthProvider == config.AuthDev {
		logger.Warn("AUTH_PROVIDER=dev: bearer token signatures are not checked")
		verify = auth.UnsignedTokenVerifier()
	}

	// --- Router -----------------------------------------------------------
	// RequestID → RealIP → RequestLogger → Recoverer → CORS → body limit →
	// timeout → auth. The request logger reads the ID, and CORS answers
	// preflights before any credential check.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewRequestLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))
	r.Use(chimiddleware.Timeout(cfg.RequestTimeout))
	r.Use(auth.JWT(verify, auth.DefaultCredentialExtractor))

	handler.NewServer(deps).Routes(r, auth.RequireUser)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/openapi.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(spec.OpenAPI)
	})
	if cfg.StorageBackend == config.StorageLocal {
		r.Handle("/files/*", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.StorageLocalDir))))
	}

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("storage", cfg.StorageBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
		return
	}
	logger.Info("server stopped")
}

// migrate brings the schema up to date through a database/sql handle
// borrowed from the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	for _, res := range results {
		zap.L().Info("migration applied", zap.Int64("version", res.Source.Version), zap.Duration("took", res.Duration))
	}
	return nil
}

func newUploader(ctx context.Context, cfg config.Config) (service.Uploader, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		return storage.NewS3Uploader(ctx, storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Endpoint:        cfg.S3Endpoint,
		})
	case config.StorageGateway:
		return storage.NewHTTPUploader(cfg.UploadEndpoint, &http.Client{Timeout: cfg.RequestTimeout}), nil
	default:
		return &storage.LocalUploader{Dir: cfg.StorageLocalDir, BaseURL: cfg.StoragePublicURL}, nil
	}
}
