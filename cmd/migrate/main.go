// Command migrate applies or rolls back the embedded schema migrations.
//
//	migrate up | down | status | version
package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/pkordes/tagconsole/internal/config"
	"github.com/pkordes/tagconsole/internal/logging"
	"github.com/pkordes/tagconsole/migrations"
)

func main() {
	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger, err := logging.NewLogger(logging.Config{Component: "migrate", Level: cfg.LogLevel})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required to run migrations")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("open database", zap.Error(err))
	}
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		logger.Fatal("create goose provider", zap.Error(err))
	}

	ctx := context.Background()
	switch cmd {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			logger.Fatal("migrate up", zap.Error(err))
		}
		for _, r := range results {
			logger.Info("applied", zap.Int64("version", r.Source.Version), zap.String("file", r.Source.Path))
		}
	case "down":
		r, err := provider.Down(ctx)
		if err != nil {
			logger.Fatal("migrate down", zap.Error(err))
		}
		logger.Info("rolled back", zap.Int64("version", r.Source.Version))
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			logger.Fatal("migrate status", zap.Error(err))
		}
		for _, s := range statuses {
			logger.Info("migration", zap.Int64("version", s.Source.Version), zap.String("state", string(s.State)))
		}
	case "version":
		v, err := provider.GetDBVersion(ctx)
		if err != nil {
			logger.Fatal("migrate version", zap.Error(err))
		}
		logger.Info("database version", zap.Int64("version", v))
	default:
		logger.Fatal("unknown command", zap.String("command", cmd))
	}
}
