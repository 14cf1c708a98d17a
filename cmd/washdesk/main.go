package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"washdesk/infrastructure/audit"
	"washdesk/infrastructure/cache"
	"washdesk/infrastructure/config"
	httpserver "washdesk/infrastructure/http"
	"washdesk/infrastructure/sqlite"
)

func main() {
	cfg, err := config.Load(config.Path("washdesk.yaml"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := cfg.Logger()
	slog.SetDefault(logger)

	db, err := sqlite.OpenDBWithOptions(cfg.Database.Path, sqlite.Options{
		ReadConns:   cfg.Database.ReadConns,
		BusyTimeout: cfg.BusyTimeout(),
	})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if cfg.Database.MigrationsDir != "" {
		err = sqlite.ApplyMigrations(context.Background(), db, cfg.Database.MigrationsDir)
	} else {
		err = sqlite.ApplyEmbeddedMigrations(context.Background(), db)
	}
	if err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	queryCache := cache.NewQueryCache(cfg.CacheTTL())
	prefsCache := cache.NewColumnPrefsCache()
	auditSvc := audit.NewService()

	httpserver.ShutdownTimeout = cfg.ShutdownTimeout()
	server := httpserver.NewServer(cfg.Server.Addr, db, queryCache, prefsCache, auditSvc, httpserver.DeskOptions{
		DefaultOperatorID: cfg.Desk.DefaultOperatorID,
		PageSize:          cfg.Desk.PageSize,
		AssetBaseURL:      cfg.Assets.BaseURL,
	})
	if err := server.Start(); err != nil {
		log.Fatalf("start server: %v", err)
	}
	logger.Info("washdesk listening", "addr", server.ListenAddr())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	if err := server.Stop(); err != nil {
		logger.Error("graceful shutdown", "err", err)
	}
}
