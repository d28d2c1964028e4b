package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/imedwei/ovh-privatedb-backup/internal/artifact"
	"github.com/imedwei/ovh-privatedb-backup/internal/backup"
	"github.com/imedwei/ovh-privatedb-backup/internal/config"
	"github.com/imedwei/ovh-privatedb-backup/internal/health"
	"github.com/imedwei/ovh-privatedb-backup/internal/privatedb"
	"github.com/imedwei/ovh-privatedb-backup/internal/server"
	"github.com/imedwei/ovh-privatedb-backup/internal/storage"
)

func main() {
	// Load configuration before the logger so LOG_LEVEL applies from the start
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("OVH private database backup starting")

	// Log configuration (without sensitive data)
	logger.Info("Configuration loaded",
		"service", cfg.ServiceName,
		"database", cfg.DatabaseName,
		"backup_path", cfg.BackupPath,
		"endpoint", cfg.OVHEndpoint,
		"max_retries", cfg.MaxRetries,
		"poll_interval", cfg.PollInterval(),
		"storage_provider", cfg.StorageProvider,
		"respawn_protection_hours", cfg.RespawnProtectionHours,
		"force_backup", cfg.ForceBackup,
		"retention_days", cfg.RetentionDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api, err := privatedb.NewClient(privatedb.Config{
		Endpoint:          cfg.OVHEndpoint,
		ApplicationKey:    cfg.OVHApplicationKey,
		ApplicationSecret: cfg.OVHApplicationSecret,
		ConsumerKey:       cfg.OVHConsumerKey,
		ServiceName:       cfg.ServiceName,
		DatabaseName:      cfg.DatabaseName,
		SendEmail:         cfg.SendEmail,
	})
	if err != nil {
		logger.Error("Failed to create OVH client", "error", err)
		os.Exit(1)
	}

	store, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Error("Failed to create storage provider", "error", err)
		os.Exit(1)
	}
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn("Failed to close storage provider", "error", err)
			}
		}()
	}

	orchestrator := backup.NewOrchestrator(cfg, api, artifact.NewHTTPProbe(nil), store, logger)

	// Start metrics server if enabled
	var wg sync.WaitGroup
	serverCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()

	if cfg.MetricsPort > 0 {
		checker := health.NewChecker()
		checker.RegisterCheck("orchestrator", orchestrator.HealthCheck)
		if cfg.MirrorEnabled() {
			checker.RegisterCheck("storage", func(ctx context.Context) health.Check {
				check := health.Check{
					Status:    health.StatusHealthy,
					Timestamp: time.Now(),
					Details:   map[string]interface{}{"provider": cfg.StorageProvider},
				}
				last, err := store.GetLastBackupTime(ctx)
				if err != nil {
					check.Status = health.StatusUnhealthy
					check.Details["error"] = err.Error()
					return check
				}
				if !last.IsZero() {
					check.Details["last_backup"] = last
				}
				return check
			})
		}

		serverConfig := server.DefaultConfig()
		serverConfig.Port = cfg.MetricsPort
		httpServer := server.New(serverConfig, logger, checker)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := httpServer.Run(serverCtx); err != nil {
				logger.Error("HTTP server failed", "error", err)
			}
		}()
	}

	runErr := orchestrator.Run(ctx)

	stopServer()
	wg.Wait()

	if runErr != nil {
		logger.Error("Backup failed", "error", runErr, "phase", orchestrator.Phase())
		stop()
		os.Exit(1)
	}

	logger.Info("Backup completed successfully")
}
