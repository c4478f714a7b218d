package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"socialclaw/internal/config"
	"socialclaw/internal/db"
	httpapi "socialclaw/internal/http"
	"socialclaw/internal/legacy"
	"socialclaw/internal/logging"
	"socialclaw/internal/migrations"
	"socialclaw/internal/scheduler"
	"socialclaw/internal/services"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, cleanup, err := logging.New(logging.Options{
		Dir:           cfg.LogDir,
		Level:         cfg.LogLevel,
		RetentionDays: cfg.LogRetentionDays,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer cleanup()

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.RootKeyGenerated {
		logger.Warn("ROOT_ACCESS_KEY not set, generated one for this run", zap.String("root_key", cfg.RootAccessKey))
	}

	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	defer database.Close()
	if err := migrations.Apply(database); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	hub := services.NewLogHub()
	syslog := &services.SystemLog{DB: database, Hub: hub, Log: logger}

	var notifier services.Notifier = services.NopNotifier{}
	var discord *services.DiscordNotifier
	if cfg.DiscordWebhookURL != "" {
		discord = services.NewDiscordNotifier(cfg.DiscordWebhookURL, logger)
		notifier = discord
	}

	server, err := httpapi.NewServer(database, cfg, logger, syslog, notifier)
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	created, err := services.EnsureDefaultAdmin(ctx, database, server.Tokens, cfg.AdminEmail, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("default admin: %w", err)
	}
	if created {
		logger.Warn("seeded default admin account", zap.String("email", cfg.AdminEmail))
	}
	if err := server.Store.EnsureDirs(); err != nil {
		return fmt.Errorf("uploads: %w", err)
	}

	migrator := &legacy.Migrator{DB: database, Store: server.Store, Log: logger}
	if _, err := migrator.Run(ctx); err != nil {
		return fmt.Errorf("legacy attachments: %w", err)
	}

	jobs, err := scheduler.New(logger)
	if err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	interval := time.Duration(cfg.SyslogIntervalSeconds) * time.Second
	if err := jobs.Every("syslog-heartbeat", interval, func(ctx context.Context) error {
		return syslog.Heartbeat(ctx, cfg.MetricsDiskPath)
	}); err != nil {
		return err
	}
	if err := jobs.Every("session-prune", 5*time.Minute, func(ctx context.Context) error {
		if n := server.Sessions.Prune(); n > 0 {
			logger.Debug("pruned sessions", zap.Int("count", n))
		}
		return nil
	}); err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.Router(ctx),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})
	if discord != nil {
		g.Go(func() error {
			discord.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		return jobs.Run(gctx)
	})
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", httpServer.Addr))
		if _, err := syslog.AppendLog(gctx, services.LevelInfo, "node online on "+httpServer.Addr); err != nil {
			logger.Warn("append syslog", zap.Error(err))
		}
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
