package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"foodies-telegram/api"
	"foodies-telegram/bot"
	"foodies-telegram/config"
	"foodies-telegram/db"
	"foodies-telegram/logger"
	"foodies-telegram/services"
	"foodies-telegram/web"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Component: "foodies-telegram"})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Check for migrate subcommand
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		runMigrate(ctx, cfg, log)
		return
	}

	if cfg.Telegram.Token == "" {
		fatal(log, "TOKEN not set", nil)
	}

	if err := db.Init(ctx, cfg.DB); err != nil {
		fatal(log, "db init failed", err)
	}
	defer db.Close()

	// Optional auto-migration (useful in production and for fresh DBs).
	// Set AUTO_MIGRATE=1 (or "true") to enable.
	if v := strings.TrimSpace(os.Getenv("AUTO_MIGRATE")); v == "1" || strings.EqualFold(v, "true") {
		if err := applyMigrations(ctx, log); err != nil {
			fatal(log, "migrate failed", err)
		}
	}

	client := api.New(cfg.API.BaseURL, cfg.API.RegionsURL, cfg.API.Timeout)

	var catalog services.CatalogSource = client
	if cfg.Redis.URL != "" {
		rdb, err := services.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn("redis unavailable, catalog cache disabled", "error", err)
		} else {
			defer rdb.Close()
			catalog = services.NewCatalogCache(client, rdb, cfg.Redis.CatalogTTL, log)
		}
	}

	sessions := services.NewSessions(services.SessionDeps{
		Catalog:     catalog,
		Regions:     client,
		Cart:        client,
		Credentials: services.DBCredentials{},
		Log:         log,
	})

	customer, err := bot.New(cfg, client, sessions, log)
	if err != nil {
		fatal(log, "customer bot init failed", err)
	}
	botUsername := cfg.Telegram.BotUsername
	if botUsername == "" {
		botUsername = customer.Username()
	}

	editor := services.NewAdminOrderStatusEditor(client, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		customer.Start(gctx)
		return nil
	})

	// Start admin bot (ADMIN_TOKEN): only ADMIN_ID can use it
	if cfg.Telegram.AdminToken != "" {
		admin, err := bot.NewAdminBot(cfg, client, editor, log)
		if err != nil {
			fatal(log, "admin bot init failed", err)
		}
		g.Go(func() error {
			admin.Start(gctx)
			return nil
		})
		log.Info("admin bot started")
	}

	srv := web.NewServer(cfg.Return.Addr, botUsername, log)
	g.Go(func() error {
		return srv.Run(gctx)
	})

	log.Info("customer bot started", "username", botUsername)
	if err := g.Wait(); err != nil {
		log.Error("stopped with error", "error", err)
	}
	editor.Wait()
	sessions.Wait()
	log.Info("shutdown complete")
}

func runMigrate(ctx context.Context, cfg *config.Config, log *slog.Logger) {
	if err := db.Init(ctx, cfg.DB); err != nil {
		fatal(log, "db init failed", err)
	}
	defer db.Close()

	if err := applyMigrations(ctx, log); err != nil {
		db.Close()
		fatal(log, "migrate failed", err)
	}
}

func fatal(log *slog.Logger, msg string, err error) {
	if err != nil {
		log.Error(msg, "error", err)
	} else {
		log.Error(msg)
	}
	os.Exit(1)
}
