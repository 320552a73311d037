package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/garnizeh/realty/api"
	dbfs "github.com/garnizeh/realty/db"
	"github.com/garnizeh/realty/internal/ai"
	"github.com/garnizeh/realty/internal/config"
	"github.com/garnizeh/realty/internal/db"
	"github.com/garnizeh/realty/internal/geo"
	"github.com/garnizeh/realty/internal/jobs"
	"github.com/garnizeh/realty/internal/notify"
	"github.com/garnizeh/realty/internal/repository/sqlite"
	"github.com/garnizeh/realty/internal/validation"
	"github.com/garnizeh/realty/internal/wizard"
	"github.com/garnizeh/realty/pkg/ollama"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	var configPath = flag.String("config", "", "Path to config YAML file")
	var envFile = flag.String("env", ".env", "Optional dotenv file")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load env file", slog.String("path", *envFile), slog.Any("err", err))
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		slog.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", slog.Any("err", err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Env == "development" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	api.SetLogger(logger)
	ai.SetLogger(logger)
	geo.SetLogger(logger)
	jobs.SetLogger(logger)
	notify.SetLogger(logger)
	ollama.SetLogger(logger)

	logger.Info("starting realty server", slog.String("version", version), slog.String("build_time", buildTime))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.DatabasePath)
	if err != nil {
		logger.Error("open database", slog.Any("err", err))
		os.Exit(1)
	}
	defer database.Close()

	if cfg.MigrateOnStart {
		if err := db.Migrate(ctx, database, dbfs.Migrations, dbfs.SeedFiles); err != nil {
			logger.Error("migrate", slog.Any("err", err))
			os.Exit(1)
		}
	}

	repo := sqlite.New(database, logger)
	validator, err := validation.NewLoader(ctx, repo)
	if err != nil {
		logger.Error("load listing schemas", slog.Any("err", err))
		os.Exit(1)
	}

	var drafts wizard.Persister = wizard.NewRepoPersister(repo)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unavailable, keeping drafts in sqlite", slog.String("addr", cfg.Redis.Addr), slog.Any("err", err))
		} else {
			drafts = wizard.NewRedisPersister(rdb, "realty:wizard:", cfg.Redis.DraftTTL)
		}
	}

	var copywriter api.Copywriter
	oc, err := ollama.NewDefaultClient(cfg.Ollama)
	if err != nil {
		logger.Warn("ollama client disabled", slog.Any("err", err))
	} else {
		defer oc.Close()
		engine, err := ai.NewEngine(ctx, oc, cfg.EngineConfig, repo)
		if err != nil {
			logger.Warn("ai engine disabled", slog.Any("err", err))
		} else {
			copywriter = engine
		}
	}

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.Email.Enabled {
		ses, err := notify.NewSESMailer(ctx, cfg.Email.Region, cfg.Email.From)
		if err != nil {
			logger.Error("email sender", slog.Any("err", err))
			os.Exit(1)
		}
		mailer = ses
	}
	notifier := notify.NewNotifier(mailer, cfg.Email.AdminRecipients, cfg.Email.SiteURL)

	var distancer jobs.Distancer
	if gc := geo.NewClient(cfg.Geo); gc.Enabled() {
		distancer = gc
	}

	pool := jobs.NewWorkerPool(jobs.NewRepository(database), jobs.Handlers(notifier, repo, distancer), cfg.Workers)
	pool.Start(ctx)

	handler := api.SetupRoutes(api.Deps{
		Config:    cfg,
		Version:   version,
		BuildTime: buildTime,
		DB:        database,
		Queue:     pool,
		Drafts:    drafts,
		Validator: validator,
		AI:        copywriter,
		Geo:       distancer,
	})

	server := &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.APITimeout,
		WriteTimeout: cfg.APITimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("listening", slog.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.Any("err", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", slog.Any("err", err))
	}
	pool.Stop()

	logger.Info("server exited")
}
