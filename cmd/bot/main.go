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

	"github.com/diegoclair/flashevent-bot/internal/config"
	"github.com/diegoclair/flashevent-bot/internal/database"
	"github.com/diegoclair/flashevent-bot/internal/database/redisdb"
	"github.com/diegoclair/flashevent-bot/internal/domain/contract"
	"github.com/diegoclair/flashevent-bot/internal/domain/service"
	"github.com/diegoclair/flashevent-bot/internal/handlers"
	"github.com/diegoclair/flashevent-bot/internal/logger"
	"github.com/diegoclair/flashevent-bot/internal/notifier"
	"github.com/diegoclair/flashevent-bot/internal/scheduler"
	"github.com/diegoclair/flashevent-bot/internal/seed"
	"github.com/diegoclair/flashevent-bot/migrator/sqlite"
	"github.com/joho/godotenv"
	"github.com/slack-go/slack"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, zl)
	stop()

	if err != nil {
		zl.Error("bot stopped", zap.Error(err))
		_ = zl.Sync()
		os.Exit(1)
	}
	_ = zl.Sync()
}

// run wires the bot and serves until ctx is done; every resource it opens is
// released before it returns.
func run(ctx context.Context, cfg config.Config, zl *zap.Logger) error {
	b, err := openStore(ctx, cfg, zl)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.StoreBackend, err)
	}
	defer b.close()

	slackClient := slack.New(cfg.SlackBotToken)
	sender := notifier.NewSlackSender(slackClient, zl.Named("notifier"))

	instance, err := service.NewInstance(b.store, sender, zl.Named("service"), service.Options{
		TriggerHours:    cfg.TriggerHours,
		ChimeChannelID:  cfg.ChimeChannelID,
		DebugChannelID:  cfg.DebugChannelID,
		ConversationTTL: cfg.ConversationTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to build services: %w", err)
	}

	if cfg.RosterSeedPath != "" {
		if err := applySeed(ctx, cfg.RosterSeedPath, b, instance, zl.Named("seed")); err != nil {
			return err
		}
	}

	// the scheduler is opt-in; without CHIME_SCHEDULE ticks come only from the chime channel
	if cfg.ChimeSchedule != "" {
		sched, err := scheduler.New(instance.Dispatcher, cfg.ChimeSchedule, cfg.ChimeTimeout, zl.Named("scheduler"))
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	handler := handlers.New(slackClient, instance.Dispatcher, cfg.SlackSigningSecret, handlers.Options{
		BotUserID:      cfg.BotUserID,
		ChimeChannelID: cfg.ChimeChannelID,
		ChimeKeyword:   cfg.ChimeKeyword,
		ChimeTimeout:   cfg.ChimeTimeout,
	}, zl.Named("handlers"))
	defer handler.Wait()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler, b.health),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zl.Info("server starting", zap.String("port", cfg.Port), zap.String("backend", cfg.StoreBackend))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server stopped: %w", err)
	}
	return nil
}

// applySeed enrolls the seed roster; on sqlite the whole seed shares one transaction
func applySeed(ctx context.Context, path string, b *backend, instance *service.Instance, log *zap.Logger) error {
	roster, err := seed.LoadRoster(path)
	if err != nil {
		return fmt.Errorf("failed to load roster seed %q: %w", path, err)
	}

	if b.tx != nil {
		_, err = seed.ApplyInTransaction(ctx, b.tx, func(store contract.Store) seed.Enroller {
			return service.NewRoster(store)
		}, roster, log)
	} else {
		_, err = seed.Apply(ctx, instance.Roster, roster, log)
	}
	if err != nil {
		return fmt.Errorf("failed to apply roster seed: %w", err)
	}
	return nil
}

type backend struct {
	store  contract.Store
	health handlers.HealthCheck
	tx     seed.Transactor
	close  func()
}

func openStore(ctx context.Context, cfg config.Config, zl *zap.Logger) (*backend, error) {
	if cfg.StoreBackend == config.BackendRedis {
		rdb, err := redisdb.New(ctx, redisdb.Config{
			Addr:      cfg.RedisAddr,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, zl)
		if err != nil {
			return nil, err
		}
		return &backend{store: rdb, health: rdb.Ping, close: func() { _ = rdb.Close() }}, nil
	}

	db, err := database.New(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	zl.Info("running migrations")
	if err := sqlite.Migrate(db.DB()); err != nil {
		_ = db.Close()
		return nil, err
	}
	zl.Info("migrations completed successfully")

	store := database.NewInstance(db)
	return &backend{store: store, health: db.DB().PingContext, tx: store, close: func() { _ = db.Close() }}, nil
}
