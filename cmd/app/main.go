package main

import (
	"context"
	"database/sql"
	"time"

	"hqbot/internal/application"
	"hqbot/internal/delivery/discord"
	"hqbot/internal/delivery/rest"
	"hqbot/internal/notify"
	"hqbot/internal/repository"
	"hqbot/internal/workers"
	"hqbot/pkg/config"
	"hqbot/pkg/logger"
	service "hqbot/pkg/services"
	"hqbot/pkg/telemetry"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Config{}
	if err := config.ReadEnvConfig(&cfg); err != nil {
		panic(err)
	}

	log := logger.NewLogger(&logger.Config{Level: cfg.LogLevel})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		log.Error("failed to init telemetry: %s", err.Error())
		return
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("failed to flush traces: %s", err.Error())
		}
	}()

	repos, db, err := openRepository(&cfg.Repo, log)
	if err != nil {
		log.Error("failed to init repository: %s", err.Error())
		return
	}
	if db != nil {
		defer db.Close()
	}

	dispatcher := notify.NewDispatcher(log, cfg.NotifyBuffer, notify.NewAuditLog(log))
	if cfg.Redis.Enabled {
		client, err := notify.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Error("failed to init redis: %s", err.Error())
			return
		}
		defer client.Close()
		dispatcher.AddSink(notify.NewRedisPublisher(client, cfg.Redis.Channel))
	}

	services := application.NewService(repos, dispatcher, cfg.Chifumi, log)

	manager := service.NewManager(log)
	manager.AddService(dispatcher)

	if cfg.Sweep.Enabled {
		manager.AddService(workers.NewSweeper(cfg.Sweep, services.Chifumi, log))
	}

	if cfg.HTTP.Enabled {
		manager.AddService(rest.NewServer(cfg.HTTP, services, repos, log))
	}

	if cfg.DiscordToken != "" {
		bot, err := discord.NewBot(&cfg, services, log)
		if err != nil {
			log.Error("failed to init bot: %s", err.Error())
			return
		}
		if cfg.MainChannelID != "" {
			dispatcher.AddSink(discord.NewAnnouncer(bot.Session(), cfg.MainChannelID))
		}
		manager.AddService(bot)
	} else {
		log.Warn("DISCORD_TOKEN is empty, Discord bot disabled")
	}

	if err := manager.Run(ctx); err != nil {
		log.Error("failed to run services: %s", err.Error())
	}
	waitDrained(dispatcher, log)
	log.Info("Bot Stopped")
}

// waitDrained gives the dispatcher a moment to flush queued events.
func waitDrained(d *notify.Dispatcher, log *logger.Logger) {
	drained := make(chan struct{})
	go func() {
		d.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		log.Warn("notify queue not drained before exit")
	}
}

func openRepository(cfg *repository.Config, log *logger.Logger) (*repository.Repository, *sql.DB, error) {
	if cfg.Driver == "memory" {
		log.Warn("using in-memory storage, data is lost on restart")
		store := repository.NewMemoryStore(repository.WithStartingBalance(cfg.MemoryStartingBalance))
		return repository.NewMemoryRepository(store), nil, nil
	}

	db, err := repository.NewPostgresDB(cfg)
	if err != nil {
		return nil, nil, err
	}

	log.Info("Running migrations...")
	if err := repository.RunMigrations(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info("Migrations applied successfully")

	return repository.NewRepository(db), db, nil
}
