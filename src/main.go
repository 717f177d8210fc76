package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/contre95/m3ushelf/src/features/config"
	"github.com/contre95/m3ushelf/src/features/hosting"
	"github.com/contre95/m3ushelf/src/features/logging"
	"github.com/contre95/m3ushelf/src/features/playlists"
	"github.com/contre95/m3ushelf/src/infra/database"
	"github.com/contre95/m3ushelf/src/infra/fetch"
	"github.com/contre95/m3ushelf/src/infra/watcher"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// Load configuration
	cfgManager, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Setup default logger with slog
	logger := logging.SetupLogger(cfgManager)
	slog.SetDefault(logger)

	if err := cfgManager.EnsureDirectories(); err != nil {
		log.Fatalf("failed to create directories: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Create the playlist store
	db, err := database.NewSqlitePlaylists(cfgManager.Get().Database.Path)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	fetcher := fetch.NewHTTPFetcher(cfgManager.Get().Fetch)
	playlistService := playlists.NewService(db, fetcher, cfgManager)

	// Watch the import folder if configured
	if watchPath := cfgManager.Get().Import.WatchPath; watchPath != "" {
		events := make(chan watcher.FileEvent, 64)
		fileWatcher, err := watcher.NewWatcher(events, watcher.DefaultDebounce)
		if err != nil {
			log.Fatalf("failed to create file watcher: %v", err)
		}
		if err := fileWatcher.Start(ctx, watchPath); err != nil {
			log.Fatalf("failed to watch %s: %v", watchPath, err)
		}
		defer fileWatcher.Stop()
		go playlistService.ConsumeWatchEvents(ctx, events)
	}

	// Create and start the Telegram bot if enabled
	var telegramBot *hosting.TelegramBot
	if cfgManager.Get().Telegram.Enabled {
		telegramBot, err = hosting.NewTelegramBot(cfgManager, playlistService)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			go telegramBot.Start()
			slog.Info("Telegram bot started")
		}
	}

	// Create and start the HTTP server
	server := hosting.NewServer(cfgManager, playlistService)
	go func() {
		if err := server.Start(); err != nil {
			slog.Error("Server stopped", "error", err)
			stop()
		}
	}()
	slog.Info("Server started. Press Ctrl+C to shut down.", "port", cfgManager.Get().Server.Port)

	// Wait for a shutdown signal
	<-ctx.Done()
	slog.Info("Shutting down server...")

	if telegramBot != nil {
		telegramBot.Stop()
		slog.Info("Telegram bot stopped")
	}

	if err := server.Shutdown(); err != nil {
		log.Fatalf("failed to shutdown server: %v", err)
	}
	slog.Info("Server gracefully shut down.")
}
