package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lysyi3m/critique-desk/app/api"
	"github.com/lysyi3m/critique-desk/app/catalog"
	"github.com/lysyi3m/critique-desk/app/cfg"
	"github.com/lysyi3m/critique-desk/app/database"
	"github.com/lysyi3m/critique-desk/app/display"
	"github.com/lysyi3m/critique-desk/app/feed"
	"github.com/lysyi3m/critique-desk/app/metrics"
	"github.com/lysyi3m/critique-desk/app/notify"
	"github.com/lysyi3m/critique-desk/app/tasks"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown
		return
	}

	setupLogger(appCfg)

	slog.Info("Starting Critique Desk", "version", appCfg.Version)

	db, err := database.Open(appCfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "path", appCfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appCfg.DBPath, "schema_version", version, "dirty", dirty)

	entryRepo := database.NewEntryRepository(db)
	settingsRepo := database.NewSettingsRepository(db)
	previewRepo := database.NewPreviewRepository(db)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	entries, lastIngested, err := database.LoadCatalog(ctx, entryRepo, settingsRepo)
	if err != nil {
		slog.Error("Failed to load catalog", "error", err)
		os.Exit(1)
	}

	store := catalog.NewStore(appCfg.UndoDepth)
	store.Load(entries, lastIngested)
	metrics.CatalogEntries.Set(float64(len(entries)))
	slog.Info("Catalog loaded", "entries", len(entries), "last_ingested", lastIngested)

	controller := catalog.NewController(nil)

	rules := display.NewRules(appCfg.ChannelsFile)
	if err := rules.Load(); err != nil {
		slog.Warn("Failed to load display channels, using defaults", "file", appCfg.ChannelsFile, "error", err)
	}
	if watcher, err := display.NewWatcher(rules, nil); err != nil {
		slog.Warn("Display channels will not be reloaded", "file", appCfg.ChannelsFile, "error", err)
	} else {
		go watcher.Start(ctx)
		defer watcher.Stop()
	}

	notifier := newNotifier(appCfg)

	httpClient := &http.Client{}
	fetcher := feed.NewFetcher(httpClient, appCfg.UserAgent, appCfg.GetFeedTimeout())
	parser := feed.NewParser(appCfg.AuthorExtension)
	ingester := feed.NewIngester(appCfg.FeedURL, fetcher, parser, store, nil)

	scheduler, err := tasks.NewScheduler(tasks.Deps{
		Store:      store,
		Controller: controller,
		Ingester:   ingester,
		Entries:    entryRepo,
		Settings:   settingsRepo,
		Previews:   previewRepo,
		Fetcher:    fetcher,
		Extractor:  feed.NewPreviewExtractor(0),
		Notifier:   notifier,
	}, tasks.ConfigFromCfg(appCfg))
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting background scheduler",
		"workers", appCfg.WorkerCount,
		"interval", appCfg.GetSchedulerInterval(),
		"feed", appCfg.FeedURL,
		"feed_interval", appCfg.GetFeedInterval())
	scheduler.Start()

	handler := api.NewHandler(api.Deps{
		Store:      store,
		Controller: controller,
		Rules:      rules,
		Generator:  feed.NewGenerator(baseURL(appCfg), appCfg.Version),
		Ingester:   ingester,
		Entries:    entryRepo,
		Settings:   settingsRepo,
		Previews:   previewRepo,
		Scheduler:  scheduler,
		Notifier:   notifier,
		Version:    appCfg.Version,
	})
	server := api.NewServer(handler, api.Keys{
		Read:   appCfg.ReadKey,
		Edit:   appCfg.EditKey,
		Manage: appCfg.ManageKey,
	})

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("Starting HTTP server", "port", appCfg.Port, "base_url", baseURL(appCfg))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	stop()
	scheduler.Stop()

	// Anything changed since the last scheduled save.
	if err := tasks.NewSaveCatalogTask(store, entryRepo, settingsRepo).Execute(shutdownCtx); err != nil {
		slog.Error("Failed to save catalog on shutdown", "error", err)
	}

	slog.Info("Critique Desk shutdown complete")
}

func setupLogger(c *cfg.Cfg) {
	level := slog.LevelInfo
	if c.Debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if c.LogJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func baseURL(c *cfg.Cfg) string {
	if c.BaseUrl != "" {
		return c.BaseUrl
	}
	return "http://localhost:" + c.Port
}

// newNotifier posts the audit log to Telegram when configured, falling back
// to the process log when a message cannot be sent.
func newNotifier(c *cfg.Cfg) notify.Notifier {
	if c.TelegramToken == "" {
		return notify.LogNotifier{}
	}

	bot, err := tgbotapi.NewBotAPI(c.TelegramToken)
	if err != nil {
		slog.Warn("Telegram unavailable, audit log goes to the process log", "error", err)
		return notify.LogNotifier{}
	}
	slog.Info("Audit log posted to Telegram", "bot", bot.Self.UserName, "chat_id", c.TelegramChatID)

	return notify.Fallback{
		notify.NewTelegramNotifier(bot, c.TelegramChatID, c.GetNotifyInterval()),
		notify.LogNotifier{},
	}
}
