package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"clothesline-control-backend/config"
	"clothesline-control-backend/internal/api"
	"clothesline-control-backend/internal/autocontrol"
	"clothesline-control-backend/internal/db"
	"clothesline-control-backend/internal/device"
	"clothesline-control-backend/internal/notification"
	"clothesline-control-backend/internal/predictor"
	"clothesline-control-backend/internal/store"

	"github.com/SherClockHolmes/webpush-go"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "clotheslined ", log.LstdFlags)

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}
	pushEnabled := cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != ""
	if !pushEnabled {
		logger.Println("VAPID keys are not configured; push notifications are disabled")
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	logger.Println("data store initialized")

	// Device client, reconfigured from persisted settings when present.
	client := device.NewClient(&cfg.Device)
	restoreDeviceSettings(ctx, appStore, client, logger)
	cache := device.NewCache(client, cfg.Polling.Interval)

	// Shared polling state and auto-control settings.
	state := autocontrol.NewState()
	settings := autocontrol.NewSettingsState(restoreAutoSettings(ctx, appStore, cfg, logger))

	// Notification worker pool; the dispatcher tolerates a nil notifier.
	var notifier autocontrol.CommandNotifier
	if pushEnabled {
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, &webpushOptions)
		pool.Start(ctx)
		notifier = pool
	}

	dispatcher := autocontrol.NewDispatcher(cache, client, state, notifier)

	// Background polling loop.
	poller := autocontrol.NewPoller(cache, appStore, state, settings, dispatcher,
		cfg.Polling.Interval, cfg.Auto.Cooldown, cfg.Polling.Enabled)
	go poller.Run(ctx)

	// Rain classifier and retraining scheduler.
	classifier := predictor.NewRainModel(appStore, cfg.Training.ModelPath, cfg.Training.WindowSize)
	status := predictor.NewStatus()
	status.Load(ctx, appStore)
	trainer := predictor.NewTrainer(appStore, classifier, status, appStore,
		cfg.Training.Interval, cfg.Training.WindowSize)
	go trainer.Run(ctx)

	// Initialize router
	handler := api.NewHandler(appStore, client, dispatcher, state, settings,
		status, classifier, cfg.Training.WindowSize, &webpushOptions)
	router := api.NewRouter(handler, &cfg.Server)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start the server in a goroutine
	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	// Create a deadline to wait for.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatalf("HTTP server Shutdown: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// restoreDeviceSettings points the client at the persisted device endpoint
// when the operator saved one in a previous run.
func restoreDeviceSettings(ctx context.Context, appStore store.Store, client *device.Client, logger *log.Logger) {
	baseURL, found, err := appStore.GetSetting(ctx, store.SettingDeviceBaseURL)
	if err != nil {
		logger.Printf("Warning: failed to load device settings: %v", err)
		return
	}
	if !found {
		return
	}

	timeout := client.Timeout()
	if raw, ok, _ := appStore.GetSetting(ctx, store.SettingDeviceTimeout); ok {
		if seconds, err := strconv.Atoi(raw); err == nil && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
	}
	client.SetEndpoint(baseURL, timeout)
	logger.Printf("restored device endpoint %s from settings", baseURL)
}

// restoreAutoSettings seeds the auto-control settings from the config file,
// overridden by values the operator persisted in a previous run.
func restoreAutoSettings(ctx context.Context, appStore store.Store, cfg *config.Config, logger *log.Logger) autocontrol.Settings {
	settings := autocontrol.Settings{
		Enabled:        cfg.Auto.Enabled,
		LightThreshold: cfg.Auto.LightThreshold,
		RainThreshold:  cfg.Auto.RainThreshold,
	}

	if raw, ok, err := appStore.GetSetting(ctx, store.SettingAutoEnabled); err != nil {
		logger.Printf("Warning: failed to load auto settings: %v", err)
		return settings
	} else if ok {
		if enabled, err := strconv.ParseBool(raw); err == nil {
			settings.Enabled = enabled
		}
	}
	if raw, ok, _ := appStore.GetSetting(ctx, store.SettingLightThreshold); ok {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			settings.LightThreshold = v
		}
	}
	if raw, ok, _ := appStore.GetSetting(ctx, store.SettingRainThreshold); ok {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			settings.RainThreshold = v
		}
	}
	return settings
}
