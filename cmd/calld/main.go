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

	"github.com/SherClockHolmes/webpush-go"
	"github.com/joho/godotenv"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/api"
	"clinic-call-backend/internal/db"
	"clinic-call-backend/internal/notification"
	"clinic-call-backend/internal/state"
	"clinic-call-backend/internal/store"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "calld ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Printf("could not read .env: %v", err)
	}

	cfg := loadConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	holder, err := state.New(ctx, cfg.State)
	if err != nil {
		logger.Fatalf("failed to initialize call state: %v", err)
	}
	logger.Printf("call state initialized (backend %s)", cfg.State.Backend)

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		logger.Fatalf("failed to initialize database: %v", err)
	}
	logger.Println("database initialized successfully")

	appStore := store.NewGormStore(gormDB)

	var (
		publishers     notification.Fanout
		webpushOptions *webpush.Options
		mqttEmitter    *notification.MQTTEmitter
	)

	if cfg.Push.Enabled() {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		workerPool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, cfg.Display.PhraseTemplate)
		workerPool.Start(ctx)
		publishers = append(publishers, workerPool)
		logger.Printf("web push enabled with %d workers", cfg.WorkerPool.Size)
	} else {
		logger.Println("VAPID keys not configured, web push disabled")
	}

	if cfg.MQTT.Enabled {
		mqttEmitter, err = notification.NewMQTTEmitter(cfg.MQTT)
		if err != nil {
			logger.Printf("MQTT disabled: %v", err)
		} else {
			publishers = append(publishers, mqttEmitter)
			logger.Printf("publishing announcements to MQTT broker %s", cfg.MQTT.Broker)
		}
	}

	handler := api.NewHandler(holder, appStore, publishers, webpushOptions)
	router := api.NewRouter(&cfg.Server, handler)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Printf("HTTP server starting on port %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("HTTP server ListenAndServe: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Println("Shutdown signal received, stopping services...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSec)*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP server Shutdown: %v", err)
	}
	if mqttEmitter != nil {
		mqttEmitter.Close()
	}
	if err := db.Close(gormDB); err != nil {
		logger.Printf("closing database: %v", err)
	}
	if err := holder.Close(); err != nil {
		logger.Printf("closing call state: %v", err)
	}

	logger.Println("Server gracefully stopped")
}

// loadConfig reads CONFIG_PATH, falling back to defaults when the file does
// not exist.
func loadConfig(logger *log.Logger) *config.Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if errors.Is(err, os.ErrNotExist) {
		logger.Printf("no configuration at %s, using defaults", configPath)
		return config.Default()
	}
	if err != nil {
		logger.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}
	logger.Printf("configuration loaded successfully from %s", configPath)
	return cfg
}
