package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/zslim1101/location-relay/internal/core"
	"github.com/zslim1101/location-relay/internal/health"
	"github.com/zslim1101/location-relay/internal/store"
	"github.com/zslim1101/location-relay/internal/transport/httpapi"
	"github.com/zslim1101/location-relay/internal/transport/mqttingest"
	"github.com/zslim1101/location-relay/internal/transport/ws"
	"github.com/zslim1101/location-relay/internal/utils"
	"github.com/zslim1101/location-relay/pkg/file"
)

func main() {
	// Set up structured logging with JSON output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	// Load configuration from file
	fileClient := file.NewFileService()
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if config.Log.Level != "" {
		level, err := zerolog.ParseLevel(config.Log.Level)
		if err != nil {
			logger.Fatal().Err(err).Msg("Invalid log level in configuration")
		}
		logger = logger.Level(level)
	}

	// Storage engine and core
	engine := store.NewMemory()
	hub := ws.NewHub(config.Server.WriteQueueLength, logger.With().Str("component", "ws").Logger())
	relay := core.NewRelay(engine, hub, config.EventLog.Retention, logger)
	hub.SetSessionHandler(relay)

	// Producer boundaries
	monitor := health.NewMonitor(logger.With().Str("component", "health").Logger())
	api := httpapi.NewServer(relay, monitor, logger.With().Str("component", "httpapi").Logger())

	mux := http.NewServeMux()
	mux.Handle(config.Server.WebSocketPath, hub)
	api.Register(mux)

	pool := utils.NewWorkerPool(config.Ingest.Workers)

	var source *mqttingest.Source
	if config.MQTT.Enabled {
		// Unique client ID per process so broker sessions never collide
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		source = mqttingest.NewSource(
			config.MQTT.Broker, clientID, config.MQTT.TopicPrefix, config.MQTT.QOS,
			config.MQTT.CACertificate, relay, pool, fileClient,
			logger.With().Str("component", "mqtt").Logger(),
		)
		if err := source.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Failed to start MQTT source")
		}
	}

	server := &http.Server{
		Addr:    config.Server.Address,
		Handler: mux,
	}
	go func() {
		logger.Info().Str("address", config.Server.Address).Msg("Location relay listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	logger.Info().Msg("Shutting down gracefully...")
	if source != nil {
		if err := source.Stop(); err != nil {
			logger.Error().Err(err).Msg("Failed to stop MQTT source")
		}
	}

	timeout := config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	hub.CloseAll()
	pool.Shutdown()
	logger.Info().Msg("Shutdown complete")
}
