// Smart Garden Core - Sensor Provisioning Backend
//
// This is the main entry point for the Smart Garden Core application,
// the backend behind the garden dashboard. It handles:
//   - Discovery of announcing sensor nodes
//   - Pairing nodes into managed devices
//   - Configuration synchronisation over device polls
//   - Telemetry ingest into InfluxDB
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/codezcracker/smart-garden-core/migrations"

	"github.com/codezcracker/smart-garden-core/internal/api"
	"github.com/codezcracker/smart-garden-core/internal/auth"
	"github.com/codezcracker/smart-garden-core/internal/infrastructure/config"
	"github.com/codezcracker/smart-garden-core/internal/infrastructure/database"
	"github.com/codezcracker/smart-garden-core/internal/infrastructure/influxdb"
	"github.com/codezcracker/smart-garden-core/internal/infrastructure/logging"
	"github.com/codezcracker/smart-garden-core/internal/infrastructure/mqtt"
	"github.com/codezcracker/smart-garden-core/internal/provisioning"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Smart Garden Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Wire provisioning services over a shared repository
	repo := provisioning.NewSQLiteRepository(db.DB)

	registry := provisioning.NewRegistry(repo, cfg.DiscoveryWindow())
	registry.SetLogger(log)

	pairer := provisioning.NewPairer(repo, provisioning.DeviceDefaults{
		ServerURL:       cfg.Provisioning.Defaults.ServerURL,
		BackupServerURL: cfg.Provisioning.Defaults.BackupServerURL,
		SendInterval:    cfg.Provisioning.Defaults.SendInterval,
		ReconnectTries:  cfg.Provisioning.Defaults.ReconnectTries,
		ReadTimeout:     cfg.Provisioning.Defaults.ReadTimeout,
	})
	pairer.SetLogger(log)

	statusOracle := provisioning.NewStatusOracle(repo, registry)

	configSync := provisioning.NewConfigSync(repo)
	configSync.SetLogger(log)

	log.Info("provisioning services initialised",
		"discovery_window", cfg.DiscoveryWindow(),
	)

	// Seed the initial admin account on first boot
	userRepo := auth.NewUserRepository(db.DB)
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Connect to MQTT broker (optional event mirror)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional telemetry store)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled, telemetry will not be stored")
	}

	// Create API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Security:   cfg.Security,
		Logger:     log,
		Registry:   registry,
		Pairer:     pairer,
		Status:     statusOracle,
		ConfigSync: configSync,
		Users:      userRepo,
		Telemetry:  influxClient,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	// Wire the event broadcaster: provisioning events fan out to the
	// WebSocket hub and, when MQTT is connected, to the event topics.
	broadcaster := api.NewBroadcaster(apiServer.Hub(), mqttClient, byte(cfg.MQTT.QoS), log)
	registry.SetEvents(broadcaster)
	pairer.SetEvents(broadcaster)
	configSync.SetEvents(broadcaster)
	apiServer.SetEvents(broadcaster)

	// Start API server
	if startErr := apiServer.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started",
		"address", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
	)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("Smart Garden Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses GARDEND_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GARDEND_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
