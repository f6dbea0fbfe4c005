package main

import (
	_ "embed"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tinywideclouds/go-push-dispatch-service/dispatchservice"
	"github.com/tinywideclouds/go-push-dispatch-service/dispatchservice/config"
	"github.com/tinywideclouds/go-push-dispatch-service/internal/api"
	"github.com/tinywideclouds/go-push-dispatch-service/internal/auth"
	"github.com/tinywideclouds/go-push-dispatch-service/internal/dispatcher"
	"github.com/tinywideclouds/go-push-dispatch-service/internal/platform/fcm"
	"github.com/tinywideclouds/go-push-dispatch-service/internal/storage/cache"
	"github.com/tinywideclouds/go-push-dispatch-service/internal/storage/postgrest"
	"github.com/tinywideclouds/go-push-dispatch-service/pkg/dispatch"
)

//go:embed local.yaml
var configFile []byte

func main() {
	var logLevel slog.Level
	switch os.Getenv("LOG_LEVEL") {
	case "debug", "DEBUG":
		logLevel = slog.LevelDebug
	case "info", "INFO":
		logLevel = slog.LevelInfo
	case "warn", "WARN":
		logLevel = slog.LevelWarn
	case "error", "ERROR":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})).With("service", "go-push-dispatch-service")
	slog.SetDefault(logger)

	// --- Config Loading ---
	var yamlCfg config.YamlConfig
	if err := yaml.Unmarshal(configFile, &yamlCfg); err != nil {
		logger.Error("Failed to unmarshal embedded yaml config", "err", err)
		os.Exit(1)
	}
	baseCfg, _ := config.NewConfigFromYaml(&yamlCfg, logger)
	cfg, err := config.UpdateConfigWithEnvOverrides(baseCfg, logger)
	if err != nil {
		logger.Error("Config failed", "err", err)
		os.Exit(1)
	}

	// --- Record/Token Store ---
	store := postgrest.NewStore(cfg.Store.URL, cfg.Store.ServiceKey, nil, logger)
	logger.Info("Store initialized", "type", "postgrest", "url", cfg.Store.URL)

	var tokenStore dispatch.TokenStore = store
	if cfg.Redis.Enabled {
		logger.Info("Initializing Redis cache layer...", "addr", cfg.Redis.Addr)
		redisClient, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Error("Failed to connect to Redis", "err", err)
			os.Exit(1)
		}
		defer func() { _ = redisClient.Close() }()
		// Short TTL: this service never sees unregistrations, so staleness
		// is bounded by the TTL alone.
		tokenStore = cache.NewCachedTokenStore(tokenStore, redisClient, 15*time.Minute)
		logger.Info("TokenStore upgraded", "type", "redis_cached_postgrest")
	}

	// --- Credential & Provider ---
	var minter dispatch.TokenMinter
	var sender dispatch.Sender
	if cfg.ServiceAccountJSON != "" {
		account, err := auth.ParseServiceAccount([]byte(cfg.ServiceAccountJSON))
		if err != nil {
			logger.Error("Service account credential failed to parse", "err", err)
			os.Exit(1)
		}
		minter = auth.NewMinter(account, nil, logger)
		sender = fcm.NewSender(account.ProjectID, nil, logger)
		logger.Info("FCM sender initialized", "project_id", account.ProjectID)
	} else {
		logger.Warn("Service account credential missing; dispatches will fail until SERVICE_ACCOUNT_JSON is set")
	}

	// --- Dispatcher & Service ---
	eventDispatcher := dispatcher.New(tokenStore, store, minter, sender, logger)
	authMiddleware := api.NewSharedSecretMiddleware(cfg.WebhookSecret, logger)

	service, err := dispatchservice.New(cfg, eventDispatcher, authMiddleware, logger)
	if err != nil {
		logger.Error("Service creation failed", "err", err)
		os.Exit(1)
	}

	logger.Info("Starting service...", "listen_addr", cfg.ListenAddr)
	if err := service.Start(); err != nil {
		logger.Error("Service shutdown with error", "err", err)
		os.Exit(1)
	}
}
