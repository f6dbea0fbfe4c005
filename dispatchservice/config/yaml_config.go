package config

import (
	"log/slog"
)

type YamlStoreConfig struct {
	URL        string `yaml:"url"`
	ServiceKey string `yaml:"service_key"`
}

type YamlRedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Enabled  bool   `yaml:"enabled"`
}

// YamlConfig is the structure that mirrors the raw config.yaml file.
type YamlConfig struct {
	ListenAddr         string          `yaml:"listen_addr"`
	StoreConfig        YamlStoreConfig `yaml:"store"`
	ServiceAccountJSON string          `yaml:"service_account_json"`
	WebhookSecret      string          `yaml:"webhook_secret"`
	RedisConfig        YamlRedisConfig `yaml:"redis"`
}

// NewConfigFromYaml converts the YamlConfig into a clean, base Config struct.
func NewConfigFromYaml(baseCfg *YamlConfig, logger *slog.Logger) (*Config, error) {
	logger.Debug("Mapping YAML config to base config struct")

	cfg := &Config{
		ListenAddr: baseCfg.ListenAddr,
		Store: StoreConfig{
			URL:        baseCfg.StoreConfig.URL,
			ServiceKey: baseCfg.StoreConfig.ServiceKey,
		},
		ServiceAccountJSON: baseCfg.ServiceAccountJSON,
		WebhookSecret:      baseCfg.WebhookSecret,
		Redis: RedisConfig{
			Addr:     baseCfg.RedisConfig.Addr,
			Password: baseCfg.RedisConfig.Password,
			DB:       baseCfg.RedisConfig.DB,
			Enabled:  baseCfg.RedisConfig.Enabled,
		},
	}

	logger.Debug("YAML config mapping complete",
		"listen_addr", cfg.ListenAddr,
		"store_url", cfg.Store.URL,
	)

	return cfg, nil
}
