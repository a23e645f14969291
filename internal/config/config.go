package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		Debug    bool   `yaml:"debug"`
	} `yaml:"telegram"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Catalog struct {
		SpreadsheetID   string `yaml:"spreadsheet_id"`
		ReadRange       string `yaml:"read_range"`
		CredentialsJSON string `yaml:"credentials_json"`
		CredentialsPath string `yaml:"credentials_path"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"catalog"`

	Schedule struct {
		Timezone            string `yaml:"timezone"`
		PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	} `yaml:"schedule"`

	Backup struct {
		Enabled       bool   `yaml:"enabled"`
		StoragePath   string `yaml:"storage_path"`
		RetentionDays int    `yaml:"retention_days"`
	} `yaml:"backup"`

	Monitoring struct {
		HealthCheckPort   int  `yaml:"health_check_port"`
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/dsamentor.db"
	}
	if cfg.Catalog.ReadRange == "" {
		cfg.Catalog.ReadRange = "Questions!A:Z"
	}
	if cfg.Schedule.Timezone == "" {
		cfg.Schedule.Timezone = "Asia/Karachi"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) CatalogTTL() time.Duration {
	if c.Catalog.CacheTTLSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(c.Catalog.CacheTTLSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	if c.Schedule.PollIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.Schedule.PollIntervalSeconds) * time.Second
}
