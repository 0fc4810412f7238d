package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// StatusLabels maps resolution statuses to display labels.
type StatusLabels struct {
	Active     string `yaml:"active"`
	Superseded string `yaml:"superseded"`
	Pending    string `yaml:"pending"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// Config defines service configuration.
type Config struct {
	DatabaseURL  string       `yaml:"database_url"`
	HTTPAddr     string       `yaml:"http_addr"`
	TenantID     string       `yaml:"tenant_id"`
	Currency     string       `yaml:"currency"`
	Timezone     string       `yaml:"timezone"`
	JWTSecret    string       `yaml:"jwt_secret"`
	PDFFontPath  string       `yaml:"pdf_font_path"`
	InMemory     bool         `yaml:"in_memory"`
	Log          LogConfig    `yaml:"log"`
	StatusLabels StatusLabels `yaml:"status_labels"`
	ReadTimeout  Duration     `yaml:"read_timeout"`
	WriteTimeout Duration     `yaml:"write_timeout"`
}

// Duration is a time.Duration that decodes from strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("config: invalid duration %q", raw)
	}
	*d = Duration(parsed)
	return nil
}

// Defaults returns the baseline configuration.
func Defaults() Config {
	return Config{
		HTTPAddr: ":8080",
		TenantID: "tenant-demo",
		Currency: "CNY",
		Timezone: "Asia/Shanghai",
		Log:      LogConfig{Level: "info"},
		StatusLabels: StatusLabels{
			Active:     "生效中",
			Superseded: "已失效",
			Pending:    "未生效",
		},
		ReadTimeout:  Duration(10 * time.Second),
		WriteTimeout: Duration(30 * time.Second),
	}
}

// Load reads defaults, then the YAML file named by APP_CONFIG, then env overrides.
func Load() (Config, error) {
	cfg := Defaults()

	if path := os.Getenv("APP_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.DatabaseURL = getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", cfg.DatabaseURL))
	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", cfg.HTTPAddr)
	cfg.TenantID = getenvDefault("TENANT_ID", cfg.TenantID)
	cfg.Currency = strings.ToUpper(strings.TrimSpace(getenvDefault("CURRENCY", cfg.Currency)))
	cfg.Timezone = getenvDefault("TIMEZONE", cfg.Timezone)
	cfg.PDFFontPath = getenvDefault("PDF_FONT_PATH", cfg.PDFFontPath)
	cfg.JWTSecret = getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", cfg.JWTSecret))
	cfg.Log.Level = getenvDefault("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Pretty = getenvBoolDefault("LOG_PRETTY", cfg.Log.Pretty)
	cfg.InMemory = getenvBoolDefault("IN_MEMORY", cfg.InMemory)

	return cfg, cfg.Validate()
}

// Validate checks required settings.
func (c Config) Validate() error {
	if c.DatabaseURL == "" && !c.InMemory {
		return errors.New("config: DATABASE_URL or PG_DSN is required")
	}
	if c.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	if c.TenantID == "" {
		return errors.New("config: tenant id is required")
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("config: invalid currency %q", c.Currency)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves the configured timezone used to compute "today".
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Label returns the display label of a status, or the status itself.
func (l StatusLabels) Label(status string) string {
	var label string
	switch status {
	case "active":
		label = l.Active
	case "superseded":
		label = l.Superseded
	case "pending":
		label = l.Pending
	}
	if label == "" {
		return status
	}
	return label
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvBoolDefault(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}
