// Package config provides YAML-based configuration loading for assignyard.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level assignyard configuration, loaded from config.yaml.
type Config struct {
	ManagedCompanyID             string         `yaml:"managed_company_id"`
	AdvancedInterventionPlanning bool           `yaml:"advanced_intervention_planning"`
	Database                     DatabaseConfig `yaml:"database"`
	Server                       ServerConfig   `yaml:"server"`
	Lookup                       LookupConfig   `yaml:"lookup"`
	Notify                       NotifyConfig   `yaml:"notify"`
}

// DatabaseConfig selects and configures the SQL backend.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "sqlite" or "mysql"
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// ServerConfig holds HTTP server and editing session settings.
type ServerConfig struct {
	Port           int           `yaml:"port"`
	SessionIdleTTL time.Duration `yaml:"session_idle_ttl"`
	SweepSchedule  string        `yaml:"sweep_schedule"`
}

// LookupConfig bounds resource lookup paging.
type LookupConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// NotifyConfig holds optional chat notification targets.
type NotifyConfig struct {
	SlackWebhookURL  string `yaml:"slack_webhook_url"`
	DiscordBotToken  string `yaml:"discord_bot_token"`
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in default values.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "assignyard.db"
	}
	if c.Database.Driver == "mysql" {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.SessionIdleTTL == 0 {
		c.Server.SessionIdleTTL = 30 * time.Minute
	}
	if c.Server.SweepSchedule == "" {
		c.Server.SweepSchedule = "*/5 * * * *"
	}
	if c.Lookup.DefaultPageSize == 0 {
		c.Lookup.DefaultPageSize = 20
	}
	if c.Lookup.MaxPageSize == 0 {
		c.Lookup.MaxPageSize = 100
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.ManagedCompanyID == "" {
		errs = append(errs, "managed_company_id is required")
	}
	switch c.Database.Driver {
	case "sqlite":
	case "mysql":
		if c.Database.Name == "" {
			errs = append(errs, "database.name is required for mysql")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (want sqlite or mysql)", c.Database.Driver))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.Server.SessionIdleTTL < 0 {
		errs = append(errs, "server.session_idle_ttl must be positive")
	}
	if _, err := cron.ParseStandard(c.Server.SweepSchedule); err != nil {
		errs = append(errs, fmt.Sprintf("server.sweep_schedule: %v", err))
	}
	if c.Lookup.DefaultPageSize < 0 || c.Lookup.MaxPageSize < 0 {
		errs = append(errs, "lookup page sizes must be positive")
	} else if c.Lookup.DefaultPageSize > c.Lookup.MaxPageSize {
		errs = append(errs, "lookup.default_page_size must not exceed lookup.max_page_size")
	}
	if (c.Notify.DiscordBotToken == "") != (c.Notify.DiscordChannelID == "") {
		errs = append(errs, "notify.discord_bot_token and notify.discord_channel_id must be set together")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
