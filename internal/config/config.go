// Package config defines the top-level configuration for tickwatch and
// provides defaults, loading, and validation.
package config

import (
	"fmt"
	"strings"
)

// Config is the root configuration. Fields are populated from a TOML file and
// then optionally overridden by TICKWATCH_* environment variables.
type Config struct {
	Gateway  GatewayConfig  `toml:"gateway"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	Notify   NotifyConfig   `toml:"notify"`
	Monitor  MonitorConfig  `toml:"monitor"`
	Watch    []WatchConfig  `toml:"watch"`
	LogLevel string         `toml:"log_level"`
}

// GatewayConfig holds the broker gateway endpoint.
type GatewayConfig struct {
	WsURL string `toml:"ws_url"`
}

// RedisConfig holds latest-price cache parameters. An empty Addr disables
// the cache.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds alert audit store parameters. Persistence is disabled
// unless a DSN or host is configured.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// Enabled reports whether a database target is configured.
func (c PostgresConfig) Enabled() bool {
	return strings.TrimSpace(c.DSN) != "" || strings.TrimSpace(c.Host) != ""
}

// NotifyConfig holds operator notification channels. Only events listed in
// Events are delivered; an empty list delivers everything.
type NotifyConfig struct {
	TelegramToken  string   `toml:"telegram_token"`
	TelegramChatID string   `toml:"telegram_chat_id"`
	DiscordWebhook string   `toml:"discord_webhook"`
	Events         []string `toml:"events"`
}

// MonitorConfig holds monitoring service parameters.
type MonitorConfig struct {
	// QueueSize is the dispatcher queue capacity.
	QueueSize int `toml:"queue_size"`
	// AutoPlace enables order placement on alert.
	AutoPlace bool `toml:"auto_place"`
	// Quantity is the units submitted per placed order.
	Quantity int `toml:"quantity"`
}

// WatchConfig is one instrument to start monitoring at boot.
type WatchConfig struct {
	Symbol    string  `toml:"symbol"`
	SecType   string  `toml:"sec_type"`
	Strike    float64 `toml:"strike"`
	Expiry    string  `toml:"expiry"`
	Right     string  `toml:"right"`
	Exchange  string  `toml:"exchange"`
	Currency  string  `toml:"currency"`
	Target    float64 `toml:"target"`
	Threshold float64 `toml:"threshold"`
	Side      string  `toml:"side"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Gateway: GatewayConfig{
			WsURL: "ws://127.0.0.1:7497/ws",
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			Port:          5432,
			SSLMode:       "disable",
			PoolMaxConns:  4,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Monitor: MonitorConfig{
			QueueSize: 1024,
			Quantity:  1,
		},
		LogLevel: "info",
	}
}

// Validate checks the configuration for values the application cannot run
// with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Gateway.WsURL) == "" {
		return fmt.Errorf("gateway.ws_url must be set")
	}
	if c.Monitor.QueueSize < 0 {
		return fmt.Errorf("monitor.queue_size must not be negative")
	}
	if c.Monitor.AutoPlace && c.Monitor.Quantity <= 0 {
		return fmt.Errorf("monitor.quantity must be positive when auto_place is enabled")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level %q is not one of debug, info, warn, error", c.LogLevel)
	}

	for i, w := range c.Watch {
		if strings.TrimSpace(w.Symbol) == "" {
			return fmt.Errorf("watch[%d]: symbol must be set", i)
		}
		if w.Target <= 0 {
			return fmt.Errorf("watch[%d] %s: target must be positive", i, w.Symbol)
		}
		if w.Threshold < 0 {
			return fmt.Errorf("watch[%d] %s: threshold must not be negative", i, w.Symbol)
		}
		side := strings.ToUpper(strings.TrimSpace(w.Side))
		if side != "BUY" && side != "SELL" {
			return fmt.Errorf("watch[%d] %s: side %q is not BUY or SELL", i, w.Symbol, w.Side)
		}
	}
	return nil
}
