package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path, merges it on top of the defaults, applies
// TICKWATCH_* environment overrides, and returns the result. The caller
// should invoke Validate afterwards.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env if present; secrets usually arrive this way in development.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// applyEnvOverrides overwrites fields for which a TICKWATCH_* variable is
// set, letting operators inject endpoints and secrets without touching the
// TOML file.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.Gateway.WsURL, "TICKWATCH_GATEWAY_WS_URL")

	setStr(&cfg.Redis.Addr, "TICKWATCH_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TICKWATCH_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TICKWATCH_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "TICKWATCH_REDIS_TLS_ENABLED")

	setStr(&cfg.Postgres.DSN, "TICKWATCH_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TICKWATCH_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TICKWATCH_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TICKWATCH_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TICKWATCH_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TICKWATCH_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TICKWATCH_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "TICKWATCH_POSTGRES_RUN_MIGRATIONS")

	setStr(&cfg.Notify.TelegramToken, "TICKWATCH_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TICKWATCH_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhook, "TICKWATCH_DISCORD_WEBHOOK")

	setBool(&cfg.Monitor.AutoPlace, "TICKWATCH_MONITOR_AUTO_PLACE")
	setInt(&cfg.Monitor.Quantity, "TICKWATCH_MONITOR_QUANTITY")

	setStr(&cfg.LogLevel, "TICKWATCH_LOG_LEVEL")
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
