package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ws://127.0.0.1:7497/ws", cfg.Gateway.WsURL)
	assert.Equal(t, 1024, cfg.Monitor.QueueSize)
	assert.Equal(t, 1, cfg.Monitor.Quantity)
	assert.False(t, cfg.Monitor.AutoPlace)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.Redis.Addr != "", "cache is opt-in")
	assert.False(t, cfg.Postgres.Enabled(), "persistence is opt-in")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[gateway]
ws_url = "ws://gateway:4002/ws"

[monitor]
auto_place = true
quantity = 5

[[watch]]
symbol = "AAPL"
sec_type = "STK"
exchange = "SMART"
currency = "USD"
target = 190.5
threshold = 0.25
side = "BUY"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ws://gateway:4002/ws", cfg.Gateway.WsURL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.Monitor.AutoPlace)
	assert.Equal(t, 5, cfg.Monitor.Quantity)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1024, cfg.Monitor.QueueSize)
	assert.Equal(t, 5432, cfg.Postgres.Port)

	require.Len(t, cfg.Watch, 1)
	assert.Equal(t, "AAPL", cfg.Watch[0].Symbol)
	assert.Equal(t, 190.5, cfg.Watch[0].Target)
	assert.Equal(t, 0.25, cfg.Watch[0].Threshold)
}

func TestLoadEnvOverridesWinOverFile(t *testing.T) {
	path := writeConfig(t, `
[gateway]
ws_url = "ws://from-file:4002/ws"

[redis]
addr = "file-redis:6379"
`)

	t.Setenv("TICKWATCH_GATEWAY_WS_URL", "ws://from-env:4002/ws")
	t.Setenv("TICKWATCH_REDIS_ADDR", "env-redis:6379")
	t.Setenv("TICKWATCH_REDIS_DB", "3")
	t.Setenv("TICKWATCH_MONITOR_AUTO_PLACE", "true")
	t.Setenv("TICKWATCH_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "ws://from-env:4002/ws", cfg.Gateway.WsURL)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Monitor.AutoPlace)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty gateway url", func(c *Config) { c.Gateway.WsURL = " " }},
		{"negative queue size", func(c *Config) { c.Monitor.QueueSize = -1 }},
		{"auto place without quantity", func(c *Config) {
			c.Monitor.AutoPlace = true
			c.Monitor.Quantity = 0
		}},
		{"unknown log level", func(c *Config) { c.LogLevel = "trace" }},
		{"watch without symbol", func(c *Config) {
			c.Watch = []WatchConfig{{Target: 100, Threshold: 0.5, Side: "BUY"}}
		}},
		{"watch with zero target", func(c *Config) {
			c.Watch = []WatchConfig{{Symbol: "AAPL", Target: 0, Threshold: 0.5, Side: "BUY"}}
		}},
		{"watch with negative threshold", func(c *Config) {
			c.Watch = []WatchConfig{{Symbol: "AAPL", Target: 100, Threshold: -0.5, Side: "BUY"}}
		}},
		{"watch with bad side", func(c *Config) {
			c.Watch = []WatchConfig{{Symbol: "AAPL", Target: 100, Threshold: 0.5, Side: "HOLD"}}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Defaults()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsZeroThresholdWatch(t *testing.T) {
	cfg := Defaults()
	cfg.Watch = []WatchConfig{{Symbol: "AAPL", Target: 100, Threshold: 0, Side: "sell"}}
	require.NoError(t, cfg.Validate(), "side comparison is case-insensitive and zero threshold is exact-match monitoring")
}

func TestPostgresEnabled(t *testing.T) {
	var pg PostgresConfig
	assert.False(t, pg.Enabled())
	pg.Host = "db.internal"
	assert.True(t, pg.Enabled())
	pg = PostgresConfig{DSN: "postgres://u:p@h:5432/d"}
	assert.True(t, pg.Enabled())
}
