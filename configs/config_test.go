package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/marketpulse")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "daily_market", cfg.Cycle.Kind)
	assert.Equal(t, []string{"0 7 * * *", "0 22 * * *"}, cfg.Cycle.Schedules)
	assert.Equal(t, 5*time.Minute, cfg.Cycle.Timeout)
	assert.Equal(t, 0.1, cfg.Signal.DeadBandPercent)
	assert.Equal(t, 3, cfg.Delivery.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Delivery.BaseDelay)
	assert.Equal(t, []string{"btmc", "vietcombank", "coingecko"}, cfg.Sources.Enabled)
	assert.False(t, cfg.Kafka.Enabled)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Ho_Chi_Minh", loc.String())
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeConfig(t, `
database:
  url: postgres://file/marketpulse
cycle:
  timeout: 2m
  schedules: ["30 6 * * *"]
signal:
  dead_band_percent: 0.25
delivery:
  max_attempts: 5
`)
	t.Setenv("DATABASE_URL", "postgres://env/marketpulse")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("TRACING_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/marketpulse", cfg.Database.URL, "environment wins over file")
	assert.Equal(t, 2*time.Minute, cfg.Cycle.Timeout)
	assert.Equal(t, 10*time.Minute, cfg.Cycle.LockTTL, "unset fields keep defaults")
	assert.Equal(t, []string{"30 6 * * *"}, cfg.Cycle.Schedules)
	assert.Equal(t, 0.25, cfg.Signal.DeadBandPercent)
	assert.Equal(t, 5, cfg.Delivery.MaxAttempts)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Telemetry.Enabled)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{
			name: "missing database url",
			body: "server:\n  port: \"8080\"\n",
		},
		{
			name: "unknown source",
			body: "sources:\n  enabled: [bloomberg]\n",
			env:  map[string]string{"DATABASE_URL": "postgres://x"},
		},
		{
			name: "bad timezone",
			body: "cycle:\n  timezone: Mars/Olympus\n",
			env:  map[string]string{"DATABASE_URL": "postgres://x"},
		},
		{
			name: "zero attempts",
			body: "delivery:\n  max_attempts: 0\n",
			env:  map[string]string{"DATABASE_URL": "postgres://x"},
		},
		{
			name: "production without jwt secret",
			body: "server:\n  env: production\n",
			env:  map[string]string{"DATABASE_URL": "postgres://x"},
		},
		{
			name: "malformed yaml",
			body: "cycle: [",
			env:  map[string]string{"DATABASE_URL": "postgres://x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
