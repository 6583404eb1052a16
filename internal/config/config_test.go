package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/storage"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":5000", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 60*time.Second, cfg.Recorder.Interval)
	assert.Equal(t, storage.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, BackendMemory, cfg.Monitoring.Backend)
	assert.Equal(t, "Asia/Dhaka", cfg.Simulation.Timezone)
	assert.False(t, cfg.Kafka.Enabled)
	assert.Equal(t, "bems-room-readings", cfg.Kafka.Topic)
	assert.Equal(t, slog.LevelInfo, cfg.Log.Level)

	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Dhaka", loc.String())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_ADDR", ":8080")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("RECORDER_INTERVAL", "30s")
	t.Setenv("SIMULATION_SEED", "42")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://localhost:5173")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 30*time.Second, cfg.Recorder.Interval)
	assert.Equal(t, uint64(42), cfg.Simulation.Seed)
	assert.Equal(t, storage.DriverPostgres, cfg.Storage.Driver)
	assert.Equal(t, slog.LevelDebug, cfg.Log.Level)
	assert.Equal(t, []string{"http://localhost:5173"}, cfg.Server.CORSOrigins)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KAFKA_CONSUMER_COUNT", "many")
	t.Setenv("LIVE_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Kafka.ConsumerCount)
	assert.Equal(t, 5*time.Second, cfg.Server.LiveInterval)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	cases := map[string]map[string]string{
		"driver":   {"STORAGE_DRIVER": "oracle"},
		"backend":  {"MONITORING_BACKEND": "etcd"},
		"interval": {"RECORDER_INTERVAL": "0s"},
		"timezone": {"BUILDING_TIMEZONE": "Mars/Olympus"},
		"level":    {"LOG_LEVEL": "loud"},
		"influx":   {"INFLUXDB_ENABLED": "true", "INFLUX_TOKEN": ""},
		"workers":  {"PROCESSOR_WORKER_COUNT": "0"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoadAcceptsStorageDrivers(t *testing.T) {
	for _, driver := range []string{storage.DriverSQLite, storage.DriverPostgres, storage.DriverMySQL} {
		t.Run(driver, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv("STORAGE_DRIVER", driver)

			cfg, err := Load()
			require.NoError(t, err)
			assert.Equal(t, driver, cfg.Storage.Driver)
		})
	}
}
