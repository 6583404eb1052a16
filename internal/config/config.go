package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/storage"
)

// ErrInvalidConfig is returned when a setting is present but unusable
var ErrInvalidConfig = errors.New("invalid configuration")

// Supported monitoring flag backends
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Simulation SimulationConfig
	Recorder   RecorderConfig
	Storage    StorageConfig
	Monitoring MonitoringConfig
	Kafka      KafkaConfig
	InfluxDB   InfluxDBConfig
	MQTT       MQTTConfig
	Processor  ProcessorConfig
	Log        LogConfig
}

// ServerConfig holds HTTP API configuration
type ServerConfig struct {
	Addr         string
	CORSOrigins  []string
	LiveInterval time.Duration
}

// SimulationConfig holds the static inputs of the simulator
type SimulationConfig struct {
	RoomConfigPath string
	SchedulesPath  string
	Timezone       string
	Seed           uint64
}

// RecorderConfig holds periodic recording configuration
type RecorderConfig struct {
	Interval time.Duration
}

// StorageConfig holds the energy_readings table connection
type StorageConfig struct {
	Driver string
	DSN    string
}

// MonitoringConfig holds the monitoring flag backend configuration
type MonitoringConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// KafkaConfig holds Kafka-related configuration
type KafkaConfig struct {
	Enabled       bool
	Brokers       []string
	Topic         string
	GroupID       string
	ConsumerCount int
	BatchSize     int
	BatchTimeout  time.Duration
}

// InfluxDBConfig holds InfluxDB-related configuration
type InfluxDBConfig struct {
	Enabled       bool
	URL           string
	Org           string
	Token         string
	Bucket        string
	BatchSize     int
	FlushInterval time.Duration
}

// MQTTConfig holds MQTT publisher configuration
type MQTTConfig struct {
	Enabled     bool
	Broker      string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// ProcessorConfig holds processor-related configuration
type ProcessorConfig struct {
	WorkerCount        int
	QueueSize          int
	EnableAggregations bool
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level slog.Level
	File  string
}

// Load loads configuration from environment variables with sensible defaults.
// A .env file in the working directory is read first when present; variables
// already set in the environment win.
func Load() (*Config, error) {
	_ = godotenv.Load()

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("HTTP_ADDR", ":5000"),
			CORSOrigins:  getEnvStringSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			LiveInterval: getEnvDuration("LIVE_INTERVAL", 5*time.Second),
		},
		Simulation: SimulationConfig{
			RoomConfigPath: getEnv("ROOM_CONFIG_PATH", "config/room_config.json"),
			SchedulesPath:  getEnv("SCHEDULES_PATH", "config/schedules.json"),
			Timezone:       getEnv("BUILDING_TIMEZONE", "Asia/Dhaka"),
			Seed:           getEnvUint64("SIMULATION_SEED", 0),
		},
		Recorder: RecorderConfig{
			Interval: getEnvDuration("RECORDER_INTERVAL", 60*time.Second),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", storage.DriverSQLite),
			DSN:    getEnv("STORAGE_DSN", "energy_bems.db"),
		},
		Monitoring: MonitoringConfig{
			Backend:       getEnv("MONITORING_BACKEND", BackendMemory),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvInt("REDIS_DB", 0),
			KeyPrefix:     getEnv("REDIS_KEY_PREFIX", "bems"),
		},
		Kafka: KafkaConfig{
			Enabled:       getEnvBool("KAFKA_ENABLED", false),
			Brokers:       getEnvStringSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
			Topic:         getEnv("KAFKA_TOPIC", "bems-room-readings"),
			GroupID:       getEnv("KAFKA_GROUP_ID", "bems-consumer"),
			ConsumerCount: getEnvInt("KAFKA_CONSUMER_COUNT", 2),
			BatchSize:     getEnvInt("KAFKA_BATCH_SIZE", 500),
			BatchTimeout:  getEnvDuration("KAFKA_BATCH_TIMEOUT", 1*time.Second),
		},
		InfluxDB: InfluxDBConfig{
			Enabled:       getEnvBool("INFLUXDB_ENABLED", false),
			URL:           getEnv("INFLUXDB_URL", "http://localhost:8086"),
			Org:           getEnv("INFLUXDB_ORG", "fub"),
			Token:         getEnv("INFLUX_TOKEN", ""),
			Bucket:        getEnv("INFLUXDB_BUCKET", "bems"),
			BatchSize:     getEnvInt("INFLUXDB_BATCH_SIZE", 500),
			FlushInterval: getEnvDuration("INFLUXDB_FLUSH_INTERVAL", 1*time.Second),
		},
		MQTT: MQTTConfig{
			Enabled:     getEnvBool("MQTT_ENABLED", false),
			Broker:      getEnv("MQTT_BROKER", "tcp://localhost:1883"),
			ClientID:    getEnv("MQTT_CLIENT_ID", "bems-recorder"),
			Username:    getEnv("MQTT_USER", ""),
			Password:    getEnv("MQTT_PASS", ""),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "bems"),
		},
		Processor: ProcessorConfig{
			WorkerCount:        getEnvInt("PROCESSOR_WORKER_COUNT", 4),
			QueueSize:          getEnvInt("PROCESSOR_QUEUE_SIZE", 1000),
			EnableAggregations: getEnvBool("PROCESSOR_ENABLE_AGGREGATIONS", true),
		},
		Log: LogConfig{
			Level: level,
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Location resolves the building timezone
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Simulation.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Simulation.Timezone, err)
	}
	return loc, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case storage.DriverSQLite, storage.DriverPostgres, storage.DriverMySQL:
	default:
		return fmt.Errorf("%w: unknown STORAGE_DRIVER %q", ErrInvalidConfig, c.Storage.Driver)
	}
	switch c.Monitoring.Backend {
	case BackendMemory, BackendRedis:
	default:
		return fmt.Errorf("%w: unknown MONITORING_BACKEND %q", ErrInvalidConfig, c.Monitoring.Backend)
	}
	if c.Recorder.Interval <= 0 {
		return fmt.Errorf("%w: RECORDER_INTERVAL must be positive", ErrInvalidConfig)
	}
	if c.Server.LiveInterval <= 0 {
		return fmt.Errorf("%w: LIVE_INTERVAL must be positive", ErrInvalidConfig)
	}
	if c.InfluxDB.Enabled && c.InfluxDB.Token == "" {
		return fmt.Errorf("%w: INFLUX_TOKEN is required when INFLUXDB_ENABLED is set", ErrInvalidConfig)
	}
	if c.Processor.WorkerCount < 1 || c.Processor.QueueSize < 1 {
		return fmt.Errorf("%w: processor worker count and queue size must be positive", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return level, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidConfig, s)
	}
	return level, nil
}

// Helper functions to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvUint64(key string, defaultValue uint64) uint64 {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.ParseUint(value, 10, 64); err == nil {
			return v
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		var out []string
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out
	}
	return defaultValue
}
