package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"envmon/internal/modules/readings/policy"
)

const (
	DriverSQLite = "sqlite3"
	DriverMongo  = "mongo"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level
	HTTPAddr string

	// APIKey protects the ingest endpoints. Empty means ingest is refused.
	APIKey             string
	CORSAllowedOrigins []string

	DBDriver              string
	SQLiteDSN             string
	SQLitePath            string
	SQLiteMaxOpenConns    int
	SQLiteMaxIdleConns    int
	SQLiteConnMaxLifetime time.Duration
	SQLiteLogStatements   bool

	MongoURI        string
	MongoDatabase   string
	MongoCollection string

	MQTTEnabled  bool
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	Thresholds policy.ThresholdConfig
}

// LoadDotEnv loads variables from path into the process environment without
// overriding ones already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func LoadFromEnv() (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}

	level, err := parseLogLevel(envString("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppEnv:             appEnv,
		LogLevel:           level,
		HTTPAddr:           envString("HTTP_ADDR", ":8080"),
		APIKey:             strings.TrimSpace(os.Getenv("API_KEY")),
		CORSAllowedOrigins: splitList(envString("CORS_ALLOWED_ORIGINS", "*")),
		DBDriver:           envString("DB_DRIVER", DriverSQLite),
		SQLiteDSN:          strings.TrimSpace(os.Getenv("DB_DSN")),
		SQLitePath:         envString("SQLITE_PATH", "data/envmon.db"),
		MongoURI:           envString("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:      envString("MONGO_DB", "envmon"),
		MongoCollection:    envString("MONGO_COLLECTION", "readings"),
		MQTTBroker:         envString("MQTT_BROKER", "localhost"),
		MQTTClientID:       envString("MQTT_CLIENT_ID", "envmon-server"),
		MQTTTopic:          envString("MQTT_TOPIC", "envmon/readings"),
	}

	switch cfg.DBDriver {
	case DriverSQLite, DriverMongo:
	default:
		return Config{}, fmt.Errorf("invalid DB_DRIVER %q (allowed: %s, %s)", cfg.DBDriver, DriverSQLite, DriverMongo)
	}

	if cfg.SQLiteMaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteMaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", 1); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteConnMaxLifetime, err = envDuration("DB_CONN_MAX_LIFETIME", 0); err != nil {
		return Config{}, err
	}
	if cfg.SQLiteLogStatements, err = envBool("DB_LOG_SQL", false); err != nil {
		return Config{}, err
	}
	if cfg.MQTTEnabled, err = envBool("MQTT_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort, err = envInt("MQTT_PORT", 1883); err != nil {
		return Config{}, err
	}
	if cfg.MQTTPort < 1 || cfg.MQTTPort > 65535 {
		return Config{}, fmt.Errorf("invalid MQTT_PORT %d (must be 1-65535)", cfg.MQTTPort)
	}

	if cfg.Thresholds, err = loadThresholds(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadThresholds overlays TEMP_* and HUMIDITY_* variables on the default
// bands and rejects an inconsistent result. The names used by the first
// deployment (TEMP_MIN_ALERTA ... UMID_MAX_CRITICO) are read when the
// current name is unset.
func loadThresholds() (policy.ThresholdConfig, error) {
	t := policy.DefaultThresholds()
	fields := []struct {
		name   string
		legacy string
		dst    *float64
	}{
		{"TEMP_ALERT_MIN", "TEMP_MIN_ALERTA", &t.Temperature.Alert.Min},
		{"TEMP_ALERT_MAX", "TEMP_MAX_ALERTA", &t.Temperature.Alert.Max},
		{"TEMP_CRITICAL_MIN", "TEMP_MIN_CRITICO", &t.Temperature.Critical.Min},
		{"TEMP_CRITICAL_MAX", "TEMP_MAX_CRITICO", &t.Temperature.Critical.Max},
		{"HUMIDITY_ALERT_MIN", "UMID_MIN_ALERTA", &t.Humidity.Alert.Min},
		{"HUMIDITY_ALERT_MAX", "UMID_MAX_ALERTA", &t.Humidity.Alert.Max},
		{"HUMIDITY_CRITICAL_MIN", "UMID_MIN_CRITICO", &t.Humidity.Critical.Min},
		{"HUMIDITY_CRITICAL_MAX", "UMID_MAX_CRITICO", &t.Humidity.Critical.Max},
	}
	for _, f := range fields {
		name := f.name
		if strings.TrimSpace(os.Getenv(name)) == "" && strings.TrimSpace(os.Getenv(f.legacy)) != "" {
			name = f.legacy
		}
		v, err := envFloat(name, *f.dst)
		if err != nil {
			return policy.ThresholdConfig{}, err
		}
		*f.dst = v
	}
	if err := t.Validate(); err != nil {
		return policy.ThresholdConfig{}, err
	}
	return t, nil
}

func envString(name, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func envInt(name string, def int) (int, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return n, nil
}

func envFloat(name string, def float64) (float64, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func envBool(name string, def bool) (bool, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return v, nil
}

func envDuration(name string, def time.Duration) (time.Duration, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
