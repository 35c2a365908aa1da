package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"

	"github.com/resqlink/early-warning-service/internal/domain"
)

// Change feed modes.
const (
	ChangefeedPoll  = "poll"
	ChangefeedKafka = "kafka"
)

// Prediction modes.
const (
	PredictionSensor    = "sensor"
	PredictionSimulated = "simulated"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr           string
	LogLevel           string
	LogFormat          string
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string

	// Hosted database REST API.
	SupabaseURL     string
	SupabaseKey     string
	SupabaseTimeout time.Duration
	SupabaseRetries int
	SensorTable     string
	MessagesTable   string
	UsersTable      string

	// Change feed.
	ChangefeedMode    string
	PollInterval      time.Duration
	KafkaBrokers      []string
	KafkaChangesTopic string
	KafkaGroupID      string
	KafkaAlertsTopic  string

	// OpenWeatherMap.
	OpenWeatherAPIKey  string
	OpenWeatherEnabled bool
	OpenWeatherTimeout time.Duration
	WeatherCacheSize   int
	WeatherCacheTTL    time.Duration

	// Alert webhook.
	AlertWebhookURL string
	AlertsEnabled   bool
	AlertSource     string
	AlertTimeout    time.Duration

	// Sensor archive.
	InfluxURL     string
	InfluxToken   string
	InfluxOrg     string
	InfluxBucket  string
	InfluxEnabled bool

	SnapshotDB string

	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	PredictionMode     string
	PredictionInterval time.Duration
	StreamSensorRange  domain.DataRange
}

// Load reads configuration from environment variables, applying defaults where unset.
// A .env file in the working directory is read first; variables already set
// in the environment take precedence over it.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var errs []error
	duration := func(key, fallback string) time.Duration {
		d, err := parseDuration(key, fallback)
		errs = append(errs, err)
		return d
	}
	integer := func(key string, fallback, min int) int {
		n, err := parsePositiveInt(key, fallback, min)
		errs = append(errs, err)
		return n
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	errs = append(errs, err)

	cfg := &Config{
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		CORSAllowedOrigins: sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")),

		SupabaseURL:     strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseKey:     os.Getenv("SUPABASE_KEY"),
		SupabaseTimeout: duration("SUPABASE_TIMEOUT", "10s"),
		SupabaseRetries: integer("SUPABASE_RETRIES", 2, 0),
		SensorTable:     sharedcfg.EnvOrDefault("SENSOR_TABLE", "sensor_data"),
		MessagesTable:   sharedcfg.EnvOrDefault("MESSAGES_TABLE", "messages"),
		UsersTable:      sharedcfg.EnvOrDefault("USERS_TABLE", "users"),

		ChangefeedMode:    strings.ToLower(sharedcfg.EnvOrDefault("CHANGEFEED_MODE", ChangefeedPoll)),
		PollInterval:      duration("POLL_INTERVAL", "5s"),
		KafkaBrokers:      sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaChangesTopic: sharedcfg.EnvOrDefault("KAFKA_CHANGES_TOPIC", "db-changes"),
		KafkaGroupID:      sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "resqlink-dashboard"),
		KafkaAlertsTopic:  os.Getenv("KAFKA_ALERTS_TOPIC"),

		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherTimeout: duration("OPENWEATHER_TIMEOUT", "5s"),
		WeatherCacheSize:   integer("WEATHER_CACHE_SIZE", 256, 1),
		WeatherCacheTTL:    duration("WEATHER_CACHE_TTL", "10m"),

		AlertWebhookURL: os.Getenv("ALERT_WEBHOOK_URL"),
		AlertSource:     sharedcfg.EnvOrDefault("ALERT_SOURCE", "ResQlink_Admin_Panel"),
		AlertTimeout:    duration("ALERT_TIMEOUT", "10s"),

		InfluxURL:    os.Getenv("INFLUXDB_URL"),
		InfluxToken:  os.Getenv("INFLUXDB_TOKEN"),
		InfluxOrg:    os.Getenv("INFLUXDB_ORG"),
		InfluxBucket: sharedcfg.EnvOrDefault("INFLUXDB_BUCKET", "sensor_archive"),

		SnapshotDB: sharedcfg.EnvOrDefault("SNAPSHOT_DB", "snapshots.db"),

		JWTSecret:   os.Getenv("AUTH_JWT_SECRET"),
		JWTIssuer:   os.Getenv("AUTH_JWT_ISSUER"),
		JWTAudience: os.Getenv("AUTH_JWT_AUDIENCE"),

		PredictionMode:     strings.ToLower(sharedcfg.EnvOrDefault("PREDICTION_MODE", PredictionSensor)),
		PredictionInterval: duration("PREDICTION_INTERVAL", "30s"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	streamRange, err := domain.ParseDataRange(os.Getenv("STREAM_SENSOR_RANGE"))
	if err != nil {
		return nil, fmt.Errorf("invalid STREAM_SENSOR_RANGE: %w", err)
	}
	cfg.StreamSensorRange = streamRange

	cfg.OpenWeatherEnabled = cfg.OpenWeatherAPIKey != ""
	enabled, set, err := parseFlag("OPENWEATHER_ENABLED")
	if err != nil {
		return nil, err
	}
	if set {
		cfg.OpenWeatherEnabled = enabled
	}

	cfg.AlertsEnabled = cfg.AlertWebhookURL != ""
	cfg.InfluxEnabled = cfg.InfluxURL != ""

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.SupabaseURL == "" {
		return errors.New("SUPABASE_URL is required")
	}
	if c.SupabaseKey == "" {
		return errors.New("SUPABASE_KEY is required")
	}

	switch c.ChangefeedMode {
	case ChangefeedPoll:
	case ChangefeedKafka:
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required when CHANGEFEED_MODE is kafka")
		}
		if c.KafkaChangesTopic == "" {
			return errors.New("KAFKA_CHANGES_TOPIC is required when CHANGEFEED_MODE is kafka")
		}
	default:
		return fmt.Errorf("invalid CHANGEFEED_MODE: %q", c.ChangefeedMode)
	}

	if c.KafkaAlertsTopic != "" && len(c.KafkaBrokers) == 0 {
		return errors.New("KAFKA_BROKERS is required when KAFKA_ALERTS_TOPIC is set")
	}

	if c.OpenWeatherEnabled && c.OpenWeatherAPIKey == "" {
		return errors.New("OPENWEATHER_ENABLED is true but OPENWEATHER_API_KEY is not set")
	}

	if c.InfluxEnabled {
		if c.InfluxToken == "" {
			return errors.New("INFLUXDB_TOKEN is required when INFLUXDB_URL is set")
		}
		if c.InfluxOrg == "" {
			return errors.New("INFLUXDB_ORG is required when INFLUXDB_URL is set")
		}
	}

	if c.JWTSecret != "" && (c.JWTIssuer == "" || c.JWTAudience == "") {
		return errors.New("AUTH_JWT_ISSUER and AUTH_JWT_AUDIENCE are required when AUTH_JWT_SECRET is set")
	}

	switch c.PredictionMode {
	case PredictionSensor, PredictionSimulated:
	default:
		return fmt.Errorf("invalid PREDICTION_MODE: %q", c.PredictionMode)
	}
	return nil
}

// AuthEnabled reports whether alert triggering requires a bearer token.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
