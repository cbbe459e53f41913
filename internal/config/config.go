package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Client   ClientConfig
	Relay    RelayConfig
	Tracing  TracingConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
	NatsURL     string
	RedisURL    string
	JWTSecret   string
}

type DatabaseConfig struct {
	Connection string
}

// ClientConfig drives cmd/notifier. One notifier process is one tab of a signed-in user.
type ClientConfig struct {
	UserID      string `validate:"omitempty,uuid"`
	SessionMode string `validate:"omitempty,oneof=client professional admin"`

	// PageOrigin is the API origin, the realtime endpoint defaults to the same host.
	PageOrigin  string `validate:"required,url"`
	RealtimeURL string
	WSPath      string

	TokenSource       string `validate:"oneof=static dev oauth"`
	AccessToken       string
	OAuthTokenURL     string `validate:"required_if=TokenSource oauth"`
	OAuthClientID     string `validate:"required_if=TokenSource oauth"`
	OAuthClientSecret string
	OAuthRefreshToken string `validate:"required_if=TokenSource oauth"`

	MarkerBackend string `validate:"oneof=file redis memory"`
	MarkerPath    string

	RealtimeLogPath   string
	HeartbeatInterval time.Duration `validate:"gt=0"`
	LivenessTimeout   time.Duration `validate:"gtfield=HeartbeatInterval"`
	DialTimeout       time.Duration `validate:"gt=0"`
	CacheTTL          time.Duration `validate:"gt=0"`

	BreakerMaxFailures int `validate:"gte=1"`
	BreakerTimeout     time.Duration

	TerminalBell bool
}

type RelayConfig struct {
	Port               string
	CorsAllowedOrigins string
	PreferenceStore    string `validate:"oneof=postgres memory"`
	DebugEndpoints     bool
}

// TracingConfig feeds the relay's OpenTelemetry resource and sampler.
type TracingConfig struct {
	Enabled        bool
	Endpoint       string
	ServiceName    string
	ServiceVersion string
	InstanceID     string
	SampleRatio    float64 `validate:"gte=0,lte=1"`
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "logs/app.log"),
			NatsURL:     getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:   getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Client: ClientConfig{
			UserID:             getEnv("NOTIFIER_USER_ID", ""),
			SessionMode:        getEnv("NOTIFIER_SESSION_MODE", "client"),
			PageOrigin:         getEnv("APP_BASE_URL", "http://localhost:3000"),
			RealtimeURL:        getEnv("REALTIME_URL", ""),
			WSPath:             getEnv("REALTIME_WS_PATH", "/api/ws"),
			TokenSource:        getEnv("NOTIFIER_TOKEN_SOURCE", "static"),
			AccessToken:        getEnv("NOTIFIER_ACCESS_TOKEN", ""),
			OAuthTokenURL:      getEnv("OAUTH_TOKEN_URL", ""),
			OAuthClientID:      getEnv("OAUTH_CLIENT_ID", ""),
			OAuthClientSecret:  getEnv("OAUTH_CLIENT_SECRET", ""),
			OAuthRefreshToken:  getEnv("OAUTH_REFRESH_TOKEN", ""),
			MarkerBackend:      getEnv("SESSION_MARKER_BACKEND", "file"),
			MarkerPath:         getEnv("SESSION_MARKER_PATH", ".healthtrack/session_mode"),
			RealtimeLogPath:    getEnv("REALTIME_LOG_PATH", "logs/realtime.log"),
			HeartbeatInterval:  getEnvAsDuration("REALTIME_HEARTBEAT_INTERVAL", 25*time.Second),
			LivenessTimeout:    getEnvAsDuration("REALTIME_LIVENESS_TIMEOUT", 60*time.Second),
			DialTimeout:        getEnvAsDuration("REALTIME_DIAL_TIMEOUT", 15*time.Second),
			CacheTTL:           getEnvAsDuration("QUERY_CACHE_TTL", 5*time.Minute),
			BreakerMaxFailures: getEnvAsInt("PREFERENCES_BREAKER_MAX_FAILURES", 5),
			BreakerTimeout:     getEnvAsDuration("PREFERENCES_BREAKER_TIMEOUT", 30*time.Second),
			TerminalBell:       getEnvAsBool("NOTIFIER_TERMINAL_BELL", true),
		},
		Relay: RelayConfig{
			Port:               getEnv("APP_PORT", "3000"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			PreferenceStore:    getEnv("PREFERENCE_STORE", "postgres"),
			DebugEndpoints:     getEnvAsBool("DEBUG_ENDPOINTS", false),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
			Endpoint:       getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "healthtrack-relay"),
			ServiceVersion: getEnv("SERVICE_VERSION", "dev"),
			InstanceID:     getEnv("RELAY_INSTANCE_ID", hostname()),
			SampleRatio:    getEnvAsFloat("OTEL_SAMPLE_RATIO", 1),
		},
	}
}

var validate = validator.New()

// ValidateClient checks the settings cmd/notifier needs before anything dials out.
func (c *Config) ValidateClient() error {
	return validate.Struct(c.Client)
}

func (c *Config) ValidateRelay() error {
	if err := validate.Struct(c.Relay); err != nil {
		return err
	}
	return validate.Struct(c.Tracing)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil {
		return "relay"
	}
	return name
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}
