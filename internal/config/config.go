package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName     string
	AppEnv      string
	AppPort     string
	DatabaseURL string
	RedisURL    string
	NATSURL     string
	JWTSecret   string

	TransportEndpoint  string
	TransportAccessKey string

	SafetyEndpoint string
	SafetyAPIKey   string

	OracleAPIKey  string
	OracleBaseURL string
	OracleModel   string

	AssistantEndpoint   string
	AssistantAPIKey     string
	AssistantDeployment string
	AssistantAPIVersion string
	AssistantTimeout    time.Duration

	SeedEnabled bool
	SeedToken   string

	RateLimitPerMinute int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// AssistantConfigured reports whether all assistant upstream settings are
// present. A partially configured assistant is treated as unconfigured.
func (c Config) AssistantConfigured() bool {
	return c.AssistantEndpoint != "" && c.AssistantAPIKey != "" &&
		c.AssistantDeployment != "" && c.AssistantAPIVersion != ""
}

// TransportConfigured reports whether the real transport is configured.
// Without it the in-memory simulator is used.
func (c Config) TransportConfigured() bool {
	return c.TransportEndpoint != "" && c.TransportAccessKey != ""
}

// SafetyConfigured reports whether the content safety classifier is
// configured.
func (c Config) SafetyConfigured() bool {
	return c.SafetyEndpoint != "" && c.SafetyAPIKey != ""
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SCHOOLCHAT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "SchoolChat API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("assistant.api_version", "2024-08-01-preview")
	v.SetDefault("assistant.timeout", "15s")
	v.SetDefault("rate_limit_per_minute", 120)

	timeoutString := v.GetString("assistant.timeout")
	if timeoutString == "" {
		timeoutString = "15s"
	}
	timeout, err := time.ParseDuration(timeoutString)
	if err != nil {
		return Config{}, fmt.Errorf("invalid assistant timeout: %w", err)
	}

	cfg := Config{
		AppName:     v.GetString("app.name"),
		AppEnv:      v.GetString("app.env"),
		AppPort:     v.GetString("app.port"),
		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		NATSURL:     v.GetString("nats.url"),
		JWTSecret:   v.GetString("jwt.secret"),

		TransportEndpoint:  v.GetString("transport.endpoint"),
		TransportAccessKey: v.GetString("transport.access_key"),

		SafetyEndpoint: v.GetString("safety.endpoint"),
		SafetyAPIKey:   v.GetString("safety.api_key"),

		OracleAPIKey:  v.GetString("oracle.api_key"),
		OracleBaseURL: v.GetString("oracle.base_url"),
		OracleModel:   v.GetString("oracle.model"),

		AssistantEndpoint:   v.GetString("assistant.endpoint"),
		AssistantAPIKey:     v.GetString("assistant.api_key"),
		AssistantDeployment: v.GetString("assistant.deployment"),
		AssistantAPIVersion: v.GetString("assistant.api_version"),
		AssistantTimeout:    timeout,

		SeedEnabled: v.GetBool("seed.enabled"),
		SeedToken:   v.GetString("seed.token"),

		RateLimitPerMinute: v.GetInt("rate_limit_per_minute"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = 120
	}

	return cfg, nil
}
