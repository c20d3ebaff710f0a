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
	NATSAddress string
	JWTSecret   string

	ProviderURL          string
	ProviderSharedSecret string
	LogoutURL            string
	WaitPollInterval     time.Duration
	RecordingsCacheTTL   time.Duration
	NotificationChannel  string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	PresentationFolder  string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("AULA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "AULA Live API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("provider.wait_poll_interval", "10s")
	v.SetDefault("recordings.cache_ttl", "5m")
	v.SetDefault("notification.channel", "aula:live")
	v.SetDefault("presentation.folder", "aula/presentations")

	pollInterval, err := time.ParseDuration(v.GetString("provider.wait_poll_interval"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid wait poll interval: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("recordings.cache_ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid recordings cache ttl: %w", err)
	}

	cfg := Config{
		AppName:              v.GetString("app.name"),
		AppEnv:               v.GetString("app.env"),
		AppPort:              v.GetString("app.port"),
		DatabaseURL:          v.GetString("database.url"),
		RedisURL:             v.GetString("redis.url"),
		NATSAddress:          v.GetString("nats.url"),
		JWTSecret:            v.GetString("jwt.secret"),
		ProviderURL:          strings.TrimRight(strings.TrimSpace(v.GetString("provider.url")), "/"),
		ProviderSharedSecret: strings.TrimSpace(v.GetString("provider.shared_secret")),
		LogoutURL:            v.GetString("provider.logout_url"),
		WaitPollInterval:     pollInterval,
		RecordingsCacheTTL:   cacheTTL,
		NotificationChannel:  v.GetString("notification.channel"),
		CloudinaryCloudName:  v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:     v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:  v.GetString("cloudinary.api_secret"),
		PresentationFolder:   v.GetString("presentation.folder"),
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	if cfg.ProviderURL == "" || cfg.ProviderSharedSecret == "" {
		return Config{}, fmt.Errorf("conferencing provider url and shared secret must be provided")
	}

	return cfg, nil
}
