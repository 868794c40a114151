package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultHTTPPort       = 8080
	DefaultStoragePath    = "loglens.db"
	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisChannel   = "loglens:logs:inserted"
	DefaultWatcherBackoff = 5 * time.Second
	DefaultScoringTimeout = 10 * time.Second
	DefaultAlertCooldown  = 15 * time.Minute
	DefaultStreamInterval = 5 * time.Second
)

// Config is the top-level configuration for the loglens server.
// Fields map 1:1 to config.example.yaml.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Redis   RedisConfig   `yaml:"redis"`
	Watcher WatcherConfig `yaml:"watcher"`
	Scoring ScoringConfig `yaml:"scoring"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Stream  StreamConfig  `yaml:"stream"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	// HTTPPort is the port the REST API, WebSocket hub, and metrics
	// endpoint listen on.
	HTTPPort int `yaml:"http_port"`
}

// StorageConfig configures the SQLite persistence backend.
type StorageConfig struct {
	// Path is the filesystem path for the SQLite database file.
	Path string `yaml:"path"`
}

// RedisConfig configures the change-event channel.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string `yaml:"addr"`

	// PasswordEnv is the name of the environment variable holding the
	// Redis password. Leave empty for unauthenticated servers.
	PasswordEnv string `yaml:"password_env"`

	// DB is the Redis logical database number.
	DB int `yaml:"db"`

	// Channel is the pub/sub channel insert events are published on.
	Channel string `yaml:"channel"`
}

// Password returns the Redis password resolved from the environment.
// Returns empty string if PasswordEnv is unset or the variable is not found.
func (r RedisConfig) Password() string {
	if r.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(r.PasswordEnv)
}

// WatcherConfig controls the change watcher's reconnect behavior.
type WatcherConfig struct {
	// Backoff is the fixed delay between reconnect attempts after the
	// event feed fails.
	Backoff time.Duration `yaml:"backoff"`
}

// ScoringConfig configures the anomaly scoring service client.
type ScoringConfig struct {
	// URL is the base URL of the scoring service. Empty disables scoring.
	URL string `yaml:"url"`

	// Timeout bounds each scoring request.
	Timeout time.Duration `yaml:"timeout"`
}

// AlertsConfig holds error-threshold alerting settings.
type AlertsConfig struct {
	// ThresholdName is the stored-threshold row consulted when a request
	// does not supply an explicit threshold.
	ThresholdName string `yaml:"threshold_name"`

	// Cooldown suppresses repeat webhook deliveries for this duration
	// after an alert fires.
	Cooldown time.Duration `yaml:"cooldown"`

	// Webhooks is the list of delivery targets.
	Webhooks []Webhook `yaml:"webhooks"`
}

// Webhook defines one webhook delivery target.
type Webhook struct {
	// Type is one of: slack | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`
}

// URL returns the webhook URL resolved from the environment.
func (w Webhook) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// StreamConfig controls the WebSocket broadcast loop.
type StreamConfig struct {
	// Interval is how often recent derived records are pushed to
	// connected WebSocket clients.
	Interval time.Duration `yaml:"interval"`
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with sensible defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// defaults returns a Config pre-populated with default values.
func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
		},
		Storage: StorageConfig{
			Path: DefaultStoragePath,
		},
		Redis: RedisConfig{
			Addr:    DefaultRedisAddr,
			Channel: DefaultRedisChannel,
		},
		Watcher: WatcherConfig{
			Backoff: DefaultWatcherBackoff,
		},
		Scoring: ScoringConfig{
			Timeout: DefaultScoringTimeout,
		},
		Alerts: AlertsConfig{
			ThresholdName: "error_threshold",
			Cooldown:      DefaultAlertCooldown,
		},
		Stream: StreamConfig{
			Interval: DefaultStreamInterval,
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port must be in 1..65535")
	}
	if cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	if cfg.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required")
	}
	if cfg.Redis.Channel == "" {
		return fmt.Errorf("redis.channel is required")
	}
	if cfg.Watcher.Backoff <= 0 {
		return fmt.Errorf("watcher.backoff must be positive")
	}
	if cfg.Scoring.Timeout <= 0 {
		return fmt.Errorf("scoring.timeout must be positive")
	}
	if cfg.Stream.Interval <= 0 {
		return fmt.Errorf("stream.interval must be positive")
	}
	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "http", "":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("alerts.webhooks[%d]: url_env is required", i)
		}
	}
	return nil
}
