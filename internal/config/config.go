package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/chittyos/registry-sync/internal/pkg/secrets"
)

// Config holds all application configuration. Clients receive it explicitly
// through their constructors; nothing reads ambient environment state after
// Load returns.
type Config struct {
	Server     ServerConfig
	Cloudflare CloudflareConfig
	Registry   RegistryConfig
	Webhook    WebhookConfig
	Sync       SyncConfig
	State      StateConfig
	Logging    LoggingConfig
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigin   string
	Environment     string
}

// CloudflareConfig contains Cloudflare API configuration
type CloudflareConfig struct {
	BaseURL   string
	APIKey    string
	Email     string
	AccountID string
	PageSize  int
	Timeout   time.Duration
}

// RegistryConfig contains registry service configuration
type RegistryConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// WebhookConfig contains webhook listener configuration
type WebhookConfig struct {
	Secret       string
	Workers      int
	QueueSize    int
	EventLogPath string
}

// SyncConfig contains sync orchestration configuration
type SyncConfig struct {
	Schedule    string // cron expression, empty disables periodic sync
	PublishToKV bool
	KVTitle     string
}

// StateConfig contains persisted-state layout configuration
type StateConfig struct {
	Dir          string
	RunLogPath   string
	SnapshotPath string
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string
	Format string // json or console
}

// Secret references tried before the plain environment variables. The
// resolver itself falls back to an env var derived from the last path
// segment.
const (
	refAPIKey    = "op://chittyos/Cloudflare API KEYS/cloudflare_api_key"
	refEmail     = "op://chittyos/Cloudflare API KEYS/cloudflare_email"
	refAccountID = "op://chittyos/Cloudflare API KEYS/cloudflare_account_id"
)

// Load loads configuration from environment variables, resolving Cloudflare
// credentials through the given secret resolver.
func Load(resolver secrets.Resolver) (*Config, error) {
	// Load .env file if it exists (ignore errors as it's optional)
	_ = godotenv.Load()

	if resolver == nil {
		resolver = &secrets.OpResolver{}
	}

	stateDir := getEnv("STATE_DIR", ".")

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("WEBHOOK_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigin:   getEnv("ALLOWED_ORIGIN", "*"),
			Environment:     getEnv("ENVIRONMENT", "development"),
		},
		Cloudflare: CloudflareConfig{
			BaseURL:   getEnv("CLOUDFLARE_API_URL", "https://api.cloudflare.com/client/v4"),
			APIKey:    resolveSecret(resolver, refAPIKey),
			Email:     resolveSecret(resolver, refEmail),
			AccountID: resolveSecret(resolver, refAccountID),
			PageSize:  getEnvAsInt("CLOUDFLARE_PAGE_SIZE", 50),
			Timeout:   getEnvAsDuration("CLOUDFLARE_TIMEOUT", 30*time.Second),
		},
		Registry: RegistryConfig{
			BaseURL: getEnv("REGISTRY_API_URL", "https://chitty.cc/registry"),
			APIKey:  getEnv("REGISTRY_API_KEY", ""),
			Timeout: getEnvAsDuration("REGISTRY_TIMEOUT", 30*time.Second),
		},
		Webhook: WebhookConfig{
			Secret:       getEnv("CLOUDFLARE_WEBHOOK_SECRET", ""),
			Workers:      getEnvAsInt("WEBHOOK_WORKERS", 4),
			QueueSize:    getEnvAsInt("WEBHOOK_QUEUE_SIZE", 256),
			EventLogPath: getEnv("WEBHOOK_EVENT_LOG", stateDir+"/webhook_events.log"),
		},
		Sync: SyncConfig{
			Schedule:    getEnv("SYNC_SCHEDULE", ""),
			PublishToKV: getEnvAsBool("SYNC_PUBLISH_KV", false),
			KVTitle:     getEnv("SYNC_KV_TITLE", "resource-registry"),
		},
		State: StateConfig{
			Dir:          stateDir,
			RunLogPath:   getEnv("SYNC_RUN_LOG", stateDir+"/sync_all.log"),
			SnapshotPath: getEnv("SYNC_SNAPSHOT", stateDir+"/full_sync_snapshot.json"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// resolveSecret returns the resolved secret or empty string; missing
// credentials are reported by Validate so that commands which do not need
// them can still run.
func resolveSecret(r secrets.Resolver, reference string) string {
	v, err := r.Resolve(reference)
	if err != nil {
		return ""
	}
	return v
}

// ValidateCloudflare checks that provider credentials are present. Missing
// credentials are the only failure allowed to abort a run at startup.
func (c *Config) ValidateCloudflare() error {
	if c.Cloudflare.APIKey == "" {
		return fmt.Errorf("missing Cloudflare API key (set %s)", secrets.EnvKey(refAPIKey))
	}
	if c.Cloudflare.Email == "" {
		return fmt.Errorf("missing Cloudflare email (set %s)", secrets.EnvKey(refEmail))
	}
	if c.Cloudflare.AccountID == "" {
		return fmt.Errorf("missing Cloudflare account ID (set %s)", secrets.EnvKey(refAccountID))
	}
	if c.Cloudflare.PageSize < 1 {
		return fmt.Errorf("invalid page size: %d", c.Cloudflare.PageSize)
	}
	return nil
}

// ValidateServer checks the webhook listener configuration.
func (c *Config) ValidateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("CLOUDFLARE_WEBHOOK_SECRET must be set")
	}
	if c.Registry.APIKey == "" {
		return fmt.Errorf("REGISTRY_API_KEY must be set")
	}
	if c.Webhook.Workers < 1 {
		return fmt.Errorf("invalid worker count: %d", c.Webhook.Workers)
	}
	return nil
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
