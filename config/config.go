package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig     `mapstructure:"server"`
	Database  DatabaseConfig   `mapstructure:"database"`
	Redis     RedisConfig      `mapstructure:"redis"`
	JWT       JWTConfig        `mapstructure:"jwt"`
	Log       LogConfig        `mapstructure:"log"`
	Providers  ProvidersConfig   `mapstructure:"providers"`
	Webhook    WebhookSignConfig `mapstructure:"webhook"`
	Queue      QueueConfig       `mapstructure:"queue"`
	Encryption EncryptionConfig  `mapstructure:"encryption"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test

	// PublicBaseURL is this instance's externally reachable origin, used
	// to build the NatCash callback URL handed to the processor on create.
	PublicBaseURL string `mapstructure:"public_base_url"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig configures the dashboard-facing JWT trust boundary.
// The authentication subsystem itself is out of core scope (spec §1);
// this is only the boundary the payment API trusts.
type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// ProviderConfig holds per-processor credentials and endpoints.
type ProviderConfig struct {
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	BaseURL       string `mapstructure:"base_url"`
	WebhookSecret string `mapstructure:"webhook_secret"` // Stripe only
}

// Configured reports whether enough credentials are present to call out.
func (p ProviderConfig) Configured() bool {
	return p.ClientID != "" && p.ClientSecret != "" && p.BaseURL != ""
}

type ProvidersConfig struct {
	MonCash ProviderConfig `mapstructure:"moncash"`
	NatCash ProviderConfig `mapstructure:"natcash"`
	Stripe  ProviderConfig `mapstructure:"stripe"`
}

// WebhookSignConfig holds a gateway-wide default signing secret loaded from
// configuration. The webhook dispatcher does not read it; deliveries are
// always signed with the merchant WebhookConfig's own secret.
type WebhookSignConfig struct {
	DefaultSecret string `mapstructure:"default_secret"`
}

// EncryptionConfig holds the key used to seal merchant webhook secrets
// at rest (AES-256-GCM). Key must decode to exactly 32 bytes.
type EncryptionConfig struct {
	KeyHex string `mapstructure:"key_hex"`
}

// QueueConfig tunes the durable job queue (component D).
type QueueConfig struct {
	PaymentConcurrency int           `mapstructure:"payment_concurrency"`
	PaymentAttempts    int           `mapstructure:"payment_attempts"`
	PaymentBackoff     time.Duration `mapstructure:"payment_backoff"`
	WebhookConcurrency int           `mapstructure:"webhook_concurrency"`
	WebhookAttempts    int           `mapstructure:"webhook_attempts"`
	WebhookBackoff     time.Duration `mapstructure:"webhook_backoff"`
	PollInterval       time.Duration `mapstructure:"poll_interval"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: DHC_ (DheCash).
// Nested keys use underscore: DHC_DATABASE_HOST, DHC_JWT_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.public_base_url", "http://localhost:8080")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "dhecash_gateway")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "dhecash-gateway")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("providers.moncash.base_url", "https://sandbox.moncashbutton.digicelgroup.com")
	v.SetDefault("providers.natcash.base_url", "https://sandbox.natcash.co")
	v.SetDefault("providers.stripe.base_url", "https://api.stripe.com")

	v.SetDefault("webhook.default_secret", "")
	v.SetDefault("encryption.key_hex", "")

	v.SetDefault("queue.payment_concurrency", 5)
	v.SetDefault("queue.payment_attempts", 3)
	v.SetDefault("queue.payment_backoff", "2s")
	v.SetDefault("queue.webhook_concurrency", 10)
	v.SetDefault("queue.webhook_attempts", 5)
	v.SetDefault("queue.webhook_backoff", "5s")
	v.SetDefault("queue.poll_interval", "500ms")

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: DHC_DATABASE_HOST -> database.host
	v.SetEnvPrefix("DHC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required — env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
