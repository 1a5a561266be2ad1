package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	HTTPClient    HTTPClientConfig    `mapstructure:"http_client"`
	Auth          AuthConfig          `mapstructure:"auth"`
	AccessControl AccessControlConfig `mapstructure:"access_control"`
	Payments      PaymentsConfig      `mapstructure:"payments"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Log           LogConfig           `mapstructure:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`

	// RateLimit caps order mutations per user per RateLimitWindow. Zero disables it.
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	// SlowQuery is the duration above which statements are logged as warnings.
	SlowQuery       time.Duration `mapstructure:"slow_query"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration. An empty address disables Redis.
type RedisConfig struct {
	Address      string        `mapstructure:"address"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// HTTPClientConfig holds outbound HTTP client settings.
type HTTPClientConfig struct {
	MaxIdleConns        int           `mapstructure:"max_idle_conns"`
	MaxIdleConnsPerHost int           `mapstructure:"max_idle_conns_per_host"`
	MaxConnsPerHost     int           `mapstructure:"max_conns_per_host"`
	IdleConnTimeout     time.Duration `mapstructure:"idle_conn_timeout"`
	DialTimeout         time.Duration `mapstructure:"dial_timeout"`
	TLSHandshakeTimeout time.Duration `mapstructure:"tls_handshake_timeout"`
	KeepAlive           time.Duration `mapstructure:"keep_alive"`
}

// AuthConfig holds JWT validation settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// AccessControlConfig lists users holding manage-payments on every course.
type AccessControlConfig struct {
	AdminUserIDs []string `mapstructure:"admin_user_ids"`
}

// PaymentsConfig holds order lifecycle settings.
type PaymentsConfig struct {
	Cutoff                  string        `mapstructure:"cutoff"`
	Timezone                string        `mapstructure:"timezone"`
	ExpiryWindow            time.Duration `mapstructure:"expiry_window"`
	NewOrderGrace           time.Duration `mapstructure:"new_order_grace"`
	MaxPageSize             int           `mapstructure:"max_page_size"`
	DefaultPageSize         int           `mapstructure:"default_page_size"`
	ConfirmationTTL         time.Duration `mapstructure:"confirmation_ttl"`
	IdempotencyTTL          time.Duration `mapstructure:"idempotency_ttl"`
	AllowReviewFailedDelete bool          `mapstructure:"allow_review_failed_delete"`
	ReconcileBatchSize      int           `mapstructure:"reconcile_batch_size"`
}

// GatewayConfig selects and configures the payment gateway.
type GatewayConfig struct {
	Provider string        `mapstructure:"provider"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
	AIM      AIMConfig     `mapstructure:"aim"`
	Stripe   StripeConfig  `mapstructure:"stripe"`
}

// BreakerConfig holds circuit breaker settings.
type BreakerConfig struct {
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

// AIMConfig holds the card gateway's form-post API settings.
type AIMConfig struct {
	Endpoint       string      `mapstructure:"endpoint"`
	LoginID        string      `mapstructure:"login_id"`
	TransactionKey string      `mapstructure:"transaction_key"`
	TestMode       bool        `mapstructure:"test_mode"`
	OAuth          OAuthConfig `mapstructure:"oauth"`
}

// OAuthConfig enables client-credentials auth in front of the gateway.
type OAuthConfig struct {
	TokenURL     string   `mapstructure:"token_url"`
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	Scopes       []string `mapstructure:"scopes"`
}

// Enabled reports whether client-credentials auth is configured.
func (c OAuthConfig) Enabled() bool {
	return c.TokenURL != "" && c.ClientID != ""
}

// StripeConfig holds Stripe configuration.
type StripeConfig struct {
	SecretKey string `mapstructure:"secret_key"`
}

// KafkaConfig holds the order event forwarder settings. No brokers disables it.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// StorageConfig holds object storage configuration for incident archives.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	IncidentPrefix  string `mapstructure:"incident_prefix"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads configuration from path, which must exist. An empty path
// searches the default locations and tolerates a missing file.
func LoadFile(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/coursepay")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("COURSEPAY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Secrets may also come from short environment names.
	if secret := os.Getenv("COURSEPAY_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("COURSEPAY_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("COURSEPAY_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("COURSEPAY_AIM_TRANSACTION_KEY"); key != "" {
		cfg.Gateway.AIM.TransactionKey = key
	}
	if key := os.Getenv("COURSEPAY_STRIPE_SECRET_KEY"); key != "" {
		cfg.Gateway.Stripe.SecretKey = key
	}
	if key := os.Getenv("COURSEPAY_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Gateway.Provider {
	case "aim", "stripe":
	default:
		return fmt.Errorf("unknown gateway provider %q", c.Gateway.Provider)
	}
	if c.Payments.MaxPageSize <= 0 || c.Payments.DefaultPageSize <= 0 {
		return errors.New("payments page sizes must be positive")
	}
	if c.Payments.DefaultPageSize > c.Payments.MaxPageSize {
		return errors.New("payments.default_page_size exceeds payments.max_page_size")
	}
	return nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 30)
	v.SetDefault("server.rate_limit_window", time.Minute)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "coursepay")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.slow_query", 200*time.Millisecond)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 20)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	// HTTP client defaults
	v.SetDefault("http_client.max_idle_conns", 100)
	v.SetDefault("http_client.max_idle_conns_per_host", 10)
	v.SetDefault("http_client.max_conns_per_host", 20)
	v.SetDefault("http_client.idle_conn_timeout", 90*time.Second)
	v.SetDefault("http_client.dial_timeout", 10*time.Second)
	v.SetDefault("http_client.tls_handshake_timeout", 10*time.Second)
	v.SetDefault("http_client.keep_alive", 30*time.Second)

	// Auth defaults
	v.SetDefault("auth.issuer", "coursepay")

	// Payments defaults
	v.SetDefault("payments.cutoff", "00:05")
	v.SetDefault("payments.timezone", "UTC")
	v.SetDefault("payments.expiry_window", 720*time.Hour)
	v.SetDefault("payments.new_order_grace", 2*time.Minute)
	v.SetDefault("payments.max_page_size", 100)
	v.SetDefault("payments.default_page_size", 20)
	v.SetDefault("payments.confirmation_ttl", 10*time.Minute)
	v.SetDefault("payments.idempotency_ttl", 24*time.Hour)
	v.SetDefault("payments.allow_review_failed_delete", true)
	v.SetDefault("payments.reconcile_batch_size", 500)

	// Gateway defaults
	v.SetDefault("gateway.provider", "aim")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.breaker.failure_threshold", 5)
	v.SetDefault("gateway.breaker.open_timeout", 30*time.Second)
	v.SetDefault("gateway.aim.endpoint", "https://secure.authorize.net/gateway/transact.dll")

	// Kafka defaults
	v.SetDefault("kafka.topic", "coursepay.orders")

	// Storage defaults
	v.SetDefault("storage.region", "auto")
	v.SetDefault("storage.incident_prefix", "incidents/")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}
