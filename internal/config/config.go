package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server              ServerConfig              `mapstructure:"server"`
	Auth                AuthConfig                `mapstructure:"auth"`
	Transport           TransportConfig           `mapstructure:"transport"`
	Kafka               KafkaConfig               `mapstructure:"kafka"`
	Redis               RedisConfig               `mapstructure:"redis"`
	NotificationService NotificationServiceConfig `mapstructure:"notification_service"`
	Database            DatabaseConfig            `mapstructure:"database"`
	Dashboard           DashboardConfig           `mapstructure:"dashboard"`
	Toast               ToastConfig               `mapstructure:"toast"`
	Sessions            SessionsConfig            `mapstructure:"sessions"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
	Env  string `mapstructure:"env"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	// Issuer is checked against the "iss" claim when set.
	Issuer string `mapstructure:"issuer"`
}

// Transport drivers.
const (
	DriverKafka  = "kafka"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type TransportConfig struct {
	Driver         string        `mapstructure:"driver"`
	ReconnectDelay time.Duration `mapstructure:"reconnect_delay"`
	QueueSize      int           `mapstructure:"queue_size"`
}

type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	ClientID    string   `mapstructure:"client_id"`
}

type RedisConfig struct {
	URL           string `mapstructure:"url"`
	ChannelPrefix string `mapstructure:"channel_prefix"`
}

// Notification Service drivers.
const (
	SourceREST     = "rest"
	SourcePostgres = "postgres"
)

type NotificationServiceConfig struct {
	Driver   string        `mapstructure:"driver"`
	BaseURL  string        `mapstructure:"base_url"`
	PageSize int           `mapstructure:"page_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

type DashboardConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type ToastConfig struct {
	Max int           `mapstructure:"max"`
	TTL time.Duration `mapstructure:"ttl"`
}

type SessionsConfig struct {
	IdleTTL         time.Duration `mapstructure:"idle_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// Load reads configuration from environment variables and config files.
// Environment variables override file values. Prefix: FEED_
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// Environment variables (e.g. FEED_TRANSPORT_DRIVER -> transport.driver)
	v.SetEnvPrefix("FEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Also support simple env vars without prefix for Docker Compose convenience
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("database.port", "DB_PORT")
	_ = v.BindEnv("database.name", "DB_NAME")
	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("kafka.brokers", "KAFKA_BROKERS")
	_ = v.BindEnv("redis.url", "REDIS_URL")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("notification_service.base_url", "NOTIFICATION_SERVICE_URL")
	_ = v.BindEnv("dashboard.base_url", "DASHBOARD_SERVICE_URL")
	_ = v.BindEnv("server.port", "PORT")

	// Try loading config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig() // Not required

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	// KAFKA_BROKERS arrives as one comma-separated string.
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8091")
	v.SetDefault("server.env", "development")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.issuer", "")
	v.SetDefault("transport.driver", DriverKafka)
	v.SetDefault("transport.reconnect_delay", 3*time.Second)
	v.SetDefault("transport.queue_size", 256)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic_prefix", "")
	v.SetDefault("kafka.client_id", "notifeed")
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel_prefix", "")
	v.SetDefault("notification_service.driver", SourceREST)
	v.SetDefault("notification_service.base_url", "http://localhost:8090")
	v.SetDefault("notification_service.page_size", 50)
	v.SetDefault("notification_service.timeout", 10*time.Second)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "arda_notification")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "password")
	v.SetDefault("dashboard.base_url", "http://localhost:8080/api")
	v.SetDefault("dashboard.timeout", 10*time.Second)
	v.SetDefault("dashboard.cache_ttl", 15*time.Second)
	v.SetDefault("toast.max", 3)
	v.SetDefault("toast.ttl", 5*time.Second)
	v.SetDefault("sessions.idle_ttl", 30*time.Minute)
	v.SetDefault("sessions.cleanup_interval", time.Minute)
}

// Validate rejects settings the gateway cannot start with.
func (c *Config) Validate() error {
	switch c.Transport.Driver {
	case DriverKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("config: kafka transport needs at least one broker")
		}
	case DriverRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("config: redis transport needs redis.url")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("config: unknown transport driver %q", c.Transport.Driver)
	}

	switch c.NotificationService.Driver {
	case SourceREST, SourcePostgres:
	default:
		return fmt.Errorf("config: unknown notification_service driver %q", c.NotificationService.Driver)
	}

	if c.Auth.JWTSecret == "" && c.Server.Env == "production" {
		return fmt.Errorf("config: auth.jwt_secret is required in production")
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host +
		" port=" + strconv.Itoa(d.Port) +
		" dbname=" + d.Name +
		" user=" + d.User +
		" password=" + d.Password +
		" sslmode=disable"
}

func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
