package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Tracing     TracingConfig `mapstructure:"tracing"`
	Redis       RedisConfig
	CORS        CORSConfig        `mapstructure:"cors"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Grading     GradingConfig     `mapstructure:"grading"`
	Certificate CertificateConfig `mapstructure:"certificate"`
	Outbox      OutboxConfig      `mapstructure:"outbox"`
	Log         LogConfig         `mapstructure:"log"`

	// runtime flags, set from the command line
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

// LogConfig controls the rotated JSON log file. An empty Level means debug in
// debug mode and info otherwise.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Driver    string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
	SSLMode   string `mapstructure:"sslmode"`
	Path      string `mapstructure:"path"` // sqlite file
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type GradingConfig struct {
	MaxSubmitRetries int `mapstructure:"max_submit_retries"`
}

// GradeBands holds the lower bounds (inclusive) of each certificate grade.
// Anything below Fair is PASS.
type GradeBands struct {
	Excellent float64 `mapstructure:"excellent"`
	Good      float64 `mapstructure:"good"`
	Fair      float64 `mapstructure:"fair"`
}

func (b GradeBands) Validate() error {
	if b.Excellent > 100 || b.Fair <= 0 {
		return fmt.Errorf("grade bands must lie within (0, 100], got %+v", b)
	}
	if !(b.Excellent > b.Good && b.Good > b.Fair) {
		return fmt.Errorf("grade bands must be strictly descending (excellent > good > fair), got %+v", b)
	}
	return nil
}

type CertificateConfig struct {
	Bands           GradeBands `mapstructure:"bands"`
	SigningKey      string     `mapstructure:"signing_key"`
	CacheTTLMinutes int        `mapstructure:"cache_ttl_minutes"`
}

type OutboxConfig struct {
	IntervalSeconds int    `mapstructure:"interval_seconds"`
	BatchSize       int    `mapstructure:"batch_size"`
	MaxAttempts     int    `mapstructure:"max_attempts"`
	ChannelPrefix   string `mapstructure:"channel_prefix"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "elearning.db")
	v.SetDefault("jwt.expire_hours", 72)
	v.SetDefault("rate_limit.max_requests", 6000)
	v.SetDefault("rate_limit.window_minutes", 1)
	v.SetDefault("grading.max_submit_retries", 3)
	v.SetDefault("certificate.bands.excellent", 90)
	v.SetDefault("certificate.bands.good", 80)
	v.SetDefault("certificate.bands.fair", 70)
	v.SetDefault("certificate.cache_ttl_minutes", 30)
	v.SetDefault("outbox.interval_seconds", 5)
	v.SetDefault("outbox.batch_size", 100)
	v.SetDefault("outbox.max_attempts", 10)
	v.SetDefault("outbox.channel_prefix", "elearning")
	v.SetDefault("log.file", "logs/app.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("log.compress", true)
}

func LoadConfig(path string) (*Config, error) {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("ELEARN")
	v.AutomaticEnv()
	setDefaults(v)

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	v.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	v.BindEnv("server.mode", "SERVER_MODE")
	v.BindEnv("server.port", "SERVER_PORT")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Certificate
	v.BindEnv("certificate.signing_key", "CERTIFICATE_SIGNING_KEY")

	// Log
	v.BindEnv("log.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}
	if cfg.Server.Mode == "release" && cfg.Certificate.SigningKey == "" {
		return nil, fmt.Errorf("certificate signing key must be set in release mode")
	}
	if err := cfg.Certificate.Bands.Validate(); err != nil {
		return nil, err
	}

	if cfg.Database.Driver == "sqlite" {
		if _, err := os.Stat(cfg.Database.Path); os.IsNotExist(err) {
			if f, err := os.Create(cfg.Database.Path); err == nil {
				f.Close()
			}
		}
	}

	return &cfg, nil
}
