package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Exchange  ExchangeConfig
	Import    ImportConfig
	Notify    NotifyConfig
	Retention RetentionConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	MaxBodySize    int64
	TrustedProxies []string
}

// ExchangeConfig holds 1C exchange file handling settings
type ExchangeConfig struct {
	UploadDir  string // where uploaded archives land
	StagingDir string // where archives are unpacked for workers
}

// ImportConfig holds import orchestration settings
type ImportConfig struct {
	Workers        int           // worker pool size
	QueueSize      int           // dispatch queue capacity
	TimeLimit      time.Duration // soft per-session execution limit
	LockTTL        time.Duration // global import lock lifetime
	StaleThreshold time.Duration // silence window before a session is reaped
	ReapInterval   time.Duration // how often the reaper sweeps
}

// NotifyConfig holds admin notification settings
type NotifyConfig struct {
	Enabled    bool
	SMTPHost   string
	SMTPPort   int
	Username   string
	Password   string
	From       string
	Recipients []string
}

// RetentionConfig holds sync log retention settings
type RetentionConfig struct {
	LogMaxAge     time.Duration // how long sync log rows are kept
	SweepInterval time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with PORTAL_ prefix (e.g., PORTAL_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			MaxBodySize:    v.GetInt64("http.max_body_size"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Exchange: ExchangeConfig{
			UploadDir:  v.GetString("exchange.upload_dir"),
			StagingDir: v.GetString("exchange.staging_dir"),
		},
		Import: ImportConfig{
			Workers:        v.GetInt("import.workers"),
			QueueSize:      v.GetInt("import.queue_size"),
			TimeLimit:      v.GetDuration("import.time_limit"),
			LockTTL:        v.GetDuration("import.lock_ttl"),
			StaleThreshold: v.GetDuration("import.stale_threshold"),
			ReapInterval:   v.GetDuration("import.reap_interval"),
		},
		Notify: NotifyConfig{
			Enabled:    v.GetBool("notify.enabled"),
			SMTPHost:   v.GetString("notify.smtp_host"),
			SMTPPort:   v.GetInt("notify.smtp_port"),
			Username:   v.GetString("notify.username"),
			Password:   v.GetString("notify.password"),
			From:       v.GetString("notify.from"),
			Recipients: v.GetStringSlice("notify.recipients"),
		},
		Retention: RetentionConfig{
			LogMaxAge:     v.GetDuration("retention.log_max_age"),
			SweepInterval: v.GetDuration("retention.sweep_interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "portal-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "portal"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 100 << 20 // exchange archives can be large
	}
	if cfg.Exchange.UploadDir == "" {
		cfg.Exchange.UploadDir = "./data/exchange/upload"
	}
	if cfg.Exchange.StagingDir == "" {
		cfg.Exchange.StagingDir = "./data/exchange/staging"
	}
	if cfg.Import.Workers == 0 {
		cfg.Import.Workers = 2
	}
	if cfg.Import.QueueSize == 0 {
		cfg.Import.QueueSize = 32
	}
	if cfg.Import.TimeLimit == 0 {
		cfg.Import.TimeLimit = 30 * time.Minute
	}
	if cfg.Import.LockTTL == 0 {
		cfg.Import.LockTTL = time.Hour
	}
	if cfg.Import.StaleThreshold == 0 {
		cfg.Import.StaleThreshold = 2 * time.Hour
	}
	if cfg.Import.ReapInterval == 0 {
		cfg.Import.ReapInterval = 10 * time.Minute
	}
	if cfg.Notify.SMTPPort == 0 {
		cfg.Notify.SMTPPort = 587
	}
	if cfg.Retention.LogMaxAge == 0 {
		cfg.Retention.LogMaxAge = 90 * 24 * time.Hour
	}
	if cfg.Retention.SweepInterval == 0 {
		cfg.Retention.SweepInterval = 24 * time.Hour
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.Import.StaleThreshold <= c.Import.TimeLimit {
		return fmt.Errorf("import.stale_threshold (%s) must exceed import.time_limit (%s)",
			c.Import.StaleThreshold, c.Import.TimeLimit)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Notify.Enabled && c.Notify.SMTPHost == "" {
			return fmt.Errorf("notify.smtp_host is required when notifications are enabled in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// Addr returns the redis host:port address
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
