package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Backup     BackupConfig     `yaml:"backup"`
	Redis      RedisConfig      `yaml:"redis"`
	Mail       MailConfig       `yaml:"mail"`
	Media      MediaConfig      `yaml:"media"`
	Booking    BookingConfig    `yaml:"booking"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Google     GoogleConfig     `yaml:"google"`
	AMQP       AMQPConfig       `yaml:"amqp"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	RateLimit      RateLimit     `yaml:"rate_limit"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
}

type RateLimit struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
	// X-Forwarded-For is honored only from these peers (IPs or CIDRs).
	TrustedProxies []string `yaml:"trusted_proxies"`
}

const (
	DriverSQLite   = "sqlite"
	DriverSurreal  = "surrealdb"
	defaultSQLite  = "data/oden.db"
	defaultSurreal = "ws://localhost:8000"
)

type DatabaseConfig struct {
	Driver  string        `yaml:"driver"`
	Path    string        `yaml:"path"`
	Surreal SurrealConfig `yaml:"surreal"`
}

type SurrealConfig struct {
	URL       string `yaml:"url"`
	Namespace string `yaml:"namespace"`
	Database  string `yaml:"database"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

type BackupConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	RetentionDays int           `yaml:"retention_days"`
	Dir           string        `yaml:"dir"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// Operator receives new-reservation notices and contact form messages.
	Operator     string        `yaml:"operator"`
	ContactEmail string        `yaml:"contact_email"`
	LogoURL      string        `yaml:"logo_url"`
	Timeout      time.Duration `yaml:"timeout"`
}

type MediaConfig struct {
	CloudinaryURL string `yaml:"cloudinary_url"`
	CloudName     string `yaml:"cloud_name"`
	APIKey        string `yaml:"api_key"`
	APISecret     string `yaml:"api_secret"`
	Folder        string `yaml:"folder"`
}

type BookingConfig struct {
	// ThrottleLimit is the number of reservations one email may create per
	// window. Zero disables throttling.
	ThrottleLimit  int           `yaml:"throttle_limit"`
	ThrottleWindow time.Duration `yaml:"throttle_window"`
}

type ReconcilerConfig struct {
	Enabled       bool          `yaml:"enabled"`
	Interval      time.Duration `yaml:"interval"`
	BatchSize     int           `yaml:"batch_size"`
	MaxRetries    int           `yaml:"max_retries"`
	InitialDelay  time.Duration `yaml:"initial_delay"`
	MaxDelay      time.Duration `yaml:"max_delay"`
	BackoffFactor float64       `yaml:"backoff_factor"`
}

type TelegramConfig struct {
	BotToken       string `yaml:"bot_token"`
	OperatorChatID int64  `yaml:"operator_chat_id"`
	Debug          bool   `yaml:"debug"`
}

type GoogleConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
	SpreadsheetID   string `yaml:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

func Load(configPath string) (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.Path == "" {
			return errors.New("database path is required")
		}
	case DriverSurreal:
		if c.Database.Surreal.Namespace == "" || c.Database.Surreal.Database == "" {
			return errors.New("surreal namespace and database are required")
		}
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}

	if c.Mail.Host == "" {
		return errors.New("mail host is required")
	}
	if c.Mail.From == "" || c.Mail.Operator == "" {
		return errors.New("mail from and operator addresses are required")
	}

	if c.Media.CloudinaryURL == "" && (c.Media.CloudName == "" || c.Media.APIKey == "" || c.Media.APISecret == "") {
		return errors.New("cloudinary url or cloud name, api key and secret are required")
	}

	if c.Booking.ThrottleLimit < 0 {
		return errors.New("booking throttle limit must not be negative")
	}

	for _, p := range c.HTTP.RateLimit.TrustedProxies {
		if _, _, err := net.ParseCIDR(p); err != nil && net.ParseIP(p) == nil {
			return fmt.Errorf("invalid trusted proxy %q", p)
		}
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = "oden-lounge"
	}
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.HTTP.MaxUploadBytes == 0 {
		c.HTTP.MaxUploadBytes = 5 << 20
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 30 * time.Second
	}
	if c.HTTP.RateLimit.RPS > 0 && c.HTTP.RateLimit.Burst == 0 {
		c.HTTP.RateLimit.Burst = int(c.HTTP.RateLimit.RPS)
	}

	c.Database.Driver = strings.ToLower(c.Database.Driver)
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = defaultSQLite
	}
	if c.Database.Surreal.URL == "" {
		c.Database.Surreal.URL = defaultSurreal
	}

	if c.Backup.Dir == "" {
		c.Backup.Dir = "data/snapshots"
	}

	if c.Mail.Port == 0 {
		c.Mail.Port = 587
	}
	if c.Mail.Timeout == 0 {
		c.Mail.Timeout = 15 * time.Second
	}
	if c.Mail.ContactEmail == "" {
		c.Mail.ContactEmail = c.Mail.Operator
	}

	if c.Media.Folder == "" {
		c.Media.Folder = "oden-lounge"
	}

	if c.Booking.ThrottleWindow == 0 {
		c.Booking.ThrottleWindow = time.Hour
	}

	if c.Reconciler.Interval == 0 {
		c.Reconciler.Interval = time.Minute
	}
	if c.Reconciler.BatchSize == 0 {
		c.Reconciler.BatchSize = 20
	}
	if c.Reconciler.MaxRetries == 0 {
		c.Reconciler.MaxRetries = 8
	}
	if c.Reconciler.InitialDelay == 0 {
		c.Reconciler.InitialDelay = 30 * time.Second
	}
	if c.Reconciler.MaxDelay == 0 {
		c.Reconciler.MaxDelay = time.Hour
	}
	if c.Reconciler.BackoffFactor == 0 {
		c.Reconciler.BackoffFactor = 2
	}

	if c.Google.SheetName == "" {
		c.Google.SheetName = "Reservations"
	}

	if c.AMQP.Exchange == "" {
		c.AMQP.Exchange = "oden.events"
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}
