// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig       `koanf:"app"`
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	Admin     AdminConfig     `koanf:"admin"`
	Booking   BookingConfig   `koanf:"booking"`
	Redis     RedisConfig     `koanf:"redis"`
	RateLimit RateLimitConfig `koanf:"rate_limit"`
	CORS      CORSConfig      `koanf:"cors"`
	Log       LogConfig       `koanf:"log"`
	Otel      OtelConfig      `koanf:"otel"`
	Notify    NotifyConfig    `koanf:"notify"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	DrainDelay      time.Duration `koanf:"drain_delay"`
}

// StoreConfig selects the embedded engine. Path is a bbolt file or a
// sqlite database file depending on Driver.
type StoreConfig struct {
	Driver      string        `koanf:"driver"`
	Path        string        `koanf:"path"`
	OpenTimeout time.Duration `koanf:"open_timeout"`
	NoSync      bool          `koanf:"no_sync"`
	ScanBatch   int           `koanf:"scan_batch"`
	StrictReads bool          `koanf:"strict_reads"`
}

type AdminConfig struct {
	SASecret string `koanf:"sa_secret"`
}

type BookingConfig struct {
	DeletePolicy string `koanf:"delete_policy"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

// RateLimitConfig limits every client by address, and additionally
// limits reservation writes per resolved identity.
type RateLimitConfig struct {
	Requests   int           `koanf:"requests"`
	Window     time.Duration `koanf:"window"`
	Burst      int           `koanf:"burst"`
	Writes     int           `koanf:"writes"`
	WriteBurst int           `koanf:"write_burst"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type NotifyConfig struct {
	Driver        string        `koanf:"driver"`
	MailgunDomain string        `koanf:"mailgun_domain"`
	MailgunAPIKey string        `koanf:"mailgun_api_key"`
	Sender        string        `koanf:"sender"`
	ApproverEmail string        `koanf:"approver_email"`
	QueueSize     int           `koanf:"queue_size"`
	SendTimeout   time.Duration `koanf:"send_timeout"`
}

var (
	cfg  *Config
	once sync.Once
)

// Load reads configuration once per process. Later calls return the
// first result.
func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("load config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Auditorium Booking",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8000,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",
		"server.drain_delay":      "5s",

		"store.driver":       "bolt",
		"store.path":         "data/booking.db",
		"store.open_timeout": "5s",
		"store.no_sync":      false,
		"store.scan_batch":   256,
		"store.strict_reads": false,

		"booking.delete_policy": "author_and_approver",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 2,

		"rate_limit.requests":    100,
		"rate_limit.window":      "1m",
		"rate_limit.burst":       20,
		"rate_limit.writes":      30,
		"rate_limit.write_burst": 10,

		"cors.allowed_origins": []string{"*"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": false,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "auditorium-booking",

		"notify.driver":       "log",
		"notify.sender":       "Auditorium <noreply@localhost>",
		"notify.queue_size":   64,
		"notify.send_timeout": "10s",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "store.path",
	"STORE_DRIVER":                "store.driver",
	"STORE_STRICT_READS":          "store.strict_reads",
	"SA_SECRET":                   "admin.sa_secret",
	"DELETE_POLICY":               "booking.delete_policy",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_WRITES":           "rate_limit.writes",
	"RATE_LIMIT_WRITE_BURST":      "rate_limit.write_burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"NOTIFY_DRIVER":               "notify.driver",
	"MAILGUN_DOMAIN":              "notify.mailgun_domain",
	"MAILGUN_API_KEY":             "notify.mailgun_api_key",
	"MAIL_SENDER":                 "notify.sender",
	"APPROVER_EMAIL":              "notify.approver_email",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

var (
	storeDrivers   = []string{"bolt", "sqlite"}
	deletePolicies = []string{"author_and_approver", "author", "author_or_approver"}
	notifyDrivers  = []string{"log", "mailgun"}
)

func validate(c *Config) error {
	if !slices.Contains(storeDrivers, c.Store.Driver) {
		return fmt.Errorf("store.driver %q is not one of %v", c.Store.Driver, storeDrivers)
	}

	if c.Store.Path == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if !slices.Contains(deletePolicies, c.Booking.DeletePolicy) {
		return fmt.Errorf(
			"booking.delete_policy %q is not one of %v",
			c.Booking.DeletePolicy,
			deletePolicies,
		)
	}

	if c.CORS.AllowCredentials && slices.Contains(c.CORS.AllowedOrigins, "*") {
		return fmt.Errorf(
			"CORS wildcard '*' cannot be used with AllowCredentials",
		)
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be positive")
	}

	if c.RateLimit.Requests <= 0 || c.RateLimit.Burst <= 0 {
		return fmt.Errorf("rate_limit.requests and rate_limit.burst must be positive")
	}

	if c.RateLimit.Writes <= 0 || c.RateLimit.WriteBurst <= 0 {
		return fmt.Errorf("rate_limit.writes and rate_limit.write_burst must be positive")
	}

	if !slices.Contains(notifyDrivers, c.Notify.Driver) {
		return fmt.Errorf("notify.driver %q is not one of %v", c.Notify.Driver, notifyDrivers)
	}

	if c.Notify.Driver == "mailgun" &&
		(c.Notify.MailgunDomain == "" || c.Notify.MailgunAPIKey == "") {
		return fmt.Errorf("MAILGUN_DOMAIN and MAILGUN_API_KEY are required for the mailgun driver")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
