package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Env           string              `mapstructure:"env"`
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Security      SecurityConfig      `mapstructure:"security"`
	Crypto        CryptoConfig        `mapstructure:"crypto"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Registry      RegistryConfig      `mapstructure:"registry"`
	Notary        NotaryConfig        `mapstructure:"notary"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Source          string        `mapstructure:"source"`
}

type SecurityConfig struct {
	JWTSecret            string        `mapstructure:"jwt_secret"`
	JWTRefreshSecret     string        `mapstructure:"jwt_refresh_secret"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration"`
	BCryptCost           int           `mapstructure:"bcrypt_cost"`
}

type CryptoConfig struct {
	// MasterKey is either base64 of 32 raw bytes or a passphrase of at least 32 characters.
	MasterKey string `mapstructure:"master_key"`
	Workers   int    `mapstructure:"workers"`
	QueueSize int    `mapstructure:"queue_size"`
}

type StorageConfig struct {
	Backend       string        `mapstructure:"backend"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxUploadSize int64         `mapstructure:"max_upload_size"`
	CacheSize     int           `mapstructure:"cache_size"`
	Pinata        PinataConfig  `mapstructure:"pinata"`
	Badger        BadgerConfig  `mapstructure:"badger"`
}

type PinataConfig struct {
	APIURL     string `mapstructure:"api_url"`
	GatewayURL string `mapstructure:"gateway_url"`
	JWT        string `mapstructure:"jwt"`
	RetryCount int    `mapstructure:"retry_count"`
}

type BadgerConfig struct {
	Path     string `mapstructure:"path"`
	InMemory bool   `mapstructure:"in_memory"`
}

type RegistryConfig struct {
	Timeout time.Duration `mapstructure:"timeout"`
}

type NotaryConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	URL     string        `mapstructure:"url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
	Logging LoggingConfig `mapstructure:"logging"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const (
	StorageBackendPinata = "pinata"
	StorageBackendBadger = "badger"
	StorageBackendMemory = "memory"

	DefaultMaxUploadSize = 10 << 20
)

// ApplyDefaults fills zero values that have a sensible default.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Security.AccessTokenDuration == 0 {
		c.Security.AccessTokenDuration = 15 * time.Minute
	}
	if c.Security.RefreshTokenDuration == 0 {
		c.Security.RefreshTokenDuration = 7 * 24 * time.Hour
	}
	if c.Security.BCryptCost == 0 {
		c.Security.BCryptCost = 10
	}
	if c.Crypto.Workers <= 0 {
		c.Crypto.Workers = runtime.NumCPU()
	}
	if c.Crypto.QueueSize <= 0 {
		c.Crypto.QueueSize = 64
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = StorageBackendBadger
	}
	if c.Storage.Timeout == 0 {
		c.Storage.Timeout = 30 * time.Second
	}
	if c.Storage.MaxUploadSize == 0 {
		c.Storage.MaxUploadSize = DefaultMaxUploadSize
	}
	if c.Storage.Pinata.APIURL == "" {
		c.Storage.Pinata.APIURL = "https://api.pinata.cloud"
	}
	if c.Storage.Pinata.GatewayURL == "" {
		c.Storage.Pinata.GatewayURL = "https://gateway.pinata.cloud"
	}
	if c.Storage.Badger.Path == "" {
		c.Storage.Badger.Path = "data/blobs"
	}
	if c.Registry.Timeout == 0 {
		c.Registry.Timeout = 5 * time.Second
	}
	if c.Notary.Timeout == 0 {
		c.Notary.Timeout = 30 * time.Second
	}
	if c.Observability.Metrics.Path == "" {
		c.Observability.Metrics.Path = "/metrics"
	}
}

// ----------------- ENV -----------------

// LoadConfigFromEnv builds the configuration from plain environment variables (container deployments).
func LoadConfigFromEnv() *Config {
	cfg := &Config{
		Env: getEnv("APP_ENV", "production"),
		Server: ServerConfig{
			Port:              getEnvAsInt("PORT", 8080),
			BaseURL:           getEnv("BASE_URL", ""),
			AllowedOrigins:    getEnv("ALLOWED_ORIGINS", "*"),
			ReadHeaderTimeout: getEnvAsDuration("READ_HEADER_TIMEOUT", 5*time.Second),
			ReadTimeout:       getEnvAsDuration("READ_TIMEOUT", 60*time.Second),
			IdleTimeout:       getEnvAsDuration("IDLE_TIMEOUT", 120*time.Second),
			WriteTimeout:      getEnvAsDuration("WRITE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvAsDuration("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
			Source:          getEnv("DATABASE_URL", ""),
		},
		Security: SecurityConfig{
			JWTSecret:            getEnv("JWT_SECRET", ""),
			JWTRefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenDuration:  getEnvAsDuration("ACCESS_TOKEN_DURATION", 15*time.Minute),
			RefreshTokenDuration: getEnvAsDuration("REFRESH_TOKEN_DURATION", 7*24*time.Hour),
			BCryptCost:           getEnvAsInt("BCRYPT_COST", 10),
		},
		Crypto: CryptoConfig{
			MasterKey: getEnv("ENCRYPTION_KEY", ""),
			Workers:   getEnvAsInt("CRYPTO_WORKERS", 0),
			QueueSize: getEnvAsInt("CRYPTO_QUEUE_SIZE", 0),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", StorageBackendPinata),
			Timeout:       getEnvAsDuration("STORAGE_TIMEOUT", 30*time.Second),
			MaxUploadSize: int64(getEnvAsInt("MAX_UPLOAD_SIZE", DefaultMaxUploadSize)),
			CacheSize:     getEnvAsInt("STORAGE_CACHE_SIZE", 128),
			Pinata: PinataConfig{
				APIURL:     getEnv("PINATA_API_URL", "https://api.pinata.cloud"),
				GatewayURL: getEnv("IPFS_GATEWAY", "https://gateway.pinata.cloud"),
				JWT:        getEnv("PINATA_JWT", ""),
				RetryCount: getEnvAsInt("PINATA_RETRY_COUNT", 2),
			},
			Badger: BadgerConfig{
				Path: getEnv("BADGER_PATH", "data/blobs"),
			},
		},
		Registry: RegistryConfig{
			Timeout: getEnvAsDuration("REGISTRY_TIMEOUT", 5*time.Second),
		},
		Notary: NotaryConfig{
			Enabled: getEnvAsBool("NOTARY_ENABLED", false),
			URL:     getEnv("NOTARY_URL", ""),
			APIKey:  getEnv("NOTARY_API_KEY", ""),
			Timeout: getEnvAsDuration("NOTARY_TIMEOUT", 30*time.Second),
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: getEnvAsBool("METRICS_ENABLED", true),
				Path:    getEnv("METRICS_PATH", "/metrics"),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "json"),
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

// ----------------- HELPERS -----------------

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultVal
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Crypto.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("crypto config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Notary.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notary config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.JWTSecret) < 32 {
		return errors.New("jwt_secret must be at least 32 characters")
	}
	if c.BCryptCost < 4 || c.BCryptCost > 15 {
		return errors.New("bcrypt_cost must be between 4 and 15")
	}
	return nil
}

// RefreshSecret falls back to the access secret when no dedicated refresh secret is configured.
func (c *SecurityConfig) RefreshSecret() string {
	if c.JWTRefreshSecret != "" {
		return c.JWTRefreshSecret
	}
	return c.JWTSecret
}

func (c *CryptoConfig) Validate() error {
	if c.MasterKey == "" {
		return errors.New("master_key is required")
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case StorageBackendPinata:
		if c.Pinata.JWT == "" {
			return errors.New("pinata.jwt is required for the pinata backend")
		}
		if _, err := url.ParseRequestURI(c.Pinata.APIURL); err != nil {
			return fmt.Errorf("invalid pinata.api_url: %w", err)
		}
		if _, err := url.ParseRequestURI(c.Pinata.GatewayURL); err != nil {
			return fmt.Errorf("invalid pinata.gateway_url: %w", err)
		}
	case StorageBackendBadger:
		if !c.Badger.InMemory && c.Badger.Path == "" {
			return errors.New("badger.path is required unless in_memory is set")
		}
	case StorageBackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.MaxUploadSize <= 0 {
		return errors.New("max_upload_size must be positive")
	}
	return nil
}

func (c *NotaryConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	if _, err := url.ParseRequestURI(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}
	if c.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	return nil
}
