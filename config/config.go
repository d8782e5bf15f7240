package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Cart      CartConfig      `mapstructure:"cart"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Storage   StorageConfig   `mapstructure:"storage"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Environment    string   `mapstructure:"environment"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// BackendConfig holds the search backend client configuration
type BackendConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// BatchConfig controls how ingredient searches are grouped
type BatchConfig struct {
	Size  int           `mapstructure:"size"`
	Delay time.Duration `mapstructure:"delay"`
}

// CartConfig controls the add-to-cart run pacing
type CartConfig struct {
	SiteDomain     string        `mapstructure:"site_domain"`
	HomeURL        string        `mapstructure:"home_url"`
	NewTabSettle   time.Duration `mapstructure:"new_tab_settle"`
	ItemDelay      time.Duration `mapstructure:"item_delay"`
	LoadTimeout    time.Duration `mapstructure:"load_timeout"`
	QuantitySettle time.Duration `mapstructure:"quantity_settle"`
}

// BrowserConfig holds the automation browser configuration
type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless"`
	ExecPath    string `mapstructure:"exec_path"`
	RemoteURL   string `mapstructure:"remote_url"`
	UserDataDir string `mapstructure:"user_data_dir"`
	UserAgent   string `mapstructure:"user_agent"`
}

// ParserConfig selects how recipe URLs are turned into ingredient lines
type ParserConfig struct {
	Mode string `mapstructure:"mode"` // "remote" or "local"
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// StorageConfig holds the preference database location
type StorageConfig struct {
	Path string `mapstructure:"path"`
}

// RateLimitConfig holds inbound rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute, 0 disables
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "text" or "json"
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/recipecart/")

	// Environment variable settings, e.g. RECIPECART_SERVER_PORT
	v.SetEnvPrefix("RECIPECART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile exports the variables of ./.env into the process environment.
// Variables that are already set win. A missing file is not an error.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	env := viper.New()
	env.SetConfigFile(".env")
	env.SetConfigType("env")
	if err := env.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	for _, key := range env.AllKeys() {
		name := strings.ToUpper(key)
		if _, exists := os.LookupEnv(name); exists {
			continue
		}
		if err := os.Setenv(name, env.GetString(key)); err != nil {
			return fmt.Errorf("error exporting %s: %w", name, err)
		}
	}
	return nil
}

// setDefaults sets default configuration values. Every key needs a default so
// that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})

	// Search backend defaults
	v.SetDefault("backend.base_url", "http://localhost:5000")
	v.SetDefault("backend.timeout", "120s")
	v.SetDefault("backend.requests_per_second", 0)
	v.SetDefault("backend.burst", 1)

	// Batching defaults
	v.SetDefault("batch.size", 4)
	v.SetDefault("batch.delay", "1s")

	// Cart run defaults
	v.SetDefault("cart.site_domain", "amazon.com")
	v.SetDefault("cart.home_url", "https://www.amazon.com")
	v.SetDefault("cart.new_tab_settle", "3s")
	v.SetDefault("cart.item_delay", "2s")
	v.SetDefault("cart.load_timeout", "30s")
	v.SetDefault("cart.quantity_settle", "500ms")

	// Browser defaults
	v.SetDefault("browser.headless", false)
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.remote_url", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.user_agent", "")

	// Parser defaults
	v.SetDefault("parser.mode", "remote")

	// Cache defaults
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 1000)

	// Storage defaults
	v.SetDefault("storage.path", "./data/preferences")

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 120)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Backend.BaseURL == "" && config.Parser.Mode == "remote" {
		return fmt.Errorf("backend base URL is required (set RECIPECART_BACKEND_BASE_URL)")
	}

	if config.Parser.Mode != "remote" && config.Parser.Mode != "local" {
		return fmt.Errorf("parser mode must be 'remote' or 'local', got: %s", config.Parser.Mode)
	}

	if config.Batch.Size < 1 {
		return fmt.Errorf("batch size must be at least 1, got: %d", config.Batch.Size)
	}

	if config.Batch.Delay < 0 {
		return fmt.Errorf("batch delay must not be negative, got: %s", config.Batch.Delay)
	}

	if config.Cart.SiteDomain == "" {
		return fmt.Errorf("cart site domain is required")
	}

	if config.Cart.LoadTimeout <= 0 {
		return fmt.Errorf("cart load timeout must be positive, got: %s", config.Cart.LoadTimeout)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log format must be 'text' or 'json', got: %s", config.Log.Format)
	}

	return nil
}
