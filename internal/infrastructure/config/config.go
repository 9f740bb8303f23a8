// Package config provides centralized configuration management
// using Viper for configuration loading and validation
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all engine configuration
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Fusion    FusionConfig    `mapstructure:"fusion"`
	Cart      CartConfig      `mapstructure:"cart"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
	Providers ProvidersConfig `mapstructure:"providers"`
}

// AppConfig contains application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// RedisConfig contains Redis configuration for the response cache backend
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	Database     int           `mapstructure:"database"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	PoolSize     int           `mapstructure:"pool_size"`
}

// Addr returns the host:port address for the Redis client.
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// CacheConfig selects the response-cache backend
type CacheConfig struct {
	// Backend is "memory" or "redis". Memory is the default; the cache is
	// best-effort either way and never a correctness dependency.
	Backend string `mapstructure:"backend"`
}

// FusionConfig contains fusion-engine tuning
type FusionConfig struct {
	ProviderTimeout time.Duration `mapstructure:"provider_timeout"`
	// FusedTTL is the short-lived cache of fused products used by the
	// cart-optimization path. Provider responses have their own TTLs.
	FusedTTL time.Duration `mapstructure:"fused_ttl"`
}

// CartConfig contains shopping-cart pricing rules
type CartConfig struct {
	TaxRate           float64 `mapstructure:"tax_rate"`
	DeliveryFee       float64 `mapstructure:"delivery_fee"`
	FreeDeliveryAbove float64 `mapstructure:"free_delivery_above"`
	DefaultItemPrice  float64 `mapstructure:"default_item_price"`
}

// JobsConfig contains extraction job-queue configuration
type JobsConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// ProvidersConfig groups the per-provider client configuration
type ProvidersConfig struct {
	USDA        ProviderConfig `mapstructure:"usda"`
	Edamam      ProviderConfig `mapstructure:"edamam"`
	FatSecret   ProviderConfig `mapstructure:"fatsecret"`
	Spoonacular ProviderConfig `mapstructure:"spoonacular"`
	Kroger      ProviderConfig `mapstructure:"kroger"`
}

// ProviderConfig contains the credentials and budget for one provider.
// APIKey doubles as Edamam's app_key; ClientID as its app_id.
type ProviderConfig struct {
	APIKey       string        `mapstructure:"api_key"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	BaseURL      string        `mapstructure:"base_url"`
	RateLimit    int           `mapstructure:"rate_limit"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// Load reads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/fooddata")
	}

	v.SetEnvPrefix("FOODDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderEnv(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we have defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// bindProviderEnv accepts both the FOODDATA_-prefixed form and the bare
// per-provider variables the host platform already exports
// (USDA_API_KEY, KROGER_CLIENT_ID, ...).
func bindProviderEnv(v *viper.Viper) {
	for _, p := range []string{"usda", "edamam", "fatsecret", "spoonacular", "kroger"} {
		upper := strings.ToUpper(p)
		for _, field := range []string{"api_key", "client_id", "client_secret", "base_url", "rate_limit"} {
			key := fmt.Sprintf("providers.%s.%s", p, field)
			bare := fmt.Sprintf("%s_%s", upper, strings.ToUpper(field))
			prefixed := fmt.Sprintf("FOODDATA_PROVIDERS_%s_%s", upper, strings.ToUpper(field))
			v.BindEnv(key, prefixed, bare)
		}
	}
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "fooddata")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8085)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Redis defaults
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.database", 0)
	v.SetDefault("redis.dial_timeout", "5s")
	v.SetDefault("redis.read_timeout", "3s")
	v.SetDefault("redis.write_timeout", "3s")
	v.SetDefault("redis.pool_size", 10)

	// Cache defaults
	v.SetDefault("cache.backend", "memory")

	// Fusion defaults
	v.SetDefault("fusion.provider_timeout", "15s")
	v.SetDefault("fusion.fused_ttl", "2m")

	// Cart defaults
	v.SetDefault("cart.tax_rate", 0.08)
	v.SetDefault("cart.delivery_fee", 5.99)
	v.SetDefault("cart.free_delivery_above", 35.0)
	v.SetDefault("cart.default_item_price", 3.99)

	// Jobs defaults
	v.SetDefault("jobs.queue_size", 128)

	// Provider defaults. Budgets are monthly; TTLs are per-provider.
	v.SetDefault("providers.usda.base_url", "https://api.nal.usda.gov/fdc/v1")
	v.SetDefault("providers.usda.rate_limit", 3000)
	v.SetDefault("providers.usda.cache_ttl", "30m")
	v.SetDefault("providers.usda.timeout", "15s")

	v.SetDefault("providers.edamam.base_url", "https://api.edamam.com/api")
	v.SetDefault("providers.edamam.rate_limit", 1000)
	v.SetDefault("providers.edamam.cache_ttl", "15m")
	v.SetDefault("providers.edamam.timeout", "15s")

	v.SetDefault("providers.fatsecret.base_url", "https://platform.fatsecret.com/rest/server.api")
	v.SetDefault("providers.fatsecret.rate_limit", 5000)
	v.SetDefault("providers.fatsecret.cache_ttl", "15m")
	v.SetDefault("providers.fatsecret.timeout", "15s")

	v.SetDefault("providers.spoonacular.base_url", "https://api.spoonacular.com/recipes")
	v.SetDefault("providers.spoonacular.rate_limit", 1500)
	v.SetDefault("providers.spoonacular.cache_ttl", "30m")
	v.SetDefault("providers.spoonacular.timeout", "15s")

	v.SetDefault("providers.kroger.base_url", "https://api.kroger.com/v1")
	v.SetDefault("providers.kroger.rate_limit", 5000)
	v.SetDefault("providers.kroger.cache_ttl", "5m")
	v.SetDefault("providers.kroger.timeout", "15s")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cart.TaxRate < 0 || c.Cart.TaxRate >= 1 {
		return fmt.Errorf("invalid cart tax rate: %f", c.Cart.TaxRate)
	}
	if c.Cache.Backend != "memory" && c.Cache.Backend != "redis" {
		return fmt.Errorf("invalid cache backend: %s", c.Cache.Backend)
	}
	for name, p := range map[string]ProviderConfig{
		"usda":        c.Providers.USDA,
		"edamam":      c.Providers.Edamam,
		"fatsecret":   c.Providers.FatSecret,
		"spoonacular": c.Providers.Spoonacular,
		"kroger":      c.Providers.Kroger,
	} {
		if p.RateLimit <= 0 {
			return fmt.Errorf("invalid rate limit for provider %s: %d", name, p.RateLimit)
		}
	}
	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}
