package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ListenAddr    string `mapstructure:"listen_addr"`
	TransportMode string `mapstructure:"transport_mode"` // "stdio" or "http"

	// Amazon Photos connection. Cookies themselves come from the
	// AMAZON_PHOTOS_COOKIES environment variable or the cookies file.
	CookiesFile string `mapstructure:"cookies_file"`
	DBPath      string `mapstructure:"db_path"`

	// Authentication for the HTTP transport
	AuthMode string       `mapstructure:"auth_mode"` // "none", "api_key", "oauth", "both"
	APIKeys  []string     `mapstructure:"api_keys"`
	OAuth    *OAuthConfig `mapstructure:"oauth"`

	// Cache settings
	CacheTTL time.Duration `mapstructure:"cache_ttl"`

	// Rate limiting (HTTP transport)
	RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int `mapstructure:"rate_limit_burst"`

	// Timeouts
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AmazonTimeout  time.Duration `mapstructure:"amazon_timeout"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// Node store refresh
	EnableAutoRefresh bool   `mapstructure:"enable_auto_refresh"`
	RefreshCron       string `mapstructure:"refresh_cron"`      // default "0 0 * * * *" (hourly)
	RefreshPageSize   int    `mapstructure:"refresh_page_size"` // nodes per search page
}

// OAuthConfig holds OAuth configuration
type OAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// Load loads configuration from file and environment
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Read config file
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	// Read environment variables
	v.SetEnvPrefix("MCP")
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedDefaults(&cfg, v)

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("transport_mode", "stdio")

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("api_keys", []string{})

	// Cache defaults
	v.SetDefault("cache_ttl", 5*time.Minute)

	// Rate limiting defaults
	v.SetDefault("rate_limit_per_second", 100)
	v.SetDefault("rate_limit_burst", 200)

	// Timeout defaults
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("amazon_timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	// Refresh defaults
	v.SetDefault("enable_auto_refresh", false)
	v.SetDefault("refresh_cron", "0 0 * * * *") // Every hour
	v.SetDefault("refresh_page_size", 200)
}

func applyDerivedDefaults(cfg *Config, v *viper.Viper) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}

	if cfg.TransportMode == "" {
		cfg.TransportMode = v.GetString("transport_mode")
		if cfg.TransportMode == "" {
			cfg.TransportMode = "stdio"
		}
	}

	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 100
	}

	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 200
	}

	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	if cfg.AmazonTimeout <= 0 {
		cfg.AmazonTimeout = 30 * time.Second
	}

	// Ensure auth mode is set even if empty string was provided
	if cfg.AuthMode == "" {
		cfg.AuthMode = "none"
	}

	if cfg.RefreshCron == "" {
		cfg.RefreshCron = "0 0 * * * *"
	}

	if cfg.RefreshPageSize <= 0 {
		cfg.RefreshPageSize = 200
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate transport mode
	if c.TransportMode != "stdio" && c.TransportMode != "http" {
		return fmt.Errorf("invalid transport_mode: %s (must be 'stdio' or 'http')", c.TransportMode)
	}

	// Validate auth mode
	validAuthModes := map[string]bool{
		"none":    true,
		"api_key": true,
		"oauth":   true,
		"both":    true,
	}
	if !validAuthModes[c.AuthMode] {
		return fmt.Errorf("invalid auth_mode: %s", c.AuthMode)
	}

	// If auth mode requires API keys, ensure they exist
	if (c.AuthMode == "api_key" || c.AuthMode == "both") && len(c.APIKeys) == 0 {
		return fmt.Errorf("api_keys required when auth_mode is %s", c.AuthMode)
	}

	// If auth mode requires OAuth, ensure config exists
	if (c.AuthMode == "oauth" || c.AuthMode == "both") && c.OAuth == nil {
		return fmt.Errorf("oauth configuration required when auth_mode is %s", c.AuthMode)
	}

	return nil
}
