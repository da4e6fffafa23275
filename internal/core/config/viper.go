package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CK_ELIGIBILITY_API_PORT.
const EnvPrefix = "CK"

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence; flags are
// applied by the caller after loading.
func LoadConfig(configPath string) (*EligibilityAPIConfig, error) {
	v := viper.New()

	d := DefaultEligibilityAPIConfig()
	v.SetDefault("eligibility_api.host", d.Host)
	v.SetDefault("eligibility_api.port", d.Port)
	v.SetDefault("eligibility_api.metrics_port", d.MetricsPort)
	v.SetDefault("eligibility_api.request_timeout", d.RequestTimeout.String())
	v.SetDefault("eligibility_api.max_cart_items", d.MaxCartItems)
	v.SetDefault("database_url", d.DatabaseURL)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var fileDSN string
	if configPath != "" {
		file := viper.New()
		file.SetConfigFile(configPath)
		if err := file.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		fileDSN = file.GetString("database_url")
		if err := v.MergeConfigMap(file.AllSettings()); err != nil {
			return nil, fmt.Errorf("failed to merge config file: %w", err)
		}
	}

	// Credentials are environment-only.
	if err := validateNoSecretsInConfig(fileDSN); err != nil {
		return nil, err
	}

	cfg := &EligibilityAPIConfig{
		Host:           v.GetString("eligibility_api.host"),
		Port:           v.GetInt("eligibility_api.port"),
		MetricsPort:    v.GetInt("eligibility_api.metrics_port"),
		RequestTimeout: v.GetDuration("eligibility_api.request_timeout"),
		MaxCartItems:   v.GetInt("eligibility_api.max_cart_items"),
		DatabaseURL:    v.GetString("database_url"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port ranges, timeout and cart bound.
func validateConfig(cfg *EligibilityAPIConfig) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.MetricsPort < 0 || cfg.MetricsPort > 65535 {
		return fmt.Errorf("metrics_port must be between 0 and 65535, got %d", cfg.MetricsPort)
	}
	if cfg.MetricsPort != 0 && cfg.MetricsPort == cfg.Port {
		return fmt.Errorf("metrics_port must differ from port %d", cfg.Port)
	}
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.RequestTimeout)
	}
	if cfg.MaxCartItems <= 0 || cfg.MaxCartItems > 10000 {
		return fmt.Errorf("max_cart_items must be between 1 and 10000, got %d", cfg.MaxCartItems)
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("database_url must not be empty")
	}
	return nil
}

// validateNoSecretsInConfig rejects database passwords in config files.
func validateNoSecretsInConfig(fileDSN string) error {
	if hasCredentials(fileDSN) {
		return fmt.Errorf("database credentials not allowed in config files (use %s_DATABASE_URL environment variable)", EnvPrefix)
	}
	return nil
}
