// Package config provides configuration management for couponkeeper services.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// EligibilityAPIConfig holds configuration for the gRPC eligibility service.
type EligibilityAPIConfig struct {
	Host           string
	Port           int
	MetricsPort    int // 0 disables the metrics listener
	RequestTimeout time.Duration
	MaxCartItems   int
	DatabaseURL    string
}

// DefaultEligibilityAPIConfig returns configuration with default values.
func DefaultEligibilityAPIConfig() *EligibilityAPIConfig {
	return &EligibilityAPIConfig{
		Host:           "0.0.0.0",
		Port:           50061,
		MetricsPort:    9464,
		RequestTimeout: 5 * time.Second,
		MaxCartItems:   500,
		DatabaseURL:    "sqlite://./data/couponkeeper.db",
	}
}

// Address returns host:port for the gRPC listener.
func (c *EligibilityAPIConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddress returns host:port for the metrics listener, or "" when
// metrics are disabled.
func (c *EligibilityAPIConfig) MetricsAddress() string {
	if c.MetricsPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// hasCredentials reports whether a database URL embeds a password.
func hasCredentials(dbURL string) bool {
	u, err := url.Parse(dbURL)
	if err != nil || u.User == nil {
		return false
	}
	_, ok := u.User.Password()
	return ok
}
