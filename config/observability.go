package config

import "strings"

// ObservabilityConfig contains logging and metrics configuration.
type ObservabilityConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// StatsD metrics emission.
	StatsdEnabled bool   `env:"STATSD_ENABLED" envDefault:"false"`
	StatsdAddress string `env:"STATSD_ADDRESS" envDefault:"localhost:8125"`
	StatsdPrefix  string `env:"STATSD_PREFIX"  envDefault:"scribeflow"`
}

// Sanitize applies guardrails to observability configuration.
func (c *ObservabilityConfig) Sanitize() {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	default:
		c.LogLevel = "info"
	}
	if c.StatsdEnabled && strings.TrimSpace(c.StatsdAddress) == "" {
		c.StatsdEnabled = false
	}
}
