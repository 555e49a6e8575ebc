// Package config loads application configuration from environment variables
// using github.com/caarlos0/env. Domain-specific configuration lives in
// separate files:
//   - database.go: Postgres and Redis configuration
//   - engine.go: speech-to-text engine, planner, timeout, progress, recovery
//   - services.go: service mode and intake configuration
//   - observability.go: logging and metrics configuration
package config

import "os"

// AppConfig is the main application configuration struct composing the
// domain-specific configuration from separate files.
type AppConfig struct {
	// IsDev controls development mode behavior (log level, .env loading).
	IsDev bool `env:"DEV" envDefault:"false"`

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// Services is the comma-delimited set of service modes to run.
	Services string `env:"SERVICES" envDefault:"worker"`

	// Engine and pipeline configuration
	Engine     EngineConfig     `envPrefix:"ENGINE_"`
	Summarizer SummarizerConfig `envPrefix:"SUMMARIZER_"`
	Planner    PlannerConfig    `envPrefix:"PLANNER_"`
	Progress   ProgressConfig   `envPrefix:"PROGRESS_"`
	Recovery   RecoveryConfig   `envPrefix:"RECOVERY_"`
	Intake     IntakeConfig     `envPrefix:"INTAKE_"`

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// Called after env.Parse so a misconfigured deployment degrades to safe
// defaults instead of failing in surprising ways at runtime.
func (c *AppConfig) Sanitize() {
	c.Engine.Sanitize()
	c.Summarizer.Sanitize()
	c.Planner.Sanitize()
	c.Progress.Sanitize()
	c.Recovery.Sanitize()
	c.Intake.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks APP_ENV as a fallback when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := os.Getenv("APP_ENV")
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsWorkerEnabled returns true if the worker service is enabled.
func (c *AppConfig) IsWorkerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeWorker]
}

// IsReaperEnabled returns true if the recovery sweep service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeReaper]
}
