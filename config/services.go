package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeWorker runs the submission intake and transcription
	// pipeline.
	ServiceModeWorker ServiceMode = "worker"
	// ServiceModeReaper runs the recovery sweep for abandoned jobs.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{ServiceModeWorker, ServiceModeReaper}
}

// ParseServices parses a comma-delimited string of service names and returns
// the enabled services. Invalid names are rejected.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeWorker, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: worker, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// IntakeConfig contains submission intake configuration.
type IntakeConfig struct {
	// Queue is the Redis list submissions are popped from.
	Queue string `env:"QUEUE" envDefault:"transcribe:submissions"`

	// PollTimeout is the blocking-pop timeout per poll.
	PollTimeout time.Duration `env:"POLL_TIMEOUT" envDefault:"5s"`
}

// Sanitize applies guardrails to intake configuration.
func (c *IntakeConfig) Sanitize() {
	if strings.TrimSpace(c.Queue) == "" {
		c.Queue = "transcribe:submissions"
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = 5 * time.Second
	}
}
