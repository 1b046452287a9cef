//
//
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/radio-control/rangebot/internal/radiolink"
)

// Validate checks that cfg is internally consistent.
func Validate(cfg *Config) error {
	target, err := radiolink.ParseTarget(cfg.Meshtastic.Port)
	if err != nil {
		return fmt.Errorf("meshtastic.port: %w", err)
	}

	if target.Kind == radiolink.KindSim && strings.TrimSpace(string(cfg.Sim.LocalID)) == "" {
		return fmt.Errorf("sim.localId is required when meshtastic.port is sim")
	}

	if len(cfg.Responder.Commands) == 0 {
		return fmt.Errorf("responder.commands must not be empty")
	}
	for i, c := range cfg.Responder.Commands {
		if strings.TrimSpace(c) == "" {
			return fmt.Errorf("responder.commands[%d] is blank", i)
		}
	}

	if cfg.Responder.Greeting.Enabled && strings.TrimSpace(cfg.Responder.Greeting.Text) == "" {
		return fmt.Errorf("responder.greeting.text is required when the greeting is enabled")
	}

	if cfg.Responder.SendTimeout <= 0 || cfg.Responder.SendTimeout > time.Minute {
		return fmt.Errorf("responder.sendTimeout %v is outside range (0, 1m]", cfg.Responder.SendTimeout)
	}

	for i, n := range cfg.Sim.Nodes {
		if strings.TrimSpace(string(n.ID)) == "" {
			return fmt.Errorf("sim.nodes[%d].id is required", i)
		}
	}

	if cfg.Audit.Enabled && cfg.Audit.Dir == "" {
		return fmt.Errorf("audit.dir is required when audit is enabled")
	}

	if cfg.HTTP.Enabled && cfg.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required when http is enabled")
	}

	switch cfg.Auth.Algorithm {
	case "":
	case "HS256":
		if cfg.Auth.SecretKey == "" {
			return fmt.Errorf("auth.secretKey is required for HS256")
		}
	case "RS256":
		if cfg.Auth.PublicKeyPEM == "" {
			return fmt.Errorf("auth.publicKeyPem is required for RS256")
		}
	default:
		return fmt.Errorf("unsupported auth.algorithm %q, must be HS256 or RS256", cfg.Auth.Algorithm)
	}

	if cfg.Telemetry.BufferSize <= 0 {
		return fmt.Errorf("telemetry.bufferSize must be positive, got %d", cfg.Telemetry.BufferSize)
	}
	if cfg.Telemetry.HeartbeatInterval < time.Second {
		return fmt.Errorf("telemetry.heartbeatInterval %v is below 1s", cfg.Telemetry.HeartbeatInterval)
	}

	return nil
}

// Target returns the parsed link target. Call after Validate.
func (c *Config) Target() radiolink.Target {
	t, _ := radiolink.ParseTarget(c.Meshtastic.Port)
	return t
}
