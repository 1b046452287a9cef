//
//
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"github.com/radio-control/rangebot/internal/radiolink"
)

// DefaultFile is read when no explicit config path is given and it exists.
const DefaultFile = "config.yaml"

// DefaultEnvFile is loaded into the process environment when present.
const DefaultEnvFile = ".env"

// Config is the complete RangeBot configuration.
type Config struct {
	Meshtastic MeshtasticConfig `yaml:"meshtastic"`
	Responder  ResponderConfig  `yaml:"responder"`
	Sim        SimConfig        `yaml:"sim"`
	Logging    LoggingConfig    `yaml:"logging"`
	Audit      AuditConfig      `yaml:"audit"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
}

// MeshtasticConfig selects the Radio Link.
type MeshtasticConfig struct {
	// Port is "auto", a /dev path, "tcp:host[:port]", a bare host, or "sim".
	Port string `yaml:"port"`
}

// ResponderConfig controls command handling.
type ResponderConfig struct {
	Commands    []string       `yaml:"commands"`
	Greeting    GreetingConfig `yaml:"greeting"`
	SendTimeout time.Duration  `yaml:"sendTimeout"`
}

// GreetingConfig controls the broadcast sent when the link comes up.
type GreetingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Text    string `yaml:"text"`
}

// SimConfig seeds the simulated link.
type SimConfig struct {
	LocalID radiolink.NodeID     `yaml:"localId"`
	Nodes   []radiolink.NodeInfo `yaml:"nodes"`
}

// LoggingConfig controls process log output.
type LoggingConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
	MaxAgeDays int    `yaml:"maxAgeDays"`
	Compress   bool   `yaml:"compress"`
}

// AuditConfig controls the reply audit trail.
type AuditConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Dir        string `yaml:"dir"`
	MaxSizeMB  int    `yaml:"maxSizeMb"`
	MaxBackups int    `yaml:"maxBackups"`
}

// HTTPConfig controls the status/control API.
type HTTPConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// AuthConfig controls bearer token verification on the API. An empty
// algorithm disables authentication.
type AuthConfig struct {
	Algorithm    string `yaml:"algorithm"`
	SecretKey    string `yaml:"secretKey"`
	PublicKeyPEM string `yaml:"publicKeyPem"`
}

// TelemetryConfig controls the event stream.
type TelemetryConfig struct {
	BufferSize        int           `yaml:"bufferSize"`
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Meshtastic: MeshtasticConfig{Port: "sim"},
		Responder: ResponderConfig{
			Commands:    []string{"ping", "test", "p", "t"},
			Greeting:    GreetingConfig{Enabled: false, Text: "RangeBot online, send ping for range"},
			SendTimeout: 10 * time.Second,
		},
		Sim: SimConfig{LocalID: "!5f0e1a2b"},
		Logging: LoggingConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Audit: AuditConfig{
			Enabled:    true,
			Dir:        "logs",
			MaxSizeMB:  50,
			MaxBackups: 5,
		},
		HTTP: HTTPConfig{
			Enabled:      false,
			Addr:         ":8000",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Telemetry: TelemetryConfig{
			BufferSize:        256,
			HeartbeatInterval: 15 * time.Second,
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// RANGEBOT_CONFIG and then DefaultFile are tried.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadEnvFile(DefaultEnvFile); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", DefaultEnvFile, err)
	}

	explicit := path != ""
	if !explicit {
		if env := os.Getenv("RANGEBOT_CONFIG"); env != "" {
			path = env
			explicit = true
		} else {
			path = DefaultFile
		}
	}

	if err := loadFromFile(cfg, path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadEnvFile loads KEY=VALUE pairs without overriding variables already set.
func loadEnvFile(filename string) error {
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(filename)
}

// loadFromFile merges a YAML file over cfg.
func loadFromFile(cfg *Config, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides applies RANGEBOT_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("RANGEBOT_PORT"); val != "" {
		cfg.Meshtastic.Port = val
	}

	if val := os.Getenv("RANGEBOT_COMMANDS"); val != "" {
		var commands []string
		for _, c := range strings.Split(val, ",") {
			if c = strings.TrimSpace(c); c != "" {
				commands = append(commands, c)
			}
		}
		cfg.Responder.Commands = commands
	}

	if val := os.Getenv("RANGEBOT_GREETING_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("RANGEBOT_GREETING_ENABLED: %w", err)
		}
		cfg.Responder.Greeting.Enabled = enabled
	}

	if val := os.Getenv("RANGEBOT_GREETING_TEXT"); val != "" {
		cfg.Responder.Greeting.Text = val
	}

	if val := os.Getenv("RANGEBOT_SEND_TIMEOUT"); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("RANGEBOT_SEND_TIMEOUT: %w", err)
		}
		cfg.Responder.SendTimeout = d
	}

	if val := os.Getenv("RANGEBOT_SIM_LOCAL_ID"); val != "" {
		cfg.Sim.LocalID = radiolink.NodeID(val)
	}

	if val := os.Getenv("RANGEBOT_LOG_FILE"); val != "" {
		cfg.Logging.File = val
	}

	if val := os.Getenv("RANGEBOT_AUDIT_DIR"); val != "" {
		cfg.Audit.Dir = val
	}

	if val := os.Getenv("RANGEBOT_HTTP_ENABLED"); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("RANGEBOT_HTTP_ENABLED: %w", err)
		}
		cfg.HTTP.Enabled = enabled
	}

	if val := os.Getenv("RANGEBOT_HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}

	if val := os.Getenv("RANGEBOT_AUTH_ALGORITHM"); val != "" {
		cfg.Auth.Algorithm = val
	}

	if val := os.Getenv("RANGEBOT_AUTH_SECRET"); val != "" {
		cfg.Auth.SecretKey = val
	}

	return nil
}
