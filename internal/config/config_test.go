package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/radio-control/rangebot/internal/radiolink"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestDefaultsValidate(t *testing.T) {
	if err := Validate(Defaults()); err != nil {
		t.Fatalf("Defaults() failed validation: %v", err)
	}
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Meshtastic.Port != "sim" {
		t.Errorf("Expected default port sim, got %s", cfg.Meshtastic.Port)
	}
	if cfg.Responder.Greeting.Enabled {
		t.Error("Greeting should be disabled by default")
	}
	if cfg.Target().Kind != radiolink.KindSim {
		t.Errorf("Target() = %v", cfg.Target())
	}
}

func TestLoadFromYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rangebot.yaml", `
meshtastic:
  port: tcp:meshnode.local
responder:
  commands: [ping, range]
  greeting:
    enabled: true
    text: hello mesh
  sendTimeout: 5s
sim:
  localId: "!aaaa0001"
  nodes:
    - id: "!aaaa0002"
      longName: Hilltop Relay
      position:
        latitude: 34.0522
        longitude: -118.2437
http:
  enabled: true
  addr: 127.0.0.1:9000
telemetry:
  heartbeatInterval: 2s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Target() != (radiolink.Target{Kind: radiolink.KindTCP, Address: "meshnode.local:4403"}) {
		t.Errorf("Target() = %+v", cfg.Target())
	}
	if strings.Join(cfg.Responder.Commands, ",") != "ping,range" {
		t.Errorf("Commands = %v", cfg.Responder.Commands)
	}
	if !cfg.Responder.Greeting.Enabled || cfg.Responder.Greeting.Text != "hello mesh" {
		t.Errorf("Greeting = %+v", cfg.Responder.Greeting)
	}
	if cfg.Responder.SendTimeout != 5*time.Second {
		t.Errorf("SendTimeout = %v", cfg.Responder.SendTimeout)
	}
	if len(cfg.Sim.Nodes) != 1 || cfg.Sim.Nodes[0].Position == nil || cfg.Sim.Nodes[0].Position.Latitude != 34.0522 {
		t.Errorf("Sim.Nodes = %+v", cfg.Sim.Nodes)
	}
	if cfg.Sim.Nodes[0].LongName != "Hilltop Relay" {
		t.Errorf("LongName = %q", cfg.Sim.Nodes[0].LongName)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Addr != "127.0.0.1:9000" {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.HTTP.ReadTimeout != 30*time.Second {
		t.Errorf("unset field lost its default: %v", cfg.HTTP.ReadTimeout)
	}
	if cfg.Telemetry.HeartbeatInterval != 2*time.Second {
		t.Errorf("HeartbeatInterval = %v", cfg.Telemetry.HeartbeatInterval)
	}
}

func TestLoadFromConfigEnv(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.yaml", "meshtastic:\n  port: /dev/ttyACM0\n")
	t.Setenv("RANGEBOT_CONFIG", path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Meshtastic.Port != "/dev/ttyACM0" {
		t.Errorf("Port = %s", cfg.Meshtastic.Port)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "bad.yaml", "meshtastic: [unclosed\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RANGEBOT_PORT", "auto")
	t.Setenv("RANGEBOT_COMMANDS", " ping , dist ,")
	t.Setenv("RANGEBOT_GREETING_ENABLED", "true")
	t.Setenv("RANGEBOT_GREETING_TEXT", "hi")
	t.Setenv("RANGEBOT_SEND_TIMEOUT", "3s")
	t.Setenv("RANGEBOT_HTTP_ENABLED", "1")
	t.Setenv("RANGEBOT_HTTP_ADDR", ":9100")
	t.Setenv("RANGEBOT_AUTH_ALGORITHM", "HS256")
	t.Setenv("RANGEBOT_AUTH_SECRET", "s3cret")
	t.Setenv("RANGEBOT_LOG_FILE", "/tmp/rangebot.log")
	t.Setenv("RANGEBOT_AUDIT_DIR", "/tmp/audit")
	t.Setenv("RANGEBOT_SIM_LOCAL_ID", "!beef")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Target().Kind != radiolink.KindSerialAuto {
		t.Errorf("Target = %v", cfg.Target())
	}
	if strings.Join(cfg.Responder.Commands, ",") != "ping,dist" {
		t.Errorf("Commands = %v", cfg.Responder.Commands)
	}
	if !cfg.Responder.Greeting.Enabled || cfg.Responder.Greeting.Text != "hi" {
		t.Errorf("Greeting = %+v", cfg.Responder.Greeting)
	}
	if cfg.Responder.SendTimeout != 3*time.Second {
		t.Errorf("SendTimeout = %v", cfg.Responder.SendTimeout)
	}
	if !cfg.HTTP.Enabled || cfg.HTTP.Addr != ":9100" {
		t.Errorf("HTTP = %+v", cfg.HTTP)
	}
	if cfg.Auth.Algorithm != "HS256" || cfg.Auth.SecretKey != "s3cret" {
		t.Errorf("Auth = %+v", cfg.Auth)
	}
	if cfg.Logging.File != "/tmp/rangebot.log" || cfg.Audit.Dir != "/tmp/audit" {
		t.Errorf("paths not overridden: %s %s", cfg.Logging.File, cfg.Audit.Dir)
	}
	if cfg.Sim.LocalID != "!beef" {
		t.Errorf("Sim.LocalID = %s", cfg.Sim.LocalID)
	}
}

func TestEnvOverrideBadValues(t *testing.T) {
	for key, val := range map[string]string{
		"RANGEBOT_GREETING_ENABLED": "maybe",
		"RANGEBOT_SEND_TIMEOUT":     "soon",
		"RANGEBOT_HTTP_ENABLED":     "yes please",
	} {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(""); err == nil {
				t.Errorf("expected error for %s=%s", key, val)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "test.env", "RANGEBOT_TEST_DOTENV=loaded\n")
	t.Setenv("RANGEBOT_TEST_DOTENV", "")
	os.Unsetenv("RANGEBOT_TEST_DOTENV")

	if err := loadEnvFile(path); err != nil {
		t.Fatalf("loadEnvFile() failed: %v", err)
	}
	if got := os.Getenv("RANGEBOT_TEST_DOTENV"); got != "loaded" {
		t.Errorf("RANGEBOT_TEST_DOTENV = %q", got)
	}

	if err := loadEnvFile(filepath.Join(dir, "absent.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errSub string
	}{
		{"bad port", func(c *Config) { c.Meshtastic.Port = "" }, "meshtastic.port"},
		{"sim without local id", func(c *Config) { c.Sim.LocalID = " " }, "sim.localId"},
		{"no commands", func(c *Config) { c.Responder.Commands = nil }, "responder.commands"},
		{"blank command", func(c *Config) { c.Responder.Commands = []string{"ping", " "} }, "responder.commands[1]"},
		{"greeting without text", func(c *Config) {
			c.Responder.Greeting = GreetingConfig{Enabled: true}
		}, "greeting.text"},
		{"zero send timeout", func(c *Config) { c.Responder.SendTimeout = 0 }, "sendTimeout"},
		{"sim node without id", func(c *Config) {
			c.Sim.Nodes = []radiolink.NodeInfo{{LongName: "x"}}
		}, "sim.nodes[0].id"},
		{"audit without dir", func(c *Config) { c.Audit.Dir = "" }, "audit.dir"},
		{"http without addr", func(c *Config) { c.HTTP = HTTPConfig{Enabled: true} }, "http.addr"},
		{"hs256 without secret", func(c *Config) { c.Auth.Algorithm = "HS256" }, "secretKey"},
		{"rs256 without key", func(c *Config) { c.Auth.Algorithm = "RS256" }, "publicKeyPem"},
		{"unknown algorithm", func(c *Config) { c.Auth.Algorithm = "none" }, "auth.algorithm"},
		{"zero buffer", func(c *Config) { c.Telemetry.BufferSize = 0 }, "bufferSize"},
		{"fast heartbeat", func(c *Config) { c.Telemetry.HeartbeatInterval = time.Millisecond }, "heartbeatInterval"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error %q does not mention %q", err, tt.errSub)
			}
		})
	}
}

func TestValidateSerialPortDoesNotNeedSimID(t *testing.T) {
	cfg := Defaults()
	cfg.Meshtastic.Port = "/dev/ttyUSB0"
	cfg.Sim.LocalID = ""
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
