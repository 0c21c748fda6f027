package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

const validConfig = `
server:
  port: 9090
identity:
  issuer: https://id.example.com
  audience: appcanvas
  jwks_url: https://id.example.com/.well-known/jwks.json
upstream:
  base_url: https://config.example.com
  shared_token: fixed-app-token
`

func TestLoad_valid(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "https://config.example.com" {
		t.Errorf("BaseURL = %q", cfg.Upstream.BaseURL)
	}
	// Defaults survive partial files.
	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want default 30s", cfg.Server.ReadTimeout)
	}
	if cfg.Cache.MaxAge != 5*time.Minute {
		t.Errorf("Cache.MaxAge = %v, want default 5m", cfg.Cache.MaxAge)
	}
	if cfg.Journal.Driver != "memory" {
		t.Errorf("Journal.Driver = %q, want memory", cfg.Journal.Driver)
	}
}

func TestLoad_missingRequiredFields(t *testing.T) {
	_, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	if err == nil {
		t.Fatal("Load accepted a config without identity and upstream settings")
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("Load accepted a missing file")
	}
}

func TestLoad_malformedYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "server: [broken")); err == nil {
		t.Fatal("Load accepted malformed YAML")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("APPCANVAS_SERVER_PORT", "7777")
	t.Setenv("APPCANVAS_UPSTREAM_BASE_URL", "https://override.example.com")

	cfg, err := Load(writeConfig(t, validConfig))
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("Port = %d, want env override 7777", cfg.Server.Port)
	}
	if cfg.Upstream.BaseURL != "https://override.example.com" {
		t.Errorf("BaseURL = %q, want env override", cfg.Upstream.BaseURL)
	}
}

func TestValidate_portRange(t *testing.T) {
	cfg := Defaults()
	cfg.Identity.Issuer = "i"
	cfg.Identity.Audience = "a"
	cfg.Identity.JWKSURL = "u"
	cfg.Upstream.BaseURL = "b"
	cfg.Upstream.SharedToken = "t"

	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted port 0")
	}
	cfg.Server.Port = 65536
	if err := cfg.Validate(); err == nil {
		t.Error("Validate accepted port 65536")
	}
	cfg.Server.Port = 8080
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate rejected a valid config: %v", err)
	}
}
