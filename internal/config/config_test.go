package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	apperr "formplay/cli/internal/errors"
)

func TestLoadFileMissingReturnsDefaults(t *testing.T) {
	c, err := LoadFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.LogLevel != "info" || c.RequestTimeoutMs != 30000 || !c.FetchManifest {
		t.Errorf("defaults not applied: %+v", c)
	}
	if c.RequestTimeout() != 30*time.Second {
		t.Errorf("RequestTimeout() = %v", c.RequestTimeout())
	}
}

func TestLoadFileKeepsDefaultsForAbsentKeys(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	content := `
base_url = "https://forms.example.org/fp"
domain = "demo"

[telemetry]
sink = "grpc"
grpc_addr = "collector:7000"

[actions]
SUBMIT = "submit-v2"
`
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if c.BaseURL != "https://forms.example.org/fp" || c.Domain != "demo" {
		t.Errorf("unexpected values: %+v", c)
	}
	if c.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want default", c.LogLevel)
	}
	if c.Actions["SUBMIT"] != "submit-v2" {
		t.Errorf("Actions = %v", c.Actions)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestLoadFileParseError(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(p, []byte("base_url = "), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFile(p)
	if !apperr.Is(err, apperr.Config) {
		t.Errorf("LoadFile() error = %v, want config kind", err)
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	p := filepath.Join(t.TempDir(), FileName)
	c := Default()
	c.BaseURL = "https://x.test"
	c.Actions = map[string]string{"ANSWER": "ans"}
	if err := SaveFile(p, c); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	info, err := os.Stat(p)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %o, want 600", info.Mode().Perm())
	}
	got, err := LoadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseURL != c.BaseURL || got.Actions["ANSWER"] != "ans" {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestLoadAppliesEnv(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv(EnvBaseURL, "https://env.test")
	t.Setenv(EnvDomain, "envdomain")
	t.Setenv(EnvToken, " tok ")

	c, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if c.BaseURL != "https://env.test" || c.Domain != "envdomain" {
		t.Errorf("env not applied: %+v", c)
	}
	if TokenFromEnv() != "tok" {
		t.Errorf("TokenFromEnv() = %q", TokenFromEnv())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(c *Config) {}, false},
		{"missing base url", func(c *Config) { c.BaseURL = "" }, true},
		{"bad scheme", func(c *Config) { c.BaseURL = "ftp://x" }, true},
		{"negative timeout", func(c *Config) { c.RequestTimeoutMs = -1 }, true},
		{"grpc without addr", func(c *Config) { c.Telemetry.Sink = SinkGRPC }, true},
		{"unknown sink", func(c *Config) { c.Telemetry.Sink = "kafka" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			c.BaseURL = "https://forms.example.org"
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSet(t *testing.T) {
	c := Default()
	steps := []struct {
		key, value string
		wantErr    bool
	}{
		{"base_url", "https://x.test/", false},
		{"debugger", "true", false},
		{"debugger", "maybe", true},
		{"requests_per_second", "2.5", false},
		{"actions.submit", "submit-v3", false},
		{"telemetry.sink", "postgres", false},
		{"nope", "1", true},
	}
	for _, s := range steps {
		err := c.Set(s.key, s.value)
		if (err != nil) != s.wantErr {
			t.Errorf("Set(%q, %q) error = %v, wantErr %v", s.key, s.value, err, s.wantErr)
		}
	}
	if c.BaseURL != "https://x.test" || !c.Debugger || c.RequestsPerSecond != 2.5 {
		t.Errorf("unexpected config: %+v", c)
	}
	if c.Actions["SUBMIT"] != "submit-v3" || c.Telemetry.Sink != SinkPostgres {
		t.Errorf("unexpected config: %+v", c)
	}

	if err := c.Set("actions.SUBMIT", ""); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Actions["SUBMIT"]; ok {
		t.Error("empty value should remove the override")
	}
}
