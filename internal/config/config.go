// Package config loads and stores CLI configuration in the XDG config dir.
// Only non-secret settings are kept here; the bearer token and telemetry
// DSN go to the OS keychain.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	apperr "formplay/cli/internal/errors"
	"formplay/cli/internal/xdg"
)

// FileName is the config file inside the XDG config directory.
const FileName = "config.toml"

// Environment overrides.
const (
	EnvBaseURL  = "FORMPLAY_BASE_URL"
	EnvDomain   = "FORMPLAY_DOMAIN"
	EnvUsername = "FORMPLAY_USERNAME"
	EnvToken    = "FORMPLAY_TOKEN"
)

// Telemetry sinks.
const (
	SinkNone     = "none"
	SinkLog      = "log"
	SinkPostgres = "postgres"
	SinkGRPC     = "grpc"
)

// Config holds non-sensitive CLI settings.
type Config struct {
	BaseURL           string            `toml:"base_url"`
	Domain            string            `toml:"domain"`
	Username          string            `toml:"username"`
	LogLevel          string            `toml:"log_level"`
	RequestTimeoutMs  int               `toml:"request_timeout_ms"`
	RequestsPerSecond float64           `toml:"requests_per_second"`
	Debugger          bool              `toml:"debugger"`
	Timezone          string            `toml:"timezone"`
	FetchManifest     bool              `toml:"fetch_manifest"`
	ManifestPublicKey string            `toml:"manifest_public_key"`
	StorePath         string            `toml:"store_path"`
	Telemetry         TelemetryConfig   `toml:"telemetry"`
	Actions           map[string]string `toml:"actions"`
}

// TelemetryConfig selects where failure reports go.
type TelemetryConfig struct {
	Sink     string `toml:"sink"`
	GRPCAddr string `toml:"grpc_addr"`
	Insecure bool   `toml:"insecure"`
}

// Default returns the settings used when no config file exists.
func Default() Config {
	return Config{
		LogLevel:         "info",
		RequestTimeoutMs: 30000,
		FetchManifest:    true,
		Telemetry:        TelemetryConfig{Sink: SinkLog},
	}
}

// Path returns the path to the config file.
func Path() (string, error) {
	dir, err := xdg.ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load reads the XDG config file and applies environment overrides;
// a missing file yields defaults.
func Load() (Config, error) {
	p, err := Path()
	if err != nil {
		return Default(), err
	}
	c, err := LoadFile(p)
	if err != nil {
		return c, err
	}
	applyEnv(&c)
	return c, nil
}

// LoadFile reads the config at path. A missing file returns defaults.
// Keys absent from the file keep their default values.
func LoadFile(path string) (Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return c, err
	}
	if _, err := toml.Decode(string(data), &c); err != nil {
		return c, apperr.Wrap(apperr.Config, fmt.Sprintf("failed to parse config file %s", path), err)
	}
	return c, nil
}

func applyEnv(c *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		c.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDomain)); v != "" {
		c.Domain = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvUsername)); v != "" {
		c.Username = v
	}
}

// TokenFromEnv returns a bearer token supplied through the environment,
// which takes precedence over the keychain.
func TokenFromEnv() string {
	return strings.TrimSpace(os.Getenv(EnvToken))
}

// Save writes configuration to the XDG path with 0600 permissions.
func Save(c Config) error {
	p, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(p, c)
}

// SaveFile writes configuration to path with 0600 permissions.
func SaveFile(path string, c Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o600)
}

// Validate reports settings that make the form service unreachable.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return apperr.New(apperr.Config, "base_url is not set; run: formplay config set base_url https://...")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.New(apperr.Config, fmt.Sprintf("base_url %q is not an http(s) URL", c.BaseURL))
	}
	if c.RequestTimeoutMs < 0 {
		return apperr.New(apperr.Config, "request_timeout_ms must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return apperr.New(apperr.Config, "requests_per_second must not be negative")
	}
	switch c.Telemetry.Sink {
	case "", SinkNone, SinkLog, SinkPostgres:
	case SinkGRPC:
		if c.Telemetry.GRPCAddr == "" {
			return apperr.New(apperr.Config, "telemetry.grpc_addr is required for the grpc sink")
		}
	default:
		return apperr.New(apperr.Config, fmt.Sprintf("unknown telemetry.sink %q", c.Telemetry.Sink))
	}
	return nil
}

// RequestTimeout is the per-request timeout as a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// Set updates one setting by its dotted key. Action overrides use
// "actions.<NAME>".
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)
	if name, ok := strings.CutPrefix(key, "actions."); ok {
		if c.Actions == nil {
			c.Actions = map[string]string{}
		}
		name = strings.ToUpper(name)
		if value == "" {
			delete(c.Actions, name)
		} else {
			c.Actions[name] = value
		}
		return nil
	}

	var err error
	switch key {
	case "base_url":
		c.BaseURL = strings.TrimRight(value, "/")
	case "domain":
		c.Domain = value
	case "username":
		c.Username = value
	case "log_level":
		c.LogLevel = value
	case "request_timeout_ms":
		c.RequestTimeoutMs, err = strconv.Atoi(value)
	case "requests_per_second":
		c.RequestsPerSecond, err = strconv.ParseFloat(value, 64)
	case "debugger":
		c.Debugger, err = strconv.ParseBool(value)
	case "timezone":
		c.Timezone = value
	case "fetch_manifest":
		c.FetchManifest, err = strconv.ParseBool(value)
	case "manifest_public_key":
		c.ManifestPublicKey = value
	case "store_path":
		c.StorePath = value
	case "telemetry.sink":
		c.Telemetry.Sink = value
	case "telemetry.grpc_addr":
		c.Telemetry.GRPCAddr = value
	case "telemetry.insecure":
		c.Telemetry.Insecure, err = strconv.ParseBool(value)
	default:
		return apperr.New(apperr.Config, fmt.Sprintf("unknown config key %q", key))
	}
	if err != nil {
		return apperr.Wrap(apperr.Config, fmt.Sprintf("invalid value for %s", key), err)
	}
	return nil
}

// Entries lists every setting as key/value pairs for display.
func (c Config) Entries() [][2]string {
	out := [][2]string{
		{"base_url", c.BaseURL},
		{"domain", c.Domain},
		{"username", c.Username},
		{"log_level", c.LogLevel},
		{"request_timeout_ms", strconv.Itoa(c.RequestTimeoutMs)},
		{"requests_per_second", strconv.FormatFloat(c.RequestsPerSecond, 'g', -1, 64)},
		{"debugger", strconv.FormatBool(c.Debugger)},
		{"timezone", c.Timezone},
		{"fetch_manifest", strconv.FormatBool(c.FetchManifest)},
		{"store_path", c.StorePath},
		{"telemetry.sink", c.Telemetry.Sink},
		{"telemetry.grpc_addr", c.Telemetry.GRPCAddr},
		{"telemetry.insecure", strconv.FormatBool(c.Telemetry.Insecure)},
	}
	names := make([]string, 0, len(c.Actions))
	for k := range c.Actions {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		out = append(out, [2]string{"actions." + k, c.Actions[k]})
	}
	return out
}
