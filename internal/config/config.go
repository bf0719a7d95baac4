package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"twinconsole/internal/models"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up when none is given.
const DefaultFile = "twinconsole.yml"

// Environment overrides applied after the file is read.
const (
	EnvBackendWS   = "TWIN_BACKEND_WS_URL"
	EnvBackendHTTP = "TWIN_BACKEND_HTTP_URL"
	EnvListenAddr  = "TWIN_LISTEN_ADDR"
	EnvJWTSecret   = "TWIN_JWT_SECRET"
)

// Config is the root configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Stream  StreamConfig  `yaml:"stream"`
	Console ConsoleConfig `yaml:"console"`
	Control ControlConfig `yaml:"control"`
	Hub     HubConfig     `yaml:"hub"`
	History HistoryConfig `yaml:"history"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig controls the HTTP listener and its middleware.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	AllowedIPs      []string      `yaml:"allowed_ips"`
	StaticDir       string        `yaml:"static_dir"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StreamConfig controls the backend telemetry subscription.
type StreamConfig struct {
	Source       string        `yaml:"source"` // backend|simulated
	URL          string        `yaml:"url"`
	Reconnect    *bool         `yaml:"reconnect"`
	ReconnectMin time.Duration `yaml:"reconnect_min"`
	ReconnectMax time.Duration `yaml:"reconnect_max"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	SimInterval  time.Duration `yaml:"sim_interval"`
}

// ReconnectEnabled reports the effective reconnect policy.
func (s StreamConfig) ReconnectEnabled() bool {
	return s.Reconnect == nil || *s.Reconnect
}

// ConsoleConfig sizes the view models.
type ConsoleConfig struct {
	Channels    []models.ChannelMeta `yaml:"channels"`
	TrendLength int                  `yaml:"trend_length"`
	MaxEvents   int                  `yaml:"max_events"`
	MaxBuckets  int                  `yaml:"max_buckets"`
	BucketWidth time.Duration        `yaml:"bucket_width"`
	BucketTZ    string               `yaml:"bucket_timezone"`
	LogMessages bool                 `yaml:"log_messages"`
}

// ControlConfig points at the backend's REST control surface.
type ControlConfig struct {
	BaseURL      string        `yaml:"base_url"`
	Timeout      time.Duration `yaml:"timeout"`
	StatusTTL    time.Duration `yaml:"status_ttl"`
	InitialSpeed float64       `yaml:"initial_speed"`
}

// HubConfig controls renderer push.
type HubConfig struct {
	Interval   time.Duration `yaml:"interval"`
	SendBuffer int           `yaml:"send_buffer"`
}

// HistoryConfig controls feed health sampling.
type HistoryConfig struct {
	Interval  time.Duration `yaml:"interval"`
	MaxPoints int           `yaml:"max_points"`
}

// AuthConfig controls operator tokens.
type AuthConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Secret      string        `yaml:"secret"`
	SecretFile  string        `yaml:"secret_file"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

// LoggingConfig controls logging output.
type LoggingConfig struct {
	Enabled *bool  `yaml:"enabled"`
	Level   string `yaml:"level"`
	File    string `yaml:"file"`
	Console bool   `yaml:"console"`
}

// IsEnabled defaults logging to on.
func (l LoggingConfig) IsEnabled() bool {
	return l.Enabled == nil || *l.Enabled
}

// DefaultChannels is the tracked channel allow-list of the SWaT console:
// the process-stage sensors shown on the overview plus the synthetic
// anomaly score.
func DefaultChannels() []models.ChannelMeta {
	return []models.ChannelMeta{
		{ID: "fit101", Name: "Flow FIT101", Unit: "m³/h"},
		{ID: "lit101", Name: "Tank Level LIT101", Unit: "mm"},
		{ID: "ait201", Name: "Conductivity AIT201", Unit: "µS/cm"},
		{ID: "fit201", Name: "Flow FIT201", Unit: "m³/h"},
		{ID: "ait203", Name: "ORP AIT203", Unit: "mV"},
		{ID: "fit301", Name: "Flow FIT301", Unit: "m³/h"},
		{ID: "dpit301", Name: "UF Diff. Pressure DPIT301", Unit: "kPa"},
		{ID: "lit301", Name: "Tank Level LIT301", Unit: "mm"},
		{ID: "ait401", Name: "Hardness AIT401", Unit: "ppm"},
		{ID: "ait402", Name: "ORP AIT402", Unit: "mV"},
		{ID: "lit401", Name: "Tank Level LIT401", Unit: "mm"},
		{ID: "ait503", Name: "RO Conductivity AIT503", Unit: "µS/cm"},
		{ID: "ait504", Name: "RO Permeate AIT504", Unit: "µS/cm"},
		{ID: "pit502", Name: "RO Pressure PIT502", Unit: "kPa"},
		{ID: "fit601", Name: "Backwash Flow FIT601", Unit: "m³/h"},
		{ID: "anomaly_score", Name: "Anomaly Score", Unit: ""},
	}
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path, applies defaults and environment overrides, and validates.
// A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile resolves the config path: the explicit argument if it
// exists, then ./twinconsole.yml, then next to the executable.
func FindConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
	}

	if _, err := os.Stat(DefaultFile); err == nil {
		return DefaultFile
	}

	if exePath, err := os.Executable(); err == nil {
		path := filepath.Join(filepath.Dir(exePath), DefaultFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	if configArg != "" {
		return configArg
	}
	return DefaultFile
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = "localhost:8080"
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}

	if c.Stream.Source == "" {
		c.Stream.Source = "backend"
	}
	if c.Stream.URL == "" {
		c.Stream.URL = "ws://localhost:8000/ws/stream"
	}
	if c.Stream.ReconnectMin <= 0 {
		c.Stream.ReconnectMin = time.Second
	}
	if c.Stream.ReconnectMax <= 0 {
		c.Stream.ReconnectMax = 30 * time.Second
	}
	if c.Stream.DialTimeout <= 0 {
		c.Stream.DialTimeout = 10 * time.Second
	}
	if c.Stream.SimInterval <= 0 {
		c.Stream.SimInterval = 2 * time.Second
	}

	if len(c.Console.Channels) == 0 {
		c.Console.Channels = DefaultChannels()
	}
	if c.Console.TrendLength <= 0 {
		c.Console.TrendLength = 150
	}
	if c.Console.MaxEvents <= 0 {
		c.Console.MaxEvents = 50
	}
	if c.Console.MaxBuckets <= 0 {
		c.Console.MaxBuckets = 19
	}
	if c.Console.BucketWidth <= 0 {
		c.Console.BucketWidth = 30 * time.Second
	}
	if c.Console.BucketTZ == "" {
		c.Console.BucketTZ = "UTC"
	}

	if c.Control.BaseURL == "" {
		c.Control.BaseURL = "http://localhost:8000"
	}
	if c.Control.Timeout <= 0 {
		c.Control.Timeout = 5 * time.Second
	}
	if c.Control.StatusTTL <= 0 {
		c.Control.StatusTTL = time.Second
	}
	if c.Control.InitialSpeed <= 0 {
		c.Control.InitialSpeed = 1
	}

	if c.Hub.Interval <= 0 {
		c.Hub.Interval = time.Second
	}
	if c.Hub.SendBuffer <= 0 {
		c.Hub.SendBuffer = 256
	}

	if c.History.Interval <= 0 {
		c.History.Interval = time.Second
	}
	if c.History.MaxPoints <= 0 {
		c.History.MaxPoints = 600
	}

	if c.Auth.TokenExpiry <= 0 {
		c.Auth.TokenExpiry = 90 * 24 * time.Hour
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvBackendWS)); v != "" {
		c.Stream.URL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendHTTP)); v != "" {
		c.Control.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvListenAddr)); v != "" {
		c.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJWTSecret)); v != "" {
		c.Auth.Secret = v
	}
}

// Validate checks values defaults cannot repair.
func (c *Config) Validate() error {
	switch c.Stream.Source {
	case "backend", "simulated":
	default:
		return fmt.Errorf("stream.source must be backend or simulated, got %q", c.Stream.Source)
	}

	u, err := url.Parse(c.Stream.URL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return fmt.Errorf("stream.url must be a ws:// or wss:// URL, got %q", c.Stream.URL)
	}
	u, err = url.Parse(c.Control.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("control.base_url must be an http(s) URL, got %q", c.Control.BaseURL)
	}

	if c.Stream.ReconnectMax < c.Stream.ReconnectMin {
		return fmt.Errorf("stream.reconnect_max (%s) is below reconnect_min (%s)", c.Stream.ReconnectMax, c.Stream.ReconnectMin)
	}

	seen := make(map[string]bool, len(c.Console.Channels))
	for _, ch := range c.Console.Channels {
		if strings.TrimSpace(ch.ID) == "" {
			return fmt.Errorf("console.channels: channel id is required")
		}
		if seen[ch.ID] {
			return fmt.Errorf("console.channels: duplicate channel %q", ch.ID)
		}
		seen[ch.ID] = true
	}

	if _, err := time.LoadLocation(c.Console.BucketTZ); err != nil {
		return fmt.Errorf("console.bucket_timezone: %w", err)
	}
	return nil
}
