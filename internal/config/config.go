// YAML config loader with CUE validation integration
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultEndpoint = "wss://platform.meshbrasil.com/positions/"

// Environment variables overriding file values.
const (
	EnvEndpoint  = "MESHMAP_ENDPOINT"
	EnvAdminAddr = "MESHMAP_ADMIN_ADDR"
	EnvLogLevel  = "MESHMAP_LOG_LEVEL"
)

// Reconnect selects the delay policy used between connection attempts.
type Reconnect struct {
	Strategy   string        `yaml:"strategy"` // constant | exponential
	Delay      time.Duration `yaml:"delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
	Multiplier float64       `yaml:"multiplier"`
}

// Eviction bounds the number of devices kept in memory. Zero values disable
// the corresponding rule.
type Eviction struct {
	EvictAfter    time.Duration `yaml:"evict_after"`
	MaxDevices    int           `yaml:"max_devices"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

type Admin struct {
	Addr string `yaml:"addr"`
}

type Viewer struct {
	Refresh time.Duration `yaml:"refresh"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Config is the root configuration of the live feed client.
type Config struct {
	Endpoint          string        `yaml:"endpoint"`
	Reconnect         Reconnect     `yaml:"reconnect"`
	ConnectedDebounce time.Duration `yaml:"connected_debounce"`
	HandshakeTimeout  time.Duration `yaml:"handshake_timeout"`
	ReadLimitBytes    int64         `yaml:"read_limit_bytes"`
	Eviction          Eviction      `yaml:"eviction"`
	Admin             Admin         `yaml:"admin"`
	Viewer            Viewer        `yaml:"viewer"`
	Logging           Logging       `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Endpoint: DefaultEndpoint,
		Reconnect: Reconnect{
			Strategy:   "constant",
			Delay:      5 * time.Second,
			MaxDelay:   time.Minute,
			Multiplier: 2,
		},
		ConnectedDebounce: 1200 * time.Millisecond,
		HandshakeTimeout:  10 * time.Second,
		ReadLimitBytes:    1 << 20,
		Eviction: Eviction{
			SweepInterval: time.Minute,
		},
		Viewer: Viewer{
			Refresh: 500 * time.Millisecond,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a YAML config, validates it against the embedded CUE schema and
// fills unset values from Default. An empty path yields Default.
func Load(configPath string) (*Config, error) {
	cfg := Default()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := Validate(configPath, data); err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// ApplyEnv overrides fields from MESHMAP_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvEndpoint); v != "" {
		c.Endpoint = v
	}
	if v, ok := os.LookupEnv(EnvAdminAddr); ok {
		c.Admin.Addr = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

// fillDefaults replaces zero values that would leave a component unusable.
func (c *Config) fillDefaults() {
	d := Default()
	if c.Endpoint == "" {
		c.Endpoint = d.Endpoint
	}
	if c.Reconnect.Strategy == "" {
		c.Reconnect.Strategy = d.Reconnect.Strategy
	}
	if c.Reconnect.Delay <= 0 {
		c.Reconnect.Delay = d.Reconnect.Delay
	}
	if c.Reconnect.MaxDelay < c.Reconnect.Delay {
		c.Reconnect.MaxDelay = c.Reconnect.Delay
	}
	if c.Reconnect.Multiplier < 1 {
		c.Reconnect.Multiplier = d.Reconnect.Multiplier
	}
	if c.ConnectedDebounce <= 0 {
		c.ConnectedDebounce = d.ConnectedDebounce
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = d.HandshakeTimeout
	}
	if c.Eviction.SweepInterval <= 0 {
		c.Eviction.SweepInterval = d.Eviction.SweepInterval
	}
	if c.Viewer.Refresh <= 0 {
		c.Viewer.Refresh = d.Viewer.Refresh
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = d.Logging.Format
	}
}
