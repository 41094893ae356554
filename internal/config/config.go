// Package config loads focusql settings from a YAML file with environment
// overrides. A missing file yields the defaults.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xhit/go-str2duration/v2"
	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable holding the config file path.
const EnvPath = "FOCUSQL_CONFIG"

// Cache backends.
const (
	CacheMemory = "memory"
	CacheBadger = "badger"
	CacheOff    = "off"
)

// Duration is a time.Duration that unmarshals from strings such as
// "90s", "2h30m" or "1d".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: duration must be a string: %w", node.Line, err)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// ParseDuration accepts Go durations plus d and w units.
func ParseDuration(s string) (time.Duration, error) {
	d, err := str2duration.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return d, nil
}

// Host configures the automation subprocess.
type Host struct {
	Binary       string   `yaml:"binary"`
	Language     string   `yaml:"language"`
	Application  string   `yaml:"application"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`
	TempDir      string   `yaml:"temp_dir"`
}

// Cache configures the result cache.
type Cache struct {
	Backend       string              `yaml:"backend"`
	Dir           string              `yaml:"dir"`
	MaxEntries    int                 `yaml:"max_entries"`
	SweepInterval Duration            `yaml:"sweep_interval"`
	TTL           map[string]Duration `yaml:"ttl"`
}

// Journal configures the execution journal. An empty path disables it.
type Journal struct {
	Path string `yaml:"path"`
}

// Query holds request limits.
type Query struct {
	DefaultLimit int `yaml:"default_limit"`
	MaxLimit     int `yaml:"max_limit"`
}

// Log configures logging.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the complete configuration.
type Config struct {
	Host    Host    `yaml:"host"`
	Cache   Cache   `yaml:"cache"`
	Journal Journal `yaml:"journal"`
	Query   Query   `yaml:"query"`
	Log     Log     `yaml:"log"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Host: Host{
			Binary:       "osascript",
			Language:     "JavaScript",
			Application:  "OmniFocus",
			ReadTimeout:  Duration(30 * time.Second),
			WriteTimeout: Duration(2 * time.Minute),
		},
		Cache: Cache{
			Backend:       CacheMemory,
			MaxEntries:    1000,
			SweepInterval: Duration(time.Minute),
		},
		Query: Query{
			DefaultLimit: 50,
			MaxLimit:     200,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultPath returns $FOCUSQL_CONFIG, or ~/.config/focusql/config.yaml.
func DefaultPath() string {
	if p := os.Getenv(EnvPath); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "focusql", "config.yaml")
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. An empty path means DefaultPath; a missing file
// is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FOCUSQL_HOST_BINARY"); v != "" {
		c.Host.Binary = v
	}
	if v := os.Getenv("FOCUSQL_APPLICATION"); v != "" {
		c.Host.Application = v
	}
	if v := os.Getenv("FOCUSQL_CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("FOCUSQL_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := os.Getenv("FOCUSQL_JOURNAL"); v != "" {
		c.Journal.Path = v
	}
	if v := os.Getenv("FOCUSQL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	for env, dst := range map[string]*Duration{
		"FOCUSQL_READ_TIMEOUT":  &c.Host.ReadTimeout,
		"FOCUSQL_WRITE_TIMEOUT": &c.Host.WriteTimeout,
	} {
		v := os.Getenv(env)
		if v == "" {
			continue
		}
		d, err := ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", env, err)
		}
		*dst = Duration(d)
	}
	if v := os.Getenv("FOCUSQL_DEFAULT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("FOCUSQL_DEFAULT_LIMIT: %w", err)
		}
		c.Query.DefaultLimit = n
	}
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Host.Binary == "" {
		return fmt.Errorf("host.binary must not be empty")
	}
	if c.Host.ReadTimeout <= 0 {
		return fmt.Errorf("host.read_timeout must be positive, got %s", c.Host.ReadTimeout.Std())
	}
	if c.Host.WriteTimeout <= 0 {
		return fmt.Errorf("host.write_timeout must be positive, got %s", c.Host.WriteTimeout.Std())
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheBadger, CacheOff:
	default:
		return fmt.Errorf("cache.backend must be memory, badger or off, got %q", c.Cache.Backend)
	}
	for name, ttl := range c.Cache.TTL {
		if ttl <= 0 {
			return fmt.Errorf("cache.ttl.%s must be positive", name)
		}
	}
	if c.Query.MaxLimit < 1 || c.Query.MaxLimit > 1000 {
		return fmt.Errorf("query.max_limit must be within 1-1000, got %d", c.Query.MaxLimit)
	}
	if c.Query.DefaultLimit < 1 || c.Query.DefaultLimit > c.Query.MaxLimit {
		return fmt.Errorf("query.default_limit must be within 1-%d, got %d", c.Query.MaxLimit, c.Query.DefaultLimit)
	}
	return nil
}

// String is a one-line summary for logs.
func (c *Config) String() string {
	return fmt.Sprintf("Config{Host: %s/%s, Cache: %s, Journal: %q, Limits: %d/%d}",
		c.Host.Binary, c.Host.Application, c.Cache.Backend, c.Journal.Path,
		c.Query.DefaultLimit, c.Query.MaxLimit)
}
