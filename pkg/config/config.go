// Package config holds runtime settings for the sivaguard CLI and server.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName names the XDG directories and the default config file.
const AppName = "sivaguard"

// Defaults.
const (
	DefaultTimeout          = 8 * time.Second
	DefaultCacheTTL         = 24 * time.Hour
	DefaultRateDelay        = time.Second
	DefaultMaxBodyBytes     = 2 << 20
	DefaultMaxReverseLinks  = 80
	DefaultMaxExternalLinks = 50
	DefaultConcurrency      = 4
	DefaultMaxNextSteps     = 6
	DefaultMaxStages        = 6
	DefaultListenAddr       = ":8080"
	DefaultConfigFile       = ".sivaguard.yaml"
)

// Validation errors.
var (
	ErrConfigNotFound     = errors.New("configuration file not found")
	ErrInvalidTimeout     = errors.New("invalid timeout: must be positive")
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")
	ErrInvalidRateDelay   = errors.New("invalid rate delay: must be non-negative")
	ErrInvalidLimit       = errors.New("invalid limit: must be non-negative")
)

// Config is the complete runtime configuration. Zero values in a YAML file
// leave the defaults untouched.
type Config struct {
	CacheDir          string        `yaml:"cache_dir"`
	AuditDir          string        `yaml:"audit_dir"`
	ListenAddr        string        `yaml:"listen_addr"`
	Timeout           time.Duration `yaml:"timeout"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	RateDelay         time.Duration `yaml:"rate_delay"`
	MaxBodyBytes      int64         `yaml:"max_body_bytes"`
	MaxReverseLinks   int           `yaml:"max_reverse_links"`
	MaxExternalLinks  int           `yaml:"max_external_links"`
	Concurrency       int           `yaml:"concurrency"`
	MaxNextSteps      int           `yaml:"max_next_steps"`
	MaxStages         int           `yaml:"max_stages"`
	NoCache           bool          `yaml:"no_cache"`
	AllowPrivateHosts bool          `yaml:"allow_private_hosts"`
}

// New returns a Config with default values.
func New() *Config {
	return &Config{
		CacheDir:         filepath.Join(xdg.CacheHome, AppName),
		ListenAddr:       DefaultListenAddr,
		Timeout:          DefaultTimeout,
		CacheTTL:         DefaultCacheTTL,
		RateDelay:        DefaultRateDelay,
		MaxBodyBytes:     DefaultMaxBodyBytes,
		MaxReverseLinks:  DefaultMaxReverseLinks,
		MaxExternalLinks: DefaultMaxExternalLinks,
		Concurrency:      DefaultConcurrency,
		MaxNextSteps:     DefaultMaxNextSteps,
		MaxStages:        DefaultMaxStages,
	}
}

// DataDir is the default directory for the audit database.
func DataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Load reads a YAML file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FindFile returns the first existing config file: explicit if set, then
// ./.sivaguard.yaml, then $XDG_CONFIG_HOME/sivaguard/config.yaml. It returns
// "" when none exists.
func FindFile(explicit string) string {
	if explicit != "" {
		if _, err := os.Stat(explicit); err == nil {
			return explicit
		}
		return ""
	}
	if cwd, err := os.Getwd(); err == nil {
		p := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	p := filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// Resolve loads the file FindFile locates, or the defaults when there is
// none. An explicit path that does not exist is an error.
func Resolve(explicit string) (*Config, error) {
	path := FindFile(explicit)
	switch {
	case path != "":
		return Load(path)
	case explicit != "":
		return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, explicit)
	default:
		return New(), nil
	}
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.RateDelay < 0 {
		return ErrInvalidRateDelay
	}
	if c.MaxReverseLinks < 0 || c.MaxExternalLinks < 0 || c.MaxNextSteps < 0 || c.MaxStages < 0 || c.MaxBodyBytes < 0 {
		return ErrInvalidLimit
	}
	return nil
}
