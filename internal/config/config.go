package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dshills/storefront/internal/config/loader"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "STOREFRONT_"

// Config is the merged runtime configuration.
type Config struct {
	API     API     `yaml:"api"`
	Logging Logging `yaml:"logging"`
	Metrics Metrics `yaml:"metrics"`

	// Strict makes programmer errors in the state layer panic.
	Strict bool `yaml:"strict"`

	// Watch reloads the config file when it changes.
	Watch bool `yaml:"watch"`
}

// API configures the shop API client.
type API struct {
	Origin    string   `yaml:"origin"`
	Timeout   Duration `yaml:"timeout"`
	RateLimit float64  `yaml:"rate_limit"`
	Burst     int      `yaml:"burst"`
}

// Logging configures the application logger.
type Logging struct {
	Level string `yaml:"level"`
}

// Metrics configures the Prometheus endpoint. Empty Addr disables it.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// Defaults returns the built-in settings as a nested map.
func Defaults() map[string]any {
	return map[string]any{
		"api": map[string]any{
			"origin":     "http://localhost:3000",
			"timeout":    "10s",
			"rate_limit": 5.0,
			"burst":      1,
		},
		"logging": map[string]any{
			"level": "info",
		},
		"metrics": map[string]any{
			"addr": "",
		},
		"strict": false,
		"watch":  false,
	}
}

// LoadOptions controls which layers Load reads.
type LoadOptions struct {
	// Path is the config file. Empty skips the file layer.
	Path string

	// FS is the file system for Path. Defaults to the OS.
	FS loader.FileSystem

	// SkipEnv disables the environment layer.
	SkipEnv bool

	// Overrides are dot-path settings applied last, typically from flags.
	Overrides map[string]any
}

// Load merges defaults, the config file, the environment and overrides,
// in increasing order of precedence, and validates the result.
func Load(opts LoadOptions) (*Config, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = loader.DefaultFS()
	}

	merged := Defaults()

	if opts.Path != "" {
		if _, err := fsys.Stat(opts.Path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", ErrFileNotFound, opts.Path)
			}
			return nil, fmt.Errorf("stat config file: %w", err)
		}
		fl, err := loader.ForPath(fsys, opts.Path)
		if err != nil {
			return nil, err
		}
		data, err := fl.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, data)
	}

	if !opts.SkipEnv {
		data, err := loader.NewEnvLoader(EnvPrefix).Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, data)
	}

	if len(opts.Overrides) > 0 {
		layer := make(map[string]any)
		for path, v := range opts.Overrides {
			loader.SetByPath(layer, path, v)
		}
		merged = loader.DeepMerge(merged, layer)
	}

	cfg, err := decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode converts the merged map into a Config by a YAML round trip so
// that every layer's loose types go through the same decoding rules.
func decode(m map[string]any) (*Config, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encoding merged config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate checks the settings the application cannot start without.
func (c *Config) Validate() error {
	var errs ValidationErrors

	u, err := url.Parse(c.API.Origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, &ValidationError{Path: "api.origin", Message: "must be an http(s) URL", Value: c.API.Origin})
	}
	if c.API.Timeout <= 0 {
		errs = append(errs, &ValidationError{Path: "api.timeout", Message: "must be positive", Value: c.API.Timeout})
	}
	if c.API.RateLimit < 0 {
		errs = append(errs, &ValidationError{Path: "api.rate_limit", Message: "must not be negative", Value: c.API.RateLimit})
	}
	if c.API.Burst < 1 {
		errs = append(errs, &ValidationError{Path: "api.burst", Message: "must be at least 1", Value: c.API.Burst})
	}
	if !validLevel(c.Logging.Level) {
		errs = append(errs, &ValidationError{
			Path:    "logging.level",
			Message: "must be one of " + strings.Join(logLevels, ", "),
			Value:   c.Logging.Level,
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validLevel(level string) bool {
	level = strings.ToLower(level)
	for _, l := range logLevels {
		if l == level {
			return true
		}
	}
	return false
}
