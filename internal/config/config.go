package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL  = "https://backend-ideas-8pfw.onrender.com"
	DefaultTimeout = 10 * time.Second

	// FileName is the optional config file inside the state directory
	FileName = "config.yaml"
)

// Config holds the client settings
type Config struct {
	APIURL   string
	Timeout  time.Duration
	StateDir string
}

// Overrides are values set explicitly on the command line. Empty values are ignored.
type Overrides struct {
	APIURL   string
	Timeout  time.Duration
	StateDir string
}

// Load resolves the configuration. Precedence, lowest first: defaults,
// <state-dir>/config.yaml, BOOKFEED_* environment variables, overrides.
func Load(o Overrides) (*Config, error) {
	cfg := &Config{
		APIURL:  DefaultAPIURL,
		Timeout: DefaultTimeout,
	}

	stateDir := firstNonEmpty(o.StateDir, os.Getenv("BOOKFEED_STATE_DIR"))
	if stateDir == "" {
		dir, err := defaultStateDir()
		if err != nil {
			return nil, err
		}
		stateDir = dir
	}
	cfg.StateDir = stateDir

	if err := cfg.loadFile(filepath.Join(stateDir, FileName)); err != nil {
		return nil, err
	}

	if v := os.Getenv("BOOKFEED_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("BOOKFEED_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("BOOKFEED_TIMEOUT: invalid duration %q", v)
		}
		cfg.Timeout = d
	}

	if o.APIURL != "" {
		cfg.APIURL = o.APIURL
	}
	if o.Timeout > 0 {
		cfg.Timeout = o.Timeout
	}

	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the resolved values
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.APIURL, "http://") && !strings.HasPrefix(c.APIURL, "https://") {
		return fmt.Errorf("api url must start with http:// or https://, got %q", c.APIURL)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	return nil
}

// CacheDir holds processed images awaiting upload
func (c *Config) CacheDir() string {
	return filepath.Join(c.StateDir, "cache")
}

// StoragePath is the key-value file holding the persisted session
func (c *Config) StoragePath() string {
	return filepath.Join(c.StateDir, "storage.json")
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var file struct {
		APIURL  string `yaml:"api_url"`
		Timeout string `yaml:"timeout"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if file.APIURL != "" {
		c.APIURL = file.APIURL
	}
	if file.Timeout != "" {
		d, err := time.ParseDuration(file.Timeout)
		if err != nil {
			return fmt.Errorf("%s: invalid timeout %q", path, file.Timeout)
		}
		c.Timeout = d
	}
	return nil
}

func defaultStateDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "bookfeed"), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
