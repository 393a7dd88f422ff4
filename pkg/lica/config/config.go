package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/lica/pkg/lica/internalerr"
)

// Config is the process configuration shared by the binaries
type Config struct {
	// DataDir holds the reference datasets; empty means the packaged data.
	DataDir string `yaml:"data_dir"`
	// Database is a sqlite file of imported datasets; it takes precedence over DataDir.
	Database    string             `yaml:"database"`
	Listen      string             `yaml:"listen"`
	CacheSize   int                `yaml:"cache_size"`
	FoldAccents bool               `yaml:"fold_accents"`
	LogLevel    string             `yaml:"log_level"`
	LogPretty   bool               `yaml:"log_pretty"`
	Interests   map[string]float64 `yaml:"interests"`
}

// Default returns the configuration used when no file is given
func Default() *Config {
	return &Config{
		Listen:    ":8050",
		CacheSize: 4096,
		LogLevel:  "info",
		Interests: map[string]float64{},
	}
}

// Load reads a YAML file over the defaults
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", internalerr.ErrInvalidConfig, path, err)
	}
	if cfg.Interests == nil {
		cfg.Interests = map[string]float64{}
	}

	return cfg, nil
}

// ApplyEnv overrides fields from LICA_* variables looked up with getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("LICA_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := getenv("LICA_DATABASE"); v != "" {
		c.Database = v
	}
	if v := getenv("LICA_LISTEN"); v != "" {
		c.Listen = v
	}
	if v := getenv("LICA_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LICA_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: LICA_CACHE_SIZE=%q", internalerr.ErrInvalidConfig, v)
		}
		c.CacheSize = n
	}
	return nil
}

// Validate checks field ranges
func (c *Config) Validate() error {
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache_size must not be negative", internalerr.ErrInvalidConfig)
	}
	if strings.TrimSpace(c.Listen) == "" {
		return fmt.Errorf("%w: listen address is empty", internalerr.ErrInvalidConfig)
	}
	for key := range c.Interests {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: empty interest key", internalerr.ErrInvalidConfig)
		}
	}
	return nil
}
