package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/openmcp-project/graph-explorer-db/internal/store"
)

// PathEnvVar names the environment variable holding the config file path.
const PathEnvVar = "GRAPH_EXPLORER_CONFIG"

type Config struct {
	Address  string      `yaml:"address"`
	LogLevel string      `yaml:"logLevel"`
	Store    StoreConfig `yaml:"store"`
	Sync     SyncConfig  `yaml:"sync"`
	Query    QueryConfig `yaml:"query"`
}

type StoreConfig struct {
	Engine string `yaml:"engine"`
	Path   string `yaml:"path"`
}

type SyncConfig struct {
	Workers           int           `yaml:"workers"`
	DiscoveryCacheTTL time.Duration `yaml:"discoveryCacheTTL"`
}

type QueryConfig struct {
	CacheTTL             time.Duration `yaml:"cacheTTL"`
	CacheCleanupInterval time.Duration `yaml:"cacheCleanupInterval"`
}

func Default() Config {
	return Config{
		Address:  ":3000",
		LogLevel: "info",
		Store: StoreConfig{
			Engine: store.EngineMem,
		},
		Sync: SyncConfig{
			Workers: 1,
		},
		Query: QueryConfig{
			CacheTTL:             30 * time.Second,
			CacheCleanupInterval: time.Minute,
		},
	}
}

// Load reads the file at path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(content)
}

func Parse(content []byte) (Config, error) {
	config := Default()
	if err := yaml.Unmarshal(content, &config); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %v", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Address == "" {
		errs = append(errs, errors.New("address is empty"))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch c.Store.Engine {
	case store.EngineMem:
	case store.EngineBolt:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path is required for the %s engine", store.EngineBolt))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store.engine %q", c.Store.Engine))
	}
	if c.Sync.Workers < 1 {
		errs = append(errs, fmt.Errorf("sync.workers must be at least 1, got %d", c.Sync.Workers))
	}
	if c.Sync.DiscoveryCacheTTL < 0 {
		errs = append(errs, errors.New("sync.discoveryCacheTTL must not be negative"))
	}
	if c.Query.CacheTTL < 0 || c.Query.CacheCleanupInterval < 0 {
		errs = append(errs, errors.New("query cache durations must not be negative"))
	}
	return errors.Join(errs...)
}

// Level parses LogLevel ("debug", "info", "warn", "error").
func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid logLevel: %w", err)
	}
	return level, nil
}
