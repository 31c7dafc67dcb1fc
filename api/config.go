package api

import (
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the list-view server.
type ServerConfig struct {
	// Address to listen on (e.g., ":50051")
	Address string `yaml:"address"`

	// MetricsAddress serves /metrics and /health; empty disables it
	MetricsAddress string `yaml:"metrics_address"`

	// MaxMessageSize is the largest accepted frame payload in bytes
	MaxMessageSize int `yaml:"max_message_size"`

	// CompareChunks is the number of concurrent chunks per comparison
	CompareChunks int `yaml:"compare_chunks"`

	// IdleTimeout closes connections that send nothing for this long; zero
	// disables it
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:        ":50051",
		MetricsAddress: ":9090",
		MaxMessageSize: MaxMessageSize,
		CompareChunks:  runtime.GOMAXPROCS(0),
		IdleTimeout:    5 * time.Minute,
	}
}

// Environment variables read by ApplyEnv.
const (
	EnvAddress        = "LISTVIEW_ADDR"
	EnvMetricsAddress = "LISTVIEW_METRICS_ADDR"
	EnvCompareChunks  = "LISTVIEW_COMPARE_CHUNKS"
)

// ApplyEnv overrides fields from the environment.
func (c *ServerConfig) ApplyEnv() error {
	if v, ok := os.LookupEnv(EnvAddress); ok {
		c.Address = v
	}
	if v, ok := os.LookupEnv(EnvMetricsAddress); ok {
		c.MetricsAddress = v
	}
	if v, ok := os.LookupEnv(EnvCompareChunks); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %s", EnvCompareChunks)
		}
		c.CompareChunks = n
	}
	return c.Validate()
}

// Validate checks the configuration for values the server cannot run with.
func (c *ServerConfig) Validate() error {
	if c.Address == "" {
		return errors.New("address must not be empty")
	}
	if c.MaxMessageSize <= 0 || c.MaxMessageSize > MaxMessageSize {
		return errors.Errorf("max_message_size must be in (0, %d], got %d", MaxMessageSize, c.MaxMessageSize)
	}
	if c.CompareChunks < 1 {
		return errors.Errorf("compare_chunks must be positive, got %d", c.CompareChunks)
	}
	if c.IdleTimeout < 0 {
		return errors.Errorf("idle_timeout must not be negative, got %s", c.IdleTimeout)
	}
	return nil
}

// LoadServerConfig reads a YAML file over the defaults. Fields missing from
// the file keep their default values.
func LoadServerConfig(path string) (*ServerConfig, error) {
	config := DefaultServerConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config")
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config %s", path)
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return config, nil
}
