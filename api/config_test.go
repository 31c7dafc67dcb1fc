package api

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultServerConfig(t *testing.T) {
	config := DefaultServerConfig()
	require.NoError(t, config.Validate())
	require.Equal(t, ":50051", config.Address)
	require.Equal(t, MaxMessageSize, config.MaxMessageSize)
	require.GreaterOrEqual(t, config.CompareChunks, 1)
}

func TestLoadServerConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
address: 127.0.0.1:7000
compare_chunks: 3
idle_timeout: 30s
`), 0o600))

	config, err := LoadServerConfig(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:7000", config.Address)
	require.Equal(t, 3, config.CompareChunks)
	require.Equal(t, 30*time.Second, config.IdleTimeout)
	// untouched fields keep their defaults
	require.Equal(t, ":9090", config.MetricsAddress)
	require.Equal(t, MaxMessageSize, config.MaxMessageSize)
}

func TestLoadServerConfigErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadServerConfig(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("address: [unclosed"), 0o600))
	_, err = LoadServerConfig(bad)
	require.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("compare_chunks: 0\n"), 0o600))
	_, err = LoadServerConfig(invalid)
	require.ErrorContains(t, err, "compare_chunks")
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvAddress, "0.0.0.0:6000")
	t.Setenv(EnvMetricsAddress, "")
	t.Setenv(EnvCompareChunks, "2")

	config := DefaultServerConfig()
	require.NoError(t, config.ApplyEnv())
	require.Equal(t, "0.0.0.0:6000", config.Address)
	require.Empty(t, config.MetricsAddress)
	require.Equal(t, 2, config.CompareChunks)

	t.Setenv(EnvCompareChunks, "many")
	require.Error(t, DefaultServerConfig().ApplyEnv())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ServerConfig)
	}{
		{name: "empty address", mutate: func(c *ServerConfig) { c.Address = "" }},
		{name: "zero message size", mutate: func(c *ServerConfig) { c.MaxMessageSize = 0 }},
		{name: "message size above maximum", mutate: func(c *ServerConfig) { c.MaxMessageSize = MaxMessageSize + 1 }},
		{name: "negative chunks", mutate: func(c *ServerConfig) { c.CompareChunks = -1 }},
		{name: "negative idle timeout", mutate: func(c *ServerConfig) { c.IdleTimeout = -time.Second }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultServerConfig()
			tt.mutate(config)
			require.Error(t, config.Validate())
		})
	}
}
