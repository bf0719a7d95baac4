package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twinconsole.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.Server.Addr)
	assert.Equal(t, "ws://localhost:8000/ws/stream", cfg.Stream.URL)
	assert.Equal(t, "http://localhost:8000", cfg.Control.BaseURL)
	assert.Equal(t, 150, cfg.Console.TrendLength)
	assert.Equal(t, 50, cfg.Console.MaxEvents)
	assert.Equal(t, 19, cfg.Console.MaxBuckets)
	assert.Equal(t, 30*time.Second, cfg.Console.BucketWidth)
	assert.True(t, cfg.Stream.ReconnectEnabled())
	assert.True(t, cfg.Logging.IsEnabled())
	assert.Equal(t, DefaultChannels(), cfg.Console.Channels)
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9090"
stream:
  url: ws://twin:8000/ws/stream
  reconnect: false
console:
  trend_length: 20
  channels:
    - id: lit101
      name: Tank Level
      unit: "%"
    - id: anomaly_score
      name: Anomaly Score
control:
  base_url: http://twin:8000
  status_ttl: 250ms
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.False(t, cfg.Stream.ReconnectEnabled())
	assert.Equal(t, 20, cfg.Console.TrendLength)
	assert.Len(t, cfg.Console.Channels, 2)
	assert.Equal(t, 250*time.Millisecond, cfg.Control.StatusTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvBackendWS, "wss://remote/ws/stream")
	t.Setenv(EnvBackendHTTP, "https://remote")
	t.Setenv(EnvListenAddr, "0.0.0.0:7000")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	require.NoError(t, err)

	assert.Equal(t, "wss://remote/ws/stream", cfg.Stream.URL)
	assert.Equal(t, "https://remote", cfg.Control.BaseURL)
	assert.Equal(t, "0.0.0.0:7000", cfg.Server.Addr)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"bad source":      "stream:\n  source: kafka\n",
		"bad stream url":  "stream:\n  url: http://x/ws\n",
		"bad control url": "control:\n  base_url: ftp://x\n",
		"duplicate":       "console:\n  channels:\n    - id: a\n    - id: a\n",
		"backoff order":   "stream:\n  reconnect_min: 10s\n  reconnect_max: 1s\n",
		"timezone":        "console:\n  bucket_timezone: Mars/Olympus\n",
		"yaml":            "server: [",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	path := writeConfig(t, "server:\n  addr: x\n")
	assert.Equal(t, path, FindConfigFile(path))
}
