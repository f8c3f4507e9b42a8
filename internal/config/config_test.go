package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nocmx/vigia/internal/cache"
)

func TestLoad_Defaults(t *testing.T) {
	v, err := Load("")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, 8080, v.GetInt("server.port"))
	assert.Equal(t, "0.0.0.0", v.GetString("server.host"))
	assert.Equal(t, "info", v.GetString("logging.level"))
	assert.Equal(t, "json", v.GetString("logging.format"))
	assert.False(t, v.GetBool("auth.enabled"))

	assert.Equal(t, "http://localhost:8000", v.GetString("nms.url"))
	assert.Equal(t, 500, v.GetInt("nms.page_size"))
	assert.Equal(t, 30*time.Second, v.GetDuration("nms.timeout"))

	assert.InDelta(t, 5000.0, v.GetFloat64("threshold.static_mbps"), 1e-9)
	assert.InDelta(t, 0.4, v.GetFloat64("health.weight_availability"), 1e-9)

	aliases := v.GetStringMapString("aggregate.plaza_aliases")
	assert.Equal(t, "Monterrey", aliases["mty"])
	assert.Equal(t, "Guadalajara", aliases["gdl"])

	assert.False(t, v.GetBool("narrative.enabled"))
	assert.Equal(t, "http://localhost:11434", v.GetString("narrative.url"))
}

func TestLoad_CacheTTLPolicy(t *testing.T) {
	v, err := Load("")
	require.NoError(t, err)

	var ttl cache.TTLPolicy
	require.NoError(t, v.Sub("cache").Unmarshal(&ttl))

	assert.Equal(t, 2*time.Minute, ttl.Aggregate)
	assert.Equal(t, 5*time.Minute, ttl.Trend)
	assert.Equal(t, 30*time.Minute, ttl.Narrative)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
nms:
  url: http://nms.internal:8000
  token: secret-token
logging:
  level: debug
`)

	v, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, v.GetInt("server.port"))
	assert.Equal(t, "http://nms.internal:8000", v.GetString("nms.url"))
	assert.Equal(t, "secret-token", v.GetString("nms.token"))
	assert.Equal(t, "debug", v.GetString("logging.level"))

	// Keys not present in the file keep their defaults.
	assert.Equal(t, 500, v.GetInt("nms.page_size"))
}

func TestLoad_MalformedFile(t *testing.T) {
	path := writeConfig(t, "server: [not: valid: yaml")

	_, err := Load(path)
	require.Error(t, err)
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json production", "info", "json", false},
		{"console development", "debug", "console", false},
		{"empty format defaults to json", "warn", "", false},
		{"invalid level", "loud", "json", true},
		{"invalid format", "info", "xml", true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v, err := Load("")
			require.NoError(t, err)
			v.Set("logging.level", tc.level)
			v.Set("logging.format", tc.format)

			logger, err := NewLogger(v)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
		})
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vigia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
