package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, "http://127.0.0.1:8000", c.ServerURL)
	assert.Equal(t, "127.0.0.1:50051", c.HealthAddress)
	assert.Equal(t, 3*time.Second, c.OnlineCheckInterval)
	assert.Equal(t, 30*time.Second, c.Timeout)
}

func writeJSON(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "client.json")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoad(t *testing.T) {
	file := writeJSON(t, `{"server_url":"http://portal:8000","online_check_interval":"10s","timeout":5000000000}`)

	tests := []struct {
		name     string
		args     []string
		expected *Config
		wantErr  bool
	}{
		{
			name: "defaults",
			args: nil,
			expected: &Config{ServerURL: "http://127.0.0.1:8000", HealthAddress: "127.0.0.1:50051",
				OnlineCheckInterval: 3 * time.Second, Timeout: 30 * time.Second},
		},
		{
			name: "flags",
			args: []string{"-a", "http://x:1", "-i", "10s", "--health", ""},
			expected: &Config{ServerURL: "http://x:1", HealthAddress: "",
				OnlineCheckInterval: 10 * time.Second, Timeout: 30 * time.Second},
		},
		{
			name: "json",
			args: []string{"-c", file},
			expected: &Config{ServerURL: "http://portal:8000", HealthAddress: "127.0.0.1:50051",
				OnlineCheckInterval: 10 * time.Second, Timeout: 5 * time.Second},
		},
		{
			name: "flags override json",
			args: []string{"--config", file, "--timeout", "1s"},
			expected: &Config{ServerURL: "http://portal:8000", HealthAddress: "127.0.0.1:50051",
				OnlineCheckInterval: 10 * time.Second, Timeout: time.Second},
		},
		{name: "bad interval", args: []string{"-i", "abc"}, wantErr: true},
		{name: "missing file", args: []string{"-c", "/does/not/exist.json"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestLoad_BadJSON(t *testing.T) {
	_, err := Load([]string{"-c", writeJSON(t, `{"timeout": true}`)})
	require.Error(t, err)

	_, err = Load([]string{"-c", writeJSON(t, `{"timeout": "soon"}`)})
	require.Error(t, err)
}
