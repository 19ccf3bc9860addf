package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(map[string]string{"PENNANT_SDK_KEY": "key"})
	require.NoError(t, err)

	assert.Equal(t, "key", cfg.SDKKey)
	assert.Equal(t, "global", cfg.DataGovernance)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "pennant:", cfg.RedisPrefix)
	assert.Empty(t, cfg.CacheDir)
}

func TestLoadConfig_Overrides(t *testing.T) {
	cfg, err := LoadConfig(map[string]string{
		"PENNANT_SDK_KEY":         "key",
		"PENNANT_BASE_URL":        "https://proxy.example.com",
		"PENNANT_DATA_GOVERNANCE": "eu",
		"PENNANT_HTTP_TIMEOUT":    "5s",
		"PENNANT_REDIS_ADDR":      "localhost:6379",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://proxy.example.com", cfg.BaseURL)
	assert.Equal(t, "eu", cfg.DataGovernance)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		environ map[string]string
	}{
		{"missing sdk key", map[string]string{}},
		{"bad timeout", map[string]string{"PENNANT_SDK_KEY": "k", "PENNANT_HTTP_TIMEOUT": "soon"}},
		{"bad data governance", map[string]string{"PENNANT_SDK_KEY": "k", "PENNANT_DATA_GOVERNANCE": "mars"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(tt.environ)
			assert.Error(t, err)
		})
	}
}
