package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "stdio", cfg.TransportMode)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "none", cfg.AuthMode)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 200, cfg.RefreshPageSize)
	assert.False(t, cfg.EnableAutoRefresh)
	assert.Positive(t, cfg.CacheTTL)
	assert.Positive(t, cfg.AmazonTimeout)
}

func TestValidateTransportMode(t *testing.T) {
	cfg := &Config{TransportMode: "carrier-pigeon", AuthMode: "none"}

	err := cfg.Validate()

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "transport_mode")
}

func TestValidateAuthModes(t *testing.T) {
	tests := []struct {
		name     string
		authMode string
		apiKeys  []string
		oauth    *OAuthConfig
		wantErr  bool
	}{
		{name: "no auth", authMode: "none"},
		{name: "api key auth with keys", authMode: "api_key", apiKeys: []string{"key1"}},
		{name: "api key auth without keys", authMode: "api_key", wantErr: true},
		{name: "oauth without config", authMode: "oauth", wantErr: true},
		{name: "oauth with config", authMode: "oauth", oauth: &OAuthConfig{ClientID: "id"}},
		{name: "unknown mode", authMode: "leap-of-faith", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				TransportMode: "stdio",
				AuthMode:      tt.authMode,
				APIKeys:       tt.apiKeys,
				OAuth:         tt.oauth,
			}

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
