package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		TransportMode:      "http",
		AuthMode:           "none",
		DBPath:             t.TempDir() + "/ap.db",
		CacheTTL:           5 * time.Minute,
		RateLimitPerSecond: 100,
		RateLimitBurst:     200,
		RequestTimeout:     30 * time.Second,
		RefreshPageSize:    200,
	}
}

func TestNewServer(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)
	assert.NotNil(t, srv)
	assert.NotNil(t, srv.mcpServer)
	assert.NotNil(t, srv.provider)
	assert.NotNil(t, srv.cache)
	assert.NotNil(t, srv.rateLimiter)
	assert.NotNil(t, srv.authProvider)
	assert.NotNil(t, srv.refresher)
}

func TestServerHealthCheck(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	srv.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestServerReadyWithoutCredentials(t *testing.T) {
	t.Setenv("AMAZON_PHOTOS_COOKIES", "")

	cfg := testConfig(t)
	cfg.CookiesFile = t.TempDir() + "/absent.json"
	srv, err := New(cfg)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	w := httptest.NewRecorder()

	srv.handleReady(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not_ready")
}

func TestServerAuthModes(t *testing.T) {
	tests := []struct {
		name     string
		authMode string
		apiKeys  []string
		wantErr  bool
	}{
		{
			name:     "no auth",
			authMode: "none",
			wantErr:  false,
		},
		{
			name:     "api key auth with keys",
			authMode: "api_key",
			apiKeys:  []string{"key1", "key2"},
			wantErr:  false,
		},
		{
			name:     "api key auth without keys",
			authMode: "api_key",
			apiKeys:  []string{},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.AuthMode = tt.authMode
			cfg.APIKeys = tt.apiKeys

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := testConfig(t)
	cfg.RateLimitPerSecond = 1 // Very low for testing
	cfg.RateLimitBurst = 1

	srv, err := New(cfg)
	require.NoError(t, err)

	handler := srv.rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// First request should succeed
	req1 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w1 := httptest.NewRecorder()
	handler.ServeHTTP(w1, req1)
	assert.Equal(t, http.StatusOK, w1.Code)

	// Second immediate request should be rate limited
	req2 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w2 := httptest.NewRecorder()
	handler.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusTooManyRequests, w2.Code)

	// Wait for rate limiter to reset
	time.Sleep(1100 * time.Millisecond)

	// Third request should succeed
	req3 := httptest.NewRequest(http.MethodGet, "/test", nil)
	w3 := httptest.NewRecorder()
	handler.ServeHTTP(w3, req3)
	assert.Equal(t, http.StatusOK, w3.Code)
}

func TestLoggingMiddlewareSetsRequestID(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)

	handler := srv.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestLoggingMiddlewarePreservesRequestID(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)

	handler := srv.loggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-Id", "caller-supplied")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, "caller-supplied", w.Header().Get("X-Request-Id"))
}

func TestStartRejectsUnknownTransport(t *testing.T) {
	srv, err := New(testConfig(t))
	require.NoError(t, err)

	err = srv.Start(context.Background(), "carrier-pigeon")
	assert.Error(t, err)
}

func TestStartStopServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.ListenAddr = ":0" // Random port

	srv, err := New(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start(ctx, "http")
	}()

	// Give server time to start
	time.Sleep(100 * time.Millisecond)

	// Stop server
	cancel()

	// Wait for server to stop
	select {
	case err := <-errChan:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Server did not stop in time")
	}
}
