package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
	"github.com/yourusername/mcp-amazon-photos/pkg/auth"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
	"github.com/yourusername/mcp-amazon-photos/pkg/refresh"
	"github.com/yourusername/mcp-amazon-photos/pkg/tools"
	"golang.org/x/time/rate"
)

// Server represents the MCP Amazon Photos server
type Server struct {
	config         *config.Config
	mcpServer      *server.MCPServer
	streamableHTTP *server.StreamableHTTPServer
	provider       *amazon.Provider
	cache          *cache.Cache
	rateLimiter    *rate.Limiter
	authProvider   auth.Provider
	refresher      *refresh.Scheduler
}

// New creates a new MCP Amazon Photos server
func New(cfg *config.Config) (*Server, error) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 100
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 200
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.AmazonTimeout <= 0 {
		cfg.AmazonTimeout = 30 * time.Second
	}

	// Lazy client/store provider; credentials are resolved on first use
	provider := amazon.NewProvider(amazon.ProviderOptions{
		CookiesFile: cfg.CookiesFile,
		DBPath:      cfg.DBPath,
		Timeout:     cfg.AmazonTimeout,
	})

	// Create cache
	cacheStore := cache.New(cfg.CacheTTL, cfg.CacheTTL*2)

	// Create rate limiter
	rateLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)

	// Create auth provider
	authProvider, err := createAuthProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		"mcp-amazon-photos",
		"1.0.0",
	)

	// Register all tools
	tools.RegisterTools(mcpServer, cfg, provider, cacheStore)

	// Create StreamableHTTP server
	streamableHTTP := server.NewStreamableHTTPServer(mcpServer)

	// Create metadata refresh scheduler
	refresher := refresh.NewScheduler(cfg, provider)

	s := &Server{
		config:         cfg,
		mcpServer:      mcpServer,
		streamableHTTP: streamableHTTP,
		provider:       provider,
		cache:          cacheStore,
		rateLimiter:    rateLimiter,
		authProvider:   authProvider,
		refresher:      refresher,
	}

	return s, nil
}

// Connect eagerly constructs the Amazon Photos client so credential
// problems surface at startup instead of on the first tool call.
func (s *Server) Connect(ctx context.Context) error {
	_, err := s.provider.Client()
	return err
}

// Start starts the server with the configured transport
func (s *Server) Start(ctx context.Context, transportMode string) error {
	switch transportMode {
	case "stdio":
		return s.startStdio(ctx)
	case "http":
		return s.startHTTP(ctx)
	default:
		return fmt.Errorf("invalid transport mode: %s", transportMode)
	}
}

// startStdio serves MCP over stdin/stdout
func (s *Server) startStdio(ctx context.Context) error {
	log.Info().Msg("Starting stdio server")

	if err := s.refresher.Start(); err != nil {
		return fmt.Errorf("failed to start refresh scheduler: %w", err)
	}
	defer s.refresher.Stop()
	defer s.provider.Close()

	return server.NewStdioServer(s.mcpServer).Listen(ctx, os.Stdin, os.Stdout)
}

// startHTTP starts the server with StreamableHTTP transport
func (s *Server) startHTTP(ctx context.Context) error {
	mux := http.NewServeMux()

	// MCP StreamableHTTP endpoint
	mux.HandleFunc("/mcp", s.streamableHTTP.ServeHTTP)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Ready check
	mux.HandleFunc("/ready", s.handleReady)

	// Apply middleware
	handler := s.authMiddleware(
		s.rateLimitMiddleware(
			s.loggingMiddleware(mux),
		),
	)

	httpServer := &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.config.ListenAddr).Msg("Starting StreamableHTTP server")

	// Start metadata refresh scheduler
	if err := s.refresher.Start(); err != nil {
		return fmt.Errorf("failed to start refresh scheduler: %w", err)
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	// Wait for context or error
	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")

		s.refresher.Stop()
		s.provider.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.refresher.Stop()
		s.provider.Close()
		return err
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
		log.Error().Err(err).Msg("Failed to write health response")
	}
}

// handleReady handles readiness check requests
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	// Check Amazon Photos connectivity
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	client, err := s.provider.Client()
	if err == nil {
		_, err = client.Usage(ctx)
	}
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte(`{"status":"not_ready","reason":"amazon_unavailable"}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write ready error response")
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ready"}`)); err != nil {
		log.Error().Err(err).Msg("Failed to write ready response")
	}
}

// createAuthProvider creates the appropriate auth provider based on config
func createAuthProvider(cfg *config.Config) (auth.Provider, error) {
	switch cfg.AuthMode {
	case "none":
		return auth.NewNoOpProvider(), nil
	case "api_key":
		return auth.NewAPIKeyProvider(cfg.APIKeys), nil
	case "oauth":
		if cfg.OAuth == nil {
			return nil, fmt.Errorf("oauth config required for oauth auth mode")
		}
		return auth.NewOAuthProvider(cfg.OAuth)
	case "both":
		providers := []auth.Provider{}
		if len(cfg.APIKeys) > 0 {
			providers = append(providers, auth.NewAPIKeyProvider(cfg.APIKeys))
		}
		if cfg.OAuth != nil {
			oauthProvider, err := auth.NewOAuthProvider(cfg.OAuth)
			if err != nil {
				return nil, err
			}
			providers = append(providers, oauthProvider)
		}
		return auth.NewMultiProvider(providers...), nil
	default:
		return nil, fmt.Errorf("invalid auth mode: %s", cfg.AuthMode)
	}
}
