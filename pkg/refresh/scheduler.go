package refresh

import (
	"context"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazon"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
)

// Scheduler manages periodic refreshes of the local metadata store
type Scheduler struct {
	cfg      *config.Config
	provider *amazon.Provider
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
}

// NewScheduler creates a new refresh scheduler
func NewScheduler(cfg *config.Config, provider *amazon.Provider) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		provider: provider,
		cron:     cron.New(cron.WithSeconds()),
		running:  false,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Warn().Msg("Refresh scheduler already running")
		return nil
	}

	if !s.cfg.EnableAutoRefresh {
		log.Info().Msg("Auto refresh disabled in configuration, scheduler not started")
		return nil
	}

	log.Info().
		Str("cron_expression", s.cfg.RefreshCron).
		Int("page_size", s.cfg.RefreshPageSize).
		Msg("Starting refresh scheduler")

	_, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
		s.runRefresh()
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	log.Info().Msg("Refresh scheduler started successfully")

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Info().Msg("Stopping refresh scheduler")

	ctx := s.cron.Stop()
	<-ctx.Done()

	s.running = false

	log.Info().Msg("Refresh scheduler stopped")
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow triggers an immediate refresh of the metadata store
func (s *Scheduler) RunNow(ctx context.Context) (int, error) {
	log.Info().Msg("Running metadata refresh on demand")
	return s.refresh(ctx)
}

func (s *Scheduler) runRefresh() {
	total, err := s.refresh(context.Background())
	if err != nil {
		log.Error().Err(err).Msg("Scheduled metadata refresh failed")
		return
	}
	log.Info().Int("files", total).Msg("Scheduled metadata refresh completed")
}

func (s *Scheduler) refresh(ctx context.Context) (int, error) {
	client, err := s.provider.Client()
	if err != nil {
		return 0, err
	}
	store, err := s.provider.Store()
	if err != nil {
		return 0, err
	}
	return client.RefreshStore(ctx, store, s.cfg.RefreshPageSize)
}
