package amazon

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ProviderOptions configures lazy client construction.
type ProviderOptions struct {
	// CookiesFile overrides the default cookies.json location. The
	// AMAZON_PHOTOS_COOKIES environment variable still takes priority.
	CookiesFile string
	// DBPath overrides the default node store location. The
	// AMAZON_PHOTOS_DB environment variable still takes priority.
	DBPath string
	// Timeout applies to every API call.
	Timeout time.Duration
}

// Provider hands out the single process-wide client and node store,
// constructing both on first use. Construction failures are returned but not
// memoized, so a later call can succeed once the operator fixes the
// configuration. Once constructed, the pair is never rebuilt; cookie expiry
// is not detected at this layer.
type Provider struct {
	opts ProviderOptions

	mu     sync.Mutex
	client *Client
	store  *NodeStore
}

// NewProvider creates a provider. Nothing is constructed until the first
// Client or Store call.
func NewProvider(opts ProviderOptions) *Provider {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Provider{opts: opts}
}

// Client returns the memoized client, constructing it on first use.
func (p *Provider) Client() (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return nil, err
	}
	return p.client, nil
}

// Store returns the memoized node store, constructing the client pair on
// first use.
func (p *Provider) Store() (*NodeStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.init(); err != nil {
		return nil, err
	}
	return p.store, nil
}

// init must be called with p.mu held.
func (p *Provider) init() error {
	if p.client != nil {
		return nil
	}

	cookies, err := LoadCookies(p.opts.CookiesFile)
	if err != nil {
		return err
	}
	if len(cookies) == 0 {
		cookiesPath := p.opts.CookiesFile
		if cookiesPath == "" {
			cookiesPath, _ = DefaultCookiesPath()
		}
		return fmt.Errorf(
			"no Amazon cookies configured: set %s to a JSON object, or create %s with keys ubid_main, at_main, session-id",
			CookiesEnv, cookiesPath,
		)
	}

	dbPath := os.Getenv(DBPathEnv)
	if dbPath == "" {
		dbPath = p.opts.DBPath
	}
	if dbPath == "" {
		dbPath, err = DefaultDBPath()
		if err != nil {
			return err
		}
	}

	store, err := OpenNodeStore(dbPath)
	if err != nil {
		return err
	}

	p.client = NewClient(cookies, p.opts.Timeout)
	p.store = store

	log.Info().Str("db_path", dbPath).Msg("Amazon Photos client initialised")

	return nil
}

// Close releases the node store. Safe to call when nothing was constructed.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	p.client = nil
	return err
}
