package source

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/rs/zerolog/log"
)

const (
	APIName      = "api"
	PostgresName = "postgres"
	MySQLName    = "mysql"
)

// Factory builds a listing source on demand
type Factory func() (domain.ListingSource, error)

// Registry resolves listing sources by name
type Registry struct {
	factories map[string]Factory
	mu        sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces the factory for name
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Names returns the registered source names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open builds the source registered under name
func (r *Registry) Open(name string) (domain.ListingSource, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("listing source not found: %s", name)
	}

	src, err := factory()
	if err != nil {
		return nil, fmt.Errorf("failed to open listing source %s: %w", name, err)
	}
	return src, nil
}

// Lister is the remote API surface the api source needs
type Lister interface {
	ListListings(ctx context.Context, criteria domain.FilterCriteria) (*domain.ListingPage, error)
}

// API delegates to the remote backend, which filters server-side
type API struct {
	client Lister
}

func NewAPI(client Lister) *API {
	return &API{client: client}
}

func (a *API) Name() string { return APIName }

func (a *API) Fetch(ctx context.Context, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	page, err := a.client.ListListings(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if page.Results == nil {
		page.Results = []domain.Listing{}
	}
	return page, nil
}

// Repository reads the whole catalog and filters it in process
type Repository struct {
	name string
	repo domain.ListingRepository
}

func NewRepository(name string, repo domain.ListingRepository) *Repository {
	return &Repository{name: name, repo: repo}
}

func (r *Repository) Name() string { return r.name }

func (r *Repository) Fetch(ctx context.Context, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	all, err := r.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	results := marketplace.Filter(all, criteria)
	return &domain.ListingPage{Results: results, Count: len(results)}, nil
}

// PageCache stores listing pages keyed by filter criteria
type PageCache interface {
	Get(ctx context.Context, source string, criteria domain.FilterCriteria) (*domain.ListingPage, error)
	Set(ctx context.Context, source string, criteria domain.FilterCriteria, page *domain.ListingPage, ttl time.Duration) error
}

// Cached is a read-through cache in front of another source.
// Cache failures degrade to a direct fetch.
type Cached struct {
	next  domain.ListingSource
	cache PageCache
	ttl   time.Duration
}

func NewCached(next domain.ListingSource, cache PageCache, ttl time.Duration) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) Fetch(ctx context.Context, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	logger := log.Ctx(ctx)

	page, err := c.cache.Get(ctx, c.next.Name(), criteria)
	if err != nil {
		logger.Warn().Err(err).Msg("Listing cache read failed")
	} else if page != nil {
		return page, nil
	}

	page, err = c.next.Fetch(ctx, criteria)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, c.next.Name(), criteria, page, c.ttl); err != nil {
		logger.Warn().Err(err).Msg("Listing cache write failed")
	}
	return page, nil
}
