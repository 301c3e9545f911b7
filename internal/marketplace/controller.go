package marketplace

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/metrics"
	"github.com/rs/zerolog/log"
)

// Controller drives a Store: filter actions go in, fetches come out.
// Only the most recently issued fetch may write listings or an error.
type Controller struct {
	store   *Store
	source  domain.ListingSource
	timeout time.Duration
	metrics *metrics.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewController(store *Store, source domain.ListingSource, timeout time.Duration, m *metrics.Metrics) *Controller {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Controller{
		store:   store,
		source:  source,
		timeout: timeout,
		metrics: m,
	}
}

func (c *Controller) Store() *Store {
	return c.store
}

// Load starts the initial fetch if none has been issued yet
func (c *Controller) Load(ctx context.Context) State {
	if c.store.Latest() == 0 {
		c.Refresh(ctx)
	}
	return c.store.State()
}

// Apply dispatches action and re-fetches when it changed the filters
func (c *Controller) Apply(ctx context.Context, action Action) State {
	prev, next := c.store.Transition(action)

	if IsFilterAction(action) && !prev.Filters.Equal(next.Filters) {
		c.Refresh(ctx)
	}
	return c.store.State()
}

// Refresh supersedes any in-flight fetch and starts a new one for the
// current filters. The fetch outlives ctx but inherits its logger.
// After Close it does nothing and returns 0.
func (c *Controller) Refresh(ctx context.Context) uint64 {
	logger := log.Ctx(ctx).With().Str("source", c.source.Name()).Logger()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0
	}
	if c.cancel != nil {
		c.cancel()
	}
	seq, criteria := c.store.Begin()
	fetchCtx, cancel := context.WithTimeout(logger.WithContext(context.Background()), c.timeout)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer cancel()
		c.fetch(fetchCtx, seq, criteria)
	}()

	return seq
}

func (c *Controller) fetch(ctx context.Context, seq uint64, criteria domain.FilterCriteria) {
	logger := log.Ctx(ctx)
	start := time.Now()

	page, err := c.source.Fetch(ctx, criteria)

	var action Action
	outcome := "ok"
	if err != nil {
		outcome = "error"
		action = SetError{Message: ErrorMessage(err)}
	} else {
		action = SetListings{Results: page.Results, Count: page.Count}
	}

	if !c.store.Resolve(seq, action) {
		c.metrics.Fetch(c.source.Name(), "stale", time.Since(start))
		c.metrics.StaleDropped()
		logger.Debug().Uint64("seq", seq).Msg("Discarded stale listing fetch")
		return
	}

	c.metrics.Fetch(c.source.Name(), outcome, time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn().Uint64("seq", seq).Dur("timeout", c.timeout).Msg("Listing fetch timed out")
		} else {
			logger.Error().Err(err).Uint64("seq", seq).Msg("Listing fetch failed")
		}
		return
	}
	logger.Debug().Uint64("seq", seq).Int("count", page.Count).Str("filters", criteria.Key()).Msg("Listings loaded")
}

// WaitSettled blocks until no fetch is loading
func (c *Controller) WaitSettled(ctx context.Context) (State, error) {
	return c.store.WaitFor(ctx, func(s State) bool { return !s.Loading })
}

// Close cancels the in-flight fetch and waits for its goroutine.
// The controller starts no fetch afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	c.closed = true
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}
