package marketplace

import (
	"context"
	"sync"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/metrics"
	"github.com/rs/zerolog/log"
)

type entry struct {
	controller *Controller
	lastSeen   time.Time
}

// Registry keeps one Controller per device and evicts idle ones
type Registry struct {
	source       domain.ListingSource
	fetchTimeout time.Duration
	idleTTL      time.Duration
	metrics      *metrics.Metrics
	now          func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry(source domain.ListingSource, fetchTimeout, idleTTL time.Duration, m *metrics.Metrics) *Registry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &Registry{
		source:       source,
		fetchTimeout: fetchTimeout,
		idleTTL:      idleTTL,
		metrics:      m,
		now:          time.Now,
		entries:      make(map[string]*entry),
	}
}

// Get returns the controller for deviceID, creating it on first use
func (r *Registry) Get(deviceID string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[deviceID]
	if !ok {
		e = &entry{controller: NewController(NewStore(), r.source, r.fetchTimeout, r.metrics)}
		r.entries[deviceID] = e
		r.metrics.ActiveDevices(len(r.entries))
	}
	e.lastSeen = r.now()
	return e.controller
}

// Drop closes and forgets the controller for deviceID, e.g. on logout
func (r *Registry) Drop(deviceID string) {
	r.mu.Lock()
	e, ok := r.entries[deviceID]
	delete(r.entries, deviceID)
	r.metrics.ActiveDevices(len(r.entries))
	r.mu.Unlock()

	if ok {
		e.controller.Close()
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts controllers idle for longer than the TTL and returns how many
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var evicted []*Controller
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			evicted = append(evicted, e.controller)
			delete(r.entries, id)
		}
	}
	r.metrics.ActiveDevices(len(r.entries))
	r.mu.Unlock()

	for _, c := range evicted {
		c.Close()
	}
	return len(evicted)
}

// Run sweeps on every interval until ctx is done, then closes everything
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := r.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("Evicted idle marketplace stores")
			}
		case <-ctx.Done():
			r.closeAll()
			return
		}
	}
}

func (r *Registry) closeAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.metrics.ActiveDevices(0)
	r.mu.Unlock()

	for _, e := range entries {
		e.controller.Close()
	}
}
