package marketplace

import (
	"context"
	"sync"

	"github.com/Rrens/greenbite/internal/domain"
)

// Store owns one device's marketplace state. All transitions go through
// Reduce under the lock; readers get copies.
type Store struct {
	mu      sync.Mutex
	state   State
	issued  uint64
	changed chan struct{}
}

func NewStore() *Store {
	return &Store{
		state:   InitialState(),
		changed: make(chan struct{}),
	}
}

// State returns a snapshot that shares no memory with the store
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return snapshot(s.state)
}

// Dispatch applies action unconditionally and returns the new state
func (s *Store) Dispatch(action Action) State {
	_, next := s.Transition(action)
	return next
}

// Transition applies action and returns the states on either side of it
func (s *Store) Transition(action Action) (prev, next State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev = snapshot(s.state)
	s.apply(action)
	return prev, snapshot(s.state)
}

// Begin issues a new sequence number and marks the store loading in one
// step, returning the filters the fetch must use. Any fetch issued earlier
// becomes stale.
func (s *Store) Begin() (uint64, domain.FilterCriteria) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued++
	s.apply(SetLoading{Loading: true})
	return s.issued, s.state.Filters.Clone()
}

// Latest returns the most recently issued sequence number
func (s *Store) Latest() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issued
}

// Resolve applies action only when seq is still the latest fetch.
// It reports whether the action was applied.
func (s *Store) Resolve(seq uint64, action Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.issued {
		return false
	}
	s.apply(action)
	return true
}

// WaitFor blocks until pred holds for the current state or ctx is done
func (s *Store) WaitFor(ctx context.Context, pred func(State) bool) (State, error) {
	for {
		s.mu.Lock()
		state := snapshot(s.state)
		changed := s.changed
		s.mu.Unlock()

		if pred(state) {
			return state, nil
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}

// apply must be called with mu held
func (s *Store) apply(action Action) {
	s.state = Reduce(s.state, action)
	close(s.changed)
	s.changed = make(chan struct{})
}

func snapshot(state State) State {
	out := state
	out.Listings = make([]domain.Listing, len(state.Listings))
	copy(out.Listings, state.Listings)
	out.Filters = state.Filters.Clone()
	return out
}
