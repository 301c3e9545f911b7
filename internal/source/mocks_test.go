package source_test

import (
	"context"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/stretchr/testify/mock"
)

// MockRepository mocks domain.ListingRepository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListAll(ctx context.Context) ([]domain.Listing, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Listing), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

// MockLister mocks the remote listing API
type MockLister struct {
	mock.Mock
}

func (m *MockLister) ListListings(ctx context.Context, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ListingPage), args.Error(1)
}

// MockCache mocks source.PageCache
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, source string, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	args := m.Called(ctx, source, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ListingPage), args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, source string, criteria domain.FilterCriteria, page *domain.ListingPage, ttl time.Duration) error {
	args := m.Called(ctx, source, criteria, page, ttl)
	return args.Error(0)
}
