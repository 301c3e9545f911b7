package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/listingform"
	"github.com/Rrens/greenbite/internal/marketplace"
	"github.com/Rrens/greenbite/internal/session"
	"github.com/Rrens/greenbite/internal/source"
	"github.com/Rrens/greenbite/internal/tokenstore"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testDevice = "3f1c7a52-9a43-4a3e-8a4f-1f0d0c1b2a10"

// MockBackend mocks the GreenBite API
type MockBackend struct {
	mock.Mock
	tokens []string
}

func (m *MockBackend) factory() BackendFactory {
	return func(token string) Backend {
		m.tokens = append(m.tokens, token)
		return m
	}
}

func (m *MockBackend) Login(ctx context.Context, creds domain.UserLogin) (*domain.TokenPair, error) {
	args := m.Called(ctx, creds)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TokenPair), args.Error(1)
}

func (m *MockBackend) CreateListing(ctx context.Context, p *listingform.Payload) (*domain.Listing, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockBackend) UpdateListing(ctx context.Context, id string, p *listingform.Payload) (*domain.Listing, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Listing), args.Error(1)
}

func (m *MockBackend) DeleteListing(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBackend) CreateOrder(ctx context.Context, order domain.OrderCreate) (*domain.OrderReceipt, error) {
	args := m.Called(ctx, order)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OrderReceipt), args.Error(1)
}

func (m *MockBackend) SubmitReview(ctx context.Context, listingID string, review domain.ReviewCreate) error {
	return m.Called(ctx, listingID, review).Error(0)
}

func (m *MockBackend) SubmitReport(ctx context.Context, report domain.ReportCreate) error {
	return m.Called(ctx, report).Error(0)
}

// MockRecipes mocks the recipe collaborator
type MockRecipes struct {
	mock.Mock
}

func (m *MockRecipes) RandomN(ctx context.Context, n int) ([]domain.Recipe, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Recipe), args.Error(1)
}

func (m *MockRecipes) Lookup(ctx context.Context, id string) (*domain.Recipe, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Recipe), args.Error(1)
}

type fakeFlusher struct{ calls int }

func (f *fakeFlusher) FlushAll(context.Context) (int64, error) {
	f.calls++
	return 1, nil
}

// fixture holds the shared wiring of handler tests
type fixture struct {
	kv       *tokenstore.MemoryKV
	stores   *session.Stores
	registry *marketplace.Registry
	dialogs  *listingform.Dialogs
	backend  *MockBackend
	sample   *source.Sample
}

func newFixture(t *testing.T, listings []domain.Listing) *fixture {
	t.Helper()
	sample := source.NewSample(listings, 0)
	registry := marketplace.NewRegistry(sample, time.Second, time.Minute, nil)
	t.Cleanup(func() { registry.Drop(testDevice) })

	kv := tokenstore.NewMemoryKV()
	return &fixture{
		kv:       kv,
		stores:   session.NewStores(kv, nil),
		registry: registry,
		dialogs:  listingform.NewDialogs(time.Minute),
		backend:  &MockBackend{},
		sample:   sample,
	}
}

func (f *fixture) signIn(t *testing.T, token string) {
	t.Helper()
	require.NoError(t, f.stores.For(testDevice).Save(context.Background(), token, "refresh"))
}

// newRequest builds a request from testDevice with optional chi URL params
func newRequest(method, target string, body any, params map[string]string) *http.Request {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		json.NewEncoder(&buf).Encode(body)
		reader = &buf
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = session.WithDevice(ctx, testDevice)
	return req.WithContext(ctx)
}

type envelope struct {
	Success bool              `json:"success"`
	Data    json.RawMessage   `json:"data"`
	Error   any               `json:"error"`
	Fields  map[string]string `json:"fields"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&env))
	return env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}
