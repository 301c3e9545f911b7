package recipes_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/Rrens/greenbite/internal/recipes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, h http.HandlerFunc) *recipes.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return recipes.NewClient(srv.URL, time.Second, 3)
}

func TestRandom_ArrayResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/random.php", r.URL.Path)
		w.Write([]byte(`{"meals":[{"idMeal":"52772","strMeal":"Teriyaki Chicken Casserole","strArea":"Japanese"}]}`))
	})

	recipe, err := c.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "52772", recipe.ID)
	assert.Equal(t, "Teriyaki Chicken Casserole", recipe.Title)
}

func TestRandom_SingleObjectResponse(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meals":{"idMeal":"1","strMeal":"Koshari"}}`))
	})

	recipe, err := c.Random(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Koshari", recipe.Title)
}

func TestRandom_NullMeals(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meals":null}`))
	})

	_, err := c.Random(context.Background())
	assert.ErrorIs(t, err, recipes.ErrNoRecipe)
}

func TestRandom_StatusError(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Random(context.Background())
	var apiErr *domain.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
}

func TestRandomN_ConcurrentAndClamped(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		fmt.Fprintf(w, `{"meals":[{"idMeal":"%d","strMeal":"Meal %d"}]}`, n, n)
	})

	got, err := c.RandomN(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestRandomN_DropsDuplicates(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"meals":[{"idMeal":"7","strMeal":"Same"}]}`))
	})

	got, err := c.RandomN(context.Background(), 3)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestRandomN_FailsFast(t *testing.T) {
	var calls int32
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"meals":[{"idMeal":"1","strMeal":"x"}]}`))
	})

	_, err := c.RandomN(context.Background(), 3)
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/lookup.php", r.URL.Path)
		if r.URL.Query().Get("i") == "52772" {
			w.Write([]byte(`{"meals":[{"idMeal":"52772","strMeal":"Teriyaki"}]}`))
			return
		}
		w.Write([]byte(`{"meals":null}`))
	})

	r, err := c.Lookup(context.Background(), "52772")
	require.NoError(t, err)
	assert.Equal(t, "Teriyaki", r.Title)

	_, err = c.Lookup(context.Background(), "0")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
