package recipes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ErrNoRecipe is returned when the service answers without a meal
var ErrNoRecipe = errors.New("no recipe returned")

// Client fetches recipes from TheMealDB
type Client struct {
	baseURL  string
	client   *http.Client
	maxCount int
}

// NewClient creates a new recipe client
func NewClient(baseURL string, timeout time.Duration, maxCount int) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if maxCount <= 0 {
		maxCount = 6
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		maxCount: maxCount,
	}
}

type mealsResponse struct {
	Meals domain.Recipes `json:"meals"`
}

// Random fetches one random recipe
func (c *Client) Random(ctx context.Context) (*domain.Recipe, error) {
	meals, err := c.get(ctx, "/random.php")
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, ErrNoRecipe
	}
	return &meals[0], nil
}

// RandomN fetches n random recipes concurrently, dropping duplicates.
// n is clamped to [1, maxCount].
func (c *Client) RandomN(ctx context.Context, n int) ([]domain.Recipe, error) {
	if n < 1 {
		n = 1
	}
	if n > c.maxCount {
		n = c.maxCount
	}

	results := make([]*domain.Recipe, n)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			r, err := c.Random(gctx)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, n)
	out := make([]domain.Recipe, 0, n)
	for _, r := range results {
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		out = append(out, *r)
	}
	return out, nil
}

// Lookup fetches a recipe by its MealDB id
func (c *Client) Lookup(ctx context.Context, id string) (*domain.Recipe, error) {
	meals, err := c.get(ctx, "/lookup.php?i="+url.QueryEscape(id))
	if err != nil {
		return nil, err
	}
	if len(meals) == 0 {
		return nil, domain.ErrNotFound
	}
	return &meals[0], nil
}

func (c *Client) get(ctx context.Context, path string) (domain.Recipes, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &domain.APIError{StatusCode: resp.StatusCode, Message: fmt.Sprintf("recipe service returned status %d", resp.StatusCode)}
	}

	var body mealsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return body.Meals, nil
}
