package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Rrens/greenbite/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	listingCachePrefix = "listings:"
	defaultListingTTL  = 30 * time.Second
)

// ListingCache caches listing pages per source and filter set
type ListingCache struct {
	client *Client
}

func NewListingCache(client *Client) *ListingCache {
	return &ListingCache{client: client}
}

func cacheKey(source string, criteria domain.FilterCriteria) string {
	return fmt.Sprintf("%s%s:%s", listingCachePrefix, source, criteria.Key())
}

// Get returns nil, nil on a cache miss
func (c *ListingCache) Get(ctx context.Context, source string, criteria domain.FilterCriteria) (*domain.ListingPage, error) {
	data, err := c.client.rdb.Get(ctx, cacheKey(source, criteria)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read listing cache: %w", err)
	}

	var page domain.ListingPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal listings: %w", err)
	}
	return &page, nil
}

func (c *ListingCache) Set(ctx context.Context, source string, criteria domain.FilterCriteria, page *domain.ListingPage, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = defaultListingTTL
	}

	data, err := json.Marshal(page)
	if err != nil {
		return fmt.Errorf("failed to marshal listings: %w", err)
	}
	return c.client.rdb.Set(ctx, cacheKey(source, criteria), data, ttl).Err()
}

// FlushAll unlinks every cached listing page, e.g. after a listing mutation
func (c *ListingCache) FlushAll(ctx context.Context) (int64, error) {
	var (
		batch   []string
		flushed int64
	)
	unlink := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := c.client.rdb.Unlink(ctx, batch...).Result()
		if err != nil {
			return fmt.Errorf("failed to unlink listing pages: %w", err)
		}
		flushed += n
		batch = batch[:0]
		return nil
	}

	iter := c.client.rdb.Scan(ctx, 0, listingCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == 100 {
			if err := unlink(); err != nil {
				return flushed, err
			}
		}
	}
	if err := iter.Err(); err != nil {
		return flushed, fmt.Errorf("failed to scan listing pages: %w", err)
	}
	return flushed, unlink()
}
