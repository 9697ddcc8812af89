package rest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/patrickmn/go-cache"

	"vn.io.arda/notifeed/internal/domain"
)

// DashboardClient implements domain.DashboardService. Responses are cached
// per caller for a short TTL so badge refreshes do not hammer the service.
type DashboardClient struct {
	client
	cache *cache.Cache
}

// NewDashboardClient creates a client for baseURL. cacheTTL <= 0 disables caching.
func NewDashboardClient(baseURL string, timeout, cacheTTL time.Duration) *DashboardClient {
	c := &DashboardClient{client: newClient(baseURL, timeout)}
	if cacheTTL > 0 {
		c.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return c
}

// Dashboard calls GET /dashboard?branchId=.
func (c *DashboardClient) Dashboard(ctx context.Context, branchID string) (*domain.Dashboard, error) {
	key := cacheKey(ctx, "dashboard:"+branchID)
	if v, ok := c.fromCache(key); ok {
		return v.(*domain.Dashboard), nil
	}

	path := "/dashboard"
	if branchID != "" {
		path += "?" + url.Values{"branchId": {branchID}}.Encode()
	}
	var out domain.Dashboard
	if err := c.do(ctx, http.MethodGet, path, &out); err != nil {
		return nil, fmt.Errorf("dashboard: %w", err)
	}
	c.toCache(key, &out)
	return &out, nil
}

// AwaitingDeposit calls GET /bookings/awaiting-deposit.
func (c *DashboardClient) AwaitingDeposit(ctx context.Context) ([]domain.Booking, error) {
	key := cacheKey(ctx, "awaiting-deposit")
	if v, ok := c.fromCache(key); ok {
		return v.([]domain.Booking), nil
	}

	var out list[domain.Booking]
	if err := c.do(ctx, http.MethodGet, "/bookings/awaiting-deposit", &out); err != nil {
		return nil, fmt.Errorf("awaiting deposit: %w", err)
	}
	bookings := []domain.Booking(out)
	c.toCache(key, bookings)
	return bookings, nil
}

func (c *DashboardClient) fromCache(key string) (any, bool) {
	if c.cache == nil {
		return nil, false
	}
	return c.cache.Get(key)
}

func (c *DashboardClient) toCache(key string, v any) {
	if c.cache != nil {
		c.cache.SetDefault(key, v)
	}
}

// cacheKey scopes a key to the caller's token.
func cacheKey(ctx context.Context, key string) string {
	sum := sha256.Sum256([]byte(domain.TokenFrom(ctx)))
	return key + ":" + hex.EncodeToString(sum[:8])
}
