package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/backend-billing/internal/tenant"
)

// Cache wraps Redis helpers for JSON payloads. All keys are org-scoped so one
// tenant never reads another tenant's products.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func listKey(orgID string) string {
	return tenant.PrefixKey(orgID, "products:list")
}

func productKey(orgID, id string) string {
	return tenant.PrefixKey(orgID, "products:"+id)
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops the org's product list and, when id is non-empty, the
// single-product entry. Called after every catalog write.
func (c *Cache) Invalidate(ctx context.Context, orgID, id string) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys := []string{listKey(orgID)}
	if id != "" {
		keys = append(keys, productKey(orgID, id))
	}
	return c.client.Del(ctx, keys...).Err()
}
