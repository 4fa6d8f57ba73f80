package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/neexbeast/globetrotter/internal/travel"
)

const defaultTTL = time.Hour

// Cache wraps a Redis client and provides typed get/set/delete for catalog data.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a Cache. A non-positive ttl selects the 1-hour default.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{client: client, ttl: ttl}
}

func cityKey(id uuid.UUID) string {
	return "city:" + strings.ToLower(id.String())
}

func activitiesKey(cityID uuid.UUID, limit int) string {
	return cityKey(cityID) + ":activities:" + strconv.Itoa(limit)
}

// GetCity returns nil, nil on a cache miss.
func (c *Cache) GetCity(ctx context.Context, id uuid.UUID) (*travel.City, error) {
	var city travel.City
	ok, err := c.get(ctx, cityKey(id), &city)
	if err != nil || !ok {
		return nil, err
	}
	return &city, nil
}

// SetCity stores a city record. A nil city is a no-op.
func (c *Cache) SetCity(ctx context.Context, city *travel.City) error {
	if city == nil {
		return nil
	}
	return c.set(ctx, cityKey(city.ID), city)
}

// GetActivities returns the cached activity list for a city and limit.
// The boolean is false on a cache miss.
func (c *Cache) GetActivities(ctx context.Context, cityID uuid.UUID, limit int) ([]travel.Activity, bool, error) {
	var acts []travel.Activity
	ok, err := c.get(ctx, activitiesKey(cityID, limit), &acts)
	if err != nil || !ok {
		return nil, false, err
	}
	if acts == nil {
		acts = []travel.Activity{}
	}
	return acts, true, nil
}

// SetActivities stores the activity list for a city and limit.
func (c *Cache) SetActivities(ctx context.Context, cityID uuid.UUID, limit int, acts []travel.Activity) error {
	if acts == nil {
		acts = []travel.Activity{}
	}
	return c.set(ctx, activitiesKey(cityID, limit), acts)
}

// DeleteCity removes the city record and every cached activity list for it.
func (c *Cache) DeleteCity(ctx context.Context, id uuid.UUID) error {
	keys := []string{cityKey(id)}

	iter := c.client.Scan(ctx, 0, cityKey(id)+":activities:*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache scan for city %s: %w", id, err)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache delete for city %s: %w", id, err)
	}
	return nil
}

func (c *Cache) get(ctx context.Context, key string, dst any) (bool, error) {
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}

	if err := json.Unmarshal(val, dst); err != nil {
		return false, fmt.Errorf("unmarshaling cached %s: %w", key, err)
	}
	return true, nil
}

func (c *Cache) set(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", key, err)
	}

	if err := c.client.Set(ctx, key, b, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
