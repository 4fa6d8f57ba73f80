package cache

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/travel"
)

// Source is the datastore behind the Catalog.
type Source interface {
	GetCity(ctx context.Context, id uuid.UUID) (*travel.City, error)
	ActivitiesByCity(ctx context.Context, cityID uuid.UUID, limit int) ([]travel.Activity, error)
	ActivitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]travel.Activity, error)
}

// Catalog serves city and activity reads from Redis, falling back to the source.
// Redis failures are logged and bypassed.
type Catalog struct {
	src   Source
	cache *Cache
	log   *slog.Logger
}

// NewCatalog constructs a Catalog. A nil cache disables caching.
func NewCatalog(src Source, c *Cache, log *slog.Logger) *Catalog {
	if log == nil {
		log = slog.Default()
	}
	return &Catalog{src: src, cache: c, log: log}
}

// City returns nil, nil when the city does not exist.
func (c *Catalog) City(ctx context.Context, id uuid.UUID) (*travel.City, error) {
	if c.cache != nil {
		city, err := c.cache.GetCity(ctx, id)
		if err != nil {
			c.log.Warn("city cache read failed", "city_id", id, "err", err)
		} else if city != nil {
			return city, nil
		}
	}

	city, err := c.src.GetCity(ctx, id)
	if err != nil || city == nil {
		return city, err
	}

	if c.cache != nil {
		if err := c.cache.SetCity(ctx, city); err != nil {
			c.log.Warn("city cache write failed", "city_id", id, "err", err)
		}
	}
	return city, nil
}

// ActivitiesByCity returns up to limit activities in a city.
func (c *Catalog) ActivitiesByCity(ctx context.Context, cityID uuid.UUID, limit int) ([]travel.Activity, error) {
	if c.cache != nil {
		acts, ok, err := c.cache.GetActivities(ctx, cityID, limit)
		if err != nil {
			c.log.Warn("activity cache read failed", "city_id", cityID, "err", err)
		} else if ok {
			return acts, nil
		}
	}

	acts, err := c.src.ActivitiesByCity(ctx, cityID, limit)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.SetActivities(ctx, cityID, limit, acts); err != nil {
			c.log.Warn("activity cache write failed", "city_id", cityID, "err", err)
		}
	}
	return acts, nil
}

// ActivitiesByIDs reads straight from the source.
func (c *Catalog) ActivitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]travel.Activity, error) {
	return c.src.ActivitiesByIDs(ctx, ids)
}

// Invalidate drops everything cached for a city.
func (c *Catalog) Invalidate(ctx context.Context, cityID uuid.UUID) {
	if c.cache == nil {
		return
	}
	if err := c.cache.DeleteCity(ctx, cityID); err != nil {
		c.log.Warn("cache invalidation failed", "city_id", cityID, "err", err)
	}
}
