package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/globetrotter/internal/travel"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return defaultListLimit
	case limit > maxListLimit:
		return maxListLimit
	default:
		return limit
	}
}

// ---- cities ----

const cityColumns = `c.id, c.city_name, c.country, c.cost_index, c.popularity, c.latitude, c.longitude, c.created_at`

func scanCity(row rowScanner) (travel.City, error) {
	var c travel.City
	err := row.Scan(&c.ID, &c.Name, &c.Country, &c.CostIndex, &c.Popularity, &c.Latitude, &c.Longitude, &c.CreatedAt)
	return c, err
}

// CityFilter narrows ListCities. Empty fields match everything.
type CityFilter struct {
	Search  string
	Country string
	Limit   int
	Offset  int
}

// ListCities returns cities ordered by popularity.
func (r *Repository) ListCities(ctx context.Context, f CityFilter) ([]travel.City, error) {
	q := `
		SELECT ` + cityColumns + `
		FROM cities c
		WHERE ($1 = '' OR c.city_name ILIKE '%' || $1 || '%' OR c.country ILIKE '%' || $1 || '%')
		AND ($2 = '' OR c.country ILIKE $2)
		ORDER BY c.popularity DESC, c.city_name
		LIMIT $3 OFFSET $4
	`

	rows, err := r.q.Query(ctx, q, f.Search, f.Country, clampLimit(f.Limit), max(f.Offset, 0))
	if err != nil {
		return nil, fmt.Errorf("querying cities: %w", err)
	}

	cities, err := collect(rows, scanCity)
	if err != nil {
		return nil, fmt.Errorf("scanning cities: %w", err)
	}
	return cities, nil
}

// GetCity returns nil, nil when the city does not exist.
func (r *Repository) GetCity(ctx context.Context, id uuid.UUID) (*travel.City, error) {
	q := `SELECT ` + cityColumns + ` FROM cities c WHERE c.id = $1`

	c, err := scanCity(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying city %s: %w", id, err)
	}
	return &c, nil
}

// CreateCity inserts c and fills in its ID and creation time.
func (r *Repository) CreateCity(ctx context.Context, c *travel.City) error {
	const q = `
		INSERT INTO cities (city_name, country, cost_index, popularity, latitude, longitude)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, q, c.Name, c.Country, c.CostIndex, c.Popularity, c.Latitude, c.Longitude).
		Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("inserting city %s: %w", c.Name, err)
	}
	return nil
}

// ---- activities ----

const activityColumns = `
	a.id, a.city_id, a.act_name, a.category, COALESCE(a.avg_cost, 0), COALESCE(a.duration_hours, 0),
	a.description, a.image_url
`

func scanActivity(row rowScanner) (travel.Activity, error) {
	var a travel.Activity
	err := row.Scan(&a.ID, &a.CityID, &a.Name, &a.Category, &a.AverageCost, &a.DurationHours, &a.Description, &a.ImageURL)
	return a, err
}

// ActivityFilter narrows SearchActivities. Zero values match everything.
type ActivityFilter struct {
	CityID   uuid.UUID
	Category string
	MaxCost  float64
	Query    string
	Limit    int
}

// SearchActivities returns activities matching f, cheapest first.
func (r *Repository) SearchActivities(ctx context.Context, f ActivityFilter) ([]travel.Activity, error) {
	q := `
		SELECT ` + activityColumns + `
		FROM activities a
		WHERE ($1::uuid IS NULL OR a.city_id = $1)
		AND ($2 = '' OR LOWER(a.category) = LOWER($2))
		AND ($3::float8 <= 0 OR COALESCE(a.avg_cost, 0) <= $3)
		AND ($4 = '' OR a.act_name ILIKE '%' || $4 || '%' OR a.description ILIKE '%' || $4 || '%')
		ORDER BY COALESCE(a.avg_cost, 0), a.act_name
		LIMIT $5
	`

	var cityID *uuid.UUID
	if f.CityID != uuid.Nil {
		cityID = &f.CityID
	}

	rows, err := r.q.Query(ctx, q, cityID, f.Category, f.MaxCost, f.Query, clampLimit(f.Limit))
	if err != nil {
		return nil, fmt.Errorf("searching activities: %w", err)
	}

	activities, err := collect(rows, scanActivity)
	if err != nil {
		return nil, fmt.Errorf("scanning activities: %w", err)
	}
	return activities, nil
}

// GetActivity returns nil, nil when the activity does not exist.
func (r *Repository) GetActivity(ctx context.Context, id uuid.UUID) (*travel.Activity, error) {
	q := `SELECT ` + activityColumns + ` FROM activities a WHERE a.id = $1`

	a, err := scanActivity(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying activity %s: %w", id, err)
	}
	return &a, nil
}

// CreateActivity inserts a. Zero cost and duration are stored as NULL.
func (r *Repository) CreateActivity(ctx context.Context, a *travel.Activity) error {
	const q = `
		INSERT INTO activities (city_id, act_name, category, avg_cost, duration_hours, description, image_url)
		VALUES ($1, $2, $3, NULLIF($4::float8, 0), NULLIF($5::float8, 0), $6, $7)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, q, a.CityID, a.Name, a.Category, a.AverageCost, a.DurationHours, a.Description, a.ImageURL).
		Scan(&a.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("inserting activity %s: %w", a.Name, err)
	}
	return nil
}

// ActivitiesByCity returns up to limit activities in a city.
func (r *Repository) ActivitiesByCity(ctx context.Context, cityID uuid.UUID, limit int) ([]travel.Activity, error) {
	q := `SELECT ` + activityColumns + ` FROM activities a WHERE a.city_id = $1 ORDER BY a.act_name LIMIT $2`

	rows, err := r.q.Query(ctx, q, cityID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying activities for city %s: %w", cityID, err)
	}

	activities, err := collect(rows, scanActivity)
	if err != nil {
		return nil, fmt.Errorf("scanning activities for city %s: %w", cityID, err)
	}
	return activities, nil
}

// ActivitiesByIDs returns the activities with the given IDs in the order requested.
// Unknown IDs are skipped.
func (r *Repository) ActivitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]travel.Activity, error) {
	if len(ids) == 0 {
		return []travel.Activity{}, nil
	}

	params := make([]string, len(ids))
	for i, id := range ids {
		params[i] = id.String()
	}

	q := `
		SELECT ` + activityColumns + `
		FROM activities a
		JOIN unnest($1::uuid[]) WITH ORDINALITY AS req(id, ord) ON req.id = a.id
		ORDER BY req.ord
	`

	rows, err := r.q.Query(ctx, q, params)
	if err != nil {
		return nil, fmt.Errorf("querying activities by id: %w", err)
	}

	activities, err := collect(rows, scanActivity)
	if err != nil {
		return nil, fmt.Errorf("scanning activities by id: %w", err)
	}
	return activities, nil
}

// RecommendForUser ranks activities by how many of the user's interests appear
// in their category or description.
func (r *Repository) RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) ([]travel.Recommendation, error) {
	q := `
		SELECT ` + activityColumns + `, COUNT(ui.interest) AS match_score
		FROM activities a
		JOIN user_interests ui
		  ON (LOWER(a.category) LIKE '%' || LOWER(ui.interest) || '%'
		      OR LOWER(a.description) LIKE '%' || LOWER(ui.interest) || '%')
		WHERE ui.user_id = $1
		GROUP BY a.id
		ORDER BY match_score DESC, a.act_name
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, q, userID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying recommendations for user %s: %w", userID, err)
	}

	recs, err := collect(rows, func(row rowScanner) (travel.Recommendation, error) {
		var rec travel.Recommendation
		a := &rec.Activity
		err := row.Scan(&a.ID, &a.CityID, &a.Name, &a.Category, &a.AverageCost, &a.DurationHours,
			&a.Description, &a.ImageURL, &rec.MatchScore)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning recommendations: %w", err)
	}
	return recs, nil
}

// RecommendForCity returns activities in a city within maxBudget, optionally
// restricted to a category. A non-positive maxBudget disables the cost filter.
func (r *Repository) RecommendForCity(ctx context.Context, cityID uuid.UUID, category string, maxBudget float64, limit int) ([]travel.Activity, error) {
	return r.SearchActivities(ctx, ActivityFilter{
		CityID:   cityID,
		Category: category,
		MaxCost:  maxBudget,
		Limit:    limit,
	})
}
