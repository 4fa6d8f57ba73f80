package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/globetrotter/internal/travel"
)

// GetBudget returns nil, nil when no budget has been stored for the trip.
func (r *Repository) GetBudget(ctx context.Context, tripID uuid.UUID) (*travel.Budget, error) {
	const q = `
		SELECT trip_id, transport_cost, stay_cost, food_cost, activity_cost, total_budget, updated_at
		FROM budgets
		WHERE trip_id = $1
	`

	var b travel.Budget
	err := r.q.QueryRow(ctx, q, tripID).
		Scan(&b.TripID, &b.TransportCost, &b.StayCost, &b.FoodCost, &b.ActivityCost, &b.TotalBudget, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying budget for trip %s: %w", tripID, err)
	}
	return &b, nil
}

// UpsertBudget stores b. A zero TotalBudget is replaced by the sum of the parts.
func (r *Repository) UpsertBudget(ctx context.Context, b *travel.Budget) error {
	if b.TotalBudget == 0 {
		b.TotalBudget = b.TransportCost + b.StayCost + b.FoodCost + b.ActivityCost
	}

	const q = `
		INSERT INTO budgets (trip_id, transport_cost, stay_cost, food_cost, activity_cost, total_budget)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (trip_id) DO UPDATE SET
			transport_cost = EXCLUDED.transport_cost,
			stay_cost = EXCLUDED.stay_cost,
			food_cost = EXCLUDED.food_cost,
			activity_cost = EXCLUDED.activity_cost,
			total_budget = EXCLUDED.total_budget,
			updated_at = NOW()
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, q, b.TripID, b.TransportCost, b.StayCost, b.FoodCost, b.ActivityCost, b.TotalBudget).
		Scan(&b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting budget for trip %s: %w", b.TripID, err)
	}
	return nil
}

// ListSavedCities returns the user's bookmarked cities, most recent first.
func (r *Repository) ListSavedCities(ctx context.Context, userID uuid.UUID) ([]travel.SavedCity, error) {
	q := `
		SELECT sc.user_id, sc.city_id, sc.saved_at, ` + cityColumns + `
		FROM saved_cities sc
		JOIN cities c ON c.id = sc.city_id
		WHERE sc.user_id = $1
		ORDER BY sc.saved_at DESC
	`

	rows, err := r.q.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("querying saved cities for user %s: %w", userID, err)
	}

	saved, err := collect(rows, func(row rowScanner) (travel.SavedCity, error) {
		var (
			sc travel.SavedCity
			c  travel.City
		)
		err := row.Scan(&sc.UserID, &sc.CityID, &sc.SavedAt,
			&c.ID, &c.Name, &c.Country, &c.CostIndex, &c.Popularity, &c.Latitude, &c.Longitude, &c.CreatedAt)
		sc.City = &c
		return sc, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning saved cities: %w", err)
	}
	return saved, nil
}

// SaveCity bookmarks a city. Saving twice is a no-op.
func (r *Repository) SaveCity(ctx context.Context, userID, cityID uuid.UUID) error {
	const q = `INSERT INTO saved_cities (user_id, city_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := r.q.Exec(ctx, q, userID, cityID); err != nil {
		return fmt.Errorf("saving city %s for user %s: %w", cityID, userID, err)
	}
	return nil
}

// UnsaveCity removes a bookmark. Returns ErrNotFound when the city was not saved.
func (r *Repository) UnsaveCity(ctx context.Context, userID, cityID uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM saved_cities WHERE user_id = $1 AND city_id = $2`, userID, cityID)
	if err != nil {
		return fmt.Errorf("unsaving city %s for user %s: %w", cityID, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ShareTrip publishes the trip under slug. If the trip is already shared the
// existing slug is kept and returned.
func (r *Repository) ShareTrip(ctx context.Context, tripID uuid.UUID, slug string) (*travel.SharedTrip, error) {
	const q = `
		INSERT INTO shared_trips (trip_id, public_slug)
		VALUES ($1, $2)
		ON CONFLICT (trip_id) DO UPDATE SET public_slug = shared_trips.public_slug
		RETURNING trip_id, public_slug, created_at
	`

	var s travel.SharedTrip
	if err := r.q.QueryRow(ctx, q, tripID, slug).Scan(&s.TripID, &s.PublicSlug, &s.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return nil, ErrConflict
		}
		return nil, fmt.Errorf("sharing trip %s: %w", tripID, err)
	}
	return &s, nil
}

// GetSharedTrip resolves a public slug to its trip. Returns nil, nil for unknown slugs.
func (r *Repository) GetSharedTrip(ctx context.Context, slug string) (*travel.Trip, error) {
	var tripID uuid.UUID
	err := r.q.QueryRow(ctx, `SELECT trip_id FROM shared_trips WHERE public_slug = $1`, slug).Scan(&tripID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolving share slug: %w", err)
	}
	return r.getTripAnyOwner(ctx, tripID)
}
