package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/globetrotter/internal/travel"
)

const stopColumns = `
	s.id, s.trip_id, s.city_id, s.start_date, s.end_date, s.position, s.notes, s.created_at,
	` + cityColumns

func scanStop(row rowScanner) (travel.TripStop, error) {
	var (
		s          travel.TripStop
		c          travel.City
		start, end time.Time
	)
	err := row.Scan(
		&s.ID, &s.TripID, &s.CityID, &start, &end, &s.Position, &s.Notes, &s.CreatedAt,
		&c.ID, &c.Name, &c.Country, &c.CostIndex, &c.Popularity, &c.Latitude, &c.Longitude, &c.CreatedAt,
	)
	if err != nil {
		return s, err
	}
	s.StartDate = travel.NewDate(start)
	s.EndDate = travel.NewDate(end)
	s.City = &c
	return s, nil
}

// CreateStop appends a stop to the trip. When s.Position is zero the stop is
// placed after the existing ones.
func (r *Repository) CreateStop(ctx context.Context, s *travel.TripStop) error {
	const q = `
		INSERT INTO trip_stops (trip_id, city_id, start_date, end_date, position, notes)
		VALUES ($1, $2, $3, $4,
			CASE WHEN $5::int > 0 THEN $5::int
			     ELSE (SELECT COALESCE(MAX(position), 0) + 1 FROM trip_stops WHERE trip_id = $1) END,
			$6)
		RETURNING id, position, created_at
	`

	err := r.q.QueryRow(ctx, q, s.TripID, s.CityID, s.StartDate.Time, s.EndDate.Time, s.Position, s.Notes).
		Scan(&s.ID, &s.Position, &s.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting stop for trip %s: %w", s.TripID, err)
	}
	return nil
}

// ListStops returns a trip's stops in itinerary order with their cities attached.
func (r *Repository) ListStops(ctx context.Context, tripID uuid.UUID) ([]travel.TripStop, error) {
	q := `
		SELECT ` + stopColumns + `
		FROM trip_stops s
		JOIN cities c ON c.id = s.city_id
		WHERE s.trip_id = $1
		ORDER BY s.position, s.start_date
	`

	rows, err := r.q.Query(ctx, q, tripID)
	if err != nil {
		return nil, fmt.Errorf("querying stops for trip %s: %w", tripID, err)
	}

	stops, err := collect(rows, scanStop)
	if err != nil {
		return nil, fmt.Errorf("scanning stops: %w", err)
	}
	return stops, nil
}

// GetStop returns the stop only if its trip belongs to userID. Returns nil, nil otherwise.
func (r *Repository) GetStop(ctx context.Context, stopID, userID uuid.UUID) (*travel.TripStop, error) {
	q := `
		SELECT ` + stopColumns + `
		FROM trip_stops s
		JOIN cities c ON c.id = s.city_id
		JOIN trips t ON t.id = s.trip_id
		WHERE s.id = $1 AND t.user_id = $2
	`

	s, err := scanStop(r.q.QueryRow(ctx, q, stopID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying stop %s: %w", stopID, err)
	}
	return &s, nil
}

// DeleteStop removes a stop from one of the user's trips.
func (r *Repository) DeleteStop(ctx context.Context, stopID, userID uuid.UUID) error {
	const q = `
		DELETE FROM trip_stops s
		USING trips t
		WHERE s.id = $1 AND t.id = s.trip_id AND t.user_id = $2
	`

	tag, err := r.q.Exec(ctx, q, stopID, userID)
	if err != nil {
		return fmt.Errorf("deleting stop %s: %w", stopID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTripActivity selects an activity for a stop. Returns ErrConflict when it is already selected.
func (r *Repository) AddTripActivity(ctx context.Context, ta *travel.TripActivity) error {
	const q = `
		INSERT INTO trip_activities (trip_stop_id, activity_id, notes)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, q, ta.TripStopID, ta.ActivityID, ta.Notes).Scan(&ta.ID, &ta.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("adding activity %s to stop %s: %w", ta.ActivityID, ta.TripStopID, err)
	}
	return nil
}

// ListStopActivities returns the activities selected for a stop in the order they were added.
func (r *Repository) ListStopActivities(ctx context.Context, stopID uuid.UUID) ([]travel.TripActivity, error) {
	q := `
		SELECT ta.id, ta.trip_stop_id, ta.activity_id, ta.notes, ta.created_at, ` + activityColumns + `
		FROM trip_activities ta
		JOIN activities a ON a.id = ta.activity_id
		WHERE ta.trip_stop_id = $1
		ORDER BY ta.created_at, ta.id
	`

	rows, err := r.q.Query(ctx, q, stopID)
	if err != nil {
		return nil, fmt.Errorf("querying activities for stop %s: %w", stopID, err)
	}

	list, err := collect(rows, func(row rowScanner) (travel.TripActivity, error) {
		var (
			ta travel.TripActivity
			a  travel.Activity
		)
		err := row.Scan(
			&ta.ID, &ta.TripStopID, &ta.ActivityID, &ta.Notes, &ta.CreatedAt,
			&a.ID, &a.CityID, &a.Name, &a.Category, &a.AverageCost, &a.DurationHours, &a.Description, &a.ImageURL,
		)
		ta.Activity = &a
		return ta, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning stop activities: %w", err)
	}
	return list, nil
}

// RemoveTripActivity deletes a selection from one of the user's trips.
func (r *Repository) RemoveTripActivity(ctx context.Context, id, userID uuid.UUID) error {
	const q = `
		DELETE FROM trip_activities ta
		USING trip_stops s, trips t
		WHERE ta.id = $1 AND s.id = ta.trip_stop_id AND t.id = s.trip_id AND t.user_id = $2
	`

	tag, err := r.q.Exec(ctx, q, id, userID)
	if err != nil {
		return fmt.Errorf("removing trip activity %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
