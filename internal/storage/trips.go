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

const tripColumns = `t.id, t.user_id, t.title, t.description, t.start_date, t.end_date, t.cover_image, t.created_at, t.updated_at`

func (r *Repository) scanTrip(row rowScanner) (travel.Trip, error) {
	var (
		t          travel.Trip
		start, end time.Time
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &start, &end, &t.CoverImage, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return t, err
	}
	t.StartDate = travel.NewDate(start)
	t.EndDate = travel.NewDate(end)
	t.Status = travel.TripStatus(t.StartDate, t.EndDate, r.today())
	return t, nil
}

func (r *Repository) today() travel.Date {
	return travel.NewDate(r.now())
}

// CreateTrip inserts t and fills in its ID, timestamps and status.
func (r *Repository) CreateTrip(ctx context.Context, t *travel.Trip) error {
	const q = `
		INSERT INTO trips (user_id, title, description, start_date, end_date, cover_image)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, q, t.UserID, t.Title, t.Description, t.StartDate.Time, t.EndDate.Time, t.CoverImage).
		Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("inserting trip %q: %w", t.Title, err)
	}

	t.Status = travel.TripStatus(t.StartDate, t.EndDate, r.today())
	return nil
}

// ListTrips returns the user's trips, soonest first. An empty status returns all trips.
func (r *Repository) ListTrips(ctx context.Context, userID uuid.UUID, status string) ([]travel.Trip, error) {
	q := `
		SELECT ` + tripColumns + `
		FROM trips t
		WHERE t.user_id = $1
		AND ($2 = '' OR $2 = CASE
			WHEN t.start_date > $3::date THEN 'upcoming'
			WHEN t.end_date < $3::date THEN 'completed'
			ELSE 'ongoing'
		END)
		ORDER BY t.start_date, t.created_at
	`

	rows, err := r.q.Query(ctx, q, userID, status, r.today().Time)
	if err != nil {
		return nil, fmt.Errorf("querying trips for user %s: %w", userID, err)
	}

	trips, err := collect(rows, r.scanTrip)
	if err != nil {
		return nil, fmt.Errorf("scanning trips: %w", err)
	}
	return trips, nil
}

// GetTrip returns the trip only if it belongs to userID. Returns nil, nil otherwise.
func (r *Repository) GetTrip(ctx context.Context, tripID, userID uuid.UUID) (*travel.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = $1 AND t.user_id = $2`

	t, err := r.scanTrip(r.q.QueryRow(ctx, q, tripID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying trip %s: %w", tripID, err)
	}
	return &t, nil
}

// getTripAnyOwner is used to resolve public share links.
func (r *Repository) getTripAnyOwner(ctx context.Context, tripID uuid.UUID) (*travel.Trip, error) {
	q := `SELECT ` + tripColumns + ` FROM trips t WHERE t.id = $1`

	t, err := r.scanTrip(r.q.QueryRow(ctx, q, tripID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying trip %s: %w", tripID, err)
	}
	return &t, nil
}

// UpdateTrip overwrites the editable fields of t. Returns ErrNotFound when the
// trip does not exist or is owned by someone else.
func (r *Repository) UpdateTrip(ctx context.Context, t *travel.Trip) error {
	const q = `
		UPDATE trips
		SET title = $3, description = $4, start_date = $5, end_date = $6, cover_image = $7, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING created_at, updated_at
	`

	err := r.q.QueryRow(ctx, q, t.ID, t.UserID, t.Title, t.Description, t.StartDate.Time, t.EndDate.Time, t.CoverImage).
		Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("updating trip %s: %w", t.ID, err)
	}

	t.Status = travel.TripStatus(t.StartDate, t.EndDate, r.today())
	return nil
}

// DeleteTrip removes the trip and everything attached to it.
func (r *Repository) DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM trips WHERE id = $1 AND user_id = $2`, tripID, userID)
	if err != nil {
		return fmt.Errorf("deleting trip %s: %w", tripID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
