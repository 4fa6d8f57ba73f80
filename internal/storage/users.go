package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/neexbeast/globetrotter/internal/travel"
)

const userColumns = `
	u.id, u.email, u.password_hash, u.first_name, u.last_name, u.phone, u.city, u.country,
	u.additional_info, u.photo_url,
	ARRAY(SELECT i.interest FROM user_interests i WHERE i.user_id = u.id ORDER BY i.interest),
	u.created_at, u.updated_at
`

func scanUser(row rowScanner) (travel.User, error) {
	var u travel.User
	err := row.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.City, &u.Country,
		&u.AdditionalInfo, &u.PhotoURL, &u.Interests, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}

// CreateUser inserts u and fills in its ID and timestamps.
// Returns ErrConflict when the email is already registered.
func (r *Repository) CreateUser(ctx context.Context, u *travel.User) error {
	const q = `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, city, country, additional_info, photo_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, q,
		strings.ToLower(u.Email), u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.City, u.Country,
		u.AdditionalInfo, u.PhotoURL,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrConflict
		}
		return fmt.Errorf("inserting user %s: %w", u.Email, err)
	}

	u.Email = strings.ToLower(u.Email)
	return nil
}

// GetUserByEmail returns nil, nil when no user has the email.
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*travel.User, error) {
	q := `SELECT ` + userColumns + ` FROM users u WHERE u.email = $1`

	u, err := scanUser(r.q.QueryRow(ctx, q, strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return &u, nil
}

// GetUserByID returns nil, nil when the user does not exist.
func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*travel.User, error) {
	q := `SELECT ` + userColumns + ` FROM users u WHERE u.id = $1`

	u, err := scanUser(r.q.QueryRow(ctx, q, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying user %s: %w", id, err)
	}
	return &u, nil
}

// UpdateUser overwrites the profile fields of u. Email and password are not changed.
func (r *Repository) UpdateUser(ctx context.Context, u *travel.User) error {
	const q = `
		UPDATE users
		SET first_name = $2, last_name = $3, phone = $4, city = $5, country = $6,
		    additional_info = $7, photo_url = $8, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.q.QueryRow(ctx, q,
		u.ID, u.FirstName, u.LastName, u.Phone, u.City, u.Country, u.AdditionalInfo, u.PhotoURL,
	).Scan(&u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("updating user %s: %w", u.ID, err)
	}
	return nil
}

// SetInterests replaces the user's interests. Interests are trimmed, lowercased and deduplicated.
func (r *Repository) SetInterests(ctx context.Context, userID uuid.UUID, interests []string) error {
	seen := make(map[string]struct{}, len(interests))
	clean := make([]string, 0, len(interests))
	for _, i := range interests {
		i = strings.ToLower(strings.TrimSpace(i))
		if i == "" {
			continue
		}
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		clean = append(clean, i)
	}

	if _, err := r.q.Exec(ctx, `DELETE FROM user_interests WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("clearing interests for user %s: %w", userID, err)
	}

	if len(clean) == 0 {
		return nil
	}

	const q = `
		INSERT INTO user_interests (user_id, interest)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`
	if _, err := r.q.Exec(ctx, q, userID, clean); err != nil {
		return fmt.Errorf("storing interests for user %s: %w", userID, err)
	}
	return nil
}
