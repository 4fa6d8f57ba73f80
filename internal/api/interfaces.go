package api

import (
	"context"

	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/auth"
	"github.com/neexbeast/globetrotter/internal/itinerary"
	"github.com/neexbeast/globetrotter/internal/storage"
	"github.com/neexbeast/globetrotter/internal/travel"
)

// UserRepo defines the profile operations needed by handlers.
type UserRepo interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*travel.User, error)
	UpdateUser(ctx context.Context, u *travel.User) error
	SetInterests(ctx context.Context, userID uuid.UUID, interests []string) error
}

// PlaceRepo defines the city and activity operations needed by handlers.
type PlaceRepo interface {
	ListCities(ctx context.Context, f storage.CityFilter) ([]travel.City, error)
	CreateCity(ctx context.Context, c *travel.City) error
	SearchActivities(ctx context.Context, f storage.ActivityFilter) ([]travel.Activity, error)
	GetActivity(ctx context.Context, id uuid.UUID) (*travel.Activity, error)
	CreateActivity(ctx context.Context, a *travel.Activity) error
	ActivitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]travel.Activity, error)
	RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) ([]travel.Recommendation, error)
	RecommendForCity(ctx context.Context, cityID uuid.UUID, category string, maxBudget float64, limit int) ([]travel.Activity, error)
	ListSavedCities(ctx context.Context, userID uuid.UUID) ([]travel.SavedCity, error)
	SaveCity(ctx context.Context, userID, cityID uuid.UUID) error
	UnsaveCity(ctx context.Context, userID, cityID uuid.UUID) error
}

// TripRepo defines the trip, stop, budget and sharing operations needed by handlers.
type TripRepo interface {
	CreateTrip(ctx context.Context, t *travel.Trip) error
	ListTrips(ctx context.Context, userID uuid.UUID, status string) ([]travel.Trip, error)
	GetTrip(ctx context.Context, tripID, userID uuid.UUID) (*travel.Trip, error)
	UpdateTrip(ctx context.Context, t *travel.Trip) error
	DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error

	CreateStop(ctx context.Context, s *travel.TripStop) error
	ListStops(ctx context.Context, tripID uuid.UUID) ([]travel.TripStop, error)
	GetStop(ctx context.Context, stopID, userID uuid.UUID) (*travel.TripStop, error)
	DeleteStop(ctx context.Context, stopID, userID uuid.UUID) error
	AddTripActivity(ctx context.Context, ta *travel.TripActivity) error
	ListStopActivities(ctx context.Context, stopID uuid.UUID) ([]travel.TripActivity, error)
	RemoveTripActivity(ctx context.Context, id, userID uuid.UUID) error

	GetBudget(ctx context.Context, tripID uuid.UUID) (*travel.Budget, error)
	UpsertBudget(ctx context.Context, b *travel.Budget) error

	ShareTrip(ctx context.Context, tripID uuid.UUID, slug string) (*travel.SharedTrip, error)
	GetSharedTrip(ctx context.Context, slug string) (*travel.Trip, error)
}

// Repository is the full storage surface. *storage.Repository satisfies it.
type Repository interface {
	UserRepo
	PlaceRepo
	TripRepo
}

// CityCatalog serves cached city lookups.
type CityCatalog interface {
	City(ctx context.Context, id uuid.UUID) (*travel.City, error)
	Invalidate(ctx context.Context, cityID uuid.UUID)
}

// Authenticator defines the account operations needed by handlers.
type Authenticator interface {
	Register(ctx context.Context, in auth.Signup) (*travel.User, string, error)
	Login(ctx context.Context, email, password string) (*travel.User, string, error)
}

// TokenParser resolves a bearer token to a user ID.
type TokenParser interface {
	ParseToken(token string) (uuid.UUID, error)
}

// Planner defines the itinerary generation needed by handlers.
type Planner interface {
	Generate(ctx context.Context, stay itinerary.Stay, selected []travel.Activity, cityID uuid.UUID, costIndex int) []itinerary.DaySchedule
	GenerateTrip(ctx context.Context, plans []itinerary.StopPlan) ([]itinerary.StopSchedule, error)
}

// BudgetEstimator prices a stay.
type BudgetEstimator interface {
	Estimate(ctx context.Context, cityID uuid.UUID, days int, activityIDs []uuid.UUID) itinerary.Estimate
}

var (
	_ Repository      = (*storage.Repository)(nil)
	_ Authenticator   = (*auth.Service)(nil)
	_ TokenParser     = (*auth.Service)(nil)
	_ Planner         = (*itinerary.Scheduler)(nil)
	_ BudgetEstimator = (*itinerary.Estimator)(nil)
)
