package travel

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered traveller. PasswordHash never leaves the service.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	FirstName      string    `json:"first_name"`
	LastName       string    `json:"last_name"`
	Phone          string    `json:"phone"`
	City           string    `json:"city"`
	Country        string    `json:"country"`
	AdditionalInfo string    `json:"additional_info,omitempty"`
	PhotoURL       string    `json:"photo_url,omitempty"`
	Interests      []string  `json:"interests"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// City is reference data. CostIndex is on a 0-100 scale where 50 is the baseline price level.
type City struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"city_name"`
	Country    string    `json:"country"`
	CostIndex  int       `json:"cost_index"`
	Popularity int       `json:"popularity"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	CreatedAt  time.Time `json:"created_at"`
}

// Activity is something to do in a city. A zero AverageCost or DurationHours
// means the value was not recorded.
type Activity struct {
	ID            uuid.UUID `json:"id"`
	CityID        uuid.UUID `json:"city_id"`
	Name          string    `json:"act_name"`
	Category      string    `json:"category"`
	AverageCost   float64   `json:"avg_cost"`
	DurationHours float64   `json:"duration_hours"`
	Description   string    `json:"description"`
	ImageURL      string    `json:"image_url,omitempty"`
}

// Trip status values, derived from the trip dates.
const (
	TripUpcoming  = "upcoming"
	TripOngoing   = "ongoing"
	TripCompleted = "completed"
)

// Trip is a user's journey spanning one or more stops.
type Trip struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartDate   Date      `json:"start_date"`
	EndDate     Date      `json:"end_date"`
	CoverImage  string    `json:"cover_image,omitempty"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TripStatus classifies a date range relative to today.
func TripStatus(start, end, today Date) string {
	switch {
	case today.Before(start.Time):
		return TripUpcoming
	case today.After(end.Time):
		return TripCompleted
	default:
		return TripOngoing
	}
}

// TripStop is a stay at one city within a trip.
type TripStop struct {
	ID        uuid.UUID `json:"id"`
	TripID    uuid.UUID `json:"trip_id"`
	CityID    uuid.UUID `json:"city_id"`
	City      *City     `json:"city,omitempty"`
	StartDate Date      `json:"start_date"`
	EndDate   Date      `json:"end_date"`
	Position  int       `json:"position"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// TripActivity links a selected activity to a trip stop.
type TripActivity struct {
	ID         uuid.UUID `json:"id"`
	TripStopID uuid.UUID `json:"trip_stop_id"`
	ActivityID uuid.UUID `json:"activity_id"`
	Activity   *Activity `json:"activity,omitempty"`
	Notes      string    `json:"notes"`
	CreatedAt  time.Time `json:"created_at"`
}

// Budget is the planned spend for a trip.
type Budget struct {
	TripID        uuid.UUID `json:"trip_id"`
	TransportCost float64   `json:"transport_cost"`
	StayCost      float64   `json:"stay_cost"`
	FoodCost      float64   `json:"food_cost"`
	ActivityCost  float64   `json:"activity_cost"`
	TotalBudget   float64   `json:"total_budget"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SavedCity is a city bookmarked by a user.
type SavedCity struct {
	UserID  uuid.UUID `json:"user_id"`
	CityID  uuid.UUID `json:"city_id"`
	City    *City     `json:"city,omitempty"`
	SavedAt time.Time `json:"saved_at"`
}

// SharedTrip is the public handle for a trip.
type SharedTrip struct {
	TripID     uuid.UUID `json:"trip_id"`
	PublicSlug string    `json:"public_slug"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recommendation is an activity ranked by how many of a user's interests it matches.
type Recommendation struct {
	Activity
	MatchScore int `json:"match_score"`
}
