package itinerary

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/travel"
)

// BaselineCostIndex is the cost index at which prices are not scaled.
const BaselineCostIndex = 50

// Catalog is the datastore capability the scheduler and estimator read from.
type Catalog interface {
	City(ctx context.Context, cityID uuid.UUID) (*travel.City, error)
	ActivitiesByCity(ctx context.Context, cityID uuid.UUID, limit int) ([]travel.Activity, error)
	ActivitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]travel.Activity, error)
}

// Stay is a contiguous, inclusive date span spent at one city.
type Stay struct {
	Start travel.Date `json:"start_date"`
	End   travel.Date `json:"end_date"`
}

// Days returns the number of calendar days covered by the stay, counting both ends.
func (s Stay) Days() int {
	return s.Start.DaysUntil(s.End) + 1
}

// Multiplier converts a city cost index into a linear price multiplier.
// Negative indexes are treated as the baseline.
func Multiplier(costIndex int) float64 {
	if costIndex < 0 {
		costIndex = BaselineCostIndex
	}
	return float64(costIndex) / BaselineCostIndex
}

// Kind classifies a schedule item.
type Kind string

const (
	KindActivity      Kind = "activity"
	KindMeal          Kind = "meal"
	KindAccommodation Kind = "accommodation"
	KindFreeTime      Kind = "free_time"
)

// ScheduleItem is one timed entry in a day's schedule.
type ScheduleItem struct {
	TimeOfDay     string     `json:"time_of_day"`
	Kind          Kind       `json:"kind"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	DurationHours float64    `json:"duration_hours"`
	Cost          float64    `json:"cost"`
	ActivityID    *uuid.UUID `json:"activity_id,omitempty"`
	Category      string     `json:"category,omitempty"`
	IsSelected    bool       `json:"is_selected"`
	IsMeal        bool       `json:"is_meal"`
	IsHotel       bool       `json:"is_hotel"`
	IsSuggested   bool       `json:"is_suggested"`
}

// DaySchedule is the generated plan for a single calendar day.
//
// Overflow lists activities assigned to the day that no fixed slot could hold.
// They are not part of Items or DailyCost.
type DaySchedule struct {
	Date          string            `json:"date"`
	DayNumber     int               `json:"day_number"`
	DayName       string            `json:"day_name"`
	Items         []ScheduleItem    `json:"items"`
	DailyCost     float64           `json:"daily_cost"`
	ActivityCount int               `json:"activity_count"`
	Overflow      []travel.Activity `json:"overflow"`
}

// round2 rounds to cents.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
