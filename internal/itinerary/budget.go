package itinerary

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/travel"
)

// Per-day base costs at the baseline cost index.
const (
	transportPerDay = 20.0
	stayPerDay      = 80.0
	foodPerDay      = 50.0
	activityPerDay  = 30.0
)

// Estimate is a rough cost breakdown for a stay. All amounts are rounded to cents.
type Estimate struct {
	Transport  float64 `json:"transport"`
	Stay       float64 `json:"stay"`
	Food       float64 `json:"food"`
	Activities float64 `json:"activities"`
	Total      float64 `json:"total"`
	Days       int     `json:"days"`
	CostIndex  int     `json:"cost_index"`
	Multiplier float64 `json:"multiplier"`
}

// EstimateCost prices days at a city with the given cost index. When activities
// is nil a flat per-day activity allowance is used instead of their average costs.
func EstimateCost(costIndex, days int, activities []travel.Activity) Estimate {
	if costIndex < 0 {
		costIndex = BaselineCostIndex
	}
	m := Multiplier(costIndex)
	d := float64(days)

	activityCost := activityPerDay * d * m
	if activities != nil {
		activityCost = 0
		for _, a := range activities {
			activityCost += a.AverageCost
		}
	}

	e := Estimate{
		Transport:  round2(transportPerDay * d * m),
		Stay:       round2(stayPerDay * d * m),
		Food:       round2(foodPerDay * d * m),
		Activities: round2(activityCost),
		Days:       days,
		CostIndex:  costIndex,
		Multiplier: m,
	}
	e.Total = round2(e.Transport + e.Stay + e.Food + e.Activities)
	return e
}

// Estimator prices stays using city and activity data from a Catalog.
type Estimator struct {
	catalog Catalog
	log     *slog.Logger
}

// NewEstimator constructs an Estimator. A nil logger uses slog.Default.
func NewEstimator(catalog Catalog, log *slog.Logger) *Estimator {
	if log == nil {
		log = slog.Default()
	}
	return &Estimator{catalog: catalog, log: log}
}

// Estimate prices a stay of days at cityID. activityIDs, when non-empty, replace
// the flat activity allowance with the named activities' average costs.
// Any lookup failure falls back to a baseline estimate with the flat allowance.
func (e *Estimator) Estimate(ctx context.Context, cityID uuid.UUID, days int, activityIDs []uuid.UUID) Estimate {
	costIndex, activities, err := e.lookup(ctx, cityID, activityIDs)
	if err != nil {
		e.log.Warn("budget lookup failed, using baseline estimate", "city_id", cityID, "err", err)
		return EstimateCost(BaselineCostIndex, days, nil)
	}
	return EstimateCost(costIndex, days, activities)
}

func (e *Estimator) lookup(ctx context.Context, cityID uuid.UUID, activityIDs []uuid.UUID) (int, []travel.Activity, error) {
	city, err := e.catalog.City(ctx, cityID)
	if err != nil {
		return 0, nil, fmt.Errorf("loading city %s: %w", cityID, err)
	}
	if city == nil {
		return 0, nil, fmt.Errorf("city %s not found", cityID)
	}

	if len(activityIDs) == 0 {
		return city.CostIndex, nil, nil
	}

	activities, err := e.catalog.ActivitiesByIDs(ctx, activityIDs)
	if err != nil {
		return 0, nil, fmt.Errorf("loading activities: %w", err)
	}
	if activities == nil {
		activities = []travel.Activity{}
	}

	return city.CostIndex, activities, nil
}
