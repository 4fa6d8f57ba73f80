package itinerary

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/neexbeast/globetrotter/internal/travel"
)

// StopPlan is the input for scheduling one stop of a trip.
type StopPlan struct {
	StopID    uuid.UUID
	CityID    uuid.UUID
	CityName  string
	Stay      Stay
	CostIndex int
	Selected  []travel.Activity
}

// StopSchedule is the generated itinerary for one stop.
type StopSchedule struct {
	StopID    uuid.UUID     `json:"stop_id"`
	CityID    uuid.UUID     `json:"city_id"`
	CityName  string        `json:"city_name"`
	StartDate travel.Date   `json:"start_date"`
	EndDate   travel.Date   `json:"end_date"`
	Days      []DaySchedule `json:"days"`
	TotalCost float64       `json:"total_cost"`
}

// GenerateTrip schedules every stop in parallel. Results keep the order of plans.
// Suggestion lookups for each stop are soft failures; only cancellation of ctx
// or a panic while scheduling makes the whole call fail.
func (s *Scheduler) GenerateTrip(ctx context.Context, plans []StopPlan) ([]StopSchedule, error) {
	results := make([]StopSchedule, len(plans))
	g, gCtx := errgroup.WithContext(ctx)

	for i, plan := range plans {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("stop scheduling panicked", "stop_id", plan.StopID, "recover", r)
					err = fmt.Errorf("scheduling stop %s panicked: %v", plan.StopID, r)
				}
			}()

			if err := gCtx.Err(); err != nil {
				return err
			}

			days := s.Generate(gCtx, plan.Stay, plan.Selected, plan.CityID, plan.CostIndex)

			var total float64
			for _, d := range days {
				total += d.DailyCost
			}

			results[i] = StopSchedule{
				StopID:    plan.StopID,
				CityID:    plan.CityID,
				CityName:  plan.CityName,
				StartDate: plan.Stay.Start,
				EndDate:   plan.Stay.End,
				Days:      days,
				TotalCost: round2(total),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("generating trip itinerary: %w", err)
	}

	return results, nil
}
