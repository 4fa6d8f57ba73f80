package api

import (
	"fmt"
	"math"
	"net/http"

	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/export"
	"github.com/neexbeast/globetrotter/internal/itinerary"
	"github.com/neexbeast/globetrotter/internal/travel"
)

type cityItineraryRequest struct {
	StartDate   travel.Date `json:"start_date"`
	EndDate     travel.Date `json:"end_date"`
	ActivityIDs []uuid.UUID `json:"activity_ids"`
}

type cityItineraryResponse struct {
	CityID    uuid.UUID               `json:"city_id"`
	CityName  string                  `json:"city_name"`
	StartDate travel.Date             `json:"start_date"`
	EndDate   travel.Date             `json:"end_date"`
	Days      []itinerary.DaySchedule `json:"days"`
	TotalCost float64                 `json:"total_cost"`
	Estimate  itinerary.Estimate      `json:"estimate"`
}

// CityItinerary handles POST /api/cities/{id}/itinerary. It schedules a single
// stay without persisting anything.
func (h *Handlers) CityItinerary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var in cityItineraryRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if msg := rangeProblem(in.StartDate, in.EndDate); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	ctx := r.Context()
	city, err := h.catalog.City(ctx, id)
	if err != nil {
		h.internalError(w, r, "loading city failed", err)
		return
	}
	if city == nil {
		writeError(w, http.StatusNotFound, "city not found")
		return
	}

	selected, err := h.repo.ActivitiesByIDs(ctx, in.ActivityIDs)
	if err != nil {
		h.internalError(w, r, "loading selected activities failed", err)
		return
	}
	for _, a := range selected {
		if a.CityID != city.ID {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("activity %s is not in this city", a.ID))
			return
		}
	}

	stay := itinerary.Stay{Start: in.StartDate, End: in.EndDate}
	days := h.planner.Generate(ctx, stay, selected, city.ID, city.CostIndex)

	var total float64
	for _, d := range days {
		total += d.DailyCost
	}

	writeJSON(w, http.StatusOK, cityItineraryResponse{
		CityID:    city.ID,
		CityName:  city.Name,
		StartDate: stay.Start,
		EndDate:   stay.End,
		Days:      days,
		TotalCost: roundCents(total),
		Estimate:  h.estimator.Estimate(ctx, city.ID, stay.Days(), in.ActivityIDs),
	})
}

type tripItinerary struct {
	Trip      travel.Trip              `json:"trip"`
	Stops     []itinerary.StopSchedule `json:"stops"`
	TotalCost float64                  `json:"total_cost"`
}

// buildTripItinerary schedules every stop of trip with the activities attached to it.
func (h *Handlers) buildTripItinerary(r *http.Request, trip *travel.Trip) (*tripItinerary, error) {
	ctx := r.Context()
	stops, err := h.repo.ListStops(ctx, trip.ID)
	if err != nil {
		return nil, fmt.Errorf("listing stops: %w", err)
	}

	plans := make([]itinerary.StopPlan, 0, len(stops))
	for _, s := range stops {
		links, err := h.repo.ListStopActivities(ctx, s.ID)
		if err != nil {
			return nil, fmt.Errorf("listing activities for stop %s: %w", s.ID, err)
		}

		selected := make([]travel.Activity, 0, len(links))
		for _, l := range links {
			if l.Activity != nil {
				selected = append(selected, *l.Activity)
			}
		}

		plan := itinerary.StopPlan{
			StopID:    s.ID,
			CityID:    s.CityID,
			Stay:      itinerary.Stay{Start: s.StartDate, End: s.EndDate},
			CostIndex: itinerary.BaselineCostIndex,
			Selected:  selected,
		}
		if s.City != nil {
			plan.CityName = s.City.Name
			plan.CostIndex = s.City.CostIndex
		}
		plans = append(plans, plan)
	}

	schedules, err := h.planner.GenerateTrip(ctx, plans)
	if err != nil {
		return nil, err
	}

	var total float64
	for _, s := range schedules {
		total += s.TotalCost
	}
	return &tripItinerary{Trip: *trip, Stops: schedules, TotalCost: roundCents(total)}, nil
}

// TripItinerary handles GET /api/trips/{id}/itinerary.
func (h *Handlers) TripItinerary(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	it, err := h.buildTripItinerary(r, trip)
	if err != nil {
		h.internalError(w, r, "building trip itinerary failed", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// TripItineraryPDF handles GET /api/trips/{id}/itinerary.pdf.
func (h *Handlers) TripItineraryPDF(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	it, err := h.buildTripItinerary(r, trip)
	if err != nil {
		h.internalError(w, r, "building trip itinerary failed", err)
		return
	}

	doc, err := export.ItineraryPDF(trip.Title, it.Stops)
	if err != nil {
		h.internalError(w, r, "rendering itinerary PDF failed", err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="itinerary-%s.pdf"`, trip.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// ---- budgets ----

type budgetResponse struct {
	Budget   *travel.Budget     `json:"budget"`
	Estimate itinerary.Estimate `json:"estimate"`
}

// tripEstimate sums the per-stop estimates for a trip. Stops with attached
// activities are priced by those activities; the rest use the flat allowance.
func (h *Handlers) tripEstimate(r *http.Request, tripID uuid.UUID) (itinerary.Estimate, error) {
	ctx := r.Context()
	stops, err := h.repo.ListStops(ctx, tripID)
	if err != nil {
		return itinerary.Estimate{}, fmt.Errorf("listing stops: %w", err)
	}

	var sum itinerary.Estimate
	for _, s := range stops {
		links, err := h.repo.ListStopActivities(ctx, s.ID)
		if err != nil {
			return itinerary.Estimate{}, fmt.Errorf("listing activities for stop %s: %w", s.ID, err)
		}
		ids := make([]uuid.UUID, 0, len(links))
		for _, l := range links {
			ids = append(ids, l.ActivityID)
		}

		days := itinerary.Stay{Start: s.StartDate, End: s.EndDate}.Days()
		e := h.estimator.Estimate(ctx, s.CityID, days, ids)
		sum.Transport += e.Transport
		sum.Stay += e.Stay
		sum.Food += e.Food
		sum.Activities += e.Activities
		sum.Days += e.Days
	}

	sum.Transport = roundCents(sum.Transport)
	sum.Stay = roundCents(sum.Stay)
	sum.Food = roundCents(sum.Food)
	sum.Activities = roundCents(sum.Activities)
	sum.Total = roundCents(sum.Transport + sum.Stay + sum.Food + sum.Activities)
	return sum, nil
}

// GetBudget handles GET /api/trips/{id}/budget. The stored budget is null until
// one is saved; the estimate is always computed from the trip's stops.
func (h *Handlers) GetBudget(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	b, err := h.repo.GetBudget(r.Context(), trip.ID)
	if err != nil {
		h.internalError(w, r, "loading budget failed", err)
		return
	}

	est, err := h.tripEstimate(r, trip.ID)
	if err != nil {
		h.internalError(w, r, "estimating budget failed", err)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponse{Budget: b, Estimate: est})
}

// PutBudget handles PUT /api/trips/{id}/budget.
func (h *Handlers) PutBudget(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	var b travel.Budget
	if !decodeJSON(w, r, &b) {
		return
	}
	if b.TransportCost < 0 || b.StayCost < 0 || b.FoodCost < 0 || b.ActivityCost < 0 || b.TotalBudget < 0 {
		writeError(w, http.StatusBadRequest, "budget amounts must not be negative")
		return
	}

	b.TripID = trip.ID
	if err := h.repo.UpsertBudget(r.Context(), &b); err != nil {
		h.internalError(w, r, "saving budget failed", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

type estimateRequest struct {
	CityID      uuid.UUID   `json:"city_id"`
	Days        int         `json:"days"`
	ActivityIDs []uuid.UUID `json:"activity_ids"`
}

// EstimateBudget handles POST /api/budget/estimate.
func (h *Handlers) EstimateBudget(w http.ResponseWriter, r *http.Request) {
	var in estimateRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.CityID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "city_id is required")
		return
	}
	if in.Days < 1 || in.Days > maxStayDays {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("days must be between 1 and %d", maxStayDays))
		return
	}

	writeJSON(w, http.StatusOK, h.estimator.Estimate(r.Context(), in.CityID, in.Days, in.ActivityIDs))
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
