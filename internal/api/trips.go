package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/export"
	"github.com/neexbeast/globetrotter/internal/storage"
	"github.com/neexbeast/globetrotter/internal/travel"
)

var tripStatuses = map[string]bool{
	"":                   true,
	travel.TripUpcoming:  true,
	travel.TripOngoing:   true,
	travel.TripCompleted: true,
}

type tripInput struct {
	Title       string      `json:"title"`
	Description string      `json:"description"`
	StartDate   travel.Date `json:"start_date"`
	EndDate     travel.Date `json:"end_date"`
	CoverImage  string      `json:"cover_image"`
}

func (in tripInput) validate() string {
	if strings.TrimSpace(in.Title) == "" {
		return "title is required"
	}
	return rangeProblem(in.StartDate, in.EndDate)
}

type tripDetail struct {
	travel.Trip
	Stops []travel.TripStop `json:"stops"`
}

// ownedTrip resolves the {id} URL parameter to a trip owned by the caller.
// Trips owned by someone else are reported as not found.
func (h *Handlers) ownedTrip(w http.ResponseWriter, r *http.Request) (*travel.Trip, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}

	trip, err := h.repo.GetTrip(r.Context(), id, currentUser(r))
	if err != nil {
		h.internalError(w, r, "loading trip failed", err)
		return nil, false
	}
	if trip == nil {
		writeError(w, http.StatusNotFound, "trip not found")
		return nil, false
	}
	return trip, true
}

// ownedStop resolves the {id} URL parameter to a stop on one of the caller's trips.
func (h *Handlers) ownedStop(w http.ResponseWriter, r *http.Request) (*travel.TripStop, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}

	stop, err := h.repo.GetStop(r.Context(), id, currentUser(r))
	if err != nil {
		h.internalError(w, r, "loading stop failed", err)
		return nil, false
	}
	if stop == nil {
		writeError(w, http.StatusNotFound, "stop not found")
		return nil, false
	}
	return stop, true
}

// ---- trips ----

// ListTrips handles GET /api/trips?status=upcoming|ongoing|completed.
func (h *Handlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if !tripStatuses[status] {
		writeError(w, http.StatusBadRequest, "status must be upcoming, ongoing or completed")
		return
	}

	trips, err := h.repo.ListTrips(r.Context(), currentUser(r), status)
	if err != nil {
		h.internalError(w, r, "listing trips failed", err)
		return
	}
	writeJSON(w, http.StatusOK, trips)
}

// CreateTrip handles POST /api/trips.
func (h *Handlers) CreateTrip(w http.ResponseWriter, r *http.Request) {
	var in tripInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if msg := in.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	trip := &travel.Trip{
		UserID:      currentUser(r),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CoverImage:  in.CoverImage,
	}
	if err := h.repo.CreateTrip(r.Context(), trip); err != nil {
		h.internalError(w, r, "creating trip failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, trip)
}

// GetTrip handles GET /api/trips/{id}. The response includes the trip's stops.
func (h *Handlers) GetTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	stops, err := h.repo.ListStops(r.Context(), trip.ID)
	if err != nil {
		h.internalError(w, r, "listing stops failed", err)
		return
	}
	writeJSON(w, http.StatusOK, tripDetail{Trip: *trip, Stops: stops})
}

// within reports whether [start, end] lies inside [outerStart, outerEnd].
func within(start, end, outerStart, outerEnd travel.Date) bool {
	return !start.Before(outerStart.Time) && !end.After(outerEnd.Time)
}

// UpdateTrip handles PUT /api/trips/{id}.
// The new dates must still contain every existing stop.
func (h *Handlers) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	current, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	var in tripInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if msg := in.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	stops, err := h.repo.ListStops(r.Context(), current.ID)
	if err != nil {
		h.internalError(w, r, "listing stops failed", err)
		return
	}
	for _, s := range stops {
		if !within(s.StartDate, s.EndDate, in.StartDate, in.EndDate) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("stop %s (%s to %s) would fall outside the trip dates", s.ID, s.StartDate, s.EndDate))
			return
		}
	}

	trip := &travel.Trip{
		ID:          current.ID,
		UserID:      currentUser(r),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CoverImage:  in.CoverImage,
	}
	if err := h.repo.UpdateTrip(r.Context(), trip); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		h.internalError(w, r, "updating trip failed", err)
		return
	}
	writeJSON(w, http.StatusOK, trip)
}

// DeleteTrip handles DELETE /api/trips/{id}.
func (h *Handlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.DeleteTrip(r.Context(), id, currentUser(r)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip not found")
			return
		}
		h.internalError(w, r, "deleting trip failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- stops ----

// ListStops handles GET /api/trips/{id}/stops.
func (h *Handlers) ListStops(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	stops, err := h.repo.ListStops(r.Context(), trip.ID)
	if err != nil {
		h.internalError(w, r, "listing stops failed", err)
		return
	}
	writeJSON(w, http.StatusOK, stops)
}

type stopInput struct {
	CityID    uuid.UUID   `json:"city_id"`
	StartDate travel.Date `json:"start_date"`
	EndDate   travel.Date `json:"end_date"`
	Position  int         `json:"position"`
	Notes     string      `json:"notes"`
}

// CreateStop handles POST /api/trips/{id}/stops.
// The stop's dates must lie within the trip's dates.
func (h *Handlers) CreateStop(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	var in stopInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if in.CityID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "city_id is required")
		return
	}
	if msg := rangeProblem(in.StartDate, in.EndDate); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if !within(in.StartDate, in.EndDate, trip.StartDate, trip.EndDate) {
		writeError(w, http.StatusBadRequest, "stop dates must fall within the trip dates")
		return
	}

	ctx := r.Context()
	city, err := h.catalog.City(ctx, in.CityID)
	if err != nil {
		h.internalError(w, r, "loading city failed", err)
		return
	}
	if city == nil {
		writeError(w, http.StatusBadRequest, "unknown city_id")
		return
	}

	stop := &travel.TripStop{
		TripID:    trip.ID,
		CityID:    city.ID,
		City:      city,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Position:  in.Position,
		Notes:     in.Notes,
	}
	if err := h.repo.CreateStop(ctx, stop); err != nil {
		h.internalError(w, r, "creating stop failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, stop)
}

// DeleteStop handles DELETE /api/stops/{id}.
func (h *Handlers) DeleteStop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.DeleteStop(r.Context(), id, currentUser(r)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "stop not found")
			return
		}
		h.internalError(w, r, "deleting stop failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- trip activities ----

// ListStopActivities handles GET /api/stops/{id}/activities.
func (h *Handlers) ListStopActivities(w http.ResponseWriter, r *http.Request) {
	stop, ok := h.ownedStop(w, r)
	if !ok {
		return
	}

	list, err := h.repo.ListStopActivities(r.Context(), stop.ID)
	if err != nil {
		h.internalError(w, r, "listing stop activities failed", err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// AddStopActivity handles POST /api/stops/{id}/activities.
// The activity must belong to the stop's city.
func (h *Handlers) AddStopActivity(w http.ResponseWriter, r *http.Request) {
	stop, ok := h.ownedStop(w, r)
	if !ok {
		return
	}

	var in struct {
		ActivityID uuid.UUID `json:"activity_id"`
		Notes      string    `json:"notes"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	ctx := r.Context()
	act, err := h.repo.GetActivity(ctx, in.ActivityID)
	if err != nil {
		h.internalError(w, r, "loading activity failed", err)
		return
	}
	if act == nil || act.CityID != stop.CityID {
		writeError(w, http.StatusBadRequest, "activity_id must name an activity in the stop's city")
		return
	}

	ta := &travel.TripActivity{TripStopID: stop.ID, ActivityID: act.ID, Activity: act, Notes: in.Notes}
	if err := h.repo.AddTripActivity(ctx, ta); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, "activity already added to this stop")
			return
		}
		h.internalError(w, r, "adding stop activity failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, ta)
}

// RemoveTripActivity handles DELETE /api/trip-activities/{id}.
func (h *Handlers) RemoveTripActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.RemoveTripActivity(r.Context(), id, currentUser(r)); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "trip activity not found")
			return
		}
		h.internalError(w, r, "removing trip activity failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- sharing ----

type shareResponse struct {
	TripID     uuid.UUID `json:"trip_id"`
	PublicSlug string    `json:"public_slug"`
	URL        string    `json:"url"`
}

func newSlug() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func (h *Handlers) shareURL(slug string) string {
	return h.publicBaseURL + "/shared/" + slug
}

// ShareTrip handles POST /api/trips/{id}/share. Sharing twice returns the same link.
func (h *Handlers) ShareTrip(w http.ResponseWriter, r *http.Request) {
	trip, ok := h.ownedTrip(w, r)
	if !ok {
		return
	}

	shared, err := h.repo.ShareTrip(r.Context(), trip.ID, newSlug())
	if err != nil {
		h.internalError(w, r, "sharing trip failed", err)
		return
	}
	writeJSON(w, http.StatusOK, shareResponse{
		TripID:     shared.TripID,
		PublicSlug: shared.PublicSlug,
		URL:        h.shareURL(shared.PublicSlug),
	})
}

// sharedTrip resolves the {slug} URL parameter.
func (h *Handlers) sharedTrip(w http.ResponseWriter, r *http.Request) (*travel.Trip, string, bool) {
	slug := strings.TrimSpace(chi.URLParam(r, "slug"))
	trip, err := h.repo.GetSharedTrip(r.Context(), slug)
	if err != nil {
		h.internalError(w, r, "resolving shared trip failed", err)
		return nil, "", false
	}
	if trip == nil {
		writeError(w, http.StatusNotFound, "shared trip not found")
		return nil, "", false
	}
	return trip, slug, true
}

// GetSharedTrip handles GET /api/shared/{slug}. It is public.
func (h *Handlers) GetSharedTrip(w http.ResponseWriter, r *http.Request) {
	trip, _, ok := h.sharedTrip(w, r)
	if !ok {
		return
	}

	stops, err := h.repo.ListStops(r.Context(), trip.ID)
	if err != nil {
		h.internalError(w, r, "listing shared stops failed", err)
		return
	}

	trip.UserID = uuid.Nil
	writeJSON(w, http.StatusOK, tripDetail{Trip: *trip, Stops: stops})
}

// SharedTripQR handles GET /api/shared/{slug}/qr.png?size=. It is public.
func (h *Handlers) SharedTripQR(w http.ResponseWriter, r *http.Request) {
	_, slug, ok := h.sharedTrip(w, r)
	if !ok {
		return
	}

	png, err := export.ShareQR(h.shareURL(slug), queryInt(r, "size", 0))
	if err != nil {
		h.internalError(w, r, "rendering share QR failed", err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
