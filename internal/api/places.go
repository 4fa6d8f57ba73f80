package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/itinerary"
	"github.com/neexbeast/globetrotter/internal/storage"
	"github.com/neexbeast/globetrotter/internal/travel"
)

// ---- cities ----

// ListCities handles GET /api/cities?search=&country=&limit=&offset=.
func (h *Handlers) ListCities(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	cities, err := h.repo.ListCities(r.Context(), storage.CityFilter{
		Search:  strings.TrimSpace(q.Get("search")),
		Country: strings.TrimSpace(q.Get("country")),
		Limit:   queryInt(r, "limit", 0),
		Offset:  queryInt(r, "offset", 0),
	})
	if err != nil {
		h.internalError(w, r, "listing cities failed", err)
		return
	}
	writeJSON(w, http.StatusOK, cities)
}

type cityInput struct {
	Name       string  `json:"city_name"`
	Country    string  `json:"country"`
	CostIndex  *int    `json:"cost_index"`
	Popularity int     `json:"popularity"`
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
}

// CreateCity handles POST /api/cities. cost_index defaults to the baseline.
func (h *Handlers) CreateCity(w http.ResponseWriter, r *http.Request) {
	var in cityInput
	if !decodeJSON(w, r, &in) {
		return
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Country) == "" {
		writeError(w, http.StatusBadRequest, "city_name and country are required")
		return
	}

	city := &travel.City{
		Name:       strings.TrimSpace(in.Name),
		Country:    strings.TrimSpace(in.Country),
		CostIndex:  itinerary.BaselineCostIndex,
		Popularity: in.Popularity,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
	}
	if in.CostIndex != nil {
		if *in.CostIndex < 0 || *in.CostIndex > 100 {
			writeError(w, http.StatusBadRequest, "cost_index must be between 0 and 100")
			return
		}
		city.CostIndex = *in.CostIndex
	}

	if err := h.repo.CreateCity(r.Context(), city); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, "city already exists")
			return
		}
		h.internalError(w, r, "creating city failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, city)
}

// loadCity resolves the {id} URL parameter to a city, answering 400/404/500 itself.
func (h *Handlers) loadCity(w http.ResponseWriter, r *http.Request) (*travel.City, bool) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return nil, false
	}

	city, err := h.catalog.City(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "loading city failed", err)
		return nil, false
	}
	if city == nil {
		writeError(w, http.StatusNotFound, "city not found")
		return nil, false
	}
	return city, true
}

// GetCity handles GET /api/cities/{id}.
func (h *Handlers) GetCity(w http.ResponseWriter, r *http.Request) {
	city, ok := h.loadCity(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, city)
}

// CityActivities handles GET /api/cities/{id}/activities?category=&max_cost=&q=&limit=.
func (h *Handlers) CityActivities(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	acts, err := h.repo.SearchActivities(r.Context(), activityFilter(r, id))
	if err != nil {
		h.internalError(w, r, "listing city activities failed", err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

// CityRecommendations handles GET /api/cities/{id}/recommendations?category=&max_budget=&limit=.
func (h *Handlers) CityRecommendations(w http.ResponseWriter, r *http.Request) {
	city, ok := h.loadCity(w, r)
	if !ok {
		return
	}

	acts, err := h.repo.RecommendForCity(r.Context(), city.ID,
		r.URL.Query().Get("category"), queryFloat(r, "max_budget"), queryInt(r, "limit", 10))
	if err != nil {
		h.internalError(w, r, "city recommendations failed", err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

// ---- activities ----

func activityFilter(r *http.Request, cityID uuid.UUID) storage.ActivityFilter {
	q := r.URL.Query()
	return storage.ActivityFilter{
		CityID:   cityID,
		Category: strings.TrimSpace(q.Get("category")),
		MaxCost:  queryFloat(r, "max_cost"),
		Query:    strings.TrimSpace(q.Get("q")),
		Limit:    queryInt(r, "limit", 0),
	}
}

// ListActivities handles GET /api/activities?city_id=&category=&max_cost=&q=&limit=.
func (h *Handlers) ListActivities(w http.ResponseWriter, r *http.Request) {
	var cityID uuid.UUID
	if raw := r.URL.Query().Get("city_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid city_id")
			return
		}
		cityID = id
	}

	acts, err := h.repo.SearchActivities(r.Context(), activityFilter(r, cityID))
	if err != nil {
		h.internalError(w, r, "listing activities failed", err)
		return
	}
	writeJSON(w, http.StatusOK, acts)
}

// CreateActivity handles POST /api/activities.
func (h *Handlers) CreateActivity(w http.ResponseWriter, r *http.Request) {
	var a travel.Activity
	if !decodeJSON(w, r, &a) {
		return
	}
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" || a.CityID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "city_id and act_name are required")
		return
	}
	if a.AverageCost < 0 || a.DurationHours < 0 {
		writeError(w, http.StatusBadRequest, "avg_cost and duration_hours must not be negative")
		return
	}

	ctx := r.Context()
	city, err := h.catalog.City(ctx, a.CityID)
	if err != nil {
		h.internalError(w, r, "loading city failed", err)
		return
	}
	if city == nil {
		writeError(w, http.StatusBadRequest, "unknown city_id")
		return
	}

	if err := h.repo.CreateActivity(ctx, &a); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			writeError(w, http.StatusConflict, "activity already exists in this city")
			return
		}
		h.internalError(w, r, "creating activity failed", err)
		return
	}

	h.catalog.Invalidate(ctx, a.CityID)
	writeJSON(w, http.StatusCreated, a)
}

// GetActivity handles GET /api/activities/{id}.
func (h *Handlers) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.repo.GetActivity(r.Context(), id)
	if err != nil {
		h.internalError(w, r, "loading activity failed", err)
		return
	}
	if a == nil {
		writeError(w, http.StatusNotFound, "activity not found")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// RecommendActivities handles GET /api/recommendations/activities?limit=.
// Activities are ranked by how many of the caller's interests they match.
func (h *Handlers) RecommendActivities(w http.ResponseWriter, r *http.Request) {
	recs, err := h.repo.RecommendForUser(r.Context(), currentUser(r), queryInt(r, "limit", 10))
	if err != nil {
		h.internalError(w, r, "user recommendations failed", err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// ---- saved cities ----

// ListSavedCities handles GET /api/saved-cities.
func (h *Handlers) ListSavedCities(w http.ResponseWriter, r *http.Request) {
	saved, err := h.repo.ListSavedCities(r.Context(), currentUser(r))
	if err != nil {
		h.internalError(w, r, "listing saved cities failed", err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

// SaveCity handles POST /api/saved-cities/{id}.
func (h *Handlers) SaveCity(w http.ResponseWriter, r *http.Request) {
	city, ok := h.loadCity(w, r)
	if !ok {
		return
	}

	if err := h.repo.SaveCity(r.Context(), currentUser(r), city.ID); err != nil {
		h.internalError(w, r, "saving city failed", err)
		return
	}
	writeJSON(w, http.StatusCreated, travel.SavedCity{UserID: currentUser(r), CityID: city.ID, City: city})
}

// UnsaveCity handles DELETE /api/saved-cities/{id}.
func (h *Handlers) UnsaveCity(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.repo.UnsaveCity(r.Context(), currentUser(r), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "city is not saved")
			return
		}
		h.internalError(w, r, "unsaving city failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
