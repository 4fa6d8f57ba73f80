package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/rs/cors"
)

// NewRouter builds and returns the Chi router with all routes configured.
// Health, signup, login and shared-trip routes are public; everything else
// requires a bearer token. Rate limiting is applied globally: 60 requests per minute per IP.
func NewRouter(h *Handlers, tokens TokenParser, db, redis pinger, corsOrigins []string, log *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(60, time.Minute))
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler)

	r.Get("/api/v1/health", HealthHandlerFunc(db, redis, log))

	r.Post("/api/auth/signup", h.Signup)
	r.Post("/api/auth/login", h.Login)
	r.Get("/api/shared/{slug}", h.GetSharedTrip)
	r.Get("/api/shared/{slug}/qr.png", h.SharedTripQR)

	r.Group(func(r chi.Router) {
		r.Use(RequireUser(tokens))

		r.Get("/api/auth/me", h.Me)
		r.Put("/api/auth/me", h.UpdateMe)

		r.Route("/api/cities", func(r chi.Router) {
			r.Get("/", h.ListCities)
			r.Post("/", h.CreateCity)
			r.Get("/{id}", h.GetCity)
			r.Get("/{id}/activities", h.CityActivities)
			r.Get("/{id}/recommendations", h.CityRecommendations)
			r.Post("/{id}/itinerary", h.CityItinerary)
		})

		r.Route("/api/activities", func(r chi.Router) {
			r.Get("/", h.ListActivities)
			r.Post("/", h.CreateActivity)
			r.Get("/{id}", h.GetActivity)
		})
		r.Get("/api/recommendations/activities", h.RecommendActivities)

		r.Route("/api/trips", func(r chi.Router) {
			r.Get("/", h.ListTrips)
			r.Post("/", h.CreateTrip)
			r.Get("/{id}", h.GetTrip)
			r.Put("/{id}", h.UpdateTrip)
			r.Delete("/{id}", h.DeleteTrip)
			r.Post("/{id}/share", h.ShareTrip)
			r.Get("/{id}/stops", h.ListStops)
			r.Post("/{id}/stops", h.CreateStop)
			r.Get("/{id}/budget", h.GetBudget)
			r.Put("/{id}/budget", h.PutBudget)
			r.Get("/{id}/itinerary", h.TripItinerary)
			r.Get("/{id}/itinerary.pdf", h.TripItineraryPDF)
		})

		r.Delete("/api/stops/{id}", h.DeleteStop)
		r.Get("/api/stops/{id}/activities", h.ListStopActivities)
		r.Post("/api/stops/{id}/activities", h.AddStopActivity)
		r.Delete("/api/trip-activities/{id}", h.RemoveTripActivity)

		r.Post("/api/budget/estimate", h.EstimateBudget)

		r.Get("/api/saved-cities", h.ListSavedCities)
		r.Post("/api/saved-cities/{id}", h.SaveCity)
		r.Delete("/api/saved-cities/{id}", h.UnsaveCity)
	})

	return r
}

// Ensure chi.Mux implements http.Handler.
var _ http.Handler = (*chi.Mux)(nil)
