package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/neexbeast/globetrotter/internal/auth"
	"github.com/neexbeast/globetrotter/internal/travel"
)

const maxBodyBytes = 1 << 20

// maxStayDays bounds trips, stops and generated itineraries, counting both ends.
const maxStayDays = 366

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	repo          Repository
	catalog       CityCatalog
	auth          Authenticator
	planner       Planner
	estimator     BudgetEstimator
	publicBaseURL string
	log           *slog.Logger
}

// NewHandlers constructs Handlers with all required dependencies.
// publicBaseURL is the frontend origin used to build share links.
func NewHandlers(repo Repository, catalog CityCatalog, authn Authenticator, planner Planner, estimator BudgetEstimator, publicBaseURL string, log *slog.Logger) *Handlers {
	return &Handlers{
		repo:          repo,
		catalog:       catalog,
		auth:          authn,
		planner:       planner,
		estimator:     estimator,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
	}
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs err and answers 500 with a generic message.
func (h *Handlers) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.log.Error(msg, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// pathID parses the named URL parameter as a UUID, answering 400 when it is malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil {
		return fallback
	}
	return v
}

func queryFloat(r *http.Request, key string) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil {
		return 0
	}
	return v
}

// rangeProblem describes what is wrong with a start/end pair, or returns "" when
// both are set, ordered, and no more than maxStayDays apart.
func rangeProblem(start, end travel.Date) string {
	if start.IsZero() || end.IsZero() || end.Before(start.Time) {
		return "start_date and end_date are required and end_date must not be before start_date"
	}
	if start.DaysUntil(end)+1 > maxStayDays {
		return fmt.Sprintf("date range must not exceed %d days", maxStayDays)
	}
	return ""
}

// ---- accounts ----

type authResponse struct {
	User  *travel.User `json:"user"`
	Token string       `json:"token"`
}

// Signup handles POST /api/auth/signup.
func (h *Handlers) Signup(w http.ResponseWriter, r *http.Request) {
	var in auth.Signup
	if !decodeJSON(w, r, &in) {
		return
	}

	u, token, err := h.auth.Register(r.Context(), in)
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		h.internalError(w, r, "signup failed", err)
	default:
		writeJSON(w, http.StatusCreated, authResponse{User: u, Token: token})
	}
}

// Login handles POST /api/auth/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeJSON(w, r, &in) {
		return
	}

	u, token, err := h.auth.Login(r.Context(), in.Email, in.Password)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, auth.ErrTooManyAttempts):
		writeError(w, http.StatusTooManyRequests, err.Error())
	case err != nil:
		h.internalError(w, r, "login failed", err)
	default:
		writeJSON(w, http.StatusOK, authResponse{User: u, Token: token})
	}
}

// Me handles GET /api/auth/me.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.repo.GetUserByID(r.Context(), currentUser(r))
	if err != nil {
		h.internalError(w, r, "loading user failed", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type profileUpdate struct {
	FirstName      *string   `json:"first_name"`
	LastName       *string   `json:"last_name"`
	Phone          *string   `json:"phone"`
	City           *string   `json:"city"`
	Country        *string   `json:"country"`
	AdditionalInfo *string   `json:"additional_info"`
	PhotoURL       *string   `json:"photo_url"`
	Interests      *[]string `json:"interests"`
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// UpdateMe handles PUT /api/auth/me. Omitted fields are left unchanged.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var in profileUpdate
	if !decodeJSON(w, r, &in) {
		return
	}

	ctx := r.Context()
	u, err := h.repo.GetUserByID(ctx, currentUser(r))
	if err != nil {
		h.internalError(w, r, "loading user failed", err)
		return
	}
	if u == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	setIf(&u.FirstName, in.FirstName)
	setIf(&u.LastName, in.LastName)
	setIf(&u.Phone, in.Phone)
	setIf(&u.City, in.City)
	setIf(&u.Country, in.Country)
	setIf(&u.AdditionalInfo, in.AdditionalInfo)
	setIf(&u.PhotoURL, in.PhotoURL)

	if err := h.repo.UpdateUser(ctx, u); err != nil {
		h.internalError(w, r, "updating user failed", err)
		return
	}

	if in.Interests != nil {
		if err := h.repo.SetInterests(ctx, u.ID, *in.Interests); err != nil {
			h.internalError(w, r, "updating interests failed", err)
			return
		}
		if u, err = h.repo.GetUserByID(ctx, u.ID); err != nil {
			h.internalError(w, r, "reloading user failed", err)
			return
		}
		if u == nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
	}

	writeJSON(w, http.StatusOK, u)
}

// ---- health ----

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlerFunc returns an http.HandlerFunc that checks db and redis connectivity.
// It answers 200 when both respond and 503 otherwise.
func HealthHandlerFunc(db, redis pinger, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		body := map[string]string{"status": "ok", "db": "ok", "redis": "ok"}
		status := http.StatusOK

		for name, p := range map[string]pinger{"db": db, "redis": redis} {
			if err := p.Ping(ctx); err != nil {
				log.Error("health check: ping failed", "dependency", name, "err", err)
				body[name] = "error"
				body["status"] = "degraded"
				status = http.StatusServiceUnavailable
			}
		}

		writeJSON(w, status, body)
	}
}
