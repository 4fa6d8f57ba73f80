package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/globetrotter/internal/api"
	"github.com/neexbeast/globetrotter/internal/auth"
	"github.com/neexbeast/globetrotter/internal/itinerary"
	"github.com/neexbeast/globetrotter/internal/storage"
	"github.com/neexbeast/globetrotter/internal/travel"
)

// ---- mock implementations ----

// mockRepo answers every storage call with zero values unless the matching
// func field is set.
type mockRepo struct {
	getUserByIDFn  func(ctx context.Context, id uuid.UUID) (*travel.User, error)
	updateUserFn   func(ctx context.Context, u *travel.User) error
	setInterestsFn func(ctx context.Context, userID uuid.UUID, interests []string) error

	listCitiesFn       func(ctx context.Context, f storage.CityFilter) ([]travel.City, error)
	createCityFn       func(ctx context.Context, c *travel.City) error
	searchActivitiesFn func(ctx context.Context, f storage.ActivityFilter) ([]travel.Activity, error)
	getActivityFn      func(ctx context.Context, id uuid.UUID) (*travel.Activity, error)
	createActivityFn   func(ctx context.Context, a *travel.Activity) error
	activitiesByIDsFn  func(ctx context.Context, ids []uuid.UUID) ([]travel.Activity, error)
	recommendUserFn    func(ctx context.Context, userID uuid.UUID, limit int) ([]travel.Recommendation, error)
	recommendCityFn    func(ctx context.Context, cityID uuid.UUID, category string, maxBudget float64, limit int) ([]travel.Activity, error)
	listSavedFn        func(ctx context.Context, userID uuid.UUID) ([]travel.SavedCity, error)
	saveCityFn         func(ctx context.Context, userID, cityID uuid.UUID) error
	unsaveCityFn       func(ctx context.Context, userID, cityID uuid.UUID) error

	createTripFn   func(ctx context.Context, t *travel.Trip) error
	listTripsFn    func(ctx context.Context, userID uuid.UUID, status string) ([]travel.Trip, error)
	getTripFn      func(ctx context.Context, tripID, userID uuid.UUID) (*travel.Trip, error)
	updateTripFn   func(ctx context.Context, t *travel.Trip) error
	deleteTripFn   func(ctx context.Context, tripID, userID uuid.UUID) error
	createStopFn   func(ctx context.Context, s *travel.TripStop) error
	listStopsFn    func(ctx context.Context, tripID uuid.UUID) ([]travel.TripStop, error)
	getStopFn      func(ctx context.Context, stopID, userID uuid.UUID) (*travel.TripStop, error)
	deleteStopFn   func(ctx context.Context, stopID, userID uuid.UUID) error
	addActivityFn  func(ctx context.Context, ta *travel.TripActivity) error
	stopActsFn     func(ctx context.Context, stopID uuid.UUID) ([]travel.TripActivity, error)
	removeActFn    func(ctx context.Context, id, userID uuid.UUID) error
	getBudgetFn    func(ctx context.Context, tripID uuid.UUID) (*travel.Budget, error)
	upsertBudgetFn func(ctx context.Context, b *travel.Budget) error
	shareTripFn    func(ctx context.Context, tripID uuid.UUID, slug string) (*travel.SharedTrip, error)
	getSharedFn    func(ctx context.Context, slug string) (*travel.Trip, error)
}

func (m *mockRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*travel.User, error) {
	if m.getUserByIDFn == nil {
		return nil, nil
	}
	return m.getUserByIDFn(ctx, id)
}
func (m *mockRepo) UpdateUser(ctx context.Context, u *travel.User) error {
	if m.updateUserFn == nil {
		return nil
	}
	return m.updateUserFn(ctx, u)
}
func (m *mockRepo) SetInterests(ctx context.Context, userID uuid.UUID, interests []string) error {
	if m.setInterestsFn == nil {
		return nil
	}
	return m.setInterestsFn(ctx, userID, interests)
}
func (m *mockRepo) ListCities(ctx context.Context, f storage.CityFilter) ([]travel.City, error) {
	if m.listCitiesFn == nil {
		return []travel.City{}, nil
	}
	return m.listCitiesFn(ctx, f)
}
func (m *mockRepo) CreateCity(ctx context.Context, c *travel.City) error {
	if m.createCityFn == nil {
		return nil
	}
	return m.createCityFn(ctx, c)
}
func (m *mockRepo) SearchActivities(ctx context.Context, f storage.ActivityFilter) ([]travel.Activity, error) {
	if m.searchActivitiesFn == nil {
		return []travel.Activity{}, nil
	}
	return m.searchActivitiesFn(ctx, f)
}
func (m *mockRepo) GetActivity(ctx context.Context, id uuid.UUID) (*travel.Activity, error) {
	if m.getActivityFn == nil {
		return nil, nil
	}
	return m.getActivityFn(ctx, id)
}
func (m *mockRepo) CreateActivity(ctx context.Context, a *travel.Activity) error {
	if m.createActivityFn == nil {
		return nil
	}
	return m.createActivityFn(ctx, a)
}
func (m *mockRepo) ActivitiesByIDs(ctx context.Context, ids []uuid.UUID) ([]travel.Activity, error) {
	if m.activitiesByIDsFn == nil {
		return []travel.Activity{}, nil
	}
	return m.activitiesByIDsFn(ctx, ids)
}
func (m *mockRepo) RecommendForUser(ctx context.Context, userID uuid.UUID, limit int) ([]travel.Recommendation, error) {
	if m.recommendUserFn == nil {
		return []travel.Recommendation{}, nil
	}
	return m.recommendUserFn(ctx, userID, limit)
}
func (m *mockRepo) RecommendForCity(ctx context.Context, cityID uuid.UUID, category string, maxBudget float64, limit int) ([]travel.Activity, error) {
	if m.recommendCityFn == nil {
		return []travel.Activity{}, nil
	}
	return m.recommendCityFn(ctx, cityID, category, maxBudget, limit)
}
func (m *mockRepo) ListSavedCities(ctx context.Context, userID uuid.UUID) ([]travel.SavedCity, error) {
	if m.listSavedFn == nil {
		return []travel.SavedCity{}, nil
	}
	return m.listSavedFn(ctx, userID)
}
func (m *mockRepo) SaveCity(ctx context.Context, userID, cityID uuid.UUID) error {
	if m.saveCityFn == nil {
		return nil
	}
	return m.saveCityFn(ctx, userID, cityID)
}
func (m *mockRepo) UnsaveCity(ctx context.Context, userID, cityID uuid.UUID) error {
	if m.unsaveCityFn == nil {
		return nil
	}
	return m.unsaveCityFn(ctx, userID, cityID)
}
func (m *mockRepo) CreateTrip(ctx context.Context, t *travel.Trip) error {
	if m.createTripFn == nil {
		return nil
	}
	return m.createTripFn(ctx, t)
}
func (m *mockRepo) ListTrips(ctx context.Context, userID uuid.UUID, status string) ([]travel.Trip, error) {
	if m.listTripsFn == nil {
		return []travel.Trip{}, nil
	}
	return m.listTripsFn(ctx, userID, status)
}
func (m *mockRepo) GetTrip(ctx context.Context, tripID, userID uuid.UUID) (*travel.Trip, error) {
	if m.getTripFn == nil {
		return nil, nil
	}
	return m.getTripFn(ctx, tripID, userID)
}
func (m *mockRepo) UpdateTrip(ctx context.Context, t *travel.Trip) error {
	if m.updateTripFn == nil {
		return nil
	}
	return m.updateTripFn(ctx, t)
}
func (m *mockRepo) DeleteTrip(ctx context.Context, tripID, userID uuid.UUID) error {
	if m.deleteTripFn == nil {
		return nil
	}
	return m.deleteTripFn(ctx, tripID, userID)
}
func (m *mockRepo) CreateStop(ctx context.Context, s *travel.TripStop) error {
	if m.createStopFn == nil {
		return nil
	}
	return m.createStopFn(ctx, s)
}
func (m *mockRepo) ListStops(ctx context.Context, tripID uuid.UUID) ([]travel.TripStop, error) {
	if m.listStopsFn == nil {
		return []travel.TripStop{}, nil
	}
	return m.listStopsFn(ctx, tripID)
}
func (m *mockRepo) GetStop(ctx context.Context, stopID, userID uuid.UUID) (*travel.TripStop, error) {
	if m.getStopFn == nil {
		return nil, nil
	}
	return m.getStopFn(ctx, stopID, userID)
}
func (m *mockRepo) DeleteStop(ctx context.Context, stopID, userID uuid.UUID) error {
	if m.deleteStopFn == nil {
		return nil
	}
	return m.deleteStopFn(ctx, stopID, userID)
}
func (m *mockRepo) AddTripActivity(ctx context.Context, ta *travel.TripActivity) error {
	if m.addActivityFn == nil {
		return nil
	}
	return m.addActivityFn(ctx, ta)
}
func (m *mockRepo) ListStopActivities(ctx context.Context, stopID uuid.UUID) ([]travel.TripActivity, error) {
	if m.stopActsFn == nil {
		return []travel.TripActivity{}, nil
	}
	return m.stopActsFn(ctx, stopID)
}
func (m *mockRepo) RemoveTripActivity(ctx context.Context, id, userID uuid.UUID) error {
	if m.removeActFn == nil {
		return nil
	}
	return m.removeActFn(ctx, id, userID)
}
func (m *mockRepo) GetBudget(ctx context.Context, tripID uuid.UUID) (*travel.Budget, error) {
	if m.getBudgetFn == nil {
		return nil, nil
	}
	return m.getBudgetFn(ctx, tripID)
}
func (m *mockRepo) UpsertBudget(ctx context.Context, b *travel.Budget) error {
	if m.upsertBudgetFn == nil {
		return nil
	}
	return m.upsertBudgetFn(ctx, b)
}
func (m *mockRepo) ShareTrip(ctx context.Context, tripID uuid.UUID, slug string) (*travel.SharedTrip, error) {
	if m.shareTripFn == nil {
		return &travel.SharedTrip{TripID: tripID, PublicSlug: slug}, nil
	}
	return m.shareTripFn(ctx, tripID, slug)
}
func (m *mockRepo) GetSharedTrip(ctx context.Context, slug string) (*travel.Trip, error) {
	if m.getSharedFn == nil {
		return nil, nil
	}
	return m.getSharedFn(ctx, slug)
}

// mockCatalog serves cities and activities from memory. It satisfies both the
// handler catalog and the itinerary catalog.
type mockCatalog struct {
	cities      map[uuid.UUID]*travel.City
	activities  map[uuid.UUID][]travel.Activity
	err         error
	invalidated []uuid.UUID
}

func (m *mockCatalog) City(_ context.Context, id uuid.UUID) (*travel.City, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.cities[id], nil
}

func (m *mockCatalog) Invalidate(_ context.Context, cityID uuid.UUID) {
	m.invalidated = append(m.invalidated, cityID)
}

func (m *mockCatalog) ActivitiesByCity(_ context.Context, cityID uuid.UUID, limit int) ([]travel.Activity, error) {
	acts := m.activities[cityID]
	if len(acts) > limit {
		acts = acts[:limit]
	}
	return acts, nil
}

// ActivitiesByIDs returns an empty, non-nil slice for no ids, as storage does.
func (m *mockCatalog) ActivitiesByIDs(_ context.Context, ids []uuid.UUID) ([]travel.Activity, error) {
	out := []travel.Activity{}
	for _, id := range ids {
		for _, list := range m.activities {
			for _, a := range list {
				if a.ID == id {
					out = append(out, a)
				}
			}
		}
	}
	return out, nil
}

type mockAuth struct {
	registerFn func(ctx context.Context, in auth.Signup) (*travel.User, string, error)
	loginFn    func(ctx context.Context, email, password string) (*travel.User, string, error)
}

func (m *mockAuth) Register(ctx context.Context, in auth.Signup) (*travel.User, string, error) {
	return m.registerFn(ctx, in)
}
func (m *mockAuth) Login(ctx context.Context, email, password string) (*travel.User, string, error) {
	return m.loginFn(ctx, email, password)
}

// staticTokens accepts exactly the tokens in the map.
type staticTokens map[string]uuid.UUID

func (s staticTokens) ParseToken(token string) (uuid.UUID, error) {
	id, ok := s[token]
	if !ok {
		return uuid.Nil, auth.ErrInvalidToken
	}
	return id, nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

// ---- helpers ----

var (
	aliceID = uuid.MustParse("a11ce000-0000-4000-8000-000000000001")
	bobID   = uuid.MustParse("b0b00000-0000-4000-8000-000000000002")
	parisID = uuid.MustParse("9a415000-0000-4000-8000-000000000003")
	louvre  = travel.Activity{
		ID:            uuid.MustParse("10c00000-0000-4000-8000-000000000004"),
		CityID:        parisID,
		Name:          "Louvre",
		Category:      "culture",
		AverageCost:   17,
		DurationHours: 3,
	}
	seine = travel.Activity{
		ID:          uuid.MustParse("5e100000-0000-4000-8000-000000000005"),
		CityID:      parisID,
		Name:        "Seine cruise",
		Category:    "sightseeing",
		AverageCost: 15,
	}
)

const (
	aliceToken = "alice-token"
	bobToken   = "bob-token"
)

func paris() *travel.City {
	return &travel.City{ID: parisID, Name: "Paris", Country: "France", CostIndex: 100}
}

func date(s string) travel.Date {
	d, err := travel.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

type deps struct {
	repo    *mockRepo
	catalog *mockCatalog
	auth    *mockAuth
	db      *mockPinger
	redis   *mockPinger
}

func newDeps() *deps {
	return &deps{
		repo: &mockRepo{},
		catalog: &mockCatalog{
			cities:     map[uuid.UUID]*travel.City{parisID: paris()},
			activities: map[uuid.UUID][]travel.Activity{parisID: {louvre, seine}},
		},
		auth:  &mockAuth{},
		db:    &mockPinger{},
		redis: &mockPinger{},
	}
}

func (d *deps) router() http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	noShuffle := func(int, func(i, j int)) {}
	planner := itinerary.NewScheduler(d.catalog, itinerary.WithShuffle(noShuffle), itinerary.WithLogger(log))
	estimator := itinerary.NewEstimator(d.catalog, log)

	h := api.NewHandlers(d.repo, d.catalog, d.auth, planner, estimator, "https://globetrotter.test/", log)
	tokens := staticTokens{aliceToken: aliceID, bobToken: bobID}
	return api.NewRouter(h, tokens, d.db, d.redis, []string{"https://globetrotter.test"}, log)
}

func do(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

// ---- middleware ----

func TestRequireUser_MissingHeader(t *testing.T) {
	w := do(t, newDeps().router(), http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", errorBody(t, w))
}

func TestRequireUser_WrongScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/trips", nil)
	req.Header.Set("Authorization", "Basic "+aliceToken)
	w := httptest.NewRecorder()
	newDeps().router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireUser_UnknownToken(t *testing.T) {
	w := do(t, newDeps().router(), http.MethodGet, "/api/trips", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCORS_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/trips", nil)
	req.Header.Set("Origin", "https://globetrotter.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")
	w := httptest.NewRecorder()
	newDeps().router().ServeHTTP(w, req)

	assert.Equal(t, "https://globetrotter.test", w.Header().Get("Access-Control-Allow-Origin"))
}

// ---- accounts ----

func TestSignup_Created(t *testing.T) {
	d := newDeps()
	d.auth.registerFn = func(_ context.Context, in auth.Signup) (*travel.User, string, error) {
		assert.Equal(t, "alice@example.com", in.Email)
		assert.Equal(t, []string{"food"}, in.Interests)
		return &travel.User{ID: aliceID, Email: in.Email}, "jwt", nil
	}

	w := do(t, d.router(), http.MethodPost, "/api/auth/signup", "", map[string]any{
		"email": "alice@example.com", "password": "secret1", "interests": []string{"food"},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	got := decode[map[string]any](t, w)
	assert.Equal(t, "jwt", got["token"])
	assert.Equal(t, aliceID.String(), got["user"].(map[string]any)["id"])
}

func TestSignup_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid input", auth.ErrInvalidInput, http.StatusBadRequest},
		{"duplicate email", auth.ErrEmailTaken, http.StatusConflict},
		{"storage failure", errors.New("db down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDeps()
			d.auth.registerFn = func(context.Context, auth.Signup) (*travel.User, string, error) {
				return nil, "", tc.err
			}
			w := do(t, d.router(), http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "a@b.c"})
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestSignup_BadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	newDeps().router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLogin_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"bad credentials", auth.ErrInvalidCredentials, http.StatusUnauthorized},
		{"throttled", auth.ErrTooManyAttempts, http.StatusTooManyRequests},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := newDeps()
			d.auth.loginFn = func(context.Context, string, string) (*travel.User, string, error) {
				return nil, "", tc.err
			}
			w := do(t, d.router(), http.MethodPost, "/api/auth/login", "", map[string]string{"email": "a@b.c", "password": "x"})
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestLogin_OK(t *testing.T) {
	d := newDeps()
	d.auth.loginFn = func(_ context.Context, email, password string) (*travel.User, string, error) {
		assert.Equal(t, "alice@example.com", email)
		assert.Equal(t, "secret1", password)
		return &travel.User{ID: aliceID, Email: email}, "jwt", nil
	}

	w := do(t, d.router(), http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "jwt", decode[map[string]any](t, w)["token"])
}

func TestMe_UsesTokenSubject(t *testing.T) {
	d := newDeps()
	d.repo.getUserByIDFn = func(_ context.Context, id uuid.UUID) (*travel.User, error) {
		return &travel.User{ID: id, Email: "bob@example.com"}, nil
	}

	w := do(t, d.router(), http.MethodGet, "/api/auth/me", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, bobID.String(), decode[map[string]any](t, w)["id"])
}

func TestUpdateMe_PartialUpdate(t *testing.T) {
	d := newDeps()
	stored := &travel.User{ID: aliceID, FirstName: "Alice", LastName: "Smith", Interests: []string{"art"}}
	d.repo.getUserByIDFn = func(context.Context, uuid.UUID) (*travel.User, error) {
		cp := *stored
		return &cp, nil
	}
	d.repo.updateUserFn = func(_ context.Context, u *travel.User) error {
		stored = u
		return nil
	}
	var interests []string
	d.repo.setInterestsFn = func(_ context.Context, _ uuid.UUID, in []string) error {
		interests = in
		stored.Interests = in
		return nil
	}

	w := do(t, d.router(), http.MethodPut, "/api/auth/me", aliceToken, map[string]any{
		"last_name": "Jones", "interests": []string{"food", "hiking"},
	})

	require.Equal(t, http.StatusOK, w.Code)
	got := decode[travel.User](t, w)
	assert.Equal(t, "Alice", got.FirstName)
	assert.Equal(t, "Jones", got.LastName)
	assert.Equal(t, []string{"food", "hiking"}, interests)
	assert.Equal(t, []string{"food", "hiking"}, got.Interests)
}

func TestUpdateMe_UserGoneAfterInterests(t *testing.T) {
	d := newDeps()
	calls := 0
	d.repo.getUserByIDFn = func(context.Context, uuid.UUID) (*travel.User, error) {
		calls++
		if calls > 1 {
			return nil, nil
		}
		return &travel.User{ID: aliceID}, nil
	}

	w := do(t, d.router(), http.MethodPut, "/api/auth/me", aliceToken, map[string]any{"interests": []string{"art"}})

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "user not found", errorBody(t, w))
	assert.Equal(t, 2, calls)
}

func TestUpdateMe_InterestsUntouchedWhenOmitted(t *testing.T) {
	d := newDeps()
	d.repo.getUserByIDFn = func(context.Context, uuid.UUID) (*travel.User, error) {
		return &travel.User{ID: aliceID}, nil
	}
	d.repo.setInterestsFn = func(context.Context, uuid.UUID, []string) error {
		t.Fatal("interests should not be replaced")
		return nil
	}

	w := do(t, d.router(), http.MethodPut, "/api/auth/me", aliceToken, map[string]any{"phone": "+33"})
	assert.Equal(t, http.StatusOK, w.Code)
}

// ---- health ----

func TestHealth_AllOK(t *testing.T) {
	w := do(t, newDeps().router(), http.MethodGet, "/api/v1/health", "", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, map[string]string{"status": "ok", "db": "ok", "redis": "ok"}, decode[map[string]string](t, w))
}

func TestHealth_RedisDown(t *testing.T) {
	d := newDeps()
	d.redis.err = errors.New("connection refused")

	w := do(t, d.router(), http.MethodGet, "/api/v1/health", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode[map[string]string](t, w)
	assert.Equal(t, "degraded", body["status"])
	assert.Equal(t, "ok", body["db"])
	assert.Equal(t, "error", body["redis"])
}

func TestHealth_DBDown(t *testing.T) {
	d := newDeps()
	d.db.err = errors.New("timeout")

	w := do(t, d.router(), http.MethodGet, "/api/v1/health", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "error", decode[map[string]string](t, w)["db"])
}
