package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"daily-diet-backend/internal/config"
	"daily-diet-backend/internal/middleware"
	"daily-diet-backend/internal/models"
	"daily-diet-backend/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "handler-test-secret"

type testServer struct {
	router   http.Handler
	db       *memDB
	sessions *services.SessionService
	hub      *services.WSHub
}

type serverOptions struct {
	aws         config.AWSConfig
	rateLimiter *middleware.RateLimiter
	health      http.HandlerFunc
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()

	db := newMemDB()
	users := memUsers{db: db}
	meals := memMeals{db: db}

	sessions := services.NewSessionService(users, testSecret, 7*24*time.Hour)
	metrics := services.NewMetricsService(meals, nil)
	hub := services.NewWSHub(metrics)
	photos, err := services.NewPhotoService(meals, opts.aws)
	require.NoError(t, err)

	router := NewRouter(Routes{
		Users:       NewUserHandler(services.NewUserService(users, sessions), sessions, metrics, false),
		Meals:       NewMealHandler(services.NewMealService(meals, metrics), sessions, hub),
		Photos:      NewPhotoHandler(photos, sessions),
		WebSocket:   NewWebSocketHandler(hub, sessions),
		Health:      opts.health,
		RateLimiter: opts.rateLimiter,
	})

	return &testServer{router: router, db: db, sessions: sessions, hub: hub}
}

func (s *testServer) do(method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.SessionCookieName {
			return c
		}
	}
	return nil
}

// register creates a user and returns its session cookie
func (s *testServer) register(t *testing.T, name, email string) *http.Cookie {
	t.Helper()
	rec := s.do(http.MethodPost, "/users", fmt.Sprintf(`{"name":%q,"email":%q}`, name, email), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
}

func mealBody(name string, withinDiet bool, at time.Time) string {
	return fmt.Sprintf(`{"name":%q,"description":"test meal","meal_time":%q,"within_diet":%t}`,
		name, at.Format(time.RFC3339), withinDiet)
}

func (s *testServer) listMeals(t *testing.T, cookie *http.Cookie) []models.Meal {
	t.Helper()
	rec := s.do(http.MethodGet, "/meals", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		Meals []models.Meal `json:"meals"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Meals
}

// createMeal posts a meal and returns its id
func (s *testServer) createMeal(t *testing.T, cookie *http.Cookie, name string, withinDiet bool, at time.Time) string {
	t.Helper()
	rec := s.do(http.MethodPost, "/meals", mealBody(name, withinDiet, at), cookie)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	for _, m := range s.listMeals(t, cookie) {
		if m.Name == name {
			return m.ID
		}
	}
	t.Fatalf("meal %q not listed after creation", name)
	return ""
}

func (s *testServer) metrics(t *testing.T, cookie *http.Cookie) models.Metrics {
	t.Helper()
	rec := s.do(http.MethodGet, "/users/metrics", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var m models.Metrics
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body middleware.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

var baseTime = time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)

func TestCreateUser_SetsSessionCookie(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(http.MethodPost, "/users", `{"name":"Bruno","email":"bruno@example.com"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.NotEmpty(t, cookie.Value)
	assert.Equal(t, "/", cookie.Path)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
}

func TestCreateUser_Rejected(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.register(t, "Bruno", "bruno@example.com")

	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"duplicate email", `{"name":"Other","email":"bruno@example.com"}`, "User already exists"},
		{"duplicate email differing in case", `{"name":"Other","email":"BRUNO@Example.com"}`, "User already exists"},
		{"malformed body", `{"name":`, "Invalid request body"},
		{"missing name", `{"email":"x@example.com"}`, "name: is required"},
		{"invalid email", `{"name":"X","email":"not-an-email"}`, "email: must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/users", tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, errorMessage(t, rec))
			assert.Nil(t, sessionCookie(rec))
		})
	}
}

func TestCreateUser_ReusesUnboundCookie(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	token, err := s.sessions.Issue("11111111-2222-3333-4444-555555555555")
	require.NoError(t, err)
	cookie := &http.Cookie{Name: middleware.SessionCookieName, Value: token}

	rec := s.do(http.MethodPost, "/users", `{"name":"Ana","email":"ana@example.com"}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, sessionCookie(rec))

	assert.Equal(t, models.Metrics{}, s.metrics(t, cookie))
}

func TestCreateUser_BoundCookieIsNotShared(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	first := s.register(t, "Ana", "ana@example.com")
	s.createMeal(t, first, "Breakfast", true, baseTime)

	rec := s.do(http.MethodPost, "/users", `{"name":"Bia","email":"bia@example.com"}`, first)
	require.Equal(t, http.StatusCreated, rec.Code)
	second := sessionCookie(rec)
	require.NotNil(t, second)
	assert.NotEqual(t, first.Value, second.Value)

	assert.Equal(t, 1, s.metrics(t, first).TotalMeals)
	assert.Equal(t, 0, s.metrics(t, &http.Cookie{Name: second.Name, Value: second.Value}).TotalMeals)
}

func TestListAndGetUsers(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.register(t, "Ana", "ana@example.com")
	s.register(t, "Bia", "bia@example.com")

	rec := s.do(http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Users []models.User `json:"users"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Users, 2)
	assert.NotEmpty(t, list.Users[0].SessionID)
	assert.NotEqual(t, list.Users[0].SessionID, list.Users[1].SessionID)

	rec = s.do(http.MethodGet, "/users/"+list.Users[1].ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got struct {
		User *models.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.User)
	assert.Equal(t, "bia@example.com", got.User.Email)

	for _, id := range []string{"6f1d2c3b-0000-4000-8000-000000000000", "not-a-uuid"} {
		rec = s.do(http.MethodGet, "/users/"+id, "", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"user":null}`, rec.Body.String())
	}
}

func TestListUsers_Empty(t *testing.T) {
	s := newTestServer(t, serverOptions{})

	rec := s.do(http.MethodGet, "/users", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"users":[]}`, rec.Body.String())
}

func TestSessionRequired(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	orphan, err := s.sessions.Issue("99999999-2222-3333-4444-555555555555")
	require.NoError(t, err)

	cookies := map[string]*http.Cookie{
		"no cookie":       nil,
		"garbage cookie":  {Name: middleware.SessionCookieName, Value: "garbage"},
		"unknown session": {Name: middleware.SessionCookieName, Value: orphan},
	}
	routes := []struct{ method, path, body string }{
		{http.MethodGet, "/users/metrics", ""},
		{http.MethodGet, "/meals", ""},
		{http.MethodPost, "/meals", mealBody("Lunch", true, baseTime)},
		{http.MethodGet, "/meals/6f1d2c3b-0000-4000-8000-000000000000", ""},
		{http.MethodPut, "/meals/6f1d2c3b-0000-4000-8000-000000000000", mealBody("Lunch", true, baseTime)},
		{http.MethodDelete, "/meals/6f1d2c3b-0000-4000-8000-000000000000", ""},
		{http.MethodPost, "/meals/6f1d2c3b-0000-4000-8000-000000000000/photo", ""},
	}

	for name, cookie := range cookies {
		for _, route := range routes {
			t.Run(name+" "+route.method+" "+route.path, func(t *testing.T) {
				rec := s.do(route.method, route.path, route.body, cookie)
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Equal(t, "Unauthorized", errorMessage(t, rec))
			})
		}
	}
}

func TestMetrics_BestStreakFollowsMealTime(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	cookie := s.register(t, "Ana", "ana@example.com")

	// chronological flags: T T F T T T, posted out of order
	flags := []bool{true, true, false, true, true, true}
	for _, i := range []int{3, 0, 5, 2, 1, 4} {
		s.createMeal(t, cookie, fmt.Sprintf("meal-%d", i), flags[i], baseTime.Add(time.Duration(i)*time.Hour))
	}

	assert.Equal(t, models.Metrics{
		TotalMeals:      6,
		BestDietStreak:  3,
		MealsOutOfDiet:  1,
		MealsWithinDiet: 5,
	}, s.metrics(t, cookie))

	meals := s.listMeals(t, cookie)
	require.Len(t, meals, 6)
	for i, m := range meals {
		assert.Equal(t, fmt.Sprintf("meal-%d", i), m.Name)
	}
}

func TestMetrics_FreshUser(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	cookie := s.register(t, "Ana", "ana@example.com")

	rec := s.do(http.MethodGet, "/users/metrics", "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"totalMeals":0,"bestDietStreak":0,"mealsOutOfDiet":0,"mealsWithinDiet":0}`, rec.Body.String())
}

func TestMealLifecycle(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	cookie := s.register(t, "Ana", "ana@example.com")

	id := s.createMeal(t, cookie, "Breakfast", true, baseTime)
	path := "/meals/" + id

	rec := s.do(http.MethodGet, path, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	first := rec.Body.String()
	var got struct {
		Meal models.Meal `json:"meal"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Breakfast", got.Meal.Name)
	require.NotNil(t, got.Meal.Description)
	assert.Equal(t, "test meal", *got.Meal.Description)
	assert.True(t, got.Meal.WithinDiet)
	assert.True(t, baseTime.Equal(got.Meal.MealTime))

	// repeated reads are identical
	assert.Equal(t, first, s.do(http.MethodGet, path, "", cookie).Body.String())

	rec = s.do(http.MethodPut, path, mealBody("Brunch", false, baseTime.Add(2*time.Hour)), cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = s.do(http.MethodGet, path, "", cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Brunch", got.Meal.Name)
	assert.False(t, got.Meal.WithinDiet)
	assert.True(t, baseTime.Add(2*time.Hour).Equal(got.Meal.MealTime))
	assert.Equal(t, models.Metrics{TotalMeals: 1, MealsOutOfDiet: 1}, s.metrics(t, cookie))

	rec = s.do(http.MethodDelete, path, "", cookie)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodGet, path, "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Meal not found", errorMessage(t, rec))

	rec = s.do(http.MethodDelete, path, "", cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, s.listMeals(t, cookie))
	assert.Equal(t, models.Metrics{}, s.metrics(t, cookie))
}

func TestMeal_BadRequests(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	cookie := s.register(t, "Ana", "ana@example.com")
	id := s.createMeal(t, cookie, "Breakfast", true, baseTime)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
	}{
		{"get non-uuid id", http.MethodGet, "/meals/abc", ""},
		{"update non-uuid id", http.MethodPut, "/meals/abc", mealBody("X", true, baseTime)},
		{"delete non-uuid id", http.MethodDelete, "/meals/abc", ""},
		{"create malformed body", http.MethodPost, "/meals", `{"name":`},
		{"create without name", http.MethodPost, "/meals", `{"meal_time":"2024-01-10T08:00:00Z","within_diet":true}`},
		{"create without within_diet", http.MethodPost, "/meals", `{"name":"X","meal_time":"2024-01-10T08:00:00Z"}`},
		{"create with bad meal_time", http.MethodPost, "/meals", `{"name":"X","meal_time":"yesterday","within_diet":true}`},
		{"update with bad meal_time", http.MethodPut, "/meals/" + id, `{"name":"X","meal_time":"yesterday","within_diet":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(tt.method, tt.path, tt.body, cookie)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	assert.Len(t, s.listMeals(t, cookie), 1)
}

func TestMeal_DescriptionIsOptional(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	cookie := s.register(t, "Ana", "ana@example.com")

	rec := s.do(http.MethodPost, "/meals", `{"name":"Snack","meal_time":"2024-01-10T15:00:00-03:00","within_diet":false}`, cookie)
	require.Equal(t, http.StatusCreated, rec.Code)

	meals := s.listMeals(t, cookie)
	require.Len(t, meals, 1)
	assert.Nil(t, meals[0].Description)
	assert.Equal(t, time.Date(2024, 1, 10, 18, 0, 0, 0, time.UTC), meals[0].MealTime.UTC())
}

func TestMeal_UpdateUnknown(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	cookie := s.register(t, "Ana", "ana@example.com")

	rec := s.do(http.MethodPut, "/meals/6f1d2c3b-0000-4000-8000-000000000000", mealBody("X", true, baseTime), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Meal not found", errorMessage(t, rec))
}

func TestMeal_OwnershipIsolation(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	owner := s.register(t, "Ana", "ana@example.com")
	other := s.register(t, "Bia", "bia@example.com")

	id := s.createMeal(t, owner, "Breakfast", true, baseTime)
	path := "/meals/" + id

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, path, "", other).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPut, path, mealBody("Stolen", false, baseTime), other).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, path, "", other).Code)

	assert.Empty(t, s.listMeals(t, other))
	assert.Equal(t, models.Metrics{}, s.metrics(t, other))

	meals := s.listMeals(t, owner)
	require.Len(t, meals, 1)
	assert.Equal(t, "Breakfast", meals[0].Name)
	assert.True(t, meals[0].WithinDiet)
}

func TestPhotoUpload_Disabled(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	cookie := s.register(t, "Ana", "ana@example.com")
	id := s.createMeal(t, cookie, "Breakfast", true, baseTime)

	rec := s.do(http.MethodPost, "/meals/"+id+"/photo", "", cookie)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestPhotoUpload_Presigned(t *testing.T) {
	s := newTestServer(t, serverOptions{aws: config.AWSConfig{
		Region:    "us-east-1",
		S3Bucket:  "diet-photos",
		AccessKey: "AKIDEXAMPLE",
		SecretKey: "secret",
		PublicURL: "https://cdn.example.com/",
	}})
	cookie := s.register(t, "Ana", "ana@example.com")
	id := s.createMeal(t, cookie, "Breakfast", true, baseTime)

	rec := s.do(http.MethodPost, "/meals/"+id+"/photo", `{"content_type":"image/png"}`, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var upload services.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &upload))
	assert.Contains(t, upload.UploadURL, "diet-photos")
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature=")
	assert.True(t, strings.HasPrefix(upload.PhotoURL, "https://cdn.example.com/meals/"))
	assert.True(t, strings.HasSuffix(upload.PhotoURL, ".png"))
	assert.Equal(t, 300, upload.ExpiresIn)

	meals := s.listMeals(t, cookie)
	require.Len(t, meals, 1)
	require.NotNil(t, meals[0].PhotoURL)
	assert.Equal(t, upload.PhotoURL, *meals[0].PhotoURL)

	rec = s.do(http.MethodPost, "/meals/"+id+"/photo", `{"content_type":"image/gif"}`, cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	other := s.register(t, "Bia", "bia@example.com")
	rec = s.do(http.MethodPost, "/meals/"+id+"/photo", "", other)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func TestHealth(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"database reachable", nil, http.StatusOK, `{"status":"ok"}`},
		{"database down", errors.New("connection refused"), http.StatusServiceUnavailable, `{"status":"unavailable"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, serverOptions{health: Health(stubPinger{err: tt.err})})
			rec := s.do(http.MethodGet, "/healthz", "", nil)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestRateLimitedRoutes(t *testing.T) {
	s := newTestServer(t, serverOptions{
		rateLimiter: middleware.NewRateLimiter(0.001, 1),
		health:      Health(stubPinger{}),
	})

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/users", "", nil).Code)

	rec := s.do(http.MethodGet, "/users", "", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// probes bypass the limiter
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/healthz", "", nil).Code)
}

func TestPrometheusEndpoint(t *testing.T) {
	s := newTestServer(t, serverOptions{})
	s.do(http.MethodGet, "/users", "", nil)

	rec := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `daily_diet_http_requests_total{method="GET",route="/users`)
}
