package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/civichero/civichero-api/api"
	"github.com/civichero/civichero-api/models"
)

// fakeReportCounter mimics the redis INCR/EXPIRE/TTL sequence in memory.
type fakeReportCounter struct {
	count   int64
	incrErr error
	ttl     time.Duration
	lastKey string
	expires map[string]time.Duration
}

func (f *fakeReportCounter) Incr(ctx context.Context, key string) *redis.IntCmd {
	f.lastKey = key
	f.count++
	return redis.NewIntResult(f.count, f.incrErr)
}

func (f *fakeReportCounter) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	if f.expires == nil {
		f.expires = map[string]time.Duration{}
	}
	f.expires[key] = expiration
	return redis.NewBoolResult(true, nil)
}

func (f *fakeReportCounter) TTL(ctx context.Context, key string) *redis.DurationCmd {
	return redis.NewDurationResult(f.ttl, nil)
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func TestAuthMiddlewarePutsCallerOnContext(t *testing.T) {
	userID := primitive.NewObjectID()
	auth := api.Auth{Secret: "secret"}

	var got api.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, ok := api.CallerFromContext(r.Context())
		assert.True(t, ok)
		got = caller
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest("GET", "/api/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{
		"sub":  userID.Hex(),
		"role": models.RoleUser,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}))

	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	assert.Equal(t, userID, got.ID)
	assert.Equal(t, models.RoleUser, got.Role)
}

func TestAuthMiddlewareDefaultsMissingRoleToUser(t *testing.T) {
	auth := api.Auth{Secret: "secret"}

	var got api.Caller
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = api.CallerFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest("GET", "/api/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{
		"sub": primitive.NewObjectID().Hex(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}))

	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	assert.Equal(t, models.RoleUser, got.Role)
}

func TestAuthMiddlewareMissingHeaderReturns401(t *testing.T) {
	auth := api.Auth{Secret: "secret"}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})

	req, err := http.NewRequest("GET", "/api/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}

	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
	assert.JSONEq(t, `{"error": "unauthorized"}`, rr.Body.String())
}

func TestAuthMiddlewareWrongSecretReturns401(t *testing.T) {
	auth := api.Auth{Secret: "secret"}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})

	req, err := http.NewRequest("GET", "/api/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, "other-secret", jwt.MapClaims{
		"sub": primitive.NewObjectID().Hex(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}))

	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
}

func TestAuthMiddlewareExpiredTokenReturns401(t *testing.T) {
	auth := api.Auth{Secret: "secret"}
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})

	req, err := http.NewRequest("GET", "/api/auth/me", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Authorization", "Bearer "+signToken(t, "secret", jwt.MapClaims{
		"sub": primitive.NewObjectID().Hex(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	}))

	rr := httptest.NewRecorder()
	auth.Middleware(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusUnauthorized {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusUnauthorized)
	}
}

func TestAdminOnlyRejectsUserRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})

	req, err := http.NewRequest("GET", "/api/admin/stats", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(api.ContextWithCaller(req.Context(), api.Caller{
		ID:   primitive.NewObjectID(),
		Role: models.RoleUser,
	}))

	rr := httptest.NewRecorder()
	api.AdminOnly(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusForbidden {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusForbidden)
	}
	assert.JSONEq(t, `{"error": "admin access required"}`, rr.Body.String())
}

func TestAdminOnlyPassesAdminRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest("GET", "/api/admin/stats", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(api.ContextWithCaller(req.Context(), api.Caller{
		ID:   primitive.NewObjectID(),
		Role: models.RoleAdmin,
	}))

	rr := httptest.NewRecorder()
	api.AdminOnly(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
}

func TestRateLimiterBlocksPastDailyLimit(t *testing.T) {
	userID := primitive.NewObjectID()
	counter := &fakeReportCounter{count: 10, ttl: 6 * time.Hour}
	limit := api.RateLimiter(counter, 10)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	})

	req, err := http.NewRequest("POST", "/api/issues", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(api.ContextWithCaller(req.Context(), api.Caller{
		ID:   userID,
		Role: models.RoleUser,
	}))

	rr := httptest.NewRecorder()
	limit(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusTooManyRequests {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusTooManyRequests)
	}
	assert.Equal(t, "report-limit:"+userID.Hex(), counter.lastKey)
	assert.JSONEq(t, `{"error": "daily report limit reached", "retry_after": 21600}`, rr.Body.String())
}

func TestRateLimiterSetsWindowExpiryOnFirstReport(t *testing.T) {
	userID := primitive.NewObjectID()
	counter := &fakeReportCounter{}
	limit := api.RateLimiter(counter, 10)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest("POST", "/api/issues", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(api.ContextWithCaller(req.Context(), api.Caller{
		ID:   userID,
		Role: models.RoleUser,
	}))

	rr := httptest.NewRecorder()
	limit(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
	assert.Equal(t, 24*time.Hour, counter.expires["report-limit:"+userID.Hex()])

	// second report in the window must not reset the expiry
	rr = httptest.NewRecorder()
	limit(next).ServeHTTP(rr, req)
	assert.Len(t, counter.expires, 1)
}

func TestRateLimiterAllowsWhenRedisUnavailable(t *testing.T) {
	counter := &fakeReportCounter{incrErr: errors.New("connection refused")}
	limit := api.RateLimiter(counter, 10)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest("POST", "/api/issues", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(api.ContextWithCaller(req.Context(), api.Caller{
		ID:   primitive.NewObjectID(),
		Role: models.RoleUser,
	}))

	rr := httptest.NewRecorder()
	limit(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
}

func TestRateLimiterDisabledWithoutRedis(t *testing.T) {
	limit := api.RateLimiter(nil, 10)
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req, err := http.NewRequest("POST", "/api/issues", nil)
	if err != nil {
		t.Fatal(err)
	}
	req = req.WithContext(api.ContextWithCaller(req.Context(), api.Caller{
		ID:   primitive.NewObjectID(),
		Role: models.RoleUser,
	}))

	rr := httptest.NewRecorder()
	limit(next).ServeHTTP(rr, req)

	if status := rr.Code; status != http.StatusOK {
		t.Errorf("handler returned wrong status code: got %v want %v", status, http.StatusOK)
	}
}
