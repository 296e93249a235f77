package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRateLimitRouter(t *testing.T, limiter *RateLimiter, userID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	if userID != uuid.Nil {
		router.Use(func(c *gin.Context) { c.Set("user_id", userID) })
	}
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return router
}

func doRequest(router *gin.Engine, remoteAddr string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = remoteAddr
	router.ServeHTTP(w, req)
	return w
}

func TestRateLimiterAllowsUnderLimit(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, 3, time.Minute)
	router := newRateLimitRouter(t, limiter, uuid.Nil)

	var w *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w = doRequest(router, "10.0.0.1:1234")
		require.Equal(t, http.StatusOK, w.Code)
	}

	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimiterRejectsOverLimit(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, 2, time.Minute)
	router := newRateLimitRouter(t, limiter, uuid.Nil)

	require.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)

	w := doRequest(router, "10.0.0.1:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))
	assert.Contains(t, w.Body.String(), "Rate limit exceeded")
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, 1, time.Minute)
	router := newRateLimitRouter(t, limiter, uuid.Nil)

	require.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1:1234").Code)

	// A different client keeps its own budget
	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.2:1234").Code)
}

func TestRateLimiterUsesUserIdentity(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	userID := uuid.New()
	limiter := NewRateLimiter(client, 1, time.Minute)
	router := newRateLimitRouter(t, limiter, userID)

	require.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)

	// Same user from a different address still shares one budget
	w := doRequest(router, "10.0.0.9:1234")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)

	keys := srv.Keys()
	assert.Contains(t, keys, "ratelimit:user:"+userID.String())
}

func TestRateLimiterFailOpen(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, 1, time.Minute)
	router := newRateLimitRouter(t, limiter, uuid.Nil)

	srv.Close()

	// Redis being down must not take the API down with it
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
	}
}

func TestRateLimiterWindowReset(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })

	limiter := NewRateLimiter(client, 1, time.Minute)
	router := newRateLimitRouter(t, limiter, uuid.Nil)

	require.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
	require.Equal(t, http.StatusTooManyRequests, doRequest(router, "10.0.0.1:1234").Code)

	// Expire the window keys the way Redis would after the TTL elapses
	srv.FastForward(2 * time.Minute)

	assert.Equal(t, http.StatusOK, doRequest(router, "10.0.0.1:1234").Code)
}
