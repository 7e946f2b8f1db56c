package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(rl *RateLimiter) *gin.Engine {
	r := gin.New()
	r.GET("/ping", rl.RateLimit(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

// TestRateLimiterAllowsWithinLimit verifies requests under the per-minute
// cap succeed.
func TestRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewRateLimiter(5)
	r := newTestRouter(rl)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code, "request %d should succeed", i)
	}
}

// TestRateLimiterRejectsOverLimit verifies the bucket empties after
// perMinute requests and the next one is rejected with 429 and the
// error envelope shape.
func TestRateLimiterRejectsOverLimit(t *testing.T) {
	rl := NewRateLimiter(2)
	r := newTestRouter(rl)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		r.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
}

// TestRateLimiterBucketsPerClientIP verifies one client's exhausted bucket
// does not affect a different client IP.
func TestRateLimiterBucketsPerClientIP(t *testing.T) {
	rl := NewRateLimiter(1)
	r := newTestRouter(rl)

	w1 := httptest.NewRecorder()
	req1 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req1.RemoteAddr = "10.0.0.1:5555"
	r.ServeHTTP(w1, req1)
	require.Equal(t, http.StatusOK, w1.Code)

	w1b := httptest.NewRecorder()
	r.ServeHTTP(w1b, req1)
	assert.Equal(t, http.StatusTooManyRequests, w1b.Code)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req2.RemoteAddr = "10.0.0.2:5555"
	r.ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusOK, w2.Code)
}
