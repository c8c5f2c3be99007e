package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute, 2)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "burst exhausted")
	assert.True(t, l.Allow("5.6.7.8"), "keys are independent")

	now = now.Add(30 * time.Second)
	assert.True(t, l.Allow("1.2.3.4"), "one token refills every 30s")
}

func TestIPRateLimiter_ExpiresIdleVisitors(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute, 1)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	l.Allow("1.2.3.4")
	now = now.Add(11 * time.Minute)
	l.Allow("5.6.7.8")
	_, ok := l.visitors["1.2.3.4"]
	assert.False(t, ok)
}

func TestIPRateLimiter_SweepsOncePerInterval(t *testing.T) {
	l := NewIPRateLimiter(1, time.Minute, 1)
	now := time.Unix(1000, 0)
	l.now = func() time.Time { return now }

	l.Allow("1.2.3.4")
	now = now.Add(11 * time.Minute)
	l.Allow("5.6.7.8")
	require.Len(t, l.visitors, 1)

	l.Allow("9.9.9.9")
	now = now.Add(11 * time.Minute)
	for i := 0; i < 100; i++ {
		now = now.Add(100 * time.Millisecond)
		l.Allow("10.0.0.1")
	}
	assert.Len(t, l.visitors, 1, "expired visitors dropped by the first call after the interval")
	assert.Equal(t, time.Unix(1000, 0).Add(22*time.Minute+100*time.Millisecond), l.lastSweep)
}

func TestRateLimit_Returns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/universal/:token", RateLimit(NewIPRateLimiter(1, time.Minute, 1)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	call := func() *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/universal/abc", nil))
		return w
	}
	assert.Equal(t, http.StatusOK, call().Code)
	w := call()
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}
