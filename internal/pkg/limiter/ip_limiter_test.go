package limiter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestIPRateLimiter_PerIPBuckets(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Every(time.Hour), 2)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"), "third event exceeds burst")

	assert.True(t, l.Allow("10.0.0.2"), "other IPs have their own bucket")
	assert.Equal(t, 2, l.Len())
	assert.Same(t, l.GetLimiter("10.0.0.1"), l.GetLimiter("10.0.0.1"))
}

func TestIPRateLimiter_CollectIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Limit(10), 1)
	require.True(t, l.Allow("10.0.0.1"))

	removed, remaining := l.collectIdle(time.Now())
	assert.Equal(t, 0, removed, "drained bucket is still active")
	assert.Equal(t, 1, remaining)

	removed, remaining = l.collectIdle(time.Now().Add(time.Minute))
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, remaining)
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	l := NewIPRateLimiter(ctx, rate.Every(time.Hour), 1)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.RemoteAddr = "192.0.2.10:4000"

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":1007`)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = "192.0.2.1"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown_ip", ClientIP(req))
}
