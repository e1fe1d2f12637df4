package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimitedEcho(t *testing.T, perMinute int) (*echo.Echo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	e := echo.New()
	e.GET("/limited", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RateLimit(client, "test", perMinute))
	return e, mr
}

func hit(e *echo.Echo) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/limited", nil)
	req.RemoteAddr = "192.0.2.10:5000"
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitWindow(t *testing.T) {
	e, mr := newLimitedEcho(t, 2)
	key := "ratelimit:test:192.0.2.10"

	rec := hit(e)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, time.Minute, mr.TTL(key))

	assert.Equal(t, http.StatusNoContent, hit(e).Code)
	rec = hit(e)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusNoContent, hit(e).Code)
}

func TestRateLimitRepairsCounterWithoutTTL(t *testing.T) {
	e, mr := newLimitedEcho(t, 5)
	key := "ratelimit:test:192.0.2.10"

	// a counter that lost its expiry would otherwise block the client forever
	require.NoError(t, mr.Set(key, "9"))
	assert.Zero(t, mr.TTL(key))

	assert.Equal(t, http.StatusTooManyRequests, hit(e).Code)
	assert.Equal(t, time.Minute, mr.TTL(key))

	mr.FastForward(time.Minute)
	assert.Equal(t, http.StatusNoContent, hit(e).Code)
}

func TestRateLimitDisabled(t *testing.T) {
	e := echo.New()
	e.GET("/limited", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, RateLimit(nil, "test", 1))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusNoContent, hit(e).Code)
	}
}
