package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/testutils"
)

func serve(e *echo.Echo, mw echo.MiddlewareFunc, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := mw(handler)(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func ok(c echo.Context) error { return c.String(http.StatusOK, "ok") }

func TestMiddleware_Basic(t *testing.T) {
	clock := testutils.NewFakeClock()
	e := echo.New()
	mw := Middleware(&Config{Clock: clock, Rate: 2, Period: time.Minute})

	rec := serve(e, mw, ok)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))

	assert.Equal(t, http.StatusOK, serve(e, mw, ok).Code)

	rec = serve(e, mw, ok)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	clock.Advance(time.Minute)
	assert.Equal(t, http.StatusOK, serve(e, mw, ok).Code)
}

func TestMiddleware_Defaults(t *testing.T) {
	cfg := &Config{}
	Middleware(cfg)

	assert.NotNil(t, cfg.Store)
	assert.NotNil(t, cfg.Clock)
	assert.Equal(t, 10, cfg.Rate)
	assert.Equal(t, time.Minute, cfg.Period)
	assert.Equal(t, config.CountAll, cfg.CountMode)
	assert.NotNil(t, cfg.KeyGenerator)
	assert.NotNil(t, cfg.OnLimitReached)
}

func TestMiddleware_CountFailures(t *testing.T) {
	e := echo.New()
	mw := Middleware(&Config{
		Clock:     testutils.NewFakeClock(),
		Rate:      2,
		CountMode: config.CountFailures,
	})

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(e, mw, ok).Code)
	}

	failing := func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusUnauthorized, "nope")
	}
	assert.Equal(t, http.StatusUnauthorized, serve(e, mw, failing).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(e, mw, failing).Code)

	assert.Equal(t, http.StatusTooManyRequests, serve(e, mw, ok).Code)
}

func TestMiddleware_CountFailures_ReturnedErrorsAreRendered(t *testing.T) {
	e := echo.New()
	mw := Middleware(&Config{
		Clock:     testutils.NewFakeClock(),
		Rate:      1,
		CountMode: config.CountFailures,
	})

	failing := func(c echo.Context) error { return apperr.InvalidToken("bad token") }

	rec := serve(e, mw, failing)
	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, mw, ok).Code)
}

func TestMiddleware_CountSuccess(t *testing.T) {
	e := echo.New()
	mw := Middleware(&Config{
		Clock:     testutils.NewFakeClock(),
		Rate:      1,
		CountMode: config.CountSuccess,
	})

	failing := func(c echo.Context) error { return c.NoContent(http.StatusBadRequest) }
	assert.Equal(t, http.StatusBadRequest, serve(e, mw, failing).Code)
	assert.Equal(t, http.StatusOK, serve(e, mw, ok).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, mw, ok).Code)
}

func TestPathKeyGenerator(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set(echo.HeaderXRealIP, "203.0.113.9")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/auth/login")

	assert.Equal(t, "rate_limit:203.0.113.9:/auth/login", PathKeyGenerator(c))
}

func TestProvideRateLimitStore_UnknownStore(t *testing.T) {
	cfg := testutils.GetTestConfig()
	cfg.RateLimit.Store = "redis"

	_, err := ProvideRateLimitStore(nil, cfg, testutils.NewFakeClock())
	require.Error(t, err)
}
