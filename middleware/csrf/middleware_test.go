package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-arch1tect/seminary/config"
)

const sessionCookie = "seminary_session"

func testConfig() *config.CSRFConfig {
	return &config.CSRFConfig{
		Enabled:        true,
		TokenLength:    32,
		TokenLookup:    "header:X-CSRF-Token",
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieMaxAge:   86400,
		CookieSameSite: "strict",
	}
}

func newEcho(cfg *config.CSRFConfig) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg, sessionCookie))
	e.GET("/token", func(c echo.Context) error {
		return c.String(http.StatusOK, GetToken(c))
	})
	e.POST("/change", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})
	return e
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func withSession(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "abc"})
	return req
}

func TestMiddleware_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	e := newEcho(cfg)

	rec := serve(e, withSession(httptest.NewRequest(http.MethodPost, "/change", nil)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_SkipsWithoutSessionCookie(t *testing.T) {
	e := newEcho(testConfig())

	rec := serve(e, httptest.NewRequest(http.MethodPost, "/change", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_SkipsBearerRequests(t *testing.T) {
	e := newEcho(testConfig())

	req := withSession(httptest.NewRequest(http.MethodPost, "/change", nil))
	req.Header.Set(echo.HeaderAuthorization, "Bearer abc")
	rec := serve(e, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestMiddleware_RejectsSessionRequestWithoutToken(t *testing.T) {
	e := newEcho(testConfig())

	rec := serve(e, withSession(httptest.NewRequest(http.MethodPost, "/change", nil)))

	assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest)
	assert.Less(t, rec.Code, http.StatusInternalServerError)
}

func TestMiddleware_AcceptsMatchingToken(t *testing.T) {
	e := newEcho(testConfig())

	rec := serve(e, withSession(httptest.NewRequest(http.MethodGet, "/token", nil)))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Body.String()
	require.Len(t, token, 32)

	var csrfCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "_csrf" {
			csrfCookie = c
		}
	}
	require.NotNil(t, csrfCookie)
	assert.True(t, csrfCookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, csrfCookie.SameSite)

	req := withSession(httptest.NewRequest(http.MethodPost, "/change", nil))
	req.AddCookie(csrfCookie)
	req.Header.Set("X-CSRF-Token", token)
	rec = serve(e, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = withSession(httptest.NewRequest(http.MethodPost, "/change", nil))
	req.AddCookie(csrfCookie)
	req.Header.Set("X-CSRF-Token", "wrong")
	rec = serve(e, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSameSite(t *testing.T) {
	assert.Equal(t, http.SameSiteStrictMode, sameSite("strict"))
	assert.Equal(t, http.SameSiteLaxMode, sameSite("lax"))
	assert.Equal(t, http.SameSiteNoneMode, sameSite("none"))
	assert.Equal(t, http.SameSiteDefaultMode, sameSite("bogus"))
}
