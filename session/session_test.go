package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/testutils"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

type fixture struct {
	e       *echo.Echo
	manager *Manager
	service *Service
	db      *gorm.DB
	clock   *clockwork.FakeClock
}

func setup(t *testing.T) fixture {
	t.Helper()

	cfg := testutils.GetTestConfig()
	clock := testutils.NewFakeClock()
	db := testutils.SetupTestDB(t, clock, &UserSession{})
	manager := NewManager(cfg.Session, NewMemoryStore())
	service := NewService(db, manager, clock, nil)

	e := echo.New()
	e.Use(Middleware(manager, service))
	e.POST("/login/:id", func(c echo.Context) error {
		id, _ := strconv.Atoi(c.Param("id"))
		if err := Login(c, uint(id)); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/whoami", func(c echo.Context) error {
		return c.String(http.StatusOK, strconv.Itoa(int(UserID(c))))
	})
	e.GET("/managed", func(c echo.Context) error {
		if GetManagerFromContext(c.Request().Context()) != manager || GetService(c) != service {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.POST("/logout", func(c echo.Context) error {
		if err := Logout(c); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})

	return fixture{e: e, manager: manager, service: service, db: db, clock: clock}
}

func (f fixture) do(method, path string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("User-Agent", chromeUA)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	f.e.ServeHTTP(rec, req)
	return rec
}

func TestLoginLogout(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/whoami", nil)
	assert.Equal(t, "0", rec.Body.String())

	rec = f.do(http.MethodPost, "/login/42", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	assert.Equal(t, "seminary_session", cookies[0].Name)

	rec = f.do(http.MethodGet, "/whoami", cookies)
	assert.Equal(t, "42", rec.Body.String())

	sessions, err := f.service.List(context.Background(), 42, cookies[0].Value)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.True(t, sessions[0].Current)
	assert.Equal(t, "Desktop", sessions[0].DeviceType)
	assert.Contains(t, sessions[0].Browser, "Chrome")
	assert.Equal(t, testutils.ReferenceTime.Add(24*time.Hour), sessions[0].ExpiresAt.UTC())

	rec = f.do(http.MethodPost, "/logout", cookies)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/whoami", cookies)
	assert.Equal(t, "0", rec.Body.String())

	sessions, err = f.service.List(context.Background(), 42, "")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLogout_RemoveFailureIsLogged(t *testing.T) {
	f := setup(t)
	core, logs := observer.New(zapcore.WarnLevel)
	f.service.logger = logging.FromZap(zap.New(core))

	rec := f.do(http.MethodPost, "/login/42", nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()

	require.NoError(t, f.db.Migrator().DropTable(&UserSession{}))

	rec = f.do(http.MethodPost, "/logout", cookies)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodGet, "/whoami", cookies)
	assert.Equal(t, "0", rec.Body.String())
	assert.Equal(t, 1, logs.FilterMessage("failed to remove session record").Len())
}

func TestMiddleware_ExposesManagerAndService(t *testing.T) {
	f := setup(t)

	rec := f.do(http.MethodGet, "/managed", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Nil(t, GetManagerFromContext(context.Background()))
}

func TestLogin_RenewsToken(t *testing.T) {
	f := setup(t)

	first := f.do(http.MethodPost, "/login/1", nil).Result().Cookies()
	second := f.do(http.MethodPost, "/login/1", first).Result().Cookies()
	require.NotEmpty(t, first)
	require.NotEmpty(t, second)
	assert.NotEqual(t, first[0].Value, second[0].Value)

	rec := f.do(http.MethodGet, "/whoami", first)
	assert.Equal(t, "0", rec.Body.String())
}

func TestService_TouchAndRevoke(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	cookies := f.do(http.MethodPost, "/login/7", nil).Result().Cookies()
	require.NotEmpty(t, cookies)
	token := cookies[0].Value

	f.clock.Advance(time.Hour)
	ok, err := f.service.Touch(ctx, token)
	require.NoError(t, err)
	assert.True(t, ok)

	sessions, err := f.service.List(ctx, 7, token)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, testutils.ReferenceTime.Add(time.Hour), sessions[0].LastUsed.UTC())

	assert.ErrorIs(t, f.service.Revoke(ctx, 8, sessions[0].ID), ErrSessionNotFound)
	require.NoError(t, f.service.Revoke(ctx, 7, sessions[0].ID))

	ok, err = f.service.Touch(ctx, token)
	require.NoError(t, err)
	assert.False(t, ok)

	rec := f.do(http.MethodGet, "/whoami", cookies)
	assert.Equal(t, "0", rec.Body.String())
}

func TestService_TouchExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	require.NoError(t, f.service.Track(ctx, 1, "tok", "10.0.0.1", ""))
	f.clock.Advance(25 * time.Hour)

	ok, err := f.service.Touch(ctx, "tok")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseDevice(t *testing.T) {
	assert.Equal(t, DeviceInfo{Browser: "Unknown Browser", OS: "Unknown OS", DeviceType: "Unknown"}, ParseDevice(""))

	info := ParseDevice("Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1")
	assert.Equal(t, "Mobile", info.DeviceType)
	assert.Contains(t, info.OS, "iOS")

	info = ParseDevice(chromeUA)
	assert.Equal(t, "Desktop", info.DeviceType)
	assert.Contains(t, info.OS, "Windows")
}

func TestProvideSessionManager(t *testing.T) {
	cfg := testutils.GetTestConfig()
	db := testutils.SetupTestDB(t, clockwork.NewRealClock())

	cfg.Session.Enabled = false
	m, err := ProvideSessionManager(cfg, db)
	require.NoError(t, err)
	assert.Nil(t, m)

	cfg.Session.Enabled = true
	cfg.Session.SameSite = "strict"
	m, err = ProvideSessionManager(cfg, db)
	require.NoError(t, err)
	assert.Equal(t, http.SameSiteStrictMode, m.Cookie.SameSite)
	assert.Equal(t, 24*time.Hour, m.Lifetime)

	cfg.Session.Store = "database"
	m, err = ProvideSessionManager(cfg, db)
	require.NoError(t, err)
	assert.NotNil(t, m)

	cfg.Session.Store = "redis"
	_, err = ProvideSessionManager(cfg, db)
	assert.Error(t, err)
}
