package authn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/jwt"
	"github.com/tech-arch1tect/seminary/session"
	"github.com/tech-arch1tect/seminary/testutils"
)

type fixture struct {
	db       *gorm.DB
	users    *auth.Service
	tokens   *jwt.Service
	sessions *session.Service
	manager  *session.Manager
	authn    *Authenticator
}

func setup(t *testing.T) fixture {
	t.Helper()

	cfg := testutils.GetTestConfig()
	clock := testutils.NewFakeClock()
	db := testutils.SetupTestDB(t, clock, &auth.User{}, &session.UserSession{})

	users := auth.NewService(cfg, db, clock, nil)
	tokens := jwt.NewService(cfg, clock, nil, nil)
	manager := session.NewManager(cfg.Session, session.NewMemoryStore())
	sessions := session.NewService(db, manager, clock, nil)

	return fixture{
		db:       db,
		users:    users,
		tokens:   tokens,
		sessions: sessions,
		manager:  manager,
		authn:    NewAuthenticator(tokens, users, sessions, nil),
	}
}

func (f fixture) createUser(t *testing.T, email string, role auth.Role) *auth.User {
	t.Helper()
	user, err := f.users.CreateUser(context.Background(), auth.NewUser{
		Email:    email,
		Role:     role,
		Password: testutils.TestPasswords.Valid,
	})
	require.NoError(t, err)
	return user
}

func run(mw echo.MiddlewareFunc, req *http.Request) (echo.Context, error) {
	e := echo.New()
	c := e.NewContext(req, httptest.NewRecorder())
	err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
	return c, err
}

func TestMiddleware_Anonymous(t *testing.T) {
	f := setup(t)

	c, err := run(f.authn.Middleware(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	assert.Nil(t, CurrentUser(c))
	assert.Nil(t, c.Get(UserIDKey))
}

func TestMiddleware_BearerToken(t *testing.T) {
	f := setup(t)
	user := f.createUser(t, "mentor@example.org", auth.RoleMentor)

	token, err := f.tokens.GenerateToken(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	c, err := run(f.authn.Middleware(), req)
	require.NoError(t, err)
	require.NotNil(t, CurrentUser(c))
	assert.Equal(t, user.ID, CurrentUser(c).ID)
	assert.Equal(t, user.ID, c.Get(UserIDKey))
	require.NotNil(t, GetClaims(c))
	assert.Equal(t, auth.RoleMentor, GetClaims(c).Role)
}

func TestMiddleware_BadHeaders(t *testing.T) {
	f := setup(t)

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{name: "not bearer", header: "Basic abc", want: ErrInvalidHeader},
		{name: "empty bearer", header: "Bearer ", want: ErrInvalidHeader},
		{name: "garbage token", header: "Bearer not-a-jwt", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(echo.HeaderAuthorization, tt.header)

			_, err := run(f.authn.Middleware(), req)
			require.Error(t, err)
			assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))
			if tt.want != nil {
				assert.ErrorIs(t, err, tt.want)
			}
		})
	}
}

func TestMiddleware_DisabledUser(t *testing.T) {
	f := setup(t)
	user := f.createUser(t, "gone@example.org", auth.RoleStudent)
	token, err := f.tokens.GenerateToken(user)
	require.NoError(t, err)

	require.NoError(t, f.db.Model(user).Update("active", false).Error)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)

	_, err = run(f.authn.Middleware(), req)
	assert.ErrorIs(t, err, auth.ErrAccountDisabled)
}

func TestMiddleware_Session(t *testing.T) {
	f := setup(t)
	user := f.createUser(t, "staff@example.org", auth.RoleStaff)

	e := echo.New()
	e.Use(session.Middleware(f.manager, f.sessions))
	e.Use(f.authn.Middleware())
	e.POST("/login", func(c echo.Context) error {
		if err := session.Login(c, user.ID); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	})
	e.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentUser(c).Email)
	}, RequireAuth())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staff@example.org", rec.Body.String())

	sessions, err := f.sessions.List(context.Background(), user.ID, "")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	require.NoError(t, f.sessions.Revoke(context.Background(), user.ID, sessions[0].ID))

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestRequireRole(t *testing.T) {
	f := setup(t)
	student := f.createUser(t, "student@example.org", auth.RoleStudent)
	admin := f.createUser(t, "admin@example.org", auth.RoleAdmin)

	mw := RequireRole(auth.RoleAdmin, auth.RoleStaff)
	e := echo.New()

	t.Run("anonymous", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		err := mw(func(echo.Context) error { return nil })(c)
		assert.ErrorIs(t, err, ErrAuthRequired)
	})

	t.Run("wrong role", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(UserKey, student)
		err := mw(func(echo.Context) error { return nil })(c)
		assert.ErrorIs(t, err, apperr.ErrForbidden)
	})

	t.Run("allowed", func(t *testing.T) {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		c.Set(UserKey, admin)
		called := false
		err := mw(func(echo.Context) error { called = true; return nil })(c)
		require.NoError(t, err)
		assert.True(t, called)
	})
}
