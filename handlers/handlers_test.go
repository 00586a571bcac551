package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/app"
	"github.com/tech-arch1tect/seminary/handlers"
	"github.com/tech-arch1tect/seminary/services/content"
	"github.com/tech-arch1tect/seminary/services/mail"
	"github.com/tech-arch1tect/seminary/session"
	"github.com/tech-arch1tect/seminary/testutils"
)

const adminEmail = "admin@seminary.test"

type suite struct {
	t     *testing.T
	app   *app.App
	clock *clockwork.FakeClock
}

func newSuite(t *testing.T) *suite {
	t.Helper()

	cfg := testutils.GetTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = "0"
	cfg.Storage.LocalDir = t.TempDir()
	cfg.Retention.Enabled = false
	cfg.Auth.AdminEmail = adminEmail
	cfg.Auth.AdminPassword = testutils.TestPasswords.Valid

	mailer := &testutils.MockMailer{}
	mailer.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	clock := testutils.NewFakeClock()
	a, err := app.NewApp().
		WithConfig(cfg).
		WithClock(clock).
		WithFxOptions(fx.Decorate(func(mail.Mailer) mail.Mailer { return mailer })).
		Build()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, a.Start(ctx))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = a.Stop(ctx)
	})

	return &suite{t: t, app: a, clock: clock}
}

func (s *suite) request(method, path, bearer string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.app.Echo().ServeHTTP(rec, req)
	return rec
}

func (s *suite) login(email, password string) string {
	s.t.Helper()
	rec := s.request(http.MethodPost, "/auth/login", "", handlers.LoginRequest{Email: email, Password: password})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.AccessToken
}

func (s *suite) admin() string {
	return s.login(adminEmail, testutils.TestPasswords.Valid)
}

// enroll creates a student and returns the student id and temporary password.
func (s *suite) enroll(bearer, email string) (uint, string) {
	s.t.Helper()
	rec := s.request(http.MethodPost, "/students", bearer, handlers.EnrollRequest{Email: email, Program: "MDiv", CohortYear: 2025})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		Student     content.Student `json:"student"`
		Credentials struct {
			TemporaryPassword string `json:"temporaryPassword"`
		} `json:"credentials"`
	}
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out.Student.ID, out.Credentials.TemporaryPassword
}

func decodeInto[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestStudents(t *testing.T) {
	s := newSuite(t)
	admin := s.admin()

	id, password := s.enroll(admin, "ruth@seminary.test")
	student := s.login("ruth@seminary.test", password)

	rec := s.request(http.MethodGet, "/students/"+strconv.Itoa(int(id)), admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeInto[content.Student](t, rec)
	assert.Equal(t, content.StatusEnrolled, got.Status)
	assert.Equal(t, "MDiv", got.Program)

	rec = s.request(http.MethodGet, "/students", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeInto[[]content.Student](t, rec), 1)

	rec = s.request(http.MethodGet, "/students", student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPost, "/students", student, handlers.EnrollRequest{Email: "x@seminary.test"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodGet, "/students/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id"`)

	rec = s.request(http.MethodGet, "/students/999", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPosts(t *testing.T) {
	s := newSuite(t)
	admin := s.admin()
	_, password := s.enroll(admin, "silas@seminary.test")
	student := s.login("silas@seminary.test", password)

	rec := s.request(http.MethodPost, "/posts", student, handlers.CreatePostRequest{Category: content.CategoryTestimony, Title: "Grace", Tags: []string{"praise"}})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	testimony := decodeInto[content.Post](t, rec)
	assert.Nil(t, testimony.ExpiresAt)
	assert.Equal(t, []string{"praise"}, testimony.Tags)

	rec = s.request(http.MethodPost, "/posts", student, handlers.CreatePostRequest{Category: content.CategoryAnnouncement, Title: "Closed Monday"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.request(http.MethodPost, "/posts", student, handlers.CreatePostRequest{Category: "gossip", Title: "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.request(http.MethodPost, "/posts", student, handlers.CreatePostRequest{Category: content.CategoryTestimony, Title: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "title")

	rec = s.request(http.MethodPost, "/posts", admin, handlers.CreatePostRequest{Category: content.CategorySundayService, Title: "Order of service"})
	require.Equal(t, http.StatusCreated, rec.Code)
	service := decodeInto[content.Post](t, rec)
	require.NotNil(t, service.ExpiresAt)
	assert.Equal(t, testutils.ReferenceTime.Add(7*24*time.Hour), service.ExpiresAt.UTC())

	rec = s.request(http.MethodDelete, "/posts/"+strconv.Itoa(int(service.ID)), student, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	s.clock.Advance(7*24*time.Hour + time.Second)
	admin = s.admin()

	rec = s.request(http.MethodGet, "/posts", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decodeInto[[]content.Post](t, rec)
	require.Len(t, posts, 1)
	assert.Equal(t, testimony.ID, posts[0].ID)

	rec = s.request(http.MethodGet, "/posts/"+strconv.Itoa(int(service.ID)), admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodDelete, "/posts/"+strconv.Itoa(int(testimony.ID)), admin, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHomiletics(t *testing.T) {
	s := newSuite(t)
	admin := s.admin()
	_, pw1 := s.enroll(admin, "lydia@seminary.test")
	_, pw2 := s.enroll(admin, "apollos@seminary.test")
	lydia := s.login("lydia@seminary.test", pw1)
	apollos := s.login("apollos@seminary.test", pw2)

	rec := s.request(http.MethodPost, "/homiletics", lydia, handlers.SubmitHomileticsRequest{Title: "The prodigal", Scripture: "Luke 15"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	entry := decodeInto[content.HomileticsEntry](t, rec)
	require.NotNil(t, entry.ExpiresAt)
	assert.Equal(t, time.Date(2025, time.March, 16, 23, 59, 59, 0, time.UTC), entry.ExpiresAt.UTC())

	past := testutils.ReferenceTime.Add(-time.Hour)
	rec = s.request(http.MethodPost, "/homiletics", lydia, handlers.SubmitHomileticsRequest{Title: "Late", ExpiresAt: &past})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "expiresAt")

	path := "/homiletics/" + strconv.Itoa(int(entry.ID))
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, path, lydia, nil).Code)
	assert.Equal(t, http.StatusOK, s.request(http.MethodGet, path, admin, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, path, apollos, nil).Code)

	rec = s.request(http.MethodGet, "/homiletics", apollos, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeInto[[]content.HomileticsEntry](t, rec))

	assert.Equal(t, http.StatusForbidden, s.request(http.MethodDelete, path, apollos, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.request(http.MethodDelete, path, lydia, nil).Code)
}

func TestSessions(t *testing.T) {
	s := newSuite(t)
	first := s.admin()
	s.admin()

	rec := s.request(http.MethodGet, "/auth/sessions", first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sessions := decodeInto[[]session.UserSession](t, rec)
	require.Len(t, sessions, 2)

	rec = s.request(http.MethodDelete, "/auth/sessions/"+strconv.Itoa(int(sessions[0].ID)), first, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.request(http.MethodGet, "/auth/sessions", first, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeInto[[]session.UserSession](t, rec), 1)

	rec = s.request(http.MethodDelete, "/auth/sessions/999", first, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPasswordReset(t *testing.T) {
	s := newSuite(t)

	rec := s.request(http.MethodPost, "/auth/password-reset", "", handlers.PasswordResetRequest{Email: "nobody@seminary.test"})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = s.request(http.MethodPost, "/auth/password-reset", "", handlers.PasswordResetRequest{Email: adminEmail})
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = s.request(http.MethodPost, "/auth/password-reset/confirm", "", handlers.PasswordResetConfirmRequest{Token: "bogus", Password: "NewPassword123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMediaListFilter(t *testing.T) {
	s := newSuite(t)
	admin := s.admin()

	rec := s.request(http.MethodGet, "/media?kind=video", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeInto[[]content.MediaItem](t, rec))

	rec = s.request(http.MethodGet, "/media/1", admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.request(http.MethodGet, "/media", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
