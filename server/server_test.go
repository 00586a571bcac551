package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/internal/apperr"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Host: "localhost",
			Port: "8080",
		},
	}
}

func serve(s *Server, method, path string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNew(t *testing.T) {
	cfg := testConfig()
	s := New(cfg, nil)

	require.NotNil(t, s)
	assert.Same(t, cfg, s.cfg)
	assert.NotNil(t, s.Echo())
	assert.Equal(t, "localhost:8080", s.Addr())
	assert.NotNil(t, s.Echo().Validator)
}

func TestServer_Routes(t *testing.T) {
	s := New(testConfig(), nil)
	handler := func(c echo.Context) error { return c.String(http.StatusOK, c.Request().Method) }

	s.Get("/r", handler)
	s.Post("/r", handler)
	s.Put("/r", handler)
	s.Delete("/r", handler)
	g := s.Group("/api")
	g.GET("/r", handler)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		rec := serve(s, method, "/r", "")
		assert.Equal(t, http.StatusOK, rec.Code, method)
		assert.Equal(t, method, rec.Body.String())
	}
	assert.Equal(t, http.StatusOK, serve(s, http.MethodGet, "/api/r", "").Code)
}

func TestErrorHandler_Kinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"not found", apperr.NotFound("post not found"), http.StatusNotFound, "post not found"},
		{"forbidden", apperr.ErrForbidden, http.StatusForbidden, "permission denied"},
		{"unauthorized", apperr.Unauthorized("invalid credentials"), http.StatusUnauthorized, "invalid credentials"},
		{"invalid token", apperr.InvalidToken("invalid or expired token"), http.StatusUnauthorized, "invalid or expired token"},
		{"conflict", apperr.Conflict("email is already registered"), http.StatusConflict, "email is already registered"},
		{"wrapped", errors.Join(errors.New("ctx"), apperr.NotFound("gone")), http.StatusNotFound, "gone"},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "slow down"},
		{"unknown", errors.New("db exploded"), http.StatusInternalServerError, "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(testConfig(), nil)
			s.Get("/fail", func(echo.Context) error { return tt.err })

			rec := serve(s, http.MethodGet, "/fail", "")
			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.msg, decode(t, rec)["error"])
		})
	}
}

func TestErrorHandler_ValidationError(t *testing.T) {
	s := New(testConfig(), nil)
	s.Get("/fields", func(echo.Context) error {
		return apperr.NewValidationError(nil,
			apperr.FieldError{Field: "title", Error: "title is required"},
			apperr.FieldError{Field: "category", Error: "unknown category"},
		)
	})
	s.Get("/plain", func(echo.Context) error {
		return apperr.NewValidationError(errors.New("malformed body"))
	})

	rec := serve(s, http.MethodGet, "/fields", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["fields"].(map[string]any)
	assert.Equal(t, "title is required", fields["title"])
	assert.Equal(t, "unknown category", fields["category"])

	rec = serve(s, http.MethodGet, "/plain", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed body", decode(t, rec)["error"])
}

type createRequest struct {
	Email string `json:"email" validate:"required,email"`
	Title string `json:"title" validate:"notblank"`
	Role  string `json:"role" validate:"omitempty,role"`
}

func TestValidator(t *testing.T) {
	s := New(testConfig(), nil)
	s.Post("/create", func(c echo.Context) error {
		var req createRequest
		if err := c.Bind(&req); err != nil {
			return err
		}
		if err := c.Validate(&req); err != nil {
			return err
		}
		return c.NoContent(http.StatusCreated)
	})

	rec := serve(s, http.MethodPost, "/create", `{"email":"a@b.com","title":"Hello","role":"mentor"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = serve(s, http.MethodPost, "/create", `{"email":"nope","title":"   ","role":"bishop"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	fields := decode(t, rec)["fields"].(map[string]any)
	assert.Equal(t, "email must be a valid email address", fields["email"])
	assert.Equal(t, "this field cannot be blank", fields["title"])
	assert.Equal(t, "unknown role", fields["role"])
}

func TestErrorHandler_Head(t *testing.T) {
	s := New(testConfig(), nil)
	s.echo.HEAD("/missing", func(echo.Context) error { return apperr.ErrNotFound })

	rec := serve(s, http.MethodHead, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestTrustedProxies(t *testing.T) {
	cfg := testConfig()
	cfg.Server.TrustedProxies = []string{"10.0.0.0/8", "192.168.1.1", "bogus"}

	ranges := trustedRanges(cfg.Server.TrustedProxies, nil)
	require.Len(t, ranges, 2)

	s := New(cfg, nil)
	s.Get("/ip", func(c echo.Context) error { return c.String(http.StatusOK, c.RealIP()) })

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.1.2.3:1234"
	req.Header.Set(echo.HeaderXForwardedFor, "203.0.113.7")
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, req)
	assert.Equal(t, "203.0.113.7", rec.Body.String())
}

func TestShutdown(t *testing.T) {
	s := New(testConfig(), nil)
	assert.NoError(t, s.Shutdown(context.Background()))
}
