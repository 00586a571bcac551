package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/middleware/csrf"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/services/accounts"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/jwt"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/logintoken"
	"github.com/tech-arch1tect/seminary/services/revocation"
	"github.com/tech-arch1tect/seminary/session"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AutoLoginRequest struct {
	Token string `json:"token" query:"token" form:"token"`
}

type PasswordResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User        *auth.User `json:"user"`
	AccessToken string     `json:"accessToken"`
	TokenType   string     `json:"tokenType"`
	ExpiresIn   int        `json:"expiresIn" doc:"Access token lifetime in seconds"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CSRFResponse struct {
	Token string `json:"token" doc:"Empty when the request was not authenticated by session cookie"`
}

type authHandler struct {
	users       *auth.Service
	accounts    *accounts.Service
	tokens      *jwt.Service
	revocations *revocation.Service
	sessions    *session.Service
	logger      *logging.Service
}

func registerAuth(e *echo.Echo, doc *openapi.Document, limiter echo.MiddlewareFunc, h *authHandler) {
	g := e.Group("/auth")
	g.POST("/login", h.login, limiter)
	g.GET("/auto-login", h.autoLogin, limiter)
	g.POST("/auto-login", h.autoLogin, limiter)
	g.POST("/password-reset", h.requestPasswordReset, limiter)
	g.POST("/password-reset/confirm", h.confirmPasswordReset, limiter)

	ag := g.Group("", authn.RequireAuth())
	ag.POST("/logout", h.logout)
	ag.GET("/me", h.me)
	ag.GET("/csrf", h.csrfToken)
	ag.GET("/sessions", h.listSessions)
	ag.DELETE("/sessions/:id", h.revokeSession)

	doc.Route(http.MethodPost, "/auth/login").Summary("Sign in with email and password").Tags("auth").
		Body(LoginRequest{}).
		Response(http.StatusOK, AuthResponse{}, "Signed in; a session cookie is set").
		Response(http.StatusUnauthorized, openapi.ErrorBody{}, "Invalid credentials").
		Response(http.StatusTooManyRequests, openapi.ErrorBody{}, "Rate limited").
		Build()
	for _, method := range []string{http.MethodGet, http.MethodPost} {
		doc.Route(method, "/auth/auto-login").Summary("Redeem a single-use auto-login token").Tags("auth").
			Query("token", "Auto-login token from the welcome email").
			Response(http.StatusOK, AuthResponse{}, "Signed in; a session cookie is set").
			Response(http.StatusUnauthorized, openapi.ErrorBody{}, "Token unknown, expired or already used").
			Build()
	}
	doc.Route(http.MethodPost, "/auth/password-reset").Summary("Email a password reset link").Tags("auth").
		Body(PasswordResetRequest{}).
		Response(http.StatusAccepted, MessageResponse{}, "Accepted whether or not the email is known").
		Build()
	doc.Route(http.MethodPost, "/auth/password-reset/confirm").Summary("Set a new password with a reset token").Tags("auth").
		Body(PasswordResetConfirmRequest{}).
		Response(http.StatusOK, MessageResponse{}, "Password changed").
		Response(http.StatusUnauthorized, openapi.ErrorBody{}, "Token unknown, expired or already used").
		Build()
	doc.Route(http.MethodPost, "/auth/logout").Summary("Sign out").Tags("auth").Authenticated().
		Response(http.StatusNoContent, nil, "Signed out").
		Build()
	doc.Route(http.MethodGet, "/auth/csrf").Summary("CSRF token for cookie-authenticated requests").Tags("auth").Authenticated().
		Response(http.StatusOK, CSRFResponse{}, "Send the token back in the X-CSRF-Token header").
		Build()
	doc.Route(http.MethodGet, "/auth/me").Summary("Current user").Tags("auth").Authenticated().
		Response(http.StatusOK, auth.User{}, "The signed-in user").
		Build()
	doc.Route(http.MethodGet, "/auth/sessions").Summary("List active sessions").Tags("auth").Authenticated().
		Response(http.StatusOK, []session.UserSession{}, "Sessions of the signed-in user").
		Build()
	doc.Route(http.MethodDelete, "/auth/sessions/:id").Summary("Revoke a session").Tags("auth").Authenticated().
		Response(http.StatusNoContent, nil, "Revoked").
		Build()
}

func (h *authHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	user, err := h.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return err
	}
	if err := h.users.RecordLogin(ctx, user.ID); err != nil {
		h.logger.Warn("failed to record login", zap.Error(err), zap.Uint("user_id", user.ID))
	}
	return h.signIn(c, user)
}

func (h *authHandler) autoLogin(c echo.Context) error {
	var req AutoLoginRequest
	if err := c.Bind(&req); err != nil {
		return logintoken.ErrInvalidToken
	}
	if req.Token == "" {
		req.Token = c.QueryParam("token")
	}
	if req.Token == "" {
		return logintoken.ErrInvalidToken
	}

	user, err := h.accounts.AutoLogin(c.Request().Context(), req.Token, c.RealIP())
	if err != nil {
		return err
	}
	return h.signIn(c, user)
}

// signIn starts a session and issues an access token for user.
func (h *authHandler) signIn(c echo.Context, user *auth.User) error {
	if err := session.Login(c, user.ID); err != nil {
		return err
	}
	accessToken, err := h.tokens.GenerateToken(user)
	if err != nil {
		return err
	}
	c.Set(authn.UserIDKey, user.ID)

	return c.JSON(http.StatusOK, AuthResponse{
		User:        user,
		AccessToken: accessToken,
		TokenType:   "Bearer",
		ExpiresIn:   h.tokens.GetAccessExpirySeconds(),
	})
}

func (h *authHandler) logout(c echo.Context) error {
	user := authn.CurrentUser(c)
	if claims := authn.GetClaims(c); claims != nil {
		expiresAt := time.Time{}
		if claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
		if err := h.revocations.Revoke(c.Request().Context(), claims.JTI, user.ID, expiresAt); err != nil {
			return err
		}
	}
	if err := session.Logout(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *authHandler) me(c echo.Context) error {
	return c.JSON(http.StatusOK, authn.CurrentUser(c))
}

func (h *authHandler) csrfToken(c echo.Context) error {
	return c.JSON(http.StatusOK, CSRFResponse{Token: csrf.GetToken(c)})
}

func (h *authHandler) requestPasswordReset(c echo.Context) error {
	var req PasswordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.RequestPasswordReset(c.Request().Context(), req.Email); err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, MessageResponse{
		Message: "If the address belongs to an account, a reset link has been sent.",
	})
}

func (h *authHandler) confirmPasswordReset(c echo.Context) error {
	var req PasswordResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.accounts.CompletePasswordReset(c.Request().Context(), req.Token, req.Password, c.RealIP()); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "Password changed."})
}

func (h *authHandler) listSessions(c echo.Context) error {
	if h.sessions == nil {
		return c.JSON(http.StatusOK, []session.UserSession{})
	}
	sessions, err := h.sessions.List(c.Request().Context(), authn.CurrentUser(c).ID, session.Token(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sessions)
}

func (h *authHandler) revokeSession(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if h.sessions == nil {
		return session.ErrSessionNotFound
	}
	if err := h.sessions.Revoke(c.Request().Context(), authn.CurrentUser(c).ID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
