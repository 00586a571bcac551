package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/services/accounts"
	"github.com/tech-arch1tect/seminary/services/auth"
)

type CreateUserRequest struct {
	Email     string    `json:"email" validate:"required,email"`
	FirstName string    `json:"firstName" validate:"max=100"`
	LastName  string    `json:"lastName" validate:"max=100"`
	Role      auth.Role `json:"role,omitempty" validate:"omitempty,role" doc:"Defaults to student"`
}

type LoginTokenBody struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type CredentialsBody struct {
	Email             string `json:"email"`
	TemporaryPassword string `json:"temporaryPassword"`
	AutoLoginURL      string `json:"autoLoginUrl"`
}

type ProvisionedResponse struct {
	User        *auth.User      `json:"user"`
	LoginToken  LoginTokenBody  `json:"loginToken"`
	Credentials CredentialsBody `json:"credentials"`
	EmailSent   bool            `json:"emailSent"`
}

func provisionedResponse(p *accounts.Provisioned) ProvisionedResponse {
	return ProvisionedResponse{
		User: p.User,
		LoginToken: LoginTokenBody{
			Token:     p.Token.Token,
			ExpiresAt: p.Token.ExpiresAt,
		},
		Credentials: CredentialsBody{
			Email:             p.User.Email,
			TemporaryPassword: p.TemporaryPassword,
			AutoLoginURL:      p.AutoLoginURL,
		},
		EmailSent: p.EmailSent,
	}
}

type userHandler struct {
	users    *auth.Service
	accounts *accounts.Service
}

func registerUsers(e *echo.Echo, doc *openapi.Document, h *userHandler) {
	g := e.Group("/users", authn.RequireRole(auth.RoleAdmin))
	g.POST("", h.create)
	g.GET("", h.list)

	doc.Route(http.MethodPost, "/users").Summary("Create an account and email its auto-login link").Tags("users").Authenticated().
		Body(CreateUserRequest{}).
		Response(http.StatusCreated, ProvisionedResponse{}, "Account created").
		Response(http.StatusConflict, openapi.ErrorBody{}, "Email already registered").
		Build()
	doc.Route(http.MethodGet, "/users").Summary("List users").Tags("users").Authenticated().
		Query("role", "Only users with this role").
		Response(http.StatusOK, []auth.User{}, "Users").
		Build()
}

func (h *userHandler) create(c echo.Context) error {
	var req CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Role == "" {
		req.Role = auth.RoleStudent
	}

	out, err := h.accounts.CreateAccount(c.Request().Context(), accounts.NewAccount{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, provisionedResponse(out))
}

func (h *userHandler) list(c echo.Context) error {
	role := auth.Role(c.QueryParam("role"))
	if role != "" && !role.Valid() {
		return apperr.Field("role", fmt.Sprintf("unknown role %q", role))
	}
	users, err := h.users.ListUsers(c.Request().Context(), role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}
