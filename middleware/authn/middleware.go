// Package authn resolves the signed-in user from a bearer token or the
// session cookie.
package authn

import (
	"context"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/jwt"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/session"
)

const (
	UserIDKey = "user_id"
	UserKey   = "user"
	ClaimsKey = "jwt_claims"
)

var (
	ErrAuthRequired   = apperr.Unauthorized("authentication required")
	ErrInvalidHeader  = apperr.Unauthorized("invalid authorization header format")
	ErrSessionRevoked = apperr.Unauthorized("session is no longer valid")
)

type UserLoader interface {
	GetUser(ctx context.Context, id uint) (*auth.User, error)
}

type Authenticator struct {
	tokens   *jwt.Service
	users    UserLoader
	sessions *session.Service
	logger   *logging.Service
}

func NewAuthenticator(tokens *jwt.Service, users UserLoader, sessions *session.Service, logger *logging.Service) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, sessions: sessions, logger: logger.Named("authn")}
}

// Middleware identifies the caller when credentials are present. Requests
// without credentials pass through; invalid credentials are rejected.
func (a *Authenticator) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := a.resolve(c)
			if err != nil {
				return err
			}
			if user != nil {
				c.Set(UserIDKey, user.ID)
				c.Set(UserKey, user)
			}
			return next(c)
		}
	}
}

func (a *Authenticator) resolve(c echo.Context) (*auth.User, error) {
	ctx := c.Request().Context()

	if header := c.Request().Header.Get(echo.HeaderAuthorization); header != "" {
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			return nil, ErrInvalidHeader
		}
		claims, err := a.tokens.ValidateToken(ctx, tokenString)
		if err != nil {
			return nil, err
		}
		c.Set(ClaimsKey, claims)
		return a.load(ctx, claims.UserID)
	}

	userID := session.UserID(c)
	if userID == 0 {
		return nil, nil
	}
	if a.sessions != nil {
		tracked, err := a.sessions.Touch(ctx, session.Token(c))
		if err != nil {
			a.logger.Warn("failed to check session", zap.Error(err))
		} else if !tracked {
			_ = session.Logout(c)
			return nil, ErrSessionRevoked
		}
	}
	return a.load(ctx, userID)
}

func (a *Authenticator) load(ctx context.Context, userID uint) (*auth.User, error) {
	user, err := a.users.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrAuthRequired
		}
		return nil, err
	}
	if !user.Active {
		return nil, auth.ErrAccountDisabled
	}
	return user, nil
}

func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if CurrentUser(c) == nil {
				return ErrAuthRequired
			}
			return next(c)
		}
	}
}

// RequireRole allows signed-in users holding one of roles.
func RequireRole(roles ...auth.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user := CurrentUser(c)
			if user == nil {
				return ErrAuthRequired
			}
			if !user.HasRole(roles...) {
				return apperr.ErrForbidden
			}
			return next(c)
		}
	}
}

func CurrentUser(c echo.Context) *auth.User {
	if user, ok := c.Get(UserKey).(*auth.User); ok {
		return user
	}
	return nil
}

func GetClaims(c echo.Context) *jwt.Claims {
	if claims, ok := c.Get(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}
