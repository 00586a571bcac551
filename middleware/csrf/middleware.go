package csrf

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tech-arch1tect/seminary/config"
)

const ContextKey = "csrf"

// Middleware enforces a double-submit token on requests that carry the
// session cookie. Requests authenticated with a bearer token, or with no
// session at all, are not checked.
func Middleware(cfg *config.CSRFConfig, sessionCookie string) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	return middleware.CSRFWithConfig(middleware.CSRFConfig{
		Skipper:        cookieless(sessionCookie),
		TokenLength:    cfg.TokenLength,
		TokenLookup:    cfg.TokenLookup,
		ContextKey:     ContextKey,
		CookieName:     cfg.CookieName,
		CookieDomain:   cfg.CookieDomain,
		CookiePath:     cfg.CookiePath,
		CookieMaxAge:   cfg.CookieMaxAge,
		CookieSecure:   cfg.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: sameSite(cfg.CookieSameSite),
	})
}

func cookieless(sessionCookie string) middleware.Skipper {
	return func(c echo.Context) bool {
		if c.Request().Header.Get(echo.HeaderAuthorization) != "" {
			return true
		}
		_, err := c.Cookie(sessionCookie)
		return err != nil
	}
}

func sameSite(mode string) http.SameSite {
	switch mode {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}

// GetToken returns the token issued for this request, or "" when the
// request was not checked.
func GetToken(c echo.Context) string {
	if token, ok := c.Get(ContextKey).(string); ok {
		return token
	}
	return ""
}
