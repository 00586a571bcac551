package session

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const UserIDKey = "_user_id"

// Login stores userID in a fresh session and tracks it. The token is renewed
// first so a session id from before sign-in is never reused.
func Login(c echo.Context, userID uint) error {
	manager := GetManager(c)
	if manager == nil {
		return nil
	}
	ctx := c.Request().Context()

	if err := manager.RenewToken(ctx); err != nil {
		return err
	}
	manager.Put(ctx, UserIDKey, userID)

	if service := GetService(c); service != nil {
		token := manager.Token(ctx)
		if err := service.Track(ctx, userID, token, c.RealIP(), c.Request().UserAgent()); err != nil {
			service.logger.Warn("failed to track session", zap.Error(err), zap.Uint("user_id", userID))
		}
	}
	return nil
}

// Logout destroys the session and its tracking row.
func Logout(c echo.Context) error {
	manager := GetManager(c)
	if manager == nil {
		return nil
	}
	ctx := c.Request().Context()

	if service := GetService(c); service != nil {
		if token := manager.Token(ctx); token != "" {
			if err := service.Remove(ctx, token); err != nil {
				service.logger.Warn("failed to remove session record", zap.Error(err))
			}
		}
	}
	return manager.Destroy(ctx)
}

// UserID returns the signed-in user, or 0.
func UserID(c echo.Context) uint {
	manager := GetManager(c)
	if manager == nil {
		return 0
	}
	id, _ := manager.Get(c.Request().Context(), UserIDKey).(uint)
	return id
}

func Token(c echo.Context) string {
	manager := GetManager(c)
	if manager == nil {
		return ""
	}
	return manager.Token(c.Request().Context())
}
