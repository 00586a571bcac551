package server

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/services/logging"
)

var statusByKind = map[apperr.Kind]int{
	apperr.KindNotFound:     http.StatusNotFound,
	apperr.KindForbidden:    http.StatusForbidden,
	apperr.KindUnauthorized: http.StatusUnauthorized,
	apperr.KindInvalidToken: http.StatusUnauthorized,
	apperr.KindConflict:     http.StatusConflict,
}

// NewErrorHandler returns an echo.HTTPErrorHandler that maps apperr kinds,
// validation failures and echo errors to JSON responses. Anything else is a
// logged 500.
func NewErrorHandler(logger *logging.Service) echo.HTTPErrorHandler {
	logger = logger.Named("http")

	return func(err error, c echo.Context) {
		code, message := resolve(err)

		if code == http.StatusInternalServerError {
			fields := []zap.Field{
				zap.Error(err),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
			}
			if userID, ok := c.Get("user_id").(uint); ok {
				fields = append(fields, zap.Uint("user_id", userID))
			}
			logger.Error("unhandled error", fields...)
		}

		if c.Response().Committed {
			return
		}
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			logger.Warn("failed to write error response", zap.Error(err))
		}
	}
}

func resolve(err error) (int, any) {
	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if inner, ok := httpErr.Internal.(*echo.HTTPError); ok {
			httpErr = inner
		}
		if msg, ok := httpErr.Message.(string); ok {
			return httpErr.Code, echo.Map{"error": msg}
		}
		return httpErr.Code, echo.Map{"error": httpErr.Message}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Translate(translator)
		}
		return http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields}
	}

	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		if len(ve.Fields) == 0 {
			return http.StatusBadRequest, echo.Map{"error": ve.Error()}
		}
		fields := make(map[string]string, len(ve.Fields))
		for _, fe := range ve.Fields {
			fields[fe.Field] = fe.Error
		}
		return http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields}
	}

	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if code, ok := statusByKind[appErr.Kind]; ok {
			return code, echo.Map{"error": appErr.Message}
		}
	}

	return http.StatusInternalServerError, echo.Map{"error": http.StatusText(http.StatusInternalServerError)}
}
