package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
)

type retentionHandler struct {
	sweeper *retention.Sweeper
	logger  *logging.Service
}

// registerRetention adds a static cleanup route per category so the routes
// win over the resources' own /:id routes, plus a catch-all that reports
// unknown categories.
func registerRetention(e *echo.Echo, doc *openapi.Document, h *retentionHandler) {
	admin := authn.RequireRole(auth.RoleAdmin)
	for _, name := range h.sweeper.Categories() {
		e.POST("/"+name+"/cleanup-expired", h.cleanup(name), admin)
	}
	e.POST("/:category/cleanup-expired", func(c echo.Context) error {
		return h.cleanup(c.Param("category"))(c)
	}, admin)

	doc.Route(http.MethodPost, "/:category/cleanup-expired").Summary("Delete expired rows of one category now").Tags("retention").Authenticated().
		Response(http.StatusOK, retention.Result{}, "Sweep result").
		Response(http.StatusNotFound, openapi.ErrorBody{}, "Unknown category").
		Build()
}

func (h *retentionHandler) cleanup(category string) echo.HandlerFunc {
	return func(c echo.Context) error {
		result, err := h.sweeper.SweepCategory(c.Request().Context(), category)
		if err != nil {
			return err
		}
		h.logger.Info("manual cleanup",
			zap.String("category", category),
			zap.Int64("deleted", result.Deleted),
			zap.Uint("user_id", authn.CurrentUser(c).ID))
		return c.JSON(http.StatusOK, result)
	}
}
