package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/openapi"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

func registerSystem(e *echo.Echo, doc *openapi.Document, db *gorm.DB) {
	e.GET("/health", health(db))
	e.GET("/openapi.json", doc.JSONHandler())
	e.GET("/openapi.yaml", doc.YAMLHandler())

	doc.Route(http.MethodGet, "/health").Summary("Liveness").Tags("system").
		Response(http.StatusOK, HealthResponse{}, "Healthy").
		Response(http.StatusServiceUnavailable, HealthResponse{}, "Database unreachable").
		Build()
}

func health(db *gorm.DB) echo.HandlerFunc {
	return func(c echo.Context) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request().Context())
		}
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down"})
		}
		return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
	}
}
