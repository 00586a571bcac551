package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/services/content"
)

type SubmitHomileticsRequest struct {
	Title     string     `json:"title" validate:"notblank,max=200"`
	Scripture string     `json:"scripture" validate:"max=200"`
	Outline   string     `json:"outline"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty" doc:"Defaults to the coming Sunday at 23:59:59 UTC"`
}

type homileticsHandler struct {
	homiletics *content.HomileticsService
}

func registerHomiletics(e *echo.Echo, doc *openapi.Document, h *homileticsHandler) {
	g := e.Group("/homiletics", authn.RequireAuth())
	g.POST("", h.submit)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)

	doc.Route(http.MethodPost, "/homiletics").Summary("Submit a homiletics entry").Tags("homiletics").Authenticated().
		Body(SubmitHomileticsRequest{}).
		Response(http.StatusCreated, content.HomileticsEntry{}, "Submitted").
		Build()
	doc.Route(http.MethodGet, "/homiletics").Summary("List homiletics entries").Tags("homiletics").Authenticated().
		Response(http.StatusOK, []content.HomileticsEntry{}, "Own entries; staff and admins see all").
		Build()
	doc.Route(http.MethodGet, "/homiletics/:id").Summary("Get a homiletics entry").Tags("homiletics").Authenticated().
		Response(http.StatusOK, content.HomileticsEntry{}, "The entry").
		Build()
	doc.Route(http.MethodDelete, "/homiletics/:id").Summary("Delete a homiletics entry").Tags("homiletics").Authenticated().
		Response(http.StatusNoContent, nil, "Deleted").
		Build()
}

func (h *homileticsHandler) submit(c echo.Context) error {
	var req SubmitHomileticsRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	entry, err := h.homiletics.Submit(c.Request().Context(), authn.CurrentUser(c), content.NewHomiletics{
		Title:     req.Title,
		Scripture: req.Scripture,
		Outline:   req.Outline,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

func (h *homileticsHandler) list(c echo.Context) error {
	entries, err := h.homiletics.List(c.Request().Context(), authn.CurrentUser(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (h *homileticsHandler) get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	entry, err := h.homiletics.Get(c.Request().Context(), authn.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

func (h *homileticsHandler) delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.homiletics.Delete(c.Request().Context(), authn.CurrentUser(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
