package handlers

import (
	"fmt"
	"mime"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/services/content"
	"github.com/tech-arch1tect/seminary/services/logging"
)

type mediaHandler struct {
	media  *content.MediaService
	logger *logging.Service
}

func registerMedia(e *echo.Echo, doc *openapi.Document, h *mediaHandler) {
	g := e.Group("/media", authn.RequireAuth())
	g.POST("", h.upload, authn.RequireRole(staffRoles...))
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.GET("/:id/download", h.download)
	g.DELETE("/:id", h.delete)

	doc.Route(http.MethodPost, "/media").Summary("Upload a media file").Tags("media").Authenticated().
		Multipart("file", "title", "description").
		Response(http.StatusCreated, content.MediaItem{}, "Uploaded; video and audio expire after seven days").
		Build()
	doc.Route(http.MethodGet, "/media").Summary("List media").Tags("media").Authenticated().
		Query("kind", "video, audio, image or document").
		Response(http.StatusOK, []content.MediaItem{}, "Unexpired media, newest first").
		Build()
	doc.Route(http.MethodGet, "/media/:id").Summary("Get media metadata").Tags("media").Authenticated().
		Response(http.StatusOK, content.MediaItem{}, "The media item").
		Response(http.StatusNotFound, openapi.ErrorBody{}, "Unknown or expired").
		Build()
	doc.Route(http.MethodGet, "/media/:id/download").Summary("Download the media file").Tags("media").Authenticated().
		Binary(http.StatusOK, "File contents").
		Build()
	doc.Route(http.MethodDelete, "/media/:id").Summary("Delete media and its file").Tags("media").Authenticated().
		Response(http.StatusNoContent, nil, "Deleted").
		Build()
}

func (h *mediaHandler) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return apperr.Field("file", "file is required")
	}
	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	item, err := h.media.Upload(c.Request().Context(), authn.CurrentUser(c), content.Upload{
		Title:       c.FormValue("title"),
		Description: c.FormValue("description"),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, item)
}

func (h *mediaHandler) list(c echo.Context) error {
	items, err := h.media.List(c.Request().Context(), content.MediaKind(c.QueryParam("kind")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

func (h *mediaHandler) get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	item, err := h.media.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *mediaHandler) download(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	item, rc, err := h.media.Open(c.Request().Context(), id)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := rc.Close(); cerr != nil {
			h.logger.Warn("failed to close media reader", zap.Error(cerr), zap.Uint("media_id", item.ID))
		}
	}()

	exts, _ := mime.ExtensionsByType(item.ContentType)
	filename := item.Title
	if len(exts) > 0 {
		filename += exts[0]
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	if item.Size > 0 {
		c.Response().Header().Set(echo.HeaderContentLength, strconv.FormatInt(item.Size, 10))
	}
	return c.Stream(http.StatusOK, item.ContentType, rc)
}

func (h *mediaHandler) delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.media.Delete(c.Request().Context(), authn.CurrentUser(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
