package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/services/content"
)

type CreatePostRequest struct {
	Category content.PostCategory `json:"category" validate:"required" doc:"announcement, testimony, prayer_request, update, sunday_service or outreach_report"`
	Title    string               `json:"title" validate:"notblank,max=200"`
	Body     string               `json:"body"`
	Tags     []string             `json:"tags,omitempty" validate:"max=20,dive,max=50"`
}

type postHandler struct {
	posts *content.PostService
}

func registerPosts(e *echo.Echo, doc *openapi.Document, h *postHandler) {
	g := e.Group("/posts", authn.RequireAuth())
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.DELETE("/:id", h.delete)

	doc.Route(http.MethodPost, "/posts").Summary("Create a post").Tags("posts").Authenticated().
		Body(CreatePostRequest{}).
		Response(http.StatusCreated, content.Post{}, "Created; sunday_service and update posts expire after seven days").
		Response(http.StatusForbidden, openapi.ErrorBody{}, "Category reserved for staff").
		Build()
	doc.Route(http.MethodGet, "/posts").Summary("List posts").Tags("posts").Authenticated().
		Query("category", "Only posts in this category").
		Response(http.StatusOK, []content.Post{}, "Unexpired posts, newest first").
		Build()
	doc.Route(http.MethodGet, "/posts/:id").Summary("Get a post").Tags("posts").Authenticated().
		Response(http.StatusOK, content.Post{}, "The post").
		Build()
	doc.Route(http.MethodDelete, "/posts/:id").Summary("Delete a post").Tags("posts").Authenticated().
		Response(http.StatusNoContent, nil, "Deleted").
		Build()
}

func (h *postHandler) create(c echo.Context) error {
	var req CreatePostRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	post, err := h.posts.Create(c.Request().Context(), authn.CurrentUser(c), content.NewPost{
		Category: req.Category,
		Title:    req.Title,
		Body:     req.Body,
		Tags:     req.Tags,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, post)
}

func (h *postHandler) list(c echo.Context) error {
	posts, err := h.posts.List(c.Request().Context(), content.PostCategory(c.QueryParam("category")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (h *postHandler) get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	post, err := h.posts.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, post)
}

func (h *postHandler) delete(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	if err := h.posts.Delete(c.Request().Context(), authn.CurrentUser(c), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
