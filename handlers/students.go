package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/services/content"
)

type EnrollRequest struct {
	Email      string `json:"email" validate:"required,email"`
	FirstName  string `json:"firstName" validate:"max=100"`
	LastName   string `json:"lastName" validate:"max=100"`
	Program    string `json:"program" validate:"max=100"`
	CohortYear int    `json:"cohortYear" validate:"omitempty,gte=1900,lte=2200"`
	MentorID   *uint  `json:"mentorId,omitempty"`
}

type EnrollResponse struct {
	Student *content.Student `json:"student"`
	ProvisionedResponse
}

type studentHandler struct {
	students *content.StudentService
}

func registerStudents(e *echo.Echo, doc *openapi.Document, h *studentHandler) {
	g := e.Group("/students", authn.RequireAuth())
	g.POST("", h.enroll, authn.RequireRole(staffRoles...))
	g.GET("", h.list, authn.RequireRole(mentorRoles...))
	g.GET("/:id", h.get, authn.RequireRole(mentorRoles...))

	doc.Route(http.MethodPost, "/students").Summary("Enroll a student and email their auto-login link").Tags("students").Authenticated().
		Body(EnrollRequest{}).
		Response(http.StatusCreated, EnrollResponse{}, "Student enrolled").
		Build()
	doc.Route(http.MethodGet, "/students").Summary("List students").Tags("students").Authenticated().
		Query("status", "enrolled, graduated or withdrawn").
		Response(http.StatusOK, []content.Student{}, "Students; mentors only see their mentees").
		Build()
	doc.Route(http.MethodGet, "/students/:id").Summary("Get a student").Tags("students").Authenticated().
		Response(http.StatusOK, content.Student{}, "The student").
		Build()
}

func (h *studentHandler) enroll(c echo.Context) error {
	var req EnrollRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	out, err := h.students.Enroll(c.Request().Context(), content.Enrollment{
		Email:      req.Email,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Program:    req.Program,
		CohortYear: req.CohortYear,
		MentorID:   req.MentorID,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, EnrollResponse{
		Student:             out.Student,
		ProvisionedResponse: provisionedResponse(out.Provisioned),
	})
}

func (h *studentHandler) list(c echo.Context) error {
	students, err := h.students.List(c.Request().Context(), authn.CurrentUser(c), content.StudentStatus(c.QueryParam("status")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, students)
}

func (h *studentHandler) get(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	student, err := h.students.Get(c.Request().Context(), authn.CurrentUser(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, student)
}
