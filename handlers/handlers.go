// Package handlers exposes the services over HTTP and documents every route
// in the API document.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/internal/apperr"
	"github.com/tech-arch1tect/seminary/middleware/authn"
	"github.com/tech-arch1tect/seminary/middleware/csrf"
	"github.com/tech-arch1tect/seminary/middleware/ratelimit"
	"github.com/tech-arch1tect/seminary/openapi"
	"github.com/tech-arch1tect/seminary/server"
	"github.com/tech-arch1tect/seminary/services/accounts"
	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/content"
	"github.com/tech-arch1tect/seminary/services/jwt"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
	"github.com/tech-arch1tect/seminary/services/revocation"
	"github.com/tech-arch1tect/seminary/session"
)

type Params struct {
	fx.In

	Config        *config.Config
	Server        *server.Server
	Doc           *openapi.Document
	DB            *gorm.DB
	Logger        *logging.Service
	Authenticator *authn.Authenticator
	AuthLimiter   ratelimit.AuthLimiter
	Users         *auth.Service
	Accounts      *accounts.Service
	Tokens        *jwt.Service
	Revocations   *revocation.Service
	Sessions      *session.Service `optional:"true"`
	SessionMgr    *session.Manager `optional:"true"`
	Students      *content.StudentService
	Media         *content.MediaService
	Posts         *content.PostService
	Homiletics    *content.HomileticsService
	Sweeper       *retention.Sweeper
}

var (
	staffRoles    = []auth.Role{auth.RoleAdmin, auth.RoleStaff}
	mentorRoles   = []auth.Role{auth.RoleAdmin, auth.RoleStaff, auth.RoleMentor}
	errBadRequest = errors.New("malformed request body")
)

// Register installs the session, CSRF and authentication middleware and
// every route.
func Register(p Params) {
	if p.SessionMgr != nil {
		p.Server.Use(session.Middleware(p.SessionMgr, p.Sessions))
		p.Server.Use(csrf.Middleware(&p.Config.CSRF, p.Config.Session.Name))
	}
	p.Server.Use(p.Authenticator.Middleware())

	e := p.Server.Echo()
	limiter := echo.MiddlewareFunc(p.AuthLimiter)

	registerSystem(e, p.Doc, p.DB)
	registerAuth(e, p.Doc, limiter, &authHandler{
		users:       p.Users,
		accounts:    p.Accounts,
		tokens:      p.Tokens,
		revocations: p.Revocations,
		sessions:    p.Sessions,
		logger:      p.Logger.Named("handlers.auth"),
	})
	registerUsers(e, p.Doc, &userHandler{users: p.Users, accounts: p.Accounts})
	registerStudents(e, p.Doc, &studentHandler{students: p.Students})
	registerMedia(e, p.Doc, &mediaHandler{media: p.Media, logger: p.Logger.Named("handlers.media")})
	registerPosts(e, p.Doc, &postHandler{posts: p.Posts})
	registerHomiletics(e, p.Doc, &homileticsHandler{homiletics: p.Homiletics})
	registerRetention(e, p.Doc, &retentionHandler{sweeper: p.Sweeper, logger: p.Logger.Named("handlers.retention")})
}

var Module = fx.Options(
	fx.Invoke(Register),
)

// bind decodes and validates the request into dst.
func bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusBadRequest {
			return apperr.NewValidationError(errBadRequest)
		}
		return err
	}
	return c.Validate(dst)
}

func paramID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Field("id", "must be a positive integer")
	}
	return uint(id), nil
}
