package authn

import (
	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/services/auth"
	"github.com/tech-arch1tect/seminary/services/jwt"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/session"
)

func ProvideAuthenticator(tokens *jwt.Service, users *auth.Service, sessions *session.Service, logger *logging.Service) *Authenticator {
	return NewAuthenticator(tokens, users, sessions, logger)
}

var Module = fx.Options(
	fx.Provide(ProvideAuthenticator),
)
