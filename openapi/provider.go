package openapi

import (
	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/config"
)

const Version = "1.0.0"

func ProvideDocument(cfg *config.Config) *Document {
	return New(cfg.App.Name+" API", Version, "Accounts, single-use login links and time-boxed community content.").
		Server(cfg.App.URL, cfg.App.Env).
		AuthSchemes(cfg.Session.Name).
		Tag("auth", "Sign-in, auto-login links, password reset and sessions").
		Tag("users", "Account provisioning").
		Tag("students", "Student enrollment").
		Tag("media", "Sermon recordings, images and documents").
		Tag("posts", "Community posts").
		Tag("homiletics", "Weekly homiletics submissions").
		Tag("retention", "Expired content cleanup").
		Tag("system", "Health and API documents")
}

var Module = fx.Options(
	fx.Provide(ProvideDocument),
)
