package session

import (
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
)

type Manager struct {
	*scs.SessionManager
	config config.SessionConfig
}

func NewManager(cfg config.SessionConfig, store scs.Store) *Manager {
	sessionManager := scs.New()
	sessionManager.Store = store
	sessionManager.Lifetime = cfg.MaxAge
	sessionManager.IdleTimeout = cfg.MaxAge
	sessionManager.Cookie.Name = cfg.Name
	sessionManager.Cookie.Path = cfg.Path
	sessionManager.Cookie.Domain = cfg.Domain
	sessionManager.Cookie.Secure = cfg.Secure
	sessionManager.Cookie.HttpOnly = cfg.HttpOnly

	switch cfg.SameSite {
	case "strict":
		sessionManager.Cookie.SameSite = http.SameSiteStrictMode
	case "none":
		sessionManager.Cookie.SameSite = http.SameSiteNoneMode
	default:
		sessionManager.Cookie.SameSite = http.SameSiteLaxMode
	}

	return &Manager{SessionManager: sessionManager, config: cfg}
}

// ProvideSessionManager returns nil when sessions are disabled; the helpers in
// this package treat a nil manager as "no session".
func ProvideSessionManager(cfg *config.Config, db *gorm.DB) (*Manager, error) {
	if !cfg.Session.Enabled {
		return nil, nil
	}

	var store scs.Store
	switch cfg.Session.Store {
	case "memory":
		store = NewMemoryStore()
	case "database":
		var err error
		store, err = NewDatabaseStore(db)
		if err != nil {
			return nil, fmt.Errorf("failed to create database session store: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported session store: %s", cfg.Session.Store)
	}

	return NewManager(cfg.Session, store), nil
}

func ProvideSessionService(db *gorm.DB, manager *Manager, clock clockwork.Clock, logger *logging.Service) *Service {
	if manager == nil {
		return nil
	}
	return NewService(db, manager, clock, logger)
}

type RetentionOut struct {
	fx.Out

	Category retention.Category `group:"retention_categories"`
}

func RetentionCategory() retention.Category {
	return retention.Category{Name: "user-sessions", Model: &UserSession{}}
}

func ProvideRetentionCategory() RetentionOut {
	return RetentionOut{Category: RetentionCategory()}
}

var Module = fx.Module("session",
	fx.Provide(ProvideSessionManager),
	fx.Provide(ProvideSessionService),
	fx.Provide(ProvideRetentionCategory),
)
