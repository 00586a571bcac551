package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
)

type ModelsOption struct {
	models []any
}

func WithModels(models ...any) *ModelsOption {
	return &ModelsOption{models: models}
}

// Models returns the registered models in registration order.
func (o *ModelsOption) Models() []any {
	if o == nil {
		return nil
	}
	return o.models
}

// ProvideDatabase opens the configured database and migrates the registered
// models. Timestamps written by gorm come from clock, so tests that advance a
// fake clock see consistent created_at values.
func ProvideDatabase(cfg config.Config, modelsOpt *ModelsOption, clock clockwork.Clock, logger *logging.Service) (*gorm.DB, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	gormCfg := &gorm.Config{
		Logger:         newGormLogger(logger),
		NowFunc:        func() time.Time { return clock.Now().UTC() },
		TranslateError: true,
	}

	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.DSN)
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.Database.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", cfg.Database.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Database.Driver == "sqlite" && strings.Contains(cfg.Database.DSN, ":memory:") {
		// every pooled connection to :memory: would see its own empty database
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if models := modelsOpt.Models(); cfg.Database.AutoMigrate && len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			return nil, fmt.Errorf("failed to auto-migrate models: %w", err)
		}
		logger.Info("database migrated", zap.String("driver", cfg.Database.Driver), zap.Int("models", len(models)))
	}

	return db, nil
}

func newGormLogger(logger *logging.Service) gormlogger.Interface {
	if logger == nil || logger.Logger() == nil {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	return gormlogger.New(zap.NewStdLog(logger.Named("gorm").Logger()), gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
