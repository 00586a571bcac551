package content

import (
	"github.com/jonboulle/clockwork"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/accounts"
	"github.com/tech-arch1tect/seminary/services/logging"
	"github.com/tech-arch1tect/seminary/services/retention"
	"github.com/tech-arch1tect/seminary/services/storage"
)

func ProvideStudentService(db *gorm.DB, provisioner *accounts.Service, logger *logging.Service) *StudentService {
	return NewStudentService(db, provisioner, logger)
}

func ProvideMediaService(cfg *config.Config, db *gorm.DB, store storage.Store, clock clockwork.Clock, logger *logging.Service) *MediaService {
	return NewMediaService(db, store, clock, logger, cfg.Storage.MaxUploadSize)
}

type RetentionOut struct {
	fx.Out

	Categories []retention.Category `group:"retention_categories,flatten"`
}

// RetentionCategories lists the tables of this package whose rows expire.
func RetentionCategories() []retention.Category {
	return []retention.Category{
		{Name: "media", Model: &MediaItem{}, FileColumn: "storage_path"},
		{Name: "posts", Model: &Post{}},
		{Name: "homiletics", Model: &HomileticsEntry{}},
	}
}

func ProvideRetentionCategories() RetentionOut {
	return RetentionOut{Categories: RetentionCategories()}
}

var Module = fx.Options(
	fx.Provide(ProvideStudentService),
	fx.Provide(ProvideMediaService),
	fx.Provide(NewPostService),
	fx.Provide(NewHomileticsService),
	fx.Provide(ProvideRetentionCategories),
)
