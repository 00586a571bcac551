package storage

import (
	"fmt"

	"go.uber.org/fx"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
)

func ProvideStore(cfg *config.Config, logger *logging.Service) (Store, error) {
	switch cfg.Storage.Driver {
	case "local":
		logger.Infof("using local file storage at %s", cfg.Storage.LocalDir)
		return NewLocalStore(cfg.Storage.LocalDir)
	case "s3":
		logger.Infof("using s3 file storage in bucket %s", cfg.Storage.S3Bucket)
		return NewS3Store(S3Config{
			Endpoint:     cfg.Storage.S3Endpoint,
			Bucket:       cfg.Storage.S3Bucket,
			Region:       cfg.Storage.S3Region,
			AccessKey:    cfg.Storage.S3AccessKey,
			SecretKey:    cfg.Storage.S3SecretKey,
			UsePathStyle: cfg.Storage.S3UsePathStyle,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", cfg.Storage.Driver)
	}
}

var Module = fx.Options(
	fx.Provide(ProvideStore),
)
