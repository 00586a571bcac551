package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"
	"gorm.io/gorm"

	"github.com/tech-arch1tect/seminary/config"
	"github.com/tech-arch1tect/seminary/services/logging"
)

func createTestConfig(driver, dsn string, autoMigrate bool) config.Config {
	return config.Config{
		Database: config.DatabaseConfig{
			Driver:      driver,
			DSN:         dsn,
			AutoMigrate: autoMigrate,
		},
	}
}

type TestModel struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:255"`
	CreatedAt time.Time
}

func TestWithModels(t *testing.T) {
	t.Run("keeps registration order", func(t *testing.T) {
		first, second := TestModel{}, &TestModel{}
		option := WithModels(first, second)

		require.Len(t, option.Models(), 2)
		assert.Equal(t, first, option.Models()[0])
		assert.Equal(t, second, option.Models()[1])
	})

	t.Run("nil option has no models", func(t *testing.T) {
		var option *ModelsOption
		assert.Empty(t, option.Models())
	})
}

func TestProvideDatabase_SQLite(t *testing.T) {
	t.Run("in-memory", func(t *testing.T) {
		db, err := ProvideDatabase(createTestConfig("sqlite", ":memory:", false), nil, nil, logging.NewNop())
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()
		assert.NoError(t, sqlDB.Ping())
		assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
	})

	t.Run("file-based", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "seminary.db")

		db, err := ProvideDatabase(createTestConfig("sqlite", dbPath, true), WithModels(&TestModel{}), nil, nil)
		require.NoError(t, err)

		sqlDB, err := db.DB()
		require.NoError(t, err)
		defer sqlDB.Close()
		assert.True(t, db.Migrator().HasTable(&TestModel{}))
	})

	t.Run("auto migrate disabled", func(t *testing.T) {
		db, err := ProvideDatabase(createTestConfig("sqlite", ":memory:", false), WithModels(&TestModel{}), nil, nil)
		require.NoError(t, err)
		assert.False(t, db.Migrator().HasTable(&TestModel{}))
	})
}

func TestProvideDatabase_UnsupportedDriver(t *testing.T) {
	db, err := ProvideDatabase(createTestConfig("oracle", "dsn", false), nil, nil, nil)

	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "unsupported database driver")
}

func TestProvideDatabase_TimestampsFollowClock(t *testing.T) {
	at := time.Date(2025, 3, 9, 10, 0, 0, 0, time.UTC)
	clock := clockwork.NewFakeClockAt(at)

	db, err := ProvideDatabase(createTestConfig("sqlite", ":memory:", true), WithModels(&TestModel{}), clock, nil)
	require.NoError(t, err)

	row := TestModel{Name: "first"}
	require.NoError(t, db.Create(&row).Error)

	var stored TestModel
	require.NoError(t, db.First(&stored, row.ID).Error)
	assert.True(t, stored.CreatedAt.Equal(at))
}

func TestModule(t *testing.T) {
	var db *gorm.DB
	app := fxtest.New(t,
		Module,
		fx.Supply(&config.Config{Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:", AutoMigrate: true}}),
		fx.Supply(WithModels(&TestModel{})),
		fx.Provide(func() clockwork.Clock { return clockwork.NewRealClock() }),
		fx.Provide(logging.NewNop),
		fx.Populate(&db),
	)
	app.RequireStart()

	require.NotNil(t, db)
	assert.True(t, db.Migrator().HasTable(&TestModel{}))

	app.RequireStop()
}
