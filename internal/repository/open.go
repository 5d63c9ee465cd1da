package repository

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"chats/internal/config"
	"chats/internal/logger"
	"chats/internal/service"
)

// Open connects the store selected by cfg.Driver and makes sure its tables exist.
func Open(cfg config.DatabaseConfig) (service.MessageStore, error) {
	switch cfg.Driver {
	case "postgres":
		return NewPostgresRepo(cfg.PostgresDSN())
	case "mysql":
		return openGorm(mysql.Open(cfg.MySQLDSN()))
	case "sqlite":
		return openGorm(sqlite.Open(cfg.Path))
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func openGorm(dialector gorm.Dialector) (*GormRepo, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewGormRepo(db)
}

type zapWriter struct{}

func (zapWriter) Printf(format string, args ...interface{}) {
	logger.L().Sugar().Warnf(format, args...)
}

func newGormLogger() gormlogger.Interface {
	return gormlogger.New(zapWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
