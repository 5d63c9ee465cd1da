package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"chats/internal/models"
	"chats/internal/service"
)

// GormRepo backs the mysql and sqlite drivers.
type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo syncs the schema and returns a store over db.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&models.User{}, &models.Message{}); err != nil {
		return nil, fmt.Errorf("failed to migrate chat tables: %w", err)
	}
	return &GormRepo{db: db}, nil
}

var _ service.MessageStore = (*GormRepo)(nil)

func (r *GormRepo) FindOrCreateUser(ctx context.Context, username string) (*models.User, bool, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error
	if err == nil {
		return &user, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	user = models.User{Username: username}
	if err := r.db.WithContext(ctx).Create(&user).Error; err != nil {
		// a concurrent request may have won the unique index
		var existing models.User
		if findErr := r.db.WithContext(ctx).Where("username = ?", username).First(&existing).Error; findErr == nil {
			return &existing, false, nil
		}
		return nil, false, err
	}
	return &user, true, nil
}

func (r *GormRepo) FindUserByUsername(ctx context.Context, username string, activeAt time.Time) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Where("expiration_date >= ?", activeAt).Order("created_at ASC").Order("id ASC")
		}).
		Where("username = ?", username).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindMessageByID(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := r.db.WithContext(ctx).Preload("Owner").Where("id = ?", id).First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *GormRepo) CreateMessage(ctx context.Context, msg *models.Message) error {
	return r.db.WithContext(ctx).Omit("Owner").Create(msg).Error
}

// SetExpiration only ever moves expiration dates backwards.
func (r *GormRepo) SetExpiration(ctx context.Context, ids []string, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id IN ? AND expiration_date > ?", ids, at).
		Updates(map[string]any{"expiration_date": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expiration_date < ?", before).Delete(&models.Message{})
	return res.RowsAffected, res.Error
}

func (r *GormRepo) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (r *GormRepo) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
