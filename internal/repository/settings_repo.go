package repository

import (
	"context"

	"brewpos/internal/model"

	"gorm.io/gorm"
)

type SettingsRepository interface {
	// Get returns the settings row, creating it with defaults on first use.
	Get(ctx context.Context) (*model.ShopSettings, error)
	Save(ctx context.Context, s *model.ShopSettings) error
}

type settingsRepo struct{ db *gorm.DB }

func NewSettingsRepository(db *gorm.DB) SettingsRepository { return &settingsRepo{db: db} }

func (r *settingsRepo) Get(ctx context.Context) (*model.ShopSettings, error) {
	s := model.ShopSettings{ID: model.SettingsRowID}
	err := r.db.WithContext(ctx).FirstOrCreate(&s, model.ShopSettings{ID: model.SettingsRowID}).Error
	return &s, err
}

func (r *settingsRepo) Save(ctx context.Context, s *model.ShopSettings) error {
	s.ID = model.SettingsRowID
	return r.db.WithContext(ctx).Save(s).Error
}
