package service

import (
	"context"

	"brewpos/internal/dto"
	"brewpos/internal/repository"

	"github.com/rs/zerolog/log"
)

type SettingsService interface {
	Get(ctx context.Context) (*dto.SettingsResponse, error)
	Update(ctx context.Context, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error)
}

type settingsService struct {
	repo repository.SettingsRepository
}

func NewSettingsService(repo repository.SettingsRepository) SettingsService {
	return &settingsService{repo: repo}
}

func (s *settingsService) Get(ctx context.Context) (*dto.SettingsResponse, error) {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.SettingsResponse{AllowNegativeStock: st.AllowNegativeStock}, nil
}

func (s *settingsService) Update(ctx context.Context, req dto.UpdateSettingsRequest) (*dto.SettingsResponse, error) {
	st, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	if req.AllowNegativeStock != nil {
		st.AllowNegativeStock = *req.AllowNegativeStock
	}
	if err := s.repo.Save(ctx, st); err != nil {
		return nil, err
	}
	log.Info().Bool("allow_negative_stock", st.AllowNegativeStock).Msg("settings: updated")
	return &dto.SettingsResponse{AllowNegativeStock: st.AllowNegativeStock}, nil
}
