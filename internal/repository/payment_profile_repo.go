package repository

import (
	"context"

	"brewpos/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentProfileRepository interface {
	Create(ctx context.Context, p *model.PaymentProfile) error
	Update(ctx context.Context, p *model.PaymentProfile) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentProfile, error)
	// List returns active profiles, or every profile when includeInactive is set.
	List(ctx context.Context, includeInactive bool) ([]model.PaymentProfile, error)
}

type paymentProfileRepo struct{ db *gorm.DB }

func NewPaymentProfileRepository(db *gorm.DB) PaymentProfileRepository {
	return &paymentProfileRepo{db: db}
}

func (r *paymentProfileRepo) Create(ctx context.Context, p *model.PaymentProfile) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *paymentProfileRepo) Update(ctx context.Context, p *model.PaymentProfile) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *paymentProfileRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.PaymentProfile, error) {
	var p model.PaymentProfile
	err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error
	return &p, err
}

func (r *paymentProfileRepo) List(ctx context.Context, includeInactive bool) ([]model.PaymentProfile, error) {
	q := r.db.WithContext(ctx).Model(&model.PaymentProfile{})
	if !includeInactive {
		q = q.Where("active = true")
	}
	var out []model.PaymentProfile
	err := q.Order("name ASC").Find(&out).Error
	return out, err
}
