package repository

import (
	"context"

	"github.com/kupferco/lv-notas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type TherapistRepository interface {
	Create(ctx context.Context, t *model.Therapist) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Therapist, error)
	FindByEmail(ctx context.Context, email string) (*model.Therapist, error)
	Update(ctx context.Context, t *model.Therapist) error
}

type therapistRepo struct{ db *gorm.DB }

func NewTherapistRepository(db *gorm.DB) TherapistRepository { return &therapistRepo{db: db} }

func (r *therapistRepo) Create(ctx context.Context, t *model.Therapist) error {
	return r.db.WithContext(ctx).Create(t).Error
}

func (r *therapistRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Therapist, error) {
	var t model.Therapist
	err := r.db.WithContext(ctx).First(&t, id).Error
	return &t, err
}

func (r *therapistRepo) FindByEmail(ctx context.Context, email string) (*model.Therapist, error) {
	var t model.Therapist
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&t).Error
	return &t, err
}

func (r *therapistRepo) Update(ctx context.Context, t *model.Therapist) error {
	return r.db.WithContext(ctx).Save(t).Error
}
