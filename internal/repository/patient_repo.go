package repository

import (
	"context"

	"github.com/kupferco/lv-notas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository interface {
	Create(ctx context.Context, p *model.Patient) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	ListByTherapist(ctx context.Context, therapistID uuid.UUID, includeInactive bool) ([]model.Patient, error)
	Update(ctx context.Context, p *model.Patient) error
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type patientRepo struct{ db *gorm.DB }

func NewPatientRepository(db *gorm.DB) PatientRepository { return &patientRepo{db: db} }

func (r *patientRepo) Create(ctx context.Context, p *model.Patient) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *patientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	var p model.Patient
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *patientRepo) ListByTherapist(ctx context.Context, therapistID uuid.UUID, includeInactive bool) ([]model.Patient, error) {
	var patients []model.Patient
	q := r.db.WithContext(ctx).Where("therapist_id = ?", therapistID)
	if !includeInactive {
		q = q.Where("active = ?", true)
	}
	err := q.Order("name ASC").Find(&patients).Error
	return patients, err
}

func (r *patientRepo) Update(ctx context.Context, p *model.Patient) error {
	return r.db.WithContext(ctx).Save(p).Error
}

func (r *patientRepo) Deactivate(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&model.Patient{}).Where("id = ?", id).Update("active", false).Error
}
