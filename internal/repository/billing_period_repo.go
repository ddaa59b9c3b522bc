package repository

import (
	"context"
	"time"

	"github.com/kupferco/lv-notas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type BillingPeriodRepository interface {
	Create(ctx context.Context, tx *gorm.DB, p *model.BillingPeriod) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.BillingPeriod, error)
	// FindByIDForUpdate takes a row lock inside tx so concurrent payment /
	// void attempts on the same period serialize.
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.BillingPeriod, error)
	// FindActiveByKey returns the non-void period for the identity key, if any.
	FindActiveByKey(ctx context.Context, therapistID, patientID uuid.UUID, year, month int) (*model.BillingPeriod, error)
	// ListNonVoidByPatient returns the patient's non-void periods ordered by
	// (year, month) ascending — the outstanding-balance scan order.
	ListNonVoidByPatient(ctx context.Context, q *gorm.DB, patientID uuid.UUID) ([]model.BillingPeriod, error)
	// ListUnpaidForMatching returns processed periods (with Patient preloaded)
	// whose month-end falls inside [from, to].
	ListUnpaidForMatching(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]model.BillingPeriod, error)
	ListByTherapistMonth(ctx context.Context, therapistID uuid.UUID, year, month int) ([]model.BillingPeriod, error)
	UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error
	UpdateVoidTx(tx *gorm.DB, id uuid.UUID, reason string) error
	DB() *gorm.DB // exposes the DB for transaction creation in service layer
}

type billingPeriodRepo struct{ db *gorm.DB }

func NewBillingPeriodRepository(db *gorm.DB) BillingPeriodRepository {
	return &billingPeriodRepo{db: db}
}

func (r *billingPeriodRepo) DB() *gorm.DB { return r.db }

func (r *billingPeriodRepo) Create(ctx context.Context, tx *gorm.DB, p *model.BillingPeriod) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *billingPeriodRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.BillingPeriod, error) {
	var p model.BillingPeriod
	err := r.db.WithContext(ctx).Preload("Snapshots").Preload("Payments").First(&p, id).Error
	return &p, err
}

func (r *billingPeriodRepo) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*model.BillingPeriod, error) {
	var p model.BillingPeriod
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&p, id).Error
	return &p, err
}

func (r *billingPeriodRepo) FindActiveByKey(ctx context.Context, therapistID, patientID uuid.UUID, year, month int) (*model.BillingPeriod, error) {
	var p model.BillingPeriod
	err := r.db.WithContext(ctx).
		Where("therapist_id = ? AND patient_id = ? AND year = ? AND month = ? AND status <> ?",
			therapistID, patientID, year, month, model.PeriodVoid).
		First(&p).Error
	return &p, err
}

func (r *billingPeriodRepo) ListNonVoidByPatient(ctx context.Context, q *gorm.DB, patientID uuid.UUID) ([]model.BillingPeriod, error) {
	if q == nil {
		q = r.db
	}
	var periods []model.BillingPeriod
	err := q.WithContext(ctx).
		Where("patient_id = ? AND status <> ?", patientID, model.PeriodVoid).
		Order("year ASC, month ASC").
		Find(&periods).Error
	return periods, err
}

func (r *billingPeriodRepo) ListUnpaidForMatching(ctx context.Context, therapistID uuid.UUID, from, to time.Time) ([]model.BillingPeriod, error) {
	var periods []model.BillingPeriod
	// make_date(year, month, 1) is the period's month start; the month-end
	// window [from, to] bounds how far back the matcher looks.
	err := r.db.WithContext(ctx).
		Where("therapist_id = ? AND status = ?", therapistID, model.PeriodProcessed).
		Where("(make_date(year, month, 1) + interval '1 month' - interval '1 day') BETWEEN ? AND ?", from, to).
		Find(&periods).Error
	return periods, err
}

func (r *billingPeriodRepo) ListByTherapistMonth(ctx context.Context, therapistID uuid.UUID, year, month int) ([]model.BillingPeriod, error) {
	var periods []model.BillingPeriod
	err := r.db.WithContext(ctx).
		Preload("Payments").
		Where("therapist_id = ? AND year = ? AND month = ? AND status <> ?", therapistID, year, month, model.PeriodVoid).
		Find(&periods).Error
	return periods, err
}

func (r *billingPeriodRepo) UpdateStatusTx(tx *gorm.DB, id uuid.UUID, status string) error {
	return tx.Model(&model.BillingPeriod{}).Where("id = ?", id).Update("status", status).Error
}

func (r *billingPeriodRepo) UpdateVoidTx(tx *gorm.DB, id uuid.UUID, reason string) error {
	return tx.Model(&model.BillingPeriod{}).Where("id = ?", id).
		Updates(map[string]interface{}{"status": model.PeriodVoid, "void_reason": reason}).Error
}
