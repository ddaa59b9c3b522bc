package repository

import (
	"context"

	"github.com/kupferco/lv-notas/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, p *model.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error)
	DeleteTx(tx *gorm.DB, id uuid.UUID) error
	CountByPeriodTx(tx *gorm.DB, periodID uuid.UUID) (int64, error)
	// IsTransactionClaimedTx re-validates at commit time that no payment has
	// claimed the bank transaction since the match was computed.
	IsTransactionClaimedTx(tx *gorm.DB, transactionID uuid.UUID) (bool, error)
	DB() *gorm.DB
}

type paymentRepo struct{ db *gorm.DB }

func NewPaymentRepository(db *gorm.DB) PaymentRepository { return &paymentRepo{db: db} }

func (r *paymentRepo) DB() *gorm.DB { return r.db }

func (r *paymentRepo) CreateTx(ctx context.Context, tx *gorm.DB, p *model.Payment) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Payment, error) {
	var p model.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	return &p, err
}

func (r *paymentRepo) DeleteTx(tx *gorm.DB, id uuid.UUID) error {
	return tx.Delete(&model.Payment{}, id).Error
}

func (r *paymentRepo) CountByPeriodTx(tx *gorm.DB, periodID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&model.Payment{}).Where("billing_period_id = ?", periodID).Count(&count).Error
	return count, err
}

func (r *paymentRepo) IsTransactionClaimedTx(tx *gorm.DB, transactionID uuid.UUID) (bool, error) {
	var count int64
	err := tx.Model(&model.Payment{}).Where("bank_transaction_id = ?", transactionID).Count(&count).Error
	return count > 0, err
}

